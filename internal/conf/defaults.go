// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Default audio parameters used when no device dictates them
const (
	DefaultSampleRate = 48000.0
	DefaultBlockSize  = 512
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("logging.default_level", "info")
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", "info")
	viper.SetDefault("logging.file_output.enabled", false)
	viper.SetDefault("logging.file_output.path", "logs/oscigo.log")
	viper.SetDefault("logging.file_output.level", "info")

	viper.SetDefault("audio.driver", "ticker")
	viper.SetDefault("audio.samplerate", DefaultSampleRate)
	viper.SetDefault("audio.blocksize", DefaultBlockSize)
	viper.SetDefault("audio.channels", 2)
	viper.SetDefault("audio.device", "")

	viper.SetDefault("shape.frequencyx", 220.0)
	viper.SetDefault("shape.frequencyy", 330.0)
	viper.SetDefault("shape.phase", 0.0)
	viper.SetDefault("shape.amplitude", 0.8)
	viper.SetDefault("shape.rotationspeed", 0.0)

	viper.SetDefault("workers.stopwarntimeout", 2*time.Second)
	viper.SetDefault("workers.errorloginterval", 5*time.Second)

	viper.SetDefault("workers.recorder.enabled", false)
	viper.SetDefault("workers.recorder.path", "recordings")
	viper.SetDefault("workers.recorder.prefix", "oscigo")
	viper.SetDefault("workers.recorder.bitdepth", 16)
	viper.SetDefault("workers.recorder.batchblocks", 8)
	viper.SetDefault("workers.recorder.includez", false)

	viper.SetDefault("workers.scope.enabled", true)
	viper.SetDefault("workers.scope.fps", 60)
	viper.SetDefault("workers.scope.historyframes", 30)
	viper.SetDefault("workers.scope.clientqueue", 8)

	viper.SetDefault("workers.mqtt.enabled", false)
	viper.SetDefault("workers.mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("workers.mqtt.topic", "oscigo/batches")
	viper.SetDefault("workers.mqtt.clientid", "oscigo")
	viper.SetDefault("workers.mqtt.username", "")
	viper.SetDefault("workers.mqtt.password", "")
	viper.SetDefault("workers.mqtt.every", 10)
	viper.SetDefault("workers.mqtt.timeout", 2*time.Second)

	viper.SetDefault("http.enabled", true)
	viper.SetDefault("http.listen", "127.0.0.1:8080")
	viper.SetDefault("http.statuscachettl", time.Second)

	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.dsn", "")
	viper.SetDefault("telemetry.environment", "production")
	viper.SetDefault("telemetry.samplerate", 1.0)
}
