package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. OSCIGO_AUDIO_SAMPLERATE
const EnvPrefix = "OSCIGO"

// envBinding ties a config key to a validated environment variable
type envBinding struct {
	ConfigKey string
	EnvVar    string
	Validate  func(string) error
}

func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "OSCIGO_DEBUG", validateEnvBool},
		{"audio.driver", "OSCIGO_AUDIO_DRIVER", validateEnvDriver},
		{"audio.samplerate", "OSCIGO_AUDIO_SAMPLERATE", validateEnvPositiveFloat},
		{"audio.blocksize", "OSCIGO_AUDIO_BLOCKSIZE", validateEnvPositiveInt},
		{"http.listen", "OSCIGO_HTTP_LISTEN", nil},
		{"workers.mqtt.broker", "OSCIGO_WORKERS_MQTT_BROKER", nil},
		{"workers.mqtt.password", "OSCIGO_WORKERS_MQTT_PASSWORD", nil},
		{"telemetry.dsn", "OSCIGO_TELEMETRY_DSN", nil},
	}
}

// configureEnvironmentVariables enables OSCIGO_* overrides for every key and
// validates the commonly used ones. Invalid values are reported, not fatal;
// ValidateSettings rejects anything that cannot work.
func configureEnvironmentVariables() error {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var warnings []string
	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to bind %s: %v", binding.EnvVar, err))
			continue
		}
		if binding.Validate == nil {
			continue
		}
		if value := os.Getenv(binding.EnvVar); value != "" {
			if err := binding.Validate(value); err != nil {
				warnings = append(warnings, fmt.Sprintf("invalid %s value %q: %v", binding.EnvVar, value, err))
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true or false")
	}
	return nil
}

func validateEnvDriver(value string) error {
	switch value {
	case DriverTicker, DriverMalgo:
		return nil
	default:
		return fmt.Errorf("must be %q or %q", DriverTicker, DriverMalgo)
	}
}

func validateEnvPositiveFloat(value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f <= 0 {
		return fmt.Errorf("must be a positive number")
	}
	return nil
}

func validateEnvPositiveInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return fmt.Errorf("must be a positive integer")
	}
	return nil
}
