// Package conf loads, validates and saves oscigo settings.
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/osci-render/osci-go/internal/errors"
	"github.com/osci-render/osci-go/internal/logger"
)

// Settings is the root of the configuration tree
type Settings struct {
	Debug     bool                 `yaml:"debug" mapstructure:"debug"`
	Logging   logger.LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Audio     AudioSettings        `yaml:"audio" mapstructure:"audio"`
	Shape     ShapeSettings        `yaml:"shape" mapstructure:"shape"`
	Workers   WorkersSettings      `yaml:"workers" mapstructure:"workers"`
	HTTP      HTTPSettings         `yaml:"http" mapstructure:"http"`
	Telemetry TelemetrySettings    `yaml:"telemetry" mapstructure:"telemetry"`
}

// AudioSettings selects the driver that paces the producer
type AudioSettings struct {
	Driver     string  `yaml:"driver" mapstructure:"driver"`         // "ticker" or "malgo"
	SampleRate float64 `yaml:"samplerate" mapstructure:"samplerate"` // frames per second
	BlockSize  int     `yaml:"blocksize" mapstructure:"blocksize"`   // frames per callback
	Channels   int     `yaml:"channels" mapstructure:"channels"`     // output channels for the malgo driver
	Device     string  `yaml:"device" mapstructure:"device"`         // playback device name, empty for system default
}

// ShapeSettings configures the Lissajous generator
type ShapeSettings struct {
	FrequencyX    float64 `yaml:"frequencyx" mapstructure:"frequencyx"`       // Hz
	FrequencyY    float64 `yaml:"frequencyy" mapstructure:"frequencyy"`       // Hz
	Phase         float64 `yaml:"phase" mapstructure:"phase"`                 // radians added to the Y oscillator
	Amplitude     float64 `yaml:"amplitude" mapstructure:"amplitude"`         // 0..1
	RotationSpeed float64 `yaml:"rotationspeed" mapstructure:"rotationspeed"` // revolutions per second around Z
}

// WorkersSettings holds background consumer configuration
type WorkersSettings struct {
	StopWarnTimeout  time.Duration    `yaml:"stopwarntimeout" mapstructure:"stopwarntimeout"`
	ErrorLogInterval time.Duration    `yaml:"errorloginterval" mapstructure:"errorloginterval"`
	Recorder         RecorderSettings `yaml:"recorder" mapstructure:"recorder"`
	Scope            ScopeSettings    `yaml:"scope" mapstructure:"scope"`
	MQTT             MQTTSettings     `yaml:"mqtt" mapstructure:"mqtt"`
}

// RecorderSettings configures the WAV recorder worker
type RecorderSettings struct {
	Enabled     bool   `yaml:"enabled" mapstructure:"enabled"`
	Path        string `yaml:"path" mapstructure:"path"`               // output directory
	Prefix      string `yaml:"prefix" mapstructure:"prefix"`           // file name prefix
	BitDepth    int    `yaml:"bitdepth" mapstructure:"bitdepth"`       // 16, 24 or 32
	BatchBlocks int    `yaml:"batchblocks" mapstructure:"batchblocks"` // audio blocks per batch
	IncludeZ    bool   `yaml:"includez" mapstructure:"includez"`       // write Z as a third channel
}

// ScopeSettings configures the websocket scope worker
type ScopeSettings struct {
	Enabled       bool `yaml:"enabled" mapstructure:"enabled"`
	FPS           int  `yaml:"fps" mapstructure:"fps"`
	HistoryFrames int  `yaml:"historyframes" mapstructure:"historyframes"`
	ClientQueue   int  `yaml:"clientqueue" mapstructure:"clientqueue"`
}

// MQTTSettings configures the batch summary publisher
type MQTTSettings struct {
	Enabled  bool          `yaml:"enabled" mapstructure:"enabled"`
	Broker   string        `yaml:"broker" mapstructure:"broker"`
	Topic    string        `yaml:"topic" mapstructure:"topic"`
	ClientID string        `yaml:"clientid" mapstructure:"clientid"`
	Username string        `yaml:"username" mapstructure:"username"`
	Password string        `yaml:"password" mapstructure:"password"`
	Every    int           `yaml:"every" mapstructure:"every"` // publish once every N batches
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// HTTPSettings configures the status and streaming server
type HTTPSettings struct {
	Enabled        bool          `yaml:"enabled" mapstructure:"enabled"`
	Listen         string        `yaml:"listen" mapstructure:"listen"`
	StatusCacheTTL time.Duration `yaml:"statuscachettl" mapstructure:"statuscachettl"`
}

// TelemetrySettings configures Sentry error reporting
type TelemetrySettings struct {
	Enabled     bool    `yaml:"enabled" mapstructure:"enabled"`
	DSN         string  `yaml:"dsn" mapstructure:"dsn"`
	Environment string  `yaml:"environment" mapstructure:"environment"`
	SampleRate  float64 `yaml:"samplerate" mapstructure:"samplerate"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads defaults, the config file and OSCIGO_* environment variables.
// An empty configFile searches the default locations; a missing file there
// is not an error and leaves the defaults in place.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	if err := initViper(configFile); err != nil {
		return nil, err
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal").
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settings, nil
}

func initViper(configFile string) error {
	setDefaultConfig()

	if err := configureEnvironmentVariables(); err != nil {
		GetLogger().Warn("environment variable issues", logger.Error(err))
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return errors.New(err).
				Component("conf").
				Category(errors.CategoryFileIO).
				Context("operation", "read-config").
				Context("path", configFile).
				Build()
		}
		return nil
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return err
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			GetLogger().Info("no config file found, using defaults",
				logger.Any("searched", configPaths))
			return nil
		}
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "read-config").
			Build()
	}
	return nil
}

// GetSettings returns the most recently loaded settings, or nil
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SaveYAMLConfig writes settings to configPath through a temporary file and rename.
// Comments and key order of an existing file are not preserved.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o750); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		return fmt.Errorf("error replacing config file: %w", err)
	}
	return nil
}
