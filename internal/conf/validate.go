package conf

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Supported audio drivers
const (
	DriverTicker = "ticker"
	DriverMalgo  = "malgo"
)

// ValidationError collects every problem found in one pass
type ValidationError struct {
	Errors []string
}

func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %s", strings.Join(ve.Errors, "; "))
}

// ValidateSettings validates the entire Settings tree
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	for _, validate := range []func(*Settings) []string{
		validateAudioSettings,
		validateShapeSettings,
		validateWorkerSettings,
		validateHTTPSettings,
		validateTelemetrySettings,
	} {
		ve.Errors = append(ve.Errors, validate(settings)...)
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateAudioSettings(s *Settings) []string {
	var errs []string
	if err := validateEnvDriver(s.Audio.Driver); err != nil {
		errs = append(errs, fmt.Sprintf("audio.driver: %v", err))
	}
	if s.Audio.SampleRate <= 0 {
		errs = append(errs, "audio.samplerate must be positive")
	}
	if s.Audio.BlockSize <= 0 {
		errs = append(errs, "audio.blocksize must be positive")
	}
	if s.Audio.Channels < 1 {
		errs = append(errs, "audio.channels must be at least 1")
	}
	return errs
}

func validateShapeSettings(s *Settings) []string {
	var errs []string
	if s.Shape.Amplitude < 0 || s.Shape.Amplitude > 1 {
		errs = append(errs, "shape.amplitude must be between 0 and 1")
	}
	if s.Shape.FrequencyX < 0 || s.Shape.FrequencyY < 0 {
		errs = append(errs, "shape frequencies must not be negative")
	}
	return errs
}

func validateWorkerSettings(s *Settings) []string {
	var errs []string
	w := s.Workers

	if w.StopWarnTimeout <= 0 {
		errs = append(errs, "workers.stopwarntimeout must be positive")
	}

	if w.Recorder.Enabled {
		switch w.Recorder.BitDepth {
		case 16, 24, 32:
		default:
			errs = append(errs, "workers.recorder.bitdepth must be 16, 24 or 32")
		}
		if w.Recorder.BatchBlocks < 1 {
			errs = append(errs, "workers.recorder.batchblocks must be at least 1")
		}
		if w.Recorder.Path == "" {
			errs = append(errs, "workers.recorder.path is required")
		}
	}

	if w.Scope.Enabled {
		if w.Scope.FPS < 1 {
			errs = append(errs, "workers.scope.fps must be at least 1")
		}
		if w.Scope.HistoryFrames < 0 {
			errs = append(errs, "workers.scope.historyframes must not be negative")
		}
		if w.Scope.ClientQueue < 1 {
			errs = append(errs, "workers.scope.clientqueue must be at least 1")
		}
	}

	if w.MQTT.Enabled {
		if u, err := url.Parse(w.MQTT.Broker); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, "workers.mqtt.broker must be a URL such as tcp://host:1883")
		}
		if w.MQTT.Topic == "" {
			errs = append(errs, "workers.mqtt.topic is required")
		}
		if w.MQTT.Every < 1 {
			errs = append(errs, "workers.mqtt.every must be at least 1")
		}
	}
	return errs
}

func validateHTTPSettings(s *Settings) []string {
	if !s.HTTP.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(s.HTTP.Listen); err != nil {
		return []string{fmt.Sprintf("http.listen: %v", err)}
	}
	return nil
}

func validateTelemetrySettings(s *Settings) []string {
	var errs []string
	if s.Telemetry.Enabled && s.Telemetry.DSN == "" {
		errs = append(errs, "telemetry.dsn is required when telemetry is enabled")
	}
	if s.Telemetry.SampleRate < 0 || s.Telemetry.SampleRate > 1 {
		errs = append(errs, "telemetry.samplerate must be between 0 and 1")
	}
	return errs
}
