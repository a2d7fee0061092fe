// Package telemetry provides opt-in, privacy-filtered error reporting to Sentry.
package telemetry

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/osci-render/osci-go/internal/conf"
	"github.com/osci-render/osci-go/internal/errors"
	"github.com/osci-render/osci-go/internal/logger"
	"github.com/osci-render/osci-go/internal/privacy"
)

// DefaultFlushTimeout bounds how long shutdown waits for queued events.
const DefaultFlushTimeout = 2 * time.Second

var sentryInitialized atomic.Bool

// InitSentry initializes the Sentry SDK and installs the errors package
// reporter. It does nothing unless telemetry is explicitly enabled.
func InitSentry(settings *conf.TelemetrySettings, release string) error {
	return initSentry(settings, release, nil)
}

func initSentry(settings *conf.TelemetrySettings, release string, transport sentry.Transport) error {
	log := logger.Global().Module("telemetry")
	if !settings.Enabled {
		log.Debug("sentry telemetry is disabled (opt-in required)")
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.DSN,
		SampleRate:       settings.SampleRate,
		AttachStacktrace: false,
		Environment:      settings.Environment,
		ServerName:       "",
		Release:          fmt.Sprintf("oscigo@%s", release),
		Transport:        transport,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	})
	if err != nil {
		return errors.New(err).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Context("operation", "sentry_init").
			Build()
	}

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("os", runtime.GOOS)
		scope.SetTag("arch", runtime.GOARCH)
	})

	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	sentryInitialized.Store(true)

	log.Info("sentry telemetry initialized",
		logger.String("environment", settings.Environment),
		logger.Float64("sample_rate", settings.SampleRate))
	return nil
}

// IsInitialized reports whether InitSentry installed a live client.
func IsInitialized() bool {
	return sentryInitialized.Load()
}

// Flush waits up to timeout for queued events, then detaches the errors
// reporter. It is safe to call when telemetry was never initialized.
func Flush(timeout time.Duration) bool {
	if !sentryInitialized.CompareAndSwap(true, false) {
		return true
	}
	errors.SetTelemetryReporter(nil)
	return sentry.Flush(timeout)
}

// applyPrivacyFilters strips host and user identifying data from an event.
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "runtime")
	}

	for k := range event.Extra {
		if k != "error_type" && k != "component" {
			delete(event.Extra, k)
		}
	}

	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}

	event.Message = privacy.ScrubMessage(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = privacy.ScrubMessage(event.Exception[i].Value)
	}

	return event
}
