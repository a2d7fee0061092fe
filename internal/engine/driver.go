package engine

import (
	"github.com/osci-render/osci-go/internal/conf"
	"github.com/osci-render/osci-go/internal/errors"
	"github.com/osci-render/osci-go/internal/logger"
)

// NewDriver builds the driver named by settings.Driver.
func NewDriver(settings *conf.AudioSettings, log logger.Logger) (Driver, error) {
	switch settings.Driver {
	case conf.DriverTicker, "":
		return NewTickerDriver(settings.SampleRate, settings.BlockSize, settings.Channels), nil
	case conf.DriverMalgo:
		return NewMalgoDriver(settings.SampleRate, settings.BlockSize, settings.Channels, settings.Device, log), nil
	default:
		return nil, errors.Newf("unknown audio driver %q", settings.Driver).
			Component(componentEngine).
			Category(errors.CategoryConfiguration).
			Build()
	}
}
