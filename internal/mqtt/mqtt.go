// Package mqtt publishes batch summaries to an MQTT broker from a
// background worker.
package mqtt

import (
	"context"
	"time"

	"github.com/osci-render/osci-go/internal/conf"
)

// Client defines the broker operations the publisher needs.
type Client interface {
	// Connect attempts to connect to the MQTT broker.
	Connect(ctx context.Context) error

	// Publish sends payload to topic and waits for delivery or ctx.
	Publish(ctx context.Context, topic string, payload []byte) error

	// IsConnected returns true if the client is currently connected.
	IsConnected() bool

	// Disconnect closes the connection to the MQTT broker.
	Disconnect()
}

// Metrics receives client activity. *metrics.MQTTMetrics satisfies it.
type Metrics interface {
	UpdateConnectionStatus(connected bool)
	IncrementMessagesDelivered()
	IncrementErrors()
	IncrementReconnectAttempts()
	ObserveMessageSize(sizeBytes float64)
	ObservePublishLatency(latencySeconds float64)
}

type noopMetrics struct{}

func (noopMetrics) UpdateConnectionStatus(bool)   {}
func (noopMetrics) IncrementMessagesDelivered()   {}
func (noopMetrics) IncrementErrors()              {}
func (noopMetrics) IncrementReconnectAttempts()   {}
func (noopMetrics) ObserveMessageSize(float64)    {}
func (noopMetrics) ObservePublishLatency(float64) {}

// Config holds the configuration for the MQTT client.
type Config struct {
	Broker            string
	ClientID          string
	Username          string
	Password          string
	Topic             string
	Retain            bool
	ConnectTimeout    time.Duration
	PublishTimeout    time.Duration
	DisconnectTimeout time.Duration
	MaxReconnectDelay time.Duration
}

// DefaultConfig returns a Config with reasonable default values
func DefaultConfig() Config {
	return Config{
		ConnectTimeout:    10 * time.Second,
		PublishTimeout:    2 * time.Second,
		DisconnectTimeout: 250 * time.Millisecond,
		MaxReconnectDelay: time.Minute,
	}
}

// ConfigFromSettings maps the worker settings onto a client Config.
func ConfigFromSettings(s *conf.MQTTSettings) Config {
	cfg := DefaultConfig()
	cfg.Broker = s.Broker
	cfg.ClientID = s.ClientID
	cfg.Username = s.Username
	cfg.Password = s.Password
	cfg.Topic = s.Topic
	if s.Timeout > 0 {
		cfg.PublishTimeout = s.Timeout
	}
	return cfg
}
