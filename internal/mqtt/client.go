package mqtt

import (
	"context"
	"net/url"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/osci-render/osci-go/internal/errors"
	"github.com/osci-render/osci-go/internal/logger"
	"github.com/osci-render/osci-go/internal/privacy"
)

const componentMQTT = "mqtt"

// ErrNotConnected is returned by Publish while the broker is unreachable.
var ErrNotConnected = errors.Newf("not connected to MQTT broker").
	Component(componentMQTT).
	Category(errors.CategoryMQTTConnection).
	Build()

// client implements Client on top of paho with automatic reconnects.
type client struct {
	config         Config
	log            logger.Logger
	metrics        Metrics
	mu             sync.Mutex
	internalClient paho.Client
}

// ClientOption configures the paho client.
type ClientOption func(*client)

// WithClientLogger sets the client logger.
func WithClientLogger(l logger.Logger) ClientOption {
	return func(c *client) { c.log = l }
}

// WithClientMetrics sets the metrics sink.
func WithClientMetrics(m Metrics) ClientOption {
	return func(c *client) {
		if m != nil {
			c.metrics = m
		}
	}
}

// NewClient validates the broker URL and returns an unconnected client.
func NewClient(cfg Config, opts ...ClientOption) (Client, error) {
	u, err := url.Parse(cfg.Broker)
	if err != nil || u.Host == "" {
		return nil, errors.Newf("invalid broker URL %q", privacy.SanitizeBrokerURL(cfg.Broker)).
			Component(componentMQTT).
			Category(errors.CategoryConfiguration).
			Build()
	}
	c := &client{
		config:  cfg,
		log:     logger.Global().Module(componentMQTT),
		metrics: noopMetrics{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Connect establishes the first connection. Later losses are recovered by
// paho's auto-reconnect.
func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.internalClient != nil && c.internalClient.IsConnected() {
		return nil
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(c.config.Broker)
	opts.SetClientID(c.config.ClientID)
	opts.SetUsername(c.config.Username)
	opts.SetPassword(c.config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(false)
	opts.SetConnectTimeout(c.config.ConnectTimeout)
	opts.SetMaxReconnectInterval(c.config.MaxReconnectDelay)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)
	opts.SetReconnectingHandler(c.onReconnecting)

	c.internalClient = paho.NewClient(opts)
	token := c.internalClient.Connect()

	select {
	case <-token.Done():
	case <-ctx.Done():
		c.metrics.IncrementErrors()
		return errors.New(ctx.Err()).
			Component(componentMQTT).
			Category(errors.CategoryMQTTConnection).
			Context("broker", privacy.SanitizeBrokerURL(c.config.Broker)).
			Build()
	}
	if err := token.Error(); err != nil {
		c.metrics.IncrementErrors()
		return errors.New(err).
			Component(componentMQTT).
			Category(errors.CategoryMQTTConnection).
			Context("broker", privacy.SanitizeBrokerURL(c.config.Broker)).
			Build()
	}

	c.metrics.UpdateConnectionStatus(true)
	return nil
}

// Publish sends payload with QoS 0.
func (c *client) Publish(ctx context.Context, topic string, payload []byte) error {
	c.mu.Lock()
	internal := c.internalClient
	c.mu.Unlock()

	if internal == nil || !internal.IsConnected() {
		return ErrNotConnected
	}

	start := time.Now()
	token := internal.Publish(topic, 0, c.config.Retain, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		c.metrics.IncrementErrors()
		return errors.New(ctx.Err()).
			Component(componentMQTT).
			Category(errors.CategoryMQTTPublish).
			Context("topic", topic).
			Build()
	}
	if err := token.Error(); err != nil {
		c.metrics.IncrementErrors()
		return errors.New(err).
			Component(componentMQTT).
			Category(errors.CategoryMQTTPublish).
			Context("topic", topic).
			Build()
	}

	c.metrics.ObservePublishLatency(time.Since(start).Seconds())
	c.metrics.IncrementMessagesDelivered()
	c.metrics.ObserveMessageSize(float64(len(payload)))
	return nil
}

// IsConnected returns true if the client is currently connected to the MQTT broker.
func (c *client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.internalClient != nil && c.internalClient.IsConnected()
}

// Disconnect closes the connection and stops reconnect attempts.
func (c *client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.internalClient == nil {
		return
	}
	c.internalClient.Disconnect(uint(c.config.DisconnectTimeout.Milliseconds()))
	c.internalClient = nil
	c.metrics.UpdateConnectionStatus(false)
}

func (c *client) onConnect(_ paho.Client) {
	c.log.Info("connected to MQTT broker", logger.String("broker", privacy.SanitizeBrokerURL(c.config.Broker)))
	c.metrics.UpdateConnectionStatus(true)
}

func (c *client) onConnectionLost(_ paho.Client, err error) {
	c.log.Warn("connection to MQTT broker lost",
		logger.String("broker", privacy.SanitizeBrokerURL(c.config.Broker)),
		logger.Error(err))
	c.metrics.UpdateConnectionStatus(false)
	c.metrics.IncrementErrors()
}

//nolint:gocritic // hugeParam: paho callback signature
func (c *client) onReconnecting(_ paho.Client, _ *paho.ClientOptions) {
	c.metrics.IncrementReconnectAttempts()
}
