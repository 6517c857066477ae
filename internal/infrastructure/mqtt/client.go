package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/config"
)

// Logger is the logging interface used by the client.
// *logging.Logger satisfies it.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// MessageHandler receives one message. Handlers run on paho's goroutines
// and should not block. A returned error is logged.
type MessageHandler func(topic string, payload []byte) error

type subscription struct {
	qos     byte
	handler MessageHandler
}

// Client wraps paho.mqtt.golang for the climate service.
//
// Subscriptions are tracked and restored after every reconnect, and the
// service's online/offline status is kept retained on the system status
// topic (with an LWT covering crashes).
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Client struct {
	paho      pahomqtt.Client
	cfg       config.MQTTConfig
	connected atomic.Bool

	mu        sync.RWMutex
	subs      map[string]subscription
	onConnect func()
	logger    Logger
}

// Connect dials the broker described by cfg and waits for the first
// connection.
//
// Parameters:
//   - cfg: MQTT configuration
//
// Returns:
//   - *Client: connected client
//   - error: ErrConnectionFailed if the broker is not reachable in time
func Connect(cfg config.MQTTConfig) (*Client, error) {
	opts := buildClientOptions(cfg)
	c := newClient(cfg, nil)

	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.handleConnect() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.handleConnectionLost(err) })

	c.paho = pahomqtt.NewClient(opts)
	if err := await(c.paho.Connect(), defaultConnectTimeout, ErrConnectionFailed); err != nil {
		c.paho.Disconnect(0)
		return nil, err
	}
	// The OnConnect callback runs asynchronously; mark connected now so
	// callers can subscribe straight away.
	c.connected.Store(true)
	return c, nil
}

func newClient(cfg config.MQTTConfig, paho pahomqtt.Client) *Client {
	return &Client{
		paho:   paho,
		cfg:    cfg,
		subs:   make(map[string]subscription),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for connection events and handler failures.
func (c *Client) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	c.mu.Lock()
	c.logger = logger
	c.mu.Unlock()
}

// SetOnConnect registers a callback run after every (re)connect, once
// subscriptions are restored.
func (c *Client) SetOnConnect(fn func()) {
	c.mu.Lock()
	c.onConnect = fn
	c.mu.Unlock()
}

func (c *Client) log() Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.logger
}

func (c *Client) handleConnect() {
	c.connected.Store(true)

	c.mu.RLock()
	subs := make(map[string]subscription, len(c.subs))
	for t, s := range c.subs {
		subs[t] = s
	}
	fn := c.onConnect
	c.mu.RUnlock()

	for topic, s := range subs {
		if err := await(c.paho.Subscribe(topic, s.qos, c.wrapHandler(s.handler)), defaultOperationTimeout, ErrSubscribeFailed); err != nil {
			c.log().Warn("restoring MQTT subscription failed", "topic", topic, "error", err)
		}
	}
	c.publishStatus(statusOnline, "")
	c.log().Info("MQTT connected", "subscriptions", len(subs))

	if fn != nil {
		fn()
	}
}

func (c *Client) handleConnectionLost(err error) {
	c.connected.Store(false)
	c.log().Warn("MQTT connection lost", "error", err)
}

// IsConnected reports the last known connection state.
func (c *Client) IsConnected() bool {
	return c.paho != nil && c.connected.Load() && c.paho.IsConnected()
}

// HealthCheck returns ErrNotConnected while the broker is unreachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// Close publishes a graceful offline status and disconnects.
func (c *Client) Close() error {
	if c == nil || c.paho == nil {
		return nil
	}
	if c.IsConnected() {
		c.publishStatus(statusOffline, reasonShutdown)
	}
	c.paho.Disconnect(defaultDisconnectQuiesce)
	c.connected.Store(false)
	return nil
}

func (c *Client) publishStatus(status, reason string) {
	payload := statusPayload(c.cfg.Broker.ClientID, status, reason, time.Now())
	token := c.paho.Publish(Topics{}.SystemStatus(), byte(c.cfg.QoS), true, payload)
	if err := await(token, defaultOperationTimeout, ErrPublishFailed); err != nil {
		c.log().Warn("publishing service status failed", "status", status, "error", err)
	}
}

// await waits for a paho token, mapping a timeout or failure onto sentinel.
func await(token pahomqtt.Token, timeout time.Duration, sentinel error) error {
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("%w: timeout after %v", sentinel, timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return nil
}
