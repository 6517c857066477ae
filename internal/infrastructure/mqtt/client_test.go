package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-climate/internal/entity"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/config"
)

// ─── Fakes ─────────────────────────────────────────────────────────

type fakeToken struct {
	err     error
	timeout bool
}

func (t *fakeToken) Wait() bool                     { return !t.timeout }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.timeout }
func (t *fakeToken) Error() error                   { return t.err }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// fakePaho records calls and stores subscription callbacks so tests can
// deliver messages.
type fakePaho struct {
	mu           sync.Mutex
	connected    bool
	published    []published
	handlers     map[string]pahomqtt.MessageHandler
	unsubscribed []string
	disconnected bool

	publishErr   error
	subscribeErr error
	timeout      bool
}

func newFakePaho() *fakePaho {
	return &fakePaho{connected: true, handlers: make(map[string]pahomqtt.MessageHandler)}
}

func (f *fakePaho) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}
func (f *fakePaho) IsConnectionOpen() bool { return f.IsConnected() }
func (f *fakePaho) Connect() pahomqtt.Token {
	return &fakeToken{}
}
func (f *fakePaho) Disconnect(uint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	f.disconnected = true
}
func (f *fakePaho) Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, _ := payload.([]byte)
	f.published = append(f.published, published{topic: topic, qos: qos, retained: retained, payload: b})
	return &fakeToken{err: f.publishErr, timeout: f.timeout}
}
func (f *fakePaho) Subscribe(topic string, _ byte, cb pahomqtt.MessageHandler) pahomqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribeErr == nil {
		f.handlers[topic] = cb
	}
	return &fakeToken{err: f.subscribeErr}
}
func (f *fakePaho) SubscribeMultiple(map[string]byte, pahomqtt.MessageHandler) pahomqtt.Token {
	return &fakeToken{}
}
func (f *fakePaho) Unsubscribe(topics ...string) pahomqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range topics {
		delete(f.handlers, t)
	}
	f.unsubscribed = append(f.unsubscribed, topics...)
	return &fakeToken{}
}
func (f *fakePaho) AddRoute(string, pahomqtt.MessageHandler) {}
func (f *fakePaho) OptionsReader() pahomqtt.ClientOptionsReader {
	return pahomqtt.ClientOptionsReader{}
}

func (f *fakePaho) deliver(filter, topic string, payload []byte) {
	f.mu.Lock()
	cb := f.handlers[filter]
	f.mu.Unlock()
	cb(f, &fakeMessage{topic: topic, payload: payload})
}

func (f *fakePaho) last() published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.published[len(f.published)-1]
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 1 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 1 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) add(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, msg)
}
func (l *recordingLogger) Info(msg string, _ ...any)  { l.add(msg) }
func (l *recordingLogger) Warn(msg string, _ ...any)  { l.add(msg) }
func (l *recordingLogger) Error(msg string, _ ...any) { l.add(msg) }

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{Host: "localhost", Port: 1883, ClientID: "climate-test"},
		QoS:    1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     60,
		},
	}
}

func connectedClient(t *testing.T) (*Client, *fakePaho) {
	t.Helper()
	fp := newFakePaho()
	c := newClient(testConfig(), fp)
	c.connected.Store(true)
	return c, fp
}

// ─── Publish ───────────────────────────────────────────────────────

func TestPublish(t *testing.T) {
	c, fp := connectedClient(t)

	if err := c.Publish("graylogic/climate/x", []byte("1"), 1, true); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	got := fp.last()
	if got.topic != "graylogic/climate/x" || got.qos != 1 || !got.retained || string(got.payload) != "1" {
		t.Errorf("published = %+v", got)
	}
}

func TestPublish_Validation(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{"empty topic", "", []byte("x"), 1, ErrInvalidTopic},
		{"qos 3", "a/b", []byte("x"), 3, ErrInvalidQoS},
		{"oversized payload", "a/b", make([]byte, maxPayloadSize+1), 1, ErrPublishFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := connectedClient(t)
			if err := c.Publish(tt.topic, tt.payload, tt.qos, false); !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPublish_NotConnected(t *testing.T) {
	c, fp := connectedClient(t)
	fp.connected = false

	if err := c.Publish("a/b", []byte("x"), 1, false); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() error = %v, want ErrNotConnected", err)
	}
}

func TestPublish_BrokerFailures(t *testing.T) {
	c, fp := connectedClient(t)

	fp.publishErr = errors.New("broker said no")
	if err := c.Publish("a/b", []byte("x"), 1, false); !errors.Is(err, ErrPublishFailed) {
		t.Errorf("Publish() error = %v, want ErrPublishFailed", err)
	}

	fp.publishErr = nil
	fp.timeout = true
	err := c.Publish("a/b", []byte("x"), 1, false)
	if !errors.Is(err, ErrPublishFailed) || !strings.Contains(err.Error(), "timeout") {
		t.Errorf("Publish() error = %v, want timeout", err)
	}
}

func TestPublishJSON(t *testing.T) {
	c, fp := connectedClient(t)

	if err := c.PublishJSON("a/b", map[string]int{"n": 1}, false); err != nil {
		t.Fatalf("PublishJSON() error = %v", err)
	}
	if got := string(fp.last().payload); got != `{"n":1}` {
		t.Errorf("payload = %s", got)
	}
	if err := c.PublishJSON("a/b", func() {}, false); !errors.Is(err, ErrPublishFailed) {
		t.Errorf("PublishJSON(func) error = %v, want ErrPublishFailed", err)
	}
}

// ─── Subscribe ─────────────────────────────────────────────────────

func TestSubscribe_DeliversMessages(t *testing.T) {
	c, fp := connectedClient(t)

	var gotTopic, gotPayload string
	err := c.Subscribe("states/#", 1, func(topic string, payload []byte) error {
		gotTopic, gotPayload = topic, string(payload)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if !c.HasSubscription("states/#") || c.SubscriptionCount() != 1 {
		t.Fatal("subscription not tracked")
	}

	fp.deliver("states/#", "states/sensor.x", []byte("42"))
	if gotTopic != "states/sensor.x" || gotPayload != "42" {
		t.Errorf("handler got %q %q", gotTopic, gotPayload)
	}
}

func TestSubscribe_Validation(t *testing.T) {
	c, fp := connectedClient(t)
	noop := func(string, []byte) error { return nil }

	if err := c.Subscribe("", 1, noop); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic error = %v", err)
	}
	if err := c.Subscribe("a", 5, noop); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("bad qos error = %v", err)
	}
	if err := c.Subscribe("a", 1, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("nil handler error = %v", err)
	}

	fp.subscribeErr = errors.New("denied")
	if err := c.Subscribe("a", 1, noop); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("broker failure error = %v", err)
	}
	if c.HasSubscription("a") {
		t.Error("failed subscription should not be tracked")
	}
}

func TestUnsubscribe(t *testing.T) {
	c, fp := connectedClient(t)
	_ = c.Subscribe("a/#", 1, func(string, []byte) error { return nil })

	if err := c.Unsubscribe("a/#"); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if c.HasSubscription("a/#") {
		t.Error("subscription still tracked")
	}
	if len(fp.unsubscribed) != 1 || fp.unsubscribed[0] != "a/#" {
		t.Errorf("unsubscribed = %v", fp.unsubscribed)
	}
}

func TestWrapHandler_ErrorsAndPanics(t *testing.T) {
	c, fp := connectedClient(t)
	log := &recordingLogger{}
	c.SetLogger(log)

	_ = c.Subscribe("err", 1, func(string, []byte) error { return errors.New("bad payload") })
	_ = c.Subscribe("panic", 1, func(string, []byte) error { panic("boom") })

	fp.deliver("err", "err", nil)
	fp.deliver("panic", "panic", nil)

	want := []string{"MQTT handler returned error", "MQTT handler panic recovered"}
	if len(log.lines) != len(want) {
		t.Fatalf("log lines = %v", log.lines)
	}
	for i := range want {
		if log.lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, log.lines[i], want[i])
		}
	}
}

// ─── Connection lifecycle ──────────────────────────────────────────

func TestHandleConnect_RestoresSubscriptionsAndPublishesOnline(t *testing.T) {
	c, fp := connectedClient(t)
	_ = c.Subscribe("a/#", 1, func(string, []byte) error { return nil })

	c.handleConnectionLost(errors.New("network"))
	if c.IsConnected() {
		t.Fatal("IsConnected() = true after connection lost")
	}
	fp.handlers = make(map[string]pahomqtt.MessageHandler)

	called := false
	c.SetOnConnect(func() { called = true })
	c.handleConnect()

	if _, ok := fp.handlers["a/#"]; !ok {
		t.Error("subscription not restored")
	}
	if !called {
		t.Error("OnConnect callback not called")
	}

	st := fp.last()
	if st.topic != "graylogic/system/status" || !st.retained {
		t.Fatalf("status message = %+v", st)
	}
	var payload map[string]string
	if err := json.Unmarshal(st.payload, &payload); err != nil {
		t.Fatalf("status payload: %v", err)
	}
	if payload["status"] != "online" || payload["client_id"] != "climate-test" {
		t.Errorf("status payload = %v", payload)
	}
}

func TestClose_PublishesOffline(t *testing.T) {
	c, fp := connectedClient(t)

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !fp.disconnected {
		t.Error("paho client not disconnected")
	}
	var payload map[string]string
	if err := json.Unmarshal(fp.last().payload, &payload); err != nil {
		t.Fatal(err)
	}
	if payload["status"] != "offline" || payload["reason"] != reasonShutdown {
		t.Errorf("status payload = %v", payload)
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true after Close")
	}
}

func TestHealthCheck(t *testing.T) {
	c, fp := connectedClient(t)
	if err := c.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	fp.connected = false
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck(cancelled) error = %v", err)
	}
}

// ─── Options ───────────────────────────────────────────────────────

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	cfg.Auth = config.MQTTAuthConfig{Username: "climate", Password: "secret"}

	r := pahomqtt.NewClient(buildClientOptions(cfg)).OptionsReader()

	servers := r.Servers()
	if len(servers) != 1 || servers[0].String() != "ssl://localhost:1883" {
		t.Errorf("Servers() = %v", servers)
	}
	if r.ClientID() != "climate-test" || r.Username() != "climate" {
		t.Errorf("ClientID/Username = %q/%q", r.ClientID(), r.Username())
	}
	if !r.WillEnabled() || r.WillTopic() != "graylogic/system/status" || !r.WillRetained() {
		t.Errorf("will = %v %q %v", r.WillEnabled(), r.WillTopic(), r.WillRetained())
	}
	if r.TLSConfig() == nil {
		t.Error("TLS config not set")
	}
}

// ─── Topics ────────────────────────────────────────────────────────

func TestTopics(t *testing.T) {
	topics := Topics{}
	tests := []struct {
		got, want string
	}{
		{topics.SystemStatus(), "graylogic/system/status"},
		{topics.SensorState("sensor.absolute_humidity_kitchen"), "graylogic/climate/sensor/sensor.absolute_humidity_kitchen/state"},
		{topics.SensorAttributes("sensor.absolute_humidity_kitchen"), "graylogic/climate/sensor/sensor.absolute_humidity_kitchen/attributes"},
		{topics.SensorState("sensor.a/b#"), "graylogic/climate/sensor/sensor.a_b_/state"},
		{topics.AllSensorStates(), "graylogic/climate/sensor/+/state"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("topic = %q, want %q", tt.got, tt.want)
		}
	}
}

// ─── StatePublisher ────────────────────────────────────────────────

func TestStatePublisher(t *testing.T) {
	c, fp := connectedClient(t)
	pub := NewStatePublisher(c, 1)

	st := &entity.State{
		EntityID:   "sensor.absolute_humidity_kitchen",
		Value:      "9.41",
		Attributes: map[string]any{"unit_of_measurement": "g/m³"},
	}
	if err := pub.PublishState(context.Background(), st); err != nil {
		t.Fatalf("PublishState() error = %v", err)
	}
	if len(fp.published) != 2 {
		t.Fatalf("published %d messages, want 2", len(fp.published))
	}
	if m := fp.published[0]; m.topic != (Topics{}).SensorState(st.EntityID) || string(m.payload) != "9.41" || !m.retained {
		t.Errorf("state message = %+v", m)
	}
	var attrs map[string]any
	if err := json.Unmarshal(fp.published[1].payload, &attrs); err != nil {
		t.Fatal(err)
	}
	if attrs["unit_of_measurement"] != "g/m³" {
		t.Errorf("attributes = %v", attrs)
	}
}

func TestStatePublisher_Failures(t *testing.T) {
	c, fp := connectedClient(t)
	pub := NewStatePublisher(c, 1)

	if err := pub.PublishState(context.Background(), nil); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("nil state error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := pub.PublishState(ctx, &entity.State{EntityID: "sensor.x"}); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled error = %v", err)
	}

	fp.connected = false
	if err := pub.PublishState(context.Background(), &entity.State{EntityID: "sensor.x"}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("disconnected error = %v", err)
	}
}
