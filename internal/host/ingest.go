package host

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/nerrad567/gray-logic-climate/internal/entity"
)

// DefaultStateTopicPrefix is where upstream state snapshots are read from.
const DefaultStateTopicPrefix = "homeassistant/statestream"

// Subscriber is the subset of the MQTT client the ingest needs.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte) error) error
	Unsubscribe(topic string) error
}

// stateMessage is one upstream state snapshot.
type stateMessage struct {
	EntityID   string         `json:"entity_id"`
	State      any            `json:"state"`
	Attributes map[string]any `json:"attributes"`
}

// Ingest feeds upstream sensor states from MQTT into the store.
//
// Each message is a JSON object {"entity_id", "state", "attributes"} on
// <prefix>/<entity_id> or <prefix>/<domain>/<object_id>. An empty payload
// removes the entity. Writes are queued on the loop so every store change
// happens on the loop goroutine.
type Ingest struct {
	sub    Subscriber
	store  *StateStore
	loop   *Loop
	prefix string
	logger Logger
}

// NewIngest creates an ingest reading from prefix.
func NewIngest(sub Subscriber, store *StateStore, loop *Loop, prefix string, logger Logger) *Ingest {
	if prefix == "" {
		prefix = DefaultStateTopicPrefix
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Ingest{
		sub:    sub,
		store:  store,
		loop:   loop,
		prefix: strings.TrimSuffix(prefix, "/"),
		logger: logger,
	}
}

// Topic returns the wildcard subscription topic.
func (i *Ingest) Topic() string {
	return i.prefix + "/#"
}

// Start subscribes to the state topic.
func (i *Ingest) Start() error {
	if err := i.sub.Subscribe(i.Topic(), 1, i.HandleMessage); err != nil {
		return fmt.Errorf("subscribing to %s: %w", i.Topic(), err)
	}
	i.logger.Info("state ingest started", "topic", i.Topic())
	return nil
}

// Stop unsubscribes from the state topic.
func (i *Ingest) Stop() error {
	return i.sub.Unsubscribe(i.Topic())
}

// HandleMessage decodes one message and queues the store write.
func (i *Ingest) HandleMessage(topic string, payload []byte) error {
	topicID := i.entityIDFromTopic(topic)

	if len(strings.TrimSpace(string(payload))) == 0 {
		if topicID == "" {
			return fmt.Errorf("removal on %s: no entity id in topic", topic)
		}
		i.loop.CreateTask(func(context.Context) {
			i.store.Remove(topicID)
		})
		return nil
	}

	var msg stateMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("decoding state on %s: %w", topic, err)
	}
	id := msg.EntityID
	if id == "" {
		id = topicID
	}
	if domain, obj := entity.SplitID(id); domain == "" || obj == "" {
		return fmt.Errorf("state on %s: invalid entity id %q", topic, id)
	}

	value := renderState(msg.State)
	attrs := msg.Attributes
	i.loop.CreateTask(func(context.Context) {
		i.store.Set(id, value, attrs)
	})
	return nil
}

// entityIDFromTopic maps <prefix>/sensor.x or <prefix>/sensor/x to sensor.x.
func (i *Ingest) entityIDFromTopic(topic string) string {
	tail, ok := strings.CutPrefix(topic, i.prefix+"/")
	if !ok || tail == "" {
		return ""
	}
	parts := strings.Split(tail, "/")
	switch len(parts) {
	case 1:
		return parts[0]
	case 2:
		return parts[0] + "." + parts[1]
	default:
		return ""
	}
}

func renderState(v any) string {
	switch s := v.(type) {
	case nil:
		return entity.StateUnknown
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return fmt.Sprint(s)
	}
}
