package mqtt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nerrad567/gray-logic-climate/internal/entity"
)

// Publisher is the subset of *Client the state publisher needs.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// StatePublisher mirrors derived sensor states onto MQTT. Each state goes
// out as two retained messages: the bare value on SensorState and the
// attributes as JSON on SensorAttributes.
type StatePublisher struct {
	pub    Publisher
	qos    byte
	topics Topics
}

// NewStatePublisher creates a publisher sending with qos.
func NewStatePublisher(pub Publisher, qos byte) *StatePublisher {
	return &StatePublisher{pub: pub, qos: qos}
}

// PublishState publishes st. It stops at the first failed message.
func (s *StatePublisher) PublishState(ctx context.Context, st *entity.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if st == nil || st.EntityID == "" {
		return ErrInvalidTopic
	}

	if err := s.pub.Publish(s.topics.SensorState(st.EntityID), []byte(st.Value), s.qos, true); err != nil {
		return fmt.Errorf("publishing state of %s: %w", st.EntityID, err)
	}

	attrs := st.Attributes
	if attrs == nil {
		attrs = map[string]any{}
	}
	b, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("encoding attributes of %s: %w", st.EntityID, err)
	}
	if err := s.pub.Publish(s.topics.SensorAttributes(st.EntityID), b, s.qos, true); err != nil {
		return fmt.Errorf("publishing attributes of %s: %w", st.EntityID, err)
	}
	return nil
}
