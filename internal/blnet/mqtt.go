package blnet

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
)

// Command payloads understood by the BL-NET poller.
const (
	CommandOn   = "on"
	CommandOff  = "off"
	CommandAuto = "auto"
)

// Broker is the subset of an MQTT client used by MQTTCommunication.
type Broker interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) error
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error
	IsConnected() bool
}

// stateMessage is the JSON document published by the BL-NET poller for
// each digital output.
type stateMessage struct {
	ID string `json:"id"`
	Record
	Name string `json:"name"`
}

// MQTTCommunication is a Communication fed by an external BL-NET poller
// over MQTT. Records arrive on <prefix>/output/<id>/state and commands are
// published to <prefix>/output/<id>/set.
type MQTTCommunication struct {
	*Cache
	broker Broker
	prefix string
}

// NewMQTTCommunication creates a Communication backed by broker.
func NewMQTTCommunication(broker Broker, prefix string) *MQTTCommunication {
	return &MQTTCommunication{
		Cache:  NewCache(),
		broker: broker,
		prefix: strings.TrimSuffix(prefix, "/"),
	}
}

// StateTopic returns the wildcard topic records are received on.
func (m *MQTTCommunication) StateTopic() string {
	return fmt.Sprintf("%s/output/+/state", m.prefix)
}

// CommandTopic returns the topic commands for channelID are published to.
func (m *MQTTCommunication) CommandTopic(channelID string) string {
	return fmt.Sprintf("%s/output/%s/set", m.prefix, channelID)
}

// Subscribe starts receiving records. It should be called again after
// every reconnect.
func (m *MQTTCommunication) Subscribe() error {
	return m.broker.Subscribe(m.StateTopic(), 1, func(topic string, payload []byte) {
		if err := m.HandleState(topic, payload); err != nil {
			log.Printf("warning: ignoring BL-NET state message on %s: %v", topic, err)
		}
	})
}

// HandleState decodes one state message and stores it in the cache.
func (m *MQTTCommunication) HandleState(topic string, payload []byte) error {
	channelID, err := m.channelFromTopic(topic)
	if err != nil {
		return err
	}

	var msg stateMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	if msg.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidRecord)
	}
	if msg.ID != "" && msg.ID != channelID {
		return fmt.Errorf("%w: id %q does not match topic %q", ErrInvalidRecord, msg.ID, topic)
	}

	m.Bind(channelID, msg.Name)
	m.Store(msg.Name, msg.Record)
	return nil
}

// TurnOn publishes an "on" command for channelID.
func (m *MQTTCommunication) TurnOn(channelID string) error {
	return m.send(channelID, CommandOn)
}

// TurnOff publishes an "off" command for channelID.
func (m *MQTTCommunication) TurnOff(channelID string) error {
	return m.send(channelID, CommandOff)
}

// TurnAuto publishes an "auto" command for channelID.
func (m *MQTTCommunication) TurnAuto(channelID string) error {
	return m.send(channelID, CommandAuto)
}

// String returns a string representation of the communication
func (m *MQTTCommunication) String() string {
	return fmt.Sprintf("mqtt communication on %s (%s)", m.prefix, m.Cache)
}

func (m *MQTTCommunication) send(channelID, command string) error {
	if !m.broker.IsConnected() {
		return fmt.Errorf("%w: cannot send %s to channel %s", ErrNotConnected, command, channelID)
	}

	topic := m.CommandTopic(channelID)
	log.Printf("publishing %s command to %s", command, topic)
	if err := m.broker.Publish(topic, 1, false, command); err != nil {
		return fmt.Errorf("%w to %s: %w", ErrPublishFailed, topic, err)
	}
	return nil
}

func (m *MQTTCommunication) channelFromTopic(topic string) (string, error) {
	rest, ok := strings.CutPrefix(topic, m.prefix+"/output/")
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrInvalidTopic, topic)
	}
	channelID, ok := strings.CutSuffix(rest, "/state")
	if !ok || channelID == "" || strings.Contains(channelID, "/") {
		return "", fmt.Errorf("%w: %s", ErrInvalidTopic, topic)
	}
	return channelID, nil
}
