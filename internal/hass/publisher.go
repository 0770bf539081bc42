// Package hass exposes platform entities to Home Assistant through MQTT
// discovery.
package hass

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/xi784/ha-blnet/internal/platform"
)

// MQTT payloads
const (
	PayloadOn      = "ON"
	PayloadOff     = "OFF"
	PayloadUnknown = "None"
	PayloadOnline  = "online"
	PayloadOffline = "offline"
)

// Broker is the subset of an MQTT client used by the publisher.
type Broker interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) error
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error
}

// Host is the platform the publisher reads entities from and routes
// commands to.
type Host interface {
	Entities() []platform.Snapshot
	Command(uniqueID string, on bool) (platform.Snapshot, error)
}

// Config controls topic layout and the advertised device.
type Config struct {
	DiscoveryPrefix  string
	NodeID           string
	BaseTopic        string
	DeviceName       string
	ConfigurationURL string
	SoftwareVersion  string
}

// Publisher announces entities, publishes their state and routes commands.
type Publisher struct {
	broker Broker
	host   Host
	cfg    Config

	// topic id to unique id
	ids   map[string]string
	mutex sync.RWMutex
}

// NewPublisher creates a Publisher.
func NewPublisher(broker Broker, host Host, cfg Config) *Publisher {
	if cfg.DiscoveryPrefix == "" {
		cfg.DiscoveryPrefix = "homeassistant"
	}
	if cfg.NodeID == "" {
		cfg.NodeID = "blnet"
	}
	if cfg.BaseTopic == "" {
		cfg.BaseTopic = cfg.NodeID
	}
	if cfg.DeviceName == "" {
		cfg.DeviceName = "BL-NET"
	}

	return &Publisher{
		broker: broker,
		host:   host,
		cfg:    cfg,
		ids:    make(map[string]string),
	}
}

// TopicID turns a unique id into a string safe to use as a topic level.
func TopicID(uniqueID string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '/', '+', '#':
			return '_'
		}
		return r
	}, uniqueID)
}

// AvailabilityTopic is where online/offline is published.
func (p *Publisher) AvailabilityTopic() string {
	return fmt.Sprintf("%s/availability", p.cfg.BaseTopic)
}

// ConfigTopic returns the discovery topic for an entity.
func (p *Publisher) ConfigTopic(uniqueID string) string {
	return fmt.Sprintf("%s/switch/%s/%s/config", p.cfg.DiscoveryPrefix, p.cfg.NodeID, TopicID(uniqueID))
}

func (p *Publisher) entityTopic(uniqueID, leaf string) string {
	return fmt.Sprintf("%s/%s/%s", p.cfg.BaseTopic, TopicID(uniqueID), leaf)
}

// StateTopic returns the topic the entity state is published on.
func (p *Publisher) StateTopic(uniqueID string) string {
	return p.entityTopic(uniqueID, "state")
}

// AttributesTopic returns the topic the entity attributes are published on.
func (p *Publisher) AttributesTopic(uniqueID string) string {
	return p.entityTopic(uniqueID, "attributes")
}

// CommandTopic returns the topic HASS sends commands to.
func (p *Publisher) CommandTopic(uniqueID string) string {
	return p.entityTopic(uniqueID, "set")
}

// DiscoveryConfig builds the discovery payload for an entity. The icon
// follows the state, so it is published with the attributes instead.
func (p *Publisher) DiscoveryConfig(snap platform.Snapshot) SwitchModel {
	optimistic := false
	return SwitchModel{
		EntityModel: EntityModel{
			Availability: []AvailabilityModel{{
				PayloadAvailable:    PayloadOnline,
				PayloadNotAvailable: PayloadOffline,
				Topic:               p.AvailabilityTopic(),
			}},
			Device: &DeviceModel{
				ConfigurationURL: p.cfg.ConfigurationURL,
				Identifiers:      []string{p.cfg.NodeID},
				Manufacturer:     "Technische Alternative",
				Model:            "BL-NET",
				Name:             p.cfg.DeviceName,
				SoftwareVersion:  p.cfg.SoftwareVersion,
			},
			JSONAttributesTopic: p.AttributesTopic(snap.UniqueID),
			Name:                snap.Name,
			ObjectID:            fmt.Sprintf("%s_%s", p.cfg.NodeID, TopicID(snap.UniqueID)),
			StateTopic:          p.StateTopic(snap.UniqueID),
			UniqueID:            fmt.Sprintf("%s_%s", p.cfg.NodeID, snap.UniqueID),
		},
		CommandTopic: p.CommandTopic(snap.UniqueID),
		Optimistic:   &optimistic,
		PayloadOn:    PayloadOn,
		PayloadOff:   PayloadOff,
		StateOn:      PayloadOn,
		StateOff:     PayloadOff,
	}
}

// Announce publishes discovery configuration and current state for every
// entity of the host, then marks the node online.
func (p *Publisher) Announce() error {
	snaps := p.host.Entities()

	p.mutex.Lock()
	for _, snap := range snaps {
		topicID := TopicID(snap.UniqueID)
		if existing, ok := p.ids[topicID]; ok && existing != snap.UniqueID {
			log.Printf("warning: entities %s and %s share command topic %s", existing, snap.UniqueID, p.CommandTopic(snap.UniqueID))
		}
		p.ids[topicID] = snap.UniqueID
	}
	p.mutex.Unlock()

	for _, snap := range snaps {
		data, err := json.Marshal(p.DiscoveryConfig(snap))
		if err != nil {
			return fmt.Errorf("%w %s: %w", ErrAnnounceFailed, snap.UniqueID, err)
		}
		if err := p.broker.Publish(p.ConfigTopic(snap.UniqueID), 1, true, data); err != nil {
			return fmt.Errorf("%w %s: %w", ErrAnnounceFailed, snap.UniqueID, err)
		}
		if err := p.PublishState(snap); err != nil {
			return err
		}
	}

	log.Printf("announced %d entities to Home Assistant", len(snaps))
	return p.broker.Publish(p.AvailabilityTopic(), 1, true, PayloadOnline)
}

// PublishState publishes the state and attributes of an entity.
func (p *Publisher) PublishState(snap platform.Snapshot) error {
	if err := p.broker.Publish(p.StateTopic(snap.UniqueID), 1, true, statePayload(snap)); err != nil {
		return fmt.Errorf("failed to publish state of %s: %w", snap.UniqueID, err)
	}

	attrs := make(map[string]interface{}, len(snap.Attributes)+2)
	for k, v := range snap.Attributes {
		attrs[k] = v
	}
	attrs["assumed_state"] = snap.AssumedState
	attrs["icon"] = snap.Icon

	data, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("failed to marshal attributes of %s: %w", snap.UniqueID, err)
	}
	if err := p.broker.Publish(p.AttributesTopic(snap.UniqueID), 1, true, data); err != nil {
		return fmt.Errorf("failed to publish attributes of %s: %w", snap.UniqueID, err)
	}
	return nil
}

// OnStateChange is a platform.Listener that publishes state changes.
func (p *Publisher) OnStateChange(snap platform.Snapshot) {
	if err := p.PublishState(snap); err != nil {
		log.Printf("warning: %v", err)
	}
}

// Subscribe listens for commands and for Home Assistant restarts. It
// should be called again after every reconnect.
func (p *Publisher) Subscribe() error {
	if err := p.broker.Subscribe(fmt.Sprintf("%s/+/set", p.cfg.BaseTopic), 1, func(topic string, payload []byte) {
		if err := p.HandleCommand(topic, payload); err != nil {
			log.Printf("warning: %v", err)
		}
	}); err != nil {
		return err
	}

	return p.broker.Subscribe(fmt.Sprintf("%s/status", p.cfg.DiscoveryPrefix), 1, func(topic string, payload []byte) {
		if string(payload) != PayloadOnline {
			return
		}
		log.Printf("Home Assistant is online, re-announcing entities")
		if err := p.Announce(); err != nil {
			log.Printf("warning: %v", err)
		}
	})
}

// HandleCommand routes a command-topic message to the host.
func (p *Publisher) HandleCommand(topic string, payload []byte) error {
	rest, ok := strings.CutPrefix(topic, p.cfg.BaseTopic+"/")
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}
	topicID, ok := strings.CutSuffix(rest, "/set")
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}

	p.mutex.RLock()
	uniqueID, ok := p.ids[topicID]
	p.mutex.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}

	var on bool
	switch strings.ToUpper(strings.TrimSpace(string(payload))) {
	case PayloadOn:
		on = true
	case PayloadOff:
		on = false
	default:
		return fmt.Errorf("%w %q for %s", ErrInvalidPayload, payload, uniqueID)
	}

	// State changes reach HASS through the platform listener.
	_, err := p.host.Command(uniqueID, on)
	return err
}

// Offline marks the node unavailable.
func (p *Publisher) Offline() error {
	return p.broker.Publish(p.AvailabilityTopic(), 1, true, PayloadOffline)
}

func statePayload(snap platform.Snapshot) string {
	switch snap.State {
	case "on":
		return PayloadOn
	case "off":
		return PayloadOff
	default:
		return PayloadUnknown
	}
}
