package platform

import (
	"maps"

	"github.com/xi784/ha-blnet/internal/entity"
)

// Snapshot is a point-in-time view of an entity.
type Snapshot struct {
	UniqueID     string            `json:"unique_id"`
	Name         string            `json:"name"`
	Kind         entity.Kind       `json:"kind"`
	ChannelID    string            `json:"channel_id"`
	State        string            `json:"state"`
	IsOn         bool              `json:"is_on"`
	Icon         string            `json:"icon,omitempty"`
	AssumedState bool              `json:"assumed_state"`
	Attributes   map[string]string `json:"attributes"`
}

// SnapshotOf captures the observable state of e.
func SnapshotOf(e entity.Entity) Snapshot {
	return Snapshot{
		UniqueID:     e.UniqueID(),
		Name:         e.Name(),
		Kind:         e.Kind(),
		ChannelID:    e.ChannelID(),
		State:        e.State().String(),
		IsOn:         e.IsOn(),
		Icon:         e.Icon(),
		AssumedState: e.AssumedState(),
		Attributes:   e.Attributes(),
	}
}

// Equal reports whether two snapshots show the same state.
func (s Snapshot) Equal(o Snapshot) bool {
	return s.UniqueID == o.UniqueID &&
		s.Name == o.Name &&
		s.Kind == o.Kind &&
		s.ChannelID == o.ChannelID &&
		s.State == o.State &&
		s.IsOn == o.IsOn &&
		s.Icon == o.Icon &&
		s.AssumedState == o.AssumedState &&
		maps.Equal(s.Attributes, o.Attributes)
}

// stateValue maps a state to the value exported as a metric.
func stateValue(state entity.State) float64 {
	switch state {
	case entity.StateOn:
		return 1
	case entity.StateOff:
		return 0
	default:
		return -1
	}
}
