// Package entity exposes the digital outputs of a BL-NET adapter as switch
// entities. Each output is represented twice: an OutputSwitch that toggles
// the output itself and a ModeSwitch that toggles automatic mode.
//
// Entities read the collaborator's cached data on Poll and forward commands
// on Activate and Deactivate. They do no locking; the host is expected to
// serialize calls on a single entity.
package entity

import (
	"fmt"
	"time"

	"github.com/xi784/ha-blnet/internal/blnet"
)

// Entity is the capability set a host platform drives.
type Entity interface {
	UniqueID() string
	Name() string
	Kind() Kind
	ChannelID() string
	DeviceLabel() string

	State() State
	Icon() string
	IsOn() bool
	Confidence() Confidence
	AssumedState() bool
	Attributes() map[string]string

	Poll() PollResult
	Activate() error
	Deactivate() error
}

// base holds the fields shared by both switch variants.
type base struct {
	channelID    string
	label        string
	uniqueID     string
	name         string
	comm         blnet.Communication
	state        State
	confidence   Confidence
	friendlyName string
	icon         string
	iconOn       string
	iconOff      string
	lastSeen     time.Time
}

func newBase(channelID, label, uniqueID, name, iconOn, iconOff string, comm blnet.Communication) base {
	return base{
		channelID:    channelID,
		label:        label,
		uniqueID:     uniqueID,
		name:         name,
		comm:         comm,
		state:        StateUnknown,
		confidence:   Assumed,
		friendlyName: label,
		iconOn:       iconOn,
		iconOff:      iconOff,
	}
}

func (b *base) UniqueID() string {
	return b.uniqueID
}

func (b *base) Name() string {
	return b.name
}

func (b *base) ChannelID() string {
	return b.channelID
}

func (b *base) DeviceLabel() string {
	return b.label
}

func (b *base) State() State {
	return b.state
}

func (b *base) Icon() string {
	return b.icon
}

// IsOn reports whether the displayed state is on.
func (b *base) IsOn() bool {
	return b.state == StateOn
}

func (b *base) Confidence() Confidence {
	return b.confidence
}

// AssumedState is true while the state has not been confirmed by a poll.
func (b *base) AssumedState() bool {
	return b.confidence == Assumed
}

// FriendlyName returns the label derived from the cached data.
func (b *base) FriendlyName() string {
	return b.friendlyName
}

func (b *base) String() string {
	return fmt.Sprintf("%s(%s)", b.uniqueID, b.state)
}

// fetch returns the record for this entity if the collaborator has refreshed
// since the last successful poll. The returned marker must be passed to
// confirm once the record has been applied.
func (b *base) fetch(kind string) (blnet.Record, time.Time, PollResult) {
	marker := b.comm.LastUpdated()
	if marker.Equal(b.lastSeen) {
		return blnet.Record{}, marker, PollSkipped
	}

	rec, ok := b.comm.Lookup(b.label)
	if !ok {
		logWarning("no data received for %s %s", kind, b.label)
		return blnet.Record{}, marker, PollMissing
	}

	return rec, marker, PollUpdated
}

// setState updates the state and the icon derived from it.
func (b *base) setState(state State) {
	b.state = state
	switch state {
	case StateOn:
		b.icon = b.iconOn
	case StateOff:
		b.icon = b.iconOff
	default:
		b.icon = ""
	}
}

func (b *base) confirm(marker time.Time) {
	b.lastSeen = marker
	b.confidence = Confirmed
}

// assume records an optimistic state after a command was dispatched. The
// state is applied even if dispatch failed.
func (b *base) assume(state State, err error) error {
	b.setState(state)
	b.confidence = Assumed
	if err != nil {
		return fmt.Errorf("%w for %s: %w", ErrCommandFailed, b.uniqueID, err)
	}
	return nil
}
