package entity

import (
	"fmt"

	"github.com/xi784/ha-blnet/internal/blnet"
)

// ModeSwitch reflects and controls whether a digital output runs in
// automatic mode. On means automatic, off means manual.
type ModeSwitch struct {
	base
	rawActivation string
}

var _ Entity = (*ModeSwitch)(nil)

// NewModeSwitch creates the mode switch for output channelID of the device
// labelled label.
func NewModeSwitch(channelID, label string, comm blnet.Communication) *ModeSwitch {
	return &ModeSwitch{
		base:          newBase(channelID, label, ModeUniqueID(channelID, label), automated(label), IconCog, IconCogOff, comm),
		rawActivation: StateUnknown.String(),
	}
}

// ModeUniqueID returns the unique id of the mode switch for a channel.
func ModeUniqueID(channelID, label string) string {
	return fmt.Sprintf("%s_%s_mode", channelID, label)
}

func automated(name string) string {
	return fmt.Sprintf("%s automated", name)
}

// Kind returns KindMode.
func (s *ModeSwitch) Kind() Kind {
	return KindMode
}

// RawActivation returns the raw on/off value of the underlying output as of
// the last successful poll.
func (s *ModeSwitch) RawActivation() string {
	return s.rawActivation
}

// Attributes returns the friendly name of the mode switch.
func (s *ModeSwitch) Attributes() map[string]string {
	return map[string]string{
		AttrFriendlyName: s.friendlyName,
	}
}

// Poll refreshes the mode switch from the collaborator's cached data.
func (s *ModeSwitch) Poll() PollResult {
	rec, marker, result := s.fetch("mode switch")
	if result != PollUpdated {
		return result
	}

	s.friendlyName = automated(rec.FriendlyName)
	s.setState(stateFor(!rec.IsManual()))
	s.rawActivation = rec.Value
	s.confirm(marker)
	return PollUpdated
}

// Activate puts the output in automatic mode.
func (s *ModeSwitch) Activate() error {
	logInfo("setting mode to automatic for switch %s", s.label)
	return s.assume(StateOn, s.comm.TurnAuto(s.channelID))
}

// Deactivate puts the output in manual mode. The device has no command for
// manual mode on its own; any on or off command implies it. The command
// matching the last known activation is sent so the output keeps its value.
func (s *ModeSwitch) Deactivate() error {
	logInfo("setting mode to manual for switch %s", s.label)

	var err error
	if s.rawActivation == blnet.OnValue {
		err = s.comm.TurnOn(s.channelID)
	} else {
		err = s.comm.TurnOff(s.channelID)
	}
	return s.assume(StateOff, err)
}
