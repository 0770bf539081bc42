package entity

import (
	"fmt"

	"github.com/xi784/ha-blnet/internal/blnet"
)

// OutputSwitch reflects and controls the on/off state of a digital output.
type OutputSwitch struct {
	base
	mode string
}

var _ Entity = (*OutputSwitch)(nil)

// NewOutputSwitch creates the switch for output channelID of the device
// labelled label.
func NewOutputSwitch(channelID, label string, comm blnet.Communication) *OutputSwitch {
	return &OutputSwitch{
		base: newBase(channelID, label, OutputUniqueID(channelID, label), label, IconFlash, IconFlashOff, comm),
		mode: StateUnknown.String(),
	}
}

// OutputUniqueID returns the unique id of the output switch for a channel.
func OutputUniqueID(channelID, label string) string {
	return fmt.Sprintf("%s_%s", channelID, label)
}

// Kind returns KindOutput.
func (s *OutputSwitch) Kind() Kind {
	return KindOutput
}

// Mode returns the raw mode string mirrored from the cached record.
func (s *OutputSwitch) Mode() string {
	return s.mode
}

// Attributes returns the mode and friendly name of the output.
func (s *OutputSwitch) Attributes() map[string]string {
	return map[string]string{
		AttrMode:         s.mode,
		AttrFriendlyName: s.friendlyName,
	}
}

// Poll refreshes the switch from the collaborator's cached data.
func (s *OutputSwitch) Poll() PollResult {
	rec, marker, result := s.fetch("switch")
	if result != PollUpdated {
		return result
	}

	s.friendlyName = rec.FriendlyName
	s.setState(stateFor(rec.IsOn()))
	s.mode = rec.Mode
	s.confirm(marker)
	return PollUpdated
}

// Activate turns the output on.
func (s *OutputSwitch) Activate() error {
	logInfo("turning on switch %s", s.label)
	return s.assume(StateOn, s.comm.TurnOn(s.channelID))
}

// Deactivate turns the output off.
func (s *OutputSwitch) Deactivate() error {
	logInfo("turning off switch %s", s.label)
	return s.assume(StateOff, s.comm.TurnOff(s.channelID))
}
