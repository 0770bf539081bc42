package entity

// State is the displayed state of a switch entity.
type State int

const (
	StateUnknown State = iota
	StateOff
	StateOn
)

func (s State) String() string {
	switch s {
	case StateOn:
		return "on"
	case StateOff:
		return "off"
	default:
		return "unknown"
	}
}

// stateFor maps a boolean to StateOn or StateOff.
func stateFor(on bool) State {
	if on {
		return StateOn
	}
	return StateOff
}

// Confidence records where the current State came from. A state set by a
// command stays Assumed until the next poll finds matching data.
type Confidence int

const (
	Assumed Confidence = iota
	Confirmed
)

func (c Confidence) String() string {
	if c == Confirmed {
		return "confirmed"
	}
	return "assumed"
}

// PollResult describes what a call to Poll did.
type PollResult int

const (
	// PollSkipped means the collaborator had not refreshed since the last poll.
	PollSkipped PollResult = iota
	// PollMissing means no record exists for the entity; state was kept.
	PollMissing
	// PollUpdated means state was refreshed from the collaborator.
	PollUpdated
)

func (r PollResult) String() string {
	switch r {
	case PollMissing:
		return "missing"
	case PollUpdated:
		return "updated"
	default:
		return "skipped"
	}
}

// Kind distinguishes the two entity variants.
type Kind string

const (
	KindOutput Kind = "output"
	KindMode   Kind = "mode"
)

// Attribute keys
const (
	AttrMode         = "mode"
	AttrFriendlyName = "friendly_name"
)

// Icons
const (
	IconFlash    = "mdi:flash"
	IconFlashOff = "mdi:flash-off"
	IconCog      = "mdi:cog"
	IconCogOff   = "mdi:cog-off"
)
