package blnet

import "time"

// Device sentinels as reported by the BL-NET web interface.
const (
	OnValue    = "EIN"
	OffValue   = "AUS"
	ManualMode = "HAND"
	AutoMode   = "AUTO"
)

// Record is the cached data for one digital output.
type Record struct {
	Value        string `json:"value" mapstructure:"value"`
	FriendlyName string `json:"friendly_name" mapstructure:"friendly_name"`
	Mode         string `json:"mode" mapstructure:"mode"`
}

// IsOn reports whether the raw value is the device's "on" sentinel.
func (r Record) IsOn() bool {
	return r.Value == OnValue
}

// IsManual reports whether the output is in manual mode.
func (r Record) IsManual() bool {
	return r.Mode == ManualMode
}

type (
	// DataSource is the read side of the collaborator. LastUpdated changes
	// whenever the cached data has been refreshed.
	DataSource interface {
		LastUpdated() time.Time
		Lookup(label string) (Record, bool)
	}

	// Commander dispatches commands for a digital output.
	Commander interface {
		TurnOn(channelID string) error
		TurnOff(channelID string) error
		TurnAuto(channelID string) error
	}

	// Communication is the shared handle to a BL-NET adapter.
	Communication interface {
		DataSource
		Commander
	}
)
