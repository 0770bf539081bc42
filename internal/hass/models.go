package hass

// DeviceModel provides information about the device the entity is part of.
//
// UniqueID must be set in the entity for this information to work.
type DeviceModel struct {
	// ConfigurationURL is a link to a web page for configuring the device
	ConfigurationURL string `json:"configuration_url,omitempty"`

	// A list of IDs that uniquely identify the device
	Identifiers []string `json:"identifiers,omitempty"`

	Manufacturer    string `json:"manufacturer,omitempty"`
	Model           string `json:"model,omitempty"`
	Name            string `json:"name,omitempty"`
	SoftwareVersion string `json:"sw_version,omitempty"`
}

// AvailabilityModel tells HASS where to find the online/offline state.
type AvailabilityModel struct {
	PayloadAvailable    string `json:"payload_available,omitempty"`
	PayloadNotAvailable string `json:"payload_not_available,omitempty"`
	Topic               string `json:"topic"`
}

// EntityModel holds the discovery fields common to all components.
type EntityModel struct {
	Availability []AvailabilityModel `json:"availability,omitempty"`

	Device *DeviceModel `json:"device,omitempty"`

	// Icon is one of the MDI icons, eg. "mdi:flash"
	Icon string `json:"icon,omitempty"`

	// JSONAttributesTopic is the topic subscribed to receive a JSON dictionary
	// payload of the entity attributes.
	JSONAttributesTopic string `json:"json_attributes_topic,omitempty"`

	Name string `json:"name,omitempty"`

	// ObjectID overrides the automatic entity id in hass
	ObjectID string `json:"object_id,omitempty"`

	StateTopic string `json:"state_topic,omitempty"`

	UniqueID string `json:"unique_id,omitempty"`
}

// SwitchModel is the discovery payload of a switch component.
type SwitchModel struct {
	EntityModel

	CommandTopic string `json:"command_topic"`

	// Optimistic makes HASS flip the state without waiting for state_topic
	Optimistic *bool `json:"optimistic,omitempty"`

	PayloadOff string `json:"payload_off,omitempty"`
	PayloadOn  string `json:"payload_on,omitempty"`
	StateOn    string `json:"state_on,omitempty"`
	StateOff   string `json:"state_off,omitempty"`
}
