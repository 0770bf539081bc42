package entity

import (
	"fmt"
	"log"

	"github.com/xi784/ha-blnet/internal/blnet"
)

// Discovery identifies one digital output of a BL-NET adapter.
type Discovery struct {
	ChannelID   string `mapstructure:"id"`
	DeviceLabel string `mapstructure:"name"`
}

// Setup creates an OutputSwitch and a ModeSwitch for every discovered
// output. Nothing is returned unless every entry is valid.
func Setup(discovery []Discovery, comm blnet.Communication) ([]Entity, error) {
	if len(discovery) == 0 {
		log.Printf("error: %v", ErrNoDiscovery)
		return nil, ErrNoDiscovery
	}
	if comm == nil {
		log.Printf("error: %v", ErrNoCommunication)
		return nil, ErrNoCommunication
	}

	seen := make(map[string]struct{}, len(discovery)*2)
	entities := make([]Entity, 0, len(discovery)*2)
	for i, d := range discovery {
		if d.ChannelID == "" || d.DeviceLabel == "" {
			return nil, fmt.Errorf("%w at index %d: id and name are required", ErrInvalidDiscovery, i)
		}

		for _, e := range []Entity{
			NewOutputSwitch(d.ChannelID, d.DeviceLabel, comm),
			NewModeSwitch(d.ChannelID, d.DeviceLabel, comm),
		} {
			if _, exists := seen[e.UniqueID()]; exists {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateEntity, e.UniqueID())
			}
			seen[e.UniqueID()] = struct{}{}
			entities = append(entities, e)
		}
	}

	log.Printf("set up %d entities for %d BL-NET outputs", len(entities), len(discovery))
	return entities, nil
}
