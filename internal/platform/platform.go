// Package platform is the host runtime for switch entities. It owns the
// registered entities, polls them on a fixed cadence, routes commands by
// unique id and tells listeners when an entity's state changes.
package platform

import (
	"context"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/xi784/ha-blnet/internal/entity"
	"github.com/xi784/ha-blnet/internal/metrics"
)

// Listener is called with the new snapshot of an entity whose state changed.
type Listener func(Snapshot)

// Platform serializes all access to its entities.
type Platform struct {
	entities  map[string]entity.Entity
	order     []string
	last      map[string]Snapshot
	listeners []Listener
	metrics   *metrics.Metrics
	mutex     sync.Mutex
}

// New creates an empty platform. m may be nil.
func New(m *metrics.Metrics) *Platform {
	return &Platform{
		entities: make(map[string]entity.Entity),
		last:     make(map[string]Snapshot),
		metrics:  m,
	}
}

// Register adds entities to the platform.
func (p *Platform) Register(entities ...entity.Entity) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	for _, e := range entities {
		if _, exists := p.entities[e.UniqueID()]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateEntity, e.UniqueID())
		}
	}

	for _, e := range entities {
		p.entities[e.UniqueID()] = e
		p.order = append(p.order, e.UniqueID())
		p.last[e.UniqueID()] = SnapshotOf(e)
		p.recordState(e)
	}
	slices.Sort(p.order)
	return nil
}

// AddListener registers a function called on every state change.
func (p *Platform) AddListener(l Listener) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.listeners = append(p.listeners, l)
}

// Count returns the number of registered entities.
func (p *Platform) Count() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return len(p.entities)
}

// Entities returns snapshots of all entities ordered by unique id.
func (p *Platform) Entities() []Snapshot {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	snapshots := make([]Snapshot, 0, len(p.order))
	for _, id := range p.order {
		snapshots = append(snapshots, SnapshotOf(p.entities[id]))
	}
	return snapshots
}

// Get returns the snapshot of a single entity.
func (p *Platform) Get(uniqueID string) (Snapshot, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	e, ok := p.entities[uniqueID]
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrUnknownEntity, uniqueID)
	}
	return SnapshotOf(e), nil
}

// PollAll polls every entity and returns how many were refreshed.
func (p *Platform) PollAll() int {
	p.mutex.Lock()
	updated := 0
	var changed []Snapshot
	for _, id := range p.order {
		e := p.entities[id]
		switch e.Poll() {
		case entity.PollUpdated:
			updated++
			p.recordPoll(e)
		case entity.PollMissing:
			p.recordMissing(e)
		}
		if snap, ok := p.changed(e); ok {
			changed = append(changed, snap)
		}
	}
	listeners := slices.Clone(p.listeners)
	p.mutex.Unlock()

	notify(listeners, changed)
	return updated
}

// Command turns an entity on or off. The returned snapshot reflects the
// optimistic state even when the command failed.
func (p *Platform) Command(uniqueID string, on bool) (Snapshot, error) {
	p.mutex.Lock()
	e, ok := p.entities[uniqueID]
	if !ok {
		p.mutex.Unlock()
		return Snapshot{}, fmt.Errorf("%w: %s", ErrUnknownEntity, uniqueID)
	}

	var err error
	if on {
		err = e.Activate()
	} else {
		err = e.Deactivate()
	}
	p.recordCommand(e, on, err)
	if err != nil {
		log.Printf("warning: %v", err)
	}

	snap := SnapshotOf(e)
	var changed []Snapshot
	if s, ok := p.changed(e); ok {
		changed = append(changed, s)
	}
	listeners := slices.Clone(p.listeners)
	p.mutex.Unlock()

	notify(listeners, changed)
	return snap, err
}

// Run polls all entities immediately and then every interval until ctx is
// cancelled.
func (p *Platform) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, interval)
	}

	log.Printf("polling %d entities every %s", p.Count(), interval)
	p.PollAll()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("stopping entity polling")
			return nil
		case <-ticker.C:
			p.PollAll()
		}
	}
}

// changed compares e against the last snapshot seen and stores the new one.
// Callers must hold the mutex.
func (p *Platform) changed(e entity.Entity) (Snapshot, bool) {
	snap := SnapshotOf(e)
	if prev, ok := p.last[e.UniqueID()]; ok && prev.Equal(snap) {
		return snap, false
	}
	p.last[e.UniqueID()] = snap
	p.recordState(e)
	return snap, true
}

func notify(listeners []Listener, changed []Snapshot) {
	for _, snap := range changed {
		for _, l := range listeners {
			l(snap)
		}
	}
}

func (p *Platform) recordPoll(e entity.Entity) {
	if p.metrics != nil {
		p.metrics.RecordPoll(string(e.Kind()))
	}
}

func (p *Platform) recordMissing(e entity.Entity) {
	if p.metrics != nil {
		p.metrics.RecordMissing(string(e.Kind()))
	}
}

func (p *Platform) recordState(e entity.Entity) {
	if p.metrics != nil {
		p.metrics.SetState(e.UniqueID(), stateValue(e.State()))
	}
}

func (p *Platform) recordCommand(e entity.Entity, on bool, err error) {
	if p.metrics != nil {
		p.metrics.RecordCommand(string(e.Kind()), commandName(e.Kind(), on), err)
	}
}

// commandName names a command for metrics.
func commandName(kind entity.Kind, on bool) string {
	switch {
	case kind == entity.KindMode && on:
		return "auto"
	case kind == entity.KindMode:
		return "manual"
	case on:
		return "on"
	default:
		return "off"
	}
}
