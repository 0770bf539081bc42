package blnet

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// Cache is an in-memory Communication. Data is fed with Store or Replace,
// and commands for bound channels are applied directly to the cached
// records, which makes it usable as a dry-run driver. A bound channel
// without a record gets one on its first command, named after its label.
type Cache struct {
	records     map[string]Record
	channels    map[string]string
	lastUpdated time.Time
	now         func() time.Time
	mutex       sync.RWMutex
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		records:  make(map[string]Record),
		channels: make(map[string]string),
		now:      time.Now,
	}
}

// Bind associates a channel id with the label its records are stored under.
func (c *Cache) Bind(channelID, label string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.channels[channelID] = label
}

// Store sets the record for a single label and marks the cache as refreshed.
func (c *Cache) Store(label string, rec Record) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.records[label] = rec
	c.touch()
}

// Replace swaps the whole dataset and marks the cache as refreshed.
func (c *Cache) Replace(records map[string]Record) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.records = make(map[string]Record, len(records))
	for label, rec := range records {
		c.records[label] = rec
	}
	c.touch()
}

// Remove drops the record for a label and marks the cache as refreshed.
func (c *Cache) Remove(label string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.records, label)
	c.touch()
}

// LastUpdated returns the time of the most recent refresh.
func (c *Cache) LastUpdated() time.Time {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.lastUpdated
}

// Lookup returns the cached record for label.
func (c *Cache) Lookup(label string) (Record, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	rec, ok := c.records[label]
	return rec, ok
}

// Labels returns the labels currently present in the cache.
func (c *Cache) Labels() []string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	labels := make([]string, 0, len(c.records))
	for label := range c.records {
		labels = append(labels, label)
	}
	return labels
}

// TurnOn switches the output on. The device puts the output in manual mode.
func (c *Cache) TurnOn(channelID string) error {
	log.Printf("cache: turning on channel %s", channelID)
	return c.apply(channelID, func(rec *Record) {
		rec.Value = OnValue
		rec.Mode = ManualMode
	})
}

// TurnOff switches the output off. The device puts the output in manual mode.
func (c *Cache) TurnOff(channelID string) error {
	log.Printf("cache: turning off channel %s", channelID)
	return c.apply(channelID, func(rec *Record) {
		rec.Value = OffValue
		rec.Mode = ManualMode
	})
}

// TurnAuto hands control of the output back to the controller program.
func (c *Cache) TurnAuto(channelID string) error {
	log.Printf("cache: setting channel %s to automatic", channelID)
	return c.apply(channelID, func(rec *Record) {
		rec.Mode = AutoMode
	})
}

// String returns a string representation of the cache
func (c *Cache) String() string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return fmt.Sprintf("cache with %d records", len(c.records))
}

func (c *Cache) apply(channelID string, fn func(*Record)) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	label, ok := c.channels[channelID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChannel, channelID)
	}

	rec, ok := c.records[label]
	if !ok {
		// First command before any data arrived
		rec = Record{FriendlyName: label}
	}
	fn(&rec)
	c.records[label] = rec
	c.touch()
	return nil
}

// touch advances lastUpdated. The marker must change on every refresh even
// when the clock has not moved.
func (c *Cache) touch() {
	now := c.now()
	if !now.After(c.lastUpdated) {
		now = c.lastUpdated.Add(time.Nanosecond)
	}
	c.lastUpdated = now
}
