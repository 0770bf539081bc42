package platform

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xi784/ha-blnet/internal/blnet"
	"github.com/xi784/ha-blnet/internal/entity"
	"github.com/xi784/ha-blnet/internal/metrics"
)

func newTestPlatform(t *testing.T) (*Platform, *blnet.Cache) {
	t.Helper()

	cache := blnet.NewCache()
	cache.Bind("3", "Pump")
	cache.Bind("4", "Valve")

	entities, err := entity.Setup([]entity.Discovery{
		{ChannelID: "3", DeviceLabel: "Pump"},
		{ChannelID: "4", DeviceLabel: "Valve"},
	}, cache)
	require.NoError(t, err)

	p := New(metrics.New())
	require.NoError(t, p.Register(entities...))
	return p, cache
}

type recorder struct {
	mutex     sync.Mutex
	snapshots []Snapshot
}

func (r *recorder) listen(s Snapshot) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.snapshots = append(r.snapshots, s)
}

func (r *recorder) ids() []string {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	ids := make([]string, len(r.snapshots))
	for i, s := range r.snapshots {
		ids[i] = s.UniqueID
	}
	return ids
}

func TestPlatform_Register(t *testing.T) {
	p, cache := newTestPlatform(t)

	assert.Equal(t, 4, p.Count())

	snaps := p.Entities()
	require.Len(t, snaps, 4)
	assert.Equal(t, "3_Pump", snaps[0].UniqueID)
	assert.Equal(t, "3_Pump_mode", snaps[1].UniqueID)
	assert.Equal(t, "unknown", snaps[0].State)
	assert.True(t, snaps[0].AssumedState)

	err := p.Register(entity.NewOutputSwitch("3", "Pump", cache))
	assert.ErrorIs(t, err, ErrDuplicateEntity)
	assert.Equal(t, 4, p.Count())
}

func TestPlatform_Get(t *testing.T) {
	p, _ := newTestPlatform(t)

	snap, err := p.Get("4_Valve_mode")
	require.NoError(t, err)
	assert.Equal(t, "Valve automated", snap.Name)
	assert.Equal(t, entity.KindMode, snap.Kind)
	assert.Equal(t, "4", snap.ChannelID)

	_, err = p.Get("nope")
	assert.ErrorIs(t, err, ErrUnknownEntity)
}

func TestPlatform_PollAll(t *testing.T) {
	p, cache := newTestPlatform(t)
	rec := &recorder{}
	p.AddListener(rec.listen)

	cache.Store("Pump", blnet.Record{Value: blnet.OnValue, FriendlyName: "Pump 1", Mode: blnet.AutoMode})

	// Valve has no data: its entities keep their state and are not reported.
	assert.Equal(t, 2, p.PollAll())
	assert.Equal(t, []string{"3_Pump", "3_Pump_mode"}, rec.ids())

	snap, err := p.Get("3_Pump")
	require.NoError(t, err)
	assert.Equal(t, "on", snap.State)
	assert.True(t, snap.IsOn)
	assert.False(t, snap.AssumedState)
	assert.Equal(t, entity.IconFlash, snap.Icon)
	assert.Equal(t, map[string]string{"mode": "AUTO", "friendly_name": "Pump 1"}, snap.Attributes)

	// No refresh: nothing changes and listeners are not called again.
	assert.Equal(t, 0, p.PollAll())
	assert.Len(t, rec.ids(), 2)
}

func TestPlatform_Command(t *testing.T) {
	p, cache := newTestPlatform(t)
	cache.Store("Pump", blnet.Record{Value: blnet.OffValue, FriendlyName: "Pump 1", Mode: blnet.AutoMode})
	p.PollAll()

	rec := &recorder{}
	p.AddListener(rec.listen)

	snap, err := p.Command("3_Pump", true)
	require.NoError(t, err)
	assert.Equal(t, "on", snap.State)
	assert.True(t, snap.AssumedState)
	assert.Equal(t, []string{"3_Pump"}, rec.ids())

	stored, _ := cache.Lookup("Pump")
	assert.Equal(t, blnet.OnValue, stored.Value)
	assert.Equal(t, blnet.ManualMode, stored.Mode)

	// The next poll confirms the command and updates the mode switch.
	p.PollAll()
	snap, _ = p.Get("3_Pump")
	assert.False(t, snap.AssumedState)
	mode, _ := p.Get("3_Pump_mode")
	assert.Equal(t, "off", mode.State)

	_, err = p.Command("missing", true)
	assert.ErrorIs(t, err, ErrUnknownEntity)
}

func TestPlatform_CommandFailure(t *testing.T) {
	cache := blnet.NewCache()
	// Channel 5 is not bound, so commands fail in the cache.
	p := New(nil)
	require.NoError(t, p.Register(entity.NewOutputSwitch("5", "Heater", cache)))

	snap, err := p.Command("5_Heater", false)
	assert.ErrorIs(t, err, entity.ErrCommandFailed)
	assert.ErrorIs(t, err, blnet.ErrUnknownChannel)
	assert.Equal(t, "off", snap.State)
	assert.True(t, snap.AssumedState)
}

func TestPlatform_Run(t *testing.T) {
	p, cache := newTestPlatform(t)
	cache.Store("Pump", blnet.Record{Value: blnet.OnValue, FriendlyName: "Pump 1", Mode: blnet.ManualMode})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- p.Run(ctx, 10*time.Millisecond)
	}()

	assert.Eventually(t, func() bool {
		snap, err := p.Get("3_Pump")
		return err == nil && snap.State == "on"
	}, time.Second, 5*time.Millisecond)

	cache.Store("Pump", blnet.Record{Value: blnet.OffValue, FriendlyName: "Pump 1", Mode: blnet.ManualMode})
	assert.Eventually(t, func() bool {
		snap, err := p.Get("3_Pump")
		return err == nil && snap.State == "off"
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestPlatform_RunInvalidInterval(t *testing.T) {
	p := New(nil)
	err := p.Run(context.Background(), 0)
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestCommandName(t *testing.T) {
	assert.Equal(t, "on", commandName(entity.KindOutput, true))
	assert.Equal(t, "off", commandName(entity.KindOutput, false))
	assert.Equal(t, "auto", commandName(entity.KindMode, true))
	assert.Equal(t, "manual", commandName(entity.KindMode, false))
}
