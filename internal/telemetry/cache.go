// Package telemetry holds the latest autopilot telemetry as one consistent snapshot.
package telemetry

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/diebengay/grvc-utils/internal/types"
)

// Snapshot is a moment-in-time view of every telemetry stream. A zero stamp means the
// stream has not delivered anything yet.
type Snapshot struct {
	Pose      types.Pose
	PoseStamp time.Time

	Fix      types.GlobalFix
	FixStamp time.Time

	Velocity      types.Velocity
	VelocityStamp time.Time

	BodyVelocity      types.Velocity
	BodyVelocityStamp time.Time

	Status      types.VehicleStatus
	StatusStamp time.Time

	Extended      types.ExtendedState
	ExtendedStamp time.Time

	Reached      types.WaypointReached
	ReachedStamp time.Time

	Mission      types.MissionEcho
	MissionStamp time.Time
}

func (s *Snapshot) HasPose() bool   { return !s.PoseStamp.IsZero() }
func (s *Snapshot) HasStatus() bool { return !s.StatusStamp.IsZero() }

// HasFix reports whether a usable geographic fix has ever been received.
func (s *Snapshot) HasFix() bool {
	return !s.FixStamp.IsZero() && s.Fix.Status >= 0
}

// Cache is written by the ingestion path only and read by everybody else. Every
// update publishes a fresh Snapshot, so readers never observe a torn combination.
type Cache struct {
	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
	params  *lru.Cache[string, float64]
	now     func() time.Time
}

func New(paramCacheSize int) *Cache {
	if paramCacheSize <= 0 {
		paramCacheSize = 256
	}
	params, err := lru.New[string, float64](paramCacheSize)
	if err != nil {
		log.Fatalf("Telemetry: unable to create parameter store: %v", err)
	}
	c := &Cache{params: params, now: time.Now}
	c.current.Store(&Snapshot{})
	return c
}

// SetClock replaces the clock used to stamp updates.
func (c *Cache) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// Snapshot returns a copy of the latest published view.
func (c *Cache) Snapshot() Snapshot {
	return *c.current.Load()
}

// Apply folds one telemetry payload into a new snapshot. Unknown payloads are ignored.
func (c *Cache) Apply(payload interface{}) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := *c.current.Load()
	now := c.now()
	switch m := payload.(type) {
	case types.LocalPose:
		next.Pose = m.Pose
		next.PoseStamp = now
	case types.GlobalFix:
		next.Fix = m
		next.FixStamp = now
	case types.LocalVelocity:
		next.Velocity = m.Velocity
		next.VelocityStamp = now
	case types.BodyVelocity:
		next.BodyVelocity = m.Velocity
		next.BodyVelocityStamp = now
	case types.VehicleStatus:
		next.Status = m
		next.StatusStamp = now
	case types.ExtendedState:
		next.Extended = m
		next.ExtendedStamp = now
	case types.WaypointReached:
		next.Reached = m
		next.ReachedStamp = now
	case types.MissionEcho:
		next.Mission = m
		next.MissionStamp = now
	default:
		return false
	}
	c.current.Store(&next)
	return true
}

// Param returns a cached autopilot parameter value.
func (c *Cache) Param(name string) (float64, bool) {
	return c.params.Get(name)
}

func (c *Cache) SetParam(name string, value float64) {
	c.params.Add(name, value)
}

func (c *Cache) Params() map[string]float64 {
	out := make(map[string]float64, c.params.Len())
	for _, k := range c.params.Keys() {
		if v, ok := c.params.Peek(k); ok {
			out[k] = v
		}
	}
	return out
}

// Run implements types.MessageHandler; ingestion happens in Receive on the bus goroutine.
func (c *Cache) Run(ctx context.Context, wg *sync.WaitGroup, post types.PostFn) {
}

func (c *Cache) Receive(message types.Message) {
	c.Apply(message.Message)
}
