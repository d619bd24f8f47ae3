// Package frames registers the home frame and converts poses between it and
// geographic coordinates.
package frames

import (
	"log"
	"sync"

	"github.com/pkg/errors"

	"github.com/diebengay/grvc-utils/internal/types"
)

var (
	ErrNoFix               = errors.New("no geographic fix received")
	ErrFrameNotInitialized = errors.New("home frame not registered")
)

// TransformLookup resolves the static offset of source expressed in target.
type TransformLookup interface {
	LookupOffset(target, source string) (types.Vec3, error)
}

// StaticLookup answers every lookup with the same configured offset.
type StaticLookup types.Vec3

func (s StaticLookup) LookupOffset(target, source string) (types.Vec3, error) {
	return types.Vec3(s), nil
}

// Registration is the geographic origin of the home frame. It never changes once
// created; re-homing builds a new one.
type Registration struct {
	Origin types.GeoPoint
	// Offset of the pose frame in the home frame, from the transform lookup.
	Offset      types.Vec3
	UseAltitude bool
}

type Manager struct {
	mu          sync.RWMutex
	reg         *Registration
	lookup      TransformLookup
	homeFrameID string
	poseFrameID string
}

func New(lookup TransformLookup, homeFrameID, poseFrameID string) *Manager {
	if lookup == nil {
		lookup = StaticLookup{}
	}
	return &Manager{lookup: lookup, homeFrameID: homeFrameID, poseFrameID: poseFrameID}
}

// RegisterHome anchors the home frame at the current fix. Without useAltitude the
// vertical origin is the ground under the autopilot's local frame (fix altitude -
// local z), so home-frame z is ground-relative. With useAltitude the origin keeps the
// current fix altitude.
func (m *Manager) RegisterHome(fix *types.GlobalFix, local types.Vec3, useAltitude bool) (Registration, error) {
	if fix == nil || fix.Status < 0 {
		return Registration{}, ErrNoFix
	}

	offset, err := m.lookup.LookupOffset(m.homeFrameID, m.poseFrameID)
	if err != nil {
		return Registration{}, errors.WithMessagef(err, "Unable to resolve %s -> %s", m.poseFrameID, m.homeFrameID)
	}

	origin := fix.Position
	if !useAltitude {
		origin.Altitude -= local.Z
	}

	reg := &Registration{Origin: origin, Offset: offset, UseAltitude: useAltitude}

	m.mu.Lock()
	m.reg = reg
	m.mu.Unlock()

	log.Printf("Frames: home registered at %.7f, %.7f, %.2f (use altitude: %v)", origin.Latitude, origin.Longitude, origin.Altitude, useAltitude)
	return *reg, nil
}

func (m *Manager) Registration() (Registration, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.reg == nil {
		return Registration{}, false
	}
	return *m.reg, true
}

func (m *Manager) Registered() bool {
	_, ok := m.Registration()
	return ok
}

// ToGeographic converts a home-frame pose into a geographic pose.
func (m *Manager) ToGeographic(p types.Pose) (types.GeoPose, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.reg == nil {
		return types.GeoPose{}, ErrFrameNotInitialized
	}

	pos := p.Position.Sub(m.reg.Offset)
	lat, lon := offsetToGeo(m.reg.Origin.Latitude, m.reg.Origin.Longitude, pos.X, pos.Y)
	return types.GeoPose{
		Stamp:       p.Stamp,
		Position:    types.GeoPoint{Latitude: lat, Longitude: lon, Altitude: m.reg.Origin.Altitude + pos.Z},
		Orientation: p.Orientation,
	}, nil
}

// ToLocal converts a geographic pose into a home-frame pose.
func (m *Manager) ToLocal(g types.GeoPose) (types.Pose, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.reg == nil {
		return types.Pose{}, ErrFrameNotInitialized
	}

	east, north := geoToOffset(m.reg.Origin.Latitude, m.reg.Origin.Longitude, g.Position.Latitude, g.Position.Longitude)
	pos := types.Vec3{X: east, Y: north, Z: g.Position.Altitude - m.reg.Origin.Altitude}
	return types.Pose{
		Stamp:       g.Stamp,
		Position:    pos.Add(m.reg.Offset),
		Orientation: g.Orientation,
	}, nil
}

// DistanceFromHome is the great-circle distance of p from the home origin, meters.
func (m *Manager) DistanceFromHome(p types.GeoPoint) (float64, error) {
	reg, ok := m.Registration()
	if !ok {
		return 0, ErrFrameNotInitialized
	}
	return distance(reg.Origin.Longitude, reg.Origin.Latitude, p.Longitude, p.Latitude), nil
}
