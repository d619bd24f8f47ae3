package frames

import (
	"math"
	"testing"

	"github.com/pkg/errors"

	"github.com/diebengay/grvc-utils/internal/types"
)

func registered(t *testing.T, offset types.Vec3, local types.Vec3, useAltitude bool) *Manager {
	t.Helper()
	m := New(StaticLookup(offset), "uav_home", "map")
	fix := &types.GlobalFix{Position: types.GeoPoint{Latitude: 37.4, Longitude: -5.9, Altitude: 120}}
	if _, err := m.RegisterHome(fix, local, useAltitude); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestRoundTrip(t *testing.T) {
	tests := []types.Vec3{
		{X: 0, Y: 0, Z: 0},
		{X: 100, Y: -250, Z: 40},
		{X: -3000, Y: 5000, Z: 300},
		{X: 12.5, Y: 0.001, Z: -2},
	}
	for _, offset := range []types.Vec3{{}, {X: 5, Y: -3, Z: 1}} {
		m := registered(t, offset, types.Vec3{}, false)
		for _, p := range tests {
			g, err := m.ToGeographic(types.Pose{Position: p, Orientation: types.Identity})
			if err != nil {
				t.Fatal(err)
			}
			back, err := m.ToLocal(g)
			if err != nil {
				t.Fatal(err)
			}
			d := back.Position.Sub(p)
			if math.Abs(d.X) > 1e-6 || math.Abs(d.Y) > 1e-6 || math.Abs(d.Z) > 1e-6 {
				t.Errorf("got %+v, expected %+v", back.Position, p)
			}
			if back.Orientation != types.Identity {
				t.Errorf("got orientation %+v", back.Orientation)
			}
		}
	}
}

func TestRegisterHomeAltitude(t *testing.T) {
	tests := []struct {
		name        string
		fix         float64
		local       float64
		useAltitude bool
		expected    float64
	}{
		{"on the ground", 120, 0, false, 130},
		{"on the ground with altitude", 120, 0, true, 130},
		{"airborne", 220, 100, false, 130},
		{"airborne with altitude", 220, 100, true, 230},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			m := New(nil, "uav_home", "map")
			fix := &types.GlobalFix{Position: types.GeoPoint{Latitude: 37.4, Longitude: -5.9, Altitude: test.fix}}
			if _, err := m.RegisterHome(fix, types.Vec3{Z: test.local}, test.useAltitude); err != nil {
				t.Fatal(err)
			}
			g, err := m.ToGeographic(types.Pose{Position: types.Vec3{Z: 10}})
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(g.Position.Altitude-test.expected) > 1e-9 {
				t.Errorf("got %v, expected %v", g.Position.Altitude, test.expected)
			}
		})
	}
}

func TestNotInitialized(t *testing.T) {
	m := New(nil, "uav_home", "map")
	if m.Registered() {
		t.Errorf("expected no registration")
	}
	if _, err := m.ToGeographic(types.Pose{}); err != ErrFrameNotInitialized {
		t.Errorf("got %v, expected ErrFrameNotInitialized", err)
	}
	if _, err := m.ToLocal(types.GeoPose{}); err != ErrFrameNotInitialized {
		t.Errorf("got %v, expected ErrFrameNotInitialized", err)
	}
	if _, err := m.DistanceFromHome(types.GeoPoint{}); err != ErrFrameNotInitialized {
		t.Errorf("got %v, expected ErrFrameNotInitialized", err)
	}
}

func TestRegisterHomeWithoutFix(t *testing.T) {
	m := New(nil, "uav_home", "map")
	if _, err := m.RegisterHome(nil, types.Vec3{}, false); !errors.Is(err, ErrNoFix) {
		t.Errorf("got %v, expected ErrNoFix", err)
	}
	noFix := &types.GlobalFix{Status: -1}
	if _, err := m.RegisterHome(noFix, types.Vec3{}, false); !errors.Is(err, ErrNoFix) {
		t.Errorf("got %v, expected ErrNoFix", err)
	}
	if m.Registered() {
		t.Errorf("expected no registration")
	}
}

func TestReRegistration(t *testing.T) {
	m := registered(t, types.Vec3{}, types.Vec3{}, false)
	fix := &types.GlobalFix{Position: types.GeoPoint{Latitude: 37.5, Longitude: -5.9, Altitude: 200}}
	if _, err := m.RegisterHome(fix, types.Vec3{}, false); err != nil {
		t.Fatal(err)
	}
	g, err := m.ToGeographic(types.Pose{})
	if err != nil {
		t.Fatal(err)
	}
	if g.Position != fix.Position {
		t.Errorf("got %+v, expected the new origin %+v", g.Position, fix.Position)
	}
}

func TestDistanceFromHome(t *testing.T) {
	m := registered(t, types.Vec3{}, types.Vec3{}, false)
	g, _ := m.ToGeographic(types.Pose{Position: types.Vec3{X: 300, Y: 400}})
	d, err := m.DistanceFromHome(g.Position)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(d-500) > 0.5 {
		t.Errorf("got %v, expected about 500", d)
	}
}
