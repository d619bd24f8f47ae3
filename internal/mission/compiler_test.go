package mission

import (
	"math"
	"testing"

	"github.com/pkg/errors"

	"github.com/diebengay/grvc-utils/internal/frames"
	"github.com/diebengay/grvc-utils/internal/types"
)

func newCompiler(t *testing.T) *Compiler {
	t.Helper()
	m := frames.New(nil, "uav_home", "map")
	fix := &types.GlobalFix{Position: types.GeoPoint{Latitude: 37.4, Longitude: -5.9, Altitude: 100}}
	if _, err := m.RegisterHome(fix, types.Vec3{}, false); err != nil {
		t.Fatal(err)
	}
	return NewCompiler(m)
}

func pose(x, y, z, yaw float64) types.Pose {
	return types.Pose{Position: types.Vec3{X: x, Y: y, Z: z}, Orientation: types.QuaternionFromYaw(yaw)}
}

func params(kv ...interface{}) map[string]float64 {
	out := make(map[string]float64)
	for i := 0; i < len(kv); i += 2 {
		out[kv[i].(string)] = float64(kv[i+1].(int))
	}
	return out
}

var loiterTurns = Element{
	Type:   LoiterTurns,
	Poses:  []types.Pose{pose(0, 0, 50, 0)},
	Params: params(ParamTurns, 3, ParamRadius, 80, ParamHeading, 1, ParamForwardMoving, 0),
}

func passOf(n int) Element {
	poses := make([]types.Pose, n)
	for i := range poses {
		poses[i] = pose(float64(i)*100, 0, 60, 0)
	}
	return Element{Type: Pass, Poses: poses, Params: params(ParamAcceptanceRadius, 10, ParamOrbitDistance, 0)}
}

func withSpeed(e Element, speed int) Element {
	p := make(map[string]float64, len(e.Params)+1)
	for k, v := range e.Params {
		p[k] = v
	}
	p[ParamSpeed] = float64(speed)
	e.Params = p
	return e
}

func TestWaypointCounts(t *testing.T) {
	c := newCompiler(t)
	tests := []struct {
		name     string
		elements []Element
		expected int
	}{
		{"loiter turns", []Element{loiterTurns}, 1},
		{"pass", []Element{passOf(4)}, 4},
		{"mixed", []Element{passOf(2), loiterTurns, passOf(3)}, 6},
		{"pass with speed", []Element{withSpeed(passOf(2), 18)}, 3},
		{"mixed with speed", []Element{passOf(2), withSpeed(loiterTurns, 15), passOf(3)}, 7},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			wps, err := c.Compile(test.elements, types.Pose{})
			if err != nil {
				t.Fatal(err)
			}
			if len(wps) != test.expected {
				t.Errorf("got %d waypoints, expected %d", len(wps), test.expected)
			}
			current := 0
			for _, wp := range wps {
				if wp.IsCurrent {
					current++
				}
				if wp.Frame != FrameGlobal {
					t.Errorf("got frame %d, expected global", wp.Frame)
				}
			}
			if current != 1 || !wps[0].IsCurrent {
				t.Errorf("got %d current waypoints, expected only the first", current)
			}
		})
	}
}

func TestElementBackReferences(t *testing.T) {
	c := newCompiler(t)
	wps, err := c.Compile([]Element{passOf(2), loiterTurns, passOf(3)}, types.Pose{})
	if err != nil {
		t.Fatal(err)
	}
	expected := []int{0, 0, 1, 2, 2, 2}
	for i, wp := range wps {
		if wp.Element != expected[i] {
			t.Errorf("waypoint %d: got element %d, expected %d", i, wp.Element, expected[i])
		}
	}
	if got := ElementAt(wps, 2); got != 1 {
		t.Errorf("got %d, expected 1", got)
	}
	if got := ElementAt(wps, 6); got != -1 {
		t.Errorf("got %d, expected -1", got)
	}
}

func TestCompileIsAtomic(t *testing.T) {
	c := newCompiler(t)
	broken := Element{Type: LoiterTime, Poses: []types.Pose{pose(0, 0, 50, 0)}, Params: params(ParamTime, 30, ParamRadius, 50, ParamHeading, 0)}
	elements := []Element{passOf(1), loiterTurns, passOf(2), broken, passOf(1)}

	wps, err := c.Compile(elements, types.Pose{})
	if wps != nil {
		t.Errorf("got %d waypoints, expected none", len(wps))
	}
	var missing *MissingParameterError
	if !errors.As(err, &missing) {
		t.Fatalf("got %v, expected a MissingParameterError", err)
	}
	if missing.Index != 3 || missing.Name != ParamForwardMoving {
		t.Errorf("got %d/%s, expected 3/%s", missing.Index, missing.Name, ParamForwardMoving)
	}
}

func TestInvalidElements(t *testing.T) {
	c := newCompiler(t)
	tests := []struct {
		name    string
		element Element
	}{
		{"pass without poses", Element{Type: Pass, Params: params(ParamAcceptanceRadius, 10, ParamOrbitDistance, 0)}},
		{"loiter with two poses", Element{Type: LoiterUnlimited, Poses: []types.Pose{{}, {}}, Params: params(ParamRadius, 10)}},
		{"aux with a pose", Element{Type: LandAux, Poses: []types.Pose{{}}, Params: params(ParamPrecisionMode, 0, ParamAbortAltitude, 0, ParamAuxDistance, 100)}},
		{"unknown type", Element{Type: ElementType(42)}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := c.Compile([]Element{passOf(1), test.element}, types.Pose{})
			var invalid *InvalidElementError
			if !errors.As(err, &invalid) || invalid.Index != 1 {
				t.Errorf("got %v, expected an InvalidElementError for element 1", err)
			}
		})
	}

	if _, err := c.Compile(nil, types.Pose{}); err == nil {
		t.Errorf("expected an error for an empty mission")
	}
}

func TestParamSlots(t *testing.T) {
	c := newCompiler(t)

	tests := []struct {
		name     string
		element  Element
		command  Command
		expected [4]float32
	}{
		{"takeoff", Element{Type: TakeoffPose, Poses: []types.Pose{pose(0, 0, 40, 0)}, Params: params(ParamMinimumPitch, 15)},
			CommandTakeoff, [4]float32{15, 0, 0, 90}},
		{"pass", Element{Type: Pass, Poses: []types.Pose{pose(0, 0, 40, 0)}, Params: params(ParamAcceptanceRadius, 10, ParamOrbitDistance, 5)},
			CommandWaypoint, [4]float32{0, 10, 5, 90}},
		{"pass with heading", Element{Type: Pass, Poses: []types.Pose{pose(0, 0, 40, 0)}, Params: params(ParamAcceptanceRadius, 10, ParamOrbitDistance, 5, ParamHeading, 270)},
			CommandWaypoint, [4]float32{0, 10, 5, 270}},
		{"loiter unlimited", Element{Type: LoiterUnlimited, Poses: []types.Pose{pose(0, 0, 40, math.Pi)}, Params: params(ParamRadius, 60)},
			CommandLoiterUnlimited, [4]float32{0, 0, 60, 270}},
		{"loiter turns", loiterTurns, CommandLoiterTurns, [4]float32{3, 1, 80, 0}},
		{"loiter time", Element{Type: LoiterTime, Poses: []types.Pose{pose(0, 0, 40, 0)}, Params: params(ParamTime, 30, ParamRadius, 50, ParamHeading, 1, ParamForwardMoving, 1)},
			CommandLoiterTime, [4]float32{30, 1, 50, 1}},
		{"loiter height", Element{Type: LoiterHeight, Poses: []types.Pose{pose(0, 0, 40, 0)}, Params: params(ParamRadius, 50, ParamHeading, 1, ParamForwardMoving, 0)},
			CommandLoiterToAlt, [4]float32{1, 50, 0, 0}},
		{"land", Element{Type: LandPose, Poses: []types.Pose{pose(0, 0, 0, 0)}, Params: params(ParamPrecisionMode, 2, ParamAbortAltitude, 20)},
			CommandLand, [4]float32{20, 2, 0, 90}},
		{"speed", withSpeed(passOf(1), 18), CommandChangeSpeed, [4]float32{0, 18, -1, 0}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			wps, err := c.Compile([]Element{test.element}, types.Pose{})
			if err != nil {
				t.Fatal(err)
			}
			wp := wps[0]
			if wp.Command != test.command {
				t.Errorf("got %v, expected %v", wp.Command, test.command)
			}
			for i := range wp.Params {
				if math.Abs(float64(wp.Params[i]-test.expected[i])) > 1e-3 {
					t.Errorf("got params %v, expected %v", wp.Params, test.expected)
					break
				}
			}
		})
	}
}

func TestSpeedChange(t *testing.T) {
	c := newCompiler(t)
	wps, err := c.Compile([]Element{passOf(1), withSpeed(passOf(2), 20)}, types.Pose{})
	if err != nil {
		t.Fatal(err)
	}
	commands := []Command{CommandWaypoint, CommandChangeSpeed, CommandWaypoint, CommandWaypoint}
	elements := []int{0, 1, 1, 1}
	if len(wps) != len(commands) {
		t.Fatalf("got %d waypoints, expected %d", len(wps), len(commands))
	}
	for i, wp := range wps {
		if wp.Command != commands[i] || wp.Element != elements[i] {
			t.Errorf("waypoint %d: got %v of element %d, expected %v of element %d", i, wp.Command, wp.Element, commands[i], elements[i])
		}
	}

	_, err = c.Compile([]Element{passOf(1), withSpeed(passOf(1), 0)}, types.Pose{})
	var invalid *InvalidElementError
	if !errors.As(err, &invalid) || invalid.Index != 1 {
		t.Errorf("got %v, expected an InvalidElementError for element 1", err)
	}
}

func TestAuxElementsFollowCurrentPose(t *testing.T) {
	c := newCompiler(t)
	// heading north, 50 m above home
	current := pose(0, 0, 50, math.Pi/2)

	takeoff := Element{Type: TakeoffAux, Params: params(ParamMinimumPitch, 12, ParamAuxDistance, 200, ParamAuxHeight, 40)}
	land := Element{Type: LandAux, Params: params(ParamPrecisionMode, 0, ParamAbortAltitude, 0, ParamAuxDistance, 300)}
	wps, err := c.Compile([]Element{takeoff, land}, current)
	if err != nil {
		t.Fatal(err)
	}

	metresPerDegree := 6371000 * math.Pi / 180
	tests := []struct {
		wp       Waypoint
		north    float64
		altitude float64
		command  Command
	}{
		{wps[0], 200, 140, CommandTakeoff},
		{wps[1], 300, 100, CommandLand},
	}
	for i, test := range tests {
		north := (test.wp.Latitude - 37.4) * metresPerDegree
		if math.Abs(north-test.north) > 1e-3 || math.Abs(test.wp.Longitude+5.9) > 1e-9 {
			t.Errorf("waypoint %d: got %v m north, expected %v", i, north, test.north)
		}
		if math.Abs(test.wp.Altitude-test.altitude) > 1e-9 || test.wp.Command != test.command {
			t.Errorf("waypoint %d: got %v at %v, expected %v at %v", i, test.wp.Command, test.wp.Altitude, test.command, test.altitude)
		}
	}
}

func TestCompileWithoutHome(t *testing.T) {
	c := NewCompiler(frames.New(nil, "uav_home", "map"))
	_, err := c.Compile([]Element{loiterTurns}, types.Pose{})
	if !errors.Is(err, frames.ErrFrameNotInitialized) {
		t.Errorf("got %v, expected ErrFrameNotInitialized", err)
	}
}

func TestElementTypeText(t *testing.T) {
	for _, name := range []string{"takeoff_pose", "pass", "loiter_height", "land_aux"} {
		var et ElementType
		if err := et.UnmarshalText([]byte(name)); err != nil {
			t.Fatal(err)
		}
		b, _ := et.MarshalText()
		if string(b) != name {
			t.Errorf("got %s, expected %s", b, name)
		}
	}
	if _, err := ParseElementType("hover"); err == nil {
		t.Errorf("expected an error")
	}
}
