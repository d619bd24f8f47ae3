// Package mission turns mission elements into the autopilot's flat waypoint list.
package mission

import (
	"math"

	"github.com/pkg/errors"

	"github.com/diebengay/grvc-utils/internal/types"
)

// Converter maps home-frame poses to geographic poses.
type Converter interface {
	ToGeographic(p types.Pose) (types.GeoPose, error)
}

type Compiler struct {
	frames Converter
}

func NewCompiler(frames Converter) *Compiler {
	return &Compiler{frames: frames}
}

// Compile validates and compiles a mission. current is the vehicle's home-frame pose,
// used by the aux elements. On error no waypoint list is returned.
func (c *Compiler) Compile(elements []Element, current types.Pose) ([]Waypoint, error) {
	items, err := Items(elements)
	if err != nil {
		return nil, err
	}
	return c.CompileItems(items, current)
}

func (c *Compiler) CompileItems(items []Item, current types.Pose) ([]Waypoint, error) {
	if len(items) == 0 {
		return nil, &InvalidElementError{Index: 0, Reason: "empty mission"}
	}

	result := make([]Waypoint, 0, len(items))
	for i, item := range items {
		wps, err := item.expand(c, current)
		if err != nil {
			return nil, errors.WithMessagef(err, "mission element %d (%s)", i, item.Type())
		}
		for j := range wps {
			wps[j].Element = i
		}
		result = append(result, wps...)
	}

	result[0].IsCurrent = true
	return result, nil
}

// waypoint places a command at p, converted to the geographic frame.
func (c *Compiler) waypoint(cmd Command, p types.Pose, params [4]float32) (Waypoint, error) {
	geo, err := c.frames.ToGeographic(p)
	if err != nil {
		return Waypoint{}, err
	}
	return Waypoint{
		Frame:        FrameGlobal,
		Command:      cmd,
		AutoContinue: true,
		Params:       params,
		Latitude:     geo.Position.Latitude,
		Longitude:    geo.Position.Longitude,
		Altitude:     geo.Position.Altitude,
	}, nil
}

// ahead returns the pose distance meters ahead of current along its yaw, at height z.
func ahead(current types.Pose, distance, z float64) types.Pose {
	yaw := current.Orientation.Yaw()
	return types.Pose{
		Stamp: current.Stamp,
		Position: types.Vec3{
			X: current.Position.X + distance*math.Cos(yaw),
			Y: current.Position.Y + distance*math.Sin(yaw),
			Z: z,
		},
		Orientation: current.Orientation,
	}
}

func f32(v float64) float32 { return float32(v) }

func one(wp Waypoint, err error) ([]Waypoint, error) {
	if err != nil {
		return nil, err
	}
	return []Waypoint{wp}, nil
}

func (it TakeoffPoseItem) expand(c *Compiler, _ types.Pose) ([]Waypoint, error) {
	return one(c.waypoint(CommandTakeoff, it.Pose, [4]float32{f32(it.MinimumPitch), 0, 0, f32(it.Pose.Orientation.Heading())}))
}

func (it TakeoffAuxItem) expand(c *Compiler, current types.Pose) ([]Waypoint, error) {
	p := ahead(current, it.AuxDistance, it.AuxHeight)
	return one(c.waypoint(CommandTakeoff, p, [4]float32{f32(it.MinimumPitch), 0, 0, f32(p.Orientation.Heading())}))
}

func (it PassItem) expand(c *Compiler, _ types.Pose) ([]Waypoint, error) {
	wps := make([]Waypoint, 0, len(it.Poses))
	for _, p := range it.Poses {
		yaw := p.Orientation.Heading()
		if it.Heading != nil {
			yaw = *it.Heading
		}
		wp, err := c.waypoint(CommandWaypoint, p, [4]float32{0, f32(it.AcceptanceRadius), f32(it.OrbitDistance), f32(yaw)})
		if err != nil {
			return nil, err
		}
		wps = append(wps, wp)
	}
	return wps, nil
}

func (it LoiterUnlimitedItem) expand(c *Compiler, _ types.Pose) ([]Waypoint, error) {
	return one(c.waypoint(CommandLoiterUnlimited, it.Pose, [4]float32{0, 0, f32(it.Radius), f32(it.Pose.Orientation.Heading())}))
}

func (it LoiterTurnsItem) expand(c *Compiler, _ types.Pose) ([]Waypoint, error) {
	return one(c.waypoint(CommandLoiterTurns, it.Pose, [4]float32{f32(it.Turns), f32(it.Heading), f32(it.Radius), f32(it.ForwardMoving)}))
}

func (it LoiterTimeItem) expand(c *Compiler, _ types.Pose) ([]Waypoint, error) {
	return one(c.waypoint(CommandLoiterTime, it.Pose, [4]float32{f32(it.Time), f32(it.Heading), f32(it.Radius), f32(it.ForwardMoving)}))
}

func (it LoiterHeightItem) expand(c *Compiler, _ types.Pose) ([]Waypoint, error) {
	return one(c.waypoint(CommandLoiterToAlt, it.Pose, [4]float32{f32(it.Heading), f32(it.Radius), 0, f32(it.ForwardMoving)}))
}

func (it LandPoseItem) expand(c *Compiler, _ types.Pose) ([]Waypoint, error) {
	return one(c.waypoint(CommandLand, it.Pose, [4]float32{f32(it.AbortAltitude), f32(it.PrecisionMode), 0, f32(it.Pose.Orientation.Heading())}))
}

// speedAirspeed is the DO_CHANGE_SPEED speed type for airspeed.
const speedAirspeed = 0

func (it SpeedItem) expand(c *Compiler, current types.Pose) ([]Waypoint, error) {
	wps, err := it.Item.expand(c, current)
	if err != nil {
		return nil, err
	}
	change := Waypoint{
		Frame:        FrameGlobal,
		Command:      CommandChangeSpeed,
		AutoContinue: true,
		Params:       [4]float32{speedAirspeed, f32(it.Speed), -1, 0},
	}
	return append([]Waypoint{change}, wps...), nil
}

func (it LandAuxItem) expand(c *Compiler, current types.Pose) ([]Waypoint, error) {
	p := ahead(current, it.AuxDistance, 0)
	return one(c.waypoint(CommandLand, p, [4]float32{f32(it.AbortAltitude), f32(it.PrecisionMode), 0, f32(p.Orientation.Heading())}))
}
