package mission

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/diebengay/grvc-utils/internal/types"
)

type ElementType int

const (
	TakeoffPose ElementType = iota
	TakeoffAux
	Pass
	LoiterUnlimited
	LoiterTurns
	LoiterTime
	LoiterHeight
	LandPose
	LandAux
)

var elementTypeNames = [...]string{
	"takeoff_pose",
	"takeoff_aux",
	"pass",
	"loiter_unlimited",
	"loiter_turns",
	"loiter_time",
	"loiter_height",
	"land_pose",
	"land_aux",
}

func (t ElementType) String() string {
	if t < 0 || int(t) >= len(elementTypeNames) {
		return fmt.Sprintf("ElementType(%d)", int(t))
	}
	return elementTypeNames[t]
}

func ParseElementType(s string) (ElementType, error) {
	for i, n := range elementTypeNames {
		if strings.EqualFold(n, s) {
			return ElementType(i), nil
		}
	}
	return 0, errors.Errorf("unknown mission element type %q", s)
}

func (t ElementType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *ElementType) UnmarshalText(b []byte) error {
	v, err := ParseElementType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Parameter names
const (
	ParamMinimumPitch     = "minimum_pitch"
	ParamAuxDistance      = "aux_distance"
	ParamAuxHeight        = "aux_height"
	ParamAcceptanceRadius = "acceptance_radius"
	ParamOrbitDistance    = "orbit_distance"
	ParamHeading          = "heading"
	ParamRadius           = "radius"
	ParamTurns            = "turns"
	ParamTime             = "time"
	ParamForwardMoving    = "forward_moving"
	ParamPrecisionMode    = "precision_mode"
	ParamAbortAltitude    = "abort_altitude"

	// ParamSpeed is optional on every element type.
	ParamSpeed = "speed"
)

var requiredParams = map[ElementType][]string{
	TakeoffPose:     {ParamMinimumPitch},
	TakeoffAux:      {ParamMinimumPitch, ParamAuxDistance, ParamAuxHeight},
	Pass:            {ParamAcceptanceRadius, ParamOrbitDistance},
	LoiterUnlimited: {ParamRadius},
	LoiterTurns:     {ParamTurns, ParamRadius, ParamHeading, ParamForwardMoving},
	LoiterTime:      {ParamTime, ParamRadius, ParamHeading, ParamForwardMoving},
	LoiterHeight:    {ParamRadius, ParamHeading, ParamForwardMoving},
	LandPose:        {ParamPrecisionMode, ParamAbortAltitude},
	LandAux:         {ParamPrecisionMode, ParamAbortAltitude, ParamAuxDistance},
}

// RequiredParams lists the parameter names an element of type t must carry.
func RequiredParams(t ElementType) []string {
	return append([]string(nil), requiredParams[t]...)
}

// Element is one authoring unit of a mission in its generic form.
type Element struct {
	Type   ElementType        `json:"type" yaml:"type"`
	Poses  []types.Pose       `json:"poses,omitempty" yaml:"poses,omitempty"`
	Params map[string]float64 `json:"params,omitempty" yaml:"params,omitempty"`
}

// Item is an element in its typed form, carrying exactly the fields its type needs.
type Item interface {
	Type() ElementType
	expand(c *Compiler, current types.Pose) ([]Waypoint, error)
}

type TakeoffPoseItem struct {
	Pose         types.Pose
	MinimumPitch float64
}

type TakeoffAuxItem struct {
	MinimumPitch float64
	AuxDistance  float64
	AuxHeight    float64
}

type PassItem struct {
	Poses            []types.Pose
	AcceptanceRadius float64
	OrbitDistance    float64
	// Heading in degrees overrides the yaw of every pose when set.
	Heading *float64
}

type LoiterUnlimitedItem struct {
	Pose   types.Pose
	Radius float64
}

type LoiterTurnsItem struct {
	Pose          types.Pose
	Turns         float64
	Radius        float64
	Heading       float64
	ForwardMoving float64
}

type LoiterTimeItem struct {
	Pose          types.Pose
	Time          float64
	Radius        float64
	Heading       float64
	ForwardMoving float64
}

type LoiterHeightItem struct {
	Pose          types.Pose
	Radius        float64
	Heading       float64
	ForwardMoving float64
}

type LandPoseItem struct {
	Pose          types.Pose
	PrecisionMode float64
	AbortAltitude float64
}

type LandAuxItem struct {
	PrecisionMode float64
	AbortAltitude float64
	AuxDistance   float64
}

// SpeedItem sets the airspeed, in m/s, before flying Item.
type SpeedItem struct {
	Item
	Speed float64
}

func (TakeoffPoseItem) Type() ElementType     { return TakeoffPose }
func (TakeoffAuxItem) Type() ElementType      { return TakeoffAux }
func (PassItem) Type() ElementType            { return Pass }
func (LoiterUnlimitedItem) Type() ElementType { return LoiterUnlimited }
func (LoiterTurnsItem) Type() ElementType     { return LoiterTurns }
func (LoiterTimeItem) Type() ElementType      { return LoiterTime }
func (LoiterHeightItem) Type() ElementType    { return LoiterHeight }
func (LandPoseItem) Type() ElementType        { return LandPose }
func (LandAuxItem) Type() ElementType         { return LandAux }

// Item validates e and converts it to its typed form. index is the position of e in
// its mission and is only used for error reporting.
func (e Element) Item(index int) (Item, error) {
	item, err := e.item(index)
	if err != nil {
		return nil, err
	}
	speed, ok := e.Params[ParamSpeed]
	if !ok {
		return item, nil
	}
	if speed <= 0 {
		return nil, &InvalidElementError{Index: index, Reason: fmt.Sprintf("speed must be positive, got %v", speed)}
	}
	return SpeedItem{Item: item, Speed: speed}, nil
}

func (e Element) item(index int) (Item, error) {
	required, ok := requiredParams[e.Type]
	if !ok {
		return nil, &InvalidElementError{Index: index, Reason: fmt.Sprintf("unknown element type %d", int(e.Type))}
	}
	for _, name := range required {
		if _, ok := e.Params[name]; !ok {
			return nil, &MissingParameterError{Index: index, Name: name}
		}
	}

	p := e.Params
	switch e.Type {
	case TakeoffAux:
		if err := e.expectPoses(index, 0); err != nil {
			return nil, err
		}
		return TakeoffAuxItem{p[ParamMinimumPitch], p[ParamAuxDistance], p[ParamAuxHeight]}, nil
	case LandAux:
		if err := e.expectPoses(index, 0); err != nil {
			return nil, err
		}
		return LandAuxItem{p[ParamPrecisionMode], p[ParamAbortAltitude], p[ParamAuxDistance]}, nil
	case Pass:
		if len(e.Poses) == 0 {
			return nil, &InvalidElementError{Index: index, Reason: "pass needs at least one pose"}
		}
		item := PassItem{Poses: e.Poses, AcceptanceRadius: p[ParamAcceptanceRadius], OrbitDistance: p[ParamOrbitDistance]}
		if h, ok := p[ParamHeading]; ok {
			item.Heading = &h
		}
		return item, nil
	}

	if err := e.expectPoses(index, 1); err != nil {
		return nil, err
	}
	pose := e.Poses[0]
	switch e.Type {
	case TakeoffPose:
		return TakeoffPoseItem{pose, p[ParamMinimumPitch]}, nil
	case LoiterUnlimited:
		return LoiterUnlimitedItem{pose, p[ParamRadius]}, nil
	case LoiterTurns:
		return LoiterTurnsItem{pose, p[ParamTurns], p[ParamRadius], p[ParamHeading], p[ParamForwardMoving]}, nil
	case LoiterTime:
		return LoiterTimeItem{pose, p[ParamTime], p[ParamRadius], p[ParamHeading], p[ParamForwardMoving]}, nil
	case LoiterHeight:
		return LoiterHeightItem{pose, p[ParamRadius], p[ParamHeading], p[ParamForwardMoving]}, nil
	default:
		return LandPoseItem{pose, p[ParamPrecisionMode], p[ParamAbortAltitude]}, nil
	}
}

func (e Element) expectPoses(index, n int) error {
	if len(e.Poses) != n {
		return &InvalidElementError{Index: index, Reason: fmt.Sprintf("%s takes %d poses, got %d", e.Type, n, len(e.Poses))}
	}
	return nil
}

// Items converts a whole mission, stopping at the first invalid element.
func Items(elements []Element) ([]Item, error) {
	items := make([]Item, 0, len(elements))
	for i, e := range elements {
		item, err := e.Item(i)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
