package mission

// Command is the MAV_CMD of a compiled waypoint.
type Command uint16

const (
	CommandWaypoint        Command = 16
	CommandLoiterUnlimited Command = 17
	CommandLoiterTurns     Command = 18
	CommandLoiterTime      Command = 19
	CommandLand            Command = 21
	CommandTakeoff         Command = 22
	CommandLoiterToAlt     Command = 31
	CommandChangeSpeed     Command = 178
)

func (c Command) String() string {
	switch c {
	case CommandWaypoint:
		return "NAV_WAYPOINT"
	case CommandLoiterUnlimited:
		return "NAV_LOITER_UNLIM"
	case CommandLoiterTurns:
		return "NAV_LOITER_TURNS"
	case CommandLoiterTime:
		return "NAV_LOITER_TIME"
	case CommandLand:
		return "NAV_LAND"
	case CommandTakeoff:
		return "NAV_TAKEOFF"
	case CommandLoiterToAlt:
		return "NAV_LOITER_TO_ALT"
	case CommandChangeSpeed:
		return "DO_CHANGE_SPEED"
	}
	return "UNKNOWN"
}

// FrameGlobal is MAV_FRAME_GLOBAL: altitude above mean sea level.
const FrameGlobal uint8 = 0

// Waypoint is one autopilot-native mission item.
type Waypoint struct {
	Frame        uint8      `json:"frame" msgpack:"frame"`
	Command      Command    `json:"command" msgpack:"command"`
	IsCurrent    bool       `json:"is_current" msgpack:"is_current"`
	AutoContinue bool       `json:"autocontinue" msgpack:"autocontinue"`
	Params       [4]float32 `json:"params" msgpack:"params"`
	Latitude     float64    `json:"x_lat" msgpack:"x_lat"`
	Longitude    float64    `json:"y_long" msgpack:"y_long"`
	Altitude     float64    `json:"z_alt" msgpack:"z_alt"`
	// Element is the index of the mission element this waypoint was compiled from.
	Element int `json:"-" msgpack:"-"`
}

// ElementAt returns the element index of waypoint seq, or -1 when out of range.
func ElementAt(wps []Waypoint, seq int) int {
	if seq < 0 || seq >= len(wps) {
		return -1
	}
	return wps[seq].Element
}
