package types

// Bus message kinds
const (
	MessageLocalPose       = "local-pose"
	MessageGlobalFix       = "global-fix"
	MessageLocalVelocity   = "local-velocity"
	MessageBodyVelocity    = "body-velocity"
	MessageVehicleStatus   = "vehicle-status"
	MessageExtendedState   = "extended-state"
	MessageWaypointReached = "waypoint-reached"
	MessageMissionEcho     = "mission-echo"
	MessageCommand         = "command"
	MessageCommandStatus   = "command-status"
	MessageFlightState     = "flight-state"
)

// LocalPose is the vehicle pose in the autopilot's local frame.
type LocalPose struct {
	Pose
}

// GlobalFix is the latest navigation satellite fix.
type GlobalFix struct {
	Position GeoPoint `json:"position" msgpack:"position"`
	// Status follows sensor_msgs/NavSatStatus: -1 no fix, 0 fix, 1 sbas, 2 gbas.
	Status int8 `json:"status" msgpack:"status"`
}

type LocalVelocity struct {
	Velocity
}

type BodyVelocity struct {
	Velocity
}

type VehicleStatus struct {
	Connected bool   `json:"connected" msgpack:"connected"`
	Armed     bool   `json:"armed" msgpack:"armed"`
	Guided    bool   `json:"guided" msgpack:"guided"`
	Mode      string `json:"mode" msgpack:"mode"`
	// Autopilot is the MAV_AUTOPILOT code reported in the heartbeat.
	Autopilot uint8 `json:"autopilot" msgpack:"autopilot"`
}

type LandedState uint8

// MAV_LANDED_STATE
const (
	LandedStateUndefined LandedState = iota
	LandedStateOnGround
	LandedStateInAir
	LandedStateTakeoff
	LandedStateLanding
)

func (s LandedState) String() string {
	switch s {
	case LandedStateOnGround:
		return "on-ground"
	case LandedStateInAir:
		return "in-air"
	case LandedStateTakeoff:
		return "taking-off"
	case LandedStateLanding:
		return "landing"
	}
	return "undefined"
}

type ExtendedState struct {
	LandedState LandedState `json:"landed_state" msgpack:"landed_state"`
}

type WaypointReached struct {
	Seq int `json:"wp_seq" msgpack:"wp_seq"`
}

// MissionEcho is the autopilot's view of the installed mission.
type MissionEcho struct {
	CurrentSeq int `json:"current_seq" msgpack:"current_seq"`
	Count      int `json:"count" msgpack:"count"`
}
