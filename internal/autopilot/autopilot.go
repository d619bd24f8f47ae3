// Package autopilot describes the autopilot families the driver knows how to fly.
package autopilot

type Type int32

const (
	Unknown Type = iota
	PX4
	APM
)

func (t Type) String() string {
	switch t {
	case PX4:
		return "PX4"
	case APM:
		return "APM"
	}
	return "Unknown"
}

// MAV_AUTOPILOT codes
const (
	mavAutopilotArdupilotMega uint8 = 3
	mavAutopilotPX4           uint8 = 12
)

// FromMAVAutopilot maps the heartbeat autopilot code to a Type.
func FromMAVAutopilot(code uint8) Type {
	switch code {
	case mavAutopilotPX4:
		return PX4
	case mavAutopilotArdupilotMega:
		return APM
	}
	return Unknown
}

// ControlMode tracks which outbound command channel is in use.
type ControlMode int32

const (
	ControlNone ControlMode = iota
	ControlLocalVelocity
	ControlLocalPose
	ControlGlobalPose
)

func (m ControlMode) String() string {
	switch m {
	case ControlLocalVelocity:
		return "local-velocity"
	case ControlLocalPose:
		return "local-pose"
	case ControlGlobalPose:
		return "global-pose"
	}
	return "none"
}
