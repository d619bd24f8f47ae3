// Package flightstate derives the high-level flight state from raw telemetry.
package flightstate

import (
	"github.com/diebengay/grvc-utils/internal/autopilot"
	"github.com/diebengay/grvc-utils/internal/telemetry"
	"github.com/diebengay/grvc-utils/internal/types"
)

type State int32

const (
	Uninitialized State = iota
	LandedDisarmed
	LandedArmed
	TakingOff
	FlyingAuto
	FlyingManual
	Landing
)

var names = [...]string{
	"UNINITIALIZED",
	"LANDED_DISARMED",
	"LANDED_ARMED",
	"TAKING_OFF",
	"FLYING_AUTO",
	"FLYING_MANUAL",
	"LANDING",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(names) {
		return "INVALID"
	}
	return names[s]
}

func (s State) Landed() bool {
	return s == LandedDisarmed || s == LandedArmed
}

func (s State) Airborne() bool {
	return s == TakingOff || s == FlyingAuto || s == FlyingManual || s == Landing
}

// Inputs that are not part of the telemetry snapshot.
type Inputs struct {
	Capabilities autopilot.Capabilities
	// TakeoffHeight is the target local altitude of the take off in progress, 0 if none.
	TakeoffHeight float64
	// ClimbRate is the vertical speed above which the vehicle counts as climbing.
	ClimbRate float64
}

// Infer maps a snapshot to exactly one State; the first matching rule wins.
func Infer(snap telemetry.Snapshot, in Inputs) State {
	if !snap.HasStatus() || !snap.Status.Connected {
		return Uninitialized
	}

	armed := snap.Status.Armed
	landed := snap.Extended.LandedState
	mode := snap.Status.Mode

	switch {
	case landed == types.LandedStateOnGround && !armed:
		return LandedDisarmed
	case landed == types.LandedStateOnGround && armed:
		return LandedArmed
	case landed == types.LandedStateUndefined && !armed:
		// Some autopilots never report a landed state; nothing flies disarmed.
		return LandedDisarmed
	case landed == types.LandedStateTakeoff || (armed && climbingToTakeoff(snap, in)):
		return TakingOff
	case landed == types.LandedStateLanding || in.Capabilities.IsLanding(mode):
		return Landing
	case in.Capabilities.IsAuto(mode):
		return FlyingAuto
	}
	return FlyingManual
}

func climbingToTakeoff(snap telemetry.Snapshot, in Inputs) bool {
	if in.TakeoffHeight <= 0 || !snap.HasPose() {
		return false
	}
	return snap.Pose.Position.Z < in.TakeoffHeight && snap.Velocity.Linear.Z > in.ClimbRate
}
