package flightstate

import (
	"testing"
	"time"

	"github.com/diebengay/grvc-utils/internal/autopilot"
	"github.com/diebengay/grvc-utils/internal/telemetry"
	"github.com/diebengay/grvc-utils/internal/types"
)

func snapshot(connected, armed bool, mode string, landed types.LandedState) telemetry.Snapshot {
	now := time.Now()
	return telemetry.Snapshot{
		Status:        types.VehicleStatus{Connected: connected, Armed: armed, Mode: mode},
		StatusStamp:   now,
		Extended:      types.ExtendedState{LandedState: landed},
		ExtendedStamp: now,
	}
}

func TestInfer(t *testing.T) {
	px4 := Inputs{Capabilities: autopilot.Lookup(autopilot.PX4), ClimbRate: 0.2}
	apm := Inputs{Capabilities: autopilot.Lookup(autopilot.APM), ClimbRate: 0.2}

	climbing := snapshot(true, true, "AUTO.MISSION", types.LandedStateInAir)
	climbing.Pose.Position.Z = 10
	climbing.PoseStamp = time.Now()
	climbing.Velocity.Linear.Z = 3
	takeoff := px4
	takeoff.TakeoffHeight = 50

	tests := []struct {
		name     string
		snap     telemetry.Snapshot
		in       Inputs
		expected State
	}{
		{"no telemetry", telemetry.Snapshot{}, px4, Uninitialized},
		{"disconnected", snapshot(false, true, "AUTO.MISSION", types.LandedStateInAir), px4, Uninitialized},
		{"on ground disarmed", snapshot(true, false, "AUTO.LOITER", types.LandedStateOnGround), px4, LandedDisarmed},
		{"on ground armed", snapshot(true, true, "AUTO.LOITER", types.LandedStateOnGround), px4, LandedArmed},
		{"no landed state disarmed", snapshot(true, false, "MANUAL", types.LandedStateUndefined), px4, LandedDisarmed},
		{"taking off", snapshot(true, true, "AUTO.TAKEOFF", types.LandedStateTakeoff), px4, TakingOff},
		{"climbing to take off height", climbing, takeoff, TakingOff},
		{"climbing without take off", climbing, px4, FlyingAuto},
		{"landing state", snapshot(true, true, "AUTO.MISSION", types.LandedStateLanding), px4, Landing},
		{"land mode", snapshot(true, true, "AUTO.LAND", types.LandedStateInAir), px4, Landing},
		{"apm land mode", snapshot(true, true, "QLAND", types.LandedStateInAir), apm, Landing},
		{"auto", snapshot(true, true, "AUTO.LOITER", types.LandedStateInAir), px4, FlyingAuto},
		{"apm auto", snapshot(true, true, "GUIDED", types.LandedStateInAir), apm, FlyingAuto},
		{"manual", snapshot(true, true, "POSCTL", types.LandedStateInAir), px4, FlyingManual},
		{"unknown autopilot", snapshot(true, true, "AUTO.MISSION", types.LandedStateInAir), Inputs{}, FlyingManual},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := Infer(test.snap, test.in); got != test.expected {
				t.Errorf("got %v, expected %v", got, test.expected)
			}
		})
	}
}

func TestInferIsTotal(t *testing.T) {
	in := Inputs{Capabilities: autopilot.Lookup(autopilot.PX4)}
	modes := []string{"", "MANUAL", "AUTO.MISSION", "AUTO.LAND", "OFFBOARD"}
	for _, connected := range []bool{false, true} {
		for _, armed := range []bool{false, true} {
			for _, mode := range modes {
				for landed := types.LandedStateUndefined; landed <= types.LandedStateLanding+1; landed++ {
					s := Infer(snapshot(connected, armed, mode, landed), in)
					if s.String() == "INVALID" {
						t.Errorf("got invalid state for %v %v %s %v", connected, armed, mode, landed)
					}
				}
			}
		}
	}
}

func TestStateGroups(t *testing.T) {
	tests := []struct {
		state    State
		landed   bool
		airborne bool
	}{
		{Uninitialized, false, false},
		{LandedDisarmed, true, false},
		{LandedArmed, true, false},
		{TakingOff, false, true},
		{FlyingAuto, false, true},
		{FlyingManual, false, true},
		{Landing, false, true},
	}
	for _, test := range tests {
		if test.state.Landed() != test.landed || test.state.Airborne() != test.airborne {
			t.Errorf("%v: got landed %v airborne %v", test.state, test.state.Landed(), test.state.Airborne())
		}
	}
	if State(99).String() != "INVALID" {
		t.Errorf("got %s", State(99))
	}
}
