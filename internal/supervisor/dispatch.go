package supervisor

import (
	"context"
	"log"
	"time"

	"github.com/pkg/errors"

	"github.com/diebengay/grvc-utils/internal/autopilot"
	"github.com/diebengay/grvc-utils/internal/flightstate"
	"github.com/diebengay/grvc-utils/internal/gateway"
	"github.com/diebengay/grvc-utils/internal/mission"
	"github.com/diebengay/grvc-utils/internal/telemetry"
	"github.com/diebengay/grvc-utils/internal/types"
)

type step struct {
	name string
	op   string
	call func(ctx context.Context) (bool, error)
	done func()
}

func (s *Supervisor) dispatch(ctx context.Context, r *run) {
	r.status.Phase = PhaseDispatching
	s.record(r)

	snap := s.cache.Snapshot()
	state := s.updateState(snap)

	if r.cmd.Kind == KindLand && state.Landed() {
		s.finish(r, PhaseCompleted)
		return
	}

	steps, err := s.plan(r, snap, state)
	if err != nil {
		s.fail(r, err)
		return
	}

	for _, st := range steps {
		r.status.Step = st.name
		s.record(r)
		if err := s.retry(ctx, st.op, st.call); err != nil {
			s.fail(r, err)
			return
		}
		if st.done != nil {
			st.done()
		}
	}

	now := s.now()
	r.status.Phase = PhaseAwaitingAcknowledgement
	r.status.Step = StepInProgress
	r.ackDeadline = now.Add(s.cfg.Supervisor.AckTimeout)
	r.deadline = now.Add(s.timeout(r.cmd.Kind))
	s.record(r)
}

// plan checks the command against the flight state and lists the gateway calls that
// carry it out, in order.
func (s *Supervisor) plan(r *run, snap telemetry.Snapshot, state flightstate.State) ([]step, error) {
	caps := autopilot.Lookup(s.Autopilot())
	if caps.MissionMode == "" {
		return nil, ErrUnknownAutopilot
	}
	invalid := &InvalidStateTransitionError{Command: r.cmd.Kind, State: state}

	switch r.cmd.Kind {
	case KindTakeOff:
		if !state.Landed() {
			return nil, invalid
		}
		if r.cmd.Height <= 0 {
			return nil, errors.Errorf("take off height must be positive, got %v", r.cmd.Height)
		}
		current, err := s.homePose(snap)
		if err != nil {
			return nil, err
		}
		wps, err := s.compiler.CompileItems([]mission.Item{mission.TakeoffAuxItem{
			MinimumPitch: s.cfg.Mission.MinimumPitch,
			AuxDistance:  s.cfg.Mission.AuxDistance,
			AuxHeight:    r.cmd.Height,
		}}, current)
		if err != nil {
			return nil, err
		}
		r.waypoints = wps
		// height in the autopilot's local frame
		r.takeoffZ = snap.Pose.Position.Z + (r.cmd.Height - current.Position.Z)

		var steps []step
		if state == flightstate.LandedDisarmed {
			steps = append(steps, s.armStep(r))
		}
		return append(steps, s.modeStep(caps.MissionMode), s.pushStep(r, nil)), nil

	case KindLand:
		if state == flightstate.Uninitialized {
			return nil, invalid
		}
		current, err := s.homePose(snap)
		if err != nil {
			return nil, err
		}
		wps, err := s.compiler.CompileItems([]mission.Item{mission.LandAuxItem{
			PrecisionMode: s.cfg.Mission.LandPrecisionMode,
			AbortAltitude: s.cfg.Mission.LandAbortAltitude,
			AuxDistance:   s.cfg.Mission.AuxDistance,
		}}, current)
		if err != nil {
			return nil, err
		}
		r.waypoints = wps
		return []step{s.modeStep(caps.MissionMode), s.pushStep(r, nil)}, nil

	case KindGoToWaypoint, KindSetMission:
		if state == flightstate.Uninitialized {
			return nil, invalid
		}
		wps := r.cmd.Waypoints
		if wps == nil {
			current, err := s.homePose(snap)
			if err != nil {
				return nil, err
			}
			if wps, err = s.compiler.CompileItems(r.cmd.Items, current); err != nil {
				return nil, err
			}
		}
		r.waypoints = wps
		r.status.Total = len(wps)

		var steps []step
		if state == flightstate.LandedDisarmed {
			steps = append(steps, s.armStep(r))
		}
		return append(steps,
			step{name: StepClearing, op: "clear-mission", call: s.gateway.ClearMission},
			s.pushStep(r, func(pushed time.Time) {
				s.mission = &missionRun{waypoints: wps, pushedAt: pushed}
				r.monitored = s.mission
			}),
			s.modeStep(caps.MissionMode),
		), nil

	case KindRecoverFromManual:
		if state != flightstate.FlyingManual {
			return nil, invalid
		}
		if m := s.mission; m != nil {
			r.monitored = m
			r.waypoints = m.waypoints
			r.status.Total = len(m.waypoints)
		}
		st := s.modeStep(caps.MissionMode)
		st.done = func() { s.controlMode.Store(int32(autopilot.ControlGlobalPose)) }
		return []step{st}, nil
	}
	return nil, errors.Errorf("unknown command kind %d", int(r.cmd.Kind))
}

func (s *Supervisor) armStep(r *run) step {
	return step{
		name: StepAwaitingArm,
		op:   "arm",
		call: func(ctx context.Context) (bool, error) { return s.gateway.Arm(ctx, true) },
		done: func() { r.armRequested = true },
	}
}

func (s *Supervisor) modeStep(mode string) step {
	return step{
		name: StepAwaitingMode,
		op:   "set-mode " + mode,
		call: func(ctx context.Context) (bool, error) { return s.gateway.SetMode(ctx, mode) },
	}
}

// pushStep uploads r.waypoints; a mission pushed by take off or land replaces any
// mission a later recovery could resume. The push time is taken before each attempt
// since the autopilot may echo the list before the call returns.
func (s *Supervisor) pushStep(r *run, onPushed func(time.Time)) step {
	return step{
		name: StepPushing,
		op:   "push-mission",
		call: func(ctx context.Context) (bool, error) {
			r.pushedAt = s.now()
			return s.gateway.PushMission(ctx, r.waypoints)
		},
		done: func() {
			s.controlMode.Store(int32(autopilot.ControlGlobalPose))
			if onPushed != nil {
				onPushed(r.pushedAt)
			} else {
				s.mission = nil
			}
		},
	}
}

// retry makes up to CallAttempts calls with exponential backoff between them.
func (s *Supervisor) retry(ctx context.Context, op string, call func(ctx context.Context) (bool, error)) error {
	attempts := s.cfg.Supervisor.CallAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := s.cfg.Supervisor.Backoff

	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			if serr := s.sleep(ctx, backoff); serr != nil {
				return errors.WithMessagef(serr, "%s interrupted", op)
			}
			backoff *= 2
		}
		ok, cerr := call(ctx)
		if err = gateway.Check(op, ok, cerr); err == nil {
			return nil
		}
		log.Printf("Supervisor: %s attempt %d/%d failed: %v", op, i+1, attempts, err)
	}
	return errors.WithMessagef(err, "%s failed after %d attempts", op, attempts)
}

// homePose is the current vehicle pose expressed in the home frame.
func (s *Supervisor) homePose(snap telemetry.Snapshot) (types.Pose, error) {
	if !snap.HasFix() {
		return types.Pose{}, errors.New("no geographic fix available")
	}
	return s.frames.ToLocal(types.GeoPose{
		Position:    snap.Fix.Position,
		Orientation: snap.Pose.Orientation,
	})
}

func (s *Supervisor) timeout(kind Kind) time.Duration {
	c := s.cfg.Supervisor
	switch kind {
	case KindTakeOff:
		return c.TakeOffTimeout
	case KindLand:
		return c.LandTimeout
	case KindGoToWaypoint:
		return c.GoToTimeout
	}
	return c.MissionTimeout
}
