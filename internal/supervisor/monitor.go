package supervisor

import (
	"github.com/pkg/errors"

	"github.com/diebengay/grvc-utils/internal/autopilot"
	"github.com/diebengay/grvc-utils/internal/flightstate"
	"github.com/diebengay/grvc-utils/internal/mission"
	"github.com/diebengay/grvc-utils/internal/telemetry"
)

// advance moves an in-flight command forward from the latest snapshot.
func (s *Supervisor) advance(snap telemetry.Snapshot, r *run) {
	state := s.State()
	if state == flightstate.TakingOff {
		r.sawTakingOff = true
	}

	switch r.status.Phase {
	case PhaseAwaitingAcknowledgement:
		if !s.acknowledged(snap, r) {
			if s.now().After(r.ackDeadline) {
				s.fail(r, errors.WithMessagef(ErrNotAcknowledged, "%s %s", r.cmd.Kind, r.cmd.ID))
			}
			return
		}
		r.status.Phase = PhaseMonitoring
		s.record(r)
		fallthrough
	case PhaseMonitoring:
		if s.progress(snap, r, state) {
			s.finish(r, PhaseCompleted)
			return
		}
		if s.now().After(r.deadline) {
			s.fail(r, errors.WithMessagef(ErrDeadlineExceeded, "%s %s", r.cmd.Kind, r.cmd.ID))
		}
	}
}

// acknowledged reports whether telemetry reflects every call that was dispatched.
func (s *Supervisor) acknowledged(snap telemetry.Snapshot, r *run) bool {
	caps := autopilot.Lookup(s.Autopilot())
	mode := snap.Status.Mode
	if !caps.IsAuto(mode) && !caps.IsLanding(mode) {
		return false
	}
	if r.armRequested && !snap.Status.Armed {
		return false
	}
	if !r.pushedAt.IsZero() {
		if snap.MissionStamp.Before(r.pushedAt) || snap.Mission.Count != len(r.waypoints) {
			return false
		}
	}
	return true
}

// progress updates the status from telemetry and reports whether the command is done.
func (s *Supervisor) progress(snap telemetry.Snapshot, r *run, state flightstate.State) bool {
	switch r.cmd.Kind {
	case KindTakeOff:
		return r.sawTakingOff && state == flightstate.FlyingAuto
	case KindLand:
		return state.Landed()
	}

	m := r.monitored
	if m == nil {
		// recovering with nothing to resume
		return true
	}
	if snap.ReachedStamp.IsZero() || snap.ReachedStamp.Before(m.pushedAt) {
		return false
	}

	seq := snap.Reached.Seq
	if seq != r.status.Reached {
		r.status.Reached = seq
		r.status.Element = mission.ElementAt(m.waypoints, seq)
		s.record(r)
	}
	if seq >= len(m.waypoints)-1 {
		if s.mission == m {
			s.mission = nil
		}
		return true
	}
	return false
}
