// Package supervisor drives one high-level command at a time through dispatch,
// acknowledgement and monitoring against the autopilot.
package supervisor

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/diebengay/grvc-utils/internal/autopilot"
	"github.com/diebengay/grvc-utils/internal/config"
	"github.com/diebengay/grvc-utils/internal/flightstate"
	"github.com/diebengay/grvc-utils/internal/frames"
	"github.com/diebengay/grvc-utils/internal/gateway"
	"github.com/diebengay/grvc-utils/internal/mission"
	"github.com/diebengay/grvc-utils/internal/telemetry"
	"github.com/diebengay/grvc-utils/internal/types"
)

// FlightStateChange is posted on the bus whenever the inferred state changes.
type FlightStateChange struct {
	State    flightstate.State `json:"-"`
	Previous flightstate.State `json:"-"`
	Name     string            `json:"state"`
	Was      string            `json:"previous"`
}

type Supervisor struct {
	cfg      config.Config
	cache    *telemetry.Cache
	frames   *frames.Manager
	compiler *mission.Compiler
	gateway  gateway.Gateway
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error

	inbox chan types.Message
	post  types.PostFn
	wg    *sync.WaitGroup

	state       atomic.Int32
	autopilot   atomic.Int32
	controlMode atomic.Int32
	latest      atomic.Pointer[Status]
	history     *lru.Cache[string, Status]

	// owned by the Run goroutine
	current *run
	mission *missionRun
}

// run is the live record of the command being supervised.
type run struct {
	cmd          Command
	status       Status
	waypoints    []mission.Waypoint
	armRequested bool
	pushedAt     time.Time
	ackDeadline  time.Time
	deadline     time.Time
	takeoffZ     float64
	sawTakingOff bool
	monitored    *missionRun
}

// missionRun is the mission last pushed to the autopilot by a mission-shaped command.
type missionRun struct {
	waypoints []mission.Waypoint
	pushedAt  time.Time
}

func New(cfg config.Config, cache *telemetry.Cache, fm *frames.Manager, compiler *mission.Compiler, gw gateway.Gateway) *Supervisor {
	size := cfg.Supervisor.HistorySize
	if size <= 0 {
		size = 64
	}
	history, err := lru.New[string, Status](size)
	if err != nil {
		log.Fatalf("Supervisor: unable to create history: %v", err)
	}
	inbox := cfg.Supervisor.InboxSize
	if inbox <= 0 {
		inbox = 16
	}
	return &Supervisor{
		cfg:      cfg,
		cache:    cache,
		frames:   fm,
		compiler: compiler,
		gateway:  gw,
		now:      time.Now,
		sleep:    sleepContext,
		inbox:    make(chan types.Message, inbox),
		history:  history,
	}
}

func (s *Supervisor) Run(ctx context.Context, wg *sync.WaitGroup, post types.PostFn) {
	wg.Add(1)
	defer wg.Done()

	s.post = post
	s.wg = wg

	ticker := time.NewTicker(s.cfg.Supervisor.PollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("Supervisor: shutting down")
			return
		case msg := <-s.inbox:
			if cmd, ok := msg.Message.(Command); ok {
				s.accept(ctx, cmd)
			}
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// Receive never blocks the bus: commands beyond the inbox capacity are dropped.
func (s *Supervisor) Receive(message types.Message) {
	if message.MessageType != types.MessageCommand {
		return
	}
	if _, ok := message.Message.(Command); !ok {
		return
	}
	select {
	case s.inbox <- message:
	default:
		log.Printf("Supervisor: inbox full, dropping command %s", message.ID)
	}
}

func (s *Supervisor) State() flightstate.State {
	return flightstate.State(s.state.Load())
}

func (s *Supervisor) Autopilot() autopilot.Type {
	return autopilot.Type(s.autopilot.Load())
}

func (s *Supervisor) ControlMode() autopilot.ControlMode {
	return autopilot.ControlMode(s.controlMode.Load())
}

// Current returns the status of the most recent command.
func (s *Supervisor) Current() (Status, bool) {
	st := s.latest.Load()
	if st == nil {
		return Status{}, false
	}
	return *st, true
}

// Status looks a command up in the bounded history.
func (s *Supervisor) Status(id string) (Status, bool) {
	return s.history.Get(id)
}

func (s *Supervisor) tick(ctx context.Context) {
	snap := s.cache.Snapshot()

	if s.Autopilot() == autopilot.Unknown && snap.HasStatus() {
		if t := autopilot.FromMAVAutopilot(snap.Status.Autopilot); t != autopilot.Unknown {
			s.autopilot.Store(int32(t))
			log.Printf("Supervisor: autopilot identified as %s", t)
			s.startParamSync(ctx)
		}
	}

	if !s.frames.Registered() && snap.HasFix() && snap.HasPose() {
		fix := snap.Fix
		if _, err := s.frames.RegisterHome(&fix, snap.Pose.Position, s.cfg.Frames.UseAltitude); err != nil {
			log.Printf("Supervisor: home registration failed: %v", err)
		}
	}

	s.updateState(snap)

	if s.current != nil && !s.current.status.Phase.Terminal() {
		s.advance(snap, s.current)
	}
}

func (s *Supervisor) updateState(snap telemetry.Snapshot) flightstate.State {
	in := flightstate.Inputs{
		Capabilities: autopilot.Lookup(s.Autopilot()),
		ClimbRate:    s.cfg.Supervisor.ClimbRate,
	}
	if r := s.current; r != nil && r.cmd.Kind == KindTakeOff && !r.status.Phase.Terminal() {
		in.TakeoffHeight = r.takeoffZ
	}

	next := flightstate.Infer(snap, in)
	prev := flightstate.State(s.state.Swap(int32(next)))
	if prev != next {
		log.Printf("Supervisor: flight state %s -> %s", prev, next)
		if next == flightstate.FlyingManual {
			s.controlMode.Store(int32(autopilot.ControlNone))
		}
		s.publish(types.CreateMessage(types.MessageFlightState, "supervisor", "*", FlightStateChange{
			State:    next,
			Previous: prev,
			Name:     next.String(),
			Was:      prev.String(),
		}))
	}
	return next
}

// accept supersedes whatever is running and dispatches the new command.
func (s *Supervisor) accept(ctx context.Context, cmd Command) {
	if r := s.current; r != nil && !r.status.Phase.Terminal() {
		log.Printf("Supervisor: %s %s superseded by %s %s", r.cmd.Kind, r.cmd.ID, cmd.Kind, cmd.ID)
		r.status.LastError = "superseded by " + cmd.Kind.String() + " " + cmd.ID
		s.finish(r, PhaseCancelled)
	}

	now := s.now()
	r := &run{
		cmd: cmd,
		status: Status{
			ID:      cmd.ID,
			Kind:    cmd.Kind,
			Phase:   PhaseIdle,
			Element: -1,
			Reached: -1,
			Started: now,
		},
	}
	s.current = r
	s.record(r)
	s.dispatch(ctx, r)
}

func (s *Supervisor) finish(r *run, phase Phase) {
	r.status.Phase = phase
	switch phase {
	case PhaseCompleted:
		r.status.Step = StepDone
	case PhaseFailed:
		r.status.Step = StepFailed
	}
	log.Printf("Supervisor: %s %s %s", r.cmd.Kind, r.cmd.ID, phase)
	s.record(r)
}

func (s *Supervisor) fail(r *run, err error) {
	r.status.LastError = err.Error()
	s.finish(r, PhaseFailed)
}

// record stores the status and publishes it.
func (s *Supervisor) record(r *run) {
	r.status.Updated = s.now()
	st := r.status
	s.latest.Store(&st)
	s.history.Add(st.ID, st)
	s.publish(types.CreateMessage(types.MessageCommandStatus, "supervisor", "*", st))
}

func (s *Supervisor) publish(msg types.Message) {
	if s.post != nil {
		s.post(msg)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
