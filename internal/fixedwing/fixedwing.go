// Package fixedwing is the public surface of the vehicle driver. Queries read the
// telemetry cache directly; commands are validated here and handed to the supervisor.
package fixedwing

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/diebengay/grvc-utils/internal/autopilot"
	"github.com/diebengay/grvc-utils/internal/config"
	"github.com/diebengay/grvc-utils/internal/flightstate"
	"github.com/diebengay/grvc-utils/internal/frames"
	"github.com/diebengay/grvc-utils/internal/mission"
	"github.com/diebengay/grvc-utils/internal/supervisor"
	"github.com/diebengay/grvc-utils/internal/telemetry"
	"github.com/diebengay/grvc-utils/internal/types"
)

// Supervisor is the part of the mission supervisor the vehicle surface depends on.
type Supervisor interface {
	State() flightstate.State
	Autopilot() autopilot.Type
	ControlMode() autopilot.ControlMode
	Current() (supervisor.Status, bool)
	Status(id string) (supervisor.Status, bool)
}

type FixedWing struct {
	deviceID   string
	mission    config.Mission
	cache      *telemetry.Cache
	frames     *frames.Manager
	compiler   *mission.Compiler
	supervisor Supervisor
	post       types.PostFn
}

func New(deviceID string, cfg config.Mission, cache *telemetry.Cache, fm *frames.Manager, compiler *mission.Compiler, sup Supervisor, post types.PostFn) *FixedWing {
	return &FixedWing{
		deviceID:   deviceID,
		mission:    cfg,
		cache:      cache,
		frames:     fm,
		compiler:   compiler,
		supervisor: sup,
		post:       post,
	}
}

// IsReady reports whether the vehicle can accept commands: connected, pose and fix
// received, autopilot identified and home registered.
func (f *FixedWing) IsReady() bool {
	snap := f.cache.Snapshot()
	return snap.HasStatus() && snap.Status.Connected &&
		snap.HasPose() && snap.HasFix() &&
		f.supervisor.Autopilot() != autopilot.Unknown &&
		f.frames.Registered()
}

// Pose is the vehicle pose in the home frame, the frame GoToWaypoint and SetMission
// take. It is unavailable until home is registered.
func (f *FixedWing) Pose() (types.Pose, bool) {
	snap := f.cache.Snapshot()
	if !snap.HasPose() || !snap.HasFix() {
		return types.Pose{}, false
	}
	p, err := f.homePose(snap)
	if err != nil {
		return types.Pose{}, false
	}
	return p, true
}

func (f *FixedWing) GeoPose() (types.GeoPose, bool) {
	snap := f.cache.Snapshot()
	return types.GeoPose{
		Stamp:       snap.FixStamp,
		Position:    snap.Fix.Position,
		Orientation: snap.Pose.Orientation,
	}, snap.HasFix()
}

func (f *FixedWing) Velocity() (types.Velocity, bool) {
	snap := f.cache.Snapshot()
	return snap.Velocity, !snap.VelocityStamp.IsZero()
}

func (f *FixedWing) State() flightstate.State           { return f.supervisor.State() }
func (f *FixedWing) Autopilot() autopilot.Type          { return f.supervisor.Autopilot() }
func (f *FixedWing) ControlMode() autopilot.ControlMode { return f.supervisor.ControlMode() }

func (f *FixedWing) Current() (supervisor.Status, bool)         { return f.supervisor.Current() }
func (f *FixedWing) Status(id string) (supervisor.Status, bool) { return f.supervisor.Status(id) }

// TakeOff climbs to height metres above home.
func (f *FixedWing) TakeOff(height float64) (string, error) {
	if height <= 0 {
		return "", errors.Errorf("take off height must be positive, got %v", height)
	}
	return f.submit(supervisor.Command{Kind: supervisor.KindTakeOff, Height: height}), nil
}

func (f *FixedWing) Land() (string, error) {
	return f.submit(supervisor.Command{Kind: supervisor.KindLand}), nil
}

// GoToWaypoint flies to a home-frame pose.
func (f *FixedWing) GoToWaypoint(p types.Pose) (string, error) {
	items := []mission.Item{mission.PassItem{
		Poses:            []types.Pose{p},
		AcceptanceRadius: f.mission.AcceptanceRadius,
		OrbitDistance:    f.mission.OrbitDistance,
	}}
	if err := f.validate(items); err != nil {
		return "", err
	}
	return f.submit(supervisor.Command{Kind: supervisor.KindGoToWaypoint, Items: items}), nil
}

func (f *FixedWing) GoToWaypointGeo(g types.GeoPose) (string, error) {
	p, err := f.frames.ToLocal(g)
	if err != nil {
		return "", err
	}
	return f.GoToWaypoint(p)
}

// SetMission validates and compiles elements before anything reaches the autopilot;
// compiler errors are returned synchronously.
func (f *FixedWing) SetMission(elements []mission.Element) (string, error) {
	items, err := mission.Items(elements)
	if err != nil {
		return "", err
	}
	if err := f.validate(items); err != nil {
		return "", err
	}
	return f.submit(supervisor.Command{Kind: supervisor.KindSetMission, Items: items}), nil
}

func (f *FixedWing) RecoverFromManual() (string, error) {
	if s := f.supervisor.State(); s != flightstate.FlyingManual {
		return "", &supervisor.InvalidStateTransitionError{Command: supervisor.KindRecoverFromManual, State: s}
	}
	return f.submit(supervisor.Command{Kind: supervisor.KindRecoverFromManual}), nil
}

// SetHome re-registers the home frame at the current fix.
func (f *FixedWing) SetHome(useAltitude bool) error {
	snap := f.cache.Snapshot()
	if !snap.HasFix() {
		return frames.ErrNoFix
	}
	fix := snap.Fix
	_, err := f.frames.RegisterHome(&fix, snap.Pose.Position, useAltitude)
	return err
}

// validate compiles items against the current pose so conversion and element errors
// surface to the caller. The supervisor compiles again at dispatch.
func (f *FixedWing) validate(items []mission.Item) error {
	current := types.Pose{Orientation: types.Identity}
	snap := f.cache.Snapshot()
	if snap.HasFix() {
		if p, err := f.homePose(snap); err == nil {
			current = p
		}
	}
	_, err := f.compiler.CompileItems(items, current)
	return err
}

func (f *FixedWing) homePose(snap telemetry.Snapshot) (types.Pose, error) {
	return f.frames.ToLocal(types.GeoPose{
		Stamp:       snap.PoseStamp,
		Position:    snap.Fix.Position,
		Orientation: snap.Pose.Orientation,
	})
}

func (f *FixedWing) submit(cmd supervisor.Command) string {
	cmd.ID = uuid.New().String()
	f.post(types.CreateMessage(types.MessageCommand, "fixedwing", f.deviceID, cmd))
	return cmd.ID
}
