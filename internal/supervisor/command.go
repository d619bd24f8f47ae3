package supervisor

import (
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/diebengay/grvc-utils/internal/flightstate"
	"github.com/diebengay/grvc-utils/internal/mission"
)

type Kind int

const (
	KindTakeOff Kind = iota
	KindLand
	KindGoToWaypoint
	KindSetMission
	KindRecoverFromManual
)

func (k Kind) String() string {
	switch k {
	case KindTakeOff:
		return "take-off"
	case KindLand:
		return "land"
	case KindGoToWaypoint:
		return "go-to-waypoint"
	case KindSetMission:
		return "set-mission"
	case KindRecoverFromManual:
		return "recover-from-manual"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDispatching
	PhaseAwaitingAcknowledgement
	PhaseMonitoring
	PhaseCompleted
	PhaseFailed
	PhaseCancelled
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDispatching:
		return "dispatching"
	case PhaseAwaitingAcknowledgement:
		return "awaiting-acknowledgement"
	case PhaseMonitoring:
		return "monitoring"
	case PhaseCompleted:
		return "completed"
	case PhaseFailed:
		return "failed"
	case PhaseCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed || p == PhaseCancelled
}

// Dispatch steps
const (
	StepAwaitingArm  = "awaiting-arm"
	StepAwaitingMode = "awaiting-mode"
	StepClearing     = "clearing"
	StepPushing      = "pushing"
	StepInProgress   = "in-progress"
	StepDone         = "done"
	StepFailed       = "failed"
)

// Command is a request for the supervisor. Items and Waypoints are used by the
// mission-shaped kinds; when Waypoints is nil the items are compiled at dispatch.
type Command struct {
	ID        string
	Kind      Kind
	Height    float64
	Items     []mission.Item
	Waypoints []mission.Waypoint
}

// Status is the externally visible progress of one command.
type Status struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Phase     Phase     `json:"phase"`
	Step      string    `json:"step,omitempty"`
	Element   int       `json:"element"`
	Reached   int       `json:"reached"`
	Total     int       `json:"total"`
	LastError string    `json:"last_error,omitempty"`
	Started   time.Time `json:"started"`
	Updated   time.Time `json:"updated"`
}

var (
	ErrDeadlineExceeded = errors.New("command did not complete before its deadline")
	ErrNotAcknowledged  = errors.New("autopilot did not acknowledge the command")
	ErrUnknownAutopilot = errors.New("autopilot type not identified yet")
)

// InvalidStateTransitionError reports a command issued in a flight state that does
// not allow it.
type InvalidStateTransitionError struct {
	Command Kind
	State   flightstate.State
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("%s is not valid while %s", e.Command, e.State)
}
