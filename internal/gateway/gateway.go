// Package gateway is the request/response surface of the autopilot.
//
// Implementations never retry and never block past their own bounded wait: a call
// either returns the autopilot's explicit answer or a *TransportTimeoutError.
package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/diebengay/grvc-utils/internal/mission"
)

type Gateway interface {
	Arm(ctx context.Context, arm bool) (bool, error)
	SetMode(ctx context.Context, mode string) (bool, error)
	PushMission(ctx context.Context, waypoints []mission.Waypoint) (bool, error)
	ClearMission(ctx context.Context) (bool, error)
	GetParam(ctx context.Context, name string) (float64, error)
	SetParam(ctx context.Context, name string, value float64) (bool, error)
}

// TransportTimeoutError means no answer arrived within the bounded wait.
type TransportTimeoutError struct {
	Op    string
	After time.Duration
}

func (e *TransportTimeoutError) Error() string {
	return fmt.Sprintf("%s: no response from autopilot after %v", e.Op, e.After)
}

// RejectedByAutopilotError means the autopilot answered and reported failure.
type RejectedByAutopilotError struct {
	Op string
}

func (e *RejectedByAutopilotError) Error() string {
	return fmt.Sprintf("%s: rejected by autopilot", e.Op)
}

// Check folds a call result into a single error.
func Check(op string, ok bool, err error) error {
	if err != nil {
		return err
	}
	if !ok {
		return &RejectedByAutopilotError{Op: op}
	}
	return nil
}
