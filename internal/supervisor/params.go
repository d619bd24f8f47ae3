package supervisor

import (
	"context"
	"log"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/diebengay/grvc-utils/internal/gateway"
)

func (s *Supervisor) startParamSync(ctx context.Context) {
	p := s.cfg.Params
	if len(p.Fetch) == 0 && len(p.Set) == 0 {
		return
	}
	if s.wg == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.SyncParams(ctx); err != nil {
			log.Printf("Supervisor: parameter sync: %v", err)
		}
	}()
}

// SyncParams writes the configured parameters and reads the watched ones into the
// telemetry cache. Every parameter is attempted; the first error is returned.
func (s *Supervisor) SyncParams(ctx context.Context) error {
	p := s.cfg.Params
	var g errgroup.Group
	if p.Workers > 0 {
		g.SetLimit(p.Workers)
	}

	for name, value := range p.Set {
		name, value := name, value
		g.Go(func() error {
			err := s.retry(ctx, "set-param "+name, func(ctx context.Context) (bool, error) {
				return s.gateway.SetParam(ctx, name, value)
			})
			if err != nil {
				return err
			}
			s.cache.SetParam(name, value)
			return nil
		})
	}

	for _, name := range p.Fetch {
		name := name
		g.Go(func() error {
			value, err := s.gateway.GetParam(ctx, name)
			if err != nil {
				var rejected *gateway.RejectedByAutopilotError
				if errors.As(err, &rejected) {
					log.Printf("Supervisor: autopilot has no parameter %s", name)
					return nil
				}
				return errors.WithMessagef(err, "get-param %s", name)
			}
			s.cache.SetParam(name, value)
			return nil
		})
	}
	return g.Wait()
}
