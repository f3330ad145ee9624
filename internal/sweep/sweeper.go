package sweep

import (
	"context"
	"time"
)

// Sweeper runs the sweep on a fixed interval for deployments that do not
// drive it from an external scheduler. Start is a no-op when the interval is
// zero.
type Sweeper struct {
	Service  *Service
	Interval time.Duration

	cancel context.CancelFunc
}

func (sw *Sweeper) Start() {
	if sw.Interval <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	sw.cancel = cancel

	go func() {
		ticker := time.NewTicker(sw.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := sw.Service.RunWithAudit(ctx, "sweep"); err != nil {
					sw.Service.Logger.Error().Err(err).Msg("scheduled sweep failed")
				}
			}
		}
	}()
}

func (sw *Sweeper) Stop() {
	if sw.cancel != nil {
		sw.cancel()
	}
}
