package reconcile

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Processor runs reconciliation sweeps on an interval. The sweep itself has
// no internal scheduling; this wrapper exists so the API server can run it
// in the background while cmd/reconcile invokes single sweeps directly.
type Processor struct {
	service  *Service
	interval time.Duration
}

func NewProcessor(service *Service, interval time.Duration) *Processor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Processor{
		service:  service,
		interval: interval,
	}
}

// Start begins the reconciliation loop, returning when ctx is cancelled.
func (p *Processor) Start(ctx context.Context) {
	logger := log.With().Str("component", "reconcile_processor").Logger()
	logger.Info().Dur("interval", p.interval).Msg("starting reconciliation processor")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down reconciliation processor")
			return
		case <-ticker.C:
			if _, err := p.service.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("reconciliation sweep failed")
			}
		}
	}
}
