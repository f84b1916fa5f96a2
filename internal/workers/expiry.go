package workers

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	verification "nodeproof-backend/internal/features/verification/service"
)

// ExpirySweeper periodically settles stale challenges. Lazy expiry on read
// already guarantees correctness; the sweep is hygiene so abandoned
// challenges do not linger in the open set indefinitely.
type ExpirySweeper struct {
	engine   *verification.Engine
	interval time.Duration
	logger   zerolog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewExpirySweeper(engine *verification.Engine, interval time.Duration, logger zerolog.Logger) *ExpirySweeper {
	return &ExpirySweeper{engine: engine, interval: interval, logger: logger}
}

func (s *ExpirySweeper) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info().Dur("interval", s.interval).Msg("Starting expiry sweeper")
		for {
			select {
			case <-ticker.C:
				if err := s.engine.SweepExpired(ctx); err != nil {
					s.logger.Error().Err(err).Msg("Expiry sweep failed")
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (s *ExpirySweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Info().Msg("Expiry sweeper stopped")
}
