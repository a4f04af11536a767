package outbox

import (
	"context"
	"sync"
	"time"

	"github.com/vytor/mathtermind/internal/logger"
)

// Sweeper retries undelivered events on a fixed interval.
type Sweeper struct {
	dispatcher *Dispatcher
	interval   time.Duration
	wg         sync.WaitGroup
	cancel     context.CancelFunc
	log        *logger.Logger
}

func NewSweeper(d *Dispatcher, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Sweeper{
		dispatcher: d,
		interval:   interval,
		log:        logger.Default().WithPrefix("outbox-sweeper"),
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.log.Info("starting outbox sweeper every %v", s.interval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.log.Debug("sweeper shutting down (context cancelled)")
				return
			case <-ticker.C:
				sweepCtx := logger.NewContext(ctx, s.log)
				if _, err := s.dispatcher.Dispatch(sweepCtx); err != nil && ctx.Err() == nil {
					s.log.Error("sweep failed: %v", err)
				}
			}
		}
	}()
}

func (s *Sweeper) Stop() {
	s.log.Info("stopping outbox sweeper")
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.log.Info("outbox sweeper stopped")
}
