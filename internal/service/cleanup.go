package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper runs the expired-message cleanup on a fixed interval, independent
// of request traffic. Every run is idempotent, so a missed run is simply
// caught by the next one.
type Sweeper struct {
	messages *MessageService
	interval time.Duration
	log      *zap.SugaredLogger
}

func NewSweeper(messages *MessageService, interval time.Duration, log *zap.SugaredLogger) *Sweeper {
	return &Sweeper{messages: messages, interval: interval, log: log}
}

// Run sweeps once immediately, then on every tick until the context ends.
func (s *Sweeper) Run(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	n, err := s.messages.CleanupExpired(ctx)
	if err != nil {
		s.log.Errorw("cleanup sweep failed", "err", err)
		return
	}
	s.log.Debugw("cleanup sweep done", "deleted", n)
}
