// Package scheduler runs the periodic jobs of the server.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/anonto42/letterly/backend/internal/metrics"
	"github.com/anonto42/letterly/backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// DefaultSpec promotes due letters once a minute.
const DefaultSpec = "@every 1m"

// Publisher promotes scheduled letters whose date has passed.
type Publisher interface {
	PublishDue(ctx context.Context, now time.Time) (int64, error)
}

// Scheduler is a suture.Service driving a cron instance.
type Scheduler struct {
	spec      string
	publisher Publisher
	now       func() time.Time
}

func New(spec string, publisher Publisher) *Scheduler {
	if spec == "" {
		spec = DefaultSpec
	}
	return &Scheduler{spec: spec, publisher: publisher, now: time.Now}
}

// Serve registers the jobs and runs them until ctx is cancelled.
func (s *Scheduler) Serve(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(s.spec, func() { s.PublishDue(ctx) }); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", s.spec, err)
	}

	// catch up on anything that fell due while the server was down
	s.PublishDue(ctx)

	c.Start()
	logger.Info().Str("spec", s.spec).Msg("scheduler started")
	<-ctx.Done()
	<-c.Stop().Done()
	return ctx.Err()
}

// PublishDue runs one promotion pass and returns how many letters went live.
func (s *Scheduler) PublishDue(ctx context.Context) int64 {
	n, err := s.publisher.PublishDue(ctx, s.now())
	if err != nil {
		logger.Error().Err(err).Msg("publishing scheduled letters failed")
		return 0
	}
	if n > 0 {
		metrics.LettersPublished.Add(float64(n))
		logger.Info().Int64("count", n).Msg("published scheduled letters")
	}
	return n
}

func (s *Scheduler) String() string { return "letter-scheduler" }
