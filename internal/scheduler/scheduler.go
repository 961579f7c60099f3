package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"set-index-snapshots/internal/clock"
)

// Job is invoked at every firing. The recorder decides for itself whether
// the instant matches a recording window, so a spurious firing is harmless.
type Job func(ctx context.Context)

const (
	// ModeWindows fires once per configured civil-time trigger per day.
	ModeWindows = "windows"
	// ModeInterval fires on a fixed aligned cadence and lets the recorder
	// filter window matches. Matches external once-per-minute cron setups.
	ModeInterval = "interval"
)

// Options tune scheduler behaviour.
type Options struct {
	Mode         string
	Triggers     map[string]string // id -> HH:MM:SS civil time
	Interval     time.Duration
	StartupDelay time.Duration
	Location     *time.Location
}

type trigger struct {
	id  string
	sec int
}

// Scheduler drives recording cycles at the configured civil times.
type Scheduler struct {
	opts     Options
	triggers []trigger
	logger   zerolog.Logger

	mu       sync.Mutex
	inFlight map[string]bool
}

// New validates options and constructs a Scheduler.
func New(opts Options, logger zerolog.Logger) (*Scheduler, error) {
	if opts.Location == nil {
		return nil, fmt.Errorf("scheduler location is required")
	}

	s := &Scheduler{
		opts:     opts,
		logger:   logger.With().Str("component", "scheduler").Logger(),
		inFlight: make(map[string]bool),
	}

	switch opts.Mode {
	case ModeInterval:
		if opts.Interval <= 0 {
			return nil, fmt.Errorf("scheduler interval must be positive")
		}
	case ModeWindows:
		if len(opts.Triggers) == 0 {
			return nil, fmt.Errorf("scheduler needs at least one trigger")
		}
		for id, at := range opts.Triggers {
			sec, err := clock.SecondOfDayString(at)
			if err != nil {
				return nil, fmt.Errorf("trigger %s: %w", id, err)
			}
			s.triggers = append(s.triggers, trigger{id: id, sec: sec})
		}
	default:
		return nil, fmt.Errorf("unknown scheduler mode %q", opts.Mode)
	}

	return s, nil
}

// Run blocks, firing the job until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context, job Job) error {
	if s.opts.StartupDelay > 0 {
		if err := sleep(ctx, s.opts.StartupDelay); err != nil {
			return err
		}
	}

	if s.opts.Mode == ModeInterval {
		return s.runInterval(ctx, job)
	}
	return s.runWindows(ctx, job)
}

func (s *Scheduler) runInterval(ctx context.Context, job Job) error {
	next := nextAligned(time.Now().In(s.opts.Location), s.opts.Interval)
	for {
		s.logger.Debug().Time("next_tick", next).Msg("waiting for next tick")
		if err := sleep(ctx, time.Until(next)); err != nil {
			return err
		}

		s.fire(ctx, "interval", job)
		next = next.Add(s.opts.Interval)
		if !next.After(time.Now()) {
			next = nextAligned(time.Now().In(s.opts.Location), s.opts.Interval)
		}
	}
}

func (s *Scheduler) runWindows(ctx context.Context, job Job) error {
	for {
		id, next := s.nextTrigger(time.Now().In(s.opts.Location))
		s.logger.Debug().Str("trigger", id).Time("next_fire", next).Msg("waiting for next window")
		if err := sleep(ctx, time.Until(next)); err != nil {
			return err
		}
		s.fire(ctx, id, job)
	}
}

// fire runs the job unless the same trigger id is still executing;
// overlapping firings of one trigger are suppressed, not queued.
func (s *Scheduler) fire(ctx context.Context, id string, job Job) {
	if !s.begin(id) {
		s.logger.Warn().Str("trigger", id).Msg("previous firing still running, skipping")
		return
	}

	s.logger.Info().Str("trigger", id).Msg("executing scheduled cycle")
	go func() {
		defer s.end(id)
		job(ctx)
	}()
}

func (s *Scheduler) begin(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[id] {
		return false
	}
	s.inFlight[id] = true
	return true
}

func (s *Scheduler) end(id string) {
	s.mu.Lock()
	delete(s.inFlight, id)
	s.mu.Unlock()
}

// nextTrigger returns the trigger id firing soonest after now and its instant.
func (s *Scheduler) nextTrigger(now time.Time) (string, time.Time) {
	var (
		bestID string
		bestAt time.Time
	)
	for _, t := range s.triggers {
		at := nextAt(now, t.sec, s.opts.Location)
		if bestAt.IsZero() || at.Before(bestAt) {
			bestID, bestAt = t.id, at
		}
	}
	return bestID, bestAt
}

// nextAt returns the next occurrence of a civil second-of-day strictly after
// now, rolling to tomorrow when today's has passed.
func nextAt(now time.Time, secOfDay int, loc *time.Location) time.Time {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	at := midnight.Add(time.Duration(secOfDay) * time.Second)
	if !at.After(now) {
		tomorrow := midnight.AddDate(0, 0, 1)
		at = tomorrow.Add(time.Duration(secOfDay) * time.Second)
	}
	return at
}

func nextAligned(now time.Time, interval time.Duration) time.Time {
	aligned := now.Truncate(interval)
	if !aligned.After(now) {
		aligned = aligned.Add(interval)
	}
	return aligned
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		// Fire immediately but still honour cancellation.
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
