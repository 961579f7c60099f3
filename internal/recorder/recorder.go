// Package recorder runs the snapshot cycle: fetch the overview page, derive
// the reading, stamp the daily record, and archive the reading when the civil
// time falls inside one of the two recording windows.
package recorder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"set-index-snapshots/internal/alerting"
	"set-index-snapshots/internal/clock"
	"set-index-snapshots/internal/fetcher"
	"set-index-snapshots/internal/snapshot"
)

// Extractor turns a raw document into an unstamped reading.
type Extractor interface {
	Extract(document string) (snapshot.Reading, error)
}

// Windows configures the two daily recording triggers. With Grace zero a
// cycle records only when its clock reads the trigger second exactly; with a
// positive grace a cycle records when it falls inside [trigger, trigger+grace)
// and the period has not been recorded yet today.
type Windows struct {
	AM    string
	PM    string
	Grace time.Duration
}

// Result is one cycle's outcome.
type Result struct {
	Date   string           `json:"date"`
	Time   string           `json:"time"`
	Saved  bool             `json:"saved"`
	Period snapshot.Period  `json:"period,omitempty"`
	Live   snapshot.Reading `json:"live"`
}

// LiveSnapshot is a fresh reading with its civil timestamp, never persisted.
type LiveSnapshot struct {
	Date string           `json:"date"`
	Time string           `json:"time"`
	Live snapshot.Reading `json:"live"`
}

// Options wire the recorder's collaborators.
type Options struct {
	Fetcher   fetcher.PageFetcher
	Extractor Extractor
	Clock     clock.Source
	Store     snapshot.Store
	Notifier  alerting.Notifier
	Windows   Windows
}

type window struct {
	period  snapshot.Period
	trigger string
	sec     int
}

// Recorder orchestrates one fetch-derive-persist cycle per invocation. It
// holds no state across calls beyond what the store persists, so the whole
// pipeline restarts cleanly.
type Recorder struct {
	fetcher   fetcher.PageFetcher
	extractor Extractor
	clock     clock.Source
	store     snapshot.Store
	notifier  alerting.Notifier
	logger    zerolog.Logger
	windows   []window
	grace     time.Duration

	// mu serialises the load+save pair on the daily record and history so
	// a scheduled cycle and a manual trigger cannot lose each other's update.
	mu sync.Mutex
}

// New validates the window triggers and builds a recorder.
func New(opts Options, logger zerolog.Logger) (*Recorder, error) {
	if opts.Fetcher == nil || opts.Extractor == nil || opts.Clock == nil || opts.Store == nil {
		return nil, fmt.Errorf("recorder requires fetcher, extractor, clock, and store")
	}

	windows := make([]window, 0, 2)
	for _, w := range []struct {
		period  snapshot.Period
		trigger string
	}{
		{snapshot.PeriodAM, opts.Windows.AM},
		{snapshot.PeriodPM, opts.Windows.PM},
	} {
		sec, err := clock.SecondOfDayString(w.trigger)
		if err != nil {
			return nil, fmt.Errorf("%s window: %w", w.period, err)
		}
		windows = append(windows, window{period: w.period, trigger: w.trigger, sec: sec})
	}

	if opts.Windows.Grace < 0 {
		return nil, fmt.Errorf("window grace cannot be negative")
	}

	return &Recorder{
		fetcher:   opts.Fetcher,
		extractor: opts.Extractor,
		clock:     opts.Clock,
		store:     opts.Store,
		notifier:  opts.Notifier,
		logger:    logger.With().Str("component", "recorder").Logger(),
		windows:   windows,
		grace:     opts.Windows.Grace,
	}, nil
}

// Record executes one cycle and returns its structured outcome. Fetch and
// extraction failures degrade into an error reading; the cycle always reaches
// the persistence step and never returns an error itself.
func (r *Recorder) Record(ctx context.Context) Result {
	now := r.clock.Now()
	reading := r.reading(ctx)

	r.mu.Lock()

	daily := r.store.LoadDaily(ctx)
	today := now.Date()

	period, matched := r.matchWindow(now, daily, today)
	if matched && daily.Date != today {
		// The record still holds a previous day; the new window supersedes it.
		daily.AM = nil
		daily.PM = nil
	}

	daily.Date = today
	daily.Time = now.Clock()
	if matched {
		daily.Set(period, reading)
	}

	if err := r.store.SaveDaily(ctx, daily); err != nil {
		r.logger.Error().Err(err).Msg("failed to persist daily record")
	}
	if matched {
		if err := r.store.AppendHistory(ctx, today, period, reading); err != nil {
			r.logger.Error().Err(err).Str("period", string(period)).Msg("failed to archive window reading")
		}
	}

	r.mu.Unlock()

	result := Result{
		Date:  today,
		Time:  now.Clock(),
		Saved: matched,
		Live:  reading,
	}
	if matched {
		result.Period = period
		r.logger.Info().
			Str("period", string(period)).
			Str("twod", reading.TwoD).
			Bool("degraded", reading.Failed()).
			Msg("window recorded")
		r.announce(ctx, Result{Date: today, Time: now.Clock(), Period: period}, reading)
	}

	return result
}

// Live performs a fresh fetch-derive with no persistence.
func (r *Recorder) Live(ctx context.Context) LiveSnapshot {
	now := r.clock.Now()
	return LiveSnapshot{
		Date: now.Date(),
		Time: now.Clock(),
		Live: r.reading(ctx),
	}
}

// Daily returns the current daily record.
func (r *Recorder) Daily(ctx context.Context) snapshot.Daily {
	return r.store.LoadDaily(ctx)
}

// History returns the full archive.
func (r *Recorder) History(ctx context.Context) snapshot.History {
	return r.store.LoadHistory(ctx)
}

// reading fetches and extracts, converting any failure into an error reading
// whose value fields stay empty.
func (r *Recorder) reading(ctx context.Context) snapshot.Reading {
	page, err := r.fetcher.FetchPage(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("page fetch failed")
		return snapshot.Reading{Error: err.Error(), FetchedAt: r.clock.Now().Unix()}
	}

	reading, err := r.extractor.Extract(page)
	if err != nil {
		r.logger.Error().Err(err).Msg("extraction failed")
		return snapshot.Reading{Error: err.Error(), FetchedAt: r.clock.Now().Unix()}
	}

	reading.FetchedAt = r.clock.Now().Unix()
	return reading
}

func (r *Recorder) matchWindow(now clock.CivilTime, daily snapshot.Daily, today string) (snapshot.Period, bool) {
	nowSec := now.SecondOfDay()
	for _, w := range r.windows {
		if r.grace == 0 {
			if now.Clock() == w.trigger {
				return w.period, true
			}
			continue
		}

		if nowSec < w.sec || nowSec >= w.sec+int(r.grace/time.Second) {
			continue
		}
		if daily.Date == today && daily.Get(w.period) != nil {
			// Already recorded inside this window today.
			continue
		}
		return w.period, true
	}
	return "", false
}

func (r *Recorder) announce(ctx context.Context, meta Result, reading snapshot.Reading) {
	if r.notifier == nil {
		return
	}
	note := alerting.Notification{
		Date:    meta.Date,
		Time:    meta.Time,
		Period:  meta.Period,
		Reading: reading,
	}
	if err := r.notifier.Notify(ctx, note); err != nil {
		r.logger.Error().Err(err).Str("period", string(meta.Period)).Msg("failed to announce window")
	}
}
