package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"set-index-snapshots/internal/alerting"
	"set-index-snapshots/internal/clock"
	"set-index-snapshots/internal/config"
	"set-index-snapshots/internal/extract"
	"set-index-snapshots/internal/fetcher"
	"set-index-snapshots/internal/recorder"
	"set-index-snapshots/internal/scheduler"
	"set-index-snapshots/internal/server"
	"set-index-snapshots/internal/snapshot"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newClock() (*clock.System, error) {
	return clock.NewSystem(a.Config.Clock.Timezone)
}

func (a *App) newFetcher() fetcher.PageFetcher {
	return fetcher.NewPage(fetcher.PageOptions{
		URL:       a.Config.Source.URL,
		Timeout:   a.Config.Source.RequestTimeout,
		UserAgent: a.Config.Source.UserAgent,
	}, a.Logger)
}

func (a *App) newExtractor() *extract.Extractor {
	return extract.New(extract.Options{
		TableIndex:    a.Config.Source.TableIndex,
		SetDivIndex:   a.Config.Source.SetDivIndex,
		ValueDivIndex: a.Config.Source.ValueDivIndex,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if !a.Config.Notify.Enabled {
		return nil
	}
	if a.Config.Notify.Telegram.Enabled {
		cfg := a.Config.Notify.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (snapshot.Store, error) {
	switch a.Config.Storage.Backend {
	case "postgres":
		pool, err := snapshot.NewPool(ctx, a.Config.Storage.Postgres)
		if err != nil {
			return nil, err
		}
		store := snapshot.NewPostgresStore(pool, a.Logger)
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	case "file":
		return snapshot.NewFileStore(a.Config.Storage.Dir, a.Logger)
	}
	return nil, fmt.Errorf("unknown storage backend %q", a.Config.Storage.Backend)
}

func (a *App) newRecorder(clk clock.Source, store snapshot.Store) (*recorder.Recorder, error) {
	return recorder.New(recorder.Options{
		Fetcher:   a.newFetcher(),
		Extractor: a.newExtractor(),
		Clock:     clk,
		Store:     store,
		Notifier:  a.newNotifier(),
		Windows: recorder.Windows{
			AM:    a.Config.Windows.AM,
			PM:    a.Config.Windows.PM,
			Grace: a.Config.Windows.Grace,
		},
	}, a.Logger)
}

// Run starts the HTTP server and the in-process scheduler and blocks until a
// termination signal.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if !a.Config.Server.Enabled && !a.Config.Scheduler.Enabled {
		return errors.New("both server and scheduler are disabled; nothing to run")
	}

	clk, err := a.newClock()
	if err != nil {
		return err
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := a.newRecorder(clk, store)
	if err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)

	if a.Config.Server.Enabled {
		srv := server.New(server.Options{
			Port:            a.Config.Server.Port,
			ReadTimeout:     a.Config.Server.ReadTimeout,
			ShutdownTimeout: a.Config.Server.ShutdownTimeout,
		}, rec, a.Logger)
		group.Go(func() error {
			return srv.Run(groupCtx)
		})
	}

	if a.Config.Scheduler.Enabled {
		sched, err := scheduler.New(scheduler.Options{
			Mode: a.Config.Scheduler.Mode,
			Triggers: map[string]string{
				string(snapshot.PeriodAM): a.Config.Windows.AM,
				string(snapshot.PeriodPM): a.Config.Windows.PM,
			},
			Interval:     a.Config.Scheduler.Interval,
			StartupDelay: a.Config.Scheduler.StartupDelay,
			Location:     clk.Location(),
		}, a.Logger)
		if err != nil {
			return err
		}
		group.Go(func() error {
			return sched.Run(groupCtx, func(jobCtx context.Context) {
				rec.Record(jobCtx)
			})
		})
	}

	a.Logger.Info().
		Str("backend", a.Config.Storage.Backend).
		Str("timezone", a.Config.Clock.Timezone).
		Msg("starting snapshot service")

	err = group.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("snapshot service stopped")
	return nil
}
