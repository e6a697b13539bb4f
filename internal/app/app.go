package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"weekend-momentum/internal/alerting"
	"weekend-momentum/internal/config"
	"weekend-momentum/internal/fetcher"
	"weekend-momentum/internal/scheduler"
	"weekend-momentum/internal/service"
	"weekend-momentum/internal/storage"
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

func (a *App) newBarFetcher() fetcher.BarFetcher {
	return fetcher.NewCandles(fetcher.CandlesOptions{
		BaseURL:   a.Config.Provider.BaseURL,
		APIKey:    a.Config.Provider.APIKey,
		Timeout:   a.Config.Provider.RequestTimeout,
		UserAgent: a.Config.Provider.UserAgent,
	}, a.Logger)
}

func (a *App) newSpotFetcher() fetcher.SpotPriceFetcher {
	if a.Config.Ethereum.RPCURL == "" || a.Config.Ethereum.FeedAddress == "" {
		return nil
	}
	return fetcher.NewChainlink(fetcher.ChainlinkOptions{
		RPCURL:      a.Config.Ethereum.RPCURL,
		FeedAddress: a.Config.Ethereum.FeedAddress,
		Timeout:     a.Config.Ethereum.RequestTimeout,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// Run executes the long-running monitoring service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	bars := a.newBarFetcher()
	spot := a.newSpotFetcher()
	notifier := a.newNotifier()

	var snapshotStore storage.SnapshotStore
	var alertStore storage.VolAlertStore
	if store != nil {
		snapshotStore = store
		alertStore = store
	}

	svc := service.New(a.Config, sched, bars, spot, snapshotStore, alertStore, notifier, a.Logger)

	a.Logger.Info().Str("symbol", a.Config.Symbols.Primary).Msg("starting monitoring service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("monitoring service stopped")
	return nil
}

// ExportOptions hold parameters for exporting historical snapshots.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// BackfillOptions configure the backfill job.
type BackfillOptions struct {
	From   time.Time
	To     time.Time
	DryRun bool
}

// WeekendsOptions configure the weekends command.
type WeekendsOptions struct {
	Symbol  string
	Samples int
	Recent  int
}
