package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"room-diff-alerts/internal/alerting"
	"room-diff-alerts/internal/catalog"
	"room-diff-alerts/internal/config"
	"room-diff-alerts/internal/fetcher"
	"room-diff-alerts/internal/scheduler"
	"room-diff-alerts/internal/service"
	"room-diff-alerts/internal/storage"
	"room-diff-alerts/internal/watch"
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

func (a *App) newMetadataStore() *catalog.Store {
	client := catalog.NewClient(catalog.ClientOptions{
		BaseURL:   a.Config.API.BaseURL,
		Property:  a.Config.API.Property,
		Timeout:   a.Config.API.RequestTimeout,
		UserAgent: a.Config.API.UserAgent,
	}, a.Logger)

	return catalog.NewStore(a.Config.Files.TitlesPath, client, a.Logger)
}

func (a *App) newFetcher() fetcher.AvailabilityFetcher {
	return fetcher.NewClient(fetcher.Options{
		BaseURL:      a.Config.API.BaseURL,
		Property:     a.Config.API.Property,
		RateCode:     a.Config.API.RateCode,
		MaxChunkDays: a.Config.API.MaxChunkDays,
		RequestDelay: a.Config.API.RequestDelay,
		Timeout:      a.Config.API.RequestTimeout,
		UserAgent:    a.Config.API.UserAgent,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if !a.Config.Alerting.Enabled {
		return nil
	}
	smtp := a.Config.Alerting.SMTP
	return alerting.NewSMTPNotifier(alerting.SMTPOptions{
		Host:     smtp.Host,
		Port:     smtp.Port,
		Username: smtp.Username,
		Password: smtp.Password,
		From:     smtp.From,
		Timeout:  smtp.Timeout,
	}, a.Logger)
}

func (a *App) newService() (*service.Service, error) {
	from, to, err := a.Config.DateWindow()
	if err != nil {
		return nil, err
	}
	if from.IsZero() {
		return nil, errors.New("watch.date_from and watch.date_to must be configured")
	}

	entries, err := watch.Load(a.Config.Watch.Path)
	if err != nil {
		return nil, err
	}
	hotels := watch.Hotels(entries)
	if len(hotels) == 0 {
		return nil, fmt.Errorf("watch list %s names no hotels", a.Config.Watch.Path)
	}

	svc := service.New(service.Options{
		Metadata:       a.newMetadataStore(),
		Fetcher:        a.newFetcher(),
		Snapshots:      storage.NewSnapshotFile(a.Config.Files.SnapshotPath),
		History:        storage.NewHistoryFile(a.Config.Files.HistoryPath),
		Notifier:       a.newNotifier(),
		Hotels:         hotels,
		WatchKeys:      watch.Expand(entries),
		DateFrom:       from,
		DateTo:         to,
		Recipients:     a.Config.Alerting.Recipients,
		BookingBaseURL: a.Config.Alerting.BookingBaseURL,
		AlertsEnabled:  a.Config.Alerting.Enabled,
	}, a.Logger)
	return svc, nil
}

// Run executes the long-running monitoring service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc, err := a.newService()
	if err != nil {
		return err
	}

	if !a.Config.Alerting.Enabled {
		a.Logger.Warn().Msg("alerting disabled; transitions will be recorded but not delivered")
	}

	sched := scheduler.New(scheduler.Options{
		CronSpec:   a.Config.Scheduler.CronSpec,
		RunAtStart: a.Config.Scheduler.RunAtStart,
	}, a.Logger)

	a.Logger.Info().Str("cron_spec", a.Config.Scheduler.CronSpec).Msg("starting monitoring service")
	err = sched.Run(ctx, svc.RunCycle)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("monitoring service stopped")
	return nil
}

// Cycle runs a single reconciliation cycle and exits.
func (a *App) Cycle(ctx context.Context) error {
	svc, err := a.newService()
	if err != nil {
		return err
	}
	return svc.RunCycle(ctx)
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// ExportOptions hold parameters for exporting recorded history.
type ExportOptions struct {
	HotelCode string
	RoomCode  string
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// SimulateOptions describe a synthetic transition.
type SimulateOptions struct {
	Date      time.Time
	HotelCode string
	RoomCode  string
	Closed    bool
}
