package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"vixfix-trading-bot/internal/broker/brokerobs"
	"vixfix-trading-bot/internal/broker/oanda"
	"vixfix-trading-bot/internal/broker/paper"
	"vixfix-trading-bot/internal/engine"
	"vixfix-trading-bot/internal/engine/engineobs"
	"vixfix-trading-bot/internal/eod"
	"vixfix-trading-bot/internal/eod/eodobs"
	"vixfix-trading-bot/internal/interfaces"
	"vixfix-trading-bot/internal/journal"
	"vixfix-trading-bot/internal/logger"
	"vixfix-trading-bot/internal/notify"
	"vixfix-trading-bot/internal/remote"
	"vixfix-trading-bot/internal/signal"
	"vixfix-trading-bot/internal/store"
	"vixfix-trading-bot/internal/supervisor"
	"vixfix-trading-bot/internal/trace"
	"vixfix-trading-bot/internal/tradelog"

	"github.com/joho/godotenv"
)

// initializeSystem loads .env and starts the logger and tracer
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

// shutdownSystem closes the log file, which also flushes spans
func shutdownSystem() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = logger.Shutdown(ctx)
}

// loadConfig loads the config file and checks that every selected provider
// has credentials
func loadConfig(ctx context.Context, path string) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}

	if cfg.Mode == "DRY_RUN" && cfg.Venue.Provider != "PAPER" {
		logger.Warn(ctx, "DRY_RUN mode - using the paper venue instead", "provider", cfg.Venue.Provider)
		cfg.Venue.Provider = "PAPER"
	}

	if err := cfg.ValidateSecrets(); err != nil {
		logger.ErrorWithErr(ctx, "Missing credentials", err)
		return nil, err
	}
	tradelog.SetDir(cfg.LogDir)
	return cfg, nil
}

// compressOldLogs gzips audit logs past the retention window
func compressOldLogs(ctx context.Context, cfg *store.Config) {
	if cfg.LogRetentionDays <= 0 {
		return
	}
	if err := tradelog.CompressOlder(cfg.LogRetentionDays); err != nil {
		logger.Warn(ctx, "Failed to compress old logs", "error", err)
	}
}

// initializeVenue returns the venue binding wrapped with observability
func initializeVenue(ctx context.Context, cfg *store.Config) interfaces.Venue {
	var venue interfaces.Venue

	switch cfg.Venue.Provider {
	case "OANDA":
		venue = oanda.New(oanda.Params{
			BaseURL:     cfg.Venue.BaseURL,
			Environment: cfg.Venue.Environment,
			LotSize:     cfg.Venue.LotSize,
			Timeout:     time.Duration(cfg.Venue.TimeoutSecs) * time.Second,
		})
		logger.Info(ctx, "Using OANDA venue", "environment", cfg.Venue.Environment)
	default:
		venue = paper.New(paper.Params{Balance: cfg.Venue.PaperBalance})
		logger.Warn(ctx, "Using paper venue - bars are synthetic and orders are simulated")
	}

	return brokerobs.Wrap(venue)
}

// initializeDetector returns the signal detector wrapped with observability
func initializeDetector(cfg *store.Config, venue interfaces.Venue) interfaces.Detector {
	return engineobs.WrapDetector(signal.New(venue, signal.OptionsFromConfig(cfg)))
}

// initializeEngine returns the execution gateway wrapped with observability
func initializeEngine(cfg *store.Config, venue interfaces.Venue) interfaces.Executor {
	return engineobs.Wrap(engine.New(cfg, venue))
}

// initializeRemote returns the off-host copy of the journal, nil when none
// is configured
func initializeRemote(ctx context.Context, cfg *store.Config) interfaces.RemoteStore {
	switch cfg.Remote.Provider {
	case "DRIVE":
		logger.Info(ctx, "Mirroring journal to Google Drive", "name", cfg.Journal.RemoteName)
		return remote.NewDrive(cfg.Remote.BaseURL, cfg.Secrets.DriveAccessToken, cfg.Secrets.DriveFileID, cfg.Journal.RemoteName)
	case "DIR":
		logger.Info(ctx, "Mirroring journal to directory", "dir", cfg.Remote.Dir)
		return remote.NewDir(cfg.Remote.Dir, cfg.Journal.RemoteName)
	}
	logger.Warn(ctx, "No remote store configured - journal lives on this host only")
	return nil
}

// initializeNotifier returns the trade notifier
func initializeNotifier(ctx context.Context, cfg *store.Config) interfaces.Notifier {
	if cfg.Notify.Provider == "TELEGRAM" {
		return notify.NewTelegram(cfg.Notify.BaseURL, cfg.Secrets.TelegramToken, cfg.Secrets.TelegramChatID)
	}
	logger.Warn(ctx, "No notifier configured - trades will not be announced")
	return notify.Noop{}
}

// initializeEOD returns the daily summarizer wrapped with observability
func initializeEOD(cfg *store.Config) interfaces.EodSummarizer {
	return eodobs.Wrap(eod.NewSummarizer(cfg.LogDir))
}

// initializeSupervisor wires every collaborator into the trading loop
func initializeSupervisor(ctx context.Context, cfg *store.Config) *supervisor.Supervisor {
	venue := initializeVenue(ctx, cfg)
	mirror := journal.NewMirror(cfg.Journal.Path, initializeRemote(ctx, cfg))
	summarizer := initializeEOD(cfg)

	return supervisor.New(supervisor.Deps{
		Venue:    venue,
		Detector: initializeDetector(cfg, venue),
		Executor: initializeEngine(cfg, venue),
		Mirror:   mirror,
		Notifier: initializeNotifier(ctx, cfg),
	}, supervisor.Options{
		Symbol:      cfg.Symbol,
		Credentials: cfg.VenueCredentials(),
		Interval:    cfg.PollInterval(),
		Backoff:     cfg.ReconnectBackoff(),
		OnNewDay: func(ctx context.Context, day time.Time) {
			if p, err := summarizer.SummarizeDay(mirror.Journal().Records(), day); err == nil && p != "" {
				logger.Info(ctx, "EOD CSV written", "path", p)
			}
			compressOldLogs(ctx, cfg)
		},
	})
}
