package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"vixfix-trading-bot/internal/journal"
	"vixfix-trading-bot/internal/logger"
	"vixfix-trading-bot/internal/store"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the trading loop until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runBot,
}

var runOnce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that the configuration loads and every provider has credentials",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

var configInitOutput string

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect the trade journal",
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List journaled trades",
	Args:  cobra.NoArgs,
	RunE:  runJournalList,
}

var journalSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Write the EOD CSV for one day",
	Args:  cobra.NoArgs,
	RunE:  runJournalSummary,
}

var journalExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the journal to SQLite",
	Args:  cobra.NoArgs,
	RunE:  runJournalExport,
}

var (
	journalSummaryDay string
	journalExportDB   string
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}

func init() {
	rootCmd.AddCommand(runCmd, configCmd, journalCmd, versionCmd)
	configCmd.AddCommand(configInitCmd, configValidateCmd)
	journalCmd.AddCommand(journalListCmd, journalSummaryCmd, journalExportCmd)

	runCmd.Flags().BoolVar(&runOnce, "once", false, "run a single cycle and exit")
	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "config.yaml", "output config file path")
	journalSummaryCmd.Flags().StringVar(&journalSummaryDay, "day", "", "UTC day as YYYY-MM-DD (default today)")
	journalExportCmd.Flags().StringVar(&journalExportDB, "db", "journal.sqlite", "path to SQLite database")
}

func runBot(cmd *cobra.Command, args []string) error {
	if err := initializeSystem(); err != nil {
		return err
	}
	defer shutdownSystem()

	ctx, stop := ossignal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(ctx, configPath)
	if err != nil {
		return err
	}
	compressOldLogs(ctx, cfg)

	if cfg.Mode == "DRY_RUN" {
		logger.Warn(ctx, "Running in DRY_RUN mode - orders will be simulated")
	}

	sup := initializeSupervisor(ctx, cfg)
	logger.Info(ctx, "Bot started", "symbol", cfg.Symbol, "mode", cfg.Mode, "version", version)

	if runOnce {
		err = sup.RunCycle(ctx)
	} else {
		err = sup.Run(ctx)
	}
	if errors.Is(err, context.Canceled) {
		logger.Info(ctx, "Shutting down...")
		return nil
	}
	return err
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(configInitOutput); err == nil {
		return fmt.Errorf("%s already exists", configInitOutput)
	}
	if err := store.Default().Save(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created default configuration: %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if err := initializeSystem(); err != nil {
		return err
	}
	defer shutdownSystem()

	cfg, err := loadConfig(cmd.Context(), configPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s is valid (mode=%s venue=%s remote=%s notify=%s)\n",
		configPath, cfg.Mode, cfg.Venue.Provider, cfg.Remote.Provider, cfg.Notify.Provider)
	return nil
}

// openJournal loads the local journal named by the config. Credentials are
// not needed to read it.
func openJournal() (*store.Config, *journal.Journal, error) {
	cfg, err := store.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	j, err := journal.Load(cfg.Journal.Path)
	if err != nil {
		return nil, nil, err
	}
	return cfg, j, nil
}

func runJournalList(cmd *cobra.Command, args []string) error {
	_, j, err := openJournal()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tDIRECTION\tLOT\tENTRY\tSL\tTP\tTAG")
	for _, r := range j.Records() {
		fmt.Fprintf(w, "%s\t%s\t%g\t%.2f\t%.2f\t%.2f\t%s\n", r.Timestamp, r.Direction, r.Lot, r.Entry, r.SL, r.TP, r.Tag)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d trade(s)\n", j.Len())
	return nil
}

func runJournalSummary(cmd *cobra.Command, args []string) error {
	if err := initializeSystem(); err != nil {
		return err
	}
	defer shutdownSystem()

	cfg, j, err := openJournal()
	if err != nil {
		return err
	}

	day := time.Now().UTC()
	if journalSummaryDay != "" {
		day, err = time.Parse("2006-01-02", journalSummaryDay)
		if err != nil {
			return fmt.Errorf("day: %w", err)
		}
	}

	p, err := initializeEOD(cfg).SummarizeDay(j.Records(), day)
	if err != nil {
		return err
	}
	if p == "" {
		fmt.Fprintf(cmd.OutOrStdout(), "No trades on %s\n", day.Format("2006-01-02"))
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "EOD CSV written: %s\n", p)
	return nil
}

func runJournalExport(cmd *cobra.Command, args []string) error {
	_, j, err := openJournal()
	if err != nil {
		return err
	}
	if err := journal.ExportSQLite(journalExportDB, j.Records()); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d trade(s) to %s\n", j.Len(), journalExportDB)
	return nil
}
