package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"aegis/internal/config"
	"aegis/internal/filter"
	"aegis/internal/framework"
	"aegis/internal/logging"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "aegis",
	Short: "aegis - content safety and session pacing framework",
	Long: `aegis is a content-moderation and session-pacing library with a small
CLI for exercising it: it classifies text for trauma triggers, applies
per-user filters, paces session intensity, and keeps an auditable safety log.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// newFramework loads config and brings up an initialized framework.
func newFramework(ctx context.Context) (*framework.Framework, *config.SafetyConfiguration, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	fw, err := framework.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := fw.Initialize(ctx); err != nil {
		return nil, nil, err
	}
	return fw, cfg, nil
}

// initCmd writes a default configuration file
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.DefaultConfiguration()
		if err := cfg.Save(configPath); err != nil {
			return err
		}
		logger.Info("Configuration written", zap.String("path", configPath))
		fmt.Printf("wrote %s\n", configPath)
		return nil
	},
}

// checkCmd analyzes one piece of content through a throwaway session
var checkCmd = &cobra.Command{
	Use:   "check [content]",
	Short: "Analyze a piece of content through a fresh session",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		fw, _, err := newFramework(ctx)
		if err != nil {
			return err
		}
		defer fw.Shutdown(ctx)

		session, err := fw.CreateSession(ctx, "cli-user", nil)
		if err != nil {
			return err
		}
		defer fw.EndSession(ctx, session.ID)

		content := args[0]
		logger.Debug("Analyzing content",
			zap.Int("length", len(content)),
			zap.String("filters", filter.DescribeFilters(session.Filters)))
		analysis, err := fw.ValidateContent(ctx, content, session.ID)
		if err != nil {
			return err
		}
		printAnalysis(analysis)
		return nil
	},
}

// reportCmd renders a safety report over the last N days
var reportDays int

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a safety report from the archived log",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		fw, _, err := newFramework(ctx)
		if err != nil {
			return err
		}
		defer fw.Shutdown(ctx)

		report, err := fw.GenerateSafetyReport("summary", logging.TimeRange{
			From: time.Now().AddDate(0, 0, -reportDays),
		})
		if err != nil {
			return err
		}
		printReport(report)
		return nil
	},
}

// exportCmd dumps the safety log for compliance handoff
var exportFormat string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the safety log (json, csv, or xml)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		fw, _, err := newFramework(ctx)
		if err != nil {
			return err
		}
		defer fw.Shutdown(ctx)

		data, err := fw.Logger().Export(logging.ExportFormat(exportFormat), logging.TimeRange{})
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "aegis.yaml", "configuration file")
	reportCmd.Flags().IntVar(&reportDays, "days", 7, "reporting window in days")
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "export format: json, csv, xml")

	rootCmd.AddCommand(initCmd, checkCmd, reportCmd, exportCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
