package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/credscore/internal/config"
	"github.com/rewired-gh/credscore/internal/ingest"
	"github.com/rewired-gh/credscore/internal/logger"
	"github.com/rewired-gh/credscore/internal/observability"
	"github.com/rewired-gh/credscore/internal/pipeline"
	"github.com/rewired-gh/credscore/internal/report"
	"github.com/rewired-gh/credscore/internal/storage"
	"github.com/rewired-gh/credscore/internal/telegram"
)

func newScoreCmd(root *rootOptions) *cobra.Command {
	var input, format, output string

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Compute credit scores from a transaction export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig(cmd)
			if err != nil {
				return err
			}
			if input != "" {
				cfg.Input.Path = input
			}
			if format != "" {
				cfg.Input.Format = format
			}
			if output != "" {
				cfg.Output.Path = output
			}
			return runScore(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "transaction file (overrides input.path)")
	cmd.Flags().StringVar(&format, "format", "", "input format: auto, json or csv (overrides input.format)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "score file (overrides output.path)")
	return cmd
}

func runScore(ctx context.Context, cfg *config.Config) error {
	metrics := observability.NewMetrics("")

	logger.Info("Loading transactions from %s", cfg.Input.Path)
	loadStart := time.Now()
	records, err := ingest.Load(cfg.Input.Path, ingest.Format(cfg.Input.Format))
	if err != nil {
		return fmt.Errorf("failed to load transactions: %w", err)
	}
	metrics.ObserveStage("ingest", time.Since(loadStart))
	logger.Info("Loaded %d transactions", len(records))

	p, err := pipeline.New(pipeline.Options{Workers: cfg.Scoring.Workers, Metrics: metrics})
	if err != nil {
		return err
	}

	res, err := p.Run(ctx, records)
	if err != nil {
		return fmt.Errorf("scoring run failed: %w", err)
	}

	store := storage.New(cfg.Output.Path, cfg.Output.FilePermissions, cfg.Output.DirPermissions)
	if err := store.Save(res.Ranked); err != nil {
		return fmt.Errorf("failed to save scores: %w", err)
	}
	logger.Info("Saved %d wallet scores to %s", len(res.Ranked), store.Path())

	if cfg.Output.DBPath != "" {
		if err := saveToDB(ctx, cfg, res); err != nil {
			logger.Error("Failed to save scores to database: %v", err)
		} else {
			logger.Info("Saved scores to database %s", cfg.Output.DBPath)
		}
	}

	summary := report.Summarize(res.Ranked, cfg.Telegram.TopK)
	summary.Duration = res.Duration
	logger.Get().Info().
		Str("run_id", res.RunID.String()).
		Int("wallets", summary.Count).
		Float64("mean", summary.Mean).
		Float64("median", summary.Median).
		Int("min", summary.Min).
		Int("max", summary.Max).
		Dur("duration", summary.Duration).
		Msg("Score summary")

	if cfg.Telegram.Enabled {
		client, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			logger.Error("Failed to initialize Telegram client: %v", err)
		} else if err := client.Send(ctx, res.RunID, summary); err != nil {
			logger.Error("Failed to send Telegram summary: %v", err)
		} else {
			logger.Info("Telegram summary sent")
		}
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	writeMetrics(cfg, metrics)
	return nil
}

func saveToDB(ctx context.Context, cfg *config.Config, res *pipeline.Result) error {
	db, err := storage.OpenScoreDB(cfg.Output.DBPath, cfg.Output.DirPermissions)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database: %v", err)
		}
	}()

	run := storage.RunInfo{ID: res.RunID, StartedAt: res.StartedAt, Duration: res.Duration}
	return db.ReplaceScores(ctx, run, res.Ranked)
}

// writeMetrics exports the metrics textfile. Only completed runs write one.
func writeMetrics(cfg *config.Config, metrics *observability.Metrics) {
	if cfg.Metrics.TextfilePath == "" {
		return
	}
	if err := metrics.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
		logger.Warn("%v", err)
	}
}
