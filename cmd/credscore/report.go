package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/credscore/internal/config"
	"github.com/rewired-gh/credscore/internal/logger"
	"github.com/rewired-gh/credscore/internal/report"
	"github.com/rewired-gh/credscore/internal/storage"
)

func newReportCmd(root *rootOptions) *cobra.Command {
	var scores string
	var topK int

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show the distribution of computed credit scores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig(cmd)
			if err != nil {
				return err
			}
			if scores != "" {
				cfg.Output.Path = scores
			}
			return runReport(cmd.Context(), cmd.OutOrStdout(), cfg, topK)
		},
	}
	cmd.Flags().StringVarP(&scores, "scores", "s", "", "score file (overrides output.path)")
	cmd.Flags().IntVar(&topK, "top", 10, "number of top wallets to list")
	return cmd
}

func runReport(ctx context.Context, w io.Writer, cfg *config.Config, topK int) error {
	store := storage.New(cfg.Output.Path, cfg.Output.FilePermissions, cfg.Output.DirPermissions)
	scores, err := store.Load()
	if err != nil {
		if errors.Is(err, storage.ErrScoresNotFound) {
			return fmt.Errorf("%w; run `credscore score` first", err)
		}
		return err
	}

	d := report.Build(scores, cfg.Report.Bins, topK)
	if cfg.Output.DBPath != "" {
		if err := fillFromDB(ctx, cfg.Output.DBPath, topK, &d.Summary); err != nil {
			logger.Warn("Skipping score database: %v", err)
		}
	}
	if err := report.Render(w, d, cfg.Report.Width); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	if cfg.Report.Path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Report.Path), cfg.Output.DirPermissions); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	f, err := os.OpenFile(cfg.Report.Path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, cfg.Output.FilePermissions)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	if err := report.Render(f, d, cfg.Report.Width); err != nil {
		f.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	logger.Info("Report written to %s", cfg.Report.Path)
	return nil
}

// fillFromDB takes the top wallets and the latest run's duration from the
// score database, when one has been written.
func fillFromDB(ctx context.Context, path string, topK int, summary *report.Summary) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	db, err := storage.OpenScoreDB(path, 0)
	if err != nil {
		return err
	}
	defer db.Close()

	if topK > 0 {
		top, err := db.TopScores(ctx, topK)
		if err != nil {
			return err
		}
		summary.Top = top
	}

	runs, err := db.Runs(ctx)
	if err != nil {
		return err
	}
	if len(runs) > 0 {
		latest := runs[len(runs)-1]
		summary.Duration = latest.Duration
		logger.Debug("Latest run %s scored %d wallets at %s", latest.ID, latest.Wallets, latest.StartedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
