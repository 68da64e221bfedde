package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rewired-gh/credscore/internal/config"
	"github.com/rewired-gh/credscore/internal/logger"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		logger.Fatal("%v", err)
	}
}

type rootOptions struct {
	configPath string
	envFile    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "credscore",
		Short:         "Score DeFi lending wallets from their transaction history",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfigPath, "path to configuration file")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded into the environment before configuration")

	root.AddCommand(newScoreCmd(opts))
	root.AddCommand(newReportCmd(opts))
	return root
}

// loadConfig loads the environment file and configuration, then initializes
// logging. A missing default config file or .env is not an error; an
// explicitly named one is.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := godotenv.Load(o.envFile); err != nil {
		if !errors.Is(err, fs.ErrNotExist) || cmd.Flags().Changed("env-file") {
			return nil, fmt.Errorf("failed to load env file %s: %w", o.envFile, err)
		}
	}

	path := o.configPath
	if !cmd.Flags().Changed("config") {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	if path != "" {
		logger.Info("Configuration loaded from %s", path)
	} else {
		logger.Debug("No configuration file, using defaults and environment")
	}
	return cfg, nil
}
