package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/CTAG07/Quatrain/internal/config"
	"github.com/CTAG07/Quatrain/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfg    = config.Default()
	logger = logging.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "quatrain",
	Short: "Quatrain writes poems with an n-gram Markov chain",
	Long: `Quatrain cleans a raw poetry corpus, trains variable-order Markov chains on it,
stores them in a file, SQLite or Redis backend, and generates new poems from them.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}

		if backend, _ := cmd.Flags().GetString("store"); backend != "" {
			loaded.Store.Backend = backend
		}
		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			loaded.LogLevel = level
		}
		if err := loaded.Validate(); err != nil {
			return err
		}

		cfg = loaded
		logger = logging.New(logging.ParseLevel(cfg.LogLevel))
		logger.Debug("Configuration loaded",
			slog.String("path", path),
			slog.String("store", cfg.Store.Backend),
		)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// An interrupt cancels the running command's context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "quatrain.json", "Configuration file (.json, .yaml or .yml)")
	rootCmd.PersistentFlags().String("store", "", "Model store backend: file, sqlite or redis")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
}

// modelName is the name a model of the given order is stored under.
func modelName(base string, order int) string {
	return fmt.Sprintf("%s_order%d", base, order)
}

// resolveOrder returns the --order flag when set and the configured order otherwise.
func resolveOrder(cmd *cobra.Command) (int, error) {
	order := cfg.Model.Order
	if cmd.Flags().Changed("order") {
		order, _ = cmd.Flags().GetInt("order")
	}
	if order < 1 {
		return 0, fmt.Errorf("--order must be at least 1, got %d", order)
	}
	return order, nil
}

// resolveName returns the --name flag when set and the derived model name otherwise.
func resolveName(cmd *cobra.Command, order int) string {
	if name, _ := cmd.Flags().GetString("name"); name != "" {
		return name
	}
	return modelName(cfg.Model.Name, order)
}

func addModelFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("order", "k", 0, "N-gram order (defaults to model.order from the config)")
	cmd.Flags().String("name", "", "Stored model name (defaults to <model.name>_order<k>)")
}
