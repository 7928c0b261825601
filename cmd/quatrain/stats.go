package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/CTAG07/Quatrain/pkg/markov"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print statistics for a stored model",
	RunE: func(cmd *cobra.Command, args []string) error {
		order, err := resolveOrder(cmd)
		if err != nil {
			return err
		}
		store, closeStore, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		name := resolveName(cmd, order)
		t, err := store.Load(cmd.Context(), name)
		if err != nil {
			return err
		}
		printStats(cmd.OutOrStdout(), name, t.Stats())
		return nil
	},
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove rare transitions from a stored model",
	Long:  `Deletes every transition seen --min-freq times or fewer and stores the smaller model under the same name.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		order, err := resolveOrder(cmd)
		if err != nil {
			return err
		}
		minFreq, _ := cmd.Flags().GetInt("min-freq")

		store, closeStore, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		name := resolveName(cmd, order)
		removed, err := runPrune(cmd.Context(), logger, store, name, minFreq)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed %d transitions from %s\n", removed, name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(pruneCmd)

	addModelFlags(statsCmd)
	addModelFlags(pruneCmd)
	pruneCmd.Flags().Int("min-freq", 1, "Remove transitions with a count less than or equal to this")
}

// inPlacePruner is implemented by stores that can prune without a round trip.
type inPlacePruner interface {
	Prune(ctx context.Context, name string, minFreq int) (int64, error)
}

func runPrune(ctx context.Context, logger *slog.Logger, store markov.Store, name string, minFreq int) (int64, error) {
	if p, ok := store.(inPlacePruner); ok {
		return p.Prune(ctx, name, minFreq)
	}

	t, err := store.Load(ctx, name)
	if err != nil {
		return 0, err
	}
	pruned := t.Prune(minFreq)
	if err := store.Save(ctx, name, pruned); err != nil {
		return 0, fmt.Errorf("could not save pruned model %q: %w", name, err)
	}

	removed := int64(t.Stats().Transitions - pruned.Stats().Transitions)
	logger.InfoContext(ctx, "Model pruned",
		slog.String("model_name", name),
		slog.Int("min_frequency", minFreq),
		slog.Int64("chains_removed", removed),
	)
	return removed, nil
}
