package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/CTAG07/Quatrain/pkg/corpus"
	"github.com/CTAG07/Quatrain/pkg/markov"
	"github.com/spf13/cobra"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a model on the cleaned corpus and store it",
	RunE: func(cmd *cobra.Command, args []string) error {
		order, err := resolveOrder(cmd)
		if err != nil {
			return err
		}
		corpusPath, _ := cmd.Flags().GetString("corpus")
		if corpusPath == "" {
			corpusPath = cfg.Corpus.CleanedPath()
		}

		store, closeStore, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		m, err := runTrain(cmd.Context(), logger, store, corpusPath, order, resolveName(cmd, order))
		if err != nil {
			return err
		}
		printStats(cmd.OutOrStdout(), resolveName(cmd, order), m.Table().Stats())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(trainCmd)

	trainCmd.Flags().String("corpus", "", "Cleaned corpus JSON (defaults to the configured cleaned path)")
	addModelFlags(trainCmd)
}

// runTrain builds a model of the given order from the corpus at corpusPath
// and saves it under name.
func runTrain(ctx context.Context, logger *slog.Logger, store markov.Store, corpusPath string, order int, name string) (*markov.Model, error) {
	words, err := corpus.LoadFile(corpusPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}
	m, err := markov.NewModel(order)
	if err != nil {
		return nil, err
	}
	m.SetLogger(logger)
	if err := m.TrainAndSave(ctx, words, store, name); err != nil {
		return nil, err
	}
	return m, nil
}

func printStats(out io.Writer, name string, s markov.Stats) {
	_, _ = fmt.Fprintf(out, "model:        %s\n", name)
	_, _ = fmt.Fprintf(out, "order:        %d\n", s.Order)
	_, _ = fmt.Fprintf(out, "states:       %d\n", s.States)
	_, _ = fmt.Fprintf(out, "transitions:  %d\n", s.Transitions)
	_, _ = fmt.Fprintf(out, "frequency:    %d\n", s.TotalFrequency)
	_, _ = fmt.Fprintf(out, "start states: %d\n", s.StartStates)
	_, _ = fmt.Fprintf(out, "vocabulary:   %d\n", s.Vocabulary)
}
