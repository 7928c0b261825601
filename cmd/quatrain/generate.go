package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/CTAG07/Quatrain/pkg/markov"
	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

// generateRequest collects everything a single generate run needs.
type generateRequest struct {
	Name       string
	Order      int
	CorpusPath string
	Rebuild    bool
	Render     bool
	Stream     bool
	Options    []markov.GenerateOption
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a poem from a stored model",
	Long: `Loads the stored model for the requested order and walks it from the start token.
When no model is stored yet, --rebuild trains one from the cleaned corpus first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		order, err := resolveOrder(cmd)
		if err != nil {
			return err
		}
		req := generateRequest{
			Name:       resolveName(cmd, order),
			Order:      order,
			CorpusPath: cfg.Corpus.CleanedPath(),
			Rebuild:    cfg.Generate.Rebuild,
		}
		if cmd.Flags().Changed("rebuild") {
			req.Rebuild, _ = cmd.Flags().GetBool("rebuild")
		}
		req.Render, _ = cmd.Flags().GetBool("render")
		req.Stream, _ = cmd.Flags().GetBool("stream")
		if req.Render && req.Stream {
			return errors.New("--render and --stream cannot be used together")
		}

		maxLength := cfg.Generate.MaxLength
		if cmd.Flags().Changed("max") {
			maxLength, _ = cmd.Flags().GetInt("max")
		}
		temperature := cfg.Generate.Temperature
		if cmd.Flags().Changed("temperature") {
			temperature, _ = cmd.Flags().GetFloat64("temperature")
		}
		topK := cfg.Generate.TopK
		if cmd.Flags().Changed("top-k") {
			topK, _ = cmd.Flags().GetInt("top-k")
		}
		req.Options = []markov.GenerateOption{
			markov.WithMaxLength(maxLength),
			markov.WithTemperature(temperature),
			markov.WithTopK(topK),
		}
		if start, _ := cmd.Flags().GetString("start"); start != "" {
			req.Options = append(req.Options, markov.WithStartToken(start))
		}
		if cmd.Flags().Changed("seed") {
			seed, _ := cmd.Flags().GetUint64("seed")
			req.Options = append(req.Options, markov.WithSeed(seed))
		}

		store, closeStore, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		return runGenerate(cmd.Context(), cmd.OutOrStdout(), logger, store, req)
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)

	addModelFlags(generateCmd)
	generateCmd.Flags().IntP("max", "n", 0, "Maximum number of words (defaults to generate.max_length)")
	generateCmd.Flags().String("start", "", "Token to start from (defaults to the start-of-poem marker)")
	generateCmd.Flags().Uint64("seed", 0, "Seed for reproducible output")
	generateCmd.Flags().Float64("temperature", 1.0, "Sampling temperature; 0 always picks the most frequent word")
	generateCmd.Flags().Int("top-k", 0, "Only sample from the k most frequent next words (0 disables)")
	generateCmd.Flags().Bool("rebuild", false, "Train and store the model from the corpus if it is missing")
	generateCmd.Flags().Bool("render", false, "Render the poem for the terminal")
	generateCmd.Flags().Bool("stream", false, "Print words as they are generated")
}

// loadOrRebuild loads the model stored under req.Name, training and storing
// it from req.CorpusPath when it is missing and req.Rebuild is set.
func loadOrRebuild(ctx context.Context, logger *slog.Logger, store markov.Store, req generateRequest) (*markov.Model, error) {
	m, err := markov.NewModel(req.Order)
	if err != nil {
		return nil, err
	}
	m.SetLogger(logger)

	err = m.Load(ctx, store, req.Name)
	switch {
	case err == nil:
		return m, nil
	case !markov.IsModelNotFound(err):
		return nil, err
	case !req.Rebuild:
		return nil, fmt.Errorf("model missing: %w (run train first or pass --rebuild)", err)
	}

	logger.InfoContext(ctx, "Model missing, rebuilding from corpus",
		slog.String("model_name", req.Name),
		slog.String("corpus", req.CorpusPath),
	)
	return runTrain(ctx, logger, store, req.CorpusPath, req.Order, req.Name)
}

func runGenerate(ctx context.Context, out io.Writer, logger *slog.Logger, store markov.Store, req generateRequest) error {
	m, err := loadOrRebuild(ctx, logger, store, req)
	if err != nil {
		return err
	}

	if req.Stream {
		tokens, err := m.GenerateStream(ctx, req.Options...)
		if err != nil {
			return generateError(err)
		}
		first := true
		for tok := range tokens {
			if !first {
				_, _ = io.WriteString(out, " ")
			}
			_, _ = io.WriteString(out, tok)
			first = false
		}
		_, _ = io.WriteString(out, "\n")
		return ctx.Err()
	}

	poem, err := m.GenerateString(ctx, req.Options...)
	if err != nil {
		return generateError(err)
	}

	if req.Render {
		rendered, err := renderPoem(poem)
		if err != nil {
			return fmt.Errorf("failed to render poem: %w", err)
		}
		_, _ = io.WriteString(out, rendered)
		return nil
	}
	_, _ = fmt.Fprintln(out, poem)
	return nil
}

func generateError(err error) error {
	if markov.IsNoStartState(err) {
		return fmt.Errorf("cannot generate: %w", err)
	}
	return err
}

// renderPoem formats the poem as a markdown block quote for the terminal.
func renderPoem(poem string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return "", err
	}
	return r.Render("> " + strings.TrimSpace(poem) + "\n")
}
