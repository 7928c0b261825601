package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/CTAG07/Quatrain/pkg/corpus"
	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Split the raw corpus into framed poems",
	Long: `Reads the raw corpus, drops section numbers, attaches all-capital titles, splits poems on
runs of blank lines, and writes the result as a JSON array of {"title", "text"} records.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetString("raw")
		outDir, _ := cmd.Flags().GetString("out-dir")
		outFile, _ := cmd.Flags().GetString("out-file")
		if raw == "" {
			raw = cfg.Corpus.RawPath
		}
		if outDir == "" {
			outDir = cfg.Corpus.CleanedDir
		}
		if outFile == "" {
			outFile = cfg.Corpus.CleanedFile
		}
		return runClean(cmd.Context(), cmd.OutOrStdout(), logger, raw, outDir, outFile)
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)

	cleanCmd.Flags().String("raw", "", "Raw corpus file (defaults to corpus.raw_path)")
	cleanCmd.Flags().String("out-dir", "", "Output directory (defaults to corpus.cleaned_dir)")
	cleanCmd.Flags().String("out-file", "", "Output file name (defaults to corpus.cleaned_file)")
}

func runClean(ctx context.Context, out io.Writer, logger *slog.Logger, raw, outDir, outFile string) error {
	poems, err := corpus.SegmentFile(raw)
	if err != nil {
		return fmt.Errorf("failed to segment %s: %w", raw, err)
	}
	if err := corpus.WriteJSON(outDir, outFile, poems); err != nil {
		return err
	}

	path := filepath.Join(outDir, outFile)
	logger.InfoContext(ctx, "Corpus cleaned",
		slog.String("raw", raw),
		slog.String("output", path),
		slog.Int("poems", len(poems)),
	)
	_, _ = fmt.Fprintf(out, "Wrote %d poems to %s\n", len(poems), path)
	return nil
}
