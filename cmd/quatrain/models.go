package main

import (
	"context"
	"fmt"
	"io"

	"github.com/CTAG07/Quatrain/pkg/store/file"
	"github.com/CTAG07/Quatrain/pkg/store/redis"
	"github.com/CTAG07/Quatrain/pkg/store/sqlite"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored models",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer closeStore()
		return runList(cmd.Context(), cmd.OutOrStdout(), store)
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove NAME",
	Short: "Delete a stored model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer closeStore()
		return store.Remove(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(removeCmd)
}

func runList(ctx context.Context, out io.Writer, store modelStore) error {
	switch s := store.(type) {
	case *sqlite.Store:
		models, err := s.List(ctx)
		if err != nil {
			return err
		}
		for _, m := range models {
			_, _ = fmt.Fprintf(out, "%s\torder %d\n", m.Name, m.Order)
		}
	case *redis.Store:
		names, err := s.List(ctx)
		if err != nil {
			return err
		}
		for _, name := range names {
			_, _ = fmt.Fprintln(out, name)
		}
	case *file.Store:
		names, err := s.List(ctx)
		if err != nil {
			return err
		}
		for _, name := range names {
			_, _ = fmt.Fprintln(out, name)
		}
	default:
		return fmt.Errorf("store %T cannot list models", store)
	}
	return nil
}
