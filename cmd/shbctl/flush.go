package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shellbench/shellbench/internal/blockstore"
	"github.com/shellbench/shellbench/internal/store"
)

var flushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Run one blockstore FlushCache pass against the data directory",
	Long: `Runs one FlushCache pass against the data directory's database.

shbctl opens its own blockstore, whose cache starts empty, so the pass writes
only entries cached by this process. Dirty entries held in a running shbd's
cache are not reached; the daemon's own flush ticker writes those.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, err := dataDirFromConfig()
		if err != nil {
			return err
		}
		ctx := context.Background()
		s, err := store.New(ctx, store.Config{DBPath: dataDir + "/shellbench.db"})
		if err != nil {
			return fmt.Errorf("shbctl: open store: %w", err)
		}
		defer s.Close()

		bs := blockstore.New(s)
		if err := bs.FlushCache(ctx); err != nil {
			return fmt.Errorf("shbctl: flush: %w", err)
		}
		fmt.Println("flush complete")
		return nil
	},
}
