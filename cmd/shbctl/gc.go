package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shellbench/shellbench/internal/blockstore"
	"github.com/shellbench/shellbench/internal/store"
)

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Reclaim disk space: collapse incremental-JSON files, then VACUUM",
	Long: `Walks every blockstore file and collapses the ones written in
incremental-JSON form (FileOpts.IJson) into their compacted snapshot, then
runs SQLite's VACUUM against the data directory's database to reclaim space
left behind by deleted screens, sessions, and drained screenupdate rows.

Requires shbd to be stopped: VACUUM needs exclusive access to the database
file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, err := dataDirFromConfig()
		if err != nil {
			return err
		}
		ctx := context.Background()
		dbPath := dataDir + "/shellbench.db"

		before, _ := fileSize(dbPath)

		s, err := store.New(ctx, store.Config{DBPath: dbPath})
		if err != nil {
			return fmt.Errorf("shbctl: open store: %w", err)
		}
		defer s.Close()

		collapsed, err := collapseIJsonFiles(ctx, blockstore.New(s))
		if err != nil {
			return fmt.Errorf("shbctl: collapse incremental-JSON files: %w", err)
		}

		if _, err := s.UnderlyingDB().ExecContext(ctx, "VACUUM"); err != nil {
			return fmt.Errorf("shbctl: vacuum: %w", err)
		}

		after, _ := fileSize(dbPath)
		fmt.Printf("gc complete: collapsed %d incremental-JSON file(s), %d bytes -> %d bytes\n", collapsed, before, after)
		return nil
	},
}

// collapseIJsonFiles walks every block and file, collapsing the ones
// written in incremental-JSON form. Blocks are independent, so one file's
// error does not stop the pass over the rest.
func collapseIJsonFiles(ctx context.Context, bs *blockstore.Blockstore) (int, error) {
	blockIds, err := bs.GetAllBlockIds(ctx)
	if err != nil {
		return 0, err
	}

	collapsed := 0
	var errs []error
	for _, blockId := range blockIds {
		names, err := bs.ListFiles(ctx, blockId)
		if err != nil {
			errs = append(errs, fmt.Errorf("list files for block %s: %w", blockId, err))
			continue
		}
		for _, name := range names {
			info, err := bs.Stat(ctx, blockId, name)
			if err != nil {
				errs = append(errs, fmt.Errorf("stat %s/%s: %w", blockId, name, err))
				continue
			}
			if !info.Opts.IJson {
				continue
			}
			if err := bs.CollapseIJson(ctx, blockId, name); err != nil {
				errs = append(errs, fmt.Errorf("collapse %s/%s: %w", blockId, name, err))
				continue
			}
			collapsed++
		}
	}
	return collapsed, errors.Join(errs...)
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
