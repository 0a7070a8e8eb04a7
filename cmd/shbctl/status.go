package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shellbench/shellbench/internal/daemon"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether a shellbench daemon is running",
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, err := dataDirFromConfig()
		if err != nil {
			return err
		}

		info, err := daemon.ReadLockInfo(dataDir)
		if err != nil {
			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(map[string]any{"running": false})
			}
			fmt.Println("no daemon lock found; shbd is not running")
			return nil
		}

		stale := info.IsStale()
		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(map[string]any{
				"running":    !stale,
				"pid":        info.PID,
				"version":    info.Version,
				"started_at": info.StartedAt,
				"data_dir":   info.DataDir,
				"stale":      stale,
			})
		}

		if stale {
			fmt.Printf("daemon.lock found for pid %d but that process is not running (stale lock)\n", info.PID)
			return nil
		}
		fmt.Printf("shbd running: pid=%d version=%s started=%s\n", info.PID, info.Version, info.StartedAt.Format("2006-01-02T15:04:05Z07:00"))
		return nil
	},
}
