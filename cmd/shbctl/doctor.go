package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shellbench/shellbench/internal/blockstore"
	"github.com/shellbench/shellbench/internal/daemon"
	"github.com/shellbench/shellbench/internal/store"
)

const (
	statusOK      = "ok"
	statusWarning = "warning"
	statusError   = "error"
)

type doctorCheck struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run health checks against the data directory",
	Long: `Checks the daemon lock for a stale PID, the database's integrity
(PRAGMA quick_check), the number of block ids in the blockstore, and the
backlog of undrained screenupdate rows. Blockstore and shellstate row counts
are not cross-referenced.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, err := dataDirFromConfig()
		if err != nil {
			return err
		}
		var checks []doctorCheck
		checks = append(checks, checkLock(dataDir))
		checks = append(checks, checkDatabase(dataDir)...)

		overallOK := true
		for _, c := range checks {
			if c.Status == statusError {
				overallOK = false
			}
		}

		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(map[string]any{
				"checks":     checks,
				"overall_ok": overallOK,
			})
		}

		for _, c := range checks {
			fmt.Printf("[%s] %s: %s\n", c.Status, c.Name, c.Message)
		}
		if !overallOK {
			os.Exit(1)
		}
		return nil
	},
}

func checkLock(dataDir string) doctorCheck {
	info, err := daemon.ReadLockInfo(dataDir)
	if err != nil {
		return doctorCheck{Name: "daemon-lock", Status: statusWarning, Message: "no daemon.lock found; shbd has never run in this data directory"}
	}
	if info.IsStale() {
		return doctorCheck{Name: "daemon-lock", Status: statusError, Message: fmt.Sprintf("daemon.lock claims pid %d but that process is not running; the next shbd start takes the lock over", info.PID)}
	}
	return doctorCheck{Name: "daemon-lock", Status: statusOK, Message: fmt.Sprintf("shbd running as pid %d", info.PID)}
}

func checkDatabase(dataDir string) []doctorCheck {
	ctx := context.Background()
	s, err := store.New(ctx, store.Config{DBPath: dataDir + "/shellbench.db", ReadOnly: true})
	if err != nil {
		return []doctorCheck{{Name: "database", Status: statusError, Message: fmt.Sprintf("cannot open database: %v", err)}}
	}
	defer s.Close()

	var checks []doctorCheck

	var quickCheck string
	if err := s.UnderlyingDB().QueryRowContext(ctx, "PRAGMA quick_check(1)").Scan(&quickCheck); err != nil {
		checks = append(checks, doctorCheck{Name: "integrity", Status: statusError, Message: fmt.Sprintf("quick_check failed: %v", err)})
	} else if quickCheck != "ok" {
		checks = append(checks, doctorCheck{Name: "integrity", Status: statusError, Message: fmt.Sprintf("quick_check reported: %s", quickCheck)})
	} else {
		checks = append(checks, doctorCheck{Name: "integrity", Status: statusOK, Message: "quick_check passed"})
	}

	bs := blockstore.New(s)
	blockIds, err := bs.GetAllBlockIds(ctx)
	if err != nil {
		checks = append(checks, doctorCheck{Name: "blockstore", Status: statusError, Message: fmt.Sprintf("GetAllBlockIds failed: %v", err)})
	} else {
		checks = append(checks, doctorCheck{Name: "blockstore", Status: statusOK, Message: fmt.Sprintf("%d block ids present", len(blockIds))})
	}

	var pendingUpdates int
	if err := s.QueryRow(ctx, func(row *sql.Row) error {
		return row.Scan(&pendingUpdates)
	}, "SELECT COUNT(*) FROM screenupdate"); err != nil {
		checks = append(checks, doctorCheck{Name: "update-log", Status: statusError, Message: fmt.Sprintf("cannot read screenupdate: %v", err)})
	} else if pendingUpdates > 10000 {
		checks = append(checks, doctorCheck{Name: "update-log", Status: statusWarning, Message: fmt.Sprintf("%d undrained screenupdate rows; UpdateWriter may not be running", pendingUpdates)})
	} else {
		checks = append(checks, doctorCheck{Name: "update-log", Status: statusOK, Message: fmt.Sprintf("%d undrained screenupdate rows", pendingUpdates)})
	}

	return checks
}
