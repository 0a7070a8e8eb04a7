package workspace

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shellbench/shellbench/internal/store"
)

// fmtUniqueName renders pattern with n (e.g. "workspace-%d") and increments n
// until no row of table has the candidate name.
func fmtUniqueName(ctx context.Context, tx *sql.Tx, s *store.Store, table, pattern string, n int) (string, error) {
	for {
		candidate := fmt.Sprintf(pattern, n)
		var count int
		err := s.TxQueryRow(ctx, tx, func(row *sql.Row) error {
			return row.Scan(&count)
		}, fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE name = ?", table), candidate)
		if err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
		n++
	}
}
