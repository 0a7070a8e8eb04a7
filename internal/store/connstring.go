package store

import (
	"fmt"
	"strings"
	"time"
)

// sqliteConnString builds a SQLite connection string with the pragmas the
// store relies on: busy_timeout (so a momentarily-busy single writer returns
// SQLITE_BUSY instead of blocking forever under WAL contention), foreign_keys
// (enforces the schema's foreign-key reference from state_diff to state_base;
// the cascading deletes in §4.E are done by explicit DELETE statements), and
// a WAL journal so readers never block the one writer transaction.
func sqliteConnString(path string, readOnly bool, busyTimeout time.Duration) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	busyMs := int64(busyTimeout / time.Millisecond)

	conn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(ON)&_pragma=journal_mode(WAL)",
		path, busyMs)
	if readOnly {
		conn += "&mode=ro"
	}
	return conn
}
