// Package shared holds SQLite error classification and the retry helper
// used by background writers.
//
//nolint:revive // "shared" is an intentional package name for cross-cutting helpers.
package shared

import (
	"errors"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// sqliteCode returns the primary result code carried by a driver error, or 0
// when err did not come from the driver.
func sqliteCode(err error) int {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() & 0xff
	}
	return 0
}

// IsSQLiteBusyError reports SQLITE_BUSY: another connection holds the lock.
// Errors flattened to text are matched on the driver's message.
func IsSQLiteBusyError(err error) bool {
	if err == nil {
		return false
	}
	if code := sqliteCode(err); code != 0 {
		return code == sqlite3.SQLITE_BUSY
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// IsSQLiteLockedError reports SQLITE_LOCKED: a conflict inside the same
// connection, usually a table locked by an open statement.
func IsSQLiteLockedError(err error) bool {
	if err == nil {
		return false
	}
	if code := sqliteCode(err); code != 0 {
		return code == sqlite3.SQLITE_LOCKED
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_LOCKED") || strings.Contains(msg, "database table is locked")
}

// IsSQLiteConflictError reports whether err is worth retrying.
func IsSQLiteConflictError(err error) bool {
	return IsSQLiteBusyError(err) || IsSQLiteLockedError(err)
}
