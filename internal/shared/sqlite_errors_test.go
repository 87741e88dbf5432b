package shared

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func TestIsSQLiteConflictError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"busy", errors.New("sqlite: step: SQLITE_BUSY"), true},
		{"busy message", errors.New("database is locked (5)"), true},
		{"table locked", errors.New("database table is locked (6) (SQLITE_LOCKED)"), true},
		{"wrapped", fmt.Errorf("delete idle users: %w", errors.New("SQLITE_BUSY")), true},
		{"other", errors.New("no such table: users"), false},
	}
	for _, tt := range tests {
		if got := IsSQLiteConflictError(tt.err); got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestRetryOnConflict(t *testing.T) {
	t.Parallel()

	busy := errors.New("SQLITE_BUSY")

	t.Run("succeeds after conflicts", func(t *testing.T) {
		t.Parallel()
		calls := 0
		err := RetryOnConflict(context.Background(), "op", 3, time.Millisecond, func(context.Context) error {
			calls++
			if calls < 3 {
				return busy
			}
			return nil
		})
		if err != nil || calls != 3 {
			t.Fatalf("err=%v calls=%d", err, calls)
		}
	})

	t.Run("gives up", func(t *testing.T) {
		t.Parallel()
		calls := 0
		err := RetryOnConflict(context.Background(), "delete users", 2, time.Millisecond, func(context.Context) error {
			calls++
			return busy
		})
		if !errors.Is(err, busy) || calls != 2 {
			t.Fatalf("err=%v calls=%d", err, calls)
		}
		if err.Error() != "delete users after 2 attempts: SQLITE_BUSY" {
			t.Errorf("error = %q", err.Error())
		}
	})

	t.Run("does not retry other errors", func(t *testing.T) {
		t.Parallel()
		other := errors.New("constraint failed")
		calls := 0
		err := RetryOnConflict(context.Background(), "op", 5, time.Millisecond, func(context.Context) error {
			calls++
			return other
		})
		if !errors.Is(err, other) || calls != 1 {
			t.Fatalf("err=%v calls=%d", err, calls)
		}
	})

	t.Run("stops on cancellation", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := RetryOnConflict(ctx, "op", 3, time.Hour, func(context.Context) error { return busy })
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err=%v", err)
		}
	})
}

// A second connection writing while the first holds an exclusive transaction
// gets a real driver SQLITE_BUSY, classified by result code.
func TestDriverBusyErrorIsConflict(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "busy.db")

	holder, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open holder: %v", err)
	}
	defer holder.Close()
	if _, err := holder.ExecContext(ctx, `CREATE TABLE users (user_id TEXT PRIMARY KEY)`); err != nil {
		t.Fatalf("create table: %v", err)
	}

	conn, err := holder.Conn(ctx)
	if err != nil {
		t.Fatalf("conn: %v", err)
	}
	defer conn.Close()
	if _, err := conn.ExecContext(ctx, `BEGIN EXCLUSIVE`); err != nil {
		t.Fatalf("begin exclusive: %v", err)
	}
	defer func() { _, _ = conn.ExecContext(ctx, `ROLLBACK`) }()

	writer, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(0)")
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	defer writer.Close()

	_, err = writer.ExecContext(ctx, `INSERT INTO users (user_id) VALUES ('anon_1')`)
	if err == nil {
		t.Fatal("expected the write to fail while the lock is held")
	}
	if sqliteCode(err) == 0 {
		t.Fatalf("expected a driver error, got %T: %v", err, err)
	}
	if !IsSQLiteBusyError(err) || !IsSQLiteConflictError(err) {
		t.Errorf("driver error not classified as busy: %v", err)
	}
	if IsSQLiteLockedError(err) {
		t.Errorf("busy error classified as locked: %v", err)
	}
	if IsSQLiteConflictError(fmt.Errorf("wrapped: %w", errors.New("constraint failed"))) {
		t.Error("unrelated error classified as conflict")
	}
}
