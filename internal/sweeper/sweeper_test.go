package sweeper

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/fabric-console/internal/domain"
	"github.com/ashureev/fabric-console/internal/store"
)

type fakeStore struct {
	mu    sync.Mutex
	ids   []string
	err   error
	calls int
}

func (f *fakeStore) DeleteIdleUsers(context.Context, time.Duration) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	ids := f.ids
	f.ids = nil
	return ids, nil
}

func (f *fakeStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestSweepCallsCleanup(t *testing.T) {
	t.Parallel()

	fs := &fakeStore{ids: []string{"anon_a", "anon_b"}}
	var cleaned []string
	n := Sweep(context.Background(), fs, time.Hour, func(id string) { cleaned = append(cleaned, id) })

	if n != 2 || len(cleaned) != 2 || cleaned[0] != "anon_a" {
		t.Fatalf("n=%d cleaned=%v", n, cleaned)
	}
	if n := Sweep(context.Background(), fs, time.Hour, nil); n != 0 {
		t.Errorf("second sweep removed %d", n)
	}
}

func TestSweepStoreError(t *testing.T) {
	t.Parallel()

	fs := &fakeStore{err: errors.New("disk I/O error")}
	called := false
	if n := Sweep(context.Background(), fs, time.Hour, func(string) { called = true }); n != 0 || called {
		t.Fatalf("n=%d called=%v", n, called)
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	t.Parallel()

	fs := &fakeStore{}
	ctx, cancel := context.WithCancel(context.Background())
	Start(ctx, fs, time.Hour, 5*time.Millisecond, nil)

	deadline := time.Now().Add(2 * time.Second)
	for fs.callCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if fs.callCount() < 2 {
		t.Fatalf("sweeper ran %d times", fs.callCount())
	}

	cancel()
	time.Sleep(20 * time.Millisecond)
	after := fs.callCount()
	time.Sleep(30 * time.Millisecond)
	if fs.callCount() != after {
		t.Error("sweeper kept running after cancel")
	}
}

func TestSweepWithSQLite(t *testing.T) {
	t.Parallel()

	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "sweep.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	ctx := context.Background()
	old := time.Now().Add(-48 * time.Hour)
	for _, u := range []*domain.User{
		{UserID: "anon_old", Username: "anon_old", LastSeenAt: old},
		{UserID: "anon_new", Username: "anon_new", LastSeenAt: time.Now()},
	} {
		if err := repo.UpsertUser(ctx, u); err != nil {
			t.Fatalf("UpsertUser: %v", err)
		}
	}

	var closed []string
	if n := Sweep(ctx, repo, 24*time.Hour, func(id string) { closed = append(closed, id) }); n != 1 {
		t.Fatalf("removed %d users", n)
	}
	if len(closed) != 1 || closed[0] != "anon_old" {
		t.Errorf("closed = %v", closed)
	}
	if u, err := repo.GetUser(ctx, "anon_new"); err != nil || u == nil {
		t.Errorf("active user should remain: %v %v", u, err)
	}
}
