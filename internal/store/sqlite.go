package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ashureev/fabric-console/internal/domain"
	"github.com/ashureev/fabric-console/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db            *sql.DB
	writeMu       sync.Mutex // serializes catalog writes to avoid SQLITE_BUSY during seeding
	retryAttempts int
	retryDelay    time.Duration
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithRetry sets how often conflicting background deletes are attempted.
func WithRetry(attempts int, baseDelay time.Duration) Option {
	return func(s *SQLiteStore) {
		s.retryAttempts = attempts
		s.retryDelay = baseDelay
	}
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string, opts ...Option) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{
		db:            db,
		retryAttempts: 3,
		retryDelay:    100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(store)
	}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		last_seen_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_last_seen ON users(last_seen_at);

	CREATE TABLE IF NOT EXISTS customers (
		customer_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		zip_code TEXT NOT NULL,
		tier TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS inventory (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sku_code TEXT NOT NULL UNIQUE,
		product_name TEXT NOT NULL,
		location TEXT NOT NULL,
		channel TEXT NOT NULL,
		status TEXT NOT NULL,
		avail_to_purchase INTEGER NOT NULL DEFAULT 0,
		avail_to_backorder INTEGER NOT NULL DEFAULT 0,
		avail_to_preorder INTEGER NOT NULL DEFAULT 0,
		eta TEXT
	);

	CREATE TABLE IF NOT EXISTS orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id TEXT NOT NULL UNIQUE,
		customer_id TEXT,
		customer_name TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT '',
		details_json TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders(customer_name);

	CREATE TABLE IF NOT EXISTS zip_zones (
		zip_code TEXT PRIMARY KEY,
		zone TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS location_stock (
		location_id TEXT NOT NULL,
		sku TEXT NOT NULL,
		quantity INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (location_id, sku)
	);
	CREATE INDEX IF NOT EXISTS idx_location_stock_sku ON location_stock(sku);

	CREATE TABLE IF NOT EXISTS shipping_options (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		location_id TEXT NOT NULL,
		zone TEXT NOT NULL,
		sku TEXT NOT NULL,
		carrier TEXT NOT NULL,
		cost REAL NOT NULL,
		days INTEGER NOT NULL,
		co2_kg REAL NOT NULL,
		UNIQUE (location_id, zone, sku, carrier)
	);

	CREATE TABLE IF NOT EXISTS customer_notifications (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		customer_id TEXT NOT NULL,
		order_id TEXT NOT NULL DEFAULT '',
		message TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_notifications_customer ON customer_notifications(customer_id);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// GetUser retrieves a user by their user ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	query := `
		SELECT user_id, username, last_seen_at, created_at, updated_at
		FROM users WHERE user_id = ?`

	row := s.db.QueryRowContext(ctx, query, userID)

	var user domain.User
	var lastSeen, createdAt, updatedAt int64

	err := row.Scan(&user.UserID, &user.Username, &lastSeen, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}

	user.LastSeenAt = time.Unix(lastSeen, 0)
	user.CreatedAt = time.Unix(createdAt, 0)
	user.UpdatedAt = time.Unix(updatedAt, 0)

	return &user, nil
}

// UpsertUser creates or updates a user record.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user *domain.User) error {
	query := `
	INSERT INTO users (user_id, username, last_seen_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		username = excluded.username,
		last_seen_at = excluded.last_seen_at,
		updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query,
		user.UserID, user.Username, user.LastSeenAt.Unix(),
		user.CreatedAt.Unix(), user.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// UpdateLastSeen updates the last_seen_at timestamp for a user.
func (s *SQLiteStore) UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error {
	query := `UPDATE users SET last_seen_at = ?, updated_at = ? WHERE user_id = ?`
	result, err := s.db.ExecContext(ctx, query, lastSeen.Unix(), time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("update last_seen: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		slog.Warn("UpdateLastSeen affected 0 rows", "user_id", userID)
	}

	return nil
}

// DeleteIdleUsers removes users whose last activity is older than ttl and
// returns their ids. SQLITE_BUSY failures are retried with exponential backoff.
func (s *SQLiteStore) DeleteIdleUsers(ctx context.Context, ttl time.Duration) ([]string, error) {
	var ids []string
	err := shared.RetryOnConflict(ctx, "delete idle users", s.retryAttempts, s.retryDelay, func(ctx context.Context) error {
		var err error
		ids, err = s.deleteIdleUsersOnce(ctx, ttl)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *SQLiteStore) deleteIdleUsersOnce(ctx context.Context, ttl time.Duration) ([]string, error) {
	threshold := time.Now().Add(-ttl).Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	rows, err := tx.QueryContext(ctx, `SELECT user_id FROM users WHERE last_seen_at < ?`, threshold)
	if err != nil {
		return nil, fmt.Errorf("query idle users: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan idle user: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate idle users: %w", err)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("close idle users rows: %w", err)
	}

	if len(ids) == 0 {
		return nil, nil
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE last_seen_at < ?`, threshold); err != nil {
		return nil, fmt.Errorf("delete idle users: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit idle user deletion: %w", err)
	}
	return ids, nil
}

func closeRows(rows *sql.Rows, what string) {
	if err := rows.Close(); err != nil {
		slog.Warn("failed to close rows", "query", what, "error", err)
	}
}
