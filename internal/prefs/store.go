// Package prefs persists per-client preferences: bounded tool history,
// favorite calculators and bookmarked tool pages.
package prefs

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/conneroisu/toolshed/internal/errors"
	"github.com/conneroisu/toolshed/internal/validation"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// DefaultHistoryLimit is the number of history rows kept per client and tool.
const DefaultHistoryLimit = 50

// HistoryEntry is one recorded tool invocation.
type HistoryEntry struct {
	ID        string          `json:"id" yaml:"id"`
	ClientID  string          `json:"-" yaml:"-"`
	Tool      string          `json:"tool" yaml:"tool"`
	Input     json.RawMessage `json:"input" yaml:"-"`
	Output    string          `json:"output" yaml:"output"`
	CreatedAt time.Time       `json:"created_at" yaml:"created_at"`
}

// Favorite is a starred calculator.
type Favorite struct {
	CalculatorID string    `json:"calculator_id" yaml:"calculator_id"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
}

// Bookmark is a saved tool page.
type Bookmark struct {
	Path      string    `json:"path" yaml:"path"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Options configures a Store.
type Options struct {
	// HistoryLimit caps history rows per (client, tool). Zero means
	// DefaultHistoryLimit.
	HistoryLimit int

	// EnableWAL switches file databases to write-ahead logging.
	EnableWAL bool

	// ValidCalculator reports whether a calculator id may be favorited.
	// Nil accepts any non-empty id.
	ValidCalculator func(id string) bool

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// DefaultOptions returns the options used by the server.
func DefaultOptions() Options {
	return Options{
		HistoryLimit: DefaultHistoryLimit,
		EnableWAL:    true,
	}
}

// Store is the sqlite-backed preference store. It is safe for concurrent
// use; database/sql serialises access over a single connection.
type Store struct {
	db    *sql.DB
	path  string
	limit int
	valid func(string) bool
	now   func() time.Time
}

// Open opens or creates the database at path. Parent directories are
// created as needed. MemoryPath gives a throwaway database.
func Open(path string, opts Options) (*Store, error) {
	memory := path == MemoryPath
	dsn := path
	if !memory {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, errors.NewStorageError("failed to create database directory", err)
		}
		dsn = path + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.NewStorageError("failed to open database", err)
	}

	// One connection: sqlite has a single writer, and an in-memory
	// database only lives as long as its connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{
		db:    db,
		path:  path,
		limit: opts.HistoryLimit,
		valid: opts.ValidCalculator,
		now:   opts.Now,
	}
	if s.limit <= 0 {
		s.limit = DefaultHistoryLimit
	}
	if s.now == nil {
		s.now = time.Now
	}

	ctx := context.Background()
	if opts.EnableWAL && !memory {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, errors.NewStorageError("failed to enable WAL mode", err)
		}
	}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return errors.WrapStorage(err, "preference store unavailable")
	}
	return nil
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.path
}

// HistoryLimit returns the per-tool history cap.
func (s *Store) HistoryLimit() int {
	return s.limit
}

func (s *Store) createTables(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS history (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		client_id TEXT NOT NULL,
		tool TEXT NOT NULL,
		input TEXT NOT NULL,
		output TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_history_client_tool ON history(client_id, tool, seq);
	CREATE INDEX IF NOT EXISTS idx_history_created ON history(created_at);

	CREATE TABLE IF NOT EXISTS favorites (
		client_id TEXT NOT NULL,
		calculator_id TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		seq INTEGER NOT NULL,
		PRIMARY KEY (client_id, calculator_id)
	);

	CREATE TABLE IF NOT EXISTS bookmarks (
		client_id TEXT NOT NULL,
		path TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		seq INTEGER NOT NULL,
		PRIMARY KEY (client_id, path)
	);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return errors.NewStorageError("failed to create tables", err)
	}
	return nil
}

func requireClient(clientID string) error {
	if strings.TrimSpace(clientID) == "" {
		return errors.Invalid("client id is required")
	}
	return nil
}

// RecordHistory stores one invocation of tool and trims that client's
// history for the tool down to the configured limit, oldest first.
func (s *Store) RecordHistory(ctx context.Context, clientID, tool string, input any, output string) (*HistoryEntry, error) {
	if err := requireClient(clientID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(tool) == "" {
		return nil, errors.Invalid("tool is required")
	}

	raw, err := json.Marshal(input)
	if err != nil {
		return nil, errors.Invalid("input is not serialisable: %v", err)
	}

	entry := &HistoryEntry{
		ID:        uuid.NewString(),
		ClientID:  clientID,
		Tool:      tool,
		Input:     raw,
		Output:    validation.SanitizeInput(output),
		CreatedAt: s.now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewStorageError("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO history (id, client_id, tool, input, output, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, clientID, tool, string(raw), entry.Output, entry.CreatedAt.UnixNano())
	if err != nil {
		return nil, errors.NewStorageError("failed to insert history", err)
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM history
		WHERE client_id = ? AND tool = ? AND seq NOT IN (
			SELECT seq FROM history
			WHERE client_id = ? AND tool = ?
			ORDER BY seq DESC
			LIMIT ?
		)`, clientID, tool, clientID, tool, s.limit)
	if err != nil {
		return nil, errors.NewStorageError("failed to trim history", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewStorageError("failed to commit history", err)
	}
	return entry, nil
}

// History returns up to limit entries for the client and tool, newest
// first. A limit of zero or less returns everything kept.
func (s *Store) History(ctx context.Context, clientID, tool string, limit int) ([]HistoryEntry, error) {
	if err := requireClient(clientID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > s.limit {
		limit = s.limit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, client_id, tool, input, output, created_at
		FROM history
		WHERE client_id = ? AND tool = ?
		ORDER BY seq DESC
		LIMIT ?`, clientID, tool, limit)
	if err != nil {
		return nil, errors.NewStorageError("failed to query history", err)
	}
	defer func() { _ = rows.Close() }()

	entries := []HistoryEntry{}
	for rows.Next() {
		var (
			e       HistoryEntry
			input   string
			created int64
		)
		if err := rows.Scan(&e.ID, &e.ClientID, &e.Tool, &input, &e.Output, &created); err != nil {
			return nil, errors.NewStorageError("failed to scan history", err)
		}
		e.Input = json.RawMessage(input)
		e.CreatedAt = time.Unix(0, created).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageError("failed to read history", err)
	}
	return entries, nil
}

// ClearHistory deletes the client's history for tool and reports how many
// rows went.
func (s *Store) ClearHistory(ctx context.Context, clientID, tool string) (int64, error) {
	if err := requireClient(clientID); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM history WHERE client_id = ? AND tool = ?`, clientID, tool)
	if err != nil {
		return 0, errors.NewStorageError("failed to clear history", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// PruneHistory deletes history rows older than cutoff across all clients.
func (s *Store) PruneHistory(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM history WHERE created_at < ?`, cutoff.UTC().UnixNano())
	if err != nil {
		return 0, errors.NewStorageError("failed to prune history", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// ToggleFavorite stars the calculator for the client, or unstars it when
// already starred. It reports whether the calculator is now a favorite.
func (s *Store) ToggleFavorite(ctx context.Context, clientID, calculatorID string) (bool, error) {
	if err := requireClient(clientID); err != nil {
		return false, err
	}
	if calculatorID == "" || (s.valid != nil && !s.valid(calculatorID)) {
		return false, errors.NewValidationError(errors.ErrCodeUnknownTool,
			fmt.Sprintf("unknown calculator: %s", calculatorID))
	}
	return s.toggle(ctx, "favorites", "calculator_id", clientID, calculatorID)
}

// Favorites lists the client's favorite calculators, newest first.
func (s *Store) Favorites(ctx context.Context, clientID string) ([]Favorite, error) {
	if err := requireClient(clientID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT calculator_id, created_at FROM favorites WHERE client_id = ? ORDER BY seq DESC`, clientID)
	if err != nil {
		return nil, errors.NewStorageError("failed to query favorites", err)
	}
	defer func() { _ = rows.Close() }()

	out := []Favorite{}
	for rows.Next() {
		var (
			f       Favorite
			created int64
		)
		if err := rows.Scan(&f.CalculatorID, &created); err != nil {
			return nil, errors.NewStorageError("failed to scan favorite", err)
		}
		f.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageError("failed to read favorites", err)
	}
	return out, nil
}

// ToggleBookmark saves or removes a tool page path for the client and
// reports whether it is now bookmarked.
func (s *Store) ToggleBookmark(ctx context.Context, clientID, path string) (bool, error) {
	if err := requireClient(clientID); err != nil {
		return false, err
	}
	if err := validation.ValidateSitePath(path); err != nil {
		return false, errors.Invalid("bookmark path: %v", err)
	}
	return s.toggle(ctx, "bookmarks", "path", clientID, path)
}

// Bookmarks lists the client's bookmarked paths, newest first.
func (s *Store) Bookmarks(ctx context.Context, clientID string) ([]Bookmark, error) {
	if err := requireClient(clientID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, created_at FROM bookmarks WHERE client_id = ? ORDER BY seq DESC`, clientID)
	if err != nil {
		return nil, errors.NewStorageError("failed to query bookmarks", err)
	}
	defer func() { _ = rows.Close() }()

	out := []Bookmark{}
	for rows.Next() {
		var (
			b       Bookmark
			created int64
		)
		if err := rows.Scan(&b.Path, &created); err != nil {
			return nil, errors.NewStorageError("failed to scan bookmark", err)
		}
		b.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageError("failed to read bookmarks", err)
	}
	return out, nil
}

// toggle flips membership of key in a (client_id, column) keyed table.
// table and column are package constants, never user input.
func (s *Store) toggle(ctx context.Context, table, column, clientID, key string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, errors.NewStorageError("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE client_id = ? AND %s = ?`, table, column), clientID, key)
	if err != nil {
		return false, errors.NewStorageError("failed to update "+table, err)
	}

	removed, _ := res.RowsAffected()
	if removed == 0 {
		_, err = tx.ExecContext(ctx, fmt.Sprintf(`
			INSERT INTO %[1]s (client_id, %[2]s, created_at, seq)
			VALUES (?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM %[1]s))`, table, column),
			clientID, key, s.now().UTC().UnixNano())
		if err != nil {
			return false, errors.NewStorageError("failed to update "+table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, errors.NewStorageError("failed to commit "+table, err)
	}
	return removed == 0, nil
}
