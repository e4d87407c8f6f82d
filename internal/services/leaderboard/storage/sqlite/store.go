// Package sqlite provides a SQLite-backed leaderboard storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/Monash-Mosaic/disinformer-leaderboard/internal/platform/storage/sqlitemigrate"
	"github.com/Monash-Mosaic/disinformer-leaderboard/internal/services/leaderboard/storage"
	"github.com/Monash-Mosaic/disinformer-leaderboard/internal/services/leaderboard/storage/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists leaderboard state in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite leaderboard store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// rankColumn maps a mode to its ranking column. Columns are fixed identifiers,
// never user input, so interpolating them into SQL is safe.
func rankColumn(mode storage.Mode) string {
	if mode == storage.ModeBestScore {
		return "best_score"
	}
	return "total_score"
}

// searchPattern builds a LIKE prefix pattern for a display-name search,
// escaping LIKE metacharacters in the term itself.
func searchPattern(search string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(search) + "%"
}

// Count returns the number of players matching the search filter.
func (s *Store) Count(ctx context.Context, mode storage.Mode, search string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}

	query := `SELECT COUNT(*) FROM players`
	args := []any{}
	if search != "" {
		query += ` WHERE display_name LIKE ? ESCAPE '\'`
		args = append(args, searchPattern(search))
	}

	var count int
	if err := s.sqlDB.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count players: %w", err)
	}
	return count, nil
}

// anchorKey holds the composite sort key of an anchor row.
type anchorKey struct {
	rank        int
	gamesPlayed int
	displayName string
}

// resolveAnchor loads the sort key for an anchor ID, translating a missing row
// into storage.ErrAnchorNotFound so callers can fall back to a full scan.
func (s *Store) resolveAnchor(ctx context.Context, mode storage.Mode, id string) (anchorKey, error) {
	var key anchorKey
	query := fmt.Sprintf(
		`SELECT %s, games_played, display_name FROM players WHERE id = ?`,
		rankColumn(mode),
	)
	err := s.sqlDB.QueryRowContext(ctx, query, id).Scan(&key.rank, &key.gamesPlayed, &key.displayName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return anchorKey{}, storage.ErrAnchorNotFound
		}
		return anchorKey{}, fmt.Errorf("resolve anchor: %w", err)
	}
	return key, nil
}

const entryColumns = `id, display_name, total_score, best_score, games_played, updated_at`

func scanEntries(rows *sql.Rows) ([]storage.Entry, error) {
	var entries []storage.Entry
	for rows.Next() {
		var entry storage.Entry
		var updatedAt int64
		if err := rows.Scan(
			&entry.ID,
			&entry.DisplayName,
			&entry.TotalScore,
			&entry.BestScore,
			&entry.GamesPlayed,
			&updatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		entry.UpdatedAt = fromMillis(updatedAt)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate players: %w", err)
	}
	return entries, nil
}

// FetchAfter returns up to limit players in canonical order, starting strictly
// after the player with afterID, or from the top when afterID is empty.
func (s *Store) FetchAfter(ctx context.Context, mode storage.Mode, search, afterID string, limit int) ([]storage.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	col := rankColumn(mode)
	conditions := []string{}
	args := []any{}
	if search != "" {
		conditions = append(conditions, `display_name LIKE ? ESCAPE '\'`)
		args = append(args, searchPattern(search))
	}
	if afterID != "" {
		key, err := s.resolveAnchor(ctx, mode, afterID)
		if err != nil {
			return nil, err
		}
		// Strictly after (rank DESC, games DESC, name ASC).
		conditions = append(conditions, fmt.Sprintf(
			`(%[1]s < ? OR (%[1]s = ? AND (games_played < ? OR (games_played = ? AND display_name > ?))))`,
			col,
		))
		args = append(args, key.rank, key.rank, key.gamesPlayed, key.gamesPlayed, key.displayName)
	}

	query := fmt.Sprintf(`SELECT %s FROM players`, entryColumns)
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, ` AND `)
	}
	query += fmt.Sprintf(` ORDER BY %s DESC, games_played DESC, display_name ASC LIMIT ?`, col)
	args = append(args, limit)

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch players after anchor: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// FetchBefore returns the last limit players in canonical order strictly
// before the player with beforeID.
func (s *Store) FetchBefore(ctx context.Context, mode storage.Mode, search, beforeID string, limit int) ([]storage.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}
	if beforeID == "" {
		return nil, fmt.Errorf("anchor id is required")
	}

	key, err := s.resolveAnchor(ctx, mode, beforeID)
	if err != nil {
		return nil, err
	}

	col := rankColumn(mode)
	conditions := []string{fmt.Sprintf(
		`(%[1]s > ? OR (%[1]s = ? AND (games_played > ? OR (games_played = ? AND display_name < ?))))`,
		col,
	)}
	args := []any{key.rank, key.rank, key.gamesPlayed, key.gamesPlayed, key.displayName}
	if search != "" {
		conditions = append(conditions, `display_name LIKE ? ESCAPE '\'`)
		args = append(args, searchPattern(search))
	}

	// Fetch from the near edge by reversing the sort, then restore canonical
	// order before returning.
	query := fmt.Sprintf(
		`SELECT %s FROM players WHERE %s ORDER BY %s ASC, games_played ASC, display_name DESC LIMIT ?`,
		entryColumns, strings.Join(conditions, ` AND `), col,
	)
	args = append(args, limit)

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch players before anchor: %w", err)
	}
	defer rows.Close()
	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	reverse(entries)
	return entries, nil
}

// FetchLast returns the final n players of the ordered sequence.
func (s *Store) FetchLast(ctx context.Context, mode storage.Mode, search string, n int) ([]storage.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if n <= 0 {
		return nil, fmt.Errorf("n must be greater than zero")
	}

	col := rankColumn(mode)
	query := fmt.Sprintf(`SELECT %s FROM players`, entryColumns)
	args := []any{}
	if search != "" {
		query += ` WHERE display_name LIKE ? ESCAPE '\'`
		args = append(args, searchPattern(search))
	}
	query += fmt.Sprintf(` ORDER BY %s ASC, games_played ASC, display_name DESC LIMIT ?`, col)
	args = append(args, n)

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch last players: %w", err)
	}
	defer rows.Close()
	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	reverse(entries)
	return entries, nil
}

func reverse(entries []storage.Entry) {
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
}

// UpsertPlayer inserts or replaces one player record. Used by seeding and
// ingest tooling; the pagination core only reads.
func (s *Store) UpsertPlayer(ctx context.Context, entry storage.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	id := strings.TrimSpace(entry.ID)
	displayName := strings.TrimSpace(entry.DisplayName)
	if id == "" {
		return fmt.Errorf("player id is required")
	}
	if displayName == "" {
		return fmt.Errorf("display name is required")
	}
	updatedAt := entry.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO players (id, display_name, total_score, best_score, games_played, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   display_name = excluded.display_name,
		   total_score = excluded.total_score,
		   best_score = excluded.best_score,
		   games_played = excluded.games_played,
		   updated_at = excluded.updated_at`,
		id,
		displayName,
		entry.TotalScore,
		entry.BestScore,
		entry.GamesPlayed,
		toMillis(updatedAt),
	)
	if err != nil {
		if isDisplayNameUniqueViolation(err) {
			return fmt.Errorf("display name %q is taken: %w", displayName, err)
		}
		return fmt.Errorf("upsert player: %w", err)
	}
	return nil
}

// DeletePlayer removes one player record by ID.
func (s *Store) DeletePlayer(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM players WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete player: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete player: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func isDisplayNameUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed") &&
		strings.Contains(message, "players.display_name")
}

var _ storage.Backend = (*Store)(nil)
