package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gameshelf/game"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("game not found")

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store keeps the game collection. Ids are assigned by the store, strictly
// increase in insertion order and are never reused, even after a delete.
type Store interface {
	List(ctx context.Context) ([]*game.Game, error)
	Insert(ctx context.Context, g game.NewGame) (*game.Game, error)
	Delete(ctx context.Context, id int64) error
	Close() error
}

// Open returns the backend named by driver.
func Open(driver, dsn string) (Store, error) {
	switch driver {
	case "", DriverMemory:
		return NewMemoryStore(), nil
	case DriverSQLite:
		return NewSQLiteStore(dsn)
	case DriverPostgres:
		return NewPostgresStore(dsn)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// every connection to :memory: is its own database
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// sqliteDSN makes concurrent writers on a file database wait for the lock
// instead of failing with SQLITE_BUSY.
func sqliteDSN(dbPath string) string {
	if dbPath == ":memory:" || strings.Contains(dbPath, "_pragma=busy_timeout") {
		return dbPath
	}
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_pragma=busy_timeout(5000)"
}

func (s *SQLiteStore) List(ctx context.Context) ([]*game.Game, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, platform, purchase_date, release_date, cover_url, description, igdb_id
		FROM games
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	defer rows.Close()

	games := make([]*game.Game, 0)
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	return games, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, g game.NewGame) (*game.Game, error) {
	var releaseDate sql.NullString
	if g.ReleaseDate != nil {
		releaseDate = sql.NullString{String: formatTime(*g.ReleaseDate), Valid: true}
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO games (name, platform, purchase_date, release_date, cover_url, description, igdb_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, g.Name, string(g.Platform), formatTime(g.PurchaseDate), releaseDate, nullString(g.CoverURL), nullString(g.Description), nullInt(g.IGDBID))
	if err != nil {
		return nil, fmt.Errorf("failed to insert game: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read game id: %w", err)
	}
	return g.WithID(id), nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM games WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanGame(rows *sql.Rows) (*game.Game, error) {
	var (
		g            game.Game
		platform     string
		purchaseDate string
		releaseDate  sql.NullString
		coverURL     sql.NullString
		description  sql.NullString
		igdbID       sql.NullInt64
	)

	if err := rows.Scan(&g.ID, &g.Name, &platform, &purchaseDate, &releaseDate, &coverURL, &description, &igdbID); err != nil {
		return nil, fmt.Errorf("failed to scan game: %w", err)
	}

	purchased, err := time.Parse(time.RFC3339Nano, purchaseDate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse purchase date of game %d: %w", g.ID, err)
	}
	g.Platform = game.Platform(platform)
	g.PurchaseDate = purchased

	if releaseDate.Valid {
		released, err := time.Parse(time.RFC3339Nano, releaseDate.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse release date of game %d: %w", g.ID, err)
		}
		g.ReleaseDate = &released
	}
	if coverURL.Valid {
		g.CoverURL = &coverURL.String
	}
	if description.Valid {
		g.Description = &description.String
	}
	if igdbID.Valid {
		g.IGDBID = &igdbID.Int64
	}
	return &g, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt(n *int64) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *n, Valid: true}
}
