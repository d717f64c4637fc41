// Package tokencache persists issued tokens keyed by (site, device serial).
//
// The entrez client never caches tokens itself; callers that want to survive
// process restarts without re-minting opt into this store explicitly, save
// each freshly generated token, and load it back on startup. Expired rows
// are treated as absent.
package tokencache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	enphase "enphase-go"
)

// ErrNotFound is returned when no usable token is stored for the key.
var ErrNotFound = errors.New("tokencache: token not found")

const schema = `
CREATE TABLE IF NOT EXISTS tokens (
	site_id      TEXT    NOT NULL,
	serial       TEXT    NOT NULL,
	raw          TEXT    NOT NULL,
	issued_at    INTEGER NOT NULL,
	expires_at   INTEGER,
	commissioned INTEGER NOT NULL,
	updated_at   INTEGER NOT NULL,
	PRIMARY KEY (site_id, serial)
);`

// Store is a SQLite-backed token store. One row per (site, serial); Put
// replaces the previous token for the same scope.
type Store struct {
	db  *sql.DB
	now func() time.Time // test hook
}

// Open opens (creating if needed) the store at the given path. Use
// ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("tokencache: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("tokencache: migrate: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Put stores the token, replacing any prior token for the same scope.
func (s *Store) Put(ctx context.Context, tok enphase.Token) error {
	if tok.Zero() {
		return errors.New("tokencache: refusing to store an unset token")
	}
	var expires sql.NullInt64
	if exp, ok := tok.ExpiresAt(); ok {
		expires = sql.NullInt64{Int64: exp.Unix(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO tokens (site_id, serial, raw, issued_at, expires_at, commissioned, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tok.SiteID(), tok.DeviceSerial(), tok.Raw(), tok.IssuedAt().Unix(),
		expires, boolToInt(tok.Commissioned()), s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("tokencache: put: %w", err)
	}
	return nil
}

// Get loads the stored token for the scope. Expired tokens are filtered out
// and reported as ErrNotFound.
func (s *Store) Get(ctx context.Context, siteID, serial string) (enphase.Token, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT raw, issued_at, expires_at, commissioned FROM tokens WHERE site_id = ? AND serial = ?`,
		siteID, serial,
	)
	var (
		raw          string
		issuedUnix   int64
		expires      sql.NullInt64
		commissioned int
	)
	if err := row.Scan(&raw, &issuedUnix, &expires, &commissioned); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return enphase.Token{}, ErrNotFound
		}
		return enphase.Token{}, fmt.Errorf("tokencache: get: %w", err)
	}

	var expiresAt *time.Time
	if expires.Valid {
		t := time.Unix(expires.Int64, 0).UTC()
		if !t.After(s.now()) {
			return enphase.Token{}, ErrNotFound
		}
		expiresAt = &t
	}
	tok, err := enphase.RestoreToken(raw, siteID, serial, time.Unix(issuedUnix, 0).UTC(), expiresAt, commissioned != 0)
	if err != nil {
		return enphase.Token{}, fmt.Errorf("tokencache: stored token invalid: %w", err)
	}
	return tok, nil
}

// Delete removes the stored token for the scope, if any.
func (s *Store) Delete(ctx context.Context, siteID, serial string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tokens WHERE site_id = ? AND serial = ?`, siteID, serial); err != nil {
		return fmt.Errorf("tokencache: delete: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
