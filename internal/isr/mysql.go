package isr

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

const rendersTableDDL = `CREATE TABLE IF NOT EXISTS rendered_pages (
	page_key VARCHAR(512) NOT NULL PRIMARY KEY,
	status SMALLINT NOT NULL,
	body MEDIUMBLOB NOT NULL,
	location VARCHAR(1024) NOT NULL DEFAULT '',
	generated_at DATETIME(6) NOT NULL,
	revalidate_seconds INT NOT NULL,
	expires_at DATETIME(6) NULL,
	KEY idx_rendered_pages_expires_at (expires_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

const expiresColumnQuery = `SELECT COUNT(*) FROM information_schema.COLUMNS
WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = 'rendered_pages' AND COLUMN_NAME = 'expires_at'`

const addExpiresColumnDDL = `ALTER TABLE rendered_pages
	ADD COLUMN expires_at DATETIME(6) NULL,
	ADD KEY idx_rendered_pages_expires_at (expires_at)`

// MySQLStore keeps pages in the rendered_pages table.
type MySQLStore struct {
	db *sql.DB
}

// OpenMySQL opens a MySQL connection using sensible defaults. The DSN must be
// in the driver's format with parseTime enabled.
func OpenMySQL(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	return db, nil
}

// NewMySQLStore wraps an open database handle.
func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

// EnsureSchema creates the rendered_pages table when missing and adds the
// expires_at column to tables created before it existed.
func (s *MySQLStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, rendersTableDDL); err != nil {
		return fmt.Errorf("create rendered_pages: %w", err)
	}

	var columns int
	if err := s.db.QueryRowContext(ctx, expiresColumnQuery).Scan(&columns); err != nil {
		return fmt.Errorf("inspect rendered_pages: %w", err)
	}
	if columns == 0 {
		if _, err := s.db.ExecContext(ctx, addExpiresColumnDDL); err != nil {
			return fmt.Errorf("add rendered_pages.expires_at: %w", err)
		}
	}
	return nil
}

func (s *MySQLStore) Get(ctx context.Context, key string) (Page, bool, error) {
	const query = `SELECT page_key, status, body, location, generated_at, revalidate_seconds, expires_at
FROM rendered_pages WHERE page_key = ? AND (expires_at IS NULL OR expires_at > ?)`
	row := s.db.QueryRowContext(ctx, query, key, time.Now().UTC())

	var p Page
	var seconds int64
	var expires sql.NullTime
	if err := row.Scan(&p.Key, &p.Status, &p.Body, &p.Location, &p.GeneratedAt, &seconds, &expires); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Page{}, false, nil
		}
		return Page{}, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	p.Revalidate = time.Duration(seconds) * time.Second
	if expires.Valid {
		p.ExpiresAt = expires.Time
	}
	return p, true, nil
}

func (s *MySQLStore) Put(ctx context.Context, page Page) error {
	const upsert = `INSERT INTO rendered_pages (page_key, status, body, location, generated_at, revalidate_seconds, expires_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE status = VALUES(status), body = VALUES(body), location = VALUES(location),
	generated_at = VALUES(generated_at), revalidate_seconds = VALUES(revalidate_seconds), expires_at = VALUES(expires_at)`

	body := page.Body
	if body == nil {
		body = []byte{}
	}
	var expires sql.NullTime
	if !page.ExpiresAt.IsZero() {
		expires = sql.NullTime{Time: page.ExpiresAt.UTC(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, upsert, page.Key, page.Status, body, page.Location,
		page.GeneratedAt.UTC(), int64(page.Revalidate/time.Second), expires)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// PruneExpired deletes rows past their expires_at.
func (s *MySQLStore) PruneExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rendered_pages WHERE expires_at IS NOT NULL AND expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return res.RowsAffected()
}

func (s *MySQLStore) Close() error {
	return s.db.Close()
}
