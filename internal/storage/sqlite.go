package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchemaSQL = `
CREATE TABLE IF NOT EXISTS files (
	path        TEXT PRIMARY KEY,
	content     BLOB NOT NULL,
	size        INTEGER NOT NULL DEFAULT 0,
	modified_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS dirs (
	path TEXT PRIMARY KEY
);
`

// SQLite implements Provider with every file stored as a blob in a single
// database. Directories are tracked explicitly so empty ones survive.
type SQLite struct {
	conn *sql.DB
	now  func() time.Time
}

// OpenSQLite opens (or creates) the database at dsn and applies the schema.
func OpenSQLite(dsn string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("storage: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: ping: %w", err)
	}
	if _, err := conn.Exec(sqliteSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: apply schema: %w", err)
	}
	return &SQLite{conn: conn, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

// Root is empty: the vault has no on-disk directory.
func (s *SQLite) Root() string { return "" }

func likePrefix(dir string) string {
	if dir == "" {
		return "%"
	}
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(dir) + "/%"
}

func (s *SQLite) List(dir string, recursive bool) ([]string, error) {
	dir, err := Clean(dir)
	if err != nil {
		return nil, err
	}
	if !s.IsDir(dir) {
		return nil, fmt.Errorf("storage: list %s: %w", dir, os.ErrNotExist)
	}
	rows, err := s.conn.Query(`SELECT path FROM files WHERE path LIKE ? ESCAPE '\' ORDER BY path`, likePrefix(dir))
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("storage: scan: %w", err)
		}
		if !recursive && path.Dir(p) != orDot(dir) {
			continue
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLite) Dirs(dir string) ([]string, error) {
	dir, err := Clean(dir)
	if err != nil {
		return nil, err
	}
	if !s.IsDir(dir) {
		return nil, fmt.Errorf("storage: dirs %s: %w", dir, os.ErrNotExist)
	}
	rows, err := s.conn.Query(`SELECT path FROM dirs WHERE path LIKE ? ESCAPE '\'`, likePrefix(dir))
	if err != nil {
		return nil, fmt.Errorf("storage: dirs: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("storage: scan: %w", err)
		}
		if path.Dir(p) == orDot(dir) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, rows.Err()
}

func orDot(dir string) string {
	if dir == "" {
		return "."
	}
	return dir
}

func (s *SQLite) Exists(p string) bool {
	return s.isFile(p) || s.IsDir(p)
}

func (s *SQLite) isFile(p string) bool {
	p, err := Clean(p)
	if err != nil || p == "" {
		return false
	}
	var n int
	_ = s.conn.QueryRow(`SELECT COUNT(*) FROM files WHERE path = ?`, p).Scan(&n)
	return n > 0
}

func (s *SQLite) IsDir(p string) bool {
	p, err := Clean(p)
	if err != nil {
		return false
	}
	if p == "" {
		return true
	}
	var n int
	_ = s.conn.QueryRow(`SELECT COUNT(*) FROM dirs WHERE path = ?`, p).Scan(&n)
	return n > 0
}

func (s *SQLite) Read(p string) ([]byte, error) {
	p, err := Clean(p)
	if err != nil {
		return nil, err
	}
	var data []byte
	err = s.conn.QueryRow(`SELECT content FROM files WHERE path = ?`, p).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("storage: read %s: %w", p, os.ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", p, err)
	}
	return data, nil
}

// Write upserts the file and registers every parent directory.
func (s *SQLite) Write(p string, content []byte) error {
	p, err := Clean(p)
	if err != nil {
		return err
	}
	if p == "" {
		return fmt.Errorf("storage: write: empty path")
	}
	if s.IsDir(p) {
		return fmt.Errorf("storage: write %s: is a directory", p)
	}

	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("storage: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if content == nil {
		content = []byte{}
	}
	_, err = tx.Exec(`
		INSERT INTO files (path, content, size, modified_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			content     = excluded.content,
			size        = excluded.size,
			modified_at = excluded.modified_at
	`, p, content, len(content), s.now().UTC())
	if err != nil {
		return fmt.Errorf("storage: upsert file: %w", err)
	}
	if err := insertDirs(tx, path.Dir(p)); err != nil {
		return err
	}
	return tx.Commit()
}

func insertDirs(tx *sql.Tx, dir string) error {
	for dir != "." && dir != "" {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO dirs (path) VALUES (?)`, dir); err != nil {
			return fmt.Errorf("storage: insert dir: %w", err)
		}
		dir = path.Dir(dir)
	}
	return nil
}

func (s *SQLite) Delete(p string) error {
	p, err := Clean(p)
	if err != nil {
		return err
	}
	res, err := s.conn.Exec(`DELETE FROM files WHERE path = ?`, p)
	if err != nil {
		return fmt.Errorf("storage: delete %s: %w", p, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("storage: delete %s: %w", p, os.ErrNotExist)
	}
	return nil
}

func (s *SQLite) MakeDir(p string) error {
	p, err := Clean(p)
	if err != nil {
		return err
	}
	if s.isFile(p) {
		return fmt.Errorf("storage: mkdir %s: file exists", p)
	}
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("storage: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck
	if err := insertDirs(tx, p); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLite) DeleteDir(p string) error {
	p, err := Clean(p)
	if err != nil {
		return err
	}
	if p == "" {
		return fmt.Errorf("storage: refusing to delete vault root")
	}
	if !s.IsDir(p) {
		return fmt.Errorf("storage: delete dir %s: %w", p, os.ErrNotExist)
	}
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("storage: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	prefix := likePrefix(p)
	_, _ = tx.Exec(`DELETE FROM files WHERE path LIKE ? ESCAPE '\'`, prefix)
	_, _ = tx.Exec(`DELETE FROM dirs WHERE path = ? OR path LIKE ? ESCAPE '\'`, p, prefix)
	return tx.Commit()
}

func (s *SQLite) Size(p string) (int64, error) {
	p, err := Clean(p)
	if err != nil {
		return 0, err
	}
	var n int64
	err = s.conn.QueryRow(`SELECT size FROM files WHERE path = ?`, p).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("storage: stat %s: %w", p, os.ErrNotExist)
	}
	if err != nil {
		return 0, fmt.Errorf("storage: stat %s: %w", p, err)
	}
	return n, nil
}

func (s *SQLite) LastModified(p string) (time.Time, error) {
	p, err := Clean(p)
	if err != nil {
		return time.Time{}, err
	}
	var t time.Time
	err = s.conn.QueryRow(`SELECT modified_at FROM files WHERE path = ?`, p).Scan(&t)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, fmt.Errorf("storage: stat %s: %w", p, os.ErrNotExist)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("storage: stat %s: %w", p, err)
	}
	return t, nil
}
