// Package placeholders reads and writes the enlistment's placeholder
// database, the SQLite table of paths the virtualization layer has
// projected or hydrated.
package placeholders

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/c4fun/VFSForGit/internal/ledger"
	"github.com/c4fun/VFSForGit/internal/logging"
	"github.com/c4fun/VFSForGit/internal/metrics"
)

//go:embed sql/*.sql
var embeddedMigrations embed.FS

// FileName is the database file inside the enlistment's databases directory.
const FileName = "VFSForGit.sqlite"

// PathType is the pathType column of the Placeholder table.
type PathType int

const (
	File PathType = iota
	PartialFolder
	ExpandedFolder
	PossibleTombstoneFolder
)

// IsFolder reports whether t describes a directory.
func (t PathType) IsFolder() bool { return t != File }

// Store is an open placeholder database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens an existing database read-only. Writers keep running while the
// report reads; lock contention waits up to busyTimeout.
func Open(ctx context.Context, path string, busyTimeout time.Duration) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, ledger.Unavailable(path, err)
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(%d)",
		filepath.ToSlash(path), busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, ledger.Unavailable(path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxIdleTime(time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, ledger.Unavailable(path, err)
	}
	return &Store{db: db, path: path}, nil
}

// Create opens path read-write, creating the file and schema as needed.
func Create(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(time.Minute)

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	migrations, err := fs.Sub(embeddedMigrations, "sql")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	for _, r := range results {
		logging.Debug("applied placeholder migration", logging.String("source", r.Source.Path))
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Add records a placeholder, replacing any existing row for path.
func (s *Store) Add(ctx context.Context, path string, t PathType, sha string) error {
	var shaArg any
	if sha != "" {
		shaArg = sha
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO Placeholder (path, pathType, sha) VALUES (?, ?, ?)`,
		path, int(t), shaArg)
	if err != nil {
		return fmt.Errorf("add placeholder %s: %w", path, err)
	}
	return nil
}

// Remove deletes the placeholder row for path.
func (s *Store) Remove(ctx context.Context, path string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM Placeholder WHERE path = ?`, path); err != nil {
		return fmt.Errorf("remove placeholder %s: %w", path, err)
	}
	return nil
}

// Count returns the number of placeholder rows, folders included.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM Placeholder`).Scan(&n); err != nil {
		return 0, ledger.Unavailable(s.path, err)
	}
	return n, nil
}

// Iterate streams placeholders equal to or beneath prefix. The prefix filter
// is a primary key range scan: every path under "dir/" sorts between "dir/"
// and "dir0". Rows written with Windows separators are scanned under the
// matching "dir\" range and reported with forward slashes.
func (s *Store) Iterate(ctx context.Context, prefix string) iter.Seq2[ledger.Entry, error] {
	return func(yield func(ledger.Entry, error) bool) {
		start := time.Now()
		var (
			rows *sql.Rows
			err  error
		)
		if prefix == "" {
			rows, err = s.db.QueryContext(ctx,
				`SELECT path, pathType FROM Placeholder ORDER BY path`)
		} else {
			win := strings.ReplaceAll(prefix, "/", `\`)
			rows, err = s.db.QueryContext(ctx,
				`SELECT path, pathType FROM Placeholder
				 WHERE path = ? OR (path >= ? AND path < ?)
				    OR path = ? OR (path >= ? AND path < ?)
				 ORDER BY path`,
				prefix, prefix+"/", prefix+"0",
				win, win+`\`, win+"]")
		}
		metrics.RecordDBQuery("placeholders_iterate", time.Since(start))
		if err != nil {
			yield(ledger.Entry{}, ledger.Unavailable(s.path, err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var (
				path     string
				pathType int
			)
			if err := rows.Scan(&path, &pathType); err != nil {
				yield(ledger.Entry{}, ledger.Unavailable(s.path, err))
				return
			}
			e := ledger.Entry{
				Path:     strings.ReplaceAll(path, `\`, "/"),
				Class:    ledger.Placeholder,
				IsFolder: PathType(pathType).IsFolder(),
			}
			if !yield(e, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(ledger.Entry{}, ledger.Unavailable(s.path, err))
		}
	}
}
