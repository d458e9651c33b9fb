// Package postgres reads hydration ledgers mirrored into a central
// PostgreSQL database, one ledger per enlistment id.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"iter"
	"time"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/c4fun/VFSForGit/internal/ledger"
	"github.com/c4fun/VFSForGit/internal/logging"
	"github.com/c4fun/VFSForGit/internal/metrics"
)

//go:embed sql/*.sql
var embeddedMigrations embed.FS

// Store is the central ledger mirror for one enlistment.
type Store struct {
	db           *sql.DB
	enlistmentID string
}

// New connects to databaseURL and scopes all operations to enlistmentID.
func New(ctx context.Context, databaseURL, enlistmentID string) (*Store, error) {
	if enlistmentID == "" {
		return nil, fmt.Errorf("enlistment id is required")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, ledger.Unavailable("postgres", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, ledger.Unavailable("postgres", err)
	}

	return &Store{db: db, enlistmentID: enlistmentID}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates or upgrades the hydration_ledger table.
func (s *Store) Migrate(ctx context.Context) error {
	migrations, err := fs.Sub(embeddedMigrations, "sql")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, s.db, migrations)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	logging.Info("ledger mirror migrated", logging.Int("applied", len(results)))
	return nil
}

// Replace swaps the mirrored ledger of the enlistment for entries in one
// transaction.
func (s *Store) Replace(ctx context.Context, entries []ledger.Entry) error {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("ledger_replace", time.Since(start)) }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM hydration_ledger WHERE enlistment_id = $1`, s.enlistmentID); err != nil {
		return fmt.Errorf("clear ledger: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO hydration_ledger (enlistment_id, path, classification, is_folder)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (enlistment_id, path)
		DO UPDATE SET classification = GREATEST(hydration_ledger.classification, EXCLUDED.classification),
		              is_folder = EXCLUDED.is_folder,
		              updated_at = NOW()`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, s.enlistmentID, e.Path, int(e.Class), e.IsFolder); err != nil {
			return fmt.Errorf("insert %s: %w", e.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	logging.Info("ledger mirrored",
		logging.String("enlistment", s.enlistmentID),
		logging.Int("entries", len(entries)))
	return nil
}

// Iterate streams the enlistment's entries equal to or beneath prefix in
// path order.
func (s *Store) Iterate(ctx context.Context, prefix string) iter.Seq2[ledger.Entry, error] {
	return func(yield func(ledger.Entry, error) bool) {
		start := time.Now()
		var (
			rows *sql.Rows
			err  error
		)
		if prefix == "" {
			rows, err = s.db.QueryContext(ctx, `
				SELECT path, classification, is_folder FROM hydration_ledger
				WHERE enlistment_id = $1
				ORDER BY path`, s.enlistmentID)
		} else {
			rows, err = s.db.QueryContext(ctx, `
				SELECT path, classification, is_folder FROM hydration_ledger
				WHERE enlistment_id = $1 AND (path = $2 OR (path >= $3 AND path < $4))
				ORDER BY path`, s.enlistmentID, prefix, prefix+"/", prefix+"0")
		}
		metrics.RecordDBQuery("ledger_iterate", time.Since(start))
		if err != nil {
			yield(ledger.Entry{}, ledger.Unavailable("postgres", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var (
				e     ledger.Entry
				class int
			)
			if err := rows.Scan(&e.Path, &class, &e.IsFolder); err != nil {
				yield(ledger.Entry{}, ledger.Unavailable("postgres", err))
				return
			}
			e.Class = ledger.Classification(class)
			if !yield(e, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(ledger.Entry{}, ledger.Unavailable("postgres", err))
		}
	}
}
