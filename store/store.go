// Package store persists processed couplex tables in SQLite.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/carbocation/pfx"
	"github.com/carbocation/pico/output"
	"github.com/jmoiron/sqlx"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source TEXT NOT NULL,
	created_at TEXT NOT NULL,
	n_rows INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS couplex_results (
	run_id INTEGER NOT NULL REFERENCES runs(id),
	group_name TEXT NOT NULL,
	sample_name TEXT NOT NULL,
	well TEXT NOT NULL,
	valid_partitions INTEGER NOT NULL,
	volume_per_well REAL NOT NULL,
	mastermix_volume REAL,
	dead_volume REAL,
	colorpair TEXT NOT NULL,
	antibody1 TEXT NOT NULL,
	antibody2 TEXT NOT NULL,
	antibodies TEXT NOT NULL,
	positives_ab1 INTEGER NOT NULL,
	lambda_ab1 REAL NOT NULL,
	positives_ab2 INTEGER NOT NULL,
	lambda_ab2 REAL NOT NULL,
	positives_double INTEGER NOT NULL,
	couplex_positives INTEGER NOT NULL,
	random_positives INTEGER NOT NULL,
	rcoverlap_positives INTEGER NOT NULL,
	diff_to_obs INTEGER NOT NULL,
	couplexes_raw INTEGER NOT NULL,
	couplexes INTEGER NOT NULL,
	volume_corrected BOOLEAN NOT NULL
);

CREATE INDEX IF NOT EXISTS couplex_results_run ON couplex_results(run_id);
`

var resultColumns = []string{
	"run_id", "group_name", "sample_name", "well", "valid_partitions",
	"volume_per_well", "mastermix_volume", "dead_volume", "colorpair",
	"antibody1", "antibody2", "antibodies", "positives_ab1", "lambda_ab1",
	"positives_ab2", "lambda_ab2", "positives_double", "couplex_positives",
	"random_positives", "rcoverlap_positives", "diff_to_obs", "couplexes_raw",
	"couplexes", "volume_corrected",
}

// Run is one saved table.
type Run struct {
	ID        int64  `db:"id"`
	Source    string `db:"source"`
	CreatedAt string `db:"created_at"`
	NRows     int64  `db:"n_rows"`
}

type storedRow struct {
	RunID int64 `db:"run_id"`
	output.Row
}

type Store struct {
	DB *sqlx.DB
}

// Open connects to (and if needed creates) the database at path.
func Open(path string) (*Store, error) {
	// URI filenames have to begin with 'file:'; see
	// https://www.sqlite.org/c3ref/open.html
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, pfx.Err(err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, pfx.Err(err)
	}

	return &Store{DB: db}, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}

// SaveRun records one processed table in a single transaction and returns
// the new run id.
func (s *Store) SaveRun(ctx context.Context, source string, rows []output.Row) (runID int64, err error) {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return 0, pfx.Err(err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO runs (source, created_at, n_rows) VALUES (?, ?, ?)",
		source, time.Now().UTC().Format(time.RFC3339), len(rows))
	if err != nil {
		return 0, pfx.Err(err)
	}
	if runID, err = res.LastInsertId(); err != nil {
		return 0, pfx.Err(err)
	}

	stmt, err := tx.PrepareNamedContext(ctx, insertQuery())
	if err != nil {
		return 0, pfx.Err(err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err = stmt.ExecContext(ctx, storedRow{RunID: runID, Row: row}); err != nil {
			return 0, pfx.Err(err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, pfx.Err(err)
	}

	return runID, nil
}

// Results returns the rows of a saved run in insertion order.
func (s *Store) Results(ctx context.Context, runID int64) ([]output.Row, error) {
	stored := []storedRow{}
	query := "SELECT " + strings.Join(resultColumns, ", ") + " FROM couplex_results WHERE run_id = ? ORDER BY rowid"
	if err := s.DB.SelectContext(ctx, &stored, query, runID); err != nil {
		return nil, pfx.Err(err)
	}

	out := make([]output.Row, 0, len(stored))
	for _, r := range stored {
		out = append(out, r.Row)
	}

	return out, nil
}

// Runs lists saved runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	out := []Run{}
	if err := s.DB.SelectContext(ctx, &out, "SELECT id, source, created_at, n_rows FROM runs ORDER BY id DESC"); err != nil {
		return nil, pfx.Err(err)
	}

	return out, nil
}

func insertQuery() string {
	named := make([]string, 0, len(resultColumns))
	for _, col := range resultColumns {
		named = append(named, ":"+col)
	}

	return "INSERT INTO couplex_results (" + strings.Join(resultColumns, ", ") + ") VALUES (" + strings.Join(named, ", ") + ")"
}
