package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/nsolab/nso-tools/cmd/nso-stress/internal/metrics"
)

const runsTable = "runs"

// schema is applied on open. A single table keeps one row per
// completed window, ramp runs insert one row per step sharing the
// same label.
const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	started         TIMESTAMP NOT NULL,
	label           TEXT NOT NULL,
	host            TEXT NOT NULL,
	protocol        TEXT NOT NULL,
	window_size     INTEGER NOT NULL,
	count           INTEGER NOT NULL,
	ok              INTEGER NOT NULL,
	wrong_code      INTEGER NOT NULL,
	exceptions      INTEGER NOT NULL,
	elapsed_ms      INTEGER NOT NULL,
	average_us      INTEGER NOT NULL,
	per_second      REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_started ON runs (started);
`

// Run is one recorded window of a finished run.
type Run struct {
	ID         int64     `json:"id"`
	Started    time.Time `json:"started"`
	Label      string    `json:"label"`
	Host       string    `json:"host"`
	Protocol   string    `json:"protocol"`
	Window     uint      `json:"window"`
	Count      int       `json:"count"`
	OK         int       `json:"ok"`
	WrongCode  int       `json:"wrong_code"`
	Exceptions int       `json:"exceptions"`
	Elapsed    string    `json:"elapsed"`
	Average    string    `json:"average"`
	PerSecond  float64   `json:"per_second"`
}

// DB stores run history in a local sqlite file.
type DB struct {
	db *sql.DB
}

func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL", path))
	if err != nil {
		return nil, errors.Wrap(err, "open failed")
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "applying schema")
	}
	return &DB{db: db}, nil
}

func (h *DB) Close() error {
	return h.db.Close()
}

// Record stores one summary row. Label identifies the scenario or
// command line that produced the run.
func (h *DB) Record(ctx context.Context, label, host, protocol string, s metrics.Summary) error {
	_, err := sq.Insert(runsTable).
		Columns("started", "label", "host", "protocol", "window_size",
			"count", "ok", "wrong_code", "exceptions",
			"elapsed_ms", "average_us", "per_second").
		Values(s.Started, label, host, protocol, s.Window,
			s.Count, s.OK, s.WrongCode, s.Exceptions,
			s.Elapsed.Milliseconds(), s.Average.Microseconds(), s.PerSecond).
		RunWith(h.db).
		ExecContext(ctx)
	return errors.Wrap(err, "recording run")
}

// Recent returns the newest rows first, at most limit of them.
func (h *DB) Recent(ctx context.Context, limit uint64) ([]Run, error) {
	rows, err := sq.Select("id", "started", "label", "host", "protocol", "window_size",
		"count", "ok", "wrong_code", "exceptions",
		"elapsed_ms", "average_us", "per_second").
		From(runsTable).
		OrderBy("id DESC").
		Limit(limit).
		RunWith(h.db).
		QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r         Run
			elapsedMs int64
			averageUs int64
		)
		if err := rows.Scan(&r.ID, &r.Started, &r.Label, &r.Host, &r.Protocol, &r.Window,
			&r.Count, &r.OK, &r.WrongCode, &r.Exceptions,
			&elapsedMs, &averageUs, &r.PerSecond); err != nil {
			return nil, errors.Wrap(err, "scanning run")
		}
		r.Elapsed = (time.Duration(elapsedMs) * time.Millisecond).String()
		r.Average = (time.Duration(averageUs) * time.Microsecond).String()
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Prune removes rows older than the cutoff and reports how many were
// deleted.
func (h *DB) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := sq.Delete(runsTable).
		Where(sq.Lt{"started": olderThan}).
		RunWith(h.db).
		ExecContext(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "pruning runs")
	}
	return res.RowsAffected()
}
