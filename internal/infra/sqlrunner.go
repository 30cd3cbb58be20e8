package infra

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SQLExecutor is the query surface stores depend on. Every statement must
// start with a "--sql <uuid>" marker line so log lines can be traced back to
// the inline query that produced them.
type SQLExecutor interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
}

// ErrSQLMarker is returned for statements without a valid marker line.
var ErrSQLMarker = errors.New("sql marker missing or invalid")

var markerRegexp = regexp.MustCompile(`^--sql [0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// SQLRunner strips markers and logs each statement before handing it to the
// underlying pool.
type SQLRunner struct {
	db     SQLExecutor
	logger *Logger
}

// NewSQLRunner wraps db, typically a *pgxpool.Pool.
func NewSQLRunner(db SQLExecutor, logger *Logger) *SQLRunner {
	if logger == nil {
		logger = Discard()
	}
	return &SQLRunner{db: db, logger: logger}
}

func (r *SQLRunner) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	marker, stmt, err := extractMarker(query)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	start := time.Now()
	tag, err := r.db.Exec(ctx, stmt, args...)
	if err != nil {
		r.logger.Error().Err(err).Str("sql", marker).Msg("sql exec failed")
		return tag, err
	}
	r.logger.Debug().Str("sql", marker).Int64("rows", tag.RowsAffected()).Dur("took", time.Since(start)).Msg("sql exec")
	return tag, nil
}

func (r *SQLRunner) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	marker, stmt, err := extractMarker(query)
	if err != nil {
		return errorRow{err: err}
	}
	r.logger.Debug().Str("sql", marker).Msg("sql query_row")
	return loggingRow{row: r.db.QueryRow(ctx, stmt, args...), logger: r.logger, marker: marker}
}

func (r *SQLRunner) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	marker, stmt, err := extractMarker(query)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, stmt, args...)
	if err != nil {
		r.logger.Error().Err(err).Str("sql", marker).Msg("sql query failed")
		return nil, err
	}
	r.logger.Debug().Str("sql", marker).Msg("sql query")
	return rows, nil
}

type loggingRow struct {
	row    pgx.Row
	logger *Logger
	marker string
}

func (l loggingRow) Scan(dest ...any) error {
	err := l.row.Scan(dest...)
	if err != nil && !IsNoRows(err) {
		l.logger.Error().Err(err).Str("sql", l.marker).Msg("sql scan failed")
	}
	return err
}

type errorRow struct {
	err error
}

func (e errorRow) Scan(...any) error {
	return e.err
}

func extractMarker(query string) (string, string, error) {
	first, rest, _ := strings.Cut(strings.TrimSpace(query), "\n")
	first = strings.TrimSpace(first)
	if !markerRegexp.MatchString(first) {
		return "", "", ErrSQLMarker
	}
	return strings.TrimPrefix(first, "--sql "), strings.TrimSpace(rest), nil
}

var _ SQLExecutor = (*SQLRunner)(nil)
