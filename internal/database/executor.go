package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/clinica/intranet-api/pkg/metrics"
)

// ErrQueryFailed wraps every driver error returned by the Executor.
var ErrQueryFailed = errors.New("query failed")

const maxLoggedQuery = 100

// Params maps @name placeholders to their values.
type Params map[string]any

// Row is a single result row keyed by column name.
type Row map[string]any

func (p Params) args() []any {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)

	args := make([]any, 0, len(names))
	for _, name := range names {
		args = append(args, sql.Named(name, p[name]))
	}
	return args
}

func (p Params) redacted() map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		lower := strings.ToLower(k)
		if strings.Contains(lower, "senha") || strings.Contains(lower, "password") {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = v
	}
	return out
}

// Executor runs parameterized statements against the pool.
type Executor struct {
	db      *sqlx.DB
	metrics *metrics.Metrics
}

func NewExecutor(db *sqlx.DB, m *metrics.Metrics) *Executor {
	return &Executor{db: db, metrics: m}
}

// Query returns the rows produced by query as column maps. No rows yields an
// empty slice.
func (e *Executor) Query(ctx context.Context, query string, params Params) ([]Row, error) {
	start := time.Now()

	rows, err := e.db.QueryxContext(ctx, query, params.args()...)
	if err != nil {
		return nil, e.fail(query, params, start, err)
	}
	defer rows.Close()

	result := make([]Row, 0)
	for rows.Next() {
		row := make(map[string]any)
		if err := rows.MapScan(row); err != nil {
			return nil, e.fail(query, params, start, err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, e.fail(query, params, start, err)
	}

	e.observe(query, "success", start)
	return result, nil
}

// Select scans every row of query into dest, a pointer to a slice.
func (e *Executor) Select(ctx context.Context, dest any, query string, params Params) error {
	start := time.Now()
	if err := e.db.SelectContext(ctx, dest, query, params.args()...); err != nil {
		return e.fail(query, params, start, err)
	}
	e.observe(query, "success", start)
	return nil
}

// Count runs a query returning a single integer column.
func (e *Executor) Count(ctx context.Context, query string, params Params) (int, error) {
	start := time.Now()

	var total int
	err := e.db.GetContext(ctx, &total, query, params.args()...)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, e.fail(query, params, start, err)
	}

	e.observe(query, "success", start)
	return total, nil
}

// Exec runs a statement and returns the number of affected rows.
func (e *Executor) Exec(ctx context.Context, query string, params Params) (int64, error) {
	start := time.Now()

	res, err := e.db.ExecContext(ctx, query, params.args()...)
	if err != nil {
		return 0, e.fail(query, params, start, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, e.fail(query, params, start, err)
	}

	e.observe(query, "success", start)
	return n, nil
}

// Ping issues the health probe query.
func (e *Executor) Ping(ctx context.Context) error {
	rows, err := e.Query(ctx, "SELECT 1 AS ok", nil)
	if err != nil {
		return err
	}
	if len(rows) != 1 {
		return fmt.Errorf("%w: health probe returned %d rows", ErrQueryFailed, len(rows))
	}
	return nil
}

// Stats reports connection pool statistics.
func (e *Executor) Stats() sql.DBStats {
	return e.db.Stats()
}

func (e *Executor) fail(query string, params Params, start time.Time, err error) error {
	e.observe(query, "error", start)

	log.Error().
		Err(err).
		Str("query", truncate(query, maxLoggedQuery)).
		Interface("params", params.redacted()).
		Msg("query execution failed")

	return fmt.Errorf("%w: %v", ErrQueryFailed, err)
}

func (e *Executor) observe(query, status string, start time.Time) {
	e.metrics.ObserveQuery(operation(query), status, time.Since(start).Seconds())
}

func operation(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return "unknown"
	}
	return strings.ToLower(fields[0])
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
