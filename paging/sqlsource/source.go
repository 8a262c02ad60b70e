// Package sqlsource serves paging windows from a database/sql query.
package sqlsource

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/agentuity/go-paging/paging"
	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
)

// Query describes a select statement. Where may hold ? placeholders bound
// from Args. Every part except Table is optional; Fields defaults to *.
type Query struct {
	Fields string
	Table  string
	Where  string
	Args   []any
	Order  string
	// Group adds a GROUP BY; counts then report distinct Group values.
	Group string
}

func (q Query) validate() error {
	if strings.TrimSpace(q.Table) == "" {
		return errors.Mark(errors.New("sqlsource: query has no table"), paging.ErrInvalidArgument)
	}
	return nil
}

func (q Query) selectSQL() string {
	var sb strings.Builder
	fields := q.Fields
	if fields == "" {
		fields = "*"
	}
	sb.WriteString("SELECT " + fields + " FROM " + q.Table)
	if q.Where != "" {
		sb.WriteString(" WHERE " + q.Where)
	}
	if q.Group != "" {
		sb.WriteString(" GROUP BY " + q.Group)
	}
	if q.Order != "" {
		sb.WriteString(" ORDER BY " + q.Order)
	}
	return sb.String()
}

func (q Query) countSQL() string {
	what := "*"
	if q.Group != "" {
		what = "DISTINCT " + q.Group
	}
	s := "SELECT COUNT(" + what + ") FROM " + q.Table
	if q.Where != "" {
		s += " WHERE " + q.Where
	}
	return s
}

// Scanner reads the current row.
type Scanner[R any] func(rows *sql.Rows) (R, error)

// ScanRow reads every column into a paging.Row keyed by column name.
func ScanRow(rows *sql.Rows) (paging.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	row := make(paging.Row, len(cols))
	for i, col := range cols {
		row[col] = values[i]
	}
	return row, nil
}

// ScanValue reads a single-column row.
func ScanValue[V any](rows *sql.Rows) (V, error) {
	var v V
	err := rows.Scan(&v)
	return v, err
}

type options struct {
	staleness float64
}

// Option configures a Source.
type Option func(*options)

// WithStaleness declares the query eventually consistent, for example when it
// runs against a replica.
func WithStaleness(chance float64) Option {
	return func(o *options) { o.staleness = min(max(chance, 0), 1) }
}

// Source is a paging.Source over a query. Windows become LIMIT/OFFSET.
type Source[R any] struct {
	db        *sql.DB
	query     Query
	scan      Scanner[R]
	staleness float64
}

var _ paging.Source[paging.Row] = (*Source[paging.Row])(nil)

func New[R any](db *sql.DB, query Query, scan Scanner[R], opts ...Option) *Source[R] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Source[R]{db: db, query: query, scan: scan, staleness: o.staleness}
}

// NewRows returns a Source yielding whole rows.
func NewRows(db *sql.DB, query Query, opts ...Option) *Source[paging.Row] {
	return New(db, query, ScanRow, opts...)
}

func (s *Source[R]) Query() Query {
	return s.query
}

func (s *Source[R]) Count(ctx context.Context, w paging.Window) (int, error) {
	if err := s.query.validate(); err != nil {
		return 0, err
	}
	var n int
	if w.Offset <= 0 && !w.Bounded() {
		if err := s.db.QueryRowContext(ctx, s.query.countSQL(), s.query.Args...).Scan(&n); err != nil {
			return 0, errors.Wrapf(err, "sqlsource: count %s", s.query.Table)
		}
		return n, nil
	}
	inner := Query{Fields: "1", Table: s.query.Table, Where: s.query.Where, Group: s.query.Group}
	stmt, args := limit(inner.selectSQL(), s.query.Args, w)
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ("+stmt+") AS w", args...).Scan(&n); err != nil {
		return 0, errors.Wrapf(err, "sqlsource: count %s", s.query.Table)
	}
	return n, nil
}

func (s *Source[R]) Items(ctx context.Context, w paging.Window) ([]R, error) {
	if err := s.query.validate(); err != nil {
		return nil, err
	}
	stmt, args := limit(s.query.selectSQL(), s.query.Args, w)
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "sqlsource: select from %s", s.query.Table)
	}
	defer rows.Close()
	items := make([]R, 0, min(max(w.Count, 0), 1024))
	for rows.Next() {
		item, err := s.scan(rows)
		if err != nil {
			return nil, errors.Wrapf(err, "sqlsource: scan %s", s.query.Table)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "sqlsource: select from %s", s.query.Table)
	}
	return items, nil
}

// limit appends a LIMIT/OFFSET clause. An open window uses the largest
// signed 64-bit limit, which every common engine accepts.
func limit(stmt string, args []any, w paging.Window) (string, []any) {
	count := int64(math.MaxInt64)
	if w.Bounded() {
		count = int64(w.Count)
	}
	out := make([]any, 0, len(args)+2)
	out = append(out, args...)
	out = append(out, count, int64(max(w.Offset, 0)))
	return stmt + " LIMIT ? OFFSET ?", out
}

func (s *Source[R]) StalenessChance() float64 {
	return s.staleness
}

// CacheKeyBase hashes the statement and its arguments, so equal queries
// share cache entries and generation.
func (s *Source[R]) CacheKeyBase() (string, error) {
	if err := s.query.validate(); err != nil {
		return "", err
	}
	h := xxhash.New()
	h.WriteString(s.query.selectSQL())
	for _, arg := range s.query.Args {
		fmt.Fprintf(h, "\x00%T:%v", arg, arg)
	}
	return "sql:" + strconv.FormatUint(h.Sum64(), 16), nil
}
