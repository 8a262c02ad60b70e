// Package contentlist stores named lists of strings, such as banned words or
// blocked domains, in a SQL table and reads them through a cached paging
// engine.
package contentlist

import (
	"context"
	"database/sql"
	"regexp"
	"strings"
	"time"

	"github.com/agentuity/go-paging/cache"
	"github.com/agentuity/go-paging/logger"
	"github.com/agentuity/go-paging/paging"
	"github.com/agentuity/go-paging/paging/sqlsource"
	"github.com/cockroachdb/errors"
)

// Table is the table holding every list.
const Table = "content_list"

// ItemPlaceholder is replaced by the quoted list item in ContainsPattern.
const ItemPlaceholder = "$item"

// EnsureSchema creates the list table if it does not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+Table+` (
		type INTEGER NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (type, value)
	)`)
	return errors.Wrap(err, "contentlist: create schema")
}

type options struct {
	cache    cache.Cache
	cacheTTL time.Duration
	log      logger.Logger
}

// Option configures a List.
type Option func(*options)

// WithCache reads the list through c. Lists of the same type sharing a cache
// see each other's changes.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(o *options) {
		o.cache = c
		o.cacheTTL = ttl
	}
}

func WithLogger(log logger.Logger) Option {
	return func(o *options) { o.log = log }
}

// List is one list type. Reads go through the embedded engine; every
// mutation calls Change before it returns.
type List struct {
	*paging.Paging[string, string]
	db  *sql.DB
	typ int
	log logger.Logger
}

func New(db *sql.DB, typ int, opts ...Option) (*List, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.NewConsoleLogger()
	}
	src := sqlsource.New(db, sqlsource.Query{
		Fields: "value",
		Table:  Table,
		Where:  "type = ?",
		Args:   []any{typ},
		Order:  "value",
	}, sqlsource.ScanValue[string])
	log := o.log.With(map[string]interface{}{"list": typ})
	p := paging.Of[string](src, paging.WithName("ContentList"), paging.WithLogger(log))
	if o.cache != nil {
		if err := p.EnableCache(o.cache, o.cacheTTL); err != nil {
			return nil, err
		}
	}
	return &List{Paging: p, db: db, typ: typ, log: log}, nil
}

func (l *List) Type() int {
	return l.typ
}

func (l *List) Add(ctx context.Context, item string) error {
	return l.AddMultiple(ctx, []string{item})
}

// AddMultiple inserts items in one transaction. Items already present are
// left alone.
func (l *List) AddMultiple(ctx context.Context, items []string) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "contentlist: begin")
	}
	defer tx.Rollback()
	for _, item := range items {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO `+Table+` (type, value) VALUES (?, ?) ON CONFLICT (type, value) DO NOTHING`,
			l.typ, item,
		); err != nil {
			return errors.Wrapf(err, "contentlist: add %q", item)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "contentlist: commit")
	}
	l.log.Debug("added %d item(s)", len(items))
	return l.Change(ctx)
}

func (l *List) Remove(ctx context.Context, item string) error {
	if _, err := l.db.ExecContext(ctx, `DELETE FROM `+Table+` WHERE type = ? AND value = ?`, l.typ, item); err != nil {
		return errors.Wrapf(err, "contentlist: remove %q", item)
	}
	return l.Change(ctx)
}

func (l *List) RemoveAll(ctx context.Context) error {
	res, err := l.db.ExecContext(ctx, `DELETE FROM `+Table+` WHERE type = ?`, l.typ)
	if err != nil {
		return errors.Wrap(err, "contentlist: remove all")
	}
	if n, err := res.RowsAffected(); err == nil {
		l.log.Debug("removed %d item(s)", n)
	}
	return l.Change(ctx)
}

// Contains reports whether s equals an item of the current view, ignoring
// case.
func (l *List) Contains(ctx context.Context, s string) (bool, error) {
	for item, err := range l.All(ctx) {
		if err != nil {
			return false, err
		}
		if strings.EqualFold(item, s) {
			return true, nil
		}
	}
	return false, nil
}

// ContainsPattern reports whether s matches pattern for any item of the
// current view, with ItemPlaceholder in pattern replaced by the quoted item.
// A pattern of `(?i)(^|\.)$item$` matches a blocked domain and all of its
// subdomains.
func (l *List) ContainsPattern(ctx context.Context, s, pattern string) (bool, error) {
	if !strings.Contains(pattern, ItemPlaceholder) {
		return false, errors.Mark(errors.Newf("contentlist: pattern %q has no %s placeholder", pattern, ItemPlaceholder), paging.ErrInvalidArgument)
	}
	for item, err := range l.All(ctx) {
		if err != nil {
			return false, err
		}
		re, err := regexp.Compile(strings.ReplaceAll(pattern, ItemPlaceholder, regexp.QuoteMeta(item)))
		if err != nil {
			return false, errors.Mark(errors.Wrapf(err, "contentlist: pattern %q", pattern), paging.ErrInvalidArgument)
		}
		if re.MatchString(s) {
			return true, nil
		}
	}
	return false, nil
}
