package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/qustavo/dotsql"
)

//go:embed queries/*.sql
var queriesFS embed.FS

// Queries runs the named SQL queries in queries/*.sql.
// Queries are written with ? placeholders and rebound for the driver.
type Queries struct {
	dot *dotsql.DotSql
	db  *sqlx.DB
	ext sqlx.ExtContext // db, or the transaction inside InTx
}

// LoadQueries parses every embedded query file.
func LoadQueries(db *sqlx.DB) (*Queries, error) {
	var combined strings.Builder

	err := fs.WalkDir(queriesFS, "queries", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".sql" {
			return nil
		}

		content, err := queriesFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		combined.Write(content)
		combined.WriteByte('\n')
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load query files: %w", err)
	}

	dot, err := dotsql.LoadFromString(combined.String())
	if err != nil {
		return nil, fmt.Errorf("failed to parse queries: %w", err)
	}

	return &Queries{dot: dot, db: db, ext: db}, nil
}

// InTx runs fn with queries bound to one transaction. fn's error rolls back.
func (q *Queries) InTx(ctx context.Context, fn func(tx *Queries) error) error {
	tx, err := q.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&Queries{dot: q.dot, db: q.db, ext: tx}); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Exec runs a named statement.
func (q *Queries) Exec(ctx context.Context, name string, args ...interface{}) (sql.Result, error) {
	query, err := q.raw(name)
	if err != nil {
		return nil, err
	}
	return q.ext.ExecContext(ctx, query, args...)
}

// Get scans a single row of a named query into dest.
func (q *Queries) Get(ctx context.Context, name string, dest interface{}, args ...interface{}) error {
	query, err := q.raw(name)
	if err != nil {
		return err
	}
	return sqlx.GetContext(ctx, q.ext, dest, query, args...)
}

// Select scans every row of a named query into the dest slice.
func (q *Queries) Select(ctx context.Context, name string, dest interface{}, args ...interface{}) error {
	query, err := q.raw(name)
	if err != nil {
		return err
	}
	return sqlx.SelectContext(ctx, q.ext, dest, query, args...)
}

// raw returns the named query rebound for the driver.
func (q *Queries) raw(name string) (string, error) {
	query, err := q.dot.Raw(name)
	if err != nil {
		return "", fmt.Errorf("query not found: %s", name)
	}
	return q.ext.Rebind(query), nil
}
