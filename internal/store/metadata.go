package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	coreerrors "github.com/Aman-CERP/coderag/internal/errors"
	_ "modernc.org/sqlite"
)

// metadataStore is the sqlite-backed filterable property table shared by
// every collection. Each row holds the full property map for one document
// as a JSON blob; filter clauses compile to json_extract predicates so the
// adapter never needs a per-collection schema migration (§4.1.1: "the five
// collections are schema variations over the same two engines" — this is
// the third, purely auxiliary store that makes FilterFetch/Aggregate*
// possible without scanning bleve or hnsw).
type metadataStore struct {
	db *sql.DB
}

func newMetadataStore(path string) (*metadataStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open metadata db: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite: single-writer, avoid SQLITE_BUSY under our own concurrency

	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		properties TEXT NOT NULL,
		PRIMARY KEY (collection, id)
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create documents table: %w", err)
	}

	return &metadataStore{db: db}, nil
}

func (m *metadataStore) Close() error {
	return m.db.Close()
}

func (m *metadataStore) put(ctx context.Context, collection, id string, properties map[string]any) error {
	blob, err := json.Marshal(properties)
	if err != nil {
		return fmt.Errorf("encode properties: %w", err)
	}
	_, err = m.db.ExecContext(ctx, `INSERT INTO documents (collection, id, properties) VALUES (?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET properties=excluded.properties`, collection, id, string(blob))
	return err
}

func (m *metadataStore) delete(ctx context.Context, collection, id string) error {
	_, err := m.db.ExecContext(ctx, `DELETE FROM documents WHERE collection=? AND id=?`, collection, id)
	return err
}

func (m *metadataStore) get(ctx context.Context, collection, id string) (map[string]any, error) {
	var blob string
	err := m.db.QueryRowContext(ctx, `SELECT properties FROM documents WHERE collection=? AND id=?`, collection, id).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var props map[string]any
	if err := json.Unmarshal([]byte(blob), &props); err != nil {
		return nil, fmt.Errorf("decode properties: %w", err)
	}
	return props, nil
}

// filterFetch returns up to limit documents in collection matching filter,
// projecting only fields when non-empty.
func (m *metadataStore) filterFetch(ctx context.Context, collection string, filter *Filter, limit int, fields []string) ([]Doc, error) {
	where, args, err := compileFilter(filter)
	if err != nil {
		return nil, err
	}

	query := `SELECT id, properties FROM documents WHERE collection=?`
	args = append([]any{collection}, args...)
	if where != "" {
		query += " AND " + where
	}
	query += " ORDER BY id ASC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", coreerrors.ErrSchema, err)
	}
	defer rows.Close()

	var docs []Doc
	for rows.Next() {
		var id, blob string
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, err
		}
		var props map[string]any
		if err := json.Unmarshal([]byte(blob), &props); err != nil {
			return nil, fmt.Errorf("decode properties: %w", err)
		}
		docs = append(docs, Doc{ID: id, Properties: projectFields(props, fields)})
	}
	return docs, rows.Err()
}

func (m *metadataStore) aggregateCount(ctx context.Context, collection string, filter *Filter) (int, error) {
	where, args, err := compileFilter(filter)
	if err != nil {
		return 0, err
	}
	query := `SELECT COUNT(*) FROM documents WHERE collection=?`
	args = append([]any{collection}, args...)
	if where != "" {
		query += " AND " + where
	}
	var count int
	if err := m.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: %s", coreerrors.ErrSchema, err)
	}
	return count, nil
}

func (m *metadataStore) aggregateGroupBy(ctx context.Context, collection, property string) ([]GroupCount, error) {
	col := jsonExtractExpr(property)
	query := fmt.Sprintf(`SELECT %s AS v, COUNT(*) FROM documents WHERE collection=? GROUP BY v ORDER BY COUNT(*) DESC, v ASC`, col)
	rows, err := m.db.QueryContext(ctx, query, collection)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", coreerrors.ErrSchema, err)
	}
	defer rows.Close()

	var groups []GroupCount
	for rows.Next() {
		var value sql.NullString
		var count int
		if err := rows.Scan(&value, &count); err != nil {
			return nil, err
		}
		groups = append(groups, GroupCount{Value: value.String, Count: count})
	}
	return groups, rows.Err()
}

func projectFields(props map[string]any, fields []string) map[string]any {
	if len(fields) == 0 {
		return props
	}
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if v, ok := props[f]; ok {
			out[f] = v
		}
	}
	return out
}

func jsonExtractExpr(property string) string {
	return fmt.Sprintf("json_extract(properties, '$.%s')", property)
}

// compileFilter turns a Filter into a parameterized SQL predicate. Property
// names come from our own Clause construction, never raw user input, but
// values are always bound as parameters regardless.
func compileFilter(filter *Filter) (string, []any, error) {
	if filter == nil || len(filter.Clauses) == 0 {
		return "", nil, nil
	}

	joiner := " AND "
	if filter.Logic == FilterLogicOr {
		joiner = " OR "
	}

	var parts []string
	var args []any
	for _, c := range filter.Clauses {
		expr := jsonExtractExpr(c.Property)
		switch c.Op {
		case FilterOpEquals:
			parts = append(parts, expr+" = ?")
			args = append(args, fmt.Sprintf("%v", c.Value))
		case FilterOpLessThan:
			t, ok := c.Value.(time.Time)
			if !ok {
				return "", nil, fmt.Errorf("%w: lt clause on %q requires a time.Time value", coreerrors.ErrSchema, c.Property)
			}
			parts = append(parts, expr+" < ?")
			args = append(args, t.Format(time.RFC3339))
		case FilterOpContainsAny:
			values, ok := c.Value.([]string)
			if !ok || len(values) == 0 {
				return "", nil, fmt.Errorf("%w: contains_any clause on %q requires a non-empty []string value", coreerrors.ErrSchema, c.Property)
			}
			placeholders := make([]string, len(values))
			for i, v := range values {
				placeholders[i] = "?"
				args = append(args, v)
			}
			parts = append(parts, expr+" IN ("+strings.Join(placeholders, ",")+")")
		default:
			return "", nil, fmt.Errorf("%w: unknown filter operator %q", coreerrors.ErrSchema, c.Op)
		}
	}

	return "(" + strings.Join(parts, joiner) + ")", args, nil
}
