package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/sitegrid/reportsnap/internal/docstore"
)

// Store implements docstore.Store for SQLite
type Store struct {
	db *DB
}

// NewStore creates a new document store
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// GetDocument retrieves a document by its full path
func (s *Store) GetDocument(ctx context.Context, path string) (*docstore.Document, error) {
	collection, id, err := docstore.SplitPath(path)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, fields
		FROM documents
		WHERE collection = ? AND id = ?
	`

	var raw string
	var docID string
	err = s.db.QueryRowContext(ctx, query, collection, id).Scan(&docID, &raw)
	if err == sql.ErrNoRows {
		return nil, docstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	fields, err := decodeFields(raw)
	if err != nil {
		return nil, err
	}
	return &docstore.Document{ID: docID, Fields: fields}, nil
}

// GetAll returns every document in a collection
func (s *Store) GetAll(ctx context.Context, collection string) ([]docstore.Document, error) {
	query := `
		SELECT id, fields
		FROM documents
		WHERE collection = ?
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// Query returns the documents in a collection matching q. Equality
// filters are pushed down to SQL via json_extract; range and ordering
// are evaluated on the decoded field values so that timestamps stored
// in any of the historical representations compare correctly.
func (s *Store) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Document, error) {
	query := `SELECT id, fields FROM documents WHERE collection = ?`
	args := []any{collection}

	for field, value := range q.Equals {
		query += fmt.Sprintf(" AND json_extract(fields, '$.%s') = ?", field)
		args = append(args, value)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	docs, err := scanDocuments(rows)
	if err != nil {
		return nil, err
	}

	if q.Range != nil {
		docs = filterRange(docs, q.Range)
	}
	if q.OrderBy != "" {
		orderDocuments(docs, q.OrderBy, q.Desc)
	}
	return docs, nil
}

// ListCollections returns child collection names directly under a document
func (s *Store) ListCollections(ctx context.Context, docPath string) ([]string, error) {
	prefix := strings.Trim(docPath, "/") + "/"

	query := `
		SELECT DISTINCT collection
		FROM documents
		WHERE collection LIKE ? AND collection NOT LIKE ?
		ORDER BY collection
	`

	rows, err := s.db.QueryContext(ctx, query, prefix+"%", prefix+"%/%")
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var collection string
		if err := rows.Scan(&collection); err != nil {
			return nil, fmt.Errorf("failed to scan collection name: %w", err)
		}
		names = append(names, strings.TrimPrefix(collection, prefix))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating collection rows: %w", err)
	}

	return names, nil
}

// CountDocuments returns the number of documents in a collection
func (s *Store) CountDocuments(ctx context.Context, collection string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE collection = ?`, collection).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

// SetDocument creates or fully replaces a document
func (s *Store) SetDocument(ctx context.Context, path string, fields map[string]any) error {
	collection, id, err := docstore.SplitPath(path)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode document fields: %w", err)
	}

	query := `
		INSERT INTO documents (collection, id, fields)
		VALUES (?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			fields = excluded.fields,
			updated_at = CURRENT_TIMESTAMP
	`

	if _, err := s.db.ExecContext(ctx, query, collection, id, string(raw)); err != nil {
		return fmt.Errorf("failed to set document: %w", err)
	}
	return nil
}

func scanDocuments(rows *sql.Rows) ([]docstore.Document, error) {
	docs := []docstore.Document{}
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		fields, err := decodeFields(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, docstore.Document{ID: id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating document rows: %w", err)
	}
	return docs, nil
}

func decodeFields(raw string) (map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("failed to decode document fields: %w", err)
	}
	return fields, nil
}

func filterRange(docs []docstore.Document, r *docstore.RangeFilter) []docstore.Document {
	filtered := docs[:0]
	for _, doc := range docs {
		value, ok := doc.Fields[r.Field]
		if !ok {
			continue
		}
		if r.Start != nil {
			if cmp, ok := docstore.CompareValues(value, r.Start); !ok || cmp < 0 {
				continue
			}
		}
		if r.End != nil {
			if cmp, ok := docstore.CompareValues(value, r.End); !ok || cmp >= 0 {
				continue
			}
		}
		filtered = append(filtered, doc)
	}
	return filtered
}

func orderDocuments(docs []docstore.Document, field string, desc bool) {
	sort.SliceStable(docs, func(i, j int) bool {
		cmp, ok := docstore.CompareValues(docs[i].Fields[field], docs[j].Fields[field])
		if !ok {
			return false
		}
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})
}
