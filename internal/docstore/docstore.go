// Package docstore defines the hierarchical document store the snapshot
// builder reads from and writes to. Collections are addressed by
// slash-separated paths alternating collection and document segments,
// e.g. "projects/p1/phases_status/ph1/entries".
package docstore

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Document is a single record within a collection.
type Document struct {
	ID     string
	Fields map[string]any
}

// RangeFilter restricts a query to a half-open interval [Start, End)
// on the named field. A nil boundary leaves that side unbounded.
type RangeFilter struct {
	Field string
	Start any
	End   any
}

// Query describes an equality/range-filtered, optionally ordered read.
type Query struct {
	Equals  map[string]any
	Range   *RangeFilter
	OrderBy string
	Desc    bool
}

// Store provides read and write access to hierarchical collections.
type Store interface {
	// GetDocument fetches a single document by its full path.
	// Returns ErrNotFound if the document does not exist.
	GetDocument(ctx context.Context, path string) (*Document, error)

	// GetAll returns every document in the collection at the given path.
	// An empty collection yields an empty slice, not an error.
	GetAll(ctx context.Context, collection string) ([]Document, error)

	// Query returns the documents in the collection matching q.
	Query(ctx context.Context, collection string, q Query) ([]Document, error)

	// ListCollections returns the names of the child collections directly
	// under the document at docPath.
	ListCollections(ctx context.Context, docPath string) ([]string, error)

	// CountDocuments returns the number of documents in a collection.
	CountDocuments(ctx context.Context, collection string) (int, error)

	// SetDocument creates or fully replaces the document at path.
	SetDocument(ctx context.Context, path string, fields map[string]any) error
}

// SplitPath splits a document path into its collection path and document ID.
// A valid document path has an even number of non-empty segments.
func SplitPath(path string) (collection, id string, err error) {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) < 2 || len(segments)%2 != 0 {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	for _, seg := range segments {
		if seg == "" {
			return "", "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return strings.Join(segments[:len(segments)-1], "/"), segments[len(segments)-1], nil
}

// ParseTime interprets a document field value as a timestamp. Accepted
// representations are time.Time, RFC 3339 strings, and numeric epoch
// milliseconds (the shapes that occur in legacy data).
func ParseTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed, true
		}
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed, true
		}
	case float64:
		return time.UnixMilli(int64(t)).UTC(), true
	case int64:
		return time.UnixMilli(t).UTC(), true
	case int:
		return time.UnixMilli(int64(t)).UTC(), true
	}
	return time.Time{}, false
}

// CompareValues orders two field values for range filters and sorting.
// Returns -1, 0 or 1, and false when the values are not comparable.
func CompareValues(a, b any) (int, bool) {
	if at, ok := ParseTime(a); ok {
		if bt, ok := ParseTime(b); ok {
			switch {
			case at.Before(bt):
				return -1, true
			case at.After(bt):
				return 1, true
			default:
				return 0, true
			}
		}
	}
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			default:
				return 0, true
			}
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.Compare(as, bs), true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
