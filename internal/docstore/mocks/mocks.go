// Package mocks provides testify mocks for the docstore interfaces.
package mocks

import (
	"context"

	"github.com/sitegrid/reportsnap/internal/docstore"
	"github.com/stretchr/testify/mock"
)

// Store is a mock for docstore.Store.
type Store struct {
	mock.Mock
}

func (m *Store) GetDocument(ctx context.Context, path string) (*docstore.Document, error) {
	args := m.Called(ctx, path)
	if doc, ok := args.Get(0).(*docstore.Document); ok {
		return doc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Store) GetAll(ctx context.Context, collection string) ([]docstore.Document, error) {
	args := m.Called(ctx, collection)
	if docs, ok := args.Get(0).([]docstore.Document); ok {
		return docs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Store) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Document, error) {
	args := m.Called(ctx, collection, q)
	if docs, ok := args.Get(0).([]docstore.Document); ok {
		return docs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Store) ListCollections(ctx context.Context, docPath string) ([]string, error) {
	args := m.Called(ctx, docPath)
	if names, ok := args.Get(0).([]string); ok {
		return names, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Store) CountDocuments(ctx context.Context, collection string) (int, error) {
	args := m.Called(ctx, collection)
	return args.Int(0), args.Error(1)
}

func (m *Store) SetDocument(ctx context.Context, path string, fields map[string]any) error {
	args := m.Called(ctx, path, fields)
	return args.Error(0)
}
