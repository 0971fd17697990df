package rebuild

import (
	"context"
	"fmt"

	"github.com/sitegrid/reportsnap/internal/docstore"
	"github.com/sitegrid/reportsnap/internal/snapshot"
)

// StoreLister lists project ids straight from the document store.
type StoreLister struct {
	Store docstore.Store
}

// ListProjectIDs returns the id of every document in the projects
// collection.
func (l StoreLister) ListProjectIDs(ctx context.Context) ([]string, error) {
	docs, err := l.Store.GetAll(ctx, snapshot.ProjectsCollection)
	if err != nil {
		return nil, fmt.Errorf("reading projects: %w", err)
	}
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID)
	}
	return ids, nil
}
