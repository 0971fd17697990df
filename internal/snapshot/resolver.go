package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sitegrid/reportsnap/internal/docstore"
)

// Kind names a logical entity family under a project root.
type Kind string

const (
	KindPhases    Kind = "phases"
	KindSubPhases Kind = "subphases"
	KindTests     Kind = "tests"
)

// candidateSet is an ordered fallback chain: current collection name
// first, then the legacy name, then a scan of all child collections
// whose names match the kind's pattern.
type candidateSet struct {
	primary string
	legacy  string
	match   func(name string) bool
}

var candidates = map[Kind]candidateSet{
	KindPhases: {
		primary: "phases_status",
		legacy:  "phases",
		match: func(name string) bool {
			return strings.Contains(name, "phase") && !strings.Contains(name, "sub")
		},
	},
	KindSubPhases: {
		primary: "subphases_status",
		legacy:  "subphases",
		match: func(name string) bool {
			return strings.Contains(name, "sub") && strings.Contains(name, "phase")
		},
	},
	KindTests: {
		primary: "tests_status",
		legacy:  "tests",
		match: func(name string) bool {
			return strings.Contains(name, "test")
		},
	},
}

// AlternateCollection returns the other known collection name for the
// kind a collection was resolved under, used for the cross-schema entry
// fallback. Names outside the known pair have no alternate.
func AlternateCollection(kind Kind, resolved string) string {
	set := candidates[kind]
	switch resolved {
	case set.primary:
		return set.legacy
	case set.legacy:
		return set.primary
	default:
		return ""
	}
}

// KnownCollections returns every collection name the resolver
// recognizes under a project root.
func KnownCollections() map[string]bool {
	known := make(map[string]bool)
	for _, set := range candidates {
		known[set.primary] = true
		known[set.legacy] = true
	}
	return known
}

// Resolver determines which schema variant actually holds documents.
type Resolver struct {
	store  docstore.Store
	logger *slog.Logger
}

// NewResolver creates a new schema resolver.
func NewResolver(store docstore.Store, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: store, logger: logger}
}

// Resolved is the outcome of a resolution: the documents found and the
// collection name they were found under. An empty result is valid and
// means the project has zero entities of this kind.
type Resolved struct {
	Documents  []docstore.Document
	Collection string
}

// Resolve tries each candidate collection name in preference order and
// returns the first non-empty result. Empty everywhere is not an error.
func (r *Resolver) Resolve(ctx context.Context, projectPath string, kind Kind) (Resolved, error) {
	set, ok := candidates[kind]
	if !ok {
		return Resolved{}, fmt.Errorf("unknown entity kind %q", kind)
	}

	for _, name := range []string{set.primary, set.legacy} {
		docs, err := r.store.GetAll(ctx, projectPath+"/"+name)
		if err != nil {
			return Resolved{}, fmt.Errorf("reading %s: %w", name, err)
		}
		if len(docs) > 0 {
			r.logger.Debug("resolved collection", "kind", kind, "collection", name, "count", len(docs))
			return Resolved{Documents: docs, Collection: name}, nil
		}
	}

	return r.scan(ctx, projectPath, kind, set)
}

// scan is the last-resort pass over all child collections matching the
// kind's name pattern.
func (r *Resolver) scan(ctx context.Context, projectPath string, kind Kind, set candidateSet) (Resolved, error) {
	names, err := r.store.ListCollections(ctx, projectPath)
	if err != nil {
		return Resolved{}, fmt.Errorf("listing collections: %w", err)
	}

	for _, name := range names {
		if name == set.primary || name == set.legacy || !set.match(name) {
			continue
		}
		docs, err := r.store.GetAll(ctx, projectPath+"/"+name)
		if err != nil {
			return Resolved{}, fmt.Errorf("reading %s: %w", name, err)
		}
		if len(docs) > 0 {
			r.logger.Info("resolved collection via scan", "kind", kind, "collection", name, "count", len(docs))
			return Resolved{Documents: docs, Collection: name}, nil
		}
	}

	return Resolved{}, nil
}
