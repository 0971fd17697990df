package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/sitegrid/reportsnap/internal/docstore"
)

// entriesCollection is the sub-collection entries live under, for every
// schema variant.
const entriesCollection = "entries"

// ParentRef identifies the phase or sub-phase an entry belongs to in
// the assembled snapshot.
type ParentRef struct {
	PhaseID      string
	PhaseName    string
	SubPhaseID   string
	SubPhaseName string
}

// Collector reads and normalizes the entries under a resolved phase or
// sub-phase document.
type Collector struct {
	store  docstore.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewCollector creates a new entry collector.
func NewCollector(store docstore.Store, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{store: store, logger: logger, now: time.Now}
}

// CollectEntries fetches the entries under the parent document found in
// resolvedCollection, retrying under the alternate schema variant when
// the first read is empty. Entry sets sometimes live under a different
// top-level name than their parent was found under; that migration
// artifact is tolerated here, not treated as an error. The date range
// is applied after fallback resolution: it is a business filter, not a
// schema concern. Entries come back ordered by timestamp descending.
func (c *Collector) CollectEntries(ctx context.Context, projectPath string, kind Kind, resolvedCollection, parentDocID string, parent ParentRef, dr *DateRange) ([]Entry, error) {
	path := fmt.Sprintf("%s/%s/%s/%s", projectPath, resolvedCollection, parentDocID, entriesCollection)
	docs, err := c.store.GetAll(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("reading entries: %w", err)
	}

	if len(docs) == 0 {
		if alt := AlternateCollection(kind, resolvedCollection); alt != "" {
			altPath := fmt.Sprintf("%s/%s/%s/%s", projectPath, alt, parentDocID, entriesCollection)
			docs, err = c.store.GetAll(ctx, altPath)
			if err != nil {
				return nil, fmt.Errorf("reading entries under %s: %w", alt, err)
			}
			if len(docs) > 0 {
				c.logger.Debug("entries found under alternate schema",
					"parent", parentDocID, "collection", alt, "count", len(docs))
			}
		}
	}

	entries := make([]Entry, 0, len(docs))
	for _, doc := range docs {
		entry := c.normalize(doc, parent)
		if dr != nil && !inRange(entry.Timestamp, dr) {
			continue
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})

	return entries, nil
}

// normalize reconciles the historically-used field names into one Entry.
// The timestamp fallback is computed at read time only and never written
// back to the source record.
func (c *Collector) normalize(doc docstore.Document, parent ParentRef) Entry {
	entry := Entry{
		ID:           doc.ID,
		PhaseID:      parent.PhaseID,
		PhaseName:    parent.PhaseName,
		SubPhaseID:   parent.SubPhaseID,
		SubPhaseName: parent.SubPhaseName,
		Fields:       doc.Fields,
	}
	if parent.SubPhaseID != "" {
		entry.CollectionType = SourceSubPhase
	} else {
		entry.CollectionType = SourceMainPhase
	}

	for _, field := range textFieldAliases {
		if text := stringField(doc.Fields, field); text != "" {
			entry.Text = text
			c.logger.Debug("entry text field", "entry", doc.ID, "field", field)
			break
		}
	}

	for _, field := range statusFieldAliases {
		if value, ok := doc.Fields[field]; ok && value != nil {
			entry.StatusSet = true
			if s, ok := value.(string); ok {
				entry.Status = s
			} else {
				entry.Status = fmt.Sprint(value)
			}
			break
		}
	}

	for _, field := range timestampFieldAliases {
		if value, ok := doc.Fields[field]; ok {
			if ts, ok := docstore.ParseTime(value); ok {
				entry.Timestamp = ts
				entry.HasOwnDate = true
				break
			}
		}
	}
	if !entry.HasOwnDate {
		entry.Timestamp = c.now()
	}

	entry.Images = collectImageFields(doc.Fields)

	return entry
}

// collectImageFields gathers every trimmed, non-empty URL under each
// recognized image field name.
func collectImageFields(fields map[string]any) map[string][]string {
	images := make(map[string][]string)
	for _, field := range entryImageFields {
		urls := urlList(fields[field.Name])
		if len(urls) > 0 {
			images[field.Name] = urls
		}
	}
	return images
}

func urlList(value any) []string {
	list, ok := value.([]any)
	if !ok {
		return nil
	}
	var urls []string
	for _, item := range list {
		if s, ok := item.(string); ok {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				urls = append(urls, trimmed)
			}
		}
	}
	return urls
}

func stringField(fields map[string]any, name string) string {
	if s, ok := fields[name].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func inRange(ts time.Time, dr *DateRange) bool {
	return !ts.Before(dr.Start) && ts.Before(dr.End)
}
