package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sitegrid/reportsnap/internal/docstore"
	"github.com/sitegrid/reportsnap/internal/metrics"
)

const (
	// ProjectsCollection is the root collection holding project documents.
	ProjectsCollection = "projects"
	// MaterialsCollection holds material requests, stored outside the
	// project hierarchy and joined by projectId.
	MaterialsCollection = "partRequests"
)

// testTimestampAliases are the recognized last-updated field names on
// test records.
var testTimestampAliases = []string{"lastUpdatedAt", "updatedAt", "timestamp"}

// Builder is the aggregation engine: it walks a project's hierarchy,
// reconciles schema variants, and assembles one snapshot document.
type Builder struct {
	store     docstore.Store
	resolver  *Resolver
	collector *Collector
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewBuilder creates a snapshot builder.
func NewBuilder(store docstore.Store, m *metrics.Metrics, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		store:     store,
		resolver:  NewResolver(store, logger),
		collector: NewCollector(store, logger),
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// Build assembles and persists a snapshot. A nil snapshot with a nil
// error means the project does not exist; callers must treat that as a
// distinct, non-error outcome. Only an unreadable project root or a
// failed persist surfaces as an error.
func (b *Builder) Build(ctx context.Context, projectID string, dr *DateRange) (*Snapshot, error) {
	started := b.now()
	b.metrics.BuildStarted()

	snap, err := b.Assemble(ctx, projectID, dr)
	if err != nil {
		b.metrics.BuildFailed(b.now().Sub(started))
		return nil, err
	}
	if snap == nil {
		b.metrics.BuildFailed(b.now().Sub(started))
		return nil, nil
	}

	if err := b.persist(ctx, snap, dr); err != nil {
		b.metrics.BuildFailed(b.now().Sub(started))
		return nil, err
	}

	b.metrics.BuildSucceeded(b.now().Sub(started), snap.Metadata.TotalDataSize)
	b.logger.Info("snapshot persisted",
		"project", projectID,
		"key", Key(projectID, dr),
		"entries", snap.SummaryStats.TotalEntries,
		"images", snap.SummaryStats.TotalImages,
		"size", snap.Metadata.TotalDataSize)
	return snap, nil
}

// Assemble runs the aggregation pipeline without persisting anything.
// Sub-collection read failures are logged and treated as empty; the
// pipeline always tries to produce a snapshot, even a mostly-empty one.
func (b *Builder) Assemble(ctx context.Context, projectID string, dr *DateRange) (*Snapshot, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, fmt.Errorf("%w: project id is required", ErrInvalidInput)
	}

	projectPath := ProjectsCollection + "/" + projectID
	root, err := b.store.GetDocument(ctx, projectPath)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			b.logger.Info("project missing, no snapshot", "project", projectID)
			return nil, nil
		}
		return nil, fmt.Errorf("reading project root: %w", err)
	}

	acc := newAccumulator()

	b.collectPhases(ctx, projectPath, dr, acc)
	b.collectSubPhases(ctx, projectPath, dr, acc)
	b.collectTests(ctx, projectPath, dr, acc)
	b.collectMaterials(ctx, projectID, dr, acc)

	acc.stats.TotalImages = len(acc.images)

	diag := DiagnosticInfo{
		HasData:             acc.hasData(),
		ResolvedCollections: acc.resolved,
	}
	if !diag.HasData {
		diag.UnrecognizedCollections = b.deepScan(ctx, projectPath)
	}

	phases := make([]PhaseReport, 0, len(acc.phases))
	for _, rec := range acc.phases {
		phases = append(phases, *rec)
	}

	snap := &Snapshot{
		Version:      Version,
		BuildID:      uuid.NewString(),
		ProjectID:    projectID,
		ProjectData:  root.Fields,
		Phases:       phases,
		Tests:        acc.tests,
		Materials:    acc.materials,
		Images:       acc.images,
		SummaryStats: acc.stats,
	}
	snap.Metadata = ReportMetadata{
		GeneratedAt:  b.now(),
		IsFullReport: dr == nil,
		ImageCount:   acc.stats.TotalImages,
		EntryCount:   acc.stats.TotalEntries,
		TestCount:    acc.stats.TotalTests,
		RequestCount: acc.stats.TotalRequests,
		Diagnostics:  diag,
	}
	if dr != nil {
		start, end := dr.Start, dr.End
		snap.Metadata.StartDate = &start
		snap.Metadata.EndDate = &end
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("sizing snapshot: %w", err)
	}
	snap.Metadata.TotalDataSize = len(raw)

	return snap, nil
}

// GetSnapshot reads the stored full snapshot for a project. A nil
// result with nil error means no snapshot has been persisted yet.
func (b *Builder) GetSnapshot(ctx context.Context, projectID string) (*Snapshot, error) {
	doc, err := b.store.GetDocument(ctx, SnapshotsCollection+"/"+projectID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	raw, err := json.Marshal(doc.Fields)
	if err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &snap, nil
}

type accumulator struct {
	phases     []*PhaseReport
	phaseIndex map[string]*PhaseReport
	tests      []TestResult
	materials  []MaterialRequest
	images     []ImageRef
	stats      SummaryStats
	resolved   map[string]string
}

func newAccumulator() *accumulator {
	return &accumulator{
		phaseIndex: make(map[string]*PhaseReport),
		tests:      []TestResult{},
		materials:  []MaterialRequest{},
		images:     []ImageRef{},
		resolved:   make(map[string]string),
	}
}

func (a *accumulator) hasData() bool {
	return a.stats.TotalEntries > 0 || a.stats.TotalTests > 0 || a.stats.TotalRequests > 0
}

func (a *accumulator) touch(ts time.Time, has bool) {
	if !has {
		return
	}
	if a.stats.LastUpdated == nil || ts.After(*a.stats.LastUpdated) {
		t := ts
		a.stats.LastUpdated = &t
	}
}

// addPhase registers a phase record so sub-phase entries can attach to it.
func (a *accumulator) addPhase(rec *PhaseReport) {
	a.phases = append(a.phases, rec)
	a.phaseIndex[rec.ID] = rec
}

func (b *Builder) collectPhases(ctx context.Context, projectPath string, dr *DateRange, acc *accumulator) {
	resolved, err := b.resolver.Resolve(ctx, projectPath, KindPhases)
	if err != nil {
		b.logger.Error("phase collection unreadable, treating as empty", "error", err)
		return
	}
	acc.resolved[string(KindPhases)] = resolved.Collection

	for _, doc := range resolved.Documents {
		name := stringField(doc.Fields, "name")
		if name == "" {
			name = doc.ID
		}
		parent := ParentRef{PhaseID: doc.ID, PhaseName: name}

		entries, err := b.collector.CollectEntries(ctx, projectPath, KindPhases, resolved.Collection, doc.ID, parent, dr)
		if err != nil {
			b.logger.Error("phase entries unreadable, treating as empty",
				"phase", doc.ID, "error", err)
			entries = nil
		}

		rec := &PhaseReport{ID: doc.ID, Name: name, Entries: []Entry{}}
		for _, entry := range entries {
			if !Meaningful(entry) {
				continue
			}
			rec.Entries = append(rec.Entries, entry)
			acc.images = append(acc.images, ExtractEntryImages(entry)...)
			acc.stats.TotalEntries++
			acc.touch(entry.Timestamp, entry.HasOwnDate)
		}
		rec.EntryCount = len(rec.Entries)
		acc.addPhase(rec)
	}
}

func (b *Builder) collectSubPhases(ctx context.Context, projectPath string, dr *DateRange, acc *accumulator) {
	resolved, err := b.resolver.Resolve(ctx, projectPath, KindSubPhases)
	if err != nil {
		b.logger.Error("sub-phase collection unreadable, treating as empty", "error", err)
		return
	}
	acc.resolved[string(KindSubPhases)] = resolved.Collection

	for _, doc := range resolved.Documents {
		subName := stringField(doc.Fields, "name")
		if subName == "" {
			subName = doc.ID
		}
		parentID := stringField(doc.Fields, "parentPhaseId")
		parentName := stringField(doc.Fields, "parentPhaseName")
		if parentName == "" {
			parentName = UnspecifiedParent
		}

		// Sub-phase data is never dropped: entries attach to the parent
		// phase record when the link resolves, to a synthesized orphan
		// record otherwise.
		ownerID := parentID
		if ownerID == "" {
			ownerID = doc.ID
		}

		parent := ParentRef{
			PhaseID:      ownerID,
			PhaseName:    parentName,
			SubPhaseID:   doc.ID,
			SubPhaseName: subName,
		}

		entries, err := b.collector.CollectEntries(ctx, projectPath, KindSubPhases, resolved.Collection, doc.ID, parent, dr)
		if err != nil {
			b.logger.Error("sub-phase entries unreadable, treating as empty",
				"subphase", doc.ID, "error", err)
			entries = nil
		}

		var included []Entry
		for _, entry := range entries {
			if !Meaningful(entry) {
				continue
			}
			included = append(included, entry)
			acc.images = append(acc.images, ExtractEntryImages(entry)...)
			acc.stats.TotalEntries++
			acc.touch(entry.Timestamp, entry.HasOwnDate)
		}
		if len(included) == 0 {
			continue
		}

		rec, ok := acc.phaseIndex[ownerID]
		if !ok {
			rec = &PhaseReport{ID: ownerID, Name: parentName, Entries: []Entry{}, Orphan: true}
			acc.addPhase(rec)
		}
		rec.SubPhaseEntries = append(rec.SubPhaseEntries, included...)
		rec.EntryCount += len(included)
	}
}

func (b *Builder) collectTests(ctx context.Context, projectPath string, dr *DateRange, acc *accumulator) {
	resolved, err := b.resolver.Resolve(ctx, projectPath, KindTests)
	if err != nil {
		b.logger.Error("test collection unreadable, treating as empty", "error", err)
		return
	}
	acc.resolved[string(KindTests)] = resolved.Collection

	for _, doc := range resolved.Documents {
		test := TestResult{
			ID:             doc.ID,
			Name:           stringField(doc.Fields, "name"),
			ImageURL:       stringField(doc.Fields, testImageField),
			CollectionType: SourceTest,
			Fields:         doc.Fields,
		}
		if test.Name == "" {
			test.Name = doc.ID
		}
		for _, field := range testTimestampAliases {
			if ts, ok := docstore.ParseTime(doc.Fields[field]); ok {
				test.LastUpdatedAt = ts
				test.HasDate = true
				break
			}
		}

		// Tests have no content filter, but a ranged build still skips
		// tests whose own date falls outside the range.
		if dr != nil && test.HasDate && !inRange(test.LastUpdatedAt, dr) {
			continue
		}

		if ref := ExtractTestImage(test); ref != nil {
			acc.images = append(acc.images, *ref)
		}
		acc.tests = append(acc.tests, test)
		acc.stats.TotalTests++
		acc.touch(test.LastUpdatedAt, test.HasDate)
	}
}

func (b *Builder) collectMaterials(ctx context.Context, projectID string, dr *DateRange, acc *accumulator) {
	q := docstore.Query{
		Equals:  map[string]any{"projectId": projectID},
		OrderBy: "requestedAt",
		Desc:    true,
	}
	if dr != nil {
		q.Range = &docstore.RangeFilter{
			Field: "requestedAt",
			Start: dr.Start,
			End:   dr.End,
		}
	}

	docs, err := b.store.Query(ctx, MaterialsCollection, q)
	if err != nil {
		b.logger.Error("material requests unreadable, treating as empty", "error", err)
		return
	}

	for _, doc := range docs {
		req := MaterialRequest{
			ID:             doc.ID,
			ProjectID:      projectID,
			CollectionType: SourceMaterialRequest,
			Fields:         doc.Fields,
		}
		if ts, ok := docstore.ParseTime(doc.Fields["requestedAt"]); ok {
			req.RequestedAt = ts
			req.HasDate = true
		}
		acc.materials = append(acc.materials, req)
		acc.stats.TotalRequests++
		acc.touch(req.RequestedAt, req.HasDate)
	}
}

// deepScan surfaces child collection names the resolver does not
// recognize. It never contributes data to the snapshot, only to the
// diagnostic metadata.
func (b *Builder) deepScan(ctx context.Context, projectPath string) []string {
	names, err := b.store.ListCollections(ctx, projectPath)
	if err != nil {
		b.logger.Error("diagnostic scan failed", "error", err)
		return nil
	}

	known := KnownCollections()
	var unrecognized []string
	for _, name := range names {
		if known[name] {
			continue
		}
		count, err := b.store.CountDocuments(ctx, projectPath+"/"+name)
		if err != nil {
			b.logger.Error("diagnostic count failed", "collection", name, "error", err)
			continue
		}
		if count > 0 {
			unrecognized = append(unrecognized, name)
		}
	}
	if len(unrecognized) > 0 {
		b.logger.Warn("unrecognized collections hold data", "project", projectPath, "collections", unrecognized)
	}
	return unrecognized
}

func (b *Builder) persist(ctx context.Context, snap *Snapshot, dr *DateRange) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("%w: encoding: %v", ErrPersistFailed, err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("%w: encoding: %v", ErrPersistFailed, err)
	}

	path := SnapshotsCollection + "/" + Key(snap.ProjectID, dr)
	if err := b.store.SetDocument(ctx, path, fields); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	return nil
}
