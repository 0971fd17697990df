package snapshot

import (
	"fmt"
	"time"
)

// Version is written into every snapshot document. Version 3 is the
// first that records resolver diagnostics.
const Version = 3

// UnspecifiedParent is recorded when a sub-phase carries no parent
// phase name of its own.
const UnspecifiedParent = "unspecified"

// Collection type tags carried on aggregated records, kept for
// compatibility with existing report consumers.
const (
	SourceMainPhase       = "main_phase"
	SourceSubPhase        = "sub_phase"
	SourceTest            = "test"
	SourceMaterialRequest = "material_request"
)

// ImageType classifies where in the workflow an image was taken.
type ImageType string

const (
	ImageProgress   ImageType = "progress"
	ImageBefore     ImageType = "before"
	ImageAfter      ImageType = "after"
	ImageOther      ImageType = "other"
	ImageTestResult ImageType = "test_result"
)

// DateRange restricts a build to entries within [Start, End).
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Entry is a normalized progress entry under a phase or sub-phase.
// Timestamp is always set: when the source record carries no recognized
// date field a read-time fallback is substituted, flagged by HasOwnDate
// so it is never mistaken for source data.
type Entry struct {
	ID             string         `json:"id"`
	PhaseID        string         `json:"phaseId"`
	PhaseName      string         `json:"phaseName"`
	SubPhaseID     string         `json:"subPhaseId,omitempty"`
	SubPhaseName   string         `json:"subPhaseName,omitempty"`
	CollectionType string         `json:"collectionType"`
	Text           string         `json:"text,omitempty"`
	Status         string         `json:"status,omitempty"`
	StatusSet      bool           `json:"-"`
	Timestamp      time.Time      `json:"timestamp"`
	HasOwnDate     bool           `json:"-"`
	Images         map[string][]string `json:"-"`
	Fields         map[string]any `json:"fields,omitempty"`
}

// PhaseReport aggregates one phase's entries plus the entries of its
// sub-phases. Orphan marks a synthesized record for sub-phases whose
// parent phase could not be resolved.
type PhaseReport struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Entries         []Entry `json:"entries"`
	SubPhaseEntries []Entry `json:"subPhaseEntries,omitempty"`
	EntryCount      int     `json:"entryCount"`
	Orphan          bool    `json:"orphan,omitempty"`
}

// TestResult is a project-level test record, included unconditionally.
type TestResult struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	ImageURL       string         `json:"imageUrl,omitempty"`
	LastUpdatedAt  time.Time      `json:"lastUpdatedAt"`
	HasDate        bool           `json:"-"`
	CollectionType string         `json:"collectionType"`
	Fields         map[string]any `json:"fields,omitempty"`
}

// MaterialRequest is a material request referencing the project by id.
type MaterialRequest struct {
	ID             string         `json:"id"`
	ProjectID      string         `json:"projectId"`
	RequestedAt    time.Time      `json:"requestedAt"`
	HasDate        bool           `json:"-"`
	CollectionType string         `json:"collectionType"`
	Fields         map[string]any `json:"fields,omitempty"`
}

// ImageRef is one flattened image reference. It is derived data: the
// builder emits one per URL found in any recognized image field.
type ImageRef struct {
	URL          string    `json:"url"`
	Source       string    `json:"source"`
	PhaseID      string    `json:"phaseId,omitempty"`
	PhaseName    string    `json:"phaseName,omitempty"`
	SubPhaseID   string    `json:"subPhaseId,omitempty"`
	SubPhaseName string    `json:"subPhaseName,omitempty"`
	EntryID      string    `json:"entryId,omitempty"`
	TestID       string    `json:"testId,omitempty"`
	TestName     string    `json:"testName,omitempty"`
	Field        string    `json:"field"`
	Type         ImageType `json:"type"`
	Timestamp    time.Time `json:"timestamp"`
}

// SummaryStats holds the one-pass aggregate counters.
type SummaryStats struct {
	TotalEntries  int        `json:"totalEntries"`
	TotalImages   int        `json:"totalImages"`
	TotalTests    int        `json:"totalTests"`
	TotalRequests int        `json:"totalRequests"`
	LastUpdated   *time.Time `json:"lastUpdated,omitempty"`
}

// DiagnosticInfo records which schema variants held data, for operator
// visibility. UnrecognizedCollections is only populated by the deep scan
// that runs when a build finds no data at all.
type DiagnosticInfo struct {
	HasData                 bool              `json:"hasData"`
	ResolvedCollections     map[string]string `json:"resolvedCollections"`
	UnrecognizedCollections []string          `json:"unrecognizedCollections,omitempty"`
}

// ReportMetadata describes the build itself. The count fields duplicate
// SummaryStats for report-consumer compatibility.
type ReportMetadata struct {
	GeneratedAt   time.Time      `json:"generatedAt"`
	StartDate     *time.Time     `json:"startDate,omitempty"`
	EndDate       *time.Time     `json:"endDate,omitempty"`
	IsFullReport  bool           `json:"isFullReport"`
	TotalDataSize int            `json:"totalDataSize"`
	ImageCount    int            `json:"imageCount"`
	EntryCount    int            `json:"entryCount"`
	TestCount     int            `json:"testCount"`
	RequestCount  int            `json:"requestCount"`
	Diagnostics   DiagnosticInfo `json:"diagnosticInfo"`
}

// Snapshot is the denormalized report document, created fresh on every
// build and written as a whole.
type Snapshot struct {
	Version      int               `json:"version"`
	BuildID      string            `json:"buildId"`
	ProjectID    string            `json:"projectId"`
	ProjectData  map[string]any    `json:"projectData"`
	Phases       []PhaseReport     `json:"phasesData"`
	Tests        []TestResult      `json:"testsData"`
	Materials    []MaterialRequest `json:"materialsData"`
	Images       []ImageRef        `json:"imagesData"`
	SummaryStats SummaryStats      `json:"summaryStats"`
	Metadata     ReportMetadata    `json:"reportMetadata"`
}

// SnapshotsCollection is where snapshot documents are persisted.
const SnapshotsCollection = "report_snapshots"

// Key returns the document id a snapshot is persisted under: the bare
// project id for full builds, a composite id for ranged builds. Ranged
// snapshots are additive and never collide with the full snapshot.
func Key(projectID string, dr *DateRange) string {
	if dr == nil {
		return projectID
	}
	return fmt.Sprintf("%s_%d_%d", projectID, dr.Start.UnixMilli(), dr.End.UnixMilli())
}
