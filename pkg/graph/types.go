package graph

import (
	"context"
	"fmt"
	"strings"
)

// Triple is a single (head, relation, tail) fact extracted from an accident report.
type Triple struct {
	Head     string `json:"head"`
	Relation string `json:"relation"`
	Tail     string `json:"tail"`
}

// Key returns the identity of the triple used for deduplication and comparison.
func (t Triple) Key() string {
	return fmt.Sprintf("%s|%s|%s", t.Head, t.Relation, t.Tail)
}

// Normalized returns a copy with trimmed fields and an upper-cased relation,
// the form the graph store works with.
func (t Triple) Normalized() Triple {
	return Triple{
		Head:     strings.TrimSpace(t.Head),
		Relation: strings.ToUpper(strings.TrimSpace(t.Relation)),
		Tail:     strings.TrimSpace(t.Tail),
	}
}

// Report is one free-text accident report taken from a source dataset.
type Report struct {
	Source string `json:"source"`
	ID     int    `json:"id"`
	Text   string `json:"text"`
}

// CaseID returns the anchor node name for the report, e.g. "WA_0".
func (r Report) CaseID() string {
	return fmt.Sprintf("%s_%d", r.Source, r.ID)
}

// CaseResult is the extraction output for a single report.
type CaseResult struct {
	CaseID          string   `json:"case_id"`
	Source          string   `json:"source"`
	Triples         []Triple `json:"triples"`
	TripleCount     int      `json:"triple_count"`
	ProcessingTimeS float64  `json:"processing_time_s"`
}

// RunSummary aggregates a single pipeline run over a batch of reports.
type RunSummary struct {
	RunID        string  `json:"run_id"`
	Pipeline     string  `json:"pipeline"`
	TotalCases   int     `json:"total_cases"`
	TotalTriples int     `json:"total_triples"`
	AvgTriples   float64 `json:"avg_triples"`
	TotalTimeS   float64 `json:"total_time_s"`
	AvgTimeS     float64 `json:"avg_time_s"`
}

// UploadSummary reports how an upload of pipeline results went.
type UploadSummary struct {
	Pipeline         string `json:"pipeline"`
	CasesProcessed   int    `json:"cases_processed"`
	TriplesAttempted int    `json:"triples_attempted"`
	TriplesUploaded  int    `json:"triples_uploaded"`
}

// Stats holds aggregate counts for the whole graph.
type Stats struct {
	Nodes         int64 `json:"nodes"`
	Relationships int64 `json:"relationships"`
}

// Extractor turns one report into triples. Name doubles as the pipeline tag
// written onto every relationship the extractor's triples produce.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, report Report) ([]Triple, error)
}

// Storage is the graph backend uploads are written to.
type Storage interface {
	VerifyConnection() error
	UploadTriples(ctx context.Context, triples []Triple, pipelineTag string) (int, error)
	UploadPipelineResults(ctx context.Context, results []CaseResult, pipelineTag string) (UploadSummary, error)
	ClearPipelineData(ctx context.Context, pipelineTag string) error
	Stats(ctx context.Context) (Stats, error)
	Close() error
}
