package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/crashgraph/crashgraph/pkg/graph"
)

// ResultStore persists pipeline artifacts as JSON files in a single
// output directory.
type ResultStore struct {
	dir string
}

// NewResultStore creates a store rooted at dir. The directory is created
// on first write.
func NewResultStore(dir string) *ResultStore {
	return &ResultStore{dir: dir}
}

// SaveCaseResults writes per-case extraction output to
// <pipeline>_triples.json and returns the file path.
func (s *ResultStore) SaveCaseResults(pipeline string, results []graph.CaseResult) (string, error) {
	return s.write(fmt.Sprintf("%s_triples.json", pipeline), results)
}

// SaveRunSummaries writes every pipeline's aggregate summary to one
// run_summary.json. Each run overwrites the previous file.
func (s *ResultStore) SaveRunSummaries(summaries []graph.RunSummary) (string, error) {
	return s.write("run_summary.json", summaries)
}

// SaveSnapshot writes an offline graph snapshot to <pipeline>_graph.json.
func (s *ResultStore) SaveSnapshot(pipeline string, snapshot *graph.Snapshot) (string, error) {
	return s.write(fmt.Sprintf("%s_graph.json", pipeline), snapshot)
}

// SaveComparison writes a two-pipeline comparison to
// pipeline_comparison.json.
func (s *ResultStore) SaveComparison(comparison graph.PipelineComparison) (string, error) {
	return s.write("pipeline_comparison.json", comparison)
}

// LoadCaseResults reads back a per-case artifact, so uploads can run
// without re-extracting.
func (s *ResultStore) LoadCaseResults(pipeline string) ([]graph.CaseResult, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, fmt.Sprintf("%s_triples.json", pipeline)))
	if err != nil {
		return nil, err
	}

	var results []graph.CaseResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *ResultStore) write(name string, v interface{}) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}
