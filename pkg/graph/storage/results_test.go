package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crashgraph/crashgraph/pkg/graph"
)

func TestResultStoreCaseResultsRoundTrip(t *testing.T) {
	// Nested path: the store must create its directory on first write.
	store := NewResultStore(filepath.Join(t.TempDir(), "out"))

	results := []graph.CaseResult{
		{
			CaseID: "WA_0",
			Source: "WA",
			Triples: []graph.Triple{
				{Head: "WA_0", Relation: "OCCUR_IN", Tail: "Richland"},
			},
			TripleCount:     1,
			ProcessingTimeS: 0.0123,
		},
		{
			CaseID:  "WA_1",
			Source:  "WA",
			Triples: []graph.Triple{},
		},
	}

	path, err := store.SaveCaseResults("nlp", results)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "nlp_triples.json"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  ", "artifacts are written indented")
	assert.Contains(t, string(data), `"triples": []`, "empty cases serialize a list, not null")

	loaded, err := store.LoadCaseResults("nlp")
	require.NoError(t, err)
	assert.Equal(t, results, loaded)
}

func TestResultStoreRunSummaries(t *testing.T) {
	dir := t.TempDir()
	store := NewResultStore(dir)

	summaries := []graph.RunSummary{
		{
			RunID:        "run-1",
			Pipeline:     "nlp",
			TotalCases:   2,
			TotalTriples: 3,
			AvgTriples:   1.5,
			TotalTimeS:   0.42,
			AvgTimeS:     0.21,
		},
		{
			RunID:    "run-2",
			Pipeline: "llm",
		},
	}

	path, err := store.SaveRunSummaries(summaries)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "run_summary.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	// One file carries every pipeline's summary.
	var loaded []graph.RunSummary
	require.NoError(t, json.Unmarshal(data, &loaded))
	assert.Equal(t, summaries, loaded)
}

func TestResultStoreSnapshot(t *testing.T) {
	store := NewResultStore(t.TempDir())

	builder := graph.NewSnapshotBuilder("nlp", nil)
	builder.AddTriple(graph.Triple{Head: "WA_0", Relation: "OCCUR_IN", Tail: "Richland"}, "WA_0")
	snapshot := builder.Build()

	path, err := store.SaveSnapshot("nlp", snapshot)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "nlp_graph.json"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var loaded graph.Snapshot
	require.NoError(t, json.Unmarshal(data, &loaded))
	assert.Equal(t, "nlp", loaded.Pipeline)
	assert.Len(t, loaded.Nodes, 2)
	assert.Len(t, loaded.Edges, 1)
}

func TestResultStoreComparison(t *testing.T) {
	store := NewResultStore(t.TempDir())

	comparison := graph.PipelineComparison{
		PipelineA: "nlp",
		PipelineB: "llm",
		Shared:    2,
		Jaccard:   0.5,
	}

	path, err := store.SaveComparison(comparison)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "pipeline_comparison.json"))
}

func TestResultStoreLoadMissing(t *testing.T) {
	store := NewResultStore(t.TempDir())
	_, err := store.LoadCaseResults("llm")
	assert.Error(t, err)
}
