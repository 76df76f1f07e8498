package graph

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubExtractor struct {
	name    string
	triples map[int][]Triple
	errOn   map[int]error
	calls   []int
}

func (s *stubExtractor) Name() string { return s.name }

func (s *stubExtractor) Extract(ctx context.Context, report Report) ([]Triple, error) {
	s.calls = append(s.calls, report.ID)
	if err, ok := s.errOn[report.ID]; ok {
		return nil, err
	}
	return s.triples[report.ID], nil
}

func sampleReports(n int) []Report {
	reports := make([]Report, 0, n)
	for i := 0; i < n; i++ {
		reports = append(reports, Report{Source: "WA", ID: i, Text: "some report text"})
	}
	return reports
}

func TestPipelineRun(t *testing.T) {
	extractor := &stubExtractor{
		name: "nlp",
		triples: map[int][]Triple{
			0: {
				{Head: "WA_0", Relation: "OCCUR_IN", Tail: "Richland"},
				{Head: "WA_0", Relation: "INVOLVE", Tail: "Vehicle1"},
			},
			1: {
				{Head: "WA_1", Relation: "OCCUR_IN", Tail: "Seattle"},
			},
		},
	}
	pipeline := NewPipeline(extractor)

	results, summary, err := pipeline.Run(context.Background(), sampleReports(2))
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, []int{0, 1}, extractor.calls, "reports must be processed in input order")

	assert.Equal(t, "WA_0", results[0].CaseID)
	assert.Equal(t, "WA", results[0].Source)
	assert.Equal(t, 2, results[0].TripleCount)
	assert.Equal(t, "WA_1", results[1].CaseID)
	assert.Equal(t, 1, results[1].TripleCount)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, "nlp", summary.Pipeline)
	assert.Equal(t, 2, summary.TotalCases)
	assert.Equal(t, 3, summary.TotalTriples)
	assert.Equal(t, 1.5, summary.AvgTriples)
	assert.GreaterOrEqual(t, summary.TotalTimeS, 0.0)
}

func TestPipelineRunExtractorErrorContinues(t *testing.T) {
	extractor := &stubExtractor{
		name:  "llm",
		errOn: map[int]error{0: errors.New("model unavailable")},
		triples: map[int][]Triple{
			1: {{Head: "WA_1", Relation: "MEASURE", Tail: "Fatal"}},
		},
	}
	pipeline := NewPipeline(extractor)

	results, summary, err := pipeline.Run(context.Background(), sampleReports(2))
	require.NoError(t, err, "a failed case must not abort the run")
	require.Len(t, results, 2)

	assert.Equal(t, 0, results[0].TripleCount)
	require.NotNil(t, results[0].Triples)
	encoded, err := json.Marshal(results[0].Triples)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(encoded), "failed cases serialize an empty list, not null")

	assert.Equal(t, 1, results[1].TripleCount)
	assert.Equal(t, 2, summary.TotalCases)
	assert.Equal(t, 1, summary.TotalTriples)
	assert.Equal(t, 0.5, summary.AvgTriples)
}

func TestPipelineRunEmptyBatch(t *testing.T) {
	pipeline := NewPipeline(&stubExtractor{name: "nlp"})

	results, summary, err := pipeline.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 0, summary.TotalCases)
	assert.Equal(t, 0.0, summary.AvgTriples)
	assert.Equal(t, 0.0, summary.AvgTimeS)
}

func TestPipelineRunContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	extractor := &stubExtractor{name: "nlp"}
	pipeline := NewPipeline(extractor)

	_, _, err := pipeline.Run(ctx, sampleReports(3))
	assert.Error(t, err)
	assert.Empty(t, extractor.calls)
}

func TestComparePipelines(t *testing.T) {
	a := []CaseResult{{
		CaseID: "WA_0",
		Triples: []Triple{
			{Head: "WA_0", Relation: "OCCUR_IN", Tail: "Richland"},
			{Head: "WA_0", Relation: "INVOLVE", Tail: "Vehicle1"},
			{Head: "speeding", Relation: "cause", Tail: "WA_0"},
		},
	}}
	b := []CaseResult{{
		CaseID: "WA_0",
		Triples: []Triple{
			{Head: "WA_0", Relation: "OCCUR_IN", Tail: "Richland"},
			{Head: "speeding", Relation: "CAUSE", Tail: "WA_0"},
			{Head: "WA_0", Relation: "MEASURE", Tail: "Fatal"},
		},
	}}

	comparison := ComparePipelines("nlp", a, "llm", b)

	assert.Equal(t, "nlp", comparison.PipelineA)
	assert.Equal(t, "llm", comparison.PipelineB)
	assert.Equal(t, 3, comparison.TriplesA)
	assert.Equal(t, 3, comparison.TriplesB)
	assert.Equal(t, 2, comparison.Shared, "relation case differences must not count as disagreement")
	assert.Equal(t, 1, comparison.OnlyA)
	assert.Equal(t, 1, comparison.OnlyB)
	assert.Equal(t, 0.5, comparison.Jaccard)
}

func TestComparePipelinesEmpty(t *testing.T) {
	comparison := ComparePipelines("nlp", nil, "llm", nil)
	assert.Zero(t, comparison.Shared)
	assert.Equal(t, 0.0, comparison.Jaccard)
}

func TestRound(t *testing.T) {
	assert.Equal(t, 1.23, round(1.2345, 2))
	assert.Equal(t, 1.2346, round(1.23456, 4))
	assert.Equal(t, 0.0, round(0, 4))
	assert.Equal(t, 2.0, round(1.9999, 2))
}
