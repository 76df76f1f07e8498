package graph

import (
	"context"
	"math"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/crashgraph/crashgraph/pkg/graph/metrics"
)

// Pipeline runs one extractor over a batch of reports, one report at a
// time. Reports are never processed concurrently: extractors emit triples
// in a meaningful order and results must line up with the input batch.
type Pipeline struct {
	extractor Extractor
	logger    *logrus.Logger
}

// NewPipeline creates a runner for the given extractor.
func NewPipeline(extractor Extractor) *Pipeline {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &Pipeline{
		extractor: extractor,
		logger:    logger,
	}
}

// Run extracts triples from every report and returns per-case results plus
// an aggregate summary. A report that fails extraction yields an empty
// case result and the run continues; only context cancellation aborts the
// batch.
func (p *Pipeline) Run(ctx context.Context, reports []Report) ([]CaseResult, RunSummary, error) {
	name := p.extractor.Name()
	runID := uuid.New().String()

	p.logger.WithFields(logrus.Fields{
		"run_id":   runID,
		"pipeline": name,
		"cases":    len(reports),
	}).Info("Starting pipeline run")

	results := make([]CaseResult, 0, len(reports))
	totalTriples := 0
	totalTime := 0.0

	for i, report := range reports {
		if err := ctx.Err(); err != nil {
			return results, RunSummary{}, err
		}

		start := time.Now()
		triples, err := p.extractor.Extract(ctx, report)
		elapsed := time.Since(start).Seconds()
		metrics.ExtractionDuration.WithLabelValues(name).Observe(elapsed)

		if err != nil {
			p.logger.WithField("case_id", report.CaseID()).Errorf("Extraction failed: %v", err)
			metrics.ExtractionErrors.WithLabelValues(name).Inc()
			triples = nil
		}
		// Serialized case results always carry a list, never null.
		if triples == nil {
			triples = []Triple{}
		}

		for _, t := range triples {
			metrics.TriplesExtracted.WithLabelValues(name, t.Normalized().Relation).Inc()
		}

		result := CaseResult{
			CaseID:          report.CaseID(),
			Source:          report.Source,
			Triples:         triples,
			TripleCount:     len(triples),
			ProcessingTimeS: round(elapsed, 4),
		}
		results = append(results, result)
		totalTriples += len(triples)
		totalTime += elapsed

		p.logger.WithFields(logrus.Fields{
			"case_id":  result.CaseID,
			"triples":  result.TripleCount,
			"progress": i + 1,
			"cases":    len(reports),
		}).Info("Processed report")
	}

	summary := RunSummary{
		RunID:        runID,
		Pipeline:     name,
		TotalCases:   len(results),
		TotalTriples: totalTriples,
		TotalTimeS:   round(totalTime, 4),
	}
	if len(results) > 0 {
		summary.AvgTriples = round(float64(totalTriples)/float64(len(results)), 2)
		summary.AvgTimeS = round(totalTime/float64(len(results)), 4)
	}

	metrics.UpdateSystemMetrics()
	p.logger.WithFields(logrus.Fields{
		"run_id":        summary.RunID,
		"pipeline":      summary.Pipeline,
		"total_cases":   summary.TotalCases,
		"total_triples": summary.TotalTriples,
		"avg_triples":   summary.AvgTriples,
		"total_time_s":  summary.TotalTimeS,
	}).Info("Pipeline run complete")

	return results, summary, nil
}

// PipelineComparison summarizes triple overlap between two extraction runs.
type PipelineComparison struct {
	PipelineA string  `json:"pipeline_a"`
	PipelineB string  `json:"pipeline_b"`
	TriplesA  int     `json:"triples_a"`
	TriplesB  int     `json:"triples_b"`
	Shared    int     `json:"shared"`
	OnlyA     int     `json:"only_a"`
	OnlyB     int     `json:"only_b"`
	Jaccard   float64 `json:"jaccard"`
}

// ComparePipelines measures how much two runs agree. Triples are compared
// by normalized (head, relation, tail) identity, so casing and whitespace
// differences between extractors do not count as disagreement.
func ComparePipelines(nameA string, a []CaseResult, nameB string, b []CaseResult) PipelineComparison {
	setA := tripleSet(a)
	setB := tripleSet(b)

	shared := setA.Intersect(setB)
	union := setA.Union(setB)

	comparison := PipelineComparison{
		PipelineA: nameA,
		PipelineB: nameB,
		TriplesA:  setA.Cardinality(),
		TriplesB:  setB.Cardinality(),
		Shared:    shared.Cardinality(),
		OnlyA:     setA.Difference(setB).Cardinality(),
		OnlyB:     setB.Difference(setA).Cardinality(),
	}
	if union.Cardinality() > 0 {
		comparison.Jaccard = round(float64(shared.Cardinality())/float64(union.Cardinality()), 4)
	}
	return comparison
}

func tripleSet(results []CaseResult) mapset.Set[string] {
	set := mapset.NewSet[string]()
	for _, result := range results {
		for _, t := range result.Triples {
			set.Add(t.Normalized().Key())
		}
	}
	return set
}

func round(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}
