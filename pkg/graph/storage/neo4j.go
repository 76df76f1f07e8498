package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v4/neo4j"
	"github.com/sirupsen/logrus"

	"github.com/crashgraph/crashgraph/pkg/graph"
	"github.com/crashgraph/crashgraph/pkg/graph/metrics"
)

// txTimeout bounds each write transaction so a wedged database cannot
// stall a batch upload indefinitely.
const txTimeout = 30 * time.Second

// GraphManager implements the graph.Storage interface using Neo4j.
type GraphManager struct {
	driver   neo4j.Driver
	ontology *graph.Ontology
	logger   *logrus.Logger
}

// NewGraphManager creates a manager for the database at uri. The driver
// connects lazily; call VerifyConnection to confirm the database is
// actually reachable.
func NewGraphManager(uri, username, password string, ont *graph.Ontology) (*GraphManager, error) {
	if uri == "" || password == "" {
		return nil, fmt.Errorf("neo4j credentials missing")
	}

	driver, err := neo4j.NewDriver(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver: %v", err)
	}

	if ont == nil {
		ont = graph.DefaultOntology()
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &GraphManager{
		driver:   driver,
		ontology: ont,
		logger:   logger,
	}, nil
}

// VerifyConnection pings the database.
func (m *GraphManager) VerifyConnection() error {
	if err := m.driver.VerifyConnectivity(); err != nil {
		return fmt.Errorf("neo4j connectivity check failed: %v", err)
	}
	m.logger.Info("Neo4j connectivity verified")
	return nil
}

// Close releases the driver and all pooled connections.
func (m *GraphManager) Close() error {
	if m.driver != nil {
		return m.driver.Close()
	}
	return nil
}

// UploadTriples writes triples to the graph under the given pipeline tag.
// Each triple is normalized first; a triple with an empty field or a
// relation outside the ontology vocabulary is malformed and skipped with a
// warning. Every triple gets its own write transaction, and a failed write
// is logged without aborting the batch. The returned count is the number
// of triples actually written.
func (m *GraphManager) UploadTriples(ctx context.Context, triples []graph.Triple, pipelineTag string) (int, error) {
	session := m.driver.NewSession(neo4j.SessionConfig{})
	defer session.Close()

	start := time.Now()
	uploaded := 0
	for _, triple := range triples {
		if err := ctx.Err(); err != nil {
			return uploaded, err
		}

		norm := triple.Normalized()
		if norm.Head == "" || norm.Relation == "" || norm.Tail == "" {
			m.logger.WithField("triple", triple.Key()).Warn("Skipping malformed triple")
			metrics.TriplesUploaded.WithLabelValues(pipelineTag, metrics.OutcomeSkipped).Inc()
			continue
		}
		if !m.ontology.KnownRelation(norm.Relation) {
			m.logger.WithFields(logrus.Fields{
				"triple":   triple.Key(),
				"relation": norm.Relation,
			}).Warn("Skipping triple with unknown relation")
			metrics.TriplesUploaded.WithLabelValues(pipelineTag, metrics.OutcomeSkipped).Inc()
			continue
		}

		headLabel := m.ontology.InferLabel(norm.Head, norm.Relation, true)
		tailLabel := m.ontology.InferLabel(norm.Tail, norm.Relation, false)

		stmt, err := mergeTripleStatement(headLabel, norm.Relation, tailLabel)
		if err != nil {
			m.logger.WithField("triple", triple.Key()).Warnf("Skipping triple: %v", err)
			metrics.TriplesUploaded.WithLabelValues(pipelineTag, metrics.OutcomeSkipped).Inc()
			continue
		}

		params := map[string]interface{}{
			"head":         norm.Head,
			"tail":         norm.Tail,
			"pipeline_tag": pipelineTag,
		}

		_, err = session.WriteTransaction(func(tx neo4j.Transaction) (interface{}, error) {
			_, err := tx.Run(stmt, params)
			if err != nil {
				return nil, err
			}
			return nil, nil
		}, neo4j.WithTxTimeout(txTimeout))

		if err != nil {
			m.logger.WithField("triple", triple.Key()).Errorf("Failed to upload triple: %v", err)
			metrics.TriplesUploaded.WithLabelValues(pipelineTag, metrics.OutcomeFailed).Inc()
			continue
		}

		uploaded++
		metrics.TriplesUploaded.WithLabelValues(pipelineTag, metrics.OutcomeUploaded).Inc()
	}

	metrics.UploadDuration.Observe(time.Since(start).Seconds())
	m.logger.WithFields(logrus.Fields{
		"pipeline": pipelineTag,
		"uploaded": uploaded,
		"total":    len(triples),
	}).Info("Uploaded triples")

	return uploaded, nil
}

// UploadPipelineResults uploads every triple from a batch of case results.
func (m *GraphManager) UploadPipelineResults(ctx context.Context, results []graph.CaseResult, pipelineTag string) (graph.UploadSummary, error) {
	summary := graph.UploadSummary{
		Pipeline:       pipelineTag,
		CasesProcessed: len(results),
	}

	for _, result := range results {
		summary.TriplesAttempted += len(result.Triples)
		uploaded, err := m.UploadTriples(ctx, result.Triples, pipelineTag)
		summary.TriplesUploaded += uploaded
		if err != nil {
			return summary, err
		}
	}

	m.logger.WithFields(logrus.Fields{
		"pipeline":          summary.Pipeline,
		"cases_processed":   summary.CasesProcessed,
		"triples_attempted": summary.TriplesAttempted,
		"triples_uploaded":  summary.TriplesUploaded,
	}).Info("Upload summary")

	return summary, nil
}

// ClearPipelineData deletes every relationship tagged with pipelineTag,
// then sweeps nodes left without any relationship. The sweep is global:
// nodes orphaned by other pipelines are removed as well.
func (m *GraphManager) ClearPipelineData(ctx context.Context, pipelineTag string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	session := m.driver.NewSession(neo4j.SessionConfig{})
	defer session.Close()

	if _, err := session.Run(clearPipelineStatement, map[string]interface{}{"tag": pipelineTag}); err != nil {
		return fmt.Errorf("failed to clear %q relationships: %v", pipelineTag, err)
	}
	if _, err := session.Run(deleteOrphansStatement, nil); err != nil {
		return fmt.Errorf("failed to delete orphan nodes: %v", err)
	}

	m.logger.WithField("pipeline", pipelineTag).Info("Cleared pipeline data")
	return nil
}

// Stats returns node and relationship counts for a sanity check.
func (m *GraphManager) Stats(ctx context.Context) (graph.Stats, error) {
	if err := ctx.Err(); err != nil {
		return graph.Stats{}, err
	}

	session := m.driver.NewSession(neo4j.SessionConfig{})
	defer session.Close()

	nodes, err := runCount(session, countNodesStatement)
	if err != nil {
		return graph.Stats{}, fmt.Errorf("failed to count nodes: %v", err)
	}
	rels, err := runCount(session, countRelationshipsStatement)
	if err != nil {
		return graph.Stats{}, fmt.Errorf("failed to count relationships: %v", err)
	}

	stats := graph.Stats{Nodes: nodes, Relationships: rels}
	metrics.GraphNodeCount.Set(float64(stats.Nodes))
	metrics.GraphRelationshipCount.Set(float64(stats.Relationships))
	return stats, nil
}

func runCount(session neo4j.Session, stmt string) (int64, error) {
	result, err := session.Run(stmt, nil)
	if err != nil {
		return 0, err
	}
	record, err := result.Single()
	if err != nil {
		return 0, err
	}
	value, ok := record.Get("count")
	if !ok {
		return 0, fmt.Errorf("count column missing from result")
	}
	count, ok := value.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected count type %T", value)
	}
	return count, nil
}
