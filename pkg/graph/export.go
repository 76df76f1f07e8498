package graph

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SnapshotNode is one node in an exported graph snapshot.
type SnapshotNode struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Label   string   `json:"label"`
	Degree  int      `json:"degree"`
	Sources []string `json:"sources,omitempty"` // case IDs the node was extracted from
}

// SnapshotEdge is one relationship in an exported graph snapshot.
type SnapshotEdge struct {
	ID       string `json:"id"`
	Source   string `json:"source"` // source node ID
	Target   string `json:"target"` // target node ID
	Type     string `json:"type"`
	Pipeline string `json:"pipeline"`
}

// Snapshot is the offline equivalent of a graph upload: the node and edge
// set a batch of triples produces under the same label inference, without
// a database.
type Snapshot struct {
	Pipeline    string         `json:"pipeline"`
	Nodes       []SnapshotNode `json:"nodes"`
	Edges       []SnapshotEdge `json:"edges"`
	Orphans     int            `json:"orphans"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// SnapshotBuilder accumulates triples into a deduplicated node/edge set.
// Nodes are deduplicated by (label, name), edges by (head, relation, tail).
type SnapshotBuilder struct {
	pipeline string
	ontology *Ontology
	nodes    map[string]SnapshotNode // node key -> node
	nodeIDs  map[string]string       // node key -> node ID
	edges    map[string]SnapshotEdge // edge ID -> edge
	seen     map[string]map[string]bool
	mutex    sync.RWMutex
	logger   *logrus.Logger
}

// NewSnapshotBuilder creates a builder for one pipeline's triples.
func NewSnapshotBuilder(pipeline string, ont *Ontology) *SnapshotBuilder {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	if ont == nil {
		ont = DefaultOntology()
	}

	return &SnapshotBuilder{
		pipeline: pipeline,
		ontology: ont,
		nodes:    make(map[string]SnapshotNode),
		nodeIDs:  make(map[string]string),
		edges:    make(map[string]SnapshotEdge),
		seen:     make(map[string]map[string]bool),
		logger:   logger,
	}
}

// AddTriple folds one triple into the snapshot. Malformed triples (empty
// field or unknown relation) are skipped with a warning, matching what the
// graph upload would do. caseID tags both nodes with their source case and
// may be empty.
func (b *SnapshotBuilder) AddTriple(t Triple, caseID string) {
	norm := t.Normalized()
	if norm.Head == "" || norm.Relation == "" || norm.Tail == "" {
		b.logger.WithField("triple", t.Key()).Warn("Skipping malformed triple")
		return
	}
	if !b.ontology.KnownRelation(norm.Relation) {
		b.logger.WithFields(logrus.Fields{
			"triple":   t.Key(),
			"relation": norm.Relation,
		}).Warn("Skipping triple with unknown relation")
		return
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()

	headID := b.upsertNode(norm.Head, b.ontology.InferLabel(norm.Head, norm.Relation, true), caseID)
	tailID := b.upsertNode(norm.Tail, b.ontology.InferLabel(norm.Tail, norm.Relation, false), caseID)

	edgeID := fmt.Sprintf("%s-%s-%s", headID, norm.Relation, tailID)
	if edge, exists := b.edges[edgeID]; exists {
		// Same semantics as the database upsert: the pipeline tag holds
		// whoever wrote the edge last.
		edge.Pipeline = b.pipeline
		b.edges[edgeID] = edge
		return
	}

	b.edges[edgeID] = SnapshotEdge{
		ID:       edgeID,
		Source:   headID,
		Target:   tailID,
		Type:     norm.Relation,
		Pipeline: b.pipeline,
	}
}

// AddCaseResults folds every triple from a batch of case results into the
// snapshot.
func (b *SnapshotBuilder) AddCaseResults(results []CaseResult) {
	for _, result := range results {
		for _, t := range result.Triples {
			b.AddTriple(t, result.CaseID)
		}
	}
}

func (b *SnapshotBuilder) upsertNode(name, label, caseID string) string {
	key := label + "|" + name

	id, exists := b.nodeIDs[key]
	if !exists {
		id = uuid.New().String()
		b.nodeIDs[key] = id
		b.nodes[key] = SnapshotNode{ID: id, Name: name, Label: label}
		b.seen[key] = make(map[string]bool)
	}

	if caseID != "" && !b.seen[key][caseID] {
		b.seen[key][caseID] = true
		node := b.nodes[key]
		node.Sources = append(node.Sources, caseID)
		b.nodes[key] = node
	}

	return id
}

// Build returns the finished snapshot. Nodes are sorted by (label, name)
// and edges by ID so the exported JSON is stable across runs.
func (b *SnapshotBuilder) Build() *Snapshot {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	degrees := make(map[string]int)
	edges := make([]SnapshotEdge, 0, len(b.edges))
	for _, edge := range b.edges {
		degrees[edge.Source]++
		degrees[edge.Target]++
		edges = append(edges, edge)
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].ID < edges[j].ID })

	orphans := 0
	nodes := make([]SnapshotNode, 0, len(b.nodes))
	for _, node := range b.nodes {
		node.Degree = degrees[node.ID]
		if node.Degree == 0 {
			orphans++
		}
		nodes = append(nodes, node)
	}
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Label != nodes[j].Label {
			return nodes[i].Label < nodes[j].Label
		}
		return nodes[i].Name < nodes[j].Name
	})

	return &Snapshot{
		Pipeline:    b.pipeline,
		Nodes:       nodes,
		Edges:       edges,
		Orphans:     orphans,
		GeneratedAt: time.Now(),
	}
}
