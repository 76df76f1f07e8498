package processors

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/crashgraph/crashgraph/pkg/graph"
)

// PipelineNLP is the pipeline tag of the rule-based extraction strategy.
const PipelineNLP = "nlp"

// NLPExtractor is the deterministic extraction strategy: an entity
// recognizer plus the field patterns, assembled into triples in a fixed
// order so downstream output stays comparable run to run.
type NLPExtractor struct {
	recognizer EntityRecognizer
	logger     *logrus.Logger
}

// NewNLPExtractor creates the rule-based extractor. A nil recognizer gets
// the prose-backed default.
func NewNLPExtractor(recognizer EntityRecognizer) *NLPExtractor {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	if recognizer == nil {
		recognizer = NewProseRecognizer()
	}
	return &NLPExtractor{
		recognizer: recognizer,
		logger:     logger,
	}
}

// Name returns the pipeline tag.
func (e *NLPExtractor) Name() string {
	return PipelineNLP
}

// Extract builds the ordered triple list for one report. Extraction is
// absence-tolerant: fields that do not match contribute nothing, and a
// recognizer failure degrades to field patterns only.
func (e *NLPExtractor) Extract(ctx context.Context, report graph.Report) ([]graph.Triple, error) {
	caseID := report.CaseID()
	text := report.Text
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	ents, err := e.recognizer.Recognize(text)
	if err != nil {
		e.logger.WithField("case_id", caseID).WithError(err).Warn("entity recognizer failed, continuing with field patterns only")
		ents = make(map[string][]string)
	}

	triples := make([]graph.Triple, 0, 16)
	add := func(relation, tail string) {
		if tail != "" {
			triples = append(triples, graph.Triple{Head: caseID, Relation: relation, Tail: tail})
		}
	}

	// Time. The field pattern is more precise for this corpus; recognizer
	// dates and times are the fallback, joined into one mention.
	if dt := extractDateTime(text); dt != "" {
		add(graph.RelOccurAt, dt)
	} else if len(ents[CategoryDate]) > 0 || len(ents[CategoryTime]) > 0 {
		combined := append(append([]string{}, ents[CategoryDate]...), ents[CategoryTime]...)
		add(graph.RelOccurAt, strings.Join(combined, " "))
	}

	// Location, falling back to one triple per recognized place.
	if loc := extractLocation(text); loc != "" {
		add(graph.RelOccurIn, loc)
	} else {
		for _, place := range ents[CategoryPlace] {
			add(graph.RelOccurIn, place)
		}
	}

	// Road.
	add(graph.RelOccurIn, extractRoute(text))
	add(graph.RelBelongTo, extractRoadClass(text))

	// Environment.
	for _, condition := range extractEnvironment(text) {
		add(graph.RelAffectedBy, condition)
	}

	// Causes point at the case, not the other way around.
	for _, cause := range extractCauses(text) {
		triples = append(triples, graph.Triple{Head: cause, Relation: graph.RelCause, Tail: caseID})
	}

	// Vehicles, with the bare count as fallback when no movement blocks matched.
	vehicles := extractVehicles(text)
	for _, vehicle := range vehicles {
		add(graph.RelInvolve, vehicle.ID)
	}
	if len(vehicles) == 0 {
		add(graph.RelInvolve, extractVehicleCount(text))
	}

	// Objects.
	for _, obj := range extractObjects(text) {
		add(graph.RelInvolve, obj)
	}

	// Persons, each with role and demographics as side facts.
	for _, person := range extractPersons(text) {
		add(graph.RelInvolve, person.ID)
		triples = append(triples, graph.Triple{Head: person.ID, Relation: graph.RelInvolve, Tail: person.Role})
		triples = append(triples, graph.Triple{Head: person.ID, Relation: graph.RelInvolve, Tail: fmt.Sprintf("%s, Age %s", person.Gender, person.Age)})
	}

	add(graph.RelMeasure, extractSeverity(text))

	for _, casualty := range extractCasualties(text) {
		add(graph.RelResultIn, casualty)
	}

	return triples, nil
}
