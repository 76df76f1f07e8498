package graph

import (
	"os"
	"strings"
	"unicode"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Entity category labels used as node labels in the graph.
const (
	LabelAccidentCase = "AccidentCase"
	LabelPerson       = "Person"
	LabelVehicle      = "Vehicle"
	LabelRoad         = "Road"
	LabelLocation     = "Location"
	LabelTime         = "Time"
	LabelEnvironment  = "Environment"
	LabelBehavior     = "Behavior"
	LabelCause        = "Cause"
	LabelMainCause    = "MainCause"
	LabelSeverity     = "Severity"
	LabelAccidentType = "AccidentType"
	LabelCasualtyLoss = "CasualtyLoss"
	LabelDepartment   = "Department"
	LabelJudgment     = "Judgment"

	// LabelEntity is the generic fallback for tails no table entry covers.
	LabelEntity = "Entity"
)

// Relation vocabulary.
const (
	RelCause          = "CAUSE"
	RelInvolve        = "INVOLVE"
	RelOccurAt        = "OCCUR_AT"
	RelOccurIn        = "OCCUR_IN"
	RelAffectedBy     = "AFFECTED_BY"
	RelBelongTo       = "BELONG_TO"
	RelMeasure        = "MEASURE"
	RelResultIn       = "RESULT_IN"
	RelInclude        = "INCLUDE"
	RelBecauseOf      = "BECAUSE_OF"
	RelLocatedIn      = "LOCATED_IN"
	RelJurisdiction   = "JURISDICTION"
	RelResponsibility = "RESPONSIBILITY"
)

var defaultEntityTypes = []string{
	LabelAccidentCase,
	LabelPerson,
	LabelVehicle,
	LabelRoad,
	LabelLocation,
	LabelTime,
	LabelEnvironment,
	LabelBehavior,
	LabelCause,
	LabelMainCause,
	LabelSeverity,
	LabelAccidentType,
	LabelCasualtyLoss,
	LabelDepartment,
	LabelJudgment,
}

var defaultRelations = []string{
	RelCause,
	RelInvolve,
	RelOccurAt,
	RelOccurIn,
	RelAffectedBy,
	RelBelongTo,
	RelMeasure,
	RelResultIn,
	RelInclude,
	RelBecauseOf,
	RelLocatedIn,
	RelJurisdiction,
	RelResponsibility,
}

// Static relation->label tables for label inference. Relations absent from a
// table fall through to the positional default.
var defaultHeadLabels = map[string]string{
	RelCause:          LabelCause,
	RelInclude:        LabelMainCause,
	RelJurisdiction:   LabelDepartment,
	RelResponsibility: LabelDepartment,
}

var defaultTailLabels = map[string]string{
	RelOccurAt:        LabelTime,
	RelOccurIn:        LabelLocation,
	RelBelongTo:       LabelAccidentType,
	RelAffectedBy:     LabelEnvironment,
	RelInvolve:        LabelVehicle,
	RelMeasure:        LabelSeverity,
	RelResultIn:       LabelCasualtyLoss,
	RelCause:          LabelAccidentCase,
	RelBecauseOf:      LabelCause,
	RelInclude:        LabelCause,
	RelJurisdiction:   LabelRoad,
	RelResponsibility: LabelDepartment,
	RelLocatedIn:      LabelLocation,
}

// Ontology is the immutable vocabulary the extractors, the LLM prompt and the
// graph store all share. Build it once and pass it by reference.
type Ontology struct {
	entityTypes []string
	relations   []string
	relationSet mapset.Set[string]
	headLabels  map[string]string
	tailLabels  map[string]string
	headDefault string
	tailDefault string
}

// DefaultOntology returns the built-in traffic-accident ontology.
func DefaultOntology() *Ontology {
	return newOntology(defaultEntityTypes, defaultRelations, defaultHeadLabels, defaultTailLabels, LabelAccidentCase, LabelEntity)
}

func newOntology(entityTypes, relations []string, headLabels, tailLabels map[string]string, headDefault, tailDefault string) *Ontology {
	o := &Ontology{
		entityTypes: append([]string(nil), entityTypes...),
		relations:   make([]string, 0, len(relations)),
		relationSet: mapset.NewSet[string](),
		headLabels:  make(map[string]string, len(headLabels)),
		tailLabels:  make(map[string]string, len(tailLabels)),
		headDefault: headDefault,
		tailDefault: tailDefault,
	}
	for _, rel := range relations {
		rel = strings.ToUpper(strings.TrimSpace(rel))
		if rel == "" || o.relationSet.Contains(rel) {
			continue
		}
		o.relations = append(o.relations, rel)
		o.relationSet.Add(rel)
	}
	for rel, label := range headLabels {
		o.headLabels[strings.ToUpper(rel)] = label
	}
	for rel, label := range tailLabels {
		o.tailLabels[strings.ToUpper(rel)] = label
	}
	return o
}

// ontologyFile is the YAML shape for vocabulary overrides. Sections left
// empty keep their built-in values.
type ontologyFile struct {
	EntityTypes []string          `yaml:"entity_types"`
	Relations   []string          `yaml:"relations"`
	HeadLabels  map[string]string `yaml:"head_labels"`
	TailLabels  map[string]string `yaml:"tail_labels"`
	Defaults    struct {
		Head string `yaml:"head"`
		Tail string `yaml:"tail"`
	} `yaml:"defaults"`
}

// LoadOntology reads a YAML ontology override file. The file may replace any
// of the vocabularies or label tables; omitted sections keep the defaults.
func LoadOntology(path string) (*Ontology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "ontology file %s", path)
	}
	var f ontologyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrapf(err, "parse ontology file %s", path)
	}

	entityTypes := defaultEntityTypes
	if len(f.EntityTypes) > 0 {
		entityTypes = f.EntityTypes
	}
	relations := defaultRelations
	if len(f.Relations) > 0 {
		relations = f.Relations
	}
	headLabels := defaultHeadLabels
	if len(f.HeadLabels) > 0 {
		headLabels = f.HeadLabels
	}
	tailLabels := defaultTailLabels
	if len(f.TailLabels) > 0 {
		tailLabels = f.TailLabels
	}
	headDefault := LabelAccidentCase
	if f.Defaults.Head != "" {
		headDefault = f.Defaults.Head
	}
	tailDefault := LabelEntity
	if f.Defaults.Tail != "" {
		tailDefault = f.Defaults.Tail
	}
	return newOntology(entityTypes, relations, headLabels, tailLabels, headDefault, tailDefault), nil
}

// EntityTypes returns the entity category names in declaration order.
func (o *Ontology) EntityTypes() []string {
	return o.entityTypes
}

// Relations returns the relation vocabulary in declaration order.
func (o *Ontology) Relations() []string {
	return o.relations
}

// KnownRelation reports whether rel (after upper-casing) is in the vocabulary.
func (o *Ontology) KnownRelation(rel string) bool {
	return o.relationSet.Contains(strings.ToUpper(strings.TrimSpace(rel)))
}

// InferLabel decides the node label for an entity name appearing at one end
// of a relation. Name-shape rules run first, then the positional table for
// the relation, then the positional default. The function is total: unmapped
// relations never fail, they fall through to the default.
func (o *Ontology) InferLabel(name, relation string, head bool) string {
	if idx := strings.IndexByte(name, '_'); idx >= 0 && isUpperPrefix(name[:idx]) {
		return LabelAccidentCase
	}
	if strings.HasPrefix(name, "Person") {
		return LabelPerson
	}
	if strings.HasPrefix(name, "Vehicle") {
		return LabelVehicle
	}

	rel := strings.ToUpper(relation)
	if head {
		if label, ok := o.headLabels[rel]; ok {
			return label
		}
		return o.headDefault
	}
	if label, ok := o.tailLabels[rel]; ok {
		return label
	}
	return o.tailDefault
}

// isUpperPrefix mirrors the case-ID convention: at least one upper-case
// letter and no lower-case ones ("WA" yes, "Wa" no, "" no, digits ignored).
func isUpperPrefix(s string) bool {
	hasUpper := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			hasUpper = true
		}
	}
	return hasUpper
}
