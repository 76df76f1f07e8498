package graph

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferLabel(t *testing.T) {
	ont := DefaultOntology()

	tests := []struct {
		name     string
		entity   string
		relation string
		head     bool
		want     string
	}{
		{"case id wins on tail", "WA_0", RelCause, false, LabelAccidentCase},
		{"case id wins on head", "WA_12", RelOccurAt, true, LabelAccidentCase},
		{"case id with digits in prefix", "W1_3", RelOccurAt, false, LabelAccidentCase},
		{"person prefix", "Person1", RelInvolve, false, LabelPerson},
		{"vehicle prefix", "Vehicle2", RelInvolve, false, LabelVehicle},
		{"tail table measure", "unknownthing", RelMeasure, false, LabelSeverity},
		{"tail table occur_at", "March 2, 2022 5:00 AM", RelOccurAt, false, LabelTime},
		{"tail table cause", "somecase", RelCause, false, LabelAccidentCase},
		{"head table cause", "speeding", RelCause, true, LabelCause},
		{"head table include", "speeding", RelInclude, true, LabelMainCause},
		{"head default", "unknownthing", "SOME_UNMAPPED_RELATION", true, LabelAccidentCase},
		{"tail default", "unknownthing", "SOME_UNMAPPED_RELATION", false, LabelEntity},
		{"lower-case prefix is not a case id", "wa_0", RelOccurAt, false, LabelTime},
		{"empty prefix is not a case id", "_thing", RelOccurAt, false, LabelTime},
		{"all-digit prefix is not a case id", "123_thing", RelOccurIn, false, LabelLocation},
		{"relation case-insensitive", "unknownthing", "measure", false, LabelSeverity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ont.InferLabel(tt.entity, tt.relation, tt.head)
			if got != tt.want {
				t.Errorf("InferLabel(%q, %q, head=%v) = %q, want %q", tt.entity, tt.relation, tt.head, got, tt.want)
			}
		})
	}
}

func TestKnownRelation(t *testing.T) {
	ont := DefaultOntology()

	assert.True(t, ont.KnownRelation("CAUSE"))
	assert.True(t, ont.KnownRelation("cause"), "membership is case-insensitive")
	assert.True(t, ont.KnownRelation(" OCCUR_AT "))
	assert.False(t, ont.KnownRelation("SOME_UNMAPPED_RELATION"))
	assert.False(t, ont.KnownRelation(""))
}

func TestDefaultOntologyVocabularies(t *testing.T) {
	ont := DefaultOntology()

	assert.Len(t, ont.EntityTypes(), 15)
	assert.Len(t, ont.Relations(), 13)
	assert.Equal(t, RelCause, ont.Relations()[0])
}

func TestLoadOntology(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadOntology(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})

	t.Run("partial override keeps defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ontology.yaml")
		data := "relations:\n  - CAUSE\n  - involve\n"
		require.NoError(t, os.WriteFile(path, []byte(data), 0644))

		ont, err := LoadOntology(path)
		require.NoError(t, err)

		assert.Equal(t, []string{"CAUSE", "INVOLVE"}, ont.Relations(), "relations replaced and upper-cased")
		assert.Len(t, ont.EntityTypes(), 15, "entity types keep defaults")
		assert.Equal(t, LabelSeverity, ont.InferLabel("x", RelMeasure, false), "label tables keep defaults")
	})

	t.Run("default overrides", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ontology.yaml")
		data := "defaults:\n  tail: Thing\n"
		require.NoError(t, os.WriteFile(path, []byte(data), 0644))

		ont, err := LoadOntology(path)
		require.NoError(t, err)
		assert.Equal(t, "Thing", ont.InferLabel("unknownthing", "SOME_UNMAPPED_RELATION", false))
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ontology.yaml")
		require.NoError(t, os.WriteFile(path, []byte("relations: [unclosed"), 0644))
		_, err := LoadOntology(path)
		require.Error(t, err)
	})
}
