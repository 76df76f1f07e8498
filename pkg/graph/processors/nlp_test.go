package processors

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crashgraph/crashgraph/pkg/graph"
)

// stubRecognizer returns canned categories so assembly tests stay
// independent of the statistical model.
type stubRecognizer struct {
	ents map[string][]string
	err  error
}

func (s stubRecognizer) Recognize(string) (map[string][]string, error) {
	return s.ents, s.err
}

const sampleReportText = "This incident occurred on March 2, 2022, at 5:00 AM, in Richland, Benton, " +
	"on route 182 increasing milepost direction at milepost 0.25. " +
	"The road classification is urban freeways with fewer than 4 lanes. " +
	"The conditions during the time of the accident were at dawn with a wet road surface. " +
	"There were no pedestrians involved, 1 vehicle involved. " +
	"There were objects involved, specifically a Roadway Ditch. " +
	"Vehicle1 was moving east, in the direction of increasing milepost. " +
	"The driver was going straight ahead, was not ejected, and was exceeding a reasonable safe speed. " +
	"Person 1: Motor Vehicle Driver, Female, 24, Lap & Shoulder Used."

func TestExtractSampleReport(t *testing.T) {
	e := NewNLPExtractor(stubRecognizer{})
	report := graph.Report{Source: "WA", ID: 0, Text: sampleReportText}

	triples, err := e.Extract(context.Background(), report)
	require.NoError(t, err)

	want := []graph.Triple{
		{Head: "WA_0", Relation: graph.RelOccurAt, Tail: "March 2, 2022 5:00 AM"},
		{Head: "WA_0", Relation: graph.RelOccurIn, Tail: "Richland, Benton"},
		{Head: "WA_0", Relation: graph.RelOccurIn, Tail: "Route 182"},
		{Head: "WA_0", Relation: graph.RelBelongTo, Tail: "urban freeways with fewer than 4 lanes"},
		{Head: "WA_0", Relation: graph.RelAffectedBy, Tail: "dawn"},
		{Head: "WA_0", Relation: graph.RelAffectedBy, Tail: "wet road surface"},
		{Head: "speeding", Relation: graph.RelCause, Tail: "WA_0"},
		{Head: "WA_0", Relation: graph.RelInvolve, Tail: "Vehicle1"},
		{Head: "WA_0", Relation: graph.RelInvolve, Tail: "Roadway Ditch"},
		{Head: "WA_0", Relation: graph.RelInvolve, Tail: "Person1"},
		{Head: "Person1", Relation: graph.RelInvolve, Tail: "Motor Vehicle Driver"},
		{Head: "Person1", Relation: graph.RelInvolve, Tail: "Female, Age 24"},
	}
	assert.Equal(t, want, triples)
}

func TestExtractEmptyText(t *testing.T) {
	e := NewNLPExtractor(stubRecognizer{})

	for _, text := range []string{"", "   ", "\n\t"} {
		triples, err := e.Extract(context.Background(), graph.Report{Source: "WA", ID: 1, Text: text})
		require.NoError(t, err)
		assert.Empty(t, triples)
	}
}

func TestExtractTimeFallback(t *testing.T) {
	// No "occurred on ... at ..." phrasing, so the recognizer mentions win.
	e := NewNLPExtractor(stubRecognizer{ents: map[string][]string{
		CategoryDate: {"March 2, 2022"},
		CategoryTime: {"5:00 AM"},
	}})
	report := graph.Report{Source: "WA", ID: 3, Text: "A crash happened early in the morning."}

	triples, err := e.Extract(context.Background(), report)
	require.NoError(t, err)
	require.NotEmpty(t, triples)
	assert.Equal(t, graph.Triple{Head: "WA_3", Relation: graph.RelOccurAt, Tail: "March 2, 2022 5:00 AM"}, triples[0])
}

func TestExtractTimeFieldBeatsRecognizer(t *testing.T) {
	e := NewNLPExtractor(stubRecognizer{ents: map[string][]string{
		CategoryDate: {"bogus date"},
	}})
	report := graph.Report{Source: "WA", ID: 4, Text: "It occurred on March 2, 2022, at 5:00 AM."}

	triples, err := e.Extract(context.Background(), report)
	require.NoError(t, err)
	require.NotEmpty(t, triples)
	assert.Equal(t, "March 2, 2022 5:00 AM", triples[0].Tail)
}

func TestExtractPlaceFallback(t *testing.T) {
	e := NewNLPExtractor(stubRecognizer{ents: map[string][]string{
		CategoryPlace: {"Richland", "Benton"},
	}})
	report := graph.Report{Source: "WA", ID: 5, Text: "a crash with no structured location sentence"}

	triples, err := e.Extract(context.Background(), report)
	require.NoError(t, err)

	var places []string
	for _, tr := range triples {
		if tr.Relation == graph.RelOccurIn {
			places = append(places, tr.Tail)
		}
	}
	assert.Equal(t, []string{"Richland", "Benton"}, places, "one OCCUR_IN per recognized place")
}

func TestExtractRecognizerFailureDegrades(t *testing.T) {
	e := NewNLPExtractor(stubRecognizer{err: errors.New("model unavailable")})
	report := graph.Report{Source: "WA", ID: 6, Text: "Vehicle1 was moving east after speeding."}

	triples, err := e.Extract(context.Background(), report)
	require.NoError(t, err, "recognizer failure must not fail extraction")
	assert.Contains(t, triples, graph.Triple{Head: "WA_6", Relation: graph.RelInvolve, Tail: "Vehicle1"})
	assert.Contains(t, triples, graph.Triple{Head: "speeding", Relation: graph.RelCause, Tail: "WA_6"})
}

func TestExtractVehicleCountFallback(t *testing.T) {
	e := NewNLPExtractor(stubRecognizer{})

	t.Run("count used when no movement blocks", func(t *testing.T) {
		report := graph.Report{Source: "WA", ID: 7, Text: "There were 2 vehicles involved."}
		triples, err := e.Extract(context.Background(), report)
		require.NoError(t, err)
		assert.Contains(t, triples, graph.Triple{Head: "WA_7", Relation: graph.RelInvolve, Tail: "2 vehicle(s)"})
	})

	t.Run("movement blocks suppress the count", func(t *testing.T) {
		report := graph.Report{Source: "WA", ID: 8, Text: "2 vehicles involved. Vehicle1 was moving east. Vehicle2 was moving west."}
		triples, err := e.Extract(context.Background(), report)
		require.NoError(t, err)
		for _, tr := range triples {
			assert.NotEqual(t, "2 vehicle(s)", tr.Tail)
		}
	})
}

func TestExtractCausePolarity(t *testing.T) {
	e := NewNLPExtractor(stubRecognizer{})
	report := graph.Report{Source: "WA", ID: 9, Text: "The driver was drunk driving at dusk."}

	triples, err := e.Extract(context.Background(), report)
	require.NoError(t, err)
	assert.Contains(t, triples, graph.Triple{Head: "drunk driving", Relation: graph.RelCause, Tail: "WA_9"},
		"cause triples point at the case")
}

func TestExtractRestraintNeverEmitted(t *testing.T) {
	e := NewNLPExtractor(stubRecognizer{})
	report := graph.Report{Source: "WA", ID: 10, Text: "Person 1: Driver, Female, 24, Lap & Shoulder Used."}

	triples, err := e.Extract(context.Background(), report)
	require.NoError(t, err)
	require.NotEmpty(t, triples)
	for _, tr := range triples {
		assert.False(t, strings.Contains(tr.Tail, "Lap & Shoulder"), "restraint is captured but never emitted: %+v", tr)
	}
	assert.Contains(t, triples, graph.Triple{Head: "Person1", Relation: graph.RelInvolve, Tail: "Female, Age 24"})
}
