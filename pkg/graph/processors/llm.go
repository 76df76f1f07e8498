package processors

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/pkoukk/tiktoken-go"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/crashgraph/crashgraph/pkg/graph"
)

// PipelineLLM is the pipeline tag of the LLM extraction strategy.
const PipelineLLM = "llm"

const extractionPrompt = `You are a traffic accident knowledge graph expert. Extract entities and relations from the report as triples.

Entity types: %s
Relations: %s

Examples:
%s
Extract from: "%s"
Output ONLY a valid JSON array of triples: [{"head": "...", "relation": "...", "tail": "..."}]`

// fewShots are fixed so extraction stays consistent across runs. Directions
// follow the graph conventions: causes point at the case, everything else
// hangs off it.
var fewShots = []struct {
	Text    string
	Triples []graph.Triple
}{
	{
		Text: "At 3 PM on Jan 1, drunk driver Zhang ran red light on Highway 1, hitting pedestrian Li.",
		Triples: []graph.Triple{
			{Head: "drunk driving", Relation: graph.RelCause, Tail: "Jan 1 Highway 1 crash"},
			{Head: "Jan 1 Highway 1 crash", Relation: graph.RelInvolve, Tail: "Zhang"},
			{Head: "Jan 1 Highway 1 crash", Relation: graph.RelInvolve, Tail: "Li"},
			{Head: "Jan 1 Highway 1 crash", Relation: graph.RelOccurAt, Tail: "3 PM Jan 1"},
			{Head: "Jan 1 Highway 1 crash", Relation: graph.RelOccurIn, Tail: "Highway 1"},
		},
	},
	{
		Text: "Rear-end collision at night due to rain. Driver fatigue caused major injuries.",
		Triples: []graph.Triple{
			{Head: "driver fatigue", Relation: graph.RelCause, Tail: "rear-end collision"},
			{Head: "rear-end collision", Relation: graph.RelAffectedBy, Tail: "rainy night"},
			{Head: "rear-end collision", Relation: graph.RelBelongTo, Tail: "rear-end"},
			{Head: "rear-end collision", Relation: graph.RelMeasure, Tail: "major"},
			{Head: "rear-end collision", Relation: graph.RelResultIn, Tail: "major injuries"},
		},
	},
	{
		Text: "Head-on crash on urban road during morning rush hour. Speeding truck vs sedan. 2 deaths.",
		Triples: []graph.Triple{
			{Head: "head-on crash", Relation: graph.RelInvolve, Tail: "speeding truck"},
			{Head: "head-on crash", Relation: graph.RelInvolve, Tail: "sedan"},
			{Head: "head-on crash", Relation: graph.RelOccurIn, Tail: "urban road"},
			{Head: "head-on crash", Relation: graph.RelOccurAt, Tail: "morning rush hour"},
			{Head: "head-on crash", Relation: graph.RelBelongTo, Tail: "head-on"},
			{Head: "head-on crash", Relation: graph.RelResultIn, Tail: "2 deaths"},
			{Head: "speeding", Relation: graph.RelCause, Tail: "head-on crash"},
		},
	},
	{
		Text: "Pedestrian hit by motorcycle at crosswalk. Foggy weather, poor visibility. Minor injuries.",
		Triples: []graph.Triple{
			{Head: "pedestrian hit", Relation: graph.RelInvolve, Tail: "pedestrian"},
			{Head: "pedestrian hit", Relation: graph.RelInvolve, Tail: "motorcycle"},
			{Head: "pedestrian hit", Relation: graph.RelAffectedBy, Tail: "foggy poor visibility"},
			{Head: "pedestrian hit", Relation: graph.RelMeasure, Tail: "minor"},
			{Head: "pedestrian hit", Relation: graph.RelOccurIn, Tail: "crosswalk"},
		},
	},
	{
		Text: "Multi-vehicle pileup on icy highway. Primary cause: failure to maintain safe distance.",
		Triples: []graph.Triple{
			{Head: "human error", Relation: graph.RelInclude, Tail: "failure to maintain distance"},
			{Head: "failure to maintain distance", Relation: graph.RelCause, Tail: "multi-vehicle pileup"},
			{Head: "multi-vehicle pileup", Relation: graph.RelAffectedBy, Tail: "icy highway"},
			{Head: "multi-vehicle pileup", Relation: graph.RelResultIn, Tail: "multiple injuries"},
			{Head: "Highway Patrol", Relation: graph.RelJurisdiction, Tail: "icy highway"},
		},
	},
}

// ChatClient is the slice of the OpenAI-compatible client the extractor
// needs. *openai.Client satisfies it.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// tokenCounter abstracts the BPE encoder so tests can count without the
// tiktoken tables.
type tokenCounter interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

type tiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

func (c tiktokenCounter) Encode(text string) []int {
	return c.enc.Encode(text, nil, nil)
}

func (c tiktokenCounter) Decode(tokens []int) string {
	return c.enc.Decode(tokens)
}

// LLMConfig tunes the LLM extraction strategy.
type LLMConfig struct {
	Model string
	// MaxTokens caps the completion size.
	MaxTokens int
	// PromptBudget caps report-text tokens in the prompt; 0 disables truncation.
	PromptBudget int
}

// LLMExtractor is the prompting strategy: few-shot prompt in, JSON triple
// array out, filtered against the ontology.
type LLMExtractor struct {
	client       ChatClient
	ont          *graph.Ontology
	model        string
	maxTokens    int
	promptBudget int
	counter      tokenCounter
	logger       *logrus.Logger
}

// NewLLMExtractor creates the LLM extraction strategy.
func NewLLMExtractor(client ChatClient, ont *graph.Ontology, cfg LLMConfig) *LLMExtractor {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &LLMExtractor{
		client:       client,
		ont:          ont,
		model:        cfg.Model,
		maxTokens:    cfg.MaxTokens,
		promptBudget: cfg.PromptBudget,
		logger:       logger,
	}
}

// Name returns the pipeline tag.
func (e *LLMExtractor) Name() string {
	return PipelineLLM
}

// Extract prompts the model for one report and parses the returned triples.
// A transport or model failure is returned to the caller; the runner treats
// it as an empty result for this report and keeps going.
func (e *LLMExtractor) Extract(ctx context.Context, report graph.Report) ([]graph.Triple, error) {
	text := strings.TrimSpace(report.Text)
	if text == "" {
		return nil, nil
	}

	prompt := e.buildPrompt(e.truncate(text))
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   e.maxTokens,
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %v", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	triples, skipped := ParseTriples(resp.Choices[0].Message.Content, e.ont)
	if skipped > 0 {
		e.logger.WithFields(logrus.Fields{
			"case_id": report.CaseID(),
			"skipped": skipped,
		}).Warn("dropped malformed or out-of-vocabulary triples from model response")
	}
	return triples, nil
}

// buildPrompt renders the few-shot extraction prompt for one report text.
func (e *LLMExtractor) buildPrompt(text string) string {
	var examples strings.Builder
	for _, ex := range fewShots {
		rendered, _ := json.Marshal(ex.Triples)
		fmt.Fprintf(&examples, "Text: %s\nTriples: %s\n", ex.Text, rendered)
	}
	return fmt.Sprintf(extractionPrompt,
		strings.Join(e.ont.EntityTypes(), ", "),
		strings.Join(e.ont.Relations(), ", "),
		examples.String(),
		text,
	)
}

// truncate caps the report text at the prompt budget, in model tokens.
func (e *LLMExtractor) truncate(text string) string {
	if e.promptBudget <= 0 {
		return text
	}
	if e.counter == nil {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			e.logger.WithError(err).Warn("token encoder unavailable, prompt truncation disabled")
			e.promptBudget = 0
			return text
		}
		e.counter = tiktokenCounter{enc: enc}
	}
	tokens := e.counter.Encode(text)
	if len(tokens) <= e.promptBudget {
		return text
	}
	e.logger.WithFields(logrus.Fields{
		"tokens": len(tokens),
		"budget": e.promptBudget,
	}).Debug("truncating report text to prompt budget")
	return e.counter.Decode(tokens[:e.promptBudget])
}

var fencePattern = regexp.MustCompile("(?s)```(?:json)?(.*?)```")

// extractJSON digs the JSON payload out of a model response that may wrap it
// in code fences or prose. Returns "" when nothing valid is found.
func extractJSON(content string) string {
	if m := fencePattern.FindStringSubmatch(content); m != nil {
		content = m[1]
	}
	if start := strings.IndexByte(content, '['); start >= 0 {
		if end := strings.LastIndexByte(content, ']'); end > start {
			if candidate := content[start : end+1]; gjson.Valid(candidate) {
				return candidate
			}
		}
	}
	if start := strings.IndexByte(content, '{'); start >= 0 {
		if end := strings.LastIndexByte(content, '}'); end > start {
			if candidate := content[start : end+1]; gjson.Valid(candidate) {
				return candidate
			}
		}
	}
	return ""
}

// ParseTriples reads a model response into triples, dropping elements with
// empty fields or relations outside the ontology. The second return value is
// how many elements were dropped.
func ParseTriples(content string, ont *graph.Ontology) ([]graph.Triple, int) {
	payload := extractJSON(content)
	if payload == "" {
		return nil, 0
	}

	parsed := gjson.Parse(payload)
	items := parsed
	if !parsed.IsArray() {
		items = parsed.Get("triples")
		if !items.IsArray() {
			return nil, 0
		}
	}

	var triples []graph.Triple
	skipped := 0
	for _, item := range items.Array() {
		t := graph.Triple{
			Head:     strings.TrimSpace(item.Get("head").String()),
			Relation: strings.ToUpper(strings.TrimSpace(item.Get("relation").String())),
			Tail:     strings.TrimSpace(item.Get("tail").String()),
		}
		if t.Head == "" || t.Tail == "" || !ont.KnownRelation(t.Relation) {
			skipped++
			continue
		}
		triples = append(triples, t)
	}
	return triples, skipped
}
