package processors

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/jdkato/prose/v2"
)

// Entity categories a recognizer may report. Consumers tolerate absent
// categories, so implementations are free to emit any subset.
const (
	CategoryDate     = "date"
	CategoryTime     = "time"
	CategoryPlace    = "place"
	CategoryPerson   = "person"
	CategoryCardinal = "cardinal"
)

// EntityRecognizer finds typed entity mentions in report text. The returned
// map holds mention strings per category in document order.
type EntityRecognizer interface {
	Recognize(text string) (map[string][]string, error)
}

var (
	// Written dates ("March 2, 2022") and clock times ("5:00 AM"), which the
	// prose model has no labels for.
	dateMentionPattern = regexp.MustCompile(`[A-Z][a-z]+ \d{1,2},\s*\d{4}`)
	timeMentionPattern = regexp.MustCompile(`\d{1,2}:\d{2}\s*(?:[APap][Mm])?`)
)

// ProseRecognizer recognizes entities with the prose statistical model.
// prose labels PERSON and GPE mentions; date, time and cardinal categories
// are supplemented from deterministic patterns and numeral tokens.
type ProseRecognizer struct{}

// NewProseRecognizer creates a prose-backed entity recognizer.
func NewProseRecognizer() *ProseRecognizer {
	return &ProseRecognizer{}
}

// Recognize runs the prose document pipeline over the text and buckets what
// it finds into recognizer categories.
func (r *ProseRecognizer) Recognize(text string) (map[string][]string, error) {
	found := make(map[string][]string)
	if strings.TrimSpace(text) == "" {
		return found, nil
	}

	doc, err := prose.NewDocument(text)
	if err != nil {
		return nil, err
	}

	for _, ent := range doc.Entities() {
		switch ent.Label {
		case "PERSON":
			found[CategoryPerson] = append(found[CategoryPerson], ent.Text)
		case "GPE":
			found[CategoryPlace] = append(found[CategoryPlace], ent.Text)
		}
	}

	for _, tok := range doc.Tokens() {
		if isNumeral(tok.Text) {
			found[CategoryCardinal] = append(found[CategoryCardinal], tok.Text)
		}
	}

	for _, m := range dateMentionPattern.FindAllString(text, -1) {
		found[CategoryDate] = append(found[CategoryDate], m)
	}
	for _, m := range timeMentionPattern.FindAllString(text, -1) {
		found[CategoryTime] = append(found[CategoryTime], m)
	}
	return found, nil
}

// isNumeral reports whether a token is a plain or decimal number.
func isNumeral(s string) bool {
	if s == "" || s == "." {
		return false
	}
	dot := false
	for _, r := range s {
		if r == '.' {
			if dot {
				return false
			}
			dot = true
			continue
		}
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
