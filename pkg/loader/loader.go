package loader

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/crashgraph/crashgraph/pkg/graph"
)

// SourceFiles maps a source tag to its CSV file under the data directory.
var SourceFiles = map[string]string{
	"WA": "inj.csv",
}

// Chat formatting artifacts left over from how the raw reports were
// exported.
var (
	humanPrefixPattern = regexp.MustCompile(`<s>\s*Human:\s*`)
	turnEndPattern     = regexp.MustCompile(`(?s)</s>.*`)
	tagPattern         = regexp.MustCompile(`<[^>]+>`)
	escapedStopPattern = regexp.MustCompile(`<\\+s>`)
	whitespacePattern  = regexp.MustCompile(`\s+`)
)

// CleanReport strips chat formatting artifacts from a raw report and
// normalizes whitespace. Everything after a closing </s> marker is
// conversation scaffolding, not report text, and is dropped.
func CleanReport(raw string) string {
	text := humanPrefixPattern.ReplaceAllString(raw, "")
	text = turnEndPattern.ReplaceAllString(text, "")
	text = tagPattern.ReplaceAllString(text, "")
	text = escapedStopPattern.ReplaceAllString(text, "")
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}

// LoadSource loads one registered source from the data directory.
func LoadSource(dataDir, source string, sampleSize int) ([]graph.Report, error) {
	file, ok := SourceFiles[source]
	if !ok {
		return nil, errors.Errorf("unknown report source %q", source)
	}
	return LoadCSV(filepath.Join(dataDir, file), source, sampleSize)
}

// LoadCSV reads accident reports from a CSV export. The file must carry a
// "text" column; all other columns are ignored. Report IDs are 0-based row
// positions in the file, so a skipped row leaves a hole instead of
// shifting the IDs after it. sampleSize caps how many non-blank rows are
// considered; zero or negative loads everything.
func LoadCSV(path, source string, sampleSize int) ([]graph.Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open report file %s", path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrapf(err, "read header of %s", path)
	}

	textCol := -1
	for i, name := range header {
		if name == "text" {
			textCol = i
			break
		}
	}
	if textCol == -1 {
		return nil, errors.Errorf("column %q not found in %s (found: %v)", "text", filepath.Base(path), header)
	}

	reports := make([]graph.Report, 0)
	sampled := 0
	for row := 0; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read row %d of %s", row, path)
		}

		raw := ""
		if textCol < len(record) {
			raw = strings.TrimSpace(record[textCol])
		}
		if raw == "" {
			continue
		}

		if sampleSize > 0 && sampled >= sampleSize {
			break
		}
		sampled++

		// Rows that clean down to nothing still consume a sample slot.
		text := CleanReport(raw)
		if text == "" {
			continue
		}

		reports = append(reports, graph.Report{Source: source, ID: row, Text: text})
	}

	logrus.WithFields(logrus.Fields{
		"source":  source,
		"file":    filepath.Base(path),
		"reports": len(reports),
	}).Info("Loaded reports")

	return reports, nil
}

// SaveCleaned writes cleaned reports to cleaned_reports.json in dir so a
// later run can skip the raw files.
func SaveCleaned(reports []graph.Report, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrapf(err, "create processed dir %s", dir)
	}

	data, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, "cleaned_reports.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", errors.Wrapf(err, "write %s", path)
	}
	return path, nil
}
