package loader

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/crashgraph/crashgraph/pkg/graph"
)

// LoadPDFDir reads every PDF under dir as one report each, in file name
// order. Report IDs are the 0-based positions in that order; a file that
// cannot be parsed is skipped with a warning and leaves a hole. sampleSize
// caps the number of files considered; zero or negative reads everything.
func LoadPDFDir(dir, source string, sampleSize int) ([]graph.Report, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read pdf dir %s", dir)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	reports := make([]graph.Report, 0, len(names))
	for i, name := range names {
		if sampleSize > 0 && i >= sampleSize {
			break
		}

		text, err := extractPDFText(filepath.Join(dir, name))
		if err != nil {
			logrus.WithField("file", name).Warnf("Skipping unreadable PDF: %v", err)
			continue
		}

		text = CleanReport(text)
		if text == "" {
			continue
		}

		reports = append(reports, graph.Report{Source: source, ID: i, Text: text})
	}

	logrus.WithFields(logrus.Fields{
		"source":  source,
		"dir":     dir,
		"reports": len(reports),
	}).Info("Loaded PDF reports")

	return reports, nil
}

func extractPDFText(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	totalPage := r.NumPage()
	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		p := r.Page(pageIndex)
		if p.V.IsNull() {
			continue
		}

		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
	}

	return sb.String(), nil
}
