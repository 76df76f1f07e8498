package loader

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/crashgraph/crashgraph/pkg/graph"
)

// LoadHTMLDir reads every HTML page under dir as one report each, in file
// name order. The page is reduced to its body text before the usual
// cleaning, so published report pages work without preprocessing. Report
// IDs are the 0-based positions in file name order; a file that cannot be
// parsed is skipped with a warning and leaves a hole. sampleSize caps the
// number of files considered; zero or negative reads everything.
func LoadHTMLDir(dir, source string, sampleSize int) ([]graph.Report, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read html dir %s", dir)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".html" || ext == ".htm" {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	reports := make([]graph.Report, 0, len(names))
	for i, name := range names {
		if sampleSize > 0 && i >= sampleSize {
			break
		}

		text, err := extractHTMLText(filepath.Join(dir, name))
		if err != nil {
			logrus.WithField("file", name).Warnf("Skipping unreadable HTML page: %v", err)
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
	}).Info("Loaded HTML reports")

	return reports, nil
}

func extractHTMLText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return "", err
	}

	// Scripts and styles would otherwise leak into the body text.
	doc.Find("script, style").Remove()

	return doc.Find("body").Text(), nil
}
