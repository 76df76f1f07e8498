package main

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/crashgraph/crashgraph/pkg/config"
	"github.com/crashgraph/crashgraph/pkg/graph"
	"github.com/crashgraph/crashgraph/pkg/graph/algorithms"
	"github.com/crashgraph/crashgraph/pkg/graph/processors"
	"github.com/crashgraph/crashgraph/pkg/graph/storage"
	"github.com/crashgraph/crashgraph/pkg/graph/visualizer"
	"github.com/crashgraph/crashgraph/pkg/loader"
	"github.com/crashgraph/crashgraph/services"
)

var (
	envFile     = flag.String("env", ".env", "Path to environment file")
	inputFile   = flag.String("input", "", "CSV file of accident reports (overrides the configured source dataset)")
	pdfDir      = flag.String("pdf-dir", "", "Directory of accident report PDFs to load instead of a CSV")
	htmlDir     = flag.String("html-dir", "", "Directory of accident report HTML pages to load instead of a CSV")
	source      = flag.String("source", "", "Report source tag (default from REPORT_SOURCE)")
	sample      = flag.Int("sample", -1, "Number of reports to sample, 0 for all (default from SAMPLE_SIZE)")
	pipelines   = flag.String("pipelines", "nlp,llm", "Comma-separated extraction pipelines to run (nlp, llm)")
	outDir      = flag.String("out", "", "Output directory for JSON artifacts (default from OUTPUT_DIR)")
	upload      = flag.Bool("upload", false, "Upload extracted triples to Neo4j")
	clearBefore = flag.Bool("clear-before-upload", false, "Clear each pipeline's relationships before uploading")
	exportGraph = flag.Bool("export-graph", false, "Write a JSON graph snapshot per pipeline")
	visualize   = flag.Bool("visualize", false, "Write a D3 HTML visualization per pipeline")
	compare     = flag.Bool("compare", false, "Compare the triple sets of the first two pipelines")
	logLevel    = flag.String("log-level", "", "Logging level (debug, info, warn, error); overrides LOG_LEVEL")
)

func main() {
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if err := godotenv.Load(*envFile); err != nil {
		logger.Warnf("Error loading env file %s: %v", *envFile, err)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	if *logLevel == "" {
		*logLevel = cfg.LogLevel
	}
	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logger.Fatalf("Invalid log level: %v", err)
	}
	logger.SetLevel(level)

	if *source != "" {
		cfg.ReportSource = *source
	}
	if *sample >= 0 {
		cfg.SampleSize = *sample
	}
	if *outDir != "" {
		cfg.OutputDir = *outDir
	}

	ontology := graph.DefaultOntology()
	if cfg.OntologyPath != "" {
		ontology, err = graph.LoadOntology(cfg.OntologyPath)
		if err != nil {
			logger.Fatalf("Failed to load ontology: %v", err)
		}
		logger.Infof("Loaded ontology overrides from %s", cfg.OntologyPath)
	}

	names := parsePipelines(*pipelines)
	if len(names) == 0 {
		logger.Fatal("No pipelines requested")
	}

	// Missing credentials for a requested capability are fatal before any
	// work starts; only reachability problems are deferred to upload time.
	extractors := make([]graph.Extractor, 0, len(names))
	for _, name := range names {
		extractor, err := buildExtractor(name, cfg, ontology)
		if err != nil {
			logger.Fatalf("Cannot run %s pipeline: %v", name, err)
		}
		extractors = append(extractors, extractor)
	}
	if *upload {
		if err := cfg.RequireNeo4j(); err != nil {
			logger.Fatalf("Upload requested: %v", err)
		}
	}

	reports, err := loadReports(cfg)
	if err != nil {
		logger.Fatalf("Failed to load reports: %v", err)
	}
	if len(reports) == 0 {
		logger.Fatal("No reports to process")
	}

	if path, err := loader.SaveCleaned(reports, cfg.ProcessedDir); err != nil {
		logger.Warnf("Failed to save cleaned reports: %v", err)
	} else {
		logger.Infof("Cleaned reports saved to %s", path)
	}

	ctx := context.Background()
	store := storage.NewResultStore(cfg.OutputDir)
	resultsByPipeline := make(map[string][]graph.CaseResult, len(extractors))
	summaries := make([]graph.RunSummary, 0, len(extractors))

	for _, extractor := range extractors {
		name := extractor.Name()

		results, summary, err := graph.NewPipeline(extractor).Run(ctx, reports)
		if err != nil {
			logger.Fatalf("%s pipeline failed: %v", name, err)
		}
		resultsByPipeline[name] = results
		summaries = append(summaries, summary)

		if path, err := store.SaveCaseResults(name, results); err != nil {
			logger.Errorf("Failed to save %s case results: %v", name, err)
		} else {
			logger.Infof("%s triples saved to %s", name, path)
		}

		if *exportGraph || *visualize {
			builder := graph.NewSnapshotBuilder(name, ontology)
			builder.AddCaseResults(results)
			snapshot := builder.Build()

			if *exportGraph {
				if path, err := store.SaveSnapshot(name, snapshot); err != nil {
					logger.Errorf("Failed to export %s graph snapshot: %v", name, err)
				} else {
					logger.Infof("%s graph snapshot saved to %s", name, path)
				}
				components := algorithms.Components(snapshot)
				largest := 0
				if len(components) > 0 {
					largest = len(components[0])
				}
				logger.WithFields(logrus.Fields{
					"pipeline":   name,
					"nodes":      len(snapshot.Nodes),
					"edges":      len(snapshot.Edges),
					"components": len(components),
					"largest":    largest,
					"orphans":    snapshot.Orphans,
				}).Info("Snapshot accounting")
			}
			if *visualize {
				htmlPath := filepath.Join(cfg.OutputDir, name+"_graph.html")
				if err := visualizer.NewRenderer(htmlPath).Render(snapshot); err != nil {
					logger.Errorf("Failed to render %s visualization: %v", name, err)
				} else {
					logger.Infof("%s visualization saved to %s", name, htmlPath)
				}
			}
		}
	}

	if *upload {
		uploadResults(ctx, logger, cfg, ontology, names, resultsByPipeline)
	}

	if path, err := store.SaveRunSummaries(summaries); err != nil {
		logger.Errorf("Failed to save run summary: %v", err)
	} else {
		logger.Infof("Run summary saved to %s", path)
	}

	if *compare {
		if len(names) < 2 {
			logger.Warn("Comparison requested but fewer than two pipelines ran")
		} else {
			a, b := names[0], names[1]
			comparison := graph.ComparePipelines(a, resultsByPipeline[a], b, resultsByPipeline[b])
			if path, err := store.SaveComparison(comparison); err != nil {
				logger.Errorf("Failed to save pipeline comparison: %v", err)
			} else {
				logger.Infof("Pipeline comparison saved to %s", path)
			}
			logger.WithFields(logrus.Fields{
				"shared":    comparison.Shared,
				"only_" + a: comparison.OnlyA,
				"only_" + b: comparison.OnlyB,
				"jaccard":   comparison.Jaccard,
			}).Info("Pipeline agreement")
		}
	}
}

// loadReports picks the input surface: a PDF or HTML directory, an explicit
// CSV path, or the configured source dataset under the data directory.
func loadReports(cfg *config.Config) ([]graph.Report, error) {
	switch {
	case *pdfDir != "":
		return loader.LoadPDFDir(*pdfDir, cfg.ReportSource, cfg.SampleSize)
	case *htmlDir != "":
		return loader.LoadHTMLDir(*htmlDir, cfg.ReportSource, cfg.SampleSize)
	case *inputFile != "":
		return loader.LoadCSV(*inputFile, cfg.ReportSource, cfg.SampleSize)
	default:
		return loader.LoadSource(cfg.DataDir, cfg.ReportSource, cfg.SampleSize)
	}
}

func buildExtractor(name string, cfg *config.Config, ont *graph.Ontology) (graph.Extractor, error) {
	switch name {
	case processors.PipelineNLP:
		return processors.NewNLPExtractor(nil), nil
	case processors.PipelineLLM:
		client, err := services.NewChatClient(cfg)
		if err != nil {
			return nil, err
		}
		return processors.NewLLMExtractor(client, ont, processors.LLMConfig{
			Model:        cfg.LLMModel,
			MaxTokens:    cfg.LLMMaxTokens,
			PromptBudget: cfg.LLMPromptBudget,
		}), nil
	default:
		return nil, fmt.Errorf("unknown pipeline %q", name)
	}
}

func parsePipelines(list string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, name := range strings.Split(list, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// uploadResults pushes every pipeline's triples into Neo4j. An unreachable
// store aborts the upload without killing the run: the extraction artifacts
// are already on disk by the time this is called.
func uploadResults(ctx context.Context, logger *logrus.Logger, cfg *config.Config, ont *graph.Ontology, names []string, resultsByPipeline map[string][]graph.CaseResult) {
	manager, err := storage.NewGraphManager(cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword, ont)
	if err != nil {
		logger.Errorf("Skipping upload: %v", err)
		return
	}
	defer func() {
		if err := manager.Close(); err != nil {
			logger.Warnf("Failed to close graph driver: %v", err)
		}
	}()

	if err := manager.VerifyConnection(); err != nil {
		logger.Errorf("Graph store unreachable, skipping upload: %v", err)
		return
	}

	for _, name := range names {
		if *clearBefore {
			if err := manager.ClearPipelineData(ctx, name); err != nil {
				logger.Errorf("Failed to clear %s relationships: %v", name, err)
				continue
			}
			logger.Infof("Cleared existing %s relationships", name)
		}

		summary, err := manager.UploadPipelineResults(ctx, resultsByPipeline[name], name)
		if err != nil {
			logger.Errorf("Upload of %s results failed: %v", name, err)
			continue
		}
		logger.WithFields(logrus.Fields{
			"pipeline":  name,
			"cases":     summary.CasesProcessed,
			"attempted": summary.TriplesAttempted,
			"uploaded":  summary.TriplesUploaded,
		}).Info("Upload complete")
	}

	stats, err := manager.Stats(ctx)
	if err != nil {
		logger.Errorf("Failed to read graph stats: %v", err)
		return
	}
	logger.Infof("Graph now holds %d nodes and %d relationships", stats.Nodes, stats.Relationships)
}
