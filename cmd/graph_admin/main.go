package main

import (
	"context"
	"flag"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/crashgraph/crashgraph/pkg/config"
	"github.com/crashgraph/crashgraph/pkg/graph"
	"github.com/crashgraph/crashgraph/pkg/graph/storage"
)

var (
	envFile   = flag.String("env", ".env", "Path to environment file")
	stats     = flag.Bool("stats", false, "Print node and relationship counts")
	clearTag  = flag.String("clear", "", "Delete all relationships written by this pipeline tag, then sweep orphan nodes")
	uploadTag = flag.String("upload", "", "Re-upload the saved triples artifact for this pipeline tag")
	outDir    = flag.String("out", "", "Directory holding saved artifacts (default from OUTPUT_DIR)")
	logLevel  = flag.String("log-level", "", "Logging level (debug, info, warn, error); overrides LOG_LEVEL")
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

	if *outDir != "" {
		cfg.OutputDir = *outDir
	}

	if !*stats && *clearTag == "" && *uploadTag == "" {
		logger.Fatal("Nothing to do: pass -stats, -clear <pipeline tag> or -upload <pipeline tag>")
	}

	if err := cfg.RequireNeo4j(); err != nil {
		logger.Fatalf("Cannot connect: %v", err)
	}

	// NewGraphManager falls back to the default ontology when nil.
	var ontology *graph.Ontology
	if cfg.OntologyPath != "" {
		ontology, err = graph.LoadOntology(cfg.OntologyPath)
		if err != nil {
			logger.Fatalf("Failed to load ontology: %v", err)
		}
	}

	manager, err := storage.NewGraphManager(cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword, ontology)
	if err != nil {
		logger.Fatalf("Failed to create graph manager: %v", err)
	}
	defer func() {
		if err := manager.Close(); err != nil {
			logger.Warnf("Failed to close graph driver: %v", err)
		}
	}()

	if err := manager.VerifyConnection(); err != nil {
		logger.Fatalf("Graph store unreachable: %v", err)
	}

	ctx := context.Background()

	if *clearTag != "" {
		if err := manager.ClearPipelineData(ctx, *clearTag); err != nil {
			logger.Fatalf("Failed to clear %s relationships: %v", *clearTag, err)
		}
		logger.Infof("Cleared %s relationships and swept orphan nodes", *clearTag)
	}

	if *uploadTag != "" {
		results, err := storage.NewResultStore(cfg.OutputDir).LoadCaseResults(*uploadTag)
		if err != nil {
			logger.Fatalf("Failed to load saved %s results: %v", *uploadTag, err)
		}
		summary, err := manager.UploadPipelineResults(ctx, results, *uploadTag)
		if err != nil {
			logger.Fatalf("Upload of %s results failed: %v", *uploadTag, err)
		}
		logger.WithFields(logrus.Fields{
			"pipeline":  summary.Pipeline,
			"cases":     summary.CasesProcessed,
			"attempted": summary.TriplesAttempted,
			"uploaded":  summary.TriplesUploaded,
		}).Info("Upload complete")
	}

	if *stats {
		counts, err := manager.Stats(ctx)
		if err != nil {
			logger.Fatalf("Failed to read graph stats: %v", err)
		}
		logger.Infof("Graph holds %d nodes and %d relationships", counts.Nodes, counts.Relationships)
	}
}
