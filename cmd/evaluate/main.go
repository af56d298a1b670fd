// Command evaluate scores a hypothesis transcript table against a reference
// table and writes metrics_report.json.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/codebuildervaibhav/call-diarization/internal/app"
	"github.com/codebuildervaibhav/call-diarization/internal/config"
	"github.com/codebuildervaibhav/call-diarization/internal/logging"
	"github.com/codebuildervaibhav/call-diarization/internal/pipeline"
	"github.com/codebuildervaibhav/call-diarization/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "evaluate: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML configuration")
	refPath := flag.String("ref", "", "reference (human) transcript table")
	hypPath := flag.String("hyp", "", "hypothesis transcript table")
	reportsDir := flag.String("reports", "", "report folder (overrides paths.reports_dir)")
	persist := flag.Bool("store", true, "record the run in the run history database")
	upload := flag.Bool("upload", false, "upload the report to Google Drive")
	flag.Parse()

	if *refPath == "" || *hypPath == "" {
		flag.Usage()
		return fmt.Errorf("both -ref and -hyp are required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *reportsDir != "" {
		cfg.Paths.ReportsDir = *reportsDir
	}

	log := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log, app.Options{Store: *persist, Drive: *upload, Interactive: true})
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.Pipeline.Evaluate(ctx, pipeline.EvaluateInput{
		ReferencePath:  *refPath,
		HypothesisPath: *hypPath,
		ReportsDir:     cfg.Paths.ReportsDir,
	})
	if err != nil {
		return err
	}

	if *upload {
		path := filepath.Join(cfg.Paths.ReportsDir, storage.ReportFile)
		if _, err := a.Pipeline.Upload(ctx, report.RunID, []string{path}); err != nil {
			return fmt.Errorf("upload: %w", err)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report.Summary)
}
