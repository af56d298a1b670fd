// Command pipeline transcribes an audio folder and assembles one ELAN file
// per recording from the sentence, word and optional human tables.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/codebuildervaibhav/call-diarization/internal/app"
	"github.com/codebuildervaibhav/call-diarization/internal/config"
	"github.com/codebuildervaibhav/call-diarization/internal/logging"
	"github.com/codebuildervaibhav/call-diarization/internal/pipeline"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "pipeline: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML configuration")
	audioDir := flag.String("audio", "", "audio folder (overrides paths.audio_dir)")
	elanDir := flag.String("out", "", "ELAN output folder (overrides paths.elan_dir)")
	humanFile := flag.String("human", "", "human reference table (overrides paths.human_file)")
	skipTranscription := flag.Bool("skip-transcription", false, "reuse the tables already in the processed folder")
	upload := flag.Bool("upload", false, "upload the ELAN files to Google Drive")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *audioDir != "" {
		cfg.Paths.AudioDir = *audioDir
	}
	if *elanDir != "" {
		cfg.Paths.ElanDir = *elanDir
	}
	if *humanFile != "" {
		cfg.Paths.HumanFile = *humanFile
	}

	log := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log, app.Options{
		Transcriber: !*skipTranscription,
		Drive:       *upload,
		Interactive: true,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	paths, err := a.Pipeline.Run(ctx, pipeline.RunInput{
		AudioDir:          cfg.Paths.AudioDir,
		ProcessedDir:      cfg.Paths.ProcessedDir,
		ElanDir:           cfg.Paths.ElanDir,
		HumanPath:         cfg.Paths.HumanFile,
		SkipTranscription: *skipTranscription,
	})
	if err != nil {
		return err
	}

	if *upload {
		link, err := a.Pipeline.Upload(ctx, uuid.New().String(), paths)
		if err != nil {
			return fmt.Errorf("upload: %w", err)
		}
		if link != "" {
			fmt.Println(link)
		}
	}

	log.Info().Int("artifacts", len(paths)).Str("elan_dir", cfg.Paths.ElanDir).Msg("Pipeline finished")
	return nil
}
