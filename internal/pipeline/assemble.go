package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/codebuildervaibhav/call-diarization/internal/elan"
	"github.com/codebuildervaibhav/call-diarization/internal/events"
	"github.com/codebuildervaibhav/call-diarization/internal/queue"
	"github.com/codebuildervaibhav/call-diarization/internal/transcript"
	"github.com/codebuildervaibhav/call-diarization/internal/transcription"
	"github.com/codebuildervaibhav/call-diarization/internal/types"
)

// AssembleInput names the audio folder, the output folder and the tables.
// An empty or missing table path makes that source absent.
type AssembleInput struct {
	AudioDir     string
	ElanDir      string
	SentencePath string
	WordPath     string
	HumanPath    string
}

type loadedSource struct {
	granularity elan.Granularity
	groups      map[string][]types.TranscriptRecord
}

// Assemble writes one ELAN file per audio file in AudioDir into a freshly
// recreated ElanDir and returns the written paths in audio order.
func (p *Pipeline) Assemble(ctx context.Context, in AssembleInput) ([]string, error) {
	audio, err := transcription.ListAudio(in.AudioDir)
	if err != nil {
		return nil, err
	}
	audio = p.uniqueRecordings(audio)

	var sources []loadedSource
	for _, s := range []struct {
		path string
		g    elan.Granularity
	}{
		{in.SentencePath, elan.Sentence},
		{in.WordPath, elan.Word},
		{in.HumanPath, elan.Human},
	} {
		src, ok, err := p.loadSource(s.path, s.g)
		if err != nil {
			return nil, err
		}
		if ok {
			sources = append(sources, src)
		}
	}

	p.log.Info().
		Str("audio_dir", in.AudioDir).
		Int("audio_files", len(audio)).
		Int("sources", len(sources)).
		Msg("Assembly started")

	if err := p.sink.Recreate(in.ElanDir); err != nil {
		return nil, err
	}

	paths := make([]string, len(audio))
	jobs := make([]*queue.Job, len(audio))
	for i, audioPath := range audio {
		i, audioPath := i, audioPath
		id := transcription.CallName(audioPath)
		jobs[i] = queue.NewJob(types.KindAssemble, id, func(ctx context.Context) error {
			srcs := make([]elan.Source, len(sources))
			for k, s := range sources {
				srcs[k] = elan.Source{Granularity: s.granularity, Records: s.groups[id]}
			}

			artifact := p.assembler.Assemble(id, audioPath, srcs...)
			path, err := p.sink.WriteArtifact(in.ElanDir, artifact)
			if err != nil {
				return err
			}
			paths[i] = path
			p.metrics.RecordArtifact(len(artifact.TierNames()))

			if p.events != nil {
				if err := p.events.ArtifactWritten(ctx, events.ArtifactWritten{
					RecordingID: id,
					Path:        path,
					Tiers:       len(artifact.TierNames()),
					Annotations: artifact.Len(),
				}); err != nil {
					p.log.Warn().Err(err).Str("recording_id", id).Msg("Failed to publish artifact event")
				}
			}
			return nil
		})
	}

	p.pool().Run(ctx, jobs)

	var written []string
	var errs []error
	for i, j := range jobs {
		if j.Failed() {
			errs = append(errs, fmt.Errorf("%s: %w", j.RecordingID, j.Error))
			continue
		}
		written = append(written, paths[i])
	}

	p.log.Info().
		Str("elan_dir", in.ElanDir).
		Int("written", len(written)).
		Int("failed", len(errs)).
		Msg("Assembly finished")

	if len(errs) > 0 {
		return written, fmt.Errorf("%d of %d artifacts failed: %w", len(errs), len(jobs), errors.Join(errs...))
	}
	return written, nil
}

// loadSource reads one optional table. A blank path or a missing file is an
// absent source; any other failure is returned.
func (p *Pipeline) loadSource(path string, g elan.Granularity) (loadedSource, bool, error) {
	if path == "" {
		return loadedSource{}, false, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		p.log.Info().Str("path", path).Str("source", g.String()).Msg("Table not found, source absent")
		return loadedSource{}, false, nil
	}

	table, bad, err := transcript.ReadFile(path)
	if err != nil {
		return loadedSource{}, false, fmt.Errorf("%s table: %w", g, err)
	}
	p.logMalformed(g.String(), bad)
	return loadedSource{granularity: g, groups: table.Partition()}, true, nil
}

// uniqueRecordings keeps the first audio file of each recording id. Files
// arrive sorted, so "call.mp3" wins over "call.wav".
func (p *Pipeline) uniqueRecordings(audio []string) []string {
	seen := make(map[string]string, len(audio))
	kept := make([]string, 0, len(audio))
	for _, path := range audio {
		id := transcription.CallName(path)
		if first, ok := seen[id]; ok {
			p.log.Warn().
				Str("recording_id", id).
				Str("kept", first).
				Str("skipped", path).
				Msg("Audio files share a recording id, skipping the later one")
			continue
		}
		seen[id] = path
		kept = append(kept, path)
	}
	return kept
}
