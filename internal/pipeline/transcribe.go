package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/codebuildervaibhav/call-diarization/internal/logging"
	"github.com/codebuildervaibhav/call-diarization/internal/queue"
	"github.com/codebuildervaibhav/call-diarization/internal/storage"
	"github.com/codebuildervaibhav/call-diarization/internal/transcript"
	"github.com/codebuildervaibhav/call-diarization/internal/transcription"
	"github.com/codebuildervaibhav/call-diarization/internal/types"
)

const transcribeAttempts = 3

// ErrNoTranscriber is returned by Transcribe when no transcriber is set.
var ErrNoTranscriber = errors.New("no transcriber configured")

// TranscribeResult locates the tables written by Transcribe.
type TranscribeResult struct {
	SentencePath string
	WordPath     string
	Files        int
	Failed       []string
}

// Transcribe runs every audio file of audioDir through the transcriber and
// writes the sentence and word tables into processedDir. filenum counts
// audio files from 1 in name order. Failed files are left out of the tables;
// the call fails only if every file failed.
func (p *Pipeline) Transcribe(ctx context.Context, audioDir, processedDir string) (*TranscribeResult, error) {
	if p.transcriber == nil {
		return nil, ErrNoTranscriber
	}
	audio, err := transcription.ListAudio(audioDir)
	if err != nil {
		return nil, err
	}
	audio = p.uniqueRecordings(audio)

	p.log.Info().
		Str("audio_dir", audioDir).
		Str("provider", p.transcriber.Name()).
		Int("audio_files", len(audio)).
		Msg("Transcription started")

	sentences := make([][]types.TranscriptRecord, len(audio))
	words := make([][]types.TranscriptRecord, len(audio))
	jobs := make([]*queue.Job, len(audio))
	for i, audioPath := range audio {
		i, audioPath := i, audioPath
		callName := transcription.CallName(audioPath)
		jobs[i] = queue.NewJob(types.KindTranscribe, callName, func(ctx context.Context) error {
			tr, err := p.transcribeWithRetry(ctx, audioPath)
			if err != nil {
				return err
			}
			s, w, skipped := transcript.Tabulate(callName, i+1, tr)
			p.logMalformed("transcript", skipped)
			sentences[i], words[i] = s, w
			return nil
		})
	}

	p.pool().Run(ctx, jobs)

	res := &TranscribeResult{
		SentencePath: filepath.Join(processedDir, storage.SentenceTableFile),
		WordPath:     filepath.Join(processedDir, storage.WordTableFile),
		Files:        len(audio),
	}
	var allSentences, allWords []types.TranscriptRecord
	for i, j := range jobs {
		if j.Failed() {
			log := logging.WithRecording(p.log, j.RecordingID)
			log.Error().Err(j.Error).Msg("Transcription failed")
			res.Failed = append(res.Failed, j.RecordingID)
			continue
		}
		allSentences = append(allSentences, sentences[i]...)
		allWords = append(allWords, words[i]...)
	}
	if len(audio) > 0 && len(res.Failed) == len(audio) {
		return res, fmt.Errorf("all %d audio files failed to transcribe", len(audio))
	}

	if err := p.sink.Ensure(processedDir); err != nil {
		return res, err
	}
	if err := p.sink.WriteTable(res.SentencePath, allSentences); err != nil {
		return res, err
	}
	if err := p.sink.WriteTable(res.WordPath, allWords); err != nil {
		return res, err
	}

	p.log.Info().
		Int("files", res.Files).
		Int("failed", len(res.Failed)).
		Int("sentences", len(allSentences)).
		Int("words", len(allWords)).
		Msg("Transcription finished")
	return res, nil
}

func (p *Pipeline) transcribeWithRetry(ctx context.Context, audioPath string) (*types.Transcript, error) {
	var tr *types.Transcript
	err := p.retry(ctx, transcribeAttempts, "transcribe", func(ctx context.Context) error {
		if p.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, p.timeout)
			defer cancel()
		}

		start := time.Now()
		var err error
		tr, err = p.transcriber.Transcribe(ctx, audioPath)
		p.metrics.RecordTranscription(p.transcriber.Name(), err, time.Since(start).Seconds())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("transcribe %s: %w", filepath.Base(audioPath), err)
	}
	return tr, nil
}

// RunInput configures a full batch run.
type RunInput struct {
	AudioDir     string
	ProcessedDir string
	ElanDir      string
	HumanPath    string
	// SkipTranscription reuses the tables already in ProcessedDir.
	SkipTranscription bool
}

// Run transcribes the audio folder, then assembles the ELAN files from the
// resulting tables and the optional human table.
func (p *Pipeline) Run(ctx context.Context, in RunInput) ([]string, error) {
	sentencePath := filepath.Join(in.ProcessedDir, storage.SentenceTableFile)
	wordPath := filepath.Join(in.ProcessedDir, storage.WordTableFile)

	if !in.SkipTranscription {
		res, err := p.Transcribe(ctx, in.AudioDir, in.ProcessedDir)
		if err != nil {
			return nil, err
		}
		sentencePath, wordPath = res.SentencePath, res.WordPath
	}

	return p.Assemble(ctx, AssembleInput{
		AudioDir:     in.AudioDir,
		ElanDir:      in.ElanDir,
		SentencePath: sentencePath,
		WordPath:     wordPath,
		HumanPath:    in.HumanPath,
	})
}
