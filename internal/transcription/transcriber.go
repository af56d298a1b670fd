// Package transcription is the boundary to speech-to-text services that
// return diarized transcripts.
package transcription

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/codebuildervaibhav/call-diarization/internal/types"
)

// Transcriber turns one audio file into a diarized transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*types.Transcript, error)
	Name() string
}

// SidecarTranscriber reads a transcript that was computed ahead of time and
// stored next to the audio as <name>.json.
type SidecarTranscriber struct {
	// Dir overrides where sidecar files are looked up. Empty means the
	// audio file's own directory.
	Dir string
}

// NewSidecarTranscriber creates a transcriber that reads sidecar JSON files
func NewSidecarTranscriber(dir string) *SidecarTranscriber {
	return &SidecarTranscriber{Dir: dir}
}

// Name implements Transcriber.
func (s *SidecarTranscriber) Name() string {
	return "sidecar"
}

// SidecarPath returns where the transcript of audioPath is expected.
func (s *SidecarTranscriber) SidecarPath(audioPath string) string {
	dir := s.Dir
	if dir == "" {
		dir = filepath.Dir(audioPath)
	}
	return filepath.Join(dir, CallName(audioPath)+".json")
}

// Transcribe implements Transcriber.
func (s *SidecarTranscriber) Transcribe(ctx context.Context, audioPath string) (*types.Transcript, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := s.SidecarPath(audioPath)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sidecar transcript: %w", err)
	}

	var tr types.Transcript
	if err := json.Unmarshal(data, &tr); err != nil {
		return nil, fmt.Errorf("parse sidecar transcript %s: %w", path, err)
	}
	if len(tr.Utterances) == 0 {
		return nil, fmt.Errorf("%w: %s", types.ErrEmptyTranscript, path)
	}
	if tr.AudioPath == "" {
		tr.AudioPath = audioPath
	}
	return &tr, nil
}
