package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/codebuildervaibhav/call-diarization/internal/cleanup"
	"github.com/codebuildervaibhav/call-diarization/internal/elan"
	"github.com/codebuildervaibhav/call-diarization/internal/transcript"
	"github.com/codebuildervaibhav/call-diarization/internal/types"
)

// Output file names.
const (
	SentenceTableFile = "sentence_level_transcription.csv"
	WordTableFile     = "word_level_transcription.csv"
	ReportFile        = "metrics_report.json"
	ArtifactExt       = ".eaf"
)

// OutputSink owns every write to the output directories. All failures wrap
// types.ErrOutputUnavailable.
type OutputSink struct {
	log zerolog.Logger
}

// NewOutputSink creates a new local output sink
func NewOutputSink(log zerolog.Logger) *OutputSink {
	return &OutputSink{
		log: log.With().Str("component", "storage").Logger(),
	}
}

// Recreate empties dir, creating it when missing.
func (s *OutputSink) Recreate(dir string) error {
	if err := cleanup.RecreateDir(dir); err != nil {
		return fmt.Errorf("%w: %w", types.ErrOutputUnavailable, err)
	}
	s.log.Debug().Str("dir", dir).Msg("Recreated output directory")
	return nil
}

// Ensure creates dir when missing and keeps its content otherwise.
func (s *OutputSink) Ensure(dir string) error {
	if err := cleanup.EnsureDirExists(dir); err != nil {
		return fmt.Errorf("%w: %w", types.ErrOutputUnavailable, err)
	}
	return nil
}

// WriteTable writes records as a transcript CSV at path.
func (s *OutputSink) WriteTable(path string, records []types.TranscriptRecord) error {
	err := s.writeFile(path, func(w *bufio.Writer) error {
		return transcript.Write(w, records)
	})
	if err != nil {
		return err
	}
	s.log.Info().Str("path", path).Int("rows", len(records)).Msg("Saved transcript table")
	return nil
}

// WriteArtifact writes the artifact as <dir>/<recording>.eaf and returns the
// path. The media link is made relative to dir.
func (s *OutputSink) WriteArtifact(dir string, a *elan.Artifact) (string, error) {
	path := filepath.Join(dir, sanitizeFilename(a.RecordingID)+ArtifactExt)
	err := s.writeFile(path, func(w *bufio.Writer) error {
		return a.Encode(w, dir)
	})
	if err != nil {
		return "", err
	}
	s.log.Info().Str("path", path).Str("recording_id", a.RecordingID).Msg("Saved ELAN file")
	return path, nil
}

// WriteReport writes the report as indented JSON in dir and returns the path.
func (s *OutputSink) WriteReport(dir string, report *types.Report) (string, error) {
	path := filepath.Join(dir, ReportFile)
	err := s.writeFile(path, func(w *bufio.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	})
	if err != nil {
		return "", err
	}
	s.log.Info().Str("path", path).Str("run_id", report.RunID).Msg("Saved metrics report")
	return path, nil
}

// writeFile writes through a temp file and renames it into place.
func (s *OutputSink) writeFile(path string, fill func(w *bufio.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("%w: create directory for %s: %w", types.ErrOutputUnavailable, path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("%w: create %s: %w", types.ErrOutputUnavailable, path, err)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: chmod %s: %w", types.ErrOutputUnavailable, path, err)
	}

	w := bufio.NewWriter(tmp)
	if err := fill(w); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write %s: %w", types.ErrOutputUnavailable, path, err)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write %s: %w", types.ErrOutputUnavailable, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", types.ErrOutputUnavailable, path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: rename %s: %w", types.ErrOutputUnavailable, path, err)
	}
	return nil
}

const maxFilenameBytes = 100

// sanitizeFilename strips path components and characters that are invalid
// in file names. Long names are cut on a rune boundary.
func sanitizeFilename(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." {
		name = "_"
	}
	if len(name) > maxFilenameBytes {
		cut := maxFilenameBytes
		for cut > 0 && !utf8.RuneStart(name[cut]) {
			cut--
		}
		name = name[:cut]
	}
	return name
}
