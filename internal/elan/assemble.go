package elan

import (
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/codebuildervaibhav/call-diarization/internal/types"
)

// Source is one transcript table offered to the assembler. A source that is
// not passed at all is absent; a source with no rows for the recording is
// present but empty.
type Source struct {
	Granularity Granularity
	Records     []types.TranscriptRecord
}

// Assembler builds artifacts from transcript sources.
type Assembler struct {
	log zerolog.Logger
	now func() time.Time
}

// NewAssembler creates an assembler that reports empty sources on log.
func NewAssembler(log zerolog.Logger) *Assembler {
	return &Assembler{
		log: log.With().Str("component", "elan").Logger(),
		now: time.Now,
	}
}

// Assemble builds the artifact of one recording. Sources are applied
// sentence, then word, then human, whatever order they are passed in; rows
// inside a source keep their input order. Word rows without text are
// skipped. The audio path is linked, not copied.
func (as *Assembler) Assemble(recordingID, audioPath string, sources ...Source) *Artifact {
	ordered := append([]Source(nil), sources...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Granularity < ordered[j].Granularity
	})

	a := NewArtifact(recordingID)
	a.CreatedAt = as.now()

	for _, src := range ordered {
		added, skipped := 0, 0
		for _, r := range src.Records {
			if r.RecordingID != recordingID {
				continue
			}
			if src.Granularity == Word && strings.TrimSpace(r.Text) == "" {
				skipped++
				continue
			}
			a.AddAnnotation(
				TierName(r.SpeakerLabel, src.Granularity),
				ToMilliseconds(r.StartSec),
				ToMilliseconds(r.EndSec),
				r.Text,
			)
			added++
		}

		if added == 0 && skipped == 0 {
			as.log.Warn().
				Str("recording_id", recordingID).
				Str("source", src.Granularity.String()).
				Msg("No records for recording in source")
			continue
		}
		if skipped > 0 {
			as.log.Debug().
				Str("recording_id", recordingID).
				Int("skipped", skipped).
				Msg("Skipped word rows without text")
		}
	}

	if audioPath != "" {
		a.LinkMedia(audioPath)
	}
	return a
}
