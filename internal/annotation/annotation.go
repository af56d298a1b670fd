// Package annotation turns transcript records of one recording into
// speaker-labeled time intervals.
package annotation

import (
	"sort"
	"strings"

	"github.com/codebuildervaibhav/call-diarization/internal/types"
)

// Segment is the half-open interval [Start, End) in seconds.
type Segment struct {
	Start float64
	End   float64
}

// Duration returns End - Start.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Track is one labeled interval. Text is kept so callers can rebuild the
// transcript in time order.
type Track struct {
	Segment
	Label string
	Text  string
}

// Annotation is the set of tracks of one recording, sorted by start time.
// Overlapping tracks are kept as they are; nothing is merged.
type Annotation struct {
	RecordingID string
	tracks      []Track
}

// Build creates an annotation with exactly one track per usable record.
// Records with no text, with an invalid time range, or belonging to another
// recording are skipped and reported in the returned slice. Empty input
// yields an empty annotation.
func Build(records []types.TranscriptRecord) (*Annotation, []error) {
	a := &Annotation{}
	var skipped []error

	for i, r := range records {
		if a.RecordingID == "" {
			a.RecordingID = r.RecordingID
		}

		reason := ""
		switch {
		case r.RecordingID != a.RecordingID:
			reason = "belongs to recording " + r.RecordingID
		case strings.TrimSpace(r.Text) == "":
			reason = "empty text"
		default:
			if err := r.Validate(); err != nil {
				reason = err.Error()
			}
		}
		if reason != "" {
			skipped = append(skipped, &types.MalformedRecordError{
				Source:      "annotation",
				Row:         i + 1,
				RecordingID: r.RecordingID,
				Reason:      reason,
			})
			continue
		}

		a.tracks = append(a.tracks, Track{
			Segment: Segment{Start: r.StartSec, End: r.EndSec},
			Label:   r.SpeakerLabel,
			Text:    r.Text,
		})
	}

	// stable: equal starts keep input order
	sort.SliceStable(a.tracks, func(i, j int) bool {
		return a.tracks[i].Start < a.tracks[j].Start
	})

	return a, skipped
}

// New builds an annotation straight from tracks, mainly for tests and
// callers that already hold intervals.
func New(recordingID string, tracks ...Track) *Annotation {
	a := &Annotation{RecordingID: recordingID, tracks: append([]Track(nil), tracks...)}
	sort.SliceStable(a.tracks, func(i, j int) bool {
		return a.tracks[i].Start < a.tracks[j].Start
	})
	return a
}

// Tracks returns a copy of the tracks in start order.
func (a *Annotation) Tracks() []Track {
	if a == nil {
		return nil
	}
	return append([]Track(nil), a.tracks...)
}

// Len returns the number of tracks.
func (a *Annotation) Len() int {
	if a == nil {
		return 0
	}
	return len(a.tracks)
}

// Empty reports whether the annotation holds no speech.
func (a *Annotation) Empty() bool {
	return a.Len() == 0
}

// Labels returns the distinct labels, sorted.
func (a *Annotation) Labels() []string {
	if a == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var labels []string
	for _, t := range a.tracks {
		if _, ok := seen[t.Label]; ok {
			continue
		}
		seen[t.Label] = struct{}{}
		labels = append(labels, t.Label)
	}
	sort.Strings(labels)
	return labels
}

// Text joins the track texts in start order with single spaces.
func (a *Annotation) Text() string {
	if a == nil {
		return ""
	}
	parts := make([]string, 0, len(a.tracks))
	for _, t := range a.tracks {
		parts = append(parts, t.Text)
	}
	return strings.Join(parts, " ")
}
