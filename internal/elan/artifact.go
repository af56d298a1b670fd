// Package elan assembles per-recording multi-tier annotation documents and
// writes them in the ELAN (.eaf) format.
package elan

import (
	"math"
	"path/filepath"
	"strings"
	"time"
)

// WordTierSuffix marks tiers built from word-granularity records.
const WordTierSuffix = "_word_level"

// Granularity identifies which transcript a source holds.
type Granularity int

const (
	Sentence Granularity = iota
	Word
	Human
)

func (g Granularity) String() string {
	switch g {
	case Sentence:
		return "sentence"
	case Word:
		return "word"
	case Human:
		return "human"
	default:
		return "unknown"
	}
}

// TierName derives the tier a record lands in. Sentence and human records
// share the bare speaker label; word records get WordTierSuffix.
func TierName(label string, g Granularity) string {
	if g == Word {
		return label + WordTierSuffix
	}
	return label
}

// ToMilliseconds converts seconds to whole milliseconds, truncating toward
// zero. Every timestamp in an artifact passes through here.
func ToMilliseconds(sec float64) int64 {
	return int64(math.Trunc(sec * 1000))
}

// Annotation is one timed value on a tier.
type Annotation struct {
	StartMs int64
	EndMs   int64
	Value   string

	seq int
}

// Tier is a named, ordered list of annotations.
type Tier struct {
	Name        string
	Annotations []Annotation
}

// Media is the audio linked from an artifact. The file itself is never
// copied.
type Media struct {
	Path     string
	MimeType string
}

var mimeTypes = map[string]string{
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".flac": "audio/flac",
}

// MimeType guesses the audio MIME type from the file extension, defaulting
// to audio/wav.
func MimeType(path string) string {
	if m, ok := mimeTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return m
	}
	return "audio/wav"
}

// Artifact is the tiered annotation document of one recording.
type Artifact struct {
	RecordingID string
	Media       *Media
	CreatedAt   time.Time

	tiers []*Tier
	index map[string]int
	count int
}

// NewArtifact returns an empty artifact for the recording.
func NewArtifact(recordingID string) *Artifact {
	return &Artifact{
		RecordingID: recordingID,
		index:       make(map[string]int),
	}
}

// LinkMedia attaches the audio file, replacing any previous link.
func (a *Artifact) LinkMedia(path string) {
	a.Media = &Media{Path: path, MimeType: MimeType(path)}
}

// AddAnnotation appends to the named tier, creating it on first use. Tier
// order is the order of first creation.
func (a *Artifact) AddAnnotation(tier string, startMs, endMs int64, value string) {
	i, ok := a.index[tier]
	if !ok {
		i = len(a.tiers)
		a.index[tier] = i
		a.tiers = append(a.tiers, &Tier{Name: tier})
	}
	a.tiers[i].Annotations = append(a.tiers[i].Annotations, Annotation{
		StartMs: startMs,
		EndMs:   endMs,
		Value:   value,
		seq:     a.count,
	})
	a.count++
}

// Tier returns a copy of the named tier.
func (a *Artifact) Tier(name string) (Tier, bool) {
	i, ok := a.index[name]
	if !ok {
		return Tier{}, false
	}
	t := a.tiers[i]
	return Tier{Name: t.Name, Annotations: append([]Annotation(nil), t.Annotations...)}, true
}

// TierNames lists tiers in creation order.
func (a *Artifact) TierNames() []string {
	names := make([]string, len(a.tiers))
	for i, t := range a.tiers {
		names[i] = t.Name
	}
	return names
}

// Len is the total number of annotations across tiers.
func (a *Artifact) Len() int {
	return a.count
}
