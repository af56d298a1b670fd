package types

import (
	"fmt"
	"math"
	"time"
)

// Job status constants
const (
	StatusQueued     = "QUEUED"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// Job kind constants
const (
	KindEvaluate   = "evaluate"
	KindAssemble   = "assemble"
	KindTranscribe = "transcribe"
)

// TranscriptRecord is one utterance or word occurrence of a recording.
// Duration is derived from the start and end times and never stored.
type TranscriptRecord struct {
	RecordingID  string
	SequenceNum  int
	SpeakerLabel string
	StartSec     float64
	EndSec       float64
	Text         string
}

// NewTranscriptRecord validates and returns a record.
func NewTranscriptRecord(recordingID string, seq int, speaker string, start, end float64, text string) (TranscriptRecord, error) {
	r := TranscriptRecord{
		RecordingID:  recordingID,
		SequenceNum:  seq,
		SpeakerLabel: speaker,
		StartSec:     start,
		EndSec:       end,
		Text:         text,
	}
	if err := r.Validate(); err != nil {
		return TranscriptRecord{}, err
	}
	return r, nil
}

// Validate checks the timing invariant and the required identity fields.
func (r TranscriptRecord) Validate() error {
	if r.RecordingID == "" {
		return fmt.Errorf("recording id is empty")
	}
	if math.IsNaN(r.StartSec) || math.IsInf(r.StartSec, 0) || math.IsNaN(r.EndSec) || math.IsInf(r.EndSec, 0) {
		return fmt.Errorf("non-finite time [%v, %v]", r.StartSec, r.EndSec)
	}
	if r.StartSec < 0 {
		return fmt.Errorf("negative start %v", r.StartSec)
	}
	if r.EndSec < r.StartSec {
		return fmt.Errorf("end %v precedes start %v", r.EndSec, r.StartSec)
	}
	return nil
}

// Duration returns EndSec - StartSec.
func (r TranscriptRecord) Duration() float64 {
	return r.EndSec - r.StartSec
}

// Transcript is what a transcription service returns for one audio file.
// All times are in milliseconds.
type Transcript struct {
	AudioPath  string      `json:"audio_path,omitempty"`
	Language   string      `json:"language,omitempty"`
	Utterances []Utterance `json:"utterances"`
}

// Utterance is a speaker turn with its nested words.
type Utterance struct {
	Speaker string `json:"speaker"`
	StartMs int64  `json:"start"`
	EndMs   int64  `json:"end"`
	Text    string `json:"text"`
	Words   []Word `json:"words"`
}

// Word is a single timed word inside an utterance.
type Word struct {
	Speaker string `json:"speaker"`
	StartMs int64  `json:"start"`
	EndMs   int64  `json:"end"`
	Text    string `json:"text"`
}

// MetricResult holds the four diarization scores of one recording.
type MetricResult struct {
	RecordingID        string  `json:"recording_id"`
	WER                float64 `json:"wer"`
	DER                float64 `json:"der"`
	JER                float64 `json:"jer"`
	DetectionErrorRate float64 `json:"detection_error_rate"`
}

// CorpusSummary holds the per-field means over all scored recordings.
// Every average is NaN when no recording was scored.
type CorpusSummary struct {
	Recordings                int
	AverageWER                float64
	AverageDER                float64
	AverageJER                float64
	AverageDetectionErrorRate float64
}

// RecordingMismatch names a recording present on only one side of an evaluation.
type RecordingMismatch struct {
	RecordingID string `json:"recording_id"`
	Side        string `json:"side"` // "reference" or "hypothesis"
}

// Report is the full outcome of one evaluation run.
type Report struct {
	RunID       string              `json:"run_id"`
	CreatedAt   time.Time           `json:"created_at"`
	Results     []MetricResult      `json:"results"`
	Summary     CorpusSummary       `json:"summary"`
	Excluded    []RecordingMismatch `json:"excluded,omitempty"`
	Failed      []string            `json:"failed,omitempty"`
	SkippedRows int                 `json:"skipped_rows"`
}
