package types

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingColumn is returned when a transcript table lacks a required column.
	ErrMissingColumn = errors.New("missing required column")

	// ErrOutputUnavailable marks failures to read or write the artifact directories.
	ErrOutputUnavailable = errors.New("output unavailable")

	// ErrEmptyTranscript is returned by transcribers that produced no utterances.
	ErrEmptyTranscript = errors.New("empty transcript")

	// ErrRunNotFound is returned by the run store for unknown run ids.
	ErrRunNotFound = errors.New("run not found")
)

// MalformedRecordError describes a record that was skipped.
// Row is the 1-based data row in the source table, or 0 when unknown.
type MalformedRecordError struct {
	Source      string
	Row         int
	RecordingID string
	Reason      string
}

func (e *MalformedRecordError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("malformed record in %s row %d (recording %q): %s", e.Source, e.Row, e.RecordingID, e.Reason)
	}
	return fmt.Sprintf("malformed record in %s (recording %q): %s", e.Source, e.RecordingID, e.Reason)
}
