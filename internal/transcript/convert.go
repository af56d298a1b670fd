package transcript

import (
	"github.com/codebuildervaibhav/call-diarization/internal/types"
)

// Tabulate flattens a transcription result into sentence-level and
// word-level records for one recording. Millisecond timings become seconds.
// Utterances or words that fail validation are returned as skipped errors.
func Tabulate(callName string, fileNum int, tr *types.Transcript) (sentences, words []types.TranscriptRecord, skipped []error) {
	if tr == nil {
		return nil, nil, nil
	}

	for _, u := range tr.Utterances {
		rec, err := types.NewTranscriptRecord(callName, fileNum, u.Speaker, msToSec(u.StartMs), msToSec(u.EndMs), u.Text)
		if err != nil {
			skipped = append(skipped, &types.MalformedRecordError{Source: "utterance", RecordingID: callName, Reason: err.Error()})
		} else {
			sentences = append(sentences, rec)
		}

		for _, w := range u.Words {
			speaker := w.Speaker
			if speaker == "" {
				speaker = u.Speaker
			}
			rec, err := types.NewTranscriptRecord(callName, fileNum, speaker, msToSec(w.StartMs), msToSec(w.EndMs), w.Text)
			if err != nil {
				skipped = append(skipped, &types.MalformedRecordError{Source: "word", RecordingID: callName, Reason: err.Error()})
				continue
			}
			words = append(words, rec)
		}
	}

	return sentences, words, skipped
}

func msToSec(ms int64) float64 {
	return float64(ms) / 1000
}
