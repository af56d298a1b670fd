package types

import (
	"encoding/json"
	"math"
)

type corpusSummaryJSON struct {
	Recordings                int      `json:"recordings"`
	AverageWER                *float64 `json:"average_wer"`
	AverageDER                *float64 `json:"average_der"`
	AverageJER                *float64 `json:"average_jer"`
	AverageDetectionErrorRate *float64 `json:"average_detection_error_rate"`
}

// MarshalJSON encodes NaN averages as null, which encoding/json cannot do on its own.
func (s CorpusSummary) MarshalJSON() ([]byte, error) {
	return json.Marshal(corpusSummaryJSON{
		Recordings:                s.Recordings,
		AverageWER:                nullable(s.AverageWER),
		AverageDER:                nullable(s.AverageDER),
		AverageJER:                nullable(s.AverageJER),
		AverageDetectionErrorRate: nullable(s.AverageDetectionErrorRate),
	})
}

// UnmarshalJSON maps null averages back to NaN.
func (s *CorpusSummary) UnmarshalJSON(data []byte) error {
	var raw corpusSummaryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Recordings = raw.Recordings
	s.AverageWER = orNaN(raw.AverageWER)
	s.AverageDER = orNaN(raw.AverageDER)
	s.AverageJER = orNaN(raw.AverageJER)
	s.AverageDetectionErrorRate = orNaN(raw.AverageDetectionErrorRate)
	return nil
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
