// Package scoring compares a reference and a hypothesis annotation of the
// same recording and produces word, diarization, Jaccard and detection error
// rates.
package scoring

import (
	"math"
	"math/big"

	"github.com/codebuildervaibhav/call-diarization/internal/annotation"
	"github.com/codebuildervaibhav/call-diarization/internal/types"
)

// Detail carries the intermediate quantities of one scoring pass.
type Detail struct {
	Result      types.MetricResult
	Mapping     Mapping
	Diarization Components
	Detection   Components
	Slices      int
}

// Score computes every metric for one recording. The text arguments are the
// transcripts used for WER; the annotations drive the timing metrics.
func Score(ref, hyp *annotation.Annotation, refText, hypText string) types.MetricResult {
	return ScoreDetailed(ref, hyp, refText, hypText).Result
}

// ScoreDetailed is Score plus the mapping and the error components.
func ScoreDetailed(ref, hyp *annotation.Annotation, refText, hypText string) Detail {
	slices := annotation.Sweep(ref, hyp)
	mapping := OptimalMapping(slices)
	diar := diarizationComponents(slices, mapping)
	det := detectionComponents(slices)

	id := ""
	switch {
	case ref != nil && ref.RecordingID != "":
		id = ref.RecordingID
	case hyp != nil:
		id = hyp.RecordingID
	}

	return Detail{
		Result: types.MetricResult{
			RecordingID:        id,
			WER:                WordErrorRate(refText, hypText),
			DER:                diar.Rate(),
			JER:                jaccardErrorRate(slices, mapping),
			DetectionErrorRate: ratio(det.Missed+det.FalseAlarm, det.Total),
		},
		Mapping:     mapping,
		Diarization: diar,
		Detection:   det,
		Slices:      len(slices),
	}
}

// Aggregate averages each metric over the results. The mean is computed in
// extended precision and rounded once, so {0.1, 0.2, 0.3} averages to
// exactly 0.2. Every average is NaN for an empty input.
func Aggregate(results []types.MetricResult) types.CorpusSummary {
	pick := func(f func(types.MetricResult) float64) float64 {
		values := make([]float64, len(results))
		for i, r := range results {
			values[i] = f(r)
		}
		return Mean(values)
	}

	return types.CorpusSummary{
		Recordings:                len(results),
		AverageWER:                pick(func(r types.MetricResult) float64 { return r.WER }),
		AverageDER:                pick(func(r types.MetricResult) float64 { return r.DER }),
		AverageJER:                pick(func(r types.MetricResult) float64 { return r.JER }),
		AverageDetectionErrorRate: pick(func(r types.MetricResult) float64 { return r.DetectionErrorRate }),
	}
}

const meanPrecision = 2048

// Mean returns the correctly rounded arithmetic mean, NaN when empty or when
// any value is NaN or infinite.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}

	sum := new(big.Float).SetPrec(meanPrecision)
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return math.NaN()
		}
		sum.Add(sum, new(big.Float).SetPrec(meanPrecision).SetFloat64(v))
	}
	sum.Quo(sum, new(big.Float).SetPrec(meanPrecision).SetInt64(int64(len(values))))

	mean, _ := sum.Float64()
	return mean
}
