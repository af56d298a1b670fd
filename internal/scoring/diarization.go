package scoring

import (
	"sort"

	"github.com/codebuildervaibhav/call-diarization/internal/annotation"
)

// Mapping sends hypothesis labels to reference labels, one to one.
type Mapping map[string]string

// Components are the durations behind a diarization or detection rate.
type Components struct {
	Total      float64 `json:"total"`
	Missed     float64 `json:"missed"`
	FalseAlarm float64 `json:"false_alarm"`
	Confusion  float64 `json:"confusion"`
}

// Rate returns (missed + false alarm + confusion) / total.
func (c Components) Rate() float64 {
	return ratio(c.Missed+c.FalseAlarm+c.Confusion, c.Total)
}

// ratio divides with the convention used by every rate here: no reference
// speech and no error is a perfect score, any error without reference is 1.
func ratio(num, den float64) float64 {
	if den == 0 {
		if num == 0 {
			return 0
		}
		return 1
	}
	return num / den
}

// OptimalMapping finds the one-to-one label mapping that maximizes total
// co-occurrence duration. Labels are ordered lexicographically before solving
// so equal-cost alternatives always resolve the same way. Pairs that never
// overlap are left unmapped.
func OptimalMapping(slices []annotation.Slice) Mapping {
	refIndex, refLabels := labelIndex(slices, func(s annotation.Slice) []string { return s.Reference })
	hypIndex, hypLabels := labelIndex(slices, func(s annotation.Slice) []string { return s.Hypothesis })

	overlap := make([][]float64, len(refLabels))
	for i := range overlap {
		overlap[i] = make([]float64, len(hypLabels))
	}
	for _, s := range slices {
		d := s.Duration()
		for _, r := range s.Reference {
			for _, h := range s.Hypothesis {
				overlap[refIndex[r]][hypIndex[h]] += d
			}
		}
	}

	cost := make([][]float64, len(refLabels))
	for i := range cost {
		cost[i] = make([]float64, len(hypLabels))
		for j := range cost[i] {
			cost[i][j] = -overlap[i][j]
		}
	}

	mapping := make(Mapping)
	for i, j := range assign(cost, len(refLabels), len(hypLabels)) {
		if j >= 0 && overlap[i][j] > 0 {
			mapping[hypLabels[j]] = refLabels[i]
		}
	}
	return mapping
}

func labelIndex(slices []annotation.Slice, pick func(annotation.Slice) []string) (map[string]int, []string) {
	seen := make(map[string]struct{})
	var labels []string
	for _, s := range slices {
		for _, l := range pick(s) {
			if _, ok := seen[l]; !ok {
				seen[l] = struct{}{}
				labels = append(labels, l)
			}
		}
	}
	sort.Strings(labels)

	index := make(map[string]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}
	return index, labels
}

// diarizationComponents accumulates missed, false alarm and confusion time
// once hypothesis labels have been mapped.
func diarizationComponents(slices []annotation.Slice, mapping Mapping) Components {
	var c Components
	for _, s := range slices {
		d := s.Duration()
		nRef, nHyp := len(s.Reference), len(s.Hypothesis)

		correct := 0
		for _, h := range s.Hypothesis {
			if r, ok := mapping[h]; ok && contains(s.Reference, r) {
				correct++
			}
		}

		c.Total += d * float64(nRef)
		c.Confusion += d * float64(min(nRef, nHyp)-correct)
		c.Missed += d * float64(max(0, nRef-nHyp))
		c.FalseAlarm += d * float64(max(0, nHyp-nRef))
	}
	return c
}

// jaccardErrorRate averages 1 - |ref ∩ hyp| / |ref ∪ hyp| over reference
// labels that hold speech. Unmapped reference labels count as 1.
func jaccardErrorRate(slices []annotation.Slice, mapping Mapping) float64 {
	reverse := make(map[string]string, len(mapping))
	for h, r := range mapping {
		reverse[r] = h
	}

	refDuration := make(map[string]float64)
	intersection := make(map[string]float64)
	union := make(map[string]float64)
	hypSpeech := 0.0

	for _, s := range slices {
		d := s.Duration()
		if len(s.Hypothesis) > 0 {
			hypSpeech += d
		}
		for _, r := range s.Reference {
			refDuration[r] += d
		}
		for r, h := range reverse {
			inRef := contains(s.Reference, r)
			inHyp := contains(s.Hypothesis, h)
			if inRef && inHyp {
				intersection[r] += d
			}
			if inRef || inHyp {
				union[r] += d
			}
		}
	}

	if len(refDuration) == 0 {
		return ratio(hypSpeech, 0)
	}

	sum := 0.0
	n := 0
	for r, dur := range refDuration {
		if dur <= 0 {
			continue
		}
		n++
		if _, ok := reverse[r]; !ok {
			sum += 1
			continue
		}
		sum += 1 - ratio(intersection[r], union[r])
	}
	if n == 0 {
		return ratio(hypSpeech, 0)
	}
	return sum / float64(n)
}

// detectionComponents measures speech/non-speech disagreement only.
func detectionComponents(slices []annotation.Slice) Components {
	var c Components
	for _, s := range slices {
		d := s.Duration()
		ref := len(s.Reference) > 0
		hyp := len(s.Hypothesis) > 0
		switch {
		case ref && !hyp:
			c.Missed += d
		case hyp && !ref:
			c.FalseAlarm += d
		}
		if ref {
			c.Total += d
		}
	}
	return c
}

func contains(labels []string, label string) bool {
	// label lists come from Sweep and are sorted
	i := sort.SearchStrings(labels, label)
	return i < len(labels) && labels[i] == label
}
