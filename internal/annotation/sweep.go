package annotation

import "sort"

// Slice is an elementary piece of the common timeline of two annotations.
// No track starts or ends strictly inside it, so the active label sets are
// constant over the whole slice.
type Slice struct {
	Segment
	Reference  []string
	Hypothesis []string
}

type boundary struct {
	at    float64
	side  int
	label string
	delta int
}

const (
	sideReference = iota
	sideHypothesis
)

// Sweep cuts the union of both annotations' boundaries into slices and
// reports which labels are active on each. Slices where neither side speaks
// are omitted. Label lists are distinct and sorted. Zero-length tracks take
// no time and never appear.
func Sweep(reference, hypothesis *Annotation) []Slice {
	var events []boundary
	collect := func(a *Annotation, side int) {
		if a == nil {
			return
		}
		for _, t := range a.tracks {
			if t.End <= t.Start {
				continue
			}
			events = append(events,
				boundary{at: t.Start, side: side, label: t.Label, delta: 1},
				boundary{at: t.End, side: side, label: t.Label, delta: -1},
			)
		}
	}
	collect(reference, sideReference)
	collect(hypothesis, sideHypothesis)

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].at < events[j].at
	})

	active := [2]map[string]int{{}, {}}
	var slices []Slice
	prev := 0.0

	for i := 0; i < len(events); {
		at := events[i].at
		if i > 0 && at > prev && (len(active[sideReference]) > 0 || len(active[sideHypothesis]) > 0) {
			slices = append(slices, Slice{
				Segment:    Segment{Start: prev, End: at},
				Reference:  sortedKeys(active[sideReference]),
				Hypothesis: sortedKeys(active[sideHypothesis]),
			})
		}
		for ; i < len(events) && events[i].at == at; i++ {
			e := events[i]
			active[e.side][e.label] += e.delta
			if active[e.side][e.label] == 0 {
				delete(active[e.side], e.label)
			}
		}
		prev = at
	}

	return slices
}

func sortedKeys(m map[string]int) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
