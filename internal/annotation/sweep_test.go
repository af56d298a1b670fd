package annotation

import (
	"reflect"
	"testing"
)

func TestSweep_Slices(t *testing.T) {
	ref := New("call1",
		Track{Segment: Segment{0, 5}, Label: "A"},
		Track{Segment: Segment{5, 10}, Label: "B"},
	)
	hyp := New("call1",
		Track{Segment: Segment{0, 6}, Label: "x"},
		Track{Segment: Segment{4, 10}, Label: "y"},
	)

	got := Sweep(ref, hyp)
	want := []Slice{
		{Segment: Segment{0, 4}, Reference: []string{"A"}, Hypothesis: []string{"x"}},
		{Segment: Segment{4, 5}, Reference: []string{"A"}, Hypothesis: []string{"x", "y"}},
		{Segment: Segment{5, 6}, Reference: []string{"B"}, Hypothesis: []string{"x", "y"}},
		{Segment: Segment{6, 10}, Reference: []string{"B"}, Hypothesis: []string{"y"}},
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("unexpected slices:\n got %+v\nwant %+v", got, want)
	}
}

func TestSweep_GapsAreOmitted(t *testing.T) {
	ref := New("call1",
		Track{Segment: Segment{0, 1}, Label: "A"},
		Track{Segment: Segment{3, 4}, Label: "A"},
	)

	got := Sweep(ref, nil)
	if len(got) != 2 {
		t.Fatalf("expected 2 slices, got %d: %+v", len(got), got)
	}
	if got[1].Start != 3 || got[1].End != 4 || got[1].Hypothesis != nil {
		t.Errorf("unexpected second slice: %+v", got[1])
	}
}

func TestSweep_SameLabelOverlapCountsOnce(t *testing.T) {
	ref := New("call1",
		Track{Segment: Segment{0, 4}, Label: "A"},
		Track{Segment: Segment{2, 6}, Label: "A"},
	)

	got := Sweep(ref, nil)
	total := 0.0
	for _, s := range got {
		if len(s.Reference) != 1 {
			t.Errorf("expected one active label, got %v", s.Reference)
		}
		total += s.Duration()
	}
	if total != 6 {
		t.Errorf("expected 6s of speech, got %v", total)
	}
}

func TestSweep_ZeroLengthIgnored(t *testing.T) {
	ref := New("call1", Track{Segment: Segment{2, 2}, Label: "A"})
	if got := Sweep(ref, ref); len(got) != 0 {
		t.Errorf("expected no slices, got %+v", got)
	}
}
