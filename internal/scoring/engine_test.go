package scoring

import (
	"math"
	"testing"

	"github.com/codebuildervaibhav/call-diarization/internal/annotation"
	"github.com/codebuildervaibhav/call-diarization/internal/types"
)

const eps = 1e-9

func track(start, end float64, label string) annotation.Track {
	return annotation.Track{Segment: annotation.Segment{Start: start, End: end}, Label: label}
}

func near(a, b float64) bool {
	return math.Abs(a-b) < eps
}

func TestScore_IdenticalAnnotations(t *testing.T) {
	ref := annotation.New("call1",
		track(0, 3, "A"),
		track(2, 6, "B"),
		track(7, 9, "A"),
	)

	got := Score(ref, ref, "hello there", "Hello, there!")
	if got.WER != 0 || got.DER != 0 || got.JER != 0 || got.DetectionErrorRate != 0 {
		t.Errorf("expected all zero metrics, got %+v", got)
	}
	if got.RecordingID != "call1" {
		t.Errorf("expected recording id call1, got %q", got.RecordingID)
	}
}

func TestScore_RelabeledHypothesisIsPerfect(t *testing.T) {
	ref := annotation.New("call1", track(0, 5, "A"), track(5, 10, "B"))
	hyp := annotation.New("call1", track(0, 5, "spk_1"), track(5, 10, "spk_0"))

	d := ScoreDetailed(ref, hyp, "", "")
	if d.Result.DER != 0 || d.Result.JER != 0 {
		t.Errorf("expected perfect diarization after mapping, got %+v", d.Result)
	}
	if d.Mapping["spk_1"] != "A" || d.Mapping["spk_0"] != "B" {
		t.Errorf("unexpected mapping: %v", d.Mapping)
	}
}

func TestScore_MergedSpeakers(t *testing.T) {
	ref := annotation.New("call1", track(0, 5, "A"), track(5, 10, "B"))
	hyp := annotation.New("call1", track(0, 5, "A"), track(5, 10, "A"))

	d := ScoreDetailed(ref, hyp, "", "")
	if !near(d.Result.DER, 0.5) {
		t.Errorf("expected DER 0.5, got %v", d.Result.DER)
	}
	if !near(d.Result.JER, 0.75) {
		t.Errorf("expected JER 0.75, got %v", d.Result.JER)
	}
	if d.Result.DetectionErrorRate != 0 {
		t.Errorf("expected detection 0, got %v", d.Result.DetectionErrorRate)
	}
	if !near(d.Diarization.Confusion, 5) || !near(d.Diarization.Total, 10) {
		t.Errorf("unexpected components: %+v", d.Diarization)
	}
}

func TestScore_EmptyHypothesis(t *testing.T) {
	ref := annotation.New("call1", track(0, 10, "A"))
	hyp, _ := annotation.Build(nil)

	got := Score(ref, hyp, "one two", "")
	if got.DetectionErrorRate != 1 || got.DER != 1 || got.JER != 1 {
		t.Errorf("expected 1.0 for every timing metric, got %+v", got)
	}
	if got.WER != 1 {
		t.Errorf("expected WER 1, got %v", got.WER)
	}
}

func TestScore_EmptyReference(t *testing.T) {
	tests := []struct {
		name string
		hyp  *annotation.Annotation
		want float64
	}{
		{"both empty", annotation.New("call1"), 0},
		{"hypothesis speaks", annotation.New("call1", track(0, 2, "x")), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(annotation.New("call1"), tt.hyp, "", "")
			if got.DER != tt.want || got.JER != tt.want || got.DetectionErrorRate != tt.want {
				t.Errorf("expected %v everywhere, got %+v", tt.want, got)
			}
			if math.IsNaN(got.DER) || math.IsNaN(got.JER) {
				t.Errorf("metrics must never be NaN: %+v", got)
			}
		})
	}
}

func TestScore_MissedAndFalseAlarm(t *testing.T) {
	ref := annotation.New("call1", track(0, 4, "A"))
	hyp := annotation.New("call1", track(2, 8, "x"))

	d := ScoreDetailed(ref, hyp, "", "")
	// missed [0,2), false alarm [4,8)
	if !near(d.Detection.Missed, 2) || !near(d.Detection.FalseAlarm, 4) {
		t.Errorf("unexpected detection components: %+v", d.Detection)
	}
	if !near(d.Result.DetectionErrorRate, 1.5) {
		t.Errorf("expected detection 1.5, got %v", d.Result.DetectionErrorRate)
	}
	if !near(d.Result.DER, 1.5) {
		t.Errorf("expected DER 1.5, got %v", d.Result.DER)
	}
	// intersection 2, union 8
	if !near(d.Result.JER, 0.75) {
		t.Errorf("expected JER 0.75, got %v", d.Result.JER)
	}
}

func TestScore_OverlappingReferenceSpeech(t *testing.T) {
	ref := annotation.New("call1", track(0, 4, "A"), track(2, 4, "B"))
	hyp := annotation.New("call1", track(0, 4, "x"))

	d := ScoreDetailed(ref, hyp, "", "")
	// total = 4 + 2, missed = 2 (B while only one hypothesis speaker)
	if !near(d.Diarization.Total, 6) || !near(d.Diarization.Missed, 2) {
		t.Errorf("unexpected components: %+v", d.Diarization)
	}
	if !near(d.Result.DER, 2.0/6.0) {
		t.Errorf("expected DER 1/3, got %v", d.Result.DER)
	}
	if d.Result.DetectionErrorRate != 0 {
		t.Errorf("expected detection 0, got %v", d.Result.DetectionErrorRate)
	}
}

func TestOptimalMapping_ManySpeakers(t *testing.T) {
	labels := []string{"a", "b", "c", "d", "e", "f"}
	hypLabels := []string{"f", "e", "d", "c", "b", "a"}

	var refTracks, hypTracks []annotation.Track
	for i := range labels {
		start := float64(i * 10)
		refTracks = append(refTracks, track(start, start+10, labels[i]))
		hypTracks = append(hypTracks, track(start, start+8, hypLabels[i]))
		// short cross-talk that a greedy mapping would be tempted by
		hypTracks = append(hypTracks, track(start+8, start+10, hypLabels[(i+1)%len(labels)]))
	}
	ref := annotation.New("call1", refTracks...)
	hyp := annotation.New("call1", hypTracks...)

	mapping := OptimalMapping(annotation.Sweep(ref, hyp))
	if len(mapping) != len(labels) {
		t.Fatalf("expected %d mapped labels, got %v", len(labels), mapping)
	}
	for i := range labels {
		if mapping[hypLabels[i]] != labels[i] {
			t.Errorf("expected %s -> %s, got %s", hypLabels[i], labels[i], mapping[hypLabels[i]])
		}
	}
}

func TestOptimalMapping_TiesAreLexicographic(t *testing.T) {
	tests := []struct {
		name string
		ref  []annotation.Track
		hyp  []annotation.Track
		want Mapping
	}{
		{
			name: "one hyp label over two refs",
			ref:  []annotation.Track{track(0, 5, "A"), track(5, 10, "B")},
			hyp:  []annotation.Track{track(0, 5, "A"), track(5, 10, "A")},
			want: Mapping{"A": "A"},
		},
		{
			name: "square with equal overlaps",
			ref:  []annotation.Track{track(0, 10, "B"), track(0, 10, "A")},
			hyp:  []annotation.Track{track(0, 10, "y"), track(0, 10, "x")},
			want: Mapping{"x": "A", "y": "B"},
		},
		{
			name: "three refs one hyp",
			ref:  []annotation.Track{track(0, 5, "C"), track(5, 10, "B"), track(10, 15, "A")},
			hyp:  []annotation.Track{track(0, 15, "x")},
			want: Mapping{"x": "A"},
		},
		{
			name: "three refs two full span hyps",
			ref:  []annotation.Track{track(0, 5, "A"), track(5, 10, "B"), track(10, 15, "C")},
			hyp:  []annotation.Track{track(0, 15, "y"), track(0, 15, "x")},
			want: Mapping{"x": "A", "y": "B"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref := annotation.New("call1", tt.ref...)
			hyp := annotation.New("call1", tt.hyp...)

			got := OptimalMapping(annotation.Sweep(ref, hyp))
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for h, r := range tt.want {
				if got[h] != r {
					t.Errorf("expected %s -> %s, got %v", h, r, got)
				}
			}
		})
	}
}

func TestOptimalMapping_NoOverlapLeavesUnmapped(t *testing.T) {
	ref := annotation.New("call1", track(0, 5, "A"))
	hyp := annotation.New("call1", track(5, 10, "x"))

	if mapping := OptimalMapping(annotation.Sweep(ref, hyp)); len(mapping) != 0 {
		t.Errorf("expected empty mapping, got %v", mapping)
	}
}

func TestOptimalMapping_MoreHypothesisSpeakers(t *testing.T) {
	ref := annotation.New("call1", track(0, 10, "A"))
	hyp := annotation.New("call1", track(0, 3, "x"), track(3, 10, "y"))

	mapping := OptimalMapping(annotation.Sweep(ref, hyp))
	if len(mapping) != 1 || mapping["y"] != "A" {
		t.Errorf("expected only y -> A, got %v", mapping)
	}
}

func TestAggregate(t *testing.T) {
	results := []types.MetricResult{
		{RecordingID: "a", WER: 0.1, DER: 0, JER: 1, DetectionErrorRate: 0.5},
		{RecordingID: "b", WER: 0.2, DER: 0, JER: 0, DetectionErrorRate: 0.5},
		{RecordingID: "c", WER: 0.3, DER: 0.3, JER: 0.5, DetectionErrorRate: 0.5},
	}

	got := Aggregate(results)
	if got.Recordings != 3 {
		t.Errorf("expected 3 recordings, got %d", got.Recordings)
	}
	if got.AverageWER != 0.2 {
		t.Errorf("expected average WER exactly 0.2, got %v", got.AverageWER)
	}
	if !near(got.AverageDER, 0.1) || got.AverageJER != 0.5 || got.AverageDetectionErrorRate != 0.5 {
		t.Errorf("unexpected summary: %+v", got)
	}
}

func TestAggregate_Empty(t *testing.T) {
	got := Aggregate(nil)
	if got.Recordings != 0 {
		t.Errorf("expected 0 recordings, got %d", got.Recordings)
	}
	if !math.IsNaN(got.AverageWER) || !math.IsNaN(got.AverageDER) ||
		!math.IsNaN(got.AverageJER) || !math.IsNaN(got.AverageDetectionErrorRate) {
		t.Errorf("expected NaN averages, got %+v", got)
	}
}

func TestMean_NonFinite(t *testing.T) {
	if !math.IsNaN(Mean([]float64{1, math.NaN()})) {
		t.Error("expected NaN mean when an input is NaN")
	}
}
