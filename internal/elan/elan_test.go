package elan

import (
	"bytes"
	"encoding/xml"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/codebuildervaibhav/call-diarization/internal/types"
)

func record(id, label string, start, end float64, text string) types.TranscriptRecord {
	return types.TranscriptRecord{RecordingID: id, SpeakerLabel: label, StartSec: start, EndSec: end, Text: text}
}

func testAssembler(buf *bytes.Buffer) *Assembler {
	as := NewAssembler(zerolog.New(buf))
	as.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return as
}

func TestTierName(t *testing.T) {
	tests := []struct {
		label string
		g     Granularity
		want  string
	}{
		{"A", Sentence, "A"},
		{"A", Word, "A_word_level"},
		{"A", Human, "A"},
		{"caller", Word, "caller_word_level"},
	}
	for _, tt := range tests {
		if got := TierName(tt.label, tt.g); got != tt.want {
			t.Errorf("TierName(%q, %s) = %q, want %q", tt.label, tt.g, got, tt.want)
		}
	}
}

func TestToMilliseconds(t *testing.T) {
	tests := []struct {
		sec  float64
		want int64
	}{
		{0, 0},
		{1.5, 1500},
		{2.0009, 2000},
		{0.0049, 4},
		{12.3456, 12345},
	}
	for _, tt := range tests {
		if got := ToMilliseconds(tt.sec); got != tt.want {
			t.Errorf("ToMilliseconds(%v) = %d, want %d", tt.sec, got, tt.want)
		}
	}
}

func TestMimeType(t *testing.T) {
	tests := map[string]string{
		"a.wav":     "audio/wav",
		"b.MP3":     "audio/mpeg",
		"c.flac":    "audio/flac",
		"d.unknown": "audio/wav",
	}
	for path, want := range tests {
		if got := MimeType(path); got != want {
			t.Errorf("MimeType(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestArtifact_IdempotentTier(t *testing.T) {
	a := NewArtifact("call1")
	a.AddAnnotation("A", 0, 1000, "hello")
	a.AddAnnotation("A", 2000, 3000, "again")

	if names := a.TierNames(); !reflect.DeepEqual(names, []string{"A"}) {
		t.Fatalf("expected one tier, got %v", names)
	}
	tier, _ := a.Tier("A")
	if len(tier.Annotations) != 2 {
		t.Errorf("expected two annotations, got %d", len(tier.Annotations))
	}
}

func TestAssemble_SourceOrderAndTiers(t *testing.T) {
	var logs bytes.Buffer
	as := testAssembler(&logs)

	sentences := []types.TranscriptRecord{
		record("call1", "B", 5, 6.5, "second"),
		record("call1", "A", 0, 1.2345, "first"),
		record("call2", "A", 0, 1, "other call"),
	}
	words := []types.TranscriptRecord{
		record("call1", "A", 0, 0.5, "fir"),
		record("call1", "A", 0.5, 1.2, ""),
	}
	human := []types.TranscriptRecord{
		record("call1", "A", 0, 1.3, "first!"),
		record("call1", "C", 7, 8, ""),
	}

	// deliberately passed out of order
	a := as.Assemble("call1", "/audio/call1.wav",
		Source{Granularity: Human, Records: human},
		Source{Granularity: Word, Records: words},
		Source{Granularity: Sentence, Records: sentences},
	)

	wantTiers := []string{"B", "A", "A_word_level", "C"}
	if got := a.TierNames(); !reflect.DeepEqual(got, wantTiers) {
		t.Fatalf("tier order = %v, want %v", got, wantTiers)
	}

	tierA, _ := a.Tier("A")
	var values []string
	for _, ann := range tierA.Annotations {
		values = append(values, ann.Value)
	}
	if !reflect.DeepEqual(values, []string{"first", "first!"}) {
		t.Errorf("tier A values = %v", values)
	}
	if tierA.Annotations[0].StartMs != 0 || tierA.Annotations[0].EndMs != 1234 {
		t.Errorf("unexpected times: %+v", tierA.Annotations[0])
	}

	words1, _ := a.Tier("A_word_level")
	if len(words1.Annotations) != 1 {
		t.Errorf("expected empty word row to be skipped, got %d annotations", len(words1.Annotations))
	}
	tierC, _ := a.Tier("C")
	if len(tierC.Annotations) != 1 || tierC.Annotations[0].Value != "" {
		t.Errorf("expected empty human row to be kept, got %+v", tierC.Annotations)
	}

	if a.Media == nil || a.Media.Path != "/audio/call1.wav" || a.Media.MimeType != "audio/wav" {
		t.Errorf("unexpected media link: %+v", a.Media)
	}
	if strings.Contains(logs.String(), `"level":"warn"`) {
		t.Errorf("expected no warnings, got %s", logs.String())
	}
}

func TestAssemble_InputOrderNotResorted(t *testing.T) {
	as := testAssembler(&bytes.Buffer{})
	a := as.Assemble("call1", "", Source{Granularity: Sentence, Records: []types.TranscriptRecord{
		record("call1", "A", 9, 10, "late"),
		record("call1", "A", 0, 1, "early"),
	}})

	tier, _ := a.Tier("A")
	if tier.Annotations[0].Value != "late" || tier.Annotations[1].Value != "early" {
		t.Errorf("expected input order, got %+v", tier.Annotations)
	}
	if a.Media != nil {
		t.Errorf("expected no media link, got %+v", a.Media)
	}
}

func TestAssemble_EmptySourceWarns(t *testing.T) {
	var logs bytes.Buffer
	as := testAssembler(&logs)

	a := as.Assemble("call9", "call9.mp3",
		Source{Granularity: Sentence, Records: []types.TranscriptRecord{record("call1", "A", 0, 1, "x")}},
	)

	if a.Len() != 0 || len(a.TierNames()) != 0 {
		t.Errorf("expected empty artifact, got %v", a.TierNames())
	}
	if !strings.Contains(logs.String(), `"source":"sentence"`) || !strings.Contains(logs.String(), `"level":"warn"`) {
		t.Errorf("expected warning for empty sentence source, got %s", logs.String())
	}
}

func TestAssemble_NoSources(t *testing.T) {
	a := testAssembler(&bytes.Buffer{}).Assemble("call1", "call1.flac")
	if a.Len() != 0 || a.Media.MimeType != "audio/flac" {
		t.Errorf("expected empty artifact with flac media, got %+v", a)
	}
}

func TestEncode(t *testing.T) {
	as := testAssembler(&bytes.Buffer{})
	dir := t.TempDir()
	audio := filepath.Join(dir, "audio", "call1.wav")

	a := as.Assemble("call1", audio,
		Source{Granularity: Sentence, Records: []types.TranscriptRecord{
			record("call1", "A", 0, 1.5, "hi & bye"),
			record("call1", "B", 2, 3, "yes"),
		}},
		Source{Granularity: Human, Records: []types.TranscriptRecord{
			record("call1", "A", 0.25, 1.5, "hi"),
		}},
	)

	var buf bytes.Buffer
	if err := a.Encode(&buf, filepath.Join(dir, "elan")); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`FORMAT="3.0"`,
		`DATE="2024-05-01T12:00:00Z"`,
		`xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"`,
		`TIME_UNITS="milliseconds"`,
		`MIME_TYPE="audio/wav"`,
		`RELATIVE_MEDIA_URL="../audio/call1.wav"`,
		`<PROPERTY NAME="lastUsedAnnotationId">3</PROPERTY>`,
		`hi &amp; bye`,
		`LINGUISTIC_TYPE_ID="default-lt"`,
		`STEREOTYPE="Included_In"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s\n%s", want, out)
		}
	}

	var doc eafDocument
	if err := xml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not valid xml: %v", err)
	}
	if !strings.HasPrefix(doc.Header.Media[0].MediaURL, "file:///") {
		t.Errorf("unexpected media url %q", doc.Header.Media[0].MediaURL)
	}

	if len(doc.Tiers) != 2 || doc.Tiers[0].ID != "A" || doc.Tiers[1].ID != "B" {
		t.Fatalf("unexpected tiers: %+v", doc.Tiers)
	}
	if len(doc.Tiers[0].Annotations) != 2 {
		t.Fatalf("expected 2 annotations on A, got %d", len(doc.Tiers[0].Annotations))
	}
	human := doc.Tiers[0].Annotations[1].Alignable
	if human.ID != "a3" || human.Ref1 != "ts5" || human.Ref2 != "ts6" {
		t.Errorf("unexpected ids for human annotation: %+v", human)
	}

	slots := doc.TimeOrder.Slots
	wantSlots := []eafTimeSlot{
		{"ts1", 0}, {"ts2", 1500},
		{"ts3", 2000}, {"ts4", 3000},
		{"ts5", 250}, {"ts6", 1500},
	}
	if !reflect.DeepEqual(slots, wantSlots) {
		t.Errorf("time slots = %+v, want %+v", slots, wantSlots)
	}
}
