package google

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/rs/zerolog"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/codebuildervaibhav/call-diarization/internal/types"
)

func word(text string, tag int32, startMs, endMs int) *speechpb.WordInfo {
	return &speechpb.WordInfo{
		Word:       text,
		SpeakerTag: tag,
		StartTime:  durationpb.New(time.Duration(startMs) * time.Millisecond),
		EndTime:    durationpb.New(time.Duration(endMs) * time.Millisecond),
	}
}

func response(words ...*speechpb.WordInfo) *speechpb.LongRunningRecognizeResponse {
	return &speechpb.LongRunningRecognizeResponse{
		Results: []*speechpb.SpeechRecognitionResult{
			{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "partial"}}},
			{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Words: words}}},
		},
	}
}

func TestSpeakerLabel(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "A"},
		{1, "B"},
		{25, "Z"},
		{26, "AA"},
		{27, "AB"},
	}
	for _, tt := range tests {
		if got := SpeakerLabel(tt.n); got != tt.want {
			t.Errorf("SpeakerLabel(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestFromResponse_GroupsBySpeaker(t *testing.T) {
	resp := response(
		word("hello", 2, 0, 400),
		word("there", 2, 450, 900),
		word("hi", 1, 1000, 1200),
		word("again", 2, 1300, 1800),
	)

	tr := FromResponse(resp)
	if len(tr.Utterances) != 3 {
		t.Fatalf("expected 3 utterances, got %d", len(tr.Utterances))
	}

	first := tr.Utterances[0]
	if first.Speaker != "A" || first.StartMs != 0 || first.EndMs != 900 || first.Text != "hello there" {
		t.Errorf("unexpected first utterance %+v", first)
	}
	if len(first.Words) != 2 || first.Words[1].Speaker != "A" {
		t.Errorf("unexpected first words %+v", first.Words)
	}
	if tr.Utterances[1].Speaker != "B" || tr.Utterances[1].Text != "hi" {
		t.Errorf("unexpected second utterance %+v", tr.Utterances[1])
	}
	if tr.Utterances[2].Speaker != "A" || tr.Utterances[2].StartMs != 1300 {
		t.Errorf("unexpected third utterance %+v", tr.Utterances[2])
	}
}

func TestFromResponse_Empty(t *testing.T) {
	if tr := FromResponse(nil); len(tr.Utterances) != 0 {
		t.Errorf("expected no utterances for nil response")
	}
	empty := &speechpb.LongRunningRecognizeResponse{
		Results: []*speechpb.SpeechRecognitionResult{{}},
	}
	if tr := FromResponse(empty); len(tr.Utterances) != 0 {
		t.Errorf("expected no utterances without alternatives")
	}
}

func testAdapter(t *testing.T, recognize recognizeFunc) *Adapter {
	t.Helper()
	dir := t.TempDir()
	return &Adapter{
		recognize: recognize,
		normalize: func(_ context.Context, _, tempDir string) (string, error) {
			path := filepath.Join(tempDir, "normalized.wav")
			return path, os.WriteFile(path, []byte("RIFF"), 0644)
		},
		cfg: Config{LanguageCode: "en-US", MinSpeakers: 2, MaxSpeakers: 3, TempDir: dir},
		log: zerolog.Nop(),
	}
}

func TestAdapter_Transcribe(t *testing.T) {
	var got *speechpb.LongRunningRecognizeRequest
	a := testAdapter(t, func(_ context.Context, req *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error) {
		got = req
		return response(word("hello", 1, 0, 500)), nil
	})

	tr, err := a.Transcribe(context.Background(), "/audio/call_1.wav")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if tr.AudioPath != "/audio/call_1.wav" || tr.Language != "en-US" || len(tr.Utterances) != 1 {
		t.Errorf("unexpected transcript %+v", tr)
	}

	cfg := got.GetConfig()
	if cfg.GetSampleRateHertz() != 16000 || cfg.GetEncoding() != speechpb.RecognitionConfig_LINEAR16 {
		t.Errorf("unexpected audio config %+v", cfg)
	}
	d := cfg.GetDiarizationConfig()
	if !d.GetEnableSpeakerDiarization() || d.GetMinSpeakerCount() != 2 || d.GetMaxSpeakerCount() != 3 {
		t.Errorf("unexpected diarization config %+v", d)
	}
	if string(got.GetAudio().GetContent()) != "RIFF" {
		t.Errorf("expected normalized audio content")
	}

	if _, err := os.Stat(filepath.Join(a.cfg.TempDir, "normalized.wav")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected normalized file removed, got %v", err)
	}
}

func TestAdapter_TranscribeErrors(t *testing.T) {
	boom := errors.New("quota exceeded")
	a := testAdapter(t, func(context.Context, *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error) {
		return nil, boom
	})
	if _, err := a.Transcribe(context.Background(), "call.wav"); !errors.Is(err, boom) {
		t.Errorf("expected recognize error, got %v", err)
	}

	a = testAdapter(t, func(context.Context, *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error) {
		return response(), nil
	})
	if _, err := a.Transcribe(context.Background(), "call.wav"); !errors.Is(err, types.ErrEmptyTranscript) {
		t.Errorf("expected ErrEmptyTranscript, got %v", err)
	}
	if a.Name() != "google" || a.Close() != nil {
		t.Error("unexpected name or close error")
	}
}
