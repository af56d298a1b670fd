// Package google provides a Google Cloud Speech-to-Text transcriber with
// speaker diarization.
package google

import (
	"context"
	"fmt"
	"os"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/codebuildervaibhav/call-diarization/internal/transcription"
	"github.com/codebuildervaibhav/call-diarization/internal/types"
)

// Config controls the recognition request.
type Config struct {
	LanguageCode    string
	MinSpeakers     int
	MaxSpeakers     int
	CredentialsFile string
	TempDir         string
}

type recognizeFunc func(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error)

// Adapter implements transcription.Transcriber using Google Cloud Speech-to-Text.
type Adapter struct {
	client    *speech.Client
	recognize recognizeFunc
	normalize func(ctx context.Context, inputPath, tempDir string) (string, error)
	cfg       Config
	log       zerolog.Logger
}

// New creates a new Google STT adapter. Without a credentials file the
// GOOGLE_APPLICATION_CREDENTIALS environment variable is used.
func New(ctx context.Context, cfg Config, log zerolog.Logger) (*Adapter, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	c, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}

	a := &Adapter{
		client:    c,
		normalize: transcription.NormalizeAudio,
		cfg:       cfg,
		log:       log.With().Str("component", "google_stt").Logger(),
	}
	a.recognize = func(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error) {
		op, err := c.LongRunningRecognize(ctx, req)
		if err != nil {
			return nil, err
		}
		return op.Wait(ctx)
	}
	return a, nil
}

// Name implements transcription.Transcriber.
func (a *Adapter) Name() string {
	return "google"
}

// Close releases the underlying client.
func (a *Adapter) Close() error {
	if a.client != nil {
		return a.client.Close()
	}
	return nil
}

// Transcribe normalizes the audio, sends it for long running recognition and
// regroups the diarized words into speaker turns.
func (a *Adapter) Transcribe(ctx context.Context, audioPath string) (*types.Transcript, error) {
	normalized, err := a.normalize(ctx, audioPath, a.cfg.TempDir)
	if err != nil {
		return nil, err
	}
	defer os.Remove(normalized)

	content, err := os.ReadFile(normalized)
	if err != nil {
		return nil, fmt.Errorf("read normalized audio: %w", err)
	}

	a.log.Debug().
		Str("audio", audioPath).
		Int("bytes", len(content)).
		Msg("Sending recognition request")

	resp, err := a.recognize(ctx, a.request(content))
	if err != nil {
		return nil, fmt.Errorf("recognize %s: %w", audioPath, err)
	}

	tr := FromResponse(resp)
	if len(tr.Utterances) == 0 {
		return nil, fmt.Errorf("%w: %s", types.ErrEmptyTranscript, audioPath)
	}
	tr.AudioPath = audioPath
	tr.Language = a.cfg.LanguageCode
	return tr, nil
}

func (a *Adapter) request(content []byte) *speechpb.LongRunningRecognizeRequest {
	return &speechpb.LongRunningRecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:            16000,
			LanguageCode:               a.cfg.LanguageCode,
			EnableWordTimeOffsets:      true,
			EnableAutomaticPunctuation: true,
			DiarizationConfig: &speechpb.SpeakerDiarizationConfig{
				EnableSpeakerDiarization: true,
				MinSpeakerCount:          int32(a.cfg.MinSpeakers),
				MaxSpeakerCount:          int32(a.cfg.MaxSpeakers),
			},
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: content},
		},
	}
}

// FromResponse converts a diarized response into a transcript. The last
// result carries every word with its speaker tag; consecutive words of the
// same speaker form one utterance.
func FromResponse(resp *speechpb.LongRunningRecognizeResponse) *types.Transcript {
	tr := &types.Transcript{}
	results := resp.GetResults()
	if len(results) == 0 {
		return tr
	}
	alts := results[len(results)-1].GetAlternatives()
	if len(alts) == 0 {
		return tr
	}

	labels := make(map[int32]string)
	var current *types.Utterance
	for _, w := range alts[0].GetWords() {
		tag := w.GetSpeakerTag()
		label, ok := labels[tag]
		if !ok {
			label = SpeakerLabel(len(labels))
			labels[tag] = label
		}

		word := types.Word{
			Speaker: label,
			StartMs: w.GetStartTime().AsDuration().Milliseconds(),
			EndMs:   w.GetEndTime().AsDuration().Milliseconds(),
			Text:    w.GetWord(),
		}

		if current == nil || current.Speaker != label {
			tr.Utterances = append(tr.Utterances, types.Utterance{Speaker: label, StartMs: word.StartMs})
			current = &tr.Utterances[len(tr.Utterances)-1]
		}
		current.Words = append(current.Words, word)
		current.EndMs = word.EndMs
	}

	for i := range tr.Utterances {
		u := &tr.Utterances[i]
		parts := make([]string, len(u.Words))
		for j, w := range u.Words {
			parts[j] = w.Text
		}
		u.Text = strings.Join(parts, " ")
	}
	return tr
}

// SpeakerLabel names the n-th distinct speaker A, B, ..., Z, AA, AB, ...
func SpeakerLabel(n int) string {
	var b []byte
	for n >= 0 {
		b = append([]byte{byte('A' + n%26)}, b...)
		n = n/26 - 1
	}
	return string(b)
}
