package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/haivivi/audiobook/pkg/audio/codec/wav"
	"github.com/haivivi/audiobook/pkg/audio/pcm"
)

// DefaultGeminiModel is the Gemini model used when none is configured.
const DefaultGeminiModel = "gemini-2.5-flash-preview-tts"

// geminiPCM is the format of Gemini's inline audio.
const geminiPCM = pcm.L16Mono24K

// geminiVoices are Gemini's prebuilt speech voices.
var geminiVoices = []string{
	"Achernar", "Achird", "Algenib", "Algieba", "Alnilam", "Aoede",
	"Autonoe", "Callirrhoe", "Charon", "Despina", "Enceladus", "Erinome",
	"Fenrir", "Gacrux", "Iapetus", "Kore", "Laomedeia", "Leda", "Orus",
	"Puck", "Pulcherrima", "Rasalgethi", "Sadachbia", "Sadaltager",
	"Schedar", "Sulafat", "Umbriel", "Vindemiatrix", "Zephyr", "Zubenelgenubi",
}

// Gemini synthesizes speech with a Gemini text-to-speech model. Gemini only
// returns PCM, so it produces WAV.
type Gemini struct {
	client *genai.Client
	model  string
}

var _ Provider = (*Gemini)(nil)

// NewGemini creates a Gemini provider. An empty model selects
// DefaultGeminiModel.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{client: client, model: model}, nil
}

// Name implements Provider.
func (g *Gemini) Name() string { return "gemini" }

// Formats implements Provider.
func (g *Gemini) Formats() []Format { return []Format{FormatWAV} }

// Voices implements Provider.
func (g *Gemini) Voices(context.Context) ([]VoiceInfo, error) {
	voices := make([]VoiceInfo, 0, len(geminiVoices))
	for _, v := range geminiVoices {
		voices = append(voices, VoiceInfo{ID: v, Name: v})
	}
	return voices, nil
}

// Synthesize implements Service.
func (g *Gemini) Synthesize(ctx context.Context, req *Request) (*Audio, error) {
	if req.Format != FormatWAV {
		return nil, fmt.Errorf("%w: gemini cannot produce %s", ErrUnsupportedFormat, req.Format)
	}

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: req.Voice.ID},
			},
		},
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Text), config)
	if err != nil {
		return nil, geminiError(err)
	}

	var data bytes.Buffer
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, p := range resp.Candidates[0].Content.Parts {
			if p.InlineData != nil {
				data.Write(p.InlineData.Data)
			}
		}
	}
	if data.Len() == 0 {
		return nil, &Error{Provider: g.Name(), Err: ErrEmptyAudio}
	}

	var buf bytes.Buffer
	if err := wav.Encode(&buf, geminiPCM, data.Bytes()); err != nil {
		return nil, err
	}
	return &Audio{Data: buf.Bytes(), Format: FormatWAV}, nil
}

func geminiError(err error) error {
	e := &Error{Provider: "gemini", Err: err}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		e.Status = apiErr.Code
		e.Code = apiErr.Status
		e.Message = apiErr.Message
	}
	return e
}
