package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/haivivi/audiobook/pkg/audio/codec/wav"
	"github.com/haivivi/audiobook/pkg/audio/pcm"
)

// openaiPCM is the format of OpenAI's raw "pcm" response.
const openaiPCM = pcm.L16Mono24K

// openaiVoices are the built-in OpenAI speech voices.
var openaiVoices = []string{
	"alloy", "ash", "ballad", "coral", "echo", "fable",
	"nova", "onyx", "sage", "shimmer", "verse",
}

// OpenAI synthesizes speech with the OpenAI audio speech API.
type OpenAI struct {
	client openai.Client
	model  string
}

var _ Provider = (*OpenAI)(nil)

// NewOpenAI creates an OpenAI provider. An empty model selects
// gpt-4o-mini-tts.
func NewOpenAI(apiKey, baseURL, model string) *OpenAI {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// Retries are applied by WithRetry.
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = string(openai.SpeechModelGPT4oMiniTTS)
	}
	return &OpenAI{client: openai.NewClient(opts...), model: model}
}

// Name implements Provider.
func (o *OpenAI) Name() string { return "openai" }

// Formats implements Provider.
func (o *OpenAI) Formats() []Format { return []Format{FormatMP3, FormatWAV} }

// Voices implements Provider.
func (o *OpenAI) Voices(context.Context) ([]VoiceInfo, error) {
	voices := make([]VoiceInfo, 0, len(openaiVoices))
	for _, v := range openaiVoices {
		voices = append(voices, VoiceInfo{ID: v, Name: v})
	}
	return voices, nil
}

// Synthesize implements Service.
func (o *OpenAI) Synthesize(ctx context.Context, req *Request) (*Audio, error) {
	params := openai.AudioSpeechNewParams{
		Input: req.Text,
		Model: openai.SpeechModel(o.model),
		Voice: openai.AudioSpeechNewParamsVoice(req.Voice.ID),
	}
	switch req.Format {
	case FormatMP3:
		params.ResponseFormat = openai.AudioSpeechNewParamsResponseFormatMP3
	case FormatWAV:
		params.ResponseFormat = openai.AudioSpeechNewParamsResponseFormatPCM
	default:
		return nil, fmt.Errorf("%w: openai cannot produce %s", ErrUnsupportedFormat, req.Format)
	}

	resp, err := o.client.Audio.Speech.New(ctx, params)
	if err != nil {
		return nil, openaiError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Provider: o.Name(), Message: "read audio", Err: err}
	}
	if len(data) == 0 {
		return nil, &Error{Provider: o.Name(), Status: resp.StatusCode, Err: ErrEmptyAudio}
	}

	if req.Format == FormatWAV {
		var buf bytes.Buffer
		if err := wav.Encode(&buf, openaiPCM, data); err != nil {
			return nil, err
		}
		data = buf.Bytes()
	}
	return &Audio{Data: data, Format: req.Format}, nil
}

func openaiError(err error) error {
	e := &Error{Provider: "openai", Err: err}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		e.Status = apiErr.StatusCode
		e.Code = apiErr.Code
		e.Message = apiErr.Message
	}
	return e
}
