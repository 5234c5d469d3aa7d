package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/haivivi/audiobook/pkg/audio/codec/wav"
	"github.com/haivivi/audiobook/pkg/audio/pcm"
	"github.com/haivivi/audiobook/pkg/minimax"
)

// minimaxPCM is the PCM format requested from MiniMax for WAV output.
const minimaxPCM = pcm.L16Mono24K

// MiniMax synthesizes speech with the MiniMax t2a_v2 API.
type MiniMax struct {
	client *minimax.Client
	model  string
}

var _ Provider = (*MiniMax)(nil)

// NewMiniMax creates a MiniMax provider. An empty model selects
// speech-2.6-hd.
func NewMiniMax(client *minimax.Client, model string) *MiniMax {
	if model == "" {
		model = minimax.ModelSpeech26HD
	}
	return &MiniMax{client: client, model: model}
}

// Name implements Provider.
func (m *MiniMax) Name() string { return "minimax" }

// Formats implements Provider.
func (m *MiniMax) Formats() []Format { return []Format{FormatMP3, FormatWAV} }

// Voices implements Provider by listing the account's voices.
func (m *MiniMax) Voices(ctx context.Context) ([]VoiceInfo, error) {
	all, err := m.client.Voices(ctx, minimax.VoiceTypeAll)
	if err != nil {
		return nil, minimaxError(err)
	}
	voices := make([]VoiceInfo, 0, len(all))
	for _, v := range all {
		voices = append(voices, VoiceInfo{ID: v.ID, Name: v.Name})
	}
	return voices, nil
}

// Synthesize implements Service.
func (m *MiniMax) Synthesize(ctx context.Context, req *Request) (*Audio, error) {
	setting := &minimax.AudioSetting{Channel: 1}
	switch req.Format {
	case FormatMP3:
		setting.Format = minimax.AudioFormatMP3
		setting.SampleRate = 32000
		setting.Bitrate = 128000
	case FormatWAV:
		setting.Format = minimax.AudioFormatPCM
		setting.SampleRate = minimaxPCM.SampleRate()
	default:
		return nil, fmt.Errorf("%w: minimax cannot produce %s", ErrUnsupportedFormat, req.Format)
	}

	resp, err := m.client.Synthesize(ctx, &minimax.SpeechRequest{
		Model:        m.model,
		Text:         req.Text,
		VoiceSetting: &minimax.VoiceSetting{VoiceID: req.Voice.ID},
		AudioSetting: setting,
	})
	if err != nil {
		return nil, minimaxError(err)
	}

	data := resp.Audio
	if req.Format == FormatWAV {
		var buf bytes.Buffer
		if err := wav.Encode(&buf, minimaxPCM, data); err != nil {
			return nil, err
		}
		data = buf.Bytes()
	}
	return &Audio{Data: data, Format: req.Format}, nil
}

func minimaxError(err error) error {
	e := &Error{Provider: "minimax", Err: err}
	if apiErr, ok := minimax.AsError(err); ok {
		e.Status = apiErr.HTTPStatus
		e.Code = strconv.Itoa(apiErr.Code)
		e.Message = apiErr.Message
	}
	if errors.Is(err, minimax.ErrEmptyAudio) {
		e.Err = fmt.Errorf("%w: %w", ErrEmptyAudio, err)
	}
	return e
}
