package minimax

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// Speech models.
const (
	ModelSpeech26HD    = "speech-2.6-hd"
	ModelSpeech26Turbo = "speech-2.6-turbo"
	ModelSpeech02HD    = "speech-02-hd"
	ModelSpeech02Turbo = "speech-02-turbo"
)

// MaxTextLength is the most characters t2a_v2 accepts in one request.
const MaxTextLength = 10000

var (
	// ErrEmptyAudio is returned when a synthesis call succeeds without
	// audio.
	ErrEmptyAudio = errors.New("minimax: response carried no audio")

	// ErrTextTooLong is returned for requests over MaxTextLength
	// characters. They are rejected before anything is sent.
	ErrTextTooLong = errors.New("minimax: text too long")
)

// AudioFormat is the encoding of the returned audio.
type AudioFormat string

const (
	AudioFormatMP3  AudioFormat = "mp3"
	AudioFormatPCM  AudioFormat = "pcm"
	AudioFormatFLAC AudioFormat = "flac"
	AudioFormatWAV  AudioFormat = "wav"
)

// SpeechRequest is a t2a_v2 synthesis request.
type SpeechRequest struct {
	Model         string        `json:"model"`
	Text          string        `json:"text"`
	VoiceSetting  *VoiceSetting `json:"voice_setting,omitempty"`
	AudioSetting  *AudioSetting `json:"audio_setting,omitempty"`
	LanguageBoost string        `json:"language_boost,omitempty"`
}

// VoiceSetting selects and shapes the voice.
type VoiceSetting struct {
	VoiceID string `json:"voice_id"`
	// Speed is 0.5 to 2.0, default 1.0.
	Speed float64 `json:"speed,omitempty"`
	// Vol is 0 to 10, default 1.0.
	Vol float64 `json:"vol,omitempty"`
	// Pitch is -12 to 12, default 0.
	Pitch int `json:"pitch,omitempty"`
}

// AudioSetting describes the audio to return.
type AudioSetting struct {
	SampleRate int         `json:"sample_rate,omitempty"`
	Bitrate    int         `json:"bitrate,omitempty"`
	Format     AudioFormat `json:"format,omitempty"`
	Channel    int         `json:"channel,omitempty"`
}

// SpeechResponse holds the decoded audio of a synthesis call.
type SpeechResponse struct {
	Audio   []byte
	Info    *AudioInfo
	TraceID string
}

// AudioInfo is the metadata MiniMax reports for generated audio.
type AudioInfo struct {
	// AudioLength is the duration in milliseconds.
	AudioLength     int    `json:"audio_length"`
	AudioSampleRate int    `json:"audio_sample_rate"`
	AudioSize       int    `json:"audio_size"`
	Bitrate         int    `json:"bitrate"`
	AudioFormat     string `json:"audio_format"`
	AudioChannel    int    `json:"audio_channel"`
	UsageCharacters int    `json:"usage_characters"`
}

// t2aRequest asks for the whole clip as hex in one response.
type t2aRequest struct {
	*SpeechRequest
	Stream       bool   `json:"stream"`
	OutputFormat string `json:"output_format"`
}

type t2aResponse struct {
	Data struct {
		Audio  string `json:"audio"`
		Status int    `json:"status"`
	} `json:"data"`
	ExtraInfo *AudioInfo `json:"extra_info"`
	TraceID   string     `json:"trace_id"`
}

// Synthesize converts req.Text into audio in one request.
func (c *Client) Synthesize(ctx context.Context, req *SpeechRequest) (*SpeechResponse, error) {
	if n := utf8.RuneCountInString(req.Text); n > MaxTextLength {
		return nil, fmt.Errorf("%w: %d characters", ErrTextTooLong, n)
	}

	var resp t2aResponse
	if err := c.post(ctx, "/v1/t2a_v2", t2aRequest{SpeechRequest: req, OutputFormat: "hex"}, &resp); err != nil {
		return nil, err
	}
	if resp.Data.Audio == "" {
		return nil, ErrEmptyAudio
	}
	audio, err := hex.DecodeString(strings.Join(strings.Fields(resp.Data.Audio), ""))
	if err != nil {
		return nil, fmt.Errorf("minimax: decode audio: %w", err)
	}

	slog.Debug("minimax: speech synthesized", "model", req.Model, "chars", utf8.RuneCountInString(req.Text), "bytes", len(audio), "trace", resp.TraceID)
	return &SpeechResponse{Audio: audio, Info: resp.ExtraInfo, TraceID: resp.TraceID}, nil
}
