// Package speech turns text into encoded audio through remote text-to-speech
// providers.
//
// A Service synthesizes one request into one self-contained audio payload.
// Providers (Amazon Polly, MiniMax, OpenAI, Gemini) implement Provider; a
// Mux dispatches requests by the provider named in the request's Voice and
// validates voices before a conversion starts. Retry and pacing are layered
// on top of any Service with WithRetry and WithRateLimit.
package speech

import (
	"context"
	"fmt"
	"strings"
)

// Format is the container of synthesized audio.
type Format string

const (
	// FormatMP3 is MPEG-1/2 Layer III audio.
	FormatMP3 Format = "mp3"

	// FormatWAV is RIFF/WAVE holding 16-bit mono PCM.
	FormatWAV Format = "wav"
)

// ParseFormat parses a format name. Case and a leading dot are ignored.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimPrefix(s, "."))); f {
	case FormatMP3, FormatWAV:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Ext returns the file extension for f, including the leading dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatMP3:
		return "audio/mpeg"
	case FormatWAV:
		return "audio/wav"
	}
	return "application/octet-stream"
}

// Voice names a voice of a provider.
type Voice struct {
	Provider string
	ID       string
}

// ParseVoice parses "provider/voice", e.g. "polly/Joanna".
func ParseVoice(s string) (Voice, error) {
	provider, id, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || provider == "" || id == "" {
		return Voice{}, fmt.Errorf("%w: %q, want provider/voice", ErrInvalidVoice, s)
	}
	return Voice{Provider: strings.ToLower(provider), ID: id}, nil
}

// String returns v in the form accepted by ParseVoice.
func (v Voice) String() string {
	return v.Provider + "/" + v.ID
}

// Request is one synthesis request.
type Request struct {
	Text   string
	Voice  Voice
	Format Format
}

// Audio is the synthesized audio of one request.
type Audio struct {
	Data   []byte
	Format Format
}

// Service synthesizes text into audio.
//
// Each call is one logical request to the underlying provider; the returned
// Data is a complete, independently playable file in the requested Format.
type Service interface {
	Synthesize(ctx context.Context, req *Request) (*Audio, error)
}

// ServiceFunc is a function that implements the Service interface.
type ServiceFunc func(ctx context.Context, req *Request) (*Audio, error)

// Synthesize implements the Service interface.
func (f ServiceFunc) Synthesize(ctx context.Context, req *Request) (*Audio, error) {
	return f(ctx, req)
}

// VoiceInfo describes one voice offered by a provider.
type VoiceInfo struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Language string `json:"language,omitempty" yaml:"language,omitempty"`
	Gender   string `json:"gender,omitempty" yaml:"gender,omitempty"`
}

// Provider is a Service backed by one text-to-speech vendor.
type Provider interface {
	Service

	// Name returns the provider name used in Voice.Provider.
	Name() string

	// Formats returns the formats the provider can produce.
	Formats() []Format

	// Voices returns the voices the provider accepts.
	Voices(ctx context.Context) ([]VoiceInfo, error)
}
