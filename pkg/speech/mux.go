package speech

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
)

// Mux is a Service that dispatches each request to the provider named by
// its Voice.
type Mux struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

var _ Service = (*Mux)(nil)

// NewMux creates an empty Mux.
func NewMux() *Mux {
	return &Mux{providers: make(map[string]Provider)}
}

// Handle registers p under p.Name(), replacing any provider registered
// under the same name.
func (m *Mux) Handle(p Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.providers[p.Name()]; ok {
		slog.Warn("speech: provider already registered", "name", p.Name())
	}
	m.providers[p.Name()] = p
}

// Provider returns the provider registered under name.
func (m *Mux) Provider(name string) (Provider, error) {
	m.mu.RLock()
	p, ok := m.providers[name]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return p, nil
}

// Providers returns the names of all registered providers, sorted.
func (m *Mux) Providers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Synthesize implements Service.
func (m *Mux) Synthesize(ctx context.Context, req *Request) (*Audio, error) {
	p, err := m.Provider(req.Voice.Provider)
	if err != nil {
		return nil, err
	}
	return p.Synthesize(ctx, req)
}

// Validate checks that voice names a registered provider, that the provider
// offers the voice and that it can produce format.
func (m *Mux) Validate(ctx context.Context, voice Voice, format Format) error {
	p, err := m.Provider(voice.Provider)
	if err != nil {
		return err
	}
	return Validate(ctx, p, voice, format)
}

// Validate checks voice and format against a single provider.
func Validate(ctx context.Context, p Provider, voice Voice, format Format) error {
	if voice.Provider != p.Name() {
		return fmt.Errorf("%w: %s is not a %s voice", ErrUnknownVoice, voice, p.Name())
	}
	if !slices.Contains(p.Formats(), format) {
		return fmt.Errorf("%w: %s cannot produce %s", ErrUnsupportedFormat, p.Name(), format)
	}
	voices, err := p.Voices(ctx)
	if err != nil {
		return fmt.Errorf("speech: list %s voices: %w", p.Name(), err)
	}
	for _, v := range voices {
		if v.ID == voice.ID {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownVoice, voice)
}
