package audiobook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/haivivi/audiobook/pkg/speech"
	"github.com/haivivi/audiobook/pkg/storage"
)

// DefaultTimeout bounds one speech service call, retries included.
const DefaultTimeout = 60 * time.Second

// Artifact is the audio of one segment, stored as its own file.
type Artifact struct {
	Index  int
	Path   string
	Size   int64
	Format speech.Format
}

// ArtifactPath returns the file name of segment index for a final file
// whose path without extension is base, e.g. "book_0003.mp3".
func ArtifactPath(base string, index int, format speech.Format) string {
	return fmt.Sprintf("%s_%04d%s", base, index, format.Ext())
}

// Synthesizer turns one segment into one artifact.
type Synthesizer struct {
	svc     speech.Service
	store   storage.FileStore
	voice   speech.Voice
	format  speech.Format
	timeout time.Duration
}

// SynthesizerOption configures a Synthesizer.
type SynthesizerOption func(*Synthesizer)

// WithTimeout bounds each speech service call, including any retries and
// rate limit waits inside the service. Zero removes the bound, for services
// that enforce their own per-request deadline with speech.WithTimeout.
// Negative values keep DefaultTimeout.
func WithTimeout(d time.Duration) SynthesizerOption {
	return func(s *Synthesizer) {
		if d >= 0 {
			s.timeout = d
		}
	}
}

// NewSynthesizer creates a Synthesizer writing artifacts to store.
func NewSynthesizer(svc speech.Service, store storage.FileStore, voice speech.Voice, format speech.Format, opts ...SynthesizerOption) *Synthesizer {
	s := &Synthesizer{
		svc:     svc,
		store:   store,
		voice:   voice,
		format:  format,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize sends seg to the speech service once and writes the returned
// audio to ArtifactPath(base, seg.Index, format), replacing any file there.
// Every failure is a *SynthesisError.
func (s *Synthesizer) Synthesize(ctx context.Context, seg Segment, base string) (Artifact, error) {
	fail := func(err error) (Artifact, error) {
		return Artifact{}, &SynthesisError{Index: seg.Index, Err: err}
	}

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	audio, err := s.svc.Synthesize(callCtx, &speech.Request{
		Text:   seg.Text,
		Voice:  s.voice,
		Format: s.format,
	})
	if err != nil {
		return fail(err)
	}
	if len(audio.Data) == 0 {
		return fail(speech.ErrEmptyAudio)
	}
	if audio.Format != "" && audio.Format != s.format {
		return fail(fmt.Errorf("%w: got %s, want %s", speech.ErrUnsupportedFormat, audio.Format, s.format))
	}

	path := ArtifactPath(base, seg.Index, s.format)
	w, err := s.store.Write(ctx, path)
	if err != nil {
		return fail(err)
	}
	n, err := w.Write(audio.Data)
	if err != nil {
		storage.Abort(w)
		return fail(fmt.Errorf("write %s: %w", path, err))
	}
	if err := w.Close(); err != nil {
		return fail(fmt.Errorf("write %s: %w", path, err))
	}

	slog.Debug("audiobook: segment synthesized", "index", seg.Index, "chars", seg.Len(), "bytes", n, "path", path, "took", time.Since(start))
	return Artifact{
		Index:  seg.Index,
		Path:   path,
		Size:   int64(n),
		Format: s.format,
	}, nil
}
