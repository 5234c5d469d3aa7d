package audiobook

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/haivivi/audiobook/pkg/audio/codec/mp3"
	"github.com/haivivi/audiobook/pkg/audio/codec/wav"
	"github.com/haivivi/audiobook/pkg/speech"
)

// Codec joins audio files of one format.
type Codec interface {
	// Concat writes the ordered concatenation of srcs to w and returns its
	// playback duration.
	Concat(w io.Writer, srcs []io.ReadSeeker) (time.Duration, error)

	// Probe returns the playback duration of one file.
	Probe(r io.ReadSeeker) (time.Duration, error)
}

// CodecFor returns the codec for format.
func CodecFor(format speech.Format) (Codec, error) {
	switch format {
	case speech.FormatMP3:
		return mp3Codec{}, nil
	case speech.FormatWAV:
		return wavCodec{}, nil
	}
	return nil, fmt.Errorf("%w: %q", speech.ErrUnsupportedFormat, format)
}

type mp3Codec struct{}

func (mp3Codec) Concat(w io.Writer, srcs []io.ReadSeeker) (time.Duration, error) {
	rs := make([]io.Reader, len(srcs))
	for i, s := range srcs {
		rs[i] = s
	}
	return mp3.Concat(w, rs...)
}

func (mp3Codec) Probe(r io.ReadSeeker) (time.Duration, error) {
	return mp3.Probe(r)
}

type wavCodec struct{}

func (wavCodec) Concat(w io.Writer, srcs []io.ReadSeeker) (time.Duration, error) {
	ss := make([]wav.Source, len(srcs))
	for i, s := range srcs {
		ss[i] = s
	}
	return wav.Concat(w, ss...)
}

func (wavCodec) Probe(r io.ReadSeeker) (time.Duration, error) {
	return wav.Probe(r)
}

// sourceIndex returns the position of the input a codec error blames.
func sourceIndex(err error) (int, bool) {
	var me *mp3.SourceError
	if errors.As(err, &me) {
		return me.Index, true
	}
	var we *wav.SourceError
	if errors.As(err, &we) {
		return we.Index, true
	}
	return 0, false
}
