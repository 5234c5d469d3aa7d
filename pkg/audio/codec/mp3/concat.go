package mp3

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// Writer writes MP3 frames to an underlying writer.
//
// All frames written must share the sample rate and channel layout of the
// first one; bitrate may vary between frames.
type Writer struct {
	w io.Writer

	rate    int
	mono    bool
	frames  int
	samples int64
	size    int64
}

// NewWriter creates a new MP3 frame writer writing to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func layout(mono bool) string {
	if mono {
		return "mono"
	}
	return "stereo"
}

// WriteFrame writes one frame.
func (w *Writer) WriteFrame(f *Frame) error {
	if w.frames == 0 {
		w.rate, w.mono = f.SampleRate, f.Mono
	} else if f.SampleRate != w.rate || f.Mono != w.mono {
		return fmt.Errorf("%w: %d Hz %s after %d Hz %s", ErrFormatMismatch,
			f.SampleRate, layout(f.Mono), w.rate, layout(w.mono))
	}
	n, err := w.w.Write(f.Data)
	w.size += int64(n)
	if err != nil {
		return err
	}
	w.frames++
	w.samples += int64(f.Samples)
	return nil
}

// Frames returns the number of frames written.
func (w *Writer) Frames() int {
	return w.frames
}

// Size returns the number of bytes written.
func (w *Writer) Size() int64 {
	return w.size
}

// Duration returns the playback duration of the frames written.
func (w *Writer) Duration() time.Duration {
	if w.frames == 0 {
		return 0
	}
	return time.Duration(w.samples) * time.Second / time.Duration(w.rate)
}

// SourceError reports which input of Concat failed.
type SourceError struct {
	// Index is the zero-based position of the source.
	Index int
	Err   error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("mp3: source %d: %v", e.Index, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// Concat decodes every source in order and writes all of their audio frames
// to w as one stream. It returns the playback duration of the result.
//
// A source with no audio frames, or whose format differs from the first
// source, fails the whole operation with a *SourceError.
func Concat(w io.Writer, srcs ...io.Reader) (time.Duration, error) {
	mw := NewWriter(w)
	for i, src := range srcs {
		dec := NewDecoder(src)
		for {
			f, err := dec.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return 0, &SourceError{Index: i, Err: err}
			}
			if err := mw.WriteFrame(f); err != nil {
				return 0, &SourceError{Index: i, Err: err}
			}
		}
		if dec.Frames() == 0 {
			return 0, &SourceError{Index: i, Err: ErrNoFrames}
		}
	}
	return mw.Duration(), nil
}
