// Package wav reads and writes RIFF/WAVE files holding 16-bit little-endian
// PCM, on top of github.com/go-audio/wav.
package wav

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"

	"github.com/haivivi/audiobook/pkg/audio/pcm"
)

var (
	// ErrInvalid is returned for input that is not a PCM WAVE stream.
	ErrInvalid = errors.New("wav: invalid file")

	// ErrUnsupported is returned for WAVE streams whose encoding has no
	// matching pcm.Format.
	ErrUnsupported = errors.New("wav: unsupported format")

	// ErrFormatMismatch is returned when sources with different formats are
	// concatenated.
	ErrFormatMismatch = errors.New("wav: format mismatch")

	// ErrTooLarge is returned when the data would not fit the 32-bit sizes
	// of a RIFF header.
	ErrTooLarge = errors.New("wav: data exceeds 4 GiB")
)

// HeaderSize is the size of the canonical header written by this package.
const HeaderSize = 44

const formatPCM = 1

// maxData is the largest data chunk whose RIFF size (data + 36) fits in 32
// bits.
const maxData = math.MaxUint32 - (HeaderSize - 8)

// Header describes a WAVE stream.
type Header struct {
	Format pcm.Format
	// DataSize is the size of the data chunk in bytes, or -1 when the
	// header does not record it.
	DataSize int64
}

// Duration returns the playback duration of the data chunk.
func (h Header) Duration() time.Duration {
	return h.Format.Duration(h.DataSize)
}

// ReadHeader reads chunks from r up to and including the header of the data
// chunk. On success r is positioned at the first byte of PCM data.
//
// A data size of 0 or 0xFFFFFFFF (written by streaming encoders that never
// seek back) is returned as -1, meaning "until EOF".
func ReadHeader(r io.ReadSeeker) (Header, error) {
	start, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return Header{}, err
	}
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return Header{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !bytes.Equal(riff[0:4], []byte("RIFF")) || !bytes.Equal(riff[8:12], []byte("WAVE")) {
		return Header{}, ErrInvalid
	}
	if _, err := r.Seek(start, io.SeekStart); err != nil {
		return Header{}, err
	}

	d := gowav.NewDecoder(r)
	if err := d.FwdToPCM(); err != nil {
		return Header{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := d.Err(); err != nil {
		return Header{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if d.NumChans == 0 || d.PCMChunk == nil {
		return Header{}, fmt.Errorf("%w: missing fmt or data chunk", ErrInvalid)
	}
	if d.WavAudioFormat != formatPCM || d.BitDepth != 16 {
		return Header{}, fmt.Errorf("%w: tag %d, %d bits", ErrUnsupported, d.WavAudioFormat, d.BitDepth)
	}
	f, ok := pcm.FormatFor(int(d.SampleRate), int(d.NumChans))
	if !ok {
		return Header{}, fmt.Errorf("%w: %d Hz, %d channels", ErrUnsupported, d.SampleRate, d.NumChans)
	}

	h := Header{Format: f, DataSize: int64(d.PCMSize)}
	if h.DataSize == 0 || h.DataSize == 0xFFFFFFFF {
		h.DataSize = -1
	}
	return h, nil
}

// Encode writes a complete WAVE stream holding data to w.
func Encode(w io.Writer, format pcm.Format, data []byte) error {
	if !format.Valid() {
		return fmt.Errorf("%w: %v", ErrUnsupported, format)
	}
	if int64(len(data)) > maxData {
		return ErrTooLarge
	}
	return encode(w, format, func(sw *sampleWriter) error {
		_, err := sw.Write(data)
		return err
	})
}

// encode runs fill against a go-audio encoder. The encoder patches the
// header sizes by seeking back, so writers that cannot seek get the stream
// through an in-memory buffer.
func encode(w io.Writer, format pcm.Format, fill func(*sampleWriter) error) error {
	ws, ok := w.(io.WriteSeeker)
	var mem *memBuffer
	if !ok {
		mem = &memBuffer{}
		ws = mem
	}
	enc := gowav.NewEncoder(ws, format.SampleRate(), format.Depth(), format.Channels(), formatPCM)
	sw := &sampleWriter{
		enc: enc,
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: format.Channels(), SampleRate: format.SampleRate()},
			SourceBitDepth: format.Depth(),
		},
	}
	// Writes the header even when fill adds no samples.
	if _, err := sw.Write(nil); err != nil {
		return err
	}
	if err := fill(sw); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	if mem != nil {
		_, err := w.Write(mem.b)
		return err
	}
	return nil
}

// sampleWriter feeds little-endian 16-bit PCM to a go-audio encoder. Writes
// must hold whole samples, which pcm.Copy guarantees.
type sampleWriter struct {
	enc *gowav.Encoder
	buf *audio.IntBuffer
}

func (s *sampleWriter) Write(p []byte) (int, error) {
	n := len(p) / 2
	if cap(s.buf.Data) < n {
		s.buf.Data = make([]int, n)
	}
	s.buf.Data = s.buf.Data[:n]
	for i := range n {
		s.buf.Data[i] = int(int16(uint16(p[2*i]) | uint16(p[2*i+1])<<8))
	}
	if err := s.enc.Write(s.buf); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Probe reads the header of a WAVE stream and returns its playback
// duration. Streams of unknown length are measured to the end.
func Probe(r io.ReadSeeker) (time.Duration, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return 0, err
	}
	if h.DataSize < 0 {
		off, err := r.Seek(0, io.SeekCurrent)
		if err != nil {
			return 0, err
		}
		end, err := r.Seek(0, io.SeekEnd)
		if err != nil {
			return 0, err
		}
		h.DataSize = end - off
	}
	return h.Duration(), nil
}

// SourceError reports which input of Concat failed.
type SourceError struct {
	// Index is the zero-based position of the source.
	Index int
	Err   error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("wav: source %d: %v", e.Index, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// Source is one input to Concat.
type Source interface {
	io.Reader
	io.Seeker
}

// Concat writes one WAVE stream to w holding the data of every source in
// order, and returns its playback duration.
//
// Every source must have the same format. Headers are read first, so a
// mismatch or an oversized result fails before anything is written; each
// source is then rewound to its data and copied with pcm.Copy.
func Concat(w io.Writer, srcs ...Source) (time.Duration, error) {
	if len(srcs) == 0 {
		return 0, fmt.Errorf("%w: no sources", ErrInvalid)
	}

	type section struct {
		offset int64
		size   int64
	}
	var (
		format   pcm.Format
		total    int64
		sections = make([]section, len(srcs))
	)
	for i, src := range srcs {
		h, err := ReadHeader(src)
		if err != nil {
			return 0, &SourceError{Index: i, Err: err}
		}
		off, err := src.Seek(0, io.SeekCurrent)
		if err != nil {
			return 0, &SourceError{Index: i, Err: err}
		}
		if h.DataSize < 0 {
			end, err := src.Seek(0, io.SeekEnd)
			if err != nil {
				return 0, &SourceError{Index: i, Err: err}
			}
			h.DataSize = end - off
		}
		if i == 0 {
			format = h.Format
		} else if h.Format != format {
			return 0, &SourceError{Index: i, Err: fmt.Errorf("%w: %v after %v", ErrFormatMismatch, h.Format, format)}
		}
		sections[i] = section{offset: off, size: h.DataSize}
		total += h.DataSize
		if total > maxData {
			return 0, &SourceError{Index: i, Err: ErrTooLarge}
		}
	}

	err := encode(w, format, func(sw *sampleWriter) error {
		for i, src := range srcs {
			s := sections[i]
			if _, err := src.Seek(s.offset, io.SeekStart); err != nil {
				return &SourceError{Index: i, Err: err}
			}
			n, err := pcm.Copy(sw, io.LimitReader(src, s.size), format)
			if err != nil {
				return &SourceError{Index: i, Err: err}
			}
			if n != s.size {
				return &SourceError{Index: i, Err: fmt.Errorf("%w: short data chunk", ErrInvalid)}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return format.Duration(total), nil
}
