// Package mp3 splits MPEG audio streams into frames and joins them.
//
// Speech providers return self-contained MP3 streams. Joining them does not
// need PCM round-tripping: an MP3 stream is a sequence of independent
// frames, so writing the frames of several streams back to back yields one
// stream whose playback is the ordered concatenation of the inputs, without
// re-encoding loss.
//
// Frame sync and sizing come from github.com/tcolgate/mp3. On top of it the
// Decoder drops a leading ID3v2 tag and the Xing/Info/VBRI header frame that
// encoders put in front of the audio (its frame count would be wrong for a
// joined stream).
package mp3

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"time"

	mpa "github.com/tcolgate/mp3"
)

var (
	// ErrNoFrames is returned when a stream holds no audio frames.
	ErrNoFrames = errors.New("mp3: no audio frames")

	// ErrFormatMismatch is returned when frames with different sample rates
	// or channel layouts are written to the same stream.
	ErrFormatMismatch = errors.New("mp3: format mismatch")
)

// Frame is one complete MPEG audio frame.
type Frame struct {
	// Data holds the whole frame, header included.
	Data       []byte
	SampleRate int
	Mono       bool
	// Samples is the number of samples per channel.
	Samples int
}

func (f *Frame) mpeg1() bool     { return (f.Data[1]>>3)&0x03 == 0x03 }
func (f *Frame) protected() bool { return f.Data[1]&0x01 == 0 }

// sideInfoSize returns the Layer III side information length.
func (f *Frame) sideInfoSize() int {
	switch {
	case f.mpeg1() && f.Mono:
		return 17
	case f.mpeg1():
		return 32
	case f.Mono:
		return 9
	}
	return 17
}

// isInfoFrame reports whether f carries a Xing, Info or VBRI tag instead of
// audio. The Xing tag follows the side information (and the CRC, if any);
// VBRI sits at a fixed offset.
func (f *Frame) isInfoFrame() bool {
	off := 4 + f.sideInfoSize()
	if f.protected() {
		off += 2
	}
	if len(f.Data) >= off+4 {
		tag := f.Data[off : off+4]
		if bytes.Equal(tag, []byte("Xing")) || bytes.Equal(tag, []byte("Info")) {
			return true
		}
	}
	const vbriOffset = 4 + 32
	return len(f.Data) >= vbriOffset+4 && bytes.Equal(f.Data[vbriOffset:vbriOffset+4], []byte("VBRI"))
}

// Decoder splits an MP3 stream into frames.
type Decoder struct {
	r     *bufio.Reader
	dec   *mpa.Decoder
	frame mpa.Frame

	started bool
	frames  int
	samples int64
	rate    int
	skipped int64
}

// NewDecoder creates a new MP3 frame decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	br := bufio.NewReaderSize(r, 16*1024)
	return &Decoder{r: br, dec: mpa.NewDecoder(br)}
}

// Next returns the next audio frame. It returns io.EOF at the end of the
// stream. A truncated trailing frame is dropped.
func (d *Decoder) Next() (*Frame, error) {
	first := !d.started
	if first {
		d.started = true
		if err := d.skipID3v2(); err != nil {
			return nil, err
		}
	}
	for {
		var skipped int
		err := d.dec.Decode(&d.frame, &skipped)
		d.skipped += int64(skipped)
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, io.EOF
		}
		if err != nil {
			return nil, err
		}

		data, err := io.ReadAll(d.frame.Reader())
		if err != nil {
			return nil, err
		}
		if len(data) < 4 {
			continue
		}
		f := &Frame{
			Data:       data,
			SampleRate: int(d.frame.Header().SampleRate()),
			Mono:       data[3]>>6 == 0x03,
			Samples:    576,
		}
		if f.mpeg1() {
			f.Samples = 1152
		}
		if first && f.isInfoFrame() {
			first = false
			continue
		}
		first = false

		d.frames++
		d.samples += int64(f.Samples)
		d.rate = f.SampleRate
		return f, nil
	}
}

// skipID3v2 discards an ID3v2 tag at the start of the stream.
func (d *Decoder) skipID3v2() error {
	hdr, err := d.r.Peek(10)
	if len(hdr) < 10 || !bytes.HasPrefix(hdr, []byte("ID3")) {
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	}
	// Tag size is a 28-bit syncsafe integer.
	size := int(hdr[6]&0x7F)<<21 | int(hdr[7]&0x7F)<<14 | int(hdr[8]&0x7F)<<7 | int(hdr[9]&0x7F)
	size += 10
	if hdr[5]&0x10 != 0 {
		size += 10 // footer
	}
	n, _ := d.r.Discard(size)
	d.skipped += int64(n)
	return nil
}

// Frames returns the number of audio frames returned so far.
func (d *Decoder) Frames() int {
	return d.frames
}

// Duration returns the playback duration of the frames returned so far.
func (d *Decoder) Duration() time.Duration {
	if d.rate == 0 {
		return 0
	}
	return time.Duration(d.samples) * time.Second / time.Duration(d.rate)
}

// Skipped returns the number of non-audio bytes skipped so far.
func (d *Decoder) Skipped() int64 {
	return d.skipped
}

// Probe decodes the whole stream and returns its playback duration.
func Probe(r io.Reader) (time.Duration, error) {
	dec := NewDecoder(r)
	for {
		_, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, err
		}
	}
	if dec.Frames() == 0 {
		return 0, ErrNoFrames
	}
	return dec.Duration(), nil
}
