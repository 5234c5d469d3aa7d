// Package audiotest builds small, deterministic audio streams for tests.
package audiotest

import "fmt"

// MP3 describes Layer III frames built by Frames.
type MP3 struct {
	// MPEG2 selects MPEG-2 (576 samples per frame) instead of MPEG-1.
	MPEG2      bool
	Bitrate    int // kbps
	SampleRate int // Hz
	Mono       bool
	// Protected adds a 16-bit CRC after the header.
	Protected bool
}

var (
	bitratesV1 = []int{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320}
	bitratesV2 = []int{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160}
	ratesV1    = []int{44100, 48000, 32000}
	ratesV2    = []int{22050, 24000, 16000}
)

// Samples returns the number of samples per channel in one frame.
func (m MP3) Samples() int {
	if m.MPEG2 {
		return 576
	}
	return 1152
}

// FrameSize returns the size of one frame, header included.
func (m MP3) FrameSize() int {
	return m.Samples() / 8 * m.Bitrate * 1000 / m.SampleRate
}

// SideInfoSize returns the length of the side information following the
// header and the optional CRC.
func (m MP3) SideInfoSize() int {
	switch {
	case !m.MPEG2 && m.Mono:
		return 17
	case !m.MPEG2:
		return 32
	case m.Mono:
		return 9
	}
	return 17
}

// header encodes the 4-byte frame header. It panics on parameters that have
// no header representation.
func (m MP3) header() [4]byte {
	bitrates, rates, version := bitratesV1, ratesV1, byte(3)
	if m.MPEG2 {
		bitrates, rates, version = bitratesV2, ratesV2, 2
	}
	br, sr := index(bitrates, m.Bitrate), index(rates, m.SampleRate)
	if br <= 0 || sr < 0 {
		panic(fmt.Sprintf("audiotest: no header for %d kbps at %d Hz", m.Bitrate, m.SampleRate))
	}
	h := [4]byte{0xFF, 0xE0 | version<<3 | 0x01<<1, byte(br)<<4 | byte(sr)<<2, 0}
	if !m.Protected {
		h[1] |= 0x01
	}
	if m.Mono {
		h[3] = 0x03 << 6
	}
	return h
}

func index(s []int, v int) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

// Frames returns n frames whose bytes after the header are all fill. A fill
// of 0 zeroes the side information, so the frames decode to silence; any
// other fill marks the frames so tests can tell streams apart.
func (m MP3) Frames(n int, fill byte) []byte {
	h := m.header()
	size := m.FrameSize()
	out := make([]byte, 0, n*size)
	for range n {
		f := make([]byte, size)
		copy(f, h[:])
		for i := len(h); i < size; i++ {
			f[i] = fill
		}
		out = append(out, f...)
	}
	return out
}

// InfoFrame returns one silent frame carrying tag ("Xing" or "Info") where
// encoders put the VBR header.
func (m MP3) InfoFrame(tag string) []byte {
	f := m.Frames(1, 0)
	off := 4 + m.SideInfoSize()
	if m.Protected {
		off += 2
	}
	copy(f[off:], tag)
	return f
}
