package pcm

import (
	"fmt"
	"time"
)

// Format is a 16-bit little-endian mono PCM layout at one sample rate.
type Format int

const (
	L16Mono8K Format = iota
	L16Mono16K
	L16Mono22K
	L16Mono24K
	L16Mono32K
	L16Mono44K
	L16Mono48K

	numFormats
)

var sampleRates = [numFormats]int{
	L16Mono8K:  8000,
	L16Mono16K: 16000,
	L16Mono22K: 22050,
	L16Mono24K: 24000,
	L16Mono32K: 32000,
	L16Mono44K: 44100,
	L16Mono48K: 48000,
}

// FormatFor returns the format for sampleRate and channels. Only mono is
// defined.
func FormatFor(sampleRate, channels int) (Format, bool) {
	if channels != 1 {
		return 0, false
	}
	for f, rate := range sampleRates {
		if rate == sampleRate {
			return Format(f), true
		}
	}
	return 0, false
}

// Valid reports whether f is a defined format.
func (f Format) Valid() bool {
	return f >= 0 && f < numFormats
}

func (f Format) mustValid() {
	if !f.Valid() {
		panic(fmt.Sprintf("pcm: invalid format %d", int(f)))
	}
}

// SampleRate returns the sample rate in Hz.
func (f Format) SampleRate() int {
	f.mustValid()
	return sampleRates[f]
}

// Channels returns the channel count, always 1.
func (f Format) Channels() int {
	f.mustValid()
	return 1
}

// Depth returns the bits per sample, always 16.
func (f Format) Depth() int {
	f.mustValid()
	return 16
}

// BlockAlign returns the size in bytes of one sample frame.
func (f Format) BlockAlign() int {
	return f.Channels() * f.Depth() / 8
}

// BytesRate returns the number of bytes per second of audio.
func (f Format) BytesRate() int {
	return f.SampleRate() * f.BlockAlign()
}

// Duration returns the playback time of n bytes. A trailing partial
// frame does not count.
func (f Format) Duration(n int64) time.Duration {
	frames := n / int64(f.BlockAlign())
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate())
}

// Bytes returns the number of bytes holding d of audio, rounded down to
// whole frames.
func (f Format) Bytes(d time.Duration) int64 {
	frames := int64(d) * int64(f.SampleRate()) / int64(time.Second)
	return frames * int64(f.BlockAlign())
}

// String returns the MIME-style name of f, e.g.
// "audio/L16; rate=16000; channels=1".
func (f Format) String() string {
	if !f.Valid() {
		return fmt.Sprintf("pcm.Format(%d)", int(f))
	}
	return fmt.Sprintf("audio/L16; rate=%d; channels=%d", f.SampleRate(), f.Channels())
}
