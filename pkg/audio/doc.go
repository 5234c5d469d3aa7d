// Package audio is the umbrella for the audio sub-packages:
//
//   - pcm: raw PCM formats, durations and chunked copies
//   - codec/mp3: MPEG audio frame parsing, probing and concatenation
//   - codec/wav: RIFF/WAVE headers, probing and concatenation
//
// Example usage:
//
//	import (
//	    "github.com/haivivi/audiobook/pkg/audio/codec/wav"
//	    "github.com/haivivi/audiobook/pkg/audio/pcm"
//	)
//
//	var buf bytes.Buffer
//	err := wav.Encode(&buf, pcm.L16Mono24K, samples)
package audio
