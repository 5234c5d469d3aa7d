// Package pcm describes the 16-bit mono PCM layouts returned by speech
// providers.
//
// Format turns byte counts into durations and back, and Copy moves raw
// samples without splitting a frame:
//
//	f, ok := pcm.FormatFor(24000, 1)
//	if !ok {
//	    return errors.New("unsupported format")
//	}
//	d := f.Duration(int64(len(samples)))
//	n, err := pcm.Copy(w, r, f)
package pcm
