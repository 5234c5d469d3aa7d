package pcm

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// ErrPartialFrame is returned by Copy when the input ends inside a sample
// frame.
var ErrPartialFrame = errors.New("pcm: data ends inside a sample frame")

// copyBuffer is how much audio Copy moves per write.
const copyBuffer = 200 * time.Millisecond

// Copy copies PCM data of format f from r to w in whole frames and returns
// the number of bytes written. When r ends inside a frame the complete
// frames are written and ErrPartialFrame is returned.
func Copy(w io.Writer, r io.Reader, f Format) (int64, error) {
	align := f.BlockAlign()
	buf := make([]byte, max(f.Bytes(copyBuffer), int64(align)))

	var (
		total int64
		carry int
	)
	for {
		n, err := r.Read(buf[carry:])
		n += carry
		whole := n - n%align
		if whole > 0 {
			m, werr := w.Write(buf[:whole])
			total += int64(m)
			if werr != nil {
				return total, werr
			}
		}
		carry = copy(buf, buf[whole:n])

		if errors.Is(err, io.EOF) {
			if carry > 0 {
				return total, fmt.Errorf("%w: %d trailing bytes", ErrPartialFrame, carry)
			}
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}
