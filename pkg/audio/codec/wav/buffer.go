package wav

import (
	"errors"
	"io"
)

// memBuffer is an in-memory io.WriteSeeker.
type memBuffer struct {
	b   []byte
	pos int
}

func (m *memBuffer) Write(p []byte) (int, error) {
	if end := m.pos + len(p); end > len(m.b) {
		m.b = append(m.b, make([]byte, end-len(m.b))...)
	}
	copy(m.b[m.pos:], p)
	m.pos += len(p)
	return len(p), nil
}

func (m *memBuffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(m.pos) + offset
	case io.SeekEnd:
		abs = int64(len(m.b)) + offset
	default:
		return 0, errors.New("wav: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("wav: negative position")
	}
	m.pos = int(abs)
	return abs, nil
}
