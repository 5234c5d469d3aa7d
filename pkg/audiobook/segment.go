package audiobook

import "fmt"

// SegmentLimit is the largest number of characters sent to the speech
// service in one request.
const SegmentLimit = 3000

// ValidSegmentLimit returns an error wrapping ErrSegmentLimit unless n is
// in 1..SegmentLimit.
func ValidSegmentLimit(n int) error {
	if n < 1 || n > SegmentLimit {
		return fmt.Errorf("%w: %d not in 1..%d", ErrSegmentLimit, n, SegmentLimit)
	}
	return nil
}

// Segment is a contiguous slice of the input text.
//
// Start and End are character (rune) offsets into the input, End exclusive.
// Index is 1-based and dense.
type Segment struct {
	Index int
	Start int
	End   int
	Text  string
}

// Len returns the number of characters in the segment.
func (s Segment) Len() int {
	return s.End - s.Start
}

// Split splits text into segments of at most SegmentLimit characters.
func Split(text string) []Segment {
	return SplitN(text, SegmentLimit)
}

// SplitN splits text into consecutive segments of at most limit characters.
// Every segment but the last holds exactly limit characters, so there are
// ceil(n/limit) segments for n characters and none for empty text.
// Concatenating the segments' Text yields text byte for byte.
//
// SplitN panics if limit is not positive.
func SplitN(text string, limit int) []Segment {
	if limit <= 0 {
		panic("audiobook: segment limit must be positive")
	}

	var (
		segs      []Segment
		byteStart int
		runeStart int
		n         int
	)
	for i := range text {
		if n == limit {
			segs = append(segs, Segment{
				Index: len(segs) + 1,
				Start: runeStart,
				End:   runeStart + n,
				Text:  text[byteStart:i],
			})
			byteStart, runeStart, n = i, runeStart+n, 0
		}
		n++
	}
	if n > 0 {
		segs = append(segs, Segment{
			Index: len(segs) + 1,
			Start: runeStart,
			End:   runeStart + n,
			Text:  text[byteStart:],
		})
	}
	return segs
}
