package audiobook

import (
	"errors"
	"fmt"
)

var (
	// ErrDestinationExists is returned under OverwriteFail when the final
	// file already exists.
	ErrDestinationExists = errors.New("destination exists")

	// ErrNoArtifacts is returned when the assembler is given nothing to
	// assemble.
	ErrNoArtifacts = errors.New("no artifacts")

	// ErrOutOfOrder is returned when artifacts are not in strictly
	// ascending index order.
	ErrOutOfOrder = errors.New("artifacts out of order")

	// ErrSegmentLimit is returned for a segment limit the speech services
	// cannot take.
	ErrSegmentLimit = errors.New("invalid segment limit")
)

// Failure is the error returned by a conversion that did not reach Done.
// Err is one of the typed errors of this package.
type Failure struct {
	Stage Stage
	Err   error
}

// Error implements the error interface.
func (f *Failure) Error() string {
	return fmt.Sprintf("audiobook: %s failed: %v", f.Stage, f.Err)
}

// Unwrap returns the underlying error.
func (f *Failure) Unwrap() error {
	return f.Err
}

// ExtractionError reports that the document text could not be read.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// EmptyInputError reports that the text to convert is empty or only
// whitespace.
type EmptyInputError struct{}

func (*EmptyInputError) Error() string {
	return "no text to convert"
}

// DestinationError reports that the final file cannot be written.
type DestinationError struct {
	Path string
	Err  error
}

func (e *DestinationError) Error() string {
	return fmt.Sprintf("destination %s: %v", e.Path, e.Err)
}

func (e *DestinationError) Unwrap() error { return e.Err }

// SynthesisError reports that segment Index could not be synthesized or
// its audio could not be written.
type SynthesisError struct {
	Index int
	Err   error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("segment %d: %v", e.Index, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// AssemblyError reports that the final file could not be produced. Path
// names the artifact or file that failed.
type AssemblyError struct {
	Path string
	Err  error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("assemble %s: %v", e.Path, e.Err)
}

func (e *AssemblyError) Unwrap() error { return e.Err }

// CleanupWarning reports an intermediate file that could not be deleted
// after a successful conversion. It never fails the conversion.
type CleanupWarning struct {
	Path string
	Err  error
}

func (w *CleanupWarning) Error() string {
	return fmt.Sprintf("cleanup %s: %v", w.Path, w.Err)
}

func (w *CleanupWarning) Unwrap() error { return w.Err }

// AsFailure extracts *Failure from an error.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
