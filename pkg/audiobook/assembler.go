package audiobook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/haivivi/audiobook/pkg/speech"
	"github.com/haivivi/audiobook/pkg/storage"
)

// Store is where a conversion keeps its artifacts and final file.
type Store interface {
	storage.FileStore
	storage.Mover
}

// FinalAudio is the assembled audiobook.
type FinalAudio struct {
	Path   string
	Size   int64
	Format speech.Format
	// Duration is zero when it could not be determined.
	Duration time.Duration
	Segments int
}

// partialSuffix names the file the assembler writes before moving it into
// place.
const partialSuffix = ".partial"

// Assembler joins artifacts into one final file.
type Assembler struct {
	store  Store
	format speech.Format
}

// NewAssembler creates an Assembler for artifacts of format in store.
func NewAssembler(store Store, format speech.Format) *Assembler {
	return &Assembler{store: store, format: format}
}

// Assemble produces final from artifacts, which must be non-empty and in
// strictly ascending index order.
//
// A single artifact is moved onto final unchanged. Several artifacts are
// concatenated into final+".partial", which is then moved onto final, so
// final holds either its previous content or the complete new audio.
// Artifacts are never modified. Every failure is an *AssemblyError.
func (a *Assembler) Assemble(ctx context.Context, artifacts []Artifact, final string) (FinalAudio, error) {
	if len(artifacts) == 0 {
		return FinalAudio{}, &AssemblyError{Path: final, Err: ErrNoArtifacts}
	}
	for i := 1; i < len(artifacts); i++ {
		if artifacts[i].Index <= artifacts[i-1].Index {
			return FinalAudio{}, &AssemblyError{
				Path: artifacts[i].Path,
				Err:  fmt.Errorf("%w: index %d after %d", ErrOutOfOrder, artifacts[i].Index, artifacts[i-1].Index),
			}
		}
	}
	codec, err := CodecFor(a.format)
	if err != nil {
		return FinalAudio{}, &AssemblyError{Path: final, Err: err}
	}

	if len(artifacts) == 1 {
		return a.moveOne(ctx, codec, artifacts[0], final)
	}
	return a.concat(ctx, codec, artifacts, final)
}

func (a *Assembler) moveOne(ctx context.Context, codec Codec, art Artifact, final string) (FinalAudio, error) {
	if err := a.store.Move(ctx, art.Path, final); err != nil {
		return FinalAudio{}, &AssemblyError{Path: art.Path, Err: err}
	}
	out := FinalAudio{
		Path:     final,
		Size:     art.Size,
		Format:   a.format,
		Segments: 1,
	}
	if d, err := a.probe(ctx, codec, final); err != nil {
		slog.Debug("audiobook: probe duration", "path", final, "error", err)
	} else {
		out.Duration = d
	}
	return out, nil
}

func (a *Assembler) probe(ctx context.Context, codec Codec, path string) (time.Duration, error) {
	r, c, err := a.open(ctx, path)
	if err != nil {
		return 0, err
	}
	if c != nil {
		defer c.Close()
	}
	return codec.Probe(r)
}

func (a *Assembler) concat(ctx context.Context, codec Codec, artifacts []Artifact, final string) (FinalAudio, error) {
	srcs := make([]io.ReadSeeker, 0, len(artifacts))
	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()
	for _, art := range artifacts {
		if err := ctx.Err(); err != nil {
			return FinalAudio{}, &AssemblyError{Path: art.Path, Err: err}
		}
		rs, c, err := a.open(ctx, art.Path)
		if err != nil {
			return FinalAudio{}, &AssemblyError{Path: art.Path, Err: err}
		}
		if c != nil {
			closers = append(closers, c)
		}
		srcs = append(srcs, rs)
	}

	tmp := final + partialSuffix
	w, err := a.store.Write(ctx, tmp)
	if err != nil {
		return FinalAudio{}, &AssemblyError{Path: tmp, Err: err}
	}
	cw := newCountWriter(w)
	d, err := codec.Concat(cw, srcs)
	if err != nil {
		storage.Abort(w)
		a.discard(ctx, tmp)
		path := tmp
		if i, ok := sourceIndex(err); ok && i < len(artifacts) {
			path = artifacts[i].Path
		}
		return FinalAudio{}, &AssemblyError{Path: path, Err: err}
	}
	if err := w.Close(); err != nil {
		a.discard(ctx, tmp)
		return FinalAudio{}, &AssemblyError{Path: tmp, Err: err}
	}
	if err := a.store.Move(ctx, tmp, final); err != nil {
		a.discard(ctx, tmp)
		return FinalAudio{}, &AssemblyError{Path: final, Err: err}
	}

	slog.Debug("audiobook: assembled", "path", final, "artifacts", len(artifacts), "bytes", cw.Size(), "duration", d)
	return FinalAudio{
		Path:     final,
		Size:     cw.Size(),
		Format:   a.format,
		Duration: d,
		Segments: len(artifacts),
	}, nil
}

// open returns a seekable reader for path. Readers that cannot seek are
// buffered in memory.
func (a *Assembler) open(ctx context.Context, path string) (io.ReadSeeker, io.Closer, error) {
	r, err := a.store.Read(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	if rs, ok := r.(io.ReadSeeker); ok {
		return rs, r, nil
	}
	defer r.Close()
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, err
	}
	return bytes.NewReader(b), nil, nil
}

func (a *Assembler) discard(ctx context.Context, path string) {
	if err := a.store.Delete(context.WithoutCancel(ctx), path); err != nil {
		slog.Warn("audiobook: remove partial file", "path", path, "error", err)
	}
}

type sizeWriter interface {
	io.Writer
	Size() int64
}

// newCountWriter counts the bytes written to w. When w can seek, so can the
// returned writer, and Size is the furthest offset written.
func newCountWriter(w io.Writer) sizeWriter {
	if ws, ok := w.(io.WriteSeeker); ok {
		return &seekCountWriter{w: ws}
	}
	return &countWriter{w: w}
}

type countWriter struct {
	w io.Writer
	n int64
}

func (c *countWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func (c *countWriter) Size() int64 { return c.n }

type seekCountWriter struct {
	w        io.WriteSeeker
	pos, end int64
}

func (c *seekCountWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.pos += int64(n)
	c.end = max(c.end, c.pos)
	return n, err
}

func (c *seekCountWriter) Seek(offset int64, whence int) (int64, error) {
	pos, err := c.w.Seek(offset, whence)
	if err == nil {
		c.pos = pos
	}
	return pos, err
}

func (c *seekCountWriter) Size() int64 { return c.end }
