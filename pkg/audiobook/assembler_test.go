package audiobook

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/haivivi/audiobook/internal/audiotest"
	"github.com/haivivi/audiobook/pkg/audio/codec/mp3"
	"github.com/haivivi/audiobook/pkg/audio/codec/wav"
	"github.com/haivivi/audiobook/pkg/audio/pcm"
	"github.com/haivivi/audiobook/pkg/speech"
	"github.com/haivivi/audiobook/pkg/storage"
)

func writeArtifact(t *testing.T, dir string, index int, data []byte) Artifact {
	t.Helper()
	return writeArtifactAs(t, dir, index, speech.FormatMP3, data)
}

func writeArtifactAs(t *testing.T, dir string, index int, format speech.Format, data []byte) Artifact {
	t.Helper()
	path := ArtifactPath("book", index, format)
	if err := os.WriteFile(filepath.Join(dir, path), data, 0o644); err != nil {
		t.Fatal(err)
	}
	return Artifact{Index: index, Path: path, Size: int64(len(data)), Format: format}
}

func newAssembler(t *testing.T) (*Assembler, string) {
	t.Helper()
	return newAssemblerFor(t, speech.FormatMP3)
}

func newAssemblerFor(t *testing.T, format speech.Format) (*Assembler, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocal(dir)
	if err != nil {
		t.Fatal(err)
	}
	return NewAssembler(store, format), dir
}

func TestAssembleRejectsOrder(t *testing.T) {
	a, dir := newAssembler(t)
	one := writeArtifact(t, dir, 1, testMP3.Frames(1, 0))
	two := writeArtifact(t, dir, 2, testMP3.Frames(1, 0))

	for _, arts := range [][]Artifact{{two, one}, {one, one}} {
		_, err := a.Assemble(context.Background(), arts, "book.mp3")
		var ae *AssemblyError
		if !errors.As(err, &ae) || !errors.Is(err, ErrOutOfOrder) {
			t.Fatalf("err = %v, want ErrOutOfOrder", err)
		}
	}
	if _, err := a.Assemble(context.Background(), nil, "book.mp3"); !errors.Is(err, ErrNoArtifacts) {
		t.Fatalf("err = %v, want ErrNoArtifacts", err)
	}
}

func TestAssembleMismatchKeepsFinal(t *testing.T) {
	a, dir := newAssembler(t)
	final := filepath.Join(dir, "book.mp3")
	if err := os.WriteFile(final, []byte("previous"), 0o644); err != nil {
		t.Fatal(err)
	}
	other := audiotest.MP3{MPEG2: true, Bitrate: 48, SampleRate: 22050, Mono: true}
	arts := []Artifact{
		writeArtifact(t, dir, 1, testMP3.Frames(3, 0)),
		writeArtifact(t, dir, 2, other.Frames(3, 0)),
	}

	_, err := a.Assemble(context.Background(), arts, "book.mp3")
	var ae *AssemblyError
	if !errors.As(err, &ae) {
		t.Fatalf("err = %v, want AssemblyError", err)
	}
	if ae.Path != arts[1].Path {
		t.Fatalf("Path = %s, want %s", ae.Path, arts[1].Path)
	}
	if !errors.Is(err, mp3.ErrFormatMismatch) {
		t.Fatalf("err = %v, want ErrFormatMismatch", err)
	}
	if b, _ := os.ReadFile(final); string(b) != "previous" {
		t.Fatal("final file was modified")
	}
	if _, err := os.Stat(final + partialSuffix); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("partial file left behind")
	}
	for _, art := range arts {
		if _, err := os.Stat(filepath.Join(dir, art.Path)); err != nil {
			t.Fatalf("artifact %d: %v", art.Index, err)
		}
	}
}

func TestAssembleConcat(t *testing.T) {
	a, dir := newAssembler(t)
	arts := []Artifact{
		writeArtifact(t, dir, 1, testMP3.Frames(2, 0)),
		writeArtifact(t, dir, 3, testMP3.Frames(5, 0)),
	}
	out, err := a.Assemble(context.Background(), arts, "out/book.mp3")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if out.Duration != 7*frameDuration || out.Segments != 2 || out.Size != int64(7*testMP3.FrameSize()) {
		t.Fatalf("out = %+v", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "out", "book.mp3")); err != nil {
		t.Fatal(err)
	}
}

func TestAssembleMP3Order(t *testing.T) {
	a, dir := newAssemblerFor(t, speech.FormatMP3)
	// Same sample rate and channels, different bitrates and content.
	parts := [][]byte{
		audiotest.MP3{Bitrate: 64, SampleRate: 48000, Mono: true}.Frames(2, 1),
		audiotest.MP3{Bitrate: 128, SampleRate: 48000, Mono: true}.Frames(3, 2),
		audiotest.MP3{Bitrate: 192, SampleRate: 48000, Mono: true}.Frames(1, 3),
	}
	var arts []Artifact
	for i, p := range parts {
		arts = append(arts, writeArtifact(t, dir, i+1, p))
	}

	out, err := a.Assemble(context.Background(), arts, "book.mp3")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dir, "book.mp3"))
	if err != nil {
		t.Fatal(err)
	}
	want := slices.Concat(parts...)
	if !bytes.Equal(got, want) {
		t.Fatal("final file is not artifact 1, 2, 3 in order")
	}
	if out.Size != int64(len(want)) || out.Duration != 6*frameDuration {
		t.Fatalf("out = %+v", out)
	}
}

func TestAssembleWAVOrder(t *testing.T) {
	a, dir := newAssemblerFor(t, speech.FormatWAV)
	parts := [][]byte{samples(1, 160), samples(2, 320), samples(3, 80)}
	var arts []Artifact
	for i, p := range parts {
		var buf bytes.Buffer
		if err := wav.Encode(&buf, pcm.L16Mono16K, p); err != nil {
			t.Fatal(err)
		}
		arts = append(arts, writeArtifactAs(t, dir, i+1, speech.FormatWAV, buf.Bytes()))
	}

	out, err := a.Assemble(context.Background(), arts, "book.wav")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	f, err := os.Open(filepath.Join(dir, "book.wav"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	h, err := wav.ReadHeader(f)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatal(err)
	}
	want := slices.Concat(parts...)
	if !bytes.Equal(data, want) || h.DataSize != int64(len(want)) {
		t.Fatalf("data chunk of %d bytes is not artifact 1, 2, 3 in order", h.DataSize)
	}
	if out.Size != int64(wav.HeaderSize+len(want)) {
		t.Fatalf("Size = %d, want %d", out.Size, wav.HeaderSize+len(want))
	}
}

func TestArtifactPath(t *testing.T) {
	if got := ArtifactPath("book", 7, speech.FormatMP3); got != "book_0007.mp3" {
		t.Errorf("ArtifactPath = %q", got)
	}
	if got := ArtifactPath("book", 12345, speech.FormatWAV); got != "book_12345.wav" {
		t.Errorf("ArtifactPath = %q", got)
	}
}

func TestCodecFor(t *testing.T) {
	if _, err := CodecFor("flac"); !errors.Is(err, speech.ErrUnsupportedFormat) {
		t.Fatalf("err = %v", err)
	}
}
