package audiobook

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/haivivi/audiobook/internal/audiotest"
	"github.com/haivivi/audiobook/pkg/audio/codec/mp3"
	"github.com/haivivi/audiobook/pkg/audio/codec/wav"
	"github.com/haivivi/audiobook/pkg/audio/pcm"
	"github.com/haivivi/audiobook/pkg/extract"
	"github.com/haivivi/audiobook/pkg/speech"
	"github.com/haivivi/audiobook/pkg/storage"
)

// 1152 samples at 48 kHz: 24ms per frame.
var testMP3 = audiotest.MP3{Bitrate: 128, SampleRate: 48000, Mono: true}

const frameDuration = 24 * time.Millisecond

var testVoice = speech.Voice{Provider: "fake", ID: "Joanna"}

// fakeService returns one mp3 frame (or 10ms of PCM) per 100 characters,
// rounded up. Every byte after the frame headers (or every low sample byte)
// is the first byte of the text, so artifacts of different segments differ.
type fakeService struct {
	mu     sync.Mutex
	texts  []string
	failAt int // 1-based call number that fails; 0 never
	err    error
}

func (s *fakeService) Synthesize(_ context.Context, req *speech.Request) (*speech.Audio, error) {
	s.mu.Lock()
	s.texts = append(s.texts, req.Text)
	n := len(s.texts)
	s.mu.Unlock()

	if s.failAt == n {
		if s.err != nil {
			return nil, s.err
		}
		return nil, &speech.Error{Provider: "fake", Status: 503, Message: "unavailable"}
	}

	units := (utf8.RuneCountInString(req.Text) + 99) / 100
	switch req.Format {
	case speech.FormatWAV:
		var buf bytes.Buffer
		if err := wav.Encode(&buf, pcm.L16Mono16K, samples(req.Text[0], units*160)); err != nil {
			return nil, err
		}
		return &speech.Audio{Data: buf.Bytes(), Format: speech.FormatWAV}, nil
	default:
		return &speech.Audio{Data: testMP3.Frames(units, req.Text[0]), Format: speech.FormatMP3}, nil
	}
}

// samples returns n 16-bit samples of value v.
func samples(v byte, n int) []byte {
	return bytes.Repeat([]byte{v, 0}, n)
}

func (s *fakeService) calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

func exists(t *testing.T, path string) bool {
	t.Helper()
	_, err := os.Stat(path)
	if err == nil {
		return true
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("stat %s: %v", path, err)
	}
	return false
}

func probe(t *testing.T, path string) time.Duration {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	d, err := mp3.Probe(f)
	if err != nil {
		t.Fatalf("Probe %s: %v", path, err)
	}
	return d
}

func collect() (Observer, func() []Event) {
	var (
		mu     sync.Mutex
		events []Event
	)
	obs := ObserverFunc(func(e Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	})
	return obs, func() []Event {
		mu.Lock()
		defer mu.Unlock()
		return append([]Event(nil), events...)
	}
}

func TestConvertThreeSegments(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "book.mp3")
	svc := &fakeService{}
	obs, events := collect()
	p := New(svc, testVoice, WithObserver(obs))

	text := strings.Repeat("a", 3000) + strings.Repeat("b", 3000) + strings.Repeat("c", 1000)
	res, err := p.Convert(context.Background(), Request{Text: text, Dest: dest})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	calls := svc.calls()
	if len(calls) != 3 {
		t.Fatalf("calls = %d, want 3", len(calls))
	}
	for i, c := range []byte("abc") {
		if calls[i][0] != c {
			t.Errorf("call %d has text %q..., want %q", i, calls[i][:1], c)
		}
	}

	if res.Final.Path != dest || res.Final.Segments != 3 {
		t.Fatalf("Final = %+v", res.Final)
	}
	want := 70 * frameDuration
	if res.Final.Duration != want {
		t.Fatalf("Duration = %v, want %v", res.Final.Duration, want)
	}
	if d := probe(t, dest); d != want {
		t.Fatalf("file duration = %v, want %v", d, want)
	}
	fi, err := os.Stat(dest)
	if err != nil {
		t.Fatal(err)
	}
	if fi.Size() != res.Final.Size || fi.Size() != int64(70*testMP3.FrameSize()) {
		t.Fatalf("size = %d, Final.Size = %d", fi.Size(), res.Final.Size)
	}
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	ordered := slices.Concat(testMP3.Frames(30, 'a'), testMP3.Frames(30, 'b'), testMP3.Frames(10, 'c'))
	if !bytes.Equal(got, ordered) {
		t.Fatal("final file is not the artifacts in segment order")
	}

	for i := 1; i <= 3; i++ {
		if exists(t, filepath.Join(dir, ArtifactPath("book", i, speech.FormatMP3))) {
			t.Errorf("artifact %d not removed", i)
		}
	}
	if exists(t, dest+partialSuffix) {
		t.Error("partial file left behind")
	}
	if len(res.Warnings) != 0 {
		t.Errorf("warnings = %v", res.Warnings)
	}
	if len(res.Artifacts) != 3 || res.Artifacts[2].Path != filepath.Join(dir, "book_0003.mp3") {
		t.Errorf("artifacts = %+v", res.Artifacts)
	}

	var progress []int
	var last Event
	for _, e := range events() {
		if e.Kind == EventProgress && e.Stage == StageSynthesizing && e.Current > 0 {
			if e.Total != 3 {
				t.Errorf("Total = %d, want 3", e.Total)
			}
			progress = append(progress, e.Current)
		}
		last = e
	}
	if len(progress) != 3 || progress[0] != 1 || progress[2] != 3 {
		t.Errorf("progress = %v", progress)
	}
	if last.Kind != EventCompleted || last.Path != dest {
		t.Errorf("last event = %+v", last)
	}
}

func TestConvertSingleSegmentMoves(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "short.mp3")
	svc := &fakeService{}
	p := New(svc, testVoice)

	res, err := p.Convert(context.Background(), Request{Text: strings.Repeat("x", 500), Dest: dest})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if len(svc.calls()) != 1 {
		t.Fatalf("calls = %d, want 1", len(svc.calls()))
	}
	if exists(t, filepath.Join(dir, "short_0001.mp3")) {
		t.Fatal("artifact still exists after move")
	}
	want := testMP3.Frames(5, 'x')
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Fatal("final file differs from the artifact")
	}
	if res.Final.Duration != 5*frameDuration {
		t.Fatalf("Duration = %v", res.Final.Duration)
	}
}

func TestConvertFailFast(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "book.mp3")
	svc := &fakeService{failAt: 2}
	obs, events := collect()
	p := New(svc, testVoice, WithObserver(obs))

	_, err := p.Convert(context.Background(), Request{Text: strings.Repeat("a", 7000), Dest: dest})
	f, ok := AsFailure(err)
	if !ok {
		t.Fatalf("err = %v, want *Failure", err)
	}
	if f.Stage != StageSynthesizing {
		t.Fatalf("Stage = %v, want synthesizing", f.Stage)
	}
	var se *SynthesisError
	if !errors.As(err, &se) || se.Index != 2 {
		t.Fatalf("err = %v, want SynthesisError for segment 2", err)
	}
	var pe *speech.Error
	if !errors.As(err, &pe) || pe.Status != 503 {
		t.Fatalf("err = %v, want provider error", err)
	}
	if n := len(svc.calls()); n != 2 {
		t.Fatalf("calls = %d, want 2", n)
	}
	if !exists(t, filepath.Join(dir, "book_0001.mp3")) {
		t.Error("artifact 1 was removed")
	}
	if exists(t, filepath.Join(dir, "book_0002.mp3")) {
		t.Error("failed segment left an artifact")
	}
	if exists(t, filepath.Join(dir, "book_0003.mp3")) || exists(t, dest) {
		t.Error("conversion continued after failure")
	}

	evs := events()
	last := evs[len(evs)-1]
	if last.Kind != EventFailed || last.Stage != StageSynthesizing || last.Err == nil {
		t.Errorf("last event = %+v", last)
	}
}

func TestConvertReplacesDestination(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "book.mp3")
	if err := os.WriteFile(dest, []byte("old audiobook"), 0o644); err != nil {
		t.Fatal(err)
	}
	p := New(&fakeService{}, testVoice)
	text := strings.Repeat("z", 4200)

	for i := range 2 {
		res, err := p.Convert(context.Background(), Request{Text: text, Dest: dest})
		if err != nil {
			t.Fatalf("Convert #%d: %v", i, err)
		}
		if d := probe(t, dest); d != 42*frameDuration || res.Final.Duration != d {
			t.Fatalf("run %d: duration = %v", i, d)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("directory holds %v, want only book.mp3", names)
	}
}

func TestConvertOverwriteFail(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "book.mp3")
	if err := os.WriteFile(dest, []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}
	svc := &fakeService{}
	p := New(svc, testVoice, WithOverwrite(OverwriteFail))

	_, err := p.Convert(context.Background(), Request{Text: "hello", Dest: dest})
	var de *DestinationError
	if !errors.As(err, &de) || !errors.Is(err, ErrDestinationExists) {
		t.Fatalf("err = %v, want ErrDestinationExists", err)
	}
	if f, _ := AsFailure(err); f.Stage != StageIdle {
		t.Fatalf("Stage = %v, want idle", f.Stage)
	}
	if len(svc.calls()) != 0 {
		t.Fatal("speech service was called")
	}
	if b, _ := os.ReadFile(dest); string(b) != "keep" {
		t.Fatal("destination was modified")
	}
}

func TestConvertEmptyInput(t *testing.T) {
	for _, text := range []string{"", " \n\t "} {
		svc := &fakeService{}
		_, err := New(svc, testVoice).Convert(context.Background(), Request{
			Text: text,
			Dest: filepath.Join(t.TempDir(), "x.mp3"),
		})
		var ee *EmptyInputError
		if !errors.As(err, &ee) {
			t.Fatalf("Convert(%q) err = %v, want EmptyInputError", text, err)
		}
		if len(svc.calls()) != 0 {
			t.Fatal("speech service was called")
		}
	}
}

func TestConvertUnwritableDestination(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := New(&fakeService{}, testVoice).Convert(context.Background(), Request{
		Text: "hello",
		Dest: filepath.Join(blocker, "book.mp3"),
	})
	var de *DestinationError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want DestinationError", err)
	}
}

func TestConvertWAV(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "book.wav")
	p := New(&fakeService{}, testVoice, WithFormat(speech.FormatWAV), WithSegmentLimit(1000))

	text := strings.Repeat("x", 1000) + strings.Repeat("y", 1000) + strings.Repeat("z", 500)
	res, err := p.Convert(context.Background(), Request{Text: text, Dest: dest})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if res.Final.Segments != 3 {
		t.Fatalf("Segments = %d, want 3", res.Final.Segments)
	}
	f, err := os.Open(dest)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	d, err := wav.Probe(f)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if d != 250*time.Millisecond || res.Final.Duration != d {
		t.Fatalf("duration = %v, Final = %v", d, res.Final.Duration)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		t.Fatal(err)
	}
	if _, err := wav.ReadHeader(f); err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatal(err)
	}
	if want := slices.Concat(samples('x', 1600), samples('y', 1600), samples('z', 800)); !bytes.Equal(data, want) {
		t.Fatal("audio data is not the artifacts in segment order")
	}
	if fi, err := f.Stat(); err != nil || fi.Size() != res.Final.Size {
		t.Fatalf("file size = %v, Final.Size = %d", fi, res.Final.Size)
	}
}

func TestSegmentLimit(t *testing.T) {
	for _, n := range []int{1, 100, SegmentLimit} {
		if err := ValidSegmentLimit(n); err != nil {
			t.Errorf("ValidSegmentLimit(%d) = %v", n, err)
		}
	}
	for _, n := range []int{-1, 0, SegmentLimit + 1, 1 << 20} {
		if err := ValidSegmentLimit(n); !errors.Is(err, ErrSegmentLimit) {
			t.Errorf("ValidSegmentLimit(%d) = %v, want ErrSegmentLimit", n, err)
		}
	}

	// Limits above SegmentLimit fall back to it.
	svc := &fakeService{}
	p := New(svc, testVoice, WithSegmentLimit(SegmentLimit+1000))
	if _, err := p.Convert(context.Background(), Request{Text: strings.Repeat("s", 4000), Dest: filepath.Join(t.TempDir(), "s.mp3")}); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	calls := svc.calls()
	if len(calls) != 2 || utf8.RuneCountInString(calls[0]) != SegmentLimit {
		t.Fatalf("calls = %d, first has %d characters", len(calls), utf8.RuneCountInString(calls[0]))
	}
}

func TestSynthesisTimeout(t *testing.T) {
	tests := []struct {
		opt      Option
		deadline bool
	}{
		{nil, true},
		{WithSynthesisTimeout(time.Minute), true},
		{WithSynthesisTimeout(0), false},
	}
	for i, tt := range tests {
		var hasDeadline bool
		svc := speech.ServiceFunc(func(ctx context.Context, req *speech.Request) (*speech.Audio, error) {
			_, hasDeadline = ctx.Deadline()
			return &speech.Audio{Data: testMP3.Frames(1, 0), Format: speech.FormatMP3}, nil
		})
		var opts []Option
		if tt.opt != nil {
			opts = append(opts, tt.opt)
		}
		if _, err := New(svc, testVoice, opts...).Convert(context.Background(), Request{Text: "hi", Dest: filepath.Join(t.TempDir(), "t.mp3")}); err != nil {
			t.Fatalf("%d: Convert: %v", i, err)
		}
		if hasDeadline != tt.deadline {
			t.Errorf("%d: deadline = %v, want %v", i, hasDeadline, tt.deadline)
		}
	}
}

func TestConvertWrongFormatFromService(t *testing.T) {
	svc := speech.ServiceFunc(func(ctx context.Context, req *speech.Request) (*speech.Audio, error) {
		return &speech.Audio{Data: []byte("RIFF"), Format: speech.FormatWAV}, nil
	})
	_, err := New(svc, testVoice).Convert(context.Background(), Request{
		Text: "hello",
		Dest: filepath.Join(t.TempDir(), "book.mp3"),
	})
	var se *SynthesisError
	if !errors.As(err, &se) || !errors.Is(err, speech.ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want SynthesisError wrapping ErrUnsupportedFormat", err)
	}
}

func TestConvertFile(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(source, []byte(strings.Repeat("n", 3500)), 0o644); err != nil {
		t.Fatal(err)
	}
	obs, events := collect()
	res, err := New(&fakeService{}, testVoice, WithObserver(obs)).ConvertFile(context.Background(), extract.DefaultMux, source)
	if err != nil {
		t.Fatalf("ConvertFile: %v", err)
	}
	if want := filepath.Join(dir, "notes.mp3"); res.Final.Path != want {
		t.Fatalf("Path = %s, want %s", res.Final.Path, want)
	}
	if evs := events(); evs[0].Stage != StageExtracting || evs[1].Stage != StageIdle {
		t.Fatalf("first events = %+v", evs[:2])
	}
}

func TestConvertFileExtractionError(t *testing.T) {
	_, err := New(&fakeService{}, testVoice).ConvertFile(context.Background(), extract.DefaultMux, filepath.Join(t.TempDir(), "book.epub"))
	var ee *ExtractionError
	if !errors.As(err, &ee) || !errors.Is(err, extract.ErrUnsupported) {
		t.Fatalf("err = %v, want ExtractionError", err)
	}
	if f, _ := AsFailure(err); f.Stage != StageExtracting {
		t.Fatalf("Stage = %v", f.Stage)
	}
}

func TestRecorder(t *testing.T) {
	var reports []Report
	rec := RecorderFunc(func(_ context.Context, r *Report) error {
		reports = append(reports, *r)
		return errors.New("journal closed")
	})
	p := New(&fakeService{failAt: 2}, testVoice, WithRecorder(rec), WithSegmentLimit(10))
	dir := t.TempDir()

	if _, err := p.Convert(context.Background(), Request{Text: "0123456789abc", Dest: filepath.Join(dir, "a.mp3"), Source: "a.txt"}); err == nil {
		t.Fatal("Convert succeeded, want failure")
	}
	if _, err := p.Convert(context.Background(), Request{Text: "hello", Dest: filepath.Join(dir, "b.mp3")}); err != nil {
		t.Fatalf("Convert: %v", err)
	}

	if len(reports) != 2 {
		t.Fatalf("reports = %d, want 2", len(reports))
	}
	failed, done := reports[0], reports[1]
	if failed.Succeeded() || failed.Stage != StageSynthesizing || failed.Err == "" || failed.Source != "a.txt" {
		t.Errorf("failed report = %+v", failed)
	}
	if failed.Segments != 2 || len(failed.Artifacts) != 1 {
		t.Errorf("failed report segments = %d, artifacts = %v", failed.Segments, failed.Artifacts)
	}
	if !done.Succeeded() || done.ID == "" || done.ID == failed.ID || done.Voice != "fake/Joanna" {
		t.Errorf("done report = %+v", done)
	}
	if done.Finished.Before(done.Started) {
		t.Error("Finished before Started")
	}
}

func TestChanObserverDrops(t *testing.T) {
	ch := make(chan Event, 1)
	obs := ChanObserver(ch)
	obs.Observe(Event{Kind: EventProgress, Current: 1})
	obs.Observe(Event{Kind: EventProgress, Current: 2})
	if e := <-ch; e.Current != 1 {
		t.Fatalf("Current = %d, want 1", e.Current)
	}
	select {
	case e := <-ch:
		t.Fatalf("unexpected event %+v", e)
	default:
	}
}

// flakyStore fails Delete for one path.
type flakyStore struct {
	Store
	fail string
}

func (s *flakyStore) Delete(ctx context.Context, path string) error {
	if path == s.fail {
		return os.ErrPermission
	}
	return s.Store.Delete(ctx, path)
}

func TestCleanupWarning(t *testing.T) {
	dir := t.TempDir()
	obs, events := collect()
	p := New(&fakeService{}, testVoice, WithObserver(obs), WithSegmentLimit(100), WithStore(func(dir string) (Store, error) {
		l, err := storage.NewLocal(dir)
		if err != nil {
			return nil, err
		}
		return &flakyStore{Store: l, fail: "book_0002.mp3"}, nil
	}))

	res, err := p.Convert(context.Background(), Request{Text: strings.Repeat("q", 300), Dest: filepath.Join(dir, "book.mp3")})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if len(res.Warnings) != 1 || !errors.Is(res.Warnings[0], os.ErrPermission) {
		t.Fatalf("warnings = %v", res.Warnings)
	}
	if !exists(t, filepath.Join(dir, "book_0002.mp3")) || exists(t, filepath.Join(dir, "book_0001.mp3")) {
		t.Fatal("cleanup removed the wrong files")
	}
	var warned bool
	for _, e := range events() {
		if e.Kind == EventWarning {
			warned = true
		}
	}
	if !warned {
		t.Fatal("no warning event")
	}
}

func TestDestinationFor(t *testing.T) {
	tests := []struct {
		source string
		format speech.Format
		want   string
	}{
		{"/books/moby.pdf", speech.FormatMP3, "/books/moby.mp3"},
		{"notes.txt", speech.FormatWAV, "notes.wav"},
		{"archive.tar.txt", speech.FormatMP3, "archive.tar.mp3"},
		{"README", speech.FormatMP3, "README.mp3"},
	}
	for _, tt := range tests {
		if got := DestinationFor(tt.source, tt.format); got != tt.want {
			t.Errorf("DestinationFor(%q) = %q, want %q", tt.source, got, tt.want)
		}
	}
}
