package audiobook

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/haivivi/audiobook/pkg/extract"
	"github.com/haivivi/audiobook/pkg/speech"
	"github.com/haivivi/audiobook/pkg/storage"
)

// Overwrite decides what happens when the final file already exists.
type Overwrite int

const (
	// OverwriteReplace replaces an existing final file once the new one is
	// complete.
	OverwriteReplace Overwrite = iota
	// OverwriteFail refuses to convert onto an existing final file.
	OverwriteFail
)

func (o Overwrite) String() string {
	switch o {
	case OverwriteReplace:
		return "replace"
	case OverwriteFail:
		return "fail"
	}
	return "unknown"
}

// Request is one conversion.
type Request struct {
	// Text is the document text to speak.
	Text string
	// Dest is the final audio file. Artifacts are written next to it.
	Dest string
	// Source is the document Text came from. It is only reported.
	Source string
}

// Result is a completed conversion. Paths are filesystem paths.
type Result struct {
	// ID identifies the conversion in its Report.
	ID       string
	Final    FinalAudio
	Segments []Segment

	// Artifacts are the segment files that were written. They no longer
	// exist unless listed in Warnings.
	Artifacts []Artifact
	Warnings  []*CleanupWarning
}

// Report summarizes a conversion that reached Done or failed.
type Report struct {
	ID        string
	Source    string
	Dest      string
	Voice     string
	Format    speech.Format
	Segments  int
	Artifacts []string
	Stage     Stage
	Err       string
	Warnings  []string
	Started   time.Time
	Finished  time.Time
}

// Succeeded reports whether the conversion reached Done.
func (r *Report) Succeeded() bool {
	return r.Stage == StageDone
}

// Recorder stores conversion reports. Record errors are logged and do not
// change the outcome of the conversion.
type Recorder interface {
	Record(ctx context.Context, r *Report) error
}

// RecorderFunc is a function that implements the Recorder interface.
type RecorderFunc func(ctx context.Context, r *Report) error

// Record implements the Recorder interface.
func (f RecorderFunc) Record(ctx context.Context, r *Report) error {
	return f(ctx, r)
}

// StoreFunc opens the store for a destination directory.
type StoreFunc func(dir string) (Store, error)

// LocalStore is the default StoreFunc.
func LocalStore(dir string) (Store, error) {
	return storage.NewLocal(dir)
}

// Pipeline converts text into a single audio file: it splits the text into
// segments, synthesizes each one in order, assembles the artifacts and
// removes them.
//
// A Pipeline holds no per-request state and may be used by concurrent
// conversions with different destinations.
type Pipeline struct {
	svc       speech.Service
	voice     speech.Voice
	format    speech.Format
	limit     int
	timeout   time.Duration
	overwrite Overwrite
	observer  Observer
	recorder  Recorder
	store     StoreFunc
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithFormat sets the audio format. The default is mp3.
func WithFormat(f speech.Format) Option {
	return func(p *Pipeline) {
		p.format = f
	}
}

// WithSegmentLimit sets the largest segment in characters. Values outside
// 1..SegmentLimit keep SegmentLimit; use ValidSegmentLimit to reject them
// instead.
func WithSegmentLimit(n int) Option {
	return func(p *Pipeline) {
		if ValidSegmentLimit(n) == nil {
			p.limit = n
		}
	}
}

// WithSynthesisTimeout bounds each speech service call, as WithTimeout does
// for a Synthesizer.
func WithSynthesisTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d >= 0 {
			p.timeout = d
		}
	}
}

// WithOverwrite sets the overwrite policy.
func WithOverwrite(o Overwrite) Option {
	return func(p *Pipeline) {
		p.overwrite = o
	}
}

// WithObserver sets the observer for progress events.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		if o != nil {
			p.observer = o
		}
	}
}

// WithRecorder sets a recorder that receives a Report for every
// conversion.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) {
		p.recorder = r
	}
}

// WithStore sets how destination directories are opened. The default is
// LocalStore.
func WithStore(fn StoreFunc) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.store = fn
		}
	}
}

// New creates a Pipeline that speaks with voice through svc.
func New(svc speech.Service, voice speech.Voice, opts ...Option) *Pipeline {
	p := &Pipeline{
		svc:      svc,
		voice:    voice,
		format:   speech.FormatMP3,
		limit:    SegmentLimit,
		timeout:  DefaultTimeout,
		observer: nopObserver{},
		store:    LocalStore,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Format returns the audio format the pipeline produces.
func (p *Pipeline) Format() speech.Format {
	return p.format
}

// DestinationFor returns the final audio path for a document: the same
// directory and base name with the extension replaced.
func DestinationFor(source string, format speech.Format) string {
	return strings.TrimSuffix(source, filepath.Ext(source)) + format.Ext()
}

// Convert converts req.Text into req.Dest.
//
// Any failure is returned as a *Failure naming the stage. Artifacts written
// before a failure are left in place.
func (p *Pipeline) Convert(ctx context.Context, req Request) (*Result, error) {
	r := p.newRun(req.Source, req.Dest)
	return r.convert(ctx, req.Text)
}

// ConvertFile extracts the text of source with ex and converts it into
// DestinationFor(source, format).
func (p *Pipeline) ConvertFile(ctx context.Context, ex extract.Extractor, source string) (*Result, error) {
	return p.ConvertFileTo(ctx, ex, source, DestinationFor(source, p.format))
}

// ConvertFileTo extracts the text of source with ex and converts it into
// dest.
func (p *Pipeline) ConvertFileTo(ctx context.Context, ex extract.Extractor, source, dest string) (*Result, error) {
	r := p.newRun(source, dest)
	r.enter(StageExtracting)
	text, err := ex.Extract(ctx, source)
	if err != nil {
		return r.fail(ctx, &ExtractionError{Path: source, Err: err})
	}
	return r.convert(ctx, text)
}

// run is the state of one conversion.
type run struct {
	p      *Pipeline
	stage  Stage
	report Report
}

func (p *Pipeline) newRun(source, dest string) *run {
	return &run{
		p: p,
		report: Report{
			ID:      uuid.NewString(),
			Source:  source,
			Dest:    dest,
			Voice:   p.voice.String(),
			Format:  p.format,
			Started: time.Now(),
		},
	}
}

func (r *run) emit(e Event) {
	r.p.observer.Observe(e)
}

func (r *run) enter(s Stage) {
	r.stage = s
	r.emit(Event{Kind: EventProgress, Stage: s})
}

func (r *run) fail(ctx context.Context, err error) (*Result, error) {
	f := &Failure{Stage: r.stage, Err: err}
	slog.Debug("audiobook: conversion failed", "id", r.report.ID, "stage", r.stage, "error", err)
	r.emit(Event{Kind: EventFailed, Stage: r.stage, Path: r.report.Dest, Err: err})
	r.report.Err = err.Error()
	r.finish(ctx)
	return nil, f
}

func (r *run) finish(ctx context.Context) {
	r.report.Stage = r.stage
	r.report.Finished = time.Now()
	if r.p.recorder == nil {
		return
	}
	if err := r.p.recorder.Record(context.WithoutCancel(ctx), &r.report); err != nil {
		slog.Warn("audiobook: record conversion", "id", r.report.ID, "error", err)
	}
}

func (r *run) convert(ctx context.Context, text string) (*Result, error) {
	p := r.p
	dest := r.report.Dest
	dir, name := filepath.Split(dest)
	if dir == "" {
		dir = "."
	}
	base := strings.TrimSuffix(name, filepath.Ext(name))
	abs := func(path string) string { return filepath.Join(dir, filepath.FromSlash(path)) }

	r.enter(StageIdle)
	if strings.TrimSpace(text) == "" {
		return r.fail(ctx, &EmptyInputError{})
	}
	if name == "" || base == "" {
		return r.fail(ctx, &DestinationError{Path: dest, Err: errors.New("no file name")})
	}
	store, err := p.store(dir)
	if err != nil {
		return r.fail(ctx, &DestinationError{Path: dir, Err: err})
	}
	if err := checkWritable(ctx, store, name); err != nil {
		return r.fail(ctx, &DestinationError{Path: dir, Err: err})
	}
	exists, err := store.Exists(ctx, name)
	if err != nil {
		return r.fail(ctx, &DestinationError{Path: dest, Err: err})
	}
	if exists && p.overwrite == OverwriteFail {
		return r.fail(ctx, &DestinationError{Path: dest, Err: ErrDestinationExists})
	}

	r.enter(StageSegmenting)
	segs := SplitN(text, p.limit)
	r.report.Segments = len(segs)
	res := &Result{ID: r.report.ID, Segments: segs}

	r.enter(StageSynthesizing)
	synth := NewSynthesizer(p.svc, store, p.voice, p.format, WithTimeout(p.timeout))
	arts := make([]Artifact, 0, len(segs))
	for _, seg := range segs {
		art, err := synth.Synthesize(ctx, seg, base)
		if err != nil {
			return r.fail(ctx, err)
		}
		arts = append(arts, art)
		r.report.Artifacts = append(r.report.Artifacts, abs(art.Path))
		r.emit(Event{Kind: EventProgress, Stage: StageSynthesizing, Current: seg.Index, Total: len(segs), Path: abs(art.Path)})
	}

	r.enter(StageAssembling)
	final, err := NewAssembler(store, p.format).Assemble(ctx, arts, name)
	if err != nil {
		var ae *AssemblyError
		if errors.As(err, &ae) {
			ae.Path = abs(ae.Path)
		}
		return r.fail(ctx, err)
	}
	final.Path = abs(final.Path)
	res.Final = final

	r.enter(StageCleaning)
	for _, art := range arts {
		res.Artifacts = append(res.Artifacts, Artifact{Index: art.Index, Path: abs(art.Path), Size: art.Size, Format: art.Format})
		if len(arts) == 1 {
			continue
		}
		if err := store.Delete(context.WithoutCancel(ctx), art.Path); err != nil {
			w := &CleanupWarning{Path: abs(art.Path), Err: err}
			slog.Warn("audiobook: remove artifact", "path", w.Path, "error", err)
			r.emit(Event{Kind: EventWarning, Stage: StageCleaning, Path: w.Path, Err: w})
			res.Warnings = append(res.Warnings, w)
			r.report.Warnings = append(r.report.Warnings, w.Error())
		}
	}

	r.stage = StageDone
	slog.Debug("audiobook: converted", "id", r.report.ID, "path", final.Path, "segments", len(segs), "duration", final.Duration)
	r.emit(Event{Kind: EventCompleted, Stage: StageDone, Current: len(segs), Total: len(segs), Path: final.Path})
	r.finish(ctx)
	return res, nil
}

// checkWritable writes and removes a probe file next to name.
func checkWritable(ctx context.Context, store Store, name string) error {
	probe := "." + name + ".probe"
	w, err := store.Write(ctx, probe)
	if err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		store.Delete(ctx, probe)
		return err
	}
	return store.Delete(ctx, probe)
}
