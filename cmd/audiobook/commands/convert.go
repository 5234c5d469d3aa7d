package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/audiobook/pkg/audiobook"
	"github.com/haivivi/audiobook/pkg/cli"
	"github.com/haivivi/audiobook/pkg/errlog"
	"github.com/haivivi/audiobook/pkg/extract"
	"github.com/haivivi/audiobook/pkg/journal"
	"github.com/haivivi/audiobook/pkg/speech"
	"github.com/haivivi/audiobook/pkg/storage"
)

// Job is one conversion of a job file.
type Job struct {
	// Source is the document to convert.
	Source string `yaml:"source" json:"source"`
	// Dest overrides the audio file, default next to Source.
	Dest string `yaml:"dest,omitempty" json:"dest,omitempty"`
	// Voice overrides the voice, as provider/voice.
	Voice string `yaml:"voice,omitempty" json:"voice,omitempty"`
	// Format overrides the audio format.
	Format string `yaml:"format,omitempty" json:"format,omitempty"`
}

// JobFile is the content of a convert -f file.
type JobFile struct {
	Jobs []Job `yaml:"jobs" json:"jobs"`
}

// JobResult is printed for every job.
type JobResult struct {
	ID        string   `yaml:"id,omitempty" json:"id,omitempty"`
	Source    string   `yaml:"source" json:"source"`
	Dest      string   `yaml:"dest,omitempty" json:"dest,omitempty"`
	Voice     string   `yaml:"voice,omitempty" json:"voice,omitempty"`
	Segments  int      `yaml:"segments,omitempty" json:"segments,omitempty"`
	Size      string   `yaml:"size,omitempty" json:"size,omitempty"`
	Duration  string   `yaml:"duration,omitempty" json:"duration,omitempty"`
	Published string   `yaml:"published,omitempty" json:"published,omitempty"`
	Warnings  []string `yaml:"warnings,omitempty" json:"warnings,omitempty"`
	Error     string   `yaml:"error,omitempty" json:"error,omitempty"`
}

var (
	convertJobFile   string
	convertOut       string
	convertVoice     string
	convertFormat    string
	convertNoReplace bool
	convertPublish   string
	convertLimit     int
	convertTimeout   time.Duration
	convertRetries   int
	convertQuiet     bool
)

var convertCmd = &cobra.Command{
	Use:   "convert [document...]",
	Short: "Convert documents into audio files",
	Long: `Convert documents into audio files.

Each document is read (.pdf, .txt, .text and .md are supported), split into
segments of at most 3000 characters, synthesized segment by segment and
assembled into one audio file with the same name and directory as the
document. Intermediate files (<name>_0001.mp3, ...) are removed after a
successful conversion and kept after a failure.

Failures are appended to a daily error log in ~/.audiobook/audiobook/logs
and every conversion is recorded in the history.

Example job file (jobs.yaml):
  jobs:
    - source: books/moby-dick.pdf
    - source: notes/lecture.txt
      voice: polly/Matthew
      format: wav
      dest: out/lecture.wav

Examples:
  audiobook convert moby-dick.pdf
  audiobook convert chapter1.txt chapter2.txt --voice polly/Amy
  audiobook convert notes.md --format wav --out /tmp/notes.wav
  audiobook convert -f jobs.yaml --json
  audiobook convert book.pdf --publish s3://my-books/audio`,
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringVarP(&convertJobFile, "file", "f", "", "job file (YAML or JSON, - for stdin)")
	convertCmd.Flags().StringVarP(&convertOut, "out", "o", "", "output audio file (single document only)")
	convertCmd.Flags().StringVar(&convertVoice, "voice", "", "voice as provider/voice (default from context, then polly/Joanna)")
	convertCmd.Flags().StringVar(&convertFormat, "format", "", "audio format: mp3 or wav (default from context, then mp3)")
	convertCmd.Flags().BoolVar(&convertNoReplace, "no-replace", false, "fail instead of replacing an existing audio file")
	convertCmd.Flags().StringVar(&convertPublish, "publish", "", "copy finished audio to s3://bucket/prefix (default from context bucket)")
	convertCmd.Flags().IntVar(&convertLimit, "segment-limit", audiobook.SegmentLimit, "characters per speech request (1-3000)")
	convertCmd.Flags().DurationVar(&convertTimeout, "timeout", 0, "timeout of one speech request (default from context, then 60s)")
	convertCmd.Flags().IntVar(&convertRetries, "retries", -1, "retries of a throttled or failed speech request (default from context)")
	convertCmd.Flags().BoolVarP(&convertQuiet, "quiet", "q", false, "do not print progress")
}

func loadJobs(args []string) ([]Job, error) {
	var jobs []Job
	if convertJobFile != "" {
		var f JobFile
		if err := cli.ReadFile(convertJobFile, &f); err != nil {
			return nil, err
		}
		jobs = append(jobs, f.Jobs...)
	}
	for _, a := range args {
		jobs = append(jobs, Job{Source: a})
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("no documents given; pass files or use -f")
	}
	if convertOut != "" {
		if len(jobs) != 1 {
			return nil, fmt.Errorf("--out needs exactly one document, got %d", len(jobs))
		}
		jobs[0].Dest = convertOut
	}
	for i, j := range jobs {
		if j.Source == "" {
			return nil, fmt.Errorf("job %d has no source", i+1)
		}
	}
	return jobs, nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	if err := audiobook.ValidSegmentLimit(convertLimit); err != nil {
		return fmt.Errorf("--segment-limit: %w", err)
	}
	jobs, err := loadJobs(args)
	if err != nil {
		return err
	}
	c, err := getContext()
	if err != nil {
		return err
	}
	printVerbose("Using context: %s", c.Name)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := getConfig()
	logs := &errlog.Daily{Dir: cfg.LogDir()}

	var recorder audiobook.Recorder
	j, err := journal.Open(cfg.JournalDir())
	if err != nil {
		cli.PrintWarning("history disabled: %v", err)
	} else {
		defer j.Close()
		recorder = j
	}

	publish := convertPublish
	if publish == "" {
		publish = c.Bucket
	}
	var remote *storage.S3Store
	if publish != "" {
		bucket, prefix, err := storage.ParseS3URL(publish)
		if err != nil {
			return err
		}
		remote = storage.NewS3(storage.NewS3Client(c.Region, c.AccessKey, c.SecretKey), bucket, prefix)
	}

	ps := newProviders(c)
	results := make([]JobResult, 0, len(jobs))
	failed := 0
	for _, job := range jobs {
		res := convertJob(ctx, ps, c, recorder, job)
		if res.Error == "" && remote != nil {
			if url, err := publishFile(ctx, remote, res); err != nil {
				res.Warnings = append(res.Warnings, err.Error())
				cli.PrintWarning("%v", err)
				logError(logs, "publish "+res.Dest, err)
			} else {
				res.Published = url
			}
		}
		if res.Error != "" {
			failed++
			logError(logs, "convert "+job.Source, errors.New(res.Error))
			cli.PrintError("%s: %s", job.Source, res.Error)
		}
		results = append(results, res)
	}

	if err := outputResult(results); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d conversions failed, see %s", failed, len(jobs), logs.Path(time.Now()))
	}
	return nil
}

// convertJob runs one conversion. Errors end up in JobResult.Error.
func convertJob(ctx context.Context, ps *providers, c *cli.Context, recorder audiobook.Recorder, job Job) JobResult {
	res := JobResult{Source: job.Source}
	fail := func(err error) JobResult {
		res.Error = err.Error()
		return res
	}

	voiceName := job.Voice
	if voiceName == "" {
		voiceName = convertVoice
	}
	if voiceName == "" {
		voiceName = c.VoiceOrDefault()
	}
	voice, err := speech.ParseVoice(voiceName)
	if err != nil {
		return fail(err)
	}
	res.Voice = voice.String()

	format := c.FormatOrDefault()
	for _, f := range []string{convertFormat, job.Format} {
		if f == "" {
			continue
		}
		if format, err = speech.ParseFormat(f); err != nil {
			return fail(err)
		}
	}

	provider, err := ps.get(ctx, voice.Provider)
	if err != nil {
		return fail(err)
	}
	if err := ps.mux.Validate(ctx, voice, format); err != nil {
		return fail(err)
	}

	pc := contextFor(c, voice.Provider)
	timeout := convertTimeout
	if timeout == 0 {
		timeout = pc.TimeoutDuration()
	}
	svc := speech.WithTimeout(provider, timeout)
	if pc.RateLimit > 0 {
		svc = speech.WithRateLimit(svc, speech.PerMinute(pc.RateLimit))
	}
	retries := pc.MaxRetries
	if convertRetries >= 0 {
		retries = convertRetries
	}
	if retries > 0 {
		svc = speech.WithRetry(svc, retries)
	}

	overwrite := audiobook.OverwriteReplace
	if convertNoReplace {
		overwrite = audiobook.OverwriteFail
	}

	opts := []audiobook.Option{
		audiobook.WithFormat(format),
		audiobook.WithSegmentLimit(convertLimit),
		// Deadlines are per request, set by speech.WithTimeout above.
		audiobook.WithSynthesisTimeout(0),
		audiobook.WithOverwrite(overwrite),
	}
	if recorder != nil {
		opts = append(opts, audiobook.WithRecorder(recorder))
	}
	var (
		events chan audiobook.Event
		wg     sync.WaitGroup
	)
	if !convertQuiet && !isJSONOutput() {
		events = make(chan audiobook.Event, 64)
		opts = append(opts, audiobook.WithObserver(audiobook.ChanObserver(events)))
		wg.Add(1)
		go func() {
			defer wg.Done()
			printProgress(job.Source, events)
		}()
	}
	p := audiobook.New(svc, voice, opts...)

	dest := job.Dest
	if dest == "" {
		dest = audiobook.DestinationFor(job.Source, format)
	}
	res.Dest = dest
	result, err := p.ConvertFileTo(ctx, extract.DefaultMux, job.Source, dest)
	if events != nil {
		close(events)
		wg.Wait()
	}
	if err != nil {
		return fail(err)
	}

	res.ID = result.ID
	res.Dest = result.Final.Path
	res.Segments = result.Final.Segments
	res.Size = cli.FormatBytes(result.Final.Size)
	if result.Final.Duration > 0 {
		res.Duration = cli.FormatDuration(result.Final.Duration)
	}
	for _, w := range result.Warnings {
		res.Warnings = append(res.Warnings, w.Error())
	}
	return res
}

func printProgress(source string, events <-chan audiobook.Event) {
	s := cli.DefaultStyles
	for e := range events {
		switch e.Kind {
		case audiobook.EventProgress:
			if e.Stage == audiobook.StageSynthesizing && e.Total > 0 {
				fmt.Fprintln(os.Stderr, s.Progress(e.Stage.String(), e.Current, e.Total, filepath.Base(e.Path)))
			} else if verbose {
				fmt.Fprintln(os.Stderr, s.Progress(e.Stage.String(), 0, 0, source))
			}
		case audiobook.EventWarning:
			cli.PrintWarning("%v", e.Err)
		case audiobook.EventCompleted:
			cli.PrintSuccess("%s -> %s", source, e.Path)
		}
	}
}

// publishFile uploads the audio of res next to its peers in remote and
// returns its URL.
func publishFile(ctx context.Context, remote *storage.S3Store, res JobResult) (string, error) {
	f, err := os.Open(res.Dest)
	if err != nil {
		return "", fmt.Errorf("publish %s: %w", res.Dest, err)
	}
	defer f.Close()

	key := filepath.Base(res.Dest)
	meta := map[string]string{
		"source":   filepath.Base(res.Source),
		"voice":    res.Voice,
		"segments": strconv.Itoa(res.Segments),
	}
	if res.Duration != "" {
		meta["duration"] = res.Duration
	}
	if err := remote.Upload(ctx, key, f, meta); err != nil {
		return "", err
	}
	printVerbose("Published %s (%s)", remote.URL(key), res.Size)
	return remote.URL(key), nil
}

func logError(logs *errlog.Daily, activity string, err error) {
	if lerr := logs.LogError(activity, err); lerr != nil {
		cli.PrintWarning("write error log: %v", lerr)
	}
}
