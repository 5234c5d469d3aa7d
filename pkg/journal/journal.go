// Package journal keeps a history of audiobook conversions.
//
// Entries are msgpack-encoded under "conversion:<id>" in a kv.Store,
// normally Badger in ~/.audiobook/audiobook/journal.
package journal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/haivivi/audiobook/pkg/audiobook"
	"github.com/haivivi/audiobook/pkg/kv"
)

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("journal: entry not found")

const prefix = "conversion"

// Entry is one recorded conversion.
type Entry struct {
	ID        string    `msgpack:"id" json:"id" yaml:"id"`
	Source    string    `msgpack:"source,omitempty" json:"source,omitempty" yaml:"source,omitempty"`
	Dest      string    `msgpack:"dest" json:"dest" yaml:"dest"`
	Voice     string    `msgpack:"voice" json:"voice" yaml:"voice"`
	Format    string    `msgpack:"format" json:"format" yaml:"format"`
	Segments  int       `msgpack:"segments" json:"segments" yaml:"segments"`
	Artifacts []string  `msgpack:"artifacts,omitempty" json:"artifacts,omitempty" yaml:"artifacts,omitempty"`
	Stage     string    `msgpack:"stage" json:"stage" yaml:"stage"`
	Error     string    `msgpack:"error,omitempty" json:"error,omitempty" yaml:"error,omitempty"`
	Warnings  []string  `msgpack:"warnings,omitempty" json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Started   time.Time `msgpack:"started" json:"started" yaml:"started"`
	Finished  time.Time `msgpack:"finished" json:"finished" yaml:"finished"`
}

// Succeeded reports whether the conversion reached the done stage.
func (e *Entry) Succeeded() bool {
	return e.Stage == audiobook.StageDone.String()
}

// Duration returns how long the conversion ran.
func (e *Entry) Duration() time.Duration {
	return e.Finished.Sub(e.Started)
}

// FromReport converts a pipeline report into an Entry.
func FromReport(r *audiobook.Report) Entry {
	return Entry{
		ID:        r.ID,
		Source:    r.Source,
		Dest:      r.Dest,
		Voice:     r.Voice,
		Format:    string(r.Format),
		Segments:  r.Segments,
		Artifacts: r.Artifacts,
		Stage:     r.Stage.String(),
		Error:     r.Err,
		Warnings:  r.Warnings,
		Started:   r.Started,
		Finished:  r.Finished,
	}
}

// Journal stores entries in a kv.Store.
type Journal struct {
	store kv.Store
}

var _ audiobook.Recorder = (*Journal)(nil)

// New creates a Journal over store. Closing the Journal closes store.
func New(store kv.Store) *Journal {
	return &Journal{store: store}
}

// Open opens a Badger-backed Journal in dir.
func Open(dir string) (*Journal, error) {
	store, err := kv.NewBadger(kv.BadgerOptions{Dir: dir})
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", dir, err)
	}
	return New(store), nil
}

// OpenInMemory opens a Journal that keeps entries in memory.
func OpenInMemory() (*Journal, error) {
	store, err := kv.NewBadger(kv.BadgerOptions{InMemory: true})
	if err != nil {
		return nil, fmt.Errorf("journal: open in memory: %w", err)
	}
	return New(store), nil
}

func key(id string) kv.Key {
	return kv.Key{prefix, id}
}

// Save stores e, assigning an ID if it has none. An entry with the same ID
// is replaced.
func (j *Journal) Save(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	data, err := msgpack.Marshal(e)
	if err != nil {
		return fmt.Errorf("journal: encode %s: %w", e.ID, err)
	}
	return j.store.Set(ctx, key(e.ID), data)
}

// Record implements audiobook.Recorder.
func (j *Journal) Record(ctx context.Context, r *audiobook.Report) error {
	e := FromReport(r)
	return j.Save(ctx, &e)
}

// Get returns the entry with id.
func (j *Journal) Get(ctx context.Context, id string) (*Entry, error) {
	data, err := j.store.Get(ctx, key(id))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	var e Entry
	if err := msgpack.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("journal: decode %s: %w", id, err)
	}
	return &e, nil
}

// List returns up to limit entries, most recently started first. A
// non-positive limit returns every entry. Undecodable entries are skipped.
func (j *Journal) List(ctx context.Context, limit int) ([]Entry, error) {
	var all []Entry
	for item, err := range j.store.List(ctx, kv.Key{prefix}) {
		if err != nil {
			return nil, err
		}
		var e Entry
		if err := msgpack.Unmarshal(item.Value, &e); err != nil {
			continue
		}
		all = append(all, e)
	}
	sort.SliceStable(all, func(a, b int) bool {
		return all[a].Started.After(all[b].Started)
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// Delete removes the entry with id. Deleting an unknown id is not an
// error.
func (j *Journal) Delete(ctx context.Context, id string) error {
	return j.store.Delete(ctx, key(id))
}

// Prune removes every entry that started before cutoff and returns how
// many were removed. Undecodable entries are removed too.
func (j *Journal) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	var stale []kv.Key
	for item, err := range j.store.List(ctx, kv.Key{prefix}) {
		if err != nil {
			return 0, err
		}
		var e Entry
		if err := msgpack.Unmarshal(item.Value, &e); err != nil || e.Started.Before(cutoff) {
			stale = append(stale, item.Key)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}
	if err := j.store.BatchDelete(ctx, stale); err != nil {
		return 0, fmt.Errorf("journal: prune: %w", err)
	}
	return len(stale), nil
}

// Close closes the underlying store.
func (j *Journal) Close() error {
	return j.store.Close()
}
