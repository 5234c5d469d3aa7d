package audiobook

// Stage is a state of a conversion.
type Stage int

const (
	StageExtracting Stage = iota
	StageIdle
	StageSegmenting
	StageSynthesizing
	StageAssembling
	StageCleaning
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageExtracting:
		return "extracting"
	case StageIdle:
		return "idle"
	case StageSegmenting:
		return "segmenting"
	case StageSynthesizing:
		return "synthesizing"
	case StageAssembling:
		return "assembling"
	case StageCleaning:
		return "cleaning"
	case StageDone:
		return "done"
	}
	return "unknown"
}

// EventKind is the kind of a progress event.
type EventKind int

const (
	// EventProgress reports entering a stage, or finishing segment Current
	// of Total while synthesizing.
	EventProgress EventKind = iota
	// EventWarning carries a non-fatal problem in Err.
	EventWarning
	// EventCompleted carries the final file in Path.
	EventCompleted
	// EventFailed carries the failing stage and error.
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventProgress:
		return "progress"
	case EventWarning:
		return "warning"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	}
	return "unknown"
}

// Event is a progress notification.
type Event struct {
	Kind    EventKind
	Stage   Stage
	Current int
	Total   int
	Path    string
	Err     error
}

// Observer receives progress events. Observe is called synchronously from
// the conversion and must not block.
type Observer interface {
	Observe(Event)
}

// ObserverFunc is a function that implements the Observer interface.
type ObserverFunc func(Event)

// Observe implements the Observer interface.
func (f ObserverFunc) Observe(e Event) {
	f(e)
}

// ChanObserver returns an Observer that sends events to ch without
// blocking. Events are dropped while ch is full.
func ChanObserver(ch chan<- Event) Observer {
	return ObserverFunc(func(e Event) {
		select {
		case ch <- e:
		default:
		}
	})
}

type nopObserver struct{}

func (nopObserver) Observe(Event) {}
