package action

import "time"

type EventKind uint8

const (
	EventStart EventKind = iota
	EventUpdate
	EventStop
	EventCancel
	EventDropped
	EventRebreakStart
	EventRebroke
)

var eventKindNames = [...]string{"START", "UPDATE", "STOP", "CANCEL", "DROPPED", "REBREAK_START", "REBROKE"}

func (k EventKind) String() string {
	if int(k) < len(eventKindNames) {
		return eventKindNames[k]
	}
	return "UNKNOWN"
}

// once reports whether k may fire at most once per Info.
func (k EventKind) once() bool { return k != EventUpdate }

type Event struct {
	Kind      EventKind
	RequestID uint64
	Pos       Vec3i
	Type      Type
	Progress  float64
	Drop      *Entity
	Reason    string
}

// Listener receives the lifecycle events of a request's actions.
type Listener interface {
	HandleActionEvent(ev Event)
}

type ListenerFunc func(ev Event)

func (f ListenerFunc) HandleActionEvent(ev Event) { f(ev) }

// Category classifies how an action ended, for diagnostics.
type Category string

const (
	CategoryConfirmed Category = "confirmed"
	CategoryImmediate Category = "immediate"
	CategoryRejected  Category = "rejected"
	CategoryTimeout   Category = "timeout"
	CategoryEvicted   Category = "evicted"
	CategoryCancelled Category = "cancelled"
	CategoryRebroke   Category = "rebroke"
	CategoryReset     Category = "reset"
)

type ActionKind string

const (
	KindDestroy ActionKind = "destroy"
	KindPlace   ActionKind = "place"
)

type Outcome struct {
	At            time.Time
	RequestID     uint64
	Owner         string
	Kind          ActionKind
	Type          Type
	Pos           Vec3i
	Category      Category
	ProgressTicks int
}

// Recorder receives one Outcome per finished action.
type Recorder interface {
	Record(o Outcome)
}

type RecorderFunc func(o Outcome)

func (f RecorderFunc) Record(o Outcome) { f(o) }

// MultiRecorder fans an outcome out to every non-nil recorder.
type MultiRecorder []Recorder

func (m MultiRecorder) Record(o Outcome) {
	for _, r := range m {
		if r != nil {
			r.Record(o)
		}
	}
}
