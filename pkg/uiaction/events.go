package uiaction

import "time"

// Outcome is the result class of an operation.
type Outcome string

const (
	OutcomeOK     Outcome = "ok"
	OutcomeFailed Outcome = "failed"
)

// Event describes one completed BrowserAction operation.
type Event struct {
	Time     time.Time
	Engine   string
	Op       string
	Target   string
	Outcome  Outcome
	Duration time.Duration
	Err      error
}

// Code returns the error code of the event, or "" when it succeeded.
func (e Event) Code() string {
	return Code(e.Err)
}

// EventSink receives operation events. Implementations must be safe for
// concurrent use and must not block for long.
type EventSink interface {
	Emit(Event)
}

// SinkFunc adapts a function to EventSink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// NopSink discards events.
type NopSink struct{}

func (NopSink) Emit(Event) {}

// MultiSink fans an event out to several sinks in order.
type MultiSink []EventSink

func (m MultiSink) Emit(e Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(e)
		}
	}
}

// Recorder stamps and forwards events for one engine instance.
type Recorder struct {
	engine string
	sink   EventSink
	now    func() time.Time
}

// NewRecorder returns a recorder for engine. A nil sink discards events.
func NewRecorder(engine string, sink EventSink) *Recorder {
	if sink == nil {
		sink = NopSink{}
	}
	return &Recorder{engine: engine, sink: sink, now: time.Now}
}

// Now returns the recorder clock.
func (r *Recorder) Now() time.Time {
	return r.now()
}

// Record emits an event for op on target that started at start.
//
//	start := a.rec.Now()
//	defer func() { a.rec.Record("click", t, start, err) }()
func (r *Recorder) Record(op string, target Target, start time.Time, err error) {
	end := r.now()
	e := Event{
		Time:     end,
		Engine:   r.engine,
		Op:       op,
		Outcome:  OutcomeOK,
		Duration: end.Sub(start),
		Err:      err,
	}
	if target != nil {
		e.Target = target.Describe()
	}
	if err != nil {
		e.Outcome = OutcomeFailed
	}
	r.sink.Emit(e)
}
