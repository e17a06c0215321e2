// Package trace records scheduling decisions to a gob-encoded stream,
// for later consumption by the (out-of-scope) Gantt-chart tool.
//
// Events are a tagged union over gob: each Event wraps one concrete
// action type, registered with gob.Register so the decoder can
// recover its dynamic type. There is no socket here, only an
// append-only log of what the scheduler core told its harness to do.
package trace

import (
	"encoding/gob"
	"io"
	"sync"
)

// Event wraps one of the concrete action types below.
type Event struct {
	Action interface{}
}

// ContextSwitch records one schedule step's hand-off to the harness.
type ContextSwitch struct {
	Tick       uint64
	CPU        int
	Idle       bool
	PID        uint64
	Name       string
	SliceTicks int64 // -1 means infinite
}

// ForcePreempt records one wake_up preemption-probe decision.
type ForcePreempt struct {
	Tick uint64
	CPU  int
}

func init() {
	gob.Register(ContextSwitch{})
	gob.Register(ForcePreempt{})
}

// Recorder serializes Events to an underlying writer. Safe for
// concurrent use: multiple CPU goroutines may record simultaneously.
type Recorder struct {
	mu  sync.Mutex
	enc *gob.Encoder
}

// NewRecorder returns a Recorder writing to w.
func NewRecorder(w io.Writer) *Recorder {
	return &Recorder{enc: gob.NewEncoder(w)}
}

func (r *Recorder) record(action interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enc.Encode(Event{Action: action})
}

// RecordContextSwitch appends a ContextSwitch event.
func (r *Recorder) RecordContextSwitch(cs ContextSwitch) error {
	return r.record(cs)
}

// RecordForcePreempt appends a ForcePreempt event.
func (r *Recorder) RecordForcePreempt(fp ForcePreempt) error {
	return r.record(fp)
}

// Reader deserializes Events previously written by a Recorder.
type Reader struct {
	dec *gob.Decoder
}

// NewReader returns a Reader reading from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: gob.NewDecoder(r)}
}

// Next returns the next event's concrete action (a ContextSwitch or
// ForcePreempt), or an error (io.EOF at end of stream).
func (rd *Reader) Next() (interface{}, error) {
	var e Event
	if err := rd.dec.Decode(&e); err != nil {
		return nil, err
	}
	return e.Action, nil
}
