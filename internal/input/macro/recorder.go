package macro

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/keyforge/internal/input/key"
	"github.com/dshills/keyforge/internal/input/keymap"
)

// State is the recorder lifecycle state.
type State uint8

const (
	Idle State = iota
	Recording
	Stopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", s)
	}
}

// ErrInvalidState is returned when an operation is not allowed in the
// recorder's current state.
var ErrInvalidState = errors.New("invalid recorder state")

// Recorder captures a keystroke timeline.
type Recorder struct {
	mu sync.Mutex

	state     State
	session   string
	startedAt time.Time
	origin    time.Time
	events    []Event
	pending   []Event
	editing   bool

	now        func() time.Time
	normalizer *key.Normalizer
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithClock sets the time source used to stamp recorded events.
func WithClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// WithRecorderNormalizer sets the normalizer applied to recorded codes.
func WithRecorderNormalizer(n *key.Normalizer) RecorderOption {
	return func(r *Recorder) {
		if n != nil {
			r.normalizer = n
		}
	}
}

// NewRecorder creates an idle recorder.
func NewRecorder(opts ...RecorderOption) *Recorder {
	r := &Recorder{
		now:        time.Now,
		normalizer: key.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns the current state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Session returns the id assigned by the latest Start, or "".
func (r *Recorder) Session() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}

// StartedAt returns when the latest recording began.
func (r *Recorder) StartedAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startedAt
}

// Start begins a new recording. Any previous timeline and unconfirmed
// edits are discarded. Starting while already recording is an error.
func (r *Recorder) Start() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == Recording {
		return "", fmt.Errorf("%w: already recording session %s", ErrInvalidState, r.session)
	}

	r.state = Recording
	r.session = uuid.NewString()
	r.startedAt = r.now()
	r.origin = time.Time{}
	r.events = nil
	r.pending = nil
	r.editing = false
	return r.session, nil
}

// Record appends an event stamped with the recorder clock.
// It returns false when the recorder is not recording.
func (r *Recorder) Record(code key.ID, value keymap.Value) bool {
	return r.RecordAt(code, value, r.now())
}

// RecordAt appends an event that happened at t. Events stamped before the
// first event of the recording are clamped to offset 0; events that go
// back in time are clamped to the previous offset.
func (r *Recorder) RecordAt(code key.ID, value keymap.Value, t time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != Recording {
		return false
	}
	if r.origin.IsZero() {
		r.origin = t
	}

	var us uint64
	if d := t.Sub(r.origin); d > 0 {
		us = uint64(d / time.Microsecond)
	}
	if n := len(r.events); n > 0 && us < r.events[n-1].TimestampUS {
		us = r.events[n-1].TimestampUS
	}

	r.events = append(r.events, Event{
		Code:        r.normalizer.Normalize(string(code)),
		Value:       value,
		TimestampUS: us,
	})
	return true
}

// Len returns the number of recorded events.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Stop ends the recording and returns the recorded timeline.
func (r *Recorder) Stop() ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != Recording {
		return nil, fmt.Errorf("%w: stop while %s", ErrInvalidState, r.state)
	}
	r.state = Stopped
	return r.copyEvents(), nil
}

// Reset returns the recorder to Idle and drops everything it holds.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state = Idle
	r.session = ""
	r.startedAt = time.Time{}
	r.origin = time.Time{}
	r.events = nil
	r.pending = nil
	r.editing = false
}

// Events returns a copy of the confirmed timeline.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.copyEvents()
}

func (r *Recorder) copyEvents() []Event {
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Edit replaces the pending (unconfirmed) timeline. The edit is rebased and
// normalized. It is only allowed once stopped.
func (r *Recorder) Edit(events []Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != Stopped {
		return fmt.Errorf("%w: edit while %s", ErrInvalidState, r.state)
	}
	r.pending = Rebase(Normalize(events, r.normalizer))
	r.editing = true
	return nil
}

// Pending returns the unconfirmed edit, if any.
func (r *Recorder) Pending() ([]Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.editing {
		return nil, false
	}
	out := make([]Event, len(r.pending))
	copy(out, r.pending)
	return out, true
}

// ConfirmEdits makes the pending edit the recorded timeline.
func (r *Recorder) ConfirmEdits() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != Stopped {
		return fmt.Errorf("%w: confirm while %s", ErrInvalidState, r.state)
	}
	if r.editing {
		r.events = r.pending
		r.pending = nil
		r.editing = false
	}
	return nil
}

// DiscardEdits drops the pending edit.
func (r *Recorder) DiscardEdits() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != Stopped {
		return fmt.Errorf("%w: discard while %s", ErrInvalidState, r.state)
	}
	r.pending = nil
	r.editing = false
	return nil
}

// Encode renders the confirmed timeline as a macro bound to trigger.
func (r *Recorder) Encode(trigger key.ID, opts EncodeOptions) (string, error) {
	r.mu.Lock()
	if r.state != Stopped {
		state := r.state
		r.mu.Unlock()
		return "", fmt.Errorf("%w: encode while %s", ErrInvalidState, state)
	}
	events := r.copyEvents()
	r.mu.Unlock()

	return Encode(events, trigger, opts), nil
}

// Document returns the export document for the confirmed timeline.
func (r *Recorder) Document(name string, trigger key.ID) (*Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != Stopped {
		return nil, fmt.Errorf("%w: export while %s", ErrInvalidState, r.state)
	}
	return NewDocument(name, trigger, r.startedAt, r.copyEvents()), nil
}
