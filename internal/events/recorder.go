package events

// Recorder is the bounded, order-preserving event buffer of spec §4.5. One
// Recorder is scoped to exactly one instruction: Open appends the Header,
// the engine appends matching events as it produces them, and Flush hands
// the ordered slice to the host's log channel exactly once.
type Recorder struct {
	capacity int
	events   []Event
	flushed  bool
}

// NewRecorder constructs an empty recorder with the given fixed capacity
// (spec §5 "Event buffer capacity is fixed").
func NewRecorder(capacity int) *Recorder {
	return &Recorder{capacity: capacity, events: make([]Event, 0, capacity)}
}

// Open appends the instruction's Header event. Must be called before any
// other emission.
func (r *Recorder) Open(header Header) error {
	return r.append(Event{Kind: KindHeader, Header: header})
}

// EmitPlace appends a Place event.
func (r *Recorder) EmitPlace(e Place) error {
	return r.append(Event{Kind: KindPlace, Place: e})
}

// EmitFill appends a Fill event.
func (r *Recorder) EmitFill(e Fill) error {
	return r.append(Event{Kind: KindFill, Fill: e})
}

// EmitReduce appends a Reduce event.
func (r *Recorder) EmitReduce(e Reduce) error {
	return r.append(Event{Kind: KindReduce, Reduce: e})
}

// EmitFillSummary appends a FillSummary event.
func (r *Recorder) EmitFillSummary(e FillSummary) error {
	return r.append(Event{Kind: KindFillSummary, FillSummary: e})
}

// EmitFee appends a Fee event.
func (r *Recorder) EmitFee(e Fee) error {
	return r.append(Event{Kind: KindFee, Fee: e})
}

func (r *Recorder) append(e Event) error {
	if r.flushed {
		return ErrAlreadyFlushed
	}
	if len(r.events) >= r.capacity {
		return ErrEventLogFull
	}
	r.events = append(r.events, e)
	return nil
}

// Len reports the number of events recorded so far this instruction.
func (r *Recorder) Len() int { return len(r.events) }

// Flush returns the ordered event slice and marks the recorder closed: no
// further emission is permitted (spec §4.5 "No event may be emitted after
// flush").
func (r *Recorder) Flush() []Event {
	r.flushed = true
	return r.events
}

// Discard drops every event recorded so far without flushing, for the
// FOK/engine-fault rollback path of spec §4.4.3/§7 ("any error aborts ...
// and reverts ... all emitted events"). The recorder remains open and
// reusable for a retried or fallback attempt within the same instruction.
func (r *Recorder) Discard() {
	r.events = r.events[:0]
}

// Snapshot len for a rollback point, paired with TruncateTo to support
// voiding only the tail of a buffer (e.g. a FOK packet run mid-instruction
// after other successful operations already emitted events that must
// survive the revert).
func (r *Recorder) Mark() int { return len(r.events) }

// TruncateTo drops every event recorded after the given Mark, implementing
// the partial-void half of spec §4.4.3's FOK-failure rollback without
// discarding unrelated events already committed earlier in the same
// instruction.
func (r *Recorder) TruncateTo(mark int) {
	r.events = r.events[:mark]
}
