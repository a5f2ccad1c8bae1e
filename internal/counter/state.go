package counter

// Phase is the coarse state of the counter.
type Phase int

const (
	Loading Phase = iota
	Loaded
	Failed
)

func (p Phase) String() string {
	switch p {
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is an immutable snapshot of the counter. Count is meaningful only
// when Phase is Loaded, Err only when Phase is Failed.
type State struct {
	Phase Phase
	Count int
	Err   error
}

// Event is a poll completion fed to State.Apply.
type Event interface {
	isEvent()
}

// PollSucceeded carries a decoded count.
type PollSucceeded struct {
	Count int
}

// PollFailed carries the reason a poll did not produce a count.
type PollFailed struct {
	Err error
}

func (PollSucceeded) isEvent() {}
func (PollFailed) isEvent()    {}

// Initial is the state of a freshly mounted counter.
func Initial() State { return State{Phase: Loading} }

// Apply returns the state after e. A success always clears the previous
// error and a failure always drops the previous count.
func (s State) Apply(e Event) State {
	switch ev := e.(type) {
	case PollSucceeded:
		if ev.Count < 0 {
			return State{Phase: Failed, Err: &DecodeError{Reason: "negative count"}}
		}
		return State{Phase: Loaded, Count: ev.Count}
	case PollFailed:
		return State{Phase: Failed, Err: ev.Err}
	default:
		return s
	}
}

// ShowCount reports whether the count line is rendered. Loaded(0) renders nothing.
func (s State) ShowCount() bool { return s.Phase == Loaded && s.Count > 0 }

// ShowError reports whether the error message is rendered.
func (s State) ShowError() bool { return s.Phase == Failed }
