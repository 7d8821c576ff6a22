package toast

import "time"

// Kind is the severity of a toast.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
	KindWarning Kind = "warning"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindSuccess, KindError, KindInfo, KindWarning:
		return true
	}
	return false
}

// State is the queue's display state.
type State int

const (
	StateIdle State = iota
	StateShowing
	StateHiding
)

func (s State) String() string {
	switch s {
	case StateShowing:
		return "showing"
	case StateHiding:
		return "hiding"
	default:
		return "idle"
	}
}

const (
	DefaultDuration = 3 * time.Second
	DefaultGap      = 250 * time.Millisecond
)

// Request is one pending toast.
type Request struct {
	Message  string
	Duration time.Duration
	Kind     Kind
}

// Snapshot is the state a surface renders.
type Snapshot struct {
	Message string
	Kind    Kind
	Visible bool
	State   State
}

// Surface renders queue state. Render is called with the queue locked, in
// transition order, so it must not call back into the Queue.
type Surface interface {
	Render(Snapshot)
}

// SurfaceFunc adapts a function to Surface.
type SurfaceFunc func(Snapshot)

func (f SurfaceFunc) Render(s Snapshot) { f(s) }

// ShowOption customizes a single Show call.
type ShowOption func(*Request)

// WithDuration sets how long the toast stays visible. Non-positive values keep the default.
func WithDuration(d time.Duration) ShowOption {
	return func(r *Request) {
		if d > 0 {
			r.Duration = d
		}
	}
}

// WithKind sets the toast kind. Unknown kinds keep the default.
func WithKind(k Kind) ShowOption {
	return func(r *Request) {
		if k.Valid() {
			r.Kind = k
		}
	}
}
