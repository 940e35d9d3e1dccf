package orchestrate

import "sync"

// Action identifies which of the three pipelines an in-flight token
// belongs to. The source app gated all three behind one boolean; a
// token per action kind keeps the pipelines from clearing each
// other's gate if they ever run concurrently.
type Action int

const (
	ActionAsk Action = iota
	ActionVoice
	ActionVideo
)

func (a Action) String() string {
	switch a {
	case ActionAsk:
		return "ask"
	case ActionVoice:
		return "voice"
	case ActionVideo:
		return "video"
	default:
		return "unknown"
	}
}

// inflight is the set of held action tokens. A second submission of
// an action kind is rejected while one is in flight, never queued.
type inflight struct {
	mu   sync.Mutex
	busy map[Action]bool
}

func newInflight() *inflight {
	return &inflight{busy: make(map[Action]bool)}
}

// begin acquires the token for a, reporting whether it was free.
func (f *inflight) begin(a Action) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.busy[a] {
		return false
	}
	f.busy[a] = true
	return true
}

// end releases the token for a. Releasing a free token is a no-op.
func (f *inflight) end(a Action) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.busy[a] = false
}

// held reports whether the token for a is currently held.
func (f *inflight) held(a Action) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.busy[a]
}
