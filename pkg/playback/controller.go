// Package playback sequences loading and playing a generated media
// artifact and signals completion, replacing the nested media-element
// callbacks of the source app with an explicit state machine.
package playback

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// State is the playback controller's position in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateLoading
	StatePlaying
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Player loads and plays a single media source. Load returns once the
// media can play through; Play returns at the natural end of the
// stream (or when the context is canceled). The source is passed to
// both calls so an interrupted run and its replacement never share
// state through the player.
type Player interface {
	Load(ctx context.Context, src string) error
	Play(ctx context.Context, src string) error
}

// Result is delivered on Done when a playback run terminates.
type Result struct {
	Src string // The source that was played
	Err error  // nil on a natural end of stream
}

// Controller drives one artifact at a time through
// Idle → Loading → Playing → Finished. A new source arriving while
// playing (or after finishing) interrupts the current run and resets
// to Loading. Completion is signaled on Done rather than through
// callbacks so the caller can clear its processing gate in one place.
type Controller struct {
	player Player
	logger *zap.Logger

	mu    sync.Mutex
	state State
	gen   int
	stop  context.CancelFunc

	done chan Result
}

// NewController creates a controller in the Idle state.
func NewController(player Player, logger *zap.Logger) *Controller {
	return &Controller{
		player: player,
		logger: logger,
		state:  StateIdle,
		done:   make(chan Result, 1),
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Done delivers one Result per playback run that reaches a terminal
// outcome. Interrupted runs do not report; only their replacement does.
func (c *Controller) Done() <-chan Result {
	return c.done
}

// Start begins playing src, interrupting any run already in flight.
func (c *Controller) Start(ctx context.Context, src string) {
	c.mu.Lock()
	if c.stop != nil {
		// Interrupt the current run; its generation is now stale and
		// will not transition or report.
		c.stop()
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.stop = cancel
	c.gen++
	gen := c.gen
	c.state = StateLoading
	c.mu.Unlock()

	c.logger.Debug("playback loading", zap.String("src", src))

	go c.run(runCtx, gen, src)
}

func (c *Controller) run(ctx context.Context, gen int, src string) {
	if err := c.player.Load(ctx, src); err != nil {
		c.finish(gen, Result{Src: src, Err: err}, StateIdle)
		return
	}

	if !c.transition(gen, StatePlaying) {
		return
	}
	c.logger.Debug("playback playing", zap.String("src", src))

	if err := c.player.Play(ctx, src); err != nil {
		c.finish(gen, Result{Src: src, Err: err}, StateIdle)
		return
	}

	c.finish(gen, Result{Src: src}, StateFinished)
}

// transition moves to next if gen is still current.
func (c *Controller) transition(gen int, next State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		return false
	}
	c.state = next
	return true
}

// finish records the terminal state and reports the result, unless
// this run was interrupted by a newer one.
func (c *Controller) finish(gen int, res Result, terminal State) {
	if !c.transition(gen, terminal) {
		return
	}

	if res.Err != nil {
		c.logger.Warn("playback failed", zap.String("src", res.Src), zap.Error(res.Err))
	} else {
		c.logger.Debug("playback finished", zap.String("src", res.Src))
	}

	select {
	case c.done <- res:
	default:
		// Nobody drained the previous result; drop the stale one.
		select {
		case <-c.done:
		default:
		}
		c.done <- res
	}
}
