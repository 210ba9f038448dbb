package engine

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mthorne/leaderd/internal/binding"
	"github.com/mthorne/leaderd/internal/keycode"
)

// Disposition tells the gateway what to do with the event it just delivered.
type Disposition int

const (
	// Forward re-injects the event downstream unchanged.
	Forward Disposition = iota
	// Suppress swallows the event.
	Suppress
)

func (d Disposition) String() string {
	if d == Suppress {
		return "suppress"
	}
	return "forward"
}

// Synthesizer is the slice of the event gateway the engine needs for tap
// replay. Synthesize posts a key transition as if typed by the user;
// SetTapEnabled pauses and resumes delivery of real events to the engine
// around a synthesized pair.
type Synthesizer interface {
	Synthesize(code keycode.Code, down bool, mods keycode.Modifiers) error
	SetTapEnabled(enabled bool)
}

// Hooks are optional observer callbacks. They are invoked synchronously from
// the event-handling context and must not block or call back into the engine.
type Hooks struct {
	CursorChanged  func(path []string)
	InvalidKey     func(token string)
	MasterHeld     func(held bool)
	ActionResolved func(action binding.Action)
}

// Config is one configuration generation: the master key, the tap/hold
// boundary, and the binding tree. Swapped whole via Apply.
type Config struct {
	MasterKey  keycode.Code
	TapTimeout time.Duration
	Root       *binding.Node
}

// masterState is the disambiguator state.
type masterState int

const (
	stateIdle masterState = iota
	statePending
	stateHeld
)

func (s masterState) String() string {
	switch s {
	case statePending:
		return "pending"
	case stateHeld:
		return "held"
	default:
		return "idle"
	}
}

// Engine is the input disambiguation and sequence-matching core. It
// classifies master-key presses as tap or hold, and while the master key is
// held walks the binding tree one token at a time, emitting resolved actions
// through Hooks.ActionResolved.
//
// All state is guarded by one mutex; HandleKey, Apply, Reset and the timer
// callback serialize on it, so "key released" and "timer fired" can never
// race. Nothing under the lock blocks.
type Engine struct {
	synth Synthesizer
	hooks Hooks
	clock Clock
	log   zerolog.Logger

	mu       sync.Mutex
	cfg      Config
	state    masterState
	downAt   time.Time
	downMods keycode.Modifiers
	timer    Timer
	timerGen uint64
	path     []string
	cursor   *binding.Node
}

// New creates an engine using the system clock.
func New(cfg Config, synth Synthesizer, hooks Hooks, log zerolog.Logger) *Engine {
	return NewWithClock(cfg, synth, hooks, log, SystemClock{})
}

// NewWithClock creates an engine with an injectable clock for tests.
func NewWithClock(cfg Config, synth Synthesizer, hooks Hooks, log zerolog.Logger, clock Clock) *Engine {
	return &Engine{
		synth:  synth,
		hooks:  hooks,
		clock:  clock,
		log:    log,
		cfg:    cfg,
		cursor: cfg.Root,
	}
}

// HandleKey processes one key transition from the gateway and returns
// whether the gateway should forward or suppress it. Events must arrive in
// order from a single goroutine.
func (e *Engine) HandleKey(code keycode.Code, down bool, mods keycode.Modifiers, ts time.Time) Disposition {
	e.mu.Lock()
	defer e.mu.Unlock()

	isMaster := code == e.cfg.MasterKey

	switch e.state {
	case stateIdle:
		if isMaster && down {
			e.beginPending(mods, ts)
			return Suppress
		}
		// Everything else passes through untouched, including a spurious
		// master up whose down we never suppressed.
		return Forward

	case statePending:
		if isMaster && down {
			// OS auto-repeat while the timer is still running.
			return Suppress
		}
		if isMaster && !down {
			e.classifyTap(mods, ts)
			return Suppress
		}
		// Another key before classification: not part of a sequence, the
		// master key may still turn out to be a tap. Pass it through.
		return Forward

	case stateHeld:
		if isMaster && down {
			return Suppress
		}
		if isMaster && !down {
			e.leaveHeld()
			return Suppress
		}
		if down {
			e.consumeToken(keycode.Name(code))
		}
		// Sequence key ups are suppressed and otherwise ignored.
		return Suppress
	}

	return Forward
}

// Apply swaps in a new configuration generation. Any in-progress
// classification or sequence is abandoned: pending timer cancelled, state
// back to idle, cursor back to root.
func (e *Engine) Apply(cfg Config) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cancelTimer()
	wasHeld := e.state == stateHeld
	e.state = stateIdle
	e.cfg = cfg
	e.path = nil
	e.cursor = cfg.Root

	if wasHeld && e.hooks.MasterHeld != nil {
		e.hooks.MasterHeld(false)
	}
	e.notifyCursor()
	e.log.Debug().Msg("engine: configuration applied")
}

// Reset abandons any in-progress classification or sequence without changing
// configuration. Idempotent.
func (e *Engine) Reset() {
	e.Apply(e.config())
}

// Stop cancels any pending timer. The engine must not be used afterwards.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelTimer()
	e.state = stateIdle
}

// Held reports whether the master key is currently held.
func (e *Engine) Held() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == stateHeld
}

// Path returns a copy of the current sequence path.
func (e *Engine) Path() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.path))
	copy(out, e.path)
	return out
}

func (e *Engine) config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// beginPending starts the tap/hold race for a fresh master-key down.
func (e *Engine) beginPending(mods keycode.Modifiers, ts time.Time) {
	e.state = statePending
	e.downAt = ts
	e.downMods = mods

	e.timerGen++
	gen := e.timerGen
	e.timer = e.clock.AfterFunc(e.cfg.TapTimeout, func() {
		e.onTapTimeout(gen)
	})
}

// classifyTap handles a master-key release that beat the timer: cancel the
// race and stand in a synthesized down+up pair for the suppressed originals.
func (e *Engine) classifyTap(upMods keycode.Modifiers, ts time.Time) {
	e.cancelTimer()
	e.state = stateIdle

	e.log.Debug().
		Dur("held_for", ts.Sub(e.downAt)).
		Msg("engine: master key tapped, replaying")

	e.synth.SetTapEnabled(false)
	err := e.synth.Synthesize(e.cfg.MasterKey, true, e.downMods)
	if err == nil {
		err = e.synth.Synthesize(e.cfg.MasterKey, false, upMods)
	}
	e.synth.SetTapEnabled(true)

	if err != nil {
		// The tap is lost rather than double-delivered; state is already
		// back to idle.
		e.log.Warn().Err(err).Msg("engine: tap replay failed, key press lost")
	}

	e.downMods = 0
}

// onTapTimeout fires when the master key has been down for the full timeout.
// A stale generation means a tap or reset won the race first.
func (e *Engine) onTapTimeout(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != statePending || gen != e.timerGen {
		return
	}

	e.timer = nil
	e.downMods = 0
	e.state = stateHeld
	e.path = nil
	e.cursor = e.cfg.Root

	e.log.Debug().Msg("engine: master key held, capturing sequence")
	if e.hooks.MasterHeld != nil {
		e.hooks.MasterHeld(true)
	}
	e.notifyCursor()
}

// leaveHeld handles the master-key release that ends sequence capture. The
// cursor goes back to the root no matter how deep it was.
func (e *Engine) leaveHeld() {
	e.state = stateIdle
	e.path = nil
	e.cursor = e.cfg.Root

	e.log.Debug().Msg("engine: master key released")
	if e.hooks.MasterHeld != nil {
		e.hooks.MasterHeld(false)
	}
	e.notifyCursor()
}

// consumeToken advances the matcher by one key token while held.
func (e *Engine) consumeToken(token string) {
	next, ok := e.cursor.Child(token)
	if ok {
		e.path = append(e.path, token)
	} else {
		// Not a child of the cursor: fall back to the root of the tree,
		// discarding the old path. Ancestor levels are deliberately skipped.
		next, ok = e.cfg.Root.Child(token)
		if !ok {
			e.log.Debug().Str("token", token).Strs("path", e.path).
				Msg("engine: key not bound at cursor")
			if e.hooks.InvalidKey != nil {
				e.hooks.InvalidKey(token)
			}
			return
		}
		e.path = append(e.path[:0], token)
	}
	e.cursor = next

	if !e.cursor.IsLeaf() {
		// Branch: wait for the next token.
		e.notifyCursor()
		return
	}

	if e.cursor.Action != nil {
		act := *e.cursor.Action
		if act.Kind == binding.KindReset {
			e.path = nil
			e.cursor = e.cfg.Root
			e.notifyCursor()
			return
		}
		if act.NeedsSlot() {
			act = act.WithSlot(e.path[len(e.path)-1])
		}
		e.log.Debug().Stringer("action", act).Strs("path", e.path).
			Msg("engine: action resolved")
		if e.hooks.ActionResolved != nil {
			e.hooks.ActionResolved(act)
		}
	}

	e.revert()
	e.notifyCursor()
}

// revert pops the leaf just visited and recomputes the cursor by re-walking
// the tree along the shortened path. One pop per resolved leaf, never a full
// unwind.
func (e *Engine) revert() {
	e.path = e.path[:len(e.path)-1]
	// The shortened path was produced by walking this same immutable tree,
	// so the re-walk cannot miss.
	e.cursor = e.cfg.Root.WalkPath(e.path)
}

func (e *Engine) cancelTimer() {
	e.timerGen++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

func (e *Engine) notifyCursor() {
	if e.hooks.CursorChanged == nil {
		return
	}
	path := make([]string, len(e.path))
	copy(path, e.path)
	e.hooks.CursorChanged(path)
}
