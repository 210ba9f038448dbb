package action

import (
	"context"
	"os/exec"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/mthorne/leaderd/internal/binding"
	"github.com/mthorne/leaderd/internal/keycode"
)

// KeyTyper is the slice of the gateway the executor needs to emit key
// tokens downstream.
type KeyTyper interface {
	WriteKey(code keycode.Code, down bool) error
}

const (
	typeKeyDelay = 5 * time.Millisecond
	captureLimit = 2 * time.Second
)

// Executor consumes resolved actions. Execute never blocks: side effects run
// in detached processes or background goroutines, and failures are logged,
// never returned to the engine.
type Executor struct {
	typer   KeyTyper
	harpoon *Harpoon
	log     zerolog.Logger
}

// NewExecutor creates an executor writing keys through typer and bookmark
// slots through harpoon.
func NewExecutor(typer KeyTyper, harpoon *Harpoon, log zerolog.Logger) *Executor {
	return &Executor{typer: typer, harpoon: harpoon, log: log}
}

// Execute dispatches one resolved action fire-and-forget.
func (x *Executor) Execute(act binding.Action) {
	x.log.Info().Stringer("action", act).Msg("executing")

	switch act.Kind {
	case binding.KindOpenApp:
		x.spawn(act.Target)
	case binding.KindRunCommand:
		x.spawn(act.Command)
	case binding.KindTypeKeys:
		go x.typeKeys(act.Keys)
	case binding.KindHarpoonSet:
		go x.captureSlot(act.Slot)
	case binding.KindHarpoonRemove:
		go x.harpoon.Remove(act.Slot)
	case binding.KindHarpoonGo:
		if target, ok := x.harpoon.Get(act.Slot); ok {
			x.spawn(target)
		} else {
			x.log.Warn().Str("slot", act.Slot).Msg("harpoon slot is empty")
		}
	case binding.KindHarpoonResetAll:
		go x.harpoon.ResetAll()
	default:
		x.log.Warn().Stringer("action", act).Msg("no executor for action")
	}
}

// spawn starts a detached shell command and reaps it in the background. The
// child gets its own session so it outlives us and never holds our terminal.
func (x *Executor) spawn(command string) {
	if command == "" {
		x.log.Warn().Msg("refusing to spawn empty command")
		return
	}

	cmd := exec.Command("/bin/sh", "-c", command)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		x.log.Error().Err(err).Str("command", command).Msg("spawn failed")
		return
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			x.log.Debug().Err(err).Str("command", command).Msg("command exited")
		}
	}()
}

// typeKeys emits each token as a down+up pair with a short settle delay so
// clients polling at frame rate do not miss transitions.
func (x *Executor) typeKeys(tokens []string) {
	for _, tok := range tokens {
		code, ok := keycode.FromName(tok)
		if !ok {
			x.log.Warn().Str("token", tok).Msg("cannot type unknown key")
			continue
		}
		if err := x.writeKeyTap(code); err != nil {
			x.log.Error().Err(err).Str("token", tok).Msg("type key failed")
			return
		}
		time.Sleep(typeKeyDelay)
	}
}

func (x *Executor) writeKeyTap(code keycode.Code) error {
	if err := x.typer.WriteKey(code, true); err != nil {
		return err
	}
	return x.typer.WriteKey(code, false)
}

// captureSlot probes the currently focused target and bookmarks it.
func (x *Executor) captureSlot(slot string) {
	ctx, cancel := context.WithTimeout(context.Background(), captureLimit)
	defer cancel()

	if err := x.harpoon.Capture(ctx, slot); err != nil {
		x.log.Error().Err(err).Str("slot", slot).Msg("harpoon capture failed")
		return
	}
	target, _ := x.harpoon.Get(slot)
	x.log.Info().Str("slot", slot).Str("target", target).Msg("harpoon slot set")
}
