package action

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Harpoon is the bookmark-slot store: slot key token -> launch target. Slots
// survive restarts through a small YAML state file. Capture runs the
// configured focus command to ask the environment what is focused right now
// (e.g. a swaymsg/xdotool one-liner) and bookmarks its output.
type Harpoon struct {
	statePath string
	focusCmd  string
	log       zerolog.Logger

	mu    sync.Mutex
	slots map[string]string
}

// NewHarpoon loads the slot table from statePath if it exists. A missing or
// unreadable state file starts empty rather than failing; the daemon is
// useful without bookmarks.
func NewHarpoon(statePath, focusCmd string, log zerolog.Logger) *Harpoon {
	h := &Harpoon{
		statePath: statePath,
		focusCmd:  focusCmd,
		log:       log,
		slots:     make(map[string]string),
	}

	data, err := os.ReadFile(statePath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", statePath).Msg("harpoon state unreadable, starting empty")
		}
		return h
	}
	if err := yaml.Unmarshal(data, &h.slots); err != nil {
		log.Warn().Err(err).Str("path", statePath).Msg("harpoon state corrupt, starting empty")
		h.slots = make(map[string]string)
	}
	return h
}

// Capture probes the focused target via the focus command and stores it
// under slot.
func (h *Harpoon) Capture(ctx context.Context, slot string) error {
	if h.focusCmd == "" {
		return fmt.Errorf("no focus command configured")
	}

	out, err := exec.CommandContext(ctx, "/bin/sh", "-c", h.focusCmd).Output()
	if err != nil {
		return fmt.Errorf("focus command: %w", err)
	}
	target := strings.TrimSpace(string(out))
	if target == "" {
		return fmt.Errorf("focus command produced no target")
	}

	h.Set(slot, target)
	return nil
}

// Set stores a target under slot and persists.
func (h *Harpoon) Set(slot, target string) {
	h.mu.Lock()
	h.slots[slot] = target
	h.persistLocked()
	h.mu.Unlock()
}

// Get returns the target stored under slot.
func (h *Harpoon) Get(slot string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	target, ok := h.slots[slot]
	return target, ok
}

// Remove clears one slot and persists.
func (h *Harpoon) Remove(slot string) {
	h.mu.Lock()
	delete(h.slots, slot)
	h.persistLocked()
	h.mu.Unlock()
}

// ResetAll clears every slot and persists.
func (h *Harpoon) ResetAll() {
	h.mu.Lock()
	h.slots = make(map[string]string)
	h.persistLocked()
	h.mu.Unlock()
}

// Slots returns a copy of the slot table.
func (h *Harpoon) Slots() map[string]string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]string, len(h.slots))
	for k, v := range h.slots {
		out[k] = v
	}
	return out
}

func (h *Harpoon) persistLocked() {
	data, err := yaml.Marshal(h.slots)
	if err != nil {
		h.log.Error().Err(err).Msg("harpoon state marshal failed")
		return
	}
	if err := os.MkdirAll(filepath.Dir(h.statePath), 0o755); err != nil {
		h.log.Error().Err(err).Str("path", h.statePath).Msg("harpoon state dir failed")
		return
	}
	if err := os.WriteFile(h.statePath, data, 0o644); err != nil {
		h.log.Error().Err(err).Str("path", h.statePath).Msg("harpoon state write failed")
	}
}
