// Package gateway is the Linux event gateway: it claims a keyboard device via
// evdev EVIOCGRAB so raw key events reach nothing but this process, and owns a
// uinput virtual keyboard through which forwarded and synthesized events are
// re-delivered to the rest of the system. Suppressing an event is simply not
// re-injecting it.
package gateway

import (
	"fmt"
	"time"

	"github.com/mthorne/leaderd/internal/keycode"
)

// Event is one key transition read from the grabbed device. Mods is the
// modifier mask as of this event, maintained by the reader; the core carries
// it opaquely for tap replay.
type Event struct {
	Code keycode.Code
	Down bool
	Mods keycode.Modifiers
	Time time.Time
}

// InstallError reports a failure to set up the event hook: opening or
// grabbing the input device, or creating the uinput sink. The feature cannot
// run at all when this is returned; callers decide whether to exit or run
// disabled.
type InstallError struct {
	Stage string // "open", "grab", "uinput"
	Path  string
	Err   error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("event hook install failed (%s %s): %v", e.Stage, e.Path, e.Err)
}

func (e *InstallError) Unwrap() error {
	return e.Err
}
