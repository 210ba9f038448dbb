package gateway

import (
	"context"
	"sync/atomic"

	"github.com/mthorne/leaderd/internal/keycode"
)

// Session ties a grabbed device to its injector and implements the narrow
// surface the engine consumes: synthesize a key transition, and gate whether
// real events are delivered to the engine at all.
type Session struct {
	dev      *Device
	inj      *Injector
	disabled atomic.Bool
}

// OpenSession grabs the keyboard described by info and creates the uinput
// sink. Either failure is an *InstallError.
func OpenSession(info DeviceInfo) (*Session, error) {
	dev, err := OpenDevice(info.Path)
	if err != nil {
		return nil, err
	}
	inj, err := NewInjector()
	if err != nil {
		dev.Close()
		return nil, err
	}
	return &Session{dev: dev, inj: inj}, nil
}

// Device returns the grabbed keyboard.
func (s *Session) Device() *Device {
	return s.dev
}

// Injector returns the uinput sink, for collaborators that type keys
// directly.
func (s *Session) Injector() *Injector {
	return s.inj
}

// ReadEvents streams key transitions from the grabbed device.
func (s *Session) ReadEvents(ctx context.Context, events chan<- Event) error {
	return s.dev.ReadEvents(ctx, events)
}

// Forward re-injects a real event downstream unchanged.
func (s *Session) Forward(ev Event) error {
	return s.inj.WriteKey(ev.Code, ev.Down)
}

// Synthesize posts a synthetic key transition as if typed by the user. The
// mods are accepted for interface compatibility; on evdev the modifier state
// downstream is whatever modifier keys are actually forwarded.
func (s *Session) Synthesize(code keycode.Code, down bool, _ keycode.Modifiers) error {
	return s.inj.WriteKey(code, down)
}

// SetTapEnabled gates delivery of real events to the engine. While disabled,
// the run loop forwards everything straight through, so a synthesized pair
// cannot be re-intercepted.
func (s *Session) SetTapEnabled(enabled bool) {
	s.disabled.Store(!enabled)
}

// TapEnabled reports whether events should be delivered to the engine.
func (s *Session) TapEnabled() bool {
	return !s.disabled.Load()
}

// Close releases the device grab and destroys the virtual keyboard.
func (s *Session) Close() error {
	err := s.dev.Close()
	if cerr := s.inj.Close(); err == nil {
		err = cerr
	}
	return err
}
