package gateway

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/mthorne/leaderd/internal/keycode"
)

// evdev ioctl requests (linux/input.h).
const (
	eviocGrab   = 0x40044590 // EVIOCGRAB
	eviocGName  = 0x81004506 // EVIOCGNAME(256)
	eviocGBitEv = 0x80084520 // EVIOCGBIT(0, 8)
	eviocGBitKy = 0x80604521 // EVIOCGBIT(EV_KEY, 96)
)

// input_event type and value fields (linux/input-event-codes.h).
const (
	evSyn = 0x00
	evKey = 0x01

	valueUp     = 0
	valueDown   = 1
	valueRepeat = 2
)

const eventSize = int(unsafe.Sizeof(unix.InputEvent{}))

// Device is a grabbed evdev keyboard. While grabbed, no other client (the
// compositor included) sees its events; everything funnels through
// ReadEvents and is either re-injected or dropped.
type Device struct {
	path string
	f    *os.File

	mu      sync.Mutex
	closed  bool
	grabbed bool
	mods    keycode.Modifiers
}

// OpenDevice opens and grabs the keyboard at path. Failure to open or grab
// is an *InstallError.
func OpenDevice(path string) (*Device, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, &InstallError{Stage: "open", Path: path, Err: err}
	}

	d := &Device{path: path, f: f}
	if err := d.grab(); err != nil {
		f.Close()
		return nil, &InstallError{Stage: "grab", Path: path, Err: err}
	}
	return d, nil
}

func (d *Device) grab() error {
	if err := unix.IoctlSetInt(int(d.f.Fd()), eviocGrab, 1); err != nil {
		return fmt.Errorf("EVIOCGRAB: %w", err)
	}
	d.grabbed = true
	return nil
}

// Path returns the device node path.
func (d *Device) Path() string {
	return d.path
}

// Name reads the device's self-reported name.
func (d *Device) Name() string {
	name, err := deviceName(int(d.f.Fd()))
	if err != nil {
		return d.path
	}
	return name
}

// Close releases the grab and closes the device node.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	if d.grabbed {
		// Best effort: the grab dies with the fd anyway.
		_ = unix.IoctlSetInt(int(d.f.Fd()), eviocGrab, 0)
	}
	return d.f.Close()
}

// ReadEvents decodes key transitions from the device and sends them on the
// channel until the context is cancelled or the device goes away. Auto-repeat
// is delivered as a repeated down.
func (d *Device) ReadEvents(ctx context.Context, events chan<- Event) error {
	buf := make([]byte, eventSize*64)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := d.f.Read(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read %s: %w", d.path, err)
		}

		for off := 0; off+eventSize <= n; off += eventSize {
			raw := *(*unix.InputEvent)(unsafe.Pointer(&buf[off]))
			ev, ok := d.translate(raw)
			if !ok {
				continue
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// translate turns a raw input_event into a gateway Event, updating the
// modifier mask as modifier keys transition. Non-key records and key codes
// outside the mapping table are dropped.
func (d *Device) translate(raw unix.InputEvent) (Event, bool) {
	if raw.Type != evKey {
		return Event{}, false
	}

	code := keycode.Code(raw.Code)
	if !keycode.Known(code) {
		return Event{}, false
	}

	down := raw.Value != valueUp

	d.mu.Lock()
	if bit := keycode.ModifierBit(code); bit != 0 {
		if down {
			d.mods |= bit
		} else {
			d.mods &^= bit
		}
	}
	mods := d.mods
	d.mu.Unlock()

	return Event{
		Code: code,
		Down: down,
		Mods: mods,
		Time: time.Unix(int64(raw.Time.Sec), int64(raw.Time.Usec)*1000),
	}, true
}

func deviceName(fd int) (string, error) {
	var buf [256]byte
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), eviocGName, uintptr(unsafe.Pointer(&buf[0])))
	if errno != 0 {
		return "", errno
	}
	n := 0
	for n < len(buf) && buf[n] != 0 {
		n++
	}
	return string(buf[:n]), nil
}
