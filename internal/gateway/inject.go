package gateway

import (
	"fmt"
	"os"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/mthorne/leaderd/internal/keycode"
)

// uinput ioctl requests (linux/uinput.h).
const (
	uiSetEvBit  = 0x40045564 // UI_SET_EVBIT
	uiSetKeyBit = 0x40045565 // UI_SET_KEYBIT
	uiDevSetup  = 0x405c5503 // UI_DEV_SETUP
	uiDevCreate = 0x00005501 // UI_DEV_CREATE
	uiDevDelete = 0x00005502 // UI_DEV_DESTROY
)

const uinputPath = "/dev/uinput"

// uinputSetup mirrors struct uinput_setup.
type uinputSetup struct {
	BusType      uint16
	Vendor       uint16
	Product      uint16
	Version      uint16
	Name         [80]byte
	FFEffectsMax uint32
}

// Injector is the virtual keyboard that re-delivers forwarded events and
// posts synthesized ones. To every downstream consumer its output is
// indistinguishable from a physical keyboard.
type Injector struct {
	mu     sync.Mutex
	f      *os.File
	closed bool
}

// NewInjector creates the uinput device. Failure is an *InstallError: without
// the sink, grabbing the real keyboard would eat the user's input.
func NewInjector() (*Injector, error) {
	f, err := os.OpenFile(uinputPath, os.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, &InstallError{Stage: "uinput", Path: uinputPath, Err: err}
	}

	inj := &Injector{f: f}
	if err := inj.setup(); err != nil {
		f.Close()
		return nil, &InstallError{Stage: "uinput", Path: uinputPath, Err: err}
	}
	return inj, nil
}

func (inj *Injector) setup() error {
	fd := int(inj.f.Fd())

	if err := unix.IoctlSetInt(fd, uiSetEvBit, evKey); err != nil {
		return fmt.Errorf("UI_SET_EVBIT: %w", err)
	}
	if err := unix.IoctlSetInt(fd, uiSetEvBit, evSyn); err != nil {
		return fmt.Errorf("UI_SET_EVBIT: %w", err)
	}
	// Register every key code evdev keyboards can produce so forwarding is
	// never rejected for an unregistered code.
	for code := 1; code < 256; code++ {
		if err := unix.IoctlSetInt(fd, uiSetKeyBit, code); err != nil {
			return fmt.Errorf("UI_SET_KEYBIT %d: %w", code, err)
		}
	}

	setup := uinputSetup{BusType: unix.BUS_VIRTUAL, Vendor: 0x1d50, Product: 0x4c4b, Version: 1}
	copy(setup.Name[:], "leaderd virtual keyboard")
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uiDevSetup, uintptr(unsafe.Pointer(&setup))); errno != 0 {
		return fmt.Errorf("UI_DEV_SETUP: %w", errno)
	}
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uiDevCreate, 0); errno != 0 {
		return fmt.Errorf("UI_DEV_CREATE: %w", errno)
	}
	return nil
}

// WriteKey posts one key transition followed by a SYN report.
func (inj *Injector) WriteKey(code keycode.Code, down bool) error {
	inj.mu.Lock()
	defer inj.mu.Unlock()

	if inj.closed {
		return fmt.Errorf("injector closed")
	}

	value := int32(valueUp)
	if down {
		value = valueDown
	}
	if err := inj.writeEvent(evKey, uint16(code), value); err != nil {
		return err
	}
	return inj.writeEvent(evSyn, 0, 0)
}

func (inj *Injector) writeEvent(typ, code uint16, value int32) error {
	ev := unix.InputEvent{Type: typ, Code: code, Value: value}
	buf := (*[eventSize]byte)(unsafe.Pointer(&ev))[:]
	if _, err := inj.f.Write(buf); err != nil {
		return fmt.Errorf("uinput write: %w", err)
	}
	return nil
}

// Close destroys the virtual device.
func (inj *Injector) Close() error {
	inj.mu.Lock()
	defer inj.mu.Unlock()

	if inj.closed {
		return nil
	}
	inj.closed = true

	_, _, _ = unix.Syscall(unix.SYS_IOCTL, inj.f.Fd(), uiDevDelete, 0)
	return inj.f.Close()
}
