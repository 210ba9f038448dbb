package gateway

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/mthorne/leaderd/internal/keycode"
)

// DeviceInfo describes one keyboard-capable input device.
type DeviceInfo struct {
	Path string
	Name string
}

// ListKeyboards scans /dev/input for devices that report EV_KEY capability
// with the full letter row. Devices we cannot open (usually a permissions
// problem) are skipped silently; run as root or in the input group.
func ListKeyboards() ([]DeviceInfo, error) {
	matches, err := filepath.Glob("/dev/input/event*")
	if err != nil {
		return nil, fmt.Errorf("scan /dev/input: %w", err)
	}

	var devices []DeviceInfo
	for _, path := range matches {
		f, err := os.OpenFile(path, os.O_RDONLY, 0)
		if err != nil {
			continue
		}
		if isKeyboard(int(f.Fd())) {
			name, err := deviceName(int(f.Fd()))
			if err != nil {
				name = path
			}
			devices = append(devices, DeviceInfo{Path: path, Name: name})
		}
		f.Close()
	}

	sort.Slice(devices, func(i, j int) bool { return devices[i].Path < devices[j].Path })
	return devices, nil
}

// FindKeyboard resolves a device selector: an explicit /dev path is used
// as-is, anything else is a case-insensitive substring match against device
// names. An empty selector picks the first keyboard found.
func FindKeyboard(selector string) (DeviceInfo, error) {
	if strings.HasPrefix(selector, "/dev/") {
		return DeviceInfo{Path: selector, Name: selector}, nil
	}

	devices, err := ListKeyboards()
	if err != nil {
		return DeviceInfo{}, err
	}
	if len(devices) == 0 {
		return DeviceInfo{}, fmt.Errorf("no keyboard devices found under /dev/input (are you in the input group?)")
	}

	if selector == "" {
		return devices[0], nil
	}
	want := strings.ToLower(selector)
	for _, d := range devices {
		if strings.Contains(strings.ToLower(d.Name), want) {
			return d, nil
		}
	}
	return DeviceInfo{}, fmt.Errorf("no keyboard matching %q (run list-devices to see candidates)", selector)
}

// isKeyboard checks the device advertises EV_KEY and at least the letter
// keys a..z.
func isKeyboard(fd int) bool {
	var evBits [8]byte
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), eviocGBitEv, uintptr(unsafe.Pointer(&evBits[0]))); errno != 0 {
		return false
	}
	if !bitSet(evBits[:], evKey) {
		return false
	}

	var keyBits [96]byte
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), eviocGBitKy, uintptr(unsafe.Pointer(&keyBits[0]))); errno != 0 {
		return false
	}
	for _, code := range []keycode.Code{keycode.CodeQ, keycode.CodeA, keycode.CodeZ, keycode.CodeSpace} {
		if !bitSet(keyBits[:], int(code)) {
			return false
		}
	}
	return true
}

func bitSet(bits []byte, n int) bool {
	if n/8 >= len(bits) {
		return false
	}
	return bits[n/8]&(1<<(n%8)) != 0
}
