package gateway

import (
	"testing"

	"golang.org/x/sys/unix"

	"github.com/mthorne/leaderd/internal/keycode"
)

func key(code keycode.Code, value int32) unix.InputEvent {
	return unix.InputEvent{Type: evKey, Code: uint16(code), Value: value}
}

func TestTranslateKeyTransitions(t *testing.T) {
	d := &Device{}

	ev, ok := d.translate(key(keycode.CodeA, valueDown))
	if !ok {
		t.Fatal("key down not translated")
	}
	if ev.Code != keycode.CodeA || !ev.Down {
		t.Errorf("event = %+v, want down a", ev)
	}

	ev, ok = d.translate(key(keycode.CodeA, valueUp))
	if !ok || ev.Down {
		t.Errorf("key up = %+v ok=%v, want up a", ev, ok)
	}
}

func TestTranslateAutoRepeatIsDown(t *testing.T) {
	d := &Device{}
	ev, ok := d.translate(key(keycode.CodeCapsLock, valueRepeat))
	if !ok || !ev.Down {
		t.Errorf("repeat = %+v ok=%v, want a down transition", ev, ok)
	}
}

func TestTranslateDropsNonKeyRecords(t *testing.T) {
	d := &Device{}
	if _, ok := d.translate(unix.InputEvent{Type: evSyn}); ok {
		t.Error("SYN record was not dropped")
	}
	if _, ok := d.translate(unix.InputEvent{Type: 0x04, Code: 4, Value: 30}); ok {
		t.Error("MSC record was not dropped")
	}
	// Key codes outside the mapping table are dropped too.
	if _, ok := d.translate(key(keycode.Code(600), valueDown)); ok {
		t.Error("unmapped key code was not dropped")
	}
}

func TestTranslateTracksModifiers(t *testing.T) {
	d := &Device{}

	ev, _ := d.translate(key(keycode.CodeLeftShift, valueDown))
	if ev.Mods != keycode.ModShift {
		t.Errorf("mods after shift down = %v, want shift", ev.Mods)
	}

	ev, _ = d.translate(key(keycode.CodeA, valueDown))
	if ev.Mods != keycode.ModShift {
		t.Errorf("mods on a while shift held = %v, want shift", ev.Mods)
	}

	ev, _ = d.translate(key(keycode.CodeLeftMeta, valueDown))
	if ev.Mods != keycode.ModShift|keycode.ModMeta {
		t.Errorf("mods = %v, want shift+meta", ev.Mods)
	}

	ev, _ = d.translate(key(keycode.CodeLeftShift, valueUp))
	if ev.Mods != keycode.ModMeta {
		t.Errorf("mods after shift up = %v, want meta", ev.Mods)
	}

	// Releasing either shift clears the shared bit; the mask has no
	// per-side state beyond the key codes themselves.
	d = &Device{}
	d.translate(key(keycode.CodeLeftShift, valueDown))
	d.translate(key(keycode.CodeRightShift, valueDown))
	ev, _ = d.translate(key(keycode.CodeLeftShift, valueUp))
	if ev.Mods != 0 {
		t.Errorf("mods after left shift up = %v, want none", ev.Mods)
	}
}

func TestSessionTapGate(t *testing.T) {
	s := &Session{}
	if !s.TapEnabled() {
		t.Fatal("new session should deliver events")
	}
	s.SetTapEnabled(false)
	if s.TapEnabled() {
		t.Error("gate did not close")
	}
	s.SetTapEnabled(true)
	if !s.TapEnabled() {
		t.Error("gate did not reopen")
	}
}

func TestBitSet(t *testing.T) {
	bits := []byte{0b0000_0010, 0b1000_0000}
	if !bitSet(bits, 1) {
		t.Error("bit 1 should be set")
	}
	if !bitSet(bits, 15) {
		t.Error("bit 15 should be set")
	}
	if bitSet(bits, 0) || bitSet(bits, 8) {
		t.Error("unset bits reported as set")
	}
	if bitSet(bits, 99) {
		t.Error("out-of-range bit reported as set")
	}
}
