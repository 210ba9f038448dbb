package keycode

import "strings"

// Modifiers is a bitmask of held modifier keys. The gateway maintains it from
// modifier key transitions and attaches it to each event; the engine carries
// it opaquely for tap replay.
type Modifiers uint8

const (
	ModShift Modifiers = 1 << iota
	ModCtrl
	ModAlt
	ModMeta
)

// modifierBits maps modifier key codes to their mask bit.
var modifierBits = map[Code]Modifiers{
	CodeLeftShift:  ModShift,
	CodeRightShift: ModShift,
	CodeLeftCtrl:   ModCtrl,
	CodeRightCtrl:  ModCtrl,
	CodeLeftAlt:    ModAlt,
	CodeRightAlt:   ModAlt,
	CodeLeftMeta:   ModMeta,
	CodeRightMeta:  ModMeta,
}

// ModifierBit returns the mask bit for a modifier key code, or 0 if the code
// is not a modifier.
func ModifierBit(code Code) Modifiers {
	return modifierBits[code]
}

// IsModifier reports whether the code is a modifier key.
func IsModifier(code Code) bool {
	_, ok := modifierBits[code]
	return ok
}

func (m Modifiers) String() string {
	if m == 0 {
		return "none"
	}
	var parts []string
	if m&ModShift != 0 {
		parts = append(parts, "shift")
	}
	if m&ModCtrl != 0 {
		parts = append(parts, "ctrl")
	}
	if m&ModAlt != 0 {
		parts = append(parts, "alt")
	}
	if m&ModMeta != 0 {
		parts = append(parts, "meta")
	}
	return strings.Join(parts, "+")
}
