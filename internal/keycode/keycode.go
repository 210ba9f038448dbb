package keycode

import (
	"fmt"
	"strings"
)

// Code is a Linux evdev key code (KEY_* from input-event-codes.h).
type Code uint16

// Key codes for every key the mapping table knows about.
const (
	CodeNone Code = 0

	CodeEsc        Code = 1
	Code1          Code = 2
	Code2          Code = 3
	Code3          Code = 4
	Code4          Code = 5
	Code5          Code = 6
	Code6          Code = 7
	Code7          Code = 8
	Code8          Code = 9
	Code9          Code = 10
	Code0          Code = 11
	CodeMinus      Code = 12
	CodeEqual      Code = 13
	CodeBackspace  Code = 14
	CodeTab        Code = 15
	CodeQ          Code = 16
	CodeW          Code = 17
	CodeE          Code = 18
	CodeR          Code = 19
	CodeT          Code = 20
	CodeY          Code = 21
	CodeU          Code = 22
	CodeI          Code = 23
	CodeO          Code = 24
	CodeP          Code = 25
	CodeLeftBrace  Code = 26
	CodeRightBrace Code = 27
	CodeEnter      Code = 28
	CodeLeftCtrl   Code = 29
	CodeA          Code = 30
	CodeS          Code = 31
	CodeD          Code = 32
	CodeF          Code = 33
	CodeG          Code = 34
	CodeH          Code = 35
	CodeJ          Code = 36
	CodeK          Code = 37
	CodeL          Code = 38
	CodeSemicolon  Code = 39
	CodeApostrophe Code = 40
	CodeGrave      Code = 41
	CodeLeftShift  Code = 42
	CodeBackslash  Code = 43
	CodeZ          Code = 44
	CodeX          Code = 45
	CodeC          Code = 46
	CodeV          Code = 47
	CodeB          Code = 48
	CodeN          Code = 49
	CodeM          Code = 50
	CodeComma      Code = 51
	CodeDot        Code = 52
	CodeSlash      Code = 53
	CodeRightShift Code = 54
	CodeLeftAlt    Code = 56
	CodeSpace      Code = 57
	CodeCapsLock   Code = 58
	CodeF1         Code = 59
	CodeF2         Code = 60
	CodeF3         Code = 61
	CodeF4         Code = 62
	CodeF5         Code = 63
	CodeF6         Code = 64
	CodeF7         Code = 65
	CodeF8         Code = 66
	CodeF9         Code = 67
	CodeF10        Code = 68
	CodeNumLock    Code = 69
	CodeScrollLock Code = 70
	CodeF11        Code = 87
	CodeF12        Code = 88
	CodeRightCtrl  Code = 97
	CodeRightAlt   Code = 100
	CodeHome       Code = 102
	CodeUp         Code = 103
	CodePageUp     Code = 104
	CodeLeft       Code = 105
	CodeRight      Code = 106
	CodeEnd        Code = 107
	CodeDown       Code = 108
	CodePageDown   Code = 109
	CodeInsert     Code = 110
	CodeDelete     Code = 111
	CodeLeftMeta   Code = 125
	CodeRightMeta  Code = 126
)

// nameToCode maps canonical token names to key codes.
var nameToCode = map[string]Code{
	"a": CodeA, "b": CodeB, "c": CodeC, "d": CodeD, "e": CodeE,
	"f": CodeF, "g": CodeG, "h": CodeH, "i": CodeI, "j": CodeJ,
	"k": CodeK, "l": CodeL, "m": CodeM, "n": CodeN, "o": CodeO,
	"p": CodeP, "q": CodeQ, "r": CodeR, "s": CodeS, "t": CodeT,
	"u": CodeU, "v": CodeV, "w": CodeW, "x": CodeX, "y": CodeY,
	"z": CodeZ,

	"0": Code0, "1": Code1, "2": Code2, "3": Code3, "4": Code4,
	"5": Code5, "6": Code6, "7": Code7, "8": Code8, "9": Code9,

	"f1": CodeF1, "f2": CodeF2, "f3": CodeF3, "f4": CodeF4,
	"f5": CodeF5, "f6": CodeF6, "f7": CodeF7, "f8": CodeF8,
	"f9": CodeF9, "f10": CodeF10, "f11": CodeF11, "f12": CodeF12,

	"esc":       CodeEsc,
	"enter":     CodeEnter,
	"tab":       CodeTab,
	"space":     CodeSpace,
	"backspace": CodeBackspace,
	"delete":    CodeDelete,
	"insert":    CodeInsert,
	"home":      CodeHome,
	"end":       CodeEnd,
	"pageup":    CodePageUp,
	"pagedown":  CodePageDown,
	"up":        CodeUp,
	"down":      CodeDown,
	"left":      CodeLeft,
	"right":     CodeRight,

	"minus":      CodeMinus,
	"equal":      CodeEqual,
	"leftbrace":  CodeLeftBrace,
	"rightbrace": CodeRightBrace,
	"semicolon":  CodeSemicolon,
	"apostrophe": CodeApostrophe,
	"grave":      CodeGrave,
	"backslash":  CodeBackslash,
	"comma":      CodeComma,
	"dot":        CodeDot,
	"slash":      CodeSlash,

	"capslock":   CodeCapsLock,
	"numlock":    CodeNumLock,
	"scrolllock": CodeScrollLock,

	"leftshift":  CodeLeftShift,
	"rightshift": CodeRightShift,
	"leftctrl":   CodeLeftCtrl,
	"rightctrl":  CodeRightCtrl,
	"leftalt":    CodeLeftAlt,
	"rightalt":   CodeRightAlt,
	"leftmeta":   CodeLeftMeta,
	"rightmeta":  CodeRightMeta,
}

// aliases fold alternate spellings to canonical token names.
var aliases = map[string]string{
	"return":   "enter",
	"escape":   "esc",
	"del":      "delete",
	"ins":      "insert",
	"pgup":     "pageup",
	"pgdn":     "pagedown",
	"period":   "dot",
	"hyphen":   "minus",
	"dash":     "minus",
	"equals":   "equal",
	"quote":    "apostrophe",
	"backtick": "grave",
	"caps":     "capslock",

	"lshift": "leftshift",
	"rshift": "rightshift",
	"shift":  "leftshift",
	"lctrl":  "leftctrl",
	"rctrl":  "rightctrl",
	"ctrl":   "leftctrl",
	"lalt":   "leftalt",
	"ralt":   "rightalt",
	"alt":    "leftalt",
	"lmeta":  "leftmeta",
	"rmeta":  "rightmeta",
	"meta":   "leftmeta",
	"lcmd":   "leftmeta",
	"rcmd":   "rightmeta",
	"cmd":    "leftmeta",
	"super":  "leftmeta",
	"win":    "leftmeta",
	"hyper":  "rightmeta",
}

// codeToName is the reverse of nameToCode, canonical names only.
var codeToName = func() map[Code]string {
	m := make(map[Code]string, len(nameToCode))
	for name, code := range nameToCode {
		m[code] = name
	}
	return m
}()

// Canonical folds a key token to its canonical form: lowercased, aliases
// resolved. Unknown tokens are returned lowercased so callers get a stable
// value to report.
func Canonical(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if canon, ok := aliases[n]; ok {
		return canon
	}
	return n
}

// FromName resolves a key token (canonical or alias) to its evdev code.
func FromName(name string) (Code, bool) {
	code, ok := nameToCode[Canonical(name)]
	return code, ok
}

// Name returns the canonical token for a code, or "key<N>" for codes
// outside the mapping table.
func Name(code Code) string {
	if name, ok := codeToName[code]; ok {
		return name
	}
	return fmt.Sprintf("key%d", code)
}

// Known reports whether the code has a canonical token name.
func Known(code Code) bool {
	_, ok := codeToName[code]
	return ok
}
