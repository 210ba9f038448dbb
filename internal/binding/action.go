package binding

import (
	"fmt"
	"strings"
)

// Kind discriminates the Action variants.
type Kind int

const (
	KindNone Kind = iota
	KindOpenApp
	KindRunCommand
	KindTypeKeys
	KindReset
	KindHarpoonSet
	KindHarpoonRemove
	KindHarpoonGo
	KindHarpoonResetAll
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindOpenApp:
		return "open_app"
	case KindRunCommand:
		return "run_command"
	case KindTypeKeys:
		return "type_keys"
	case KindReset:
		return "reset"
	case KindHarpoonSet:
		return "harpoon_set"
	case KindHarpoonRemove:
		return "harpoon_remove"
	case KindHarpoonGo:
		return "harpoon_go"
	case KindHarpoonResetAll:
		return "harpoon_reset_all"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Action is a resolved binding outcome. Which fields are meaningful depends
// on Kind: Target for OpenApp, Command for RunCommand, Keys for TypeKeys,
// Slot for the harpoon variants. The harpoon Slot is filled at match time
// with the last token of the matched path, never at parse time.
type Action struct {
	Kind    Kind
	Target  string
	Command string
	Keys    []string
	Slot    string
}

// OpenApp returns an action that launches an application.
func OpenApp(target string) Action {
	return Action{Kind: KindOpenApp, Target: target}
}

// RunCommand returns an action that runs a shell command.
func RunCommand(command string) Action {
	return Action{Kind: KindRunCommand, Command: command}
}

// TypeKeys returns an action that emits the given key tokens.
func TypeKeys(keys []string) Action {
	return Action{Kind: KindTypeKeys, Keys: keys}
}

// Reset returns the action that sends the matcher cursor back to the root.
func Reset() Action {
	return Action{Kind: KindReset}
}

// Harpoon returns a harpoon-slot action of the given kind with no slot bound.
func Harpoon(kind Kind) Action {
	return Action{Kind: kind}
}

// NeedsSlot reports whether the action takes a slot key resolved from the
// matched path.
func (a Action) NeedsSlot() bool {
	switch a.Kind {
	case KindHarpoonSet, KindHarpoonRemove, KindHarpoonGo:
		return true
	}
	return false
}

// WithSlot returns a copy of the action with the slot key bound.
func (a Action) WithSlot(slot string) Action {
	a.Slot = slot
	return a
}

func (a Action) String() string {
	switch a.Kind {
	case KindOpenApp:
		return fmt.Sprintf("open_app(%s)", a.Target)
	case KindRunCommand:
		return fmt.Sprintf("run_command(%s)", a.Command)
	case KindTypeKeys:
		return fmt.Sprintf("type_keys(%s)", strings.Join(a.Keys, " "))
	case KindHarpoonSet, KindHarpoonRemove, KindHarpoonGo:
		return fmt.Sprintf("%s(%s)", a.Kind, a.Slot)
	default:
		return a.Kind.String()
	}
}
