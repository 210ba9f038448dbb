package action

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"github.com/mthorne/leaderd/internal/binding"
	"github.com/mthorne/leaderd/internal/keycode"
)

type typedKey struct {
	code keycode.Code
	down bool
}

type fakeTyper struct {
	keys []typedKey
	err  error
}

func (f *fakeTyper) WriteKey(code keycode.Code, down bool) error {
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, typedKey{code, down})
	return nil
}

func testHarpoon(t *testing.T) *Harpoon {
	t.Helper()
	state := filepath.Join(t.TempDir(), "harpoon.yaml")
	return NewHarpoon(state, "echo focused-app", zerolog.Nop())
}

func TestTypeKeysEmitsDownUpPairs(t *testing.T) {
	typer := &fakeTyper{}
	x := NewExecutor(typer, testHarpoon(t), zerolog.Nop())

	x.typeKeys([]string{"g", "enter"})

	want := []typedKey{
		{keycode.CodeG, true},
		{keycode.CodeG, false},
		{keycode.CodeEnter, true},
		{keycode.CodeEnter, false},
	}
	if !reflect.DeepEqual(typer.keys, want) {
		t.Errorf("typed keys = %v, want %v", typer.keys, want)
	}
}

func TestTypeKeysSkipsUnknownTokens(t *testing.T) {
	typer := &fakeTyper{}
	x := NewExecutor(typer, testHarpoon(t), zerolog.Nop())

	x.typeKeys([]string{"nosuchkey", "a"})

	want := []typedKey{
		{keycode.CodeA, true},
		{keycode.CodeA, false},
	}
	if !reflect.DeepEqual(typer.keys, want) {
		t.Errorf("typed keys = %v, want %v", typer.keys, want)
	}
}

func TestTypeKeysFoldsAliases(t *testing.T) {
	typer := &fakeTyper{}
	x := NewExecutor(typer, testHarpoon(t), zerolog.Nop())

	x.typeKeys([]string{"return"})

	if len(typer.keys) != 2 || typer.keys[0].code != keycode.CodeEnter {
		t.Errorf("typed keys = %v, want enter pair", typer.keys)
	}
}

func TestHarpoonGoSpawnsNothingForEmptySlot(t *testing.T) {
	// Guard against accidentally shelling out on an empty slot: Execute with
	// an unset slot must be a no-op beyond the log line.
	typer := &fakeTyper{}
	x := NewExecutor(typer, testHarpoon(t), zerolog.Nop())

	x.Execute(binding.Harpoon(binding.KindHarpoonGo).WithSlot("9"))

	if len(typer.keys) != 0 {
		t.Errorf("typed keys = %v, want none", typer.keys)
	}
}
