package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mthorne/leaderd/internal/binding"
	"github.com/mthorne/leaderd/internal/keycode"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
device: "AT Translated Set 2 keyboard"
master_key: capslock
tap_timeout_ms: 250

harpoon:
  state_file: /tmp/leaderd-harpoon.yaml
  focus_command: "echo firefox"

bindings:
  o:
    a: {type: run_command, command: "echo A"}
    b: {type: open_app, target: "galculator"}
  t: {type: type_keys, keys: [g, g]}
  h:
    s:
      "1": {type: harpoon_set}
  esc: {type: reset}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Device != "AT Translated Set 2 keyboard" {
		t.Errorf("Device = %q", cfg.Device)
	}
	if cfg.MasterCode() != keycode.CodeCapsLock {
		t.Errorf("MasterCode = %d, want capslock", cfg.MasterCode())
	}
	if cfg.TapTimeout() != 250*time.Millisecond {
		t.Errorf("TapTimeout = %v, want 250ms", cfg.TapTimeout())
	}
	if cfg.Harpoon.FocusCommand != "echo firefox" {
		t.Errorf("FocusCommand = %q", cfg.Harpoon.FocusCommand)
	}

	root, err := cfg.Compile()
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	n := root.WalkPath([]string{"o", "a"})
	if n == nil || n.Action == nil || n.Action.Kind != binding.KindRunCommand || n.Action.Command != "echo A" {
		t.Errorf("o.a = %+v, want run_command(echo A)", n)
	}
	n = root.WalkPath([]string{"t"})
	if n == nil || n.Action == nil || len(n.Action.Keys) != 2 {
		t.Errorf("t = %+v, want type_keys(g g)", n)
	}
	n = root.WalkPath([]string{"h", "s", "1"})
	if n == nil || n.Action == nil || n.Action.Kind != binding.KindHarpoonSet {
		t.Errorf("h.s.1 = %+v, want harpoon_set", n)
	}
	if n.Action.Slot != "" {
		t.Errorf("harpoon slot bound at parse time to %q, must stay empty", n.Action.Slot)
	}
	n = root.WalkPath([]string{"esc"})
	if n == nil || n.Action == nil || n.Action.Kind != binding.KindReset {
		t.Errorf("esc = %+v, want reset", n)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
bindings:
  a: {type: run_command, command: "true"}
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MasterKey != "capslock" {
		t.Errorf("default MasterKey = %q, want capslock", cfg.MasterKey)
	}
	if cfg.TapTimeoutMs != 200 {
		t.Errorf("default TapTimeoutMs = %d, want 200", cfg.TapTimeoutMs)
	}
	if cfg.Harpoon.StateFile == "" {
		t.Error("default harpoon state file is empty")
	}
}

func TestLoadFoldsKeyAliases(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
master_key: caps
bindings:
  return: {type: run_command, command: "true"}
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MasterCode() != keycode.CodeCapsLock {
		t.Errorf("MasterCode = %d, want capslock", cfg.MasterCode())
	}
	root, _ := cfg.Compile()
	if root.WalkPath([]string{"enter"}) == nil {
		t.Error("alias return did not fold to enter in the tree")
	}
}

func TestLoadEmptyLeaf(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
bindings:
  o:
    x: {}
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	root, _ := cfg.Compile()
	n := root.WalkPath([]string{"o", "x"})
	if n == nil || !n.IsLeaf() || n.Action != nil {
		t.Errorf("o.x = %+v, want empty leaf", n)
	}
}

func TestLoadRejections(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unknown master key",
			content: "master_key: capslok\n",
			wantErr: "master_key",
		},
		{
			name: "unknown key token",
			content: `
bindings:
  notakey: {type: reset}
`,
			wantErr: "unknown key token",
		},
		{
			name: "unknown action type",
			content: `
bindings:
  a: {type: teleport}
`,
			wantErr: "unknown action type",
		},
		{
			name: "open_app without target",
			content: `
bindings:
  a: {type: open_app}
`,
			wantErr: "needs a target",
		},
		{
			name: "run_command without command",
			content: `
bindings:
  a: {type: run_command}
`,
			wantErr: "needs a command",
		},
		{
			name: "type_keys with unknown key",
			content: `
bindings:
  a: {type: type_keys, keys: [bogus]}
`,
			wantErr: "unknown key",
		},
		{
			name: "alias collision",
			content: `
bindings:
  enter: {type: reset}
  return: {type: reset}
`,
			wantErr: "bound twice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Load succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestCreateDefaultIsLoadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := CreateDefault(path, "My Keyboard"); err != nil {
		t.Fatalf("CreateDefault: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load of generated config: %v", err)
	}
	if cfg.Device != "My Keyboard" {
		t.Errorf("Device = %q, want My Keyboard", cfg.Device)
	}
}

func TestUpdateDevicePreservesRest(t *testing.T) {
	path := writeConfig(t, `device: old-board
master_key: f12
tap_timeout_ms: 300
bindings:
  a: {type: run_command, command: "true"}
`)

	if err := UpdateDevice(path, "new-board"); err != nil {
		t.Fatalf("UpdateDevice: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load after update: %v", err)
	}
	if cfg.Device != "new-board" {
		t.Errorf("Device = %q, want new-board", cfg.Device)
	}
	if cfg.MasterKey != "f12" || cfg.TapTimeoutMs != 300 {
		t.Errorf("update disturbed other fields: %+v", cfg)
	}
}
