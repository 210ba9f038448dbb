package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mthorne/leaderd/internal/binding"
	"github.com/mthorne/leaderd/internal/keycode"
)

type Config struct {
	Device       string        `yaml:"device"`
	MasterKey    string        `yaml:"master_key"`
	TapTimeoutMs int           `yaml:"tap_timeout_ms"`
	Harpoon      HarpoonConfig `yaml:"harpoon"`
	Bindings     yaml.Node     `yaml:"bindings"`
}

type HarpoonConfig struct {
	StateFile    string `yaml:"state_file,omitempty"`
	FocusCommand string `yaml:"focus_command,omitempty"`
}

// Load reads, validates and defaults a config file. The binding tree is
// compiled here too so a broken file is rejected whole instead of half
// applying.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.MasterKey == "" {
		c.MasterKey = "capslock"
	}
	if c.TapTimeoutMs == 0 {
		c.TapTimeoutMs = 200
	}
	if c.Harpoon.StateFile == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.Harpoon.StateFile = filepath.Join(home, ".local", "state", "leaderd", "harpoon.yaml")
		} else {
			c.Harpoon.StateFile = "harpoon.yaml"
		}
	}
}

func (c *Config) validate() error {
	if _, ok := keycode.FromName(c.MasterKey); !ok {
		return fmt.Errorf("master_key: unknown key %q", c.MasterKey)
	}
	if c.TapTimeoutMs < 0 {
		return fmt.Errorf("tap_timeout_ms must be positive, got %d", c.TapTimeoutMs)
	}
	if _, err := c.Compile(); err != nil {
		return err
	}
	return nil
}

// MasterCode returns the resolved master key code. Valid after Load.
func (c *Config) MasterCode() keycode.Code {
	code, _ := keycode.FromName(c.MasterKey)
	return code
}

// TapTimeout returns the tap/hold boundary as a duration.
func (c *Config) TapTimeout() time.Duration {
	return time.Duration(c.TapTimeoutMs) * time.Millisecond
}

// Compile builds an immutable binding tree from the bindings mapping. Each
// key maps either to a nested mapping (branch), an action object with a
// "type" field, or an empty mapping (leaf with no action). Key tokens are
// canonicalized and must name keys the mapping table knows.
func (c *Config) Compile() (*binding.Node, error) {
	if c.Bindings.Kind == 0 {
		// No bindings at all: an empty tree is legal, just useless.
		return binding.NewBranch(nil), nil
	}
	return compileBranch(&c.Bindings, "bindings")
}

// actionSpec is the YAML shape of one action object.
type actionSpec struct {
	Type    string   `yaml:"type"`
	Target  string   `yaml:"target,omitempty"`
	Command string   `yaml:"command,omitempty"`
	Keys    []string `yaml:"keys,omitempty"`
}

func compileBranch(node *yaml.Node, at string) (*binding.Node, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%s: expected a mapping", at)
	}

	if isActionNode(node) {
		return compileAction(node, at)
	}

	if len(node.Content) == 0 {
		return binding.NewEmptyLeaf(), nil
	}

	children := make(map[string]*binding.Node, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]

		token := keycode.Canonical(keyNode.Value)
		if _, ok := keycode.FromName(token); !ok {
			return nil, fmt.Errorf("%s: unknown key token %q", at, keyNode.Value)
		}
		if _, dup := children[token]; dup {
			return nil, fmt.Errorf("%s: key %q bound twice (alias collision?)", at, token)
		}

		child, err := compileBranch(valNode, at+"."+token)
		if err != nil {
			return nil, err
		}
		children[token] = child
	}
	return binding.NewBranch(children), nil
}

// isActionNode reports whether a mapping is an action object rather than a
// branch: it has a scalar "type" key. "type" is not a key token, so there is
// no ambiguity.
func isActionNode(node *yaml.Node) bool {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == "type" {
			return true
		}
	}
	return false
}

func compileAction(node *yaml.Node, at string) (*binding.Node, error) {
	var spec actionSpec
	if err := node.Decode(&spec); err != nil {
		return nil, fmt.Errorf("%s: %w", at, err)
	}

	switch spec.Type {
	case "open_app":
		if spec.Target == "" {
			return nil, fmt.Errorf("%s: open_app needs a target", at)
		}
		return binding.NewLeaf(binding.OpenApp(spec.Target)), nil
	case "run_command":
		if spec.Command == "" {
			return nil, fmt.Errorf("%s: run_command needs a command", at)
		}
		return binding.NewLeaf(binding.RunCommand(spec.Command)), nil
	case "type_keys":
		if len(spec.Keys) == 0 {
			return nil, fmt.Errorf("%s: type_keys needs keys", at)
		}
		keys := make([]string, len(spec.Keys))
		for i, k := range spec.Keys {
			tok := keycode.Canonical(k)
			if _, ok := keycode.FromName(tok); !ok {
				return nil, fmt.Errorf("%s: type_keys: unknown key %q", at, k)
			}
			keys[i] = tok
		}
		return binding.NewLeaf(binding.TypeKeys(keys)), nil
	case "reset":
		return binding.NewLeaf(binding.Reset()), nil
	case "harpoon_set":
		return binding.NewLeaf(binding.Harpoon(binding.KindHarpoonSet)), nil
	case "harpoon_remove":
		return binding.NewLeaf(binding.Harpoon(binding.KindHarpoonRemove)), nil
	case "harpoon_go":
		return binding.NewLeaf(binding.Harpoon(binding.KindHarpoonGo)), nil
	case "harpoon_reset_all":
		return binding.NewLeaf(binding.Harpoon(binding.KindHarpoonResetAll)), nil
	default:
		return nil, fmt.Errorf("%s: unknown action type %q", at, spec.Type)
	}
}

// Exists checks if a config file exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// CreateDefault writes a starter config file bound to the given device.
func CreateDefault(path, device string) error {
	content := fmt.Sprintf(`# leaderd configuration

device: %q
master_key: capslock
tap_timeout_ms: 200

harpoon:
  # Command that prints the target to bookmark for harpoon_set.
  # focus_command: swaymsg -t get_tree | jq -r '.. | select(.focused?).app_id'

bindings:
  o:
    t: {type: open_app, target: kitty}
    b: {type: open_app, target: firefox}
  r: {type: run_command, command: "notify-send leaderd hello"}
  h:
    s:
      "1": {type: harpoon_set}
      "2": {type: harpoon_set}
    "1": {type: harpoon_go}
    "2": {type: harpoon_go}
    x: {type: harpoon_reset_all}
  esc: {type: reset}
`, device)

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	return nil
}

// UpdateDevice rewrites only the device line of an existing config file.
func UpdateDevice(path, device string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	cfg.Device = device

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	setDocumentKey(&doc, "device", device)

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// setDocumentKey updates or appends a top-level scalar key in a parsed
// document, preserving everything else including comments.
func setDocumentKey(doc *yaml.Node, key, value string) {
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == key {
			root.Content[i+1].SetString(value)
			return
		}
	}
	root.Content = append(root.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Value: value},
	)
}
