// Copyright (c) 2026, The gsh Authors
// See LICENSE for licensing information

// Package rcfile loads the shell's startup configuration file, used to
// pre-populate variables, aliases, and options before the first command
// runs.
//
// The file is TOML rather than shell source, so that front-ends can load
// it without running arbitrary code:
//
//	[vars]
//	GREETING = "hi there"
//
//	[exports]
//	EDITOR = "vi"
//
//	[aliases]
//	ll = "ls -l"
//
//	[suffix_aliases]
//	log = "less"
//
//	[options]
//	pipefail = true
package rcfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/gshell-dev/gsh/interp"
	"github.com/gshell-dev/gsh/syntax"
)

// Config is the decoded startup file.
type Config struct {
	Vars          map[string]string `toml:"vars"`
	Exports       map[string]string `toml:"exports"`
	Aliases       map[string]string `toml:"aliases"`
	SuffixAliases map[string]string `toml:"suffix_aliases"`
	Options       map[string]bool   `toml:"options"`

	Path string `toml:"-"`
}

// ErrNotFound is returned by Load when the file does not exist, which
// callers usually treat as an empty configuration.
var ErrNotFound = errors.New("rcfile not found")

// DefaultPath returns the default startup file location, honoring an
// explicit GSHRC environment variable.
func DefaultPath() string {
	if path := os.Getenv("GSHRC"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".gshrc.toml")
}

// Load reads and decodes a startup file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	cfg, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// Parse decodes a startup file from a string.
func Parse(data string) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	for name := range c.Vars {
		if !syntax.ValidName(name) {
			return fmt.Errorf("vars: %q is not a valid variable name", name)
		}
	}
	for name := range c.Exports {
		if !syntax.ValidName(name) {
			return fmt.Errorf("exports: %q is not a valid variable name", name)
		}
	}
	for name := range c.Aliases {
		if name == "" || strings.ContainsAny(name, " \t\n='\"") {
			return fmt.Errorf("aliases: %q is not a valid alias name", name)
		}
	}
	for name := range c.SuffixAliases {
		if name == "" || strings.ContainsAny(name, " \t\n./='\"") {
			return fmt.Errorf("suffix_aliases: %q is not a valid extension", name)
		}
	}
	return nil
}

// Script renders the configuration as shell commands, using only quoted
// literals, so it can be fed to the interpreter through its normal entry
// point.
func (c *Config) Script() string {
	var sb strings.Builder
	for _, name := range sortedKeys(c.Vars) {
		fmt.Fprintf(&sb, "%s=%s\n", name, syntax.Quote(c.Vars[name]))
	}
	for _, name := range sortedKeys(c.Exports) {
		fmt.Fprintf(&sb, "export %s=%s\n", name, syntax.Quote(c.Exports[name]))
	}
	for _, name := range sortedKeys(c.Aliases) {
		fmt.Fprintf(&sb, "alias %s=%s\n", name, syntax.Quote(c.Aliases[name]))
	}
	for _, name := range sortedKeys(c.SuffixAliases) {
		fmt.Fprintf(&sb, "alias -s %s=%s\n", name, syntax.Quote(c.SuffixAliases[name]))
	}
	var opts []string
	for name := range c.Options {
		opts = append(opts, name)
	}
	sort.Strings(opts)
	for _, name := range opts {
		flag := "+o"
		if c.Options[name] {
			flag = "-o"
		}
		fmt.Fprintf(&sb, "set %s %s\n", flag, name)
	}
	return sb.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Apply runs the configuration against a runner. The runner keeps all
// resulting variables, aliases, and options.
func (c *Config) Apply(ctx context.Context, r *interp.Runner) error {
	script := c.Script()
	if script == "" {
		return nil
	}
	file, err := syntax.NewParser().ParseBytes([]byte(script), c.Path)
	if err != nil {
		return err
	}
	return r.Run(ctx, file)
}
