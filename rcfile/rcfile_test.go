// Copyright (c) 2026, The gsh Authors
// See LICENSE for licensing information

package rcfile

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/gshell-dev/gsh/expand"
	"github.com/gshell-dev/gsh/interp"
	"github.com/gshell-dev/gsh/syntax"
)

const sample = `
[vars]
GREETING = "hi there"

[exports]
EDITOR = "vi"

[aliases]
ll = "ls -l"

[suffix_aliases]
log = "less"

[options]
pipefail = true
noclobber = false
`

func TestParse(t *testing.T) {
	t.Parallel()
	cfg, err := Parse(sample)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Vars["GREETING"] != "hi there" {
		t.Errorf("vars = %#v", cfg.Vars)
	}
	if cfg.Exports["EDITOR"] != "vi" {
		t.Errorf("exports = %#v", cfg.Exports)
	}
	if cfg.Aliases["ll"] != "ls -l" {
		t.Errorf("aliases = %#v", cfg.Aliases)
	}
	if cfg.SuffixAliases["log"] != "less" {
		t.Errorf("suffix aliases = %#v", cfg.SuffixAliases)
	}
	if !cfg.Options["pipefail"] || cfg.Options["noclobber"] {
		t.Errorf("options = %#v", cfg.Options)
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()
	for _, data := range []string{
		"[vars]\n\"9bad\" = \"x\"\n",
		"[aliases]\n\"has space\" = \"x\"\n",
		"not toml at all = = =",
	} {
		if _, err := Parse(data); err == nil {
			t.Errorf("Parse(%q) did not error", data)
		}
	}
}

func TestScript(t *testing.T) {
	t.Parallel()
	cfg, err := Parse(sample)
	if err != nil {
		t.Fatal(err)
	}
	script := cfg.Script()
	for _, want := range []string{
		"GREETING='hi there'\n",
		"export EDITOR=vi\n",
		"alias ll='ls -l'\n",
		"alias -s log=less\n",
		"set -o pipefail\n",
		"set +o noclobber\n",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q:\n%s", want, script)
		}
	}
	// the script must parse
	if _, err := syntax.NewParser().ParseBytes([]byte(script), ""); err != nil {
		t.Fatalf("generated script does not parse: %v\n%s", err, script)
	}
}

func TestApply(t *testing.T) {
	t.Parallel()
	cfg, err := Parse(sample)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	r, err := interp.New(
		interp.Env(expand.ListEnviron("PATH=")),
		interp.StdIO(nil, &buf, &buf),
		interp.Interactive(true),
	)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := cfg.Apply(ctx, r); err != nil {
		t.Fatal(err)
	}
	file, err := syntax.NewParser().ParseBytes([]byte("echo $GREETING; ll() { echo not-used; }; alias"), "")
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Run(ctx, file); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "hi there") {
		t.Errorf("variable not applied: %q", out)
	}
	if !strings.Contains(out, "alias ll='ls -l'") {
		t.Errorf("alias not applied: %q", out)
	}
}
