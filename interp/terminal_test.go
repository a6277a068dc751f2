// Copyright (c) 2026, The gsh Authors
// See LICENSE for licensing information

//go:build unix

package interp_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/creack/pty"

	"github.com/gshell-dev/gsh/expand"
	"github.com/gshell-dev/gsh/interp"
	"github.com/gshell-dev/gsh/syntax"
)

// TestTerminalStdin checks that `test -t 0` can see a terminal on
// standard input, which job control and interactive prompts rely on.
func TestTerminalStdin(t *testing.T) {
	ptmx, tty, err := pty.Open()
	if err != nil {
		t.Skipf("pseudo-terminals not available: %v", err)
	}
	defer ptmx.Close()
	defer tty.Close()

	var out bytes.Buffer
	r, err := interp.New(
		interp.Env(expand.ListEnviron("PATH=")),
		interp.StdIO(tty, &out, &out),
	)
	if err != nil {
		t.Fatal(err)
	}
	file, err := syntax.NewParser().ParseBytes([]byte(
		"if [ -t 0 ]; then echo terminal; else echo plain; fi",
	), "")
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Run(context.Background(), file); err != nil {
		t.Fatal(err)
	}
	if got := out.String(); !strings.Contains(got, "terminal") {
		t.Fatalf("stdin not detected as a terminal: %q", got)
	}
}

// TestNonTerminalStdin is the inverse; a plain reader is not a terminal.
func TestNonTerminalStdin(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	r, err := interp.New(
		interp.Env(expand.ListEnviron("PATH=")),
		interp.StdIO(strings.NewReader(""), &out, &out),
	)
	if err != nil {
		t.Fatal(err)
	}
	file, err := syntax.NewParser().ParseBytes([]byte(
		"if [ -t 0 ]; then echo terminal; else echo plain; fi",
	), "")
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Run(context.Background(), file); err != nil {
		t.Fatal(err)
	}
	if got := out.String(); !strings.Contains(got, "plain") {
		t.Fatalf("plain reader detected as a terminal: %q", got)
	}
}
