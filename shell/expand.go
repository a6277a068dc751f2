// Copyright (c) 2026, The gsh Authors
// See LICENSE for licensing information

// Package shell contains high-level features that use the syntax, expand,
// and interp packages under the hood.
package shell

import (
	"fmt"
	"os"

	"github.com/gshell-dev/gsh/expand"
	"github.com/gshell-dev/gsh/syntax"
)

// Expand performs shell expansion on s as if it were within double
// quotes, using env to resolve variables. This includes parameter
// expansion, arithmetic expansion, and quote removal.
//
// If env is nil, the current environment variables are used. Command
// substitutions like $(echo foo) aren't supported to avoid running
// arbitrary code. To support those, use an interpreter with the expand
// package.
func Expand(s string, env func(string) string) (string, error) {
	p := syntax.NewParser()
	word, err := parseWord(p, s)
	if err != nil {
		return "", err
	}
	if env == nil {
		env = os.Getenv
	}
	cfg := &expand.Config{Env: expand.FuncEnviron(env)}
	return expand.Document(cfg, word)
}

// Fields performs shell expansion on s as if it were a command's
// arguments, using env to resolve variables. It is similar to Expand, but
// includes field splitting and globbing.
func Fields(s string, env func(string) string) ([]string, error) {
	p := syntax.NewParser()
	var words []*syntax.Word
	file, err := p.ParseBytes([]byte(s), "")
	if err != nil {
		return nil, err
	}
	if len(file.Stmts) == 1 {
		if call, ok := file.Stmts[0].Cmd.(*syntax.CallExpr); ok && len(call.Assigns) == 0 {
			words = call.Args
		}
	}
	if words == nil {
		return nil, fmt.Errorf("not a list of words: %q", s)
	}
	if env == nil {
		env = os.Getenv
	}
	cfg := &expand.Config{
		Env:     expand.FuncEnviron(env),
		ReadDir: os.ReadDir,
	}
	return expand.Fields(cfg, words...)
}

func parseWord(p *syntax.Parser, s string) (*syntax.Word, error) {
	file, err := p.ParseBytes([]byte(s), "")
	if err != nil {
		return nil, err
	}
	if len(file.Stmts) != 1 {
		return nil, fmt.Errorf("expected exactly one statement: %q", s)
	}
	call, ok := file.Stmts[0].Cmd.(*syntax.CallExpr)
	if !ok || len(call.Assigns) > 0 {
		return nil, fmt.Errorf("not a word: %q", s)
	}
	// multiple space-separated words are glued back with literal spaces,
	// so that Expand("$a $b", ...) works as documented
	var glued []syntax.WordPart
	for i, w := range call.Args {
		if i > 0 {
			glued = append(glued, &syntax.Lit{Value: " "})
		}
		glued = append(glued, w.Parts...)
	}
	if len(glued) == 0 {
		return nil, fmt.Errorf("not a word: %q", s)
	}
	return &syntax.Word{Parts: glued}, nil
}
