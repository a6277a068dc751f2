// Copyright (c) 2026, The gsh Authors
// See LICENSE for licensing information

package shell

import (
	"context"
	"fmt"
	"os"

	"github.com/gshell-dev/gsh/expand"
	"github.com/gshell-dev/gsh/interp"
	"github.com/gshell-dev/gsh/syntax"
)

// SourceFile sources a shell file from disk and returns the variables
// declared in it. It is a convenience function that runs the file via
// SourceNode, which always uses a default shell interpreter.
//
// A default parser is used to parse the file.
func SourceFile(ctx context.Context, path string) (map[string]expand.Variable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open: %w", err)
	}
	defer f.Close()
	file, err := syntax.NewParser().Parse(f, path)
	if err != nil {
		return nil, fmt.Errorf("could not parse: %w", err)
	}
	return SourceNode(ctx, file)
}

// SourceNode sources a shell program from a node and returns the
// variables declared in it. It accepts the same nodes as
// interp.Runner.Run.
func SourceNode(ctx context.Context, node syntax.Node) (map[string]expand.Variable, error) {
	r, err := interp.New()
	if err != nil {
		return nil, err
	}
	if err := r.Run(ctx, node); err != nil {
		return nil, fmt.Errorf("could not run: %w", err)
	}
	return r.Vars, nil
}
