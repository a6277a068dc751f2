// Copyright (c) 2026, The gsh Authors
// See LICENSE for licensing information

package interp_test

import (
	"context"
	"os"
	"strings"

	"github.com/gshell-dev/gsh/interp"
	"github.com/gshell-dev/gsh/syntax"
)

func Example() {
	src := `
greet() { echo "hello, $1"; }
for name in world gophers; do greet $name; done
`
	file, _ := syntax.NewParser().Parse(strings.NewReader(src), "")
	runner, _ := interp.New(interp.StdIO(nil, os.Stdout, os.Stderr))
	runner.Run(context.Background(), file)
	// Output:
	// hello, world
	// hello, gophers
}
