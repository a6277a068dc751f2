// Copyright (c) 2026, The gsh Authors
// See LICENSE for licensing information

package syntax_test

import (
	"fmt"
	"os"
	"strings"

	"github.com/gshell-dev/gsh/syntax"
)

func ExampleParser_Parse() {
	src := "if [ -e file ]; then echo exists; fi"
	f, err := syntax.NewParser().Parse(strings.NewReader(src), "")
	if err != nil {
		fmt.Println(err)
		return
	}
	syntax.Walk(f, func(node syntax.Node) bool {
		if call, ok := node.(*syntax.CallExpr); ok {
			fmt.Println(call.Args[0].Lit())
		}
		return true
	})
	// Output:
	// [
	// echo
}

func ExamplePrinter_Print() {
	src := "echo    foo   'bar baz'"
	f, err := syntax.NewParser().Parse(strings.NewReader(src), "")
	if err != nil {
		fmt.Println(err)
		return
	}
	syntax.NewPrinter().Print(os.Stdout, f)
	// Output:
	// echo foo 'bar baz'
}

func ExampleQuote() {
	fmt.Println(syntax.Quote("foo"))
	fmt.Println(syntax.Quote("foo bar"))
	fmt.Println(syntax.Quote("foo's"))
	// Output:
	// foo
	// 'foo bar'
	// $'foo\'s'
}
