// Copyright (c) 2026, The gsh Authors
// See LICENSE for licensing information

// gshfmt formats shell programs using the syntax package's parser and
// printer.
package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/google/renameio/v2"
	flag "github.com/spf13/pflag"
	"mvdan.cc/editorconfig"

	"github.com/gshell-dev/gsh/syntax"
)

var (
	write  = flag.BoolP("write", "w", false, "write result to file instead of stdout")
	list   = flag.BoolP("list", "l", false, "list files whose formatting differs")
	indent = flag.UintP("indent", "i", 0, "indent with a number of spaces (0 for tabs)")
	check  = flag.BoolP("diff", "d", false, "error when formatting differs")
)

var ecQuery = editorconfig.Query{
	FileCache:   make(map[string]*editorconfig.File),
	RegexpCache: make(map[string]*regexp.Regexp),
}

func main() { os.Exit(main1()) }

func main1() int {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: gshfmt [flags] [path ...]\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	status := 0
	if flag.NArg() == 0 {
		if err := formatStdin(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			status = 1
		}
		return status
	}
	for _, path := range flag.Args() {
		if err := formatPath(path); err != nil {
			fmt.Fprintf(os.Stderr, "gshfmt: %v\n", err)
			status = 1
		}
	}
	return status
}

func formatStdin() error {
	src, err := io.ReadAll(os.Stdin)
	if err != nil {
		return err
	}
	out, err := format(src, "<standard input>", *indent)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}

func formatPath(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out, err := format(src, path, indentFor(path))
	if err != nil {
		return err
	}
	if bytes.Equal(src, out) {
		if !*write && !*list && !*check {
			os.Stdout.Write(out)
		}
		return nil
	}
	switch {
	case *list:
		fmt.Println(path)
	case *check:
		return fmt.Errorf("%s: formatting differs", path)
	case *write:
		// atomic in-place rewrite; readers never observe a partial file
		return renameio.WriteFile(path, out, 0o644)
	default:
		os.Stdout.Write(out)
	}
	return nil
}

// indentFor resolves the indentation setting for a file, preferring an
// explicit -i flag, then any .editorconfig in the file's tree.
func indentFor(path string) uint {
	if flag.CommandLine.Changed("indent") {
		return *indent
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return *indent
	}
	props, err := ecQuery.Find(abs, []string{"sh", "bash"})
	if err != nil {
		return *indent
	}
	if props.Get("indent_style") == "space" {
		if n := props.IndentSize(); n > 0 {
			return uint(n)
		}
		return 4
	}
	return 0
}

func format(src []byte, name string, indentSpaces uint) ([]byte, error) {
	parser := syntax.NewParser(syntax.KeepComments(true))
	file, err := parser.ParseBytes(src, name)
	if err != nil {
		return nil, err
	}
	printer := syntax.NewPrinter(syntax.Indent(indentSpaces))
	var buf bytes.Buffer
	if err := printer.Print(&buf, file); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
