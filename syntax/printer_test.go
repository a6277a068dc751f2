// Copyright (c) 2026, The gsh Authors
// See LICENSE for licensing information

package syntax

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pkg/diff"
)

// printRoundTrip parses source, prints it, and reparses the output,
// requiring both parses to succeed. The printer need not preserve the
// original layout, but it must never print something that fails to parse.
func printRoundTrip(t *testing.T, src string) string {
	t.Helper()
	f, err := NewParser().ParseBytes([]byte(src), "")
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	var buf bytes.Buffer
	if err := NewPrinter().Print(&buf, f); err != nil {
		t.Fatalf("print %q: %v", src, err)
	}
	out := buf.String()
	if _, err := NewParser().ParseBytes([]byte(out), ""); err != nil {
		t.Fatalf("reparse of printed output failed.\nsource: %q\noutput: %q\nerror: %v",
			src, out, err)
	}
	return out
}

func TestPrintRoundTrip(t *testing.T) {
	t.Parallel()
	for _, src := range []string{
		"foo\n",
		"foo bar baz\n",
		"a=b foo >out 2>&1\n",
		"! foo | bar && baz\n",
		"if a; then b; else c; fi\n",
		"while a; do b; done\n",
		"until a; do b; done\n",
		"for x in a b c; do echo $x; done\n",
		"for ((i = 0; i < 10; i++)); do echo $i; done\n",
		"case $x in a) b ;; c | d) e ;& f) g ;;& esac\n",
		"foo() { bar; }\n",
		"function foo { bar; }\n",
		"(a; b) &\n",
		"{ a; b; }\n",
		"echo 'single' \"double $x\" $(cmd) $((1 + 2))\n",
		"echo ${a:-b} ${c##*/} ${d/x/y} ${#e} ${!f} ${g[2]} ${h:1:2}\n",
		"[[ -n $a && $b == c* ]]\n",
		"((x += 2))\n",
		"let x=1 y=2\n",
		"declare -i -r n=5\n",
		"cat <<EOF\nbody $x\nEOF\n",
		"echo {a,b}{1..3}\n",
	} {
		printRoundTrip(t, src)
	}
}

func TestPrintStable(t *testing.T) {
	t.Parallel()
	// printing twice must give identical output
	for _, src := range []string{
		"if a; then\n\tb\nfi\n",
		"foo |\n\tbar\n",
		"case $x in\na) b ;;\nesac\n",
	} {
		first := printRoundTrip(t, src)
		second := printRoundTrip(t, first)
		if first != second {
			var sb strings.Builder
			diff.Text("first", "second", first, second, &sb)
			t.Fatalf("printing is not stable for %q:\n%s", src, sb.String())
		}
	}
}

func TestPrintComments(t *testing.T) {
	t.Parallel()
	src := "# leading comment\nfoo\n"
	f, err := NewParser(KeepComments(true)).ParseBytes([]byte(src), "")
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := NewPrinter().Print(&buf, f); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "# leading comment") {
		t.Fatalf("comment was dropped: %q", out)
	}
	if !strings.Contains(out, "foo") {
		t.Fatalf("statement was dropped: %q", out)
	}
}

func TestPrintIndent(t *testing.T) {
	t.Parallel()
	f, err := NewParser().ParseBytes([]byte("if a; then b; fi\n"), "")
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := NewPrinter(Indent(4)).Print(&buf, f); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "\n    b\n") {
		t.Fatalf("wrong indentation: %q", buf.String())
	}
}
