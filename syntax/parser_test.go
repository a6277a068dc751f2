// Copyright (c) 2026, The gsh Authors
// See LICENSE for licensing information

package syntax

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// ignorePos lets the AST comparisons below skip position information,
// which the table entries do not spell out.
var ignorePos = cmp.Comparer(func(a, b Pos) bool { return true })

func lit(s string) *Lit          { return &Lit{Value: s} }
func word(ps ...WordPart) *Word  { return &Word{Parts: ps} }
func litWord(s string) *Word     { return word(lit(s)) }
func litWords(strs ...string) []*Word {
	ws := make([]*Word, 0, len(strs))
	for _, s := range strs {
		ws = append(ws, litWord(s))
	}
	return ws
}

func litCall(strs ...string) *CallExpr {
	return &CallExpr{Args: litWords(strs...)}
}

func litStmt(strs ...string) *Stmt {
	return &Stmt{Cmd: litCall(strs...)}
}

func stmts(cmds ...Command) []*Stmt {
	sts := make([]*Stmt, len(cmds))
	for i, cmd := range cmds {
		sts[i] = &Stmt{Cmd: cmd}
	}
	return sts
}

func parse(t *testing.T, src string) *File {
	t.Helper()
	f, err := NewParser().ParseBytes([]byte(src), "")
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return f
}

func checkAST(t *testing.T, src string, want []*Stmt) {
	t.Helper()
	f := parse(t, src)
	if diff := cmp.Diff(want, f.Stmts, ignorePos); diff != "" {
		t.Fatalf("AST mismatch for %q (-want +got):\n%s", src, diff)
	}
}

func TestParseSimpleCommands(t *testing.T) {
	t.Parallel()
	checkAST(t, "foo", []*Stmt{litStmt("foo")})
	checkAST(t, "foo bar baz", []*Stmt{litStmt("foo", "bar", "baz")})
	checkAST(t, "foo; bar", []*Stmt{
		{Cmd: litCall("foo")},
		{Cmd: litCall("bar")},
	})
	checkAST(t, "foo\nbar", []*Stmt{
		{Cmd: litCall("foo")},
		{Cmd: litCall("bar")},
	})
	checkAST(t, "! foo", []*Stmt{
		{Negated: true, Cmd: litCall("foo")},
	})
	checkAST(t, "foo &", []*Stmt{
		{Background: true, Cmd: litCall("foo")},
	})
}

func TestParseAssignments(t *testing.T) {
	t.Parallel()
	checkAST(t, "a=b", stmts(&CallExpr{
		Assigns: []*Assign{{Name: lit("a"), Value: litWord("b")}},
	}))
	checkAST(t, "a=", stmts(&CallExpr{
		Assigns: []*Assign{{Name: lit("a"), Value: word(lit(""))}},
	}))
	checkAST(t, "a+=b", stmts(&CallExpr{
		Assigns: []*Assign{{Append: true, Name: lit("a"), Value: litWord("b")}},
	}))
	checkAST(t, "a=b foo", stmts(&CallExpr{
		Assigns: []*Assign{{Name: lit("a"), Value: litWord("b")}},
		Args:    litWords("foo"),
	}))
	checkAST(t, "a=(x y)", stmts(&CallExpr{
		Assigns: []*Assign{{Name: lit("a"), Array: &ArrayExpr{
			Elems: []*ArrayElem{
				{Value: litWord("x")},
				{Value: litWord("y")},
			},
		}}},
	}))
	checkAST(t, "a[2]=x", stmts(&CallExpr{
		Assigns: []*Assign{{
			Name:  lit("a"),
			Index: litWord("2"),
			Value: litWord("x"),
		}},
	}))
}

func TestParseBinaryCmds(t *testing.T) {
	t.Parallel()
	checkAST(t, "foo && bar", stmts(&BinaryCmd{
		Op: AndStmt,
		X:  litStmt("foo"),
		Y:  litStmt("bar"),
	}))
	checkAST(t, "foo || bar", stmts(&BinaryCmd{
		Op: OrStmt,
		X:  litStmt("foo"),
		Y:  litStmt("bar"),
	}))
	checkAST(t, "foo | bar", stmts(&BinaryCmd{
		Op: Pipe,
		X:  litStmt("foo"),
		Y:  litStmt("bar"),
	}))
	checkAST(t, "foo |& bar", stmts(&BinaryCmd{
		Op: PipeAll,
		X:  litStmt("foo"),
		Y:  litStmt("bar"),
	}))
	// | binds tighter than &&
	checkAST(t, "a | b && c", stmts(&BinaryCmd{
		Op: AndStmt,
		X: &Stmt{Cmd: &BinaryCmd{
			Op: Pipe,
			X:  litStmt("a"),
			Y:  litStmt("b"),
		}},
		Y: litStmt("c"),
	}))
}

func TestParseRedirects(t *testing.T) {
	t.Parallel()
	checkAST(t, "foo >a <b", []*Stmt{{
		Cmd: litCall("foo"),
		Redirs: []*Redirect{
			{Op: RdrOut, Word: litWord("a")},
			{Op: RdrIn, Word: litWord("b")},
		},
	}})
	checkAST(t, "foo 2>&1", []*Stmt{{
		Cmd: litCall("foo"),
		Redirs: []*Redirect{
			{Op: DplOut, N: lit("2"), Word: litWord("1")},
		},
	}})
	checkAST(t, "foo &>all", []*Stmt{{
		Cmd: litCall("foo"),
		Redirs: []*Redirect{
			{Op: RdrAll, Word: litWord("all")},
		},
	}})
	checkAST(t, "foo <<<word", []*Stmt{{
		Cmd: litCall("foo"),
		Redirs: []*Redirect{
			{Op: WordHdoc, Word: litWord("word")},
		},
	}})
	// a redirect anywhere within the simple command
	checkAST(t, "foo >a bar", []*Stmt{{
		Cmd: litCall("foo", "bar"),
		Redirs: []*Redirect{
			{Op: RdrOut, Word: litWord("a")},
		},
	}})
}

func TestParseHeredocs(t *testing.T) {
	t.Parallel()
	f := parse(t, "cat <<EOF\nbody $x\nEOF\n")
	rd := f.Stmts[0].Redirs[0]
	if rd.Op != Hdoc {
		t.Fatalf("op = %v, want <<", rd.Op)
	}
	if rd.Hdoc == nil {
		t.Fatalf("missing heredoc body")
	}
	// the unquoted delimiter keeps expansions in the body
	found := false
	Walk(rd.Hdoc, func(node Node) bool {
		if _, ok := node.(*ParamExp); ok {
			found = true
		}
		return true
	})
	if !found {
		t.Fatalf("want a ParamExp in the body, got %#v", rd.Hdoc)
	}

	f = parse(t, "cat <<'EOF'\nbody $x\nEOF\n")
	rd = f.Stmts[0].Redirs[0]
	if w := rd.Hdoc; len(w.Parts) != 1 {
		t.Fatalf("quoted heredoc body should be a single literal, got %#v", w)
	} else if lit, ok := w.Parts[0].(*Lit); !ok || lit.Value != "body $x\n" {
		t.Fatalf("quoted heredoc body = %#v", w.Parts[0])
	}

	f = parse(t, "cat <<-EOF\n\tbody\n\tEOF\n")
	rd = f.Stmts[0].Redirs[0]
	if rd.Op != DashHdoc {
		t.Fatalf("op = %v, want <<-", rd.Op)
	}
}

func TestParseCompounds(t *testing.T) {
	t.Parallel()
	f := parse(t, "if a; then b; elif c; then d; else e; fi")
	ic, ok := f.Stmts[0].Cmd.(*IfClause)
	if !ok {
		t.Fatalf("not an if clause: %T", f.Stmts[0].Cmd)
	}
	if len(ic.Cond) != 1 || len(ic.Then) != 1 {
		t.Fatalf("wrong if shape: %#v", ic)
	}
	if ic.Else == nil || len(ic.Else.Cond) != 1 {
		t.Fatalf("missing elif: %#v", ic.Else)
	}
	if ic.Else.Else == nil || len(ic.Else.Else.Cond) != 0 {
		t.Fatalf("missing else: %#v", ic.Else.Else)
	}

	f = parse(t, "while a; do b; done")
	wc := f.Stmts[0].Cmd.(*WhileClause)
	if wc.Until {
		t.Fatalf("while parsed as until")
	}
	f = parse(t, "until a; do b; done")
	wc = f.Stmts[0].Cmd.(*WhileClause)
	if !wc.Until {
		t.Fatalf("until parsed as while")
	}

	f = parse(t, "for x in a b; do c; done")
	fc := f.Stmts[0].Cmd.(*ForClause)
	wi := fc.Loop.(*WordIter)
	if wi.Name.Value != "x" || len(wi.Items) != 2 {
		t.Fatalf("wrong for shape: %#v", wi)
	}

	f = parse(t, "for ((i = 0; i < 5; i++)); do c; done")
	fc = f.Stmts[0].Cmd.(*ForClause)
	cl := fc.Loop.(*CStyleLoop)
	if cl.Init == nil || cl.Cond == nil || cl.Post == nil {
		t.Fatalf("wrong c-style loop shape: %#v", cl)
	}

	f = parse(t, "case x in a) b ;; c | d) e ;& f) g ;;& esac")
	cc := f.Stmts[0].Cmd.(*CaseClause)
	if len(cc.Items) != 3 {
		t.Fatalf("want 3 case items, got %d", len(cc.Items))
	}
	if cc.Items[0].Op != Break || cc.Items[1].Op != Fallthrough ||
		cc.Items[2].Op != Resume {
		t.Fatalf("wrong case operators: %#v", cc.Items)
	}
	if len(cc.Items[1].Patterns) != 2 {
		t.Fatalf("want 2 patterns, got %#v", cc.Items[1].Patterns)
	}

	f = parse(t, "{ a; b; }")
	if _, ok := f.Stmts[0].Cmd.(*Block); !ok {
		t.Fatalf("not a block: %T", f.Stmts[0].Cmd)
	}
	f = parse(t, "(a; b)")
	if _, ok := f.Stmts[0].Cmd.(*Subshell); !ok {
		t.Fatalf("not a subshell: %T", f.Stmts[0].Cmd)
	}
}

func TestParseFuncDecls(t *testing.T) {
	t.Parallel()
	f := parse(t, "foo() { bar; }")
	fd := f.Stmts[0].Cmd.(*FuncDecl)
	if fd.Name.Value != "foo" || fd.RsrvWord {
		t.Fatalf("wrong func decl: %#v", fd)
	}
	f = parse(t, "function foo { bar; }")
	fd = f.Stmts[0].Cmd.(*FuncDecl)
	if fd.Name.Value != "foo" || !fd.RsrvWord {
		t.Fatalf("wrong func decl: %#v", fd)
	}
}

func TestParseArithmVsSubshell(t *testing.T) {
	t.Parallel()
	f := parse(t, "((1 + 2))")
	if _, ok := f.Stmts[0].Cmd.(*ArithmCmd); !ok {
		t.Fatalf("not an arithmetic command: %T", f.Stmts[0].Cmd)
	}
	// two subshells, not arithmetic
	f = parse(t, "((foo); (bar))")
	if _, ok := f.Stmts[0].Cmd.(*Subshell); !ok {
		t.Fatalf("not a subshell: %T", f.Stmts[0].Cmd)
	}
}

func TestParseWordParts(t *testing.T) {
	t.Parallel()
	f := parse(t, `echo 'single' "double $x" $y $(cmd) $((1+2)) ~u`)
	call := f.Stmts[0].Cmd.(*CallExpr)
	if len(call.Args) != 7 {
		t.Fatalf("want 7 args, got %d", len(call.Args))
	}
	if sq, ok := call.Args[1].Parts[0].(*SglQuoted); !ok || sq.Value != "single" {
		t.Fatalf("bad single quotes: %#v", call.Args[1].Parts[0])
	}
	dq := call.Args[2].Parts[0].(*DblQuoted)
	if len(dq.Parts) != 2 {
		t.Fatalf("bad double quotes: %#v", dq.Parts)
	}
	if pe, ok := call.Args[3].Parts[0].(*ParamExp); !ok || !pe.Short || pe.Param.Value != "y" {
		t.Fatalf("bad param exp: %#v", call.Args[3].Parts[0])
	}
	if _, ok := call.Args[4].Parts[0].(*CmdSubst); !ok {
		t.Fatalf("bad cmd subst: %#v", call.Args[4].Parts[0])
	}
	if _, ok := call.Args[5].Parts[0].(*ArithmExp); !ok {
		t.Fatalf("bad arithm exp: %#v", call.Args[5].Parts[0])
	}
}

func TestParseParamExps(t *testing.T) {
	t.Parallel()
	paramExp := func(src string) *ParamExp {
		t.Helper()
		f := parse(t, "echo "+src)
		call := f.Stmts[0].Cmd.(*CallExpr)
		pe, ok := call.Args[1].Parts[0].(*ParamExp)
		if !ok {
			t.Fatalf("%s did not parse to a ParamExp: %#v", src, call.Args[1].Parts[0])
		}
		return pe
	}
	if pe := paramExp("${a}"); pe.Param.Value != "a" || pe.Short {
		t.Fatalf("bad ${a}: %#v", pe)
	}
	if pe := paramExp("${#a}"); !pe.Length {
		t.Fatalf("bad ${#a}: %#v", pe)
	}
	if pe := paramExp("${!a}"); !pe.Excl {
		t.Fatalf("bad ${!a}: %#v", pe)
	}
	if pe := paramExp("${!pre*}"); pe.Names != NamesPrefix {
		t.Fatalf("bad ${!pre*}: %#v", pe)
	}
	if pe := paramExp("${a:-b}"); pe.Exp == nil || pe.Exp.Op != DefaultUnsetOrNull {
		t.Fatalf("bad ${a:-b}: %#v", pe)
	}
	if pe := paramExp("${a##b}"); pe.Exp == nil || pe.Exp.Op != RemLargePrefix {
		t.Fatalf("bad ${a##b}: %#v", pe)
	}
	if pe := paramExp("${a/b/c}"); pe.Repl == nil || pe.Repl.All {
		t.Fatalf("bad ${a/b/c}: %#v", pe)
	}
	if pe := paramExp("${a//b/c}"); pe.Repl == nil || !pe.Repl.All {
		t.Fatalf("bad ${a//b/c}: %#v", pe)
	}
	if pe := paramExp("${a:1:2}"); pe.Slice == nil || pe.Slice.Offset == nil || pe.Slice.Length == nil {
		t.Fatalf("bad ${a:1:2}: %#v", pe)
	}
	if pe := paramExp("${a[@]}"); pe.Index == nil {
		t.Fatalf("bad ${a[@]}: %#v", pe)
	}
	if pe := paramExp("${a^^}"); pe.Exp == nil || pe.Exp.Op != UpperAll {
		t.Fatalf("bad ${a^^}: %#v", pe)
	}
}

func TestParseTestClause(t *testing.T) {
	t.Parallel()
	f := parse(t, "[[ -n $a && $b == c* ]]")
	tc := f.Stmts[0].Cmd.(*TestClause)
	b, ok := tc.X.(*BinaryTest)
	if !ok || b.Op != AndTest {
		t.Fatalf("wrong test shape: %#v", tc.X)
	}
	u, ok := b.X.(*UnaryTest)
	if !ok || u.Op != TsNempStr {
		t.Fatalf("wrong unary test: %#v", b.X)
	}
	m, ok := b.Y.(*BinaryTest)
	if !ok || m.Op != TsMatch {
		t.Fatalf("wrong binary test: %#v", b.Y)
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()
	for _, src := range []string{
		"foo &&",
		"if foo; then bar",
		"'unclosed",
		`"unclosed`,
		"foo(",
		"case x in a)",
		"cat <<EOF\nbody",
		"((1 + ))",
	} {
		_, err := NewParser().ParseBytes([]byte(src), "")
		if err == nil {
			t.Fatalf("expected error for %q", src)
		}
	}
	for _, src := range []string{
		"foo;;",
		")",
		"foo & & bar",
	} {
		_, err := NewParser().ParseBytes([]byte(src), "")
		if err == nil {
			t.Fatalf("expected hard error for %q", src)
		}
		if IsIncomplete(err) {
			t.Fatalf("%q should not be incomplete: %v", src, err)
		}
	}
}

func TestIsIncomplete(t *testing.T) {
	t.Parallel()
	for _, src := range []string{
		"'unclosed",
		`"unclosed`,
		"if foo; then bar",
		"while foo; do bar",
		"foo | ",
		"cat <<EOF\nbody",
		"{ foo",
	} {
		_, err := NewParser().ParseBytes([]byte(src), "")
		if !IsIncomplete(err) {
			t.Fatalf("%q should report incomplete input, got: %v", src, err)
		}
	}
}

func TestSingleQuotedIdentity(t *testing.T) {
	t.Parallel()
	for _, val := range []string{
		"plain",
		"spaces  and\ttabs",
		"$not_expanded `nor this` \\ ",
		"newline\nwithin",
	} {
		src := "echo '" + val + "'"
		f := parse(t, src)
		call := f.Stmts[0].Cmd.(*CallExpr)
		sq := call.Args[1].Parts[0].(*SglQuoted)
		if sq.Value != val {
			t.Fatalf("single quotes are not the identity: %q != %q", sq.Value, val)
		}
	}
}

func TestValidName(t *testing.T) {
	t.Parallel()
	for _, name := range []string{"a", "_", "foo_bar", "A9", "_0"} {
		if !ValidName(name) {
			t.Errorf("ValidName(%q) = false, want true", name)
		}
	}
	for _, name := range []string{"", "9a", "a-b", "a.b", "a b", "$a"} {
		if ValidName(name) {
			t.Errorf("ValidName(%q) = true, want false", name)
		}
	}
}

func TestQuote(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in, want string
	}{
		{"foo", "foo"},
		{"", "''"},
		{"foo bar", "'foo bar'"},
		{"foo'bar", `$'foo\'bar'`},
		{"a\nb", `$'a\nb'`},
		{"$var", "'$var'"},
	}
	for _, tc := range tests {
		if got := Quote(tc.in); got != tc.want {
			t.Errorf("Quote(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSplitBraces(t *testing.T) {
	t.Parallel()
	src := "echo foo{a,b}bar"
	f := parse(t, src)
	call := f.Stmts[0].Cmd.(*CallExpr)
	w := call.Args[1]
	if !SplitBraces(w) {
		t.Fatalf("SplitBraces found nothing in %q", src)
	}
	var br *BraceExp
	for _, part := range w.Parts {
		if b, ok := part.(*BraceExp); ok {
			br = b
		}
	}
	if br == nil || len(br.Elems) != 2 {
		t.Fatalf("wrong brace expression: %#v", w.Parts)
	}

	// no braces means no change
	f = parse(t, "echo foobar")
	w = f.Stmts[0].Cmd.(*CallExpr).Args[1]
	if SplitBraces(w) {
		t.Fatalf("SplitBraces touched a word with no braces")
	}
	if w.Lit() != "foobar" {
		t.Fatalf("word was modified: %#v", w)
	}

	// malformed braces are left alone
	f = parse(t, "echo a{b")
	w = f.Stmts[0].Cmd.(*CallExpr).Args[1]
	SplitBraces(w)
	if got := strings.Join(litParts(w), ""); got != "a{b" {
		t.Fatalf("malformed braces changed: %q", got)
	}
}

func litParts(w *Word) []string {
	var strs []string
	for _, part := range w.Parts {
		if l, ok := part.(*Lit); ok {
			strs = append(strs, l.Value)
		}
	}
	return strs
}
