// Copyright (c) 2026, The gsh Authors
// See LICENSE for licensing information

package syntax

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// PrinterOption is a function which can be passed to NewPrinter to alter
// its behavior.
type PrinterOption func(*Printer)

// Indent sets the number of spaces used for indentation. The default of
// zero means tabs are used instead.
func Indent(spaces uint) PrinterOption {
	return func(p *Printer) { p.indentSpaces = spaces }
}

// NewPrinter allocates a new Printer and applies any number of options.
func NewPrinter(opts ...PrinterOption) *Printer {
	p := &Printer{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Printer holds the internal state of the printing mechanism of a
// program.
type Printer struct {
	bufWriter    *bufio.Writer
	indentSpaces uint

	level    uint
	wantNewl bool

	pendingHdocs []*Redirect
	comments     []Comment
}

// Print "pretty-prints" the given syntax tree node to the given writer.
// The node types supported at the moment are *File, *Stmt, *Word, and any
// Command node. A trailing newline will only be printed for *File and
// *Stmt.
func (p *Printer) Print(w io.Writer, node Node) error {
	p.bufWriter = bufio.NewWriter(w)
	p.level = 0
	p.wantNewl = false
	p.pendingHdocs = nil
	p.comments = nil
	switch x := node.(type) {
	case *File:
		p.comments = x.Comments
		p.stmtList(x.Stmts)
		p.flushComments(Pos{offs: ^uint32(0), line: ^uint32(0)})
	case *Stmt:
		p.stmt(x)
		p.newline()
	case *Word:
		p.word(x)
	case Command:
		p.command(x)
	default:
		return fmt.Errorf("syntax.Printer: unsupported node type %T", node)
	}
	return p.bufWriter.Flush()
}

func (p *Printer) str(s string) { p.bufWriter.WriteString(s) }

func (p *Printer) indent() {
	if p.indentSpaces == 0 {
		for i := uint(0); i < p.level; i++ {
			p.bufWriter.WriteByte('\t')
		}
	} else {
		for i := uint(0); i < p.level*p.indentSpaces; i++ {
			p.bufWriter.WriteByte(' ')
		}
	}
}

func (p *Printer) newline() {
	p.bufWriter.WriteByte('\n')
	for _, r := range p.pendingHdocs {
		p.word(r.Hdoc)
		end, _ := p.unquotedDelim(r.Word)
		p.str(end)
		p.bufWriter.WriteByte('\n')
	}
	p.pendingHdocs = nil
}

func (p *Printer) unquotedDelim(w *Word) (string, bool) {
	var sb strings.Builder
	quoted := false
	for _, part := range w.Parts {
		switch x := part.(type) {
		case *Lit:
			sb.WriteString(strings.ReplaceAll(x.Value, "\\", ""))
			if strings.Contains(x.Value, "\\") {
				quoted = true
			}
		case *SglQuoted:
			sb.WriteString(x.Value)
			quoted = true
		case *DblQuoted:
			for _, part2 := range x.Parts {
				if l, ok := part2.(*Lit); ok {
					sb.WriteString(l.Value)
				}
			}
			quoted = true
		}
	}
	return sb.String(), quoted
}

// flushComments prints all pending comments up to the given position.
func (p *Printer) flushComments(until Pos) {
	for len(p.comments) > 0 && !p.comments[0].Hash.After(until) {
		c := p.comments[0]
		p.comments = p.comments[1:]
		p.indent()
		p.str("#")
		p.str(c.Text)
		p.bufWriter.WriteByte('\n')
	}
}

func (p *Printer) stmtList(stmts []*Stmt) {
	for _, s := range stmts {
		p.flushComments(s.Pos())
		p.indent()
		p.stmt(s)
		p.newline()
	}
}

func (p *Printer) stmt(s *Stmt) {
	if s.Negated {
		p.str("! ")
	}
	if s.Cmd != nil {
		p.command(s.Cmd)
	}
	for _, r := range s.Redirs {
		if s.Cmd != nil || r != s.Redirs[0] {
			p.bufWriter.WriteByte(' ')
		}
		p.redirect(r)
	}
	if s.Background {
		p.str(" &")
	}
}

func (p *Printer) redirect(r *Redirect) {
	if r.N != nil {
		p.str(r.N.Value)
	}
	p.str(r.Op.String())
	p.word(r.Word)
	switch r.Op {
	case Hdoc, DashHdoc:
		p.pendingHdocs = append(p.pendingHdocs, r)
	}
}

func (p *Printer) command(cmd Command) {
	switch x := cmd.(type) {
	case *CallExpr:
		for i, a := range x.Assigns {
			if i > 0 {
				p.bufWriter.WriteByte(' ')
			}
			p.assign(a)
		}
		for i, w := range x.Args {
			if i > 0 || len(x.Assigns) > 0 {
				p.bufWriter.WriteByte(' ')
			}
			p.word(w)
		}
	case *Block:
		p.str("{")
		p.nestedStmts(x.Stmts)
		p.indent()
		p.str("}")
	case *Subshell:
		p.str("(")
		if len(x.Stmts) > 0 {
			p.nestedStmts(x.Stmts)
			p.indent()
		}
		p.str(")")
	case *IfClause:
		p.ifClause(x, false)
	case *WhileClause:
		if x.Until {
			p.str("until ")
		} else {
			p.str("while ")
		}
		p.condStmts(x.Cond)
		p.str("; do")
		p.nestedStmts(x.Do)
		p.indent()
		p.str("done")
	case *ForClause:
		p.str("for ")
		p.loop(x.Loop)
		p.str("; do")
		p.nestedStmts(x.Do)
		p.indent()
		p.str("done")
	case *CaseClause:
		p.str("case ")
		p.word(x.Word)
		p.str(" in")
		p.level++
		for _, ci := range x.Items {
			p.newline()
			p.indent()
			for i, w := range ci.Patterns {
				if i > 0 {
					p.str(" | ")
				}
				p.word(w)
			}
			p.str(")")
			p.nestedStmts(ci.Stmts)
			p.indent()
			p.str(ci.Op.String())
		}
		p.level--
		p.newline()
		p.indent()
		p.str("esac")
	case *BinaryCmd:
		p.stmt(x.X)
		p.bufWriter.WriteByte(' ')
		p.str(x.Op.String())
		p.bufWriter.WriteByte(' ')
		p.stmt(x.Y)
	case *FuncDecl:
		if x.RsrvWord {
			p.str("function ")
		}
		p.str(x.Name.Value)
		if x.Parens {
			p.str("()")
		}
		p.bufWriter.WriteByte(' ')
		p.stmt(x.Body)
	case *ArithmCmd:
		p.str("((")
		p.arithmExpr(x.X, false)
		p.str("))")
	case *TestClause:
		p.str("[[ ")
		p.testExpr(x.X)
		p.str(" ]]")
	case *DeclClause:
		p.str(x.Variant.Value)
		for _, a := range x.Args {
			p.bufWriter.WriteByte(' ')
			p.assign(a)
		}
	case *LetClause:
		p.str("let")
		for _, expr := range x.Exprs {
			p.bufWriter.WriteByte(' ')
			p.arithmExpr(expr, true)
		}
	default:
		panic(fmt.Sprintf("syntax.Printer: unexpected node type %T", x))
	}
}

func (p *Printer) ifClause(ic *IfClause, elif bool) {
	if !elif {
		p.str("if ")
	} else {
		p.str("elif ")
	}
	p.condStmts(ic.Cond)
	p.str("; then")
	p.nestedStmts(ic.Then)
	els := ic.Else
	for els != nil {
		p.indent()
		if len(els.Cond) > 0 {
			p.ifClause(els, true)
			return
		}
		p.str("else")
		p.nestedStmts(els.Then)
		els = els.Else
	}
	p.indent()
	p.str("fi")
}

// condStmts prints a condition statement list on a single line.
func (p *Printer) condStmts(stmts []*Stmt) {
	for i, s := range stmts {
		if i > 0 {
			p.str("; ")
		}
		p.stmt(s)
	}
}

func (p *Printer) nestedStmts(stmts []*Stmt) {
	p.newline()
	p.level++
	p.stmtList(stmts)
	p.level--
}

func (p *Printer) loop(loop Loop) {
	switch x := loop.(type) {
	case *WordIter:
		p.str(x.Name.Value)
		if x.InPos.IsValid() || len(x.Items) > 0 {
			p.str(" in")
			for _, w := range x.Items {
				p.bufWriter.WriteByte(' ')
				p.word(w)
			}
		}
	case *CStyleLoop:
		p.str("((")
		if x.Init != nil {
			p.arithmExpr(x.Init, false)
		}
		p.str("; ")
		if x.Cond != nil {
			p.arithmExpr(x.Cond, false)
		}
		p.str("; ")
		if x.Post != nil {
			p.arithmExpr(x.Post, false)
		}
		p.str("))")
	}
}

func (p *Printer) assign(a *Assign) {
	if a.Name != nil {
		p.str(a.Name.Value)
		if a.Index != nil {
			p.str("[")
			p.arithmExpr(a.Index, false)
			p.str("]")
		}
		if !a.Naked {
			if a.Append {
				p.str("+=")
			} else {
				p.str("=")
			}
		}
	}
	if a.Value != nil {
		p.word(a.Value)
	} else if a.Array != nil {
		p.str("(")
		for i, el := range a.Array.Elems {
			if i > 0 {
				p.bufWriter.WriteByte(' ')
			}
			if el.Index != nil {
				p.str("[")
				p.arithmExpr(el.Index, false)
				p.str("]=")
			}
			p.word(el.Value)
		}
		p.str(")")
	}
}

func (p *Printer) word(w *Word) {
	if w == nil {
		return
	}
	for _, part := range w.Parts {
		p.wordPart(part)
	}
}

func (p *Printer) wordPart(wp WordPart) {
	switch x := wp.(type) {
	case *Lit:
		p.str(x.Value)
	case *SglQuoted:
		if x.Dollar {
			p.bufWriter.WriteByte('$')
		}
		p.bufWriter.WriteByte('\'')
		p.str(x.Value)
		p.bufWriter.WriteByte('\'')
	case *DblQuoted:
		p.bufWriter.WriteByte('"')
		for _, part := range x.Parts {
			p.wordPart(part)
		}
		p.bufWriter.WriteByte('"')
	case *CmdSubst:
		if x.Backquotes {
			p.bufWriter.WriteByte('`')
			p.condStmts(x.Stmts)
			p.bufWriter.WriteByte('`')
		} else {
			p.str("$(")
			p.condStmts(x.Stmts)
			p.str(")")
		}
	case *ParamExp:
		p.paramExp(x)
	case *ArithmExp:
		p.str("$((")
		p.arithmExpr(x.X, false)
		p.str("))")
	case *ProcSubst:
		p.str(x.Op.String())
		p.condStmts(x.Stmts)
		p.str(")")
	case *BraceExp:
		p.str("{")
		sep := ","
		if x.Sequence {
			sep = ".."
		}
		for i, w := range x.Elems {
			if i > 0 {
				p.str(sep)
			}
			p.word(w)
		}
		p.str("}")
	default:
		panic(fmt.Sprintf("syntax.Printer: unexpected word part type %T", x))
	}
}

func (p *Printer) paramExp(pe *ParamExp) {
	if pe.Short {
		p.bufWriter.WriteByte('$')
		p.str(pe.Param.Value)
		return
	}
	p.str("${")
	switch {
	case pe.Length:
		p.bufWriter.WriteByte('#')
	case pe.Excl:
		p.bufWriter.WriteByte('!')
	}
	p.str(pe.Param.Value)
	if pe.Index != nil {
		p.str("[")
		p.arithmExpr(pe.Index, false)
		p.str("]")
	}
	switch {
	case pe.Names != 0:
		p.str(pe.Names.String())
	case pe.Slice != nil:
		p.str(":")
		if pe.Slice.Offset != nil {
			p.arithmExpr(pe.Slice.Offset, false)
		}
		if pe.Slice.Length != nil {
			p.str(":")
			p.arithmExpr(pe.Slice.Length, false)
		}
	case pe.Repl != nil:
		if pe.Repl.All {
			p.str("//")
		} else {
			p.str("/")
		}
		p.word(pe.Repl.Orig)
		p.str("/")
		p.word(pe.Repl.With)
	case pe.Exp != nil:
		p.str(pe.Exp.Op.String())
		p.word(pe.Exp.Word)
	}
	p.str("}")
}

func (p *Printer) arithmExpr(expr ArithmExpr, compact bool) {
	switch x := expr.(type) {
	case *Word:
		p.word(x)
	case *BinaryArithm:
		if compact {
			p.arithmExpr(x.X, compact)
			p.str(x.Op.String())
			p.arithmExpr(x.Y, compact)
		} else {
			p.arithmExpr(x.X, compact)
			if x.Op == Comma {
				p.str(", ")
			} else {
				p.bufWriter.WriteByte(' ')
				p.str(x.Op.String())
				p.bufWriter.WriteByte(' ')
			}
			p.arithmExpr(x.Y, compact)
		}
	case *UnaryArithm:
		if x.Post {
			p.arithmExpr(x.X, compact)
			p.str(x.Op.String())
		} else {
			p.str(x.Op.String())
			p.arithmExpr(x.X, compact)
		}
	case *ParenArithm:
		p.str("(")
		p.arithmExpr(x.X, compact)
		p.str(")")
	}
}

func (p *Printer) testExpr(expr TestExpr) {
	switch x := expr.(type) {
	case *Word:
		p.word(x)
	case *BinaryTest:
		p.testExpr(x.X)
		p.bufWriter.WriteByte(' ')
		p.str(x.Op.String())
		p.bufWriter.WriteByte(' ')
		p.testExpr(x.Y)
	case *UnaryTest:
		p.str(x.Op.String())
		p.bufWriter.WriteByte(' ')
		p.testExpr(x.X)
	case *ParenTest:
		p.str("( ")
		p.testExpr(x.X)
		p.str(" )")
	}
}
