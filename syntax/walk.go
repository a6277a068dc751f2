// Copyright (c) 2026, The gsh Authors
// See LICENSE for licensing information

package syntax

import "fmt"

// Walk traverses a syntax tree in depth-first order: It starts by calling
// f(node); node must not be nil. If f returns true, Walk invokes f
// recursively for each of the non-nil children of node, followed by
// f(nil).
func Walk(node Node, f func(Node) bool) {
	if !f(node) {
		return
	}
	switch x := node.(type) {
	case *File:
		walkStmts(x.Stmts, f)
	case *Stmt:
		if x.Cmd != nil {
			Walk(x.Cmd, f)
		}
		for _, r := range x.Redirs {
			Walk(r, f)
		}
	case *Assign:
		if x.Name != nil {
			Walk(x.Name, f)
		}
		if x.Index != nil {
			Walk(x.Index, f)
		}
		if x.Value != nil {
			Walk(x.Value, f)
		}
		if x.Array != nil {
			Walk(x.Array, f)
		}
	case *Redirect:
		if x.N != nil {
			Walk(x.N, f)
		}
		if x.Word != nil {
			Walk(x.Word, f)
		}
		if x.Hdoc != nil {
			Walk(x.Hdoc, f)
		}
	case *CallExpr:
		for _, a := range x.Assigns {
			Walk(a, f)
		}
		walkWords(x.Args, f)
	case *Subshell:
		walkStmts(x.Stmts, f)
	case *Block:
		walkStmts(x.Stmts, f)
	case *IfClause:
		walkStmts(x.Cond, f)
		walkStmts(x.Then, f)
		if x.Else != nil {
			Walk(x.Else, f)
		}
	case *WhileClause:
		walkStmts(x.Cond, f)
		walkStmts(x.Do, f)
	case *ForClause:
		Walk(x.Loop, f)
		walkStmts(x.Do, f)
	case *WordIter:
		Walk(x.Name, f)
		walkWords(x.Items, f)
	case *CStyleLoop:
		if x.Init != nil {
			Walk(x.Init, f)
		}
		if x.Cond != nil {
			Walk(x.Cond, f)
		}
		if x.Post != nil {
			Walk(x.Post, f)
		}
	case *BinaryCmd:
		Walk(x.X, f)
		Walk(x.Y, f)
	case *FuncDecl:
		Walk(x.Name, f)
		Walk(x.Body, f)
	case *Word:
		for _, wp := range x.Parts {
			Walk(wp, f)
		}
	case *Lit:
	case *SglQuoted:
	case *DblQuoted:
		for _, wp := range x.Parts {
			Walk(wp, f)
		}
	case *CmdSubst:
		walkStmts(x.Stmts, f)
	case *ParamExp:
		Walk(x.Param, f)
		if x.Index != nil {
			Walk(x.Index, f)
		}
		if x.Repl != nil {
			if x.Repl.Orig != nil {
				Walk(x.Repl.Orig, f)
			}
			if x.Repl.With != nil {
				Walk(x.Repl.With, f)
			}
		}
		if x.Slice != nil {
			if x.Slice.Offset != nil {
				Walk(x.Slice.Offset, f)
			}
			if x.Slice.Length != nil {
				Walk(x.Slice.Length, f)
			}
		}
		if x.Exp != nil && x.Exp.Word != nil {
			Walk(x.Exp.Word, f)
		}
	case *ArithmExp:
		Walk(x.X, f)
	case *ArithmCmd:
		Walk(x.X, f)
	case *BinaryArithm:
		Walk(x.X, f)
		Walk(x.Y, f)
	case *UnaryArithm:
		Walk(x.X, f)
	case *ParenArithm:
		Walk(x.X, f)
	case *CaseClause:
		Walk(x.Word, f)
		for _, ci := range x.Items {
			walkWords(ci.Patterns, f)
			walkStmts(ci.Stmts, f)
		}
	case *TestClause:
		Walk(x.X, f)
	case *BinaryTest:
		Walk(x.X, f)
		Walk(x.Y, f)
	case *UnaryTest:
		Walk(x.X, f)
	case *ParenTest:
		Walk(x.X, f)
	case *DeclClause:
		Walk(x.Variant, f)
		for _, a := range x.Args {
			Walk(a, f)
		}
	case *ArrayExpr:
		for _, el := range x.Elems {
			Walk(el, f)
		}
	case *ArrayElem:
		if x.Index != nil {
			Walk(x.Index, f)
		}
		Walk(x.Value, f)
	case *ProcSubst:
		walkStmts(x.Stmts, f)
	case *LetClause:
		for _, expr := range x.Exprs {
			Walk(expr, f)
		}
	case *BraceExp:
		walkWords(x.Elems, f)
	default:
		panic(fmt.Sprintf("syntax.Walk: unexpected node type %T", x))
	}
	f(nil)
}

func walkStmts(stmts []*Stmt, f func(Node) bool) {
	for _, s := range stmts {
		Walk(s, f)
	}
}

func walkWords(words []*Word, f func(Node) bool) {
	for _, w := range words {
		Walk(w, f)
	}
}
