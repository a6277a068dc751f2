// Copyright (c) 2026, The gsh Authors
// See LICENSE for licensing information

package expand

import (
	"strconv"
	"strings"

	"github.com/gshell-dev/gsh/syntax"
)

// Braces performs brace expansion on a set of words, returning the
// resulting set. Words that contain no brace expansions are returned
// unchanged. The input words are not modified.
//
// For example, passing it a literal word "foo{bar,baz}" will return two
// literal words, "foobar" and "foobaz".
func Braces(words ...*syntax.Word) []*syntax.Word {
	var expanded []*syntax.Word
	for _, word := range words {
		w2 := *word
		w2.Parts = append([]syntax.WordPart(nil), word.Parts...)
		if !syntax.SplitBraces(&w2) {
			expanded = append(expanded, word)
			continue
		}
		expanded = append(expanded, expandRec(&w2)...)
	}
	return expanded
}

func expandRec(w *syntax.Word) []*syntax.Word {
	var all []*syntax.Word
	var left []syntax.WordPart
	for i, wp := range w.Parts {
		br, ok := wp.(*syntax.BraceExp)
		if !ok {
			left = append(left, wp)
			continue
		}
		if br.Sequence {
			for _, elem := range braceSeqElems(br) {
				next := syntax.Word{}
				next.Parts = append(next.Parts, left...)
				next.Parts = append(next.Parts, &syntax.Lit{Value: elem})
				next.Parts = append(next.Parts, w.Parts[i+1:]...)
				all = append(all, expandRec(&next)...)
			}
			return all
		}
		for _, elem := range br.Elems {
			next := syntax.Word{}
			next.Parts = append(next.Parts, left...)
			next.Parts = append(next.Parts, elem.Parts...)
			next.Parts = append(next.Parts, w.Parts[i+1:]...)
			all = append(all, expandRec(&next)...)
		}
		return all
	}
	return []*syntax.Word{w}
}

// braceSeqElems expands a sequence brace expression such as {1..5},
// {a..e}, or {01..10..2} into its elements. Zero padding is preserved
// from the widest padded endpoint.
func braceSeqElems(br *syntax.BraceExp) []string {
	lits := make([]string, 0, 3)
	for _, w := range br.Elems {
		lits = append(lits, w.Lit())
	}
	step := int64(1)
	if len(lits) == 3 {
		n, err := strconv.ParseInt(lits[2], 10, 64)
		if err != nil || n == 0 {
			return nil
		}
		step = n
	}
	if step < 0 {
		step = -step
	}
	// character ranges such as {a..e}
	if len(lits[0]) == 1 && !isDigitStr(lits[0]) {
		start, end := rune(lits[0][0]), rune(lits[1][0])
		var elems []string
		if start <= end {
			for r := start; r <= end; r += rune(step) {
				elems = append(elems, string(r))
			}
		} else {
			for r := start; r >= end; r -= rune(step) {
				elems = append(elems, string(r))
			}
		}
		return elems
	}
	start, err1 := strconv.ParseInt(lits[0], 10, 64)
	end, err2 := strconv.ParseInt(lits[1], 10, 64)
	if err1 != nil || err2 != nil {
		return nil
	}
	width := 0
	for _, lit := range lits[:2] {
		l := lit
		if strings.HasPrefix(l, "-") {
			l = l[1:]
		}
		if strings.HasPrefix(l, "0") && len(lit) > width {
			width = len(lit)
		}
	}
	format := func(n int64) string {
		s := strconv.FormatInt(n, 10)
		if width > len(s) {
			pad := width - len(s)
			if strings.HasPrefix(s, "-") {
				return "-" + strings.Repeat("0", pad) + s[1:]
			}
			return strings.Repeat("0", pad) + s
		}
		return s
	}
	var elems []string
	if start <= end {
		for n := start; n <= end; n += step {
			elems = append(elems, format(n))
		}
	} else {
		for n := start; n >= end; n -= step {
			elems = append(elems, format(n))
		}
	}
	return elems
}

func isDigitStr(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
