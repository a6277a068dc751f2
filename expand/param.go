// Copyright (c) 2026, The gsh Authors
// See LICENSE for licensing information

package expand

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gshell-dev/gsh/pattern"
	"github.com/gshell-dev/gsh/syntax"
)

func nodeLit(node syntax.Node) string {
	if word, ok := node.(*syntax.Word); ok {
		return word.Lit()
	}
	return ""
}

func (cfg *Config) paramExp(pe *syntax.ParamExp) (string, error) {
	oldParam := cfg.curParam
	cfg.curParam = pe
	defer func() { cfg.curParam = oldParam }()

	name := pe.Param.Value
	index := pe.Index
	switch name {
	case "@", "*":
		index = &syntax.Word{Parts: []syntax.WordPart{
			&syntax.Lit{Value: name},
		}}
		name = "@"
	}
	var vr Variable
	switch name {
	case "LINENO":
		// can be overridden; see the curParam field
		vr = cfg.Env.Get(name)
		if !vr.IsSet() {
			line := uint64(cfg.curParam.Pos().Line())
			vr = Variable{Set: true, Kind: String, Str: strconv.FormatUint(line, 10)}
		}
	default:
		vr = cfg.Env.Get(name)
	}
	orig := vr
	_, vr = vr.Resolve(cfg.Env)
	if pe.Excl {
		var strs []string
		switch {
		case pe.Names != 0:
			strs = cfg.namesByPrefix(pe.Param.Value)
		case orig.Kind == NameRef:
			strs = append(strs, orig.Str)
		case pe.Index != nil && nodeLit(pe.Index) == "@":
			switch vr.Kind {
			case Indexed:
				for i := range vr.List {
					strs = append(strs, strconv.Itoa(i))
				}
			case Associative:
				for k := range vr.Map {
					strs = append(strs, k)
				}
				sort.Strings(strs)
			}
		case vr.IsSet():
			// indirection: the variable's value names another
			vr = cfg.Env.Get(vr.String())
			strs = append(strs, vr.String())
		}
		if pe.Names == syntax.NamesPrefix {
			return cfg.ifsJoin(strs), nil
		}
		return strings.Join(strs, " "), nil
	}
	str, err := cfg.varInd(vr, index)
	if err != nil {
		return "", err
	}
	slicePos := func(n int64, length int) int {
		if n < 0 {
			n = int64(length) + n
			if n < 0 {
				n = 0
			}
		} else if n > int64(length) {
			n = int64(length)
		}
		return int(n)
	}
	elems := []string{str}
	if nodeLit(index) == "@" {
		switch vr.Kind {
		case Indexed:
			elems = vr.List
		case Associative:
			elems = nil
			keys := make([]string, 0, len(vr.Map))
			for k := range vr.Map {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				elems = append(elems, vr.Map[k])
			}
		}
	}
	switch {
	case pe.Length:
		n := len(elems)
		switch nodeLit(index) {
		case "@", "*":
		default:
			n = utf8.RuneCountInString(str)
		}
		return strconv.Itoa(n), nil
	case pe.Slice != nil:
		if pe.Slice.Offset != nil {
			n, err := Arithm(cfg, pe.Slice.Offset)
			if err != nil {
				return "", err
			}
			if nodeLit(index) == "@" {
				elems = elems[slicePos(n, len(elems)):]
				str = strings.Join(elems, " ")
			} else {
				runes := []rune(str)
				str = string(runes[slicePos(n, len(runes)):])
			}
		}
		if pe.Slice.Length != nil {
			n, err := Arithm(cfg, pe.Slice.Length)
			if err != nil {
				return "", err
			}
			if nodeLit(index) == "@" {
				elems = elems[:slicePos(n, len(elems))]
				str = strings.Join(elems, " ")
			} else {
				runes := []rune(str)
				if n < 0 {
					n = int64(len(runes)) + n
					if n < 0 {
						n = 0
					}
				}
				str = string(runes[:slicePos(n, len(runes))])
			}
		}
		return str, nil
	case pe.Repl != nil:
		orig, err := Pattern(cfg, pe.Repl.Orig)
		if err != nil {
			return "", err
		}
		anchorStart, anchorEnd := false, false
		if strings.HasPrefix(orig, "#") {
			anchorStart = true
			orig = orig[1:]
		} else if strings.HasPrefix(orig, "%") {
			anchorEnd = true
			orig = orig[1:]
		}
		with, err := Literal(cfg, pe.Repl.With)
		if err != nil {
			return "", err
		}
		n := 1
		if pe.Repl.All {
			n = -1
		}
		expr, err := pattern.Regexp(orig, 0)
		if err != nil {
			return str, nil
		}
		if anchorStart {
			expr = "^(?:" + expr + ")"
		} else if anchorEnd {
			expr = "(?:" + expr + ")$"
		}
		rx, err := regexp.Compile("(?s)" + expr)
		if err != nil {
			return str, nil
		}
		if locs := rx.FindAllStringIndex(str, n); locs != nil {
			buf := cfg.strBuilder()
			last := 0
			for _, loc := range locs {
				buf.WriteString(str[last:loc[0]])
				buf.WriteString(with)
				last = loc[1]
			}
			buf.WriteString(str[last:])
			str = buf.String()
		}
		return str, nil
	case pe.Exp != nil:
		return cfg.expOperator(pe, vr, str, elems)
	}
	if !vr.IsSet() && cfg.NoUnset && !specialParam(name) {
		return "", UnsetParameterError{Node: pe, Message: "unbound variable"}
	}
	return str, nil
}

func specialParam(name string) bool {
	switch name {
	case "@", "*", "#", "?", "$", "!", "-", "0":
		return true
	}
	return len(name) == 1 && name[0] >= '1' && name[0] <= '9'
}

func (cfg *Config) expOperator(pe *syntax.ParamExp, vr Variable, str string, elems []string) (string, error) {
	arg := pe.Exp.Word
	switch op := pe.Exp.Op; op {
	case syntax.AlternateUnsetOrNull:
		if str == "" {
			return "", nil
		}
		fallthrough
	case syntax.AlternateUnset:
		if !vr.IsSet() {
			return "", nil
		}
		return Literal(cfg, arg)
	case syntax.DefaultUnset:
		if vr.IsSet() {
			return str, nil
		}
		return Literal(cfg, arg)
	case syntax.DefaultUnsetOrNull:
		if str != "" {
			return str, nil
		}
		return Literal(cfg, arg)
	case syntax.ErrorUnset, syntax.ErrorUnsetOrNull:
		if vr.IsSet() && (str != "" || op == syntax.ErrorUnset) {
			return str, nil
		}
		msg, err := Literal(cfg, arg)
		if err != nil {
			return "", err
		}
		if msg == "" {
			msg = "parameter unset or null"
		}
		return "", UnsetParameterError{Node: pe, Message: msg}
	case syntax.AssignUnset, syntax.AssignUnsetOrNull:
		if vr.IsSet() && (str != "" || op == syntax.AssignUnset) {
			return str, nil
		}
		val, err := Literal(cfg, arg)
		if err != nil {
			return "", err
		}
		if err := cfg.envSet(pe.Param.Value, val); err != nil {
			return "", err
		}
		return val, nil
	case syntax.RemSmallPrefix, syntax.RemLargePrefix:
		pat, err := Pattern(cfg, arg)
		if err != nil {
			return "", err
		}
		return trimPrefix(str, pat, op == syntax.RemLargePrefix), nil
	case syntax.RemSmallSuffix, syntax.RemLargeSuffix:
		pat, err := Pattern(cfg, arg)
		if err != nil {
			return "", err
		}
		return trimSuffix(str, pat, op == syntax.RemLargeSuffix), nil
	case syntax.UpperFirst, syntax.UpperAll, syntax.LowerFirst, syntax.LowerAll:
		pat, err := Pattern(cfg, arg)
		if err != nil {
			return "", err
		}
		if pat == "" {
			pat = "?"
		}
		upper := op == syntax.UpperFirst || op == syntax.UpperAll
		all := op == syntax.UpperAll || op == syntax.LowerAll
		return caseTransform(str, pat, upper, all), nil
	case syntax.OtherParamOps:
		lit, err := Literal(cfg, arg)
		if err != nil {
			return "", err
		}
		switch lit {
		case "Q", "K":
			return syntax.Quote(str), nil
		case "E":
			s, _, err := Format(str, nil)
			return s, err
		case "P":
			// prompt expansion is a front-end concern; return as is
			return str, nil
		case "U":
			return strings.ToUpper(str), nil
		case "L":
			return strings.ToLower(str), nil
		case "u":
			return capitalize(str, true), nil
		case "l":
			return capitalize(str, false), nil
		case "A":
			return declareStmt(pe.Param.Value, vr), nil
		case "a":
			return attrFlags(vr), nil
		default:
			return "", fmt.Errorf("unexpected @ expansion operator %q", lit)
		}
	}
	return "", fmt.Errorf("unexpected expansion operator %q", pe.Exp.Op.String())
}

func trimPrefix(str, pat string, largest bool) string {
	if largest {
		for j := len(str); j >= 0; j-- {
			if ok, _ := pattern.Match(pat, str[:j], 0); ok {
				return str[j:]
			}
		}
		return str
	}
	for j := 0; j <= len(str); j++ {
		if ok, _ := pattern.Match(pat, str[:j], 0); ok {
			if j == 0 {
				// an empty match leaves the string as is
				break
			}
			return str[j:]
		}
	}
	return str
}

func trimSuffix(str, pat string, largest bool) string {
	if largest {
		for i := 0; i <= len(str); i++ {
			if ok, _ := pattern.Match(pat, str[i:], 0); ok {
				return str[:i]
			}
		}
		return str
	}
	for i := len(str); i >= 0; i-- {
		if ok, _ := pattern.Match(pat, str[i:], 0); ok {
			if i == len(str) {
				break
			}
			return str[:i]
		}
	}
	return str
}

func caseTransform(str, pat string, upper, all bool) string {
	var sb strings.Builder
	first := true
	for _, r := range str {
		match := first || all
		if match {
			if ok, _ := pattern.Match(pat, string(r), 0); !ok {
				match = false
			}
		}
		if match {
			if upper {
				r = unicode.ToUpper(r)
			} else {
				r = unicode.ToLower(r)
			}
		}
		sb.WriteRune(r)
		first = false
	}
	return sb.String()
}

func capitalize(str string, upper bool) string {
	r, size := utf8.DecodeRuneInString(str)
	if size == 0 {
		return str
	}
	if upper {
		r = unicode.ToUpper(r)
	} else {
		r = unicode.ToLower(r)
	}
	return string(r) + str[size:]
}

// declareStmt renders a variable as a "declare" command which would
// recreate it, for the ${var@A} expansion operator.
func declareStmt(name string, vr Variable) string {
	if !vr.Declared() {
		return ""
	}
	flags := attrFlags(vr)
	if flags == "" {
		flags = "-"
	}
	var sb strings.Builder
	sb.WriteString("declare -")
	sb.WriteString(strings.TrimPrefix(flags, "-"))
	if flags == "-" {
		sb.WriteString("-")
	}
	sb.WriteString(" ")
	sb.WriteString(name)
	sb.WriteString("=")
	sb.WriteString(quotedValue(vr))
	return sb.String()
}

func quotedValue(vr Variable) string {
	switch vr.Kind {
	case Indexed:
		var sb strings.Builder
		sb.WriteString("(")
		for i, elem := range vr.List {
			if i > 0 {
				sb.WriteString(" ")
			}
			fmt.Fprintf(&sb, "[%d]=%s", i, syntax.Quote(elem))
		}
		sb.WriteString(")")
		return sb.String()
	case Associative:
		var sb strings.Builder
		sb.WriteString("(")
		keys := make([]string, 0, len(vr.Map))
		for k := range vr.Map {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(" ")
			}
			fmt.Fprintf(&sb, "[%s]=%s", syntax.Quote(k), syntax.Quote(vr.Map[k]))
		}
		sb.WriteString(")")
		return sb.String()
	}
	return syntax.Quote(vr.String())
}

func attrFlags(vr Variable) string {
	var sb strings.Builder
	switch vr.Kind {
	case Indexed:
		sb.WriteByte('a')
	case Associative:
		sb.WriteByte('A')
	case NameRef:
		sb.WriteByte('n')
	}
	if vr.Integer {
		sb.WriteByte('i')
	}
	if vr.Lowercase {
		sb.WriteByte('l')
	}
	if vr.Uppercase {
		sb.WriteByte('u')
	}
	if vr.ReadOnly {
		sb.WriteByte('r')
	}
	if vr.Exported {
		sb.WriteByte('x')
	}
	return sb.String()
}

// varInd returns the value of a variable, accounting for an optional
// index expression.
func (cfg *Config) varInd(vr Variable, idx syntax.ArithmExpr) (string, error) {
	if idx == nil {
		return vr.String(), nil
	}
	switch vr.Kind {
	case String, NameRef, Unknown:
		switch nodeLit(idx) {
		case "@", "*":
			return vr.String(), nil
		}
		n, err := Arithm(cfg, idx)
		if err != nil {
			return "", err
		}
		if n == 0 {
			return vr.String(), nil
		}
	case Indexed:
		switch nodeLit(idx) {
		case "@":
			return strings.Join(vr.List, " "), nil
		case "*":
			return cfg.ifsJoin(vr.List), nil
		}
		n, err := Arithm(cfg, idx)
		if err != nil {
			return "", err
		}
		if n < 0 {
			n = int64(len(vr.List)) + n
		}
		if n >= 0 && n < int64(len(vr.List)) {
			return vr.List[n], nil
		}
	case Associative:
		switch lit := nodeLit(idx); lit {
		case "@", "*":
			strs := make([]string, 0, len(vr.Map))
			keys := make([]string, 0, len(vr.Map))
			for k := range vr.Map {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				strs = append(strs, vr.Map[k])
			}
			if lit == "*" {
				return cfg.ifsJoin(strs), nil
			}
			return strings.Join(strs, " "), nil
		}
		k, err := cfg.assocKey(idx)
		if err != nil {
			return "", err
		}
		return vr.Map[k], nil
	}
	return "", nil
}

// assocKey evaluates an index expression as an associative array key.
// Surrounding quotes within the raw index text are honored.
func (cfg *Config) assocKey(idx syntax.ArithmExpr) (string, error) {
	w, ok := idx.(*syntax.Word)
	if !ok {
		return "", fmt.Errorf("associative array index must be a word")
	}
	s, err := Literal(cfg, w)
	if err != nil {
		return "", err
	}
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') ||
			(s[0] == '\'' && s[len(s)-1] == '\'') {
			s = s[1 : len(s)-1]
		}
	}
	return s, nil
}

func (cfg *Config) namesByPrefix(prefix string) []string {
	var names []string
	cfg.Env.Each(func(name string, vr Variable) bool {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return true
	})
	sort.Strings(names)
	return names
}
