// Copyright (c) 2026, The gsh Authors
// See LICENSE for licensing information

package interp

import (
	"context"
	"sort"
	"strings"

	"github.com/gshell-dev/gsh/expand"
	"github.com/gshell-dev/gsh/syntax"
)

// declBuiltin implements declare and its variants: typeset, local,
// export, readonly, and nameref. Assignment arguments arrive unexpanded,
// so that values with spaces survive intact.
func (r *Runner) declBuiltin(ctx context.Context, variant string, args []*syntax.Assign) int {
	var flags []string
	var asgs []*syntax.Assign
	print := false
	funcs := false
	for _, as := range args {
		if as.Naked && as.Name == nil && as.Value != nil {
			lit := as.Value.Lit()
			if strings.HasPrefix(lit, "-") || strings.HasPrefix(lit, "+") {
				switch lit {
				case "-p":
					print = true
				case "-f", "-F":
					funcs = true
				default:
					flags = append(flags, lit)
				}
				continue
			}
			// a fully expanded word; reparse as an assignment
			asgs = append(asgs, parseAssign(r.literal(ctx, as.Value)))
			continue
		}
		asgs = append(asgs, as)
	}
	switch variant {
	case "local":
		if len(r.funcScopes) == 0 {
			r.errf("gsh: local: can only be used in a function\n")
			return 1
		}
	case "export":
		flags = append(flags, "-x")
	case "readonly":
		flags = append(flags, "-r")
	case "nameref":
		flags = append(flags, "-n")
	}
	if funcs {
		if len(asgs) == 0 {
			names := make([]string, 0, len(r.Funcs))
			for name := range r.Funcs {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				r.outf("%s\n", r.Funcs[name].Src)
			}
			return 0
		}
		code := 0
		for _, as := range asgs {
			name := declName(as)
			if f, ok := r.Funcs[name]; ok {
				r.outf("%s\n", f.Src)
			} else {
				code = 1
			}
		}
		return code
	}
	if print && len(asgs) == 0 {
		r.printVars(variant)
		return 0
	}
	if len(asgs) == 0 && len(flags) == 0 {
		r.printVars(variant)
		return 0
	}
	if print {
		code := 0
		for _, as := range asgs {
			name := declName(as)
			vr := r.lookupVar(name)
			if !vr.Declared() {
				r.errf("gsh: declare: %s: not found\n", name)
				code = 1
				continue
			}
			r.printVar(name, vr)
		}
		return code
	}
	valType := ""
	for _, flag := range flags {
		switch flag {
		case "-a", "-A":
			valType = flag
		}
	}
	code := 0
	for _, as := range asgs {
		name := declName(as)
		if name == "" {
			r.errf("gsh: %s: invalid name\n", variant)
			code = 1
			continue
		}
		cur := r.lookupVar(name)
		if cur.ReadOnly && !as.Naked {
			r.errf("gsh: %s: readonly variable\n", name)
			code = 1
			continue
		}
		vr := r.assignVal(ctx, as, valType)
		vr = applyDeclFlags(vr, flags, valType)
		if vr.Integer && vr.Kind == expand.String && vr.Str != "" {
			if n, err := expand.Arithm(r.ecfg, arithmWord(vr.Str)); err == nil {
				vr.Str = itoa64(n)
			}
		}
		asLocal := variant == "local" || (variant == "declare" && len(r.funcScopes) > 0)
		if as.Index != nil {
			r.setVarWithIndex(ctx, name, as.Index, vr)
			continue
		}
		if asLocal && len(r.funcScopes) > 0 {
			r.setVarInternal(name, vr, true)
		} else {
			r.setVarInternal(name, vr, false)
		}
	}
	return code
}

func itoa64(n int64) string {
	neg := n < 0
	if !neg && n < 10 {
		return string(rune('0' + n))
	}
	var buf [21]byte
	i := len(buf)
	un := uint64(n)
	if neg {
		un = uint64(-n)
	}
	for un > 0 {
		i--
		buf[i] = byte('0' + un%10)
		un /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func declName(as *syntax.Assign) string {
	if as.Name != nil {
		return as.Name.Value
	}
	return ""
}

// applyDeclFlags merges declaration flags such as -i or +x into a value.
// A "+" flag removes the attribute instead of adding it, except that +r
// and +n leave the readonly and nameref attributes in place.
func applyDeclFlags(vr expand.Variable, flags []string, valType string) expand.Variable {
	for _, flag := range flags {
		on := strings.HasPrefix(flag, "-")
		for _, c := range flag[1:] {
			switch c {
			case 'x':
				vr.Exported = on
			case 'r':
				if on {
					vr.ReadOnly = true
				}
			case 'i':
				vr.Integer = on
			case 'l':
				vr.Lowercase = on
				if on {
					vr.Uppercase = false
					vr.Str = strings.ToLower(vr.Str)
				}
			case 'u':
				vr.Uppercase = on
				if on {
					vr.Lowercase = false
					vr.Str = strings.ToUpper(vr.Str)
				}
			case 'n':
				if on && vr.Kind == expand.String {
					vr.Kind = expand.NameRef
				}
			case 'g':
				// declare -g assigns globally; the scope decision is
				// made by the caller
			}
		}
	}
	switch valType {
	case "-a":
		if vr.Kind == expand.Unknown {
			vr.Kind = expand.Indexed
		}
	case "-A":
		if vr.Kind == expand.Unknown {
			vr.Kind = expand.Associative
			if vr.Map == nil {
				vr.Map = map[string]string{}
			}
		}
	}
	return vr
}

// printVars lists all visible variables in declare -p form, filtered for
// the export and readonly variants.
func (r *Runner) printVars(variant string) {
	type binding struct {
		name string
		vr   expand.Variable
	}
	var all []binding
	r.eachVar(func(name string, vr expand.Variable) bool {
		switch variant {
		case "export":
			if !vr.Exported {
				return true
			}
		case "readonly":
			if !vr.ReadOnly {
				return true
			}
		}
		all = append(all, binding{name, vr})
		return true
	})
	sort.Slice(all, func(i, j int) bool { return all[i].name < all[j].name })
	for _, b := range all {
		r.printVar(b.name, b.vr)
	}
}

func (r *Runner) printVar(name string, vr expand.Variable) {
	flags := varFlags(vr)
	switch vr.Kind {
	case expand.Indexed:
		var sb strings.Builder
		for i, elem := range vr.List {
			if i > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString("[")
			sb.WriteString(itoa64(int64(i)))
			sb.WriteString("]=")
			sb.WriteString(syntax.Quote(elem))
		}
		r.outf("declare -%s %s=(%s)\n", flags, name, sb.String())
	case expand.Associative:
		var sb strings.Builder
		keys := make([]string, 0, len(vr.Map))
		for k := range vr.Map {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString("[")
			sb.WriteString(syntax.Quote(k))
			sb.WriteString("]=")
			sb.WriteString(syntax.Quote(vr.Map[k]))
		}
		r.outf("declare -%s %s=(%s)\n", flags, name, sb.String())
	default:
		if !vr.IsSet() {
			r.outf("declare -%s %s\n", flags, name)
		} else {
			r.outf("declare -%s %s=%s\n", flags, name, syntax.Quote(vr.Str))
		}
	}
}

func varFlags(vr expand.Variable) string {
	var sb strings.Builder
	switch vr.Kind {
	case expand.Indexed:
		sb.WriteByte('a')
	case expand.Associative:
		sb.WriteByte('A')
	case expand.NameRef:
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
	if sb.Len() == 0 {
		sb.WriteByte('-')
	}
	return sb.String()
}
