// Copyright (c) 2026, The gsh Authors
// See LICENSE for licensing information

package expand

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gshell-dev/gsh/syntax"
)

// Format expands a format string with a number of arguments, following
// the shell's printf builtin behavior and its ANSI-C escape sequences.
// The resulting string is returned, alongside the number of arguments
// that were consumed.
//
// If args is nil, only escape sequences are processed, matching the
// behavior of $'...' quoting; '%' characters pass through unchanged.
func Format(format string, args []string) (string, int, error) {
	var sb strings.Builder
	initialArgs := len(args)
	consume := func() string {
		if len(args) > 0 {
			arg := args[0]
			args = args[1:]
			return arg
		}
		return ""
	}
	for i := 0; i < len(format); i++ {
		c := format[i]
		switch {
		case c == '\\':
			n, stop := escapeSeq(format[i:], &sb)
			if stop {
				return sb.String(), initialArgs - len(args), nil
			}
			i += n - 1
		case args != nil && c == '%':
			if i+1 < len(format) && format[i+1] == '%' {
				sb.WriteByte('%')
				i++
				continue
			}
			spec, n, err := parseFormatSpec(format[i:])
			if err != nil {
				return "", 0, err
			}
			i += n - 1
			if err := spec.apply(&sb, consume); err != nil {
				return "", 0, err
			}
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String(), initialArgs - len(args), nil
}

// escapeSeq writes one backslash escape sequence to the builder,
// returning how many input bytes it spans. The stop result is true when
// the \c sequence was found, which ends all output.
func escapeSeq(s string, sb *strings.Builder) (int, bool) {
	if len(s) < 2 {
		sb.WriteByte('\\')
		return 1, false
	}
	switch s[1] {
	case 'a':
		sb.WriteByte('\a')
	case 'b':
		sb.WriteByte('\b')
	case 'e', 'E':
		sb.WriteByte(0x1b)
	case 'f':
		sb.WriteByte('\f')
	case 'n':
		sb.WriteByte('\n')
	case 'r':
		sb.WriteByte('\r')
	case 't':
		sb.WriteByte('\t')
	case 'v':
		sb.WriteByte('\v')
	case '\\':
		sb.WriteByte('\\')
	case '\'':
		sb.WriteByte('\'')
	case '"':
		sb.WriteByte('"')
	case '?':
		sb.WriteByte('?')
	case 'c':
		return 2, true
	case 'x':
		n := 0
		var v uint32
		for n < 2 && 2+n < len(s) {
			d, ok := hexVal(s[2+n])
			if !ok {
				break
			}
			v = v<<4 | d
			n++
		}
		if n == 0 {
			sb.WriteString(`\x`)
			return 2, false
		}
		sb.WriteByte(byte(v))
		return 2 + n, false
	case 'u', 'U':
		max := 4
		if s[1] == 'U' {
			max = 8
		}
		n := 0
		var v uint32
		for n < max && 2+n < len(s) {
			d, ok := hexVal(s[2+n])
			if !ok {
				break
			}
			v = v<<4 | d
			n++
		}
		if n == 0 {
			sb.WriteByte('\\')
			sb.WriteByte(s[1])
			return 2, false
		}
		sb.WriteRune(rune(v))
		return 2 + n, false
	case '0', '1', '2', '3', '4', '5', '6', '7':
		n := 0
		var v uint32
		for n < 3 && 1+n < len(s) && s[1+n] >= '0' && s[1+n] <= '7' {
			v = v<<3 | uint32(s[1+n]-'0')
			n++
		}
		sb.WriteByte(byte(v))
		return 1 + n, false
	default:
		sb.WriteByte('\\')
		sb.WriteByte(s[1])
	}
	return 2, false
}

func hexVal(b byte) (uint32, bool) {
	switch {
	case b >= '0' && b <= '9':
		return uint32(b - '0'), true
	case b >= 'a' && b <= 'f':
		return uint32(b-'a') + 10, true
	case b >= 'A' && b <= 'F':
		return uint32(b-'A') + 10, true
	}
	return 0, false
}

type formatSpec struct {
	flags     string
	width     int
	widthStar bool
	prec      int
	precStar  bool
	hasPrec   bool
	verb      byte
}

// parseFormatSpec parses one %-directive, returning how many bytes of the
// input it spans.
func parseFormatSpec(s string) (*formatSpec, int, error) {
	spec := &formatSpec{prec: -1}
	i := 1
	for i < len(s) {
		switch s[i] {
		case '-', '+', ' ', '#', '0':
			spec.flags += string(s[i])
			i++
			continue
		}
		break
	}
	if i < len(s) && s[i] == '*' {
		spec.widthStar = true
		i++
	} else {
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			spec.width = spec.width*10 + int(s[i]-'0')
			i++
		}
	}
	if i < len(s) && s[i] == '.' {
		spec.hasPrec = true
		spec.prec = 0
		i++
		if i < len(s) && s[i] == '*' {
			spec.precStar = true
			i++
		} else {
			for i < len(s) && s[i] >= '0' && s[i] <= '9' {
				spec.prec = spec.prec*10 + int(s[i]-'0')
				i++
			}
		}
	}
	if i >= len(s) {
		return nil, 0, fmt.Errorf("missing format char")
	}
	switch c := s[i]; c {
	case 's', 'b', 'q', 'c', 'd', 'i', 'u', 'o', 'x', 'X', 'e', 'E', 'f',
		'F', 'g', 'G':
		spec.verb = c
	default:
		return nil, 0, fmt.Errorf("invalid format char: %c", c)
	}
	return spec, i + 1, nil
}

func (spec *formatSpec) goFormat(verb byte) string {
	var sb strings.Builder
	sb.WriteByte('%')
	for _, f := range spec.flags {
		if f != '0' || verb != 's' {
			sb.WriteRune(f)
		}
	}
	if spec.width > 0 {
		sb.WriteString(strconv.Itoa(spec.width))
	}
	if spec.hasPrec {
		sb.WriteByte('.')
		sb.WriteString(strconv.Itoa(spec.prec))
	}
	sb.WriteByte(verb)
	return sb.String()
}

func (spec *formatSpec) apply(sb *strings.Builder, consume func() string) error {
	if spec.widthStar {
		n, _ := strconv.Atoi(consume())
		spec.width = n
	}
	if spec.precStar {
		n, _ := strconv.Atoi(consume())
		spec.prec = n
	}
	switch spec.verb {
	case 's':
		fmt.Fprintf(sb, spec.goFormat('s'), consume())
	case 'b':
		var escaped strings.Builder
		arg := consume()
		for i := 0; i < len(arg); i++ {
			if arg[i] == '\\' {
				n, stop := escapeSeq(arg[i:], &escaped)
				if stop {
					break
				}
				i += n - 1
			} else {
				escaped.WriteByte(arg[i])
			}
		}
		fmt.Fprintf(sb, spec.goFormat('s'), escaped.String())
	case 'q':
		fmt.Fprintf(sb, spec.goFormat('s'), syntax.Quote(consume()))
	case 'c':
		arg := consume()
		b := byte(0)
		if len(arg) > 0 {
			b = arg[0]
		}
		if b != 0 {
			sb.WriteByte(b)
		}
	case 'd', 'i':
		n := parseFormatInt(consume())
		fmt.Fprintf(sb, spec.goFormat('d'), n)
	case 'u':
		n := parseFormatInt(consume())
		fmt.Fprintf(sb, spec.goFormat('d'), uint64(n))
	case 'o', 'x', 'X':
		n := parseFormatInt(consume())
		fmt.Fprintf(sb, spec.goFormat(spec.verb), n)
	case 'e', 'E', 'f', 'F', 'g', 'G':
		f, _ := strconv.ParseFloat(consume(), 64)
		verb := spec.verb
		if verb == 'F' {
			verb = 'f'
		}
		fmt.Fprintf(sb, spec.goFormat(verb), f)
	}
	return nil
}

// parseFormatInt is lenient like the printf builtin: leading numeric
// prefixes are used, 'x' quoting yields character values, and anything
// else becomes zero.
func parseFormatInt(s string) int64 {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') {
		return int64(s[1])
	}
	n, err := strconv.ParseInt(s, 0, 64)
	if err == nil {
		return n
	}
	if n, err := parseArithNum(s); err == nil {
		return n
	}
	return 0
}
