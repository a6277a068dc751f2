// Copyright (c) 2026, The gsh Authors
// See LICENSE for licensing information

// Package pattern allows working with shell pattern matching notation,
// also known as wildcards or globbing, as described in POSIX.1-2017
// section 2.13.
package pattern

import (
	"fmt"
	"regexp"
	"strings"
)

// Mode can be used to supply a number of options to the package's
// functions. Not all functions change their behavior with all of the
// options below.
type Mode uint

const (
	Shortest     Mode = 1 << iota // prefer the shortest match
	Filenames                     // "*" and "?" do not match slashes nor leading dots
	EntireString                  // match the entire string using ^$ delimiters
	NoGlobCase                    // do case-insensitive match (that is, use (?i) in the regexp)
)

// SyntaxError is returned when a provided pattern was incorrect.
type SyntaxError struct {
	msg string
}

func (e SyntaxError) Error() string { return e.msg }

// Regexp turns a shell pattern into a regular expression that can be used
// with regexp.Compile. It will return an error if the input pattern was
// incorrect. Otherwise, the returned expression can be passed to
// regexp.MustCompile.
//
// For example, Regexp(`foo*bar?`, 0) returns `(?s)foo.*bar.`.
func Regexp(pat string, mode Mode) (string, error) {
	needsEscaping := false
noopLoop:
	for _, r := range pat {
		switch r {
		// including the characters that are regular expression
		// metacharacters, since they need escaping
		case '*', '?', '[', '\\', '.', '+', '(', ')', '|', ']', '{',
			'}', '^', '$':
			needsEscaping = true
			break noopLoop
		}
	}
	if !needsEscaping && mode&(EntireString|NoGlobCase) == 0 {
		return pat, nil
	}
	var sb strings.Builder
	// Enable matching `\n` with the `.` metacharacter, as globs match it.
	sb.WriteString("(?s")
	if mode&NoGlobCase != 0 {
		sb.WriteString("i")
	}
	if mode&Shortest != 0 {
		sb.WriteString("U")
	}
	sb.WriteString(")")
	if mode&EntireString != 0 {
		sb.WriteString("^")
	}
	for i := 0; i < len(pat); i++ {
		switch c := pat[i]; c {
		case '*':
			if mode&Filenames != 0 {
				if i == 0 {
					// a leading dot must be matched explicitly
					sb.WriteString("([^/.][^/]*)?")
				} else {
					sb.WriteString("[^/]*")
				}
			} else {
				sb.WriteString(".*")
			}
		case '?':
			if mode&Filenames != 0 {
				if i == 0 {
					sb.WriteString("[^/.]")
				} else {
					sb.WriteString("[^/]")
				}
			} else {
				sb.WriteByte('.')
			}
		case '\\':
			if i++; i >= len(pat) {
				return "", &SyntaxError{msg: `\ at end of pattern`}
			}
			sb.WriteString(regexp.QuoteMeta(string(pat[i])))
		case '[':
			name, err := charClass(pat[i:])
			if err != nil {
				return "", err
			}
			if name != "" {
				sb.WriteString(name)
				i += len(name) - 1
				break
			}
			if mode&Filenames != 0 {
				litBracket := false
			slashLoop:
				for _, r := range pat[i+1:] {
					switch r {
					case ']':
						break slashLoop
					case '/':
						// a slash cannot appear within a bracket
						// expression when matching file names
						litBracket = true
						break slashLoop
					}
				}
				if litBracket {
					sb.WriteString("\\[")
					continue
				}
			}
			sb.WriteByte(c)
			if i++; i >= len(pat) {
				return "", &SyntaxError{msg: "[ was not matched with a closing ]"}
			}
			switch pat[i] {
			case '!', '^':
				sb.WriteByte('^')
				if i++; i >= len(pat) {
					return "", &SyntaxError{msg: "[ was not matched with a closing ]"}
				}
			}
			if pat[i] == ']' {
				sb.WriteByte(']')
				if i++; i >= len(pat) {
					return "", &SyntaxError{msg: "[ was not matched with a closing ]"}
				}
			}
			rangeStart := byte(0)
		loopBracket:
			for ; i < len(pat); i++ {
				c = pat[i]
				sb.WriteByte(c)
				switch c {
				case '\\':
					if i++; i < len(pat) {
						sb.WriteByte(pat[i])
					}
					continue
				case '-':
					end := byte(0)
					if i+1 < len(pat) {
						end = pat[i+1]
					}
					if end != ']' && rangeStart > end {
						return "", &SyntaxError{msg: fmt.Sprintf(
							"invalid range: %c-%c", rangeStart, end)}
					}
				case ']':
					break loopBracket
				}
				rangeStart = c
			}
			if i >= len(pat) {
				return "", &SyntaxError{msg: "[ was not matched with a closing ]"}
			}
		default:
			sb.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	if mode&EntireString != 0 {
		sb.WriteString("$")
	}
	return sb.String(), nil
}

func charClass(s string) (string, error) {
	if strings.HasPrefix(s, "[[.") || strings.HasPrefix(s, "[[=") {
		return "", &SyntaxError{msg: "collating features not available"}
	}
	if !strings.HasPrefix(s, "[[:") {
		return "", nil
	}
	name := s[3:]
	end := strings.Index(name, ":]]")
	if end < 0 {
		return "", &SyntaxError{msg: "[[: was not matched with a closing :]]"}
	}
	name = name[:end]
	switch name {
	case "alnum", "alpha", "ascii", "blank", "cntrl", "digit", "graph",
		"lower", "print", "punct", "space", "upper", "word", "xdigit":
	default:
		return "", &SyntaxError{msg: fmt.Sprintf("invalid character class: %q", name)}
	}
	return s[:len(name)+6], nil
}

// HasMeta returns whether a string contains any unescaped pattern
// metacharacters: '*', '?', or '['. When the function returns false, the
// given pattern can only match at most one string.
func HasMeta(pat string, mode Mode) bool {
	for i := 0; i < len(pat); i++ {
		switch pat[i] {
		case '\\':
			i++
		case '*', '?', '[':
			return true
		}
	}
	return false
}

// QuoteMeta returns a string that quotes all pattern metacharacters in
// the given text. The returned string is a pattern that matches the
// literal text.
//
// For example, QuoteMeta(`foo*bar?`) returns `foo\*bar\?`.
func QuoteMeta(pat string, mode Mode) string {
	needsEscaping := false
loop:
	for _, r := range pat {
		switch r {
		case '*', '?', '[', '\\':
			needsEscaping = true
			break loop
		}
	}
	if !needsEscaping { // short-cut without a string copy
		return pat
	}
	var sb strings.Builder
	for _, r := range pat {
		switch r {
		case '*', '?', '[', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Match reports whether the pattern matches the entire name, using shell
// pattern semantics. It is a convenience wrapper around Regexp and
// regexp.MatchString.
func Match(pat, name string, mode Mode) (bool, error) {
	expr, err := Regexp(pat, mode|EntireString)
	if err != nil {
		return false, err
	}
	rx, err := regexp.Compile(expr)
	if err != nil {
		return false, err
	}
	return rx.MatchString(name), nil
}
