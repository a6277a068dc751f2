// Copyright (c) 2026, The gsh Authors
// See LICENSE for licensing information

package pattern

import (
	"regexp"
	"testing"
)

func TestRegexp(t *testing.T) {
	t.Parallel()
	tests := []struct {
		pat  string
		mode Mode
		want string
	}{
		{`foo`, 0, `foo`},
		{`foo*`, 0, `(?s)foo.*`},
		{`foo?bar`, 0, `(?s)foo.bar`},
		{`*`, Filenames, `(?s)([^/.][^/]*)?`},
		{`foo.bar`, 0, `(?s)foo\.bar`},
		{`foo*`, Shortest, `(?sU)foo.*`},
		{`[abc]`, 0, `(?s)[abc]`},
		{`[!abc]`, 0, `(?s)[^abc]`},
		{`[a-z]`, 0, `(?s)[a-z]`},
		{`foo`, EntireString, `(?s)^foo$`},
		{`foo`, NoGlobCase, `(?si)foo`},
	}
	for _, tc := range tests {
		got, err := Regexp(tc.pat, tc.mode)
		if err != nil {
			t.Fatalf("Regexp(%q, %d): %v", tc.pat, tc.mode, err)
		}
		if got != tc.want {
			t.Errorf("Regexp(%q, %d) = %q, want %q", tc.pat, tc.mode, got, tc.want)
		}
		if _, err := regexp.Compile(got); err != nil {
			t.Errorf("Regexp(%q, %d) produced an invalid regexp %q: %v",
				tc.pat, tc.mode, got, err)
		}
	}
}

func TestRegexpErrors(t *testing.T) {
	t.Parallel()
	for _, pat := range []string{
		`[`,
		`[a`,
		`\`,
		`[z-a]`,
	} {
		if _, err := Regexp(pat, 0); err == nil {
			t.Errorf("Regexp(%q) did not error", pat)
		}
	}
}

func TestMatch(t *testing.T) {
	t.Parallel()
	tests := []struct {
		pat, name string
		mode      Mode
		want      bool
	}{
		{"*", "anything", 0, true},
		{"h*o", "hello", 0, true},
		{"h*o", "hellox", 0, false},
		{"?at", "cat", 0, true},
		{"?at", "at", 0, false},
		{"[bc]at", "cat", 0, true},
		{"[!bc]at", "cat", 0, false},
		{"[a-m]at", "hat", 0, true},
		{"foo.*", "foo.go", 0, true},
		{"*", ".hidden", Filenames, false},
		{".*", ".hidden", Filenames, true},
		{"*", "a/b", Filenames, false},
		{"a\nb", "a\nb", 0, true},
		{"a*b", "a\nb", 0, true},
		{`f\*o`, "f*o", 0, true},
		{`f\*o`, "foo", 0, false},
		{"[[:digit:]]", "5", 0, true},
		{"[[:digit:]]", "x", 0, false},
	}
	for _, tc := range tests {
		got, err := Match(tc.pat, tc.name, tc.mode)
		if err != nil {
			t.Fatalf("Match(%q, %q): %v", tc.pat, tc.name, err)
		}
		if got != tc.want {
			t.Errorf("Match(%q, %q, %d) = %v, want %v",
				tc.pat, tc.name, tc.mode, got, tc.want)
		}
	}
}

func TestHasMeta(t *testing.T) {
	t.Parallel()
	for pat, want := range map[string]bool{
		"foo":      false,
		"foo*":     true,
		"fo?o":     true,
		"[ab]":     true,
		`foo\*bar`: false,
	} {
		if got := HasMeta(pat, 0); got != want {
			t.Errorf("HasMeta(%q) = %v, want %v", pat, got, want)
		}
	}
}

func TestQuoteMeta(t *testing.T) {
	t.Parallel()
	for pat, want := range map[string]string{
		"foo":      "foo",
		"foo*bar?": `foo\*bar\?`,
		"[x]":      `\[x]`,
	} {
		if got := QuoteMeta(pat, 0); got != want {
			t.Errorf("QuoteMeta(%q) = %q, want %q", pat, got, want)
		}
	}
}
