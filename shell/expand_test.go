// Copyright (c) 2026, The gsh Authors
// See LICENSE for licensing information

package shell

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func testGetenv(name string) string {
	switch name {
	case "FOO":
		return "bar"
	case "HOME":
		return "/home/user"
	}
	return ""
}

func TestExpand(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"$FOO", "bar"},
		{"${FOO}", "bar"},
		{"pre-$FOO-post", "pre-bar-post"},
		{"$FOO $FOO", "bar bar"},
		{"${MISSING:-fallback}", "fallback"},
		{"$((2 * 21))", "42"},
	}
	for _, tc := range tests {
		got, err := Expand(tc.in, testGetenv)
		if err != nil {
			t.Fatalf("Expand(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("Expand(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFields(t *testing.T) {
	t.Parallel()
	got, err := Fields(`a "b c" $FOO`, testGetenv)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a", "b c", "bar"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Fields = %#v, want %#v", got, want)
	}
}

func TestSourceFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "vars.sh")
	if err := os.WriteFile(path, []byte("a=1\nb='two words'\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	vars, err := SourceFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if vars["a"].String() != "1" || vars["b"].String() != "two words" {
		t.Fatalf("vars = %#v", vars)
	}
}
