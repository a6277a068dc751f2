// Copyright (c) 2026, The gsh Authors
// See LICENSE for licensing information

package expand

import "os/user"

// userHomeDir asks the host OS for a user's home directory. An unknown
// user results in an empty string, leaving the tilde word untouched.
func userHomeDir(name string) string {
	u, err := user.Lookup(name)
	if err != nil {
		return ""
	}
	return u.HomeDir
}
