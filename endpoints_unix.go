// SPDX-License-Identifier: GPL-3.0-or-later

//go:build unix

package padial

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// perUserSockets returns the per-user local socket candidates, in the
// order the original implementation tries them (spec.md §4.1): legacy
// paths first (when enabled and owned by the current user), then the
// socket under the per-user cache directory ([os.UserCacheDir]);
// XDG_RUNTIME_DIR is not consulted.
func perUserSockets(legacy bool) []Endpoint {
	var out []Endpoint

	if legacy {
		if home, err := os.UserHomeDir(); err == nil {
			out = appendIfOwnedDir(out, filepath.Join(home, ".pulse"))
		}
		tmpDir := fmt.Sprintf("/tmp/audio-%d", os.Getuid())
		out = appendIfOwnedDir(out, tmpDir)
	}

	if dir, err := os.UserCacheDir(); err == nil {
		out = append(out, Endpoint{
			Network: "unix",
			Address: filepath.Join(dir, "audio", DefaultSocketName),
			Local:   true,
		})
	}

	return out
}

// appendIfOwnedDir appends dir's socket candidate only if dir exists and
// is owned by the current user (spec.md §4.1: "owned by the current
// UID").
func appendIfOwnedDir(out []Endpoint, dir string) []Endpoint {
	var st unix.Stat_t
	if err := unix.Stat(dir, &st); err != nil {
		return out
	}
	if st.Uid != uint32(os.Getuid()) {
		return out
	}
	return append(out, Endpoint{
		Network: "unix",
		Address: filepath.Join(dir, DefaultSocketName),
		Local:   true,
	})
}
