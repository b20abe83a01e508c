// SPDX-License-Identifier: GPL-3.0-or-later

//go:build unix

package padial

import (
	"errors"

	"golang.org/x/sys/unix"
)

// sigchldWaitable checks the precondition in spec.md §4.3: SIGCHLD must
// not be SIG_IGN and must not carry SA_NOCLDWAIT, otherwise waitpid
// cannot observe the child.
func sigchldWaitable() bool {
	var act unix.Sigaction
	if err := unix.Sigaction(unix.SIGCHLD, nil, &act); err != nil {
		// Cannot determine disposition; fail closed per spec.md §4.9
		// "internal failures (fork, sigaction)".
		return false
	}
	if act.Handler == uintptr(unix.SIG_IGN) {
		return false
	}
	if act.Flags&unix.SA_NOCLDWAIT != 0 {
		return false
	}
	return true
}

// isAlreadyReaped reports whether err from [exec.Cmd.Wait] indicates the
// child had already been reaped by the time we waited for it (spec.md
// §4.3: "If the child cannot be found (already reaped), treat as
// success").
func isAlreadyReaped(err error) bool {
	var errno unix.Errno
	return errors.As(err, &errno) && errno == unix.ECHILD
}
