// SPDX-License-Identifier: GPL-3.0-or-later

//go:build !unix

package padial

// sigchldWaitable always reports true on platforms without POSIX signal
// dispositions; waitpid-equivalent semantics are handled entirely by
// [exec.Cmd.Wait] there.
func sigchldWaitable() bool {
	return true
}

func isAlreadyReaped(err error) bool {
	return false
}
