// SPDX-License-Identifier: GPL-3.0-or-later

//go:build unix

package padial

import (
	"net"

	"golang.org/x/sys/unix"
)

// credentialPassingSupported reports whether this platform can transmit
// peer credentials out-of-band over a local socket (spec.md §4.5, §4.9).
func credentialPassingSupported() bool {
	return true
}

// peerCredentialsFromConn reads SO_PEERCRED off a Unix domain socket.
// Returns ok=false for any non-Unix connection (e.g. the TCP-localhost
// fallback candidates), matching spec.md §4.5's "force off" rule when
// credential passing is unavailable for the chosen transport.
func peerCredentialsFromConn(conn net.Conn) (Credentials, bool) {
	uc, ok := conn.(*net.UnixConn)
	if !ok {
		return Credentials{}, false
	}
	raw, err := uc.SyscallConn()
	if err != nil {
		return Credentials{}, false
	}
	var cred *unix.Ucred
	var sockErr error
	err = raw.Control(func(fd uintptr) {
		cred, sockErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if err != nil || sockErr != nil || cred == nil {
		return Credentials{}, false
	}
	return Credentials{UID: uint32(cred.Uid), GID: uint32(cred.Gid)}, true
}
