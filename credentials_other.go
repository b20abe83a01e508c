// SPDX-License-Identifier: GPL-3.0-or-later

//go:build !unix

package padial

import "net"

// credentialPassingSupported is false on platforms without a SO_PEERCRED
// equivalent wired here; SHM is conservatively disabled (spec.md §4.9).
func credentialPassingSupported() bool {
	return false
}

func peerCredentialsFromConn(conn net.Conn) (Credentials, bool) {
	return Credentials{}, false
}
