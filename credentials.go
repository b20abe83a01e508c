// SPDX-License-Identifier: GPL-3.0-or-later

package padial

import "os"

// Credentials carries a peer's UID/GID as transmitted out-of-band over
// the socket during the handshake (spec.md §4.5). The core never forges
// or assumes peer identity when the transport cannot supply them
// (spec.md §4.9 "Credential passing").
type Credentials struct {
	UID uint32
	GID uint32
}

// LocalCredentials returns the current process's UID/GID. The handshake
// attaches them to the AUTH [Frame]; the [NewFrameStream] transport does
// not transmit a frame's Credentials.
func LocalCredentials() Credentials {
	return Credentials{UID: uint32(os.Getuid()), GID: uint32(os.Getgid())}
}
