// SPDX-License-Identifier: GPL-3.0-or-later

package padial

import (
	"fmt"
	"os"
	"strings"
)

// DefaultSocketName is the final path component of the per-user and
// system-wide local sockets (spec.md §4.1).
const DefaultSocketName = "native"

// DefaultBusName is the well-known desktop-bus name the [*BusWaiter]
// watches for ownership changes (spec.md §4.4).
const DefaultBusName = "org.pulseaudio.Server"

// Endpoint is one candidate in the connection-attempt cascade: either a
// Unix domain socket path or a TCP host:port pair.
type Endpoint struct {
	// Network is "unix" or "tcp".
	Network string

	// Address is a filesystem path (Network == "unix") or a host:port
	// string (Network == "tcp").
	Address string

	// Local reports whether this candidate is inherently local (a Unix
	// socket, or a loopback TCP address). [*Context]'s is_local predicate
	// is taken from it when this candidate connects; the connected socket
	// itself is not inspected.
	Local bool
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s:%s", e.Network, e.Address)
}

// EndpointSet identifies which re-seed group an [Endpoint] belongs to, so
// the Connector and Bus Waiter can re-inject only the appropriate subset
// (spec.md §4.3, §4.4).
type EndpointSet int

const (
	// EndpointSetPerUser holds the per-user local socket candidates,
	// re-seeded after a successful autospawn or a session-bus signal.
	EndpointSetPerUser EndpointSet = iota

	// EndpointSetSystemWide holds the system-wide local socket candidate,
	// re-seeded after a system-bus signal.
	EndpointSetSystemWide

	// EndpointSetNetwork holds TCP-localhost and display-derived
	// candidates; never re-seeded.
	EndpointSetNetwork
)

// BuildEndpoints constructs the ordered candidate list for the
// connection-attempt cascade (spec.md §4.1).
//
// If server is non-empty, it is parsed as a comma/whitespace-delimited
// list of "network:address" strings (e.g. "unix:/run/audio/native" or
// "tcp:localhost:4317") preserving order, and autospawnAllowed is
// returned false: a user-specified server disables both autospawn and
// bus-mediated fallback (the Open Question in spec.md §9 resolved this
// way).
//
// Otherwise the list is built by prepending in reverse priority, so the
// final order is: per-user local sockets (including legacy paths, if
// cfg.EnableLegacySocketPaths) first, then the system-wide local socket,
// then tcp4:127.0.0.1 / tcp6:[::1] if cfg.AutoConnectLocalhost, then a
// display-derived host if cfg.AutoConnectDisplay.
func BuildEndpoints(cfg *Config, server string) (endpoints []Endpoint, autospawnAllowed bool) {
	if server != "" {
		return parseServerString(server), false
	}
	if cfg.DefaultServer != "" {
		return parseServerString(cfg.DefaultServer), false
	}

	var list []Endpoint

	if cfg.AutoConnectDisplay {
		if host, ok := displayHost(); ok {
			list = append(list, Endpoint{Network: "tcp", Address: host + ":4317"})
		}
	}
	if cfg.AutoConnectLocalhost {
		list = append(list,
			Endpoint{Network: "tcp", Address: "127.0.0.1:4317", Local: true},
			Endpoint{Network: "tcp", Address: "[::1]:4317", Local: true},
		)
	}

	list = append([]Endpoint{systemWideSocket()}, list...)
	list = append(perUserSockets(cfg.EnableLegacySocketPaths), list...)

	return list, cfg.Autospawn
}

// parseServerString splits a user-supplied server string on commas and
// whitespace, preserving order (spec.md §4.1). Entries without an
// explicit "network:" prefix are treated as "tcp:".
func parseServerString(server string) []Endpoint {
	fields := strings.FieldsFunc(server, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	out := make([]Endpoint, 0, len(fields))
	for _, f := range fields {
		if f == "" {
			continue
		}
		if strings.HasPrefix(f, "unix:") {
			out = append(out, Endpoint{Network: "unix", Address: strings.TrimPrefix(f, "unix:"), Local: true})
			continue
		}
		addr := strings.TrimPrefix(f, "tcp:")
		out = append(out, Endpoint{Network: "tcp", Address: addr})
	}
	return out
}

// systemWideSocket returns the system-wide local-socket candidate.
func systemWideSocket() Endpoint {
	return Endpoint{Network: "unix", Address: "/var/run/audio/" + DefaultSocketName, Local: true}
}

// displayHost extracts the host part of $DISPLAY (everything before the
// first colon), returning ok=false when $DISPLAY is unset or already
// local ("" or starting with ":").
func displayHost() (string, bool) {
	display, ok := os.LookupEnv("DISPLAY")
	if !ok || display == "" {
		return "", false
	}
	idx := strings.IndexByte(display, ':')
	if idx <= 0 {
		return "", false
	}
	return display[:idx], true
}
