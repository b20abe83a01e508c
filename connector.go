// SPDX-License-Identifier: GPL-3.0-or-later

package padial

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/bassosimone/errclass"
)

// dialTimeout bounds a single candidate connection attempt (spec.md §4.2).
const dialTimeout = 5 * time.Second

// Connector walks an ordered, destructively-consumed list of [Endpoint]
// candidates (spec.md §4.2), dialing each in turn via the composed
// dial/observe/cancel-watch pipeline (observeconn.go, cancelwatch.go).
type Connector struct {
	cfg        *Config
	logger     SLogger
	candidates []Endpoint
	dial       Func[Endpoint, net.Conn]
}

// NewConnector returns a [*Connector] seeded with the given candidate
// list. The list is owned by the Connector and consumed by
// [*Connector.TryNext].
func NewConnector(cfg *Config, logger SLogger, endpoints []Endpoint) *Connector {
	return &Connector{
		cfg:        cfg,
		logger:     logger,
		candidates: endpoints,
		dial:       newDialEndpointFunc(cfg, logger),
	}
}

// PrependPerUser re-injects the per-user local socket candidates at the
// front of the remaining list (spec.md §4.3 "only per-user endpoints are
// re-injected", §4.4 session-bus signal).
func (c *Connector) PrependPerUser() {
	c.candidates = append(perUserSockets(c.cfg.EnableLegacySocketPaths), c.candidates...)
}

// PrependSystemWide re-injects the system-wide local socket candidate at
// the front of the remaining list (spec.md §4.4 system-bus signal).
func (c *Connector) PrependSystemWide() {
	c.candidates = append([]Endpoint{systemWideSocket()}, c.candidates...)
}

// Remaining reports how many candidates are left to try.
func (c *Connector) Remaining() int {
	return len(c.candidates)
}

// TryNext pops and dials the next candidate (spec.md §4.2). ok is false
// when the candidate list was already empty (the caller must then decide
// among autospawn, bus-wait, or failing the context, per spec.md §4.2).
func (c *Connector) TryNext(ctx context.Context) (conn net.Conn, ep Endpoint, err error, ok bool) {
	if len(c.candidates) == 0 {
		return nil, Endpoint{}, nil, false
	}
	ep = c.candidates[0]
	c.candidates = c.candidates[1:]

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, err = c.dial.Call(dialCtx, ep)
	return conn, ep, err, true
}

// newDialEndpointFunc dials an [Endpoint] (network + address) through the
// observe/cancel-watch pipeline. It dials directly by network+address
// rather than through a [netip.AddrPort]-shaped adapter, since the
// cascade also dials Unix domain sockets (spec.md §4.1), which have no
// [netip.AddrPort] form.
func newDialEndpointFunc(cfg *Config, logger SLogger) Func[Endpoint, net.Conn] {
	raw := FuncAdapter[Endpoint, net.Conn](func(ctx context.Context, ep Endpoint) (net.Conn, error) {
		t0 := cfg.TimeNow()
		logger.Info("connectStart", slog.String("protocol", ep.Network), slog.String("remoteAddr", ep.Address), slog.Time("t", t0))
		conn, err := cfg.Dialer.DialContext(ctx, ep.Network, ep.Address)
		logger.Info(
			"connectDone",
			slog.String("protocol", ep.Network),
			slog.String("remoteAddr", ep.Address),
			slog.Any("err", err),
			slog.String("errClass", cfg.ErrClassifier.Classify(err)),
			slog.Time("t0", t0),
			slog.Time("t", cfg.TimeNow()),
		)
		return conn, err
	})
	observe := NewObserveConnFunc(cfg, logger)
	watch := NewCancelWatchFunc()
	return Compose3[Endpoint, net.Conn, net.Conn, net.Conn](raw, observe, watch)
}

// classifyConnectError maps a dial failure to the retry-vs-fatal decision
// in spec.md §4.9: connection-refused, timeout, and host-unreachable are
// transient (try the next candidate); anything else fails the context.
func classifyConnectError(cfg *Config, err error) (transient bool) {
	switch cfg.ErrClassifier.Classify(err) {
	case errclass.ECONNREFUSED, errclass.ETIMEDOUT, errclass.EHOSTUNREACH:
		return true
	default:
		return false
	}
}
