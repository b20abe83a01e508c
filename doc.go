// SPDX-License-Identifier: GPL-3.0-or-later

// Package padial is the client-side connection core for a network audio
// server protocol: the stateful object an application constructs to
// locate, connect to, authenticate against, and drive a long-lived
// bidirectional framed session with an audio daemon.
//
// # Core Abstraction
//
// [Context] is the root object. It owns a state machine (Unconnected ->
// Connecting -> Authorizing -> SettingName -> Ready -> {Failed,
// Terminated}), a connection-attempt cascade over an ordered list of
// candidate endpoints ([*Connector], [Dialer]), an optional local daemon
// autospawn ([*Autospawn]), an optional desktop-bus wait for a daemon to
// appear ([*BusWaiter]), a framed-stream handshake run by the context
// itself over a [FrameStream], and a tagged request/reply dispatch
// facility ([*Operation]).
//
// A single dedicated goroutine per [Context] serializes every state
// transition and every user callback invocation, reproducing the FIFO
// ordering guarantees of the cooperative single-threaded model this
// protocol was designed around, without requiring callers to supply an
// event loop implementation.
//
// # Connection establishment
//
// The [*Connector] builds its per-candidate dial pipeline from the
// [Func]/[Compose3] primitives: a raw dial, then [ObserveConnFunc], then
// [CancelWatchFunc]. Each stage has exactly one success mode and one
// failure mode. The handshake that follows is not a [Func] pipeline; it
// runs as a sequence of frames handled on the context's actor goroutine.
//
// # Observability
//
// All components support structured logging via [SLogger] (compatible
// with [log/slog]). By default, logging is disabled. Error classification
// for connect/handshake/I-O completion events is configurable via
// [ErrClassifier]; the default classifies real OS errors using
// github.com/bassosimone/errclass.
//
// Use [NewSpanID] to generate a unique, time-ordered identifier (UUIDv7)
// for each [Context], then attach it to the logger with
// [*slog.Logger.With] so every event for that context's lifetime
// correlates under one key.
//
// # Design Boundaries
//
// This package does not implement a server, does not retry once a context
// reaches Ready, does not multiplex multiple daemons per context, and does
// not reconnect after Ready is lost. The per-stream audio data path,
// subscription/introspection RPC bodies, the packet-framing and
// credential-passing transport itself, the property-list data type beyond
// the narrow surface needed for the public proplist operations, and the
// application-provided event loop are treated as external collaborators
// with narrow, declared interfaces.
package padial
