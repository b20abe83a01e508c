// SPDX-License-Identifier: GPL-3.0-or-later

package padial

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// State is one of the seven states in the connection state machine
// (spec.md §3, §4.6).
type State int

const (
	StateUnconnected State = iota
	StateConnecting
	StateAuthorizing
	StateSettingName
	StateReady
	StateFailed
	StateTerminated
)

func (s State) String() string {
	names := [...]string{"unconnected", "connecting", "authorizing", "settingName", "ready", "failed", "terminated"}
	if int(s) < 0 || int(s) >= len(names) {
		return "unknown"
	}
	return names[s]
}

// IsTerminal reports whether s is an absorbing state (spec.md §3, §4.6).
func (s State) IsTerminal() bool {
	return s == StateFailed || s == StateTerminated
}

// ConnectFlags modify [*Context.Connect] (spec.md §6.1).
type ConnectFlags uint32

const (
	// ConnectNoAutospawn disables autospawning a local daemon.
	ConnectNoAutospawn ConnectFlags = 1 << iota

	// ConnectNoFail keeps the context in Connecting, arming the
	// [*BusWaiter], instead of failing once candidates are exhausted.
	ConnectNoFail

	connectFlagsMax
)

// EventCallback reports a named, opaque client-event from the daemon
// (spec.md §4.7 "client-event callback").
type EventCallback func(ctx *Context, name string, p *Proplist)

// SubscribeCallback reports an introspection subscription event (spec.md
// §4.7). The subscription RPC bodies themselves are out of scope
// (spec.md §1); only the dispatch entry point is carried here.
type SubscribeCallback func(ctx *Context, eventType uint32, index uint32)

// ExtensionCallback demultiplexes an extension-module reply by name
// (spec.md §4.7, §6.2).
type ExtensionCallback func(ctx *Context, name string, tag Tag, payload []byte)

// snapshot holds the fields safe to read from any goroutine without
// routing through the actor (spec.md §5's single-threaded model is
// realized here as a single actor goroutine per [*Context]; see
// SPEC_FULL.md §D). The actor is the sole writer; readers take snapMu.
type snapshot struct {
	state         State
	errno         ErrCode
	isLocal       bool
	isLocalKnown  bool
	server        string
	peerVersion   uint32
	clientIndex   uint32
	clientIndexOK bool
	shmEnabled    bool
}

// Context is the root connection object (spec.md §3). A single dedicated
// goroutine ("the actor") owns every mutable field below the snapshot
// line; public methods either read [snapshot] directly or enqueue a task
// for the actor to run, never blocking the caller on actor completion
// (SPEC_FULL.md §D). The one exception is [*Context.IsPending], which
// waits for the actor to answer. This lets a user callback invoke [*Context.Disconnect]
// or [*Context.Unref] synchronously, from within the actor's own call
// stack, without deadlocking (spec.md §4.6).
type Context struct {
	cfg    *Config
	logger SLogger
	spanID string
	pid    int

	name     string
	proplist *Proplist

	cookie      [CookieSize]byte
	cookieValid bool

	localProtocolVersion uint32

	taskCh    chan func()
	frameCh   chan Frame
	timeoutCh chan Tag

	snapMu sync.Mutex
	snap   snapshot

	tagMu sync.Mutex
	tags  TagCounter

	// Fields below are touched only by the actor goroutine.
	dispatch            *Dispatch
	streams             *StreamRegistry
	operations          map[*Operation]struct{}
	frameStream         FrameStream
	connector           *Connector
	busWaiter           *BusWaiter
	cascadeCancel       context.CancelFunc
	connectEpoch        int
	autospawnAllowed    bool
	autospawnDone       bool
	userSpecifiedServer bool
	localSHMEligible    bool
	refcount            int

	stateCallback     func(ctx *Context)
	eventCallback     EventCallback
	subscribeCallback SubscribeCallback
	ext1Callback      ExtensionCallback
	ext2Callback      ExtensionCallback
}

// New allocates a [*Context]. proplist is copied; a nil proplist is
// treated as empty. A UUIDv7 span id ([NewSpanID]) is generated for the
// life of the context and added to the events the context logs itself;
// the logger handed to its components does not carry it, and the
// application name is not logged.
func New(cfg *Config, name string, proplist *Proplist) *Context {
	if proplist == nil {
		proplist = NewProplist()
	}
	spanID := NewSpanID()
	logger := cfg.Logger
	if logger == nil {
		logger = DefaultSLogger()
	}

	c := &Context{
		cfg:                  cfg,
		logger:               logger,
		spanID:               spanID,
		pid:                  os.Getpid(),
		name:                 name,
		proplist:             proplist.Clone(),
		cookie:               cfg.Cookie,
		cookieValid:          cfg.CookieValid,
		localProtocolVersion: extendedAuthReplyVersion + 17, // spec.md §4.9 item 5: local advertised version
		taskCh:               make(chan func(), 256),
		frameCh:              make(chan Frame, 16),
		timeoutCh:            make(chan Tag, 16),
		dispatch:             NewDispatch(nil),
		streams:              NewStreamRegistry(),
		operations:           make(map[*Operation]struct{}),
		localSHMEligible:     !cfg.DisableSHM,
		refcount:             1,
	}
	c.dispatch = NewDispatch(func(tag Tag) {
		select {
		case c.timeoutCh <- tag:
		default:
		}
	})
	c.snap.state = StateUnconnected
	c.checkSigpipe()
	go c.run()
	return c
}

// forked reports whether the process has been fork-inherited since c was
// constructed (spec.md §5 "Shared resources and fork safety"): the PID
// recorded at [New] no longer matches the running process's PID. Every
// public entry point that could act on shared OS state (a socket, a
// forked child, the actor's own goroutine set) checks this first and
// rejects with [ErrForked] rather than silently operating on state a
// fork duplicated out from under it.
func (c *Context) forked() bool {
	return c.pid != os.Getpid()
}

// nextTag allocates the next monotonic [Tag] (spec.md §3). Safe to call
// from any goroutine; does not require the actor.
func (c *Context) nextTag() Tag {
	c.tagMu.Lock()
	defer c.tagMu.Unlock()
	return c.tags.Next()
}

// readSnapshot returns a copy of the current [snapshot].
func (c *Context) readSnapshot() snapshot {
	c.snapMu.Lock()
	defer c.snapMu.Unlock()
	return c.snap
}

// withSnapshot mutates the snapshot under lock.
func (c *Context) withSnapshot(f func(s *snapshot)) {
	c.snapMu.Lock()
	f(&c.snap)
	c.snapMu.Unlock()
}

// enqueue fire-and-forgets task onto the actor's queue. Never blocks the
// caller on the task's completion, which is what makes it safe to call
// from within a callback already running on the actor goroutine
// (spec.md §4.6's reentrancy guarantee).
func (c *Context) enqueue(task func()) {
	select {
	case c.taskCh <- task:
	default:
		// The actor never stops draining taskCh, so a full buffer means
		// an extraordinary burst; spawn a goroutine so the caller is
		// never blocked by it (spec.md §5: a caller must never be made
		// to wait on actor progress by a mutating call).
		go func() { c.taskCh <- task }()
	}
}

// run is the actor goroutine. It is the only goroutine that touches
// state below the snapshot line, the dispatch table, the stream
// registry, or invokes a user callback (SPEC_FULL.md §D).
func (c *Context) run() {
	for {
		select {
		case task := <-c.taskCh:
			task()
		case f := <-c.frameCh:
			c.handleFrame(f)
		case tag := <-c.timeoutCh:
			c.handleTimeout(tag)
		}
	}
}

// Logger.go-adjacent helper attaching span correlation, per SPEC_FULL.md §A.1.
func (c *Context) logInfo(msg string, args ...any) {
	c.logger.Info(msg, append([]any{slog.String("spanID", c.spanID)}, args...)...)
}

func (c *Context) logDebug(msg string, args ...any) {
	c.logger.Debug(msg, append([]any{slog.String("spanID", c.spanID)}, args...)...)
}

// checkSigpipe warns (does not fail) if SIGPIPE is unblocked
// (SPEC_FULL.md §C.1). Advisory only: Go's net.Conn.Write never raises
// SIGPIPE for the sockets this module uses.
func (c *Context) checkSigpipe() {
	if !sigpipeBlocked() {
		c.logInfo("sigpipeNotBlocked")
	}
}

// Ref increments the reference count (spec.md §3, §5).
func (c *Context) Ref() *Context {
	c.enqueue(func() { c.refcount++ })
	return c
}

// Unref decrements the reference count. Storage is GC-owned; this exists
// for API parity and contract testing (spec.md §5).
func (c *Context) Unref() {
	c.enqueue(func() {
		if c.refcount > 0 {
			c.refcount--
		}
	})
}

// Errno returns the last error code (spec.md §6.1).
func (c *Context) Errno() ErrCode {
	return c.readSnapshot().errno
}

// State returns the current state (spec.md §6.1).
func (c *Context) State() State {
	return c.readSnapshot().state
}

// IsLocal reports whether the connected peer is local. ok is false until
// at least one connection attempt has resolved the candidate (spec.md §6.1).
func (c *Context) IsLocal() (local bool, ok bool) {
	s := c.readSnapshot()
	return s.isLocal, s.isLocalKnown
}

// Server returns the canonicalised peer string, stripping a leading
// "{...}" adornment some forms use (SPEC_FULL.md §C.2).
func (c *Context) Server() string {
	return canonicalizeServerString(c.readSnapshot().server)
}

func canonicalizeServerString(s string) string {
	if strings.HasPrefix(s, "{") {
		if idx := strings.IndexByte(s, '}'); idx >= 0 {
			return s[idx+1:]
		}
	}
	return s
}

// ProtocolVersion returns the locally advertised protocol version
// (SPEC_FULL.md §C.5), distinct from the negotiated peer version.
func (c *Context) ProtocolVersion() uint32 {
	return c.localProtocolVersion
}

// PeerProtocolVersion returns the negotiated peer version, valid once
// Authorizing completes.
func (c *Context) PeerProtocolVersion() uint32 {
	return c.readSnapshot().peerVersion
}

// SHMEnabled reports the negotiated SHM decision (spec.md §4.5), valid
// once Authorizing completes.
func (c *Context) SHMEnabled() bool {
	return c.readSnapshot().shmEnabled
}

// ClientIndex returns the server-assigned client index and whether it
// has been set (only for peer version >= 13, spec.md §4.5).
func (c *Context) ClientIndex() (uint32, bool) {
	s := c.readSnapshot()
	return s.clientIndex, s.clientIndexOK
}

// IsPending reports whether there is outstanding work: queued outbound
// bytes, a nonempty reply table, or a connect in flight (spec.md §6.1).
// Reading this requires a round trip through the actor since the
// dispatch table and frame stream are actor-owned.
func (c *Context) IsPending() bool {
	if c.forked() {
		return false
	}
	result := make(chan bool, 1)
	c.enqueue(func() {
		pending := false
		if c.frameStream != nil && c.frameStream.PendingWriteBytes() > 0 {
			pending = true
		}
		if c.dispatch.Len() > 0 {
			pending = true
		}
		st := c.readSnapshot().state
		if st == StateConnecting || st == StateAuthorizing || st == StateSettingName {
			pending = true
		}
		result <- pending
	})
	return <-result
}

// GetTileSize returns the frame-aligned floor of the memory pool's
// maximum block size (spec.md §6.1). frameSize is 1 when no sample spec
// is available. The memory pool itself is out of scope (spec.md §1); the
// pool size comes from [Config.SHMSize].
func (c *Context) GetTileSize(frameSize uint32) uint32 {
	if c.forked() {
		return 0
	}
	if frameSize == 0 {
		frameSize = 1
	}
	return (c.cfg.SHMSize / frameSize) * frameSize
}

// SetStateCallback installs cb, invoked synchronously with every state
// transition (spec.md §4.6). No-op after a terminal state (spec.md §6.1).
func (c *Context) SetStateCallback(cb func(ctx *Context)) {
	if c.forked() {
		return
	}
	c.enqueue(func() {
		if c.readSnapshot().state.IsTerminal() {
			return
		}
		c.stateCallback = cb
	})
}

// SetEventCallback installs the client-event callback. No-op after terminal.
func (c *Context) SetEventCallback(cb EventCallback) {
	if c.forked() {
		return
	}
	c.enqueue(func() {
		if c.readSnapshot().state.IsTerminal() {
			return
		}
		c.eventCallback = cb
	})
}

// SetSubscribeCallback installs the subscription-event callback. No-op
// after terminal.
func (c *Context) SetSubscribeCallback(cb SubscribeCallback) {
	if c.forked() {
		return
	}
	c.enqueue(func() {
		if c.readSnapshot().state.IsTerminal() {
			return
		}
		c.subscribeCallback = cb
	})
}

// SetExtensionCallback installs one of the two extension demultiplex
// slots (spec.md §3 "two extension slots"). slot must be 1 or 2.
func (c *Context) SetExtensionCallback(slot int, cb ExtensionCallback) {
	if c.forked() {
		return
	}
	c.enqueue(func() {
		if c.readSnapshot().state.IsTerminal() {
			return
		}
		switch slot {
		case 1:
			c.ext1Callback = cb
		case 2:
			c.ext2Callback = cb
		}
	})
}

// fail moves the context to Failed with err, unless already terminal
// (spec.md §4.9). Must run on the actor goroutine.
func (c *Context) fail(err ErrCode) {
	c.withSnapshot(func(s *snapshot) { s.errno = err })
	c.transitionTo(StateFailed)
}

// transitionTo performs one state-machine step (spec.md §4.6). Must run
// on the actor goroutine.
func (c *Context) transitionTo(newState State) {
	old := c.readSnapshot().state
	if newState == old {
		return
	}
	c.refcount++
	c.withSnapshot(func(s *snapshot) { s.state = newState })
	c.logInfo("stateTransition", slog.String("from", old.String()), slog.String("to", newState.String()))
	if c.stateCallback != nil {
		c.stateCallback(c)
	}
	if newState.IsTerminal() {
		c.unlink(newState)
	}
	c.refcount--
}

// unlink tears the context down on reaching a terminal state (spec.md
// §4.6 step 5). Must run on the actor goroutine.
func (c *Context) unlink(terminal State) {
	streamState := StreamTerminated
	if terminal == StateFailed {
		streamState = StreamFailed
	}
	c.streams.Terminate(streamState)

	for op := range c.operations {
		op.Cancel()
	}
	c.operations = make(map[*Operation]struct{})

	c.dispatch.FailAll()

	if c.cascadeCancel != nil {
		c.cascadeCancel()
		c.cascadeCancel = nil
	}
	if c.busWaiter != nil {
		c.busWaiter.Close()
		c.busWaiter = nil
	}
	if c.frameStream != nil {
		c.frameStream.Close()
		c.frameStream = nil
	}
	c.connector = nil

	c.stateCallback = nil
	c.eventCallback = nil
	c.subscribeCallback = nil
	c.ext1Callback = nil
	c.ext2Callback = nil
}

// Connect begins the connection-attempt cascade (spec.md §4.1, §6.1).
// Must be called from [StateUnconnected]. An empty server string selects
// the default candidates; a server string of only whitespace, or unknown
// flag bits, are rejected with [ErrInvalid] without a transition.
func (c *Context) Connect(server string, flags ConnectFlags, hooks *SpawnHooks) ErrCode {
	if c.forked() {
		return ErrForked
	}
	if flags >= connectFlagsMax {
		return ErrInvalid
	}
	if server != "" && strings.TrimSpace(server) == "" {
		return ErrInvalid
	}
	if c.readSnapshot().state != StateUnconnected {
		return ErrBadState
	}

	endpoints, autospawnAllowed := BuildEndpoints(c.cfg, server)
	userSpecified := server != ""
	if flags&ConnectNoAutospawn != 0 {
		autospawnAllowed = false
	}
	if isRootUser() {
		autospawnAllowed = false
	}

	c.enqueue(func() {
		if c.readSnapshot().state != StateUnconnected {
			return
		}
		c.userSpecifiedServer = userSpecified
		c.autospawnAllowed = autospawnAllowed
		c.autospawnDone = false
		connector := NewConnector(c.cfg, c.logger, endpoints)
		c.connector = connector
		c.connectEpoch++
		epoch := c.connectEpoch
		cascadeCtx, cancel := context.WithCancel(context.Background())
		c.cascadeCancel = cancel
		c.transitionTo(StateConnecting)
		go c.runConnectCascade(cascadeCtx, epoch, connector, flags, hooks, autospawnAllowed, userSpecified)
	})
	return ErrOK
}

// isRootUser reports whether the current process is running as root, on
// platforms that can determine this (SPEC_FULL.md §C.4). A root process
// silently skips autospawn rather than failing connect.
func isRootUser() bool {
	return os.Getuid() == 0
}

// Disconnect transitions Ready (or any non-terminal state) to Terminated
// (spec.md §4.6, §6.1). A second call is a no-op (spec.md §8 property 8).
// Safe to call synchronously from within a callback running on the actor
// (spec.md §4.6): it never blocks the caller on actor completion.
func (c *Context) Disconnect() {
	if c.forked() {
		return
	}
	c.enqueue(func() {
		if c.readSnapshot().state.IsTerminal() {
			return
		}
		c.connectEpoch++ // invalidate any in-flight cascade goroutine
		c.transitionTo(StateTerminated)
	})
}

// cancelOperation detaches tag from the dispatch table. Fire-and-forget;
// safe to call from any goroutine, including reentrantly from the actor.
func (c *Context) cancelOperation(tag Tag) {
	c.enqueue(func() {
		c.dispatch.Remove(tag)
	})
}

// handleFrame routes one inbound [Frame] (spec.md §4.7, §4.8). Runs on
// the actor goroutine.
func (c *Context) handleFrame(f Frame) {
	if f.Command == CommandMediaFrame {
		c.handleMediaFrame(f)
		return
	}
	if f.Command == CommandReply || f.Command == CommandError {
		c.handleTaggedReply(f)
		return
	}
	c.dispatchUnsolicited(f)
}

func (c *Context) handleTaggedReply(f Frame) {
	var outcome DispatchOutcome
	switch f.Command {
	case CommandReply:
		outcome = DispatchOutcome{Kind: OutcomeReply, Payload: f.Payload}
	case CommandError:
		r := &wireReader{buf: f.Payload}
		code, err := r.getUint32()
		if err != nil {
			c.fail(ErrProtocol)
			return
		}
		ec := ErrCodeFromWire(code)
		if ec == ErrOK {
			c.fail(ErrProtocol)
			return
		}
		outcome = DispatchOutcome{Kind: OutcomeError, ErrCode: ec}
	}
	c.dispatch.Deliver(f.Tag, outcome)
}

func (c *Context) handleTimeout(tag Tag) {
	c.dispatch.Deliver(tag, DispatchOutcome{Kind: OutcomeTimeout, ErrCode: ErrTimeout})
}

// dispatchUnsolicited routes a command lacking a matching tag to the
// subscription callback, the client-event callback, or the extension
// demultiplexer (spec.md §4.7); per-stream commands are decoded up to
// their channel id and then dropped. A total switch, per the
// design note in spec.md §9.
func (c *Context) dispatchUnsolicited(f Frame) {
	switch f.Command {
	case CommandSubscribeEvent:
		r := &wireReader{buf: f.Payload}
		eventType, err1 := r.getUint32()
		index, err2 := r.getUint32()
		if err1 != nil || err2 != nil {
			return
		}
		if c.subscribeCallback != nil {
			c.subscribeCallback(c, eventType, index)
		}
	case CommandStreamEvent:
		r := &wireReader{buf: f.Payload}
		name, err := r.getString()
		if err != nil {
			return
		}
		if c.eventCallback != nil {
			c.eventCallback(c, name, NewProplist())
		}
	case CommandRequest, CommandOverflow, CommandUnderflow, CommandKilled,
		CommandStreamMoved, CommandStreamSuspended, CommandStreamStarted:
		// The channel id is the first payload field on every one of
		// these. It is decoded but not forwarded to the Stream Registry;
		// these commands are otherwise ignored.
		r := &wireReader{buf: f.Payload}
		if _, err := r.getUint32(); err != nil {
			return
		}
	case CommandExtension:
		r := &wireReader{buf: f.Payload}
		idx, err1 := r.getUint32()
		name, err2 := r.getString()
		if err1 != nil || err2 != nil {
			return
		}
		var cb ExtensionCallback
		if idx == 1 {
			cb = c.ext1Callback
		} else {
			cb = c.ext2Callback
		}
		if cb != nil {
			cb(c, name, f.Tag, r.buf)
		}
	default:
		// Unknown unsolicited command: ignored rather than fatal, since
		// it is not tag-matched and cannot desynchronise the reply
		// stream.
	}
}

// handleMediaFrame decodes an inbound out-of-band media frame
// `(channel, offset, seek-mode, length, chunk)` and routes it to the
// Stream Registry (spec.md §4.8). length is carried on the wire
// independently of the chunk bytes that follow it: a memblock-carrying
// frame has chunk of exactly length bytes, while a "hole" (a zero-length
// advance with no memblock) carries length > 0 with an empty chunk,
// mirroring original_source/src/pulse/context.c's
// `pa_memblockq_seek(s->record_memblockq, offset+chunk->length, seek, TRUE)`
// for the chunk->memblock == NULL case.
func (c *Context) handleMediaFrame(f Frame) {
	r := &wireReader{buf: f.Payload}
	channel, err1 := r.getUint32()
	offset, err2 := r.getUint32()
	seek, err3 := r.getUint32()
	length, err4 := r.getUint32()
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return
	}
	c.streams.RouteMediaFrame(channel, int64(int32(offset)), SeekMode(seek), r.buf, int(length))
}

// RegisterPlaybackStream / RegisterRecordStream expose the Stream
// Registry to the external stream subsystem (spec.md §1, §4.8): the core
// routes inbound frames by channel id but does not own stream lifetime.
func (c *Context) RegisterPlaybackStream(s Stream) {
	c.enqueue(func() { c.streams.RegisterPlayback(s) })
}

func (c *Context) RegisterRecordStream(s Stream) {
	c.enqueue(func() { c.streams.RegisterRecord(s) })
}

func (c *Context) UnregisterPlaybackStream(channel uint32) {
	c.enqueue(func() { c.streams.UnregisterPlayback(channel) })
}

func (c *Context) UnregisterRecordStream(channel uint32) {
	c.enqueue(func() { c.streams.UnregisterRecord(channel) })
}

// --- Simple tagged request helpers (spec.md §6.1, §6.2) ---

// sendSimpleRequest allocates an operation, a tag, and fires cmd with
// payload, completing the operation from the daemon's REPLY/ERROR/TIMEOUT
// response (spec.md §4.7). Returns nil if called outside [StateReady].
func (c *Context) sendSimpleRequest(cmd Command, payload []byte, cb OperationCallback) *Operation {
	if c.forked() {
		return nil
	}
	if c.readSnapshot().state != StateReady {
		return nil
	}
	tag := c.nextTag()
	op := newOperation(c, tag, cb)
	c.enqueue(func() {
		c.operations[op] = struct{}{}
		c.dispatch.Register(tag, func(outcome DispatchOutcome) {
			delete(c.operations, op)
			c.completeFromOutcome(op, outcome)
		}, op, drainDeadline)
		c.frameStream.Send(Frame{Command: cmd, Tag: tag, Payload: payload})
	})
	return op
}

// completeFromOutcome maps a [DispatchOutcome] to the operation callback
// contract (spec.md §4.7, §4.9): server errors complete the operation
// with success=false and store the code on the context without failing
// it; transport loss or protocol failure fails the whole context.
func (c *Context) completeFromOutcome(op *Operation, outcome DispatchOutcome) {
	switch outcome.Kind {
	case OutcomeReply:
		op.complete(true, ErrOK)
	case OutcomeError:
		c.withSnapshot(func(s *snapshot) { s.errno = outcome.ErrCode })
		op.complete(false, outcome.ErrCode)
	case OutcomeTimeout:
		c.withSnapshot(func(s *snapshot) { s.errno = ErrTimeout })
		op.complete(false, ErrTimeout)
	case OutcomeTransportGone:
		op.complete(false, ErrConnectionTerminated)
	}
}

// SetDefaultSink sends a simple tagged SET_DEFAULT_SINK request (spec.md §6.1).
func (c *Context) SetDefaultSink(name string, cb OperationCallback) *Operation {
	w := &wireWriter{}
	w.putString(name)
	return c.sendSimpleRequest(CommandSetDefaultSink, w.bytes(), cb)
}

// SetDefaultSource sends a simple tagged SET_DEFAULT_SOURCE request.
func (c *Context) SetDefaultSource(name string, cb OperationCallback) *Operation {
	w := &wireWriter{}
	w.putString(name)
	return c.sendSimpleRequest(CommandSetDefaultSource, w.bytes(), cb)
}

// ExitDaemon asks the daemon to exit (spec.md §6.1).
func (c *Context) ExitDaemon(cb OperationCallback) *Operation {
	return c.sendSimpleRequest(CommandExitDaemon, nil, cb)
}

// SetName sets the application name (spec.md §6.1). On peer version >= 13
// this is equivalent to [*Context.ProplistUpdate] replacing
// [PropApplicationName]; otherwise it sends the legacy name-only command.
func (c *Context) SetName(name string, cb OperationCallback) *Operation {
	if c.forked() {
		return nil
	}
	if c.readSnapshot().state != StateReady {
		return nil
	}
	if c.PeerProtocolVersion() >= extendedAuthReplyVersion {
		p := NewProplist()
		p.Set(PropApplicationName, name)
		return c.ProplistUpdate(ProplistUpdateReplace, p, cb)
	}
	w := &wireWriter{}
	w.putString(name)
	return c.sendSimpleRequest(CommandSetName, w.bytes(), cb)
}

// ProplistUpdate sends a proplist update request (spec.md §6.1). Requires
// peer version >= 13; the context's local proplist copy is not mutated
// by this call (SPEC_FULL.md §C.6 — "we don't export that field").
func (c *Context) ProplistUpdate(mode ProplistUpdateMode, p *Proplist, cb OperationCallback) *Operation {
	if c.forked() {
		return nil
	}
	if c.readSnapshot().state != StateReady {
		return nil
	}
	if c.PeerProtocolVersion() < extendedAuthReplyVersion {
		return nil
	}
	w := &wireWriter{}
	w.putUint32(uint32(mode))
	w.putUint32(uint32(p.Len()))
	for _, k := range p.Keys() {
		v, _ := p.Get(k)
		w.putString(k)
		w.putString(v)
	}
	return c.sendSimpleRequest(CommandProplistUpdate, w.bytes(), cb)
}

// ProplistRemove sends a proplist key-removal request (spec.md §6.1).
// Requires a nonempty key list and peer version >= 13.
func (c *Context) ProplistRemove(keys []string, cb OperationCallback) *Operation {
	if c.forked() {
		return nil
	}
	if len(keys) == 0 {
		return nil
	}
	if c.readSnapshot().state != StateReady {
		return nil
	}
	if c.PeerProtocolVersion() < extendedAuthReplyVersion {
		return nil
	}
	w := &wireWriter{}
	w.putUint32(uint32(len(keys)))
	for _, k := range keys {
		w.putString(k)
	}
	return c.sendSimpleRequest(CommandProplistRemove, w.bytes(), cb)
}

// Drain reports, via cb, when both the outbound byte pipe and the reply
// table are simultaneously empty (spec.md §4.7, §6.1). Legal only in
// [StateReady] and only when [*Context.IsPending] is true; returns nil
// otherwise.
func (c *Context) Drain(cb func(success bool)) *Operation {
	if c.forked() {
		return nil
	}
	if c.readSnapshot().state != StateReady {
		return nil
	}
	tag := c.nextTag()
	op := newOperation(c, tag, func(_ *Operation, success bool, _ ErrCode) { cb(success) })
	c.enqueue(func() {
		if !c.isPendingLocked() {
			return // nothing to drain; caller should not have called Drain()
		}
		c.operations[op] = struct{}{}
		c.logInfo("drainStart")
		c.pollDrain(op)
	})
	return op
}

// isPendingLocked is [*Context.IsPending]'s logic without the actor
// round trip, for use from within the actor goroutine.
func (c *Context) isPendingLocked() bool {
	if c.frameStream != nil && c.frameStream.PendingWriteBytes() > 0 {
		return true
	}
	return c.dispatch.Len() > 0
}

// pollDrain re-checks drain quiescence on a short timer until both the
// outbound pipe and the reply table are empty, then completes op
// (spec.md §4.7: "installs two one-shot drain callbacks... that each
// re-evaluate"). Must run on / be scheduled from the actor goroutine.
func (c *Context) pollDrain(op *Operation) {
	if op.State() != OperationRunning {
		return
	}
	if c.isPendingLocked() {
		time.AfterFunc(10*time.Millisecond, func() {
			c.enqueue(func() { c.pollDrain(op) })
		})
		return
	}
	delete(c.operations, op)
	c.logInfo("drainDone")
	op.complete(true, ErrOK)
}
