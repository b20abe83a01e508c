// SPDX-License-Identifier: GPL-3.0-or-later

package padial

// SeekMode selects how a media frame's offset is interpreted when
// advancing a stream's block queue (spec.md §4.8).
type SeekMode int

const (
	SeekRelative SeekMode = iota
	SeekAbsolute
	SeekRelativeOnRead
	SeekRelativeEnd
)

// StreamTerminalState is the terminal state a registered [Stream] is
// moved to when its owning [*Context] reaches a terminal state (spec.md
// §4.6 step 5, §4.8).
type StreamTerminalState int

const (
	// StreamTerminated mirrors a clean context Terminated.
	StreamTerminated StreamTerminalState = iota
	// StreamFailed mirrors a context Failed.
	StreamFailed
)

// Stream is the narrow interface the per-stream audio data path exposes
// to the connection core for inbound-frame routing (spec.md §1, §4.8,
// §9). Block queues, timing, and buffer-attr negotiation are out of
// scope and owned entirely by the external stream subsystem; the core
// only routes.
type Stream interface {
	// ChannelID is the server-assigned channel identifier this stream
	// was registered under.
	ChannelID() uint32

	// AdvanceReadQueue advances the stream's block queue to offset using
	// seek, then pushes chunk onto it (spec.md §4.8). A nil chunk means
	// no data is pushed: the queue only moves to offset, which the
	// registry has already advanced past the skipped length.
	AdvanceReadQueue(offset int64, seek SeekMode, chunk []byte)

	// BufferedLength reports the queue's current buffered length, used to
	// decide whether to invoke the read callback after an advance.
	BufferedLength() int

	// InvokeReadCallback is called whenever BufferedLength() > 0 after an
	// advance; whether a user read callback is installed is for the
	// stream to check.
	InvokeReadCallback(length int)

	// SetTerminalState moves the stream to its own terminal state,
	// mirroring the owning context's (spec.md §4.6 step 5).
	SetTerminalState(state StreamTerminalState)
}

// StreamRegistry holds non-owning, channel-indexed references to
// playback and record streams (spec.md §3). The context merely routes;
// the stream subsystem owns the [Stream] objects and is responsible for
// unregistering them on destruction (spec.md §5 "Ownership and
// lifetimes").
type StreamRegistry struct {
	playback map[uint32]Stream
	record   map[uint32]Stream
}

// NewStreamRegistry returns an empty [*StreamRegistry].
func NewStreamRegistry() *StreamRegistry {
	return &StreamRegistry{playback: make(map[uint32]Stream), record: make(map[uint32]Stream)}
}

// RegisterPlayback adds s under the playback-by-channel map.
func (r *StreamRegistry) RegisterPlayback(s Stream) {
	r.playback[s.ChannelID()] = s
}

// RegisterRecord adds s under the record-by-channel map.
func (r *StreamRegistry) RegisterRecord(s Stream) {
	r.record[s.ChannelID()] = s
}

// UnregisterPlayback removes the playback stream for channel, if any.
func (r *StreamRegistry) UnregisterPlayback(channel uint32) {
	delete(r.playback, channel)
}

// UnregisterRecord removes the record stream for channel, if any.
func (r *StreamRegistry) UnregisterRecord(channel uint32) {
	delete(r.record, channel)
}

// RouteMediaFrame dispatches an inbound media frame to its record stream
// (spec.md §4.8): looked up by channel; dropped silently if absent. A
// non-empty chunk advances the queue to offset with seek, then pushes it;
// an empty chunk advances to offset+length with no push. If the stream
// has buffered data afterward, its read callback fires with that length.
func (r *StreamRegistry) RouteMediaFrame(channel uint32, offset int64, seek SeekMode, chunk []byte, length int) {
	s, ok := r.record[channel]
	if !ok {
		return
	}
	if len(chunk) > 0 {
		s.AdvanceReadQueue(offset, seek, chunk)
	} else {
		s.AdvanceReadQueue(offset+int64(length), seek, nil)
	}
	if buffered := s.BufferedLength(); buffered > 0 {
		s.InvokeReadCallback(buffered)
	}
}

// Terminate moves every registered stream to its terminal state, mirroring
// the context's own terminal state (spec.md §4.6 step 5).
func (r *StreamRegistry) Terminate(state StreamTerminalState) {
	for _, s := range r.playback {
		s.SetTerminalState(state)
	}
	for _, s := range r.record {
		s.SetTerminalState(state)
	}
}
