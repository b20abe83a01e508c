// SPDX-License-Identifier: GPL-3.0-or-later

package padial

import (
	"sort"
	"time"
)

// DispatchOutcomeKind tags the variant carried by a [DispatchOutcome]
// (spec.md §9: "A tagged variant DispatchOutcome = Reply(payload) |
// Error(code) | Timeout | TransportGone unifies the continuation's
// input").
type DispatchOutcomeKind int

const (
	// OutcomeReply: the peer sent a REPLY frame; Payload is its body.
	OutcomeReply DispatchOutcomeKind = iota

	// OutcomeError: the peer sent an ERROR frame; ErrCode is its body.
	OutcomeError

	// OutcomeTimeout: the reply deadline fired before any frame arrived.
	OutcomeTimeout

	// OutcomeTransportGone: the connection was lost before a reply
	// arrived.
	OutcomeTransportGone
)

// DispatchOutcome is what a pending reply's decoder observes (spec.md
// §4.7, §9).
type DispatchOutcome struct {
	Kind    DispatchOutcomeKind
	Payload []byte
	ErrCode ErrCode
}

// ReplyDecoder consumes one [DispatchOutcome] for the tag it was
// registered under. It is responsible for completing the bound
// [*Operation] and invoking its user callback (spec.md §4.7).
type ReplyDecoder func(outcome DispatchOutcome)

// pendingReply is one entry in [*Dispatch]'s tag table (spec.md §3
// "Pending-Reply entry").
type pendingReply struct {
	decode ReplyDecoder
	op     *Operation
	timer  *time.Timer
}

// Dispatch is the tag -> reply-handler table (spec.md §4.7). It is
// touched only from the owning [*Context]'s actor goroutine; timers
// fire on their own goroutine and post back via onTimeout rather than
// mutating the table directly, preserving the single-writer invariant.
type Dispatch struct {
	tags      TagCounter
	pending   map[Tag]*pendingReply
	onTimeout func(tag Tag)
}

// NewDispatch returns an empty [*Dispatch]. onTimeout is invoked (from a
// timer goroutine, so it must itself be safe to call from any goroutine —
// in practice it posts the tag onto the owning context's actor channel)
// when a registered reply's deadline fires before a frame arrives.
func NewDispatch(onTimeout func(tag Tag)) *Dispatch {
	return &Dispatch{pending: make(map[Tag]*pendingReply), onTimeout: onTimeout}
}

// NextTag issues the next monotonically increasing [Tag] (spec.md §3).
func (d *Dispatch) NextTag() Tag {
	return d.tags.Next()
}

// Register binds tag to decode and op, arming a timeout timer. Exactly
// one of decode's outcomes will fire for this tag: a matching REPLY/ERROR
// frame, a synthesised TIMEOUT, or (via [*Dispatch.FailAll]) a
// TransportGone notification.
func (d *Dispatch) Register(tag Tag, decode ReplyDecoder, op *Operation, timeout time.Duration) {
	entry := &pendingReply{decode: decode, op: op}
	entry.timer = time.AfterFunc(timeout, func() {
		d.onTimeout(tag)
	})
	d.pending[tag] = entry
}

// Lookup returns the entry for tag, if still pending.
func (d *Dispatch) Lookup(tag Tag) (*pendingReply, bool) {
	e, ok := d.pending[tag]
	return e, ok
}

// Remove detaches tag from the table and stops its timer. Safe to call
// for an already-removed or never-registered tag.
func (d *Dispatch) Remove(tag Tag) {
	if e, ok := d.pending[tag]; ok {
		e.timer.Stop()
		delete(d.pending, tag)
	}
}

// Deliver looks up tag, removes it, and invokes its decoder with outcome.
// Returns false if no entry was pending for tag (e.g. it was cancelled,
// or the peer echoed a stale/unknown tag).
func (d *Dispatch) Deliver(tag Tag, outcome DispatchOutcome) bool {
	e, ok := d.pending[tag]
	if !ok {
		return false
	}
	d.Remove(tag)
	e.decode(outcome)
	return true
}

// FailAll delivers [OutcomeTransportGone] to every still-pending entry,
// in tag order, then clears the table. Used at context unlink (spec.md
// §4.6 step 5: "cancel all operations").
func (d *Dispatch) FailAll() {
	tags := make([]Tag, 0, len(d.pending))
	for tag := range d.pending {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	for _, tag := range tags {
		d.Deliver(tag, DispatchOutcome{Kind: OutcomeTransportGone, ErrCode: ErrConnectionTerminated})
	}
}

// Len reports the number of pending replies, for
// [*Context.IsPending]/[*Context.Drain] (spec.md §4.7, §6.1).
func (d *Dispatch) Len() int {
	return len(d.pending)
}
