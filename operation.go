// SPDX-License-Identifier: GPL-3.0-or-later

package padial

import "sync"

// OperationState is the lifecycle state of an [*Operation] (spec.md §3).
type OperationState int

const (
	// OperationRunning is the initial state: registered with the
	// dispatch facility, awaiting a reply or timeout.
	OperationRunning OperationState = iota

	// OperationDone means the operation's callback fired (success or
	// per-request failure) and it has been released from dispatch.
	OperationDone

	// OperationCancelled means the caller cancelled the operation before
	// it completed. Its tag, if still pending, drops its reply silently
	// on arrival (spec.md §4.7).
	OperationCancelled
)

// OperationCallback is invoked exactly once when an [*Operation]
// completes, either because the server replied or because the operation
// was driven to completion locally (e.g. drain). success is false when
// the server returned an ERROR frame (errCode is then the server's error),
// when the reply deadline passed ([ErrTimeout]), or when the connection
// was lost first ([ErrConnectionTerminated]); on success errCode is
// [ErrOK].
type OperationCallback func(op *Operation, success bool, errCode ErrCode)

// Operation is one in-flight user request (spec.md §3, §4.7). Every
// public [*Context] request method that talks to the daemon returns one.
//
// Exactly one of {success callback, failure callback, cancel} fires,
// exactly once (spec.md §8 property 4): [*Operation.state] transitions
// from [OperationRunning] to [OperationDone] or [OperationCancelled] and
// never moves again.
type Operation struct {
	mu       sync.Mutex
	state    OperationState
	ctx      *Context
	tag      Tag
	callback OperationCallback
	refcount int
}

// newOperation allocates a running operation bound to ctx's next tag.
// Request methods call it on the caller's goroutine, before handing the
// operation to the actor.
func newOperation(ctx *Context, tag Tag, cb OperationCallback) *Operation {
	return &Operation{state: OperationRunning, ctx: ctx, tag: tag, callback: cb, refcount: 1}
}

// Ref increments the reference count and returns the operation, mirroring
// the pa_operation_ref calling convention.
func (op *Operation) Ref() *Operation {
	op.mu.Lock()
	op.refcount++
	op.mu.Unlock()
	return op
}

// Unref decrements the reference count. The operation's storage is owned
// by the Go garbage collector, so unlike the original this never frees
// anything directly; it exists for API parity and so tests can assert the
// ref/unref contract is honored (spec.md §5 "Ownership and lifetimes").
func (op *Operation) Unref() {
	op.mu.Lock()
	defer op.mu.Unlock()
	if op.refcount > 0 {
		op.refcount--
	}
}

// State returns the operation's current state.
func (op *Operation) State() OperationState {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.state
}

// Cancel transitions the operation to [OperationCancelled] and detaches
// it from the context's dispatch table. Idempotent: a second call is a
// no-op (spec.md §8 property 9). Safe to call from within the
// operation's own callback (spec.md §5 "Cancellation").
func (op *Operation) Cancel() {
	op.mu.Lock()
	if op.state != OperationRunning {
		op.mu.Unlock()
		return
	}
	op.state = OperationCancelled
	ctx := op.ctx
	tag := op.tag
	op.mu.Unlock()
	if ctx != nil {
		ctx.cancelOperation(tag)
	}
}

// complete transitions Running -> Done and invokes the callback exactly
// once. Called only from the context actor goroutine. A no-op if the
// operation was already cancelled or completed (e.g. raced with a local
// [Cancel] call before the reply arrived).
func (op *Operation) complete(success bool, errCode ErrCode) {
	op.mu.Lock()
	if op.state != OperationRunning {
		op.mu.Unlock()
		return
	}
	op.state = OperationDone
	cb := op.callback
	op.mu.Unlock()
	if cb != nil {
		cb(op, success, errCode)
	}
}
