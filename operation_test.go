// SPDX-License-Identifier: GPL-3.0-or-later

package padial

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOperationCompleteFiresCallbackOnce(t *testing.T) {
	calls := 0
	op := newOperation(nil, Tag(1), func(o *Operation, success bool, errCode ErrCode) {
		calls++
		assert.True(t, success)
		assert.Equal(t, ErrOK, errCode)
	})

	op.complete(true, ErrOK)
	op.complete(true, ErrOK)

	assert.Equal(t, 1, calls)
	assert.Equal(t, OperationDone, op.State())
}

func TestOperationCancelIdempotent(t *testing.T) {
	var cancelCalls int
	c := &Context{}
	c.dispatch = NewDispatch(func(Tag) {})
	c.taskCh = make(chan func(), 8)

	op := newOperation(c, Tag(5), func(o *Operation, success bool, errCode ErrCode) {
		cancelCalls++
	})

	op.Cancel()
	op.Cancel()

	assert.Equal(t, OperationCancelled, op.State())
	assert.Equal(t, 0, cancelCalls, "Cancel must not itself invoke the callback")
	assert.Len(t, c.taskCh, 1, "Cancel enqueues exactly one dispatch-removal task")
}

func TestOperationCompleteAfterCancelIsNoOp(t *testing.T) {
	calls := 0
	op := newOperation(nil, Tag(1), func(o *Operation, success bool, errCode ErrCode) {
		calls++
	})

	op.state = OperationCancelled
	op.complete(true, ErrOK)

	assert.Equal(t, 0, calls)
	assert.Equal(t, OperationCancelled, op.State())
}

func TestOperationRefUnref(t *testing.T) {
	op := newOperation(nil, Tag(1), nil)
	op.Ref()
	assert.Equal(t, 2, op.refcount)
	op.Unref()
	op.Unref()
	assert.Equal(t, 0, op.refcount)
	// Unref below zero must not underflow.
	op.Unref()
	assert.Equal(t, 0, op.refcount)
}
