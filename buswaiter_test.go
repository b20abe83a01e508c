// SPDX-License-Identifier: GPL-3.0-or-later

package padial

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBusWaiterCloseWithoutConnect(t *testing.T) {
	w := NewBusWaiter(DefaultSLogger())
	assert.NoError(t, w.Close())
}

func TestBusWaiterWaitReturnsOnCancelOrUnavailableBus(t *testing.T) {
	w := NewBusWaiter(DefaultSLogger())
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	// This environment may have no desktop bus reachable at all, in which
	// case Wait fails fast with a connect error rather than blocking on
	// ctx; either outcome is an error, never a nil error with no signal.
	_, err := w.Wait(ctx, DefaultBusName)
	assert.Error(t, err)
}
