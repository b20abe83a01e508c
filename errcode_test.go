// SPDX-License-Identifier: GPL-3.0-or-later

package padial

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrCodeFromWire(t *testing.T) {
	assert.Equal(t, ErrOK, ErrCodeFromWire(0))
	assert.Equal(t, ErrBusy, ErrCodeFromWire(uint32(ErrBusy)))
	assert.Equal(t, ErrUnknown, ErrCodeFromWire(uint32(ErrMax)))
	assert.Equal(t, ErrUnknown, ErrCodeFromWire(999999))
}

func TestErrCodeString(t *testing.T) {
	assert.Equal(t, "timeout", ErrTimeout.String())
	assert.Equal(t, "unknown", ErrCode(999999).String())
	assert.Equal(t, "connection-refused", ErrConnectionRefused.String())
}
