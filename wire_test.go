// SPDX-License-Identifier: GPL-3.0-or-later

package padial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWireRoundTripUint32(t *testing.T) {
	w := &wireWriter{}
	w.putUint32(0x12345678)

	r := &wireReader{buf: w.bytes()}
	v, err := r.getUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x12345678), v)
	assert.Equal(t, 0, r.remaining())
}

func TestWireRoundTripString(t *testing.T) {
	w := &wireWriter{}
	w.putString("hello")
	w.putString("")

	r := &wireReader{buf: w.bytes()}
	s, err := r.getString()
	require.NoError(t, err)
	assert.Equal(t, "hello", s)

	s, err = r.getString()
	require.NoError(t, err)
	assert.Equal(t, "", s)
}

func TestWireReaderShortPayload(t *testing.T) {
	r := &wireReader{buf: []byte{1, 2}}
	_, err := r.getUint32()
	assert.ErrorIs(t, err, errShortPayload)
}

func TestWireReaderShortStringLength(t *testing.T) {
	w := &wireWriter{}
	w.putUint32(100)
	w.putBytes([]byte("short"))

	r := &wireReader{buf: w.bytes()}
	_, err := r.getString()
	assert.ErrorIs(t, err, errShortPayload)
}

func TestCommandStringKnownAndUnknown(t *testing.T) {
	assert.Equal(t, "AUTH", CommandAuth.String())
	assert.Equal(t, "MEDIA_FRAME", CommandMediaFrame.String())
	assert.Contains(t, commandMax.String(), "COMMAND(")
}
