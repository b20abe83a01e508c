// SPDX-License-Identifier: GPL-3.0-or-later

package padial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStreamRecord struct {
	channel       uint32
	advancedTo    int64
	advancedSeek  SeekMode
	advancedChunk []byte
	buffered      int
	readCallback  int
	terminal      *StreamTerminalState
}

func (s *fakeStreamRecord) ChannelID() uint32 { return s.channel }

func (s *fakeStreamRecord) AdvanceReadQueue(offset int64, seek SeekMode, chunk []byte) {
	s.advancedTo = offset
	s.advancedSeek = seek
	s.advancedChunk = chunk
}

func (s *fakeStreamRecord) BufferedLength() int { return s.buffered }

func (s *fakeStreamRecord) InvokeReadCallback(length int) { s.readCallback = length }

func (s *fakeStreamRecord) SetTerminalState(state StreamTerminalState) {
	s.terminal = &state
}

func TestStreamRegistryRouteMediaFrameWithData(t *testing.T) {
	r := NewStreamRegistry()
	s := &fakeStreamRecord{channel: 7, buffered: 42}
	r.RegisterRecord(s)

	r.RouteMediaFrame(7, 100, SeekAbsolute, []byte("data"), 4)

	assert.Equal(t, int64(100), s.advancedTo)
	assert.Equal(t, SeekAbsolute, s.advancedSeek)
	assert.Equal(t, []byte("data"), s.advancedChunk)
	assert.Equal(t, 42, s.readCallback)
}

func TestStreamRegistryRouteMediaFrameZeroLengthAdvance(t *testing.T) {
	r := NewStreamRegistry()
	s := &fakeStreamRecord{channel: 7}
	r.RegisterRecord(s)

	r.RouteMediaFrame(7, 100, SeekRelative, nil, 8)

	assert.Equal(t, int64(108), s.advancedTo)
	assert.Nil(t, s.advancedChunk)
}

func TestStreamRegistryRouteMediaFrameNoReadCallbackWhenEmpty(t *testing.T) {
	r := NewStreamRegistry()
	s := &fakeStreamRecord{channel: 7, buffered: 0}
	r.RegisterRecord(s)

	r.RouteMediaFrame(7, 0, SeekRelative, []byte("x"), 1)

	assert.Equal(t, 0, s.readCallback)
}

func TestStreamRegistryRouteMediaFrameUnknownChannelDropped(t *testing.T) {
	r := NewStreamRegistry()
	require.NotPanics(t, func() {
		r.RouteMediaFrame(99, 0, SeekRelative, []byte("x"), 1)
	})
}

func TestStreamRegistryUnregister(t *testing.T) {
	r := NewStreamRegistry()
	s := &fakeStreamRecord{channel: 1}
	r.RegisterPlayback(s)
	r.UnregisterPlayback(1)

	require.NotPanics(t, func() {
		r.RouteMediaFrame(1, 0, SeekRelative, []byte("x"), 1)
	})
}

func TestStreamRegistryTerminate(t *testing.T) {
	r := NewStreamRegistry()
	p := &fakeStreamRecord{channel: 1}
	rec := &fakeStreamRecord{channel: 2}
	r.RegisterPlayback(p)
	r.RegisterRecord(rec)

	r.Terminate(StreamFailed)

	require.NotNil(t, p.terminal)
	assert.Equal(t, StreamFailed, *p.terminal)
	require.NotNil(t, rec.terminal)
	assert.Equal(t, StreamFailed, *rec.terminal)
}
