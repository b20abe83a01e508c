// SPDX-License-Identifier: GPL-3.0-or-later

package padial

import (
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeFrameLayout(t *testing.T) {
	f := Frame{Command: CommandAuth, Tag: Tag(7), Payload: []byte("hi")}
	buf := encodeFrame(f)

	require.Len(t, buf, 12+2)
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(buf[0:4]))
	assert.Equal(t, uint32(CommandAuth), binary.LittleEndian.Uint32(buf[4:8]))
	assert.Equal(t, uint32(7), binary.LittleEndian.Uint32(buf[8:12]))
	assert.Equal(t, "hi", string(buf[12:]))
}

func TestFrameStreamSendRecvRoundTrip(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	fs := NewFrameStream(client, true, nil)
	defer fs.Close()

	recvCh := make(chan Frame, 1)
	serverFS := NewFrameStream(server, false, nil)
	defer serverFS.Close()

	err := fs.Send(Frame{Command: CommandSetDefaultSink, Tag: Tag(1), Payload: []byte("sink")})
	require.NoError(t, err)

	go func() {
		f, err := serverFS.Recv()
		require.NoError(t, err)
		recvCh <- f
	}()

	select {
	case f := <-recvCh:
		assert.Equal(t, CommandSetDefaultSink, f.Command)
		assert.Equal(t, Tag(1), f.Tag)
		assert.Equal(t, "sink", string(f.Payload))
	case <-time.After(time.Second):
		t.Fatal("did not receive frame")
	}
}

func TestFrameStreamIsLocal(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	fs := NewFrameStream(client, true, nil)
	defer fs.Close()
	assert.True(t, fs.IsLocal())

	fs2 := NewFrameStream(server, false, nil)
	defer fs2.Close()
	assert.False(t, fs2.IsLocal())
}

func TestFrameStreamCloseIdempotent(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	fs := NewFrameStream(client, true, nil)
	require.NoError(t, fs.Close())
	assert.NoError(t, fs.Close())
}

func TestFrameStreamRecvTooLarge(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	fs := NewFrameStream(server, false, nil)
	defer fs.Close()

	go func() {
		var header [12]byte
		binary.LittleEndian.PutUint32(header[0:4], maxFrameSize+1)
		_, _ = client.Write(header[:])
	}()

	_, err := fs.Recv()
	assert.Error(t, err)
}
