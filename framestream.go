// SPDX-License-Identifier: GPL-3.0-or-later

package padial

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"
)

// maxFrameSize bounds a single decoded frame, guarding against a
// malicious or corrupted length prefix causing an unbounded allocation.
const maxFrameSize = 16 << 20

// FrameStream is the packet-framing and credential-passing transport the
// [*Context] drives. It is an external collaborator with a narrow,
// declared interface (spec.md §1): the byte-level framing and credential
// attachment themselves are out of scope for this package. [NewFrameStream]
// provides a working default over a [net.Conn] so the module is usable
// end to end; tests substitute a fake.
type FrameStream interface {
	// Send enqueues a frame for delivery, in FIFO order with every other
	// Send call (spec.md §5 "Outbound request frames reach the peer in
	// the order they were created").
	Send(f Frame) error

	// Recv blocks until the next inbound frame is available, or the
	// transport is closed.
	Recv() (Frame, error)

	// SetSHMEnabled announces the negotiated SHM decision (spec.md §4.5).
	SetSHMEnabled(enabled bool)

	// PendingWriteBytes reports bytes enqueued via Send but not yet
	// written to the underlying transport, for [*Context.IsPending] and
	// [*Context.Drain] (spec.md §4.7, §6.1).
	PendingWriteBytes() int

	// PeerCredentials returns the peer's UID/GID if the transport
	// supports credential passing and has resolved them, else ok=false.
	PeerCredentials() (Credentials, bool)

	// IsLocal reports whether the underlying transport is inherently
	// local (spec.md §3 "peer locality flag").
	IsLocal() bool

	// Close tears down the transport. Idempotent.
	Close() error
}

// NewFrameStream wraps conn as a [FrameStream] using the length-prefixed
// encoding in spec.md §6.2: a uint32 payload length (the command and tag
// words are not counted), followed by uint32 command, uint32 tag, then the
// command payload.
func NewFrameStream(conn net.Conn, local bool, logger SLogger) FrameStream {
	fs := &netFrameStream{
		conn:    conn,
		local:   local,
		logger:  logger,
		writeCh: make(chan []byte, 64),
		closeCh: make(chan struct{}),
	}
	go fs.writeLoop()
	return fs
}

type netFrameStream struct {
	conn   net.Conn
	local  bool
	logger SLogger

	writeCh chan []byte
	closeCh chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	pending int
}

var _ FrameStream = (*netFrameStream)(nil)

func (fs *netFrameStream) Send(f Frame) error {
	buf := encodeFrame(f)
	fs.mu.Lock()
	fs.pending += len(buf)
	fs.mu.Unlock()
	select {
	case fs.writeCh <- buf:
		return nil
	case <-fs.closeCh:
		return net.ErrClosed
	}
}

func (fs *netFrameStream) writeLoop() {
	for {
		select {
		case buf := <-fs.writeCh:
			n, err := fs.conn.Write(buf)
			fs.mu.Lock()
			fs.pending -= n
			if fs.pending < 0 {
				fs.pending = 0
			}
			fs.mu.Unlock()
			if fs.logger != nil {
				fs.logger.Debug("frameSent", slog.Int("ioBytesCount", n), slog.Any("err", err))
			}
			if err != nil {
				return
			}
		case <-fs.closeCh:
			return
		}
	}
}

func (fs *netFrameStream) Recv() (Frame, error) {
	var header [12]byte
	if _, err := io.ReadFull(fs.conn, header[:]); err != nil {
		return Frame{}, err
	}
	length := binary.LittleEndian.Uint32(header[0:4])
	command := binary.LittleEndian.Uint32(header[4:8])
	tag := binary.LittleEndian.Uint32(header[8:12])
	if length > maxFrameSize {
		return Frame{}, fmt.Errorf("padial: frame too large: %d bytes", length)
	}
	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(fs.conn, payload); err != nil {
			return Frame{}, err
		}
	}
	f := Frame{Command: Command(command), Tag: Tag(tag), Payload: payload}
	if creds, ok := peerCredentialsFromConn(fs.conn); ok {
		f.Credentials = &creds
	}
	if fs.logger != nil {
		fs.logger.Debug("frameReceived", slog.String("command", f.Command.String()), slog.Int("tag", int(tag)))
	}
	return f, nil
}

func encodeFrame(f Frame) []byte {
	buf := make([]byte, 12+len(f.Payload))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(f.Payload)))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(f.Command))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(f.Tag))
	copy(buf[12:], f.Payload)
	return buf
}

func (fs *netFrameStream) SetSHMEnabled(enabled bool) {
	if fs.logger != nil {
		fs.logger.Info("shmEnabled", slog.Bool("enabled", enabled))
	}
}

func (fs *netFrameStream) PendingWriteBytes() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.pending
}

func (fs *netFrameStream) PeerCredentials() (Credentials, bool) {
	return peerCredentialsFromConn(fs.conn)
}

func (fs *netFrameStream) IsLocal() bool {
	return fs.local
}

func (fs *netFrameStream) Close() error {
	var err error
	fs.closeOnce.Do(func() {
		close(fs.closeCh)
		err = fs.conn.Close()
	})
	return err
}

// errTransportGone names a lost transport. Nothing in this package returns
// or checks it: the read loop treats any [FrameStream.Recv] error as the
// transport being gone.
var errTransportGone = errors.New("padial: transport gone")

// drainDeadline bounds how long a reply may remain pending before the
// dispatch facility synthesises a TIMEOUT outcome (spec.md §4.7, §5).
const drainDeadline = 5 * time.Second
