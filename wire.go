// SPDX-License-Identifier: GPL-3.0-or-later

package padial

import (
	"encoding/binary"
	"errors"
)

// errShortPayload is returned by the wire decoders below when a payload is
// too short for the field being read. During the handshake and when
// reading an ERROR frame's code such a failure fails the context with
// [ErrProtocol]; an unsolicited or media frame that fails to decode is
// dropped without an error.
var errShortPayload = errors.New("padial: short payload")

// wireWriter accumulates a request payload in wire order (spec.md §6.2:
// little-endian, length-prefixed by the transport).
type wireWriter struct {
	buf []byte
}

func (w *wireWriter) putUint32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

func (w *wireWriter) putBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// putString writes a length-prefixed UTF-8 string.
func (w *wireWriter) putString(s string) {
	w.putUint32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *wireWriter) bytes() []byte {
	return w.buf
}

// wireReader consumes a reply/request payload in wire order.
type wireReader struct {
	buf []byte
}

func (r *wireReader) getUint32() (uint32, error) {
	if len(r.buf) < 4 {
		return 0, errShortPayload
	}
	v := binary.LittleEndian.Uint32(r.buf[:4])
	r.buf = r.buf[4:]
	return v, nil
}

func (r *wireReader) getBytes(n int) ([]byte, error) {
	if len(r.buf) < n {
		return nil, errShortPayload
	}
	out := r.buf[:n]
	r.buf = r.buf[n:]
	return out, nil
}

// getString reads a length-prefixed UTF-8 string.
func (r *wireReader) getString() (string, error) {
	n, err := r.getUint32()
	if err != nil {
		return "", err
	}
	b, err := r.getBytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *wireReader) remaining() int {
	return len(r.buf)
}

// shmEligibleBit marks SHM eligibility in the combined version field sent
// with AUTH and echoed (with peer semantics) in its reply (spec.md §4.5,
// §6.2).
const shmEligibleBit uint32 = 0x80000000

// versionMask isolates the 31-bit version number from the combined field.
const versionMask uint32 = 0x7fffffff

// invalidClientIndex is the sentinel client index value that must never
// be accepted as a real server-assigned index (spec.md §4.5 SettingName).
const invalidClientIndex uint32 = 0xffffffff

// minProtocolVersion is the lowest negotiated peer version this core will
// accept (spec.md §4.5, §8 property 2/boundary test 11).
const minProtocolVersion uint32 = 8

// shmVersionFloor is the lowest peer version at which SHM can be enabled
// at all (spec.md §4.5).
const shmVersionFloor uint32 = 10

// extendedAuthReplyVersion is the peer version at or above which the AUTH
// reply's top bit carries peer SHM eligibility (spec.md §4.5).
const extendedAuthReplyVersion uint32 = 13
