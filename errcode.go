// SPDX-License-Identifier: GPL-3.0-or-later

package padial

// ErrCode is a stable error taxonomy code, observable via [*Context.Errno]
// and reported on operation callbacks (spec.md §7).
//
// A numeric code read off the wire at or above [ErrMax] is coerced to
// [ErrUnknown] by [ErrCodeFromWire].
type ErrCode uint32

// Error taxonomy, in wire order. OK is never a legal value for a decoded
// ERROR frame (spec.md §5.3): receiving it there is itself a protocol
// failure.
const (
	ErrOK ErrCode = iota
	ErrAccess
	ErrCommand
	ErrInvalid
	ErrExists
	ErrNoEntity
	ErrConnectionRefused
	ErrProtocol
	ErrTimeout
	ErrAuthKey
	ErrInternal
	ErrConnectionTerminated
	ErrKilled
	ErrInvalidServer
	ErrModInitFailed
	ErrBadState
	ErrNoData
	ErrVersion
	ErrTooLarge
	ErrNotSupported
	ErrUnknown
	ErrNoDataPresent
	ErrForked
	ErrIO
	ErrBusy

	// ErrMax is one past the last legal taxonomy value. Wire-decoded codes
	// at or above this are coerced to [ErrUnknown] by [ErrCodeFromWire].
	ErrMax
)

var errCodeNames = [...]string{
	ErrOK:                   "ok",
	ErrAccess:               "access",
	ErrCommand:              "command",
	ErrInvalid:              "invalid",
	ErrExists:               "exists",
	ErrNoEntity:             "noentity",
	ErrConnectionRefused:    "connection-refused",
	ErrProtocol:             "protocol",
	ErrTimeout:              "timeout",
	ErrAuthKey:              "authkey",
	ErrInternal:             "internal",
	ErrConnectionTerminated: "connection-terminated",
	ErrKilled:               "killed",
	ErrInvalidServer:        "invalid-server",
	ErrModInitFailed:        "modinitfailed",
	ErrBadState:             "badstate",
	ErrNoData:               "nodata",
	ErrVersion:              "version",
	ErrTooLarge:             "too-large",
	ErrNotSupported:         "notsupported",
	ErrUnknown:              "unknown",
	ErrNoDataPresent:        "nodatapresent",
	ErrForked:               "forked",
	ErrIO:                   "io",
	ErrBusy:                 "busy",
}

// String returns the taxonomy name, or "unknown" for any value at or
// above [ErrMax].
func (e ErrCode) String() string {
	if e >= ErrMax {
		return errCodeNames[ErrUnknown]
	}
	return errCodeNames[e]
}

// Error implements the error interface, so an [ErrCode] can be returned
// and compared directly wherever the rest of the package uses error.
func (e ErrCode) Error() string {
	return e.String()
}

// ErrCodeFromWire decodes a 32-bit wire error code, coercing any value at
// or above [ErrMax] to [ErrUnknown] (spec.md §5.3).
func ErrCodeFromWire(code uint32) ErrCode {
	if code >= uint32(ErrMax) {
		return ErrUnknown
	}
	return ErrCode(code)
}
