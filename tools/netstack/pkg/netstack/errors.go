package netstack

import (
	"errors"
	"fmt"
)

// ErrNoSpace is returned by a Builder append operation when the backing
// buffer has no room left. Callers must pre-size the buffer using a
// record's WireLen(); this error signals a size-estimation bug and is not
// meant to be retried.
var ErrNoSpace = errors.New("netstack: no space in buffer")

// ErrPatchOutOfRange is returned when a patch or read targets bytes that
// have not yet been appended.
var ErrPatchOutOfRange = errors.New("netstack: patch offset out of range")

// ErrOutOfOrderSegment is returned by TcpConnection.HandleSegment when an
// Established connection receives a segment whose sequence number is
// ahead of what has been acknowledged. Returning an error here lets the
// caller decide (drop the connection, send a duplicate ACK, etc.)
// without crashing on peer-controlled input.
var ErrOutOfOrderSegment = errors.New("netstack: out-of-order TCP segment")

// TruncatedError reports that an input slice was shorter than the minimum
// required for the layer being parsed.
type TruncatedError struct {
	Len int
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("netstack: truncated input (%d bytes)", e.Len)
}

// MalformedError reports that a fixed-field value fell outside the set
// the parser accepts (e.g. an ARP operation code other than request/reply).
type MalformedError struct {
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("netstack: malformed: %s", e.Reason)
}

// UnimplementedError reports that the input is structurally valid but
// describes something this codec does not model (a non-echo ICMP
// message, a DHCP message type this library only encodes or only
// decodes, and so on).
type UnimplementedError struct {
	Reason string
}

func (e *UnimplementedError) Error() string {
	return fmt.Sprintf("netstack: unimplemented: %s", e.Reason)
}
