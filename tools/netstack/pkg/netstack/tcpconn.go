package netstack

// TcpState is a connection's position in the (partial) RFC 793 state
// machine. Only Closed, Listen, SynReceived, Established, and LastAck
// are reachable through HandleSegment; the rest of the RFC 793 state set
// is declared for completeness (a future active-open or full-duplex
// implementation would need them) but this passive-only endpoint never
// transitions into them.
type TcpState uint8

const (
	TcpStateClosed TcpState = iota
	TcpStateListen
	TcpStateSynSent // unreachable: active open is out of scope
	TcpStateSynReceived
	TcpStateEstablished
	TcpStateFinWait1 // unreachable: active close is out of scope
	TcpStateFinWait2 // unreachable
	TcpStateCloseWait // unreachable: this endpoint never receives a passive-close FIN first
	TcpStateClosing   // unreachable: simultaneous close is out of scope
	TcpStateLastAck
	TcpStateTimeWait // unreachable: no TIME_WAIT timer is modeled
)

func (s TcpState) String() string {
	switch s {
	case TcpStateClosed:
		return "Closed"
	case TcpStateListen:
		return "Listen"
	case TcpStateSynSent:
		return "SynSent"
	case TcpStateSynReceived:
		return "SynReceived"
	case TcpStateEstablished:
		return "Established"
	case TcpStateFinWait1:
		return "FinWait1"
	case TcpStateFinWait2:
		return "FinWait2"
	case TcpStateCloseWait:
		return "CloseWait"
	case TcpStateClosing:
		return "Closing"
	case TcpStateLastAck:
		return "LastAck"
	case TcpStateTimeWait:
		return "TimeWait"
	default:
		return "Unknown"
	}
}

// DefaultTcpWindow is the window size reported by every emitted segment;
// this endpoint never advertises flow control.
const DefaultTcpWindow uint16 = 1000

// TcpFourTuple identifies a connection: the remote peer's address/port
// (Src) and this endpoint's own address/port (Dst).
type TcpFourTuple struct {
	SrcIP   IpV4Address
	SrcPort uint16
	DstIP   IpV4Address
	DstPort uint16
}

// TcpAppCallback is invoked with the payload of an in-order data segment
// once the endpoint is Established. Returning ok=false means "nothing to
// send back but still acknowledge the data" (the endpoint emits a bare
// ACK); ok=true with a reply means "acknowledge and send this".  The
// callback must not retain payload beyond the call and must not call
// back into the endpoint.
type TcpAppCallback func(conn *TcpConnection, payload []byte) (reply []byte, ok bool)

// TcpConnection is a single passive TCP endpoint bound to a four-tuple.
// It is mutated exclusively by HandleSegment and is otherwise an inert
// value the caller owns.
type TcpConnection struct {
	Tuple  TcpFourTuple
	State  TcpState
	SndSeq uint32
	RcvAck uint32
	Window uint16
}

// NewTcpConnection creates a connection in Listen, bound to tuple.
// initialSeq seeds SndSeq; this must be a per-connection secret chosen
// by the caller (classically derived from a hash of the tuple plus a
// rotating secret), not a fixed value.
func NewTcpConnection(tuple TcpFourTuple, initialSeq uint32) *TcpConnection {
	return &TcpConnection{
		Tuple:  tuple,
		State:  TcpStateListen,
		SndSeq: initialSeq,
		RcvAck: 0,
		Window: DefaultTcpWindow,
	}
}

// emit builds an outgoing segment with ports swapped relative to the
// connection's tuple (this endpoint's port becomes the source), and the
// connection's current seq/ack/window.
func (c *TcpConnection) emit(flags TCPFlags, payload []byte) *TCPSegment {
	return &TCPSegment{
		SrcPort: c.Tuple.DstPort,
		DstPort: c.Tuple.SrcPort,
		Seq:     c.SndSeq,
		Ack:     c.RcvAck,
		Flags:   flags,
		Window:  c.Window,
		Payload: payload,
	}
}

// HandleSegment advances the connection's state in response to an
// incoming segment (assumed to already match this connection's tuple)
// and returns an optional reply segment (headers only — the caller wraps
// it in IPv4 + Ethernet). It returns ErrOutOfOrderSegment if an
// Established connection receives a data segment whose sequence number
// is ahead of what has been acknowledged, rather than panicking: a
// gateway bridging real traffic must stay up when a peer reorders or
// drops a segment.
func (c *TcpConnection) HandleSegment(seg *TCPParsedSegment, callback TcpAppCallback) (*TCPSegment, error) {
	switch c.State {
	case TcpStateClosed:
		return nil, nil

	case TcpStateListen:
		if seg.Flags.Equals(FlagSYN) {
			return c.handleSyn(seg), nil
		}
		return nil, nil

	case TcpStateSynReceived:
		if seg.Flags.Equals(FlagSYN) {
			return c.handleSyn(seg), nil
		}
		if seg.Flags.Equals(FlagACK) {
			c.SndSeq++
			c.State = TcpStateEstablished
		}
		return nil, nil

	case TcpStateLastAck:
		if seg.Flags.Equals(FlagACK) {
			c.State = TcpStateClosed
		}
		return nil, nil

	case TcpStateEstablished:
		return c.handleEstablished(seg, callback)

	default:
		return nil, nil
	}
}

func (c *TcpConnection) handleSyn(seg *TCPParsedSegment) *TCPSegment {
	c.RcvAck = seg.Seq + 1
	c.State = TcpStateSynReceived
	return c.emit(FlagSYN.Union(FlagACK), nil)
}

func (c *TcpConnection) handleEstablished(seg *TCPParsedSegment, callback TcpAppCallback) (*TCPSegment, error) {
	switch {
	case seg.Seq == c.RcvAck:
		c.RcvAck += uint32(len(seg.Payload))
	case seg.Seq < c.RcvAck:
		// old/duplicate segment: already accounted for, drop silently.
		return nil, nil
	default:
		return nil, ErrOutOfOrderSegment
	}

	// Bare ACK (no data): acknowledged above already, nothing to send.
	if seg.Flags.Equals(FlagACK) && len(seg.Payload) == 0 {
		return nil, nil
	}

	if seg.Flags.Contains(FlagFIN) {
		c.RcvAck++
		reply := c.emit(FlagACK.Union(FlagFIN), nil)
		c.SndSeq++
		c.State = TcpStateLastAck
		return reply, nil
	}

	reply, ok := callback(c, seg.Payload)
	if !ok {
		return c.emit(FlagACK, nil), nil
	}
	out := c.emit(FlagACK, reply)
	c.SndSeq += uint32(len(reply))
	return out, nil
}
