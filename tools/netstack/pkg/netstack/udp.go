package netstack

// UDPHeaderLen is the fixed UDP header size: src port(2) dst port(2)
// length(2) checksum(2).
const UDPHeaderLen = 8

// DhcpClientPort and DhcpServerPort are the well-known UDP ports used to
// recognize DHCP traffic while parsing a UDP datagram's payload.
const (
	DhcpServerPort uint16 = 67
	DhcpClientPort uint16 = 68
)

// UDPPacket is a UDP datagram. The checksum is always computed — this
// library never emits the RFC 768 "zero means no checksum" form.
type UDPPacket struct {
	SrcPort uint16
	DstPort uint16
	Payload Layer
}

func (p *UDPPacket) WireLen() int { return UDPHeaderLen + p.Payload.WireLen() }

func (p *UDPPacket) Serialize(b *Builder) error {
	start := b.Len()
	if _, err := b.PushUint16(p.SrcPort); err != nil {
		return err
	}
	if _, err := b.PushUint16(p.DstPort); err != nil {
		return err
	}
	if _, err := b.PushUint16(uint16(p.WireLen())); err != nil {
		return err
	}
	checksumOffset, err := b.PushUint16(0x0000) // placeholder
	if err != nil {
		return err
	}
	if err := p.Payload.Serialize(b); err != nil {
		return err
	}

	// Checksum over the UDP bytes alone; the enclosing IPv4 layer folds
	// in the pseudo-header once it knows src/dst/length (see ipv4.go).
	written, err := b.SliceFrom(start)
	if err != nil {
		return err
	}
	return b.PatchUint16(checksumOffset, Checksum(written))
}

// UDPParsedPacket is the shallow parse result for a UDP datagram.
type UDPParsedPacket struct {
	SrcPort     uint16
	DstPort     uint16
	PayloadData []byte
}

// ParseUDP parses a UDP header and payload. Payload classification
// (DHCP vs opaque) happens in the typed-tree parser, not here.
func ParseUDP(data []byte) (*UDPParsedPacket, error) {
	if len(data) < UDPHeaderLen {
		return nil, &TruncatedError{Len: len(data)}
	}
	srcPort := uint16(data[0])<<8 | uint16(data[1])
	dstPort := uint16(data[2])<<8 | uint16(data[3])
	return &UDPParsedPacket{
		SrcPort:     srcPort,
		DstPort:     dstPort,
		PayloadData: data[UDPHeaderLen:],
	}, nil
}

// isDhcpPortPair reports whether (srcPort, dstPort) matches one of the
// two DHCP client/server port orderings.
func isDhcpPortPair(srcPort, dstPort uint16) bool {
	return (srcPort == DhcpServerPort && dstPort == DhcpClientPort) ||
		(srcPort == DhcpClientPort && dstPort == DhcpServerPort)
}
