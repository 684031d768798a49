package netstack

// IPv4HeaderLen is the fixed header size this library ever writes or
// accepts. IPv4 options (IHL > 5) are not represented; ParseIPv4 rejects
// them as malformed rather than silently skipping option bytes.
const IPv4HeaderLen = 20

// ipv4FlagsDF is the "don't fragment" bit (bit 14 of the 16-bit
// flags+fragment-offset field), always set on datagrams this library
// emits.
const ipv4FlagsDF = 0x4000

const (
	udpChecksumRelOffset = 6
	tcpChecksumRelOffset = 16
)

// IPv4Packet is an IPv4 datagram: a fixed 20-byte header (no options)
// wrapping a typed payload. Identification is always 0, DSCP/ECN is
// always 0, TTL is always 64, and the DF bit is always set — this
// library never fragments and never needs a distinguishing
// identification value.
type IPv4Packet struct {
	Src      IpV4Address
	Dst      IpV4Address
	Protocol IPProtocol
	Payload  Layer
}

func (p *IPv4Packet) WireLen() int {
	return IPv4HeaderLen + p.Payload.WireLen()
}

func (p *IPv4Packet) Serialize(b *Builder) error {
	headerStart := b.Len()

	if _, err := b.PushByte(0x45); err != nil { // version=4, IHL=5
		return err
	}
	if _, err := b.PushByte(0x00); err != nil { // DSCP/ECN
		return err
	}
	totalLen := uint16(p.WireLen())
	if _, err := b.PushUint16(totalLen); err != nil {
		return err
	}
	if _, err := b.PushUint16(0x0000); err != nil { // identification
		return err
	}
	if _, err := b.PushUint16(ipv4FlagsDF); err != nil { // flags+fragment offset
		return err
	}
	if _, err := b.PushByte(64); err != nil { // TTL
		return err
	}
	if _, err := b.PushByte(p.Protocol.Number()); err != nil {
		return err
	}
	checksumOffset, err := b.PushUint16(0x0000) // placeholder
	if err != nil {
		return err
	}
	if _, err := b.PushBytes(p.Src.Bytes()); err != nil {
		return err
	}
	if _, err := b.PushBytes(p.Dst.Bytes()); err != nil {
		return err
	}

	if err := p.Payload.Serialize(b); err != nil {
		return err
	}

	if p.Protocol == IPProtocolUDP || p.Protocol == IPProtocolTCP {
		relOffset := udpChecksumRelOffset
		if p.Protocol == IPProtocolTCP {
			relOffset = tcpChecksumRelOffset
		}
		l4ChecksumOffset := headerStart + IPv4HeaderLen + relOffset
		l4Len := uint16(p.Payload.WireLen())
		if err := b.UpdateUint16(l4ChecksumOffset, func(cur uint16) uint16 {
			return foldInPseudoHeader(cur, p.Src, p.Dst, p.Protocol, l4Len)
		}); err != nil {
			return err
		}
	}

	headerBytes, err := b.SliceFrom(headerStart)
	if err != nil {
		return err
	}
	ipChecksum := Checksum(headerBytes[:IPv4HeaderLen])
	return b.PatchUint16(checksumOffset, ipChecksum)
}

// IPv4ParsedPacket is the shallow parse result for an IPv4 header: the
// fields this library surfaces, plus the untouched payload bytes.
type IPv4ParsedPacket struct {
	Src         IpV4Address
	Dst         IpV4Address
	Protocol    IPProtocol
	PayloadData []byte
}

// ParseIPv4 parses a 20-byte IPv4 header (no options) plus payload. The
// header checksum is not validated. Any IHL other than 5 is rejected as
// malformed.
func ParseIPv4(data []byte) (*IPv4ParsedPacket, error) {
	if len(data) < IPv4HeaderLen {
		return nil, &TruncatedError{Len: len(data)}
	}
	version := data[0] >> 4
	ihl := data[0] & 0x0f
	if version != 4 {
		return nil, &MalformedError{Reason: "IPv4 version field is not 4"}
	}
	if ihl != 5 {
		return nil, &MalformedError{Reason: "IPv4 header with options (IHL != 5) is not supported"}
	}
	protocol := IPProtocol(data[9])
	src, err := IpV4AddressFromBytes(data[12:16])
	if err != nil {
		return nil, err
	}
	dst, err := IpV4AddressFromBytes(data[16:20])
	if err != nil {
		return nil, err
	}
	return &IPv4ParsedPacket{
		Src:         src,
		Dst:         dst,
		Protocol:    protocol,
		PayloadData: data[IPv4HeaderLen:],
	}, nil
}
