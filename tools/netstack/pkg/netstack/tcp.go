package netstack

import "strings"

// TCPHeaderLen is the fixed header size this library ever writes, and
// the minimum it accepts. TCP options beyond the mandatory 20 bytes are skipped on
// parse (the payload starts at header_len_words*4) and never produced
// (emitted segments always report header_len_words=5).
const TCPHeaderLen = 20

// TCPFlags is a bit set over the nine flag bits of a TCP header, packed
// exactly as they appear on the wire: FIN is bit 0 of byte 13 through NS
// as bit 0 of byte 12's low nibble, so a TCPFlags value masked to its
// low 9 bits *is* the on-wire bit pattern once combined with the data
// offset nibble.
type TCPFlags uint16

const (
	FlagFIN TCPFlags = 1 << 0
	FlagSYN TCPFlags = 1 << 1
	FlagRST TCPFlags = 1 << 2
	FlagPSH TCPFlags = 1 << 3
	FlagACK TCPFlags = 1 << 4
	FlagURG TCPFlags = 1 << 5
	FlagECE TCPFlags = 1 << 6
	FlagCWR TCPFlags = 1 << 7
	FlagNS  TCPFlags = 1 << 8
)

const tcpFlagsMask = 0x1ff

// Union returns the flags set in either f or other.
func (f TCPFlags) Union(other TCPFlags) TCPFlags { return f | other }

// Intersection returns the flags set in both f and other.
func (f TCPFlags) Intersection(other TCPFlags) TCPFlags { return f & other }

// Contains reports whether every flag in other is also set in f.
func (f TCPFlags) Contains(other TCPFlags) bool { return f&other == other }

// Equals reports whether f and other have exactly the same flags set.
func (f TCPFlags) Equals(other TCPFlags) bool { return f == other }

func (f TCPFlags) String() string {
	var names []string
	for _, pair := range []struct {
		bit  TCPFlags
		name string
	}{
		{FlagNS, "NS"}, {FlagCWR, "CWR"}, {FlagECE, "ECE"}, {FlagURG, "URG"},
		{FlagACK, "ACK"}, {FlagPSH, "PSH"}, {FlagRST, "RST"}, {FlagSYN, "SYN"}, {FlagFIN, "FIN"},
	} {
		if f.Contains(pair.bit) {
			names = append(names, pair.name)
		}
	}
	if len(names) == 0 {
		return "(none)"
	}
	return strings.Join(names, "|")
}

// TCPSegment is a TCP segment ready to be wrapped in an IPv4 packet. It
// always reports header_len_words=5 (no options) and urgent=0.
type TCPSegment struct {
	SrcPort uint16
	DstPort uint16
	Seq     uint32
	Ack     uint32
	Flags   TCPFlags
	Window  uint16
	Payload []byte
}

func (s *TCPSegment) WireLen() int { return TCPHeaderLen + len(s.Payload) }

func (s *TCPSegment) Serialize(b *Builder) error {
	start := b.Len()
	if _, err := b.PushUint16(s.SrcPort); err != nil {
		return err
	}
	if _, err := b.PushUint16(s.DstPort); err != nil {
		return err
	}
	if _, err := b.PushUint32(s.Seq); err != nil {
		return err
	}
	if _, err := b.PushUint32(s.Ack); err != nil {
		return err
	}
	const headerLenWords = 5
	offsetAndFlags := uint16(headerLenWords)<<12 | uint16(s.Flags&tcpFlagsMask)
	if _, err := b.PushUint16(offsetAndFlags); err != nil {
		return err
	}
	if _, err := b.PushUint16(s.Window); err != nil {
		return err
	}
	checksumOffset, err := b.PushUint16(0x0000) // placeholder
	if err != nil {
		return err
	}
	if _, err := b.PushUint16(0x0000); err != nil { // urgent pointer
		return err
	}
	if _, err := b.PushBytes(s.Payload); err != nil {
		return err
	}

	written, err := b.SliceFrom(start)
	if err != nil {
		return err
	}
	return b.PatchUint16(checksumOffset, Checksum(written))
}

// TCPParsedSegment is the parse result for a TCP segment. Payload
// aliases the input slice starting at header_len_words*4.
type TCPParsedSegment struct {
	SrcPort uint16
	DstPort uint16
	Seq     uint32
	Ack     uint32
	Flags   TCPFlags
	Window  uint16
	Payload []byte
}

// ParseTCP parses a TCP segment. The checksum is not validated, matching
// this library's treatment of IPv4: validating it would require the IPv4
// pseudo-header, which this layer doesn't have access to.
func ParseTCP(data []byte) (*TCPParsedSegment, error) {
	if len(data) < TCPHeaderLen {
		return nil, &TruncatedError{Len: len(data)}
	}
	srcPort := uint16(data[0])<<8 | uint16(data[1])
	dstPort := uint16(data[2])<<8 | uint16(data[3])
	seq := uint32(data[4])<<24 | uint32(data[5])<<16 | uint32(data[6])<<8 | uint32(data[7])
	ack := uint32(data[8])<<24 | uint32(data[9])<<16 | uint32(data[10])<<8 | uint32(data[11])
	offsetAndFlags := uint16(data[12])<<8 | uint16(data[13])
	headerLenWords := uint8(offsetAndFlags >> 12)
	flags := TCPFlags(offsetAndFlags & tcpFlagsMask)
	window := uint16(data[14])<<8 | uint16(data[15])

	headerLen := int(headerLenWords) * 4
	if headerLen < TCPHeaderLen || headerLen > len(data) {
		return nil, &MalformedError{Reason: "TCP data offset is out of range"}
	}

	return &TCPParsedSegment{
		SrcPort: srcPort,
		DstPort: dstPort,
		Seq:     seq,
		Ack:     ack,
		Flags:   flags,
		Window:  window,
		Payload: data[headerLen:],
	}, nil
}
