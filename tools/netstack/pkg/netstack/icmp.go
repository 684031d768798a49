package netstack

// ICMPHeaderLen is the fixed ICMP echo header size: type(1) code(1)
// checksum(2) id(2) seq(2).
const ICMPHeaderLen = 8

// ICMPKind distinguishes an echo request from an echo reply. Only these
// two ICMP message types are modeled; anything else fails to parse as
// unimplemented.
type ICMPKind uint8

const (
	ICMPKindEchoReply   ICMPKind = 0
	ICMPKindEchoRequest ICMPKind = 8
)

// ICMPPacket is an ICMP echo request or reply.
type ICMPPacket struct {
	Kind ICMPKind
	ID   uint16
	Seq  uint16
	Data []byte
}

func (p *ICMPPacket) WireLen() int { return ICMPHeaderLen + len(p.Data) }

func (p *ICMPPacket) Serialize(b *Builder) error {
	start := b.Len()
	if _, err := b.PushByte(byte(p.Kind)); err != nil {
		return err
	}
	if _, err := b.PushByte(0); err != nil { // code
		return err
	}
	checksumOffset, err := b.PushUint16(0x0000) // placeholder
	if err != nil {
		return err
	}
	if _, err := b.PushUint16(p.ID); err != nil {
		return err
	}
	if _, err := b.PushUint16(p.Seq); err != nil {
		return err
	}
	if _, err := b.PushBytes(p.Data); err != nil {
		return err
	}

	written, err := b.SliceFrom(start)
	if err != nil {
		return err
	}
	return b.PatchUint16(checksumOffset, Checksum(written))
}

// ParseICMP parses an ICMP echo request. The returned packet's Data
// aliases the input slice. Anything other than (type, code) == (8, 0)
// is unimplemented — an echo reply is only ever built via EchoReply,
// never accepted on parse.
func ParseICMP(data []byte) (*ICMPPacket, error) {
	if len(data) < ICMPHeaderLen {
		return nil, &TruncatedError{Len: len(data)}
	}
	typ, code := data[0], data[1]
	if code != 0 || typ != uint8(ICMPKindEchoRequest) {
		return nil, &UnimplementedError{Reason: "only ICMP echo request is modeled on parse"}
	}
	id := uint16(data[4])<<8 | uint16(data[5])
	seq := uint16(data[6])<<8 | uint16(data[7])
	return &ICMPPacket{
		Kind: ICMPKind(typ),
		ID:   id,
		Seq:  seq,
		Data: data[ICMPHeaderLen:],
	}, nil
}

// EchoReply builds the reply to this echo request: same id/seq/data,
// type flipped to echo reply. It is a usage error to call this on a
// packet that isn't an echo request.
func (p *ICMPPacket) EchoReply() (*ICMPPacket, error) {
	if p.Kind != ICMPKindEchoRequest {
		return nil, &MalformedError{Reason: "EchoReply called on a non-request ICMP packet"}
	}
	return &ICMPPacket{
		Kind: ICMPKindEchoReply,
		ID:   p.ID,
		Seq:  p.Seq,
		Data: p.Data,
	}, nil
}
