package netstack

// MinEthernetFrameLen is the smallest frame this library will parse. Real
// NICs pad short frames up to this length (64 bytes minus the 4-byte FCS,
// which this library never represents) before handing them to software;
// anything shorter than this on the receive path is rejected as
// truncated, not a short frame this library should try to interpret.
const MinEthernetFrameLen = 60

// EthernetHeaderLen is the size of the fixed Ethernet II header: dst(6)
// src(6) ethertype(2). There is no 802.1Q tag support.
const EthernetHeaderLen = 14

// EthernetFrame is an Ethernet II frame: a fixed header wrapping a typed
// payload layer. FCS is not part of the representation.
type EthernetFrame struct {
	Dst       MacAddress
	Src       MacAddress
	EtherType EtherType
	Payload   Layer
}

func (f *EthernetFrame) WireLen() int {
	return EthernetHeaderLen + f.Payload.WireLen()
}

func (f *EthernetFrame) Serialize(b *Builder) error {
	if _, err := b.PushBytes(f.Dst.Bytes()); err != nil {
		return err
	}
	if _, err := b.PushBytes(f.Src.Bytes()); err != nil {
		return err
	}
	if _, err := b.PushUint16(f.EtherType.Number()); err != nil {
		return err
	}
	return f.Payload.Serialize(b)
}

// EthernetParsedFrame is the shallow parse result: the fixed header plus
// the untouched payload bytes. ParseEthernetFrame does not look inside
// the payload; ParseEthernetTree (tree.go) does.
type EthernetParsedFrame struct {
	Dst         MacAddress
	Src         MacAddress
	EtherType   EtherType
	PayloadData []byte
}

// ParseEthernetFrame parses the fixed Ethernet II header out of data.
// data must be at least MinEthernetFrameLen bytes, matching what a NIC
// driver would deliver (already padded if necessary).
func ParseEthernetFrame(data []byte) (*EthernetParsedFrame, error) {
	if len(data) < MinEthernetFrameLen {
		return nil, &TruncatedError{Len: len(data)}
	}
	dst, err := MacAddressFromBytes(data[0:6])
	if err != nil {
		return nil, err
	}
	src, err := MacAddressFromBytes(data[6:12])
	if err != nil {
		return nil, err
	}
	etherType := EtherType(uint16(data[12])<<8 | uint16(data[13]))
	return &EthernetParsedFrame{
		Dst:         dst,
		Src:         src,
		EtherType:   etherType,
		PayloadData: data[EthernetHeaderLen:],
	}, nil
}
