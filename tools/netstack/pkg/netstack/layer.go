package netstack

// Layer is the contract every codec in this package implements for the
// transmit path: report how many bytes Serialize will write, then write
// them. A layered packet is simply a record whose Payload field is
// itself a Layer — wire length recurses, and Serialize writes this
// layer's header (with a placeholder where a checksum goes), recurses
// into the payload, then patches its own checksum field(s) using bytes
// the inner layer has, by then, already written into the same buffer.
type Layer interface {
	WireLen() int
	Serialize(b *Builder) error
}

// RawPayload is an opaque, already-encoded payload. It is the "Other"
// leaf of every typed tree this package produces or parses: a protocol
// this library doesn't model, carried through unexamined.
type RawPayload []byte

func (p RawPayload) WireLen() int { return len(p) }

func (p RawPayload) Serialize(b *Builder) error {
	_, err := b.PushBytes(p)
	return err
}
