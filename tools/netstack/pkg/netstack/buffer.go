package netstack

import "encoding/binary"

// Builder is an append-only byte buffer with a fixed capacity, plus
// random-access patch points for fields (like checksums and lengths) that
// can only be computed after everything after them has been written.
//
// Every Serialize in the package writes through it; the parsers read
// their input slices directly. All multi-byte integers are big-endian
// (network byte order).
type Builder struct {
	buf []byte
	n   int
}

// NewBuilder allocates a new Builder backed by a heap buffer of the given
// capacity.
func NewBuilder(capacity int) *Builder {
	return &Builder{buf: make([]byte, capacity)}
}

// NewBuilderOver wraps caller-supplied backing storage. This lets a
// caller without a general-purpose heap (a stack buffer, a DMA ring
// entry) drive the same builder contract.
func NewBuilderOver(backing []byte) *Builder {
	return &Builder{buf: backing}
}

// Len returns the number of bytes appended so far.
func (b *Builder) Len() int { return b.n }

// Cap returns the builder's total capacity.
func (b *Builder) Cap() int { return len(b.buf) }

// Bytes returns the bytes written so far. The slice aliases the builder's
// backing array and is only valid until the next append.
func (b *Builder) Bytes() []byte { return b.buf[:b.n] }

// PushByte appends a single byte and returns its offset.
func (b *Builder) PushByte(v byte) (int, error) {
	off := b.n
	if off+1 > len(b.buf) {
		return 0, ErrNoSpace
	}
	b.buf[off] = v
	b.n++
	return off, nil
}

// PushUint16 appends v in big-endian order and returns its offset.
func (b *Builder) PushUint16(v uint16) (int, error) {
	off := b.n
	if off+2 > len(b.buf) {
		return 0, ErrNoSpace
	}
	binary.BigEndian.PutUint16(b.buf[off:], v)
	b.n += 2
	return off, nil
}

// PushUint32 appends v in big-endian order and returns its offset.
func (b *Builder) PushUint32(v uint32) (int, error) {
	off := b.n
	if off+4 > len(b.buf) {
		return 0, ErrNoSpace
	}
	binary.BigEndian.PutUint32(b.buf[off:], v)
	b.n += 4
	return off, nil
}

// PushBytes appends v verbatim and returns its offset.
func (b *Builder) PushBytes(v []byte) (int, error) {
	off := b.n
	if off+len(v) > len(b.buf) {
		return 0, ErrNoSpace
	}
	copy(b.buf[off:], v)
	b.n += len(v)
	return off, nil
}

// PushZeros appends n zero bytes and returns the starting offset. Useful
// for fixed-size reserved fields (BOOTP sname/file, TCP's padding, etc.)
// that get patched later or are simply left zero.
func (b *Builder) PushZeros(n int) (int, error) {
	off := b.n
	if off+n > len(b.buf) {
		return 0, ErrNoSpace
	}
	for i := off; i < off+n; i++ {
		b.buf[i] = 0
	}
	b.n += n
	return off, nil
}

// ReadUint16 reads a big-endian u16 at offset, which must lie entirely
// within already-appended bytes.
func (b *Builder) ReadUint16(offset int) (uint16, error) {
	if offset < 0 || offset+2 > b.n {
		return 0, ErrPatchOutOfRange
	}
	return binary.BigEndian.Uint16(b.buf[offset:]), nil
}

// PatchUint16 overwrites a big-endian u16 at offset, which must lie
// entirely within already-appended bytes.
func (b *Builder) PatchUint16(offset int, v uint16) error {
	if offset < 0 || offset+2 > b.n {
		return ErrPatchOutOfRange
	}
	binary.BigEndian.PutUint16(b.buf[offset:], v)
	return nil
}

// UpdateUint16 reads the u16 at offset, passes it through f, and writes
// the result back. f must be pure: it receives the on-wire value and
// returns the replacement.
func (b *Builder) UpdateUint16(offset int, f func(uint16) uint16) error {
	cur, err := b.ReadUint16(offset)
	if err != nil {
		return err
	}
	return b.PatchUint16(offset, f(cur))
}

// SliceFrom returns the bytes appended from offset to the current end of
// the builder. offset must not exceed the current length.
func (b *Builder) SliceFrom(offset int) ([]byte, error) {
	if offset < 0 || offset > b.n {
		return nil, ErrPatchOutOfRange
	}
	return b.buf[offset:b.n], nil
}
