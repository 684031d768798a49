package netstack

// This file implements the RFC 1071 one's-complement Internet checksum:
// sum 16-bit big-endian words into a wider accumulator, fold carries
// twice, and complement. The fold primitive is shared by every codec in
// this package (IPv4 header, ICMP, UDP, TCP) so there is exactly one
// place the arithmetic can be wrong, rather than the usual handful of
// copy-pasted variants.

// sumBytes accumulates b as big-endian 16-bit words into a 32-bit
// accumulator. A trailing odd byte is treated as the high byte of a
// zero-padded 16-bit word, per RFC 1071 §4.1.
func sumBytes(b []byte) uint32 {
	var sum uint32
	n := len(b)
	for i := 0; i+1 < n; i += 2 {
		sum += uint32(b[i])<<8 | uint32(b[i+1])
	}
	if n%2 == 1 {
		sum += uint32(b[n-1]) << 8
	}
	return sum
}

// foldSum folds a 32-bit accumulator down to 16 bits by adding the
// overflow back in, twice (one pass is not always enough: the first fold
// can itself carry out of 16 bits).
func foldSum(sum uint32) uint16 {
	sum = (sum >> 16) + (sum & 0xffff)
	sum = (sum >> 16) + (sum & 0xffff)
	return uint16(sum)
}

// Checksum computes the RFC 1071 Internet checksum over b: the bitwise
// complement of the folded 16-bit sum of its bytes.
func Checksum(b []byte) uint16 {
	return ^foldSum(sumBytes(b))
}

// CombineChecksums folds two already-complemented, independently computed
// checksums into the checksum of their concatenation, without revisiting
// either byte range. This is what lets IPv4 patch a UDP/TCP checksum that
// was already written by the inner layer: un-complementing a one's
// complement checksum recovers its underlying folded sum (NOT is its own
// inverse over a fixed bit width), so the two sums can be added and
// re-folded exactly as if they had been summed from raw bytes together.
func CombineChecksums(a, b uint16) uint16 {
	return ^foldSum(uint32(^a) + uint32(^b))
}

// pseudoHeaderSum computes the folded (not yet complemented) sum of the
// IPv4 pseudo-header used by UDP and TCP checksums: src(4) dst(4) zero(1)
// protocol(1) length(2).
func pseudoHeaderSum(src, dst IpV4Address, protocol IPProtocol, length uint16) uint16 {
	var hdr [12]byte
	copy(hdr[0:4], src.Bytes())
	copy(hdr[4:8], dst.Bytes())
	hdr[8] = 0
	hdr[9] = byte(protocol)
	hdr[10] = byte(length >> 8)
	hdr[11] = byte(length)
	return foldSum(sumBytes(hdr[:]))
}

// foldInPseudoHeader recomputes an L4 checksum field (currently holding
// the complemented checksum of the L4 bytes alone) so that it also
// accounts for the IPv4 pseudo-header, and returns the new on-wire value.
func foldInPseudoHeader(l4Checksum uint16, src, dst IpV4Address, protocol IPProtocol, length uint16) uint16 {
	phSum := pseudoHeaderSum(src, dst, protocol, length)
	return ^foldSum(uint32(^l4Checksum) + uint32(phSum))
}
