package netstack

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNetstack_Checksum_KnownVector(t *testing.T) {
	t.Parallel()
	// RFC 1071 worked example.
	data := []byte{0x00, 0x01, 0xf2, 0x03, 0xf4, 0xf5, 0xf6, 0xf7}
	require.Equal(t, uint16(0x220d), Checksum(data))
}

func TestNetstack_Checksum_VerifyingOwnChecksumYieldsZero(t *testing.T) {
	t.Parallel()
	data := []byte{0x45, 0x00, 0x00, 0x3c, 0x1c, 0x46, 0x40, 0x00, 0x40, 0x06}
	sum := Checksum(data)
	withChecksum := append(append([]byte{}, data...), byte(sum>>8), byte(sum))
	require.Equal(t, uint16(0), Checksum(withChecksum))
}

func TestNetstack_Checksum_OddLengthPadsLastByte(t *testing.T) {
	t.Parallel()
	odd := Checksum([]byte{0x12, 0x34, 0x56})
	padded := Checksum([]byte{0x12, 0x34, 0x56, 0x00})
	require.Equal(t, padded, odd, "a trailing odd byte is the high byte of a zero-padded word")
	require.NotEqual(t, Checksum([]byte{0x12, 0x34, 0x00, 0x56}), odd)
}

func TestNetstack_Checksum_CombineChecksumsMatchesDirectComputation(t *testing.T) {
	t.Parallel()
	a := []byte{0x01, 0x02, 0x03, 0x04}
	b := []byte{0x05, 0x06, 0x07}

	direct := Checksum(append(append([]byte{}, a...), b...))
	combined := CombineChecksums(Checksum(a), Checksum(b))
	require.Equal(t, direct, combined)
}

func TestNetstack_Checksum_FoldInPseudoHeaderMatchesDirectComputation(t *testing.T) {
	t.Parallel()
	src := IpV4AddressFrom4(10, 0, 0, 1)
	dst := IpV4AddressFrom4(10, 0, 0, 2)
	udpBytes := []byte{0x04, 0xd2, 0x00, 0x35, 0x00, 0x08, 0x00, 0x00, 'h', 'i'}

	pseudo := make([]byte, 0, 12+len(udpBytes))
	pseudo = append(pseudo, src.Bytes()...)
	pseudo = append(pseudo, dst.Bytes()...)
	pseudo = append(pseudo, 0x00, byte(IPProtocolUDP), 0x00, byte(len(udpBytes)))
	pseudo = append(pseudo, udpBytes...)
	direct := Checksum(pseudo)

	l4Checksum := Checksum(udpBytes)
	folded := foldInPseudoHeader(l4Checksum, src, dst, IPProtocolUDP, uint16(len(udpBytes)))
	require.Equal(t, direct, folded)
}
