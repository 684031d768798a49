package netstack

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNetstack_IPv4_SerializeProducesValidHeaderChecksum(t *testing.T) {
	t.Parallel()
	pkt := &IPv4Packet{
		Src:      IpV4AddressFrom4(10, 0, 0, 1),
		Dst:      IpV4AddressFrom4(10, 0, 0, 2),
		Protocol: IPProtocolICMP,
		Payload:  RawPayload([]byte{0xaa, 0xbb}),
	}
	b := NewBuilder(pkt.WireLen())
	require.NoError(t, pkt.Serialize(b))

	require.Equal(t, uint16(0), Checksum(b.Bytes()[:IPv4HeaderLen]))
}

func TestNetstack_IPv4_SerializeThenParseRoundTrips(t *testing.T) {
	t.Parallel()
	pkt := &IPv4Packet{
		Src:      IpV4AddressFrom4(192, 168, 0, 1),
		Dst:      IpV4AddressFrom4(192, 168, 0, 2),
		Protocol: IPProtocolICMP,
		Payload:  RawPayload([]byte{1, 2, 3, 4}),
	}
	b := NewBuilder(pkt.WireLen())
	require.NoError(t, pkt.Serialize(b))

	parsed, err := ParseIPv4(b.Bytes())
	require.NoError(t, err)
	require.Equal(t, pkt.Src, parsed.Src)
	require.Equal(t, pkt.Dst, parsed.Dst)
	require.Equal(t, pkt.Protocol, parsed.Protocol)
	require.Equal(t, []byte{1, 2, 3, 4}, parsed.PayloadData)
}

func TestNetstack_IPv4_ParseRejectsNonIHL5(t *testing.T) {
	t.Parallel()
	data := make([]byte, 24)
	data[0] = 0x46 // version 4, IHL 6 (options present)
	_, err := ParseIPv4(data)
	var malformed *MalformedError
	require.ErrorAs(t, err, &malformed)
}

func TestNetstack_IPv4_ParseRejectsNonVersion4(t *testing.T) {
	t.Parallel()
	data := make([]byte, 20)
	data[0] = 0x65 // version 6, IHL 5
	_, err := ParseIPv4(data)
	var malformed *MalformedError
	require.ErrorAs(t, err, &malformed)
}

func TestNetstack_IPv4_ParseTooShortIsTruncated(t *testing.T) {
	t.Parallel()
	_, err := ParseIPv4(make([]byte, 10))
	var truncated *TruncatedError
	require.ErrorAs(t, err, &truncated)
}

func TestNetstack_IPv4_HeaderOnlyVectorMatchesDocumentedBytes(t *testing.T) {
	t.Parallel()
	// src=141.52.45.122, dst=255.255.255.255, protocol=UDP, empty payload.
	want := []byte{
		0x45, 0x00, 0x00, 0x14, 0x00, 0x00, 0x40, 0x00, 0x40, 0x11,
		0x80, 0x2b, 0x8d, 0x34, 0x2d, 0x7a, 0xff, 0xff, 0xff, 0xff,
	}
	require.Len(t, want, IPv4HeaderLen)
	require.Equal(t, uint16(0), Checksum(want), "the header checksum invariant holds for this vector")

	parsed, err := ParseIPv4(want)
	require.NoError(t, err)
	require.Equal(t, IpV4AddressFrom4(141, 52, 45, 122), parsed.Src)
	require.Equal(t, IpV4AddressFrom4(255, 255, 255, 255), parsed.Dst)
	require.Equal(t, IPProtocolUDP, parsed.Protocol)
	require.Empty(t, parsed.PayloadData)
}

func FuzzNetstack_IPv4_ParseIPv4_NoPanic(f *testing.F) {
	f.Add(make([]byte, IPv4HeaderLen))
	f.Fuzz(func(t *testing.T, b []byte) {
		_, _ = ParseIPv4(b)
	})
}
