package netstack

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNetstack_Udp_SerializeThenParseRoundTrips(t *testing.T) {
	t.Parallel()
	pkt := &UDPPacket{SrcPort: 12345, DstPort: 53, Payload: RawPayload([]byte("query"))}
	b := NewBuilder(pkt.WireLen())
	require.NoError(t, pkt.Serialize(b))

	parsed, err := ParseUDP(b.Bytes())
	require.NoError(t, err)
	require.Equal(t, pkt.SrcPort, parsed.SrcPort)
	require.Equal(t, pkt.DstPort, parsed.DstPort)
	require.Equal(t, []byte("query"), parsed.PayloadData)
}

func TestNetstack_Udp_ParseTooShortIsTruncated(t *testing.T) {
	t.Parallel()
	_, err := ParseUDP(make([]byte, 4))
	var truncated *TruncatedError
	require.ErrorAs(t, err, &truncated)
}

func TestNetstack_Udp_IsDhcpPortPairBothOrderings(t *testing.T) {
	t.Parallel()
	require.True(t, isDhcpPortPair(DhcpServerPort, DhcpClientPort))
	require.True(t, isDhcpPortPair(DhcpClientPort, DhcpServerPort))
	require.False(t, isDhcpPortPair(12345, 53))
}

func TestNetstack_Udp_Ipv4UdpVectorMatchesDocumentedBytes(t *testing.T) {
	t.Parallel()
	// src=141.52.46.46:53, dst=141.52.46.162:57529, empty payload.
	want := []byte{
		0x45, 0x00, 0x00, 0x1c, 0x00, 0x00, 0x40, 0x00, 0x40, 0x11,
		0xc3, 0x98, 0x8d, 0x34, 0x2e, 0x2e, 0x8d, 0x34, 0x2e, 0xa2,
		0x00, 0x35, 0xe0, 0xb9, 0x00, 0x08, 0xa7, 0xb6,
	}

	pkt := &IPv4Packet{
		Src:      IpV4AddressFrom4(141, 52, 46, 46),
		Dst:      IpV4AddressFrom4(141, 52, 46, 162),
		Protocol: IPProtocolUDP,
		Payload:  &UDPPacket{SrcPort: 53, DstPort: 57529, Payload: RawPayload(nil)},
	}
	b := NewBuilder(pkt.WireLen())
	require.NoError(t, pkt.Serialize(b))
	require.Equal(t, want, b.Bytes())
}

func FuzzNetstack_Udp_ParseUDP_NoPanic(f *testing.F) {
	f.Add(make([]byte, UDPHeaderLen))
	f.Fuzz(func(t *testing.T, b []byte) {
		_, _ = ParseUDP(b)
	})
}
