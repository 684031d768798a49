package netstack

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// buildFrame serializes frame and pads it up to MinEthernetFrameLen, the
// way a NIC pads a short frame before delivering it to software.
func buildFrame(t *testing.T, dst, src MacAddress, etherType EtherType, payload Layer) []byte {
	t.Helper()
	frame := &EthernetFrame{Dst: dst, Src: src, EtherType: etherType, Payload: payload}
	capacity := frame.WireLen()
	if capacity < MinEthernetFrameLen {
		capacity = MinEthernetFrameLen
	}
	b := NewBuilder(capacity)
	require.NoError(t, frame.Serialize(b))
	if b.Len() < MinEthernetFrameLen {
		_, err := b.PushZeros(MinEthernetFrameLen - b.Len())
		require.NoError(t, err)
	}
	return b.Bytes()
}

func TestNetstack_Tree_ParsesArpLeaf(t *testing.T) {
	t.Parallel()
	mac, _ := MacAddressFromBytes([]byte{0x02, 0, 0, 0, 0, 1})
	req := NewArpRequest(mac, IpV4AddressFrom4(10, 0, 0, 1), IpV4AddressFrom4(10, 0, 0, 2))
	data := buildFrame(t, BroadcastMac, mac, EtherTypeARP, req)

	tree, err := ParseEthernetTree(data)
	require.NoError(t, err)
	require.NotNil(t, tree.ARP)
	require.Nil(t, tree.IPv4)
	require.Equal(t, ArpOperationRequest, tree.ARP.Operation)
}

func TestNetstack_Tree_ParsesIcmpLeaf(t *testing.T) {
	t.Parallel()
	mac, _ := MacAddressFromBytes([]byte{0x02, 0, 0, 0, 0, 1})
	icmp := &ICMPPacket{Kind: ICMPKindEchoRequest, ID: 1, Seq: 1, Data: []byte("x")}
	ip := &IPv4Packet{Src: IpV4AddressFrom4(10, 0, 0, 1), Dst: IpV4AddressFrom4(10, 0, 0, 2), Protocol: IPProtocolICMP, Payload: icmp}
	data := buildFrame(t, BroadcastMac, mac, EtherTypeIPv4, ip)

	tree, err := ParseEthernetTree(data)
	require.NoError(t, err)
	require.NotNil(t, tree.IPv4)
	require.NotNil(t, tree.IPv4.ICMP)
	require.Nil(t, tree.IPv4.UDP)
	require.Equal(t, ICMPKindEchoRequest, tree.IPv4.ICMP.Kind)
}

func TestNetstack_Tree_ParsesDhcpLeafThroughUdp(t *testing.T) {
	t.Parallel()
	mac, _ := MacAddressFromBytes([]byte{0x02, 0, 0, 0, 0, 1})
	raw := buildRawDhcpMessage(t, 2, [4]byte{10, 0, 0, 5}, [4]byte{10, 0, 0, 1}, mac, 1, nil)
	udp := &UDPPacket{SrcPort: DhcpServerPort, DstPort: DhcpClientPort, Payload: RawPayload(raw)}
	ip := &IPv4Packet{Src: IpV4AddressFrom4(10, 0, 0, 1), Dst: IpV4AddressFrom4(255, 255, 255, 255), Protocol: IPProtocolUDP, Payload: udp}
	data := buildFrame(t, BroadcastMac, mac, EtherTypeIPv4, ip)

	tree, err := ParseEthernetTree(data)
	require.NoError(t, err)
	require.NotNil(t, tree.IPv4.UDP)
	require.NotNil(t, tree.IPv4.UDP.DHCP)
	require.Equal(t, DHCPKindOffer, tree.IPv4.UDP.DHCP.Kind)
}

func TestNetstack_Tree_ShortDhcpPortPayloadBecomesUdpOtherNotFrameError(t *testing.T) {
	t.Parallel()
	mac, _ := MacAddressFromBytes([]byte{0x02, 0, 0, 0, 0, 1})
	// A DHCP-port UDP payload under 240 bytes can't carry a magic cookie
	// or options; ParseDHCP reports that as Unimplemented, so the whole
	// Ethernet frame must still parse with UDPTree.Other populated
	// instead of failing.
	short := []byte("too-short-for-dhcp")
	udp := &UDPPacket{SrcPort: DhcpServerPort, DstPort: DhcpClientPort, Payload: RawPayload(short)}
	ip := &IPv4Packet{Src: IpV4AddressFrom4(10, 0, 0, 1), Dst: IpV4AddressFrom4(255, 255, 255, 255), Protocol: IPProtocolUDP, Payload: udp}
	data := buildFrame(t, BroadcastMac, mac, EtherTypeIPv4, ip)

	tree, err := ParseEthernetTree(data)
	require.NoError(t, err)
	require.NotNil(t, tree.IPv4.UDP)
	require.Nil(t, tree.IPv4.UDP.DHCP)
	require.NotEmpty(t, tree.IPv4.UDP.Other)
}

func TestNetstack_Tree_DiscoverFrameVectorMatchesDocumentedBytes(t *testing.T) {
	t.Parallel()
	mac, _ := MacAddressFromBytes([]byte{0x00, 0x08, 0xdc, 0xab, 0xcd, 0xef})
	discover := NewDiscoverMsg(mac, 0x12345678)
	udp := &UDPPacket{SrcPort: DhcpClientPort, DstPort: DhcpServerPort, Payload: discover}
	ip := &IPv4Packet{Src: IpV4AddressFrom4(0, 0, 0, 0), Dst: IpV4AddressFrom4(255, 255, 255, 255), Protocol: IPProtocolUDP, Payload: udp}
	frame := &EthernetFrame{Dst: BroadcastMac, Src: mac, EtherType: EtherTypeIPv4, Payload: ip}

	b := NewBuilder(frame.WireLen())
	require.NoError(t, frame.Serialize(b))
	out := b.Bytes()

	// Ethernet(14) + IPv4 header(20) + UDP header(8); the DHCP payload
	// follows and is covered separately by the Discover vector test.
	want := []byte{
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x00, 0x08, 0xdc, 0xab, 0xcd, 0xef, 0x08, 0x00,
		0x45, 0x00, 0x01, 0x16, 0x00, 0x00, 0x40, 0x00, 0x40, 0x11, 0x39, 0xd8,
		0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0xff,
		0x00, 0x44, 0x00, 0x43, 0x01, 0x02, 0x67, 0xe5,
	}
	require.Equal(t, want, out[:len(want)])
}

func TestNetstack_Tree_IcmpLeafDeepEqualsExpectedStructure(t *testing.T) {
	t.Parallel()
	mac, _ := MacAddressFromBytes([]byte{0x02, 0, 0, 0, 0, 1})
	// Data is long enough that the frame needs no Ethernet padding, which
	// would otherwise show up at the end of the parsed ICMP Data.
	icmp := &ICMPPacket{Kind: ICMPKindEchoRequest, ID: 0xabcd, Seq: 7, Data: []byte("payload-long-enough-to-skip-padding")}
	ip := &IPv4Packet{Src: IpV4AddressFrom4(141, 52, 45, 122), Dst: IpV4AddressFrom4(10, 0, 0, 2), Protocol: IPProtocolICMP, Payload: icmp}
	data := buildFrame(t, BroadcastMac, mac, EtherTypeIPv4, ip)

	tree, err := ParseEthernetTree(data)
	require.NoError(t, err)

	want := &IPv4Tree{
		Src:      IpV4AddressFrom4(141, 52, 45, 122),
		Dst:      IpV4AddressFrom4(10, 0, 0, 2),
		Protocol: IPProtocolICMP,
		ICMP:     &ICMPPacket{Kind: ICMPKindEchoRequest, ID: 0xabcd, Seq: 7, Data: []byte("payload-long-enough-to-skip-padding")},
	}
	if diff := cmp.Diff(want, tree.IPv4); diff != "" {
		t.Fatalf("parsed IPv4Tree mismatch (-want +got):\n%s", diff)
	}
}

func TestNetstack_Tree_NonDhcpUdpBecomesOther(t *testing.T) {
	t.Parallel()
	mac, _ := MacAddressFromBytes([]byte{0x02, 0, 0, 0, 0, 1})
	// Payload is long enough that the frame already meets
	// MinEthernetFrameLen without Ethernet padding, so Other can be
	// compared byte-for-byte without also matching trailing pad zeros.
	payload := []byte("mdns-query-payload--")
	udp := &UDPPacket{SrcPort: 5353, DstPort: 5353, Payload: RawPayload(payload)}
	ip := &IPv4Packet{Src: IpV4AddressFrom4(10, 0, 0, 1), Dst: IpV4AddressFrom4(10, 0, 0, 2), Protocol: IPProtocolUDP, Payload: udp}
	data := buildFrame(t, BroadcastMac, mac, EtherTypeIPv4, ip)

	tree, err := ParseEthernetTree(data)
	require.NoError(t, err)
	require.NotNil(t, tree.IPv4.UDP)
	require.Nil(t, tree.IPv4.UDP.DHCP)
	require.Equal(t, payload, tree.IPv4.UDP.Other)
}

func TestNetstack_Tree_TcpIpv4PayloadBecomesIPv4Other(t *testing.T) {
	t.Parallel()
	mac, _ := MacAddressFromBytes([]byte{0x02, 0, 0, 0, 0, 1})
	seg := &TCPSegment{SrcPort: 1234, DstPort: 80, Seq: 1, Ack: 0, Flags: FlagSYN, Window: 1000}
	ip := &IPv4Packet{Src: IpV4AddressFrom4(10, 0, 0, 1), Dst: IpV4AddressFrom4(10, 0, 0, 2), Protocol: IPProtocolTCP, Payload: seg}
	data := buildFrame(t, BroadcastMac, mac, EtherTypeIPv4, ip)

	tree, err := ParseEthernetTree(data)
	require.NoError(t, err)
	require.Nil(t, tree.IPv4.UDP)
	require.Nil(t, tree.IPv4.ICMP)
	require.NotEmpty(t, tree.IPv4.Other)
}

func TestNetstack_Tree_UnknownEtherTypeBecomesOther(t *testing.T) {
	t.Parallel()
	mac, _ := MacAddressFromBytes([]byte{0x02, 0, 0, 0, 0, 1})
	data := buildFrame(t, BroadcastMac, mac, EtherType(0x88b5), RawPayload([]byte("opaque-and-padded-to-the-minimum-frame-length")))

	tree, err := ParseEthernetTree(data)
	require.NoError(t, err)
	require.Nil(t, tree.IPv4)
	require.Nil(t, tree.ARP)
	require.NotEmpty(t, tree.Other)
}

func FuzzNetstack_Tree_ParseEthernetTree_NoPanic(f *testing.F) {
	f.Add(make([]byte, MinEthernetFrameLen))
	f.Fuzz(func(t *testing.T, b []byte) {
		_, _ = ParseEthernetTree(b)
	})
}
