package netstack

// This file is the typed-tree parser: starting from a
// raw Ethernet frame, it walks down into the payload as far as the
// header tags (ether type / IP protocol / UDP port pair) say it can,
// and returns a tree of tagged leaves that all still alias the caller's
// original buffer.
//
// A structural failure (Truncated, Malformed) at any layer means the
// input itself is bad and is propagated to the caller. A layer that
// parses fine but describes something this library doesn't model
// (Unimplemented — an unknown ether type, a non-DHCP UDP payload that
// still parses as UDP, a DHCP Discover/Request on receive) is not an
// error for the tree as a whole: that layer's bytes are simply exposed
// unparsed as the tree's Other leaf.

// EthernetTree is the root of a parsed frame. Exactly one of IPv4, ARP,
// or Other is populated, matching the frame's EtherType.
type EthernetTree struct {
	Dst       MacAddress
	Src       MacAddress
	EtherType EtherType

	IPv4  *IPv4Tree
	ARP   *ArpPacket
	Other []byte
}

// IPv4Tree is an IPv4 packet parsed one layer further: exactly one of
// UDP, ICMP, or Other is populated, matching the packet's Protocol.
type IPv4Tree struct {
	Src      IpV4Address
	Dst      IpV4Address
	Protocol IPProtocol

	UDP   *UDPTree
	ICMP  *ICMPPacket
	Other []byte
}

// UDPTree is a UDP datagram parsed one layer further: DHCP is populated
// when the port pair is (67,68) or (68,67) and the payload decodes as a
// DHCP OFFER or ACK; otherwise Other holds the raw payload.
type UDPTree struct {
	SrcPort uint16
	DstPort uint16

	DHCP  *DHCPPacket
	Other []byte
}

// ParseEthernetTree parses a raw Ethernet frame (as delivered by a NIC,
// no preamble or FCS) into a typed tree.
func ParseEthernetTree(data []byte) (*EthernetTree, error) {
	frame, err := ParseEthernetFrame(data)
	if err != nil {
		return nil, err
	}

	tree := &EthernetTree{Dst: frame.Dst, Src: frame.Src, EtherType: frame.EtherType}

	switch frame.EtherType {
	case EtherTypeIPv4:
		ipTree, err := parseIPv4Tree(frame.PayloadData)
		if err != nil {
			return nil, err
		}
		tree.IPv4 = ipTree
	case EtherTypeARP:
		arp, err := ParseArp(frame.PayloadData)
		if err != nil {
			return nil, err
		}
		tree.ARP = arp
	default:
		tree.Other = frame.PayloadData
	}
	return tree, nil
}

func parseIPv4Tree(data []byte) (*IPv4Tree, error) {
	ip, err := ParseIPv4(data)
	if err != nil {
		return nil, err
	}
	tree := &IPv4Tree{Src: ip.Src, Dst: ip.Dst, Protocol: ip.Protocol}

	switch ip.Protocol {
	case IPProtocolUDP:
		udpTree, err := parseUDPTree(ip.PayloadData)
		if err != nil {
			return nil, err
		}
		tree.UDP = udpTree
	case IPProtocolICMP:
		icmp, err := ParseICMP(ip.PayloadData)
		if err != nil {
			if !isUnimplemented(err) {
				return nil, err
			}
			tree.Other = ip.PayloadData
			return tree, nil
		}
		tree.ICMP = icmp
	default:
		tree.Other = ip.PayloadData
	}
	return tree, nil
}

func parseUDPTree(data []byte) (*UDPTree, error) {
	udp, err := ParseUDP(data)
	if err != nil {
		return nil, err
	}
	tree := &UDPTree{SrcPort: udp.SrcPort, DstPort: udp.DstPort}

	if !isDhcpPortPair(udp.SrcPort, udp.DstPort) {
		tree.Other = udp.PayloadData
		return tree, nil
	}

	dhcp, err := ParseDHCP(udp.PayloadData)
	if err != nil {
		if !isUnimplemented(err) {
			return nil, err
		}
		tree.Other = udp.PayloadData
		return tree, nil
	}
	tree.DHCP = dhcp
	return tree, nil
}

func isUnimplemented(err error) bool {
	_, ok := err.(*UnimplementedError)
	return ok
}
