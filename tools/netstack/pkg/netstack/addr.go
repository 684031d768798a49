package netstack

import "fmt"

// MacAddress is a 6-byte Ethernet hardware address.
type MacAddress [6]byte

// BroadcastMac is the all-ones Ethernet broadcast address.
var BroadcastMac = MacAddress{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// MacAddressFromBytes builds a MacAddress from a 6-byte slice.
func MacAddressFromBytes(b []byte) (MacAddress, error) {
	var m MacAddress
	if len(b) < 6 {
		return m, &TruncatedError{Len: len(b)}
	}
	copy(m[:], b[:6])
	return m, nil
}

// Bytes returns the address as a byte slice.
func (m MacAddress) Bytes() []byte { return m[:] }

// String formats the address as lowercase colon-separated hex.
func (m MacAddress) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// IsBroadcast reports whether m is the all-ones broadcast address.
func (m MacAddress) IsBroadcast() bool { return m == BroadcastMac }

// IpV4Address is a 4-byte IPv4 address.
type IpV4Address [4]byte

// IpV4AddressFromBytes builds an IpV4Address from a 4-byte slice.
func IpV4AddressFromBytes(b []byte) (IpV4Address, error) {
	var a IpV4Address
	if len(b) < 4 {
		return a, &TruncatedError{Len: len(b)}
	}
	copy(a[:], b[:4])
	return a, nil
}

// IpV4AddressFrom4 builds an IpV4Address from four octets.
func IpV4AddressFrom4(a, b, c, d byte) IpV4Address {
	return IpV4Address{a, b, c, d}
}

// Bytes returns the address as a byte slice.
func (a IpV4Address) Bytes() []byte { return a[:] }

// String formats the address in dotted-quad notation.
func (a IpV4Address) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", a[0], a[1], a[2], a[3])
}

// EtherType identifies the payload carried by an Ethernet frame.
type EtherType uint16

const (
	EtherTypeIPv4 EtherType = 0x0800
	EtherTypeARP  EtherType = 0x0806
)

// Number returns the wire value of the ether type.
func (t EtherType) Number() uint16 { return uint16(t) }

func (t EtherType) String() string {
	switch t {
	case EtherTypeIPv4:
		return "IPv4"
	case EtherTypeARP:
		return "ARP"
	default:
		return fmt.Sprintf("0x%04x", uint16(t))
	}
}

// IPProtocol identifies the payload carried by an IPv4 packet.
type IPProtocol uint8

const (
	IPProtocolICMP IPProtocol = 1
	IPProtocolTCP  IPProtocol = 6
	IPProtocolUDP  IPProtocol = 17
)

// Number returns the wire value of the protocol.
func (p IPProtocol) Number() uint8 { return uint8(p) }

func (p IPProtocol) String() string {
	switch p {
	case IPProtocolICMP:
		return "ICMP"
	case IPProtocolTCP:
		return "TCP"
	case IPProtocolUDP:
		return "UDP"
	default:
		return fmt.Sprintf("0x%02x", uint8(p))
	}
}
