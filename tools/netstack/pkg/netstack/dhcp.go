package netstack

import "fmt"

// Fixed BOOTP field offsets/lengths (RFC 951 + RFC 2131 options).
const (
	dhcpFixedLen    = 236 // op..file, before the magic cookie
	dhcpCookieLen   = 4
	DHCPHeaderLen   = dhcpFixedLen + dhcpCookieLen // 240: where options begin
	dhcpChaddrStart = 28
	dhcpChaddrLen   = 16 // MAC(6) + 10 zero pad bytes
)

// dhcpMagicCookie marks the start of the options area.
var dhcpMagicCookie = [4]byte{0x63, 0x82, 0x53, 0x63}

const (
	bootRequest = 1
	bootReply   = 2
)

const (
	optEnd             = 0xff
	optPad             = 0x00
	optMessageType     = 53
	optRequestedIP     = 50
	optServerID        = 54
	optParamRequest    = 55
	dhcpMsgTypeDiscover = 1
	dhcpMsgTypeOffer    = 2
	dhcpMsgTypeRequest  = 3
	dhcpMsgTypeAck      = 5
)

// DHCPMessageKind is the tagged DHCP message type this packet carries.
// Only Discover and Request are ever serialized; only Offer and Ack are
// ever parsed (matching the client-encode / server-decode split this
// library implements).
type DHCPMessageKind uint8

const (
	DHCPKindDiscover DHCPMessageKind = iota
	DHCPKindRequest
	DHCPKindOffer
	DHCPKindAck
)

// DHCPPacket is a DHCPv4 message over the fixed BOOTP layout. Which
// fields are meaningful depends on Kind: RequestedIP/ServerIP for
// Request, OfferedIP/ServerIP for Offer, OfferedIP for Ack.
type DHCPPacket struct {
	ClientMac     MacAddress
	TransactionID uint32
	Kind          DHCPMessageKind

	RequestedIP IpV4Address // Request
	OfferedIP   IpV4Address // Offer, Ack (yiaddr)
	ServerIP    IpV4Address // Request, Offer (siaddr)
}

// NewDiscoverMsg builds a DHCPDISCOVER from mac with the given
// transaction id.
func NewDiscoverMsg(mac MacAddress, xid uint32) *DHCPPacket {
	return &DHCPPacket{ClientMac: mac, TransactionID: xid, Kind: DHCPKindDiscover}
}

// NewRequestMsg builds a DHCPREQUEST from mac asking for requestedIP via
// serverIP, with the given transaction id.
func NewRequestMsg(mac MacAddress, xid uint32, requestedIP, serverIP IpV4Address) *DHCPPacket {
	return &DHCPPacket{
		ClientMac:     mac,
		TransactionID: xid,
		Kind:          DHCPKindRequest,
		RequestedIP:   requestedIP,
		ServerIP:      serverIP,
	}
}

func (p *DHCPPacket) options() ([]byte, error) {
	switch p.Kind {
	case DHCPKindDiscover:
		return []byte{
			optMessageType, 1, dhcpMsgTypeDiscover,
			optParamRequest, 4, 1, 3, 15, 6,
			optEnd,
		}, nil
	case DHCPKindRequest:
		opts := make([]byte, 0, 3+6+6+1)
		opts = append(opts, optMessageType, 1, dhcpMsgTypeRequest)
		opts = append(opts, optRequestedIP, 4)
		opts = append(opts, p.RequestedIP.Bytes()...)
		opts = append(opts, optServerID, 4)
		opts = append(opts, p.ServerIP.Bytes()...)
		opts = append(opts, optEnd)
		return opts, nil
	default:
		return nil, &UnimplementedError{Reason: "DHCP Offer/Ack serialization is not supported"}
	}
}

func (p *DHCPPacket) WireLen() int {
	opts, err := p.options()
	if err != nil {
		return DHCPHeaderLen
	}
	return DHCPHeaderLen + len(opts)
}

func (p *DHCPPacket) Serialize(b *Builder) error {
	opts, err := p.options()
	if err != nil {
		return err
	}

	if _, err := b.PushByte(bootRequest); err != nil {
		return err
	}
	if _, err := b.PushByte(1); err != nil { // htype = ethernet
		return err
	}
	if _, err := b.PushByte(6); err != nil { // hlen
		return err
	}
	if _, err := b.PushByte(0); err != nil { // hops
		return err
	}
	if _, err := b.PushUint32(p.TransactionID); err != nil {
		return err
	}
	if _, err := b.PushUint16(0); err != nil { // secs
		return err
	}
	if _, err := b.PushUint16(0x8000); err != nil { // flags: broadcast reply
		return err
	}
	if _, err := b.PushUint32(0); err != nil { // ciaddr
		return err
	}
	if _, err := b.PushUint32(0); err != nil { // yiaddr
		return err
	}
	if _, err := b.PushUint32(0); err != nil { // siaddr
		return err
	}
	if _, err := b.PushUint32(0); err != nil { // giaddr
		return err
	}
	if _, err := b.PushBytes(p.ClientMac.Bytes()); err != nil {
		return err
	}
	if _, err := b.PushZeros(dhcpChaddrLen - 6); err != nil {
		return err
	}
	if _, err := b.PushZeros(64); err != nil { // sname
		return err
	}
	if _, err := b.PushZeros(128); err != nil { // file
		return err
	}
	if _, err := b.PushBytes(dhcpMagicCookie[:]); err != nil {
		return err
	}
	_, err = b.PushBytes(opts)
	return err
}

// scanDhcpMessageType walks the TLV options area looking for option 53
// (message type). Unlike a naive scan, every option length is
// bounds-checked against the remaining slice before being trusted; a
// length that would run past the end of data is malformed rather than
// read out of bounds.
func scanDhcpMessageType(data []byte) (uint8, error) {
	if len(data) < DHCPHeaderLen {
		return 0, &UnimplementedError{Reason: "DHCP payload is too short to contain the magic cookie and options"}
	}
	cookie := data[dhcpFixedLen:DHCPHeaderLen]
	if cookie[0] != dhcpMagicCookie[0] || cookie[1] != dhcpMagicCookie[1] ||
		cookie[2] != dhcpMagicCookie[2] || cookie[3] != dhcpMagicCookie[3] {
		return 0, &UnimplementedError{Reason: "DHCP magic cookie missing"}
	}

	opts := data[DHCPHeaderLen:]
	i := 0
	for i < len(opts) {
		tag := opts[i]
		if tag == optEnd {
			break
		}
		if tag == optPad {
			i++
			continue
		}
		if i+1 >= len(opts) {
			return 0, &MalformedError{Reason: "DHCP option is missing its length byte"}
		}
		optLen := int(opts[i+1])
		valStart := i + 2
		valEnd := valStart + optLen
		if valEnd > len(opts) {
			return 0, &MalformedError{Reason: "DHCP option length overruns the options buffer"}
		}
		if tag == optMessageType && optLen == 1 {
			return opts[valStart], nil
		}
		i = valEnd
	}
	return 0, &UnimplementedError{Reason: "DHCP message type option (53) not found"}
}

// ParseDHCP decodes a DHCPOFFER or DHCPACK. Discover and Request are
// structurally valid DHCP but this library only encodes them, never
// decodes them, matching the client/server split in scope; both return
// UnimplementedError here.
func ParseDHCP(data []byte) (*DHCPPacket, error) {
	// A payload shorter than the fixed BOOTP layout can't carry a magic
	// cookie or options; scanDhcpMessageType reports that as
	// Unimplemented, the same as a payload that has the right length but
	// is missing the cookie or option 53 — the UDP layer above this one
	// still parses either way.
	msgType, err := scanDhcpMessageType(data)
	if err != nil {
		return nil, err
	}

	clientMac, err := MacAddressFromBytes(data[dhcpChaddrStart : dhcpChaddrStart+6])
	if err != nil {
		return nil, err
	}
	xid := uint32(data[4])<<24 | uint32(data[5])<<16 | uint32(data[6])<<8 | uint32(data[7])

	switch msgType {
	case dhcpMsgTypeDiscover:
		return nil, &UnimplementedError{Reason: "DHCP Discover is only encoded by this library, never decoded"}
	case dhcpMsgTypeOffer:
		yiaddr, err := IpV4AddressFromBytes(data[16:20])
		if err != nil {
			return nil, err
		}
		siaddr, err := IpV4AddressFromBytes(data[20:24])
		if err != nil {
			return nil, err
		}
		return &DHCPPacket{
			ClientMac:     clientMac,
			TransactionID: xid,
			Kind:          DHCPKindOffer,
			OfferedIP:     yiaddr,
			ServerIP:      siaddr,
		}, nil
	case dhcpMsgTypeRequest:
		return nil, &UnimplementedError{Reason: "DHCP Request is only encoded by this library, never decoded"}
	case dhcpMsgTypeAck:
		yiaddr, err := IpV4AddressFromBytes(data[16:20])
		if err != nil {
			return nil, err
		}
		return &DHCPPacket{
			ClientMac:     clientMac,
			TransactionID: xid,
			Kind:          DHCPKindAck,
			OfferedIP:     yiaddr,
		}, nil
	default:
		return nil, &UnimplementedError{Reason: fmt.Sprintf("unknown DHCP message type %d", msgType)}
	}
}
