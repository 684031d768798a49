package netstack

// ArpOperation is the ARP opcode.
type ArpOperation uint16

const (
	ArpOperationRequest  ArpOperation = 1
	ArpOperationResponse ArpOperation = 2
)

func (op ArpOperation) String() string {
	switch op {
	case ArpOperationRequest:
		return "Request"
	case ArpOperationResponse:
		return "Response"
	default:
		return "Unknown"
	}
}

// ArpHeaderLen is the fixed serialized length of an ARP packet: the
// 8-byte preamble plus SHA(6) SPA(4) THA(6) TPA(4).
const ArpHeaderLen = 28

const (
	arpHardwareTypeEthernet = 1
	arpProtocolTypeIPv4     = 0x0800
	arpHardwareAddrLen      = 6
	arpProtocolAddrLen      = 4
)

// ArpPacket is an ARP request or response for IPv4-over-Ethernet.
// Hardware/protocol type and address-length fields are fixed constants
// and are not represented as struct fields.
type ArpPacket struct {
	Operation ArpOperation
	SrcMac    MacAddress
	DstMac    MacAddress
	SrcIP     IpV4Address
	DstIP     IpV4Address
}

func (a *ArpPacket) WireLen() int { return ArpHeaderLen }

func (a *ArpPacket) Serialize(b *Builder) error {
	if _, err := b.PushUint16(arpHardwareTypeEthernet); err != nil {
		return err
	}
	if _, err := b.PushUint16(arpProtocolTypeIPv4); err != nil {
		return err
	}
	if _, err := b.PushByte(arpHardwareAddrLen); err != nil {
		return err
	}
	if _, err := b.PushByte(arpProtocolAddrLen); err != nil {
		return err
	}
	if _, err := b.PushUint16(uint16(a.Operation)); err != nil {
		return err
	}
	if _, err := b.PushBytes(a.SrcMac.Bytes()); err != nil {
		return err
	}
	if _, err := b.PushBytes(a.SrcIP.Bytes()); err != nil {
		return err
	}
	if _, err := b.PushBytes(a.DstMac.Bytes()); err != nil {
		return err
	}
	if _, err := b.PushBytes(a.DstIP.Bytes()); err != nil {
		return err
	}
	return nil
}

// ParseArp parses a 28-byte ARP packet. Only operations 1 (request) and
// 2 (response) are accepted; anything else is malformed.
func ParseArp(data []byte) (*ArpPacket, error) {
	if len(data) < ArpHeaderLen {
		return nil, &TruncatedError{Len: len(data)}
	}
	opNum := uint16(data[6])<<8 | uint16(data[7])
	op := ArpOperation(opNum)
	if op != ArpOperationRequest && op != ArpOperationResponse {
		return nil, &MalformedError{Reason: "ARP operation must be 1 (request) or 2 (response)"}
	}
	srcMac, err := MacAddressFromBytes(data[8:14])
	if err != nil {
		return nil, err
	}
	srcIP, err := IpV4AddressFromBytes(data[14:18])
	if err != nil {
		return nil, err
	}
	dstMac, err := MacAddressFromBytes(data[18:24])
	if err != nil {
		return nil, err
	}
	dstIP, err := IpV4AddressFromBytes(data[24:28])
	if err != nil {
		return nil, err
	}
	return &ArpPacket{
		Operation: op,
		SrcMac:    srcMac,
		DstMac:    dstMac,
		SrcIP:     srcIP,
		DstIP:     dstIP,
	}, nil
}

// NewArpRequest builds an ARP request for srcIP (owned by localMac)
// asking who has dstIP. The request's THA is left all-zero, since the
// sender doesn't know the target's MAC yet. The enclosing Ethernet
// frame's destination is still broadcast; that's set by the caller when
// wrapping this in an EthernetFrame.
func NewArpRequest(localMac MacAddress, srcIP, dstIP IpV4Address) *ArpPacket {
	return &ArpPacket{
		Operation: ArpOperationRequest,
		SrcMac:    localMac,
		DstMac:    MacAddress{},
		SrcIP:     srcIP,
		DstIP:     dstIP,
	}
}

// ResponsePacket builds the ARP response to this request, as seen from
// localMac: operation becomes Response, source fields become localMac
// and the original destination IP, and destination fields become the
// original requester's MAC and IP. It is a usage error to call this on
// a packet whose Operation is not Request.
func (a *ArpPacket) ResponsePacket(localMac MacAddress) (*ArpPacket, error) {
	if a.Operation != ArpOperationRequest {
		return nil, &MalformedError{Reason: "ResponsePacket called on a non-request ARP packet"}
	}
	return &ArpPacket{
		Operation: ArpOperationResponse,
		SrcMac:    localMac,
		DstMac:    a.SrcMac,
		SrcIP:     a.DstIP,
		DstIP:     a.SrcIP,
	}, nil
}
