//go:build linux

package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/malbeclabs/doublezero/tools/netstack/pkg/netstack"
)

// Lease is the result of a completed DISCOVER/OFFER/REQUEST/ACK exchange.
type Lease struct {
	OfferedIP netstack.IpV4Address
	ServerIP  netstack.IpV4Address
}

// dhcpStepTimeout bounds how long AcquireLease waits for a single
// OFFER or ACK before the surrounding backoff.Retry tries again.
const dhcpStepTimeout = 2 * time.Second

// AcquireLease runs a DHCPDISCOVER/DHCPREQUEST exchange over the
// gateway's socket, broadcast to the network, retrying the whole
// exchange under exponential backoff until a lease is obtained or ctx
// is done. xid identifies this client's transaction across retries.
func (g *Gateway) AcquireLease(ctx context.Context, xid uint32, opts ...backoff.ExponentialBackOffOpts) (*Lease, error) {
	opts = append([]backoff.ExponentialBackOffOpts{
		backoff.WithInitialInterval(250 * time.Millisecond),
		backoff.WithMultiplier(2.0),
		backoff.WithMaxInterval(10 * time.Second),
		backoff.WithMaxElapsedTime(1 * time.Minute),
		backoff.WithRandomizationFactor(0.1),
	}, opts...)

	b := backoff.NewExponentialBackOff(opts...)
	bo := backoff.WithContext(b, ctx)

	var lease *Lease
	op := func() error {
		l, err := g.runDhcpExchange(ctx, xid)
		if err != nil {
			return err
		}
		lease = l
		return nil
	}
	if err := backoff.Retry(op, bo); err != nil {
		return nil, err
	}
	return lease, nil
}

func (g *Gateway) runDhcpExchange(ctx context.Context, xid uint32) (*Lease, error) {
	discover := netstack.NewDiscoverMsg(g.cfg.LocalMAC, xid)
	if err := g.sendDhcp(discover); err != nil {
		return nil, fmt.Errorf("send discover: %w", err)
	}

	offer, err := g.waitForDhcp(ctx, xid, netstack.DHCPKindOffer)
	if err != nil {
		return nil, fmt.Errorf("wait for offer: %w", err)
	}

	request := netstack.NewRequestMsg(g.cfg.LocalMAC, xid, offer.OfferedIP, offer.ServerIP)
	if err := g.sendDhcp(request); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	ack, err := g.waitForDhcp(ctx, xid, netstack.DHCPKindAck)
	if err != nil {
		return nil, fmt.Errorf("wait for ack: %w", err)
	}

	return &Lease{OfferedIP: ack.OfferedIP, ServerIP: offer.ServerIP}, nil
}

func (g *Gateway) sendDhcp(msg *netstack.DHCPPacket) error {
	udp := &netstack.UDPPacket{SrcPort: netstack.DhcpClientPort, DstPort: netstack.DhcpServerPort, Payload: msg}
	ip := &netstack.IPv4Packet{
		Src:      netstack.IpV4AddressFrom4(0, 0, 0, 0),
		Dst:      netstack.IpV4AddressFrom4(255, 255, 255, 255),
		Protocol: netstack.IPProtocolUDP,
		Payload:  udp,
	}
	return g.sendEthernet(netstack.BroadcastMac, netstack.EtherTypeIPv4, ip)
}

// waitForDhcp reads frames until one carries a DHCP message of the
// given kind with a matching transaction id, or dhcpStepTimeout elapses.
func (g *Gateway) waitForDhcp(ctx context.Context, xid uint32, kind netstack.DHCPMessageKind) (*netstack.DHCPPacket, error) {
	deadline := time.Now().Add(dhcpStepTimeout)
	buf := make([]byte, 65535)

	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !g.setRecvTimeout(time.Until(deadline)) {
			break
		}
		n, err := g.recv(buf)
		if err != nil {
			continue
		}
		tree, err := netstack.ParseEthernetTree(buf[:n])
		if err != nil || tree.IPv4 == nil || tree.IPv4.UDP == nil || tree.IPv4.UDP.DHCP == nil {
			continue
		}
		msg := tree.IPv4.UDP.DHCP
		if msg.Kind == kind && msg.TransactionID == xid {
			return msg, nil
		}
	}
	return nil, fmt.Errorf("timed out waiting for DHCP message kind %v", kind)
}
