//go:build linux

// Package gateway bridges a raw AF_PACKET socket to the netstack codec
// library: it answers ARP and ICMP echo directly, and drives one
// netstack.TcpConnection per accepted four-tuple so a caller-supplied
// application callback can serve TCP traffic without ever touching a
// kernel TCP socket.
package gateway

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/malbeclabs/doublezero/tools/netstack/pkg/netstack"
)

const defaultPollTimeout = 1 * time.Second

// Config configures a Gateway. Interface, LocalMAC, and LocalIP are
// required: the gateway only answers traffic addressed to LocalIP and
// only ever claims LocalMAC as its own hardware address.
type Config struct {
	Logger    *slog.Logger
	Interface string
	LocalMAC  netstack.MacAddress
	LocalIP   netstack.IpV4Address
	Metrics   *Metrics // optional

	// PollTimeout bounds each poll() iteration so Run notices ctx
	// cancellation promptly; zero defaults to defaultPollTimeout.
	PollTimeout time.Duration
}

func (cfg *Config) Validate() error {
	if cfg.Interface == "" {
		return fmt.Errorf("interface is required")
	}
	if cfg.LocalMAC.IsBroadcast() {
		return fmt.Errorf("local MAC must not be the broadcast address")
	}
	if cfg.PollTimeout == 0 {
		cfg.PollTimeout = defaultPollTimeout
	}
	if cfg.PollTimeout <= 0 {
		return fmt.Errorf("poll timeout must be greater than 0")
	}
	return nil
}

// tcpTuple is the map key for in-progress TCP connections; it holds the
// remote address/port and local port of a netstack.TcpFourTuple (the
// local IP is always Config.LocalIP), so it's built straight from an
// inbound segment without reshuffling fields.
type tcpTuple struct {
	RemoteIP   netstack.IpV4Address
	RemotePort uint16
	LocalPort  uint16
}

// Gateway owns one AF_PACKET socket bound to Interface and dispatches
// every frame it reads to ARP/ICMP/TCP handling.
type Gateway struct {
	log   *slog.Logger
	cfg   Config
	iface *net.Interface
	fd    int

	mu    sync.Mutex
	conns map[tcpTuple]*netstack.TcpConnection
}

// TcpAppHandler is consulted for every accepted TCP connection's data;
// see netstack.TcpAppCallback for the reply contract.
type TcpAppHandler = netstack.TcpAppCallback

// New opens and binds a raw AF_PACKET socket on cfg.Interface.
func New(cfg Config) (*Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ifi, err := net.InterfaceByName(cfg.Interface)
	if err != nil {
		return nil, fmt.Errorf("lookup interface %q: %w", cfg.Interface, err)
	}

	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(htons(unix.ETH_P_ALL)))
	if err != nil {
		return nil, fmt.Errorf("socket: %w", err)
	}
	ok := false
	defer func() {
		if !ok {
			_ = unix.Close(fd)
		}
	}()

	addr := &unix.SockaddrLinklayer{
		Protocol: htons(unix.ETH_P_ALL),
		Ifindex:  ifi.Index,
	}
	if err := unix.Bind(fd, addr); err != nil {
		return nil, fmt.Errorf("bind %q: %w", cfg.Interface, err)
	}

	ok = true
	return &Gateway{
		log:   cfg.Logger,
		cfg:   cfg,
		iface: ifi,
		fd:    fd,
		conns: make(map[tcpTuple]*netstack.TcpConnection),
	}, nil
}

func htons(v uint16) uint16 {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return binary.LittleEndian.Uint16(b[:])
}

// Close releases the underlying socket.
func (g *Gateway) Close() error {
	return unix.Close(g.fd)
}

// Run reads frames until ctx is done, answering ARP/ICMP inline and
// routing TCP segments to appHandler through one netstack.TcpConnection
// per four-tuple.
func (g *Gateway) Run(ctx context.Context, appHandler TcpAppHandler) error {
	buf := make([]byte, 65535)
	pfd := []unix.PollFd{{Fd: int32(g.fd), Events: unix.POLLIN}}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		n, err := unix.Poll(pfd, int(g.cfg.PollTimeout/time.Millisecond))
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("poll: %w", err)
		}
		if n == 0 || pfd[0].Revents&unix.POLLIN == 0 {
			continue
		}

		nread, _, err := unix.Recvfrom(g.fd, buf, 0)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR {
				continue
			}
			if g.log != nil {
				g.log.Debug("gateway: recvfrom", "err", err)
			}
			continue
		}

		if err := g.handleFrame(buf[:nread], appHandler); err != nil && g.log != nil {
			g.log.Debug("gateway: dropped frame", "err", err)
		}
	}
}

func (g *Gateway) handleFrame(data []byte, appHandler TcpAppHandler) error {
	tree, err := netstack.ParseEthernetTree(data)
	if err != nil {
		return err
	}

	if tree.IPv4 != nil && tree.IPv4.Dst != g.cfg.LocalIP {
		return nil
	}

	switch {
	case tree.ARP != nil:
		return g.handleArp(tree.ARP)
	case tree.IPv4 != nil && tree.IPv4.ICMP != nil:
		return g.handleIcmp(tree.Src, tree.IPv4.Src, tree.IPv4.ICMP)
	case tree.IPv4 != nil && tree.IPv4.Protocol == netstack.IPProtocolTCP && tree.IPv4.Other != nil:
		return g.handleTcp(tree.Src, tree.IPv4.Src, tree.IPv4.Other, appHandler)
	}
	return nil
}

func (g *Gateway) handleArp(req *netstack.ArpPacket) error {
	if req.Operation != netstack.ArpOperationRequest || req.DstIP != g.cfg.LocalIP {
		return nil
	}
	resp, err := req.ResponsePacket(g.cfg.LocalMAC)
	if err != nil {
		return err
	}
	if g.cfg.Metrics != nil {
		g.cfg.Metrics.ArpRepliesSent.Inc()
	}
	return g.sendEthernet(req.SrcMac, netstack.EtherTypeARP, resp)
}

func (g *Gateway) handleIcmp(peerMac netstack.MacAddress, srcIP netstack.IpV4Address, req *netstack.ICMPPacket) error {
	if req.Kind != netstack.ICMPKindEchoRequest {
		return nil
	}
	reply, err := req.EchoReply()
	if err != nil {
		return err
	}
	ip := &netstack.IPv4Packet{Src: g.cfg.LocalIP, Dst: srcIP, Protocol: netstack.IPProtocolICMP, Payload: reply}
	if g.cfg.Metrics != nil {
		g.cfg.Metrics.IcmpEchoRepliesSent.Inc()
	}
	return g.sendEthernet(peerMac, netstack.EtherTypeIPv4, ip)
}

// handleTcp expects data to be the raw IPv4 payload for IPProtocolTCP;
// tree.go classifies any IPv4 payload other than UDP or an ICMP echo
// request as Other, so handleFrame passes the Other leaf here only when
// the protocol is TCP, and the segment is parsed directly.
func (g *Gateway) handleTcp(peerMac netstack.MacAddress, srcIP netstack.IpV4Address, data []byte, appHandler TcpAppHandler) error {
	seg, err := netstack.ParseTCP(data)
	if err != nil {
		return err
	}
	if seg.DstPort == 0 {
		return nil
	}

	key := tcpTuple{RemoteIP: srcIP, RemotePort: seg.SrcPort, LocalPort: seg.DstPort}

	g.mu.Lock()
	conn, ok := g.conns[key]
	if !ok {
		conn = netstack.NewTcpConnection(netstack.TcpFourTuple{
			SrcIP: srcIP, SrcPort: seg.SrcPort,
			DstIP: g.cfg.LocalIP, DstPort: seg.DstPort,
		}, initialSeqFor(key))
		g.conns[key] = conn
	}
	g.mu.Unlock()

	reply, err := conn.HandleSegment(seg, appHandler)
	if err != nil {
		if g.log != nil {
			g.log.Warn("gateway: tcp segment error", "err", err, "remote", srcIP.String(), "remote_port", seg.SrcPort)
		}
		return err
	}
	if conn.State == netstack.TcpStateClosed {
		g.mu.Lock()
		delete(g.conns, key)
		g.mu.Unlock()
	}
	if reply == nil {
		return nil
	}

	ip := &netstack.IPv4Packet{Src: g.cfg.LocalIP, Dst: srcIP, Protocol: netstack.IPProtocolTCP, Payload: reply}
	if g.cfg.Metrics != nil {
		g.cfg.Metrics.TcpSegmentsSent.Inc()
	}
	return g.sendEthernet(peerMac, netstack.EtherTypeIPv4, ip)
}

// initialSeqFor derives a starting sequence number for a new connection.
// Real stacks fold in a rotating secret (RFC 6528); this gateway is a
// demo bridge, not an Internet-facing host, so a tuple-derived hash
// without a secret is sufficient to avoid colliding across connections.
func initialSeqFor(key tcpTuple) uint32 {
	h := uint32(2166136261)
	for _, b := range key.RemoteIP.Bytes() {
		h = (h ^ uint32(b)) * 16777619
	}
	h = (h ^ uint32(key.RemotePort>>8)) * 16777619
	h = (h ^ uint32(key.RemotePort&0xff)) * 16777619
	h = (h ^ uint32(key.LocalPort>>8)) * 16777619
	h = (h ^ uint32(key.LocalPort&0xff)) * 16777619
	return h
}

// setRecvTimeout bounds the next Recvfrom to at most remain, capped at
// one second so callers can re-check ctx/deadlines between reads. It
// returns false if remain has already elapsed.
func (g *Gateway) setRecvTimeout(remain time.Duration) bool {
	if remain <= 0 {
		return false
	}
	if remain > time.Second {
		remain = time.Second
	}
	tv := unix.NsecToTimeval(remain.Nanoseconds())
	_ = unix.SetsockoptTimeval(g.fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv)
	return true
}

// recv reads one frame into buf, returning its length.
func (g *Gateway) recv(buf []byte) (int, error) {
	n, _, err := unix.Recvfrom(g.fd, buf, 0)
	return n, err
}

// sendEthernet wraps payload in an Ethernet frame addressed to dstMac —
// the MAC that sourced the frame being replied to, or the broadcast
// address for DHCP client messages, since this gateway keeps no ARP
// cache of its own.
func (g *Gateway) sendEthernet(dstMac netstack.MacAddress, etherType netstack.EtherType, payload netstack.Layer) error {
	frame := &netstack.EthernetFrame{Dst: dstMac, Src: g.cfg.LocalMAC, EtherType: etherType, Payload: payload}
	b := netstack.NewBuilder(frame.WireLen())
	if err := frame.Serialize(b); err != nil {
		return err
	}

	addr := &unix.SockaddrLinklayer{
		Ifindex: g.iface.Index,
		Halen:   6,
	}
	copy(addr.Addr[:6], dstMac.Bytes())
	return unix.Sendto(g.fd, b.Bytes(), 0, addr)
}
