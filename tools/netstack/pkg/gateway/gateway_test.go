//go:build linux

package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/malbeclabs/doublezero/tools/netstack/pkg/netstack"
)

func validMac(t *testing.T) netstack.MacAddress {
	t.Helper()
	mac, err := netstack.MacAddressFromBytes([]byte{0x02, 0x00, 0x00, 0x00, 0x00, 0x01})
	require.NoError(t, err)
	return mac
}

func TestGateway_Config_ValidateAcceptsMinimalConfig(t *testing.T) {
	t.Parallel()
	cfg := &Config{Interface: "eth0", LocalMAC: validMac(t), LocalIP: netstack.IpV4AddressFrom4(10, 0, 0, 1)}
	require.NoError(t, cfg.Validate())
}

func TestGateway_Config_ValidateRequiresInterface(t *testing.T) {
	t.Parallel()
	cfg := &Config{LocalMAC: validMac(t), LocalIP: netstack.IpV4AddressFrom4(10, 0, 0, 1)}
	require.Error(t, cfg.Validate())
}

func TestGateway_Config_ValidateRejectsBroadcastLocalMAC(t *testing.T) {
	t.Parallel()
	cfg := &Config{Interface: "eth0", LocalMAC: netstack.BroadcastMac, LocalIP: netstack.IpV4AddressFrom4(10, 0, 0, 1)}
	require.Error(t, cfg.Validate())
}

func TestGateway_Config_ValidateDefaultsZeroPollTimeout(t *testing.T) {
	t.Parallel()
	cfg := &Config{Interface: "eth0", LocalMAC: validMac(t), LocalIP: netstack.IpV4AddressFrom4(10, 0, 0, 1)}
	require.NoError(t, cfg.Validate())
	require.Equal(t, defaultPollTimeout, cfg.PollTimeout)
}

func TestGateway_Config_ValidateRejectsNegativePollTimeout(t *testing.T) {
	t.Parallel()
	cfg := &Config{Interface: "eth0", LocalMAC: validMac(t), LocalIP: netstack.IpV4AddressFrom4(10, 0, 0, 1), PollTimeout: -1 * time.Second}
	require.Error(t, cfg.Validate())
}

func TestGateway_Config_ValidateKeepsExplicitPollTimeout(t *testing.T) {
	t.Parallel()
	cfg := &Config{Interface: "eth0", LocalMAC: validMac(t), LocalIP: netstack.IpV4AddressFrom4(10, 0, 0, 1), PollTimeout: 5 * time.Second}
	require.NoError(t, cfg.Validate())
	require.Equal(t, 5*time.Second, cfg.PollTimeout)
}

func TestGateway_InitialSeqFor_IsDeterministic(t *testing.T) {
	t.Parallel()
	key := tcpTuple{RemoteIP: netstack.IpV4AddressFrom4(10, 0, 0, 5), RemotePort: 40000, LocalPort: 80}
	require.Equal(t, initialSeqFor(key), initialSeqFor(key))
}

func TestGateway_InitialSeqFor_DiffersAcrossTuples(t *testing.T) {
	t.Parallel()
	base := tcpTuple{RemoteIP: netstack.IpV4AddressFrom4(10, 0, 0, 5), RemotePort: 40000, LocalPort: 80}
	byIP := tcpTuple{RemoteIP: netstack.IpV4AddressFrom4(10, 0, 0, 6), RemotePort: 40000, LocalPort: 80}
	byRemotePort := tcpTuple{RemoteIP: netstack.IpV4AddressFrom4(10, 0, 0, 5), RemotePort: 40001, LocalPort: 80}
	byLocalPort := tcpTuple{RemoteIP: netstack.IpV4AddressFrom4(10, 0, 0, 5), RemotePort: 40000, LocalPort: 81}

	seqs := map[uint32]bool{initialSeqFor(base): true}
	for _, tuple := range []tcpTuple{byIP, byRemotePort, byLocalPort} {
		seq := initialSeqFor(tuple)
		require.False(t, seqs[seq], "distinct tuples collided on initial sequence %d", seq)
		seqs[seq] = true
	}
}

func TestGateway_InitialSeqFor_NeverZero(t *testing.T) {
	t.Parallel()
	key := tcpTuple{RemoteIP: netstack.IpV4AddressFrom4(0, 0, 0, 0), RemotePort: 0, LocalPort: 0}
	require.NotZero(t, initialSeqFor(key))
}
