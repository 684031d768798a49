package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"log/slog"

	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/malbeclabs/doublezero/tools/netstack/pkg/gateway"
	"github.com/malbeclabs/doublezero/tools/netstack/pkg/netstack"
	"github.com/malbeclabs/doublezero/tools/uping/pkg/uping"
)

func main() {
	var (
		iface      string
		macStr     string
		ipStr      string
		metricAddr string
		verbose    bool
	)

	pflag.StringVarP(&iface, "iface", "i", "", "interface to bind for RX/TX (required)")
	pflag.StringVarP(&macStr, "mac", "m", "", "local MAC address this gateway answers as (required)")
	pflag.StringVarP(&ipStr, "ip", "p", "", "local IPv4 address this gateway answers for (required)")
	pflag.StringVar(&metricAddr, "metrics-addr", "", "address to serve /metrics on (empty disables metrics)")
	pflag.BoolVarP(&verbose, "verbose", "v", false, "enable verbose logs")
	pflag.Parse()

	fail := func(msg string, code int) {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
		pflag.Usage()
		os.Exit(code)
	}
	if iface == "" {
		fail("missing --iface", 2)
	}
	if macStr == "" {
		fail("missing --mac", 2)
	}
	if ipStr == "" {
		fail("missing --ip", 2)
	}

	mac := mustMac(macStr)
	ip := mustIPv4(ipStr)

	if err := uping.RequirePrivileges(true); err != nil {
		fmt.Fprintf(os.Stderr, "privileges check failed: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(verbose)

	var metrics *gateway.Metrics
	if metricAddr != "" {
		reg := prometheus.NewRegistry()
		metrics = gateway.NewMetrics(reg)
		go serveMetrics(log, metricAddr, reg)
	}

	gw, err := gateway.New(gateway.Config{
		Logger:    log,
		Interface: iface,
		LocalMAC:  mac,
		LocalIP:   ip,
		Metrics:   metrics,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create gateway: %v\n", err)
		os.Exit(1)
	}
	defer gw.Close()

	log.Info("netstack-gateway started", "iface", iface, "mac", mac.String(), "ip", ip.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := gw.Run(ctx, echoCallback); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "gateway run error: %v\n", err)
		os.Exit(1)
	}
}

// echoCallback is the demo TCP application: it echoes whatever payload
// it receives back to the peer.
func echoCallback(_ *netstack.TcpConnection, payload []byte) ([]byte, bool) {
	if len(payload) == 0 {
		return nil, false
	}
	echoed := make([]byte, len(payload))
	copy(echoed, payload)
	return echoed, true
}

func serveMetrics(log *slog.Logger, addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("metrics server exited", "err", err)
	}
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level}))
}

func mustMac(s string) netstack.MacAddress {
	hw, err := net.ParseMAC(s)
	if err != nil || len(hw) != 6 {
		fmt.Fprintf(os.Stderr, "bad MAC address: %s\n", s)
		os.Exit(2)
	}
	mac, err := netstack.MacAddressFromBytes(hw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad MAC address: %s\n", s)
		os.Exit(2)
	}
	return mac
}

func mustIPv4(s string) netstack.IpV4Address {
	ip := net.ParseIP(s).To4()
	if ip == nil {
		fmt.Fprintf(os.Stderr, "bad IPv4 address: %s\n", s)
		os.Exit(2)
	}
	addr, err := netstack.IpV4AddressFromBytes(ip)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad IPv4 address: %s\n", s)
		os.Exit(2)
	}
	return addr
}
