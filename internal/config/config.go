// Package config loads the gateway's runtime configuration from flags
// and environment variables, in the same layered style the rest of
// the original switchboard's services use.
package config

import (
	"flag"
	"net"
	"os"
	"strconv"
	"time"
)

// Config holds the MGCP gateway configuration.
type Config struct {
	ListenAddr    string // UDP bind address for the MGCP control channel
	ListenPort    int
	Domain        string // domain component of this gateway's endpoint ids
	AdvertiseAddr string // address advertised in SDP answers

	RTPPortMin int
	RTPPortMax int

	AudioBasePath string

	RecentBufferSize int           // transaction.RecentBuffer capacity (spec §4.3)
	PendingTimeout   time.Duration // T_transaction: in-flight transactions fail with 406 after this

	LogLevel string
}

// Load loads configuration from command line flags and environment
// variables, with environment variables taking precedence.
func Load() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.ListenAddr, "bind", "0.0.0.0", "UDP bind address for MGCP requests")
	flag.IntVar(&cfg.ListenPort, "port", 2427, "UDP port for MGCP requests")
	flag.StringVar(&cfg.Domain, "domain", "mgcpgw.local", "domain component of this gateway's endpoint ids")
	flag.StringVar(&cfg.AdvertiseAddr, "advertise", "", "address to advertise in SDP (auto-detected if not set)")
	flag.IntVar(&cfg.RTPPortMin, "rtp-port-min", 10000, "minimum RTP port")
	flag.IntVar(&cfg.RTPPortMax, "rtp-port-max", 20000, "maximum RTP port")
	flag.StringVar(&cfg.AudioBasePath, "audio-path", "./audio", "audio files base path")
	flag.IntVar(&cfg.RecentBufferSize, "recent-buffer", 256, "retransmission suppression buffer capacity")
	flag.DurationVar(&cfg.PendingTimeout, "pending-timeout", 30*time.Second, "transaction timeout before an in-flight request fails with 406")
	flag.StringVar(&cfg.LogLevel, "loglevel", "info", "log level")

	flag.Parse()

	if v := os.Getenv("MGCP_BIND"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("MGCP_PORT"); v != "" {
		cfg.ListenPort, _ = strconv.Atoi(v)
	}
	if v := os.Getenv("MGCP_DOMAIN"); v != "" {
		cfg.Domain = v
	}
	if v := os.Getenv("MGCP_ADVERTISE"); v != "" {
		cfg.AdvertiseAddr = v
	} else if cfg.AdvertiseAddr == "" {
		cfg.AdvertiseAddr = getPrimaryInterfaceIP()
	}
	if v := os.Getenv("MGCP_RTP_PORT_MIN"); v != "" {
		cfg.RTPPortMin, _ = strconv.Atoi(v)
	}
	if v := os.Getenv("MGCP_RTP_PORT_MAX"); v != "" {
		cfg.RTPPortMax, _ = strconv.Atoi(v)
	}
	if v := os.Getenv("MGCP_AUDIO_PATH"); v != "" {
		cfg.AudioBasePath = v
	}
	if v := os.Getenv("MGCP_RECENT_BUFFER_SIZE"); v != "" {
		cfg.RecentBufferSize, _ = strconv.Atoi(v)
	}
	if v := os.Getenv("MGCP_TRANSACTION_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.PendingTimeout = d
		}
	}
	if v := os.Getenv("MGCP_LOGLEVEL"); v != "" {
		cfg.LogLevel = v
	}

	return cfg
}

// getPrimaryInterfaceIP detects the primary non-loopback IPv4 address,
// used as the default SDP advertise address.
func getPrimaryInterfaceIP() string {
	interfaces, err := net.Interfaces()
	if err != nil {
		return "127.0.0.1"
	}

	for _, iface := range interfaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && ipnet.IP.To4() != nil {
				return ipnet.IP.String()
			}
		}
	}

	return "127.0.0.1"
}
