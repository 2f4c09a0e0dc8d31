package main

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/sebas/mgcpgw/internal/banner"
	"github.com/sebas/mgcpgw/internal/config"
	"github.com/sebas/mgcpgw/internal/logger"
	"github.com/sebas/mgcpgw/internal/mgcp/bus"
	"github.com/sebas/mgcpgw/internal/mgcp/command"
	"github.com/sebas/mgcpgw/internal/mgcp/commands"
	"github.com/sebas/mgcpgw/internal/mgcp/endpoint"
	"github.com/sebas/mgcpgw/internal/mgcp/mediaengine"
	"github.com/sebas/mgcpgw/internal/mgcp/mediator"
	"github.com/sebas/mgcpgw/internal/mgcp/message"
	"github.com/sebas/mgcpgw/internal/mgcp/playcollect"
	"github.com/sebas/mgcpgw/internal/mgcp/portpool"
	"github.com/sebas/mgcpgw/internal/mgcp/wire"
)

func main() {
	cfg := config.Load()

	banner.Print("MGCP GATEWAY", []banner.ConfigLine{
		{Label: "Listen", Value: fmt.Sprintf("%s:%d", cfg.ListenAddr, cfg.ListenPort)},
		{Label: "Domain", Value: cfg.Domain},
		{Label: "Advertise", Value: cfg.AdvertiseAddr},
		{Label: "RTP Range", Value: fmt.Sprintf("%d-%d", cfg.RTPPortMin, cfg.RTPPortMax)},
		{Label: "Audio Path", Value: cfg.AudioBasePath},
		{Label: "Recent Buffer", Value: fmt.Sprintf("%d", cfg.RecentBufferSize)},
		{Label: "Transaction Timeout", Value: cfg.PendingTimeout.String()},
		{Label: "Log Level", Value: cfg.LogLevel},
	})

	logger.InitLogger(os.Stdout)
	logger.SetLevel(cfg.LogLevel)

	eps := endpoint.NewManager(cfg.Domain)
	ports := portpool.New(cfg.RTPPortMin, cfg.RTPPortMax)
	provider := command.NewProvider(nil)

	commands.Register(provider, commands.Deps{
		Endpoints:     eps,
		Ports:         ports,
		Media:         mediaengine.NewFactory(cfg.AudioBasePath),
		Clock:         playcollect.RealClock{},
		AdvertiseAddr: cfg.AdvertiseAddr,
	})

	b := bus.New()
	med := mediator.New(eps, provider, b, cfg.RecentBufferSize, cfg.PendingTimeout)

	// Every outbound message the mediator or a signal generates
	// (responses and the NTFY requests completed signals produce) goes
	// out over the same UDP socket it arrived on.
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP(cfg.ListenAddr), Port: cfg.ListenPort})
	if err != nil {
		slog.Error("[mgcpgw] failed to bind", "address", cfg.ListenAddr, "port", cfg.ListenPort, "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	var lastPeer atomic.Pointer[net.UDPAddr]

	// Signals notify through their owning endpoint's bus, not the
	// mediator's; subscribe the transport onto every endpoint (present
	// and future, spec §6 "$" allocation) to turn completed signals
	// into outbound NTFY datagrams.
	eps.Observe(func(msg message.Message, dir message.Direction) error {
		if dir != message.Outgoing || !msg.IsRequest() {
			return nil
		}
		peer := lastPeer.Load()
		if peer == nil {
			return nil
		}
		_, err := conn.WriteToUDP(wire.SerializeRequest(msg.Request), peer)
		return err
	})

	slog.Info("[mgcpgw] listening", "address", conn.LocalAddr())

	go serve(conn, med, &lastPeer)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("[mgcpgw] shutting down", "signal", sig)
}

func serve(conn *net.UDPConn, med *mediator.Mediator, lastPeer *atomic.Pointer[net.UDPAddr]) {
	buf := make([]byte, 4096)
	for {
		n, peer, err := conn.ReadFromUDP(buf)
		if err != nil {
			slog.Error("[mgcpgw] read error", "error", err)
			return
		}
		lastPeer.Store(peer)

		req, err := wire.Parse(buf[:n])
		if err != nil {
			slog.Warn("[mgcpgw] dropping malformed request", "peer", peer, "error", err)
			continue
		}

		go func(req *message.Request, peer *net.UDPAddr) {
			resp := med.Handle(req)
			if resp == nil {
				return // duplicate of an in-flight transaction, dropped (spec §4.3)
			}
			if _, err := conn.WriteToUDP(wire.Serialize(resp), peer); err != nil {
				slog.Warn("[mgcpgw] failed to write response", "peer", peer, "error", err)
			}
		}(req, peer)
	}
}
