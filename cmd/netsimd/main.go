// Command netsimd is the wireless network simulator daemon: it accepts
// packet streams from emulator instances over gRPC/vsock/raw TCP, routes
// frames between chips by radio kind and range, records pcap captures,
// and exposes scene state over gRPC and REST/WebSocket (spec.md §1-2).
//
// Grounded on the teacher's cmd/wmap entrypoint style: flags/env via
// internal/config, OpenTelemetry tracer + Prometheus metrics init before
// anything else starts, signal-driven graceful shutdown.
package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/netsim/internal/adapters/facade/bluetooth"
	"github.com/google/netsim/internal/adapters/facade/uwb"
	"github.com/google/netsim/internal/adapters/facade/wifi"
	"github.com/google/netsim/internal/adapters/frontend/grpcsvc"
	"github.com/google/netsim/internal/adapters/frontend/httpsvc"
	grpctransport "github.com/google/netsim/internal/adapters/transport/grpc"
	"github.com/google/netsim/internal/adapters/transport/hciport"
	"github.com/google/netsim/internal/adapters/transport/router"
	"github.com/google/netsim/internal/adapters/transport/vsock"
	"github.com/google/netsim/internal/config"
	"github.com/google/netsim/internal/core/domain"
	"github.com/google/netsim/internal/core/services/audit"
	"github.com/google/netsim/internal/core/services/pcap"
	"github.com/google/netsim/internal/core/services/scene"
	"github.com/google/netsim/internal/core/services/session"
	"github.com/google/netsim/internal/discovery"
	"github.com/google/netsim/internal/rpc/netsimrpc"
	"github.com/google/netsim/internal/telemetry"
	"google.golang.org/grpc"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("netsimd: %v", err)
	}
}

func run() error {
	cfg := config.Load()
	if cfg.LogToStderr {
		log.SetOutput(os.Stderr)
	}

	telemetry.InitMetrics()
	shutdownTracer, err := telemetry.InitTracer()
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer shutdownTracer(context.Background())

	// Start order per spec.md §4.10: scene, then pcap (clears stale files).
	sceneStore := scene.New()
	pcapDir, err := pcapDirFor(cfg)
	if err != nil {
		return err
	}
	pcapMgr, err := pcap.New(pcapDir)
	if err != nil {
		return fmt.Errorf("init pcap manager: %w", err)
	}

	auditLog, err := audit.New()
	if err != nil {
		return fmt.Errorf("init audit log: %w", err)
	}

	facades := &router.FacadeRouter{
		Bluetooth: bluetooth.New(sceneStore, pcapMgr),
		Wifi:      wifi.New(sceneStore, pcapMgr),
		Uwb:       uwb.New(sceneStore, pcapMgr),
	}
	sceneStore.OnChipRadioPatch(func(chipId uint32, kind domain.ChipKind, radio domain.Radio) {
		f, err := facades.For(kind)
		if err != nil {
			return
		}
		if err := f.Patch(context.Background(), chipId, radio); err != nil {
			log.Printf("netsimd: facade patch for chip %d: %v", chipId, err)
		}
	})

	rt := &session.Runtime{
		Scene:             sceneStore,
		InactivityTimeout: time.Duration(cfg.InactivityTimeoutSecs) * time.Second,
	}

	grpcLis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}
	actualGRPCPort := grpcLis.Addr().(*net.TCPAddr).Port

	grpcServer := grpc.NewServer()
	netsimrpc.RegisterPacketStreamerServer(grpcServer, grpctransport.New(sceneStore, facades))
	netsimrpc.RegisterFrontendServiceServer(grpcServer, &grpcsvc.Server{Scene: sceneStore, Pcap: pcapMgr, Audit: auditLog})

	rt.Add(func(ctx context.Context) error {
		go func() { <-ctx.Done(); grpcServer.GracefulStop() }()
		return grpcServer.Serve(grpcLis)
	})

	if cfg.HCIPort != 0 {
		hciSrv, err := hciport.New(sceneStore, facades, fmt.Sprintf(":%d", cfg.HCIPort))
		if err != nil {
			return fmt.Errorf("start hci_port: %w", err)
		}
		rt.Add(func(ctx context.Context) error {
			go func() { <-ctx.Done(); hciSrv.Close() }()
			return hciSrv.Serve()
		})
	}

	if vsockSrv, err := vsock.New(sceneStore, facades, uint32(cfg.GRPCPort)); err == nil {
		rt.Add(func(ctx context.Context) error {
			go func() { <-ctx.Done(); vsockSrv.Close() }()
			return vsockSrv.Serve()
		})
	} else {
		log.Printf("netsimd: vsock transport unavailable: %v", err)
	}

	if !cfg.NoWebUI {
		httpSrv := &httpsvc.Server{Addr: cfg.WebAddr, Scene: sceneStore, Notifier: sceneStore, Pcap: pcapMgr, Audit: auditLog}
		rt.Add(httpSrv.Run)
	}

	dir, err := discovery.Dir()
	if err == nil {
		if werr := discovery.Write(dir, discovery.File{GRPCPort: actualGRPCPort}); werr != nil {
			log.Printf("netsimd: write discovery file: %v", werr)
		}
		defer discovery.Remove(dir)
	} else {
		log.Printf("netsimd: discovery directory unavailable: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Printf("netsimd: listening grpc=:%d hci_port=:%d web=%s", actualGRPCPort, cfg.HCIPort, cfg.WebAddr)
	return rt.Run(ctx)
}

func pcapDirFor(cfg *config.Config) (string, error) {
	dir, err := discovery.Dir()
	if err != nil {
		return "", err
	}
	return dir + "/netsim-pcaps", nil
}
