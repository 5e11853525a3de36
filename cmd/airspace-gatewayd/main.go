package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/uviespace/airspace-compress/internal/cmp"
	"github.com/uviespace/airspace-compress/internal/gateway"
	"github.com/uviespace/airspace-compress/internal/instrument"
	"github.com/uviespace/airspace-compress/internal/metrics"
)

func main() {
	cfg, showVersion := parseFlags()
	if showVersion {
		fmt.Printf("airspace-gatewayd %s (commit %s, built %s)\n", version, commit, date)
		return
	}
	l := setupLogger(cfg.logFormat, cfg.logLevel)
	h := initHub(cfg, l)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup
	startMetricsLogger(ctx, cfg.logMetricsEvery, l, &wg)

	params, err := buildParams(cfg)
	if err != nil {
		l.Error("params_error", "error", err)
		return
	}
	workBufSize, err := cmp.CalWorkBufSize(params, cfg.frameSamples)
	if err != nil {
		l.Error("work_buf_size_error", "error", err)
		return
	}
	var workBuf []byte
	if workBufSize > 0 {
		workBuf = make([]byte, workBufSize)
	}
	engine, err := cmp.Initialise(params, workBuf)
	if err != nil {
		metrics.IncError(metrics.ErrEngineInit)
		l.Error("engine_init_error", "error", err)
		return
	}
	bound, err := cmp.CompressBound(params, cfg.frameSamples)
	if err != nil {
		l.Error("compress_bound_error", "error", err)
		return
	}

	src := openSource(cfg, l)
	defer src.Close()

	tx := gateway.NewAsyncTx(ctx, cfg.hubBuffer, h.Broadcast, gateway.Hooks{
		OnDrop: func() error { metrics.IncHubDrop(); return nil },
	})
	defer tx.Close()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runAcquireLoop(ctx, src, engine, bound, tx, l, cfg.frameSamples, params.PrimaryPreprocessing, params.PrimaryEncoderType)
	}()

	srv := gateway.NewServer(
		gateway.WithHub(h),
		gateway.WithListenAddr(cfg.listenAddr),
		gateway.WithLogger(l),
		gateway.WithMaxClients(cfg.maxClients),
		gateway.WithHandshakeTimeout(cfg.handshakeTO),
		gateway.WithSessionConfig(formatSessionConfig(params)),
	)
	go func() {
		if err := srv.Serve(ctx); err != nil {
			l.Error("tcp_server_error", "error", err)
			cancel()
		}
	}()

	go func() {
		if !cfg.mdnsEnable {
			return
		}
		select {
		case <-srv.Ready():
		case <-ctx.Done():
			return
		}
		addr := srv.Addr()
		var portNum int
		if _, p, err := net.SplitHostPort(addr); err == nil {
			if pn, perr := strconv.Atoi(p); perr == nil {
				portNum = pn
			}
		}
		if portNum == 0 {
			lastColon := strings.LastIndex(addr, ":")
			if lastColon >= 0 {
				if pn, perr := strconv.Atoi(addr[lastColon+1:]); perr == nil {
					portNum = pn
				}
			}
		}
		cleanupMDNS, err := startMDNS(ctx, cfg, portNum)
		if err != nil {
			l.Warn("mdns_start_failed", "error", err)
			return
		}
		l.Info("mdns_started", "service", mdnsServiceType, "name", cfg.mdnsName, "port", portNum)
		go func() { <-ctx.Done(); cleanupMDNS() }()
	}()

	metrics.SetReadinessFunc(func() bool {
		select {
		case <-srv.Ready():
		default:
			return false
		}
		return ctx.Err() == nil
	})
	if cfg.metricsAddr != "" {
		metrics.InitBuildInfo(version, commit, date)
		srvHTTP := metrics.StartHTTP(cfg.metricsAddr)
		defer func() { _ = srvHTTP.Shutdown(context.Background()) }()
	}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigCh
	l.Info("shutdown_signal", "signal", s.String())
	cancel()
	sdCtx, sdCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer sdCancel()
	if err := srv.Shutdown(sdCtx); err != nil {
		l.Error("shutdown_error", "error", err)
	}
	wg.Wait()
}

func openSource(cfg *appConfig, l *slog.Logger) instrument.Source {
	if cfg.source == "serial" {
		port, err := instrument.OpenSerial(cfg.serialDev, cfg.baud, cfg.serialReadTO)
		if err != nil {
			l.Error("serial_open_error", "error", err, "device", cfg.serialDev)
			os.Exit(1)
		}
		instrument.LogOpen("serial", cfg.serialDev)
		return instrument.NewStreamSource(port)
	}
	instrument.LogOpen("synthetic", "")
	return instrument.NewSyntheticSource(4000, 512, 2*time.Millisecond)
}
