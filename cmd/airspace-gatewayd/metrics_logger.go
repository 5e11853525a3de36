package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/uviespace/airspace-compress/internal/metrics"
)

func startMetricsLogger(ctx context.Context, interval time.Duration, l *slog.Logger, wg *sync.WaitGroup) {
	if interval <= 0 {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				snap := metrics.Snap()
				l.Info("metrics_snapshot",
					"frames_compressed", snap.FramesCompressed,
					"sample_bytes_in", snap.SampleBytesIn,
					"frame_bytes_out", snap.FrameBytesOut,
					"fallback", snap.Fallback,
					"rollovers", snap.Rollovers,
					"tcp_tx", snap.TCPTx,
					"hub_drops", snap.HubDrops,
					"errors", snap.Errors,
				)
			case <-ctx.Done():
				return
			}
		}
	}()
}
