package main

import (
	"context"
	"log/slog"

	"github.com/uviespace/airspace-compress/internal/cmp"
	"github.com/uviespace/airspace-compress/internal/gateway"
	"github.com/uviespace/airspace-compress/internal/instrument"
	"github.com/uviespace/airspace-compress/internal/metrics"
)

// runAcquireLoop reads fixed-size sample buffers from src, compresses each
// one through engine, and hands the resulting frame to tx for asynchronous
// broadcast. It runs until ctx is cancelled; read and compression errors are
// counted, logged and skipped.
func runAcquireLoop(ctx context.Context, src instrument.Source, engine *cmp.Context, bound uint32, tx *gateway.AsyncTx, l *slog.Logger, frameSamples int, configuredPreprocessing cmp.Preprocessing, configuredEncoder cmp.EncoderType) {
	samples := make([]uint16, frameSamples)
	dst := make([]byte, bound)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		n, err := src.ReadSamples(ctx, samples)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			metrics.IncError(metrics.ErrInstrumentRead)
			l.Error("instrument_read_error", "error", err)
			continue
		}
		if n == 0 {
			continue
		}
		size, err := engine.CompressU16(dst, samples[:n])
		if err != nil {
			metrics.IncError(metrics.ErrEngineCompress)
			l.Error("compress_error", "error", err)
			continue
		}
		frame := make([]byte, size)
		copy(frame, dst[:size])

		fellBack := false
		if hdr, herr := cmp.DeserializeHeader(frame); herr == nil {
			fellBack = hdr.Preprocessing == cmp.PreprocessNone && hdr.EncoderType == cmp.EncoderUncompressed &&
				(configuredPreprocessing != cmp.PreprocessNone || configuredEncoder != cmp.EncoderUncompressed)
		}
		metrics.ObserveFrame(uint32(n*2), size, fellBack)
		if err := tx.SendFrame(frame); err != nil {
			l.Debug("broadcast_queue_full", "error", err)
		}
	}
}
