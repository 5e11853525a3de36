// Package instrument reads fixed-size buffers of 16-bit samples from an
// acquisition source, grounded on the teacher's internal/serial port and
// codec: a minimal Port abstraction over github.com/tarm/serial, plus a
// decode loop that turns a raw byte stream into typed values.
package instrument

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"time"

	"github.com/uviespace/airspace-compress/internal/logging"
	"github.com/uviespace/airspace-compress/internal/metrics"
)

// ErrShortRead is returned when a read yields a partial sample (an odd
// number of trailing bytes that cannot be decoded as a uint16).
var ErrShortRead = errors.New("instrument: short read")

// Source produces fixed-size buffers of 16-bit samples, one buffer per
// ReadSamples call.
type Source interface {
	ReadSamples(ctx context.Context, buf []uint16) (int, error)
	Close() error
}

// Port abstracts the underlying byte stream (a real serial port, a file,
// or a test double), mirroring the teacher's serial.Port interface.
type Port interface {
	Read(p []byte) (int, error)
	Close() error
}

// StreamSource decodes little-endian uint16 samples from a byte stream
// Port, filling caller-provided buffers one sample at a time.
type StreamSource struct {
	port Port
	buf  []byte
}

// NewStreamSource wraps a Port as a Source.
func NewStreamSource(p Port) *StreamSource {
	return &StreamSource{port: p, buf: make([]byte, 0, 4096)}
}

// ReadSamples blocks until len(dst) samples have been decoded from the
// stream, the context is cancelled, or the stream errors.
func (s *StreamSource) ReadSamples(ctx context.Context, dst []uint16) (int, error) {
	need := len(dst) * 2
	raw := make([]byte, need)
	read := 0
	for read < need {
		select {
		case <-ctx.Done():
			return read / 2, ctx.Err()
		default:
		}
		n, err := s.port.Read(raw[read:])
		if n > 0 {
			read += n
		}
		if err != nil {
			if errors.Is(err, io.EOF) && read > 0 {
				break
			}
			return read / 2, err
		}
	}
	if read%2 != 0 {
		read--
	}
	n := read / 2
	for i := 0; i < n; i++ {
		dst[i] = binary.LittleEndian.Uint16(raw[i*2:])
	}
	metrics.IncTCPRx()
	return n, nil
}

func (s *StreamSource) Close() error { return s.port.Close() }

// SyntheticSource generates a deterministic sine-derived waveform, useful
// for demos and tests that don't have real hardware attached.
type SyntheticSource struct {
	amplitude float64
	periodN   int
	offset    uint64
	sleep     time.Duration
}

// NewSyntheticSource builds a generator of samples oscillating around
// 1<<15 with the given amplitude and period (in samples). If sleep is
// non-zero, each ReadSamples call paces itself to simulate a live feed.
func NewSyntheticSource(amplitude float64, periodN int, sleep time.Duration) *SyntheticSource {
	if periodN <= 0 {
		periodN = 256
	}
	return &SyntheticSource{amplitude: amplitude, periodN: periodN, sleep: sleep}
}

func (s *SyntheticSource) ReadSamples(ctx context.Context, dst []uint16) (int, error) {
	if s.sleep > 0 {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(s.sleep):
		}
	}
	for i := range dst {
		t := float64(s.offset+uint64(i)) * 2 * math.Pi / float64(s.periodN)
		v := 32768.0 + s.amplitude*math.Sin(t)
		dst[i] = clampU16(v)
	}
	s.offset += uint64(len(dst))
	metrics.IncTCPRx()
	return len(dst), nil
}

func (s *SyntheticSource) Close() error { return nil }

func clampU16(v float64) uint16 {
	if v < 0 {
		return 0
	}
	if v > 65535 {
		return 65535
	}
	return uint16(v)
}

// LogOpen logs instrument source acquisition in the teacher's structured
// style, used by the gateway daemon at startup.
func LogOpen(kind, addr string) {
	logging.L().Info("instrument_open", "kind", kind, "addr", addr)
}
