package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/uviespace/airspace-compress/internal/cmp"
	"github.com/uviespace/airspace-compress/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := parseFlags(args)
	if err != nil {
		return 2
	}
	if cfg.showVersion {
		fmt.Printf("airspace-cli %s (commit %s, built %s)\n", version, commit, date)
		return 0
	}

	l := logging.New("text", verbosityLevel(cfg.verbose), os.Stderr)
	logging.Set(l)

	if !cfg.compress {
		l.Error("decompression not implemented yet")
		return 1
	}

	params, err := buildParams(cfg)
	if err != nil {
		l.Error("invalid parameters", "error", err)
		return 1
	}

	inputs := cfg.files
	if len(inputs) == 0 {
		inputs = []string{"-"}
	}
	if cfg.output != "" && len(inputs) > 1 {
		l.Error("-o requires a single input file")
		return 1
	}

	var totalIn, totalOut uint64
	failed := 0
	for _, in := range inputs {
		n, out, err := compressFile(params, in, outputNameFor(cfg, in), l)
		if err != nil {
			l.Error("compress_failed", "input", in, "error", err)
			failed++
			continue
		}
		totalIn += n
		totalOut += out
	}

	if len(inputs) > 1 {
		logSummary(l, totalIn, totalOut)
	}
	if failed > 0 {
		return 1
	}
	return 0
}

func verbosityLevel(v int) slog.Level {
	switch {
	case v <= -1:
		return slog.LevelError
	case v >= 1:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

func outputNameFor(cfg *cliConfig, input string) string {
	if cfg.toStdout {
		return "-"
	}
	if cfg.output != "" {
		return cfg.output
	}
	if input == "-" {
		return "-"
	}
	return addAirspaceSuffix(input)
}

func addAirspaceSuffix(name string) string {
	if filepath.Ext(name) == airspaceExtension {
		return name
	}
	return name + airspaceExtension
}

// compressFile reads input as a stream of little-endian uint16 samples,
// compresses it in a single session, and writes the resulting frame to
// output. It returns the raw sample byte count and the compressed frame
// size for ratio accounting.
func compressFile(params cmp.Params, input, output string, l *slog.Logger) (inBytes, outBytes uint64, err error) {
	raw, err := readAll(input)
	if err != nil {
		return 0, 0, fmt.Errorf("read %s: %w", input, err)
	}
	if len(raw)%2 != 0 {
		l.Warn("odd trailing byte discarded", "input", input)
		raw = raw[:len(raw)-1]
	}
	samples := bytesToU16LE(raw)

	workBufSize, err := cmp.CalWorkBufSize(params, len(samples))
	if err != nil {
		return 0, 0, fmt.Errorf("work buffer size: %w", err)
	}
	var workBuf []byte
	if workBufSize > 0 {
		workBuf = make([]byte, workBufSize)
	}
	engine, err := cmp.Initialise(params, workBuf)
	if err != nil {
		return 0, 0, fmt.Errorf("initialise: %w", err)
	}

	bound, err := cmp.CompressBound(params, len(samples))
	if err != nil {
		return 0, 0, fmt.Errorf("compress bound: %w", err)
	}
	dst := make([]byte, bound)
	size, err := engine.CompressU16(dst, samples)
	if err != nil {
		return 0, 0, fmt.Errorf("compress: %w", err)
	}
	frame := dst[:size]

	if err := writeAll(output, frame); err != nil {
		return 0, 0, fmt.Errorf("write %s: %w", output, err)
	}

	logFileStatus(l, input, output, uint64(len(raw)), uint64(size))
	return uint64(len(raw)), uint64(size), nil
}

func logFileStatus(l *slog.Logger, input, output string, inBytes, outBytes uint64) {
	ratio := ratioOf(inBytes, outBytes)
	l.Info("compressed", "input", input, "output", output, "in_bytes", inBytes, "out_bytes", outBytes, "ratio", ratio)
}

func logSummary(l *slog.Logger, totalIn, totalOut uint64) {
	l.Info("summary", "files_in_bytes", totalIn, "files_out_bytes", totalOut, "ratio", ratioOf(totalIn, totalOut))
}

func ratioOf(inBytes, outBytes uint64) float64 {
	if outBytes == 0 {
		return 0
	}
	return float64(inBytes) / float64(outBytes)
}

func readAll(name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(name)
}

func writeAll(name string, data []byte) error {
	if name == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(name, data, 0o644)
}

func bytesToU16LE(b []byte) []uint16 {
	out := make([]uint16, len(b)/2)
	for i := range out {
		out[i] = uint16(b[2*i]) | uint16(b[2*i+1])<<8
	}
	return out
}
