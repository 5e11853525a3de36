package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type appConfig struct {
	source       string // "serial" or "synthetic"
	serialDev    string
	baud         int
	serialReadTO time.Duration
	listenAddr   string
	logFormat    string
	logLevel     string
	metricsAddr  string
	hubBuffer    int
	hubPolicy    string
	maxClients   int
	handshakeTO  time.Duration
	mdnsEnable   bool
	mdnsName     string
	logMetricsEvery time.Duration

	frameSamples  int
	preprocessing string
	encoder       string
	param         int
	outlier       int
	checksum      bool
	fallback      bool
	modelRate     int
	secondaryIter int
}

func parseFlags() (*appConfig, bool) {
	cfg := &appConfig{}
	source := flag.String("source", "synthetic", "Instrument source: serial|synthetic")
	serialDev := flag.String("serial", "/dev/ttyUSB0", "Serial device path (when --source=serial)")
	baud := flag.Int("baud", 115200, "Serial baud rate")
	serialReadTO := flag.Duration("serial-read-timeout", 50*time.Millisecond, "Serial read timeout")
	listen := flag.String("listen", ":20100", "TCP listen address for downlink clients")
	logFormat := flag.String("log-format", "text", "Log format: text|json")
	logLevel := flag.String("log-level", "info", "Log level: debug|info|warn|error")
	metricsAddr := flag.String("metrics-addr", "", "Metrics HTTP listen address (e.g., :9101); empty disables")
	hubBuf := flag.Int("hub-buffer", 512, "Per-client hub buffer (frames)")
	hubPolicy := flag.String("hub-policy", "drop", "Backpressure policy: drop|kick")
	maxClients := flag.Int("max-clients", 0, "Maximum simultaneous downlink clients (0 = unlimited)")
	handshakeTO := flag.Duration("handshake-timeout", 3*time.Second, "Client handshake timeout")
	mdnsEnable := flag.Bool("mdns-enable", false, "Enable mDNS advertisement")
	mdnsName := flag.String("mdns-name", "", "mDNS instance name (default airspace-gatewayd-<hostname>)")
	logMetricsEvery := flag.Duration("log-metrics-interval", 0, "If >0, periodically log metrics counters (for non-Prometheus setups)")
	showVersion := flag.Bool("version", false, "Print version and exit")

	frameSamples := flag.Int("frame-samples", 256, "Samples per compressed frame")
	preprocessing := flag.String("preprocessing", "diff", "Preprocessing: none|diff|iwt|model")
	encoder := flag.String("encoder", "golomb_zero", "Encoder: uncompressed|golomb_zero|golomb_multi")
	param := flag.Int("param", 4, "Encoder Golomb parameter")
	outlier := flag.Int("outlier", 0, "Encoder outlier threshold (golomb_multi only)")
	checksum := flag.Bool("checksum", true, "Append Fletcher-32 checksum to each frame")
	fallback := flag.Bool("fallback", true, "Fall back to uncompressed on incompressible data")
	modelRate := flag.Int("model-rate", 8, "Model preprocessor weighted-average rate (0..16)")
	secondaryIter := flag.Int("secondary-iterations", 0, "Secondary pass iterations before session rollover (0 disables secondary pass)")
	flag.Parse()

	setFlags := map[string]struct{}{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = struct{}{} })

	cfg.source = *source
	cfg.serialDev = *serialDev
	cfg.baud = *baud
	cfg.serialReadTO = *serialReadTO
	cfg.listenAddr = *listen
	cfg.logFormat = *logFormat
	cfg.logLevel = *logLevel
	cfg.metricsAddr = *metricsAddr
	cfg.hubBuffer = *hubBuf
	cfg.hubPolicy = *hubPolicy
	cfg.maxClients = *maxClients
	cfg.handshakeTO = *handshakeTO
	cfg.mdnsEnable = *mdnsEnable
	cfg.mdnsName = *mdnsName
	cfg.logMetricsEvery = *logMetricsEvery
	cfg.frameSamples = *frameSamples
	cfg.preprocessing = *preprocessing
	cfg.encoder = *encoder
	cfg.param = *param
	cfg.outlier = *outlier
	cfg.checksum = *checksum
	cfg.fallback = *fallback
	cfg.modelRate = *modelRate
	cfg.secondaryIter = *secondaryIter

	if err := applyEnvOverrides(cfg, setFlags); err != nil {
		fmt.Printf("environment override error: %v\n", err)
		return nil, *showVersion
	}
	if err := cfg.validate(); err != nil {
		fmt.Printf("configuration error: %v\n", err)
		return nil, *showVersion
	}
	return cfg, *showVersion
}

func (c *appConfig) validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	switch c.source {
	case "serial", "synthetic":
	default:
		return fmt.Errorf("invalid source: %s", c.source)
	}
	switch c.logFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log-format: %s", c.logFormat)
	}
	switch c.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log-level: %s", c.logLevel)
	}
	switch c.hubPolicy {
	case "drop", "kick":
	default:
		return fmt.Errorf("invalid hub-policy: %s", c.hubPolicy)
	}
	switch c.preprocessing {
	case "none", "diff", "iwt", "model":
	default:
		return fmt.Errorf("invalid preprocessing: %s", c.preprocessing)
	}
	switch c.encoder {
	case "uncompressed", "golomb_zero", "golomb_multi":
	default:
		return fmt.Errorf("invalid encoder: %s", c.encoder)
	}
	if c.hubBuffer <= 0 {
		return fmt.Errorf("hub-buffer must be > 0 (got %d)", c.hubBuffer)
	}
	if c.frameSamples <= 0 {
		return fmt.Errorf("frame-samples must be > 0 (got %d)", c.frameSamples)
	}
	if c.maxClients < 0 {
		return fmt.Errorf("max-clients must be >= 0")
	}
	if c.modelRate < 0 || c.modelRate > 16 {
		return fmt.Errorf("model-rate must be in [0,16]")
	}
	return nil
}

func applyEnvOverrides(c *appConfig, set map[string]struct{}) error {
	var firstErr error
	get := func(k string) (string, bool) { v, ok := os.LookupEnv(k); return strings.TrimSpace(v), ok }

	strField := func(flagName, env string, dst *string) {
		if _, ok := set[flagName]; ok {
			return
		}
		if v, ok := get(env); ok && v != "" {
			*dst = v
		}
	}
	intField := func(flagName, env string, dst *int) {
		if _, ok := set[flagName]; ok {
			return
		}
		if v, ok := get(env); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			} else if firstErr == nil {
				firstErr = fmt.Errorf("invalid %s: %w", env, err)
			}
		}
	}
	durField := func(flagName, env string, dst *time.Duration) {
		if _, ok := set[flagName]; ok {
			return
		}
		if v, ok := get(env); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				*dst = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid %s: %w", env, err)
			}
		}
	}
	boolField := func(flagName, env string, dst *bool) {
		if _, ok := set[flagName]; ok {
			return
		}
		if v, ok := get(env); ok && v != "" {
			switch strings.ToLower(v) {
			case "1", "true", "yes", "on":
				*dst = true
			case "0", "false", "no", "off":
				*dst = false
			}
		}
	}

	strField("source", "AIRSPACE_GATEWAYD_SOURCE", &c.source)
	strField("serial", "AIRSPACE_GATEWAYD_SERIAL", &c.serialDev)
	intField("baud", "AIRSPACE_GATEWAYD_BAUD", &c.baud)
	durField("serial-read-timeout", "AIRSPACE_GATEWAYD_SERIAL_READ_TIMEOUT", &c.serialReadTO)
	strField("listen", "AIRSPACE_GATEWAYD_LISTEN", &c.listenAddr)
	strField("log-format", "AIRSPACE_GATEWAYD_LOG_FORMAT", &c.logFormat)
	strField("log-level", "AIRSPACE_GATEWAYD_LOG_LEVEL", &c.logLevel)
	strField("metrics-addr", "AIRSPACE_GATEWAYD_METRICS", &c.metricsAddr)
	intField("hub-buffer", "AIRSPACE_GATEWAYD_HUB_BUFFER", &c.hubBuffer)
	strField("hub-policy", "AIRSPACE_GATEWAYD_HUB_POLICY", &c.hubPolicy)
	intField("max-clients", "AIRSPACE_GATEWAYD_MAX_CLIENTS", &c.maxClients)
	durField("handshake-timeout", "AIRSPACE_GATEWAYD_HANDSHAKE_TIMEOUT", &c.handshakeTO)
	boolField("mdns-enable", "AIRSPACE_GATEWAYD_MDNS_ENABLE", &c.mdnsEnable)
	strField("mdns-name", "AIRSPACE_GATEWAYD_MDNS_NAME", &c.mdnsName)
	intField("frame-samples", "AIRSPACE_GATEWAYD_FRAME_SAMPLES", &c.frameSamples)
	strField("preprocessing", "AIRSPACE_GATEWAYD_PREPROCESSING", &c.preprocessing)
	strField("encoder", "AIRSPACE_GATEWAYD_ENCODER", &c.encoder)
	intField("param", "AIRSPACE_GATEWAYD_PARAM", &c.param)
	intField("outlier", "AIRSPACE_GATEWAYD_OUTLIER", &c.outlier)
	boolField("checksum", "AIRSPACE_GATEWAYD_CHECKSUM", &c.checksum)
	boolField("fallback", "AIRSPACE_GATEWAYD_FALLBACK", &c.fallback)
	intField("model-rate", "AIRSPACE_GATEWAYD_MODEL_RATE", &c.modelRate)
	intField("secondary-iterations", "AIRSPACE_GATEWAYD_SECONDARY_ITERATIONS", &c.secondaryIter)
	durField("log-metrics-interval", "AIRSPACE_GATEWAYD_LOG_METRICS_INTERVAL", &c.logMetricsEvery)

	return firstErr
}
