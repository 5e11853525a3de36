package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const airspaceExtension = ".air"

type cliConfig struct {
	compress    bool
	output      string
	toStdout    bool
	verbose     int // negative = quieter, positive = louder
	showVersion bool

	preprocessing string
	encoder       string
	param         int
	outlier       int
	checksum      bool
	fallback      bool

	files []string
}

func parseFlags(args []string) (*cliConfig, error) {
	fs := flag.NewFlagSet("airspace-cli", flag.ContinueOnError)
	compress := fs.Bool("c", false, "Compress input files")
	output := fs.String("o", "", "Write output to OUTPUT")
	toStdout := fs.Bool("stdout", false, "Write compressed output to stdout")
	params := fs.String("params", "", "Comma-separated key=value compression parameters, e.g. preprocessing=iwt,encoder=golomb_multi,param=6,outlier=512")
	verbose := fs.Bool("v", false, "Increase verbosity")
	quiet := fs.Bool("q", false, "Decrease verbosity")
	showVersion := fs.Bool("V", false, "Display version")
	fs.Usage = func() { printUsage(os.Stderr, "airspace-cli") }
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := &cliConfig{
		compress:      *compress,
		output:        *output,
		toStdout:      *toStdout,
		showVersion:   *showVersion,
		preprocessing: "diff",
		encoder:       "golomb_zero",
		param:         4,
		outlier:       0,
		checksum:      true,
		fallback:      true,
		files:         fs.Args(),
	}
	if *verbose {
		cfg.verbose++
	}
	if *quiet {
		cfg.verbose--
	}

	if *params != "" {
		if err := applyParamsString(cfg, *params); err != nil {
			return nil, err
		}
	}
	if err := applyEnvOverrides(cfg, fs, *params != ""); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyParamsString parses a "-params" value of the form
// "key=value,key=value,...", mirroring the original CLI's single combined
// parameter flag. Unknown keys are rejected outright.
func applyParamsString(c *cliConfig, spec string) error {
	for _, kv := range strings.Split(spec, ",") {
		kv = strings.TrimSpace(kv)
		if kv == "" {
			continue
		}
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid -params entry %q: expected key=value", kv)
		}
		key, val := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		switch key {
		case "preprocessing":
			c.preprocessing = val
		case "encoder":
			c.encoder = val
		case "param":
			n, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("invalid -params param=%q: %w", val, err)
			}
			c.param = n
		case "outlier":
			n, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("invalid -params outlier=%q: %w", val, err)
			}
			c.outlier = n
		case "checksum":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("invalid -params checksum=%q: %w", val, err)
			}
			c.checksum = b
		case "fallback":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("invalid -params fallback=%q: %w", val, err)
			}
			c.fallback = b
		default:
			return fmt.Errorf("unknown -params key %q", key)
		}
	}
	return nil
}

func applyEnvOverrides(c *cliConfig, fs *flag.FlagSet, paramsFlagSet bool) error {
	set := map[string]struct{}{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = struct{}{} })
	get := func(k string) (string, bool) { v, ok := os.LookupEnv(k); return strings.TrimSpace(v), ok }

	if _, ok := set["o"]; !ok {
		if v, ok := get("AIRSPACE_CLI_OUTPUT"); ok && v != "" {
			c.output = v
		}
	}
	if paramsFlagSet {
		return nil
	}
	if v, ok := get("AIRSPACE_CLI_PARAMS"); ok && v != "" {
		return applyParamsString(c, v)
	}
	return nil
}

func printUsage(w *os.File, programName string) {
	fmt.Fprintf(w, "Usage: %s -c [OPTIONS...] [FILE...]\n", programName)
	fmt.Fprintf(w, "Compress AIRS science data FILE(s) into the AIRSPACE frame format.\n\n")
	fmt.Fprintf(w, "Options:\n")
	fmt.Fprintf(w, "  -c               Compress input files\n")
	fmt.Fprintf(w, "  -o OUTPUT        Write output to OUTPUT\n")
	fmt.Fprintf(w, "  --stdout         Write compressed output to stdout\n")
	fmt.Fprintf(w, "  -q               Decrease verbosity\n")
	fmt.Fprintf(w, "  -v               Increase verbosity\n")
	fmt.Fprintf(w, "  -V               Display version\n")
	fmt.Fprintf(w, "  -params SPEC     Comma-separated key=value params: preprocessing, encoder, param, outlier, checksum, fallback\n")
	fmt.Fprintf(w, "\nExamples:\n")
	fmt.Fprintf(w, "  airspace-cli -c -o output.air file1.dat\n")
	fmt.Fprintf(w, "  airspace-cli -c -params preprocessing=iwt,encoder=golomb_multi,param=6,outlier=512 --stdout file.dat\n")
}
