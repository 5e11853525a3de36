package main

import (
	"fmt"

	"github.com/uviespace/airspace-compress/internal/cmp"
)

func parsePreprocessing(s string) (cmp.Preprocessing, error) {
	switch s {
	case "none":
		return cmp.PreprocessNone, nil
	case "diff":
		return cmp.PreprocessDiff, nil
	case "iwt":
		return cmp.PreprocessIWT, nil
	case "model":
		return cmp.PreprocessModel, nil
	default:
		return 0, fmt.Errorf("unknown preprocessing %q", s)
	}
}

func parseEncoder(s string) (cmp.EncoderType, error) {
	switch s {
	case "uncompressed":
		return cmp.EncoderUncompressed, nil
	case "golomb_zero":
		return cmp.EncoderGolombZero, nil
	case "golomb_multi":
		return cmp.EncoderGolombMulti, nil
	default:
		return 0, fmt.Errorf("unknown encoder %q", s)
	}
}

func buildParams(cfg *cliConfig) (cmp.Params, error) {
	pp, err := parsePreprocessing(cfg.preprocessing)
	if err != nil {
		return cmp.Params{}, err
	}
	enc, err := parseEncoder(cfg.encoder)
	if err != nil {
		return cmp.Params{}, err
	}
	return cmp.Params{
		PrimaryPreprocessing:        pp,
		PrimaryEncoderType:          enc,
		PrimaryEncoderParam:         uint16(cfg.param),
		PrimaryEncoderOutlier:       uint16(cfg.outlier),
		ChecksumEnabled:             cfg.checksum,
		UncompressedFallbackEnabled: cfg.fallback,
	}, nil
}
