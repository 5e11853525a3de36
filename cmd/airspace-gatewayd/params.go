package main

import (
	"fmt"

	"github.com/uviespace/airspace-compress/internal/cmp"
)

// formatSessionConfig renders the active compression parameters as the
// same comma-separated key=value line the CLI's -params flag accepts, so a
// downlink client can log or replay the session's encoding without a
// separate out-of-band config channel.
func formatSessionConfig(params cmp.Params) string {
	return fmt.Sprintf(
		"preprocessing=%s,encoder=%s,param=%d,outlier=%d,checksum=%t,fallback=%t",
		params.PrimaryPreprocessing,
		params.PrimaryEncoderType,
		params.PrimaryEncoderParam,
		params.PrimaryEncoderOutlier,
		params.ChecksumEnabled,
		params.UncompressedFallbackEnabled,
	)
}

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

// buildParams translates the CLI/env configuration into cmp.Params. The
// secondary pass is only wired up when --secondary-iterations is set, since
// a primary-only session is the common case.
func buildParams(cfg *appConfig) (cmp.Params, error) {
	primaryPP, err := parsePreprocessing(cfg.preprocessing)
	if err != nil {
		return cmp.Params{}, err
	}
	primaryEnc, err := parseEncoder(cfg.encoder)
	if err != nil {
		return cmp.Params{}, err
	}
	params := cmp.Params{
		PrimaryPreprocessing:        primaryPP,
		PrimaryEncoderType:          primaryEnc,
		PrimaryEncoderParam:         uint16(cfg.param),
		PrimaryEncoderOutlier:       uint16(cfg.outlier),
		ChecksumEnabled:             cfg.checksum,
		UncompressedFallbackEnabled: cfg.fallback,
		ModelRate:                   uint8(cfg.modelRate),
	}
	if cfg.secondaryIter > 0 {
		params.SecondaryPreprocessing = cmp.PreprocessModel
		params.SecondaryEncoderType = primaryEnc
		params.SecondaryEncoderParam = uint16(cfg.param)
		params.SecondaryEncoderOutlier = uint16(cfg.outlier)
		params.SecondaryIterations = uint8(cfg.secondaryIter)
	}
	return params, nil
}
