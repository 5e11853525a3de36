package main

import (
	"testing"

	"github.com/uviespace/airspace-compress/internal/cmp"
)

func TestFormatSessionConfig(t *testing.T) {
	params := cmp.Params{
		PrimaryPreprocessing:        cmp.PreprocessIWT,
		PrimaryEncoderType:          cmp.EncoderGolombMulti,
		PrimaryEncoderParam:         6,
		PrimaryEncoderOutlier:       512,
		ChecksumEnabled:             true,
		UncompressedFallbackEnabled: false,
	}
	want := "preprocessing=iwt,encoder=golomb_multi,param=6,outlier=512,checksum=true,fallback=false"
	if got := formatSessionConfig(params); got != want {
		t.Fatalf("formatSessionConfig() = %q, want %q", got, want)
	}
}

func TestBuildParams_RoundTripsThroughFormatSessionConfig(t *testing.T) {
	cfg := &appConfig{preprocessing: "diff", encoder: "golomb_zero", param: 1, checksum: true}
	params, err := buildParams(cfg)
	if err != nil {
		t.Fatalf("buildParams: %v", err)
	}
	line := formatSessionConfig(params)
	if line != "preprocessing=diff,encoder=golomb_zero,param=1,outlier=0,checksum=true,fallback=false" {
		t.Fatalf("unexpected session config: %q", line)
	}
}
