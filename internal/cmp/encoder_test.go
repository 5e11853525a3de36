package cmp

import "testing"

func TestNewParamEncoder_ValidatesGolombZero(t *testing.T) {
	if _, err := newParamEncoder(EncoderGolombZero, 0, 0); GetErrorCode(err) != KindParamsInvalid {
		t.Fatalf("param=0 should be rejected, got %v", err)
	}
	if _, err := newParamEncoder(EncoderGolombZero, 33, 0); GetErrorCode(err) != KindParamsInvalid {
		t.Fatalf("param=33 should be rejected, got %v", err)
	}
	if _, err := newParamEncoder(EncoderGolombZero, 1, 0); err != nil {
		t.Fatalf("param=1 should be valid, got %v", err)
	}
}

func TestNewParamEncoder_GolombZeroHeaderOutlier(t *testing.T) {
	enc, err := newParamEncoder(EncoderGolombZero, 1, 0)
	if err != nil {
		t.Fatalf("newParamEncoder: %v", err)
	}
	if got := enc.headerOutlier(); got != 16 {
		t.Fatalf("headerOutlier() = %d, want 16", got)
	}
}

func TestNewParamEncoder_ValidatesGolombMulti(t *testing.T) {
	cases := []struct {
		name           string
		param, outlier uint16
		wantErr        bool
	}{
		{"outlier below param", 4, 2, true},
		{"outlier at max", 3, 1<<16 - 1, false},
		{"non-multiple of power-of-two param", 4, 10, true},
		{"valid power-of-two", 4, 12, false},
		{"valid non-power-of-two", 3, 100, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := newParamEncoder(EncoderGolombMulti, c.param, c.outlier)
			if c.wantErr && err == nil {
				t.Fatalf("expected error")
			}
			if !c.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestParamEncoder_GolombZeroRoundTripBits(t *testing.T) {
	enc, err := newParamEncoder(EncoderGolombZero, 4, 0)
	if err != nil {
		t.Fatalf("newParamEncoder: %v", err)
	}
	dst := alignedBuf(64)
	bs, _ := NewBitstream(dst, len(dst))
	enc.encode(0, bs)
	enc.encode(-1, bs)
	enc.encode(5, bs)
	if bs.Error() {
		t.Fatalf("unexpected bitstream overflow")
	}
	if _, err := bs.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}

func TestParamEncoder_GolombMultiEscapesLargeValues(t *testing.T) {
	enc, err := newParamEncoder(EncoderGolombMulti, 4, 16)
	if err != nil {
		t.Fatalf("newParamEncoder: %v", err)
	}
	dst := alignedBuf(64)
	bs, _ := NewBitstream(dst, len(dst))
	// A large residual maps well above the outlier threshold.
	enc.encode(30000, bs)
	if bs.Error() {
		t.Fatalf("unexpected overflow encoding an escape value")
	}
	before := bs.BitLen()
	enc.encode(1, bs)
	after := bs.BitLen()
	if after-before > 32+6 {
		t.Fatalf("small value used unexpectedly many bits: %d", after-before)
	}
}

func TestParamEncoder_GolombZeroMatchesReferenceByteVector(t *testing.T) {
	// original_source/test/test_cmp.c's fallback tests (param=1) all assert
	// that four zero-valued residuals compress to the single byte 0xAA.
	enc, err := newParamEncoder(EncoderGolombZero, 1, 0)
	if err != nil {
		t.Fatalf("newParamEncoder: %v", err)
	}
	dst := alignedBuf(8)
	bs, err := NewBitstream(dst, len(dst))
	if err != nil {
		t.Fatalf("NewBitstream: %v", err)
	}
	for i := 0; i < 4; i++ {
		enc.encode(0, bs)
	}
	if bs.Error() {
		t.Fatalf("unexpected bitstream overflow")
	}
	n, err := bs.Flush()
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 byte emitted, got %d", n)
	}
	if dst[0] != 0xAA {
		t.Fatalf("expected 0xAA, got 0x%02X", dst[0])
	}
}

func TestUncompressedEncoder_MaxCompressedSize(t *testing.T) {
	enc, _ := newParamEncoder(EncoderUncompressed, 0, 0)
	if got := enc.maxCompressedSize(5); got != 10 {
		t.Fatalf("maxCompressedSize(5) = %d, want 10", got)
	}
}
