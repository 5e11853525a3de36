package cmp

import "testing"

func TestChecksum32_Deterministic(t *testing.T) {
	samples := []uint16{0x00CA, 0x00FF, 0x00EE}
	a := checksum32(samples)
	b := checksum32(samples)
	if a != b {
		t.Fatalf("checksum not deterministic: %x != %x", a, b)
	}
}

func TestChecksum32_DiffersOnSingleByteChange(t *testing.T) {
	a := checksum32([]uint16{0x0001, 0x0002, 0x0003})
	b := checksum32([]uint16{0x0001, 0x0002, 0x0004})
	if a == b {
		t.Fatalf("expected different checksums for differing inputs")
	}
}

// TestChecksum32_S3EncoderIndependence exercises scenario S3: the checksum over a given input
// must be identical regardless of which preprocessor/encoder combination
// produced the frame around it.
func TestChecksum32_S3EncoderIndependence(t *testing.T) {
	src := []uint16{0x00CA, 0x00FF, 0x00EE}
	want := checksum32(src)

	configs := []Params{
		{PrimaryPreprocessing: PreprocessNone, PrimaryEncoderType: EncoderUncompressed, ChecksumEnabled: true},
		{PrimaryPreprocessing: PreprocessDiff, PrimaryEncoderType: EncoderGolombZero, PrimaryEncoderParam: 1, ChecksumEnabled: true},
	}
	for i, params := range configs {
		ctx, err := Initialise(params, nil)
		if err != nil {
			t.Fatalf("config %d: Initialise: %v", i, err)
		}
		dst := alignedBuf(256)
		n, err := ctx.CompressU16(dst, src)
		if err != nil {
			t.Fatalf("config %d: CompressU16: %v", i, err)
		}
		tail := dst[n-ChecksumSize : n]
		got := uint32(tail[0])<<24 | uint32(tail[1])<<16 | uint32(tail[2])<<8 | uint32(tail[3])
		if got != want {
			t.Fatalf("config %d: checksum = %x, want %x", i, got, want)
		}
	}
}
