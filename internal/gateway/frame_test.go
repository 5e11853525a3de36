package gateway

import (
	"testing"
	"unsafe"

	"github.com/uviespace/airspace-compress/internal/cmp"
)

// alignedBuf returns an n-byte slice whose first byte is 8-byte aligned, as
// cmp.NewBitstream requires of its buffer.
func alignedBuf(n int) []byte {
	words := make([]uint64, (n+7)/8)
	return unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), n)
}

// fallbackFrameFixture builds a minimal, header-only frame whose
// preprocessing/encoder fields mark it as an uncompressed-fallback frame.
func fallbackFrameFixture(t *testing.T) []byte {
	t.Helper()
	h := &cmp.Header{
		VersionFlag:    true,
		CompressedSize: cmp.HeaderSize,
		Preprocessing:  cmp.PreprocessNone,
		EncoderType:    cmp.EncoderUncompressed,
	}
	dst := alignedBuf(cmp.HeaderSize)
	bs, err := cmp.NewBitstream(dst, len(dst))
	if err != nil {
		t.Fatalf("NewBitstream: %v", err)
	}
	if err := h.Serialize(bs); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	return dst
}

func TestIsFallbackFrame(t *testing.T) {
	if isFallbackFrame([]byte{0x01, 0x02}) {
		t.Fatalf("short garbage buffer must not be treated as a fallback frame")
	}
	if isFallbackFrame(fallbackFrameFixture(t)) == false {
		t.Fatalf("expected the fixture header to be recognized as a fallback frame")
	}

	compressed := &cmp.Header{
		VersionFlag:    true,
		CompressedSize: cmp.HeaderSize,
		Preprocessing:  cmp.PreprocessDiff,
		EncoderType:    cmp.EncoderGolombZero,
	}
	dst := alignedBuf(cmp.HeaderSize)
	bs, err := cmp.NewBitstream(dst, len(dst))
	if err != nil {
		t.Fatalf("NewBitstream: %v", err)
	}
	if err := compressed.Serialize(bs); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if isFallbackFrame(dst) {
		t.Fatalf("ordinary compressed frame misclassified as fallback")
	}
}
