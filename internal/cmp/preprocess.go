package cmp

import "encoding/binary"

// preprocessor turns a sequence of unsigned 16-bit samples into signed
// 16-bit residuals consumed by an entropy encoder.
type preprocessor interface {
	// workBufSize returns the scratch buffer size, in bytes, this
	// preprocessor needs for n samples.
	workBufSize(n int) int
	// init prepares any scratch state needed before process is called
	// sequentially for i in [0, n).
	init(src []uint16, work []byte) (n int, err error)
	// process returns the residual for sample i.
	process(i int, src []uint16, work []byte) int16
}

func wbGetU16(work []byte, i int) uint16 {
	off := i * 2
	if off+2 > len(work) {
		return 0
	}
	return binary.LittleEndian.Uint16(work[off:])
}

func wbPutU16(work []byte, i int, v uint16) {
	off := i * 2
	if off+2 > len(work) {
		return
	}
	binary.LittleEndian.PutUint16(work[off:], v)
}

func wbPutI16(work []byte, i int, v int16) {
	wbPutU16(work, i, uint16(v))
}

func wbGetI16(work []byte, i int) int16 {
	return int16(wbGetU16(work, i))
}

// nonePreprocessor passes samples through unchanged, reinterpreted as
// signed 16-bit values.
type nonePreprocessor struct{}

func (nonePreprocessor) workBufSize(int) int { return 0 }

func (nonePreprocessor) init(src []uint16, _ []byte) (int, error) {
	return len(src), nil
}

func (nonePreprocessor) process(i int, src []uint16, _ []byte) int16 {
	return int16(src[i])
}

// diffPreprocessor emits the first sample verbatim and every later sample
// as its wraparound difference from its predecessor.
type diffPreprocessor struct{}

func (diffPreprocessor) workBufSize(int) int { return 0 }

func (diffPreprocessor) init(src []uint16, _ []byte) (int, error) {
	return len(src), nil
}

func (diffPreprocessor) process(i int, src []uint16, _ []byte) int16 {
	if i == 0 {
		return int16(src[0])
	}
	return int16(src[i] - src[i-1])
}

// modelPreprocessor emits each sample's wraparound difference from the
// context's running per-index model. The model itself lives in the
// caller-provided work buffer and is updated by the engine after each
// sample is encoded (see Context.compressEngine's model-update step).
type modelPreprocessor struct{}

func (modelPreprocessor) workBufSize(n int) int { return n * 2 }

func (modelPreprocessor) init(src []uint16, _ []byte) (int, error) {
	return len(src), nil
}

func (modelPreprocessor) process(i int, src []uint16, work []byte) int16 {
	return int16(src[i] - wbGetU16(work, i))
}

// iwtPreprocessor computes a single-level integer-to-integer CDF(2,2)
// ("5/3") lifting wavelet transform with mirrored boundaries, the
// reversible integer wavelet used by this implementation (see DESIGN.md
// for why this specific schedule was chosen). The transform is computed
// once in init and the interleaved low/high-pass coefficients are cached
// in the work buffer; process merely reads them back.
type iwtPreprocessor struct{}

func (iwtPreprocessor) workBufSize(n int) int { return (n + 1) * 2 }

func (iwtPreprocessor) init(src []uint16, work []byte) (int, error) {
	n := len(src)
	if n == 0 {
		return 0, nil
	}
	x := func(i int) int32 { return int32(int16(src[i])) }
	mirror := func(i int) int32 {
		switch {
		case i < 0:
			if n > 1 {
				return x(1)
			}
			return x(0)
		case i >= n:
			if n > 1 {
				return x(n - 2)
			}
			return x(n - 1)
		default:
			return x(i)
		}
	}
	// Detail coefficients at odd indices.
	for i := 1; i < n; i += 2 {
		left := mirror(i - 1)
		right := mirror(i + 1)
		d := x(i) - ((left + right) >> 1)
		wbPutI16(work, i, int16(d))
	}
	dAt := func(i int) int32 {
		switch {
		case i < 0:
			if n > 2 {
				return int32(wbGetI16(work, 1))
			}
			return 0
		case i >= n:
			if n > 2 {
				return int32(wbGetI16(work, n-2))
			}
			return 0
		default:
			return int32(wbGetI16(work, i))
		}
	}
	// Approximation coefficients at even indices.
	for i := 0; i < n; i += 2 {
		dl := dAt(i - 1)
		dr := dAt(i + 1)
		s := x(i) + ((dl + dr) >> 1)
		wbPutI16(work, i, int16(s))
	}
	return n, nil
}

func (iwtPreprocessor) process(i int, _ []uint16, work []byte) int16 {
	return wbGetI16(work, i)
}

func preprocessorFor(p Preprocessing) (preprocessor, error) {
	switch p {
	case PreprocessNone:
		return nonePreprocessor{}, nil
	case PreprocessDiff:
		return diffPreprocessor{}, nil
	case PreprocessIWT:
		return iwtPreprocessor{}, nil
	case PreprocessModel:
		return modelPreprocessor{}, nil
	default:
		return nil, newErr("preprocessorFor", KindParamsInvalid)
	}
}
