package cmp

// golombEscapeQuotient (Q_ESC) is the maximum unary quotient run length the
// golomb_zero encoder will emit before switching to its escape form. Not
// specified by name in the original source; fixed here at 16 so that the
// header's encoder_outlier field for golomb_zero (Q_ESC * param) matches
// the one concrete value available from the original test suite
// (param=1 -> outlier=16).
const golombEscapeQuotient = 16

func remainderBits(m uint32) uint {
	if m <= 1 {
		return 0
	}
	return log2Ceil(m)
}

// paramEncoder binds an entropy encoder's fixed param/outlier and exposes
// the single encode call the compression engine drives per residual.
type paramEncoder struct {
	kind    EncoderType
	param   uint32
	outlier uint32
}

func newParamEncoder(kind EncoderType, param, outlier uint16) (*paramEncoder, error) {
	switch kind {
	case EncoderUncompressed:
		// ignores param/outlier
	case EncoderGolombZero:
		if param < 1 || param > 32 {
			return nil, newErr("newParamEncoder", KindParamsInvalid)
		}
	case EncoderGolombMulti:
		if param < 1 || param > 32 {
			return nil, newErr("newParamEncoder", KindParamsInvalid)
		}
		if outlier < param || uint32(outlier) > 1<<16-1 {
			return nil, newErr("newParamEncoder", KindParamsInvalid)
		}
		if isPowerOfTwo(uint32(param)) && uint32(outlier)%uint32(param) != 0 {
			return nil, newErr("newParamEncoder", KindParamsInvalid)
		}
	default:
		return nil, newErr("newParamEncoder", KindParamsInvalid)
	}
	return &paramEncoder{kind: kind, param: uint32(param), outlier: uint32(outlier)}, nil
}

// headerOutlier is the value stored in the frame header's encoder_outlier
// field once param/outlier are fixed for the session.
func (e *paramEncoder) headerOutlier() uint16 {
	switch e.kind {
	case EncoderGolombZero:
		return uint16(golombEscapeQuotient * e.param)
	case EncoderGolombMulti:
		return uint16(e.outlier)
	default:
		return 0
	}
}

// maxCompressedSize bounds the payload size, in bytes, for n residuals.
func (e *paramEncoder) maxCompressedSize(n int) int {
	switch e.kind {
	case EncoderUncompressed:
		return n * 2
	case EncoderGolombZero:
		bitsPerValue := golombEscapeQuotient + 1 + 32
		return (n*bitsPerValue + 7) / 8
	case EncoderGolombMulti:
		// The escape codeword (outlier/param ones, a zero, then
		// ceil(log2(2*outlier)) value bits) is the longest one.
		bitsPerValue := int(e.outlier/e.param) + 1 + int(log2Ceil(2*e.outlier))
		return (n*bitsPerValue + 7) / 8
	default:
		return n * 4
	}
}

// encode writes one residual's bits to bs.
func (e *paramEncoder) encode(value int16, bs *Bitstream) {
	switch e.kind {
	case EncoderUncompressed:
		bs.AddBits(uint32(uint16(value)), 16)
	case EncoderGolombZero:
		e.encodeGolombZero(value, bs)
	case EncoderGolombMulti:
		e.encodeGolombMulti(value, bs)
	}
}

// encodeGolombZero writes the quotient as q+1 one-bits followed by a
// terminating zero, so every non-escape codeword starts with a 1-bit. That
// leaves the all-zero-leading pattern (a lone 0 bit) free and unambiguous
// as the escape marker, matching this encoder's name.
func (e *paramEncoder) encodeGolombZero(value int16, bs *Bitstream) {
	mapped := zigZag(value)
	m := e.param
	q := mapped / m
	r := mapped % m
	if q < golombEscapeQuotient {
		writeUnary(bs, q+1)
		bs.AddBits(r, remainderBits(m))
		return
	}
	bs.AddBits(0, 1)
	bs.AddBits(mapped, 32)
}

func (e *paramEncoder) encodeGolombMulti(value int16, bs *Bitstream) {
	mapped := zigZag(value)
	m := e.param
	if mapped < e.outlier {
		q := mapped / m
		r := mapped % m
		writeUnary(bs, q)
		bs.AddBits(r, remainderBits(m))
		return
	}
	qEsc := e.outlier / m
	writeUnary(bs, qEsc)
	bitsNeeded := log2Ceil(2 * e.outlier)
	bs.AddBits(mapped, bitsNeeded)
}

// writeUnary emits q one-bits followed by a terminating zero bit.
func writeUnary(bs *Bitstream, q uint32) {
	for i := uint32(0); i < q; i++ {
		bs.AddBits(1, 1)
	}
	bs.AddBits(0, 1)
}
