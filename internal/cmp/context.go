package cmp

// Version constants, ported from the original library's public header.
const (
	VersionMajor   = 0
	VersionMinor   = 3
	VersionRelease = 0
)

func versionID() uint32 {
	return (uint32(VersionMajor) << 16) | (uint32(VersionMinor) << 8) | uint32(VersionRelease)
}

const magicValue = 0x41495253 // "AIRS"

// Params are the compression parameters fixed for a context's lifetime.
type Params struct {
	PrimaryPreprocessing  Preprocessing
	PrimaryEncoderType    EncoderType
	PrimaryEncoderParam   uint16
	PrimaryEncoderOutlier uint16

	SecondaryPreprocessing  Preprocessing
	SecondaryEncoderType    EncoderType
	SecondaryEncoderParam   uint16
	SecondaryEncoderOutlier uint16
	SecondaryIterations     uint8

	ModelRate uint8

	ChecksumEnabled             bool
	UncompressedFallbackEnabled bool
}

func (p *Params) validate() error {
	if p.PrimaryPreprocessing == PreprocessModel {
		return newErr("Initialise", KindParamsInvalid)
	}
	if p.ModelRate > 16 {
		return newErr("Initialise", KindParamsInvalid)
	}
	if _, err := preprocessorFor(p.PrimaryPreprocessing); err != nil {
		return newErr("Initialise", KindParamsInvalid)
	}
	if _, err := newParamEncoder(p.PrimaryEncoderType, p.PrimaryEncoderParam, p.PrimaryEncoderOutlier); err != nil {
		return newErr("Initialise", KindParamsInvalid)
	}
	if p.SecondaryIterations > 0 {
		if _, err := preprocessorFor(p.SecondaryPreprocessing); err != nil {
			return newErr("Initialise", KindParamsInvalid)
		}
		if _, err := newParamEncoder(p.SecondaryEncoderType, p.SecondaryEncoderParam, p.SecondaryEncoderOutlier); err != nil {
			return newErr("Initialise", KindParamsInvalid)
		}
	}
	return nil
}

// Context is the opaque, caller-owned compression session. It must be
// constructed with Initialise; the zero value is deliberately invalid so
// that CompressU16/Reset on an unconstructed Context fail context_invalid
// rather than silently succeeding.
type Context struct {
	magic   uint32
	params  Params
	workBuf []byte

	modelSize      int
	identifier     uint64
	sequenceNumber uint8

	timestampFn TimestampFunc
}

// InitOption configures a Context at construction time.
type InitOption func(*Context)

// WithTimestampFunc installs a per-context timestamp provider, overriding
// the process-wide one installed via SetTimestampFunc. Preferred over the
// process-wide setter: it removes any race on provider replacement across
// concurrently-running contexts.
func WithTimestampFunc(f TimestampFunc) InitOption {
	return func(c *Context) { c.timestampFn = f }
}

// Initialise validates params, borrows workBuf for the context's lifetime,
// and seeds the session identifier.
func Initialise(params Params, workBuf []byte, opts ...InitOption) (*Context, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	ctx := &Context{params: params, workBuf: workBuf}
	for _, o := range opts {
		o(ctx)
	}
	if needsScratchBuf(&params) {
		if workBuf == nil {
			return nil, newErr("Initialise", KindWorkBufNull)
		}
		if !isAlignedN(workBuf, 2) {
			return nil, newErr("Initialise", KindWorkBufUnaligned)
		}
	}
	ctx.identifier = nextIdentifier(ctx.timestampFn)
	ctx.magic = magicValue
	return ctx, nil
}

func needsScratchBuf(p *Params) bool {
	if pp, err := preprocessorFor(p.PrimaryPreprocessing); err == nil && pp.workBufSize(1) > 0 {
		return true
	}
	if p.SecondaryIterations > 0 {
		if pp, err := preprocessorFor(p.SecondaryPreprocessing); err == nil && pp.workBufSize(1) > 0 {
			return true
		}
	}
	return false
}

func (c *Context) valid() bool {
	return c != nil && c.magic == magicValue
}

// Reset zeroes the pass counter and model lock, and refreshes the session
// identifier.
func (c *Context) Reset() error {
	if !c.valid() {
		return newErr("Reset", KindContextInvalid)
	}
	c.resetState()
	return nil
}

func (c *Context) resetState() {
	c.sequenceNumber = 0
	c.modelSize = 0
	c.identifier = nextIdentifier(c.timestampFn)
}

// Deinitialise zeroes the whole context. Safe to call on nil.
func (c *Context) Deinitialise() {
	if c == nil {
		return
	}
	*c = Context{}
}

// CompressU16 compresses src into dst, returning the number of bytes
// written. src is the sequence of unsigned 16-bit samples for this pass;
// its length in bytes (len(src)*2) is subject to the same size
// constraints spec.md places on src_size.
func (c *Context) CompressU16(dst []byte, src []uint16) (uint32, error) {
	if !c.valid() {
		return 0, newErr("CompressU16", KindContextInvalid)
	}
	if len(src) == 0 {
		return 0, newErr("CompressU16", KindSrcNull)
	}
	srcSize := len(src) * 2
	if srcSize > MaxOriginalSize {
		return 0, newErr("CompressU16", KindHdrOriginalTooLarge)
	}
	if len(dst) == 0 {
		return 0, newErr("CompressU16", KindDstNull)
	}
	if !isAlignedN(dst, 8) {
		return 0, newErr("CompressU16", KindDstUnaligned)
	}

	if c.params.UncompressedFallbackEnabled {
		return c.compressWithFallback(dst, src)
	}
	return c.compressEngine(dst, len(dst), src)
}

// compressWithFallback layers the uncompressed-fallback retry described in
// spec.md §4.6 on top of the core engine: the primary attempt is capped at
// the guaranteed uncompressed bound, and any dst_too_small failure triggers
// a reset-and-retry with preprocessing/encoding forced to none/uncompressed.
func (c *Context) compressWithFallback(dst []byte, src []uint16) (uint32, error) {
	srcSize := len(src) * 2
	uncompressedSize := HeaderSize + srcSize
	if c.params.ChecksumEnabled {
		uncompressedSize += ChecksumSize
	}
	if len(dst) < uncompressedSize {
		return c.compressEngine(dst, len(dst), src)
	}

	n, err := c.compressEngine(dst, uncompressedSize, src)
	if err == nil {
		return n, nil
	}
	if GetErrorCode(err) != KindDstTooSmall {
		return 0, err
	}

	if err := c.Reset(); err != nil {
		return 0, err
	}
	savedPreprocessing := c.params.PrimaryPreprocessing
	savedEncoderType := c.params.PrimaryEncoderType
	c.params.PrimaryPreprocessing = PreprocessNone
	c.params.PrimaryEncoderType = EncoderUncompressed
	n2, err2 := c.compressEngine(dst, len(dst), src)
	c.params.PrimaryPreprocessing = savedPreprocessing
	c.params.PrimaryEncoderType = savedEncoderType
	if err2 != nil {
		return 0, err2
	}
	return n2, nil
}

// compressEngine is the core session state machine: it decides whether
// this pass starts a new session or continues the current one, runs the
// preprocessor/encoder pipeline, and patches the header with the final
// size via Bitstream.Rewind.
func (c *Context) compressEngine(dst []byte, capacity int, src []uint16) (uint32, error) {
	srcSize := len(src) * 2

	newSession := c.sequenceNumber == 0 || c.sequenceNumber >= c.params.SecondaryIterations
	var useSecondary bool
	if newSession {
		c.resetState()
		c.modelSize = srcSize
	} else {
		useSecondary = true
		if c.params.SecondaryPreprocessing == PreprocessModel && srcSize != c.modelSize {
			return 0, newErr("CompressU16", KindSrcSizeMismatch)
		}
	}

	prep := c.params.PrimaryPreprocessing
	encType := c.params.PrimaryEncoderType
	encParam := c.params.PrimaryEncoderParam
	encOutlier := c.params.PrimaryEncoderOutlier
	if useSecondary {
		prep = c.params.SecondaryPreprocessing
		encType = c.params.SecondaryEncoderType
		encParam = c.params.SecondaryEncoderParam
		encOutlier = c.params.SecondaryEncoderOutlier
	}

	pp, err := preprocessorFor(prep)
	if err != nil {
		return 0, err
	}
	if need := pp.workBufSize(len(src)); need > 0 {
		if c.workBuf == nil {
			return 0, newErr("CompressU16", KindWorkBufNull)
		}
		if len(c.workBuf) < need {
			return 0, newErr("CompressU16", KindWorkBufTooSmall)
		}
		if !isAlignedN(c.workBuf, 2) {
			return 0, newErr("CompressU16", KindWorkBufUnaligned)
		}
	}

	enc, err := newParamEncoder(encType, encParam, encOutlier)
	if err != nil {
		return 0, err
	}

	bs, err := NewBitstream(dst, capacity)
	if err != nil {
		return 0, err
	}

	hdr := &Header{
		VersionFlag:     true,
		VersionID:       versionID(),
		CompressedSize:  0,
		OriginalSize:    uint32(srcSize),
		SequenceNumber:  c.sequenceNumber,
		Preprocessing:   prep,
		ChecksumEnabled: c.params.ChecksumEnabled,
		EncoderType:     encType,
		ModelRate:       c.params.ModelRate,
		EncoderOutlier:  enc.headerOutlier(),
		EncoderParam:    encParam,
		Identifier:      c.identifier,
	}
	if err := hdr.Serialize(bs); err != nil {
		return 0, err
	}

	nValues, err := pp.init(src, c.workBuf)
	if err != nil {
		return 0, err
	}

	modelActive := prep == PreprocessModel
	firstPass := !useSecondary
	rate := uint32(c.params.ModelRate)
	for i := 0; i < nValues; i++ {
		residual := pp.process(i, src, c.workBuf)
		enc.encode(residual, bs)
		if modelActive {
			if firstPass {
				wbPutU16(c.workBuf, i, src[i])
			} else {
				old := uint32(wbGetU16(c.workBuf, i))
				updated := (old*rate + uint32(src[i])*(16-rate)) / 16
				wbPutU16(c.workBuf, i, uint16(updated))
			}
		}
	}

	if c.params.ChecksumEnabled {
		bs.PadLastByte()
		bs.AddBits32(checksum32(src))
	}

	total, err := bs.Flush()
	if err != nil {
		return 0, err
	}

	bs.Rewind()
	hdr.CompressedSize = total
	if err := hdr.Serialize(bs); err != nil {
		return 0, err
	}

	c.sequenceNumber++
	return total, nil
}

// CompressBound returns the worst-case frame size for n samples under
// params, failing hdr_cmp_size_too_large if that bound cannot be
// represented in the header's compressed_size field.
func CompressBound(params Params, nSamples int) (uint32, error) {
	srcSize := nSamples * 2
	if srcSize > MaxOriginalSize {
		return 0, newErr("CompressBound", KindHdrOriginalTooLarge)
	}
	enc, err := newParamEncoder(params.PrimaryEncoderType, params.PrimaryEncoderParam, params.PrimaryEncoderOutlier)
	if err != nil {
		return 0, newErr("CompressBound", KindParamsInvalid)
	}
	bound := HeaderSize + enc.maxCompressedSize(nSamples)
	if params.ChecksumEnabled {
		bound += ChecksumSize
	}
	if bound > MaxCompressedSize {
		return 0, newErr("CompressBound", KindHdrCmpSizeTooLarge)
	}
	return uint32(bound), nil
}

// CalWorkBufSize returns the scratch buffer size, in bytes, Initialise
// needs for params applied to nSamples samples.
func CalWorkBufSize(params Params, nSamples int) (int, error) {
	if params.PrimaryPreprocessing == PreprocessModel {
		return 0, newErr("CalWorkBufSize", KindParamsInvalid)
	}
	primary, err := preprocessorFor(params.PrimaryPreprocessing)
	if err != nil {
		return 0, newErr("CalWorkBufSize", KindParamsInvalid)
	}
	max := primary.workBufSize(nSamples)
	if params.SecondaryIterations > 0 {
		secondary, err := preprocessorFor(params.SecondaryPreprocessing)
		if err != nil {
			return 0, newErr("CalWorkBufSize", KindParamsInvalid)
		}
		if s := secondary.workBufSize(nSamples); s > max {
			max = s
		}
	}
	return max, nil
}
