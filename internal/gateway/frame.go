package gateway

import (
	"time"

	"github.com/uviespace/airspace-compress/internal/cmp"
)

// fallbackDeliveryGrace bounds how long the hub and the async transmitter
// will retry a full client queue before giving up on a fallback frame.
// Ordinary compressed frames never get this treatment; they're dropped
// immediately on the first full queue, same as before.
const fallbackDeliveryGrace = 5 * time.Millisecond

// isFallbackFrame reports whether a serialized frame's header records
// preprocessing none with the uncompressed encoder, which is what the
// uncompressed-fallback path writes; in a stream configured with those
// settings every frame is reported. A fallback frame carries the client's entire
// raw sample buffer rather than a compressed residual stream, so losing one
// to backpressure costs far more science data than losing an ordinary
// compressed frame in the same stream, which is one of many similar
// residual-coded frames.
func isFallbackFrame(frame []byte) bool {
	hdr, err := cmp.DeserializeHeader(frame)
	if err != nil {
		return false
	}
	return hdr.Preprocessing == cmp.PreprocessNone && hdr.EncoderType == cmp.EncoderUncompressed
}
