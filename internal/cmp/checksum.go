package cmp

// checksum32 computes a Fletcher-32 digest over the original sample bytes.
// Samples are hashed in their little-endian, in-memory wire representation
// (low byte then high byte of each uint16) regardless of host endianness,
// so the digest is reproducible on any machine — see DESIGN.md for why this
// convention was chosen over the alternatives left open by the original.
func checksum32(samples []uint16) uint32 {
	var sum1, sum2 uint32
	step := func(b byte) {
		sum1 = (sum1 + uint32(b)) % 65535
		sum2 = (sum2 + sum1) % 65535
	}
	for _, s := range samples {
		step(byte(s))
		step(byte(s >> 8))
	}
	return (sum2 << 16) | sum1
}
