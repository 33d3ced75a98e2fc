package pocsag

// BCH(31,21) + even parity, the error-correcting code every POCSAG codeword
// carries in its low 11 bits. Exact port of UniPager's pocsag::generator::crc/parity
// (in turn a port of the classic pocsag.c reference encoder), expressed over
// the top-21-bits-as-dividend formulation from spec.md section 4.1.

// crc computes the BCH parity bits for the top 21 bits of w and ORs them
// into the low 10 bits (bits 10..1), leaving bit 0 (overall parity) untouched.
func crc(w uint32) uint32 {
	dividend := w
	for i := uint(0); i < 21; i++ {
		if dividend&(0x80000000>>i) != 0 {
			dividend ^= 0xED200000 >> i
		}
	}
	return w | dividend
}

// parity sets bit 0 to make the 31 high bits of w have even parity.
func parity(w uint32) uint32 {
	p := w ^ (w >> 1)
	p ^= p >> 2
	p ^= p >> 4
	p ^= p >> 8
	p ^= p >> 16
	return w | (p & 1)
}

// finalizeCodeword appends BCH and parity to a 32-bit word whose top 21 bits
// (flag + payload/address+func) are already in place.
func finalizeCodeword(w uint32) uint32 {
	return parity(crc(w))
}
