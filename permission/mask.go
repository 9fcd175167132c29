package permission

// Mask64 is a 64-bit permission set. The catalog for a three-role
// deployment fits comfortably in one word; bit positions come from the
// [Registry].
type Mask64 uint64

// Has reports whether bit is set.
func (m Mask64) Has(bit int) bool {
	if bit < 0 || bit >= 64 {
		return false
	}
	return m&(1<<bit) != 0
}

// Set sets bit in place.
func (m *Mask64) Set(bit int) {
	if bit < 0 || bit >= 64 {
		return
	}
	*m |= 1 << bit
}

// Clear clears bit in place.
func (m *Mask64) Clear(bit int) {
	if bit < 0 || bit >= 64 {
		return
	}
	*m &^= 1 << bit
}

// Raw returns the underlying word.
func (m Mask64) Raw() uint64 {
	return uint64(m)
}
