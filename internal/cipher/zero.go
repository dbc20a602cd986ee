package cipher

// Zero overwrites a byte slice in memory with zeros. Callers use it to
// retire key material as soon as it is no longer needed.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
