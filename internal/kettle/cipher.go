package kettle

// Permutation is the 256-entry state produced by Schedule.
// It is an array value so every copy owns its own state.
type Permutation [256]byte

// Schedule runs the key schedule over key and returns a fresh permutation.
// An empty key leaves the permutation at identity.
func Schedule(key []byte) Permutation {
	var p Permutation
	for i := range p {
		p[i] = byte(i)
	}
	if len(key) == 0 {
		return p
	}

	var j byte
	for i := 0; i < len(p); i++ {
		j += p[i] + key[i%len(key)]
		p[i], p[j] = p[j], p[i]
	}
	return p
}

// Crypt XORs in against the keystream generated from p.
// p is a value receiver: the caller's permutation is not modified.
func (p Permutation) Crypt(in []byte) []byte {
	out := make([]byte, len(in))
	var i, j byte
	for n, b := range in {
		i++
		j += p[i]
		p[i], p[j] = p[j], p[i]
		out[n] = b ^ p[p[i]+p[j]]
	}
	return out
}

// Cipher schedules key and crypts in with the resulting permutation.
// Applying Cipher twice with the same key restores the input.
func Cipher(key, in []byte) []byte {
	return Schedule(key).Crypt(in)
}
