package dice

import (
	"crypto/rand"
	mrand "math/rand/v2"
	"sync"
)

// lockedSource serializes access to a math/rand/v2 generator so one Source can
// be shared by the damage resolver and the scripting modules.
type lockedSource struct {
	mu  sync.Mutex
	rng *mrand.Rand
}

// NewCryptoSource returns a Source drawing from a ChaCha8 stream keyed by crypto/rand.
//
// Postcondition: Every value returned by Intn is in [0, n).
func NewCryptoSource() Source {
	var key [32]byte
	if _, err := rand.Read(key[:]); err != nil {
		panic("dice: crypto/rand failure: " + err.Error())
	}
	return &lockedSource{rng: mrand.New(mrand.NewChaCha8(key))}
}

// NewSeededSource returns a deterministic Source: equal seeds yield equal sequences.
func NewSeededSource(seed uint64) Source {
	return &lockedSource{rng: mrand.New(mrand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Intn returns a pseudo-random int in [0, n).
//
// Precondition: n > 0. Panics with "dice: Intn called with n <= 0" if n <= 0.
func (s *lockedSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}
