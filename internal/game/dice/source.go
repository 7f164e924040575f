package dice

import (
	"crypto/rand"
	"math/big"
	mrand "math/rand/v2"
	"sync"
)

// Source yields die faces. Implementations must be safe for concurrent use.
type Source interface {
	// Intn returns a value in [0, n). Precondition: n > 0.
	Intn(n int) int
}

// NewCryptoSource returns the Source used for table rolls, backed by
// crypto/rand.
func NewCryptoSource() Source {
	return cryptoSource{}
}

type cryptoSource struct{}

// Intn panics when n <= 0 or when crypto/rand fails.
func (cryptoSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	val, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("dice: crypto/rand failure: " + err.Error())
	}
	return int(val.Int64())
}

// NewSeededSource returns a reproducible Source: two sources built from the
// same seed yield the same face sequence.
func NewSeededSource(seed uint64) Source {
	return &seededSource{rng: mrand.New(mrand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

type seededSource struct {
	mu  sync.Mutex
	rng *mrand.Rand
}

func (s *seededSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}
