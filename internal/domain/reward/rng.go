package reward

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
)

// RandomSource supplies the randomness for a draw. Implementations must
// return values in [0, 1). Thread safety is the caller's concern; a
// fresh per-call source sidesteps it entirely.
type RandomSource interface {
	Float64() float64
}

// cryptoSource is the production default: 53 uniform bits from the OS
// CSPRNG per draw.
type cryptoSource struct{}

func (cryptoSource) Float64() float64 {
	var buf [8]byte
	if _, err := cryptorand.Read(buf[:]); err != nil {
		// The OS entropy source failing is effectively unrecoverable;
		// fall back to the seeded generator rather than panicking.
		return rand.Float64()
	}
	u := binary.BigEndian.Uint64(buf[:]) >> 11
	return float64(u) / (1 << 53)
}

// DefaultSource returns the crypto-backed random source.
func DefaultSource() RandomSource { return cryptoSource{} }

type seededSource struct {
	r *rand.Rand
}

// NewSeededSource returns a reproducible PCG-backed source for
// simulation and tests.
func NewSeededSource(seed uint64) RandomSource {
	return &seededSource{r: rand.New(rand.NewPCG(seed, 0))}
}

func (s *seededSource) Float64() float64 { return s.r.Float64() }

// FixedSource returns the given values in order and then repeats the
// last one. Useful for exercising exact draw boundaries.
func FixedSource(values ...float64) RandomSource {
	return &fixedSource{values: values}
}

type fixedSource struct {
	values []float64
	idx    int
}

func (f *fixedSource) Float64() float64 {
	if len(f.values) == 0 {
		return 0
	}
	v := f.values[f.idx]
	if f.idx < len(f.values)-1 {
		f.idx++
	}
	return v
}
