package mathx

import "math/rand/v2"

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Hash2 mixes a seed with two small integers into a well-distributed 64-bit value.
func Hash2(seed uint64, a, b int) uint64 {
	ua := uint64(uint32(int32(a)))
	ub := uint64(uint32(int32(b)))
	return mix64(seed ^ (ua * 0x9e3779b97f4a7c15) ^ (ub * 0xbf58476d1ce4e5b9))
}

// Stream returns the random stream for element i of the population identified by
// (seed, salt). Element i's stream never depends on how many elements exist.
func Stream(seed uint64, salt, i int) *rand.Rand {
	h := Hash2(seed, salt, i)
	return rand.New(rand.NewPCG(h, mix64(h)))
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
