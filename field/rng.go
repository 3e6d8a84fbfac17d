package field

// RNG is the deterministic linear congruential generator of spec §4.1.3.
// Every field initialised with the same seed and fed the same inputs
// generates the same draw sequence, which is the whole basis of the
// lock-step netplay model: peers never exchange grid state, only seeds and
// inputs, and must therefore never diverge in how many times they call Next.
type RNG struct {
	seed uint64
}

// NewRNG returns an RNG seeded exactly as given; no mixing or hashing is
// applied to the seed, since peers must reproduce this value bit-for-bit.
func NewRNG(seed uint64) *RNG {
	return &RNG{seed: seed}
}

// Seed returns the generator's current internal seed.
func (r *RNG) Seed() uint64 { return r.seed }

// SetSeed overwrites the generator's internal seed, used only when a field is
// reconstructed from a PlayerField packet.
func (r *RNG) SetSeed(seed uint64) { r.seed = seed }

// Next draws the next value in [0, 32768) and advances the internal seed.
func (r *RNG) Next() int {
	r.seed = 1103515245*r.seed + 12345
	return int((r.seed / 65536) % 32768)
}

// Intn draws a uniform value in [0, n) by rejection-free modulo reduction.
// n must be in (0, 32768].
func (r *RNG) Intn(n int) int {
	return r.Next() % n
}
