// Package rng is the game's shared pseudo random generator. Replays are only
// identical when every consumer draws from it in the same order.
package rng

import (
	"fmt"
	"strings"
)

// SeedStringLen is the length of the textual seed form.
const SeedStringLen = 16

// Random holds three 16-bit words of state.
type Random struct {
	state [3]uint16
}

// New seeds the generator from three words.
func New(a, b, c uint16) *Random {
	return &Random{state: [3]uint16{a, b, c}}
}

// NewFromBase derives all three words from a single value.
func NewFromBase(base uint16) *Random {
	return New(base, (base<<5)|(base>>11), (base<<10)|(base>>6))
}

// Parse seeds the generator from a 16 character string of digits 1..8,
// three bits per character, least significant character first.
func Parse(s string) (*Random, error) {
	s = strings.TrimSpace(s)
	if len(s) != SeedStringLen {
		return nil, fmt.Errorf("rng: seed %q must have %d characters", s, SeedStringLen)
	}
	var tmp uint64
	for i := SeedStringLen - 1; i >= 0; i-- {
		c := s[i]
		if c < '1' || c > '8' {
			return nil, fmt.Errorf("rng: seed %q: invalid character %q", s, c)
		}
		tmp <<= 3
		tmp |= uint64(c - '1')
	}
	return New(uint16(tmp), uint16(tmp>>16), uint16(tmp>>32)), nil
}

// Next advances the generator and returns the next value.
func (r *Random) Next() uint16 {
	s := &r.state
	v := (s[0] + s[1]) ^ s[2]
	s[2] += s[1]
	s[1] ^= s[2]
	s[1] = (s[1] >> 1) | (s[1] << 15)
	s[2] = (s[2] >> 1) | (s[2] << 15)
	s[0] = v
	return v
}

// Words returns the raw state for persistence.
func (r *Random) Words() [3]uint16 { return r.state }

// Mix combines another generator's state into r (used when seeding per-player streams).
func (r *Random) Mix(o *Random) {
	r.state[0] ^= o.state[0]
	r.state[1] ^= o.state[1]
	r.state[2] ^= o.state[2]
}

// String renders the state in the form accepted by Parse.
func (r *Random) String() string {
	tmp := uint64(r.state[0]) | uint64(r.state[1])<<16 | uint64(r.state[2])<<32
	var b strings.Builder
	for i := 0; i < SeedStringLen; i++ {
		b.WriteByte(byte('1' + tmp&7))
		tmp >>= 3
	}
	return b.String()
}
