package engine

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
)

const (
	DiceMin = 1
	DiceMax = 6
)

// Roller is a source of six-sided die values. Swap it for a scripted one to
// make a session deterministic.
type Roller interface {
	Roll() int
}

// RandomRoller draws uniformly from [DiceMin, DiceMax]. Not safe for concurrent
// use; the Engine serialises access.
type RandomRoller struct {
	rng *rand.Rand
}

// NewRandomRoller returns a roller seeded with seed. The same seed replays the same rolls.
func NewRandomRoller(seed int64) *RandomRoller {
	return &RandomRoller{rng: rand.New(rand.NewSource(seed))}
}

// Roll returns a value in [DiceMin, DiceMax].
func (r *RandomRoller) Roll() int {
	return r.rng.Intn(DiceMax-DiceMin+1) + DiceMin
}

// ScriptedRoller replays a fixed sequence of values, starting over when exhausted.
type ScriptedRoller struct {
	values []int
	next   int
}

// NewScriptedRoller returns a roller that yields values in order.
func NewScriptedRoller(values ...int) (*ScriptedRoller, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: scripted roller needs at least one value", ErrInvalidConfiguration)
	}
	for _, v := range values {
		if v < DiceMin || v > DiceMax {
			return nil, fmt.Errorf("%w: die value %d not in [%d,%d]", ErrInvalidConfiguration, v, DiceMin, DiceMax)
		}
	}
	return &ScriptedRoller{values: append([]int(nil), values...)}, nil
}

// Roll returns the next scripted value.
func (r *ScriptedRoller) Roll() int {
	v := r.values[r.next]
	r.next = (r.next + 1) % len(r.values)
	return v
}

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}
