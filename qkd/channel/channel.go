// Package channel simulates transmission of quantum units across a noisy,
// possibly eavesdropped medium.
package channel

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/qsimlab/qkdsim/qkd/qubit"
)

var (
	// ErrInvalidNoiseProbability is returned for a noise probability
	// outside [0, 1].
	ErrInvalidNoiseProbability = errors.New("noise probability outside [0,1]")

	// ErrInvalidInterceptProbability is returned for an intercept
	// probability outside [0, 1].
	ErrInvalidInterceptProbability = errors.New("intercept probability outside [0,1]")
)

// A Transit records what happened to one unit on its way through the
// channel. Immutable once returned.
type Transit struct {
	Intercepted  bool
	EveBasis     qubit.Basis
	EveBit       qubit.Bit
	NoiseFlipped bool
}

// A Channel ferries units from sender to receiver, routing them through an
// optional eavesdropper and then applying depolarizing noise.
type Channel struct {
	noise float64
	eve   *Eavesdropper
	rng   *rand.Rand
}

// New returns a channel with the given noise probability. eve may be nil
// for an untapped channel.
func New(noise float64, eve *Eavesdropper, rng *rand.Rand) (*Channel, error) {
	if noise < 0 || noise > 1 {
		return nil, fmt.Errorf("noise %v: %w", noise, ErrInvalidNoiseProbability)
	}
	return &Channel{noise: noise, eve: eve, rng: rng}, nil
}

// Transmit carries u across the channel. The returned unit is the one the
// receiver should measure: the original, or the eavesdropper's resent
// replacement. With the configured noise probability the unit is marked so
// that its eventual measurement outcome is flipped.
func (c *Channel) Transmit(u *qubit.Unit) (*qubit.Unit, Transit, error) {
	var tr Transit
	if c.eve != nil {
		fwd, obs, err := c.eve.Tap(u)
		if err != nil {
			return nil, Transit{}, fmt.Errorf("eavesdropper tap: %w", err)
		}
		u = fwd
		if obs != nil {
			tr.Intercepted = true
			tr.EveBasis = obs.Basis
			tr.EveBit = obs.Bit
		}
	}
	if c.rng.Float64() < c.noise {
		u.Depolarize()
		tr.NoiseFlipped = true
	}
	return u, tr, nil
}
