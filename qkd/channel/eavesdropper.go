package channel

import (
	"fmt"
	"math/rand"

	"github.com/qsimlab/qkdsim/qkd/qubit"
)

// An Observation is one bit Eve learned from an intercepted unit.
type Observation struct {
	Basis qubit.Basis
	Bit   qubit.Bit
}

// An Eavesdropper mounts an intercept-resend attack: with the configured
// probability it measures an in-transit unit in a uniformly chosen basis
// and forwards a fresh unit re-prepared with the observed bit in the
// observed basis. It never learns the legitimate parties' basis choices;
// its presence shows up only as elevated QBER. Intercepting one half of an
// entangled pair collapses the pair, so the forwarded product state carries
// only Eve's-chosen-basis statistics on that leg.
type Eavesdropper struct {
	interceptProb float64
	rng           *rand.Rand
	observations  []Observation
}

// NewEavesdropper returns an intercept-resend adversary attacking each unit
// independently with probability interceptProb.
func NewEavesdropper(interceptProb float64, rng *rand.Rand) (*Eavesdropper, error) {
	if interceptProb < 0 || interceptProb > 1 {
		return nil, fmt.Errorf("intercept %v: %w", interceptProb, ErrInvalidInterceptProbability)
	}
	return &Eavesdropper{interceptProb: interceptProb, rng: rng}, nil
}

// Tap gives e a chance at the in-transit unit u. It returns the unit to
// forward to the receiver and, when the unit was intercepted, the
// observation Eve recorded.
func (e *Eavesdropper) Tap(u *qubit.Unit) (*qubit.Unit, *Observation, error) {
	if e.rng.Float64() >= e.interceptProb {
		return u, nil, nil
	}
	basis := qubit.Basis(e.rng.Intn(2))
	bit, err := u.Measure(basis, e.rng)
	if err != nil {
		return nil, nil, fmt.Errorf("intercepting unit: %w", err)
	}
	e.observations = append(e.observations, Observation{Basis: basis, Bit: bit})
	resent, err := qubit.Prepare(bit, basis)
	if err != nil {
		return nil, nil, err
	}
	return resent, &e.observations[len(e.observations)-1], nil
}

// Observations returns everything e has recorded so far.
func (e *Eavesdropper) Observations() []Observation {
	return e.observations
}
