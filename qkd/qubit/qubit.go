// Package qubit models single qubits and entangled pairs classically: a unit
// carries its preparation statistics rather than a state vector, and
// measurement draws from the cos² law relating preparation and measurement
// polarization angles. The no-cloning property is modeled by making every
// unit terminal after one measurement.
package qubit

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

var (
	// ErrInvalidBasis is returned when a basis outside the protocol's
	// recognized set is used for preparation or measurement.
	ErrInvalidBasis = errors.New("invalid basis")

	// ErrAlreadyMeasured is returned when a unit is measured, or otherwise
	// operated on, after its one permitted measurement.
	ErrAlreadyMeasured = errors.New("unit already measured")
)

// A Bit is a classical binary value produced by preparation or measurement.
type Bit uint8

// A Basis is one of the two polarization bases recognized by the two-basis
// protocols. E91's wider angle set is expressed directly as polarization
// angles, see Unit.MeasureAngle.
type Basis int

const (
	Rectilinear Basis = iota
	Diagonal
)

// Angle returns the polarization angle, in radians, at which b encodes a
// zero bit.
func (b Basis) Angle() float64 {
	if b == Diagonal {
		return math.Pi / 4
	}
	return 0
}

func (b Basis) String() string {
	switch b {
	case Rectilinear:
		return "rectilinear"
	case Diagonal:
		return "diagonal"
	default:
		return fmt.Sprintf("basis(%d)", int(b))
	}
}

// A Correlation fixes the joint measurement statistics of an entangled pair
// at creation time.
type Correlation int

const (
	// Correlated pairs yield equal outcomes under matching measurement
	// angles.
	Correlated Correlation = iota
	// AntiCorrelated pairs yield opposite outcomes under matching
	// measurement angles.
	AntiCorrelated
)

// pairState is the correlation descriptor shared by the two halves of an
// entangled pair. The first half measured fixes an outcome; the second
// half's statistics derive from that outcome and the angle between the two
// measurements. Both halves drop their reference once measured.
type pairState struct {
	corr       Correlation
	measured   bool
	firstAngle float64
	firstBit   Bit
}

// A Unit is a single qubit: either an independently prepared state or one
// half of an entangled pair. A Unit may be measured exactly once.
type Unit struct {
	angle    float64
	bit      Bit
	pair     *pairState
	flipped  bool
	measured bool
}

// Prepare constructs a unit holding bit in one of the two recognized bases.
func Prepare(bit Bit, b Basis) (*Unit, error) {
	if b != Rectilinear && b != Diagonal {
		return nil, fmt.Errorf("preparing in %v: %w", b, ErrInvalidBasis)
	}
	return PrepareAngle(bit, b.Angle()), nil
}

// PrepareAngle constructs a unit holding bit at an arbitrary polarization
// angle.
func PrepareAngle(bit Bit, angle float64) *Unit {
	return &Unit{angle: angle, bit: bit & 1}
}

// NewEntangledPair constructs two units whose joint measurement statistics
// are fixed by corr. The halves may be measured independently, in any
// order, by different parties.
func NewEntangledPair(corr Correlation) (*Unit, *Unit) {
	p := &pairState{corr: corr}
	return &Unit{pair: p}, &Unit{pair: p}
}

// Measured reports whether u has already been consumed by a measurement.
func (u *Unit) Measured() bool {
	return u.measured
}

// Depolarize marks u so that its eventual measurement outcome is flipped.
// The channel uses this to model depolarizing noise as a post-measurement
// bit flip, independent of basis choice.
func (u *Unit) Depolarize() {
	u.flipped = !u.flipped
}

// Measure collapses u in one of the two recognized bases.
func (u *Unit) Measure(b Basis, rng *rand.Rand) (Bit, error) {
	if b != Rectilinear && b != Diagonal {
		return 0, fmt.Errorf("measuring in %v: %w", b, ErrInvalidBasis)
	}
	return u.MeasureAngle(b.Angle(), rng)
}

// MeasureAngle collapses u at an arbitrary measurement angle. If u was
// prepared at the same angle the outcome is deterministic; at angle
// difference Δ the prepared bit is read with probability cos²Δ, which is
// uniform for the 45° basis mismatch of the two-basis protocols. Measuring
// the second half of an entangled pair follows the pair's correlation
// descriptor against the first half's outcome. A second measurement of the
// same unit fails with ErrAlreadyMeasured.
func (u *Unit) MeasureAngle(angle float64, rng *rand.Rand) (Bit, error) {
	if u.measured {
		return 0, ErrAlreadyMeasured
	}
	u.measured = true

	var out Bit
	switch {
	case u.pair == nil:
		out = readThrough(u.bit, u.angle, angle, rng)
	case !u.pair.measured:
		out = Bit(rng.Intn(2))
		u.pair.measured = true
		u.pair.firstAngle = angle
		u.pair.firstBit = out
		u.pair = nil
	default:
		expected := u.pair.firstBit
		if u.pair.corr == AntiCorrelated {
			expected ^= 1
		}
		out = readThrough(expected, u.pair.firstAngle, angle, rng)
		u.pair = nil
	}

	if u.flipped {
		out ^= 1
	}
	return out, nil
}

// readThrough draws the outcome of reading a bit encoded at angle prep with
// an analyzer at angle meas: the encoded bit with probability cos²Δ, its
// complement otherwise.
func readThrough(bit Bit, prep, meas float64, rng *rand.Rand) Bit {
	c := math.Cos(prep - meas)
	if rng.Float64() < c*c {
		return bit
	}
	return bit ^ 1
}
