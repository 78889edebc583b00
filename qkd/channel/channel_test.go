package channel

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/qsimlab/qkdsim/qkd/qubit"
)

func TestNewRejectsInvalidNoise(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, noise := range []float64{-0.1, 1.1} {
		if _, err := New(noise, nil, rng); !errors.Is(err, ErrInvalidNoiseProbability) {
			t.Errorf("New(noise=%v) returned %v, want ErrInvalidNoiseProbability", noise, err)
		}
	}
}

func TestNewEavesdropperRejectsInvalidProbability(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, p := range []float64{-0.01, 1.5} {
		if _, err := NewEavesdropper(p, rng); !errors.Is(err, ErrInvalidInterceptProbability) {
			t.Errorf("NewEavesdropper(%v) returned %v, want ErrInvalidInterceptProbability", p, err)
		}
	}
}

func TestFullNoiseAlwaysFlips(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	ch, err := New(1, nil, rng)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 50; i++ {
		u, err := qubit.Prepare(0, qubit.Rectilinear)
		if err != nil {
			t.Fatalf("Prepare: %v", err)
		}
		fwd, transit, err := ch.Transmit(u)
		if err != nil {
			t.Fatalf("Transmit: %v", err)
		}
		if !transit.NoiseFlipped {
			t.Fatal("transit through a noise=1 channel not marked flipped")
		}
		got, err := fwd.Measure(qubit.Rectilinear, rng)
		if err != nil {
			t.Fatalf("Measure: %v", err)
		}
		if got != 1 {
			t.Fatalf("noise=1 channel delivered %d, want flipped bit 1", got)
		}
	}
}

func TestZeroNoiseNeverFlips(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	ch, err := New(0, nil, rng)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 50; i++ {
		u, err := qubit.Prepare(1, qubit.Diagonal)
		if err != nil {
			t.Fatalf("Prepare: %v", err)
		}
		fwd, transit, err := ch.Transmit(u)
		if err != nil {
			t.Fatalf("Transmit: %v", err)
		}
		if transit.NoiseFlipped {
			t.Fatal("transit through a noiseless channel marked flipped")
		}
		got, err := fwd.Measure(qubit.Diagonal, rng)
		if err != nil {
			t.Fatalf("Measure: %v", err)
		}
		if got != 1 {
			t.Fatalf("noiseless channel delivered %d, want 1", got)
		}
	}
}

func TestEavesdropperAlwaysIntercepts(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	eve, err := NewEavesdropper(1, rng)
	if err != nil {
		t.Fatalf("NewEavesdropper: %v", err)
	}
	ch, err := New(0, eve, rng)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	const trials = 100
	for i := 0; i < trials; i++ {
		u, err := qubit.Prepare(1, qubit.Rectilinear)
		if err != nil {
			t.Fatalf("Prepare: %v", err)
		}
		fwd, transit, err := ch.Transmit(u)
		if err != nil {
			t.Fatalf("Transmit: %v", err)
		}
		if !transit.Intercepted {
			t.Fatal("transit past a full-probability eavesdropper not intercepted")
		}
		if fwd == u {
			t.Fatal("eavesdropper forwarded the original unit instead of a resent one")
		}
		if !u.Measured() {
			t.Fatal("intercepted unit not consumed by the eavesdropper's measurement")
		}
		if transit.EveBasis == qubit.Rectilinear && transit.EveBit != 1 {
			t.Fatalf("matching-basis interception observed %d, want 1", transit.EveBit)
		}
	}
	if got := len(eve.Observations()); got != trials {
		t.Errorf("eavesdropper recorded %d observations, want %d", got, trials)
	}
}

func TestEavesdropperZeroProbabilityPassesThrough(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	eve, err := NewEavesdropper(0, rng)
	if err != nil {
		t.Fatalf("NewEavesdropper: %v", err)
	}
	ch, err := New(0, eve, rng)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	u, err := qubit.Prepare(0, qubit.Diagonal)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	fwd, transit, err := ch.Transmit(u)
	if err != nil {
		t.Fatalf("Transmit: %v", err)
	}
	if transit.Intercepted {
		t.Error("zero-probability eavesdropper intercepted a unit")
	}
	if fwd != u {
		t.Error("untouched unit replaced in transit")
	}
	if len(eve.Observations()) != 0 {
		t.Errorf("idle eavesdropper recorded %d observations", len(eve.Observations()))
	}
}

// Intercepting one half of an anti-correlated pair should destroy the
// perfect disagreement the halves otherwise show under matching bases.
func TestInterceptionBreaksPairCorrelation(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	eve, err := NewEavesdropper(1, rng)
	if err != nil {
		t.Fatalf("NewEavesdropper: %v", err)
	}
	ch, err := New(0, eve, rng)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	const trials = 4000
	agree := 0
	for i := 0; i < trials; i++ {
		half, other := qubit.NewEntangledPair(qubit.AntiCorrelated)
		fwd, _, err := ch.Transmit(other)
		if err != nil {
			t.Fatalf("Transmit: %v", err)
		}
		x, err := half.Measure(qubit.Rectilinear, rng)
		if err != nil {
			t.Fatalf("measuring retained half: %v", err)
		}
		y, err := fwd.Measure(qubit.Rectilinear, rng)
		if err != nil {
			t.Fatalf("measuring forwarded half: %v", err)
		}
		if x == y {
			agree++
		}
	}
	// Intercept-resend leaves a quarter agreement rate where an untouched
	// anti-correlated pair would show none.
	frac := float64(agree) / float64(trials)
	if frac < 0.15 || frac > 0.35 {
		t.Errorf("intercepted pair halves agreed at rate %v, want ~0.25", frac)
	}
}
