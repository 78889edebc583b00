package qubit

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func TestPrepareInvalidBasis(t *testing.T) {
	if _, err := Prepare(0, Basis(7)); !errors.Is(err, ErrInvalidBasis) {
		t.Errorf("Prepare with bogus basis returned %v, want ErrInvalidBasis", err)
	}
}

func TestMeasureMatchingBasis(t *testing.T) {
	tcs := []struct {
		name  string
		bit   Bit
		basis Basis
	}{
		{name: "zero rectilinear", bit: 0, basis: Rectilinear},
		{name: "one rectilinear", bit: 1, basis: Rectilinear},
		{name: "zero diagonal", bit: 0, basis: Diagonal},
		{name: "one diagonal", bit: 1, basis: Diagonal},
	}
	rng := rand.New(rand.NewSource(42))
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			for i := 0; i < 100; i++ {
				u, err := Prepare(tc.bit, tc.basis)
				if err != nil {
					t.Fatalf("Prepare(%d, %v): %v", tc.bit, tc.basis, err)
				}
				got, err := u.Measure(tc.basis, rng)
				if err != nil {
					t.Fatalf("Measure(%v): %v", tc.basis, err)
				}
				if got != tc.bit {
					t.Fatalf("matching-basis measurement returned %d, want %d", got, tc.bit)
				}
			}
		})
	}
}

func TestMeasureMismatchedBasisIsUniform(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const trials = 10000
	ones := 0
	for i := 0; i < trials; i++ {
		u, err := Prepare(0, Rectilinear)
		if err != nil {
			t.Fatalf("Prepare: %v", err)
		}
		got, err := u.Measure(Diagonal, rng)
		if err != nil {
			t.Fatalf("Measure: %v", err)
		}
		ones += int(got)
	}
	if ones < 4700 || ones > 5300 {
		t.Errorf("mismatched-basis measurement returned %d ones over %d trials, want ~%d", ones, trials, trials/2)
	}
}

func TestMeasureIsOneShot(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	u, err := Prepare(1, Diagonal)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if _, err := u.Measure(Diagonal, rng); err != nil {
		t.Fatalf("first Measure: %v", err)
	}
	if !u.Measured() {
		t.Error("unit not marked measured after measurement")
	}
	if _, err := u.Measure(Diagonal, rng); !errors.Is(err, ErrAlreadyMeasured) {
		t.Errorf("second Measure returned %v, want ErrAlreadyMeasured", err)
	}
}

func TestEntangledPairMatchingAngles(t *testing.T) {
	tcs := []struct {
		name     string
		corr     Correlation
		opposite bool
	}{
		{name: "correlated", corr: Correlated},
		{name: "anti-correlated", corr: AntiCorrelated, opposite: true},
	}
	rng := rand.New(rand.NewSource(23))
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			for i := 0; i < 200; i++ {
				basis := Basis(rng.Intn(2))
				a, b := NewEntangledPair(tc.corr)
				x, err := a.Measure(basis, rng)
				if err != nil {
					t.Fatalf("measuring first half: %v", err)
				}
				y, err := b.Measure(basis, rng)
				if err != nil {
					t.Fatalf("measuring second half: %v", err)
				}
				if tc.opposite && x == y {
					t.Fatalf("anti-correlated halves agreed under matching basis: %d == %d", x, y)
				}
				if !tc.opposite && x != y {
					t.Fatalf("correlated halves disagreed under matching basis: %d != %d", x, y)
				}
			}
		})
	}
}

func TestEntangledPairMismatchedAngles(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	const trials = 10000
	agree := 0
	for i := 0; i < trials; i++ {
		a, b := NewEntangledPair(Correlated)
		x, err := a.MeasureAngle(0, rng)
		if err != nil {
			t.Fatalf("measuring first half: %v", err)
		}
		y, err := b.MeasureAngle(math.Pi/4, rng)
		if err != nil {
			t.Fatalf("measuring second half: %v", err)
		}
		if x == y {
			agree++
		}
	}
	if agree < 4700 || agree > 5300 {
		t.Errorf("45°-separated halves agreed %d times over %d trials, want ~%d", agree, trials, trials/2)
	}
}

func TestEntangledHalvesAreOneShot(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	a, b := NewEntangledPair(Correlated)
	if _, err := a.Measure(Rectilinear, rng); err != nil {
		t.Fatalf("measuring first half: %v", err)
	}
	if _, err := a.Measure(Rectilinear, rng); !errors.Is(err, ErrAlreadyMeasured) {
		t.Errorf("remeasuring first half returned %v, want ErrAlreadyMeasured", err)
	}
	if _, err := b.Measure(Rectilinear, rng); err != nil {
		t.Fatalf("measuring second half: %v", err)
	}
	if _, err := b.Measure(Rectilinear, rng); !errors.Is(err, ErrAlreadyMeasured) {
		t.Errorf("remeasuring second half returned %v, want ErrAlreadyMeasured", err)
	}
}

func TestDepolarizeFlipsOutcome(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	u, err := Prepare(0, Rectilinear)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	u.Depolarize()
	got, err := u.Measure(Rectilinear, rng)
	if err != nil {
		t.Fatalf("Measure: %v", err)
	}
	if got != 1 {
		t.Errorf("depolarized matching-basis measurement returned %d, want 1", got)
	}

	u, err = Prepare(0, Rectilinear)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	u.Depolarize()
	u.Depolarize()
	got, err = u.Measure(Rectilinear, rng)
	if err != nil {
		t.Fatalf("Measure: %v", err)
	}
	if got != 0 {
		t.Errorf("doubly depolarized measurement returned %d, want 0", got)
	}
}
