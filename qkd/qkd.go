// Package qkd simulates quantum key distribution protocols (BB84, E91,
// BBM92 and a teleportation-based variant) over a classically modeled
// quantum channel. A protocol engine drives qubits (or entangled pairs)
// through the channel, reconciles bases, sifts, estimates the quantum bit
// error rate and renders a security verdict as an immutable RunRecord.
package qkd

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidProtocolParameters is returned when a run configuration is
	// rejected during validation.
	ErrInvalidProtocolParameters = errors.New("invalid protocol parameters")

	// ErrInsufficientSiftedBits is returned when sifting yields too few
	// bits to perform meaningful error estimation.
	ErrInsufficientSiftedBits = errors.New("insufficient sifted bits")

	// ErrEngineConsumed is returned when Run is called on an engine that
	// already completed a run. Engines are single-use; construct a new one
	// per run.
	ErrEngineConsumed = errors.New("engine already ran")
)

// Defaults applied by NewEngine when the corresponding Config field is left
// at its zero value.
var (
	DefaultQBERThreshold  = 0.11
	DefaultSampleFraction = 0.25
	DefaultMinSiftedBits  = 1
)

// A Protocol selects one of the four supported key-distribution protocols.
type Protocol int

const (
	BB84 Protocol = iota
	E91
	BBM92
	Teleportation
)

func (p Protocol) String() string {
	switch p {
	case BB84:
		return "bb84"
	case E91:
		return "e91"
	case BBM92:
		return "bbm92"
	case Teleportation:
		return "teleportation"
	default:
		return fmt.Sprintf("protocol(%d)", int(p))
	}
}

// ParseProtocol maps a protocol name, case-insensitively, to its Protocol
// value.
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(s) {
	case "bb84":
		return BB84, nil
	case "e91":
		return E91, nil
	case "bbm92":
		return BBM92, nil
	case "teleportation", "teleport":
		return Teleportation, nil
	default:
		return 0, fmt.Errorf("unknown protocol %q: %w", s, ErrInvalidProtocolParameters)
	}
}

// A Phase is one step of the shared protocol state machine. PhaseAccepted
// and PhaseRejected are terminal; both are successful completions
// distinguishing a security outcome, not errors.
type Phase int

const (
	PhaseInit Phase = iota
	PhasePreparing
	PhaseTransmitting
	PhaseDisclosingBases
	PhaseSifting
	PhaseEstimatingError
	PhaseAccepted
	PhaseRejected
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhasePreparing:
		return "preparing"
	case PhaseTransmitting:
		return "transmitting"
	case PhaseDisclosingBases:
		return "disclosing_bases"
	case PhaseSifting:
		return "sifting"
	case PhaseEstimatingError:
		return "estimating_error"
	case PhaseAccepted:
		return "accepted"
	case PhaseRejected:
		return "rejected"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// A Config packages together the arguments necessary to run one simulated
// key exchange. Zero values for DisclosedSampleFraction, QBERThreshold and
// MinSiftedBits select the package defaults.
type Config struct {
	// Protocol selects the engine to run.
	Protocol Protocol

	// QubitCount is the number of quantum units (or entangled pairs) to
	// exchange. Must be positive.
	QubitCount int

	// EavesdropProbability is the per-unit probability of an
	// intercept-resend attack. Zero disables the eavesdropper entirely.
	EavesdropProbability float64

	// ChannelNoiseProbability is the per-unit depolarizing noise
	// probability.
	ChannelNoiseProbability float64

	// DisclosedSampleFraction is the fraction of sifted bits publicly
	// disclosed for error estimation. Must lie in (0, 1); disclosed bits
	// are removed from the final key.
	DisclosedSampleFraction float64

	// QBERThreshold is the error rate above which the run is rejected.
	QBERThreshold float64

	// MinSiftedBits is the minimum sifted length required for error
	// estimation.
	MinSiftedBits int

	// RandomSeed, when non-nil, seeds the run's random source so the
	// entire run reproduces bit-for-bit. When nil a seed is drawn from
	// crypto/rand.
	RandomSeed *int64

	// KeyBits optionally fixes the sender's raw key material as a string
	// of '0'/'1' characters, at least QubitCount long. Supported for the
	// prepare-and-measure protocols (BB84, Teleportation); entanglement
	// sources cannot dictate outcomes.
	KeyBits string
}

// withDefaults returns a copy of c with zero-valued tunables replaced by
// the package defaults.
func (c Config) withDefaults() Config {
	if c.DisclosedSampleFraction == 0 {
		c.DisclosedSampleFraction = DefaultSampleFraction
	}
	if c.QBERThreshold == 0 {
		c.QBERThreshold = DefaultQBERThreshold
	}
	if c.MinSiftedBits == 0 {
		c.MinSiftedBits = DefaultMinSiftedBits
	}
	return c
}

func (c Config) validate() error {
	if c.Protocol < BB84 || c.Protocol > Teleportation {
		return fmt.Errorf("protocol %v: %w", c.Protocol, ErrInvalidProtocolParameters)
	}
	if c.QubitCount <= 0 {
		return fmt.Errorf("qubit count %d: %w", c.QubitCount, ErrInvalidProtocolParameters)
	}
	if c.EavesdropProbability < 0 || c.EavesdropProbability > 1 {
		return fmt.Errorf("eavesdrop probability %v: %w", c.EavesdropProbability, ErrInvalidProtocolParameters)
	}
	if c.DisclosedSampleFraction <= 0 || c.DisclosedSampleFraction >= 1 {
		return fmt.Errorf("disclosed sample fraction %v: %w", c.DisclosedSampleFraction, ErrInvalidProtocolParameters)
	}
	if c.QBERThreshold < 0 || c.QBERThreshold > 1 {
		return fmt.Errorf("qber threshold %v: %w", c.QBERThreshold, ErrInvalidProtocolParameters)
	}
	if c.MinSiftedBits < 1 {
		return fmt.Errorf("min sifted bits %d: %w", c.MinSiftedBits, ErrInvalidProtocolParameters)
	}
	if c.KeyBits != "" {
		if c.Protocol != BB84 && c.Protocol != Teleportation {
			return fmt.Errorf("key bits unsupported for %v: %w", c.Protocol, ErrInvalidProtocolParameters)
		}
		if len(c.KeyBits) < c.QubitCount {
			return fmt.Errorf("key bits length %d < qubit count %d: %w",
				len(c.KeyBits), c.QubitCount, ErrInvalidProtocolParameters)
		}
		for i := 0; i < len(c.KeyBits); i++ {
			if c.KeyBits[i] != '0' && c.KeyBits[i] != '1' {
				return fmt.Errorf("key bits must contain only 0s and 1s: %w", ErrInvalidProtocolParameters)
			}
		}
	}
	// Noise probability is validated by channel.New so that the error
	// taxonomy distinguishes it from general parameter misuse.
	return nil
}
