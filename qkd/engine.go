package qkd

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"

	"github.com/qsimlab/qkdsim/qkd/bitarray"
	"github.com/qsimlab/qkdsim/qkd/channel"
	"github.com/qsimlab/qkdsim/qkd/qubit"
)

// A driver supplies the protocol-specific preparation, transmission and
// keep-rule semantics behind the shared phase sequence.
type driver interface {
	// prepare chooses bits, bases or measurement settings for every round.
	prepare() error

	// transmit drives every unit through the channel and records the
	// transcript.
	transmit() (Transcript, error)

	// siftMask evaluates the protocol's keep-rule over the transcript once
	// bases are disclosed, returning a mask of positions to keep.
	siftMask(Transcript) bitarray.Dense

	// flipReceiver reports whether the receiver complements kept bits to
	// reach key agreement (anti-correlated pair sources).
	flipReceiver() bool
}

// A bellEstimator is implemented by drivers that retain
// mismatched-but-compatible measurement settings for a Bell-inequality
// statistic instead of discarding them.
type bellEstimator interface {
	bellStatistic(Transcript) float64
}

// An Engine executes one simulated key-exchange run. Engines are exclusive
// to a single run and must not be shared: each owns its random source,
// channel, eavesdropper and transcript.
type Engine struct {
	cfg   Config
	seed  int64
	rng   *rand.Rand
	eve   *channel.Eavesdropper
	ch    *channel.Channel
	drv   driver
	phase Phase
	rep   reporter
}

// NewEngine validates cfg and assembles an engine for it.
func NewEngine(cfg Config) (*Engine, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	seed, err := resolveSeed(cfg.RandomSeed)
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(seed))

	var eve *channel.Eavesdropper
	if cfg.EavesdropProbability > 0 {
		eve, err = channel.NewEavesdropper(cfg.EavesdropProbability, rng)
		if err != nil {
			return nil, err
		}
	}
	ch, err := channel.New(cfg.ChannelNoiseProbability, eve, rng)
	if err != nil {
		return nil, err
	}

	keyBits := parseKeyBits(cfg.KeyBits, cfg.QubitCount)
	var drv driver
	switch cfg.Protocol {
	case BB84:
		drv = &bb84Driver{n: cfg.QubitCount, rng: rng, ch: ch, keyBits: keyBits}
	case E91:
		drv = &e91Driver{n: cfg.QubitCount, rng: rng, ch: ch}
	case BBM92:
		drv = &bbm92Driver{n: cfg.QubitCount, rng: rng, ch: ch}
	case Teleportation:
		drv = &teleportDriver{n: cfg.QubitCount, rng: rng, ch: ch, keyBits: keyBits}
	}

	return &Engine{cfg: cfg, seed: seed, rng: rng, eve: eve, ch: ch, drv: drv}, nil
}

// Phase returns the engine's current position in the protocol state
// machine.
func (e *Engine) Phase() Phase {
	return e.phase
}

// Run executes the full phase sequence and returns the finalized record.
// A run either fully completes, accepted or rejected, or returns an error
// without producing any record.
func (e *Engine) Run() (*RunRecord, error) {
	if e.phase != PhaseInit {
		return nil, ErrEngineConsumed
	}

	e.phase = PhasePreparing
	if err := e.drv.prepare(); err != nil {
		return nil, fmt.Errorf("preparing %v run: %w", e.cfg.Protocol, err)
	}

	e.phase = PhaseTransmitting
	transcript, err := e.drv.transmit()
	if err != nil {
		return nil, fmt.Errorf("transmitting %v run: %w", e.cfg.Protocol, err)
	}

	e.phase = PhaseDisclosingBases
	mask := e.drv.siftMask(transcript)

	e.phase = PhaseSifting
	sender, receiver, discarded := siftTranscript(transcript, mask, e.drv.flipReceiver())

	e.phase = PhaseEstimatingError
	qber, disclosed, err := estimateQBER(sender, receiver,
		e.cfg.DisclosedSampleFraction, e.cfg.MinSiftedBits, e.rng)
	if err != nil {
		return nil, err
	}
	key := finalizeKey(sender, disclosed)

	rec := ReconciliationResult{
		SiftedSender:   sender,
		SiftedReceiver: receiver,
		DiscardedCount: discarded,
		DisclosedCount: disclosed.CountOnes(),
		QBER:           qber,
	}
	if be, ok := e.drv.(bellEstimator); ok {
		rec.BellS = be.bellStatistic(transcript)
	}

	if qber > e.cfg.QBERThreshold {
		e.phase = PhaseRejected
	} else {
		e.phase = PhaseAccepted
	}
	return e.rep.report(e, transcript, rec, key)
}

// Run is a convenience wrapper constructing a fresh engine for cfg and
// executing it.
func Run(cfg Config) (*RunRecord, error) {
	e, err := NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	return e.Run()
}

func resolveSeed(seed *int64) (int64, error) {
	if seed != nil {
		return *seed, nil
	}
	var buf [8]byte
	if _, err := cryptorand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("seeding run: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(buf[:])), nil
}

func parseKeyBits(s string, n int) []qubit.Bit {
	if s == "" {
		return nil
	}
	bits := make([]qubit.Bit, n)
	for i := 0; i < n; i++ {
		if s[i] == '1' {
			bits[i] = 1
		}
	}
	return bits
}
