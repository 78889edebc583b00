package qkd

import (
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/qsimlab/qkdsim/qkd/bitarray"
)

// Parameters echoes the effective run configuration, including the resolved
// random seed, so that a record fully describes how to reproduce itself.
type Parameters struct {
	QubitCount              int
	EavesdropProbability    float64
	ChannelNoiseProbability float64
	DisclosedSampleFraction float64
	QBERThreshold           float64
	Seed                    int64
}

// A SecurityLevel grades how far the observed error rate sits from the
// rejection threshold.
type SecurityLevel string

const (
	SecurityHigh   SecurityLevel = "high"
	SecurityMedium SecurityLevel = "medium"
	SecurityLow    SecurityLevel = "low"
)

func gradeSecurity(qber, threshold float64) SecurityLevel {
	switch {
	case qber < 0.05:
		return SecurityHigh
	case qber <= threshold:
		return SecurityMedium
	default:
		return SecurityLow
	}
}

// A RunRecord is the terminal artifact of one simulated run: protocol,
// parameters, transcript, reconciliation outcome, final key and the
// security verdict. It is immutable once the reporter finalizes it.
type RunRecord struct {
	ID             uuid.UUID
	Protocol       Protocol
	Parameters     Parameters
	Transcript     Transcript
	Reconciliation ReconciliationResult
	FinalKey       bitarray.Dense
	QBER           float64
	Secure         bool
	SecurityLevel  SecurityLevel
	Phase          Phase
	Summary        TranscriptSummary
}

// Struct renders the record as the structured, serializable contract
// consumed by presentation layers.
func (r *RunRecord) Struct() (*structpb.Struct, error) {
	key := make([]interface{}, 0, r.FinalKey.Size())
	for _, b := range r.FinalKey.Bits() {
		key = append(key, b)
	}
	return structpb.NewStruct(map[string]interface{}{
		"id":       r.ID.String(),
		"protocol": r.Protocol.String(),
		"parameters": map[string]interface{}{
			"qubit_count":               r.Parameters.QubitCount,
			"eavesdrop_probability":     r.Parameters.EavesdropProbability,
			"channel_noise_probability": r.Parameters.ChannelNoiseProbability,
			"disclosed_sample_fraction": r.Parameters.DisclosedSampleFraction,
			"qber_threshold":            r.Parameters.QBERThreshold,
			"random_seed":               fmt.Sprintf("%d", r.Parameters.Seed),
		},
		"sifted_key_length": r.Reconciliation.SiftedSender.Size(),
		"qber":              r.QBER,
		"final_key":         key,
		"secure":            r.Secure,
		"security_level":    string(r.SecurityLevel),
		"phase":             r.Phase.String(),
		"transcript_summary": map[string]interface{}{
			"qubit_count": r.Summary.QubitCount,
			"intercepted": r.Summary.Intercepted,
			"noise_flips": r.Summary.NoiseFlips,
			"sifted":      r.Summary.SiftedLength,
			"discarded":   r.Summary.DiscardedCount,
			"disclosed":   r.Summary.DisclosedCount,
			"bell_s":      r.Reconciliation.BellS,
		},
	})
}

// MarshalJSON serializes the record through its structpb form.
func (r *RunRecord) MarshalJSON() ([]byte, error) {
	s, err := r.Struct()
	if err != nil {
		return nil, err
	}
	return protojson.Marshal(s)
}

// reporter assembles the terminal RunRecord. The first report call
// finalizes the record; afterwards it is returned unchanged and no further
// mutation is permitted.
type reporter struct {
	rec *RunRecord
}

func (rp *reporter) report(e *Engine, tr Transcript, rec ReconciliationResult, key bitarray.Dense) (*RunRecord, error) {
	if rp.rec != nil {
		return rp.rec, nil
	}
	id, err := uuid.NewRandomFromReader(e.rng)
	if err != nil {
		return nil, fmt.Errorf("assigning run id: %w", err)
	}
	rp.rec = &RunRecord{
		ID:       id,
		Protocol: e.cfg.Protocol,
		Parameters: Parameters{
			QubitCount:              e.cfg.QubitCount,
			EavesdropProbability:    e.cfg.EavesdropProbability,
			ChannelNoiseProbability: e.cfg.ChannelNoiseProbability,
			DisclosedSampleFraction: e.cfg.DisclosedSampleFraction,
			QBERThreshold:           e.cfg.QBERThreshold,
			Seed:                    e.seed,
		},
		Transcript:     tr,
		Reconciliation: rec,
		FinalKey:       key,
		QBER:           rec.QBER,
		Secure:         e.phase == PhaseAccepted,
		SecurityLevel:  gradeSecurity(rec.QBER, e.cfg.QBERThreshold),
		Phase:          e.phase,
		Summary:        summarize(tr, rec),
	}
	return rp.rec, nil
}
