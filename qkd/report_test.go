package qkd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRecordStruct(t *testing.T) {
	rec, err := Run(Config{
		Protocol:   BB84,
		QubitCount: 128,
		RandomSeed: seedPtr(11),
	})
	require.NoError(t, err)

	s, err := rec.Struct()
	require.NoError(t, err)
	fields := s.GetFields()

	assert.Equal(t, rec.ID.String(), fields["id"].GetStringValue())
	assert.Equal(t, "bb84", fields["protocol"].GetStringValue())
	assert.Equal(t, rec.QBER, fields["qber"].GetNumberValue())
	assert.Equal(t, rec.Secure, fields["secure"].GetBoolValue())
	assert.Equal(t, "accepted", fields["phase"].GetStringValue())
	assert.Equal(t, float64(rec.Reconciliation.SiftedSender.Size()),
		fields["sifted_key_length"].GetNumberValue())
	assert.Len(t, fields["final_key"].GetListValue().GetValues(), rec.FinalKey.Size())

	params := fields["parameters"].GetStructValue().GetFields()
	assert.Equal(t, float64(128), params["qubit_count"].GetNumberValue())
	assert.Equal(t, "11", params["random_seed"].GetStringValue())

	summary := fields["transcript_summary"].GetStructValue().GetFields()
	assert.Equal(t, float64(128), summary["qubit_count"].GetNumberValue())
	assert.Equal(t, float64(0), summary["intercepted"].GetNumberValue())
}

func TestRunRecordMarshalJSON(t *testing.T) {
	rec, err := Run(Config{
		Protocol:   E91,
		QubitCount: 90,
		RandomSeed: seedPtr(13),
	})
	require.NoError(t, err)

	raw, err := json.Marshal(rec)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "e91", decoded["protocol"])
	assert.Contains(t, decoded, "transcript_summary")
	assert.Contains(t, decoded, "final_key")
}

func TestGradeSecurity(t *testing.T) {
	tcs := []struct {
		name      string
		qber      float64
		threshold float64
		want      SecurityLevel
	}{
		{name: "clean", qber: 0, threshold: 0.11, want: SecurityHigh},
		{name: "just under the high bound", qber: 0.049, threshold: 0.11, want: SecurityHigh},
		{name: "between bound and threshold", qber: 0.08, threshold: 0.11, want: SecurityMedium},
		{name: "at the threshold", qber: 0.11, threshold: 0.11, want: SecurityMedium},
		{name: "over the threshold", qber: 0.2, threshold: 0.11, want: SecurityLow},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, gradeSecurity(tc.qber, tc.threshold))
		})
	}
}
