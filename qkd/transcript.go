package qkd

import (
	"github.com/qsimlab/qkdsim/qkd/bitarray"
	"github.com/qsimlab/qkdsim/qkd/qubit"
)

// A ChannelEvent records one quantum unit's transit: what the sender put in,
// what the receiver got out, and what the channel did in between. Immutable
// once created.
type ChannelEvent struct {
	Index int

	SenderBasis   qubit.Basis
	ReceiverBasis qubit.Basis

	// SenderSetting/ReceiverSetting index into the protocol's measurement
	// angle set for E91; zero for the two-basis protocols.
	SenderSetting   int
	ReceiverSetting int

	SenderBit   qubit.Bit
	ReceiverBit qubit.Bit

	// CorrectionX/CorrectionZ are the classical correction bits disclosed
	// by the teleportation protocol's Bell measurement.
	CorrectionX qubit.Bit
	CorrectionZ qubit.Bit

	Intercepted  bool
	NoiseFlipped bool
}

// A Transcript is the full ordered sequence of ChannelEvents for one run.
type Transcript []ChannelEvent

// A TranscriptSummary condenses a transcript for reporting.
type TranscriptSummary struct {
	QubitCount     int
	Intercepted    int
	NoiseFlips     int
	SiftedLength   int
	DiscardedCount int
	DisclosedCount int
}

func summarize(tr Transcript, rec ReconciliationResult) TranscriptSummary {
	s := TranscriptSummary{
		QubitCount:     len(tr),
		SiftedLength:   rec.SiftedSender.Size(),
		DiscardedCount: rec.DiscardedCount,
		DisclosedCount: rec.DisclosedCount,
	}
	for _, ev := range tr {
		if ev.Intercepted {
			s.Intercepted++
		}
		if ev.NoiseFlipped {
			s.NoiseFlips++
		}
	}
	return s
}

// senderBits/receiverBits expand one party's measured bits out of the
// transcript, in original order.
func senderBits(tr Transcript) bitarray.Dense {
	var d bitarray.Dense
	for _, ev := range tr {
		d.AppendBit(ev.SenderBit == 1)
	}
	return d
}

func receiverBits(tr Transcript) bitarray.Dense {
	var d bitarray.Dense
	for _, ev := range tr {
		d.AppendBit(ev.ReceiverBit == 1)
	}
	return d
}
