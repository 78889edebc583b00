package qkd

import (
	"fmt"
	"math/rand"

	"github.com/qsimlab/qkdsim/qkd/bitarray"
)

// A ReconciliationResult is what basis reconciliation and error estimation
// derive from a transcript: both parties' sifted sequences, the disclosed
// sample accounting and the QBER estimate.
type ReconciliationResult struct {
	SiftedSender   bitarray.Dense
	SiftedReceiver bitarray.Dense
	DiscardedCount int
	DisclosedCount int
	QBER           float64

	// BellS is the CHSH statistic accumulated from E91's
	// mismatched-but-compatible angle pairs; zero for other protocols.
	BellS float64
}

// siftTranscript applies a protocol's keep-rule mask row by row over the
// transcript, preserving original order. flipReceiver complements the
// receiver's kept bits, which is how anti-correlated pair protocols reach
// key agreement. Sifting is a pure function of its inputs: re-running it
// over the same transcript yields the same sequences.
func siftTranscript(tr Transcript, mask bitarray.Dense, flipReceiver bool) (sender, receiver bitarray.Dense, discarded int) {
	sender = senderBits(tr).Select(mask)
	receiver = receiverBits(tr).Select(mask)
	if flipReceiver {
		receiver = receiver.Not()
	}
	return sender, receiver, len(tr) - sender.Size()
}

// estimateQBER discloses a random fraction of the sifted positions and
// returns the mismatch rate over them along with the disclosure mask.
// Disclosed bits are key material spent on estimation: the caller must
// remove them from the final key whether or not they matched.
func estimateQBER(sender, receiver bitarray.Dense, fraction float64, minSifted int, rng *rand.Rand) (qber float64, disclosed bitarray.Dense, err error) {
	n := sender.Size()
	if n < minSifted {
		return 0, bitarray.Empty(), fmt.Errorf("%d sifted bits, need at least %d: %w",
			n, minSifted, ErrInsufficientSiftedBits)
	}
	k := int(fraction * float64(n))
	if k == 0 {
		k = 1
	}
	disclosed = bitarray.NewDense(nil, n)
	for _, idx := range rng.Perm(n)[:k] {
		disclosed.Flip(idx)
	}
	mismatches := sender.Select(disclosed).XOr(receiver.Select(disclosed)).CountOnes()
	return float64(mismatches) / float64(k), disclosed, nil
}

// finalizeKey removes the disclosed positions from the sifted key,
// preserving original relative order.
func finalizeKey(sifted, disclosed bitarray.Dense) bitarray.Dense {
	return sifted.Select(disclosed.Not())
}
