package qkd

import (
	"fmt"
	"math/rand"

	"github.com/qsimlab/qkdsim/qkd/bitarray"
	"github.com/qsimlab/qkdsim/qkd/channel"
	"github.com/qsimlab/qkdsim/qkd/qubit"
)

// bb84Driver implements the original prepare-and-measure protocol: the
// sender encodes each raw key bit in an independently random basis, the
// receiver measures in its own random bases, and sifting keeps the
// positions where the disclosed bases match.
type bb84Driver struct {
	n       int
	rng     *rand.Rand
	ch      *channel.Channel
	keyBits []qubit.Bit

	senderBits    []qubit.Bit
	senderBases   []qubit.Basis
	receiverBases []qubit.Basis
}

func (d *bb84Driver) prepare() error {
	d.senderBits = make([]qubit.Bit, d.n)
	d.senderBases = make([]qubit.Basis, d.n)
	d.receiverBases = make([]qubit.Basis, d.n)
	for i := 0; i < d.n; i++ {
		if d.keyBits != nil {
			d.senderBits[i] = d.keyBits[i]
		} else {
			d.senderBits[i] = qubit.Bit(d.rng.Intn(2))
		}
		d.senderBases[i] = qubit.Basis(d.rng.Intn(2))
		d.receiverBases[i] = qubit.Basis(d.rng.Intn(2))
	}
	return nil
}

func (d *bb84Driver) transmit() (Transcript, error) {
	tr := make(Transcript, 0, d.n)
	for i := 0; i < d.n; i++ {
		u, err := qubit.Prepare(d.senderBits[i], d.senderBases[i])
		if err != nil {
			return nil, err
		}
		fwd, transit, err := d.ch.Transmit(u)
		if err != nil {
			return nil, err
		}
		got, err := fwd.Measure(d.receiverBases[i], d.rng)
		if err != nil {
			return nil, fmt.Errorf("measuring unit %d: %w", i, err)
		}
		tr = append(tr, ChannelEvent{
			Index:         i,
			SenderBasis:   d.senderBases[i],
			ReceiverBasis: d.receiverBases[i],
			SenderBit:     d.senderBits[i],
			ReceiverBit:   got,
			Intercepted:   transit.Intercepted,
			NoiseFlipped:  transit.NoiseFlipped,
		})
	}
	return tr, nil
}

// siftMask keeps positions where the two disclosed basis strings agree,
// computed as the XNOR of the parties' basis arrays.
func (d *bb84Driver) siftMask(tr Transcript) bitarray.Dense {
	var sb, rb bitarray.Dense
	for _, ev := range tr {
		sb.AppendBit(ev.SenderBasis == qubit.Diagonal)
		rb.AppendBit(ev.ReceiverBasis == qubit.Diagonal)
	}
	return sb.XNor(rb)
}

func (d *bb84Driver) flipReceiver() bool {
	return false
}
