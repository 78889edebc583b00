package qkd

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat"

	"github.com/qsimlab/qkdsim/qkd/bitarray"
	"github.com/qsimlab/qkdsim/qkd/channel"
	"github.com/qsimlab/qkdsim/qkd/qubit"
)

// E91 measurement settings, as polarization angles. The parties share the
// 22.5° and 45° analyzers, whose coincidences form the key; the four
// combinations of the sender's {0°, 45°} with the receiver's {22.5°, 67.5°}
// feed the CHSH statistic instead of being discarded.
var (
	e91SenderAngles   = []float64{0, math.Pi / 8, math.Pi / 4}
	e91ReceiverAngles = []float64{math.Pi / 8, math.Pi / 4, 3 * math.Pi / 8}
)

// e91Driver implements Ekert's entanglement-based protocol: a source emits
// correlated pairs, each party measures its half at an independently random
// setting from its angle set, and equal-angle coincidences are kept for key
// material.
type e91Driver struct {
	n   int
	rng *rand.Rand
	ch  *channel.Channel

	senderSettings   []int
	receiverSettings []int
}

func (d *e91Driver) prepare() error {
	d.senderSettings = make([]int, d.n)
	d.receiverSettings = make([]int, d.n)
	for i := 0; i < d.n; i++ {
		d.senderSettings[i] = d.rng.Intn(len(e91SenderAngles))
		d.receiverSettings[i] = d.rng.Intn(len(e91ReceiverAngles))
	}
	return nil
}

func (d *e91Driver) transmit() (Transcript, error) {
	tr := make(Transcript, 0, d.n)
	for i := 0; i < d.n; i++ {
		half, other := qubit.NewEntangledPair(qubit.Correlated)
		fwd, transit, err := d.ch.Transmit(other)
		if err != nil {
			return nil, err
		}
		sent, err := half.MeasureAngle(e91SenderAngles[d.senderSettings[i]], d.rng)
		if err != nil {
			return nil, fmt.Errorf("measuring sender half %d: %w", i, err)
		}
		got, err := fwd.MeasureAngle(e91ReceiverAngles[d.receiverSettings[i]], d.rng)
		if err != nil {
			return nil, fmt.Errorf("measuring receiver half %d: %w", i, err)
		}
		tr = append(tr, ChannelEvent{
			Index:           i,
			SenderSetting:   d.senderSettings[i],
			ReceiverSetting: d.receiverSettings[i],
			SenderBit:       sent,
			ReceiverBit:     got,
			Intercepted:     transit.Intercepted,
			NoiseFlipped:    transit.NoiseFlipped,
		})
	}
	return tr, nil
}

// siftMask keeps the equal-angle coincidences: sender setting 1 with
// receiver setting 0 (both 22.5°) and sender 2 with receiver 1 (both 45°).
func (d *e91Driver) siftMask(tr Transcript) bitarray.Dense {
	var mask bitarray.Dense
	for _, ev := range tr {
		keep := (ev.SenderSetting == 1 && ev.ReceiverSetting == 0) ||
			(ev.SenderSetting == 2 && ev.ReceiverSetting == 1)
		mask.AppendBit(keep)
	}
	return mask
}

func (d *e91Driver) flipReceiver() bool {
	return false
}

// bellStatistic estimates the CHSH value
//
//	S = E(0°,22.5°) − E(0°,67.5°) + E(45°,22.5°) + E(45°,67.5°)
//
// over the settings combinations excluded from the key. An undisturbed
// correlated source approaches 2√2; interception collapses the pair and
// drags S toward the classical bound.
func (d *e91Driver) bellStatistic(tr Transcript) float64 {
	products := map[[2]int][]float64{}
	for _, ev := range tr {
		if ev.SenderSetting == 1 || ev.ReceiverSetting == 1 {
			continue
		}
		p := -1.0
		if ev.SenderBit == ev.ReceiverBit {
			p = 1.0
		}
		k := [2]int{ev.SenderSetting, ev.ReceiverSetting}
		products[k] = append(products[k], p)
	}
	corr := func(s, r int) float64 {
		vals := products[[2]int{s, r}]
		if len(vals) == 0 {
			return 0
		}
		return stat.Mean(vals, nil)
	}
	return corr(0, 0) - corr(0, 2) + corr(2, 0) + corr(2, 2)
}
