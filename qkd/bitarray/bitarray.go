// Package bitarray provides utilities for operating on densely-packed
// sequences of bits, as produced by sifting and key finalization.
package bitarray

import (
	"math/bits"
	"math/rand"
	"strings"
)

const blockSize = 8

// A Dense is a bit array where every bit is explicitly represented.
type Dense struct {
	bits []byte
	len  int
}

// NewDense returns a new Dense whose data is a copy of data and whose length
// is bitLen. If bitLen is longer than data, trailing zeros are added. If
// bitLen is negative, it is inferred from data.
func NewDense(data []byte, bitLen int) Dense {
	if bitLen < 0 {
		bitLen = len(data) * blockSize
	}
	b := make([]byte, blocksFor(bitLen))
	copy(b, data)
	d := Dense{bits: b, len: bitLen}
	d.clearTail()
	return d
}

// Empty returns an empty dense bit array.
func Empty() Dense {
	return Dense{}
}

// Size returns the number of bits in d.
func (d Dense) Size() int {
	return d.len
}

// ByteSize returns the number of bytes necessary to represent d.
func (d Dense) ByteSize() int {
	return blocksFor(d.len)
}

// Data returns a copy of the bytes underlying d.
func (d Dense) Data() []byte {
	r := make([]byte, len(d.bits))
	copy(r, d.bits)
	return r
}

// Get returns the bit at idx. Bits past the end of d read as zero.
func (d Dense) Get(idx int) bool {
	if idx < 0 || idx >= d.len {
		return false
	}
	return d.bits[idx/blockSize]&(1<<(idx%blockSize)) != 0
}

// AppendBit adds a single bit to the end of d.
func (d *Dense) AppendBit(bit bool) {
	pos := d.len % blockSize
	d.len++
	if pos == 0 {
		d.bits = append(d.bits, 0)
	}
	if bit {
		d.bits[len(d.bits)-1] |= 1 << pos
	}
}

// Flip inverts the bit at idx.
func (d *Dense) Flip(idx int) {
	d.bits[idx/blockSize] ^= 1 << (idx % blockSize)
}

// XOr computes a bitwise XOR between d and other. If one of the two is
// shorter than the other, trailing zeros are implicitly added to make the
// sizes match.
func (d Dense) XOr(other Dense) Dense {
	long := d
	if other.len > long.len {
		long = other
	}
	r := Dense{bits: make([]byte, blocksFor(long.len)), len: long.len}
	for i := range r.bits {
		r.bits[i] = d.getByte(i) ^ other.getByte(i)
	}
	return r
}

// XNor computes a bitwise equality between d and other, with implicit
// trailing zeros extending the shorter operand.
func (d Dense) XNor(other Dense) Dense {
	long := d
	if other.len > long.len {
		long = other
	}
	r := Dense{bits: make([]byte, blocksFor(long.len)), len: long.len}
	for i := range r.bits {
		r.bits[i] = ^(d.getByte(i) ^ other.getByte(i))
	}
	r.clearTail()
	return r
}

// Not returns a copy of d whose bits have all been flipped.
func (d Dense) Not() Dense {
	r := Dense{bits: make([]byte, blocksFor(d.len)), len: d.len}
	for i := range r.bits {
		r.bits[i] = ^d.getByte(i)
	}
	r.clearTail()
	return r
}

// CountOnes returns the total number of bits set in d.
func (d Dense) CountOnes() int {
	var sum int
	for i := range d.bits {
		sum += bits.OnesCount8(d.bits[i])
	}
	return sum
}

// Select selects the subset of bits from d at positions where mask is set,
// preserving order.
func (d Dense) Select(mask Dense) Dense {
	var r Dense
	for i := 0; i < d.len; i++ {
		if mask.Get(i) {
			r.AppendBit(d.Get(i))
		}
	}
	return r
}

// Shuffle randomly permutes the bits of d, using r as a source of
// randomness.
func (d *Dense) Shuffle(r *rand.Rand) {
	r.Shuffle(d.len, func(i, j int) {
		a, b := d.Get(i), d.Get(j)
		if a != b {
			d.Flip(i)
			d.Flip(j)
		}
	})
}

// Bits expands d into a slice of 0/1 values.
func (d Dense) Bits() []int {
	r := make([]int, d.len)
	for i := 0; i < d.len; i++ {
		if d.Get(i) {
			r[i] = 1
		}
	}
	return r
}

// String renders d most-significant-position last, e.g. "0110".
func (d Dense) String() string {
	var sb strings.Builder
	sb.Grow(d.len)
	for i := 0; i < d.len; i++ {
		if d.Get(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// clearTail zeroes the unused high bits of the final block so that byte-wise
// operations never observe garbage past len.
func (d *Dense) clearTail() {
	if d.len%blockSize == 0 || len(d.bits) == 0 {
		return
	}
	d.bits[len(d.bits)-1] &= 0xFF >> (blockSize - d.len%blockSize)
}

func (d Dense) getByte(i int) byte {
	if i >= len(d.bits) {
		return 0
	}
	return d.bits[i]
}

func blocksFor(bits int) int {
	return (bits + blockSize - 1) / blockSize
}
