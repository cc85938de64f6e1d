package bigint

import "math/bits"

const (
	// WordBits is the limb size in bits.
	WordBits = 64

	// Words fixes the integer width. Sixteen 64-bit limbs give the
	// 1024 bits the demo RSA keys need.
	Words = 16

	// Bits is the total width of a Uint.
	Bits = Words * WordBits
)

// Uint is a fixed-width unsigned integer of Words limbs, least
// significant limb first. Arithmetic is modulo 2^Bits with explicit
// carry and borrow results; values copy by assignment and no operation
// allocates.
type Uint [Words]uint64

// Wide holds a full double-width product.
type Wide [2 * Words]uint64

// FromUint64 returns x as a Uint.
func FromUint64(x uint64) Uint {
	var a Uint
	a[0] = x
	return a
}

// Uint64 returns the low 64 bits of a.
func (a Uint) Uint64() uint64 {
	return a[0]
}

// IsZero reports whether a is zero.
func (a Uint) IsZero() bool {
	for i := 0; i < Words; i++ {
		if a[i] != 0 {
			return false
		}
	}
	return true
}

// Cmp compares a and b, returning -1, 0 or 1.
func (a Uint) Cmp(b Uint) int {
	for i := Words - 1; i >= 0; i-- {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Add returns a+b+carry modulo 2^Bits together with the carry out.
// The carry in must be 0 or 1.
func (a Uint) Add(b Uint, carry uint64) (Uint, uint64) {
	var sum Uint
	for i := 0; i < Words; i++ {
		sum[i], carry = bits.Add64(a[i], b[i], carry)
	}
	return sum, carry
}

// Sub returns a-b-borrow modulo 2^Bits together with the borrow out.
// The borrow in must be 0 or 1.
func (a Uint) Sub(b Uint, borrow uint64) (Uint, uint64) {
	var diff Uint
	for i := 0; i < Words; i++ {
		diff[i], borrow = bits.Sub64(a[i], b[i], borrow)
	}
	return diff, borrow
}

// Mul returns the full 2N-limb product of a and b, computed with the
// schoolbook method and two-limb accumulation.
func (a Uint) Mul(b Uint) Wide {
	var w Wide
	for i := 0; i < Words; i++ {
		var carry uint64
		for j := 0; j < Words; j++ {
			hi, lo := bits.Mul64(a[i], b[j])
			s, c1 := bits.Add64(w[i+j], lo, 0)
			s, c2 := bits.Add64(s, carry, 0)
			w[i+j] = s
			carry = hi + c1 + c2
		}
		w[i+Words] = carry
	}
	return w
}

// MulLow returns the low N limbs of a*b.
func (a Uint) MulLow(b Uint) Uint {
	var out Uint
	for i := 0; i < Words; i++ {
		var carry uint64
		for j := 0; j < Words-i; j++ {
			hi, lo := bits.Mul64(a[i], b[j])
			s, c1 := bits.Add64(out[i+j], lo, 0)
			s, c2 := bits.Add64(s, carry, 0)
			out[i+j] = s
			carry = hi + c1 + c2
		}
	}
	return out
}

// mulAddWord returns a*m + add and the overflowing limb.
func (a Uint) mulAddWord(m, add uint64) (Uint, uint64) {
	var out Uint
	carry := add
	for i := 0; i < Words; i++ {
		hi, lo := bits.Mul64(a[i], m)
		lo, c := bits.Add64(lo, carry, 0)
		out[i] = lo
		carry = hi + c
	}
	return out, carry
}

// Bit returns bit i of a, or 0 when i is out of range.
func (a Uint) Bit(i int) uint64 {
	if i < 0 || i >= Bits {
		return 0
	}
	return (a[i/WordBits] >> (uint(i) % WordBits)) & 1
}

// SetBit sets bit i of a. Out-of-range positions are ignored.
func (a *Uint) SetBit(i int) {
	if i < 0 || i >= Bits {
		return
	}
	a[i/WordBits] |= 1 << (uint(i) % WordBits)
}

// ClearBit clears bit i of a. Out-of-range positions are ignored.
func (a *Uint) ClearBit(i int) {
	if i < 0 || i >= Bits {
		return
	}
	a[i/WordBits] &^= 1 << (uint(i) % WordBits)
}

// IsOdd reports whether the low bit of a is set.
func (a Uint) IsOdd() bool {
	return a[0]&1 == 1
}

// Lsh returns a shifted left by k bits; bits shifted past the width are
// discarded.
func (a Uint) Lsh(k uint) Uint {
	var out Uint
	if k >= Bits {
		return out
	}
	limbs := int(k / WordBits)
	off := k % WordBits
	for i := Words - 1; i >= limbs; i-- {
		out[i] = a[i-limbs] << off
		if off > 0 && i-limbs-1 >= 0 {
			out[i] |= a[i-limbs-1] >> (WordBits - off)
		}
	}
	return out
}

// Rsh returns a shifted right by k bits.
func (a Uint) Rsh(k uint) Uint {
	var out Uint
	if k >= Bits {
		return out
	}
	limbs := int(k / WordBits)
	off := k % WordBits
	for i := 0; i < Words-limbs; i++ {
		out[i] = a[i+limbs] >> off
		if off > 0 && i+limbs+1 < Words {
			out[i] |= a[i+limbs+1] << (WordBits - off)
		}
	}
	return out
}

// Trunc returns the low k bits of a.
func (a Uint) Trunc(k uint) Uint {
	if k >= Bits {
		return a
	}
	var out Uint
	limbs := int(k / WordBits)
	off := k % WordBits
	for i := 0; i < limbs; i++ {
		out[i] = a[i]
	}
	if off > 0 {
		out[limbs] = a[limbs] & (1<<off - 1)
	}
	return out
}

// BitLen returns the index of the highest set bit plus one, or 0 for a
// zero value.
func (a Uint) BitLen() int {
	for i := Words - 1; i >= 0; i-- {
		if a[i] != 0 {
			return i*WordBits + bits.Len64(a[i])
		}
	}
	return 0
}

// limbCount returns the number of significant limbs in a.
func (a Uint) limbCount() int {
	for i := Words - 1; i >= 0; i-- {
		if a[i] != 0 {
			return i + 1
		}
	}
	return 0
}
