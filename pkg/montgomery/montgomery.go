// Package montgomery implements Montgomery modular multiplication over
// the fixed-width integers of pkg/bigint.
//
// A Context carries the per-modulus constants: the radix r = 2^K, the
// negated inverse n' with r*rInv - n*n' = 1, and r mod n. Operands of
// the product routines live in Montgomery form (a*r mod n); use ToMont
// and FromMont to cross the boundary.
package montgomery

import (
	"errors"
	"fmt"

	"github.com/sidechan/rsa-timing/pkg/bigint"
)

// ErrInvalidModulus is returned when the modulus is even or zero.
var ErrInvalidModulus = errors.New("montgomery: modulus must be odd")

// digitBits is the radix granularity: r = 2^K with K the smallest
// multiple of digitBits strictly exceeding the modulus bit length.
// Keeping r close to n preserves a measurable final-subtract rate,
// which is the whole point of the demo.
const digitBits = 16

// Context holds the precomputed constants for one modulus.
type Context struct {
	// N is the odd modulus.
	N bigint.Uint

	// K is the radix exponent; r = 2^K > N.
	K uint

	// NPrime satisfies N*NPrime == -1 (mod r).
	NPrime bigint.Uint

	// RInv is r^-1 mod N.
	RInv bigint.Uint

	// RModN is r mod N, the Montgomery form of 1.
	RModN bigint.Uint
}

// New builds a Context for n, choosing the radix exponent as the
// smallest multiple of the digit width strictly exceeding BitLen(n).
func New(n bigint.Uint) (*Context, error) {
	k := uint(n.BitLen()/digitBits+1) * digitBits
	return NewWithRadix(n, k)
}

// NewWithRadix builds a Context with an explicit radix exponent k.
// k must exceed BitLen(n) and fit the fixed integer width.
func NewWithRadix(n bigint.Uint, k uint) (*Context, error) {
	if k <= uint(n.BitLen()) || k > bigint.Bits {
		return nil, fmt.Errorf("montgomery: radix 2^%d unusable for %d-bit modulus", k, n.BitLen())
	}
	rInv, nPrime, err := NPrimeForRadix(n, k)
	if err != nil {
		return nil, err
	}
	// r mod n by k modular doublings of 1.
	rModN := bigint.FromUint64(1)
	for i := uint(0); i < k; i++ {
		rModN = rModN.ModDouble(n)
	}
	return &Context{N: n, K: k, NPrime: nPrime, RInv: rInv, RModN: rModN}, nil
}

// NPrimeForRadix solves r*rInv - n*nPrime = 1 for r = 2^k and odd n
// with the bitwise extended Euclidean iteration: rInv starts at 1 and
// is halved k times, adding n first whenever it is odd. Step i taking
// the odd branch means the quotient (1 + n*nPrime)/r picked up the
// 2^i term, so nPrime collects exactly those bits.
func NPrimeForRadix(n bigint.Uint, k uint) (rInv, nPrime bigint.Uint, err error) {
	if !n.IsOdd() {
		return bigint.Uint{}, bigint.Uint{}, ErrInvalidModulus
	}
	if k == 0 || k > bigint.Bits {
		return bigint.Uint{}, bigint.Uint{}, fmt.Errorf("montgomery: radix exponent %d out of range", k)
	}
	rInv = bigint.FromUint64(1)
	for i := uint(0); i < k; i++ {
		if !rInv.IsOdd() {
			rInv = rInv.Rsh(1)
		} else {
			sum, _ := rInv.Add(n, 0)
			rInv = sum.Rsh(1)
			nPrime.SetBit(int(i))
		}
	}
	return rInv, nPrime, nil
}

// reduce computes the product core: u = (a*b + m*n)/r with
// m = (a*b mod r)*n' mod r. The result satisfies u < 2n and
// u == a*b*rInv (mod n).
func (c *Context) reduce(a, b bigint.Uint) bigint.Uint {
	t := a.Mul(b)
	m := t.TruncUint(c.K).MulLow(c.NPrime).Trunc(c.K)
	sum, _ := t.Add(m.Mul(c.N), 0)
	return sum.Rsh(c.K).Lo()
}

// Product returns the Montgomery product a*b*rInv mod N. The final
// subtraction is conditional, so the running time depends on the
// operands.
func (c *Context) Product(a, b bigint.Uint) bigint.Uint {
	u, _ := c.ProductFlag(a, b)
	return u
}

// ProductFlag is Product plus a report of whether the final subtract
// fired. The flag is the classification predicate the timing attack
// partitions on.
func (c *Context) ProductFlag(a, b bigint.Uint) (bigint.Uint, bool) {
	u := c.reduce(a, b)
	if u.Cmp(c.N) >= 0 {
		u, _ = u.Sub(c.N, 0)
		return u, true
	}
	return u, false
}

// ProductCT returns the Montgomery product with a branch-free final
// reduction: the subtraction always runs and a masked select keeps the
// in-range value.
func (c *Context) ProductCT(a, b bigint.Uint) bigint.Uint {
	u := c.reduce(a, b)
	diff, borrow := u.Sub(c.N, 0)
	return condSelect(borrow, u, diff)
}

// ToMont converts a into Montgomery form, a*r mod N, by K modular
// doublings. The operand is reduced mod N first.
func (c *Context) ToMont(a bigint.Uint) bigint.Uint {
	x, _ := a.Mod(c.N)
	for i := uint(0); i < c.K; i++ {
		x = x.ModDouble(c.N)
	}
	return x
}

// FromMont converts out of Montgomery form.
func (c *Context) FromMont(a bigint.Uint) bigint.Uint {
	return c.Product(a, bigint.FromUint64(1))
}

// condSelect returns a when flag is 1 and b when flag is 0 without
// branching on the flag.
func condSelect(flag uint64, a, b bigint.Uint) bigint.Uint {
	mask := -flag
	var out bigint.Uint
	for i := range out {
		out[i] = a[i]&mask | b[i]&^mask
	}
	return out
}
