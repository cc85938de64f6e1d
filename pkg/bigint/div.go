package bigint

import "math/bits"

// DivMod returns the quotient and remainder of u divided by v,
// satisfying u = q*v + r with 0 <= r < v. It fails with ErrDivByZero
// when v is zero.
//
// Multi-limb divisors take the long-division route of Knuth 4.3.1 D:
// the divisor is normalized so its top limb has the high bit set,
// quotient digits are estimated from the top two dividend limbs, and a
// correction step repairs over-estimates.
func (u Uint) DivMod(v Uint) (Uint, Uint, error) {
	n := v.limbCount()
	if n == 0 {
		return Uint{}, Uint{}, ErrDivByZero
	}
	if u.Cmp(v) < 0 {
		return Uint{}, u, nil
	}
	var q, r Uint
	m := u.limbCount()

	if n == 1 {
		q, r[0] = u.divWord(v[0])
		return q, r, nil
	}

	// Normalize.
	s := uint(bits.LeadingZeros64(v[n-1]))
	var vn [Words]uint64
	for i := n - 1; i > 0; i-- {
		vn[i] = v[i]<<s | v[i-1]>>(64-s)
	}
	vn[0] = v[0] << s

	var un [Words + 1]uint64
	un[m] = u[m-1] >> (64 - s)
	for i := m - 1; i > 0; i-- {
		un[i] = u[i]<<s | u[i-1]>>(64-s)
	}
	un[0] = u[0] << s

	for j := m - n; j >= 0; j-- {
		// Estimate the quotient digit from the top two dividend
		// limbs, then refine while the estimate is provably high.
		var qhat, rhat uint64
		refine := true
		if un[j+n] == vn[n-1] {
			qhat = ^uint64(0)
			rhat = un[j+n-1] + vn[n-1]
			refine = rhat >= vn[n-1]
		} else {
			qhat, rhat = bits.Div64(un[j+n], un[j+n-1], vn[n-1])
		}
		for refine {
			hi, lo := bits.Mul64(qhat, vn[n-2])
			if hi > rhat || (hi == rhat && lo > un[j+n-2]) {
				qhat--
				rhat += vn[n-1]
				if rhat >= vn[n-1] {
					continue
				}
			}
			break
		}

		// Multiply and subtract: un[j..j+n] -= qhat * vn.
		var borrow, mulCarry uint64
		for i := 0; i < n; i++ {
			hi, lo := bits.Mul64(qhat, vn[i])
			lo, c := bits.Add64(lo, mulCarry, 0)
			mulCarry = hi + c
			un[i+j], borrow = bits.Sub64(un[i+j], lo, borrow)
		}
		un[j+n], borrow = bits.Sub64(un[j+n], mulCarry, borrow)

		q[j] = qhat
		if borrow != 0 {
			// One too large after all; add the divisor back.
			q[j]--
			var carry uint64
			for i := 0; i < n; i++ {
				un[i+j], carry = bits.Add64(un[i+j], vn[i], carry)
			}
			un[j+n] += carry
		}
	}

	// Denormalize the remainder.
	for i := 0; i < n; i++ {
		r[i] = un[i]>>s | un[i+1]<<(64-s)
	}
	return q, r, nil
}

// Mod returns u mod v, failing with ErrDivByZero when v is zero.
func (u Uint) Mod(v Uint) (Uint, error) {
	_, r, err := u.DivMod(v)
	return r, err
}

// divWord divides a by a single nonzero limb.
func (a Uint) divWord(d uint64) (Uint, uint64) {
	var q Uint
	var rem uint64
	for i := Words - 1; i >= 0; i-- {
		q[i], rem = bits.Div64(rem, a[i], d)
	}
	return q, rem
}
