package bigint

// Modular helpers used by key construction and Montgomery setup. All
// operands must already be reduced modulo n, and n must be nonzero.

// ModAdd returns a+b mod n.
func (a Uint) ModAdd(b, n Uint) Uint {
	sum, carry := a.Add(b, 0)
	if carry != 0 || sum.Cmp(n) >= 0 {
		sum, _ = sum.Sub(n, 0)
	}
	return sum
}

// ModSub returns a-b mod n.
func (a Uint) ModSub(b, n Uint) Uint {
	diff, borrow := a.Sub(b, 0)
	if borrow != 0 {
		diff, _ = diff.Add(n, 0)
	}
	return diff
}

// ModDouble returns 2a mod n.
func (a Uint) ModDouble(n Uint) Uint {
	return a.ModAdd(a, n)
}

// ModMul returns a*b mod n by interleaved shift-and-add reduction,
// avoiding a double-width division.
func (a Uint) ModMul(b, n Uint) Uint {
	var acc Uint
	for i := b.BitLen() - 1; i >= 0; i-- {
		acc = acc.ModDouble(n)
		if b.Bit(i) == 1 {
			acc = acc.ModAdd(a, n)
		}
	}
	return acc
}

// ModInverse returns the multiplicative inverse of a modulo n, computed
// with the iterative extended Euclidean algorithm. The boolean result
// is false when gcd(a, n) != 1 and no inverse exists.
func (a Uint) ModInverse(n Uint) (Uint, bool) {
	if n.IsZero() || n.Cmp(FromUint64(1)) == 0 {
		return Uint{}, false
	}
	aRed, _ := a.Mod(n)
	if aRed.IsZero() {
		return Uint{}, false
	}

	// Bezout coefficients are tracked modulo n so intermediate values
	// never leave [0, n).
	t := Uint{}
	newT := FromUint64(1)
	r := n
	newR := aRed
	for !newR.IsZero() {
		quo, rem, _ := r.DivMod(newR)
		quoRed, _ := quo.Mod(n)
		t, newT = newT, t.ModSub(quoRed.ModMul(newT, n), n)
		r, newR = newR, rem
	}
	if r.Cmp(FromUint64(1)) != 0 {
		return Uint{}, false
	}
	return t, true
}
