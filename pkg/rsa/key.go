// Package rsa implements a textbook RSA signer built for timing-attack
// demonstrations. Do not use it to protect anything: the naive
// exponentiation modes exist to be broken.
package rsa

import (
	"errors"
	"fmt"

	"github.com/sidechan/rsa-timing/pkg/bigint"
)

// ErrNonInvertible is returned when e has no inverse modulo phi(n).
var ErrNonInvertible = errors.New("rsa: public exponent not invertible modulo phi")

// Key is an RSA key pair derived once from (p, q, e) and immutable
// afterwards.
type Key struct {
	P   bigint.Uint
	Q   bigint.Uint
	N   bigint.Uint
	Phi bigint.Uint
	E   bigint.Uint
	D   bigint.Uint
}

// NewKey derives n = p*q, phi = (p-1)(q-1) and d = e^-1 mod phi.
// The primes are supplied externally and are not validated for
// primality.
func NewKey(p, q, e bigint.Uint) (*Key, error) {
	two := bigint.FromUint64(2)
	if p.Cmp(two) < 0 || q.Cmp(two) < 0 {
		return nil, fmt.Errorf("rsa: factors must be at least 2")
	}
	nw := p.Mul(q)
	if !nw.Hi().IsZero() {
		return nil, fmt.Errorf("rsa: modulus: %w", bigint.ErrOverflow)
	}
	n := nw.Lo()

	one := bigint.FromUint64(1)
	pm1, _ := p.Sub(one, 0)
	qm1, _ := q.Sub(one, 0)
	phi := pm1.Mul(qm1).Lo()

	d, ok := e.ModInverse(phi)
	if !ok {
		return nil, fmt.Errorf("rsa: e=%s, phi=%s: %w", e, phi, ErrNonInvertible)
	}
	return &Key{P: p, Q: q, N: n, Phi: phi, E: e, D: d}, nil
}
