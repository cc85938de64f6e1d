package montgomery

import (
	"errors"
	"math/big"
	"math/rand"
	"testing"

	"github.com/cronokirby/safenum"

	"github.com/sidechan/rsa-timing/pkg/bigint"
)

func toBig(a bigint.Uint) *big.Int {
	return new(big.Int).SetBytes(a.Bytes())
}

// randMod returns a pseudo-random value in [0, n).
func randMod(t *testing.T, rng *rand.Rand, n bigint.Uint) bigint.Uint {
	t.Helper()
	var a bigint.Uint
	limbs := (n.BitLen() + 63) / 64
	for i := 0; i < limbs; i++ {
		a[i] = rng.Uint64()
	}
	a, err := a.Mod(n)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestNPrimeForRadixKnown(t *testing.T) {
	n := bigint.FromUint64(9991)
	rInv, nPrime, err := NPrimeForRadix(n, 16)
	if err != nil {
		t.Fatal(err)
	}
	if rInv.Cmp(bigint.FromUint64(4109)) != 0 {
		t.Errorf("rInv = %s, want 4109", rInv)
	}
	if nPrime.Cmp(bigint.FromUint64(26953)) != 0 {
		t.Errorf("nPrime = %s, want 26953", nPrime)
	}
	// r*rInv - n*nPrime = 1
	r := new(big.Int).Lsh(big.NewInt(1), 16)
	lhs := new(big.Int).Mul(r, toBig(rInv))
	lhs.Sub(lhs, new(big.Int).Mul(toBig(n), toBig(nPrime)))
	if lhs.Cmp(big.NewInt(1)) != 0 {
		t.Errorf("r*rInv - n*nPrime = %s, want 1", lhs)
	}
}

func TestNPrimeIdentityRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for trial := 0; trial < 25; trial++ {
		var n bigint.Uint
		for i := 0; i < 1+rng.Intn(4); i++ {
			n[i] = rng.Uint64()
		}
		n[0] |= 1
		ctx, err := New(n)
		if err != nil {
			t.Fatal(err)
		}
		r := new(big.Int).Lsh(big.NewInt(1), ctx.K)
		lhs := new(big.Int).Mul(r, toBig(ctx.RInv))
		lhs.Sub(lhs, new(big.Int).Mul(toBig(n), toBig(ctx.NPrime)))
		if lhs.Cmp(big.NewInt(1)) != 0 {
			t.Fatalf("identity violated for n=%s k=%d", n, ctx.K)
		}
	}
}

func TestEvenModulusRejected(t *testing.T) {
	for _, n := range []uint64{0, 2, 8, 65536} {
		if _, err := New(bigint.FromUint64(n)); !errors.Is(err, ErrInvalidModulus) {
			t.Errorf("New(%d) must fail with ErrInvalidModulus, got %v", n, err)
		}
		if _, _, err := NPrimeForRadix(bigint.FromUint64(n), 32); !errors.Is(err, ErrInvalidModulus) {
			t.Errorf("NPrimeForRadix(%d) must fail with ErrInvalidModulus, got %v", n, err)
		}
	}
}

func TestRadixSelection(t *testing.T) {
	for _, c := range []struct {
		n    uint64
		want uint
	}{
		{9991, 16},
		{25021, 16},
		{65535, 32},
		{65537, 32},
	} {
		ctx, err := New(bigint.FromUint64(c.n))
		if err != nil {
			t.Fatal(err)
		}
		if ctx.K != c.want {
			t.Errorf("New(%d).K = %d, want %d", c.n, ctx.K, c.want)
		}
		if ctx.K <= uint(bigint.FromUint64(c.n).BitLen()) {
			t.Errorf("radix 2^%d does not exceed modulus", ctx.K)
		}
	}
}

func TestProductCongruence(t *testing.T) {
	n := bigint.FromUint64(9991)
	ctx, err := New(n)
	if err != nil {
		t.Fatal(err)
	}
	bn := toBig(n)
	rng := rand.New(rand.NewSource(4))
	for trial := 0; trial < 500; trial++ {
		a := randMod(t, rng, n)
		b := randMod(t, rng, n)
		u := ctx.Product(a, b)
		if u.Cmp(n) >= 0 {
			t.Fatalf("Product(%s, %s) = %s not reduced", a, b, u)
		}
		want := new(big.Int).Mul(toBig(a), toBig(b))
		want.Mul(want, toBig(ctx.RInv))
		want.Mod(want, bn)
		if toBig(u).Cmp(want) != 0 {
			t.Fatalf("Product(%s, %s) = %s, want %s", a, b, u, want)
		}
	}
}

func TestProductScenario(t *testing.T) {
	// MP(100, 200) for n = 9991, r = 2^16: 100*200*rInv mod n.
	ctx, err := New(bigint.FromUint64(9991))
	if err != nil {
		t.Fatal(err)
	}
	got := ctx.Product(bigint.FromUint64(100), bigint.FromUint64(200))
	if got.Cmp(bigint.FromUint64(4025)) != 0 {
		t.Errorf("MP(100, 200) = %s, want 4025", got)
	}
}

func TestProductMatchesSafenum(t *testing.T) {
	// A 200-bit odd modulus; safenum provides the oracle.
	nStr := "1000000000000000000000000000000000000000000000000000000000007"
	n, err := bigint.FromString(nStr)
	if err != nil {
		t.Fatal(err)
	}
	ctx, err := New(n)
	if err != nil {
		t.Fatal(err)
	}
	mod := safenum.ModulusFromBytes(n.Bytes())
	rInvNat := new(safenum.Nat).SetBytes(ctx.RInv.Bytes())

	rng := rand.New(rand.NewSource(5))
	for trial := 0; trial < 50; trial++ {
		a := randMod(t, rng, n)
		b := randMod(t, rng, n)
		u := ctx.Product(a, b)

		aNat := new(safenum.Nat).SetBytes(a.Bytes())
		bNat := new(safenum.Nat).SetBytes(b.Bytes())
		want := new(safenum.Nat).ModMul(aNat, bNat, mod)
		want.ModMul(want, rInvNat, mod)

		got := new(safenum.Nat).SetBytes(u.Bytes())
		if got.Eq(want) != 1 {
			t.Fatalf("Product mismatch for a=%s b=%s", a, b)
		}
	}
}

func TestProductCTAgrees(t *testing.T) {
	for _, nv := range []uint64{9991, 25021, 16381} {
		n := bigint.FromUint64(nv)
		ctx, err := New(n)
		if err != nil {
			t.Fatal(err)
		}
		rng := rand.New(rand.NewSource(int64(nv)))
		sawReduced := false
		for trial := 0; trial < 2000; trial++ {
			a := randMod(t, rng, n)
			b := randMod(t, rng, n)
			u, reduced := ctx.ProductFlag(a, b)
			if reduced {
				sawReduced = true
			}
			if ct := ctx.ProductCT(a, b); ct.Cmp(u) != 0 {
				t.Fatalf("ProductCT(%s, %s) = %s, want %s", a, b, ct, u)
			}
		}
		if !sawReduced {
			t.Errorf("n=%d: final subtract never fired; the leak is gone", nv)
		}
	}
}

func TestMontConversions(t *testing.T) {
	n := bigint.FromUint64(25021)
	ctx, err := New(n)
	if err != nil {
		t.Fatal(err)
	}
	bn := toBig(n)
	r := new(big.Int).Lsh(big.NewInt(1), ctx.K)

	wantRModN := new(big.Int).Mod(r, bn)
	if toBig(ctx.RModN).Cmp(wantRModN) != 0 {
		t.Errorf("RModN = %s, want %s", ctx.RModN, wantRModN)
	}

	rng := rand.New(rand.NewSource(6))
	for trial := 0; trial < 200; trial++ {
		a := randMod(t, rng, n)
		abar := ctx.ToMont(a)
		want := new(big.Int).Mul(toBig(a), r)
		want.Mod(want, bn)
		if toBig(abar).Cmp(want) != 0 {
			t.Fatalf("ToMont(%s) = %s, want %s", a, abar, want)
		}
		if back := ctx.FromMont(abar); back.Cmp(a) != 0 {
			t.Fatalf("FromMont(ToMont(%s)) = %s", a, back)
		}
	}
}

func TestNewWithRadixValidation(t *testing.T) {
	n := bigint.FromUint64(9991)
	if _, err := NewWithRadix(n, 14); err == nil {
		t.Error("radix not exceeding the modulus must be rejected")
	}
	if _, err := NewWithRadix(n, bigint.Bits+16); err == nil {
		t.Error("radix beyond the fixed width must be rejected")
	}
	ctx, err := NewWithRadix(n, 32)
	if err != nil {
		t.Fatal(err)
	}
	if ctx.K != 32 {
		t.Errorf("K = %d, want 32", ctx.K)
	}
}
