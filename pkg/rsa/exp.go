package rsa

import (
	"time"

	"github.com/sidechan/rsa-timing/pkg/bigint"
	"github.com/sidechan/rsa-timing/pkg/montgomery"
)

// ModExp computes m^d mod n by Montgomery square-and-multiply,
// squaring every iteration and multiplying only when the exponent bit
// is set. Its running time therefore leaks the bits of d.
func ModExp(m, d, n bigint.Uint) (bigint.Uint, error) {
	ctx, err := montgomery.New(n)
	if err != nil {
		return bigint.Uint{}, err
	}
	mbar := ctx.ToMont(m)
	x := ctx.RModN
	for i := d.BitLen() - 1; i >= 0; i-- {
		x = ctx.Product(x, x)
		if d.Bit(i) == 1 {
			x = ctx.Product(mbar, x)
		}
	}
	return ctx.FromMont(x), nil
}

// ModExpSleep is ModExp with amplified timing behavior, simulating a
// slow device: every Montgomery product suspends for the given
// duration, and products whose final subtract fires suspend twice.
func ModExpSleep(m, d, n bigint.Uint, dur time.Duration, sleep func(time.Duration)) (bigint.Uint, error) {
	ctx, err := montgomery.New(n)
	if err != nil {
		return bigint.Uint{}, err
	}
	if sleep == nil {
		sleep = time.Sleep
	}
	product := func(a, b bigint.Uint) bigint.Uint {
		u, reduced := ctx.ProductFlag(a, b)
		sleep(dur)
		if reduced {
			sleep(dur)
		}
		return u
	}
	mbar := ctx.ToMont(m)
	x := ctx.RModN
	for i := d.BitLen() - 1; i >= 0; i-- {
		x = product(x, x)
		if d.Bit(i) == 1 {
			x = product(mbar, x)
		}
	}
	return product(x, bigint.FromUint64(1)), nil
}

// PowerLadder computes m^d mod n with the Montgomery Powering Ladder:
// one multiplication and one squaring per exponent bit, through the
// branch-free product, so the work done never depends on the bit
// values.
func PowerLadder(m, d, n bigint.Uint) (bigint.Uint, error) {
	ctx, err := montgomery.New(n)
	if err != nil {
		return bigint.Uint{}, err
	}
	r0 := ctx.RModN
	r1 := ctx.ToMont(m)
	for i := d.BitLen() - 1; i >= 0; i-- {
		if d.Bit(i) == 0 {
			r1 = ctx.ProductCT(r0, r1)
			r0 = ctx.ProductCT(r0, r0)
		} else {
			r0 = ctx.ProductCT(r0, r1)
			r1 = ctx.ProductCT(r1, r1)
		}
	}
	return ctx.ProductCT(r0, bigint.FromUint64(1)), nil
}

// Trace summarizes the arithmetic a square-and-multiply exponentiation
// performs.
type Trace struct {
	// Products is the number of Montgomery products executed,
	// including the final conversion out of Montgomery form.
	Products int

	// Reductions counts the products whose final subtract fired.
	Reductions int

	// LastReduced records the subtract behavior of the final product;
	// the sample generator emits it as the step4 debug column.
	LastReduced bool
}

// TraceExp walks the square-and-multiply exponentiation without
// sleeping and returns the result alongside its operation counts. The
// synthetic-timing tests derive noise-free durations from the trace;
// the sample generator reads only LastReduced for its step4 column.
func TraceExp(m, d, n bigint.Uint) (bigint.Uint, Trace, error) {
	ctx, err := montgomery.New(n)
	if err != nil {
		return bigint.Uint{}, Trace{}, err
	}
	var tr Trace
	product := func(a, b bigint.Uint) bigint.Uint {
		u, reduced := ctx.ProductFlag(a, b)
		tr.Products++
		if reduced {
			tr.Reductions++
		}
		tr.LastReduced = reduced
		return u
	}
	mbar := ctx.ToMont(m)
	x := ctx.RModN
	for i := d.BitLen() - 1; i >= 0; i-- {
		x = product(x, x)
		if d.Bit(i) == 1 {
			x = product(mbar, x)
		}
	}
	return product(x, bigint.FromUint64(1)), tr, nil
}
