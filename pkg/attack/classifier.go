package attack

import (
	"github.com/sidechan/rsa-timing/pkg/bigint"
	"github.com/sidechan/rsa-timing/pkg/montgomery"
)

// Classifier decides, per sample, whether the hypothesized Montgomery
// product would take the slow path. Implementations must be pure
// functions of their arguments so the partition is independent of
// sample order.
type Classifier interface {
	// Slow reports whether MP(mbar, state) lands in the slow class.
	Slow(ctx *montgomery.Context, mbar, state bigint.Uint) bool

	// Name returns a human-readable name for this predicate.
	Name() string
}

// ReductionClassifier partitions on whether the final subtraction of
// the hypothesized product fires. This matches the sleep amplification
// of the vulnerable signer, which suspends a second time on exactly
// that path.
type ReductionClassifier struct{}

// Slow implements Classifier.
func (ReductionClassifier) Slow(ctx *montgomery.Context, mbar, state bigint.Uint) bool {
	_, reduced := ctx.ProductFlag(mbar, state)
	return reduced
}

// Name implements Classifier.
func (ReductionClassifier) Name() string { return "final-subtract" }
