// Package attack recovers an RSA private exponent from per-message
// signing durations, bit by bit from the most significant end.
//
// The samples must come from a square-and-multiply signer whose
// Montgomery product has a data-dependent final subtraction (the
// sleep-amplified variant in pkg/rsa). Each round simulates the signer
// over the bits recovered so far, hypothesizes that the next bit is
// set, and partitions the samples by whether the hypothetical product
// would take the slow path. When the bit really is set the slow class
// is measurably slower; the threshold separates the two regimes.
//
// WARNING: this package exists for security research and teaching.
// Only analyze signers you are authorized to attack.
//
// Basic usage:
//
//	rec, err := attack.New(n)
//	if err != nil { ... }
//	result, err := rec.
//		WithThreshold(2 * time.Millisecond).
//		WithMaxBits(33).
//		Recover(ctx, samples)
//	// result.Bits holds the recovered exponent, most significant
//	// bit first; result.D is the assembled integer.
//
// The classification predicate is pluggable; ReductionClassifier is
// the default and matches the sleep amplification in pkg/rsa.
package attack
