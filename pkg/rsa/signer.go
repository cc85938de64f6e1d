package rsa

import (
	"fmt"
	"time"

	"github.com/sidechan/rsa-timing/pkg/bigint"
)

// Variant selects the exponentiation algorithm a Signer uses. The
// choice is fixed at construction.
type Variant int

const (
	// VariantPlain is square-and-multiply; leaks through the natural
	// timing variability of the Montgomery product.
	VariantPlain Variant = iota

	// VariantPlainSleep amplifies the leak with a fixed sleep per
	// Montgomery product and an extra one on the reduction path.
	VariantPlainSleep

	// VariantLadder is the Montgomery Powering Ladder defense.
	VariantLadder
)

// ParseVariant maps the CLI spelling of a variant to its value.
func ParseVariant(s string) (Variant, error) {
	switch s {
	case "plain":
		return VariantPlain, nil
	case "sleep":
		return VariantPlainSleep, nil
	case "ladder":
		return VariantLadder, nil
	}
	return 0, fmt.Errorf("rsa: unknown variant %q", s)
}

func (v Variant) String() string {
	switch v {
	case VariantPlain:
		return "plain"
	case VariantPlainSleep:
		return "sleep"
	case VariantLadder:
		return "ladder"
	}
	return fmt.Sprintf("variant(%d)", int(v))
}

// DefaultSleep is the per-product suspension of VariantPlainSleep.
const DefaultSleep = 2 * time.Millisecond

// Signer signs messages with the private exponent through the variant
// chosen at construction.
type Signer struct {
	key     *Key
	variant Variant
	sleep   time.Duration
	sleepFn func(time.Duration)
}

// NewSigner creates a signer for key with the given variant.
func NewSigner(key *Key, variant Variant) *Signer {
	return &Signer{
		key:     key,
		variant: variant,
		sleep:   DefaultSleep,
		sleepFn: time.Sleep,
	}
}

// WithSleep sets the per-product suspension used by VariantPlainSleep.
func (s *Signer) WithSleep(d time.Duration) *Signer {
	s.sleep = d
	return s
}

// WithSleepFunc replaces the suspension primitive. Tests substitute a
// virtual clock here.
func (s *Signer) WithSleepFunc(fn func(time.Duration)) *Signer {
	s.sleepFn = fn
	return s
}

// Key returns the signer's key.
func (s *Signer) Key() *Key { return s.key }

// Variant returns the exponentiation variant.
func (s *Signer) Variant() Variant { return s.variant }

// Sleep returns the configured per-product suspension.
func (s *Signer) Sleep() time.Duration { return s.sleep }

// Sign computes m^d mod n with the configured variant.
func (s *Signer) Sign(m bigint.Uint) (bigint.Uint, error) {
	switch s.variant {
	case VariantPlainSleep:
		return ModExpSleep(m, s.key.D, s.key.N, s.sleep, s.sleepFn)
	case VariantLadder:
		return PowerLadder(m, s.key.D, s.key.N)
	default:
		return ModExp(m, s.key.D, s.key.N)
	}
}

// Verify computes sig^e mod n, recovering the signed message.
func (s *Signer) Verify(sig bigint.Uint) (bigint.Uint, error) {
	return ModExp(sig, s.key.E, s.key.N)
}
