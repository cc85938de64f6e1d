package attack

import (
	"errors"
	"time"

	"github.com/sidechan/rsa-timing/pkg/bigint"
)

var (
	// ErrInsufficientSamples is returned when a round cannot populate
	// both timing classes above the configured floor.
	ErrInsufficientSamples = errors.New("attack: insufficient samples to classify")

	// ErrMalformedInput is returned for sample rows that do not parse.
	ErrMalformedInput = errors.New("attack: malformed input")
)

// Sample is one observed signing operation.
type Sample struct {
	// Message is the signed message, reduced modulo n.
	Message bigint.Uint

	// Duration is the observed signing time.
	Duration time.Duration

	// Step is the generator's debug classification of the last
	// Montgomery product: 2 when its final subtract fired, 1 when
	// not, 0 when unknown. The attack does not read it.
	Step int
}
