package bigint

import "errors"

var (
	// ErrDivByZero is returned by DivMod and Mod for a zero divisor.
	ErrDivByZero = errors.New("bigint: division by zero")

	// ErrOverflow is returned when a value does not fit in Words limbs.
	ErrOverflow = errors.New("bigint: value exceeds fixed width")
)
