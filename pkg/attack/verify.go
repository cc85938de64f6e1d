package attack

import "github.com/sidechan/rsa-timing/pkg/bigint"

// BitsToUint assembles most-significant-first bits into an integer.
// It fails with bigint.ErrOverflow when more than bigint.Bits bits are
// given.
func BitsToUint(bits []uint) (bigint.Uint, error) {
	if len(bits) > bigint.Bits {
		return bigint.Uint{}, bigint.ErrOverflow
	}
	var d bigint.Uint
	for _, b := range bits {
		d = d.Lsh(1)
		if b != 0 {
			d.SetBit(0)
		}
	}
	return d, nil
}

// VerifyExponent reports whether e*d == 1 (mod phi), the external
// check that decides whether a recovery actually succeeded.
func VerifyExponent(e, d, phi bigint.Uint) bool {
	if phi.IsZero() {
		return false
	}
	er, _ := e.Mod(phi)
	dr, _ := d.Mod(phi)
	return er.ModMul(dr, phi).Cmp(bigint.FromUint64(1)) == 0
}
