package bigint

import (
	"errors"
	"math/big"
	"strings"
	"testing"
	"testing/quick"
)

func TestDecimalRoundTrip(t *testing.T) {
	cases := []string{
		"0",
		"1",
		"9991",
		"18446744073709551615",
		"18446744073709551616",
		"100000000000000000000000000000000000000000000000000",
	}
	for _, s := range cases {
		a, err := FromString(s)
		if err != nil {
			t.Fatalf("FromString(%q): %v", s, err)
		}
		if got := a.String(); got != s {
			t.Errorf("round trip of %q gave %q", s, got)
		}
	}
}

func TestDecimalMatchesBig(t *testing.T) {
	f := func(a Uint) bool {
		return a.String() == toBig(a).String()
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

func TestFromStringRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "12a4", "-5", " 12", "0x10"} {
		if _, err := FromString(s); err == nil {
			t.Errorf("FromString(%q) should fail", s)
		}
	}
}

func TestFromStringOverflow(t *testing.T) {
	// 10^309 exceeds 2^1024.
	huge := "1" + strings.Repeat("0", 309)
	_, err := FromString(huge)
	if !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}

	// The largest representable value still parses.
	var max Uint
	for i := range max {
		max[i] = ^uint64(0)
	}
	back, err := FromString(max.String())
	if err != nil || back.Cmp(max) != 0 {
		t.Fatalf("max round trip failed: %v", err)
	}
}

func TestBytesRoundTrip(t *testing.T) {
	f := func(a Uint) bool {
		back, err := FromBytes(a.Bytes())
		return err == nil && back.Cmp(a) == 0
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}

	if got := (Uint{}).Bytes(); len(got) != 0 {
		t.Errorf("zero must encode to an empty slice, got %v", got)
	}
}

func TestFromBytesMatchesBig(t *testing.T) {
	b := []byte{0x01, 0x02, 0x03, 0xff, 0x00, 0x80}
	a, err := FromBytes(b)
	if err != nil {
		t.Fatal(err)
	}
	want := new(big.Int).SetBytes(b)
	if toBig(a).Cmp(want) != 0 {
		t.Fatalf("FromBytes = %s, want %s", a, want)
	}
}

func TestFromBytesOverflow(t *testing.T) {
	long := make([]byte, Words*8+1)
	long[0] = 1
	if _, err := FromBytes(long); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}

	// Leading zero bytes beyond the width are harmless.
	long[0] = 0
	long[len(long)-1] = 42
	a, err := FromBytes(long)
	if err != nil || a.Cmp(FromUint64(42)) != 0 {
		t.Fatalf("padded parse failed: %v", err)
	}
}
