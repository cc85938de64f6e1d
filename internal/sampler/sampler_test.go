package sampler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sidechan/rsa-timing/pkg/bigint"
	"github.com/sidechan/rsa-timing/pkg/rsa"
)

func testSigner(t *testing.T, variant rsa.Variant) *rsa.Signer {
	t.Helper()
	key, err := rsa.NewKey(bigint.FromUint64(131), bigint.FromUint64(191), bigint.FromUint64(7))
	require.NoError(t, err)
	return rsa.NewSigner(key, variant).WithSleepFunc(func(time.Duration) {})
}

func TestCollect(t *testing.T) {
	signer := testSigner(t, rsa.VariantPlain)
	collector := &Collector{Signer: signer, Workers: 4}

	samples, err := collector.Collect(context.Background(), 40)
	require.NoError(t, err)
	require.Len(t, samples, 40)

	n := signer.Key().N
	for _, s := range samples {
		require.False(t, s.Message.IsZero())
		require.True(t, s.Message.Cmp(n) < 0)
		require.GreaterOrEqual(t, int64(s.Duration), int64(0))
		require.Contains(t, []int{1, 2}, s.Step)
	}
}

func TestCollectLadderStep(t *testing.T) {
	signer := testSigner(t, rsa.VariantLadder)
	collector := &Collector{Signer: signer}

	samples, err := collector.Collect(context.Background(), 8)
	require.NoError(t, err)
	for _, s := range samples {
		require.Equal(t, 0, s.Step)
	}
}

func TestCollectCancellation(t *testing.T) {
	signer := testSigner(t, rsa.VariantPlain)
	collector := &Collector{Signer: signer, Workers: 2}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := collector.Collect(ctx, 1000)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCollectValidation(t *testing.T) {
	signer := testSigner(t, rsa.VariantPlain)
	collector := &Collector{Signer: signer}
	_, err := collector.Collect(context.Background(), 0)
	require.Error(t, err)
}
