// Package sampler drives timing collection against a signer: parallel
// workers sign random messages and record how long each signature
// took. The workers share nothing; the driver serializes their output
// back into insertion order.
package sampler

import (
	"context"
	"crypto/rand"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/sidechan/rsa-timing/pkg/attack"
	"github.com/sidechan/rsa-timing/pkg/bigint"
	"github.com/sidechan/rsa-timing/pkg/rsa"
)

// Collector produces timing samples from a signer.
type Collector struct {
	// Signer performs the measured signatures.
	Signer *rsa.Signer

	// Workers controls parallelization (0 = one per CPU).
	Workers int
}

type indexed struct {
	i   int
	s   attack.Sample
	err error
}

// Collect signs count random messages and returns one sample per
// message, in generation order. The measured interval covers the Sign
// call only.
func (c *Collector) Collect(ctx context.Context, count int) ([]attack.Sample, error) {
	if count <= 0 {
		return nil, fmt.Errorf("sampler: count must be positive")
	}
	workers := c.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan int, workers)
	results := make(chan indexed, workers)

	go func() {
		defer close(jobs)
		for i := 0; i < count; i++ {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case i, ok := <-jobs:
					if !ok {
						return
					}
					s, err := c.sample()
					select {
					case results <- indexed{i: i, s: s, err: err}:
					case <-ctx.Done():
						return
					}
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	samples := make([]attack.Sample, count)
	done := 0
	for res := range results {
		if res.err != nil {
			cancel()
			return nil, res.err
		}
		samples[res.i] = res.s
		done++
		if done%1000 == 0 {
			glog.V(1).Infof("collected %d/%d samples", done, count)
		}
	}
	if done != count {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("sampler: collected %d of %d samples", done, count)
	}
	return samples, nil
}

// sample signs one random message under the clock.
func (c *Collector) sample() (attack.Sample, error) {
	key := c.Signer.Key()
	m, err := randomMessage(key.N)
	if err != nil {
		return attack.Sample{}, err
	}
	start := time.Now()
	if _, err := c.Signer.Sign(m); err != nil {
		return attack.Sample{}, err
	}
	s := attack.Sample{Message: m, Duration: time.Since(start)}

	// Debug column: subtract behavior of the trace's final product.
	// Meaningless for the ladder, which has no conditional subtract.
	if c.Signer.Variant() != rsa.VariantLadder {
		if _, tr, err := rsa.TraceExp(m, key.D, key.N); err == nil {
			if tr.LastReduced {
				s.Step = 2
			} else {
				s.Step = 1
			}
		}
	}
	return s, nil
}

// randomMessage returns a uniform value in [1, n) by rejection
// sampling over bit-length-masked random bytes.
func randomMessage(n bigint.Uint) (bigint.Uint, error) {
	bl := n.BitLen()
	if bl < 2 {
		return bigint.Uint{}, fmt.Errorf("sampler: modulus too small")
	}
	size := (bl + 7) / 8
	mask := byte(0xff)
	if r := bl % 8; r != 0 {
		mask = 0xff >> (8 - uint(r))
	}
	buf := make([]byte, size)
	for {
		if _, err := rand.Read(buf); err != nil {
			return bigint.Uint{}, err
		}
		buf[0] &= mask
		m, err := bigint.FromBytes(buf)
		if err != nil {
			return bigint.Uint{}, err
		}
		if !m.IsZero() && m.Cmp(n) < 0 {
			return m, nil
		}
	}
}
