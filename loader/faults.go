// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package loader

import (
	"math/rand/v2"
	"sync"
)

// FaultInjector decides, before a batch touches the connection, whether the batch
// should fail with ErrSimulatedFault. It exists for testing the failure path.
type FaultInjector interface {
	ShouldFail(b Batch) bool
}

type FaultInjectorFunc func(b Batch) bool

func (f FaultInjectorFunc) ShouldFail(b Batch) bool { return f(b) }

// CoinFlip fails each batch with probability one half.
type CoinFlip struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewCoinFlip returns a fair coin. A zero seed draws a random one.
func NewCoinFlip(seed uint64) *CoinFlip {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &CoinFlip{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (c *CoinFlip) ShouldFail(Batch) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rng.IntN(2) == 0
}
