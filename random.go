package qnode

import (
	"math/rand/v2"
	"sync"
)

/*
RandomSource is the randomness a Node draws from when simulating activity.
*rand.Rand from math/rand/v2 satisfies it, and tests can swap in a scripted
source to make transitions deterministic.
*/
type RandomSource interface {
	Float64() float64
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }
func (globalSource) IntN(n int) int   { return rand.IntN(n) }

/*
syncSource serializes draws on a source that is not safe for concurrent use,
such as a seeded *rand.Rand shared by every node of a cluster.
*/
type syncSource struct {
	mu  sync.Mutex
	src RandomSource
}

func (s *syncSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Float64()
}

func (s *syncSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.IntN(n)
}

// Synchronized wraps src so it can be shared between goroutines. Sources
// that are already safe are returned unchanged.
func Synchronized(src RandomSource) RandomSource {
	switch src.(type) {
	case nil:
		return nil
	case *syncSource, globalSource:
		return src
	}
	return &syncSource{src: src}
}

// NewSeededSource returns a reproducible source for a given seed. It is safe
// for concurrent use.
func NewSeededSource(seed uint64) RandomSource {
	return Synchronized(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}
