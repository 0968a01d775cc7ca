// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package accum provides single-variable running-sum accumulators for the
// per-event net weight a thread-local fill buffer collapses contributions
// into before they are squared and merged into the global bin store.
package accum

// Float is the scalar constraint accepted by accumulators. Only binary
// floating point types make sense for Kahan/two-sum compensation.
type Float interface {
	~float32 | ~float64
}

// Accumulator is the capability set the fill buffer depends on. It never
// assumes anything else about the concrete type: construction from an
// initial weight, folding further weights in, and reading back the running
// estimate of the exact sum.
type Accumulator[T Float] interface {
	Add(w T)
	Result() T
}

// Compensated is a two-sum (Knuth) running accumulator. State (s, c)
// represents the exact sum s+c of everything folded in so far; c is the
// running correction term that absorbs what plain floating-point addition
// would otherwise drop on the floor.
//
// Order-dependent in the bit-exact sense, but the error bound is
// O(n*eps^2*|total|) rather than O(n*eps*sum(|w_i|)): sums that cancel to
// near zero keep their accuracy, which is the entire point for histograms
// fed by interfering amplitudes.
type Compensated[T Float] struct {
	s T
	c T
}

// NewCompensated constructs an accumulator already holding w, equivalent to
// calling Add(w) on a zero-valued accumulator.
func NewCompensated[T Float](w T) *Compensated[T] {
	return &Compensated[T]{s: w}
}

// Add folds w into the running sum using Knuth's two-sum algorithm.
func (a *Compensated[T]) Add(w T) {
	y := w + a.c
	t := a.s + y
	a.c = y - (t - a.s)
	a.s = t
}

// Result returns the best estimate of the exact sum of every value folded
// in via NewCompensated/Add.
func (a *Compensated[T]) Result() T {
	return a.s + a.c
}

// Naive is a plain running sum with no compensation term. It is a drop-in
// for benchmarking against Compensated; the core only ever depends on the
// Accumulator interface, never on which implementation is in play.
type Naive[T Float] struct {
	s T
}

// NewNaive constructs a naive accumulator already holding w.
func NewNaive[T Float](w T) *Naive[T] {
	return &Naive[T]{s: w}
}

// Add folds w into the running sum with ordinary floating-point addition.
func (a *Naive[T]) Add(w T) {
	a.s += w
}

// Result returns the running sum.
func (a *Naive[T]) Result() T {
	return a.s
}

var (
	_ Accumulator[float64] = (*Compensated[float64])(nil)
	_ Accumulator[float64] = (*Naive[float64])(nil)
)
