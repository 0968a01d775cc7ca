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

package axis

import "sync/atomic"

// Uniform is an equal-width axis over [Lo, Hi) with NBins bins.
type Uniform struct {
	lo, hi  float64
	nBins   int
	width   float64
	policy  OverflowPolicy
	dropped atomic.Uint64
}

// NewUniform constructs a uniform axis. Panics if hi <= lo or nBins <= 0:
// these are construction-time programmer errors, not runtime data errors.
func NewUniform(lo, hi float64, nBins int, policy OverflowPolicy) *Uniform {
	if hi <= lo {
		panic("axis: NewUniform requires hi > lo")
	}
	if nBins <= 0 {
		panic("axis: NewUniform requires nBins > 0")
	}
	return &Uniform{lo: lo, hi: hi, nBins: nBins, width: (hi - lo) / float64(nBins), policy: policy}
}

func (a *Uniform) Kind() Kind { return KindUniform }
func (a *Uniform) NBins() int { return a.nBins }

// Map locates x's bin by direct index computation (O(1), no search).
func (a *Uniform) Map(x float64) (int, bool) {
	if x < a.lo {
		return a.resolveUnderflow()
	}
	if x >= a.hi {
		return a.resolveOverflow()
	}
	bin := int((x - a.lo) / a.width)
	if bin >= a.nBins { // guards against floating point edge rounding at x just under hi
		bin = a.nBins - 1
	}
	return bin, true
}

func (a *Uniform) resolveUnderflow() (int, bool) {
	switch a.policy {
	case PolicyDrop:
		a.dropped.Add(1)
		return 0, false
	case PolicyDedicatedBin:
		return -1, true
	default: // PolicyClamp
		return 0, true
	}
}

func (a *Uniform) resolveOverflow() (int, bool) {
	switch a.policy {
	case PolicyDrop:
		a.dropped.Add(1)
		return 0, false
	case PolicyDedicatedBin:
		return a.nBins, true
	default: // PolicyClamp
		return a.nBins - 1, true
	}
}

func (a *Uniform) DroppedCount() uint64 { return a.dropped.Load() }

// Lo returns the axis's lower bound.
func (a *Uniform) Lo() float64 { return a.lo }

// Hi returns the axis's upper bound.
func (a *Uniform) Hi() float64 { return a.hi }

// Policy returns the axis's configured OverflowPolicy.
func (a *Uniform) Policy() OverflowPolicy { return a.policy }

// Edges returns the nBins+1 bin boundaries, lo..hi inclusive.
func (a *Uniform) Edges() []float64 {
	edges := make([]float64, a.nBins+1)
	for i := range edges {
		edges[i] = a.lo + float64(i)*a.width
	}
	edges[a.nBins] = a.hi
	return edges
}
