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

import (
	"sort"
	"sync/atomic"
)

// Variable is an axis with explicit, non-uniform bin edges. Edges must be
// strictly increasing; bin i covers [edges[i], edges[i+1]).
type Variable struct {
	edges   []float64
	policy  OverflowPolicy
	dropped atomic.Uint64
}

// NewVariable constructs a Variable axis from len(edges)-1 bins. Panics if
// fewer than two edges are given or the edges are not strictly increasing,
// both construction-time programmer errors.
func NewVariable(edges []float64, policy OverflowPolicy) *Variable {
	if len(edges) < 2 {
		panic("axis: NewVariable requires at least two edges")
	}
	owned := make([]float64, len(edges))
	copy(owned, edges)
	for i := 1; i < len(owned); i++ {
		if owned[i] <= owned[i-1] {
			panic("axis: NewVariable requires strictly increasing edges")
		}
	}
	return &Variable{edges: owned, policy: policy}
}

func (a *Variable) Kind() Kind { return KindVariable }
func (a *Variable) NBins() int { return len(a.edges) - 1 }

// Map locates x's bin via binary search over the sorted edges.
func (a *Variable) Map(x float64) (int, bool) {
	lo, hi := a.edges[0], a.edges[len(a.edges)-1]
	if x < lo {
		return a.resolveUnderflow()
	}
	if x >= hi {
		return a.resolveOverflow()
	}
	// sort.Search finds the first edge strictly greater than x; the bin
	// below it is the one that contains x.
	i := sort.Search(len(a.edges), func(i int) bool { return a.edges[i] > x })
	return i - 1, true
}

func (a *Variable) resolveUnderflow() (int, bool) {
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

func (a *Variable) resolveOverflow() (int, bool) {
	nBins := a.NBins()
	switch a.policy {
	case PolicyDrop:
		a.dropped.Add(1)
		return 0, false
	case PolicyDedicatedBin:
		return nBins, true
	default: // PolicyClamp
		return nBins - 1, true
	}
}

func (a *Variable) DroppedCount() uint64 { return a.dropped.Load() }

// Policy returns the axis's configured OverflowPolicy.
func (a *Variable) Policy() OverflowPolicy { return a.policy }

// Edges returns a copy of the bin boundaries.
func (a *Variable) Edges() []float64 {
	out := make([]float64, len(a.edges))
	copy(out, a.edges)
	return out
}
