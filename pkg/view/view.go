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

// Package view defines the histogram view: a logical window into the
// shared global bin store. Views hold indices into the store, never
// references, so the store and the views that carve it up have no
// back-pointer cycle between them -- the registry owns both and enforces
// the lifetime ordering.
package view

// View is a contiguous half-open range [Base, Base+NBins*Stride) of global
// indices owned by one booked histogram. Stride is the number of values
// stored per bin (>= 1): a plain 1-D histogram has Stride==1; a histogram
// that also books an auxiliary value per bin (e.g. a profile) has Stride>1.
type View struct {
	Base   int
	NBins  int
	Stride int
}

// New constructs a View. It does not itself allocate or reserve anything in
// a store; the registry is responsible for carving out non-overlapping
// ranges before handing out a View.
func New(base, nBins, stride int) View {
	if stride < 1 {
		stride = 1
	}
	return View{Base: base, NBins: nBins, Stride: stride}
}

// Len returns the number of global indices this view owns.
func (v View) Len() int { return v.NBins * v.Stride }

// GlobalIndex maps a local (bin, value) coordinate to a global index. The
// caller must ensure 0 <= bin < NBins and 0 <= value < Stride; View does
// not range-check (consistent with the core's own "fill never range-checks
// on the hot path" policy). registry.Fill passes bin and value through
// unchecked; only registry.FillAxis keeps bin in range, via the axis.
func (v View) GlobalIndex(bin, value int) int {
	return v.Base + bin*v.Stride + value
}

// Overlaps reports whether two views' global index ranges intersect. The
// registry does not call it: book() places each new view at the running
// total, so booked views never overlap by construction.
func (v View) Overlaps(other View) bool {
	aLo, aHi := v.Base, v.Base+v.Len()
	bLo, bHi := other.Base, other.Base+other.Len()
	return aLo < bHi && bLo < aHi
}
