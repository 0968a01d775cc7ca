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

// None is the degenerate axis: the histogram was booked by bin count only
// and callers address bins directly. Map truncates x to an integer bin and
// returns ok=false when that bin falls outside [0, NBins).
type None struct {
	nBins int
}

// NewNone constructs a None axis with nBins local bins.
func NewNone(nBins int) *None {
	return &None{nBins: nBins}
}

func (a *None) Kind() Kind { return KindNone }
func (a *None) NBins() int { return a.nBins }

// Map truncates x to its integer bin index; callers that already have an
// integer bin index should prefer addressing the view directly instead of
// routing through an axis at all.
func (a *None) Map(x float64) (int, bool) {
	bin := int(x)
	if bin < 0 || bin >= a.nBins {
		return 0, false
	}
	return bin, true
}

func (a *None) DroppedCount() uint64 { return 0 }

// Policy always reports PolicyClamp, although None does not clamp: Map
// rejects an out-of-range x with ok=false, and DroppedCount does not count
// those rejections.
func (a *None) Policy() OverflowPolicy { return PolicyClamp }
