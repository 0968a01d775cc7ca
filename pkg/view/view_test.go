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

package view

import "testing"

func TestGlobalIndexMapping(t *testing.T) {
	v := New(100, 4, 2)
	if got := v.GlobalIndex(0, 0); got != 100 {
		t.Fatalf("GlobalIndex(0,0) = %d, want 100", got)
	}
	if got := v.GlobalIndex(1, 1); got != 103 {
		t.Fatalf("GlobalIndex(1,1) = %d, want 103", got)
	}
	if got := v.GlobalIndex(3, 0); got != 106 {
		t.Fatalf("GlobalIndex(3,0) = %d, want 106", got)
	}
	if got, want := v.Len(), 8; got != want {
		t.Fatalf("Len() = %d, want %d", got, want)
	}
}

func TestStrideDefaultsToOne(t *testing.T) {
	v := New(0, 10, 0)
	if v.Stride != 1 {
		t.Fatalf("Stride = %d, want 1", v.Stride)
	}
}

func TestOverlaps(t *testing.T) {
	a := New(0, 10, 1) // [0,10)
	b := New(10, 5, 1) // [10,15)
	c := New(5, 10, 1) // [5,15) overlaps a
	if a.Overlaps(b) {
		t.Fatalf("adjacent views must not overlap")
	}
	if !a.Overlaps(c) {
		t.Fatalf("[0,10) and [5,15) must overlap")
	}
	if !b.Overlaps(c) {
		t.Fatalf("[10,15) and [5,15) must overlap")
	}
}
