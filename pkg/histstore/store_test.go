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

package histstore

import (
	"math"
	"sync"
	"testing"
)

func TestAccumulateAndIncrement(t *testing.T) {
	s := New(4)
	s.Accumulate(0, 0.1, 0.01)
	s.IncrementCount()

	if got := s.Bin(0).Weight(); math.Abs(got-0.1) > 1e-12 {
		t.Fatalf("Weight = %v, want ~0.1", got)
	}
	if got := s.Bin(0).WeightSq(); math.Abs(got-0.01) > 1e-12 {
		t.Fatalf("WeightSq = %v, want ~0.01", got)
	}
	if s.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", s.Count())
	}
	for i := 1; i < 4; i++ {
		if s.Bin(i).Weight() != 0 || s.Bin(i).WeightSq() != 0 {
			t.Fatalf("bin %d should be untouched", i)
		}
	}
}

func TestStoreAdditivityAcrossDisjointSequences(t *testing.T) {
	s := New(1)
	e1 := [][2]float64{{2.0, 4.0}, {-0.5, 0.25}}
	e2 := [][2]float64{{1.0, 1.0}}
	for _, e := range e1 {
		s.Accumulate(0, e[0], e[1])
		s.IncrementCount()
	}
	for _, e := range e2 {
		s.Accumulate(0, e[0], e[1])
		s.IncrementCount()
	}
	wantWeight := 2.0 - 0.5 + 1.0
	wantSq := 4.0 + 0.25 + 1.0
	if got := s.Bin(0).Weight(); math.Abs(got-wantWeight) > 1e-12 {
		t.Fatalf("Weight() = %v, want %v", got, wantWeight)
	}
	if got := s.Bin(0).WeightSq(); math.Abs(got-wantSq) > 1e-12 {
		t.Fatalf("WeightSq() = %v, want %v", got, wantSq)
	}
	if s.Count() != uint64(len(e1)+len(e2)) {
		t.Fatalf("Count() = %d, want %d", s.Count(), len(e1)+len(e2))
	}
}

func TestConcurrentAccumulateIsRaceFree(t *testing.T) {
	s := New(2)
	var wg sync.WaitGroup
	const workers = 8
	const perWorker = 1000
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				s.Accumulate(0, 1.0, 1.0)
				s.IncrementCount()
			}
		}()
	}
	wg.Wait()
	want := float64(workers * perWorker)
	if got := s.Bin(0).Weight(); got != want {
		t.Fatalf("Weight() = %v, want %v", got, want)
	}
	if s.Count() != uint64(workers*perWorker) {
		t.Fatalf("Count() = %d, want %d", s.Count(), workers*perWorker)
	}
}

func TestMeanVarianceError(t *testing.T) {
	s := New(1)
	for i := 0; i < 100; i++ {
		s.Accumulate(0, 1.0, 1.0)
		s.IncrementCount()
	}
	if got := s.Mean(0); got != 1.0 {
		t.Fatalf("Mean() = %v, want 1.0", got)
	}
	if got := s.VarianceOfMean(0); math.Abs(got) > 1e-12 {
		t.Fatalf("VarianceOfMean() = %v, want ~0", got)
	}
	if got := s.Error(0); got != 0 {
		t.Fatalf("Error() = %v, want 0", got)
	}
}

func TestMeanVarianceEmptyStore(t *testing.T) {
	s := New(1)
	if got := s.Mean(0); got != 0 {
		t.Fatalf("Mean() on empty store = %v, want 0", got)
	}
	if got := s.VarianceOfMean(0); got != 0 {
		t.Fatalf("VarianceOfMean() on empty store = %v, want 0", got)
	}
	if got := s.Error(0); got != 0 {
		t.Fatalf("Error() on empty store = %v, want 0", got)
	}
}

func TestWeightSqNeverNegative(t *testing.T) {
	s := New(1)
	s.Accumulate(0, -5.0, 25.0)
	s.Accumulate(0, 3.0, 9.0)
	if got := s.Bin(0).WeightSq(); got < 0 {
		t.Fatalf("WeightSq() = %v, must be >= 0", got)
	}
}
