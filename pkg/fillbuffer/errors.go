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

package fillbuffer

import "fmt"

// IndexCapacityError is returned by Init when S cannot represent N_total
// with at least 4 spare (generation) bits.
type IndexCapacityError struct {
	TotalBits    int
	IndexBits    int
	RequiredBits int
}

func (e *IndexCapacityError) Error() string {
	return fmt.Sprintf("fillbuffer: index type has %d bits, needs at least %d (index_bits=%d + 4 generation bits)",
		e.TotalBits, e.RequiredBits, e.IndexBits)
}

// DenseIndexOverflowError is returned by Fill when an event touches more
// distinct bins than the packed index field can represent.
type DenseIndexOverflowError struct {
	IndexMask uint64
	Touched   int
}

func (e *DenseIndexOverflowError) Error() string {
	return fmt.Sprintf("fillbuffer: event touched more than %d distinct bins (index_mask=%d)", e.Touched, e.IndexMask)
}
