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

package registry

import "fmt"

// DuplicateNameError is returned by Book/BookAxis when name is already in
// use by a previously booked histogram.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("registry: histogram %q already booked", e.Name)
}

// NotFoundError is returned by lookups against an unknown name or id.
type NotFoundError struct {
	Name string
	ID   int
}

func (e *NotFoundError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("registry: no histogram named %q", e.Name)
	}
	return fmt.Sprintf("registry: no histogram with id %d", e.ID)
}

// DroppedFillError is returned by FillAxis when the axis's OverflowPolicy
// rejects the coordinate (PolicyDrop). It is not a programming error: the
// caller's event loop should simply count it and move on.
type DroppedFillError struct {
	HistogramID int
	Coordinate  float64
}

func (e *DroppedFillError) Error() string {
	return fmt.Sprintf("registry: coordinate %v dropped by axis of histogram %d", e.Coordinate, e.HistogramID)
}
