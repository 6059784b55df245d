// Copyright 2025 openmart Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dataset

// Dict is a bijection between string ids and indices in [0, Count()).
// Indices are assigned in insertion order.
type Dict struct {
	si map[string]int
	is []string
}

func NewDict() *Dict {
	return &Dict{si: map[string]int{}, is: []string{}}
}

// Count returns the number of ids in the dictionary.
func (d *Dict) Count() int {
	return len(d.is)
}

// Add returns the index of s, assigning the next free index if s is new.
func (d *Dict) Add(s string) int {
	if y, ok := d.si[s]; ok {
		return y
	}
	y := len(d.is)
	d.si[s] = y
	d.is = append(d.is, s)
	return y
}

// Id returns the index of s without inserting it.
func (d *Dict) Id(s string) (int, bool) {
	y, ok := d.si[s]
	return y, ok
}

// String returns the id at the given index.
func (d *Dict) String(id int) (string, bool) {
	if id < 0 || id >= len(d.is) {
		return "", false
	}
	return d.is[id], true
}
