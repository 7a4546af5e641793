// Copyright 2016 The Cockroach Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

// Package hlc provides the hybrid-logical clock timestamp used to order
// MVCC versions of a key.
package hlc

import (
	"fmt"
	"math"
)

// Timestamp is a hybrid logical clock timestamp, combining a physical wall
// time with a logical tie-breaker counter.
type Timestamp struct {
	WallTime int64
	Logical  int32
}

// MaxTimestamp sorts after every other timestamp.
var MaxTimestamp = Timestamp{WallTime: math.MaxInt64, Logical: math.MaxInt32}

// MinTimestamp sorts before every other non-empty timestamp.
var MinTimestamp = Timestamp{WallTime: 0, Logical: 1}

// IsEmpty returns true for the zero value, which represents "no timestamp" in
// contexts such as an absent intent or inline value.
func (t Timestamp) IsEmpty() bool {
	return t.WallTime == 0 && t.Logical == 0
}

// Less returns whether t sorts strictly before s.
func (t Timestamp) Less(s Timestamp) bool {
	return t.WallTime < s.WallTime || (t.WallTime == s.WallTime && t.Logical < s.Logical)
}

// LessEq returns whether t sorts at or before s.
func (t Timestamp) LessEq(s Timestamp) bool {
	return !s.Less(t)
}

// Equal returns whether t and s represent the same instant.
func (t Timestamp) Equal(s Timestamp) bool {
	return t.WallTime == s.WallTime && t.Logical == s.Logical
}

// Compare returns -1, 0, or 1 as t is less than, equal to, or greater than s.
func (t Timestamp) Compare(s Timestamp) int {
	switch {
	case t.Less(s):
		return -1
	case s.Less(t):
		return 1
	default:
		return 0
	}
}

// Prev returns the largest timestamp that sorts strictly before t. It panics
// if t is already the smallest representable timestamp, mirroring the fatal
// assertion in the original engine (there is no timestamp below zero).
func (t Timestamp) Prev() Timestamp {
	if t.Logical > 0 {
		return Timestamp{WallTime: t.WallTime, Logical: t.Logical - 1}
	} else if t.WallTime > 0 {
		return Timestamp{WallTime: t.WallTime - 1, Logical: math.MaxInt32}
	}
	panic("cannot take Prev() of zero timestamp")
}

// Next returns the smallest timestamp that sorts strictly after t.
func (t Timestamp) Next() Timestamp {
	if t.Logical == math.MaxInt32 {
		return Timestamp{WallTime: t.WallTime + 1, Logical: 0}
	}
	return Timestamp{WallTime: t.WallTime, Logical: t.Logical + 1}
}

// String implements fmt.Stringer.
func (t Timestamp) String() string {
	return fmt.Sprintf("%d.%010d,%d", t.WallTime/1e9, t.WallTime%1e9, t.Logical)
}

// Size implements the protoutil.Message-adjacent contract used by
// enginepb.MVCCMetadata, whose Timestamp field is embedded (not pointer) and
// hand-marshaled by the surrounding message.
func (t Timestamp) Size() int {
	n := 0
	if t.WallTime != 0 {
		n += 1 + varintSize(uint64(t.WallTime))
	}
	if t.Logical != 0 {
		n += 1 + varintSize(uint64(t.Logical))
	}
	return n
}

func varintSize(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}
