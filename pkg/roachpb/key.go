// Copyright 2014 The Cockroach Authors.
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

// Package roachpb holds the wire types the storage engine operates on:
// opaque user keys and spans, versioned values, and the minimal transaction
// record the MVCC scanner consults to resolve intents.
package roachpb

import "bytes"

// Key is an opaque, comparable (bytewise) user key. The engine never
// interprets its contents.
type Key []byte

// Compare returns -1, 0 or 1 per bytes.Compare.
func (k Key) Compare(other Key) int {
	return bytes.Compare(k, other)
}

// Equal reports whether k and other hold the same bytes.
func (k Key) Equal(other Key) bool {
	return bytes.Equal(k, other)
}

// Next returns the lexicographically smallest key greater than k.
func (k Key) Next() Key {
	next := make(Key, len(k)+1)
	copy(next, k)
	return next
}

// String renders k for diagnostics. It does not attempt to pretty-print
// structured keys, since the engine treats keys as opaque.
func (k Key) String() string {
	return string(k)
}

// Span describes a half-open key range [Key, EndKey). An empty EndKey means
// the span addresses the single key Key.
type Span struct {
	Key    Key
	EndKey Key
}

// Valid reports whether EndKey is empty or strictly greater than Key.
func (s Span) Valid() bool {
	return len(s.EndKey) == 0 || bytes.Compare(s.Key, s.EndKey) < 0
}

// ContainsKey reports whether key falls within the span.
func (s Span) ContainsKey(key Key) bool {
	if bytes.Compare(key, s.Key) < 0 {
		return false
	}
	if len(s.EndKey) == 0 {
		return bytes.Equal(key, s.Key)
	}
	return bytes.Compare(key, s.EndKey) < 0
}

// KeyLocalMax is the first key outside the local (system) keyspace. Keys
// less than KeyLocalMax are accounted as "system" bytes by ComputeStats,
// mirroring kLocalMax in the original engine.
var KeyLocalMax = Key("\x02\xff\xff")
