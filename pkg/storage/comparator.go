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

package storage

import (
	"bytes"
	"encoding/binary"

	"github.com/cockroachdb/pebble"
)

// ComparatorName is the stable on-disk identifier for Comparer. It is
// embedded in every SST this engine writes and must never change, or
// existing data becomes unreadable.
const ComparatorName = "cockroach_comparator"

// PrefixExtractorName documents the identifier external tooling associates
// with this comparator's Split-derived prefix extraction. Pebble folds the
// prefix extractor into the Comparer itself (via Split), so this constant
// exists only so tooling written against the two-name RocksDB convention
// can still find a name for each role.
const PrefixExtractorName = "cockroach_prefix_extractor"

// Comparer is this engine's key ordering, packaged for direct use as
// pebble.Options.Comparer. Keys sort ascending by user key and, within
// equal user keys, descending by MVCC timestamp so that the newest version
// of a key is always encountered first during a forward scan, with a meta
// (unversioned) key sorting before every version of the same user key.
var Comparer = &pebble.Comparer{
	Compare:             Compare,
	Equal:               Equal,
	AbbreviatedKey:      AbbreviatedKey,
	Separator:           Separator,
	Successor:           Successor,
	ImmediateSuccessor:  ImmediateSuccessor,
	Split:               Split,
	FormatKey:           pebble.DefaultComparer.FormatKey,
	Name:                ComparatorName,
}

// ImmediateSuccessor returns the smallest key greater than prefix, where
// prefix is known to contain no timestamp suffix (pebble only calls this
// for range-key bound keys, which this engine never produces with a
// version attached).
func ImmediateSuccessor(dst, prefix []byte) []byte {
	return append(append(dst, prefix...), 0x00, 0)
}

// Split implements both pebble.Comparer.Split and this engine's prefix
// extractor (C3): the prefix of a key presented to a bloom filter is its
// user-key portion, so that point lookups and range scans that only vary
// the requested timestamp still benefit from the filter.
func Split(key []byte) int {
	return SplitKey(key)
}

// Compare orders two encoded MVCC keys: first by user key ascending, then —
// for equal user keys — by timestamp descending (no timestamp, i.e. a meta
// key, sorts first).
func Compare(a, b []byte) int {
	aSplit, bSplit := SplitKey(a), SplitKey(b)
	if c := bytes.Compare(a[:aSplit], b[:bSplit]); c != 0 {
		return c
	}
	aSuffix, bSuffix := a[aSplit:], b[bSplit:]
	if len(aSuffix) == 0 {
		if len(bSuffix) == 0 {
			return 0
		}
		return -1
	}
	if len(bSuffix) == 0 {
		return 1
	}
	// Both keys are versioned: compare timestamps with the high-order bytes
	// (wall time, then logical) most significant, but inverted, since newer
	// (numerically larger) timestamps must sort first.
	return bytes.Compare(bSuffix[:len(bSuffix)-1], aSuffix[:len(aSuffix)-1])
}

// Equal reports whether a and b are the same encoded key.
func Equal(a, b []byte) bool {
	return Compare(a, b) == 0
}

// AbbreviatedKey returns a fixed-size prefix of the user-key portion of key,
// used by pebble to short-circuit comparisons in the common case where the
// first 8 bytes already differ.
func AbbreviatedKey(key []byte) uint64 {
	userKey := key[:SplitKey(key)]
	var buf [8]byte
	copy(buf[:], userKey)
	return binary.BigEndian.Uint64(buf[:])
}

// Separator returns a key that sorts in [a, b) and is shorter than b where
// possible, used by pebble to choose compact block/index separators.
func Separator(dst, a, b []byte) []byte {
	aUser, bUser := a[:SplitKey(a)], b[:SplitKey(b)]
	n := len(aUser)
	if n > len(bUser) {
		n = len(bUser)
	}
	i := 0
	for ; i < n && aUser[i] == bUser[i]; i++ {
	}
	if i >= n || i >= len(aUser) {
		return append(dst, a...)
	}
	if aUser[i] >= 0xff || aUser[i]+1 >= bUser[i] {
		return append(dst, a...)
	}
	dst = append(dst, aUser[:i+1]...)
	dst[len(dst)-1]++
	return append(dst, 0x00, 0)
}

// Successor returns a key k2 such that key <= k2, shorter than key where
// possible.
func Successor(dst, key []byte) []byte {
	userKey := key[:SplitKey(key)]
	for i := len(userKey) - 1; i >= 0; i-- {
		if userKey[i] != 0xff {
			dst = append(dst, userKey[:i+1]...)
			dst[len(dst)-1]++
			return append(dst, 0x00, 0)
		}
	}
	return append(dst, key...)
}
