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

package storage

import "github.com/shekhar108/mvcckv/pkg/roachpb"

// ClearRange removes every engine entry (every version of every key) in
// [start, end) by issuing one point Delete per entry rather than a single
// range tombstone, returning the count removed. This is what range GC and
// range deletion (as opposed to a single MVCC-versioned delete, which
// writes a new tombstone version instead of removing anything) use: a
// range tombstone would still need compaction to reclaim space, whereas
// callers clearing an entire, already-vacated key range want the bytes
// gone immediately.
func ClearRange(rw ReadWriter, start, end roachpb.Key) (int, error) {
	it := rw.NewIterator(IterOptions{
		LowerBound: EncodeKey(nil, MVCCKey{Key: start}),
		UpperBound: EncodeKey(nil, MVCCKey{Key: end}),
	})
	defer it.Close()

	var keys []MVCCKey
	for it.SeekGE(EncodeKey(nil, MVCCKey{Key: start})); it.Valid(); it.Next() {
		k, err := DecodeKey(it.UnsafeKey())
		if err != nil {
			return 0, err
		}
		keys = append(keys, k)
	}
	if err := it.Error(); err != nil {
		return 0, err
	}
	for _, k := range keys {
		if err := rw.Delete(k); err != nil {
			return 0, err
		}
	}
	return len(keys), nil
}

// DeleteRangeTombstone issues a single range tombstone over [start, end),
// the cheap-to-write alternative to ClearRange used when the caller can
// tolerate the space not being reclaimed until compaction.
func DeleteRangeTombstone(w Writer, start, end roachpb.Key) error {
	return w.DeleteRange(MVCCKey{Key: start}, MVCCKey{Key: end})
}
