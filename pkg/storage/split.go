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

	"github.com/cockroachdb/errors"
	"github.com/shekhar108/mvcckv/pkg/roachpb"
)

// IsValidSplitKey reports whether key is an acceptable split point: it must
// not fall inside the local (system) keyspace below roachpb.KeyLocalMax,
// mirroring MVCCIsValidSplitKey's refusal to split a range in the middle of
// its own metadata.
func IsValidSplitKey(key roachpb.Key) bool {
	return bytes.Compare(key, roachpb.KeyLocalMax) >= 0
}

// FindSplitKey scans [start, end) and returns the valid split point whose
// running key+value byte count to its left is closest to targetSize. It
// mirrors MVCCFindSplitKey: track the running size to the left of each
// candidate key, remember the candidate whose difference from targetSize
// is smallest, and stop as soon as that
// difference starts increasing, since the bytes accumulate monotonically
// and every later candidate can only do worse.
func FindSplitKey(reader Reader, start, end roachpb.Key, targetSize int64) (roachpb.Key, error) {
	it := reader.NewIterator(IterOptions{
		LowerBound: EncodeKey(nil, MVCCKey{Key: start}),
		UpperBound: EncodeKey(nil, MVCCKey{Key: end}),
	})
	defer it.Close()

	var sizeSoFar int64
	var bestKey roachpb.Key
	var bestDiff int64 = -1
	var lastKey roachpb.Key

	for it.SeekGE(EncodeKey(nil, MVCCKey{Key: start})); it.Valid(); it.Next() {
		k, err := DecodeKey(it.UnsafeKey())
		if err != nil {
			return nil, err
		}
		perVersionSize := int64(k.EncodedSize() + len(it.UnsafeValue()))

		if !lastKey.Equal(k.Key) {
			diff := abs(sizeSoFar - targetSize)
			if bestDiff >= 0 && diff > bestDiff {
				break
			}
			if IsValidSplitKey(k.Key) {
				bestKey = append(roachpb.Key(nil), k.Key...)
				bestDiff = diff
			}
			lastKey = append(roachpb.Key(nil), k.Key...)
		}
		sizeSoFar += perVersionSize
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	if bestKey == nil {
		return nil, errors.Newf("no valid split key found in [%q, %q)", start, end)
	}
	return bestKey, nil
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
