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
	"github.com/shekhar108/mvcckv/pkg/enginepb"
	"github.com/shekhar108/mvcckv/pkg/protoutil"
	"github.com/shekhar108/mvcckv/pkg/roachpb"
)

// ComputeStats walks every key in [start, end) and accumulates an
// MVCCStats snapshot as of nowNanos, mirroring MVCCComputeStatsInternal in
// the original engine: a key below roachpb.KeyLocalMax is charged to
// SysBytes/SysCount instead of the ordinary key/value/live counters, and
// only the newest committed version of each key, or its pending intent or
// inline value if one exists, contributes to LiveBytes/LiveCount — every
// other version is historical and ages into GCBytesAge.
//
// This engine's comparator (comparator.go) sorts a key's intent/inline meta
// entry, when one exists, before every one of that key's versioned entries,
// so the meta entry (if any) is always the first entry seen for a key: its
// own bytes are charged to IntentBytes/LiveBytes (or ValBytes/LiveBytes, for
// an inline value) immediately, and the meta entry's value — not any
// version beneath it — is the key's live value. Every version entry that
// follows, whether or not a meta entry preceded it, is a committed write;
// the first one seen is "newest" and live only when no meta claimed the
// live slot already, and every version after that is strictly older and
// ages into GCBytesAge once the key is finished.
func ComputeStats(reader Reader, start, end roachpb.Key, nowNanos int64) (enginepb.MVCCStats, error) {
	var ms enginepb.MVCCStats
	it := reader.NewIterator(IterOptions{
		LowerBound: EncodeKey(nil, MVCCKey{Key: start}),
		UpperBound: EncodeKey(nil, MVCCKey{Key: end}),
	})
	defer it.Close()

	var curKey roachpb.Key
	var haveKey, countedKey, haveVersion, metaSeen bool
	var newestBytes, olderBytes int64
	var newestLive bool

	finishKey := func() {
		if haveKey {
			if haveVersion {
				if newestLive {
					ms.LiveBytes += newestBytes
					ms.LiveCount++
				} else {
					ms.GCBytesAge += newestBytes
				}
			}
			ms.GCBytesAge += olderBytes
		}
		haveKey, countedKey, haveVersion, metaSeen = false, false, false, false
		newestBytes, olderBytes = 0, 0
		newestLive = false
	}

	for it.SeekGE(EncodeKey(nil, MVCCKey{Key: start})); it.Valid(); it.Next() {
		k, err := DecodeKey(it.UnsafeKey())
		if err != nil {
			return ms, err
		}
		value := it.UnsafeValue()
		keyBytes := int64(k.EncodedSize())
		valBytes := int64(len(value))
		isSys := bytes.Compare(k.Key, roachpb.KeyLocalMax) < 0

		if !haveKey || !k.Key.Equal(curKey) {
			finishKey()
			curKey = append(roachpb.Key(nil), k.Key...)
			haveKey = true
		}

		if isSys {
			ms.SysBytes += keyBytes + valBytes
			ms.SysCount++
			continue
		}

		if !countedKey {
			ms.KeyCount++
			countedKey = true
		}
		ms.KeyBytes += keyBytes

		if !k.IsValue() {
			var meta enginepb.MVCCMetadata
			if err := protoutil.Unmarshal(value, &meta); err != nil {
				return ms, errors.Wrapf(err, "decoding meta for key %q", k.Key)
			}

			metaSeen = true
			if meta.IsInline() {
				ms.ValBytes += valBytes
				ms.ValCount++
				if !meta.Deleted {
					ms.LiveBytes += keyBytes + valBytes
					ms.LiveCount++
				}
				continue
			}

			if meta.Txn != nil {
				ms.IntentBytes += keyBytes + valBytes
				ms.IntentCount++
			}
			if !meta.Deleted {
				ms.LiveBytes += keyBytes + valBytes
				ms.LiveCount++
			}
			continue
		}

		ms.ValBytes += valBytes
		ms.ValCount++

		var v roachpb.Value
		v.RawBytes = append([]byte(nil), value...)
		live := v.IsPresent()

		if !haveVersion && !metaSeen {
			newestBytes = keyBytes + valBytes
			newestLive = live
			haveVersion = true
		} else {
			olderBytes += keyBytes + valBytes
		}
	}
	finishKey()
	ms.LastUpdateNanos = nowNanos
	return ms, it.Error()
}
