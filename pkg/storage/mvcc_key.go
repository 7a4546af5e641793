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

// Package storage implements the MVCC key codec, comparator, merge
// operator, indexed batch overlay, and scanner that sit directly on top of
// an LSM engine, plus the auxiliary operations (stats, split points,
// range deletion, SST writing, compaction planning) a range layer needs
// from that engine.
package storage

import (
	"bytes"
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/shekhar108/mvcckv/pkg/hlc"
	"github.com/shekhar108/mvcckv/pkg/roachpb"
)

// mvccVersionTimestampSize is the number of bytes a non-empty timestamp
// occupies on the wire, not counting the trailing length byte: 8 bytes of
// wall time plus 4 bytes of logical counter.
const mvccVersionTimestampSize = 12

// MVCCKey is a key as stored in the engine: a user key plus an optional MVCC
// timestamp. A zero Timestamp denotes the key's unversioned "meta" entry,
// which holds either an inline value or an MVCCMetadata describing a
// pending intent.
type MVCCKey struct {
	Key       roachpb.Key
	Timestamp hlc.Timestamp
}

// IsValue reports whether the key addresses a specific MVCC version rather
// than the meta entry.
func (k MVCCKey) IsValue() bool {
	return !k.Timestamp.IsEmpty()
}

// Next returns the smallest key greater than k. For a meta key this steps
// into the largest-timestamped version of the same user key, which sorts
// immediately after it; for a versioned key it returns the next-older
// version of the same user key, or, once the timestamp can't go any lower,
// the next user key's meta entry.
func (k MVCCKey) Next() MVCCKey {
	if k.Timestamp.IsEmpty() {
		return MVCCKey{Key: k.Key, Timestamp: hlc.MaxTimestamp}
	}
	if k.Timestamp.Equal(hlc.MinTimestamp) {
		return MVCCKey{Key: k.Key.Next()}
	}
	return MVCCKey{Key: k.Key, Timestamp: k.Timestamp.Prev()}
}

// Less reports whether k sorts before other under engine order: ascending
// by user key, then descending by timestamp (newest first), with the
// unversioned meta key sorting before every version of the same user key.
func (k MVCCKey) Less(other MVCCKey) bool {
	if c := bytes.Compare(k.Key, other.Key); c != 0 {
		return c < 0
	}
	if k.Timestamp.IsEmpty() {
		return !other.Timestamp.IsEmpty()
	}
	if other.Timestamp.IsEmpty() {
		return false
	}
	return other.Timestamp.Less(k.Timestamp)
}

// Equal reports whether k and other address the same key and version.
func (k MVCCKey) Equal(other MVCCKey) bool {
	return k.Key.Equal(other.Key) && k.Timestamp.Equal(other.Timestamp)
}

// EncodedSize returns the length of k's encoded form.
func (k MVCCKey) EncodedSize() int {
	n := len(k.Key) + 1
	if k.IsValue() {
		n += mvccVersionTimestampSize + 1
		if k.Timestamp.Logical == 0 {
			n -= 4
		}
	}
	return n
}

// String renders k for diagnostics.
func (k MVCCKey) String() string {
	if !k.IsValue() {
		return k.Key.String()
	}
	return k.Key.String() + "/" + k.Timestamp.String()
}

// EncodeKey appends k's encoded form to buf and returns the result. The
// format is <user-key><sentinel 0x00><big-endian-timestamp-suffix><trailer>,
// where trailer counts the sentinel plus the timestamp suffix together (so
// a meta key, which carries no timestamp suffix, has its sentinel double as
// its own trailer and costs a single byte) — this directly mirrors
// EncodeMVCCKey/AppendTimestamp in cockroachkvs.go, restricted to the two
// suffix lengths (9-byte wall-time-only, 13-byte wall-time+logical) this
// engine's timestamps ever need.
func EncodeKey(buf []byte, k MVCCKey) []byte {
	buf = append(buf, k.Key...)
	buf = append(buf, 0x00)
	return EncodeTimestamp(buf, k.Timestamp)
}

// EncodeTimestamp appends the MVCC timestamp suffix for ts onto key, which
// must already end in the sentinel byte EncodeKey appends. A zero timestamp
// needs nothing further: the sentinel already in key doubles as the
// trailer value 0.
func EncodeTimestamp(key []byte, ts hlc.Timestamp) []byte {
	if ts.WallTime == 0 && ts.Logical == 0 {
		return key
	}
	if ts.Logical == 0 {
		key = append(key, make([]byte, 9)...)
		binary.BigEndian.PutUint64(key[len(key)-9:], uint64(ts.WallTime))
		key[len(key)-1] = 9
		return key
	}
	key = append(key, make([]byte, 13)...)
	binary.BigEndian.PutUint64(key[len(key)-13:], uint64(ts.WallTime))
	binary.BigEndian.PutUint32(key[len(key)-5:], uint32(ts.Logical))
	key[len(key)-1] = 13
	return key
}

// DecodeKey splits an encoded key into its user key and timestamp.
func DecodeKey(encoded []byte) (MVCCKey, error) {
	if len(encoded) == 0 {
		return MVCCKey{}, errors.New("empty encoded MVCC key")
	}
	trailer := int(encoded[len(encoded)-1])
	if trailer == 0 {
		return MVCCKey{Key: roachpb.Key(encoded[:len(encoded)-1])}, nil
	}
	// trailer counts the sentinel byte plus the timestamp bytes that precede
	// it; sentinelPos is where that sentinel lives, one byte before the
	// timestamp proper.
	sentinelPos := len(encoded) - 1 - trailer
	if sentinelPos < 0 || encoded[sentinelPos] != 0x00 {
		return MVCCKey{}, errors.Newf("malformed MVCC key: trailer %d exceeds key length %d", trailer, len(encoded))
	}
	userKey := encoded[:sentinelPos]
	version := encoded[sentinelPos+1 : len(encoded)-1]
	var ts hlc.Timestamp
	switch len(version) {
	case 8:
		ts.WallTime = int64(binary.BigEndian.Uint64(version))
	case 12:
		ts.WallTime = int64(binary.BigEndian.Uint64(version[:8]))
		ts.Logical = int32(binary.BigEndian.Uint32(version[8:]))
	default:
		return MVCCKey{}, errors.Newf("malformed MVCC key: unsupported version length %d", len(version))
	}
	return MVCCKey{Key: roachpb.Key(userKey), Timestamp: ts}, nil
}

// SplitKey returns the length of the user-key prefix (including the
// sentinel byte) of an encoded key, i.e. the index at which the timestamp
// suffix begins. It is the building block for both the comparator's suffix
// comparison and the prefix extractor.
func SplitKey(encoded []byte) int {
	if len(encoded) == 0 {
		return 0
	}
	trailer := encoded[len(encoded)-1]
	return len(encoded) - int(trailer)
}
