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

package roachpb

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/cockroachdb/errors"
	"github.com/shekhar108/mvcckv/pkg/hlc"
)

// ValueType identifies how RawBytes' payload beyond the tag byte is encoded.
type ValueType byte

// ValueType values. UNKNOWN is the zero value used for deletion tombstones,
// which carry a zero-length RawBytes and therefore never reach the tag byte.
const (
	ValueType_UNKNOWN    ValueType = 0
	ValueType_BYTES      ValueType = 1
	ValueType_TIMESERIES ValueType = 2
)

const (
	checksumSize = 4
	tagSize      = 1
	headerSize   = checksumSize + tagSize
)

// Value is a versioned, typed byte payload. RawBytes is the on-disk
// representation stored as the value half of an MVCC key/value pair:
// <4-byte crc32 checksum><1-byte tag><payload>. A zero-length RawBytes
// represents a deletion tombstone.
type Value struct {
	RawBytes  []byte
	Timestamp hlc.Timestamp
}

// MakeValue wraps raw bytes already in the <checksum><tag><payload> format
// together with the timestamp carried alongside it in an MVCCMetadata.
func MakeValue(rawBytes []byte, ts hlc.Timestamp) Value {
	return Value{RawBytes: rawBytes, Timestamp: ts}
}

// IsPresent reports whether the value represents a live (non-tombstone)
// entry.
func (v Value) IsPresent() bool {
	return len(v.RawBytes) != 0
}

// GetTag returns the value's type tag, or ValueType_UNKNOWN if RawBytes is
// too short to contain one (e.g. a tombstone).
func (v Value) GetTag() ValueType {
	if len(v.RawBytes) < headerSize {
		return ValueType_UNKNOWN
	}
	return ValueType(v.RawBytes[checksumSize])
}

// SetBytes encodes an opaque byte payload, tagging it BYTES.
func (v *Value) SetBytes(data []byte) {
	v.RawBytes = encode(ValueType_BYTES, data)
}

// GetBytes decodes a BYTES-tagged payload.
func (v Value) GetBytes() ([]byte, error) {
	if tag := v.GetTag(); tag != ValueType_BYTES {
		return nil, errors.Newf("value type is not BYTES: %d", tag)
	}
	return v.RawBytes[headerSize:], nil
}

// SetTimeseries encodes a pre-serialized InternalTimeSeriesData payload,
// tagging it TIMESERIES. Callers pass the already-marshaled protobuf bytes.
func (v *Value) SetTimeseries(data []byte) {
	v.RawBytes = encode(ValueType_TIMESERIES, data)
}

// GetTimeseries returns the raw (still-marshaled) TIMESERIES payload.
func (v Value) GetTimeseries() ([]byte, error) {
	if tag := v.GetTag(); tag != ValueType_TIMESERIES {
		return nil, errors.Newf("value type is not TIMESERIES: %d", tag)
	}
	return v.RawBytes[headerSize:], nil
}

// Verify recomputes the checksum over the tag and payload and compares it to
// the stored one, catching corruption the way the original engine's
// Value.Verify does for values read back off disk.
func (v Value) Verify(key []byte) error {
	if len(v.RawBytes) == 0 {
		return nil
	}
	if len(v.RawBytes) < headerSize {
		return errors.Newf("value too short to contain checksum+tag: %d bytes", len(v.RawBytes))
	}
	want := binary.LittleEndian.Uint32(v.RawBytes[:checksumSize])
	got := crc32.ChecksumIEEE(v.RawBytes[checksumSize:])
	if want != got {
		return errors.Newf("value checksum mismatch for key %q: computed %d, stored %d", key, got, want)
	}
	return nil
}

func encode(tag ValueType, payload []byte) []byte {
	buf := make([]byte, headerSize+len(payload))
	buf[checksumSize] = byte(tag)
	copy(buf[headerSize:], payload)
	binary.LittleEndian.PutUint32(buf[:checksumSize], crc32.ChecksumIEEE(buf[checksumSize:]))
	return buf
}
