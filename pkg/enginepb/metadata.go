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

// Package enginepb holds the wire types the storage engine itself persists,
// as opposed to roachpb's types which describe the data the engine stores on
// a caller's behalf. MVCCMetadata is the value half of every intent (a
// "meta" key with no version suffix); MVCCStats is the accumulator the
// engine keeps per range.
package enginepb

import (
	"github.com/cockroachdb/errors"
	"github.com/gogo/protobuf/proto"
	"github.com/google/uuid"
	"github.com/shekhar108/mvcckv/pkg/hlc"
)

// TxnMeta identifies the transaction that owns an intent.
type TxnMeta struct {
	ID             uuid.UUID
	Epoch          int32
	WriteTimestamp hlc.Timestamp
}

func (m *TxnMeta) size() int {
	n := 0
	if m.ID != uuid.Nil {
		n += 1 + varintLen(uint64(len(m.ID))) + len(m.ID)
	}
	if m.Epoch != 0 {
		n += 1 + varintLen(uint64(m.Epoch))
	}
	if s := m.WriteTimestamp.Size(); s > 0 {
		n += 1 + varintLen(uint64(s)) + s
	}
	return n
}

func (m *TxnMeta) marshalTo(data []byte) (int, error) {
	i := 0
	if m.ID != uuid.Nil {
		data[i] = 0xa
		i++
		i = putVarint(data, i, uint64(len(m.ID)))
		copy(data[i:], m.ID[:])
		i += len(m.ID)
	}
	if m.Epoch != 0 {
		data[i] = 0x10
		i++
		i = putVarint(data, i, uint64(m.Epoch))
	}
	if s := m.WriteTimestamp.Size(); s > 0 {
		data[i] = 0x1a
		i++
		i = putVarint(data, i, uint64(s))
		n, err := m.WriteTimestamp.MarshalTo(data[i : i+s])
		if err != nil {
			return 0, err
		}
		i += n
	}
	return i, nil
}

func (m *TxnMeta) unmarshal(data []byte) error {
	*m = TxnMeta{}
	i := 0
	for i < len(data) {
		key, n := proto.DecodeVarint(data[i:])
		i += n
		field := key >> 3
		switch field {
		case 1:
			l, n := proto.DecodeVarint(data[i:])
			i += n
			copy(m.ID[:], data[i:i+int(l)])
			i += int(l)
		case 2:
			v, n := proto.DecodeVarint(data[i:])
			i += n
			m.Epoch = int32(v)
		case 3:
			l, n := proto.DecodeVarint(data[i:])
			i += n
			if err := m.WriteTimestamp.Unmarshal(data[i : i+int(l)]); err != nil {
				return err
			}
			i += int(l)
		default:
			return errors.Newf("unknown field %d in TxnMeta", field)
		}
	}
	return nil
}

// MVCCMetadata is the value stored under a key's "meta" (unversioned)
// entry. For an inline value (Txn == nil and the value fits without a
// separate versioned entry) RawBytes holds the value directly; for an
// intent, Timestamp/Txn describe the pending version and the version itself
// is stored separately under the versioned MVCCKey.
type MVCCMetadata struct {
	Txn            *TxnMeta
	Timestamp      hlc.Timestamp
	Deleted        bool
	KeyBytes       int64
	ValBytes       int64
	RawBytes       []byte
	MergeTimestamp *hlc.Timestamp
}

func (*MVCCMetadata) Reset()        {}
func (*MVCCMetadata) ProtoMessage() {}
func (m *MVCCMetadata) String() string {
	return proto.CompactTextString(m)
}

// IsInline reports whether RawBytes holds the value directly rather than in
// a separate versioned MVCCKey entry.
func (m *MVCCMetadata) IsInline() bool {
	return m.Txn == nil && len(m.RawBytes) > 0
}

// Size returns the wire length of m.
func (m *MVCCMetadata) Size() int {
	n := 0
	if m.Txn != nil {
		s := m.Txn.size()
		n += 1 + varintLen(uint64(s)) + s
	}
	if s := m.Timestamp.Size(); s > 0 {
		n += 1 + varintLen(uint64(s)) + s
	}
	if m.Deleted {
		n += 2
	}
	if m.KeyBytes != 0 {
		n += 1 + varintLen(uint64(m.KeyBytes))
	}
	if m.ValBytes != 0 {
		n += 1 + varintLen(uint64(m.ValBytes))
	}
	if len(m.RawBytes) > 0 {
		n += 1 + varintLen(uint64(len(m.RawBytes))) + len(m.RawBytes)
	}
	if m.MergeTimestamp != nil {
		s := m.MergeTimestamp.Size()
		n += 1 + varintLen(uint64(s)) + s
	}
	return n
}

// MarshalTo encodes m in gogoproto wire format.
func (m *MVCCMetadata) MarshalTo(data []byte) (int, error) {
	i := 0
	if m.Txn != nil {
		data[i] = 0xa
		i++
		s := m.Txn.size()
		i = putVarint(data, i, uint64(s))
		n, err := m.Txn.marshalTo(data[i : i+s])
		if err != nil {
			return 0, err
		}
		i += n
	}
	if s := m.Timestamp.Size(); s > 0 {
		data[i] = 0x12
		i++
		i = putVarint(data, i, uint64(s))
		n, err := m.Timestamp.MarshalTo(data[i : i+s])
		if err != nil {
			return 0, err
		}
		i += n
	}
	if m.Deleted {
		data[i] = 0x18
		i++
		data[i] = 1
		i++
	}
	if m.KeyBytes != 0 {
		data[i] = 0x20
		i++
		i = putVarint(data, i, uint64(m.KeyBytes))
	}
	if m.ValBytes != 0 {
		data[i] = 0x28
		i++
		i = putVarint(data, i, uint64(m.ValBytes))
	}
	if len(m.RawBytes) > 0 {
		data[i] = 0x32
		i++
		i = putVarint(data, i, uint64(len(m.RawBytes)))
		copy(data[i:], m.RawBytes)
		i += len(m.RawBytes)
	}
	if m.MergeTimestamp != nil {
		data[i] = 0x3a
		i++
		s := m.MergeTimestamp.Size()
		i = putVarint(data, i, uint64(s))
		n, err := m.MergeTimestamp.MarshalTo(data[i : i+s])
		if err != nil {
			return 0, err
		}
		i += n
	}
	return i, nil
}

// Unmarshal decodes m from data, resetting m first.
func (m *MVCCMetadata) Unmarshal(data []byte) error {
	*m = MVCCMetadata{}
	i := 0
	for i < len(data) {
		key, n := proto.DecodeVarint(data[i:])
		i += n
		field, wire := key>>3, key&0x7
		switch field {
		case 1:
			l, n := proto.DecodeVarint(data[i:])
			i += n
			m.Txn = &TxnMeta{}
			if err := m.Txn.unmarshal(data[i : i+int(l)]); err != nil {
				return err
			}
			i += int(l)
		case 2:
			l, n := proto.DecodeVarint(data[i:])
			i += n
			if err := m.Timestamp.Unmarshal(data[i : i+int(l)]); err != nil {
				return err
			}
			i += int(l)
		case 3:
			v, n := proto.DecodeVarint(data[i:])
			i += n
			m.Deleted = v != 0
		case 4:
			v, n := proto.DecodeVarint(data[i:])
			i += n
			m.KeyBytes = int64(v)
		case 5:
			v, n := proto.DecodeVarint(data[i:])
			i += n
			m.ValBytes = int64(v)
		case 6:
			l, n := proto.DecodeVarint(data[i:])
			i += n
			m.RawBytes = append([]byte(nil), data[i:i+int(l)]...)
			i += int(l)
		case 7:
			l, n := proto.DecodeVarint(data[i:])
			i += n
			var ts hlc.Timestamp
			if err := ts.Unmarshal(data[i : i+int(l)]); err != nil {
				return err
			}
			m.MergeTimestamp = &ts
			i += int(l)
		default:
			return errors.Newf("unknown field %d (wire type %d) in MVCCMetadata", field, wire)
		}
	}
	return nil
}

func varintLen(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

func putVarint(data []byte, i int, v uint64) int {
	for v >= 0x80 {
		data[i] = byte(v) | 0x80
		v >>= 7
		i++
	}
	data[i] = byte(v)
	return i + 1
}
