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

package hlc

import "github.com/gogo/protobuf/proto"

// MarshalTo writes t in the same wire encoding protoc would generate for a
// message with `int64 wall_time = 1; int32 logical = 2;`. Timestamp is
// embedded (not a pointer) in enginepb.MVCCMetadata, so callers that embed it
// are responsible for the length-prefix; MarshalTo here only emits the two
// fields.
func (t Timestamp) MarshalTo(data []byte) (int, error) {
	i := 0
	if t.WallTime != 0 {
		data[i] = 0x8
		i++
		i = encodeVarint(data, i, uint64(t.WallTime))
	}
	if t.Logical != 0 {
		data[i] = 0x10
		i++
		i = encodeVarint(data, i, uint64(t.Logical))
	}
	return i, nil
}

// Unmarshal decodes a Timestamp written by MarshalTo.
func (t *Timestamp) Unmarshal(data []byte) error {
	*t = Timestamp{}
	i := 0
	for i < len(data) {
		key, n := proto.DecodeVarint(data[i:])
		i += n
		fieldNum := key >> 3
		v, n := proto.DecodeVarint(data[i:])
		i += n
		switch fieldNum {
		case 1:
			t.WallTime = int64(v)
		case 2:
			t.Logical = int32(v)
		}
	}
	return nil
}

func encodeVarint(data []byte, i int, v uint64) int {
	for v >= 0x80 {
		data[i] = byte(v) | 0x80
		v >>= 7
		i++
	}
	data[i] = byte(v)
	return i + 1
}
