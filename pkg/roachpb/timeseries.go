// Copyright 2015 The Cockroach Authors.
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
	"math"

	"github.com/cockroachdb/errors"
	"github.com/gogo/protobuf/proto"
)

// InternalTimeSeriesSample is one sampled offset within a time series. Max
// and Min are nil unless the sample has been rolled up from more than one
// underlying data point.
type InternalTimeSeriesSample struct {
	Offset int32
	Count  uint32
	Sum    float64
	Max    *float64
	Min    *float64
}

// InternalTimeSeriesData is the value payload the time-series merge
// operator accumulates: a fixed start time and sample duration, plus a
// variable number of samples each occupying one offset slot within that
// duration.
type InternalTimeSeriesData struct {
	StartTimestampNanos int64
	SampleDurationNanos int64
	Samples             []InternalTimeSeriesSample
}

func (*InternalTimeSeriesData) Reset()         {}
func (*InternalTimeSeriesData) ProtoMessage()  {}
func (m *InternalTimeSeriesData) String() string {
	return proto.CompactTextString(m)
}

// Size returns the wire-encoded length of m.
func (m *InternalTimeSeriesData) Size() int {
	n := 0
	if m.StartTimestampNanos != 0 {
		n += 1 + varintLen(zigzagOrPlain(m.StartTimestampNanos))
	}
	if m.SampleDurationNanos != 0 {
		n += 1 + varintLen(zigzagOrPlain(m.SampleDurationNanos))
	}
	for i := range m.Samples {
		l := m.Samples[i].size()
		n += 1 + varintLen(uint64(l)) + l
	}
	return n
}

func (s *InternalTimeSeriesSample) size() int {
	n := 0
	if s.Offset != 0 {
		n += 1 + varintLen(zigzagOrPlain(int64(s.Offset)))
	}
	if s.Count != 0 {
		n += 1 + varintLen(uint64(s.Count))
	}
	n += 1 + 8 // sum, always emitted as fixed64 double
	if s.Max != nil {
		n += 1 + 8
	}
	if s.Min != nil {
		n += 1 + 8
	}
	return n
}

// MarshalTo encodes m in gogoproto wire format.
func (m *InternalTimeSeriesData) MarshalTo(data []byte) (int, error) {
	i := 0
	if m.StartTimestampNanos != 0 {
		data[i] = 0x8
		i++
		i = putVarint(data, i, uint64(m.StartTimestampNanos))
	}
	if m.SampleDurationNanos != 0 {
		data[i] = 0x10
		i++
		i = putVarint(data, i, uint64(m.SampleDurationNanos))
	}
	for idx := range m.Samples {
		data[i] = 0x1a // field 3, wire type 2 (length-delimited)
		i++
		l := m.Samples[idx].size()
		i = putVarint(data, i, uint64(l))
		n, err := m.Samples[idx].marshalTo(data[i : i+l])
		if err != nil {
			return 0, err
		}
		i += n
	}
	return i, nil
}

func (s *InternalTimeSeriesSample) marshalTo(data []byte) (int, error) {
	i := 0
	if s.Offset != 0 {
		data[i] = 0x8
		i++
		i = putVarint(data, i, uint64(s.Offset))
	}
	if s.Count != 0 {
		data[i] = 0x10
		i++
		i = putVarint(data, i, uint64(s.Count))
	}
	data[i] = 0x19 // field 3, wire type 1 (fixed64)
	i++
	putFixed64(data, i, math.Float64bits(s.Sum))
	i += 8
	if s.Max != nil {
		data[i] = 0x21 // field 4
		i++
		putFixed64(data, i, math.Float64bits(*s.Max))
		i += 8
	}
	if s.Min != nil {
		data[i] = 0x29 // field 5
		i++
		putFixed64(data, i, math.Float64bits(*s.Min))
		i += 8
	}
	return i, nil
}

// Unmarshal decodes m from data, resetting m first.
func (m *InternalTimeSeriesData) Unmarshal(data []byte) error {
	m.StartTimestampNanos = 0
	m.SampleDurationNanos = 0
	m.Samples = nil
	i := 0
	for i < len(data) {
		key, n := proto.DecodeVarint(data[i:])
		i += n
		field, wire := key>>3, key&0x7
		switch field {
		case 1:
			v, n := proto.DecodeVarint(data[i:])
			i += n
			m.StartTimestampNanos = int64(v)
		case 2:
			v, n := proto.DecodeVarint(data[i:])
			i += n
			m.SampleDurationNanos = int64(v)
		case 3:
			if wire != 2 {
				return errors.Newf("unexpected wire type %d for samples field", wire)
			}
			l, n := proto.DecodeVarint(data[i:])
			i += n
			var sample InternalTimeSeriesSample
			if err := sample.unmarshal(data[i : i+int(l)]); err != nil {
				return err
			}
			i += int(l)
			m.Samples = append(m.Samples, sample)
		default:
			return errors.Newf("unknown field %d in InternalTimeSeriesData", field)
		}
	}
	return nil
}

func (s *InternalTimeSeriesSample) unmarshal(data []byte) error {
	*s = InternalTimeSeriesSample{}
	i := 0
	for i < len(data) {
		key, n := proto.DecodeVarint(data[i:])
		i += n
		field := key >> 3
		switch field {
		case 1:
			v, n := proto.DecodeVarint(data[i:])
			i += n
			s.Offset = int32(v)
		case 2:
			v, n := proto.DecodeVarint(data[i:])
			i += n
			s.Count = uint32(v)
		case 3:
			s.Sum = math.Float64frombits(getFixed64(data, i))
			i += 8
		case 4:
			v := math.Float64frombits(getFixed64(data, i))
			s.Max = &v
			i += 8
		case 5:
			v := math.Float64frombits(getFixed64(data, i))
			s.Min = &v
			i += 8
		default:
			return errors.Newf("unknown field %d in InternalTimeSeriesSample", field)
		}
	}
	return nil
}

func zigzagOrPlain(v int64) uint64 { return uint64(v) }

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

func putFixed64(data []byte, i int, v uint64) {
	for b := 0; b < 8; b++ {
		data[i+b] = byte(v)
		v >>= 8
	}
}

func getFixed64(data []byte, i int) uint64 {
	var v uint64
	for b := 7; b >= 0; b-- {
		v = v<<8 | uint64(data[i+b])
	}
	return v
}
