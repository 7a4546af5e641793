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

package storage

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/shekhar108/mvcckv/pkg/enginepb"
	"github.com/shekhar108/mvcckv/pkg/hlc"
	"github.com/shekhar108/mvcckv/pkg/protoutil"
	"github.com/shekhar108/mvcckv/pkg/roachpb"
)

// MergeOperatorName is the stable on-disk identifier for Merger.
const MergeOperatorName = "cockroach_merge_operator"

// Merger wraps this engine's merge operator for use as pebble.Options.Merger.
// Every operand and the existing value, if any, are MVCCMetadata values
// wrapping either a raw byte payload or a serialized time series.
var Merger = &pebble.Merger{
	Merge: newValueMerger,
	Name:  MergeOperatorName,
}

// valueMerger adapts this engine's operand-list merge operator (mergeOne /
// applyMerge below) to pebble's incremental pebble.ValueMerger interface,
// buffering operands oldest-to-newest and deferring to applyMerge at Finish.
type valueMerger struct {
	key      []byte
	operands [][]byte
}

func newValueMerger(key, value []byte) (pebble.ValueMerger, error) {
	return &valueMerger{key: key, operands: [][]byte{value}}, nil
}

func (m *valueMerger) MergeNewer(value []byte) error {
	m.operands = append(m.operands, value)
	return nil
}

func (m *valueMerger) MergeOlder(value []byte) error {
	m.operands = append([][]byte{value}, m.operands...)
	return nil
}

func (m *valueMerger) Finish(includesBase bool) ([]byte, io.Closer, error) {
	merged, err := applyMerge(m.key, m.operands, includesBase)
	if err != nil {
		return nil, nil, err
	}
	return merged, nil, nil
}

// FullMerge applies every operand in order, producing the single combined
// MVCCMetadata value that should replace them all. An empty operands slice
// returns nil.
func FullMerge(key []byte, operands [][]byte) ([]byte, error) {
	return applyMerge(key, operands, true)
}

// PartialMerge is FullMerge's counterpart for compaction-time partial
// merges: it combines a run of operands into a single operand that is
// itself still a valid merge input (as opposed to a fully resolved value).
// It differs from FullMerge only in that a lone leading time series operand
// is passed through as-is instead of being consolidated.
func PartialMerge(key []byte, operands [][]byte) ([]byte, error) {
	return applyMerge(key, operands, false)
}

func applyMerge(key []byte, operands [][]byte, full bool) ([]byte, error) {
	var acc *enginepb.MVCCMetadata
	for _, raw := range operands {
		if len(raw) == 0 {
			continue
		}
		var meta enginepb.MVCCMetadata
		if err := protoutil.Unmarshal(raw, &meta); err != nil {
			return nil, errors.Wrapf(err, "merge operand for key %q is not a valid MVCCMetadata", key)
		}
		merged, err := mergeOne(acc, &meta, full)
		if err != nil {
			return nil, err
		}
		acc = merged
	}
	if acc == nil {
		return nil, nil
	}
	return protoutil.Marshal(acc)
}

// mergeOne combines left (the accumulated result so far, or nil for the
// first operand) with right, per the combining rule: two time series
// payloads are sample-merged and re-sorted; two BYTES (or untagged)
// payloads are combined by byte concatenation, which is associative and
// therefore safe to apply incrementally as compaction replays a subset of
// operands. Any other pairing of tags is an error.
// This mirrors merge_one(left, right, full) in the original engine: full
// merges additionally consolidate (sort + dedup) a lone surviving payload.
func mergeOne(left, right *enginepb.MVCCMetadata, full bool) (*enginepb.MVCCMetadata, error) {
	if left == nil || len(left.RawBytes) == 0 {
		if full {
			return consolidateIfTimeseries(right)
		}
		return right, nil
	}
	if len(right.RawBytes) == 0 {
		return left, nil
	}

	leftVal := roachpb.MakeValue(left.RawBytes, left.Timestamp)
	rightVal := roachpb.MakeValue(right.RawBytes, right.Timestamp)

	if leftVal.GetTag() == roachpb.ValueType_TIMESERIES && rightVal.GetTag() == roachpb.ValueType_TIMESERIES {
		merged, err := mergeTimeSeriesPayloads(leftVal, rightVal)
		if err != nil {
			return nil, err
		}
		out := &enginepb.MVCCMetadata{Timestamp: laterTimestamp(left.Timestamp, right.Timestamp)}
		out.RawBytes = merged
		return out, nil
	}

	leftBytes, err := payloadBytes(leftVal)
	if err != nil {
		return nil, err
	}
	rightBytes, err := payloadBytes(rightVal)
	if err != nil {
		return nil, err
	}
	combined := make([]byte, 0, len(leftBytes)+len(rightBytes))
	combined = append(combined, leftBytes...)
	combined = append(combined, rightBytes...)

	var out roachpb.Value
	out.SetBytes(combined)
	return &enginepb.MVCCMetadata{
		Timestamp: laterTimestamp(left.Timestamp, right.Timestamp),
		RawBytes:  out.RawBytes,
	}, nil
}

func payloadBytes(v roachpb.Value) ([]byte, error) {
	switch v.GetTag() {
	case roachpb.ValueType_BYTES:
		return v.GetBytes()
	case roachpb.ValueType_UNKNOWN:
		return nil, nil
	default:
		return nil, errors.Newf("cannot merge value of type %d as bytes", v.GetTag())
	}
}

func consolidateIfTimeseries(meta *enginepb.MVCCMetadata) (*enginepb.MVCCMetadata, error) {
	val := roachpb.MakeValue(meta.RawBytes, meta.Timestamp)
	if val.GetTag() != roachpb.ValueType_TIMESERIES {
		return meta, nil
	}
	consolidated, err := ConsolidateTimeSeries(val)
	if err != nil {
		return nil, err
	}
	return &enginepb.MVCCMetadata{Timestamp: meta.Timestamp, RawBytes: consolidated.RawBytes}, nil
}

func laterTimestamp(a, b hlc.Timestamp) hlc.Timestamp {
	if a.Less(b) {
		return b
	}
	return a
}
