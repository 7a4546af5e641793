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
	"bytes"
	"testing"

	"github.com/shekhar108/mvcckv/pkg/enginepb"
	"github.com/shekhar108/mvcckv/pkg/hlc"
	"github.com/shekhar108/mvcckv/pkg/protoutil"
	"github.com/shekhar108/mvcckv/pkg/roachpb"
)

func bytesOperand(t *testing.T, payload string, ts hlc.Timestamp) []byte {
	t.Helper()
	var v roachpb.Value
	v.SetBytes([]byte(payload))
	meta := &enginepb.MVCCMetadata{Timestamp: ts, RawBytes: v.RawBytes}
	raw, err := protoutil.Marshal(meta)
	if err != nil {
		t.Fatalf("marshal operand: %v", err)
	}
	return raw
}

func decodeMergedBytes(t *testing.T, raw []byte) string {
	t.Helper()
	var meta enginepb.MVCCMetadata
	if err := protoutil.Unmarshal(raw, &meta); err != nil {
		t.Fatalf("unmarshal merged value: %v", err)
	}
	v := roachpb.MakeValue(meta.RawBytes, meta.Timestamp)
	b, err := v.GetBytes()
	if err != nil {
		t.Fatalf("GetBytes: %v", err)
	}
	return string(b)
}

func TestFullMergeConcatenatesBytes(t *testing.T) {
	ts := hlc.Timestamp{WallTime: 1}
	operands := [][]byte{
		bytesOperand(t, "a", ts),
		bytesOperand(t, "b", ts),
		bytesOperand(t, "c", ts),
	}
	merged, err := FullMerge([]byte("k"), operands)
	if err != nil {
		t.Fatalf("FullMerge: %v", err)
	}
	if got := decodeMergedBytes(t, merged); got != "abc" {
		t.Errorf("FullMerge = %q, want %q", got, "abc")
	}
}

func TestFullMergeIsAssociative(t *testing.T) {
	ts := hlc.Timestamp{WallTime: 1}
	a, b, c := bytesOperand(t, "a", ts), bytesOperand(t, "b", ts), bytesOperand(t, "c", ts)

	left, err := FullMerge([]byte("k"), [][]byte{a, b})
	if err != nil {
		t.Fatal(err)
	}
	leftThenC, err := FullMerge([]byte("k"), [][]byte{left, c})
	if err != nil {
		t.Fatal(err)
	}

	all, err := FullMerge([]byte("k"), [][]byte{a, b, c})
	if err != nil {
		t.Fatal(err)
	}

	if decodeMergedBytes(t, leftThenC) != decodeMergedBytes(t, all) {
		t.Errorf("merge is not associative: %q vs %q", decodeMergedBytes(t, leftThenC), decodeMergedBytes(t, all))
	}
}

func timeseriesOperand(t *testing.T, samples ...roachpb.InternalTimeSeriesSample) []byte {
	t.Helper()
	data := roachpb.InternalTimeSeriesData{StartTimestampNanos: 0, SampleDurationNanos: 10, Samples: samples}
	raw := make([]byte, data.Size())
	if _, err := data.MarshalTo(raw); err != nil {
		t.Fatalf("marshal timeseries: %v", err)
	}
	var v roachpb.Value
	v.SetTimeseries(raw)
	meta := &enginepb.MVCCMetadata{RawBytes: v.RawBytes}
	out, err := protoutil.Marshal(meta)
	if err != nil {
		t.Fatalf("marshal operand: %v", err)
	}
	return out
}

func decodeMergedTimeseries(t *testing.T, raw []byte) roachpb.InternalTimeSeriesData {
	t.Helper()
	var meta enginepb.MVCCMetadata
	if err := protoutil.Unmarshal(raw, &meta); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	v := roachpb.MakeValue(meta.RawBytes, meta.Timestamp)
	tsRaw, err := v.GetTimeseries()
	if err != nil {
		t.Fatalf("GetTimeseries: %v", err)
	}
	var data roachpb.InternalTimeSeriesData
	if err := data.Unmarshal(tsRaw); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	return data
}

func TestMergeTimeSeriesKeepsOneSamplePerOffset(t *testing.T) {
	op1 := timeseriesOperand(t,
		roachpb.InternalTimeSeriesSample{Offset: 2, Count: 1, Sum: 1},
		roachpb.InternalTimeSeriesSample{Offset: 5, Count: 1, Sum: 5},
	)
	op2 := timeseriesOperand(t,
		roachpb.InternalTimeSeriesSample{Offset: 2, Count: 1, Sum: 99}, // overwrites offset 2
		roachpb.InternalTimeSeriesSample{Offset: 9, Count: 1, Sum: 9},
	)
	merged, err := FullMerge([]byte("ts-key"), [][]byte{op1, op2})
	if err != nil {
		t.Fatalf("FullMerge: %v", err)
	}
	got := decodeMergedTimeseries(t, merged)
	if len(got.Samples) != 3 {
		t.Fatalf("got %d samples, want 3: %+v", len(got.Samples), got.Samples)
	}
	byOffset := map[int32]float64{}
	for _, s := range got.Samples {
		byOffset[s.Offset] = s.Sum
	}
	if byOffset[2] != 99 {
		t.Errorf("offset 2 sum = %v, want 99 (later operand should win)", byOffset[2])
	}
	if byOffset[5] != 5 || byOffset[9] != 9 {
		t.Errorf("unexpected sample set: %+v", byOffset)
	}
	for i := 1; i < len(got.Samples); i++ {
		if got.Samples[i-1].Offset >= got.Samples[i].Offset {
			t.Fatalf("samples not sorted by offset: %+v", got.Samples)
		}
	}
}

func TestMergeTimeSeriesResolutionMismatch(t *testing.T) {
	op1 := timeseriesOperand(t, roachpb.InternalTimeSeriesSample{Offset: 1, Count: 1, Sum: 1})
	data2 := roachpb.InternalTimeSeriesData{StartTimestampNanos: 0, SampleDurationNanos: 20}
	raw2 := make([]byte, data2.Size())
	_, _ = data2.MarshalTo(raw2)
	var v2 roachpb.Value
	v2.SetTimeseries(raw2)
	meta2 := &enginepb.MVCCMetadata{RawBytes: v2.RawBytes}
	op2, _ := protoutil.Marshal(meta2)

	if _, err := FullMerge([]byte("k"), [][]byte{op1, op2}); err == nil {
		t.Error("expected an error merging time series with different sample durations")
	}
}

func TestConsolidateTimeSeriesDedupesOutOfOrderSamples(t *testing.T) {
	raw := timeseriesOperand(t,
		roachpb.InternalTimeSeriesSample{Offset: 5, Count: 1, Sum: 1},
		roachpb.InternalTimeSeriesSample{Offset: 1, Count: 1, Sum: 2},
		roachpb.InternalTimeSeriesSample{Offset: 5, Count: 1, Sum: 3},
	)
	var meta enginepb.MVCCMetadata
	if err := protoutil.Unmarshal(raw, &meta); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	v := roachpb.MakeValue(meta.RawBytes, meta.Timestamp)
	consolidated, err := ConsolidateTimeSeries(v)
	if err != nil {
		t.Fatalf("ConsolidateTimeSeries: %v", err)
	}
	tsRaw, err := consolidated.GetTimeseries()
	if err != nil {
		t.Fatalf("GetTimeseries: %v", err)
	}
	var data roachpb.InternalTimeSeriesData
	if err := data.Unmarshal(tsRaw); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(data.Samples) != 2 {
		t.Fatalf("got %d samples, want 2 after dedup: %+v", len(data.Samples), data.Samples)
	}
	if data.Samples[0].Offset != 1 || data.Samples[1].Offset != 5 {
		t.Fatalf("samples not sorted: %+v", data.Samples)
	}
	if data.Samples[1].Sum != 3 {
		t.Errorf("duplicate offset should keep the later sample, got sum %v", data.Samples[1].Sum)
	}
}

func TestMergeOperatorNameIsStable(t *testing.T) {
	if Merger.Name != "cockroach_merge_operator" {
		t.Fatalf("merge operator name changed to %q; this breaks every existing SST", Merger.Name)
	}
}

var _ = bytes.Equal // keeps the bytes import referenced; no test above calls into it
