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
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/shekhar108/mvcckv/pkg/roachpb"
)

// mergeTimeSeriesPayloads combines two serialized InternalTimeSeriesData
// values sampled at the same resolution into one, keeping, for any offset
// present in both, the sample contributed by the logically later operand
// (right). Each input is first stable-sorted by offset and collapsed to its
// last sample per offset, since a PartialMerge passes its leading operand
// through without consolidating it.
func mergeTimeSeriesPayloads(left, right roachpb.Value) ([]byte, error) {
	leftData, err := decodeTimeSeries(left)
	if err != nil {
		return nil, err
	}
	rightData, err := decodeTimeSeries(right)
	if err != nil {
		return nil, err
	}
	if leftData.StartTimestampNanos != rightData.StartTimestampNanos ||
		leftData.SampleDurationNanos != rightData.SampleDurationNanos {
		return nil, errors.Newf(
			"cannot merge time series with different resolutions: (%d, %d) vs (%d, %d)",
			leftData.StartTimestampNanos, leftData.SampleDurationNanos,
			rightData.StartTimestampNanos, rightData.SampleDurationNanos)
	}

	merged := mergeSortedSamples(
		dedupeSortedSamples(stableSortByOffset(leftData.Samples)),
		dedupeSortedSamples(stableSortByOffset(rightData.Samples)))
	out := roachpb.InternalTimeSeriesData{
		StartTimestampNanos: leftData.StartTimestampNanos,
		SampleDurationNanos: leftData.SampleDurationNanos,
		Samples:             merged,
	}
	return encodeTimeSeriesValue(out)
}

// ConsolidateTimeSeries re-sorts and deduplicates the samples within a
// single serialized time series value, keeping the last sample for any
// offset that appears more than once. This is what FullMerge applies to a
// lone surviving operand (mirroring ConsolidateTimeSeriesValue in the
// original engine), and is also exported as a standalone repair path for
// compaction-triggered cleanup of a value that was never merged against
// anything else.
func ConsolidateTimeSeries(v roachpb.Value) (roachpb.Value, error) {
	data, err := decodeTimeSeries(v)
	if err != nil {
		return roachpb.Value{}, err
	}
	data.Samples = dedupeSortedSamples(stableSortByOffset(data.Samples))
	raw, err := encodeTimeSeriesValue(data)
	if err != nil {
		return roachpb.Value{}, err
	}
	var out roachpb.Value
	out.RawBytes = raw
	out.Timestamp = v.Timestamp
	return out, nil
}

func decodeTimeSeries(v roachpb.Value) (roachpb.InternalTimeSeriesData, error) {
	raw, err := v.GetTimeseries()
	if err != nil {
		return roachpb.InternalTimeSeriesData{}, err
	}
	var data roachpb.InternalTimeSeriesData
	if err := data.Unmarshal(raw); err != nil {
		return roachpb.InternalTimeSeriesData{}, errors.Wrap(err, "decoding InternalTimeSeriesData")
	}
	return data, nil
}

func encodeTimeSeriesValue(data roachpb.InternalTimeSeriesData) ([]byte, error) {
	raw := make([]byte, data.Size())
	if _, err := data.MarshalTo(raw); err != nil {
		return nil, err
	}
	var v roachpb.Value
	v.SetTimeseries(raw)
	return v.RawBytes, nil
}

func stableSortByOffset(samples []roachpb.InternalTimeSeriesSample) []roachpb.InternalTimeSeriesSample {
	out := append([]roachpb.InternalTimeSeriesSample(nil), samples...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Offset < out[j].Offset })
	return out
}

// mergeSortedSamples walks two offset-sorted sample slices and produces a
// single offset-sorted slice in which, for any offset present in both
// inputs, the sample from right wins — matching the original engine's rule
// that later (right-hand) operands take precedence for a given offset.
func mergeSortedSamples(
	left, right []roachpb.InternalTimeSeriesSample,
) []roachpb.InternalTimeSeriesSample {
	out := make([]roachpb.InternalTimeSeriesSample, 0, len(left)+len(right))
	i, j := 0, 0
	for i < len(left) && j < len(right) {
		switch {
		case left[i].Offset < right[j].Offset:
			out = append(out, left[i])
			i++
		case left[i].Offset > right[j].Offset:
			out = append(out, right[j])
			j++
		default:
			out = append(out, right[j])
			i++
			j++
		}
	}
	out = append(out, left[i:]...)
	out = append(out, right[j:]...)
	return out
}

// dedupeSortedSamples collapses runs of equal-offset samples in an
// already offset-sorted slice, keeping the last sample in each run. Used
// to consolidate a single value's samples where the same offset may have
// been written more than once before ever being merged against another
// value.
func dedupeSortedSamples(
	samples []roachpb.InternalTimeSeriesSample,
) []roachpb.InternalTimeSeriesSample {
	if len(samples) == 0 {
		return samples
	}
	out := make([]roachpb.InternalTimeSeriesSample, 0, len(samples))
	for _, s := range samples {
		if n := len(out); n > 0 && out[n-1].Offset == s.Offset {
			out[n-1] = s
			continue
		}
		out = append(out, s)
	}
	return out
}
