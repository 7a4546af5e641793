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

package storage

import "sort"

// compactionTargetSize is the approximate number of bytes each planned
// compaction range should cover, matching the 128 MiB chunking DBCompact
// used in the original engine to avoid issuing one unbounded
// CompactRange call across an entire store's bottom level.
const compactionTargetSize = 128 << 20

// CompactionRange is one [Start, End) span FindCompactionRanges recommends
// passing to Engine.CompactRange.
type CompactionRange struct {
	Start, End MVCCKey
}

// FindCompactionRanges partitions a store's bottom-most-level tables into a
// sequence of roughly compactionTargetSize-byte ranges covering the whole
// keyspace present in tables, so that a full-store compaction (e.g. after a
// bulk GC pass) can be driven as a series of bounded CompactRange calls
// instead of one call the engine might run as a single enormous
// compaction. This mirrors DBCompact in the original engine: sort the
// bottom level's tables by smallest key, then walk them accumulating size,
// cutting a new range each time the running total crosses the target, with
// each range's start equal to the previous range's end.
func FindCompactionRanges(tables []SSTableInfo) []CompactionRange {
	bottom := make([]SSTableInfo, 0, len(tables))
	maxLevel := 0
	for _, t := range tables {
		if t.Level > maxLevel {
			maxLevel = t.Level
		}
	}
	for _, t := range tables {
		if t.Level == maxLevel {
			bottom = append(bottom, t)
		}
	}
	sort.Slice(bottom, func(i, j int) bool {
		return bottom[i].Start.Less(bottom[j].Start)
	})

	var ranges []CompactionRange
	var runningSize int64
	var rangeStart MVCCKey
	haveStart := false
	var last MVCCKey

	for _, t := range bottom {
		if !haveStart {
			rangeStart = t.Start
			haveStart = true
		}
		runningSize += t.Size
		last = t.End
		if runningSize >= compactionTargetSize {
			ranges = append(ranges, CompactionRange{Start: rangeStart, End: last})
			rangeStart = last
			runningSize = 0
		}
	}
	if haveStart && runningSize > 0 {
		ranges = append(ranges, CompactionRange{Start: rangeStart, End: last})
	}
	return ranges
}
