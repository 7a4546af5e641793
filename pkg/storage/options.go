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
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/bloom"
)

// PebbleOptions returns the baseline *pebble.Options this engine opens a
// store with: the comparator and merger defined in this package, a
// 10-bits-per-key bloom filter evaluated against the user-key prefix (via
// Comparer.Split) rather than the whole versioned key, and the time-bound
// table property collector, plus the level/flush tuning the original
// engine's default RocksDB options used.
func PebbleOptions() *pebble.Options {
	opts := &pebble.Options{
		Comparer:                 Comparer,
		Merger:                   Merger,
		L0CompactionThreshold:    2,
		L0StopWritesThreshold:    12,
		LBaseMaxBytes:            64 << 20,
		MemTableSize:             64 << 20,
		MemTableStopWritesThreshold: 4,
	}
	opts.TablePropertyCollectors = append(opts.TablePropertyCollectors,
		func() pebble.TablePropertyCollector { return NewTimeBoundCollector() })

	filterPolicy := bloom.FilterPolicy(10)
	const numLevels = 7
	opts.Levels = make([]pebble.LevelOptions, numLevels)
	for i := range opts.Levels {
		l := &opts.Levels[i]
		l.FilterPolicy = filterPolicy
		l.BlockSize = 32 << 10
	}
	opts.Levels[0].TargetFileSize = 4 << 20
	for i := 1; i < len(opts.Levels); i++ {
		opts.Levels[i].TargetFileSize = opts.Levels[i-1].TargetFileSize * 2
	}
	opts.EnsureDefaults()
	return opts
}
