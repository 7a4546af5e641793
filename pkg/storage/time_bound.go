// Copyright 2017 The Cockroach Authors.
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
	"strconv"

	"github.com/cockroachdb/pebble"
)

// TimeBoundPropCollectorName is the stable name under which this collector
// registers itself with an SST, matching TimeBoundTblPropCollector in the
// original engine.
const TimeBoundPropCollectorName = "TimeBoundTblPropCollector"

// TimeBoundMinTimestampProp and TimeBoundMaxTimestampProp are the user
// property keys this collector writes. A range-restricted scan (such as a
// follower-read or incremental backup's iterator) can read these straight
// off an SST's metadata and skip the whole table without opening it, when
// the requested time interval doesn't intersect [min, max].
const (
	TimeBoundMinTimestampProp = "crdb.ts.min"
	TimeBoundMaxTimestampProp = "crdb.ts.max"
)

// timeBoundCollector tracks the smallest and largest MVCC wall-time
// observed across every versioned key added to one SST.
type timeBoundCollector struct {
	min, max int64
	seen     bool
}

// NewTimeBoundCollector returns a fresh pebble.TablePropertyCollector;
// options.go wraps it in the factory pebble.Options.TablePropertyCollectors
// takes.
func NewTimeBoundCollector() pebble.TablePropertyCollector {
	return &timeBoundCollector{}
}

func (c *timeBoundCollector) Add(key pebble.InternalKey, _ []byte) error {
	mvccKey, err := DecodeKey(key.UserKey)
	if err != nil {
		// Range-local and other non-MVCC keys (e.g. a lock table entry) carry
		// no timestamp; they simply don't extend the window.
		return nil //nolint // mirrors the original collector's "ignore decode failures" behavior
	}
	if !mvccKey.IsValue() {
		return nil
	}
	wall := mvccKey.Timestamp.WallTime
	if !c.seen {
		c.min, c.max = wall, wall
		c.seen = true
		return nil
	}
	if wall < c.min {
		c.min = wall
	}
	if wall > c.max {
		c.max = wall
	}
	return nil
}

func (c *timeBoundCollector) Finish(userProps map[string]string) error {
	if !c.seen {
		return nil
	}
	userProps[TimeBoundMinTimestampProp] = strconv.FormatInt(c.min, 10)
	userProps[TimeBoundMaxTimestampProp] = strconv.FormatInt(c.max, 10)
	return nil
}

func (c *timeBoundCollector) Name() string {
	return TimeBoundPropCollectorName
}

// TableUserProperties is a table's path alongside the user properties this
// collector (or any other registered one) wrote for it, used by
// Engine.GetUserProperties.
type TableUserProperties struct {
	Path       string
	Properties map[string]string
}

// TimeBoundOverlaps reports whether an SST whose collected properties are
// props could contain any version with a wall time in [fromNanos, toNanos].
// A table lacking either property is conservatively assumed to overlap,
// since it may hold no versioned keys at all (in which case scanning it is
// merely wasted, not incorrect) or may predate this collector's
// introduction.
func TimeBoundOverlaps(props map[string]string, fromNanos, toNanos int64) bool {
	minStr, hasMin := props[TimeBoundMinTimestampProp]
	maxStr, hasMax := props[TimeBoundMaxTimestampProp]
	if !hasMin || !hasMax {
		return true
	}
	min, err := strconv.ParseInt(minStr, 10, 64)
	if err != nil {
		return true
	}
	max, err := strconv.ParseInt(maxStr, 10, 64)
	if err != nil {
		return true
	}
	return max >= fromNanos && min <= toNanos
}
