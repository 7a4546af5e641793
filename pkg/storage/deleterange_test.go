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

import (
	"testing"

	"github.com/shekhar108/mvcckv/pkg/hlc"
	"github.com/shekhar108/mvcckv/pkg/roachpb"
)

func TestClearRangeRemovesEveryVersion(t *testing.T) {
	store := newMemStore()
	putVersion(t, store, "b", hlc.Timestamp{WallTime: 10}, "v1")
	putVersion(t, store, "b", hlc.Timestamp{WallTime: 5}, "v0")
	putVersion(t, store, "c", hlc.Timestamp{WallTime: 10}, "v1")
	putVersion(t, store, "z", hlc.Timestamp{WallTime: 10}, "outside")

	n, err := ClearRange(store, roachpb.Key("a"), roachpb.Key("d"))
	if err != nil {
		t.Fatalf("ClearRange: %v", err)
	}
	if n != 3 {
		t.Errorf("removed %d entries, want 3", n)
	}

	kv, err := (&Scanner{reader: store, opts: ScanOptions{Timestamp: hlc.Timestamp{WallTime: 100}}}).Get(roachpb.Key("b"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if kv != nil {
		t.Errorf("expected key %q to be gone, got %+v", "b", kv)
	}

	kv, err = (&Scanner{reader: store, opts: ScanOptions{Timestamp: hlc.Timestamp{WallTime: 100}}}).Get(roachpb.Key("z"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if kv == nil {
		t.Error("expected key outside the cleared range to survive")
	}
}

func TestDeleteRangeTombstoneLeavesBoundaryKeyUntouched(t *testing.T) {
	store := newMemStore()
	putVersion(t, store, "a", hlc.Timestamp{WallTime: 1}, "va")
	putVersion(t, store, "d", hlc.Timestamp{WallTime: 1}, "vd")

	if err := DeleteRangeTombstone(store, roachpb.Key("a"), roachpb.Key("d")); err != nil {
		t.Fatalf("DeleteRangeTombstone: %v", err)
	}

	if _, ok := store.entries[string(EncodeKey(nil, MVCCKey{Key: roachpb.Key("d"), Timestamp: hlc.Timestamp{WallTime: 1}}))]; !ok {
		t.Error("the end key of a half-open range tombstone must not be removed")
	}
}
