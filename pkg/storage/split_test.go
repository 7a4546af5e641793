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
	"testing"

	"github.com/shekhar108/mvcckv/pkg/hlc"
	"github.com/shekhar108/mvcckv/pkg/roachpb"
)

func TestIsValidSplitKey(t *testing.T) {
	if IsValidSplitKey(roachpb.Key("\x01local")) {
		t.Error("a key below KeyLocalMax should not be a valid split point")
	}
	if !IsValidSplitKey(roachpb.Key("somewhere/in/the/user/keyspace")) {
		t.Error("an ordinary user key should be a valid split point")
	}
}

func TestFindSplitKeyPicksMidpoint(t *testing.T) {
	store := newMemStore()
	keys := []string{
		"somewhere/a",
		"somewhere/b",
		"somewhere/c",
		"somewhere/d",
		"somewhere/e",
	}
	ts := hlc.Timestamp{WallTime: 1}
	for _, k := range keys {
		putVersion(t, store, k, ts, "0123456789")
	}

	splitKey, err := FindSplitKey(store, roachpb.Key("somewhere/"), roachpb.Key("somewhere0"), 10_000)
	if err != nil {
		t.Fatalf("FindSplitKey: %v", err)
	}
	// The target size vastly exceeds the range's total bytes, so the running
	// size-so-far never gets close enough to stop improving until the very
	// last key is reached.
	if string(splitKey) != "somewhere/e" {
		t.Errorf("split key = %q, want the last key %q", splitKey, "somewhere/e")
	}
}

func TestFindSplitKeyConvergesOnTargetSize(t *testing.T) {
	store := newMemStore()
	keys := []string{"a", "b", "c", "d", "e"}
	ts := hlc.Timestamp{WallTime: 1}
	var total int64
	for _, k := range keys {
		putVersion(t, store, k, ts, "0123456789")
		mvk := MVCCKey{Key: roachpb.Key(k), Timestamp: ts}
		total += int64(mvk.EncodedSize() + 10)
	}

	splitKey, err := FindSplitKey(store, roachpb.Key("a"), roachpb.Key("z"), total/2)
	if err != nil {
		t.Fatalf("FindSplitKey: %v", err)
	}
	// With five equally sized keys the true midpoint falls between c and d;
	// the algorithm should land on one of the two closest candidates.
	if string(splitKey) != "c" && string(splitKey) != "d" {
		t.Errorf("split key = %q, want %q or %q", splitKey, "c", "d")
	}
}

func TestFindSplitKeyErrorsWithNoValidCandidate(t *testing.T) {
	store := newMemStore()
	putVersion(t, store, "\x01a", hlc.Timestamp{WallTime: 1}, "v")
	putVersion(t, store, "\x01b", hlc.Timestamp{WallTime: 1}, "v")

	_, err := FindSplitKey(store, roachpb.Key("\x01"), roachpb.Key("\x01z"), 1)
	if err == nil {
		t.Error("expected an error when no candidate key is a valid split point")
	}
}
