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

func mustPutValue(t *testing.T, store *memStore, key MVCCKey, raw []byte) {
	t.Helper()
	if err := store.Put(key, raw); err != nil {
		t.Fatalf("Put: %v", err)
	}
}

func TestIndexedBatchReadYourWrites(t *testing.T) {
	ts := hlc.Timestamp{WallTime: 10}
	base := newMemStore()
	mustPutValue(t, base, MVCCKey{Key: roachpb.Key("a"), Timestamp: ts}, bytesOperand(t, "base-a", ts))

	b := NewIndexedBatch(base)
	if err := b.Put(MVCCKey{Key: roachpb.Key("b"), Timestamp: ts}, bytesOperand(t, "batch-b", ts)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := b.Delete(MVCCKey{Key: roachpb.Key("a"), Timestamp: ts}); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	got, err := b.Get(MVCCKey{Key: roachpb.Key("a"), Timestamp: ts})
	if err != nil {
		t.Fatalf("Get(a): %v", err)
	}
	if got != nil {
		t.Errorf("Get(a) after Delete = %v, want nil", got)
	}

	got, err = b.Get(MVCCKey{Key: roachpb.Key("b"), Timestamp: ts})
	if err != nil {
		t.Fatalf("Get(b): %v", err)
	}
	if decodeMergedBytes(t, got) != "batch-b" {
		t.Errorf("Get(b) = %q, want %q", decodeMergedBytes(t, got), "batch-b")
	}

	got, err = b.Get(MVCCKey{Key: roachpb.Key("c"), Timestamp: ts})
	if err != nil {
		t.Fatalf("Get(c): %v", err)
	}
	if got != nil {
		t.Errorf("Get(c) for untouched key = %v, want nil", got)
	}

	// base itself must be untouched until the batch is committed.
	baseGot, err := base.Get(MVCCKey{Key: roachpb.Key("a"), Timestamp: ts})
	if err != nil {
		t.Fatalf("base.Get(a): %v", err)
	}
	if decodeMergedBytes(t, baseGot) != "base-a" {
		t.Errorf("base was mutated before commit: got %q", decodeMergedBytes(t, baseGot))
	}
}

func TestIndexedBatchMergeOntoOwnPutIsEager(t *testing.T) {
	ts := hlc.Timestamp{WallTime: 1}
	base := newMemStore()
	b := NewIndexedBatch(base)
	key := MVCCKey{Key: roachpb.Key("k"), Timestamp: ts}

	if err := b.Put(key, bytesOperand(t, "a", ts)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := b.Merge(key, bytesOperand(t, "b", ts)); err != nil {
		t.Fatalf("Merge: %v", err)
	}

	got, err := b.Get(key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if decodeMergedBytes(t, got) != "ab" {
		t.Errorf("Get after put-then-merge = %q, want %q", decodeMergedBytes(t, got), "ab")
	}
}

func TestIndexedBatchMergeDeferredAgainstBase(t *testing.T) {
	ts := hlc.Timestamp{WallTime: 1}
	base := newMemStore()
	key := MVCCKey{Key: roachpb.Key("k"), Timestamp: ts}
	mustPutValue(t, base, key, bytesOperand(t, "base", ts))

	b := NewIndexedBatch(base)
	if err := b.Merge(key, bytesOperand(t, "-delta", ts)); err != nil {
		t.Fatalf("Merge: %v", err)
	}

	got, err := b.Get(key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if decodeMergedBytes(t, got) != "base-delta" {
		t.Errorf("Get after deferred merge = %q, want %q", decodeMergedBytes(t, got), "base-delta")
	}

	// base must still show only its own value; the merge is not applied
	// until the batch is committed.
	baseGot, err := base.Get(key)
	if err != nil {
		t.Fatalf("base.Get: %v", err)
	}
	if decodeMergedBytes(t, baseGot) != "base" {
		t.Errorf("base was mutated before commit: got %q", decodeMergedBytes(t, baseGot))
	}
}

func TestIndexedBatchMergeOntoOwnDeleteRestartsChain(t *testing.T) {
	ts := hlc.Timestamp{WallTime: 1}
	base := newMemStore()
	key := MVCCKey{Key: roachpb.Key("k"), Timestamp: ts}
	mustPutValue(t, base, key, bytesOperand(t, "base", ts))

	b := NewIndexedBatch(base)
	if err := b.Delete(key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := b.Merge(key, bytesOperand(t, "fresh", ts)); err != nil {
		t.Fatalf("Merge: %v", err)
	}

	got, err := b.Get(key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	// The delete shadows base, so the merge chain should start fresh from
	// "fresh" alone rather than including the deleted base value.
	if decodeMergedBytes(t, got) != "fresh" {
		t.Errorf("Get after delete-then-merge = %q, want %q", decodeMergedBytes(t, got), "fresh")
	}
}

func TestIndexedBatchIteratorOverlayForward(t *testing.T) {
	ts := hlc.Timestamp{WallTime: 10}
	base := newMemStore()
	mustPutValue(t, base, MVCCKey{Key: roachpb.Key("a"), Timestamp: ts}, bytesOperand(t, "va", ts))
	mustPutValue(t, base, MVCCKey{Key: roachpb.Key("b"), Timestamp: ts}, bytesOperand(t, "vb", ts))

	b := NewIndexedBatch(base)
	if err := b.Put(MVCCKey{Key: roachpb.Key("c"), Timestamp: ts}, bytesOperand(t, "vc", ts)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := b.Delete(MVCCKey{Key: roachpb.Key("a"), Timestamp: ts}); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	it := b.NewIterator(IterOptions{})
	defer it.Close()

	var gotKeys []string
	for it.SeekGE(EncodeKey(nil, MVCCKey{Key: roachpb.Key("")})); it.Valid(); it.Next() {
		k, err := DecodeKey(it.UnsafeKey())
		if err != nil {
			t.Fatalf("DecodeKey: %v", err)
		}
		gotKeys = append(gotKeys, string(k.Key))
	}
	if err := it.Error(); err != nil {
		t.Fatalf("iterator error: %v", err)
	}

	want := []string{"b", "c"}
	if len(gotKeys) != len(want) {
		t.Fatalf("got keys %v, want %v", gotKeys, want)
	}
	for i := range want {
		if gotKeys[i] != want[i] {
			t.Errorf("key %d = %q, want %q (full: %v)", i, gotKeys[i], want[i], gotKeys)
		}
	}
}

func TestIndexedBatchIteratorOverlayReverse(t *testing.T) {
	ts := hlc.Timestamp{WallTime: 10}
	base := newMemStore()
	mustPutValue(t, base, MVCCKey{Key: roachpb.Key("a"), Timestamp: ts}, bytesOperand(t, "va", ts))
	mustPutValue(t, base, MVCCKey{Key: roachpb.Key("b"), Timestamp: ts}, bytesOperand(t, "vb", ts))

	b := NewIndexedBatch(base)
	if err := b.Put(MVCCKey{Key: roachpb.Key("c"), Timestamp: ts}, bytesOperand(t, "vc", ts)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	it := b.NewIterator(IterOptions{Reverse: true})
	defer it.Close()

	upperBound := EncodeKey(nil, MVCCKey{Key: roachpb.Key("z")})
	var gotKeys []string
	for it.SeekLT(upperBound); it.Valid(); it.Prev() {
		k, err := DecodeKey(it.UnsafeKey())
		if err != nil {
			t.Fatalf("DecodeKey: %v", err)
		}
		gotKeys = append(gotKeys, string(k.Key))
	}

	want := []string{"c", "b", "a"}
	if len(gotKeys) != len(want) {
		t.Fatalf("got keys %v, want %v", gotKeys, want)
	}
	for i := range want {
		if gotKeys[i] != want[i] {
			t.Errorf("key %d = %q, want %q (full: %v)", i, gotKeys[i], want[i], gotKeys)
		}
	}
}

func TestIndexedBatchReprReplaysInOrder(t *testing.T) {
	ts := hlc.Timestamp{WallTime: 1}
	base := newMemStore()
	b := NewIndexedBatch(base)
	key := MVCCKey{Key: roachpb.Key("k"), Timestamp: ts}

	if err := b.Put(key, bytesOperand(t, "a", ts)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := b.Merge(key, bytesOperand(t, "b", ts)); err != nil {
		t.Fatalf("Merge: %v", err)
	}

	target := newMemStore()
	if err := b.Repr(target); err != nil {
		t.Fatalf("Repr: %v", err)
	}

	got, err := target.Get(key)
	if err != nil {
		t.Fatalf("target.Get: %v", err)
	}
	if decodeMergedBytes(t, got) != "ab" {
		t.Errorf("committed value = %q, want %q", decodeMergedBytes(t, got), "ab")
	}
}
