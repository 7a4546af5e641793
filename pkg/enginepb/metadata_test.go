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

package enginepb

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/shekhar108/mvcckv/pkg/hlc"
)

func TestMVCCMetadataRoundTrip(t *testing.T) {
	cases := []*MVCCMetadata{
		{Timestamp: hlc.Timestamp{WallTime: 10}, RawBytes: []byte("hello")},
		{Deleted: true, Timestamp: hlc.Timestamp{WallTime: 10, Logical: 2}},
		{
			Txn:       &TxnMeta{ID: uuid.New(), Epoch: 3, WriteTimestamp: hlc.Timestamp{WallTime: 99}},
			Timestamp: hlc.Timestamp{WallTime: 99},
			KeyBytes:  12,
			ValBytes:  20,
		},
	}
	for i, meta := range cases {
		data := make([]byte, meta.Size())
		if _, err := meta.MarshalTo(data); err != nil {
			t.Fatalf("case %d: MarshalTo: %v", i, err)
		}
		var got MVCCMetadata
		if err := got.Unmarshal(data); err != nil {
			t.Fatalf("case %d: Unmarshal: %v", i, err)
		}
		if got.Deleted != meta.Deleted || got.KeyBytes != meta.KeyBytes || got.ValBytes != meta.ValBytes {
			t.Errorf("case %d: scalar fields mismatch: got %+v, want %+v", i, got, meta)
		}
		if !bytes.Equal(got.RawBytes, meta.RawBytes) {
			t.Errorf("case %d: RawBytes mismatch: got %q, want %q", i, got.RawBytes, meta.RawBytes)
		}
		if (got.Txn == nil) != (meta.Txn == nil) {
			t.Fatalf("case %d: Txn presence mismatch", i)
		}
		if meta.Txn != nil && (got.Txn.ID != meta.Txn.ID || got.Txn.Epoch != meta.Txn.Epoch) {
			t.Errorf("case %d: Txn mismatch: got %+v, want %+v", i, got.Txn, meta.Txn)
		}
	}
}

func TestMVCCMetadataIsInline(t *testing.T) {
	inline := &MVCCMetadata{RawBytes: []byte("v")}
	if !inline.IsInline() {
		t.Error("expected inline value to report IsInline")
	}
	intent := &MVCCMetadata{Txn: &TxnMeta{ID: uuid.New()}, RawBytes: []byte("v")}
	if intent.IsInline() {
		t.Error("expected intent metadata to not report IsInline")
	}
}
