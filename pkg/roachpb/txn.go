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

package roachpb

import (
	"github.com/google/uuid"
	"github.com/shekhar108/mvcckv/pkg/hlc"
)

// Transaction is the minimal transaction record the scanner and the write
// path consult: enough to test epoch equality, compute the uncertainty
// window, and attribute an intent to its writer.
type Transaction struct {
	ID uuid.UUID
	// Epoch increases every time the transaction is restarted after a
	// conflict. An intent whose epoch is older than the reading epoch is
	// ignored by the scanner as if it did not exist.
	Epoch int32
	// WriteTimestamp is the timestamp the transaction is currently writing
	// at, which can be pushed forward by contending readers.
	WriteTimestamp hlc.Timestamp
	// MaxTimestamp bounds the transaction's uncertainty window: the scanner
	// must treat any committed value with a timestamp in
	// (ReadTimestamp, MaxTimestamp] as ambiguous rather than simply invisible.
	MaxTimestamp hlc.Timestamp
	// Sequence is the per-statement write counter within the transaction,
	// carried for intent history and replay diagnostics even though the
	// scanner's visibility rules never consult it directly.
	Sequence int32
}

// IsolatedFrom reports whether a write made by other cannot be observed by a
// reader operating as txn: false only if other is txn itself at the same
// epoch (an uncommitted write a transaction made to itself is visible to its
// own later reads within the same epoch, and a write from any other epoch
// is not).
func (txn *Transaction) IsolatedFrom(otherID uuid.UUID, otherEpoch int32) bool {
	if txn == nil {
		return true
	}
	return !(txn.ID == otherID && txn.Epoch == otherEpoch)
}
