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

import "github.com/cockroachdb/errors"

// ErrNotSupported marks operations that are structurally unavailable on a
// given handle (e.g. Get on a write-only batch, DeleteRange or
// ApplyBatchRepr on an indexed batch) rather than failed at runtime. Callers distinguish it from other errors with errors.Is.
var ErrNotSupported = errors.New("operation not supported on this handle")

// ErrWriteIntentExists is returned by the scanner when a consistent read
// meets another transaction's intent, which must be resolved before the
// read can proceed.
var ErrWriteIntentExists = errors.New("write intent exists")

// ErrTransactionAborted marks a transaction record found already aborted.
var ErrTransactionAborted = errors.New("transaction aborted")
