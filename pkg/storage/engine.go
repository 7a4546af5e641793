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

// IterOptions bounds and configures an iterator. LowerBound/UpperBound are
// encoded MVCC keys; a nil bound means unbounded in that direction.
type IterOptions struct {
	LowerBound []byte
	UpperBound []byte
	// Reverse requests an iterator usable with SeekLT/Prev. Forward-only
	// iterators need not support those calls.
	Reverse bool
	// Prefix restricts the iterator to the key prefix (per Split) of the
	// first key it is seeked to, letting the engine apply the bloom filter
	// built by the prefix extractor.
	Prefix bool
}

// Iterator is a cursor over encoded MVCC key/value pairs in engine order.
// Implementations are shared by the real pebble-backed engine, snapshots,
// and the batch overlay.
type Iterator interface {
	SeekGE(key []byte)
	SeekLT(key []byte)
	Next()
	Prev()
	Valid() bool
	UnsafeKey() []byte
	UnsafeValue() []byte
	Error() error
	Close() error
}

// Reader is the read half of the engine's sum-type interface family: a
// Reader can be a full Engine, a point-in-time Snapshot, or an IndexedBatch,
// but never a write-only Batch, whose Get returns ErrNotSupported and whose
// NewIterator panics with it.
type Reader interface {
	Get(key MVCCKey) ([]byte, error)
	NewIterator(opts IterOptions) Iterator
	Close()
}

// Writer is the write half. A Snapshot is only a Reader and has no Writer
// methods.
type Writer interface {
	Put(key MVCCKey, value []byte) error
	Delete(key MVCCKey) error
	DeleteRange(start, end MVCCKey) error
	Merge(key MVCCKey, operand []byte) error
	ApplyBatchRepr(repr []byte) error
}

// ReadWriter combines both halves, the shape a plain (non-indexed) batch or
// the engine itself presents.
type ReadWriter interface {
	Reader
	Writer
}

// SSTableInfo describes one SST file backing the engine, as returned by
// GetSSTables, mirroring DBEngine::GetSSTables in the original engine.
type SSTableInfo struct {
	Level       int
	Size        int64
	Start       MVCCKey
	End         MVCCKey
	Path        string
	Properties  map[string]string
}

// Engine is the full read/write/administrative handle. The underlying LSM
// implementation remains an external collaborator; this interface is the
// seam this module's core plugs into, with Pebble (engine_pebble.go) the
// one concrete adapter built here for end-to-end testability.
type Engine interface {
	ReadWriter

	// NewSnapshot returns a Reader fixed to the engine's state at the time
	// of the call, unaffected by later writes to the engine.
	NewSnapshot() Reader

	// NewBatch returns a write-only batch: buffered mutations that become
	// visible to the engine (and to new readers) only once committed, and
	// are never visible to the batch's own Get/NewIterator calls.
	NewBatch() ReadWriter

	// NewIndexedBatch returns a batch that also supports read-your-writes.
	NewIndexedBatch() *IndexedBatch

	// CommitBatch applies a batch (indexed or not) to the engine. It does
	// not close the batch.
	CommitBatch(b ReadWriter) error

	Flush() error
	SyncWAL() error
	CompactRange(start, end MVCCKey) error
	IngestExternalFiles(paths []string) error
	GetSSTables() []SSTableInfo
	GetUserProperties() []TableUserProperties
	Close()
}
