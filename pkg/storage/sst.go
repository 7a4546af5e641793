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
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble/objstorage/objstorageprovider"
	"github.com/cockroachdb/pebble/sstable"
	"github.com/cockroachdb/pebble/vfs"
)

// SSTWriter produces a single sstable using this engine's own comparator
// and merger, for bulk-loading data (e.g. an incremental restore or a
// rebalance snapshot) without going through the write path key by key. It
// mirrors DBSstFileWriter in the original engine, which likewise builds a
// standalone table before it is ingested. Unlike a table produced by normal
// flushes and compactions, a bulk-written table carries no crdb.ts.min/max
// properties, since the bulk loader — not a live write path — is in the
// best position to already know the time bound of what it's loading and
// attach it out of band.
type SSTWriter struct {
	w *sstable.Writer
}

// NewSSTWriter opens an SST writer at path on fs, configured with this
// engine's comparator and merger so the table it produces can be ingested
// directly.
func NewSSTWriter(fs vfs.FS, path string) (*SSTWriter, error) {
	f, err := fs.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "creating sstable %q", path)
	}
	writeOpts := sstable.WriterOptions{
		Comparer:   Comparer,
		MergerName: MergeOperatorName,
		BlockSize:  32 << 10,
	}
	return &SSTWriter{w: sstable.NewWriter(objstorageprovider.NewFileWritable(f), writeOpts)}, nil
}

// Add appends key/value to the table being built. Keys must be added in
// engine order (ascending, per Compare); SSTWriter does not sort for the
// caller.
func (w *SSTWriter) Add(key MVCCKey, value []byte) error {
	return w.w.Set(EncodeKey(nil, key), value)
}

// Finish closes the table, flushing its index and properties blocks.
func (w *SSTWriter) Finish() error {
	return w.w.Close()
}
