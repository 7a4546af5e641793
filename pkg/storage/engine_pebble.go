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
	"context"
	"fmt"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/sstable"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/shekhar108/mvcckv/pkg/log"
)

// pebbleEngine is the one concrete Engine this module provides, backing
// every operation with a real *pebble.DB configured with Comparer, Merger
// and the time-bound table property collector defined in this package.
type pebbleEngine struct {
	dir string
	db  *pebble.DB
}

// OpenPebble opens (or creates) a pebble-backed Engine at dir.
func OpenPebble(dir string) (Engine, error) {
	opts := PebbleOptions()
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "opening pebble store at %q", dir)
	}
	return &pebbleEngine{dir: dir, db: db}, nil
}

func (e *pebbleEngine) Get(key MVCCKey) ([]byte, error) {
	encoded := EncodeKey(nil, key)
	v, closer, err := e.db.Get(encoded)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return append([]byte(nil), v...), nil
}

func (e *pebbleEngine) Put(key MVCCKey, value []byte) error {
	return e.db.Set(EncodeKey(nil, key), value, pebble.NoSync)
}

func (e *pebbleEngine) Delete(key MVCCKey) error {
	return e.db.Delete(EncodeKey(nil, key), pebble.NoSync)
}

func (e *pebbleEngine) DeleteRange(start, end MVCCKey) error {
	return e.db.DeleteRange(EncodeKey(nil, start), EncodeKey(nil, end), pebble.NoSync)
}

func (e *pebbleEngine) Merge(key MVCCKey, operand []byte) error {
	return e.db.Merge(EncodeKey(nil, key), operand, pebble.NoSync)
}

func (e *pebbleEngine) ApplyBatchRepr(repr []byte) error {
	batch := e.db.NewBatch()
	if err := batch.SetRepr(repr); err != nil {
		return err
	}
	return batch.Commit(pebble.NoSync)
}

func (e *pebbleEngine) NewIterator(opts IterOptions) Iterator {
	it, _ := e.db.NewIter(toPebbleIterOptions(opts))
	return newPebbleIterator(it, opts.Reverse)
}

func (e *pebbleEngine) NewSnapshot() Reader {
	return &pebbleSnapshot{snap: e.db.NewSnapshot()}
}

func (e *pebbleEngine) NewBatch() ReadWriter {
	return &pebbleBatch{batch: e.db.NewBatch()}
}

func (e *pebbleEngine) NewIndexedBatch() *IndexedBatch {
	return NewIndexedBatch(&pebbleReaderView{db: e.db})
}

func (e *pebbleEngine) CommitBatch(b ReadWriter) error {
	switch batch := b.(type) {
	case *pebbleBatch:
		return batch.batch.Commit(pebble.NoSync)
	case *IndexedBatch:
		return batch.Repr(e)
	default:
		return errors.AssertionFailedf("unknown batch type %T", b)
	}
}

func (e *pebbleEngine) Flush() error { return e.db.Flush() }

// SyncWAL forces the write-ahead log to durable storage by committing an
// empty batch with a synchronous commit option.
func (e *pebbleEngine) SyncWAL() error {
	return e.db.Apply(e.db.NewBatch(), pebble.Sync)
}

func (e *pebbleEngine) CompactRange(start, end MVCCKey) error {
	return e.db.Compact(EncodeKey(nil, start), EncodeKey(nil, end), false /* parallelize */)
}

func (e *pebbleEngine) IngestExternalFiles(paths []string) error {
	return e.db.Ingest(paths)
}

func (e *pebbleEngine) GetSSTables() []SSTableInfo {
	levels, _ := e.db.SSTables()
	var infos []SSTableInfo
	for level, ls := range levels {
		for _, t := range ls {
			infos = append(infos, SSTableInfo{
				Level: level,
				Size:  int64(t.Size),
				Path:  e.sstablePath(t.FileNum),
			})
		}
	}
	return infos
}

// GetUserProperties reads back the table properties (including the
// crdb.ts.min/crdb.ts.max pair the time-bound collector wrote) by opening each
// SST directly through the sstable package, matching
// DBEngine::GetUserProperties in the original engine, which likewise reads
// properties straight off the table rather than caching them in memory.
func (e *pebbleEngine) GetUserProperties() []TableUserProperties {
	levels, _ := e.db.SSTables()
	var out []TableUserProperties
	for _, ls := range levels {
		for _, t := range ls {
			path := e.sstablePath(t.FileNum)
			props, err := readTableUserProperties(path)
			if err != nil {
				log.Warningf(context.Background(), "reading properties for %s: %v", path, err)
				continue
			}
			out = append(out, TableUserProperties{Path: path, Properties: props})
		}
	}
	return out
}

func (e *pebbleEngine) sstablePath(num pebble.FileNum) string {
	return filepath.Join(e.dir, fmt.Sprintf("%s.sst", num))
}

func readTableUserProperties(path string) (map[string]string, error) {
	f, err := vfs.Default.Open(path)
	if err != nil {
		return nil, err
	}
	readable, err := sstable.NewSimpleReadable(f)
	if err != nil {
		return nil, err
	}
	r, err := sstable.NewReader(readable, sstable.ReaderOptions{Comparer: Comparer})
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.Properties.UserProperties, nil
}

func (e *pebbleEngine) Close() {
	if err := e.db.Close(); err != nil {
		log.Errorf(context.Background(), "closing pebble store: %v", err)
	}
}

// pebbleSnapshot adapts a *pebble.Snapshot to Reader.
type pebbleSnapshot struct {
	snap *pebble.Snapshot
}

func (s *pebbleSnapshot) Get(key MVCCKey) ([]byte, error) {
	v, closer, err := s.snap.Get(EncodeKey(nil, key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return append([]byte(nil), v...), nil
}

func (s *pebbleSnapshot) NewIterator(opts IterOptions) Iterator {
	it, _ := s.snap.NewIter(toPebbleIterOptions(opts))
	return newPebbleIterator(it, opts.Reverse)
}

func (s *pebbleSnapshot) Close() {
	_ = s.snap.Close()
}

// pebbleReaderView adapts *pebble.DB to Reader, used as the base reader an
// IndexedBatch overlays.
type pebbleReaderView struct {
	db *pebble.DB
}

func (r *pebbleReaderView) Get(key MVCCKey) ([]byte, error) {
	v, closer, err := r.db.Get(EncodeKey(nil, key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return append([]byte(nil), v...), nil
}

func (r *pebbleReaderView) NewIterator(opts IterOptions) Iterator {
	it, _ := r.db.NewIter(toPebbleIterOptions(opts))
	return newPebbleIterator(it, opts.Reverse)
}

func (r *pebbleReaderView) Close() {}

// pebbleBatch adapts a write-only *pebble.Batch to ReadWriter, refusing
// every Reader call per the Writer/Reader split in engine.go.
type pebbleBatch struct {
	batch *pebble.Batch
}

func (b *pebbleBatch) Get(MVCCKey) ([]byte, error) {
	return nil, errors.Mark(errors.New("Get is not supported on a write-only batch"), ErrNotSupported)
}

func (b *pebbleBatch) NewIterator(IterOptions) Iterator {
	panic(errors.Mark(errors.New("NewIterator is not supported on a write-only batch"), ErrNotSupported))
}

func (b *pebbleBatch) Close() { _ = b.batch.Close() }

func (b *pebbleBatch) Put(key MVCCKey, value []byte) error {
	return b.batch.Set(EncodeKey(nil, key), value, nil)
}

func (b *pebbleBatch) Delete(key MVCCKey) error {
	return b.batch.Delete(EncodeKey(nil, key), nil)
}

func (b *pebbleBatch) DeleteRange(start, end MVCCKey) error {
	return b.batch.DeleteRange(EncodeKey(nil, start), EncodeKey(nil, end), nil)
}

func (b *pebbleBatch) Merge(key MVCCKey, operand []byte) error {
	return b.batch.Merge(EncodeKey(nil, key), operand, nil)
}

func (b *pebbleBatch) ApplyBatchRepr(repr []byte) error {
	return b.batch.SetRepr(repr)
}

// pebbleIterator adapts a *pebble.Iterator to this package's Iterator.
type pebbleIterator struct {
	it      *pebble.Iterator
	reverse bool
}

func newPebbleIterator(it *pebble.Iterator, reverse bool) *pebbleIterator {
	return &pebbleIterator{it: it, reverse: reverse}
}

func (p *pebbleIterator) SeekGE(key []byte) { p.it.SeekGE(key) }
func (p *pebbleIterator) SeekLT(key []byte) { p.it.SeekLT(key) }
func (p *pebbleIterator) Next()             { p.it.Next() }
func (p *pebbleIterator) Prev()             { p.it.Prev() }
func (p *pebbleIterator) Valid() bool       { return p.it.Valid() }
func (p *pebbleIterator) UnsafeKey() []byte { return p.it.Key() }
func (p *pebbleIterator) UnsafeValue() []byte {
	return p.it.Value()
}
func (p *pebbleIterator) Error() error { return p.it.Error() }
func (p *pebbleIterator) Close() error { return p.it.Close() }

func toPebbleIterOptions(opts IterOptions) *pebble.IterOptions {
	return &pebble.IterOptions{
		LowerBound: opts.LowerBound,
		UpperBound: opts.UpperBound,
	}
}
