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

import "sort"

// memStore is a minimal in-memory ReadWriter used by this package's unit
// tests so the comparator, merge operator, batch overlay, and scanner can
// be exercised without a real pebble store backing them.
type memStore struct {
	entries map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[string][]byte)}
}

func (m *memStore) Get(key MVCCKey) ([]byte, error) {
	return m.entries[string(EncodeKey(nil, key))], nil
}

func (m *memStore) Put(key MVCCKey, value []byte) error {
	m.entries[string(EncodeKey(nil, key))] = append([]byte(nil), value...)
	return nil
}

func (m *memStore) Delete(key MVCCKey) error {
	delete(m.entries, string(EncodeKey(nil, key)))
	return nil
}

func (m *memStore) DeleteRange(start, end MVCCKey) error {
	s, e := string(EncodeKey(nil, start)), string(EncodeKey(nil, end))
	for k := range m.entries {
		if k >= s && k < e {
			delete(m.entries, k)
		}
	}
	return nil
}

func (m *memStore) Merge(key MVCCKey, operand []byte) error {
	encoded := EncodeKey(nil, key)
	merged, err := FullMerge(encoded, [][]byte{m.entries[string(encoded)], operand})
	if err != nil {
		return err
	}
	m.entries[string(encoded)] = merged
	return nil
}

func (m *memStore) ApplyBatchRepr([]byte) error { return ErrNotSupported }

func (m *memStore) Close() {}

func (m *memStore) NewIterator(opts IterOptions) Iterator {
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		if opts.LowerBound != nil && k < string(opts.LowerBound) {
			continue
		}
		if opts.UpperBound != nil && k >= string(opts.UpperBound) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return Compare([]byte(keys[i]), []byte(keys[j])) < 0 })
	return &memIterator{store: m, keys: keys, pos: -1}
}

type memIterator struct {
	store *memStore
	keys  []string
	pos   int
}

func (it *memIterator) SeekGE(key []byte) {
	it.pos = sort.Search(len(it.keys), func(i int) bool {
		return Compare([]byte(it.keys[i]), key) >= 0
	})
}

func (it *memIterator) SeekLT(key []byte) {
	i := sort.Search(len(it.keys), func(i int) bool {
		return Compare([]byte(it.keys[i]), key) >= 0
	})
	it.pos = i - 1
}

func (it *memIterator) Next() { it.pos++ }
func (it *memIterator) Prev() { it.pos-- }

func (it *memIterator) Valid() bool {
	return it.pos >= 0 && it.pos < len(it.keys)
}

func (it *memIterator) UnsafeKey() []byte {
	return []byte(it.keys[it.pos])
}

func (it *memIterator) UnsafeValue() []byte {
	return it.store.entries[it.keys[it.pos]]
}

func (it *memIterator) Error() error { return nil }
func (it *memIterator) Close() error { return nil }
