// Copyright 2015 The Cockroach Authors.
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
	"bytes"

	"github.com/cockroachdb/errors"
	"github.com/shekhar108/mvcckv/pkg/enginepb"
	"github.com/shekhar108/mvcckv/pkg/hlc"
	"github.com/shekhar108/mvcckv/pkg/protoutil"
	"github.com/shekhar108/mvcckv/pkg/roachpb"
)

// kMaxItersBeforeSeek bounds how many plain Next calls the scanner will
// issue looking for a desired version before switching to a SeekGE, and how
// quickly it adapts that threshold up or down based on recent history —
// matching kMaxItersBeforeSeek in the original engine's mvccScanner.
const kMaxItersBeforeSeek = 10

// UncertaintyError is returned by Scan/Get when a committed value exists at
// a timestamp the reading transaction cannot prove happened before or after
// its own read: the transaction must restart at a higher timestamp. This is
// a control-flow signal, not a fault in the data, so it is carried as a
// distinct type rather than wrapped in the generic error chain.
type UncertaintyError struct {
	ReadTimestamp      hlc.Timestamp
	ExistingTimestamp  hlc.Timestamp
}

func (e *UncertaintyError) Error() string {
	return errors.Newf("uncertain read: read at %s, value at %s", e.ReadTimestamp, e.ExistingTimestamp).Error()
}

// Intent describes a write intent the scanner encountered while resolving a
// key, returned alongside results so the caller (the range/txn layer) can
// decide how to push or resolve it.
type Intent struct {
	Key MVCCKey
	Txn enginepb.TxnMeta
}

// KeyValue is a single resolved MVCC result: the user key, the version's
// timestamp, and its value.
type KeyValue struct {
	Key       roachpb.Key
	Timestamp hlc.Timestamp
	Value     []byte
}

// ScanOptions configures one MVCC scan or get.
type ScanOptions struct {
	Timestamp hlc.Timestamp
	Txn       *roachpb.Transaction
	// Consistent false performs an inconsistent scan: intents are returned
	// alongside whatever committed value preceded them instead of blocking
	// the read or erroring.
	Consistent bool
	Reverse    bool
	MaxKeys    int64
}

// Scanner implements the forward/reverse MVCC scan over a Reader: for each
// user key it walks from the newest version backwards (in timestamp)
// looking for the first version visible to the reader, applying the same
// case analysis as getAndAdvance in the original engine's mvccScanner.
type Scanner struct {
	reader  Reader
	opts    ScanOptions
	results []KeyValue
	intents []Intent

	itersBeforeSeek int
}

// NewScanner constructs a Scanner reading through reader per opts.
func NewScanner(reader Reader, opts ScanOptions) *Scanner {
	return &Scanner{reader: reader, opts: opts, itersBeforeSeek: kMaxItersBeforeSeek / 2}
}

// Get returns the single visible value for key, or nil if none exists.
func (s *Scanner) Get(key roachpb.Key) (*KeyValue, error) {
	opts := IterOptions{Prefix: true}
	it := s.reader.NewIterator(opts)
	defer it.Close()

	// The meta key (no timestamp suffix) sorts before every version of key,
	// so it is always the smallest encoded key in that key's group: seeking
	// it directly lands exactly on the meta entry when an intent or inline
	// value is present, and on the newest version otherwise.
	it.SeekGE(EncodeKey(nil, MVCCKey{Key: key}))
	kv, intent, err := s.getAndAdvance(it, key)
	if intent != nil {
		s.intents = append(s.intents, *intent)
	}
	if err != nil {
		return nil, err
	}
	return kv, nil
}

// Scan walks [start, end) and returns every visible key/value, plus any
// intents encountered, honoring opts.MaxKeys and opts.Reverse.
func (s *Scanner) Scan(start, end roachpb.Key) ([]KeyValue, []Intent, error) {
	it := s.reader.NewIterator(IterOptions{Reverse: s.opts.Reverse})
	defer it.Close()

	if s.opts.Reverse {
		it.SeekLT(EncodeKey(nil, MVCCKey{Key: end}))
	} else {
		it.SeekGE(EncodeKey(nil, MVCCKey{Key: start}))
	}

	for it.Valid() {
		if s.opts.MaxKeys > 0 && int64(len(s.results)) >= s.opts.MaxKeys {
			break
		}
		curKey, err := DecodeKey(it.UnsafeKey())
		if err != nil {
			return nil, nil, err
		}
		if s.opts.Reverse {
			if bytes.Compare(curKey.Key, start) < 0 {
				break
			}
		} else {
			if bytes.Compare(curKey.Key, end) >= 0 {
				break
			}
		}

		// A reverse scan arrives on a key's last (oldest) entry, so it first
		// re-seeks to the key's meta or newest version for getAndAdvance.
		key := curKey.Key
		if s.opts.Reverse {
			key = append(roachpb.Key(nil), curKey.Key...)
			it.SeekGE(EncodeKey(nil, MVCCKey{Key: key}))
		}
		kv, intent, err := s.getAndAdvance(it, key)
		if err != nil {
			return nil, nil, err
		}
		if kv != nil {
			s.results = append(s.results, *kv)
		}
		if intent != nil {
			s.intents = append(s.intents, *intent)
		}
		if s.opts.Reverse {
			it.SeekLT(EncodeKey(nil, MVCCKey{Key: key}))
		} else {
			s.advanceKey(it, key)
		}
	}
	return s.results, s.intents, it.Error()
}

// advanceKey moves it past every remaining version of userKey, so the next
// loop iteration of a forward Scan lands on the next user key's first
// entry. Scan moves a reverse scan to the previous user key with SeekLT
// instead.
func (s *Scanner) advanceKey(it Iterator, userKey roachpb.Key) {
	seeks := 0
	for it.Valid() {
		k, err := DecodeKey(it.UnsafeKey())
		if err != nil || !k.Key.Equal(userKey) {
			return
		}
		seeks++
		if seeks > s.itersBeforeSeek {
			s.adjustIters(false)
			if s.opts.Reverse {
				it.SeekLT(EncodeKey(nil, MVCCKey{Key: userKey}))
			} else {
				it.SeekGE(EncodeKey(nil, MVCCKey{Key: userKey.Next()}))
			}
			return
		}
		if s.opts.Reverse {
			it.Prev()
		} else {
			it.Next()
		}
	}
	s.adjustIters(true)
}

func (s *Scanner) adjustIters(usedNextOnly bool) {
	if usedNextOnly && s.itersBeforeSeek < kMaxItersBeforeSeek {
		s.itersBeforeSeek++
	} else if !usedNextOnly && s.itersBeforeSeek > 1 {
		s.itersBeforeSeek--
	}
}

// getAndAdvance resolves the version of userKey visible to this scanner,
// starting from it's current position (which must be at userKey's meta or
// newest-version entry), leaving it positioned at that version on return.
// This follows the case analysis of getAndAdvance in the original engine's
// mvccScanner: (1) the meta entry may itself be an intent — check ownership
// and epoch before falling through to (2) a plain versioned
// value, applying the reading transaction's timestamp and uncertainty
// window to decide visibility and, if the first version found isn't
// visible, calling seekVersion to locate one that is.
func (s *Scanner) getAndAdvance(it Iterator, userKey roachpb.Key) (*KeyValue, *Intent, error) {
	if !it.Valid() {
		return nil, nil, nil
	}
	k, err := DecodeKey(it.UnsafeKey())
	if err != nil {
		return nil, nil, err
	}
	if !k.Key.Equal(userKey) {
		return nil, nil, nil
	}

	if !k.IsValue() {
		// Cases 4-10: the meta entry. It is either an intent (Txn != nil) or an
		// inline value (Txn == nil, RawBytes set directly rather than split
		// into a separate versioned entry).
		var meta enginepb.MVCCMetadata
		if err := protoutil.Unmarshal(it.UnsafeValue(), &meta); err != nil {
			return nil, nil, errors.Wrapf(err, "decoding meta for key %q", userKey)
		}
		if meta.Txn == nil {
			if meta.Deleted {
				return nil, nil, nil
			}
			return &KeyValue{Key: userKey, Timestamp: meta.Timestamp, Value: meta.RawBytes}, nil, nil
		}

		// below is the read ceiling for the cases that skip the intent: the
		// newest timestamp strictly under the intent's own version.
		below := s.opts.Timestamp
		if !meta.Timestamp.IsEmpty() && meta.Timestamp.Prev().Less(below) {
			below = meta.Timestamp.Prev()
		}

		isOwnIntent := s.opts.Txn != nil && meta.Txn.ID == s.opts.Txn.ID
		if isOwnIntent {
			if meta.Txn.Epoch < s.opts.Txn.Epoch {
				// Case 10: an intent from an earlier epoch of our own
				// transaction is invisible, as if it had never been written,
				// so the read resumes below the intent's own version.
				return s.seekVersion(it, userKey, below)
			}
			if meta.Deleted {
				return nil, nil, nil
			}
			return &KeyValue{Key: userKey, Timestamp: meta.Timestamp, Value: meta.RawBytes}, nil, nil
		}

		intent := &Intent{Key: k, Txn: *meta.Txn}
		if !s.opts.Consistent {
			// Case 6: an inconsistent scan returns the intent and falls
			// through to the committed version beneath it rather than
			// blocking, skipping the intent's own version.
			kv, _, err := s.seekVersion(it, userKey, below)
			return kv, intent, err
		}
		// Case 7: a consistent read blocked by a foreign intent. The
		// range/txn layer above this scanner is responsible for pushing or
		// resolving it; the scanner itself only reports it.
		return nil, intent, ErrWriteIntentExists
	}

	// Cases 1-3: a plain versioned entry. If it's already at or before
	// our read timestamp it's visible as-is; otherwise seekVersion locates
	// the right version, and any version inside the uncertainty window
	// (read timestamp, MaxTimestamp] is reported as uncertain.
	if !s.opts.Timestamp.Less(k.Timestamp) {
		return &KeyValue{Key: userKey, Timestamp: k.Timestamp, Value: it.UnsafeValue()}, nil, nil
	}
	if s.opts.Txn != nil && k.Timestamp.LessEq(s.opts.Txn.MaxTimestamp) {
		return nil, nil, &UncertaintyError{ReadTimestamp: s.opts.Timestamp, ExistingTimestamp: k.Timestamp}
	}
	if s.opts.Txn != nil && s.opts.Timestamp.Less(s.opts.Txn.MaxTimestamp) {
		kv, _, err := s.seekVersion(it, userKey, s.opts.Txn.MaxTimestamp)
		if err != nil || kv == nil || !s.opts.Timestamp.Less(kv.Timestamp) {
			return kv, nil, err
		}
		return nil, nil, &UncertaintyError{ReadTimestamp: s.opts.Timestamp, ExistingTimestamp: kv.Timestamp}
	}
	return s.seekVersion(it, userKey, s.opts.Timestamp)
}

// seekVersion locates the newest version of userKey with a timestamp <=
// desired, using the same adaptive next-vs-seek strategy as the original
// engine: a handful of plain Next calls first (cheap when versions are
// dense), falling back to a SeekGE once itersBeforeSeek is exhausted.
func (s *Scanner) seekVersion(it Iterator, userKey roachpb.Key, desired hlc.Timestamp) (*KeyValue, *Intent, error) {
	seeks := 0
	for {
		it.Next()
		if !it.Valid() {
			return nil, nil, nil
		}
		k, err := DecodeKey(it.UnsafeKey())
		if err != nil {
			return nil, nil, err
		}
		if !k.Key.Equal(userKey) || !k.IsValue() {
			return nil, nil, nil
		}
		if !desired.Less(k.Timestamp) {
			s.adjustIters(true)
			return &KeyValue{Key: userKey, Timestamp: k.Timestamp, Value: it.UnsafeValue()}, nil, nil
		}
		seeks++
		if seeks >= s.itersBeforeSeek {
			s.adjustIters(false)
			it.SeekGE(EncodeKey(nil, MVCCKey{Key: userKey, Timestamp: desired}))
			if !it.Valid() {
				return nil, nil, nil
			}
			k, err := DecodeKey(it.UnsafeKey())
			if err != nil {
				return nil, nil, err
			}
			if !k.Key.Equal(userKey) || !k.IsValue() {
				return nil, nil, nil
			}
			return &KeyValue{Key: userKey, Timestamp: k.Timestamp, Value: it.UnsafeValue()}, nil, nil
		}
	}
}
