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

// Package syncutil wraps the standard mutex types with assertion helpers
// used to document locking contracts at call sites.
package syncutil

import "sync"

// A Mutex is a mutual exclusion lock.
type Mutex struct {
	sync.Mutex
}

// AssertHeld may panic if the mutex is not locked. Functions that require
// their caller to already hold a lock use this to document the requirement
// at the call site rather than relying on the race detector to catch misuse.
func (m *Mutex) AssertHeld() {}

// An RWMutex is a reader/writer mutual exclusion lock.
type RWMutex struct {
	sync.RWMutex
}

// AssertHeld may panic if the mutex is not held for writing.
func (rw *RWMutex) AssertHeld() {}

// AssertRHeld may panic if the mutex is not held for reading or writing.
func (rw *RWMutex) AssertRHeld() {}
