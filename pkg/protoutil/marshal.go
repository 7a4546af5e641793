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

// Package protoutil centralizes the gogoproto-generated marshal/unmarshal
// calls used across the engine so that every caller goes through one place.
package protoutil

import "github.com/gogo/protobuf/proto"

// Message extends proto.Message with the MarshalTo and Size methods gogoproto
// generates when a message has the marshaler/sizer extensions enabled. Every
// wire type in enginepb and roachpb satisfies this by hand, since this module
// hand-authors its protos rather than running protoc.
type Message interface {
	proto.Message
	MarshalTo(data []byte) (int, error)
	Unmarshal(data []byte) error
	Size() int
}

// Interceptor is called with every message before it is marshaled. Tests may
// swap it in to observe marshal calls; production code leaves it a no-op.
var Interceptor = func(_ Message) {}

// Marshal encodes pb into the wire format.
func Marshal(pb Message) ([]byte, error) {
	dest := make([]byte, pb.Size())
	if _, err := MarshalTo(pb, dest); err != nil {
		return nil, err
	}
	return dest, nil
}

// MarshalTo encodes pb into dest, which must be at least pb.Size() bytes.
func MarshalTo(pb Message, dest []byte) (int, error) {
	Interceptor(pb)
	return pb.MarshalTo(dest)
}

// Unmarshal parses the wire representation in data into pb, resetting pb
// first so no stale field survives a short read.
func Unmarshal(data []byte, pb Message) error {
	pb.Reset()
	return pb.Unmarshal(data)
}
