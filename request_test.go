// Copyright 2015 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fuse_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	fuse "github.com/jacobsa/fusesession"
	"github.com/jacobsa/fusesession/internal/buffer"
	"github.com/jacobsa/fusesession/internal/fusekernel"
)

// buildFrame encodes header followed by body (if non-nil) and trailer into
// a single little-endian wire frame, fixing up header.Len to the total.
func buildFrame(t *testing.T, header fusekernel.InHeader, body interface{}, trailer []byte) []byte {
	t.Helper()

	var payload bytes.Buffer
	if body != nil {
		if err := binary.Write(&payload, binary.LittleEndian, body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	payload.Write(trailer)

	header.Len = uint32(binary.Size(header)) + uint32(payload.Len())

	var out bytes.Buffer
	if err := binary.Write(&out, binary.LittleEndian, header); err != nil {
		t.Fatalf("encoding header: %v", err)
	}
	out.Write(payload.Bytes())

	return out.Bytes()
}

func parseFrame(t *testing.T, frame []byte) (*fuse.Request, error) {
	t.Helper()

	msg := buffer.NewInMessage()
	if err := msg.Init(bytes.NewReader(frame)); err != nil {
		t.Fatalf("InMessage.Init: %v", err)
	}

	return fuse.Parse(msg, nil)
}

func TestParseLookup(t *testing.T) {
	header := fusekernel.InHeader{Opcode: uint32(fusekernel.OpLookup), Unique: 7, Nodeid: 1}
	frame := buildFrame(t, header, nil, append([]byte("foo"), 0))

	req, err := parseFrame(t, frame)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if req.Header.Unique != 7 || req.Header.Nodeid != 1 {
		t.Errorf("header = %+v, want Unique=7 Nodeid=1", req.Header)
	}

	lookup, ok := req.Op.(fuse.Lookup)
	if !ok {
		t.Fatalf("Op = %T, want fuse.Lookup", req.Op)
	}
	if lookup.Name != "foo" {
		t.Errorf("Name = %q, want %q", lookup.Name, "foo")
	}
}

func TestParseGetAttr(t *testing.T) {
	header := fusekernel.InHeader{Opcode: uint32(fusekernel.OpGetattr), Unique: 9, Nodeid: 42}
	body := fusekernel.GetattrIn{Fh: 99}
	frame := buildFrame(t, header, body, nil)

	req, err := parseFrame(t, frame)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	getattr, ok := req.Op.(fuse.GetAttr)
	if !ok {
		t.Fatalf("Op = %T, want fuse.GetAttr", req.Op)
	}
	if getattr.Arg.Fh != 99 {
		t.Errorf("Fh = %d, want 99", getattr.Arg.Fh)
	}
}

func TestParseUnknownOpcode(t *testing.T) {
	header := fusekernel.InHeader{Opcode: 0xffff, Unique: 1}
	frame := buildFrame(t, header, nil, nil)

	req, err := parseFrame(t, frame)
	if err == nil {
		t.Fatal("Parse: expected an error for an unrecognized opcode")
	}
	if !errors.Is(err, fuse.ErrUnknownOpcode) {
		t.Errorf("err = %v, want wrapping ErrUnknownOpcode", err)
	}
	if req.Header.Unique != 1 {
		t.Errorf("Header.Unique = %d, want 1 (header must parse even on opcode failure)", req.Header.Unique)
	}
}

func TestParseTruncatedBody(t *testing.T) {
	header := fusekernel.InHeader{Opcode: uint32(fusekernel.OpGetattr), Unique: 2}
	frame := buildFrame(t, header, nil, nil) // GetattrIn body omitted

	_, err := parseFrame(t, frame)
	if err == nil {
		t.Fatal("Parse: expected an error for a truncated body")
	}
	if !errors.Is(err, fuse.ErrParseFailure) {
		t.Errorf("err = %v, want wrapping ErrParseFailure", err)
	}
}

