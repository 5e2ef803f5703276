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
	"encoding/binary"
	"testing"

	fuse "github.com/jacobsa/fusesession"
	"github.com/jacobsa/fusesession/internal/buffer"
	"github.com/jacobsa/fusesession/internal/fusekernel"
)

func TestSerializeErrorReplyIsHeaderOnly(t *testing.T) {
	r := fuse.NewErrorReply(5, fuse.ENOENT)
	r.Op = fuse.EntryReply{Arg: fuse.EntryOut{Nodeid: 123}} // must be ignored

	var out buffer.OutMessage
	b := fuse.Serialize(r, &out)

	if len(b) != int(binary.Size(fusekernel.OutHeader{})) {
		t.Fatalf("len(b) = %d, want exactly the header size for an error reply", len(b))
	}
}

func TestSerializeEntryReply(t *testing.T) {
	r := fuse.NewReply(9)
	r.Op = fuse.EntryReply{Arg: fuse.EntryOut{Nodeid: 77, Generation: 1}}

	var out buffer.OutMessage
	b := fuse.Serialize(r, &out)

	wantLen := int(binary.Size(fusekernel.OutHeader{})) + int(binary.Size(fusekernel.EntryOut{}))
	if len(b) != wantLen {
		t.Fatalf("len(b) = %d, want %d", len(b), wantLen)
	}
}

func TestAppendDirentAligns8(t *testing.T) {
	var r fuse.ReadDirReply
	r.Append(1, 1, 0, "a")

	reply := fuse.NewReply(1)
	reply.Op = &r

	var out buffer.OutMessage
	b := fuse.Serialize(reply, &out)

	if bodyLen := len(b) - int(binary.Size(fusekernel.OutHeader{})); bodyLen%8 != 0 {
		t.Errorf("dirent body length %d is not 8-byte aligned", bodyLen)
	}
}

func TestInitReplySizeGating(t *testing.T) {
	cases := []struct {
		minor uint32
		want  int
	}{
		{minor: 8, want: fusekernel.InitOutSizeBase},
		{minor: 12, want: fusekernel.InitOutSizeBase},
		{minor: 22, want: fusekernel.InitOutSizeBase},
		{minor: 23, want: fusekernel.InitOutSizeFull},
		{minor: 28, want: fusekernel.InitOutSizeFull},
		{minor: 39, want: fusekernel.InitOutSizeFull},
	}

	for _, c := range cases {
		if got := fuse.InitReplySize(c.minor); got != c.want {
			t.Errorf("InitReplySize(%d) = %d, want %d", c.minor, got, c.want)
		}
	}
}
