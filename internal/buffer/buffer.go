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

package buffer

import (
	"unsafe"

	"github.com/jacobsa/fusesession/internal/fusekernel"
)

// Buffer provides a mechanism for constructing a single contiguous fuse
// message from multiple segments. Unlike OutMessage it grows its backing
// array, so it is the right tool for a filesystem handler that wants to
// pack an unknown number of directory entries before handing the result to
// a Reply.
//
// A Buffer created with New starts with a zeroed fusekernel.OutHeader. The
// zero value holds no header and has Bytes() == nil; Grow and Append work
// on it, and the fuse package's ReadDirReply uses it that way to collect
// body bytes only. OutHeader must only be called on a Buffer from New.
type Buffer struct {
	slice []byte
}

// New creates a buffer whose initial contents are a zeroed
// fusekernel.OutHeader message, with room enough to grow by extra bytes
// without reallocating.
func New(extra uintptr) (b Buffer) {
	const headerSize = unsafe.Sizeof(fusekernel.OutHeader{})
	b.slice = make([]byte, headerSize, headerSize+extra)
	return
}

// OutHeader returns a pointer to the header at the start of the buffer.
func (b *Buffer) OutHeader() (h *fusekernel.OutHeader) {
	return (*fusekernel.OutHeader)(unsafe.Pointer(&b.slice[0]))
}

// Grow grows the buffer by the supplied number of bytes, returning a
// pointer to the start of the new segment.
func (b *Buffer) Grow(size uintptr) (p unsafe.Pointer) {
	n := len(b.slice)
	b.slice = append(b.slice, make([]byte, size)...)
	p = unsafe.Pointer(&b.slice[n])
	return
}

// Append copies src onto the end of the buffer, growing it as needed.
func (b *Buffer) Append(src []byte) {
	b.slice = append(b.slice, src...)
}

// Bytes returns a reference to the current contents of the buffer.
func (b *Buffer) Bytes() []byte {
	return b.slice
}
