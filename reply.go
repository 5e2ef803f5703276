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

package fuse

import (
	"unsafe"

	"github.com/jacobsa/fusesession/internal/buffer"
	"github.com/jacobsa/fusesession/internal/fusekernel"
)

// ReplyTx is the single-use capability a Request carries for sending back
// exactly one Reply. It is a clone of the session's inbound reply channel;
// many ReplyTx values may be outstanding at once (one per in-flight
// request), all funnelling into the same receiver in the session loop.
type ReplyTx chan<- *Reply

// Reply is a single kernel reply, tagged with the Unique of the request it
// answers. Op is nil for header-only replies (errors, and operations whose
// success carries no body).
type Reply struct {
	Header OutHeader
	Op     replyOperation
}

// replyOperation is implemented by every reply body type below. Mirrors
// Operation in request.go: a closed, tagged union keyed by opcode, realized
// as an interface plus one struct per shape instead of an enum with
// payload.
type replyOperation interface {
	writeTo(m *buffer.OutMessage)
}

// NewReply returns a successful, header-only reply for the given request
// unique. Callers set Op afterward for operations that carry a body.
func NewReply(unique uint64) *Reply {
	return &Reply{Header: OutHeader{Unique: unique}}
}

// NewErrorReply returns a reply carrying errno as a negative value in the
// header, with no body ("error != 0 must produce a header-only
// output regardless of any payload value").
func NewErrorReply(unique uint64, errno Errno) *Reply {
	return &Reply{
		Header: OutHeader{
			Unique: unique,
			Error:  -int32(errno),
		},
	}
}

// Serialize writes r into m: header first with Len=0, then the body (if
// any and only if the reply is not an error), then fixes up Len to the
// final byte count. Returns the bytes that should be written to the
// device, valid until m is reused.
func Serialize(r *Reply, m *buffer.OutMessage) []byte {
	m.Reset()
	*m.OutHeader() = r.Header
	m.OutHeader().Len = 0

	if r.Header.Error == 0 && r.Op != nil {
		r.Op.writeTo(m)
	}

	m.FixLength()
	return m.Bytes()
}

////////////////////////////////////////////////////////////////////////
// Reply bodies
////////////////////////////////////////////////////////////////////////

// empty is the body of any operation whose successful reply is header-only
// (RELEASE, RELEASEDIR, FLUSH, FSYNC, FSYNCDIR, UNLINK, RMDIR, RENAME,
// RENAME2, ACCESS, INTERRUPT, DESTROY, SETXATTR, REMOVEXATTR, FALLOCATE,
// SETUPMAPPING, REMOVEMAPPING, SYNCFS, NOTIFY_REPLY). FORGET and
// BATCH_FORGET get no reply at all; LINK's reply is an EntryReply.
type empty struct{}

func (empty) writeTo(m *buffer.OutMessage) {}

// EntryReply is the body of LOOKUP, SYMLINK, MKNOD, MKDIR and LINK.
type EntryReply struct{ Arg EntryOut }

func (r EntryReply) writeTo(m *buffer.OutMessage) {
	*(*EntryOut)(m.Grow(unsafe.Sizeof(r.Arg))) = r.Arg
}

// AttrReply is the body of GETATTR and SETATTR.
type AttrReply struct{ Arg AttrOut }

func (r AttrReply) writeTo(m *buffer.OutMessage) {
	*(*AttrOut)(m.Grow(unsafe.Sizeof(r.Arg))) = r.Arg
}

// DataReply carries raw bytes with no fixed prefix: READ and READLINK.
type DataReply struct{ Data []byte }

func (r DataReply) writeTo(m *buffer.OutMessage) {
	m.Append(r.Data)
}

// OpenReply is the body of OPEN and OPENDIR.
type OpenReply struct{ Arg OpenOut }

func (r OpenReply) writeTo(m *buffer.OutMessage) {
	*(*OpenOut)(m.Grow(unsafe.Sizeof(r.Arg))) = r.Arg
}

// CreateReply is the body of CREATE: an entry followed by an open result.
type CreateReply struct{ Arg CreateOut }

func (r CreateReply) writeTo(m *buffer.OutMessage) {
	*(*CreateOut)(m.Grow(unsafe.Sizeof(r.Arg))) = r.Arg
}

// WriteReply is the body of WRITE.
type WriteReply struct{ Arg WriteOut }

func (r WriteReply) writeTo(m *buffer.OutMessage) {
	*(*WriteOut)(m.Grow(unsafe.Sizeof(r.Arg))) = r.Arg
}

// StatFSReply is the body of STATFS.
type StatFSReply struct{ Arg StatfsOut }

func (r StatFSReply) writeTo(m *buffer.OutMessage) {
	*(*StatfsOut)(m.Grow(unsafe.Sizeof(r.Arg))) = r.Arg
}

// XAttrSizeReply reports just a size, e.g. GETXATTR/LISTXATTR called with
// a zero-length buffer to probe size.
type XAttrSizeReply struct{ Arg GetxattrOut }

func (r XAttrSizeReply) writeTo(m *buffer.OutMessage) {
	*(*GetxattrOut)(m.Grow(unsafe.Sizeof(r.Arg))) = r.Arg
}

// XAttrDataReply is the body of GETXATTR/LISTXATTR when the kernel
// supplied a buffer large enough to hold the value ("write
// the fixed fuse_getxattr_out prefix then the raw bytes" -- the Open
// Question resolving whether LISTXATTR also gets that prefix is decided in
// favor of parity with GETXATTR).
type XAttrDataReply struct {
	Arg  GetxattrOut
	Data []byte
}

func (r XAttrDataReply) writeTo(m *buffer.OutMessage) {
	*(*GetxattrOut)(m.Grow(unsafe.Sizeof(r.Arg))) = r.Arg
	m.Append(r.Data)
}

// LkReply is the body of GETLK.
type LkReply struct{ Arg LkOut }

func (r LkReply) writeTo(m *buffer.OutMessage) {
	*(*LkOut)(m.Grow(unsafe.Sizeof(r.Arg))) = r.Arg
}

// BMapReply is the body of BMAP.
type BMapReply struct{ Arg BmapOut }

func (r BMapReply) writeTo(m *buffer.OutMessage) {
	*(*BmapOut)(m.Grow(unsafe.Sizeof(r.Arg))) = r.Arg
}

// IoCtlReply is the body of IOCTL.
type IoCtlReply struct {
	Arg  IoctlOut
	Data []byte
}

func (r IoCtlReply) writeTo(m *buffer.OutMessage) {
	*(*IoctlOut)(m.Grow(unsafe.Sizeof(r.Arg))) = r.Arg
	m.Append(r.Data)
}

// PollReply is the body of POLL.
type PollReply struct{ Arg PollOut }

func (r PollReply) writeTo(m *buffer.OutMessage) {
	*(*PollOut)(m.Grow(unsafe.Sizeof(r.Arg))) = r.Arg
}

// LSeekReply is the body of LSEEK.
type LSeekReply struct{ Arg LseekOut }

func (r LSeekReply) writeTo(m *buffer.OutMessage) {
	*(*LseekOut)(m.Grow(unsafe.Sizeof(r.Arg))) = r.Arg
}

// StatXReply is the body of STATX.
type StatXReply struct{ Arg StatxOut }

func (r StatXReply) writeTo(m *buffer.OutMessage) {
	*(*StatxOut)(m.Grow(unsafe.Sizeof(r.Arg))) = r.Arg
}

// InitReply is the body of INIT. Its wire size grows with the negotiated
// protocol minor version: kernels below 7.23 expect a 24-byte prefix
// through max_write, kernels at 7.23 and above expect the full 64-byte
// struct. Size picks which prefix of Arg to emit; see InitReplySize.
type InitReply struct {
	Arg  InitOut
	Size int
}

func (r InitReply) writeTo(m *buffer.OutMessage) {
	p := m.Grow(uintptr(r.Size))
	src := unsafe.Pointer(&r.Arg)
	copy(unsafe.Slice((*byte)(p), r.Size), unsafe.Slice((*byte)(src), r.Size))
}

// InitReplySize picks the InitOut prefix length appropriate to a
// negotiated protocol minor version: the 24-byte base shape below 7.23
// (major..max_write, unchanged in size since 7.8), or the full 64-byte
// shape at 7.23 and above (adds time_gran and the max_pages/reserved
// tail).
func InitReplySize(minor uint32) int {
	if minor >= 23 {
		return fusekernel.InitOutSizeFull
	}
	return fusekernel.InitOutSizeBase
}

////////////////////////////////////////////////////////////////////////
// Directory entry packing
////////////////////////////////////////////////////////////////////////

// align8 rounds n up to the next multiple of 8.
func align8(n int) int {
	if r := n % 8; r != 0 {
		n += 8 - r
	}
	return n
}

// ReadDirReply is the body of READDIR: zero or more fuse_dirent records
// packed back to back. Build one with repeated calls to Append, then hand
// it to Reply.Op; it carries its own accumulator so the caller never needs
// to touch internal/buffer directly.
type ReadDirReply struct {
	buf buffer.Buffer
}

// Append packs one entry onto the reply (fuse_dirent + name, zero-padded
// to an 8-byte boundary). ino/off/mode are the entry's inode number, the
// offset of the *next* entry (the kernel's readdir cookie), and the POSIX
// mode used to derive typ.
func (r *ReadDirReply) Append(ino uint64, off int64, mode uint32, name string) {
	appendDirent(&r.buf, ino, off, mode, name)
}

func (r *ReadDirReply) writeTo(m *buffer.OutMessage) {
	m.Append(r.buf.Bytes())
}

// ReadDirPlusReply is the body of READDIRPLUS: zero or more
// fuse_direntplus records (an fuse_entry_out followed by the fuse_dirent
// shape) packed back to back.
type ReadDirPlusReply struct {
	buf buffer.Buffer
}

// Append packs one entry onto the reply, alongside the looked-up entry
// attributes the kernel caches for it.
func (r *ReadDirPlusReply) Append(entry EntryOut, ino uint64, off int64, mode uint32, name string) {
	appendDirentPlus(&r.buf, entry, ino, off, mode, name)
}

func (r *ReadDirPlusReply) writeTo(m *buffer.OutMessage) {
	m.Append(r.buf.Bytes())
}

func appendDirent(buf *buffer.Buffer, ino uint64, off int64, mode uint32, name string) {
	entry := Dirent{
		Ino:     ino,
		Off:     off,
		Namelen: uint32(len(name)),
		Typ:     fusekernel.FileType(mode),
	}

	p := buf.Grow(unsafe.Sizeof(entry))
	*(*Dirent)(p) = entry
	buf.Append([]byte(name))

	padded := align8(len(name))
	if pad := padded - len(name); pad > 0 {
		buf.Append(make([]byte, pad))
	}
}

func appendDirentPlus(buf *buffer.Buffer, entryOut EntryOut, ino uint64, off int64, mode uint32, name string) {
	full := DirentPlus{
		EntryOut: entryOut,
		Dirent: Dirent{
			Ino:     ino,
			Off:     off,
			Namelen: uint32(len(name)),
			Typ:     fusekernel.FileType(mode),
		},
	}

	p := buf.Grow(unsafe.Sizeof(full))
	*(*DirentPlus)(p) = full
	buf.Append([]byte(name))

	padded := align8(len(name))
	if pad := padded - len(name); pad > 0 {
		buf.Append(make([]byte, pad))
	}
}
