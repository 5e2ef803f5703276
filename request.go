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
	"bytes"
	"strings"
	"unsafe"

	"github.com/jacobsa/fusesession/internal/buffer"
	"github.com/jacobsa/fusesession/internal/fusekernel"
)

// Request is a single kernel request, parsed from a frame read off the
// FUSE device. ReplyTo is a single-use capability: send exactly one Reply
// on it, carrying this Request's Header.Unique.
type Request struct {
	Header InHeader
	Op     Operation
	ReplyTo ReplyTx
}

// Operation is implemented by every request payload type below. Treat it
// as a closed, tagged union keyed by opcode -- see the switch in parseBody
// and the writeTo methods of the reply bodies (reply.go) -- not as an open
// interface meant for external implementations.
type Operation interface {
	isOperation()
}

type Lookup struct{ Name string }

func (Lookup) isOperation() {}

type Forget struct{ Arg ForgetIn }

func (Forget) isOperation() {}

type BatchForget struct {
	Arg   BatchForgetIn
	Nodes []ForgetOne
}

func (BatchForget) isOperation() {}

type GetAttr struct{ Arg GetattrIn }

func (GetAttr) isOperation() {}

type SetAttr struct{ Arg SetattrIn }

func (SetAttr) isOperation() {}

// ReadLink consumes no trailer; the kernel sends none for this opcode.
type ReadLink struct{}

func (ReadLink) isOperation() {}

type SymLink struct{ Name, Target string }

func (SymLink) isOperation() {}

type MkNod struct {
	Arg  MknodIn
	Name string
}

func (MkNod) isOperation() {}

type MkDir struct {
	Arg  MkdirIn
	Name string
}

func (MkDir) isOperation() {}

type Unlink struct{ Name string }

func (Unlink) isOperation() {}

type RmDir struct{ Name string }

func (RmDir) isOperation() {}

type Rename struct {
	Arg             RenameIn
	Name, NewName   string
}

func (Rename) isOperation() {}

type Rename2 struct {
	Arg           Rename2In
	Name, NewName string
	OldParent     uint64
}

func (Rename2) isOperation() {}

type Link struct {
	Arg  LinkIn
	Name string
}

func (Link) isOperation() {}

type Open struct{ Arg OpenIn }

func (Open) isOperation() {}

type ReadFile struct{ Arg ReadIn }

func (ReadFile) isOperation() {}

type WriteFile struct {
	Arg  WriteIn
	Data []byte
}

func (WriteFile) isOperation() {}

type StatFS struct{}

func (StatFS) isOperation() {}

type Release struct{ Arg ReleaseIn }

func (Release) isOperation() {}

type FSync struct{ Arg FsyncIn }

func (FSync) isOperation() {}

type SetXAttr struct {
	Arg   SetxattrIn
	Name  string
	Value []byte
}

func (SetXAttr) isOperation() {}

type GetXAttr struct {
	Arg  GetxattrIn
	Name string
}

func (GetXAttr) isOperation() {}

type ListXAttr struct{ Arg GetxattrIn }

func (ListXAttr) isOperation() {}

type RemoveXAttr struct{ Name string }

func (RemoveXAttr) isOperation() {}

type Flush struct{ Arg FlushIn }

func (Flush) isOperation() {}

type Init struct{ Arg InitIn }

func (Init) isOperation() {}

type OpenDir struct{ Arg OpenIn }

func (OpenDir) isOperation() {}

type ReadDir struct{ Arg ReadIn }

func (ReadDir) isOperation() {}

type ReadDirPlus struct{ Arg ReadIn }

func (ReadDirPlus) isOperation() {}

type ReleaseDir struct{ Arg ReleaseIn }

func (ReleaseDir) isOperation() {}

type FSyncDir struct{ Arg FsyncIn }

func (FSyncDir) isOperation() {}

type GetLk struct{ Arg LkIn }

func (GetLk) isOperation() {}

type SetLk struct{ Arg LkIn }

func (SetLk) isOperation() {}

type SetLkw struct{ Arg LkIn }

func (SetLkw) isOperation() {}

type Access struct{ Arg AccessIn }

func (Access) isOperation() {}

type Create struct {
	Arg  CreateIn
	Name string
}

func (Create) isOperation() {}

type Interrupt struct{ Arg InterruptIn }

func (Interrupt) isOperation() {}

type BMap struct{ Arg BmapIn }

func (BMap) isOperation() {}

type Destroy struct{}

func (Destroy) isOperation() {}

type IoCtl struct {
	Arg  IoctlIn
	Data []byte
}

func (IoCtl) isOperation() {}

type Poll struct{ Arg PollIn }

func (Poll) isOperation() {}

type NotifyReply struct{}

func (NotifyReply) isOperation() {}

type FAllocate struct{ Arg FallocateIn }

func (FAllocate) isOperation() {}

type LSeek struct{ Arg LseekIn }

func (LSeek) isOperation() {}

type CopyFileRange struct{ Arg CopyFileRangeIn }

func (CopyFileRange) isOperation() {}

type SetupMapping struct{ Arg SetupmappingIn }

func (SetupMapping) isOperation() {}

type RemoveMapping struct {
	Arg      RemovemappingIn
	Mappings []RemovemappingOne
}

func (RemoveMapping) isOperation() {}

type SyncFS struct{ Arg SyncfsIn }

func (SyncFS) isOperation() {}

type TmpFile struct {
	Arg  CreateIn
	Name string
}

func (TmpFile) isOperation() {}

type StatX struct{ Arg StatxIn }

func (StatX) isOperation() {}

type CuseInit struct{ Arg InitIn }

func (CuseInit) isOperation() {}

// unknownOp carries an opcode this package doesn't recognize, kept around
// only so the session can log what it was before replying EIO.
type unknownOp struct{ opcode fusekernel.Opcode }

func (unknownOp) isOperation() {}

////////////////////////////////////////////////////////////////////////
// Parsing
////////////////////////////////////////////////////////////////////////

func fixed[T any](msg *buffer.InMessage) (*T, bool) {
	var zero T
	p := msg.Consume(unsafe.Sizeof(zero))
	if p == nil {
		return nil, false
	}

	return (*T)(p), true
}

// getString reads a single NUL-terminated name from msg's trailer,
// consuming it (including the NUL). Decoding is lossy-UTF-8: invalid byte
// sequences become U+FFFD, matching the raw path bytes the kernel
// actually sends.
func getString(msg *buffer.InMessage) (string, bool) {
	b := msg.PeekRemaining()
	idx := bytes.IndexByte(b, 0)
	if idx < 0 {
		return "", false
	}

	s := strings.ToValidUTF8(string(b[:idx]), "�")
	msg.Consume(uintptr(idx + 1))
	return s, true
}

func copyTrailer(msg *buffer.InMessage, n uintptr) ([]byte, bool) {
	b := msg.ConsumeBytes(n)
	if b == nil {
		return nil, false
	}

	out := make([]byte, len(b))
	copy(out, b)
	return out, true
}

// Parse turns a freshly read frame into a Request carrying replyTo as its
// reply capability. A structural problem (a cast that runs off the end of
// the buffer, a NUL search that doesn't find one, a size field that
// overflows the remaining bytes) yields ErrParseFailure; a well-formed
// frame naming an opcode this package doesn't know yields ErrUnknownOpcode.
// Both are reported as EIO on the wire by the caller, which still has
// access to msg.Header().Unique even on error.
func Parse(msg *buffer.InMessage, replyTo ReplyTx) (*Request, error) {
	header := msg.Header()

	opcode, known := fusekernel.KnownOpcode(header.Opcode)
	if !known {
		return &Request{Header: *header, Op: unknownOp{opcode: opcode}, ReplyTo: replyTo}, ErrUnknownOpcode
	}

	op, ok := parseBody(msg, opcode, header)
	if !ok {
		return &Request{Header: *header, Op: nil, ReplyTo: replyTo}, ErrParseFailure
	}

	return &Request{Header: *header, Op: op, ReplyTo: replyTo}, nil
}

func parseBody(msg *buffer.InMessage, opcode fusekernel.Opcode, header *InHeader) (Operation, bool) {
	switch opcode {
	case fusekernel.OpStatfs, fusekernel.OpReadlink, fusekernel.OpDestroy:
		switch opcode {
		case fusekernel.OpStatfs:
			return StatFS{}, true
		case fusekernel.OpReadlink:
			return ReadLink{}, true
		default:
			return Destroy{}, true
		}

	case fusekernel.OpLookup, fusekernel.OpUnlink, fusekernel.OpRmdir, fusekernel.OpRemovexattr:
		name, ok := getString(msg)
		if !ok {
			return nil, false
		}
		switch opcode {
		case fusekernel.OpLookup:
			return Lookup{Name: name}, true
		case fusekernel.OpUnlink:
			return Unlink{Name: name}, true
		case fusekernel.OpRmdir:
			return RmDir{Name: name}, true
		default:
			return RemoveXAttr{Name: name}, true
		}

	case fusekernel.OpForget:
		arg, ok := fixed[ForgetIn](msg)
		if !ok {
			return nil, false
		}
		return Forget{Arg: *arg}, true

	case fusekernel.OpGetattr:
		arg, ok := fixed[GetattrIn](msg)
		if !ok {
			return nil, false
		}
		return GetAttr{Arg: *arg}, true

	case fusekernel.OpSetattr:
		arg, ok := fixed[SetattrIn](msg)
		if !ok {
			return nil, false
		}
		return SetAttr{Arg: *arg}, true

	case fusekernel.OpSymlink:
		name, ok := getString(msg)
		if !ok {
			return nil, false
		}
		target, ok := getString(msg)
		if !ok {
			return nil, false
		}
		return SymLink{Name: name, Target: target}, true

	case fusekernel.OpMknod:
		arg, ok := fixed[MknodIn](msg)
		if !ok {
			return nil, false
		}
		name, ok := getString(msg)
		if !ok {
			return nil, false
		}
		return MkNod{Arg: *arg, Name: name}, true

	case fusekernel.OpMkdir:
		arg, ok := fixed[MkdirIn](msg)
		if !ok {
			return nil, false
		}
		name, ok := getString(msg)
		if !ok {
			return nil, false
		}
		return MkDir{Arg: *arg, Name: name}, true

	case fusekernel.OpRename:
		arg, ok := fixed[RenameIn](msg)
		if !ok {
			return nil, false
		}
		name, ok := getString(msg)
		if !ok {
			return nil, false
		}
		newName, ok := getString(msg)
		if !ok {
			return nil, false
		}
		return Rename{Arg: *arg, Name: name, NewName: newName}, true

	case fusekernel.OpRename2:
		arg, ok := fixed[Rename2In](msg)
		if !ok {
			return nil, false
		}
		name, ok := getString(msg)
		if !ok {
			return nil, false
		}
		newName, ok := getString(msg)
		if !ok {
			return nil, false
		}
		return Rename2{Arg: *arg, Name: name, NewName: newName, OldParent: header.Nodeid}, true

	case fusekernel.OpLink:
		arg, ok := fixed[LinkIn](msg)
		if !ok {
			return nil, false
		}
		name, ok := getString(msg)
		if !ok {
			return nil, false
		}
		return Link{Arg: *arg, Name: name}, true

	case fusekernel.OpOpen:
		arg, ok := fixed[OpenIn](msg)
		if !ok {
			return nil, false
		}
		return Open{Arg: *arg}, true

	case fusekernel.OpRead:
		arg, ok := fixed[ReadIn](msg)
		if !ok {
			return nil, false
		}
		return ReadFile{Arg: *arg}, true

	case fusekernel.OpWrite:
		arg, ok := fixed[WriteIn](msg)
		if !ok {
			return nil, false
		}
		data, ok := copyTrailer(msg, uintptr(arg.Size))
		if !ok {
			return nil, false
		}
		return WriteFile{Arg: *arg, Data: data}, true

	case fusekernel.OpRelease:
		arg, ok := fixed[ReleaseIn](msg)
		if !ok {
			return nil, false
		}
		return Release{Arg: *arg}, true

	case fusekernel.OpFsync:
		arg, ok := fixed[FsyncIn](msg)
		if !ok {
			return nil, false
		}
		return FSync{Arg: *arg}, true

	case fusekernel.OpSetxattr:
		arg, ok := fixed[SetxattrIn](msg)
		if !ok {
			return nil, false
		}
		name, ok := getString(msg)
		if !ok {
			return nil, false
		}
		value, ok := copyTrailer(msg, uintptr(arg.Size))
		if !ok {
			return nil, false
		}
		return SetXAttr{Arg: *arg, Name: name, Value: value}, true

	case fusekernel.OpGetxattr:
		arg, ok := fixed[GetxattrIn](msg)
		if !ok {
			return nil, false
		}
		name, ok := getString(msg)
		if !ok {
			return nil, false
		}
		return GetXAttr{Arg: *arg, Name: name}, true

	case fusekernel.OpListxattr:
		arg, ok := fixed[GetxattrIn](msg)
		if !ok {
			return nil, false
		}
		return ListXAttr{Arg: *arg}, true

	case fusekernel.OpFlush:
		arg, ok := fixed[FlushIn](msg)
		if !ok {
			return nil, false
		}
		return Flush{Arg: *arg}, true

	case fusekernel.OpInit:
		arg, ok := fixed[InitIn](msg)
		if !ok {
			return nil, false
		}
		return Init{Arg: *arg}, true

	case fusekernel.OpOpendir:
		arg, ok := fixed[OpenIn](msg)
		if !ok {
			return nil, false
		}
		return OpenDir{Arg: *arg}, true

	case fusekernel.OpReaddir:
		arg, ok := fixed[ReadIn](msg)
		if !ok {
			return nil, false
		}
		return ReadDir{Arg: *arg}, true

	case fusekernel.OpReaddirplus:
		arg, ok := fixed[ReadIn](msg)
		if !ok {
			return nil, false
		}
		return ReadDirPlus{Arg: *arg}, true

	case fusekernel.OpReleasedir:
		arg, ok := fixed[ReleaseIn](msg)
		if !ok {
			return nil, false
		}
		return ReleaseDir{Arg: *arg}, true

	case fusekernel.OpFsyncdir:
		arg, ok := fixed[FsyncIn](msg)
		if !ok {
			return nil, false
		}
		return FSyncDir{Arg: *arg}, true

	case fusekernel.OpGetlk, fusekernel.OpSetlk, fusekernel.OpSetlkw:
		arg, ok := fixed[LkIn](msg)
		if !ok {
			return nil, false
		}
		switch opcode {
		case fusekernel.OpGetlk:
			return GetLk{Arg: *arg}, true
		case fusekernel.OpSetlk:
			return SetLk{Arg: *arg}, true
		default:
			return SetLkw{Arg: *arg}, true
		}

	case fusekernel.OpAccess:
		arg, ok := fixed[AccessIn](msg)
		if !ok {
			return nil, false
		}
		return Access{Arg: *arg}, true

	case fusekernel.OpCreate:
		arg, ok := fixed[CreateIn](msg)
		if !ok {
			return nil, false
		}
		name, ok := getString(msg)
		if !ok {
			return nil, false
		}
		return Create{Arg: *arg, Name: name}, true

	case fusekernel.OpInterrupt:
		arg, ok := fixed[InterruptIn](msg)
		if !ok {
			return nil, false
		}
		return Interrupt{Arg: *arg}, true

	case fusekernel.OpBmap:
		arg, ok := fixed[BmapIn](msg)
		if !ok {
			return nil, false
		}
		return BMap{Arg: *arg}, true

	case fusekernel.OpIoctl:
		arg, ok := fixed[IoctlIn](msg)
		if !ok {
			return nil, false
		}
		data, ok := copyTrailer(msg, msg.Remaining())
		if !ok {
			data = nil
		}
		return IoCtl{Arg: *arg, Data: data}, true

	case fusekernel.OpPoll:
		arg, ok := fixed[PollIn](msg)
		if !ok {
			return nil, false
		}
		return Poll{Arg: *arg}, true

	case fusekernel.OpNotifyReply:
		return NotifyReply{}, true

	case fusekernel.OpBatchForget:
		arg, ok := fixed[BatchForgetIn](msg)
		if !ok {
			return nil, false
		}
		nodes := make([]ForgetOne, 0, arg.Count)
		for i := uint32(0); i < arg.Count; i++ {
			one, ok := fixed[ForgetOne](msg)
			if !ok {
				return nil, false
			}
			nodes = append(nodes, *one)
		}
		return BatchForget{Arg: *arg, Nodes: nodes}, true

	case fusekernel.OpFallocate:
		arg, ok := fixed[FallocateIn](msg)
		if !ok {
			return nil, false
		}
		return FAllocate{Arg: *arg}, true

	case fusekernel.OpLseek:
		arg, ok := fixed[LseekIn](msg)
		if !ok {
			return nil, false
		}
		return LSeek{Arg: *arg}, true

	case fusekernel.OpCopyFileRange:
		arg, ok := fixed[CopyFileRangeIn](msg)
		if !ok {
			return nil, false
		}
		return CopyFileRange{Arg: *arg}, true

	case fusekernel.OpSetupmapping:
		arg, ok := fixed[SetupmappingIn](msg)
		if !ok {
			return nil, false
		}
		return SetupMapping{Arg: *arg}, true

	case fusekernel.OpRemovemapping:
		arg, ok := fixed[RemovemappingIn](msg)
		if !ok {
			return nil, false
		}
		mappings := make([]RemovemappingOne, 0, arg.Count)
		for i := uint32(0); i < arg.Count; i++ {
			one, ok := fixed[RemovemappingOne](msg)
			if !ok {
				return nil, false
			}
			mappings = append(mappings, *one)
		}
		return RemoveMapping{Arg: *arg, Mappings: mappings}, true

	case fusekernel.OpSyncfs:
		arg, ok := fixed[SyncfsIn](msg)
		if !ok {
			return nil, false
		}
		return SyncFS{Arg: *arg}, true

	case fusekernel.OpTmpfile:
		arg, ok := fixed[CreateIn](msg)
		if !ok {
			return nil, false
		}
		name, ok := getString(msg)
		if !ok {
			return nil, false
		}
		return TmpFile{Arg: *arg, Name: name}, true

	case fusekernel.OpStatx:
		arg, ok := fixed[StatxIn](msg)
		if !ok {
			return nil, false
		}
		return StatX{Arg: *arg}, true

	case fusekernel.OpCuseInit:
		arg, ok := fixed[InitIn](msg)
		if !ok {
			return nil, false
		}
		return CuseInit{Arg: *arg}, true

	default:
		// Recognized by the opcode table but not given a request shape above
		// (the macOS-only opcodes). Parse reports these as ErrParseFailure,
		// not ErrUnknownOpcode.
		return nil, false
	}
}
