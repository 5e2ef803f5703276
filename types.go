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

import "github.com/jacobsa/fusesession/internal/fusekernel"

// The types below are aliases for the wire records that fill the Arg
// fields of Request and Reply bodies. internal/fusekernel stays internal
// (it encodes the kernel's exact ABI layout via struct tags and unsafe
// casts, not something outside callers should poke at directly), but an
// application wiring up a Session needs to name these types to construct
// replies and read requests, so they're re-exported here under their
// fusekernel names. Construct them as ordinary Go structs, e.g.
// fuse.EntryReply{Arg: fuse.EntryOut{Nodeid: ino, Attr: fuse.Attr{...}}}.

// Shared attribute records, nested inside several of the types below.
type (
	Attr     = fusekernel.Attr
	Kstatfs  = fusekernel.Kstatfs
	FileLock = fusekernel.FileLock
	Statx    = fusekernel.Statx
	SxTime   = fusekernel.SxTime
)

// Headers.
type (
	InHeader  = fusekernel.InHeader
	OutHeader = fusekernel.OutHeader
)

// Request argument records, one per opcode that carries a fixed-size body.
type (
	AccessIn          = fusekernel.AccessIn
	BatchForgetIn     = fusekernel.BatchForgetIn
	BmapIn            = fusekernel.BmapIn
	CopyFileRangeIn   = fusekernel.CopyFileRangeIn
	CreateIn          = fusekernel.CreateIn
	FallocateIn       = fusekernel.FallocateIn
	FlushIn           = fusekernel.FlushIn
	ForgetIn          = fusekernel.ForgetIn
	ForgetOne         = fusekernel.ForgetOne
	FsyncIn           = fusekernel.FsyncIn
	GetattrIn         = fusekernel.GetattrIn
	GetxattrIn        = fusekernel.GetxattrIn
	InitIn            = fusekernel.InitIn
	InterruptIn       = fusekernel.InterruptIn
	IoctlIn           = fusekernel.IoctlIn
	LinkIn            = fusekernel.LinkIn
	LkIn              = fusekernel.LkIn
	LseekIn           = fusekernel.LseekIn
	MkdirIn           = fusekernel.MkdirIn
	MknodIn           = fusekernel.MknodIn
	OpenIn            = fusekernel.OpenIn
	PollIn            = fusekernel.PollIn
	ReadIn            = fusekernel.ReadIn
	ReleaseIn         = fusekernel.ReleaseIn
	RemovemappingIn   = fusekernel.RemovemappingIn
	RemovemappingOne  = fusekernel.RemovemappingOne
	Rename2In         = fusekernel.Rename2In
	RenameIn          = fusekernel.RenameIn
	SetattrIn         = fusekernel.SetattrIn
	SetupmappingIn    = fusekernel.SetupmappingIn
	SetxattrIn        = fusekernel.SetxattrIn
	StatxIn           = fusekernel.StatxIn
	SyncfsIn          = fusekernel.SyncfsIn
	WriteIn           = fusekernel.WriteIn
)

// Reply body records, one per opcode that carries a fixed-size body.
type (
	AttrOut    = fusekernel.AttrOut
	BmapOut    = fusekernel.BmapOut
	CreateOut  = fusekernel.CreateOut
	EntryOut   = fusekernel.EntryOut
	GetxattrOut = fusekernel.GetxattrOut
	InitOut    = fusekernel.InitOut
	IoctlOut   = fusekernel.IoctlOut
	LkOut      = fusekernel.LkOut
	LseekOut   = fusekernel.LseekOut
	OpenOut    = fusekernel.OpenOut
	PollOut    = fusekernel.PollOut
	StatfsOut  = fusekernel.StatfsOut
	StatxOut   = fusekernel.StatxOut
	WriteOut   = fusekernel.WriteOut
)

// Directory entry records, used by ReadDirReply/ReadDirPlusReply.
type (
	Dirent     = fusekernel.Dirent
	DirentPlus = fusekernel.DirentPlus
)
