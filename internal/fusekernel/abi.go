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

// Package fusekernel defines the wire-level records and constants of the
// FUSE kernel ABI: the fixed-layout structs the kernel driver reads and
// writes across /dev/fuse, the opcode table, and the protocol version
// bookkeeping used during the INIT handshake.
//
// The structs here are laid out to match the kernel's C structures for a
// single, fixed ABI ceiling (7.31 for fuse_init_out's version-gated
// fields; later minors don't grow the struct further). Fields that only
// exist from a given minor version onward are present unconditionally,
// the same way a C build pinned to one kernel header would see them; the
// INIT handshake negotiates which minor is actually in effect, and the
// negotiated value is surfaced, not translated.
package fusekernel

import "fmt"

// Protocol is a FUSE ABI version, (major, minor).
type Protocol struct {
	Major uint32
	Minor uint32
}

func (p Protocol) String() string {
	return fmt.Sprintf("%d.%d", p.Major, p.Minor)
}

// LT reports whether p is strictly older than o.
func (p Protocol) LT(o Protocol) bool {
	if p.Major != o.Major {
		return p.Major < o.Major
	}
	return p.Minor < o.Minor
}

// GE reports whether p is at least as new as o.
func (p Protocol) GE(o Protocol) bool {
	return !p.LT(o)
}

// The range of protocol versions this package supports speaking. The
// kernel's INIT request advertises its own version; the negotiated
// version is the minimum of the kernel's version and this build's
// ceiling.
const (
	ProtoVersionMinMajor = 7
	ProtoVersionMinMinor = 8

	ProtoVersionMaxMajor = 7
	ProtoVersionMaxMinor = 39
)

// RootID is the inode ID of the root of the file system.
const RootID = 1

// Opcode identifies the kind of a request read from the kernel.
type Opcode uint32

const (
	OpLookup       Opcode = 1
	OpForget       Opcode = 2 // No reply
	OpGetattr      Opcode = 3
	OpSetattr      Opcode = 4
	OpReadlink     Opcode = 5
	OpSymlink      Opcode = 6
	OpMknod        Opcode = 8
	OpMkdir        Opcode = 9
	OpUnlink       Opcode = 10
	OpRmdir        Opcode = 11
	OpRename       Opcode = 12
	OpLink         Opcode = 13
	OpOpen         Opcode = 14
	OpRead         Opcode = 15
	OpWrite        Opcode = 16
	OpStatfs       Opcode = 17
	OpRelease      Opcode = 18
	OpFsync        Opcode = 20
	OpSetxattr     Opcode = 21
	OpGetxattr     Opcode = 22
	OpListxattr    Opcode = 23
	OpRemovexattr  Opcode = 24
	OpFlush        Opcode = 25
	OpInit         Opcode = 26
	OpOpendir      Opcode = 27
	OpReaddir      Opcode = 28
	OpReleasedir   Opcode = 29
	OpFsyncdir     Opcode = 30
	OpGetlk        Opcode = 31
	OpSetlk        Opcode = 32
	OpSetlkw       Opcode = 33
	OpAccess       Opcode = 34
	OpCreate       Opcode = 35
	OpInterrupt    Opcode = 36
	OpBmap         Opcode = 37
	OpDestroy      Opcode = 38
	OpIoctl        Opcode = 39 // 7.11
	OpPoll         Opcode = 40 // 7.11
	OpNotifyReply  Opcode = 41 // 7.15
	OpBatchForget  Opcode = 42 // 7.16
	OpFallocate    Opcode = 43 // 7.19
	OpReaddirplus  Opcode = 44 // 7.21
	OpRename2      Opcode = 45 // 7.23
	OpLseek        Opcode = 46 // 7.24
	OpCopyFileRange Opcode = 47 // 7.28
	OpSetupmapping Opcode = 48 // 7.31
	OpRemovemapping Opcode = 49 // 7.31
	OpSyncfs       Opcode = 50 // 7.34
	OpTmpfile      Opcode = 51 // 7.37
	OpStatx        Opcode = 52 // 7.39

	// macOS-only extensions; named here, but the request parser has no
	// shape for them and NegotiatedInitFlags never sets the macOS-only
	// INIT flags.
	OpSetvolname Opcode = 61
	OpGetxtimes  Opcode = 62
	OpExchange   Opcode = 63

	OpCuseInit Opcode = 4096 // 7.12
)

var opcodeNames = map[Opcode]string{
	OpLookup: "LOOKUP", OpForget: "FORGET", OpGetattr: "GETATTR", OpSetattr: "SETATTR",
	OpReadlink: "READLINK", OpSymlink: "SYMLINK", OpMknod: "MKNOD", OpMkdir: "MKDIR",
	OpUnlink: "UNLINK", OpRmdir: "RMDIR", OpRename: "RENAME", OpLink: "LINK",
	OpOpen: "OPEN", OpRead: "READ", OpWrite: "WRITE", OpStatfs: "STATFS",
	OpRelease: "RELEASE", OpFsync: "FSYNC", OpSetxattr: "SETXATTR", OpGetxattr: "GETXATTR",
	OpListxattr: "LISTXATTR", OpRemovexattr: "REMOVEXATTR", OpFlush: "FLUSH", OpInit: "INIT",
	OpOpendir: "OPENDIR", OpReaddir: "READDIR", OpReleasedir: "RELEASEDIR", OpFsyncdir: "FSYNCDIR",
	OpGetlk: "GETLK", OpSetlk: "SETLK", OpSetlkw: "SETLKW", OpAccess: "ACCESS",
	OpCreate: "CREATE", OpInterrupt: "INTERRUPT", OpBmap: "BMAP", OpDestroy: "DESTROY",
	OpIoctl: "IOCTL", OpPoll: "POLL", OpNotifyReply: "NOTIFY_REPLY", OpBatchForget: "BATCH_FORGET",
	OpFallocate: "FALLOCATE", OpReaddirplus: "READDIRPLUS", OpRename2: "RENAME2", OpLseek: "LSEEK",
	OpCopyFileRange: "COPY_FILE_RANGE", OpSetupmapping: "SETUPMAPPING", OpRemovemapping: "REMOVEMAPPING",
	OpSyncfs: "SYNCFS", OpTmpfile: "TMPFILE", OpStatx: "STATX",
	OpSetvolname: "SETVOLNAME", OpGetxtimes: "GETXTIMES", OpExchange: "EXCHANGE",
	OpCuseInit: "CUSE_INIT",
}

func (o Opcode) String() string {
	if n, ok := opcodeNames[o]; ok {
		return n
	}
	return fmt.Sprintf("opcode(%d)", uint32(o))
}

// KnownOpcode reports whether code is one this package can parse.
func KnownOpcode(code uint32) (Opcode, bool) {
	o := Opcode(code)
	_, ok := opcodeNames[o]
	return o, ok
}

// NotifyCode identifies a kernel-bound, outbound-only notification. These
// carry unique == 0 and are never read from the device. The codes and
// their records are defined here only: the fuse package has no reply body
// type for them, and its Serialize writes just the header of any reply
// whose Error field is non-zero.
type NotifyCode uint32

const (
	NotifyPoll        NotifyCode = 1
	NotifyInvalInode  NotifyCode = 2
	NotifyInvalEntry  NotifyCode = 3
	NotifyStore       NotifyCode = 4
	NotifyRetrieve    NotifyCode = 5
	NotifyDelete      NotifyCode = 6
)

// Init negotiation flags (INIT_FLAGS in the reference), set on InitOut.Flags.
const (
	InitAsyncRead       = 1 << 0
	InitPosixLocks      = 1 << 1
	InitFileOps         = 1 << 2
	InitAtomicOTrunc    = 1 << 3
	InitExportSupport   = 1 << 4
	InitBigWrites       = 1 << 5
	InitDontMask        = 1 << 6  // 7.12
	InitSpliceWrite     = 1 << 7
	InitSpliceMove      = 1 << 8
	InitSpliceRead      = 1 << 9
	InitFlockLocks      = 1 << 10 // 7.17
	InitHasIoctlDir     = 1 << 11
	InitAutoInvalData   = 1 << 12
	InitDoReaddirplus   = 1 << 13 // 7.21
	InitReaddirplusAuto = 1 << 14
	InitAsyncDIO        = 1 << 15
	InitWritebackCache  = 1 << 16
	InitNoOpenSupport   = 1 << 17
	InitParallelDirOps  = 1 << 18
	InitHandleKillpriv  = 1 << 19
	InitPosixACL        = 1 << 20
	InitAbortError      = 1 << 21
	InitMaxPages        = 1 << 22 // 7.28
	InitCacheSymlinks   = 1 << 23
	InitNoOpendirSupport = 1 << 24
	InitExplicitInvalData = 1 << 25

	// macOS-only, never set on a Linux build.
	InitCaseSensitive = 1 << 29
	InitVolRename     = 1 << 30
	InitXtimes        = 1 << 31
)

// FileType extracts the fuse_dirent "typ" field (mode & S_IFMT >> 12)
// from a raw POSIX mode word.
func FileType(mode uint32) uint32 {
	const sIFMT = 0170000
	return (mode & sIFMT) >> 12
}

////////////////////////////////////////////////////////////////////////
// Fixed headers
////////////////////////////////////////////////////////////////////////

// InHeader is the 40-byte prefix of every request frame.
type InHeader struct {
	Len     uint32
	Opcode  uint32
	Unique  uint64
	Nodeid  uint64
	Uid     uint32
	Gid     uint32
	Pid     uint32
	Padding uint32
}

// OutHeader is the 16-byte prefix of every reply frame.
type OutHeader struct {
	Len    uint32
	Error  int32
	Unique uint64
}

////////////////////////////////////////////////////////////////////////
// Common records
////////////////////////////////////////////////////////////////////////

type Attr struct {
	Ino       uint64
	Size      uint64
	Blocks    uint64
	Atime     int64
	Mtime     int64
	Ctime     int64
	Atimensec uint32
	Mtimensec uint32
	Ctimensec uint32
	Mode      uint32
	Nlink     uint32
	Uid       uint32
	Gid       uint32
	Rdev      uint32
	Blksize   uint32
	Padding   uint32
}

type Kstatfs struct {
	Blocks  uint64
	Bfree   uint64
	Bavail  uint64
	Files   uint64
	Ffree   uint64
	Bsize   uint32
	Namelen uint32
	Frsize  uint32
	Padding uint32
	Spare   [6]uint32
}

type FileLock struct {
	Start uint64
	End   uint64
	Type  int32
	Pid   uint32
}

////////////////////////////////////////////////////////////////////////
// Per-opcode argument records (fixed prefixes)
////////////////////////////////////////////////////////////////////////

type EntryOut struct {
	Nodeid         uint64
	Generation     uint64
	EntryValid     uint64
	AttrValid      uint64
	EntryValidNsec uint32
	AttrValidNsec  uint32
	Attr           Attr
}

type ForgetIn struct {
	Nlookup uint64
}

type ForgetOne struct {
	Nodeid  uint64
	Nlookup uint64
}

type BatchForgetIn struct {
	Count uint32
	Dummy uint32
}

type GetattrIn struct {
	GetattrFlags uint32
	Dummy        uint32
	Fh           uint64
}

type AttrOut struct {
	AttrValid     uint64
	AttrValidNsec uint32
	Dummy         uint32
	Attr          Attr
}

type MknodIn struct {
	Mode    uint32
	Rdev    uint32
	Umask   uint32
	Padding uint32
}

type MkdirIn struct {
	Mode  uint32
	Umask uint32
}

type RenameIn struct {
	Newdir uint64
}

type Rename2In struct {
	Newdir  uint64
	Flags   uint32
	Padding uint32
}

type LinkIn struct {
	Oldnodeid uint64
}

type SetattrIn struct {
	Valid     uint32
	Padding   uint32
	Fh        uint64
	Size      uint64
	LockOwner uint64
	Atime     int64
	Mtime     int64
	Ctime     int64
	Atimensec uint32
	Mtimensec uint32
	Ctimensec uint32
	Mode      uint32
	Unused4   uint32
	Uid       uint32
	Gid       uint32
	Unused5   uint32
}

// SetattrIn "valid" bits.
const (
	SetattrMode     = 1 << 0
	SetattrUid      = 1 << 1
	SetattrGid      = 1 << 2
	SetattrSize     = 1 << 3
	SetattrAtime    = 1 << 4
	SetattrMtime    = 1 << 5
	SetattrFh       = 1 << 6
	SetattrAtimeNow = 1 << 7
	SetattrMtimeNow = 1 << 8
	SetattrLockOwner = 1 << 9
	SetattrCtime    = 1 << 10
)

type OpenIn struct {
	Flags  int32
	Unused uint32
}

type CreateIn struct {
	Flags   int32
	Mode    uint32
	Umask   uint32
	Padding uint32
}

type OpenOut struct {
	Fh        uint64
	OpenFlags uint32
	Padding   uint32
}

type CreateOut struct {
	Entry EntryOut
	Open  OpenOut
}

type ReleaseIn struct {
	Fh           uint64
	Flags        int32
	ReleaseFlags uint32
	LockOwner    uint64
}

type FlushIn struct {
	Fh        uint64
	Unused    uint32
	Padding   uint32
	LockOwner uint64
}

type ReadIn struct {
	Fh         uint64
	Offset     int64
	Size       uint32
	ReadFlags  uint32
	LockOwner  uint64
	Flags      int32
	Padding    uint32
}

type WriteIn struct {
	Fh         uint64
	Offset     int64
	Size       uint32
	WriteFlags uint32
	LockOwner  uint64
	Flags      int32
	Padding    uint32
}

type WriteOut struct {
	Size    uint32
	Padding uint32
}

type StatfsOut struct {
	St Kstatfs
}

type FsyncIn struct {
	Fh         uint64
	FsyncFlags uint32
	Padding    uint32
}

type SetxattrIn struct {
	Size    uint32
	Flags   int32
}

type GetxattrIn struct {
	Size    uint32
	Padding uint32
}

type GetxattrOut struct {
	Size    uint32
	Padding uint32
}

type LkIn struct {
	Fh       uint64
	Owner    uint64
	Lk       FileLock
	LkFlags  uint32
	Padding  uint32
}

type LkOut struct {
	Lk FileLock
}

type AccessIn struct {
	Mask    int32
	Padding uint32
}

type InitIn struct {
	Major        uint32
	Minor        uint32
	MaxReadahead uint32
	Flags        uint32
}

type InitOut struct {
	Major               uint32
	Minor               uint32
	MaxReadahead        uint32
	Flags               uint32
	MaxBackground       uint16
	CongestionThreshold uint16
	MaxWrite            uint32
	TimeGran            uint32
	MaxPages            uint16
	Unused2             uint16
	Reserved            [8]uint32
}

type InterruptIn struct {
	Unique uint64
}

type BmapIn struct {
	Block     uint64
	Blocksize uint32
	Padding   uint32
}

type BmapOut struct {
	Block uint64
}

type IoctlIn struct {
	Fh      uint64
	Flags   uint32
	Cmd     uint32
	Arg     uint64
	InSize  uint32
	OutSize uint32
}

type IoctlOut struct {
	Result  int32
	Flags   uint32
	InIovs  uint32
	OutIovs uint32
}

type PollIn struct {
	Fh     uint64
	Kh     uint64
	Flags  uint32
	Events uint32
}

type PollOut struct {
	Revents uint32
	Padding uint32
}

type NotifyPollWakeupOut struct {
	Kh uint64
}

type FallocateIn struct {
	Fh      uint64
	Offset  int64
	Length  int64
	Mode    int32
	Padding uint32
}

type Dirent struct {
	Ino     uint64
	Off     int64
	Namelen uint32
	Typ     uint32
}

type DirentPlus struct {
	EntryOut EntryOut
	Dirent   Dirent
}

type LseekIn struct {
	Fh      uint64
	Offset  int64
	Whence  int32
	Padding uint32
}

type LseekOut struct {
	Offset int64
}

type CopyFileRangeIn struct {
	FhIn    uint64
	OffIn   int64
	NodeOut uint64
	FhOut   uint64
	OffOut  int64
	Len     uint64
	Flags   uint64
}

type SetupmappingIn struct {
	Fh      uint64
	Foffset uint64
	Len     uint64
	Flags   uint64
	Moffset uint64
}

type RemovemappingIn struct {
	Count uint32
}

type RemovemappingOne struct {
	Moffset uint64
	Len     uint64
}

type SyncfsIn struct {
	Padding uint64
}

type NotifyInvalInodeOut struct {
	Ino    uint64
	Off    int64
	Len    int64
}

type NotifyInvalEntryOut struct {
	Parent  uint64
	Namelen uint32
	Padding uint32
}

type NotifyDeleteOut struct {
	Parent  uint64
	Child   uint64
	Namelen uint32
	Padding uint32
}

type NotifyStoreOut struct {
	Nodeid  uint64
	Offset  uint64
	Size    uint32
	Padding uint32
}

type NotifyRetrieveOut struct {
	NotifyUnique uint64
	Nodeid       uint64
	Offset       uint64
	Size         uint32
	Padding      uint32
}

type NotifyRetrieveIn struct {
	Dummy1  uint32
	Offset  uint64
	Size    uint32
	Dummy2  uint64
}

type SxTime struct {
	TvSec  int64
	TvNsec uint32
	Pad    int32
}

type Statx struct {
	Mask            uint32
	Blksize         uint32
	Attributes      uint64
	Nlink           uint32
	Uid             uint32
	Gid             uint32
	Mode            uint16
	Spare0          uint16
	Ino             uint64
	Size            uint64
	Blocks          uint64
	AttributesMask  uint64
	Atime           SxTime
	Btime           SxTime
	Ctime           SxTime
	Mtime           SxTime
	RdevMajor       uint32
	RdevMinor       uint32
	DevMajor        uint32
	DevMinor        uint32
	Spare           [14]uint64
}

type StatxIn struct {
	Getattrflags uint32
	Reserved     uint32
	Fh           uint64
	Sx_flags     uint32
	Sx_mask      uint32
}

type StatxOut struct {
	Attr Statx
}

////////////////////////////////////////////////////////////////////////
// Size helpers
//
// A handful of reply bodies change shape across ABI levels; the session
// selects the size appropriate to the negotiated protocol so it never
// writes trailing bytes a pre-7.23 kernel doesn't expect.
////////////////////////////////////////////////////////////////////////

// InitOutSizeBase is the size of the fuse_init_out prefix understood by
// any kernel below 7.23: major, minor, max_readahead, flags,
// max_background, congestion_threshold, max_write. max_write has always
// been part of the base struct (present even on 7.8-7.12, where the two
// bytes this package calls max_background/congestion_threshold were a
// single reserved "unused" uint32 the kernel ignored) -- it is not a
// later addition, so any kernel below 7.23 gets this same 24-byte prefix.
const InitOutSizeBase = 4*4 + 2*2 + 4 // major,minor,max_readahead,flags,max_background,congestion_threshold,max_write

// InitOutSizeFull is the 7.23+ shape: the base prefix plus time_gran and
// the max_pages/reserved tail. 7.23-7.27 kernels and 7.28+ kernels both
// expect this same total size; only the 7.28+ kernel interprets the
// max_pages/unused2 fields within the tail, older ones treat the same
// bytes as opaque reserved padding.
const InitOutSizeFull = InitOutSizeBase + 4 + 2 + 2 + 8*4
