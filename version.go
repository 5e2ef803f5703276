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
	"fmt"

	"github.com/jacobsa/fusesession/internal/fusekernel"
)

// Version is a negotiated FUSE ABI version, the major/minor pair the
// kernel and this package agreed on during INIT.
type Version struct {
	Major uint32
	Minor uint32
}

func (v Version) String() string { return fmt.Sprintf("%d.%d", v.Major, v.Minor) }

// atLeast reports whether v is at or above the given minor version within
// major version 7 (the only major version this package speaks).
func (v Version) atLeast(minor uint32) bool { return v.Major > 7 || v.Minor >= minor }

// Negotiate picks the protocol version this session will speak: the
// minimum of what the kernel advertised in its INIT request and ceiling,
// the highest version this build supports. A kernel older than this
// package's floor is clamped up to the floor, matching the reference
// negotiation (a session that can't actually talk that old a protocol
// will fail later, on the first unsupported opcode, rather than at INIT).
func Negotiate(kernel Version, ceiling Version) Version {
	v := kernel
	if v.Major != ceiling.Major || v.Minor > ceiling.Minor {
		v = ceiling
	}
	if v.Minor < fusekernel.ProtoVersionMinMinor {
		v.Minor = fusekernel.ProtoVersionMinMinor
	}
	return v
}

// DefaultCeiling is the highest protocol version this build understands.
func DefaultCeiling() Version {
	return Version{Major: fusekernel.ProtoVersionMaxMajor, Minor: fusekernel.ProtoVersionMaxMinor}
}

// NegotiatedInitFlags returns the INIT_FLAGS bits this package sets in
// InitOut.Flags for the given negotiated version, mirroring the
// reference's supported_init_flags(): a fixed base set, plus bits gated
// on the ABI version that introduced them.
func NegotiatedInitFlags(v Version) uint32 {
	flags := uint32(fusekernel.InitAsyncRead | fusekernel.InitBigWrites | fusekernel.InitAsyncDIO |
		fusekernel.InitFileOps | fusekernel.InitAtomicOTrunc | fusekernel.InitExportSupport)

	if v.atLeast(12) {
		flags |= fusekernel.InitDontMask
	}
	if v.atLeast(17) {
		flags |= fusekernel.InitFlockLocks
	}
	if v.atLeast(28) {
		flags |= fusekernel.InitMaxPages
	}

	return flags
}
