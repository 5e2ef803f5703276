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
	"testing"

	fuse "github.com/jacobsa/fusesession"
)

func TestNegotiateClampsToCeiling(t *testing.T) {
	kernel := fuse.Version{Major: 7, Minor: 39}
	ceiling := fuse.Version{Major: 7, Minor: 31}

	got := fuse.Negotiate(kernel, ceiling)
	if got != ceiling {
		t.Errorf("Negotiate(%v, %v) = %v, want %v", kernel, ceiling, got, ceiling)
	}
}

func TestNegotiateAcceptsOlderKernel(t *testing.T) {
	kernel := fuse.Version{Major: 7, Minor: 19}
	ceiling := fuse.DefaultCeiling()

	got := fuse.Negotiate(kernel, ceiling)
	if got != kernel {
		t.Errorf("Negotiate(%v, %v) = %v, want %v", kernel, ceiling, got, kernel)
	}
}

func TestNegotiatedInitFlagsGating(t *testing.T) {
	old := fuse.NegotiatedInitFlags(fuse.Version{Major: 7, Minor: 8})
	newer := fuse.NegotiatedInitFlags(fuse.Version{Major: 7, Minor: 28})

	if newer&old != old {
		t.Errorf("newer negotiated flags (%#x) should be a superset of older (%#x)", newer, old)
	}
	if newer == old {
		t.Error("expected 7.28 to add flags beyond the 7.8 base set")
	}
}
