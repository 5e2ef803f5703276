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

func TestMountsReflectsNoActiveMounts(t *testing.T) {
	// Build never succeeds in this sandbox (no /dev/fuse), so the registry
	// should never gain an entry from a failed Build.
	b := fuse.NewBuilder()
	b.MountPath = t.TempDir()
	b.Requests = make(chan *fuse.Request, 1)

	if _, err := b.Build(); err == nil {
		t.Fatal("Build: expected an error in this environment")
	}

	for dir := range fuse.Mounts() {
		if dir == b.MountPath {
			t.Errorf("Mounts() contains %q after a failed Build", dir)
		}
	}
}
