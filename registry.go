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
	"github.com/jacobsa/syncutil"
)

// mountRegistry tracks the mount points this process currently has active,
// for diagnostics, exposed through Mounts. One instance,
// package-level, shared by every Builder.Build call in the process.
type mountRegistry struct {
	mu syncutil.InvariantMutex

	// active maps mount directory to session id. Guarded by mu.
	active map[string]string
}

func (r *mountRegistry) checkInvariants() {
	if r.active == nil {
		panic("mountRegistry.active is nil")
	}
	for dir, id := range r.active {
		if dir == "" || id == "" {
			panic("mountRegistry holds an empty dir or session id")
		}
	}
}

var gMountRegistry = newMountRegistry()

func newMountRegistry() *mountRegistry {
	r := &mountRegistry{active: make(map[string]string)}
	r.mu = syncutil.NewInvariantMutex(r.checkInvariants)
	return r
}

func (r *mountRegistry) add(dir, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active[dir] = sessionID
}

func (r *mountRegistry) remove(dir string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, dir)
}

// Mounts returns a snapshot of directory -> session id for every mount
// currently active in this process.
func Mounts() map[string]string {
	gMountRegistry.mu.RLock()
	defer gMountRegistry.mu.RUnlock()

	out := make(map[string]string, len(gMountRegistry.active))
	for k, v := range gMountRegistry.active {
		out[k] = v
	}
	return out
}
