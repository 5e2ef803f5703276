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

import "sync"

// CancellationToken is a cloneable, sticky cancellation capability shared
// between a Session and whatever else in the host process needs to
// coordinate shutdown with it ("cancellation as a shared
// capability"). All clones of a token share the same underlying state;
// cancelling any one of them cancels all of them.
//
// The zero value is not valid; use NewCancellationToken.
type CancellationToken struct {
	state *cancelState
}

type cancelState struct {
	mu        sync.Mutex
	cancelled bool
	done      chan struct{}
}

// NewCancellationToken returns a fresh, uncancelled token.
func NewCancellationToken() CancellationToken {
	return CancellationToken{state: &cancelState{done: make(chan struct{})}}
}

// Cancel marks the token cancelled. Idempotent: calling it more than once
// has no further effect, and IsCancelled is monotonic.
func (t CancellationToken) Cancel() {
	s := t.state
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelled {
		return
	}

	s.cancelled = true
	close(s.done)
}

// IsCancelled reports whether Cancel has been called on this token or any
// of its clones.
func (t CancellationToken) IsCancelled() bool {
	s := t.state
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// Done returns a channel that is closed when the token is cancelled; it is
// the select-able equivalent of the reference's await_cancelled().
func (t CancellationToken) Done() <-chan struct{} {
	return t.state.done
}
