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
	"fmt"
	"io"
	"unsafe"

	"github.com/jacobsa/fusesession/internal/fusekernel"
)

var inHeaderSize = unsafe.Sizeof(fusekernel.InHeader{})

// InMessage is an incoming message from the kernel, including the leading
// fusekernel.InHeader struct. It owns a fixed BufferSize backing array so a
// session can recycle InMessages without further allocation.
//
// Must be populated with Init before use.
type InMessage struct {
	buffer [BufferSize]byte

	// Bytes actually read into buffer by the most recent Init.
	length uintptr

	// Bytes already handed out via Consume/ConsumeBytes, starting after the
	// header.
	offset uintptr
}

// NewInMessage allocates a zeroed InMessage ready for Init.
func NewInMessage() *InMessage {
	return &InMessage{}
}

// Init reads a single frame from r into m, discarding any previous
// contents. The first call to Consume afterward consumes bytes directly
// following the fusekernel.InHeader struct.
func (m *InMessage) Init(r io.Reader) (err error) {
	n, err := r.Read(m.buffer[:])
	if err != nil {
		return err
	}

	if uintptr(n) < inHeaderSize {
		return fmt.Errorf("read %d bytes, need at least %d for a header", n, inHeaderSize)
	}

	m.length = uintptr(n)
	m.offset = inHeaderSize
	return nil
}

// Header returns a reference to the header read in the most recent call to
// Init.
func (m *InMessage) Header() (h *fusekernel.InHeader) {
	return (*fusekernel.InHeader)(unsafe.Pointer(&m.buffer[0]))
}

// Len returns the total number of bytes read by the most recent Init.
func (m *InMessage) Len() uintptr {
	return m.length
}

// Remaining returns the number of trailer bytes not yet consumed.
func (m *InMessage) Remaining() uintptr {
	return m.length - m.offset
}

// Consume consumes the next n bytes from the message, returning a nil
// pointer if there are fewer than n bytes available.
func (m *InMessage) Consume(n uintptr) (p unsafe.Pointer) {
	if n > m.Remaining() {
		return nil
	}

	p = unsafe.Pointer(&m.buffer[m.offset])
	m.offset += n
	return p
}

// ConsumeBytes is equivalent to Consume, except it returns a slice of
// bytes. The result is nil if Consume fails.
func (m *InMessage) ConsumeBytes(n uintptr) (b []byte) {
	p := m.Consume(n)
	if p == nil {
		return nil
	}

	return unsafe.Slice((*byte)(p), int(n))
}

// PeekRemaining returns the trailer bytes not yet consumed, without
// consuming them. Used by callers (e.g. NUL-terminated name scanning) that
// need to inspect the trailer before deciding how much of it to consume.
func (m *InMessage) PeekRemaining() []byte {
	if m.Remaining() == 0 {
		return nil
	}

	return unsafe.Slice((*byte)(unsafe.Pointer(&m.buffer[m.offset])), int(m.Remaining()))
}
