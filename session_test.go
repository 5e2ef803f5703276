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
	"encoding/binary"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/jacobsa/fusesession/internal/fusekernel"
)

// newTestSession wires up a Session around a connected socket pair in
// place of a real /dev/fuse fd, so the event loop in run can be driven
// directly without a kernel. Returns the Session (already running) and
// the peer end a test plays the kernel's part on. The mock replaces the
// real fusermount invocation Mount.Close would otherwise make.
func newTestSession(t *testing.T) (s *Session, kernel *os.File) {
	t.Helper()

	prevMock := fuserunmountMock
	fuserunmountMock = func(string) error { return nil }
	t.Cleanup(func() { fuserunmountMock = prevMock })

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_SEQPACKET, 0)
	if err != nil {
		t.Fatalf("Socketpair: %v", err)
	}
	device := os.NewFile(uintptr(fds[0]), "fuse-test-device")
	kernel = os.NewFile(uintptr(fds[1]), "fuse-test-kernel")

	s = &Session{
		requests: make(chan *Request, 8),
		replies:  make(chan *Reply, 8),
		cancel:   NewCancellationToken(),
		mount:    &Mount{dir: t.TempDir()},
		done:     make(chan struct{}),
		log:      logrus.NewEntry(logrus.New()),
		ceiling:  DefaultCeiling(),
		id:       "test",
	}
	go s.run(device)

	return s, kernel
}

// writeGetattrFrame writes one complete GETATTR request frame in a single
// Write call, matching SOCK_SEQPACKET's message-boundary-per-write
// semantics (and a real /dev/fuse's one-message-per-read(2) behavior).
func writeGetattrFrame(t *testing.T, w *os.File, unique uint64, nodeid uint64) {
	t.Helper()

	header := fusekernel.InHeader{
		Opcode: uint32(fusekernel.OpGetattr),
		Unique: unique,
		Nodeid: nodeid,
	}
	var body fusekernel.GetattrIn
	header.Len = uint32(binary.Size(header)) + uint32(binary.Size(body))

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, header); err != nil {
		t.Fatalf("encoding header: %v", err)
	}
	if err := binary.Write(&buf, binary.LittleEndian, body); err != nil {
		t.Fatalf("encoding body: %v", err)
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		t.Fatalf("Write: %v", err)
	}
}

// readReplyHeader reads one reply frame and decodes its OutHeader.
func readReplyHeader(t *testing.T, r *os.File) fusekernel.OutHeader {
	t.Helper()

	var raw [256]byte
	n, err := r.Read(raw[:])
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	var h fusekernel.OutHeader
	if err := binary.Read(bytes.NewReader(raw[:n]), binary.LittleEndian, &h); err != nil {
		t.Fatalf("decoding header: %v", err)
	}
	return h
}

func TestSessionDrainsWhenDeviceGoesAway(t *testing.T) {
	s, kernel := newTestSession(t)

	// Closing the kernel's end makes the session's next Read return EOF,
	// classified as a terminal (mount-gone) condition: the session should
	// drain -- with nothing in flight, that means an immediate clean exit.
	kernel.Close()

	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("session did not terminate after its device went away")
	}

	if err := s.Err(); err != nil {
		t.Errorf("Err() = %v, want nil for a clean device-gone drain", err)
	}

	if _, ok := <-s.Requests(); ok {
		t.Error("Requests() channel should be closed and drained")
	}
}

func TestSessionRepliesMayCompleteOutOfOrder(t *testing.T) {
	s, kernel := newTestSession(t)
	defer func() {
		s.Cancel()
		<-s.Done()
		kernel.Close()
	}()

	writeGetattrFrame(t, kernel, 1, 1)
	writeGetattrFrame(t, kernel, 2, 2)

	req1 := <-s.Requests()
	req2 := <-s.Requests()
	if req1.Header.Unique != 1 || req2.Header.Unique != 2 {
		t.Fatalf("got uniques %d, %d, want 1, 2 (requests observed in arrival order)", req1.Header.Unique, req2.Header.Unique)
	}

	// Answer the second request before the first: the session must write
	// replies in the order they're handed back, not the order requests
	// arrived in.
	req2.ReplyTo <- NewReply(req2.Header.Unique)
	req1.ReplyTo <- NewReply(req1.Header.Unique)

	first := readReplyHeader(t, kernel)
	second := readReplyHeader(t, kernel)

	if first.Unique != 2 || second.Unique != 1 {
		t.Errorf("reply order = %d, %d, want 2, 1 (out-of-order completion honored)", first.Unique, second.Unique)
	}
}
