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
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/jacobsa/fusesession/internal/buffer"
)

// RequestChannelCapacity bounds the outbound request channel. A full
// channel applies natural backpressure on the device reader.
const RequestChannelCapacity = 32

// Session is the running core: a single goroutine ferrying kernel
// requests to the application and application replies back to the
// kernel. Obtain one from Builder.Build.
type Session struct {
	requests chan *Request
	replies  chan *Reply
	cancel   CancellationToken
	mount    *Mount
	done     chan struct{}
	log      *logrus.Entry
	ceiling  Version
	id       string

	mu      sync.Mutex
	err     error
	version Version
}

// Requests is the outbound channel (core -> application): every kernel
// request the session parses, each carrying its own reply capability.
// Closed once the session has terminated.
func (s *Session) Requests() <-chan *Request { return s.requests }

// Cancel requests the session begin draining and terminate. Idempotent.
func (s *Session) Cancel() { s.cancel.Cancel() }

// IsCancelled reports whether Cancel has been called.
func (s *Session) IsCancelled() bool { return s.cancel.IsCancelled() }

// Done is closed once the session has fully terminated (Terminated
// state); Err is valid to read after it closes.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err returns the fatal error that ended the session, if any. Valid after
// Done is closed; nil for a clean (cancelled) shutdown.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// ID returns the session's correlation id, attached to every log line it
// emits. Distinguishes concurrent mounts in one process.
func (s *Session) ID() string { return s.id }

// Version returns the negotiated protocol version once INIT has been
// observed; the zero Version beforehand.
func (s *Session) Version() Version {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

func (s *Session) setVersion(v Version) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version = v
}

// readSeverity classifies a device read error by how the session loop
// should react to it.
type readSeverity int

const (
	severityTransient readSeverity = iota
	severityTerminal
	severityFatal
)

func classifyReadError(err error) readSeverity {
	switch {
	case errors.Is(err, io.EOF):
		return severityTerminal
	case errors.Is(err, ENOENT), errors.Is(err, EINTR), errors.Is(err, EAGAIN):
		return severityTransient
	case errors.Is(err, ENODEV):
		return severityTerminal
	default:
		return severityFatal
	}
}

type readOutcome struct {
	err error
}

// run is the session's single task: an event loop that, each iteration,
// awaits a cancellation signal, a reply from the inbound-reply channel, and
// a read from the device, with exactly one source selected.
//
// The device Read is blocking, so it happens on a dedicated goroutine that
// this loop feeds one "go ahead" at a time -- never more than one read
// outstanding, matching the reference's single sequential read loop and
// preserving the backpressure rule (a full outbound channel stalls the
// next read).
func (s *Session) run(device *os.File) {
	defer close(s.done)
	defer close(s.requests)
	defer func() {
		if err := s.mount.Close(); err != nil {
			s.log.WithError(err).Warn("unmount failed")
		}
	}()

	msg := buffer.NewInMessage()
	var out buffer.OutMessage
	out.Reset()

	startRead := make(chan struct{}, 1)
	readResults := make(chan readOutcome, 1)

	var g errgroup.Group
	g.Go(func() error {
		for range startRead {
			readResults <- readOutcome{err: msg.Init(device)}
		}
		return nil
	})
	// Wait for the reader goroutine last, after unmount and after done is
	// closed: a read may still be blocked in msg.Init(device) when run
	// returns, and closing a blocking *os.File does not interrupt it. The
	// read returns once the mount is gone or the device's peer hangs up;
	// the goroutine then sees startRead closed and exits.
	defer func() {
		close(startRead)
		g.Wait()
	}()
	defer close(s.done)
	defer close(s.requests)
	defer func() {
		if err := s.mount.Close(); err != nil {
			s.log.WithError(err).Warn("unmount failed")
		}
	}()
	defer device.Close()

	reading := false
	draining := false
	inFlight := 0

	kickRead := func() {
		if !draining && !reading {
			reading = true
			startRead <- struct{}{}
		}
	}
	kickRead()

	for {
		if draining && inFlight == 0 && !reading {
			return
		}

		var cancelCh <-chan struct{}
		if !draining {
			cancelCh = s.cancel.Done()
		}

		var readCh <-chan readOutcome
		if reading {
			readCh = readResults
		}

		select {
		case <-cancelCh:
			s.log.Debug("cancellation requested, draining")
			draining = true

		case reply := <-s.replies:
			inFlight--
			metricInFlight.Dec()
			if err := s.writeReply(reply, &out, device); err != nil {
				s.log.WithError(err).Error("device write failed, terminating session")
				s.setErr(err)
				return
			}
			metricRepliesWritten.Inc()

		case outcome := <-readCh:
			reading = false
			if outcome.err != nil {
				switch classifyReadError(outcome.err) {
				case severityTransient:
					s.log.WithError(outcome.err).Debug("transient read error, continuing")
					metricReadErrors.WithLabelValues("transient").Inc()
					kickRead()
				case severityTerminal:
					s.log.WithError(outcome.err).Info("mount gone, draining")
					metricReadErrors.WithLabelValues("terminal").Inc()
					draining = true
				case severityFatal:
					s.log.WithError(outcome.err).Error("fatal read error, terminating session")
					metricReadErrors.WithLabelValues("fatal").Inc()
					s.setErr(outcome.err)
					return
				}
				continue
			}

			req, perr := Parse(msg, ReplyTx(s.replies))
			metricRequestsParsed.Inc()
			if init, ok := req.Op.(Init); ok {
				kernel := Version{Major: init.Arg.Major, Minor: init.Arg.Minor}
				s.setVersion(Negotiate(kernel, s.ceiling))
			}
			if perr != nil {
				s.log.WithError(perr).WithFields(logrus.Fields{
					"opcode": req.Header.Opcode,
					"unique": req.Header.Unique,
				}).Warn("unparseable request, replying EIO")
				if err := s.writeReply(NewErrorReply(req.Header.Unique, ToErrno(perr)), &out, device); err != nil {
					s.log.WithError(err).Error("device write failed, terminating session")
					s.setErr(err)
					return
				}
			} else if !draining {
				s.requests <- req
				inFlight++
				metricInFlight.Inc()
			}

			kickRead()
		}
	}
}

// writeReply serializes r into out and performs the one blocking write of
// the exact byte count to the device ("a short write is
// treated as fatal").
func (s *Session) writeReply(r *Reply, out *buffer.OutMessage, device *os.File) error {
	b := Serialize(r, out)

	n, err := device.Write(b)
	if err != nil {
		return err
	}
	if n != len(b) {
		return fmt.Errorf("fuse: short write to device (%d of %d bytes)", n, len(b))
	}

	return nil
}
