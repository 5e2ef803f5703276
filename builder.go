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
	"github.com/google/uuid"
	"github.com/jacobsa/timeutil"
	"github.com/sirupsen/logrus"
)

// Builder assembles a Session. The zero value is not ready for use; start
// from NewBuilder, which fills in the documented defaults.
type Builder struct {
	DevicePath    string
	MountPath     string
	MountOptions  []MountOption
	Requests      chan *Request
	Cancellation  CancellationToken
	Logger        *logrus.Logger

	// ProtoVersion caps the FUSE ABI version this session will negotiate
	// with the kernel. Zero means DefaultCeiling.
	ProtoVersion Version

	// Clock stamps the "session started" log line; overridable in tests.
	// Zero means timeutil.RealClock().
	Clock timeutil.Clock
}

// NewBuilder returns a Builder with DevicePath defaulted to /dev/fuse,
// MountOptions defaulted to a conservative set, and a fresh CancellationToken.
// MountPath and Requests are still required before Build.
func NewBuilder() *Builder {
	return &Builder{
		DevicePath:   "/dev/fuse",
		MountOptions: DefaultMountOptions(),
		Cancellation: NewCancellationToken(),
	}
}

// Build validates b, mounts the filesystem, wires the reply channel, and
// spawns the session task, returning the running Session.
func (b *Builder) Build() (*Session, error) {
	if err := validateMountArgs(b.DevicePath, b.MountPath, b.Requests != nil); err != nil {
		return nil, err
	}

	if b.Cancellation.state == nil {
		b.Cancellation = NewCancellationToken()
	}
	if len(b.MountOptions) == 0 {
		b.MountOptions = DefaultMountOptions()
	}

	device, m, err := mount(b.MountPath, b.MountOptions)
	if err != nil {
		return nil, err
	}

	logger := b.Logger
	if logger == nil {
		logger = getLogger()
	}

	ceiling := b.ProtoVersion
	if ceiling == (Version{}) {
		ceiling = DefaultCeiling()
	}

	clock := b.Clock
	if clock == nil {
		clock = timeutil.RealClock()
	}

	id := uuid.NewString()

	s := &Session{
		requests: b.Requests,
		replies:  make(chan *Reply, RequestChannelCapacity),
		cancel:   b.Cancellation,
		mount:    m,
		done:     make(chan struct{}),
		log:      logger.WithFields(logrus.Fields{"mount": b.MountPath, "session": id}),
		ceiling:  ceiling,
		id:       id,
	}

	gMountRegistry.add(b.MountPath, id)
	s.log.WithField("started_at", clock.Now()).Info("session started")

	go func() {
		s.run(device)
		gMountRegistry.remove(b.MountPath)
	}()

	return s, nil
}
