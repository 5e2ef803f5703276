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
	"os"
	"strings"
)

// ParseMountOption parses one CLI/config mount-options entry ("allow_other",
// "fsname=myfs") into a MountOption, for callers building a []MountOption
// from user-supplied strings (cmd/fusesession's config).
func ParseMountOption(s string) (MountOption, bool) {
	name, value, _ := strings.Cut(s, "=")
	switch name {
	case "allow_other":
		return AllowOther(), true
	case "allow_root":
		return AllowRoot(), true
	case "default_permissions":
		return DefaultPermissions(), true
	case "nodev":
		return NoDev(), true
	case "nosuid":
		return NoSuid(), true
	case "noexec":
		return NoExec(), true
	case "noatime":
		return NoAtime(), true
	case "auto_unmount":
		return AutoUnmount(), true
	case "fsname":
		return FSName(value), true
	case "subtype":
		return Subtype(value), true
	default:
		return MountOption{}, false
	}
}

// ErrExternallyManagedMountPoint is returned by unmount when dir names a
// mountpoint of the form /dev/fd/N: these are pre-opened by a supervising
// process (e.g. a container runtime) and fusermount cannot tear them down
// itself.
var ErrExternallyManagedMountPoint = errors.New("fuse: externally managed mount point")

// MountOption configures one recognized mount(8)-level option. Construct
// values with the functions below rather than the struct literal.
type MountOption struct {
	name  string
	value string
}

func AllowOther() MountOption          { return MountOption{name: "allow_other"} }
func AllowRoot() MountOption           { return MountOption{name: "allow_root"} }
func DefaultPermissions() MountOption  { return MountOption{name: "default_permissions"} }
func NoDev() MountOption               { return MountOption{name: "nodev"} }
func NoSuid() MountOption              { return MountOption{name: "nosuid"} }
func NoExec() MountOption              { return MountOption{name: "noexec"} }
func NoAtime() MountOption             { return MountOption{name: "noatime"} }
func AutoUnmount() MountOption         { return MountOption{name: "auto_unmount"} }
func FSName(name string) MountOption   { return MountOption{name: "fsname", value: name} }
func Subtype(name string) MountOption  { return MountOption{name: "subtype", value: name} }

// DefaultMountOptions is the option set the Builder applies when none is
// given: AllowOther, DefaultPermissions, NoDev, NoAtime.
func DefaultMountOptions() []MountOption {
	return []MountOption{AllowOther(), DefaultPermissions(), NoDev(), NoAtime()}
}

// optionString renders options as the comma-joined argument fusermount's
// -o flag expects, de-duplicating by option name so a caller-supplied
// option never appears twice; last write for a given name wins.
func optionString(opts []MountOption) string {
	byName := make(map[string]MountOption, len(opts))
	order := make([]string, 0, len(opts))

	for _, o := range opts {
		if _, ok := byName[o.name]; !ok {
			order = append(order, o.name)
		}
		byName[o.name] = o
	}

	rendered := make([]string, 0, len(order))
	for _, name := range order {
		o := byName[name]
		if o.value != "" {
			rendered = append(rendered, fmt.Sprintf("%s=%s", o.name, o.value))
		} else {
			rendered = append(rendered, o.name)
		}
	}

	return strings.Join(rendered, ",")
}

// validateMountArgs checks the arguments a Builder is about to mount with:
// device path must exist (ENOENT) and be a character device (ENODEV),
// mount path must be supplied (EINVAL), outbound channel must be supplied
// (EINVAL).
func validateMountArgs(devicePath, mountPath string, haveOutbound bool) error {
	if !haveOutbound {
		return fmt.Errorf("%w: outbound request channel is required", EINVAL)
	}

	if mountPath == "" {
		return fmt.Errorf("%w: mount path is required", EINVAL)
	}

	if devicePath == "" {
		devicePath = "/dev/fuse"
	}

	info, err := os.Stat(devicePath)
	if err != nil {
		return fmt.Errorf("%w: stat %s: %v", ENOENT, devicePath, err)
	}
	if info.Mode()&os.ModeCharDevice == 0 {
		return fmt.Errorf("%w: %s is not a character device", ENODEV, devicePath)
	}

	return nil
}

// Mount is an opaque handle on an active mount. Closing it triggers
// unmount; only the first Close does so.
type Mount struct {
	dir    string
	device *os.File
	closed bool
}

// Dir returns the path this Mount was mounted at.
func (m *Mount) Dir() string { return m.dir }

// Close unmounts and releases m. Safe to call more than once; only the
// first call does anything.
func (m *Mount) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	return unmount(m.dir)
}
