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
	"os"
	"os/exec"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// findFusermount locates fusermount3 (modern distros) or fusermount (older
// ones), in that order, falling back to PATH lookup for either name.
func findFusermount() (string, error) {
	for _, name := range []string{"fusermount3", "fusermount"} {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: fusermount3 or fusermount not found on PATH", ENODEV)
}

// parseFuseFd extracts the integer file descriptor from a mountpoint of
// the form /dev/fd/N, as used for externally-managed mounts (e.g. a
// supervising process that already opened /dev/fuse and handed the
// container a /dev/fd/N path instead of a real directory).
func parseFuseFd(path string) (int, error) {
	const prefix = "/dev/fd/"
	if !strings.HasPrefix(path, prefix) {
		return -1, fmt.Errorf("not a /dev/fd path: %s", path)
	}

	n, err := strconv.Atoi(strings.TrimPrefix(path, prefix))
	if err != nil {
		return -1, fmt.Errorf("parse fd from %s: %w", path, err)
	}
	if n < 0 {
		return -1, fmt.Errorf("negative fd in %s", path)
	}

	return n, nil
}

// mount invokes the privileged fusermount helper to obtain a FUSE device
// descriptor for dir ("implementations typically invoke
// a privileged mount helper over a UNIX-domain socket to receive the
// device descriptor." fusermount receives the socket as fd 3
// (_FUSE_COMMFD) and sends the opened /dev/fuse descriptor back over it
// via SCM_RIGHTS.
func mount(dir string, opts []MountOption) (*os.File, *Mount, error) {
	if fd, err := parseFuseFd(dir); err == nil {
		f := os.NewFile(uintptr(fd), "/dev/fuse")
		return f, &Mount{dir: dir, device: f}, nil
	}

	helper, err := findFusermount()
	if err != nil {
		return nil, nil, err
	}

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("socketpair: %w", err)
	}
	local, remote := fds[0], fds[1]

	localFile := os.NewFile(uintptr(local), "fuse-commfd-local")
	remoteFile := os.NewFile(uintptr(remote), "fuse-commfd-remote")
	defer remoteFile.Close()

	optStr := optionString(opts)
	args := []string{"--"}
	if optStr != "" {
		args = []string{"-o", optStr, "--"}
	}
	args = append(args, dir)

	cmd := exec.Command(helper, args...)
	cmd.ExtraFiles = []*os.File{remoteFile}
	cmd.Env = append(os.Environ(), "_FUSE_COMMFD=3")

	output, err := cmd.CombinedOutput()
	if err != nil {
		localFile.Close()
		if len(output) > 0 {
			return nil, nil, fmt.Errorf("%s: %s", err, strings.TrimRight(string(output), "\n"))
		}
		return nil, nil, err
	}

	fd, err := receiveFuseFD(local)
	localFile.Close()
	if err != nil {
		return nil, nil, err
	}

	f := os.NewFile(uintptr(fd), "/dev/fuse")
	return f, &Mount{dir: dir, device: f}, nil
}

// receiveFuseFD reads the single file descriptor fusermount sends back
// over sock via SCM_RIGHTS.
func receiveFuseFD(sock int) (int, error) {
	buf := make([]byte, 4)
	oob := make([]byte, unix.CmsgSpace(4))

	n, oobn, _, _, err := unix.Recvmsg(sock, buf, oob, 0)
	if err != nil {
		return -1, fmt.Errorf("recvmsg: %w", err)
	}
	if n == 0 {
		return -1, fmt.Errorf("%w: fusermount closed without sending a descriptor", ENODEV)
	}

	messages, err := unix.ParseSocketControlMessage(oob[:oobn])
	if err != nil {
		return -1, fmt.Errorf("parse control message: %w", err)
	}
	if len(messages) == 0 {
		return -1, fmt.Errorf("%w: no control message received", ENODEV)
	}

	fds, err := unix.ParseUnixRights(&messages[0])
	if err != nil {
		return -1, fmt.Errorf("parse unix rights: %w", err)
	}
	if len(fds) == 0 {
		return -1, fmt.Errorf("%w: no descriptor in control message", ENODEV)
	}

	return fds[0], nil
}
