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

// Package fuse implements the session-level plumbing for a user-space FUSE
// filesystem: mounting, reading and parsing kernel requests, and
// serializing application replies back onto the wire. It does not
// implement filesystem semantics; applications consume a channel of
// parsed Request values and produce Reply values of their own.
//
// The primary elements of interest are:
//
//  *  Builder, which mounts a filesystem and spawns the session loop.
//
//  *  Session, the handle returned by Builder.Build: Requests() yields
//     parsed kernel requests, and Cancel()/IsCancelled() control shutdown.
//
//  *  Request and Reply, the parsed kernel message and the application's
//     response to it; each Request carries a ReplyTo capability used to
//     send back exactly one Reply.
//
// This package targets Linux; it talks to /dev/fuse through the
// fusermount(1) helper.
package fuse
