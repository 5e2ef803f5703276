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

const mebi = 1 << 20

// BufferSize is the size of the single pre-allocated frame buffer used for
// both reading one request and writing one reply.
const BufferSize = 16 * mebi

// MaxWriteSize leaves headroom under BufferSize for the fixed WriteIn
// prefix and the request header. The request parser does not check WRITE
// sizes against it; a WRITE whose size overruns the frame that was read
// fails to parse.
const MaxWriteSize = BufferSize - 4096

// MaxReadSize is the largest payload an OutMessage can carry after its
// header.
const MaxReadSize = BufferSize - OutMessageInitialSize
