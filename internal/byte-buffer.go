// elassemble: a high-performance de novo genome assembler.
// Copyright (c) 2020 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/elassemble/blob/master/LICENSE.txt>.

package internal

import "sync"

// maxPooledBuffer is the capacity above which released buffers are
// not kept for reuse.
const maxPooledBuffer = 16 << 20

var bufPool = sync.Pool{New: func() interface{} {
	return new([]byte)
}}

// ReserveByteBuffer returns a byte slice of length 0 that may have
// spare capacity from an earlier use. Use ReleaseByteBuffer to return
// it to the pool.
func ReserveByteBuffer() []byte {
	return (*bufPool.Get().(*[]byte))[:0]
}

// ReleaseByteBuffer returns a slice obtained from ReserveByteBuffer to
// the pool. Buffers larger than maxPooledBuffer are dropped.
func ReleaseByteBuffer(buf []byte) {
	if cap(buf) > maxPooledBuffer {
		return
	}
	bufPool.Put(&buf)
}
