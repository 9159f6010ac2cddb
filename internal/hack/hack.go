/*
 * Copyright 2025 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package hack

import "unsafe"

// Bytes returns the n bytes starting at p as a slice without copy.
// The slice aliases the pointed-to memory and must not outlive it.
func Bytes(p unsafe.Pointer, n int) []byte {
	return unsafe.Slice((*byte)(p), n)
}

// Memcpy copies n bytes from src to dst. The regions must not overlap.
func Memcpy(dst, src unsafe.Pointer, n int) {
	copy(Bytes(dst, n), Bytes(src, n))
}

// ByteSliceToString converts []byte to string without copy
func ByteSliceToString(b []byte) string {
	return *(*string)(unsafe.Pointer(&b))
}
