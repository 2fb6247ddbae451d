// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package funcutil

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	mathrand "math/rand"
)

// CheckCtxValid 判断 context 是否仍然有效（未取消且未超时）。
func CheckCtxValid(ctx context.Context) bool {
	return ctx.Err() != context.DeadlineExceeded && ctx.Err() != context.Canceled
}

// RandomNonZeroUint64 生成一个非零的 64 位随机数。
// 优先使用 crypto/rand，失败时退化到 math/rand，保证永不返回 0。
func RandomNonZeroUint64() uint64 {
	var buf [8]byte
	for {
		var v uint64
		if _, err := rand.Read(buf[:]); err == nil {
			v = binary.LittleEndian.Uint64(buf[:])
		} else {
			v = mathrand.Uint64()
		}
		if v != 0 {
			return v
		}
	}
}
