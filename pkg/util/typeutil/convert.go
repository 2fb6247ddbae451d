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

package typeutil

import (
	"math"

	"golang.org/x/exp/constraints"
)

// IsIntegral 判断浮点值是否恰好表示一个整数且落在 int64 可表示范围内。
// 属性表做 float→int 窄化转换前必须先通过该检查。
func IsIntegral(f float64) bool {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return false
	}
	if f != math.Trunc(f) {
		return false
	}
	return f >= math.MinInt64 && f < math.MaxInt64
}

// Clamp 将 v 限制到 [lo, hi] 区间内。
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SafeIntToFloat 判断 int64 值转为 float64 是否无精度损失。
// float64 的有效尾数为 53 位，超出部分的整数无法精确表示。
func SafeIntToFloat(i int64) bool {
	const maxExact = int64(1) << 53
	return i >= -maxExact && i <= maxExact
}
