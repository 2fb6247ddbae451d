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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeySet(t *testing.T) {
	set := NewKeySet(1, 2, 3)
	assert.Equal(t, 3, set.Len())
	assert.True(t, set.Contain(1, 2))
	assert.False(t, set.Contain(1, 4))

	set.Remove(2)
	assert.False(t, set.Contain(2))

	clone := set.Clone()
	clone.Insert(100)
	assert.False(t, set.Contain(100))
	assert.True(t, clone.Contain(100))

	set.Clear()
	assert.Equal(t, 0, set.Len())
}

func TestSetOperations(t *testing.T) {
	a := NewSet("x", "y", "z")
	b := NewSet("y", "z", "w")

	assert.ElementsMatch(t, []string{"y", "z"}, a.Intersection(b).Collect())
	assert.ElementsMatch(t, []string{"x", "y", "z", "w"}, a.Union(b).Collect())
	assert.ElementsMatch(t, []string{"x"}, a.Complement(b).Collect())

	count := 0
	a.Range(func(string) bool {
		count++
		return count < 2
	})
	assert.Equal(t, 2, count)
}

func TestConcurrentSet(t *testing.T) {
	set := NewConcurrentSet[uint64]()

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(base uint64) {
			defer wg.Done()
			for i := uint64(0); i < 100; i++ {
				set.Upsert(base + i)
			}
		}(uint64(g) * 100)
	}
	wg.Wait()

	assert.Len(t, set.Collect(), 400)
	assert.True(t, set.Contain(0, 399))
	assert.False(t, set.Insert(0))
	assert.True(t, set.TryRemove(0))
	assert.False(t, set.TryRemove(0))
}

func TestIsIntegral(t *testing.T) {
	assert.True(t, IsIntegral(42))
	assert.True(t, IsIntegral(-3))
	assert.False(t, IsIntegral(3.5))
	assert.False(t, IsIntegral(0.1))

	assert.True(t, SafeIntToFloat(1<<52))
	assert.False(t, SafeIntToFloat(1<<60))

	assert.Equal(t, 5, Clamp(7, 1, 5))
	assert.Equal(t, 1, Clamp(-2, 1, 5))
	assert.Equal(t, 3, Clamp(3, 1, 5))
}
