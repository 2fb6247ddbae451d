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

package conc

import (
	"fmt"
	"sync"

	ants "github.com/panjf2000/ants/v2"

	"github.com/lk2023060901/asset-garden-go/pkg/util/hardware"
	"github.com/lk2023060901/asset-garden-go/pkg/util/merr"
)

// Pool 是 ants 协程池的泛型封装。
// 相比原始协程池，它可以返回带结果的 Future，并保证 panic 转换为错误返回。
type Pool[T any] struct {
	inner *ants.Pool
	opt   *poolOption
}

// NewPool 创建容量为 cap 的协程池。
func NewPool[T any](cap int, opts ...PoolOption) *Pool[T] {
	opt := defaultPoolOption()
	for _, o := range opts {
		o(opt)
	}

	pool, err := ants.NewPool(cap, opt.antsOptions()...)
	if err != nil {
		panic(err)
	}

	return &Pool[T]{
		inner: pool,
		opt:   opt,
	}
}

// NewDefaultPool 创建一个容量为 CPU 核数、预分配 worker 的协程池。
func NewDefaultPool[T any]() *Pool[T] {
	return NewPool[T](hardware.GetCPUNum(), WithPreAlloc(true))
}

// Submit 向协程池提交一个任务并返回 Future。
// 当协程池为 nonBlocking 且已满时，返回的 Future 直接携带错误。
func (pool *Pool[T]) Submit(method func() (T, error)) *Future[T] {
	future := newFuture[T]()
	err := pool.inner.Submit(func() {
		defer close(future.ch)
		defer func() {
			if x := recover(); x != nil {
				future.err = fmt.Errorf("panicked with error: %v", x)
				// throw out again for metrics
				panic(x)
			}
		}()

		if pool.opt.preHandler != nil {
			pool.opt.preHandler()
		}
		res, err := method()
		if err != nil {
			future.err = err
		} else {
			future.value = res
		}
	})
	if err != nil {
		future.err = err
		close(future.ch)
	}

	return future
}

// Cap 返回协程池容量。
func (pool *Pool[T]) Cap() int {
	return pool.inner.Cap()
}

// Running 返回当前正在运行的 worker 数量。
func (pool *Pool[T]) Running() int {
	return pool.inner.Running()
}

// Free 返回当前空闲的 worker 数量。
func (pool *Pool[T]) Free() int {
	return pool.inner.Free()
}

// Release 关闭协程池并回收 worker。
func (pool *Pool[T]) Release() {
	pool.inner.Release()
}

func (pool *Pool[T]) Resize(size int) error {
	if pool.opt.preAlloc {
		return merr.WrapErrParameterInvalid("pre-allocated pool", "resize")
	}
	if size <= 0 {
		return merr.WrapErrParameterInvalid("positive size", fmt.Sprintf("%d", size))
	}
	pool.inner.Tune(size)
	return nil
}

// AwaitAll 阻塞等待所有 Future 完成，返回合并后的错误。
func AwaitAll[T future](futures ...T) error {
	var wg sync.WaitGroup
	errs := make([]error, len(futures))
	for i, future := range futures {
		wg.Add(1)
		go func(idx int, f T) {
			defer wg.Done()
			<-f.Inner()
			errs[idx] = f.Err()
		}(i, future)
	}
	wg.Wait()
	return merr.Combine(errs...)
}
