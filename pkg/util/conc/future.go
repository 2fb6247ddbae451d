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

// future 是 Future 的只读视图接口，供 AwaitAll 使用。
type future interface {
	Inner() <-chan struct{}
	Err() error
}

// Future 表示一个异步任务的结果占位。
// ch 在任务完成时被关闭，之后 value/err 不再变化。
type Future[T any] struct {
	ch    chan struct{}
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{
		ch: make(chan struct{}),
	}
}

// Await 阻塞等待任务完成并返回结果与错误。
func (future *Future[T]) Await() (T, error) {
	<-future.ch
	return future.value, future.err
}

// Value 阻塞等待任务完成并返回结果，忽略错误。
func (future *Future[T]) Value() T {
	<-future.ch
	return future.value
}

// OK 判断任务是否成功完成。
func (future *Future[T]) OK() bool {
	<-future.ch
	return future.err == nil
}

// Err 阻塞等待任务完成并返回错误。
func (future *Future[T]) Err() error {
	<-future.ch
	return future.err
}

// Inner 返回任务完成时被关闭的 channel。
func (future *Future[T]) Inner() <-chan struct{} {
	return future.ch
}

// Go 在新的 goroutine 中执行任务并返回 Future。
func Go[T any](method func() (T, error)) *Future[T] {
	future := newFuture[T]()
	go func() {
		defer close(future.ch)
		res, err := method()
		if err != nil {
			future.err = err
		} else {
			future.value = res
		}
	}()
	return future
}
