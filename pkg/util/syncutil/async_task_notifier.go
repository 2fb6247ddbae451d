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

package syncutil

import "context"

// AsyncTaskNotifier 用于管理后台任务的取消与完成通知。
// 调用方通过 Cancel 请求任务停止，任务侧在退出前必须调用 Finish。
type AsyncTaskNotifier[T any] struct {
	ctx      context.Context
	cancel   context.CancelFunc
	finishCh chan struct{}
	result   T
}

func NewAsyncTaskNotifier[T any]() *AsyncTaskNotifier[T] {
	ctx, cancel := context.WithCancel(context.Background())
	return &AsyncTaskNotifier[T]{
		ctx:      ctx,
		cancel:   cancel,
		finishCh: make(chan struct{}),
	}
}

// Context 返回任务侧应当监听的 context。
func (n *AsyncTaskNotifier[T]) Context() context.Context {
	return n.ctx
}

// Cancel 请求后台任务停止，不阻塞等待任务退出。
func (n *AsyncTaskNotifier[T]) Cancel() {
	n.cancel()
}

// Finish 标记任务完成并记录结果。
// 只能调用一次，重复调用会 panic。
func (n *AsyncTaskNotifier[T]) Finish(result T) {
	n.result = result
	close(n.finishCh)
}

// FinishChan 返回任务完成时被关闭的 channel。
func (n *AsyncTaskNotifier[T]) FinishChan() <-chan struct{} {
	return n.finishCh
}

// BlockUntilFinish 阻塞直到任务调用 Finish。
func (n *AsyncTaskNotifier[T]) BlockUntilFinish() {
	<-n.finishCh
}

// BlockAndGetResult 阻塞直到任务完成并返回结果。
func (n *AsyncTaskNotifier[T]) BlockAndGetResult() T {
	<-n.finishCh
	return n.result
}
