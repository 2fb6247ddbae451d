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

package hardware

import (
	"runtime"
	"sync"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"

	"github.com/lk2023060901/asset-garden-go/pkg/log"
)

var (
	icOnce sync.Once
	ic     bool
)

// inContainer 判断进程是否运行在容器内。
// 结果只计算一次，之后直接复用。
func inContainer() bool {
	icOnce.Do(func() {
		var err error
		ic, err = inContainerImpl()
		if err != nil {
			log.Warn("detect container environment failed", zap.Error(err))
		}
	})
	return ic
}

// GetCPUNum 返回当前可用的 CPU 核数。
func GetCPUNum() int {
	cur := runtime.GOMAXPROCS(0)
	if cur <= 0 {
		cur = runtime.NumCPU()
	}
	return cur
}

// GetCPUUsage 返回 CPU 使用率百分比。
func GetCPUUsage() float64 {
	percents, err := cpu.Percent(0, false)
	if err != nil {
		log.Warn("failed to get cpu usage", zap.Error(err))
		return 0
	}
	if len(percents) != 1 {
		log.Warn("something wrong in cpu.Percent, len(percents) must be equal to 1",
			zap.Int("len(percents)", len(percents)))
		return 0
	}
	return percents[0]
}

// GetMemoryCount 返回可用内存总量（字节）。
// 在容器内运行时取 cgroup 限制与宿主内存中的较小值。
func GetMemoryCount() uint64 {
	stats, err := mem.VirtualMemory()
	if err != nil {
		log.Warn("failed to get memory count", zap.Error(err))
		return 0
	}
	totalMem := stats.Total

	if !inContainer() {
		return totalMem
	}

	limit, err := getContainerMemLimit()
	if err != nil || limit == 0 {
		if err != nil {
			log.Warn("failed to get container memory limit", zap.Error(err))
		}
		return totalMem
	}
	if limit < totalMem {
		return limit
	}
	return totalMem
}

// GetUsedMemoryCount 返回已使用内存（字节）。
func GetUsedMemoryCount() uint64 {
	if inContainer() {
		used, err := getContainerMemUsed()
		if err != nil {
			log.Warn("failed to get container memory used", zap.Error(err))
			return 0
		}
		return used
	}

	stats, err := mem.VirtualMemory()
	if err != nil {
		log.Warn("failed to get memory usage count", zap.Error(err))
		return 0
	}
	return stats.Used
}
