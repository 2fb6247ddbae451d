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

//go:build linux

package hardware

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/containerd/cgroups/v3"
	"github.com/containerd/cgroups/v3/cgroup1"
	"github.com/containerd/cgroups/v3/cgroup2"
)

// inContainerImpl 通过 /proc/1/cgroup 判断是否运行在容器内。
func inContainerImpl() (bool, error) {
	data, err := os.ReadFile("/proc/1/cgroup")
	if err != nil {
		return false, err
	}
	s := string(data)
	return strings.Contains(s, "docker") ||
		strings.Contains(s, "kubepods") ||
		strings.Contains(s, "containerd"), nil
}

// getContainerMemLimit 返回 cgroup 的内存上限（字节），0 表示无限制。
func getContainerMemLimit() (uint64, error) {
	if cgroups.Mode() == cgroups.Unified {
		m, err := cgroup2.Load("/")
		if err != nil {
			return 0, errors.Wrap(err, "failed to load cgroup v2")
		}
		stats, err := m.Stat()
		if err != nil || stats.GetMemory() == nil {
			return 0, errors.Wrap(err, "failed to get cgroup v2 memory stat")
		}
		return stats.GetMemory().GetUsageLimit(), nil
	}

	control, err := cgroup1.Load(cgroup1.StaticPath("/"))
	if err != nil {
		return 0, errors.Wrap(err, "failed to load cgroup v1")
	}
	stats, err := control.Stat(cgroup1.IgnoreNotExist)
	if err != nil || stats.GetMemory() == nil || stats.GetMemory().GetUsage() == nil {
		return 0, errors.Wrap(err, "failed to get cgroup v1 memory stat")
	}
	return stats.GetMemory().GetUsage().GetLimit(), nil
}

// getContainerMemUsed 返回 cgroup 统计的已使用内存（字节）。
func getContainerMemUsed() (uint64, error) {
	if cgroups.Mode() == cgroups.Unified {
		m, err := cgroup2.Load("/")
		if err != nil {
			return 0, errors.Wrap(err, "failed to load cgroup v2")
		}
		stats, err := m.Stat()
		if err != nil || stats.GetMemory() == nil {
			return 0, errors.Wrap(err, "failed to get cgroup v2 memory stat")
		}
		// 与 cgroup v1 的 usage 口径对齐，扣除 inactive file cache。
		used := stats.GetMemory().GetUsage()
		inactive := stats.GetMemory().GetInactiveFile()
		if used < inactive {
			return 0, errors.Newf("negative memory usage: usage %d, inactive file %d", used, inactive)
		}
		return used - inactive, nil
	}

	control, err := cgroup1.Load(cgroup1.StaticPath("/"))
	if err != nil {
		return 0, errors.Wrap(err, "failed to load cgroup v1")
	}
	stats, err := control.Stat(cgroup1.IgnoreNotExist)
	if err != nil || stats.GetMemory() == nil || stats.GetMemory().GetUsage() == nil {
		return 0, errors.Wrap(err, "failed to get cgroup v1 memory stat")
	}
	return stats.GetMemory().GetUsage().GetUsage() - stats.GetMemory().GetTotalInactiveFile(), nil
}
