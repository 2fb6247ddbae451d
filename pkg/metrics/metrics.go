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

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	zeusNamespace = "zeus"

	codecSubsystem    = "codec"
	registrySubsystem = "registry"
	repackSubsystem   = "repack"

	// TypeLabelName 为资源类型标签。
	TypeLabelName = "resource_type"
	// StatusLabelName 为操作结果标签。
	StatusLabelName = "status"

	SuccessLabel  = "success"
	FailLabel     = "fail"
	DegradedLabel = "degraded"
	CancelLabel   = "cancel"
)

// 时延桶覆盖从微秒级小资源到数百毫秒级大资源的解析耗时，单位毫秒。
var buckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000}

var (
	ParseTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: zeusNamespace,
			Subsystem: codecSubsystem,
			Name:      "parse_total",
			Help:      "按资源类型和结果统计的解析次数",
		}, []string{TypeLabelName, StatusLabelName})

	ParseLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: zeusNamespace,
			Subsystem: codecSubsystem,
			Name:      "parse_latency_milliseconds",
			Help:      "解析时延（毫秒）",
			Buckets:   buckets,
		}, []string{TypeLabelName})

	SerializeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: zeusNamespace,
			Subsystem: codecSubsystem,
			Name:      "serialize_total",
			Help:      "按资源类型和结果统计的序列化次数",
		}, []string{TypeLabelName, StatusLabelName})

	SerializeLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: zeusNamespace,
			Subsystem: codecSubsystem,
			Name:      "serialize_latency_milliseconds",
			Help:      "序列化时延（毫秒）",
			Buckets:   buckets,
		}, []string{TypeLabelName})

	ParseDegradedSections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: zeusNamespace,
			Subsystem: codecSubsystem,
			Name:      "parse_degraded_sections_total",
			Help:      "解析过程中被放弃的可选扩展段数量",
		}, []string{TypeLabelName})

	RegistryResolveTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: zeusNamespace,
			Subsystem: registrySubsystem,
			Name:      "resolve_total",
			Help:      "按命中/未命中统计的编解码器查找次数",
		}, []string{StatusLabelName})

	RegistrySize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: zeusNamespace,
			Subsystem: registrySubsystem,
			Name:      "size",
			Help:      "当前已注册的编解码器数量",
		})

	RepackEntryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: zeusNamespace,
			Subsystem: repackSubsystem,
			Name:      "entry_total",
			Help:      "按结果统计的重打包条目数量",
		}, []string{StatusLabelName})

	RepackMismatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: zeusNamespace,
			Subsystem: repackSubsystem,
			Name:      "mismatch_total",
			Help:      "重序列化结果与源字节不一致的条目数量",
		}, []string{TypeLabelName})
)

var registerOnce sync.Once

// Register 将编解码相关指标注册到 Prometheus Registry 中。
func Register(registry *prometheus.Registry) {
	registerOnce.Do(func() {
		registry.MustRegister(ParseTotal)
		registry.MustRegister(ParseLatency)
		registry.MustRegister(SerializeTotal)
		registry.MustRegister(SerializeLatency)
		registry.MustRegister(ParseDegradedSections)
		registry.MustRegister(RegistryResolveTotal)
		registry.MustRegister(RegistrySize)
		registry.MustRegister(RepackEntryTotal)
		registry.MustRegister(RepackMismatchTotal)
	})
}
