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

package log

import (
	"fmt"

	"go.uber.org/zap"
)

const (
	// FieldNameModule 为模块名字段。
	FieldNameModule = "module"
	// FieldNameResourceType 为资源类型字段。
	FieldNameResourceType = "resourceType"
	// FieldNameVersion 为资源格式版本字段。
	FieldNameVersion = "version"
	// FieldNameInstance 为资源实例字段。
	FieldNameInstance = "instance"
	// FieldNameNameHash 为名称哈希字段。
	FieldNameNameHash = "nameHash"
)

// FieldModule 返回模块名字段。
func FieldModule(module string) zap.Field {
	return zap.String(FieldNameModule, module)
}

// FieldResourceType 返回资源类型字段，以十六进制形式输出。
func FieldResourceType(typeID uint32) zap.Field {
	return zap.String(FieldNameResourceType, fmt.Sprintf("0x%04x", typeID))
}

// FieldVersion 返回资源格式版本字段。
func FieldVersion(version uint32) zap.Field {
	return zap.Uint32(FieldNameVersion, version)
}

// FieldInstance 返回资源实例字段。
func FieldInstance(instanceID uint64) zap.Field {
	return zap.Uint64(FieldNameInstance, instanceID)
}

// FieldHash 返回名称哈希字段，以十六进制形式输出。
func FieldHash(hash uint64) zap.Field {
	return zap.String(FieldNameNameHash, fmt.Sprintf("0x%016x", hash))
}
