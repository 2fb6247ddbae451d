package codec

import (
	"context"

	"github.com/lk2023060901/asset-garden-go/internal/resource"
)

// Codec 为单个二进制格式的解析/序列化对。
//
// Parse 只在强制头部失败时返回错误；可选扩展段的异常会被降级吸收进
// 实例的有效性标记与诊断信息中，调用方拿到的仍是可用实例。
// Serialize 按实例当前版本值逐字段产出字节，对降级实例不做任何修复，
// 被 Parse 接受的载荷必须能逐字节还原。
type Codec interface {
	// Parse 将一个完整的资源载荷解析为实例。
	Parse(ctx context.Context, payload []byte) (*Instance, error)
	// Serialize 将实例序列化为可重新写回归档的载荷。
	Serialize(ctx context.Context, inst *Instance) ([]byte, error)
}

// Descriptor 描述一次编解码器注册：声明的资源类型、优先级与实现。
// 注册后不可变。
type Descriptor struct {
	TypeIDs  []resource.TypeID
	Priority int
	Codec    Codec
}
