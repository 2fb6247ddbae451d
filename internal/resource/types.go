package resource

import "fmt"

// TypeID 为资源类型标识，是一个不透明的 32 位值。
// 同一个二进制格式对应唯一的 TypeID。
type TypeID uint32

func (t TypeID) String() string {
	if name, ok := typeAliases[t]; ok {
		return fmt.Sprintf("%s(0x%04x)", name, uint32(t))
	}
	return fmt.Sprintf("0x%04x", uint32(t))
}

// NameHash 为资源名称的 64 位哈希值。
type NameHash uint64

// InstanceID 为资源实例的 64 位标识。
type InstanceID uint64

// 内置编解码器覆盖的资源类型。
const (
	TypeClipHeader TypeID = 0x2011
	TypeAttrMap    TypeID = 0x2020
	TypeObjectKey  TypeID = 0x2021
	TypeNGMP       TypeID = 0x2022
	TypePreset     TypeID = 0x2023
)

// typeAliases 记录常见资源类型的助记名，用于日志与按别名查找。
var typeAliases = map[TypeID]string{
	TypeClipHeader: "clip_header",
	TypeAttrMap:    "attr_map",
	TypeObjectKey:  "object_key",
	TypeNGMP:       "ngmp",
	TypePreset:     "preset",
}

// aliasIndex 为 typeAliases 的反向索引。
var aliasIndex = func() map[string]TypeID {
	idx := make(map[string]TypeID, len(typeAliases))
	for id, name := range typeAliases {
		idx[name] = id
	}
	return idx
}()

// TypeIDByAlias 按助记名查找资源类型。
func TypeIDByAlias(alias string) (TypeID, bool) {
	id, ok := aliasIndex[alias]
	return id, ok
}

// Alias 返回资源类型的助记名，无记录时返回空串。
func Alias(id TypeID) string {
	return typeAliases[id]
}
