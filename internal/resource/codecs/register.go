package codecs

import (
	"github.com/lk2023060901/asset-garden-go/internal/resource"
	"github.com/lk2023060901/asset-garden-go/internal/resource/codec"
	"github.com/lk2023060901/asset-garden-go/internal/resource/registry"
)

// RegisterBuiltin 以默认优先级注册全部内建编解码器，
// 返回的句柄顺序与注册顺序一致。
func RegisterBuiltin(reg *registry.Registry) ([]registry.Handle, error) {
	descs := []codec.Descriptor{
		{TypeIDs: []resource.TypeID{resource.TypeClipHeader}, Codec: NewClipCodec()},
		{TypeIDs: []resource.TypeID{resource.TypeAttrMap}, Codec: NewAttrMapCodec()},
		{TypeIDs: []resource.TypeID{resource.TypeObjectKey}, Codec: NewObjectKeyCodec()},
		{TypeIDs: []resource.TypeID{resource.TypeNGMP}, Codec: NewNGMPCodec()},
		{TypeIDs: []resource.TypeID{resource.TypePreset}, Codec: NewPresetCodec()},
	}

	handles := make([]registry.Handle, 0, len(descs))
	for _, desc := range descs {
		handle, err := reg.Register(desc)
		if err != nil {
			return nil, err
		}
		handles = append(handles, handle)
	}
	return handles, nil
}
