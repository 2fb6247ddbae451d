package codecs

import (
	"context"
	"fmt"
	"time"

	"github.com/lk2023060901/asset-garden-go/internal/resource"
	"github.com/lk2023060901/asset-garden-go/internal/resource/binary"
	"github.com/lk2023060901/asset-garden-go/internal/resource/codec"
	"github.com/lk2023060901/asset-garden-go/pkg/metrics"
	"github.com/lk2023060901/asset-garden-go/pkg/util/funcutil"
	"github.com/lk2023060901/asset-garden-go/pkg/util/merr"
)

// 身份记录格式：{version:u8, key:u64, type:u32, dataLen:i32, data}。
// 头部固定 17 字节，data 为不透明尾部字节。
const objectKeyVersion = 1

const (
	fieldObjectKey  = "key"
	fieldObjectType = "objectType"
	fieldObjectData = "data"
)

// ObjectKeyCodec 编解码身份记录资源。
type ObjectKeyCodec struct{}

func NewObjectKeyCodec() *ObjectKeyCodec {
	return &ObjectKeyCodec{}
}

func newObjectKeyInstance(version uint32) *codec.Instance {
	inst := codec.NewInstance(resource.TypeObjectKey, version)
	inst.DeclareField(fieldObjectKey, uint64(0))
	inst.DeclareField(fieldObjectType, uint32(0))
	inst.DeclareField(fieldObjectData, []byte{})
	return inst
}

func (c *ObjectKeyCodec) Parse(ctx context.Context, payload []byte) (inst *codec.Instance, err error) {
	defer func(start time.Time) { observeParse(resource.TypeObjectKey, start, inst, err) }(time.Now())

	if err = ctx.Err(); err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return newObjectKeyInstance(objectKeyVersion), nil
	}

	r := binary.NewReader(payload)

	// 身份记录没有可选扩展段，全部字段都属于强制头部，失败即致命。
	version, err := r.ReadU8("header")
	if err != nil {
		return nil, err
	}
	if uint32(version) > objectKeyVersion {
		return nil, merr.WrapErrFormatVersionUnsupported(resource.TypeObjectKey, uint32(version), objectKeyVersion)
	}
	key, err := r.ReadU64("header")
	if err != nil {
		return nil, err
	}
	objectType, err := r.ReadU32("header")
	if err != nil {
		return nil, err
	}
	dataLen, err := r.ReadI32("header")
	if err != nil {
		return nil, err
	}
	if dataLen < 0 {
		return nil, merr.WrapErrFormatInvalid(resource.TypeObjectKey, "negative data length")
	}
	data, err := r.ReadBytes("data", int(dataLen))
	if err != nil {
		return nil, err
	}

	inst = newObjectKeyInstance(uint32(version))
	inst.DeclareField(fieldObjectKey, key)
	inst.DeclareField(fieldObjectType, objectType)
	inst.DeclareField(fieldObjectData, data)

	// data 之后的残留字节不属于任何字段，按降级处理。
	if !r.EOF() {
		metrics.ParseDegradedSections.WithLabelValues(resource.TypeObjectKey.String()).Inc()
		inst.Degrade(codec.SectionTrailing, merr.WrapErrFormatInvalid(resource.TypeObjectKey,
			fmt.Sprintf("%d trailing bytes after data", r.Remaining())))
	}
	inst.MarkParsed()
	return inst, nil
}

func (c *ObjectKeyCodec) Serialize(ctx context.Context, inst *codec.Instance) (out []byte, err error) {
	defer func(start time.Time) { observeSerialize(resource.TypeObjectKey, start, err) }(time.Now())

	if err = ctx.Err(); err != nil {
		return nil, err
	}
	view, err := ViewObjectKey(inst)
	if err != nil {
		return nil, err
	}

	w := binary.NewWriter()
	w.WriteU8(uint8(inst.Version()))
	w.WriteU64(view.Key())
	w.WriteU32(view.ObjectType())
	data := view.Data()
	w.WriteI32(int32(len(data)))
	w.WriteBytes(data)

	inst.MarkSerialized()
	return w.Finish(), nil
}

// ObjectKey 是身份记录实例的类型化视图。
type ObjectKey struct {
	inst *codec.Instance
}

// ViewObjectKey 将实例包装为身份记录视图。
func ViewObjectKey(inst *codec.Instance) (*ObjectKey, error) {
	if inst == nil {
		return nil, merr.WrapErrParameterMissing("instance")
	}
	if inst.Disposed() {
		return nil, merr.WrapErrInstanceDisposed(inst.TypeID())
	}
	if inst.TypeID() != resource.TypeObjectKey {
		return nil, merr.WrapErrParameterInvalid(resource.TypeObjectKey, inst.TypeID())
	}
	return &ObjectKey{inst: inst}, nil
}

func (o *ObjectKey) Key() uint64 {
	v, _ := codec.FieldAs[uint64](o.inst, fieldObjectKey)
	return v
}

func (o *ObjectKey) ObjectType() uint32 {
	v, _ := codec.FieldAs[uint32](o.inst, fieldObjectType)
	return v
}

func (o *ObjectKey) Data() []byte {
	v, _ := codec.FieldAs[[]byte](o.inst, fieldObjectData)
	return v
}

// IsValid 当且仅当 key 与 type 均非零时成立。
func (o *ObjectKey) IsValid() bool {
	return o.Key() != 0 && o.ObjectType() != 0
}

// GenerateKey 为给定对象类型生成新的随机 key，保证非零。
func (o *ObjectKey) GenerateKey(objectType uint32) error {
	if objectType == 0 {
		return merr.WrapErrObjectKeyInvalid(0, objectType, "generate key")
	}
	if err := o.inst.Set(fieldObjectKey, funcutil.RandomNonZeroUint64()); err != nil {
		return err
	}
	return o.inst.Set(fieldObjectType, objectType)
}
