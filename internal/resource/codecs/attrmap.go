package codecs

import (
	"context"
	"fmt"
	"time"

	"github.com/lk2023060901/asset-garden-go/internal/resource"
	"github.com/lk2023060901/asset-garden-go/internal/resource/binary"
	"github.com/lk2023060901/asset-garden-go/internal/resource/codec"
	"github.com/lk2023060901/asset-garden-go/pkg/util/merr"
)

// 属性表格式：{version:u32, count:u32, (key:u32, strLen:i32, utf8-bytes)×count}。
// 值在线上一律是长度前缀字符串，内存中的类型标签不落盘。
const attrMapVersion = 1

// AttrMapCodec 编解码 key→value 属性表资源。
type AttrMapCodec struct{}

func NewAttrMapCodec() *AttrMapCodec {
	return &AttrMapCodec{}
}

type attrEntry struct {
	key uint32
	val Value
}

type attrMapBody struct {
	entries []attrEntry
	index   map[uint32]int
}

func newAttrMapInstance(version uint32) *codec.Instance {
	inst := codec.NewInstance(resource.TypeAttrMap, version)
	inst.SetBody(&attrMapBody{index: make(map[uint32]int)})
	return inst
}

func (c *AttrMapCodec) Parse(ctx context.Context, payload []byte) (inst *codec.Instance, err error) {
	defer func(start time.Time) { observeParse(resource.TypeAttrMap, start, inst, err) }(time.Now())

	if err = ctx.Err(); err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return newAttrMapInstance(attrMapVersion), nil
	}

	r := binary.NewReader(payload)

	version, err := r.ReadU32("header")
	if err != nil {
		return nil, err
	}
	if version > attrMapVersion {
		return nil, merr.WrapErrFormatVersionUnsupported(resource.TypeAttrMap, version, attrMapVersion)
	}

	inst = newAttrMapInstance(version)
	rules := []codec.Rule{{
		Name: "entries",
		Read: func(ctx context.Context, r *binary.Reader, inst *codec.Instance) error {
			// 每条记录至少 8 字节（key + 长度前缀）。
			count, err := r.ReadCount("entries", codec.DefaultSectionCap, 8)
			if err != nil {
				return err
			}
			body := &attrMapBody{
				entries: make([]attrEntry, 0, count),
				index:   make(map[uint32]int, count),
			}
			for idx := 0; idx < count; idx++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				key, err := r.ReadU32("entries")
				if err != nil {
					return err
				}
				raw, err := r.ReadString("entries")
				if err != nil {
					return err
				}
				body.entries = append(body.entries, attrEntry{key: key, val: StringValue(raw)})
				body.index[key] = len(body.entries) - 1
			}
			inst.SetBody(body)
			return nil
		},
	}}
	if err := codec.ReadSections(ctx, r, inst, rules); err != nil {
		return nil, err
	}
	inst.MarkParsed()
	return inst, nil
}

func (c *AttrMapCodec) Serialize(ctx context.Context, inst *codec.Instance) (out []byte, err error) {
	defer func(start time.Time) { observeSerialize(resource.TypeAttrMap, start, err) }(time.Now())

	if err = ctx.Err(); err != nil {
		return nil, err
	}
	view, err := ViewAttrMap(inst)
	if err != nil {
		return nil, err
	}
	body := view.body()

	w := binary.NewWriter()
	w.WriteU32(inst.Version())
	w.WriteU32(uint32(len(body.entries)))
	for _, e := range body.entries {
		if err := ctx.Err(); err != nil {
			w.Discard()
			return nil, err
		}
		w.WriteU32(e.key)
		raw := e.val.encode()
		w.WriteI32(int32(len(raw)))
		w.WriteBytes(raw)
	}

	inst.MarkSerialized()
	return w.Finish(), nil
}

// AttrMap 是属性表实例的类型化视图。
// 实例为单属主对象，视图不做并发保护。
type AttrMap struct {
	inst *codec.Instance
}

// ViewAttrMap 将实例包装为属性表视图。
func ViewAttrMap(inst *codec.Instance) (*AttrMap, error) {
	if inst == nil {
		return nil, merr.WrapErrParameterMissing("instance")
	}
	if inst.Disposed() {
		return nil, merr.WrapErrInstanceDisposed(inst.TypeID())
	}
	if inst.TypeID() != resource.TypeAttrMap {
		return nil, merr.WrapErrParameterInvalid(resource.TypeAttrMap, inst.TypeID())
	}
	if _, ok := inst.Body().(*attrMapBody); !ok {
		return nil, merr.WrapErrParameterInvalid("attr map body", fmt.Sprintf("%T", inst.Body()))
	}
	return &AttrMap{inst: inst}, nil
}

func (m *AttrMap) body() *attrMapBody {
	return m.inst.Body().(*attrMapBody)
}

// Len 返回条目数量。
func (m *AttrMap) Len() int {
	return len(m.body().entries)
}

// LoadFactor 返回已填充条目数与底层容量之比，供调用方预估扩容。
func (m *AttrMap) LoadFactor() float64 {
	body := m.body()
	if cap(body.entries) == 0 {
		return 0
	}
	return float64(len(body.entries)) / float64(cap(body.entries))
}

// ContainsKey 判断 key 是否存在。
func (m *AttrMap) ContainsKey(key uint32) bool {
	_, ok := m.body().index[key]
	return ok
}

// GetValue 返回 key 对应的原始值。
func (m *AttrMap) GetValue(key uint32) (Value, bool) {
	body := m.body()
	idx, ok := body.index[key]
	if !ok {
		return Value{}, false
	}
	return body.entries[idx].val, true
}

// GetString 以字符串读取 key 对应的值，未命中或不可转换时返回 false。
func (m *AttrMap) GetString(key uint32) (string, bool) {
	v, ok := m.GetValue(key)
	if !ok {
		return "", false
	}
	return v.AsString()
}

// GetInt 以 int64 读取 key 对应的值，未命中或不可转换时返回 false。
func (m *AttrMap) GetInt(key uint32) (int64, bool) {
	v, ok := m.GetValue(key)
	if !ok {
		return 0, false
	}
	return v.AsInt()
}

// GetFloat 以 float64 读取 key 对应的值，未命中或不可转换时返回 false。
func (m *AttrMap) GetFloat(key uint32) (float64, bool) {
	v, ok := m.GetValue(key)
	if !ok {
		return 0, false
	}
	return v.AsFloat()
}

// GetBool 以 bool 读取 key 对应的值，未命中或不可转换时返回 false。
func (m *AttrMap) GetBool(key uint32) (bool, bool) {
	v, ok := m.GetValue(key)
	if !ok {
		return false, false
	}
	return v.AsBool()
}

// GetBytes 以字节序列读取 key 对应的值，未命中或不可转换时返回 false。
func (m *AttrMap) GetBytes(key uint32) ([]byte, bool) {
	v, ok := m.GetValue(key)
	if !ok {
		return nil, false
	}
	return v.AsBytes()
}

// SetValue 写入或覆盖 key 对应的值。
func (m *AttrMap) SetValue(key uint32, v Value) error {
	body := m.body()
	if idx, ok := body.index[key]; ok {
		body.entries[idx].val = v
	} else {
		body.entries = append(body.entries, attrEntry{key: key, val: v})
		body.index[key] = len(body.entries) - 1
	}
	return m.inst.MarkMutated(fmt.Sprintf("entry:%d", key), v)
}

// Add 插入一个新 key，key 已存在时拒绝且不产生任何变更。
func (m *AttrMap) Add(key uint32, v Value) error {
	if m.ContainsKey(key) {
		return merr.WrapErrKeyDuplicate(key)
	}
	return m.SetValue(key, v)
}

// Remove 删除 key 及其值，返回 key 是否存在。
func (m *AttrMap) Remove(key uint32) (bool, error) {
	body := m.body()
	idx, ok := body.index[key]
	if !ok {
		return false, nil
	}
	body.entries = append(body.entries[:idx], body.entries[idx+1:]...)
	delete(body.index, key)
	for i := idx; i < len(body.entries); i++ {
		body.index[body.entries[i].key] = i
	}
	return true, m.inst.MarkMutated(fmt.Sprintf("entry:%d", key), nil)
}

// Keys 按持久化顺序返回所有 key。
func (m *AttrMap) Keys() []uint32 {
	body := m.body()
	keys := make([]uint32, 0, len(body.entries))
	for _, e := range body.entries {
		keys = append(keys, e.key)
	}
	return keys
}
