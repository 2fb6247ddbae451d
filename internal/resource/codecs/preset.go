package codecs

import (
	"context"
	"fmt"
	"time"

	"github.com/lk2023060901/asset-garden-go/internal/resource"
	"github.com/lk2023060901/asset-garden-go/internal/resource/binary"
	"github.com/lk2023060901/asset-garden-go/internal/resource/codec"
	"github.com/lk2023060901/asset-garden-go/pkg/util/merr"
	"github.com/lk2023060901/asset-garden-go/pkg/util/typeutil"
)

// 预设格式：{version:u32, count:u32, node×count}，
// node = {name:str, parent:str（空串表示无父节点）, attrCount:u32,
// (key:u32, strLen:i32, utf8-bytes)×attrCount}。
const presetVersion = 1

// PresetCodec 编解码可继承预设树资源。
type PresetCodec struct{}

func NewPresetCodec() *PresetCodec {
	return &PresetCodec{}
}

type presetNode struct {
	name    string
	parent  string
	entries []attrEntry
	index   map[uint32]int
}

type presetBody struct {
	order []string
	nodes map[string]*presetNode
}

func newPresetInstance(version uint32) *codec.Instance {
	inst := codec.NewInstance(resource.TypePreset, version)
	inst.SetBody(&presetBody{nodes: make(map[string]*presetNode)})
	return inst
}

func (c *PresetCodec) Parse(ctx context.Context, payload []byte) (inst *codec.Instance, err error) {
	defer func(start time.Time) { observeParse(resource.TypePreset, start, inst, err) }(time.Now())

	if err = ctx.Err(); err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return newPresetInstance(presetVersion), nil
	}

	r := binary.NewReader(payload)

	version, err := r.ReadU32("header")
	if err != nil {
		return nil, err
	}
	if version > presetVersion {
		return nil, merr.WrapErrFormatVersionUnsupported(resource.TypePreset, version, presetVersion)
	}

	inst = newPresetInstance(version)
	rules := []codec.Rule{{
		Name: "nodes",
		Read: func(ctx context.Context, r *binary.Reader, inst *codec.Instance) error {
			// 每个节点至少包含两个字符串长度前缀和一个条目数。
			count, err := r.ReadCount("nodes", codec.DefaultSectionCap, 12)
			if err != nil {
				return err
			}
			body := &presetBody{
				order: make([]string, 0, count),
				nodes: make(map[string]*presetNode, count),
			}
			for idx := 0; idx < count; idx++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				node, err := readPresetNode(ctx, r)
				if err != nil {
					return err
				}
				if _, ok := body.nodes[node.name]; ok {
					return merr.WrapErrKeyDuplicate(node.name, "preset node")
				}
				body.order = append(body.order, node.name)
				body.nodes[node.name] = node
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

func readPresetNode(ctx context.Context, r *binary.Reader) (*presetNode, error) {
	name, err := r.ReadString("nodes")
	if err != nil {
		return nil, err
	}
	parent, err := r.ReadString("nodes")
	if err != nil {
		return nil, err
	}
	attrCount, err := r.ReadCount("nodes", codec.DefaultSectionCap, 8)
	if err != nil {
		return nil, err
	}
	node := &presetNode{
		name:    name,
		parent:  parent,
		entries: make([]attrEntry, 0, attrCount),
		index:   make(map[uint32]int, attrCount),
	}
	for i := 0; i < attrCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		key, err := r.ReadU32("nodes")
		if err != nil {
			return nil, err
		}
		raw, err := r.ReadString("nodes")
		if err != nil {
			return nil, err
		}
		node.entries = append(node.entries, attrEntry{key: key, val: StringValue(raw)})
		node.index[key] = len(node.entries) - 1
	}
	return node, nil
}

func (c *PresetCodec) Serialize(ctx context.Context, inst *codec.Instance) (out []byte, err error) {
	defer func(start time.Time) { observeSerialize(resource.TypePreset, start, err) }(time.Now())

	if err = ctx.Err(); err != nil {
		return nil, err
	}
	view, err := ViewPreset(inst)
	if err != nil {
		return nil, err
	}
	body := view.body()

	w := binary.NewWriter()
	w.WriteU32(inst.Version())
	w.WriteU32(uint32(len(body.order)))
	for _, name := range body.order {
		if err := ctx.Err(); err != nil {
			w.Discard()
			return nil, err
		}
		node := body.nodes[name]
		w.WriteString(node.name)
		w.WriteString(node.parent)
		w.WriteU32(uint32(len(node.entries)))
		for _, e := range node.entries {
			w.WriteU32(e.key)
			raw := e.val.encode()
			w.WriteI32(int32(len(raw)))
			w.WriteBytes(raw)
		}
	}

	inst.MarkSerialized()
	return w.Finish(), nil
}

// Preset 是预设树实例的类型化视图。
type Preset struct {
	inst *codec.Instance
}

// ViewPreset 将实例包装为预设树视图。
func ViewPreset(inst *codec.Instance) (*Preset, error) {
	if inst == nil {
		return nil, merr.WrapErrParameterMissing("instance")
	}
	if inst.Disposed() {
		return nil, merr.WrapErrInstanceDisposed(inst.TypeID())
	}
	if inst.TypeID() != resource.TypePreset {
		return nil, merr.WrapErrParameterInvalid(resource.TypePreset, inst.TypeID())
	}
	if _, ok := inst.Body().(*presetBody); !ok {
		return nil, merr.WrapErrParameterInvalid("preset body", fmt.Sprintf("%T", inst.Body()))
	}
	return &Preset{inst: inst}, nil
}

func (p *Preset) body() *presetBody {
	return p.inst.Body().(*presetBody)
}

// Names 按持久化顺序返回所有节点名。
func (p *Preset) Names() []string {
	body := p.body()
	out := make([]string, len(body.order))
	copy(out, body.order)
	return out
}

// Node 按名称查找节点。
func (p *Preset) Node(name string) (*PresetNode, bool) {
	node, ok := p.body().nodes[name]
	if !ok {
		return nil, false
	}
	return &PresetNode{preset: p, node: node}, true
}

// AddNode 新建一个无父节点的空节点，名称重复时拒绝。
func (p *Preset) AddNode(name string) (*PresetNode, error) {
	body := p.body()
	if _, ok := body.nodes[name]; ok {
		return nil, merr.WrapErrKeyDuplicate(name, "preset node")
	}
	node := &presetNode{name: name, index: make(map[uint32]int)}
	body.order = append(body.order, name)
	body.nodes[name] = node
	if err := p.inst.MarkMutated("node:"+name, nil); err != nil {
		return nil, err
	}
	return &PresetNode{preset: p, node: node}, nil
}

// PresetNode 是预设树中的单个节点。
type PresetNode struct {
	preset *Preset
	node   *presetNode
}

func (n *PresetNode) Name() string {
	return n.node.name
}

// Parent 返回父节点名，空串表示无父节点。
func (n *PresetNode) Parent() string {
	return n.node.parent
}

// SetParent 指定父节点。
// 赋值前沿 prospective parent 的祖先链检查：若当前节点已出现在链上，
// 则拒绝赋值且不产生任何变更。传空串表示解除父节点。
func (n *PresetNode) SetParent(parentName string) error {
	if parentName == "" {
		n.node.parent = ""
		return n.preset.inst.MarkMutated("node:"+n.node.name, "")
	}

	body := n.preset.body()
	if _, ok := body.nodes[parentName]; !ok {
		return merr.WrapErrKeyNotFound(parentName, "preset parent")
	}

	// 祖先链环检测。visited 防御载荷中既有的环。
	visited := typeutil.NewSet[string]()
	for cur := parentName; cur != ""; {
		if cur == n.node.name {
			return merr.WrapErrPresetCycle(n.node.name, parentName)
		}
		if visited.Contain(cur) {
			break
		}
		visited.Insert(cur)
		next, ok := body.nodes[cur]
		if !ok {
			break
		}
		cur = next.parent
	}

	n.node.parent = parentName
	return n.preset.inst.MarkMutated("node:"+n.node.name, parentName)
}

// GetValue 读取 key 对应的值：先查本节点数据，未命中沿父链上溯。
func (n *PresetNode) GetValue(key uint32) (Value, bool) {
	body := n.preset.body()
	visited := typeutil.NewSet[string]()
	for cur := n.node; cur != nil; {
		if idx, ok := cur.index[key]; ok {
			return cur.entries[idx].val, true
		}
		if cur.parent == "" || visited.Contain(cur.parent) {
			return Value{}, false
		}
		visited.Insert(cur.parent)
		cur = body.nodes[cur.parent]
	}
	return Value{}, false
}

// SetValue 在本节点写入或覆盖 key 对应的值，不影响父节点。
func (n *PresetNode) SetValue(key uint32, v Value) error {
	if idx, ok := n.node.index[key]; ok {
		n.node.entries[idx].val = v
	} else {
		n.node.entries = append(n.node.entries, attrEntry{key: key, val: v})
		n.node.index[key] = len(n.node.entries) - 1
	}
	return n.preset.inst.MarkMutated(fmt.Sprintf("node:%s:%d", n.node.name, key), v)
}

// RemoveValue 删除本节点上的 key，返回 key 是否存在。
func (n *PresetNode) RemoveValue(key uint32) (bool, error) {
	idx, ok := n.node.index[key]
	if !ok {
		return false, nil
	}
	n.node.entries = append(n.node.entries[:idx], n.node.entries[idx+1:]...)
	delete(n.node.index, key)
	for i := idx; i < len(n.node.entries); i++ {
		n.node.index[n.node.entries[i].key] = i
	}
	return true, n.preset.inst.MarkMutated(fmt.Sprintf("node:%s:%d", n.node.name, key), nil)
}
