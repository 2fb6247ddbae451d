package codecs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lk2023060901/asset-garden-go/internal/resource"
	"github.com/lk2023060901/asset-garden-go/internal/resource/binary"
	"github.com/lk2023060901/asset-garden-go/internal/resource/codec"
	"github.com/lk2023060901/asset-garden-go/pkg/log"
	"github.com/lk2023060901/asset-garden-go/pkg/util/merr"
)

// NGMP 格式：{version:u32 == 1, count:u32, (namehash:u64, instance:u64)×count}。
// 版本必须恰好等于当前支持的常量，高低皆拒绝。
const ngmpVersion = 1

// NGMPCodec 编解码 namehash→instance 列表资源。
type NGMPCodec struct{}

func NewNGMPCodec() *NGMPCodec {
	return &NGMPCodec{}
}

type ngmpPair struct {
	hash     resource.NameHash
	instance resource.InstanceID
}

// ngmpBody 同时维护有序列表与派生索引。
// 两个结构必须始终同步，所有读写操作都在同一把互斥锁内完成；
// 这是整个家族中唯一允许跨 goroutine 共享的实例数据。
type ngmpBody struct {
	mu    sync.Mutex
	pairs []ngmpPair
	index map[resource.NameHash]int
}

func newNGMPInstance() *codec.Instance {
	inst := codec.NewInstance(resource.TypeNGMP, ngmpVersion)
	inst.SetBody(&ngmpBody{index: make(map[resource.NameHash]int)})
	return inst
}

func (c *NGMPCodec) Parse(ctx context.Context, payload []byte) (inst *codec.Instance, err error) {
	defer func(start time.Time) { observeParse(resource.TypeNGMP, start, inst, err) }(time.Now())

	if err = ctx.Err(); err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return newNGMPInstance(), nil
	}

	r := binary.NewReader(payload)

	version, err := r.ReadU32("header")
	if err != nil {
		return nil, err
	}
	if version != ngmpVersion {
		return nil, merr.WrapErrFormatVersionUnsupported(resource.TypeNGMP, version, ngmpVersion)
	}

	inst = newNGMPInstance()
	rules := []codec.Rule{{
		Name: "pairs",
		Read: func(ctx context.Context, r *binary.Reader, inst *codec.Instance) error {
			count, err := r.ReadCount("pairs", codec.DefaultSectionCap, 16)
			if err != nil {
				return err
			}
			body := &ngmpBody{
				pairs: make([]ngmpPair, 0, count),
				index: make(map[resource.NameHash]int, count),
			}
			for idx := 0; idx < count; idx++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				hash, err := r.ReadU64("pairs")
				if err != nil {
					return err
				}
				instance, err := r.ReadU64("pairs")
				if err != nil {
					return err
				}
				// 载荷内哈希必须唯一，否则列表与索引无法保持同步
				if _, ok := body.index[resource.NameHash(hash)]; ok {
					log.Ctx(ctx).Warn("duplicate namehash in payload", log.FieldHash(hash))
					return merr.WrapErrKeyDuplicate(hash, "ngmp pair")
				}
				body.pairs = append(body.pairs, ngmpPair{
					hash:     resource.NameHash(hash),
					instance: resource.InstanceID(instance),
				})
				body.index[resource.NameHash(hash)] = len(body.pairs) - 1
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

func (c *NGMPCodec) Serialize(ctx context.Context, inst *codec.Instance) (out []byte, err error) {
	defer func(start time.Time) { observeSerialize(resource.TypeNGMP, start, err) }(time.Now())

	if err = ctx.Err(); err != nil {
		return nil, err
	}
	view, err := ViewNGMP(inst)
	if err != nil {
		return nil, err
	}

	// 在锁内取一份快照，序列化期间的并发修改不影响本次输出。
	pairs := view.Pairs()

	w := binary.NewWriter()
	w.WriteU32(inst.Version())
	w.WriteU32(uint32(len(pairs)))
	for _, p := range pairs {
		if err := ctx.Err(); err != nil {
			w.Discard()
			return nil, err
		}
		w.WriteU64(uint64(p.Hash))
		w.WriteU64(uint64(p.Instance))
	}

	inst.MarkSerialized()
	return w.Finish(), nil
}

// Pair 为对外暴露的 (namehash, instance) 二元组。
type Pair struct {
	Hash     resource.NameHash
	Instance resource.InstanceID
}

// NGMP 是 namehash→instance 列表实例的类型化视图。
// 所有操作都可以跨 goroutine 并发调用。
type NGMP struct {
	inst *codec.Instance
	body *ngmpBody
}

// ViewNGMP 将实例包装为 NGMP 视图。
func ViewNGMP(inst *codec.Instance) (*NGMP, error) {
	if inst == nil {
		return nil, merr.WrapErrParameterMissing("instance")
	}
	if inst.Disposed() {
		return nil, merr.WrapErrInstanceDisposed(inst.TypeID())
	}
	if inst.TypeID() != resource.TypeNGMP {
		return nil, merr.WrapErrParameterInvalid(resource.TypeNGMP, inst.TypeID())
	}
	body, ok := inst.Body().(*ngmpBody)
	if !ok {
		return nil, merr.WrapErrParameterInvalid("ngmp body", fmt.Sprintf("%T", inst.Body()))
	}
	return &NGMP{inst: inst, body: body}, nil
}

// Len 返回当前列表长度。
func (n *NGMP) Len() int {
	n.body.mu.Lock()
	defer n.body.mu.Unlock()
	return len(n.body.pairs)
}

// GetInstance 按 namehash 查找实例标识。
func (n *NGMP) GetInstance(hash resource.NameHash) (resource.InstanceID, bool) {
	n.body.mu.Lock()
	defer n.body.mu.Unlock()
	idx, ok := n.body.index[hash]
	if !ok {
		return 0, false
	}
	return n.body.pairs[idx].instance, true
}

// Upsert 写入一对 (namehash, instance)。
// 已存在同名哈希时旧对被整体替换，新对移动到列表末尾，哈希唯一性保持不变。
func (n *NGMP) Upsert(hash resource.NameHash, instance resource.InstanceID) error {
	n.body.mu.Lock()
	defer n.body.mu.Unlock()

	if idx, ok := n.body.index[hash]; ok {
		n.removeAtLocked(idx)
	}
	n.body.pairs = append(n.body.pairs, ngmpPair{hash: hash, instance: instance})
	n.body.index[hash] = len(n.body.pairs) - 1

	// 实例的脏标记与变更通知同样属于互斥区，并发 Upsert 不会竞争实例状态。
	return n.inst.MarkMutated(fmt.Sprintf("pair:0x%016x", uint64(hash)), uint64(instance))
}

// Remove 删除 namehash 对应的列表项与索引项，两者相对彼此原子。
func (n *NGMP) Remove(hash resource.NameHash) (bool, error) {
	n.body.mu.Lock()
	defer n.body.mu.Unlock()

	idx, ok := n.body.index[hash]
	if !ok {
		return false, nil
	}
	n.removeAtLocked(idx)
	return true, n.inst.MarkMutated(fmt.Sprintf("pair:0x%016x", uint64(hash)), nil)
}

// Clear 清空列表与索引。
func (n *NGMP) Clear() error {
	n.body.mu.Lock()
	defer n.body.mu.Unlock()

	n.body.pairs = n.body.pairs[:0]
	n.body.index = make(map[resource.NameHash]int)
	return n.inst.MarkMutated("pairs", nil)
}

// Pairs 按列表顺序返回所有二元组的副本。
func (n *NGMP) Pairs() []Pair {
	n.body.mu.Lock()
	defer n.body.mu.Unlock()
	out := make([]Pair, 0, len(n.body.pairs))
	for _, p := range n.body.pairs {
		out = append(out, Pair{Hash: p.hash, Instance: p.instance})
	}
	return out
}

// removeAtLocked 删除 idx 处的列表项并重建其后的索引，调用方必须持锁。
func (n *NGMP) removeAtLocked(idx int) {
	hash := n.body.pairs[idx].hash
	n.body.pairs = append(n.body.pairs[:idx], n.body.pairs[idx+1:]...)
	delete(n.body.index, hash)
	for i := idx; i < len(n.body.pairs); i++ {
		n.body.index[n.body.pairs[i].hash] = i
	}
}
