package registry

import (
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/lk2023060901/asset-garden-go/internal/resource"
	"github.com/lk2023060901/asset-garden-go/internal/resource/codec"
	"github.com/lk2023060901/asset-garden-go/pkg/log"
	"github.com/lk2023060901/asset-garden-go/pkg/metrics"
	"github.com/lk2023060901/asset-garden-go/pkg/util/merr"
)

// Handle 标识一次注册，供 Unregister 撤销。
type Handle uint64

type entry struct {
	handle   Handle
	priority int
	codec    codec.Codec
}

// snapshot 为编解码器集合的一个不可变视图。
// 写路径整体替换快照，读路径永远看到完整一致的集合。
type snapshot struct {
	byType   map[resource.TypeID][]entry
	byHandle map[Handle]codec.Descriptor
}

func emptySnapshot() *snapshot {
	return &snapshot{
		byType:   make(map[resource.TypeID][]entry),
		byHandle: make(map[Handle]codec.Descriptor),
	}
}

func (s *snapshot) clone() *snapshot {
	next := &snapshot{
		byType:   make(map[resource.TypeID][]entry, len(s.byType)),
		byHandle: make(map[Handle]codec.Descriptor, len(s.byHandle)),
	}
	for id, entries := range s.byType {
		next.byType[id] = append([]entry(nil), entries...)
	}
	for h, desc := range s.byHandle {
		next.byHandle[h] = desc
	}
	return next
}

// Registry 将资源类型映射到已注册的编解码器。
//
// Resolve 与 Register/Unregister 可以并发调用：写路径在互斥锁内
// 构造新快照后原子替换，读路径无锁。Registry 自身不保留任何实例，
// 也不决定查找未命中后的兜底策略。
type Registry struct {
	log.Binder

	mu         sync.Mutex
	snap       atomic.Pointer[snapshot]
	nextHandle Handle
}

// NewRegistry 创建一个空 Registry。
// 生命周期由引导方负责；测试应为每个用例构造新实例。
func NewRegistry() *Registry {
	r := &Registry{}
	r.snap.Store(emptySnapshot())
	r.SetLogger(log.With(log.FieldModule("registry")))
	return r
}

// Register 注册一个编解码器并返回撤销用的句柄。
func (r *Registry) Register(desc codec.Descriptor) (Handle, error) {
	if len(desc.TypeIDs) == 0 {
		return 0, merr.WrapErrParameterMissing("typeIds")
	}
	if desc.Codec == nil {
		return 0, merr.WrapErrParameterMissing("codec")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextHandle++
	handle := r.nextHandle

	next := r.snap.Load().clone()
	for _, id := range desc.TypeIDs {
		next.byType[id] = append(next.byType[id], entry{
			handle:   handle,
			priority: desc.Priority,
			codec:    desc.Codec,
		})
	}
	next.byHandle[handle] = desc
	r.snap.Store(next)

	metrics.RegistrySize.Set(float64(len(next.byHandle)))
	r.Logger().Info("codec registered",
		zap.Uint64("handle", uint64(handle)),
		zap.Int("priority", desc.Priority),
		zap.Stringers("typeIds", desc.TypeIDs))
	return handle, nil
}

// Unregister 撤销一次注册。未知句柄返回错误。
func (r *Registry) Unregister(handle Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.snap.Load()
	desc, ok := cur.byHandle[handle]
	if !ok {
		return merr.WrapErrCodecHandleInvalid(uint64(handle))
	}

	next := cur.clone()
	delete(next.byHandle, handle)
	for _, id := range desc.TypeIDs {
		entries := next.byType[id][:0]
		for _, e := range next.byType[id] {
			if e.handle != handle {
				entries = append(entries, e)
			}
		}
		if len(entries) == 0 {
			delete(next.byType, id)
		} else {
			next.byType[id] = entries
		}
	}
	r.snap.Store(next)

	metrics.RegistrySize.Set(float64(len(next.byHandle)))
	r.Logger().Info("codec unregistered", zap.Uint64("handle", uint64(handle)))
	return nil
}

// Resolve 为给定资源类型选出唯一的编解码器。
//
// 在声明该类型的编解码器中选优先级最高者；优先级相同时，
// 后注册者胜出（对固定的注册历史结果确定）。
// 未命中不是错误，返回 false 由调用方决定兜底策略。
func (r *Registry) Resolve(typeID resource.TypeID) (codec.Codec, bool) {
	entries := r.snap.Load().byType[typeID]
	if len(entries) == 0 {
		metrics.RegistryResolveTotal.WithLabelValues(metrics.FailLabel).Inc()
		return nil, false
	}

	best := entries[0]
	for _, e := range entries[1:] {
		if e.priority > best.priority ||
			(e.priority == best.priority && e.handle > best.handle) {
			best = e
		}
	}
	metrics.RegistryResolveTotal.WithLabelValues(metrics.SuccessLabel).Inc()
	return best.codec, true
}

// ResolveAlias 按助记名查找编解码器。
func (r *Registry) ResolveAlias(alias string) (codec.Codec, bool) {
	id, ok := resource.TypeIDByAlias(alias)
	if !ok {
		metrics.RegistryResolveTotal.WithLabelValues(metrics.FailLabel).Inc()
		return nil, false
	}
	return r.Resolve(id)
}

// Size 返回当前已注册的编解码器数量。
func (r *Registry) Size() int {
	return len(r.snap.Load().byHandle)
}
