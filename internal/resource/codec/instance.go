package codec

import (
	"fmt"

	"github.com/lk2023060901/asset-garden-go/internal/json"
	"github.com/lk2023060901/asset-garden-go/internal/resource"
	"github.com/lk2023060901/asset-garden-go/pkg/util/funcutil"
	"github.com/lk2023060901/asset-garden-go/pkg/util/merr"
)

// State 为实例生命周期状态。
// 合法迁移：Created → Parsed → (Mutated ↔ Serialized)* → Disposed。
// Disposed 为终态，之后任何操作都失败。
type State int32

const (
	StateCreated State = iota
	StateParsed
	StateMutated
	StateSerialized
	StateDisposed
)

var stateNames = map[State]string{
	StateCreated:    "created",
	StateParsed:     "parsed",
	StateMutated:    "mutated",
	StateSerialized: "serialized",
	StateDisposed:   "disposed",
}

func (s State) String() string {
	return stateNames[s]
}

// Diagnostic 记录一次可选扩展段的降级原因。
type Diagnostic struct {
	Section string `json:"section"`
	Reason  string `json:"reason"`
}

// ChangeListener 在字段被成功修改后收到通知。
type ChangeListener func(name string, value any)

// Instance 为一个已解析或新建的资源实例。
//
// 实例约定为单属主对象：除 NGMP 编解码器内部结构外，
// 不允许多个 goroutine 并发修改同一个实例。
type Instance struct {
	typeID     resource.TypeID
	instanceID uint64
	version    uint32

	state State
	dirty bool
	valid bool
	diags []Diagnostic

	order  []string
	fields map[string]any

	// body 为编解码器私有的结构化数据（列表段等），门面不直接暴露。
	body any

	listeners []ChangeListener
}

// NewInstance 创建一个默认值实例。
func NewInstance(typeID resource.TypeID, version uint32) *Instance {
	return &Instance{
		typeID:     typeID,
		instanceID: funcutil.RandomNonZeroUint64(),
		version:    version,
		state:      StateCreated,
		valid:      true,
		fields:     make(map[string]any),
	}
}

func (i *Instance) TypeID() resource.TypeID {
	return i.typeID
}

// InstanceID 返回实例的进程内唯一标识，用于日志关联。
func (i *Instance) InstanceID() uint64 {
	return i.instanceID
}

func (i *Instance) Version() uint32 {
	return i.version
}

// SetVersion 修改实例的格式版本。
// 序列化始终按当前版本值决定字段布局。
func (i *Instance) SetVersion(version uint32) error {
	if err := i.guard(); err != nil {
		return err
	}
	i.version = version
	i.markMutated()
	i.notify("version", version)
	return nil
}

func (i *Instance) State() State {
	return i.state
}

func (i *Instance) Dirty() bool {
	return i.dirty
}

// Valid 返回实例的有效性标记。
// 解析中任何可选扩展段被放弃都会清除该标记。
func (i *Instance) Valid() bool {
	return i.valid
}

func (i *Instance) Diagnostics() []Diagnostic {
	return i.diags
}

// Degrade 放弃一个可选扩展段：记录诊断并清除有效性标记。
// 仅供编解码器在解析期间调用。
func (i *Instance) Degrade(section string, err error) {
	i.valid = false
	i.diags = append(i.diags, Diagnostic{
		Section: section,
		Reason:  err.Error(),
	})
}

// DeclareField 声明一个逻辑字段及其初始值，不触发脏标记与变更通知。
// 仅供编解码器在构造与解析期间调用；重复声明同名字段只更新值。
func (i *Instance) DeclareField(name string, value any) {
	if _, ok := i.fields[name]; !ok {
		i.order = append(i.order, name)
	}
	i.fields[name] = value
}

// FieldNames 返回有序的字段名列表。
func (i *Instance) FieldNames() []string {
	out := make([]string, len(i.order))
	copy(out, i.order)
	return out
}

// FieldCount 返回字段数量。
func (i *Instance) FieldCount() int {
	return len(i.order)
}

// Get 按名称读取字段值，未知名称返回错误。
func (i *Instance) Get(name string) (any, error) {
	if err := i.guard(); err != nil {
		return nil, err
	}
	v, ok := i.fields[name]
	if !ok {
		return nil, merr.WrapErrFieldNotFound(name)
	}
	return v, nil
}

// GetAt 按序号读取字段值，越界返回错误。
func (i *Instance) GetAt(index int) (any, error) {
	if err := i.guard(); err != nil {
		return nil, err
	}
	if index < 0 || index >= len(i.order) {
		return nil, merr.WrapErrFieldIndexOutOfRange(index, len(i.order))
	}
	return i.fields[i.order[index]], nil
}

// Set 按名称修改字段值。
// 成功的修改会设置脏标记并触发变更通知。
func (i *Instance) Set(name string, value any) error {
	if err := i.guard(); err != nil {
		return err
	}
	if _, ok := i.fields[name]; !ok {
		return merr.WrapErrFieldNotFound(name)
	}
	i.fields[name] = value
	i.markMutated()
	i.notify(name, value)
	return nil
}

// SetAt 按序号修改字段值。
func (i *Instance) SetAt(index int, value any) error {
	if err := i.guard(); err != nil {
		return err
	}
	if index < 0 || index >= len(i.order) {
		return merr.WrapErrFieldIndexOutOfRange(index, len(i.order))
	}
	name := i.order[index]
	i.fields[name] = value
	i.markMutated()
	i.notify(name, value)
	return nil
}

// MarkMutated 标记一次发生在编解码器私有数据上的修改。
// 与 Set 一样设置脏标记并触发变更通知，name 为逻辑上被修改的条目名。
func (i *Instance) MarkMutated(name string, value any) error {
	if err := i.guard(); err != nil {
		return err
	}
	i.markMutated()
	i.notify(name, value)
	return nil
}

// OnChange 注册一个变更监听器。
func (i *Instance) OnChange(l ChangeListener) {
	i.listeners = append(i.listeners, l)
}

// Body 返回编解码器私有数据。
func (i *Instance) Body() any {
	return i.body
}

// SetBody 设置编解码器私有数据，仅供编解码器调用。
func (i *Instance) SetBody(body any) {
	i.body = body
}

// MarkParsed 标记实例由 Parse 填充完毕。
func (i *Instance) MarkParsed() {
	if i.state == StateCreated {
		i.state = StateParsed
	}
}

// MarkSerialized 标记实例已成功序列化并清除脏标记。
func (i *Instance) MarkSerialized() {
	if i.state == StateDisposed {
		return
	}
	i.state = StateSerialized
	i.dirty = false
}

// Dispose 释放实例。之后所有操作返回错误。
func (i *Instance) Dispose() {
	i.state = StateDisposed
	i.fields = nil
	i.order = nil
	i.body = nil
	i.listeners = nil
}

func (i *Instance) Disposed() bool {
	return i.state == StateDisposed
}

func (i *Instance) guard() error {
	if i.state == StateDisposed {
		return merr.WrapErrInstanceDisposed(i.typeID)
	}
	return nil
}

func (i *Instance) markMutated() {
	i.dirty = true
	i.state = StateMutated
}

func (i *Instance) notify(name string, value any) {
	for _, l := range i.listeners {
		l(name, value)
	}
}

// snapshot 为实例的 JSON 导出视图。
type snapshot struct {
	TypeID      string         `json:"typeId"`
	InstanceID  uint64         `json:"instanceId"`
	Version     uint32         `json:"version"`
	State       string         `json:"state"`
	Dirty       bool           `json:"dirty"`
	Valid       bool           `json:"valid"`
	Fields      map[string]any `json:"fields"`
	FieldOrder  []string       `json:"fieldOrder"`
	Diagnostics []Diagnostic   `json:"diagnostics,omitempty"`
}

// Snapshot 导出实例的 JSON 快照，用于诊断工具。
func (i *Instance) Snapshot() ([]byte, error) {
	if err := i.guard(); err != nil {
		return nil, err
	}
	return json.MarshalIndent(snapshot{
		TypeID:      i.typeID.String(),
		InstanceID:  i.instanceID,
		Version:     i.version,
		State:       i.state.String(),
		Dirty:       i.dirty,
		Valid:       i.valid,
		Fields:      i.fields,
		FieldOrder:  i.FieldNames(),
		Diagnostics: i.diags,
	}, "", "  ")
}

// FieldAs 按名称读取字段并断言其为 T 类型。
func FieldAs[T any](inst *Instance, name string) (T, error) {
	var zero T
	v, err := inst.Get(name)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, merr.WrapErrFieldTypeMismatch(name, fmt.Sprintf("%T", zero), fmt.Sprintf("%T", v))
	}
	return typed, nil
}
