package codecs

import (
	"context"
	"time"

	"github.com/lk2023060901/asset-garden-go/internal/resource"
	"github.com/lk2023060901/asset-garden-go/internal/resource/binary"
	"github.com/lk2023060901/asset-garden-go/internal/resource/codec"
	"github.com/lk2023060901/asset-garden-go/pkg/util/merr"
)

// 动画剪辑头格式。强制头部为
// {version:u32, flags:u32, duration:f32, rotation:4×f32, translation:3×f32}，
// 其后是按版本门控的扩展字段与记录段，门限 4/5/7/10/11 是本格式自己的常量。
const (
	clipMaxVersion = 11

	clipGateNamespaceList = 4
	clipGateRefNamespace  = 5
	clipGateName          = 7
	clipGateSurface       = 10
	clipGateSurfaceChild  = 11
)

const (
	fieldClipFlags            = "flags"
	fieldClipDuration         = "duration"
	fieldClipRotation         = "rotation"
	fieldClipTranslation      = "translation"
	fieldClipRefNamespace     = "refNamespaceHash"
	fieldClipSurfaceNamespace = "surfaceNamespaceHash"
	fieldClipSurfaceJoint     = "surfaceJointHash"
	fieldClipSurfaceChild     = "surfaceChildNamespaceHash"
	fieldClipName             = "name"
	fieldClipRigName          = "rigName"
)

// SlotAssignment 为插槽到骨骼的绑定记录。
type SlotAssignment struct {
	SlotHash  uint32
	JointHash uint32
}

// ClipEvent 为时间轴事件记录。
type ClipEvent struct {
	Time      float32
	EventHash uint32
	Payload   string
}

// ClipDataEntry 为不透明剪辑数据记录。
type ClipDataEntry struct {
	Key  uint32
	Data []byte
}

type clipBody struct {
	namespaces []string
	slots      []SlotAssignment
	events     []ClipEvent
	clipData   [2][]ClipDataEntry
}

// ClipCodec 编解码动画剪辑头资源。
type ClipCodec struct{}

func NewClipCodec() *ClipCodec {
	return &ClipCodec{}
}

func newClipInstance(version uint32) *codec.Instance {
	inst := codec.NewInstance(resource.TypeClipHeader, version)
	inst.DeclareField(fieldClipFlags, uint32(0))
	inst.DeclareField(fieldClipDuration, float32(0))
	inst.DeclareField(fieldClipRotation, [4]float32{})
	inst.DeclareField(fieldClipTranslation, [3]float32{})
	// 门控字段只在版本允许时才出现在字段表里。
	if version >= clipGateRefNamespace {
		inst.DeclareField(fieldClipRefNamespace, uint32(0))
	}
	if version >= clipGateSurface {
		inst.DeclareField(fieldClipSurfaceNamespace, uint32(0))
		inst.DeclareField(fieldClipSurfaceJoint, uint32(0))
	}
	if version >= clipGateSurfaceChild {
		inst.DeclareField(fieldClipSurfaceChild, uint32(0))
	}
	if version >= clipGateName {
		inst.DeclareField(fieldClipName, "")
	}
	inst.DeclareField(fieldClipRigName, "")
	inst.SetBody(&clipBody{})
	return inst
}

// clipRules 返回版本门控的扩展段规则，顺序即持久化顺序。
func clipRules() []codec.Rule {
	return []codec.Rule{
		{
			Name:       "ref-namespace",
			MinVersion: clipGateRefNamespace,
			Read:       readClipU32Field(fieldClipRefNamespace),
			Write:      writeClipU32Field(fieldClipRefNamespace),
		},
		{
			Name:       "surface",
			MinVersion: clipGateSurface,
			Read: func(ctx context.Context, r *binary.Reader, inst *codec.Instance) error {
				ns, err := r.ReadU32("surface")
				if err != nil {
					return err
				}
				joint, err := r.ReadU32("surface")
				if err != nil {
					return err
				}
				inst.DeclareField(fieldClipSurfaceNamespace, ns)
				inst.DeclareField(fieldClipSurfaceJoint, joint)
				return nil
			},
			Write: func(ctx context.Context, w *binary.Writer, inst *codec.Instance) error {
				ns, err := codec.FieldAs[uint32](inst, fieldClipSurfaceNamespace)
				if err != nil {
					return err
				}
				joint, err := codec.FieldAs[uint32](inst, fieldClipSurfaceJoint)
				if err != nil {
					return err
				}
				w.WriteU32(ns)
				w.WriteU32(joint)
				return nil
			},
		},
		{
			Name:       "surface-child",
			MinVersion: clipGateSurfaceChild,
			Read:       readClipU32Field(fieldClipSurfaceChild),
			Write:      writeClipU32Field(fieldClipSurfaceChild),
		},
		{
			Name:       "name",
			MinVersion: clipGateName,
			Read:       readClipStringField(fieldClipName),
			Write:      writeClipStringField(fieldClipName),
		},
		{
			Name:  "rig-name",
			Read:  readClipStringField(fieldClipRigName),
			Write: writeClipStringField(fieldClipRigName),
		},
		{
			Name:       "namespace-list",
			MinVersion: clipGateNamespaceList,
			Read: func(ctx context.Context, r *binary.Reader, inst *codec.Instance) error {
				count, err := r.ReadCount("namespace-list", codec.DefaultSectionCap, 4)
				if err != nil {
					return err
				}
				namespaces := make([]string, 0, count)
				for i := 0; i < count; i++ {
					if err := ctx.Err(); err != nil {
						return err
					}
					ns, err := r.ReadString("namespace-list")
					if err != nil {
						return err
					}
					namespaces = append(namespaces, ns)
				}
				clipBodyOf(inst).namespaces = namespaces
				return nil
			},
			Write: func(ctx context.Context, w *binary.Writer, inst *codec.Instance) error {
				body := clipBodyOf(inst)
				w.WriteU32(uint32(len(body.namespaces)))
				for _, ns := range body.namespaces {
					if err := ctx.Err(); err != nil {
						return err
					}
					w.WriteString(ns)
				}
				return nil
			},
		},
		{
			Name: "slot-assignments",
			Read: func(ctx context.Context, r *binary.Reader, inst *codec.Instance) error {
				count, err := r.ReadCount("slot-assignments", codec.DefaultSectionCap, 8)
				if err != nil {
					return err
				}
				slots := make([]SlotAssignment, 0, count)
				for i := 0; i < count; i++ {
					if err := ctx.Err(); err != nil {
						return err
					}
					slot, err := r.ReadU32("slot-assignments")
					if err != nil {
						return err
					}
					joint, err := r.ReadU32("slot-assignments")
					if err != nil {
						return err
					}
					slots = append(slots, SlotAssignment{SlotHash: slot, JointHash: joint})
				}
				clipBodyOf(inst).slots = slots
				return nil
			},
			Write: func(ctx context.Context, w *binary.Writer, inst *codec.Instance) error {
				body := clipBodyOf(inst)
				w.WriteU32(uint32(len(body.slots)))
				for _, s := range body.slots {
					if err := ctx.Err(); err != nil {
						return err
					}
					w.WriteU32(s.SlotHash)
					w.WriteU32(s.JointHash)
				}
				return nil
			},
		},
		{
			Name: "events",
			Read: func(ctx context.Context, r *binary.Reader, inst *codec.Instance) error {
				count, err := r.ReadCount("events", codec.DefaultSectionCap, 12)
				if err != nil {
					return err
				}
				events := make([]ClipEvent, 0, count)
				for i := 0; i < count; i++ {
					if err := ctx.Err(); err != nil {
						return err
					}
					t, err := r.ReadF32("events")
					if err != nil {
						return err
					}
					hash, err := r.ReadU32("events")
					if err != nil {
						return err
					}
					payload, err := r.ReadString("events")
					if err != nil {
						return err
					}
					events = append(events, ClipEvent{Time: t, EventHash: hash, Payload: payload})
				}
				clipBodyOf(inst).events = events
				return nil
			},
			Write: func(ctx context.Context, w *binary.Writer, inst *codec.Instance) error {
				body := clipBodyOf(inst)
				w.WriteU32(uint32(len(body.events)))
				for _, e := range body.events {
					if err := ctx.Err(); err != nil {
						return err
					}
					w.WriteF32(e.Time)
					w.WriteU32(e.EventHash)
					w.WriteString(e.Payload)
				}
				return nil
			},
		},
		clipDataRule("clip-data-0", 0),
		clipDataRule("clip-data-1", 1),
	}
}

func clipDataRule(name string, slot int) codec.Rule {
	return codec.Rule{
		Name: name,
		Read: func(ctx context.Context, r *binary.Reader, inst *codec.Instance) error {
			count, err := r.ReadCount(name, codec.DefaultSectionCap, 8)
			if err != nil {
				return err
			}
			entries := make([]ClipDataEntry, 0, count)
			for i := 0; i < count; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				key, err := r.ReadU32(name)
				if err != nil {
					return err
				}
				dataLen, err := r.ReadI32(name)
				if err != nil {
					return err
				}
				if dataLen < 0 {
					return merr.WrapErrFormatInvalid(resource.TypeClipHeader, "negative data length", name)
				}
				data, err := r.ReadBytes(name, int(dataLen))
				if err != nil {
					return err
				}
				entries = append(entries, ClipDataEntry{Key: key, Data: data})
			}
			clipBodyOf(inst).clipData[slot] = entries
			return nil
		},
		Write: func(ctx context.Context, w *binary.Writer, inst *codec.Instance) error {
			body := clipBodyOf(inst)
			w.WriteU32(uint32(len(body.clipData[slot])))
			for _, e := range body.clipData[slot] {
				if err := ctx.Err(); err != nil {
					return err
				}
				w.WriteU32(e.Key)
				w.WriteI32(int32(len(e.Data)))
				w.WriteBytes(e.Data)
			}
			return nil
		},
	}
}

func clipBodyOf(inst *codec.Instance) *clipBody {
	return inst.Body().(*clipBody)
}

func readClipU32Field(field string) func(ctx context.Context, r *binary.Reader, inst *codec.Instance) error {
	return func(ctx context.Context, r *binary.Reader, inst *codec.Instance) error {
		v, err := r.ReadU32(field)
		if err != nil {
			return err
		}
		inst.DeclareField(field, v)
		return nil
	}
}

func writeClipU32Field(field string) func(ctx context.Context, w *binary.Writer, inst *codec.Instance) error {
	return func(ctx context.Context, w *binary.Writer, inst *codec.Instance) error {
		v, err := codec.FieldAs[uint32](inst, field)
		if err != nil {
			return err
		}
		w.WriteU32(v)
		return nil
	}
}

func readClipStringField(field string) func(ctx context.Context, r *binary.Reader, inst *codec.Instance) error {
	return func(ctx context.Context, r *binary.Reader, inst *codec.Instance) error {
		v, err := r.ReadString(field)
		if err != nil {
			return err
		}
		inst.DeclareField(field, v)
		return nil
	}
}

func writeClipStringField(field string) func(ctx context.Context, w *binary.Writer, inst *codec.Instance) error {
	return func(ctx context.Context, w *binary.Writer, inst *codec.Instance) error {
		v, err := codec.FieldAs[string](inst, field)
		if err != nil {
			return err
		}
		w.WriteString(v)
		return nil
	}
}

func (c *ClipCodec) Parse(ctx context.Context, payload []byte) (inst *codec.Instance, err error) {
	defer func(start time.Time) { observeParse(resource.TypeClipHeader, start, inst, err) }(time.Now())

	if err = ctx.Err(); err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return newClipInstance(clipMaxVersion), nil
	}

	r := binary.NewReader(payload)

	// 强制头部，任何失败都致命。
	version, err := r.ReadU32("header")
	if err != nil {
		return nil, err
	}
	if version > clipMaxVersion {
		return nil, merr.WrapErrFormatVersionUnsupported(resource.TypeClipHeader, version, clipMaxVersion)
	}
	flags, err := r.ReadU32("header")
	if err != nil {
		return nil, err
	}
	duration, err := r.ReadF32("header")
	if err != nil {
		return nil, err
	}
	var rotation [4]float32
	for i := range rotation {
		if rotation[i], err = r.ReadF32("header"); err != nil {
			return nil, err
		}
	}
	var translation [3]float32
	for i := range translation {
		if translation[i], err = r.ReadF32("header"); err != nil {
			return nil, err
		}
	}

	inst = newClipInstance(version)
	inst.DeclareField(fieldClipFlags, flags)
	inst.DeclareField(fieldClipDuration, duration)
	inst.DeclareField(fieldClipRotation, rotation)
	inst.DeclareField(fieldClipTranslation, translation)

	if err := codec.ReadSections(ctx, r, inst, clipRules()); err != nil {
		return nil, err
	}
	inst.MarkParsed()
	return inst, nil
}

func (c *ClipCodec) Serialize(ctx context.Context, inst *codec.Instance) (out []byte, err error) {
	defer func(start time.Time) { observeSerialize(resource.TypeClipHeader, start, err) }(time.Now())

	if err = ctx.Err(); err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, merr.WrapErrParameterMissing("instance")
	}
	if inst.Disposed() {
		return nil, merr.WrapErrInstanceDisposed(inst.TypeID())
	}
	if inst.TypeID() != resource.TypeClipHeader {
		return nil, merr.WrapErrParameterInvalid(resource.TypeClipHeader, inst.TypeID())
	}

	flags, err := codec.FieldAs[uint32](inst, fieldClipFlags)
	if err != nil {
		return nil, err
	}
	duration, err := codec.FieldAs[float32](inst, fieldClipDuration)
	if err != nil {
		return nil, err
	}
	rotation, err := codec.FieldAs[[4]float32](inst, fieldClipRotation)
	if err != nil {
		return nil, err
	}
	translation, err := codec.FieldAs[[3]float32](inst, fieldClipTranslation)
	if err != nil {
		return nil, err
	}

	w := binary.NewWriter()
	w.WriteU32(inst.Version())
	w.WriteU32(flags)
	w.WriteF32(duration)
	for _, v := range rotation {
		w.WriteF32(v)
	}
	for _, v := range translation {
		w.WriteF32(v)
	}

	if err := codec.WriteSections(ctx, w, inst, clipRules()); err != nil {
		w.Discard()
		return nil, err
	}

	inst.MarkSerialized()
	return w.Finish(), nil
}

// Clip 是动画剪辑头实例的类型化视图，暴露记录段。
// 标量字段走通用字段门面。
type Clip struct {
	inst *codec.Instance
}

// ViewClip 将实例包装为剪辑头视图。
func ViewClip(inst *codec.Instance) (*Clip, error) {
	if inst == nil {
		return nil, merr.WrapErrParameterMissing("instance")
	}
	if inst.Disposed() {
		return nil, merr.WrapErrInstanceDisposed(inst.TypeID())
	}
	if inst.TypeID() != resource.TypeClipHeader {
		return nil, merr.WrapErrParameterInvalid(resource.TypeClipHeader, inst.TypeID())
	}
	return &Clip{inst: inst}, nil
}

func (c *Clip) body() *clipBody {
	return c.inst.Body().(*clipBody)
}

func (c *Clip) Namespaces() []string {
	return c.body().namespaces
}

func (c *Clip) SetNamespaces(namespaces []string) error {
	c.body().namespaces = namespaces
	return c.inst.MarkMutated("namespace-list", namespaces)
}

func (c *Clip) SlotAssignments() []SlotAssignment {
	return c.body().slots
}

func (c *Clip) SetSlotAssignments(slots []SlotAssignment) error {
	c.body().slots = slots
	return c.inst.MarkMutated("slot-assignments", slots)
}

func (c *Clip) Events() []ClipEvent {
	return c.body().events
}

func (c *Clip) SetEvents(events []ClipEvent) error {
	c.body().events = events
	return c.inst.MarkMutated("events", events)
}

func (c *Clip) ClipData(slot int) ([]ClipDataEntry, error) {
	if slot < 0 || slot > 1 {
		return nil, merr.WrapErrParameterInvalidRange(0, 1, slot)
	}
	return c.body().clipData[slot], nil
}

func (c *Clip) SetClipData(slot int, entries []ClipDataEntry) error {
	if slot < 0 || slot > 1 {
		return merr.WrapErrParameterInvalidRange(0, 1, slot)
	}
	c.body().clipData[slot] = entries
	return c.inst.MarkMutated("clip-data", entries)
}
