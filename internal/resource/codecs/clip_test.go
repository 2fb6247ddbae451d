package codecs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/asset-garden-go/internal/resource/binary"
	"github.com/lk2023060901/asset-garden-go/internal/resource/codec"
	"github.com/lk2023060901/asset-garden-go/pkg/util/merr"
)

type ClipSuite struct {
	suite.Suite
	codec *ClipCodec
}

func (s *ClipSuite) SetupTest() {
	s.codec = NewClipCodec()
}

type clipFixture struct {
	version     uint32
	flags       uint32
	duration    float32
	rotation    [4]float32
	translation [3]float32

	refNamespaceHash          uint32
	surfaceNamespaceHash      uint32
	surfaceJointHash          uint32
	surfaceChildNamespaceHash uint32
	name                      string
	rigName                   string

	namespaces []string
	slots      []SlotAssignment
	events     []ClipEvent
	clipData   [2][]ClipDataEntry
}

// buildClipPayload 按版本门控写出完整载荷，段顺序与编解码器一致。
func buildClipPayload(c clipFixture) []byte {
	w := binary.NewWriter()
	w.WriteU32(c.version)
	w.WriteU32(c.flags)
	w.WriteF32(c.duration)
	for _, v := range c.rotation {
		w.WriteF32(v)
	}
	for _, v := range c.translation {
		w.WriteF32(v)
	}
	if c.version >= clipGateRefNamespace {
		w.WriteU32(c.refNamespaceHash)
	}
	if c.version >= clipGateSurface {
		w.WriteU32(c.surfaceNamespaceHash)
		w.WriteU32(c.surfaceJointHash)
	}
	if c.version >= clipGateSurfaceChild {
		w.WriteU32(c.surfaceChildNamespaceHash)
	}
	if c.version >= clipGateName {
		w.WriteString(c.name)
	}
	w.WriteString(c.rigName)
	if c.version >= clipGateNamespaceList {
		w.WriteU32(uint32(len(c.namespaces)))
		for _, ns := range c.namespaces {
			w.WriteString(ns)
		}
	}
	w.WriteU32(uint32(len(c.slots)))
	for _, slot := range c.slots {
		w.WriteU32(slot.SlotHash)
		w.WriteU32(slot.JointHash)
	}
	w.WriteU32(uint32(len(c.events)))
	for _, e := range c.events {
		w.WriteF32(e.Time)
		w.WriteU32(e.EventHash)
		w.WriteString(e.Payload)
	}
	for slot := 0; slot < 2; slot++ {
		w.WriteU32(uint32(len(c.clipData[slot])))
		for _, e := range c.clipData[slot] {
			w.WriteU32(e.Key)
			w.WriteI32(int32(len(e.Data)))
			w.WriteBytes(e.Data)
		}
	}
	return w.Finish()
}

func fullClipFixture(version uint32) clipFixture {
	return clipFixture{
		version:                   version,
		flags:                     0x3,
		duration:                  1.25,
		rotation:                  [4]float32{0, 0, 0, 1},
		translation:               [3]float32{1, 2, 3},
		refNamespaceHash:          0x1001,
		surfaceNamespaceHash:      0x2001,
		surfaceJointHash:          0x2002,
		surfaceChildNamespaceHash: 0x3001,
		name:                      "walk_cycle",
		rigName:                   "biped",
		namespaces:                []string{"char", "props"},
		slots: []SlotAssignment{
			{SlotHash: 0x10, JointHash: 0x11},
			{SlotHash: 0x20, JointHash: 0x21},
		},
		events: []ClipEvent{
			{Time: 0.5, EventHash: 0xE1, Payload: "footstep"},
			{Time: 1.0, EventHash: 0xE2, Payload: ""},
		},
		clipData: [2][]ClipDataEntry{
			{{Key: 1, Data: []byte("curve data")}},
			{{Key: 2, Data: nil}},
		},
	}
}

func (s *ClipSuite) TestParseLatestVersion() {
	inst, err := s.codec.Parse(context.Background(), buildClipPayload(fullClipFixture(11)))
	s.NoError(err)
	s.Equal(codec.StateParsed, inst.State())
	s.True(inst.Valid())
	s.Empty(inst.Diagnostics())

	flags, err := codec.FieldAs[uint32](inst, "flags")
	s.NoError(err)
	s.Equal(uint32(0x3), flags)

	duration, err := codec.FieldAs[float32](inst, "duration")
	s.NoError(err)
	s.Equal(float32(1.25), duration)

	name, err := codec.FieldAs[string](inst, "name")
	s.NoError(err)
	s.Equal("walk_cycle", name)

	rig, err := codec.FieldAs[string](inst, "rigName")
	s.NoError(err)
	s.Equal("biped", rig)

	joint, err := codec.FieldAs[uint32](inst, "surfaceJointHash")
	s.NoError(err)
	s.Equal(uint32(0x2002), joint)

	view, err := ViewClip(inst)
	s.NoError(err)
	s.Equal([]string{"char", "props"}, view.Namespaces())
	s.Len(view.SlotAssignments(), 2)
	s.Len(view.Events(), 2)
	data0, err := view.ClipData(0)
	s.NoError(err)
	s.Equal([]byte("curve data"), data0[0].Data)
}

func (s *ClipSuite) TestVersionGating() {
	// v9 载荷不包含 v≥10 的字段，字段表也不暴露它们
	inst, err := s.codec.Parse(context.Background(), buildClipPayload(fullClipFixture(9)))
	s.NoError(err)
	s.True(inst.Valid())

	_, err = inst.Get("surfaceNamespaceHash")
	s.ErrorIs(err, merr.ErrFieldNotFound)
	_, err = inst.Get("surfaceChildNamespaceHash")
	s.ErrorIs(err, merr.ErrFieldNotFound)

	// v≥7 的 name 仍然存在
	name, err := codec.FieldAs[string](inst, "name")
	s.NoError(err)
	s.Equal("walk_cycle", name)

	// v3 只有强制头部和始终存在的段
	inst, err = s.codec.Parse(context.Background(), buildClipPayload(fullClipFixture(3)))
	s.NoError(err)
	s.True(inst.Valid())
	_, err = inst.Get("refNamespaceHash")
	s.ErrorIs(err, merr.ErrFieldNotFound)
	_, err = inst.Get("name")
	s.ErrorIs(err, merr.ErrFieldNotFound)
	rig, err := codec.FieldAs[string](inst, "rigName")
	s.NoError(err)
	s.Equal("biped", rig)

	view, err := ViewClip(inst)
	s.NoError(err)
	s.Empty(view.Namespaces())
	s.Len(view.SlotAssignments(), 2)
}

func (s *ClipSuite) TestMandatoryHeaderFatal() {
	payload := buildClipPayload(fullClipFixture(11))

	// 头部共 40 字节，任何截断都致命
	_, err := s.codec.Parse(context.Background(), payload[:20])
	s.ErrorIs(err, merr.ErrDataTruncated)

	_, err = s.codec.Parse(context.Background(), payload[:39])
	s.ErrorIs(err, merr.ErrDataTruncated)

	_, err = s.codec.Parse(context.Background(), buildClipPayload(clipFixture{version: 12}))
	s.ErrorIs(err, merr.ErrFormatVersionUnsupported)
}

func (s *ClipSuite) TestOptionalSectionDegrades() {
	payload := buildClipPayload(fullClipFixture(11))

	// 截断落在扩展段内：头部之后的内容降级，解析本身成功
	inst, err := s.codec.Parse(context.Background(), payload[:len(payload)-5])
	s.NoError(err)
	s.False(inst.Valid())
	s.NotEmpty(inst.Diagnostics())
	s.Equal(codec.StateParsed, inst.State())
}

func (s *ClipSuite) TestTrailingBytesDegrade() {
	payload := append(buildClipPayload(fullClipFixture(11)), 0xAB)

	inst, err := s.codec.Parse(context.Background(), payload)
	s.NoError(err)
	s.False(inst.Valid())
	s.Require().Len(inst.Diagnostics(), 1)
	s.Equal(codec.SectionTrailing, inst.Diagnostics()[0].Section)
	s.Equal(codec.StateParsed, inst.State())
}

func (s *ClipSuite) TestCapacityDegrades() {
	w := binary.NewWriter()
	w.WriteU32(3)
	w.WriteU32(0)
	w.WriteF32(0)
	for i := 0; i < 7; i++ {
		w.WriteF32(0)
	}
	w.WriteString("rig")
	// 声明超限的插槽数
	w.WriteU32(5000)
	payload := w.Finish()

	inst, err := s.codec.Parse(context.Background(), payload)
	s.NoError(err)
	s.False(inst.Valid())

	found := false
	for _, d := range inst.Diagnostics() {
		if d.Section == "slot-assignments" {
			found = true
		}
	}
	s.True(found)
}

func (s *ClipSuite) TestEmptyPayload() {
	inst, err := s.codec.Parse(context.Background(), nil)
	s.NoError(err)
	s.Equal(codec.StateCreated, inst.State())
	s.Equal(uint32(clipMaxVersion), inst.Version())
	s.True(inst.Valid())

	// 默认实例可以直接序列化再解析
	out, err := s.codec.Serialize(context.Background(), inst)
	s.NoError(err)
	reparsed, err := s.codec.Parse(context.Background(), out)
	s.NoError(err)
	s.True(reparsed.Valid())
}

func (s *ClipSuite) TestRoundTrip() {
	for _, version := range []uint32{3, 4, 5, 7, 9, 10, 11} {
		payload := buildClipPayload(fullClipFixture(version))

		inst, err := s.codec.Parse(context.Background(), payload)
		s.Require().NoError(err, "version %d", version)

		out, err := s.codec.Serialize(context.Background(), inst)
		s.Require().NoError(err, "version %d", version)
		s.Equal(payload, out, "version %d", version)

		// 未修改实例的再次序列化字节级一致
		again, err := s.codec.Serialize(context.Background(), inst)
		s.Require().NoError(err, "version %d", version)
		s.Equal(out, again, "version %d", version)
	}
}

func (s *ClipSuite) TestMutateAndSerialize() {
	inst, err := s.codec.Parse(context.Background(), buildClipPayload(fullClipFixture(11)))
	s.NoError(err)

	s.NoError(inst.Set("flags", uint32(0xFF)))
	s.True(inst.Dirty())
	s.Equal(codec.StateMutated, inst.State())

	view, err := ViewClip(inst)
	s.NoError(err)
	s.NoError(view.SetEvents([]ClipEvent{{Time: 2, EventHash: 0xE9, Payload: "land"}}))

	out, err := s.codec.Serialize(context.Background(), inst)
	s.NoError(err)
	s.False(inst.Dirty())

	reparsed, err := s.codec.Parse(context.Background(), out)
	s.NoError(err)
	flags, err := codec.FieldAs[uint32](reparsed, "flags")
	s.NoError(err)
	s.Equal(uint32(0xFF), flags)
	reView, err := ViewClip(reparsed)
	s.NoError(err)
	s.Len(reView.Events(), 1)
	s.Equal("land", reView.Events()[0].Payload)
}

func (s *ClipSuite) TestContextCancellation() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.codec.Parse(ctx, buildClipPayload(fullClipFixture(11)))
	s.ErrorIs(err, context.Canceled)

	inst, err := s.codec.Parse(context.Background(), buildClipPayload(fullClipFixture(11)))
	s.NoError(err)
	_, err = s.codec.Serialize(ctx, inst)
	s.ErrorIs(err, context.Canceled)
}

func (s *ClipSuite) TestClipDataSlotBounds() {
	inst, err := s.codec.Parse(context.Background(), nil)
	s.NoError(err)
	view, err := ViewClip(inst)
	s.NoError(err)

	_, err = view.ClipData(2)
	s.ErrorIs(err, merr.ErrParameterInvalid)
	s.ErrorIs(view.SetClipData(-1, nil), merr.ErrParameterInvalid)
}

func TestClip(t *testing.T) {
	suite.Run(t, new(ClipSuite))
}
