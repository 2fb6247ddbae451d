package codecs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/asset-garden-go/internal/resource/binary"
	"github.com/lk2023060901/asset-garden-go/internal/resource/codec"
	"github.com/lk2023060901/asset-garden-go/pkg/util/merr"
)

type PresetSuite struct {
	suite.Suite
	codec *PresetCodec
}

func (s *PresetSuite) SetupTest() {
	s.codec = NewPresetCodec()
}

type presetNodeDef struct {
	name    string
	parent  string
	entries [][2]any // (key uint32, value string)
}

func buildPresetPayload(version uint32, nodes []presetNodeDef) []byte {
	w := binary.NewWriter()
	w.WriteU32(version)
	w.WriteU32(uint32(len(nodes)))
	for _, n := range nodes {
		w.WriteString(n.name)
		w.WriteString(n.parent)
		w.WriteU32(uint32(len(n.entries)))
		for _, e := range n.entries {
			w.WriteU32(e[0].(uint32))
			w.WriteString(e[1].(string))
		}
	}
	return w.Finish()
}

func (s *PresetSuite) TestParse() {
	payload := buildPresetPayload(1, []presetNodeDef{
		{name: "base", entries: [][2]any{{uint32(1), "red"}, {uint32(2), "10"}}},
		{name: "child", parent: "base", entries: [][2]any{{uint32(2), "20"}}},
	})

	inst, err := s.codec.Parse(context.Background(), payload)
	s.NoError(err)
	s.Equal(codec.StateParsed, inst.State())
	s.True(inst.Valid())

	view, err := ViewPreset(inst)
	s.NoError(err)
	s.Equal([]string{"base", "child"}, view.Names())

	child, ok := view.Node("child")
	s.True(ok)
	s.Equal("base", child.Parent())
}

func (s *PresetSuite) TestTrailingBytesDegrade() {
	payload := buildPresetPayload(1, []presetNodeDef{
		{name: "base", entries: [][2]any{{uint32(1), "red"}}},
	})
	payload = append(payload, 0x7F)

	inst, err := s.codec.Parse(context.Background(), payload)
	s.NoError(err)
	s.False(inst.Valid())
	s.Require().Len(inst.Diagnostics(), 1)
	s.Equal(codec.SectionTrailing, inst.Diagnostics()[0].Section)

	view, err := ViewPreset(inst)
	s.NoError(err)
	s.Equal([]string{"base"}, view.Names())
}

func (s *PresetSuite) TestInheritance() {
	payload := buildPresetPayload(1, []presetNodeDef{
		{name: "base", entries: [][2]any{{uint32(1), "red"}, {uint32(2), "10"}}},
		{name: "child", parent: "base", entries: [][2]any{{uint32(2), "20"}}},
	})

	inst, err := s.codec.Parse(context.Background(), payload)
	s.NoError(err)
	view, err := ViewPreset(inst)
	s.NoError(err)
	child, _ := view.Node("child")

	// 本节点覆盖父节点
	v, ok := child.GetValue(2)
	s.True(ok)
	str, _ := v.AsString()
	s.Equal("20", str)

	// 本节点未命中沿父链上溯
	v, ok = child.GetValue(1)
	s.True(ok)
	str, _ = v.AsString()
	s.Equal("red", str)

	_, ok = child.GetValue(99)
	s.False(ok)

	// 写入只影响本节点
	s.NoError(child.SetValue(1, StringValue("blue")))
	base, _ := view.Node("base")
	v, _ = base.GetValue(1)
	str, _ = v.AsString()
	s.Equal("red", str)
}

func (s *PresetSuite) TestCycleRejected() {
	inst, err := s.codec.Parse(context.Background(), nil)
	s.NoError(err)
	view, err := ViewPreset(inst)
	s.NoError(err)

	a, err := view.AddNode("a")
	s.NoError(err)
	b, err := view.AddNode("b")
	s.NoError(err)
	c, err := view.AddNode("c")
	s.NoError(err)

	s.NoError(b.SetParent("a"))
	s.NoError(c.SetParent("b"))

	// a → b → a 构成环，拒绝且不产生任何变更
	err = a.SetParent("b")
	s.ErrorIs(err, merr.ErrPresetCycle)
	s.Equal("", a.Parent())

	err = a.SetParent("c")
	s.ErrorIs(err, merr.ErrPresetCycle)
	s.Equal("", a.Parent())

	// 自指也是环
	err = a.SetParent("a")
	s.ErrorIs(err, merr.ErrPresetCycle)

	// 解除父节点
	s.NoError(b.SetParent(""))
	s.Equal("", b.Parent())

	err = a.SetParent("missing")
	s.ErrorIs(err, merr.ErrKeyNotFound)
}

func (s *PresetSuite) TestDuplicateNodeNameDegrades() {
	payload := buildPresetPayload(1, []presetNodeDef{
		{name: "same"},
		{name: "same"},
	})

	inst, err := s.codec.Parse(context.Background(), payload)
	s.NoError(err)
	s.False(inst.Valid())

	view, err := ViewPreset(inst)
	s.NoError(err)
	s.Empty(view.Names())
}

func (s *PresetSuite) TestAddNodeDuplicate() {
	inst, err := s.codec.Parse(context.Background(), nil)
	s.NoError(err)
	view, err := ViewPreset(inst)
	s.NoError(err)

	_, err = view.AddNode("x")
	s.NoError(err)
	_, err = view.AddNode("x")
	s.ErrorIs(err, merr.ErrKeyDuplicate)
}

func (s *PresetSuite) TestRemoveValue() {
	inst, err := s.codec.Parse(context.Background(), nil)
	s.NoError(err)
	view, err := ViewPreset(inst)
	s.NoError(err)

	n, err := view.AddNode("n")
	s.NoError(err)
	s.NoError(n.SetValue(1, StringValue("a")))
	s.NoError(n.SetValue(2, StringValue("b")))

	removed, err := n.RemoveValue(1)
	s.NoError(err)
	s.True(removed)
	removed, err = n.RemoveValue(1)
	s.NoError(err)
	s.False(removed)

	v, ok := n.GetValue(2)
	s.True(ok)
	str, _ := v.AsString()
	s.Equal("b", str)
}

func (s *PresetSuite) TestVersionUnsupported() {
	payload := buildPresetPayload(2, nil)
	_, err := s.codec.Parse(context.Background(), payload)
	s.ErrorIs(err, merr.ErrFormatVersionUnsupported)
}

func (s *PresetSuite) TestRoundTrip() {
	payload := buildPresetPayload(1, []presetNodeDef{
		{name: "base", entries: [][2]any{{uint32(1), "red"}}},
		{name: "mid", parent: "base", entries: [][2]any{{uint32(2), "二"}}},
		{name: "leaf", parent: "mid"},
	})

	inst, err := s.codec.Parse(context.Background(), payload)
	s.NoError(err)

	out, err := s.codec.Serialize(context.Background(), inst)
	s.NoError(err)
	s.Equal(payload, out)
}

func TestPreset(t *testing.T) {
	suite.Run(t, new(PresetSuite))
}
