package codecs

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/asset-garden-go/internal/resource"
	"github.com/lk2023060901/asset-garden-go/internal/resource/binary"
	"github.com/lk2023060901/asset-garden-go/internal/resource/codec"
	"github.com/lk2023060901/asset-garden-go/pkg/util/merr"
)

type NGMPSuite struct {
	suite.Suite
	codec *NGMPCodec
}

func (s *NGMPSuite) SetupTest() {
	s.codec = NewNGMPCodec()
}

func buildNGMPPayload(version uint32, pairs []Pair) []byte {
	w := binary.NewWriter()
	w.WriteU32(version)
	w.WriteU32(uint32(len(pairs)))
	for _, p := range pairs {
		w.WriteU64(uint64(p.Hash))
		w.WriteU64(uint64(p.Instance))
	}
	return w.Finish()
}

func (s *NGMPSuite) TestParse() {
	payload := buildNGMPPayload(1, []Pair{
		{Hash: 0x1111, Instance: 100},
		{Hash: 0x2222, Instance: 200},
	})

	inst, err := s.codec.Parse(context.Background(), payload)
	s.NoError(err)
	s.Equal(codec.StateParsed, inst.State())
	s.True(inst.Valid())

	view, err := ViewNGMP(inst)
	s.NoError(err)
	s.Equal(2, view.Len())

	id, ok := view.GetInstance(0x2222)
	s.True(ok)
	s.Equal(resource.InstanceID(200), id)
	_, ok = view.GetInstance(0x3333)
	s.False(ok)
}

func (s *NGMPSuite) TestVersionMustMatchExactly() {
	_, err := s.codec.Parse(context.Background(), buildNGMPPayload(0, nil))
	s.ErrorIs(err, merr.ErrFormatVersionUnsupported)

	_, err = s.codec.Parse(context.Background(), buildNGMPPayload(2, nil))
	s.ErrorIs(err, merr.ErrFormatVersionUnsupported)
}

func (s *NGMPSuite) TestDuplicateHashDegrades() {
	payload := buildNGMPPayload(1, []Pair{
		{Hash: 1, Instance: 10},
		{Hash: 1, Instance: 20},
	})

	inst, err := s.codec.Parse(context.Background(), payload)
	s.NoError(err)
	s.False(inst.Valid())

	view, err := ViewNGMP(inst)
	s.NoError(err)
	s.Equal(0, view.Len())
}

func (s *NGMPSuite) TestTrailingBytesDegrade() {
	payload := buildNGMPPayload(1, []Pair{{Hash: 1, Instance: 10}})
	payload = append(payload, 0x00, 0x01)

	inst, err := s.codec.Parse(context.Background(), payload)
	s.NoError(err)
	s.False(inst.Valid())
	s.Require().Len(inst.Diagnostics(), 1)
	s.Equal(codec.SectionTrailing, inst.Diagnostics()[0].Section)

	view, err := ViewNGMP(inst)
	s.NoError(err)
	s.Equal(1, view.Len())
}

func (s *NGMPSuite) TestUpsertKeepsHashUnique() {
	inst, err := s.codec.Parse(context.Background(), nil)
	s.NoError(err)
	view, err := ViewNGMP(inst)
	s.NoError(err)

	s.NoError(view.Upsert(0xAAAA, 1))
	s.NoError(view.Upsert(0xBBBB, 2))
	s.NoError(view.Upsert(0xAAAA, 3))

	s.Equal(2, view.Len())
	id, ok := view.GetInstance(0xAAAA)
	s.True(ok)
	s.Equal(resource.InstanceID(3), id)

	// 被替换的哈希移动到列表末尾
	pairs := view.Pairs()
	s.Equal(resource.NameHash(0xBBBB), pairs[0].Hash)
	s.Equal(resource.NameHash(0xAAAA), pairs[1].Hash)
	s.True(inst.Dirty())
}

func (s *NGMPSuite) TestRemoveAndClear() {
	inst, err := s.codec.Parse(context.Background(), buildNGMPPayload(1, []Pair{
		{Hash: 1, Instance: 10},
		{Hash: 2, Instance: 20},
		{Hash: 3, Instance: 30},
	}))
	s.NoError(err)
	view, err := ViewNGMP(inst)
	s.NoError(err)

	removed, err := view.Remove(2)
	s.NoError(err)
	s.True(removed)
	removed, err = view.Remove(2)
	s.NoError(err)
	s.False(removed)

	// 删除后列表顺序与索引保持一致
	s.Equal(2, view.Len())
	id, ok := view.GetInstance(3)
	s.True(ok)
	s.Equal(resource.InstanceID(30), id)

	s.NoError(view.Clear())
	s.Equal(0, view.Len())
}

func (s *NGMPSuite) TestRoundTrip() {
	payload := buildNGMPPayload(1, []Pair{
		{Hash: 0xDEAD, Instance: 1},
		{Hash: 0xBEEF, Instance: 2},
	})

	inst, err := s.codec.Parse(context.Background(), payload)
	s.NoError(err)

	out, err := s.codec.Serialize(context.Background(), inst)
	s.NoError(err)
	s.Equal(payload, out)
}

func (s *NGMPSuite) TestConcurrentAccess() {
	inst, err := s.codec.Parse(context.Background(), nil)
	s.NoError(err)
	view, err := ViewNGMP(inst)
	s.NoError(err)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(2)
		base := resource.NameHash(g * 1000)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				_ = view.Upsert(base+resource.NameHash(i%50), resource.InstanceID(i))
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				view.GetInstance(base + resource.NameHash(i%50))
				view.Len()
				if i%10 == 0 {
					view.Pairs()
				}
			}
		}()
	}
	wg.Wait()

	// 每个 goroutine 最多写入 50 个不同哈希
	s.LessOrEqual(view.Len(), 200)
	_, err = s.codec.Serialize(context.Background(), inst)
	s.NoError(err)
}

func TestNGMP(t *testing.T) {
	suite.Run(t, new(NGMPSuite))
}
