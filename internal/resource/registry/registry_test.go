package registry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/asset-garden-go/internal/resource"
	"github.com/lk2023060901/asset-garden-go/internal/resource/codec"
	"github.com/lk2023060901/asset-garden-go/pkg/util/merr"
)

// stubCodec 只用于区分注册项，不做真实编解码。
type stubCodec struct {
	name string
}

func (c *stubCodec) Parse(ctx context.Context, payload []byte) (*codec.Instance, error) {
	return nil, merr.ErrOperationNotSupported
}

func (c *stubCodec) Serialize(ctx context.Context, inst *codec.Instance) ([]byte, error) {
	return nil, merr.ErrOperationNotSupported
}

type RegistrySuite struct {
	suite.Suite

	registry *Registry
}

func (s *RegistrySuite) SetupTest() {
	s.registry = NewRegistry()
}

func (s *RegistrySuite) TestRegisterValidation() {
	_, err := s.registry.Register(codec.Descriptor{Priority: 1, Codec: &stubCodec{}})
	s.ErrorIs(err, merr.ErrParameterMissing)

	_, err = s.registry.Register(codec.Descriptor{TypeIDs: []resource.TypeID{1}})
	s.ErrorIs(err, merr.ErrParameterMissing)
}

func (s *RegistrySuite) TestResolveMiss() {
	got, ok := s.registry.Resolve(resource.TypeClipHeader)
	s.False(ok)
	s.Nil(got)
}

func (s *RegistrySuite) TestPriorityResolution() {
	low := &stubCodec{name: "low"}
	high := &stubCodec{name: "high"}

	// 高优先级后注册。
	_, err := s.registry.Register(codec.Descriptor{
		TypeIDs: []resource.TypeID{resource.TypeClipHeader}, Priority: 1, Codec: low,
	})
	s.NoError(err)
	_, err = s.registry.Register(codec.Descriptor{
		TypeIDs: []resource.TypeID{resource.TypeClipHeader}, Priority: 10, Codec: high,
	})
	s.NoError(err)

	got, ok := s.registry.Resolve(resource.TypeClipHeader)
	s.True(ok)
	s.Same(high, got)

	// 高优先级先注册，结果与注册顺序无关。
	r2 := NewRegistry()
	r2.Register(codec.Descriptor{
		TypeIDs: []resource.TypeID{resource.TypeClipHeader}, Priority: 10, Codec: high,
	})
	r2.Register(codec.Descriptor{
		TypeIDs: []resource.TypeID{resource.TypeClipHeader}, Priority: 1, Codec: low,
	})
	got, ok = r2.Resolve(resource.TypeClipHeader)
	s.True(ok)
	s.Same(high, got)
}

func (s *RegistrySuite) TestEqualPriorityTieBreak() {
	first := &stubCodec{name: "first"}
	second := &stubCodec{name: "second"}

	s.registry.Register(codec.Descriptor{
		TypeIDs: []resource.TypeID{resource.TypeAttrMap}, Priority: 5, Codec: first,
	})
	s.registry.Register(codec.Descriptor{
		TypeIDs: []resource.TypeID{resource.TypeAttrMap}, Priority: 5, Codec: second,
	})

	// 优先级相同时后注册者胜出。
	got, ok := s.registry.Resolve(resource.TypeAttrMap)
	s.True(ok)
	s.Same(second, got)
}

func (s *RegistrySuite) TestUnregister() {
	c := &stubCodec{}
	handle, err := s.registry.Register(codec.Descriptor{
		TypeIDs: []resource.TypeID{resource.TypeNGMP, resource.TypePreset}, Priority: 1, Codec: c,
	})
	s.NoError(err)
	s.Equal(1, s.registry.Size())

	s.NoError(s.registry.Unregister(handle))
	s.Equal(0, s.registry.Size())

	_, ok := s.registry.Resolve(resource.TypeNGMP)
	s.False(ok)
	_, ok = s.registry.Resolve(resource.TypePreset)
	s.False(ok)

	s.ErrorIs(s.registry.Unregister(handle), merr.ErrCodecHandleInvalid)
}

func (s *RegistrySuite) TestResolveAlias() {
	c := &stubCodec{}
	s.registry.Register(codec.Descriptor{
		TypeIDs: []resource.TypeID{resource.TypeNGMP}, Priority: 1, Codec: c,
	})

	got, ok := s.registry.ResolveAlias("ngmp")
	s.True(ok)
	s.Same(c, got)

	_, ok = s.registry.ResolveAlias("no_such_alias")
	s.False(ok)
}

func (s *RegistrySuite) TestConcurrentResolveAndRegister() {
	c := &stubCodec{}
	var wg sync.WaitGroup

	for g := 0; g < 4; g++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				handle, err := s.registry.Register(codec.Descriptor{
					TypeIDs: []resource.TypeID{resource.TypeObjectKey}, Priority: i, Codec: c,
				})
				s.NoError(err)
				s.NoError(s.registry.Unregister(handle))
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				// 任何时刻都只能看到完整快照：要么命中要么未命中，绝不 panic。
				if got, ok := s.registry.Resolve(resource.TypeObjectKey); ok {
					s.NotNil(got)
				}
			}
		}()
	}
	wg.Wait()
}

func TestRegistry(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}
