package codecs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/asset-garden-go/internal/resource"
	"github.com/lk2023060901/asset-garden-go/internal/resource/binary"
	"github.com/lk2023060901/asset-garden-go/internal/resource/codec"
	"github.com/lk2023060901/asset-garden-go/pkg/util/merr"
)

type ObjectKeySuite struct {
	suite.Suite
	codec *ObjectKeyCodec
}

func (s *ObjectKeySuite) SetupTest() {
	s.codec = NewObjectKeyCodec()
}

func buildObjectKeyPayload(version uint8, key uint64, objectType uint32, data []byte) []byte {
	w := binary.NewWriter()
	w.WriteU8(version)
	w.WriteU64(key)
	w.WriteU32(objectType)
	w.WriteI32(int32(len(data)))
	w.WriteBytes(data)
	return w.Finish()
}

func (s *ObjectKeySuite) TestParse() {
	payload := buildObjectKeyPayload(1, 0xDEADBEEF, 1, nil)
	s.Equal(17, len(payload))

	inst, err := s.codec.Parse(context.Background(), payload)
	s.NoError(err)
	s.Equal(codec.StateParsed, inst.State())
	s.True(inst.Valid())
	s.False(inst.Dirty())
	s.Equal([]string{"key", "objectType", "data"}, inst.FieldNames())

	view, err := ViewObjectKey(inst)
	s.NoError(err)
	s.Equal(uint64(0xDEADBEEF), view.Key())
	s.Equal(uint32(1), view.ObjectType())
	s.Empty(view.Data())
	s.True(view.IsValid())
}

func (s *ObjectKeySuite) TestParseEmptyPayload() {
	inst, err := s.codec.Parse(context.Background(), nil)
	s.NoError(err)
	s.Equal(codec.StateCreated, inst.State())
	s.True(inst.Valid())

	view, err := ViewObjectKey(inst)
	s.NoError(err)
	s.Equal(uint64(0), view.Key())
	s.Equal(uint32(0), view.ObjectType())
	s.False(view.IsValid())
}

func (s *ObjectKeySuite) TestParseFatalErrors() {
	// 版本超出支持范围
	_, err := s.codec.Parse(context.Background(), buildObjectKeyPayload(2, 1, 1, nil))
	s.ErrorIs(err, merr.ErrFormatVersionUnsupported)

	// 头部中途截断
	payload := buildObjectKeyPayload(1, 0xDEADBEEF, 1, nil)
	_, err = s.codec.Parse(context.Background(), payload[:10])
	s.ErrorIs(err, merr.ErrDataTruncated)

	// 声明的数据长度超过剩余字节
	payload = buildObjectKeyPayload(1, 0xDEADBEEF, 1, []byte("abc"))
	_, err = s.codec.Parse(context.Background(), payload[:len(payload)-1])
	s.ErrorIs(err, merr.ErrDataTruncated)
}

func (s *ObjectKeySuite) TestTrailingBytesDegrade() {
	payload := buildObjectKeyPayload(1, 42, 7, []byte("abc"))
	payload = append(payload, 0xEE)

	inst, err := s.codec.Parse(context.Background(), payload)
	s.NoError(err)
	s.False(inst.Valid())
	s.Require().Len(inst.Diagnostics(), 1)
	s.Equal(codec.SectionTrailing, inst.Diagnostics()[0].Section)

	// 已归属的字段不受影响
	view, err := ViewObjectKey(inst)
	s.NoError(err)
	s.Equal(uint64(42), view.Key())
	s.Equal([]byte("abc"), view.Data())
}

func (s *ObjectKeySuite) TestRoundTrip() {
	payload := buildObjectKeyPayload(1, 42, 7, []byte("opaque tail"))

	inst, err := s.codec.Parse(context.Background(), payload)
	s.NoError(err)

	out, err := s.codec.Serialize(context.Background(), inst)
	s.NoError(err)
	s.Equal(payload, out)
	s.Equal(codec.StateSerialized, inst.State())
	s.False(inst.Dirty())

	// 未修改实例的再次序列化字节级一致
	again, err := s.codec.Serialize(context.Background(), inst)
	s.NoError(err)
	s.Equal(out, again)
}

func (s *ObjectKeySuite) TestGenerateKey() {
	inst, err := s.codec.Parse(context.Background(), nil)
	s.NoError(err)
	view, err := ViewObjectKey(inst)
	s.NoError(err)

	err = view.GenerateKey(0)
	s.ErrorIs(err, merr.ErrObjectKeyInvalid)
	s.False(inst.Dirty())

	s.NoError(view.GenerateKey(9))
	s.NotZero(view.Key())
	s.Equal(uint32(9), view.ObjectType())
	s.True(view.IsValid())
	s.True(inst.Dirty())
	s.Equal(codec.StateMutated, inst.State())
}

func (s *ObjectKeySuite) TestViewRejectsWrongType() {
	other := codec.NewInstance(resource.TypeAttrMap, 1)
	_, err := ViewObjectKey(other)
	s.ErrorIs(err, merr.ErrParameterInvalid)

	_, err = ViewObjectKey(nil)
	s.ErrorIs(err, merr.ErrParameterMissing)

	inst, err := s.codec.Parse(context.Background(), nil)
	s.NoError(err)
	inst.Dispose()
	_, err = ViewObjectKey(inst)
	s.ErrorIs(err, merr.ErrInstanceDisposed)
}

func TestObjectKey(t *testing.T) {
	suite.Run(t, new(ObjectKeySuite))
}
