package binary

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/asset-garden-go/pkg/util/merr"
)

type BinarySuite struct {
	suite.Suite
}

func (s *BinarySuite) TestRoundTrip() {
	w := NewWriter()
	w.WriteU8(7)
	w.WriteU32(0xDEADBEEF)
	w.WriteU64(1<<40 | 5)
	w.WriteI32(-12)
	w.WriteF32(3.5)
	w.WriteString("rig_main")
	w.WriteBytes([]byte{1, 2, 3})
	payload := w.Finish()

	r := NewReader(payload)
	u8, err := r.ReadU8("t")
	s.NoError(err)
	s.Equal(uint8(7), u8)

	u32, err := r.ReadU32("t")
	s.NoError(err)
	s.Equal(uint32(0xDEADBEEF), u32)

	u64, err := r.ReadU64("t")
	s.NoError(err)
	s.Equal(uint64(1<<40|5), u64)

	i32, err := r.ReadI32("t")
	s.NoError(err)
	s.Equal(int32(-12), i32)

	f32, err := r.ReadF32("t")
	s.NoError(err)
	s.Equal(float32(3.5), f32)

	str, err := r.ReadString("t")
	s.NoError(err)
	s.Equal("rig_main", str)

	tail, err := r.ReadBytes("t", 3)
	s.NoError(err)
	s.Equal([]byte{1, 2, 3}, tail)
	s.True(r.EOF())
}

func (s *BinarySuite) TestTruncated() {
	r := NewReader([]byte{1, 2})
	_, err := r.ReadU32("header")
	s.ErrorIs(err, merr.ErrDataTruncated)
	// 失败的读取不移动偏移。
	s.Equal(0, r.Offset())
}

func (s *BinarySuite) TestNegativeStringLength() {
	w := NewWriter()
	w.WriteI32(-1)
	payload := w.Finish()

	r := NewReader(payload)
	_, err := r.ReadString("name")
	s.ErrorIs(err, merr.ErrFormatInvalid)
}

func (s *BinarySuite) TestCountCap() {
	w := NewWriter()
	w.WriteU32(5000)
	payload := w.Finish()

	r := NewReader(payload)
	_, err := r.ReadCount("events", 1000, 0)
	s.ErrorIs(err, merr.ErrCapacityExceeded)
}

func (s *BinarySuite) TestCountRecordSizeAgainstRemaining() {
	w := NewWriter()
	w.WriteU32(10)
	w.WriteU64(0) // 只有 8 字节，远少于 10 条 16 字节记录
	payload := w.Finish()

	r := NewReader(payload)
	_, err := r.ReadCount("pairs", 1000, 16)
	s.ErrorIs(err, merr.ErrDataTruncated)
}

func (s *BinarySuite) TestDiscard() {
	w := NewWriter()
	w.WriteU32(1)
	s.Equal(4, w.Len())
	w.Discard()
}

func TestBinary(t *testing.T) {
	suite.Run(t, new(BinarySuite))
}
