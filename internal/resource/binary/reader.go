package binary

import (
	"encoding/binary"
	"math"

	"github.com/lk2023060901/asset-garden-go/pkg/util/merr"
)

// Reader 在单个字节载荷上做带边界检查的小端读取。
// 所有读取操作都先校验剩余长度，绝不越界访问。
type Reader struct {
	buf []byte
	off int
}

func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Remaining 返回尚未读取的字节数。
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

// Offset 返回当前读取位置。
func (r *Reader) Offset() int {
	return r.off
}

// EOF 判断载荷是否已读完。
func (r *Reader) EOF() bool {
	return r.off >= len(r.buf)
}

func (r *Reader) require(section string, n int) error {
	if remaining := r.Remaining(); remaining < n {
		return merr.WrapErrDataTruncated(section, n, remaining)
	}
	return nil
}

func (r *Reader) ReadU8(section string) (uint8, error) {
	if err := r.require(section, 1); err != nil {
		return 0, err
	}
	v := r.buf[r.off]
	r.off++
	return v, nil
}

func (r *Reader) ReadU32(section string) (uint32, error) {
	if err := r.require(section, 4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v, nil
}

func (r *Reader) ReadU64(section string) (uint64, error) {
	if err := r.require(section, 8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v, nil
}

func (r *Reader) ReadI32(section string) (int32, error) {
	v, err := r.ReadU32(section)
	return int32(v), err
}

func (r *Reader) ReadF32(section string) (float32, error) {
	v, err := r.ReadU32(section)
	return math.Float32frombits(v), err
}

// ReadBytes 读取 n 字节并返回独立副本。
func (r *Reader) ReadBytes(section string, n int) ([]byte, error) {
	if n < 0 {
		return nil, merr.WrapErrFormatInvalid(section, "negative byte length")
	}
	if err := r.require(section, n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, r.buf[r.off:r.off+n])
	r.off += n
	return out, nil
}

// ReadString 读取一个 i32 长度前缀的 UTF-8 字符串。
func (r *Reader) ReadString(section string) (string, error) {
	n, err := r.ReadI32(section)
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", merr.WrapErrFormatInvalid(section, "negative string length")
	}
	raw, err := r.ReadBytes(section, int(n))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// ReadCount 读取记录段的 u32 条目数，并在分配存储之前做双重校验：
// 条目数不得超过保守上限 limit，且按 recordSize 估算的总字节数不得超过剩余长度。
func (r *Reader) ReadCount(section string, limit, recordSize int) (int, error) {
	raw, err := r.ReadU32(section)
	if err != nil {
		return 0, err
	}
	count := int(raw)
	if count > limit {
		return 0, merr.WrapErrCapacityExceeded(section, count, limit)
	}
	if recordSize > 0 {
		if need := count * recordSize; need > r.Remaining() {
			return 0, merr.WrapErrDataTruncated(section, need, r.Remaining())
		}
	}
	return count, nil
}
