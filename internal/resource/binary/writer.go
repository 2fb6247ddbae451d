package binary

import (
	"encoding/binary"
	"math"

	"github.com/valyala/bytebufferpool"

	"github.com/lk2023060901/asset-garden-go/internal/pool/bytebuffer"
)

// Writer 以小端字节序产出资源载荷。
// 底层缓冲来自池，调用方必须以 Finish 或 Discard 结束写入。
type Writer struct {
	bb *bytebufferpool.ByteBuffer
}

func NewWriter() *Writer {
	return &Writer{bb: bytebuffer.Get()}
}

func (w *Writer) WriteU8(v uint8) {
	w.bb.B = append(w.bb.B, v)
}

func (w *Writer) WriteU32(v uint32) {
	w.bb.B = binary.LittleEndian.AppendUint32(w.bb.B, v)
}

func (w *Writer) WriteU64(v uint64) {
	w.bb.B = binary.LittleEndian.AppendUint64(w.bb.B, v)
}

func (w *Writer) WriteI32(v int32) {
	w.WriteU32(uint32(v))
}

func (w *Writer) WriteF32(v float32) {
	w.WriteU32(math.Float32bits(v))
}

func (w *Writer) WriteBytes(p []byte) {
	w.bb.B = append(w.bb.B, p...)
}

// WriteString 写入一个 i32 长度前缀的 UTF-8 字符串。
func (w *Writer) WriteString(s string) {
	w.WriteI32(int32(len(s)))
	w.bb.B = append(w.bb.B, s...)
}

// Len 返回已写入的字节数。
func (w *Writer) Len() int {
	return w.bb.Len()
}

// Finish 返回写入内容的独立副本并归还底层缓冲。
// 调用后 Writer 不可再使用。
func (w *Writer) Finish() []byte {
	out := make([]byte, len(w.bb.B))
	copy(out, w.bb.B)
	bytebuffer.Put(w.bb)
	w.bb = nil
	return out
}

// Discard 丢弃已写入内容并归还底层缓冲。
// 序列化中途取消时使用，调用后 Writer 不可再使用。
func (w *Writer) Discard() {
	bytebuffer.Put(w.bb)
	w.bb = nil
}
