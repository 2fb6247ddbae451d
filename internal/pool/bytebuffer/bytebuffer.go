package bytebuffer

import (
	"github.com/valyala/bytebufferpool"
)

// serializePool 为序列化输出缓冲专用的池，与其它用途的缓冲隔离，
// 避免超大资源的缓冲长期滞留在通用池中。
var serializePool bytebufferpool.Pool

// Get 从池中取出一个空缓冲。
func Get() *bytebufferpool.ByteBuffer {
	return serializePool.Get()
}

// Put 将缓冲归还池中，归还后调用方不得再持有该缓冲。
func Put(buf *bytebufferpool.ByteBuffer) {
	serializePool.Put(buf)
}
