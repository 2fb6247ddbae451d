package codecs

import (
	"strconv"

	"github.com/lk2023060901/asset-garden-go/pkg/util/typeutil"
)

// ValueKind 为关联资源值的封闭类型集合。
type ValueKind uint8

const (
	KindString ValueKind = iota
	KindInt
	KindFloat
	KindBool
	KindBytes
)

var kindNames = map[ValueKind]string{
	KindString: "string",
	KindInt:    "int",
	KindFloat:  "float",
	KindBool:   "bool",
	KindBytes:  "bytes",
}

func (k ValueKind) String() string {
	return kindNames[k]
}

// Value 为小型封闭标签联合。
// 持久化层一律以字符串字节存储，Kind 只存在于内存中；
// 从载荷解析出的值总是 KindString，类型化读取时按需做窄化转换。
type Value struct {
	Kind  ValueKind
	Str   string
	Int   int64
	Float float64
	Bool  bool
	Bytes []byte
}

func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }

func IntValue(i int64) Value { return Value{Kind: KindInt, Int: i} }

func FloatValue(f float64) Value { return Value{Kind: KindFloat, Float: f} }

func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }

func BytesValue(b []byte) Value { return Value{Kind: KindBytes, Bytes: b} }

// encode 返回值的持久化字节。
// KindString 与 KindBytes 逐字节保留，保证解析后的载荷可逐字节还原。
func (v Value) encode() []byte {
	switch v.Kind {
	case KindString:
		return []byte(v.Str)
	case KindInt:
		return []byte(strconv.FormatInt(v.Int, 10))
	case KindFloat:
		return []byte(strconv.FormatFloat(v.Float, 'g', -1, 64))
	case KindBool:
		return []byte(strconv.FormatBool(v.Bool))
	case KindBytes:
		return v.Bytes
	default:
		return nil
	}
}

// AsString 尝试以字符串返回值。
// 任何类型都有字符串表达，因此总是成功。
func (v Value) AsString() (string, bool) {
	if v.Kind == KindString {
		return v.Str, true
	}
	return string(v.encode()), true
}

// AsInt 尝试以 int64 返回值。
// Float 仅在恰好为整数时转换；String 走 strconv 解析；Bool/Bytes 不转换。
func (v Value) AsInt() (int64, bool) {
	switch v.Kind {
	case KindInt:
		return v.Int, true
	case KindFloat:
		if typeutil.IsIntegral(v.Float) {
			return int64(v.Float), true
		}
	case KindString:
		if i, err := strconv.ParseInt(v.Str, 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}

// AsFloat 尝试以 float64 返回值。
func (v Value) AsFloat() (float64, bool) {
	switch v.Kind {
	case KindFloat:
		return v.Float, true
	case KindInt:
		if typeutil.SafeIntToFloat(v.Int) {
			return float64(v.Int), true
		}
	case KindString:
		if f, err := strconv.ParseFloat(v.Str, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// AsBool 尝试以 bool 返回值。
func (v Value) AsBool() (bool, bool) {
	switch v.Kind {
	case KindBool:
		return v.Bool, true
	case KindString:
		if b, err := strconv.ParseBool(v.Str); err == nil {
			return b, true
		}
	case KindInt:
		if v.Int == 0 || v.Int == 1 {
			return v.Int == 1, true
		}
	}
	return false, false
}

// AsBytes 尝试以字节序列返回值。
func (v Value) AsBytes() ([]byte, bool) {
	switch v.Kind {
	case KindBytes:
		return v.Bytes, true
	case KindString:
		return []byte(v.Str), true
	}
	return nil, false
}
