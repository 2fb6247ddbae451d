// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package merr

import (
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

const (
	CanceledCode int32 = 10000
	TimeoutCode  int32 = 10001
)

type ErrorType int32

const (
	SystemError ErrorType = 0
	InputError  ErrorType = 1
)

var ErrorTypeName = map[ErrorType]string{
	SystemError: "system_error",
	InputError:  "input_error",
}

func (err ErrorType) String() string {
	return ErrorTypeName[err]
}

// Define leaf errors here,
// WARN: take care to add new error,
// check whether you can use the errors below before adding a new one.
// Name: Err + related prefix + error name
var (
	// Format related
	// ErrFormatInvalid 表示强制头部解析失败（magic 错误、头部字段非法），属于致命错误。
	ErrFormatInvalid = newZeusError("invalid resource format", 100, false)
	// ErrFormatVersionUnsupported 表示载荷声明的格式版本超出编解码器支持的范围。
	ErrFormatVersionUnsupported = newZeusError("unsupported format version", 101, false)
	// ErrDataTruncated 表示声明长度超过流中剩余字节数。
	// 发生在强制头部时致命；发生在可选扩展段时按降级处理。
	ErrDataTruncated = newZeusError("resource data truncated", 102, false)
	// ErrCapacityExceeded 表示段内记录数超过保守上限，按截断类降级处理，禁止盲目分配。
	ErrCapacityExceeded = newZeusError("declared capacity exceeds sane limit", 103, false)

	// Codec registry related
	ErrCodecNotFound      = newZeusError("codec not found", 200, false)
	ErrCodecHandleInvalid = newZeusError("codec handle invalid", 201, false)

	// Field facade related
	ErrFieldNotFound        = newZeusError("field not found", 300, false)
	ErrFieldIndexOutOfRange = newZeusError("field index out of range", 301, false)
	ErrFieldTypeMismatch    = newZeusError("field value type mismatch", 302, false)

	// Instance lifecycle related
	ErrInstanceDisposed = newZeusError("resource instance disposed", 400, false)

	// Associative resource related
	ErrKeyNotFound      = newZeusError("key not found", 500, false)
	ErrKeyDuplicate     = newZeusError("duplicate key", 501, false)
	ErrPresetCycle      = newZeusError("preset parent chain cycle", 502, false)
	ErrObjectKeyInvalid = newZeusError("object key invalid", 503, false)

	// IO related
	ErrIoFailed      = newZeusError("IO failed", 1000, false)
	ErrIoUnexpectEOF = newZeusError("unexpected EOF", 1001, true)

	// Parameter related
	ErrParameterInvalid = newZeusError("invalid parameter", 1100, false)
	ErrParameterMissing = newZeusError("missing parameter", 1101, false)

	// General
	ErrOperationNotSupported = newZeusError("unsupported operation", 3000, false)

	// Do NOT export this,
	// never allow programmer using this, keep only for converting unknown error to zeusError
	errUnexpected = newZeusError("unexpected error", (1<<16)-1, false)
)

type errorOption func(*zeusError)

func WithDetail(detail string) errorOption {
	return func(err *zeusError) {
		err.detail = detail
	}
}

func WithErrorType(etype ErrorType) errorOption {
	return func(err *zeusError) {
		err.errType = etype
	}
}

type zeusError struct {
	msg       string
	detail    string
	retriable bool
	errCode   int32
	errType   ErrorType
}

func newZeusError(msg string, code int32, retriable bool, options ...errorOption) zeusError {
	err := zeusError{
		msg:       msg,
		detail:    msg,
		retriable: retriable,
		errCode:   code,
	}

	for _, option := range options {
		option(&err)
	}
	return err
}

func (e zeusError) code() int32 {
	return e.errCode
}

func (e zeusError) Error() string {
	return e.msg
}

func (e zeusError) Detail() string {
	return e.detail
}

func (e zeusError) Is(err error) bool {
	cause := errors.Cause(err)
	if cause, ok := cause.(zeusError); ok {
		return e.errCode == cause.errCode
	}
	return false
}

type multiErrors struct {
	errs []error
}

func (e multiErrors) Unwrap() error {
	if len(e.errs) <= 1 {
		return nil
	}
	// To make merr work for multi errors,
	// we need cause of multi errors, which defined as the last error
	if len(e.errs) == 2 {
		return e.errs[1]
	}

	return multiErrors{
		errs: e.errs[1:],
	}
}

func (e multiErrors) Error() string {
	final := e.errs[0]
	for i := 1; i < len(e.errs); i++ {
		final = errors.Wrap(e.errs[i], final.Error())
	}
	return final.Error()
}

func (e multiErrors) Is(err error) bool {
	for _, item := range e.errs {
		if errors.Is(item, err) {
			return true
		}
	}
	return false
}

func Combine(errs ...error) error {
	errs = lo.Filter(errs, func(err error, _ int) bool { return err != nil })
	if len(errs) == 0 {
		return nil
	}
	return multiErrors{
		errs,
	}
}
