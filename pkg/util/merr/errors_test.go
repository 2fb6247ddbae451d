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
	"context"
	"os"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/suite"
)

type ErrSuite struct {
	suite.Suite
}

func (s *ErrSuite) TestCode() {
	err := WrapErrCodecNotFound(0x2011)
	errors.Wrap(err, "failed to resolve codec")
	s.ErrorIs(err, ErrCodecNotFound)
	s.Equal(Code(ErrCodecNotFound), Code(err))
	s.Equal(TimeoutCode, Code(context.DeadlineExceeded))
	s.Equal(CanceledCode, Code(context.Canceled))
	s.Equal(errUnexpected.errCode, Code(errUnexpected))
	s.Equal(int32(0), Code(nil))

	sameCodeErr := newZeusError("new error", ErrCodecNotFound.errCode, false)
	s.True(sameCodeErr.Is(ErrCodecNotFound))
}

func (s *ErrSuite) TestWrap() {
	// Format 相关错误。
	s.ErrorIs(WrapErrFormatInvalid(0x2011, "bad magic", "parse header"), ErrFormatInvalid)
	s.ErrorIs(WrapErrFormatVersionUnsupported(0x2011, 12, 11), ErrFormatVersionUnsupported)
	s.ErrorIs(WrapErrDataTruncated("track table", 128, 16, "parse body"), ErrDataTruncated)
	s.ErrorIs(WrapErrCapacityExceeded("track table", 100000, 1000), ErrCapacityExceeded)

	// Registry 相关错误。
	s.ErrorIs(WrapErrCodecNotFound(0x2011, "resolve"), ErrCodecNotFound)
	s.ErrorIs(WrapErrCodecHandleInvalid(42, "unregister"), ErrCodecHandleInvalid)

	// 字段门面相关错误。
	s.ErrorIs(WrapErrFieldNotFound("duration", "failed to get field"), ErrFieldNotFound)
	s.ErrorIs(WrapErrFieldIndexOutOfRange(9, 4), ErrFieldIndexOutOfRange)
	s.ErrorIs(WrapErrFieldTypeMismatch("duration", "float64", "string"), ErrFieldTypeMismatch)

	// 实例生命周期相关错误。
	s.ErrorIs(WrapErrInstanceDisposed(0x2011, "set field"), ErrInstanceDisposed)

	// 关联资源相关错误。
	s.ErrorIs(WrapErrKeyNotFound("blend_time"), ErrKeyNotFound)
	s.ErrorIs(WrapErrKeyDuplicate("blend_time", "insert"), ErrKeyDuplicate)
	s.ErrorIs(WrapErrPresetCycle("walk", "run"), ErrPresetCycle)
	s.ErrorIs(WrapErrObjectKeyInvalid(0, 7), ErrObjectKeyInvalid)

	// IO 相关错误。
	s.ErrorIs(WrapErrIoFailed("test_key", os.ErrClosed), ErrIoFailed)
	s.ErrorIs(WrapErrIoUnexpectEOF("test_key", os.ErrClosed), ErrIoUnexpectEOF)
	s.NoError(WrapErrIoFailed("test_key", nil))

	// 参数相关错误。
	s.ErrorIs(WrapErrParameterInvalid(8, 1, "failed to create"), ErrParameterInvalid)
	s.ErrorIs(WrapErrParameterInvalidRange(1, 1<<16, 0, "count should be in range"), ErrParameterInvalid)
	s.ErrorIs(WrapErrParameterInvalidMsg("unexpected kind %d", 99), ErrParameterInvalid)
	s.ErrorIs(WrapErrParameterMissing("type_id", "no type parameter"), ErrParameterMissing)
}

func (s *ErrSuite) TestRetriable() {
	s.False(IsRetryableErr(ErrFormatInvalid))
	s.False(IsRetryableErr(ErrKeyNotFound))
	s.True(IsRetryableErr(ErrIoUnexpectEOF))
}

func (s *ErrSuite) TestErrorType() {
	err := WrapErrParameterInvalid(8, 1)
	s.Equal(SystemError, GetErrorType(err))

	err = WrapErrAsInputError(WrapErrParameterInvalid(8, 1))
	s.Equal(InputError, GetErrorType(err))
	s.Equal("input_error", GetErrorType(err).String())

	err = WrapErrAsInputErrorWhen(WrapErrKeyDuplicate("k"), ErrKeyDuplicate)
	s.Equal(InputError, GetErrorType(err))

	err = WrapErrAsInputErrorWhen(WrapErrKeyDuplicate("k"), ErrKeyNotFound)
	s.Equal(SystemError, GetErrorType(err))
}

func (s *ErrSuite) TestIsCanceledOrTimeout() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.True(IsCanceledOrTimeout(ctx.Err()))
	s.False(IsCanceledOrTimeout(ErrIoFailed))
}

func (s *ErrSuite) TestCombine() {
	var (
		errFirst  = errors.New("first")
		errSecond = errors.New("second")
		errThird  = errors.New("third")
	)

	err := Combine(errFirst, errSecond)
	s.True(errors.Is(err, errFirst))
	s.True(errors.Is(err, errSecond))
	s.False(errors.Is(err, errThird))

	s.Equal("first: second", err.Error())
}

func (s *ErrSuite) TestCombineWithNil() {
	err := errors.New("non-nil")

	err = Combine(nil, err)
	s.NotNil(err)
}

func (s *ErrSuite) TestCombineOnlyNil() {
	err := Combine(nil, nil)
	s.Nil(err)
}

func (s *ErrSuite) TestCombineCode() {
	err := Combine(WrapErrKeyNotFound("k"), WrapErrCodecNotFound(1))
	s.Equal(Code(ErrCodecNotFound), Code(err))
}

func TestErrors(t *testing.T) {
	suite.Run(t, new(ErrSuite))
}
