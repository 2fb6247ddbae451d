// Copyright 2019 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

// DefaultTimeFormat 为文本日志的时间格式。
const DefaultTimeFormat = "2006/01/02 15:04:05.000 -07:00"

// NewTextEncoderByConfig 根据配置创建日志编码器。
// Format 为 json 时返回 JSON 编码器，否则返回文本编码器。
func NewTextEncoderByConfig(cfg *Config) zapcore.Encoder {
	cc := zapcore.EncoderConfig{
		MessageKey:     "message",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "logger",
		CallerKey:      "caller",
		StacktraceKey:  "stack",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     encodeTime,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if cfg.DisableTimestamp {
		cc.TimeKey = zapcore.OmitKey
	}
	if strings.EqualFold(cfg.Format, "json") {
		return zapcore.NewJSONEncoder(cc)
	}
	return &textEncoder{
		Encoder:             zapcore.NewConsoleEncoder(cc),
		disableErrorVerbose: cfg.DisableErrorVerbose,
	}
}

func encodeTime(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format(DefaultTimeFormat))
}

// textEncoder 为文本编码器，在控制台编码器之上保留 With 字段的有序追加语义。
type textEncoder struct {
	zapcore.Encoder
	disableErrorVerbose bool
}

// addFields 将字段追加到编码器自身携带的上下文中。
// textIOCore#With 依赖该方法保持字段顺序稳定。
func (t *textEncoder) addFields(fields []zapcore.Field) {
	for i := range fields {
		if fields[i].Type == zapcore.ErrorType && t.disableErrorVerbose {
			fields[i] = zapcore.Field{
				Key:    fields[i].Key,
				Type:   zapcore.StringType,
				String: fields[i].Interface.(error).Error(),
			}
		}
		fields[i].AddTo(t.Encoder)
	}
}

func (t *textEncoder) Clone() zapcore.Encoder {
	return &textEncoder{
		Encoder:             t.Encoder.Clone(),
		disableErrorVerbose: t.disableErrorVerbose,
	}
}
