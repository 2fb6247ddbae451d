package codec

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lk2023060901/asset-garden-go/internal/resource/binary"
	"github.com/lk2023060901/asset-garden-go/pkg/log"
	"github.com/lk2023060901/asset-garden-go/pkg/metrics"
	"github.com/lk2023060901/asset-garden-go/pkg/util/merr"
)

// DefaultSectionCap 为单个记录段的保守条目数上限。
// 超过上限的声明按截断类降级处理，绝不按声明值分配内存。
const DefaultSectionCap = 1000

// SectionTrailing 为尾部残留字节降级诊断使用的段名。
const SectionTrailing = "trailing-bytes"

// Rule 描述一个按版本门控的扩展段。
// 段仅在实例版本不低于 MinVersion 时读写；规则顺序即持久化顺序。
type Rule struct {
	Name       string
	MinVersion uint32
	Read       func(ctx context.Context, r *binary.Reader, inst *Instance) error
	Write      func(ctx context.Context, w *binary.Writer, inst *Instance) error
}

// ReadSections 依序执行版本门控的段读取。
//
// 段读取失败按降级处理：放弃该段、清除实例有效性标记、记录诊断，
// 然后继续后面的段。只有 ctx 取消/超时会中断整个解析。
func ReadSections(ctx context.Context, r *binary.Reader, inst *Instance, rules []Rule) error {
	for _, rule := range rules {
		if err := ctx.Err(); err != nil {
			return err
		}
		if inst.Version() < rule.MinVersion {
			continue
		}
		if err := rule.Read(ctx, r, inst); err != nil {
			if merr.IsCanceledOrTimeout(err) {
				return err
			}
			log.Ctx(ctx).RatedWarn(1, "optional section degraded",
				log.FieldResourceType(uint32(inst.TypeID())),
				log.FieldVersion(inst.Version()),
				zap.String("section", rule.Name),
				zap.Error(err))
			metrics.ParseDegradedSections.WithLabelValues(inst.TypeID().String()).Inc()
			inst.Degrade(rule.Name, err)
		}
	}

	// 规则跑完后载荷必须恰好读尽。残留的尾部字节不属于任何段，
	// 重序列化会直接丢弃它们，因此同样按降级处理。
	if !r.EOF() {
		err := merr.WrapErrFormatInvalid(inst.TypeID(),
			fmt.Sprintf("%d trailing bytes after last section", r.Remaining()))
		log.Ctx(ctx).RatedWarn(1, "trailing bytes after last section",
			log.FieldResourceType(uint32(inst.TypeID())),
			log.FieldVersion(inst.Version()),
			zap.Int("remaining", r.Remaining()))
		metrics.ParseDegradedSections.WithLabelValues(inst.TypeID().String()).Inc()
		inst.Degrade(SectionTrailing, err)
	}
	return nil
}

// WriteSections 依序执行版本门控的段写出。
// 写出不做降级：实例内存状态总是可写的，错误只能来自 ctx 取消。
func WriteSections(ctx context.Context, w *binary.Writer, inst *Instance, rules []Rule) error {
	for _, rule := range rules {
		if err := ctx.Err(); err != nil {
			return err
		}
		if inst.Version() < rule.MinVersion {
			continue
		}
		if err := rule.Write(ctx, w, inst); err != nil {
			return err
		}
	}
	return nil
}
