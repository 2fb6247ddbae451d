package repack

import (
	"bytes"
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lk2023060901/asset-garden-go/internal/resource"
	"github.com/lk2023060901/asset-garden-go/internal/resource/registry"
	"github.com/lk2023060901/asset-garden-go/pkg/log"
	"github.com/lk2023060901/asset-garden-go/pkg/metrics"
	"github.com/lk2023060901/asset-garden-go/pkg/util/conc"
	"github.com/lk2023060901/asset-garden-go/pkg/util/hardware"
	"github.com/lk2023060901/asset-garden-go/pkg/util/merr"
	"github.com/lk2023060901/asset-garden-go/pkg/util/retry"
	"github.com/lk2023060901/asset-garden-go/pkg/util/syncutil"
	"github.com/lk2023060901/asset-garden-go/pkg/util/typeutil"
)

// Entry 为归档中的一个待重打包条目。
type Entry struct {
	Name    string
	TypeID  resource.TypeID
	Payload []byte
}

// Source 提供一批条目。Load 失败时按可重试错误处理。
type Source interface {
	Load(ctx context.Context) ([]Entry, error)
}

// Status 为单个条目的重打包结果。
type Status string

const (
	// StatusOK 表示解析后重序列化的字节与源完全一致。
	StatusOK Status = "success"
	// StatusMismatch 表示重序列化结果与源字节不一致，
	// 降级解析后的实例也会落在这一类。
	StatusMismatch Status = "mismatch"
	// StatusSkipped 表示没有编解码器声明该类型，条目原样跳过。
	StatusSkipped Status = "skipped"
	// StatusFailed 表示解析或序列化致命失败。
	StatusFailed Status = "fail"
)

// EntryResult 为单个条目的处理结果。
type EntryResult struct {
	Name   string
	TypeID resource.TypeID
	Status Status
	Output []byte
	Err    error
}

// Report 汇总一次重打包的全部条目结果，顺序与输入一致。
type Report struct {
	Results []EntryResult
}

func (r *Report) count(status Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == status {
			n++
		}
	}
	return n
}

func (r *Report) Succeeded() int  { return r.count(StatusOK) }
func (r *Report) Mismatched() int { return r.count(StatusMismatch) }
func (r *Report) Skipped() int    { return r.count(StatusSkipped) }
func (r *Report) Failed() int     { return r.count(StatusFailed) }

type pipelineConfig struct {
	workers      int
	loadAttempts uint
}

type PipelineOption func(*pipelineConfig)

// WithWorkers 指定并发处理条目的 worker 数量。
func WithWorkers(n int) PipelineOption {
	return func(c *pipelineConfig) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithLoadAttempts 指定源读取的最大重试次数。
func WithLoadAttempts(n uint) PipelineOption {
	return func(c *pipelineConfig) {
		if n > 0 {
			c.loadAttempts = n
		}
	}
}

// Pipeline 将归档条目逐个解析再序列化，并与源字节做比对。
// 字节不一致不视为失败，只计数并记录，由调用方决定是否接受输出。
type Pipeline struct {
	log.Binder

	registry *registry.Registry
	pool     *conc.Pool[EntryResult]
	cfg      pipelineConfig
}

// NewPipeline 创建一个重打包流水线，worker 默认为 CPU 核数。
func NewPipeline(reg *registry.Registry, opts ...PipelineOption) *Pipeline {
	cfg := pipelineConfig{loadAttempts: 3}
	for _, opt := range opts {
		opt(&cfg)
	}

	var pool *conc.Pool[EntryResult]
	if cfg.workers > 0 {
		// worker 数量封顶，避免条目数远大于核数时过度并发
		workers := typeutil.Clamp(cfg.workers, 1, hardware.GetCPUNum()*4)
		pool = conc.NewPool[EntryResult](workers, conc.WithPreAlloc(true))
	} else {
		pool = conc.NewDefaultPool[EntryResult]()
	}

	p := &Pipeline{
		registry: reg,
		pool:     pool,
		cfg:      cfg,
	}
	p.SetLogger(log.With(log.FieldModule("repack")))
	return p
}

// Close 回收流水线持有的 worker。
func (p *Pipeline) Close() {
	p.pool.Release()
}

// Run 从所有源并发读取条目后逐个重打包。
// 条目级失败不会中断流水线，只有 ctx 取消会让整体提前返回。
func (p *Pipeline) Run(ctx context.Context, sources ...Source) (*Report, error) {
	if len(sources) == 0 {
		return nil, merr.WrapErrParameterMissing("sources")
	}

	batches := make([][]Entry, len(sources))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, source := range sources {
		eg.Go(func() error {
			return retry.Do(egCtx, func() error {
				entries, err := source.Load(egCtx)
				if err != nil {
					return err
				}
				batches[i] = entries
				return nil
			}, retry.Attempts(p.cfg.loadAttempts))
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var entries []Entry
	for _, batch := range batches {
		entries = append(entries, batch...)
	}

	futures := make([]*conc.Future[EntryResult], len(entries))
	for i, entry := range entries {
		futures[i] = p.pool.Submit(func() (EntryResult, error) {
			return p.repackEntry(ctx, entry), nil
		})
	}

	report := &Report{Results: make([]EntryResult, len(entries))}
	for i, future := range futures {
		result, err := future.Await()
		if err != nil {
			return nil, err
		}
		report.Results[i] = result
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.Logger().Info("repack finished",
		zap.Int("entries", len(entries)),
		zap.Int("succeeded", report.Succeeded()),
		zap.Int("mismatched", report.Mismatched()),
		zap.Int("skipped", report.Skipped()),
		zap.Int("failed", report.Failed()))
	return report, nil
}

// AsyncResult 为一次后台重打包的最终结果。
type AsyncResult struct {
	Report *Report
	Err    error
}

// RunAsync 在后台执行 Run。
// 通过返回的通知器取消运行或阻塞等待结果。
func (p *Pipeline) RunAsync(sources ...Source) *syncutil.AsyncTaskNotifier[AsyncResult] {
	notifier := syncutil.NewAsyncTaskNotifier[AsyncResult]()
	go func() {
		ctx, span := log.NewIntentContext("repack", "background run")
		defer span.End()

		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		stop := context.AfterFunc(notifier.Context(), cancel)
		defer stop()

		report, err := p.Run(runCtx, sources...)
		notifier.Finish(AsyncResult{Report: report, Err: err})
	}()
	return notifier
}

func (p *Pipeline) repackEntry(ctx context.Context, e Entry) EntryResult {
	result := EntryResult{Name: e.Name, TypeID: e.TypeID}

	if err := ctx.Err(); err != nil {
		result.Status = StatusFailed
		result.Err = err
		metrics.RepackEntryTotal.WithLabelValues(metrics.CancelLabel).Inc()
		return result
	}

	c, ok := p.registry.Resolve(e.TypeID)
	if !ok {
		// 未命中不是错误，条目原样透传
		result.Status = StatusSkipped
		result.Output = e.Payload
		metrics.RepackEntryTotal.WithLabelValues(string(StatusSkipped)).Inc()
		return result
	}

	inst, err := c.Parse(ctx, e.Payload)
	if err != nil {
		result.Status = StatusFailed
		result.Err = err
		metrics.RepackEntryTotal.WithLabelValues(string(StatusFailed)).Inc()
		p.Logger().Warn("entry parse failed",
			zap.String("entry", e.Name),
			log.FieldResourceType(uint32(e.TypeID)),
			zap.Error(err))
		return result
	}
	defer inst.Dispose()

	out, err := c.Serialize(ctx, inst)
	if err != nil {
		result.Status = StatusFailed
		result.Err = err
		metrics.RepackEntryTotal.WithLabelValues(string(StatusFailed)).Inc()
		return result
	}
	result.Output = out

	if !bytes.Equal(out, e.Payload) {
		result.Status = StatusMismatch
		metrics.RepackEntryTotal.WithLabelValues(string(StatusMismatch)).Inc()
		metrics.RepackMismatchTotal.WithLabelValues(e.TypeID.String()).Inc()
		p.Logger().Warn("entry bytes mismatch after repack",
			zap.String("entry", e.Name),
			log.FieldResourceType(uint32(e.TypeID)),
			log.FieldInstance(inst.InstanceID()),
			zap.Bool("degraded", !inst.Valid()),
			zap.Int("sourceBytes", len(e.Payload)),
			zap.Int("outputBytes", len(out)))
		return result
	}

	result.Status = StatusOK
	metrics.RepackEntryTotal.WithLabelValues(string(StatusOK)).Inc()
	return result
}
