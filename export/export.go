// Package export 串联布局与渲染，输出单份标签或批量标签文档。
package export

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ByLCY/labelkit/binding"
	"github.com/ByLCY/labelkit/design"
	"github.com/ByLCY/labelkit/labeldata"
	"github.com/ByLCY/labelkit/layout"
	"github.com/ByLCY/labelkit/renderer"
)

// 文档命名模板，占位符由 binding 替换。
const (
	singleNamePattern   = "${sku}-${batch}-${date}.pdf"
	copyNamePattern     = "${sku}-${batch}-${current}-of-${total}.pdf"
	combinedNamePattern = "${sku}-${batch}-${first}-${last}.pdf"
	fallbackName        = "label"
)

// Policy 决定批量导出时如何产出文档。
type Policy string

const (
	// PolicyPerCopy 每份标签一个文档，按顺序逐个交给 Sink。
	PolicyPerCopy Policy = "per-copy"
	// PolicySingleDocument 所有份数合并为一个多页文档。
	PolicySingleDocument Policy = "single"
)

// ParsePolicy 解析命令行/配置中的策略名，空字符串视为 per-copy。
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", string(PolicyPerCopy), "per_copy", "percopy":
		return PolicyPerCopy, nil
	case string(PolicySingleDocument), "single-document", "single_document":
		return PolicySingleDocument, nil
	default:
		return "", fmt.Errorf("未知的导出策略 %q", s)
	}
}

// BatchConfig 描述一次批量导出。
type BatchConfig struct {
	LabelCount  int
	StartNumber int
	Format      labeldata.CounterFormat
	Locale      string
	Policy      Policy
	Pacing      time.Duration // 相邻两份之间的间隔，仅 per-copy 生效
}

// Document 是一个渲染完成的文档。Current/Total 在单份导出时为 0。
type Document struct {
	Name    string
	Data    []byte
	Current int
	Total   int
}

// BatchResult 汇总一次批量导出。
type BatchResult struct {
	JobID     string
	Documents []string
}

// CopyError 指出批量导出中失败的那一份；之后的份数不会再处理。
type CopyError struct {
	Index   int
	Current int
	Total   int
	Err     error
}

func (e *CopyError) Error() string {
	return fmt.Sprintf("第 %d 份（%d/%d）导出失败: %v", e.Index+1, e.Current, e.Total, e.Err)
}

func (e *CopyError) Unwrap() error { return e.Err }

// Exporter 把设计与标签数据渲染成文档。可在多个 goroutine 间共享。
type Exporter struct {
	renderer   renderer.Renderer
	typesetter layout.Typesetter
	log        *zap.Logger
	phrasebook labeldata.Phrasebook
	locale     string
	now        func() time.Time
	newID      func() string
}

// Option 配置 Exporter。
type Option func(*Exporter)

// WithLogger 设置日志器。
func WithLogger(l *zap.Logger) Option {
	return func(e *Exporter) {
		if l != nil {
			e.log = l
		}
	}
}

// WithTypesetter 指定排版后端；默认使用实现了 layout.Typesetter 的渲染器。
func WithTypesetter(ts layout.Typesetter) Option {
	return func(e *Exporter) { e.typesetter = ts }
}

// WithPhrasebook 替换计数短语表。
func WithPhrasebook(p labeldata.Phrasebook) Option {
	return func(e *Exporter) { e.phrasebook = p }
}

// WithLocale 设置默认语言，BatchConfig.Locale 为空时使用。
func WithLocale(locale string) Option {
	return func(e *Exporter) { e.locale = locale }
}

// WithClock 替换时间源，用于文件名中的日期。
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) {
		if now != nil {
			e.now = now
		}
	}
}

// New 创建 Exporter。
func New(r renderer.Renderer, opts ...Option) (*Exporter, error) {
	if r == nil {
		return nil, errors.New("renderer 不能为空")
	}
	e := &Exporter{
		renderer:   r,
		log:        zap.NewNop(),
		phrasebook: labeldata.DefaultPhrasebook(),
		now:        time.Now,
		newID:      uuid.NewString,
	}
	if ts, ok := r.(layout.Typesetter); ok {
		e.typesetter = ts
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Export 渲染单份标签，文件名为 {sku}-{batch}-{yyyymmdd}.pdf。
func (e *Exporter) Export(ctx context.Context, d *design.LabelDesign, data labeldata.MasterLabelData) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	res, err := e.build(d, data, BatchConfig{})
	if err != nil {
		return Document{}, err
	}
	pdf, err := e.renderer.Render(res)
	if err != nil {
		return Document{}, fmt.Errorf("渲染 PDF 失败: %w", err)
	}
	values := nameValues(data)
	values["date"] = e.now().Format("20060102")
	return Document{Name: binding.Filename(singleNamePattern, values, fallbackName), Data: pdf}, nil
}

// ExportBatch 依次导出 LabelCount 份标签，第 i 份的计数为 (StartNumber+i, StartNumber+LabelCount-1)。
// 原始 data 不会被修改。任一份失败时立即停止并返回 *CopyError。
func (e *Exporter) ExportBatch(ctx context.Context, d *design.LabelDesign, data labeldata.MasterLabelData, cfg BatchConfig, sink Sink) (BatchResult, error) {
	if sink == nil {
		return BatchResult{}, errors.New("sink 不能为空")
	}
	if cfg.LabelCount < 1 {
		return BatchResult{}, fmt.Errorf("标签份数必须大于 0，当前为 %d", cfg.LabelCount)
	}
	if cfg.StartNumber < 1 {
		return BatchResult{}, fmt.Errorf("起始编号必须大于 0，当前为 %d", cfg.StartNumber)
	}
	total := cfg.StartNumber + cfg.LabelCount - 1
	result := BatchResult{JobID: e.newID()}
	log := e.log.With(
		zap.String("job_id", result.JobID),
		zap.String("design_id", designID(d)),
		zap.Int("label_count", cfg.LabelCount),
		zap.Int("start_number", cfg.StartNumber),
		zap.String("policy", string(cfg.Policy)),
	)
	log.Info("开始批量导出")

	width := len(strconv.Itoa(total))
	values := nameValues(data)

	if cfg.Policy == PolicySingleDocument {
		results := make([]*layout.Result, 0, cfg.LabelCount)
		for i := 0; i < cfg.LabelCount; i++ {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			current := cfg.StartNumber + i
			res, err := e.build(d, data.WithCounter(current, total), cfg)
			if err != nil {
				return result, &CopyError{Index: i, Current: current, Total: total, Err: err}
			}
			results = append(results, res)
		}
		pdf, err := e.renderer.Render(layout.Merge(results...))
		if err != nil {
			return result, fmt.Errorf("渲染合并文档失败: %w", err)
		}
		values["first"] = pad(cfg.StartNumber, width)
		values["last"] = pad(total, width)
		doc := Document{Name: binding.Filename(combinedNamePattern, values, fallbackName), Data: pdf, Current: cfg.StartNumber, Total: total}
		if err := sink.Write(ctx, doc); err != nil {
			return result, fmt.Errorf("写出文档 %s 失败: %w", doc.Name, err)
		}
		result.Documents = append(result.Documents, doc.Name)
		log.Info("批量导出完成", zap.String("document", doc.Name))
		return result, nil
	}

	for i := 0; i < cfg.LabelCount; i++ {
		if i > 0 && cfg.Pacing > 0 {
			if err := wait(ctx, cfg.Pacing); err != nil {
				log.Warn("批量导出被取消", zap.Int("completed", i))
				return result, err
			}
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}
		current := cfg.StartNumber + i
		doc, err := e.renderCopy(d, data.WithCounter(current, total), cfg)
		if err == nil {
			values["current"] = pad(current, width)
			values["total"] = pad(total, width)
			doc.Name = binding.Filename(copyNamePattern, values, fallbackName)
			doc.Current, doc.Total = current, total
			err = sink.Write(ctx, doc)
		}
		if err != nil {
			log.Error("批量导出中断", zap.Int("current", current), zap.Error(err))
			return result, &CopyError{Index: i, Current: current, Total: total, Err: err}
		}
		result.Documents = append(result.Documents, doc.Name)
		log.Debug("已导出", zap.String("document", doc.Name))
	}
	log.Info("批量导出完成", zap.Int("documents", len(result.Documents)))
	return result, nil
}

func (e *Exporter) renderCopy(d *design.LabelDesign, data labeldata.MasterLabelData, cfg BatchConfig) (Document, error) {
	res, err := e.build(d, data, cfg)
	if err != nil {
		return Document{}, err
	}
	pdf, err := e.renderer.Render(res)
	if err != nil {
		return Document{}, fmt.Errorf("渲染 PDF 失败: %w", err)
	}
	return Document{Data: pdf}, nil
}

func (e *Exporter) build(d *design.LabelDesign, data labeldata.MasterLabelData, cfg BatchConfig) (*layout.Result, error) {
	if cfg.Locale == "" {
		cfg.Locale = e.locale
	}
	res, err := layout.Build(d, data, layout.BuildOptions{
		Typesetter:    e.typesetter,
		Logger:        e.log,
		Phrasebook:    e.phrasebook,
		CounterFormat: cfg.Format,
		Locale:        cfg.Locale,
	})
	if err != nil {
		return nil, fmt.Errorf("布局计算失败: %w", err)
	}
	return res, nil
}

func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nameValues(data labeldata.MasterLabelData) binding.Values {
	return binding.Values{
		"sku":   data.Identity.ModelSKU,
		"batch": data.Identity.BatchNumber,
	}
}

func pad(n, width int) string {
	return fmt.Sprintf("%0*d", width, n)
}

func designID(d *design.LabelDesign) string {
	if d == nil {
		return ""
	}
	return d.ID
}
