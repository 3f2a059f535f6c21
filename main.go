package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ByLCY/labelkit/config"
	"github.com/ByLCY/labelkit/design"
	"github.com/ByLCY/labelkit/export"
	"github.com/ByLCY/labelkit/labeldata"
	"github.com/ByLCY/labelkit/layout"
	"github.com/ByLCY/labelkit/logger"
	"github.com/ByLCY/labelkit/qrcode"
	canvasrenderer "github.com/ByLCY/labelkit/renderer/canvas"
	"github.com/ByLCY/labelkit/store"
	"github.com/ByLCY/labelkit/validate"
)

const qrLabelText = "Digital Product Passport"

// 退出码：1 为运行错误，exitUsage 为参数错误，exitBlocked 为检查结果阻止了导出。
const (
	exitUsage   = 2
	exitBlocked = 3
)

type options struct {
	designPath   string
	designID     string
	saveDesign   bool
	inputPath    string
	outDir       string
	count        int
	start        int
	policy       string
	format       string
	locale       string
	pacing       time.Duration
	validateOnly bool
	strict       bool
	debugPath    string
	dppFormat    string
	dppDomain    string
	dppBaseURL   string
}

func main() {
	os.Exit(realMain(os.Args[1:], os.Stdout))
}

// bindFlags 把命令行参数绑定到 opts，默认值取自环境配置。
func bindFlags(fs *flag.FlagSet, cfg *config.Config) *options {
	opts := &options{}
	fs.StringVar(&opts.designPath, "design", "", "标签设计文件（.json / .yaml / .label）")
	fs.StringVar(&opts.designID, "design-id", "", "从数据库读取的设计 ID（需要 LABELKIT_DATABASE_URL）")
	fs.BoolVar(&opts.saveDesign, "save", false, "把 -design 指定的设计保存到数据库")
	fs.StringVar(&opts.inputPath, "input", "", "产品/批次/供应商记录（.json / .yaml）")
	fs.StringVar(&opts.outDir, "out", cfg.Export.OutputDir, "PDF 输出目录")
	fs.IntVar(&opts.count, "count", 0, "批量导出份数，0 表示单份导出")
	fs.IntVar(&opts.start, "start", 1, "批量导出的起始编号")
	fs.StringVar(&opts.policy, "policy", string(export.PolicyPerCopy), "批量导出策略：per-copy 或 single")
	fs.StringVar(&opts.format, "format", string(labeldata.CounterPlain), "包裹计数格式：plain/of/package/box/parcel")
	fs.StringVar(&opts.locale, "locale", cfg.Export.Locale, "计数短语与字段标题的语言")
	fs.DurationVar(&opts.pacing, "pacing", cfg.Export.Pacing, "批量导出相邻两份之间的间隔")
	fs.BoolVar(&opts.validateOnly, "validate-only", false, "只输出检查结果，不导出")
	fs.BoolVar(&opts.strict, "strict", false, "存在 error 级别的检查结果时拒绝导出")
	fs.StringVar(&opts.debugPath, "debug", "", "布局调试 JSON 输出路径")
	fs.StringVar(&opts.dppFormat, "dpp-format", cfg.DPP.Format, "DPP 链接格式：default/gs1/custom-domain")
	fs.StringVar(&opts.dppDomain, "dpp-domain", cfg.DPP.Domain, "custom-domain 格式使用的域名")
	fs.StringVar(&opts.dppBaseURL, "dpp-base-url", cfg.DPP.BaseURL, "default 格式使用的基础链接")
	return opts
}

// realMain 返回进程退出码，使 defer 的清理在退出前执行。
func realMain(args []string, stdout io.Writer) int {
	cfg := config.Load()

	fs := flag.NewFlagSet("labelkit", flag.ContinueOnError)
	opts := bindFlags(fs, cfg)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return exitUsage
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "labelkit")
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		return 1
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var designs designSource
	if cfg.DatabaseURL != "" {
		db, err := store.Open(cfg.DatabaseURL)
		if err != nil {
			log.Error("连接设计存储失败", zap.Error(err))
			return 1
		}
		defer db.Close()
		ds := store.NewDesignStore(db, log)
		if err := ds.Migrate(ctx); err != nil {
			log.Error("初始化设计存储失败", zap.Error(err))
			return 1
		}
		designs = ds
	}

	if err := run(ctx, *opts, designs, stdout, log); err != nil {
		log.Error("生成标签失败", zap.Error(err))
		if errors.Is(err, errBlocked) {
			return exitBlocked
		}
		return 1
	}
	return 0
}

// designSource 是 store.DesignStore 中 CLI 用到的部分。
type designSource interface {
	Get(ctx context.Context, id string) (*design.LabelDesign, error)
	Save(ctx context.Context, d *design.LabelDesign) (string, error)
}

// errBlocked 表示 -strict 模式下检查结果阻止了导出。
var errBlocked = errors.New("存在 error 级别的检查结果，已停止导出")

// run 串联读取、组装、检查与导出。
func run(ctx context.Context, opts options, designs designSource, stdout io.Writer, log *zap.Logger) error {
	d, err := loadDesign(ctx, opts, designs)
	if err != nil {
		return err
	}
	if opts.saveDesign {
		if designs == nil {
			return fmt.Errorf("-save 需要配置 LABELKIT_DATABASE_URL")
		}
		id, err := designs.Save(ctx, d)
		if err != nil {
			return err
		}
		log.Info("设计已保存", zap.String("design_id", id))
	}

	if opts.inputPath == "" {
		return fmt.Errorf("缺少 -input")
	}
	in, err := labeldata.LoadInput(opts.inputPath)
	if err != nil {
		return err
	}

	dppURL := labeldata.BuildDPPURL(in.Product.GTIN, in.SerialNumber(), labeldata.DPPURLOptions{
		Format:       labeldata.ResolverFormat(opts.dppFormat),
		CustomDomain: opts.dppDomain,
		BaseURL:      opts.dppBaseURL,
	})
	qr, err := labeldata.PrepareDPPQR(ctx, qrcode.New(), dppURL, qrLabelText)
	if err != nil {
		// 二维码缺失不阻止组装，qr-code 元素会降级
		log.Warn("二维码生成失败", zap.String("dpp_url", dppURL), zap.Error(err))
	}
	data := labeldata.Assemble(in.Params(qr))

	findings := append(validate.Data(data), validate.Design(d)...)
	for _, f := range findings {
		fmt.Fprintln(stdout, f.String())
	}
	if opts.validateOnly {
		if validate.HasErrors(findings) {
			return errBlocked
		}
		return nil
	}
	if opts.strict && validate.HasErrors(findings) {
		return errBlocked
	}

	r := canvasrenderer.NewRenderer(baseDir(opts.designPath))
	if opts.debugPath != "" {
		if err := writeDebug(d, data, r, opts, log); err != nil {
			return err
		}
	}

	exp, err := export.New(r, export.WithLogger(log), export.WithLocale(opts.locale))
	if err != nil {
		return err
	}
	sink := export.DirSink{Dir: opts.outDir}

	if opts.count <= 0 {
		doc, err := exp.Export(ctx, d, data)
		if err != nil {
			return err
		}
		if err := sink.Write(ctx, doc); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "已生成 PDF：%s\n", filepath.Join(opts.outDir, doc.Name))
		return nil
	}

	policy, err := export.ParsePolicy(opts.policy)
	if err != nil {
		return err
	}
	res, err := exp.ExportBatch(ctx, d, data, export.BatchConfig{
		LabelCount:  opts.count,
		StartNumber: opts.start,
		Format:      labeldata.CounterFormat(opts.format),
		Locale:      opts.locale,
		Policy:      policy,
		Pacing:      opts.pacing,
	}, sink)
	for _, name := range res.Documents {
		fmt.Fprintf(stdout, "已生成 PDF：%s\n", filepath.Join(opts.outDir, name))
	}
	return err
}

func loadDesign(ctx context.Context, opts options, designs designSource) (*design.LabelDesign, error) {
	switch {
	case opts.designPath != "":
		return design.Load(opts.designPath)
	case opts.designID != "":
		if designs == nil {
			return nil, fmt.Errorf("-design-id 需要配置 LABELKIT_DATABASE_URL")
		}
		return designs.Get(ctx, opts.designID)
	default:
		return nil, fmt.Errorf("缺少 -design 或 -design-id")
	}
}

func baseDir(designPath string) string {
	if designPath == "" {
		return ""
	}
	return filepath.Dir(designPath)
}

func writeDebug(d *design.LabelDesign, data labeldata.MasterLabelData, ts layout.Typesetter, opts options, log *zap.Logger) error {
	res, err := layout.Build(d, data, layout.BuildOptions{
		Typesetter:    ts,
		Logger:        log,
		Phrasebook:    labeldata.DefaultPhrasebook(),
		CounterFormat: labeldata.CounterFormat(opts.format),
		Locale:        opts.locale,
	})
	if err != nil {
		return fmt.Errorf("布局计算失败: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(opts.debugPath), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := layout.WriteDebugJSON(res, opts.debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}
