package canvasrenderer

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/ByLCY/labelkit/fonts"
	"github.com/ByLCY/labelkit/layout"
	"github.com/ByLCY/labelkit/renderer"
)

const defaultStrokeWidth = 0.2

// Renderer draws layout results via github.com/tdewolff/canvas.
// 可以在多个 goroutine 间共享，字体缓存由互斥锁保护。
type Renderer struct {
	baseDir string

	imageBlobs map[string][]byte // builtin:<name> 图片

	fontMu       sync.Mutex
	fontFamilies map[string]*fontFamilyEntry
}

var (
	_ renderer.Renderer = (*Renderer)(nil)
	_ layout.Typesetter = (*Renderer)(nil)
)

type fontFamilyEntry struct {
	family *canvas.FontFamily
	style  canvas.FontStyle
}

// Options configures the canvas renderer.
type Options struct {
	BaseDir string              // 相对图片路径的根目录；为空时只允许 data URL、builtin: 与绝对路径
	Images  map[string]Resource // 通过 builtin:<name> 引用的图片
}

// Resource can be provided either by Bytes or by Path.
type Resource struct {
	Bytes []byte
	Path  string
}

// NewRenderer creates a canvas-based renderer rooted at baseDir for resolving assets.
func NewRenderer(baseDir string) *Renderer { return NewRendererWithOptions(Options{BaseDir: baseDir}) }

// NewRendererWithOptions creates a renderer with injected resources and optional baseDir.
func NewRendererWithOptions(opts Options) *Renderer {
	r := &Renderer{
		baseDir:      opts.BaseDir,
		imageBlobs:   map[string][]byte{},
		fontFamilies: map[string]*fontFamilyEntry{},
	}
	for name, res := range opts.Images {
		if name == "" {
			continue
		}
		if len(res.Bytes) > 0 {
			r.imageBlobs[name] = res.Bytes
			continue
		}
		if res.Path != "" {
			data, _ := os.ReadFile(res.Path) // 读取失败时在使用处报告
			if len(data) > 0 {
				r.imageBlobs[name] = data
			}
		}
	}
	return r
}

// Render renders the result into a PDF byte slice.
func (r *Renderer) Render(result *layout.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	if len(result.Pages) == 0 {
		return nil, fmt.Errorf("缺少可渲染的页面")
	}

	var buf bytes.Buffer
	writer := pdf.New(&buf, result.Pages[0].Width, result.Pages[0].Height, nil)
	applyMeta(writer, result.Meta)
	for i, page := range result.Pages {
		if i > 0 {
			writer.NewPage(page.Width, page.Height)
		}
		c := canvas.New(page.Width, page.Height)
		ctx := canvas.NewContext(c)
		ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与布局保持左上角为原点

		if err := r.drawPage(ctx, page, result.Resources); err != nil {
			return nil, fmt.Errorf("渲染第 %d 页失败: %w", i+1, err)
		}
		c.RenderTo(writer)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return buf.Bytes(), nil
}

func applyMeta(writer *pdf.PDF, meta layout.DocumentMeta) {
	keywords := strings.Join(meta.Keywords, ", ")
	writer.SetInfo(meta.Title, meta.Subject, keywords, meta.Author, meta.Creator)
}

// LayoutLines 实现 layout.Typesetter 接口，使用贪心换行算法。
// 约定：fontSize/lineHeight 入参均为毫米（mm）。渲染器内部与字体系统交互使用 pt，并在边界做 mm↔pt 换算。
func (r *Renderer) LayoutLines(content string, width float64, font layout.FontResource, fontSize, lineHeight float64, wrap string) ([]layout.TextLine, error) {
	face, err := r.fontFace(font, toPt(fontSize), layout.Color{R: 30, G: 30, B: 30})
	if err != nil {
		return nil, err
	}

	if wrap == "" {
		wrap = "anywhere"
	}
	lines := greedyWrapTokens(content, width, face, wrap)
	textHeight := face.Metrics().LineHeight
	if textHeight <= 0 {
		textHeight = lineHeight
	}
	leading := math.Max(lineHeight-textHeight, 0)
	if len(lines) == 0 {
		lines = []layout.TextLine{{Content: "", Width: 0, Height: textHeight}}
	}
	for i := range lines {
		if lines[i].Height <= 0 {
			lines[i].Height = textHeight
		}
		if i == 0 {
			lines[i].GapBefore = 0
		} else {
			lines[i].GapBefore = leading
		}
	}
	return lines, nil
}

func (r *Renderer) drawPage(ctx *canvas.Context, page layout.Page, resources layout.ResourceSet) error {
	if page.Background != nil {
		ctx.SetFillColor(colorFromLayout(*page.Background))
		ctx.SetStrokeColor(canvas.Transparent)
		ctx.DrawPath(0, page.Height, canvas.Rectangle(page.Width, page.Height))
	}

	// 形状在前作为背景，文字最后绘制以免被遮挡
	r.drawRects(ctx, page.Rects)
	r.drawLines(ctx, page.Lines)
	if err := r.drawPaths(ctx, page.Paths); err != nil {
		return err
	}
	if err := r.drawBarcodes(ctx, page.Barcodes); err != nil {
		return err
	}
	if err := r.drawImages(ctx, page.Images); err != nil {
		return err
	}
	for _, tb := range page.Texts {
		font, ok := resources.Fonts[tb.Font]
		if !ok {
			font = layout.FontResource{Name: tb.Font}
		}
		if err := r.drawTextBox(ctx, tb, font); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) drawTextBox(ctx *canvas.Context, tb layout.TextBox, font layout.FontResource) error {
	// TextBox 的坐标/字号/行高均为 mm；创建字体面需要 pt，这里做一次 mm→pt。
	face, err := r.fontFace(font, toPt(tb.FontSize), tb.Color)
	if err != nil {
		return err
	}

	lines := tb.Lines
	if len(lines) == 0 {
		lines = []layout.TextLine{{Content: tb.Content, Width: tb.Width, Height: tb.LineHeight}}
	}

	var textAlign canvas.TextAlign
	var anchorX float64
	switch tb.Align {
	case "center":
		textAlign = canvas.Center
		anchorX = tb.X + tb.Width/2
	case "right":
		textAlign = canvas.Right
		anchorX = tb.X + tb.Width
	default:
		textAlign = canvas.Left
		anchorX = tb.X
	}

	metrics := face.Metrics()
	cursorY := tb.Y
	for _, line := range lines {
		cursorY += line.GapBefore
		lineHeight := line.Height
		if lineHeight <= 0 {
			lineHeight = tb.FontSize
		}
		// 基线位置：行顶部加上字体上升部
		ctx.DrawText(anchorX, cursorY+metrics.Ascent, canvas.NewTextLine(face, line.Content, textAlign))
		cursorY += lineHeight
	}
	return nil
}

func (r *Renderer) fontFace(font layout.FontResource, size float64, col layout.Color) (*canvas.FontFace, error) {
	family, style, err := r.ensureFontFamily(font)
	if err != nil {
		return nil, err
	}
	return family.Face(size, colorFromLayout(col), style, canvas.FontNormal), nil
}

// ensureFontFamily 按变体 Key 加载内置字体；未知的 Key 回退到默认家族的 regular。
func (r *Renderer) ensureFontFamily(font layout.FontResource) (*canvas.FontFamily, canvas.FontStyle, error) {
	key := font.Name
	if key == "" {
		key = fonts.Resolve(font.Family, font.Bold, font.Italic).Key
	}
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if entry, ok := r.fontFamilies[key]; ok {
		return entry.family, entry.style, nil
	}

	data, err := fonts.Load(key)
	if err != nil {
		fallback := fonts.Resolve(fonts.DefaultFamily, false, false).Key
		data, err = fonts.Load(fallback)
		if err != nil {
			return nil, canvas.FontRegular, err
		}
		font = layout.FontResource{Name: fallback}
	}
	style := fontStyle(font)
	family := canvas.NewFontFamily(key)
	if err := family.LoadFont(data, 0, style); err != nil {
		return nil, canvas.FontRegular, fmt.Errorf("加载字体 %s 失败: %w", key, err)
	}
	r.fontFamilies[key] = &fontFamilyEntry{family: family, style: style}
	return family, style, nil
}

func fontStyle(font layout.FontResource) canvas.FontStyle {
	style := canvas.FontRegular
	if font.Bold || strings.Contains(font.Name, "Bold") {
		style = canvas.FontBold
	}
	if font.Italic || strings.Contains(font.Name, "Italic") {
		style |= canvas.FontItalic
	}
	return style
}

// toPt 将毫米(mm)转换为点(pt)。
func toPt(mm float64) float64 { return mm * layout.MmToPt }

// lineBuilder 累积当前行的内容与宽度（mm）。
type lineBuilder struct {
	face  *canvas.FontFace
	limit float64
	lines []layout.TextLine
	sb    strings.Builder
	width float64
}

func (b *lineBuilder) add(s string) {
	b.sb.WriteString(s)
	b.width += b.face.TextWidth(s)
}

// fits 报告追加宽度为 w 的片段后是否仍在限制内；空行总能放下第一个片段。
func (b *lineBuilder) fits(w float64) bool {
	return b.width == 0 || b.width+w <= b.limit
}

// flush 结束当前行。keepEmpty 为 true 时空行也会输出（显式换行、文本结尾）。
func (b *lineBuilder) flush(keepEmpty bool) {
	if b.sb.Len() == 0 {
		if keepEmpty {
			b.lines = append(b.lines, layout.TextLine{})
		}
		return
	}
	b.lines = append(b.lines, layout.TextLine{Content: b.sb.String(), Width: b.width})
	b.sb.Reset()
	b.width = 0
}

// greedyWrapTokens 按 wrap 模式折行：
// nowrap 只按显式换行拆分；break-word 逐字符按宽度切分，适合链接等长串；
// 其他值优先在空白处断行，单个词超宽时在词内拆分。
func greedyWrapTokens(content string, width float64, face *canvas.FontFace, wrap string) []layout.TextLine {
	content = strings.ReplaceAll(content, "\r", "")
	limit := width
	if limit <= 0 {
		limit = math.MaxFloat64
	}
	b := &lineBuilder{face: face, limit: limit}

	switch wrap {
	case "nowrap":
		for _, p := range strings.Split(content, "\n") {
			b.lines = append(b.lines, layout.TextLine{Content: p, Width: face.TextWidth(p)})
		}
		return b.lines
	case "break-word":
		for _, r := range content {
			if r == '\n' {
				b.flush(true)
				continue
			}
			s := string(r)
			if !b.fits(face.TextWidth(s)) {
				b.flush(false)
			}
			b.add(s)
		}
		b.flush(true)
		return b.lines
	}

	for _, token := range tokenizeContent(content) {
		if token == "\n" {
			b.flush(true)
			continue
		}
		chunks := []string{token}
		if face.TextWidth(token) > limit {
			chunks = splitTokenByWidth(token, limit, face)
		}
		for _, chunk := range chunks {
			if !b.fits(face.TextWidth(chunk)) {
				b.flush(false)
			}
			b.add(chunk)
			if b.width > limit {
				b.flush(false)
			}
		}
	}
	b.flush(true)
	return b.lines
}

// tokenizeContent 把文本切成交替的空白段与非空白段，换行单独成为一个记号。
func tokenizeContent(s string) []string {
	var (
		tokens []string
		sb     strings.Builder
		space  bool
	)
	flush := func() {
		if sb.Len() > 0 {
			tokens = append(tokens, sb.String())
			sb.Reset()
		}
	}
	for _, r := range s {
		switch {
		case r == '\r':
			continue
		case r == '\n':
			flush()
			tokens = append(tokens, "\n")
			continue
		}
		isSpace := unicode.IsSpace(r)
		if sb.Len() > 0 && isSpace != space {
			flush()
		}
		space = isSpace
		sb.WriteRune(r)
	}
	flush()
	return tokens
}

// splitTokenByWidth 在字符边界把超宽的词切成不超过 limit 的片段（单个字符超宽时独占一段）。
func splitTokenByWidth(token string, limit float64, face *canvas.FontFace) []string {
	if limit <= 0 || limit == math.MaxFloat64 {
		return []string{token}
	}
	var parts []string
	start := 0
	for i := range token {
		if i > start && face.TextWidth(token[start:i+utf8Len(token[i:])]) > limit {
			parts = append(parts, token[start:i])
			start = i
		}
	}
	if start < len(token) {
		parts = append(parts, token[start:])
	}
	return parts
}

func utf8Len(s string) int {
	_, n := utf8.DecodeRuneInString(s)
	return n
}
