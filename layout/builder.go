package layout

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ByLCY/labelkit/design"
	"github.com/ByLCY/labelkit/fonts"
	"github.com/ByLCY/labelkit/labeldata"
)

const (
	defaultPageWidth  = 100.0 // mm
	defaultPageHeight = 150.0 // mm
	defaultFontSizePt = 8.0
	lineHeightFactor  = 1.4
	elementGap        = 1.0 // 同一分区内相邻元素的间距（mm）
	sectionGap        = 2.0 // 相邻分区的间距（mm）
	borderWidth       = 0.2
	borderPadding     = 1.0 // 显示边框但未设置内边距时使用
)

var (
	defaultTextColor   = Color{R: 30, G: 30, B: 30}
	defaultBorderColor = Color{R: 120, G: 120, B: 120}
)

// Build 将标签设计与数据快照布局为分页结果。
// 分区按 SortOrder 排列，隐藏分区与没有可渲染元素的分区不产生任何输出；
// 单个元素的数据缺失或引用失效只会跳过该元素。
func Build(d *design.LabelDesign, data labeldata.MasterLabelData, opts BuildOptions) (*Result, error) {
	if d == nil {
		return nil, fmt.Errorf("标签设计为空")
	}
	b := &builder{
		design: d,
		data:   data,
		opts:   opts,
		log:    opts.logger(),
		fonts:  map[string]FontResource{},
	}

	width, height := d.PageWidth, d.PageHeight
	if width <= 0 {
		width = defaultPageWidth
	}
	if height <= 0 {
		height = defaultPageHeight
	}
	pad := math.Max(d.Padding, 0)
	margin := Margin{Top: pad, Right: pad, Bottom: pad, Left: pad}

	pc := newPageCollector(width, height, margin, b.background())
	ctx := &flowContext{
		baseX:          margin.Left,
		baseY:          margin.Top,
		width:          width - margin.Left - margin.Right,
		cursorY:        margin.Top,
		collector:      pc,
		margin:         margin,
		allowPageBreak: true,
	}

	for _, section := range d.SortedSections() {
		if !section.Visible {
			b.log.Debug("跳过隐藏分区", zap.String("section", section.ID))
			continue
		}
		inner := ctx.width - 2*sectionPadding(section)
		blocks, err := b.sectionBlocks(section, inner)
		if err != nil {
			return nil, err
		}
		if !hasContent(blocks) {
			b.log.Debug("跳过没有可渲染元素的分区", zap.String("section", section.ID))
			continue
		}
		placeSection(ctx, section, blocks)
	}

	return &Result{
		Pages:     pc.pages(),
		Resources: ResourceSet{Fonts: b.fonts},
		Meta:      b.meta(),
	}, nil
}

type builder struct {
	design *design.LabelDesign
	data   labeldata.MasterLabelData
	opts   BuildOptions
	log    *zap.Logger
	fonts  map[string]FontResource
}

func (b *builder) sectionBlocks(s design.Section, width float64) ([]*block, error) {
	var out []*block
	for _, el := range b.design.SectionElements(s.ID) {
		blk, err := b.element(el, width)
		if err != nil {
			return nil, fmt.Errorf("布局元素 %s 失败: %w", el.ID, err)
		}
		if blk != nil {
			out = append(out, blk)
		}
	}
	return out, nil
}

func (b *builder) background() *Color {
	v := strings.TrimSpace(b.design.BackgroundColor)
	if v == "" {
		return nil
	}
	c, err := parseColor(v)
	if err != nil {
		b.log.Debug("背景色无法解析", zap.String("color", v))
		return nil
	}
	return &c
}

func (b *builder) meta() DocumentMeta {
	id := b.data.Identity
	title := b.design.Name
	if title == "" {
		title = id.ProductName
	}
	var keywords []string
	for _, k := range []string{id.ModelSKU, id.BatchNumber, string(b.data.ProductGroup)} {
		if k != "" {
			keywords = append(keywords, k)
		}
	}
	return DocumentMeta{
		Title:    title,
		Subject:  id.ProductName,
		Author:   id.Manufacturer.Name,
		Creator:  "labelkit",
		Keywords: keywords,
	}
}

// placeSection 在当前流中依次放置分区内的元素块。跨页时边框按页拆成多段。
func placeSection(ctx *flowContext, s design.Section, blocks []*block) {
	pad := sectionPadding(s)
	if !ctx.acc().empty() {
		ctx.cursorY += sectionGap
	}
	top := ctx.cursorY
	lastBottom := top
	placed := 0
	closeBorder := func(bottom float64) {
		if !s.ShowBorder || placed == 0 {
			return
		}
		ctx.acc().rects = append(ctx.acc().rects, Rect{
			X:           ctx.baseX,
			Y:           top,
			Width:       ctx.width,
			Height:      bottom - top,
			StrokeColor: resolveColor(s.BorderColor, defaultBorderColor),
			StrokeWidth: borderWidth,
		})
	}

	ctx.cursorY += pad
	for i, blk := range blocks {
		gap := 0.0
		if placed > 0 {
			gap = elementGap
		}
		need := gap + blk.height
		if i == len(blocks)-1 {
			need += pad
		}
		broke := ctx.ensureSpace(need, func() {
			closeBorder(math.Min(lastBottom+pad, ctx.collector.contentBottom()))
		})
		if broke {
			top = ctx.cursorY
			ctx.cursorY += pad
			placed = 0
			gap = 0
		}
		ctx.cursorY += gap
		ctx.acc().appendShifted(&blk.acc, ctx.baseX+pad, ctx.cursorY)
		ctx.cursorY += blk.height
		lastBottom = ctx.cursorY
		placed++
	}
	ctx.cursorY = lastBottom + pad
	closeBorder(ctx.cursorY)
}

func sectionPadding(s design.Section) float64 {
	if s.Padding > 0 {
		return s.Padding
	}
	if s.ShowBorder {
		return borderPadding
	}
	return 0
}

// block 是元素布局后的相对坐标片段，原点为元素左上角。
type block struct {
	width   float64
	height  float64
	content bool // spacer 为 false，不足以让分区被视为非空
	acc     pageAccumulator
}

func newBlock(width float64) *block { return &block{width: width, content: true} }

func hasContent(blocks []*block) bool {
	for _, blk := range blocks {
		if blk.content {
			return true
		}
	}
	return false
}

type pageAccumulator struct {
	texts    []TextBox
	images   []ImageBox
	paths    []PathBox
	barcodes []BarcodeBox
	lines    []Line
	rects    []Rect
}

func (p *pageAccumulator) empty() bool {
	return len(p.texts)+len(p.images)+len(p.paths)+len(p.barcodes)+len(p.lines)+len(p.rects) == 0
}

// appendShifted 把 src 中的内容平移 (dx, dy) 后追加到 p。
func (p *pageAccumulator) appendShifted(src *pageAccumulator, dx, dy float64) {
	for _, t := range src.texts {
		t.X += dx
		t.Y += dy
		p.texts = append(p.texts, t)
	}
	for _, img := range src.images {
		img.X += dx
		img.Y += dy
		p.images = append(p.images, img)
	}
	for _, path := range src.paths {
		path.X += dx
		path.Y += dy
		p.paths = append(p.paths, path)
	}
	for _, bc := range src.barcodes {
		bc.X += dx
		bc.Y += dy
		p.barcodes = append(p.barcodes, bc)
	}
	for _, ln := range src.lines {
		ln.X1 += dx
		ln.X2 += dx
		ln.Y1 += dy
		ln.Y2 += dy
		p.lines = append(p.lines, ln)
	}
	for _, rc := range src.rects {
		rc.X += dx
		rc.Y += dy
		p.rects = append(p.rects, rc)
	}
}

type pageCollector struct {
	width      float64
	height     float64
	margin     Margin
	background *Color
	accs       []*pageAccumulator
	current    int
}

func newPageCollector(width, height float64, margin Margin, background *Color) *pageCollector {
	pc := &pageCollector{
		width:      width,
		height:     height,
		margin:     margin,
		background: background,
	}
	pc.newPage()
	return pc
}

func (pc *pageCollector) newPage() *pageAccumulator {
	acc := &pageAccumulator{}
	pc.accs = append(pc.accs, acc)
	pc.current = len(pc.accs) - 1
	return acc
}

func (pc *pageCollector) curr() *pageAccumulator {
	if len(pc.accs) == 0 {
		return pc.newPage()
	}
	return pc.accs[pc.current]
}

func (pc *pageCollector) contentTop() float64 { return pc.margin.Top }

func (pc *pageCollector) contentBottom() float64 { return pc.height - pc.margin.Bottom }

func (pc *pageCollector) pages() []Page {
	out := make([]Page, len(pc.accs))
	for i, acc := range pc.accs {
		out[i] = Page{
			Width:      pc.width,
			Height:     pc.height,
			Margin:     pc.margin,
			Background: pc.background,
			Texts:      acc.texts,
			Images:     acc.images,
			Paths:      acc.paths,
			Barcodes:   acc.barcodes,
			Lines:      acc.lines,
			Rects:      acc.rects,
		}
	}
	return out
}

type flowContext struct {
	baseX          float64
	baseY          float64
	width          float64
	cursorY        float64
	collector      *pageCollector
	margin         Margin
	allowPageBreak bool
}

// ensureSpace 在剩余高度不足时换页，返回是否换页。换页前调用 beforeBreak 收尾当前页。
// 当前页尚无内容时不换页，超高的元素直接溢出，避免无限换页。
func (ctx *flowContext) ensureSpace(height float64, beforeBreak func()) bool {
	if !ctx.allowPageBreak || ctx.collector == nil {
		return false
	}
	if ctx.cursorY+height <= ctx.collector.contentBottom() {
		return false
	}
	if ctx.acc().empty() {
		return false
	}
	if beforeBreak != nil {
		beforeBreak()
	}
	ctx.pageBreak()
	return true
}

func (ctx *flowContext) pageBreak() {
	if ctx.collector == nil {
		return
	}
	ctx.collector.newPage()
	ctx.baseX = ctx.margin.Left
	ctx.baseY = ctx.collector.contentTop()
	ctx.cursorY = ctx.baseY
}

func (ctx *flowContext) acc() *pageAccumulator {
	return ctx.collector.curr()
}

// resolvedStyle 是合并了设计默认值之后的文本样式。
type resolvedStyle struct {
	font   FontResource
	sizePt float64
	color  Color
	align  string
}

func (b *builder) resolveStyle(s design.TextStyle) resolvedStyle {
	size := s.FontSize
	if size <= 0 {
		size = b.design.BaseFontSize
	}
	if size <= 0 {
		size = defaultFontSizePt
	}
	family := s.FontFamily
	if family == "" {
		family = b.design.FontFamily
	}
	v := fonts.Resolve(family, s.Bold, s.Italic)
	font := FontResource{Name: v.Key, Family: v.Family, Bold: v.Bold, Italic: v.Italic}
	b.fonts[font.Name] = font
	return resolvedStyle{
		font:   font,
		sizePt: size,
		color:  resolveColor(s.Color, b.textColor()),
		align:  normalizeAlign(s.Align),
	}
}

func (b *builder) textColor() Color {
	return resolveColor(b.design.BaseTextColor, defaultTextColor)
}

func (b *builder) composeTextBox(elementID, content string, st resolvedStyle, x, y, width float64, wrap string) (TextBox, float64, error) {
	fontSize := ptToMM(st.sizePt)
	lineHeight := fontSize * lineHeightFactor

	lines, err := layoutLines(content, width, st.font, fontSize, lineHeight, b.opts.Typesetter, wrap)
	if err != nil {
		return TextBox{}, 0, err
	}

	totalHeight := 0.0
	defaultLeading := math.Max(lineHeight-fontSize, 0)
	for i := range lines {
		if lines[i].Height <= 0 {
			lines[i].Height = fontSize
		}
		if i == 0 {
			lines[i].GapBefore = 0
		} else if lines[i].GapBefore <= 0 {
			lines[i].GapBefore = defaultLeading
		}
		totalHeight += lines[i].GapBefore + lines[i].Height
	}

	tb := TextBox{
		Element:    elementID,
		Content:    content,
		X:          x,
		Y:          y,
		Width:      width,
		LineHeight: lineHeight,
		Font:       st.font.Name,
		FontSize:   fontSize,
		Color:      st.color,
		Lines:      lines,
		Height:     totalHeight,
		Align:      st.align,
		Wrap:       normalizeWrap(wrap),
	}
	return tb, totalHeight, nil
}

// measure 返回单行文本的宽度（mm）。没有排版后端时按字符数估算。
func (b *builder) measure(content string, st resolvedStyle) (float64, error) {
	fontSize := ptToMM(st.sizePt)
	if b.opts.Typesetter == nil {
		return estimateTextWidth(content, fontSize), nil
	}
	lines, err := b.opts.Typesetter.LayoutLines(content, 0, st.font, fontSize, fontSize*lineHeightFactor, "nowrap")
	if err != nil {
		return 0, err
	}
	w := 0.0
	for _, l := range lines {
		w = math.Max(w, l.Width)
	}
	if w <= 0 {
		w = estimateTextWidth(content, fontSize)
	}
	return w, nil
}

func layoutLines(content string, width float64, font FontResource, fontSize, lineHeight float64, ts Typesetter, wrap string) ([]TextLine, error) {
	if ts == nil {
		lines := strings.Split(content, "\n")
		out := make([]TextLine, 0, len(lines))
		textHeight := fontSize
		if textHeight <= 0 {
			textHeight = ptToMM(defaultFontSizePt)
		}
		leading := math.Max(lineHeight-textHeight, 0)
		for _, l := range lines {
			out = append(out, TextLine{
				Content:   l,
				Width:     width,
				Height:    textHeight,
				GapBefore: leading,
			})
		}
		out[0].GapBefore = 0
		return out, nil
	}
	lines, err := ts.LayoutLines(content, width, font, fontSize, lineHeight, normalizeWrap(wrap))
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		height := fontSize
		if height <= 0 {
			height = lineHeight
		}
		lines = []TextLine{{Content: "", Width: width, Height: height}}
	}
	lines[0].GapBefore = 0
	return lines, nil
}

func normalizeWrap(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "break-word", "breakword":
		return "break-word"
	case "nowrap", "no-wrap":
		return "nowrap"
	default:
		return ""
	}
}

func normalizeAlign(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "center", "middle":
		return "center"
	case "right", "end":
		return "right"
	default:
		return ""
	}
}

func resolveColor(value string, fallback Color) Color {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	c, err := parseColor(value)
	if err != nil {
		return fallback
	}
	return c
}

func parseColor(value string) (Color, error) {
	value = strings.TrimPrefix(strings.TrimSpace(value), "#")
	for _, r := range value {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return Color{}, fmt.Errorf("颜色值 %s 无法解析", value)
		}
	}
	switch len(value) {
	case 3:
		r := strings.Repeat(string(value[0]), 2)
		g := strings.Repeat(string(value[1]), 2)
		b := strings.Repeat(string(value[2]), 2)
		return Color{R: mustHex(r), G: mustHex(g), B: mustHex(b)}, nil
	case 6, 8:
		return Color{
			R: mustHex(value[0:2]),
			G: mustHex(value[2:4]),
			B: mustHex(value[4:6]),
		}, nil
	default:
		return Color{}, fmt.Errorf("颜色值 %s 无法解析", value)
	}
}

func mustHex(s string) int {
	v, _ := strconv.ParseInt(s, 16, 32)
	return int(v)
}

func alignOffset(container, width float64, align string) float64 {
	if container <= width {
		return 0
	}
	switch align {
	case "center":
		return (container - width) / 2
	case "right":
		return container - width
	default:
		return 0
	}
}

func estimateTextWidth(content string, fontSize float64) float64 {
	if fontSize <= 0 {
		fontSize = ptToMM(defaultFontSizePt)
	}
	maxChars := 0
	for _, line := range strings.Split(content, "\n") {
		if count := utf8.RuneCountInString(line); count > maxChars {
			maxChars = count
		}
	}
	return fontSize * 0.55 * float64(maxChars+1)
}
