package layout

import (
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ByLCY/labelkit/compliance"
	"github.com/ByLCY/labelkit/design"
	"github.com/ByLCY/labelkit/labeldata"
	"github.com/ByLCY/labelkit/pictogram"
)

const (
	defaultQRSize        = 20.0 // mm
	defaultPictogramSize = 10.0
	defaultBadgeSize     = 8.0
	defaultImageSize     = 20.0
	defaultDividerWidth  = 0.3
	defaultSpacerHeight  = 2.0
	defaultBarcodeWidth  = 38.0
	defaultBarcodeHeight = 12.0
	captionGap           = 0.4
	chipGap              = 1.0
	chipPadX             = 1.0
	chipPadY             = 0.6
	iconGap              = 1.0
)

var (
	absentColor  = Color{R: 170, G: 170, B: 170}
	dividerColor = Color{R: 120, G: 120, B: 120}
)

// element 按元素类型分派。返回 nil 表示该元素本次不产生任何输出。
func (b *builder) element(el design.Element, width float64) (*block, error) {
	switch body := el.Body.(type) {
	case design.TextBody:
		return b.textElement(el.ID, body, width)
	case design.FieldValueBody:
		return b.fieldValueElement(el.ID, body, width)
	case design.QRCodeBody:
		return b.qrElement(el.ID, body, width)
	case design.PictogramBody:
		return b.pictogramElement(el.ID, body, width), nil
	case design.ComplianceBadgeBody:
		return b.complianceBadgeElement(el.ID, body, width)
	case design.ImageBody:
		return imageElement(el.ID, body, width), nil
	case design.DividerBody:
		return dividerElement(body, width), nil
	case design.SpacerBody:
		return spacerElement(body, width), nil
	case design.MaterialCodeBody:
		return b.materialCodeElement(el.ID, body, width)
	case design.BarcodeBody:
		return b.barcodeElement(el.ID, body, width)
	case design.IconTextBody:
		return b.iconTextElement(el.ID, body, width)
	case design.PackageCounterBody:
		return b.packageCounterElement(el.ID, body, width)
	default:
		b.log.Debug("忽略无法识别的元素", zap.String("element", el.ID))
		return nil, nil
	}
}

func (b *builder) textBlock(id, content string, style design.TextStyle, width float64, wrap string) (*block, error) {
	tb, h, err := b.composeTextBox(id, content, b.resolveStyle(style), 0, 0, width, wrap)
	if err != nil {
		return nil, err
	}
	blk := newBlock(width)
	blk.acc.texts = append(blk.acc.texts, tb)
	blk.height = h
	return blk, nil
}

func (b *builder) textElement(id string, body design.TextBody, width float64) (*block, error) {
	if strings.TrimSpace(body.Content) == "" {
		return nil, nil
	}
	return b.textBlock(id, body.Content, body.Style, width, "")
}

// fieldValueElement 在值为空时整体跳过；标题只会随值一起出现，位于值的上方。
func (b *builder) fieldValueElement(id string, body design.FieldValueBody, width float64) (*block, error) {
	key := labeldata.FieldKey(body.FieldKey)
	value := labeldata.ResolveFieldValue(key, b.data)
	if strings.TrimSpace(value) == "" {
		b.log.Debug("字段无数据，跳过", zap.String("element", id), zap.String("field", body.FieldKey))
		return nil, nil
	}
	blk := newBlock(width)
	y := 0.0
	if body.ShowLabel {
		caption := body.Label
		if caption == "" {
			caption = labeldata.FieldLabel(key, b.opts.Locale)
		}
		capStyle := body.Style
		capStyle.Bold = true
		tb, h, err := b.composeTextBox(id, caption, b.resolveStyle(capStyle), 0, 0, width, "")
		if err != nil {
			return nil, err
		}
		blk.acc.texts = append(blk.acc.texts, tb)
		y = h + captionGap
	}
	tb, h, err := b.composeTextBox(id, value, b.resolveStyle(body.Style), 0, y, width, "")
	if err != nil {
		return nil, err
	}
	blk.acc.texts = append(blk.acc.texts, tb)
	blk.height = y + h
	return blk, nil
}

// qrElement 没有二维码图片时省略图片，但仍按开关输出说明文字与链接。
func (b *builder) qrElement(id string, body design.QRCodeBody, width float64) (*block, error) {
	qr := b.data.DPPQR
	st := b.resolveStyle(body.Style)
	blk := newBlock(width)
	y := 0.0

	if qr.QRDataURL != "" {
		size := body.Size
		if size <= 0 {
			size = defaultQRSize
		}
		size = math.Min(size, width)
		blk.acc.images = append(blk.acc.images, ImageBox{
			Element: id,
			Src:     qr.QRDataURL,
			X:       alignOffset(width, size, st.align),
			Y:       0,
			Width:   size,
			Height:  size,
			Fit:     "contain",
		})
		y = size
	} else {
		b.log.Debug("缺少二维码图片，仅输出文字", zap.String("element", id))
	}

	texts := make([]string, 0, 2)
	if body.ShowLabel && strings.TrimSpace(qr.LabelText) != "" {
		texts = append(texts, qr.LabelText)
	}
	if body.ShowURL && strings.TrimSpace(qr.DPPURL) != "" {
		texts = append(texts, qr.DPPURL)
	}
	for _, text := range texts {
		if y > 0 {
			y += captionGap
		}
		tb, h, err := b.composeTextBox(id, text, st, 0, y, width, "break-word")
		if err != nil {
			return nil, err
		}
		blk.acc.texts = append(blk.acc.texts, tb)
		y += h
	}
	if y == 0 {
		return nil, nil
	}
	blk.height = y
	return blk, nil
}

// pictogramElement 对目录中不存在的图标静默跳过（记录 debug 日志）。
func (b *builder) pictogramElement(id string, body design.PictogramBody, width float64) *block {
	size := body.Size
	if size <= 0 {
		size = defaultPictogramSize
	}
	size = math.Min(size, width)
	path, ok := b.pictogramPath(id, body.PictogramID, 0, 0, size, resolveColor(body.Color, b.textColor()))
	if !ok {
		return nil
	}
	blk := newBlock(size)
	blk.acc.paths = append(blk.acc.paths, path)
	blk.height = size
	return blk
}

func (b *builder) pictogramPath(elementID, pictogramID string, x, y, size float64, fill Color) (PathBox, bool) {
	p, ok := pictogram.Lookup(pictogramID)
	if !ok {
		b.log.Debug("图标不存在，跳过", zap.String("element", elementID), zap.String("pictogram", pictogramID))
		return PathBox{}, false
	}
	vb, ok := parseViewBox(p.ViewBox)
	if !ok {
		b.log.Debug("图标 viewBox 无法解析", zap.String("pictogram", pictogramID), zap.String("viewBox", p.ViewBox))
		return PathBox{}, false
	}
	return PathBox{
		Element: elementID,
		Path:    p.SVGPath,
		ViewBox: vb,
		X:       x,
		Y:       y,
		Width:   size,
		Height:  size,
		Fill:    fill,
	}, true
}

func (b *builder) complianceBadgeElement(id string, body design.ComplianceBadgeBody, width float64) (*block, error) {
	modules := selectModules(b.data.Compliance, body.ModuleIDs, body.ShowAbsent)
	if len(modules) == 0 {
		return nil, nil
	}
	size := body.Size
	if size <= 0 {
		size = defaultBadgeSize
	}
	st := b.resolveStyle(body.Style)
	items := make([]*block, 0, len(modules))
	for _, m := range modules {
		col := st.color
		if !m.Present {
			col = absentColor
		}
		if _, ok := pictogram.Lookup(m.ID); ok {
			path, ok := b.pictogramPath(id, m.ID, 0, 0, size, col)
			if ok {
				item := newBlock(size)
				item.acc.paths = append(item.acc.paths, path)
				item.height = size
				items = append(items, item)
				continue
			}
		}
		chipStyle := st
		chipStyle.color = col
		item, err := b.chip(id, m.Symbol, chipStyle, width)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return row(items, width, chipGap), nil
}

// selectModules 按 ids 的顺序挑选模块（ids 为空时取全部），默认只保留 present 的模块。
func selectModules(all []compliance.ModuleIcon, ids []string, showAbsent bool) []compliance.ModuleIcon {
	var candidates []compliance.ModuleIcon
	if len(ids) == 0 {
		candidates = all
	} else {
		for _, id := range ids {
			if m, ok := compliance.FindModule(all, id); ok {
				candidates = append(candidates, m)
			}
		}
	}
	out := make([]compliance.ModuleIcon, 0, len(candidates))
	for _, m := range candidates {
		if m.Present || showAbsent {
			out = append(out, m)
		}
	}
	return out
}

func imageElement(id string, body design.ImageBody, width float64) *block {
	src := strings.TrimSpace(body.Src)
	if src == "" {
		return nil
	}
	w, h := body.Width, body.Height
	switch {
	case w <= 0 && h <= 0:
		w = math.Min(defaultImageSize, width)
		h = w
	case w <= 0:
		w = h
	case h <= 0:
		h = w
	}
	if w > width {
		h = h * width / w
		w = width
	}
	blk := newBlock(w)
	blk.acc.images = append(blk.acc.images, ImageBox{
		Element: id,
		Src:     src,
		Width:   w,
		Height:  h,
		Fit:     strings.ToLower(strings.TrimSpace(body.Fit)),
	})
	blk.height = h
	return blk
}

func dividerElement(body design.DividerBody, width float64) *block {
	th := body.Thickness
	if th <= 0 {
		th = defaultDividerWidth
	}
	blk := newBlock(width)
	blk.acc.lines = append(blk.acc.lines, Line{
		X1:    0,
		Y1:    th / 2,
		X2:    width,
		Y2:    th / 2,
		Color: resolveColor(body.Color, dividerColor),
		Width: th,
	})
	blk.height = th
	return blk
}

func spacerElement(body design.SpacerBody, width float64) *block {
	h := body.Height
	if h <= 0 {
		h = defaultSpacerHeight
	}
	blk := newBlock(width)
	blk.content = false
	blk.height = h
	return blk
}

func (b *builder) materialCodeElement(id string, body design.MaterialCodeBody, width float64) (*block, error) {
	codes := materialCodes(body, b.data)
	if len(codes) == 0 {
		return nil, nil
	}
	st := b.resolveStyle(body.Style)
	items := make([]*block, 0, len(codes))
	for _, code := range codes {
		item, err := b.chip(id, code, st, width)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return row(items, width, chipGap), nil
}

// materialCodes 实现 autoPopulate：推导出的包装代码非空时优先使用，否则退回手工列表。
// 手工列表为 nil 与为空等价，两者都为空时元素不输出。
func materialCodes(body design.MaterialCodeBody, data labeldata.MasterLabelData) []string {
	if body.AutoPopulate && len(data.Sustainability.PackagingMaterialCodes) > 0 {
		return data.Sustainability.PackagingMaterialCodes
	}
	out := make([]string, 0, len(body.Codes))
	for _, c := range body.Codes {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func (b *builder) barcodeElement(id string, body design.BarcodeBody, width float64) (*block, error) {
	value := body.Value
	if body.FieldKey != "" {
		if v := labeldata.ResolveFieldValue(labeldata.FieldKey(body.FieldKey), b.data); v != "" {
			value = v
		}
	}
	format, normalized, ok := normalizeBarcode(body.Format, strings.TrimSpace(value))
	if !ok {
		b.log.Debug("条码内容为空或无效，跳过", zap.String("element", id), zap.String("format", body.Format))
		return nil, nil
	}
	w, h := body.Width, body.Height
	if w <= 0 {
		w = defaultBarcodeWidth
	}
	if h <= 0 {
		h = defaultBarcodeHeight
	}
	w = math.Min(w, width)
	st := b.resolveStyle(body.Style)
	x := alignOffset(width, w, st.align)

	blk := newBlock(width)
	blk.acc.barcodes = append(blk.acc.barcodes, BarcodeBox{
		Element: id,
		Format:  format,
		Value:   normalized,
		X:       x,
		Width:   w,
		Height:  h,
		Color:   st.color,
	})
	blk.height = h
	if body.ShowText {
		textStyle := st
		textStyle.align = "center"
		tb, th, err := b.composeTextBox(id, normalized, textStyle, x, h+captionGap, w, "nowrap")
		if err != nil {
			return nil, err
		}
		blk.acc.texts = append(blk.acc.texts, tb)
		blk.height += captionGap + th
	}
	return blk, nil
}

// normalizeBarcode 规范化条码内容：EAN-13 只保留数字，14 位 GTIN 去掉前导 0，
// 12 位补校验位，13 位校验失败视为无效；Code-128 仅接受可打印 ASCII。
// 未指定格式时能构成 EAN-13 的按 EAN-13，否则按 Code-128。
func normalizeBarcode(format, value string) (string, string, bool) {
	if value == "" {
		return "", "", false
	}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case design.BarcodeEAN13, "ean", "ean-13":
		v, ok := normalizeEAN13(value)
		return design.BarcodeEAN13, v, ok
	case design.BarcodeCode128, "code-128":
		return design.BarcodeCode128, value, printableASCII(value)
	case "":
		if v, ok := normalizeEAN13(value); ok {
			return design.BarcodeEAN13, v, true
		}
		return design.BarcodeCode128, value, printableASCII(value)
	default:
		return "", "", false
	}
}

func normalizeEAN13(value string) (string, bool) {
	var digits strings.Builder
	for _, r := range value {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == ' ' || r == '-':
		default:
			return "", false
		}
	}
	d := digits.String()
	if len(d) == 14 && d[0] == '0' {
		d = d[1:]
	}
	switch len(d) {
	case 12:
		return d + string(eanCheckDigit(d)), true
	case 13:
		return d, eanCheckDigit(d[:12]) == d[12]
	default:
		return "", false
	}
}

// eanCheckDigit 计算 EAN-13 校验位：自左起奇数位权重 1，偶数位权重 3。
func eanCheckDigit(first12 string) byte {
	sum := 0
	for i := 0; i < 12; i++ {
		n := int(first12[i] - '0')
		if i%2 == 1 {
			n *= 3
		}
		sum += n
	}
	return byte('0' + (10-sum%10)%10)
}

func printableASCII(s string) bool {
	for _, r := range s {
		if r < 32 || r > 126 {
			return false
		}
	}
	return s != ""
}

func (b *builder) iconTextElement(id string, body design.IconTextBody, width float64) (*block, error) {
	text := body.Text
	if body.FieldKey != "" {
		if v := labeldata.ResolveFieldValue(labeldata.FieldKey(body.FieldKey), b.data); v != "" {
			text = v
		}
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	st := b.resolveStyle(body.Style)
	iconSize := body.IconSize
	if iconSize <= 0 {
		iconSize = ptToMM(st.sizePt) * lineHeightFactor
	}

	blk := newBlock(width)
	x := 0.0
	iconHeight := 0.0
	if body.PictogramID != "" {
		if path, ok := b.pictogramPath(id, body.PictogramID, 0, 0, iconSize, st.color); ok {
			blk.acc.paths = append(blk.acc.paths, path)
			x = iconSize + iconGap
			iconHeight = iconSize
		}
	}
	tb, h, err := b.composeTextBox(id, text, st, x, 0, math.Max(width-x, 1), "")
	if err != nil {
		return nil, err
	}
	if iconHeight > h {
		tb.Y = (iconHeight - h) / 2
	} else if iconHeight > 0 && len(blk.acc.paths) > 0 {
		blk.acc.paths[0].Y = (h - iconHeight) / 2
	}
	blk.acc.texts = append(blk.acc.texts, tb)
	blk.height = math.Max(iconHeight, h)
	return blk, nil
}

// packageCounterElement 只在批量导出注入了计数器时输出；单文档模式直接跳过。
func (b *builder) packageCounterElement(id string, body design.PackageCounterBody, width float64) (*block, error) {
	c := b.data.Counter
	if c == nil {
		b.log.Debug("没有计数上下文，跳过包裹计数", zap.String("element", id))
		return nil, nil
	}
	format := labeldata.CounterFormat(body.Format)
	if format == "" {
		format = b.opts.CounterFormat
	}
	if format == "" {
		format = labeldata.CounterPlain
	}
	locale := body.Locale
	if locale == "" {
		locale = b.opts.Locale
	}
	text := b.opts.Phrasebook.Format(format, locale, c.Current, c.Total)
	return b.textBlock(id, text, body.Style, width, "")
}

// chip 是带边框的短文本标签，用于材料代码与没有图标的合规标识。
func (b *builder) chip(id, text string, st resolvedStyle, maxWidth float64) (*block, error) {
	w, err := b.measure(text, st)
	if err != nil {
		return nil, err
	}
	w = math.Min(w, math.Max(maxWidth-2*chipPadX, 1))
	tb, h, err := b.composeTextBox(id, text, st, chipPadX, chipPadY, w, "nowrap")
	if err != nil {
		return nil, err
	}
	blk := newBlock(w + 2*chipPadX)
	blk.height = h + 2*chipPadY
	blk.acc.rects = append(blk.acc.rects, Rect{
		Width:       blk.width,
		Height:      blk.height,
		StrokeColor: st.color,
		StrokeWidth: borderWidth,
	})
	blk.acc.texts = append(blk.acc.texts, tb)
	return blk, nil
}

// row 将若干小块从左到右排列，超出宽度时换行。
func row(items []*block, width, gap float64) *block {
	out := newBlock(width)
	x, y, lineHeight := 0.0, 0.0, 0.0
	for _, item := range items {
		if x > 0 && x+item.width > width {
			y += lineHeight + gap
			x, lineHeight = 0, 0
		}
		out.acc.appendShifted(&item.acc, x, y)
		x += item.width + gap
		lineHeight = math.Max(lineHeight, item.height)
	}
	out.height = y + lineHeight
	return out
}

func parseViewBox(v string) ([4]float64, bool) {
	var out [4]float64
	fields := strings.FieldsFunc(v, func(r rune) bool { return r == ' ' || r == ',' })
	if len(fields) != 4 {
		return out, false
	}
	for i, f := range fields {
		n, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return out, false
		}
		out[i] = n
	}
	return out, out[2] > 0 && out[3] > 0
}
