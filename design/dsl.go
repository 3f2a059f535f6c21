package design

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ByLCY/labelkit/dsl"
)

// 该文件把标签 DSL 的 AST 转为 LabelDesign。DSL 中长度默认单位为毫米，字号默认单位为 pt。

// identValued 中的键可以接一个标识符作为值（例如 align center），其余键后接标识符时视为独立开关。
var identValued = map[string]bool{
	"align":  true,
	"fit":    true,
	"field":  true,
	"locale": true,
	"format": true,
	"icon":   true,
	"id":     true,
	"font":   true,
}

// argList 是命令参数的结构化视图。
type argList struct {
	subject    string
	positional []string
	attrs      map[string]string
	flags      map[string]bool
}

func (a argList) has(flag string) bool { return a.flags[flag] }

func (a argList) length(key string, fallback float64) float64 {
	if l, ok := dsl.ParseLength(a.attrs[key]); ok {
		return l.MM()
	}
	return fallback
}

func (a argList) fontSize() float64 {
	if l, ok := dsl.ParseLength(a.attrs["size"]); ok {
		return l.PT()
	}
	return 0
}

func parseArgs(args []*dsl.Lexeme, withSubject bool) argList {
	out := argList{attrs: map[string]string{}, flags: map[string]bool{}}
	i := 0
	if withSubject && len(args) > 0 {
		out.subject = args[0].Value
		i = 1
	}
	for i < len(args) {
		tok := args[i]
		if tok.Type != "Ident" {
			out.positional = append(out.positional, tok.Value)
			i++
			continue
		}
		key := tok.Value
		if i+1 < len(args) && (args[i+1].Type != "Ident" || identValued[key]) {
			out.attrs[key] = args[i+1].Value
			i += 2
			continue
		}
		out.flags[key] = true
		i++
	}
	return out
}

// FromDSL 转换解析后的 DSL 文档，结果经过与 JSON 相同的引用校验。
func FromDSL(doc *dsl.Document) (*LabelDesign, error) {
	if doc == nil {
		return nil, fmt.Errorf("DSL 文档为空")
	}
	d := &LabelDesign{
		Name:         string(doc.Name),
		PageWidth:    100,
		PageHeight:   150,
		Padding:      3,
		BaseFontSize: 8,
	}
	for key, val := range doc.Assignments() {
		switch key {
		case "id":
			d.ID = valueString(val)
		case "name":
			d.Name = valueString(val)
		}
	}

	sectionIndex := 0
	for _, cmd := range doc.Commands() {
		switch cmd.Name {
		case "page":
			if err := applyPage(d, cmd); err != nil {
				return nil, err
			}
		case "font":
			a := parseArgs(cmd.Args, true)
			d.FontFamily = a.subject
			if size := a.fontSize(); size > 0 {
				d.BaseFontSize = size
			}
			if c := a.attrs["color"]; c != "" {
				d.BaseTextColor = c
			}
		case "background":
			if len(cmd.Args) > 0 {
				d.BackgroundColor = cmd.Args[0].Value
			}
		case "section":
			sectionIndex++
			if err := applySection(d, cmd, sectionIndex); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%s: 未知的顶层命令 %s", cmd.Pos, cmd.Name)
		}
	}
	if err := d.Check(); err != nil {
		return nil, err
	}
	return d, nil
}

// applyPage 支持 "page 100mm x 150mm padding 4mm" 与 "page 100mm 150mm"。
func applyPage(d *LabelDesign, cmd *dsl.Command) error {
	var dims []float64
	a := parseArgs(cmd.Args, false)
	for _, p := range a.positional {
		l, ok := dsl.ParseLength(p)
		if !ok {
			return fmt.Errorf("%s: 无法解析页面尺寸 %q", cmd.Pos, p)
		}
		dims = append(dims, l.MM())
	}
	// "x" 作为分隔符会被当作开关，数值落在 attrs["x"] 中。
	if v, ok := a.attrs["x"]; ok {
		l, ok := dsl.ParseLength(v)
		if !ok {
			return fmt.Errorf("%s: 无法解析页面尺寸 %q", cmd.Pos, v)
		}
		dims = append(dims, l.MM())
	}
	if len(dims) != 2 {
		return fmt.Errorf("%s: page 需要宽和高两个尺寸", cmd.Pos)
	}
	d.PageWidth, d.PageHeight = dims[0], dims[1]
	d.Padding = a.length("padding", d.Padding)
	return nil
}

func applySection(d *LabelDesign, cmd *dsl.Command, index int) error {
	a := parseArgs(cmd.Args, true)
	if a.subject == "" {
		return fmt.Errorf("%s: section 缺少 id", cmd.Pos)
	}
	s := Section{
		ID:        a.subject,
		Name:      a.attrs["name"],
		SortOrder: index,
		Visible:   !a.has("hidden"),
		Padding:   a.length("padding", 0),
	}
	if v, ok := a.attrs["order"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: section order 必须是整数: %q", cmd.Pos, v)
		}
		s.SortOrder = n
	}
	if c, ok := a.attrs["border"]; ok {
		s.ShowBorder = true
		s.BorderColor = c
	} else if a.has("border") {
		s.ShowBorder = true
	}
	d.Sections = append(d.Sections, s)

	for i, ec := range cmd.Block.Commands() {
		el, err := elementFromCommand(ec, s.ID, i+1)
		if err != nil {
			return err
		}
		d.Elements = append(d.Elements, el)
	}
	return nil
}

func elementFromCommand(cmd *dsl.Command, sectionID string, index int) (Element, error) {
	a := parseArgs(cmd.Args, takesSubject(cmd))
	el := Element{
		ID:        a.attrs["id"],
		SectionID: sectionID,
		SortOrder: index,
	}
	if el.ID == "" {
		el.ID = fmt.Sprintf("%s-%d", sectionID, index)
	}
	if v, ok := a.attrs["order"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Element{}, fmt.Errorf("%s: order 必须是整数: %q", cmd.Pos, v)
		}
		el.SortOrder = n
	}
	style := TextStyle{
		FontSize:   a.fontSize(),
		Bold:       a.has("bold"),
		Italic:     a.has("italic"),
		Color:      a.attrs["color"],
		Align:      a.attrs["align"],
		FontFamily: a.attrs["font"],
	}

	switch ElementType(cmd.Name) {
	case TypeText:
		content := a.subject
		if cmd.Block != nil {
			content = cmd.Block.Text()
		}
		el.Body = TextBody{Content: content, Style: style}
	case TypeFieldValue:
		el.Body = FieldValueBody{
			FieldKey:  a.subject,
			ShowLabel: a.has("label") || a.attrs["label"] != "",
			Label:     a.attrs["label"],
			Style:     style,
		}
	case TypeQRCode:
		el.Body = QRCodeBody{
			Size:      a.length("size", 0),
			ShowLabel: a.has("label"),
			ShowURL:   a.has("url"),
			Style:     TextStyle{Color: style.Color, Align: style.Align},
		}
	case TypePictogram:
		el.Body = PictogramBody{PictogramID: a.subject, Size: a.length("size", 0), Color: a.attrs["color"]}
	case TypeComplianceBadge:
		el.Body = ComplianceBadgeBody{
			ModuleIDs:  splitList(a.attrs["modules"]),
			ShowAbsent: a.has("absent"),
			Size:       a.length("size", 0),
			Style:      TextStyle{Bold: style.Bold, Color: style.Color},
		}
	case TypeImage:
		el.Body = ImageBody{
			Src:    a.subject,
			Width:  a.length("width", 0),
			Height: a.length("height", 0),
			Fit:    a.attrs["fit"],
		}
	case TypeDivider:
		el.Body = DividerBody{Thickness: a.length("thickness", 0), Color: a.attrs["color"]}
	case TypeSpacer:
		h := 0.0
		if l, ok := dsl.ParseLength(a.subject); ok {
			h = l.MM()
		}
		el.Body = SpacerBody{Height: h}
	case TypeMaterialCode:
		el.Body = MaterialCodeBody{Codes: splitList(a.attrs["codes"]), AutoPopulate: a.has("auto"), Style: style}
	case TypeBarcode:
		el.Body = BarcodeBody{
			Format:   a.subject,
			FieldKey: a.attrs["field"],
			Value:    a.attrs["value"],
			Width:    a.length("width", 0),
			Height:   a.length("height", 0),
			ShowText: a.has("text"),
			Style:    style,
		}
	case TypeIconText:
		body := IconTextBody{PictogramID: a.subject, FieldKey: a.attrs["field"], IconSize: a.length("size", 0), Style: style}
		if len(a.positional) > 0 {
			body.Text = a.positional[0]
		}
		// icon-text 的 size 指图标尺寸，文字字号用 text-size。
		body.Style.FontSize = 0
		if l, ok := dsl.ParseLength(a.attrs["text-size"]); ok {
			body.Style.FontSize = l.PT()
		}
		el.Body = body
	case TypePackageCounter:
		el.Body = PackageCounterBody{Format: a.subject, Locale: a.attrs["locale"], Style: style}
	default:
		return Element{}, fmt.Errorf("%s: %w: %q", cmd.Pos, ErrUnknownElementType, cmd.Name)
	}
	return el, nil
}

// keywords 是元素参数中的关键字，出现在第一个位置时说明命令省略了主体参数。
var keywords = map[string]bool{
	"size": true, "color": true, "bold": true, "italic": true, "label": true,
	"width": true, "height": true, "order": true, "text": true, "url": true,
	"absent": true, "auto": true, "padding": true, "thickness": true,
	"codes": true, "modules": true, "value": true, "text-size": true,
}

// takesSubject 报告命令的第一个参数是否为主体（字段键、图标 ID、文本内容等）。
func takesSubject(cmd *dsl.Command) bool {
	switch ElementType(cmd.Name) {
	case TypeQRCode, TypeComplianceBadge, TypeDivider, TypeMaterialCode:
		return false
	case TypeText:
		if cmd.Block != nil {
			return false
		}
	}
	if len(cmd.Args) == 0 {
		return false
	}
	first := cmd.Args[0]
	return first.Type != "Ident" || !(keywords[first.Value] || identValued[first.Value])
}

func splitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func valueString(v *dsl.Value) string {
	switch {
	case v == nil:
		return ""
	case v.String != nil:
		return string(*v.String)
	case v.Number != nil:
		return *v.Number
	case v.Color != nil:
		return *v.Color
	case v.Expr != nil:
		var sb strings.Builder
		for _, part := range v.Expr.Parts {
			sb.WriteString(part.Value)
		}
		return sb.String()
	default:
		return ""
	}
}
