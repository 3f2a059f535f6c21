package layout

import (
	"fmt"
	"math"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ByLCY/labelkit/compliance"
	"github.com/ByLCY/labelkit/design"
	"github.com/ByLCY/labelkit/labeldata"
)

// stubTypesetter 是一个最小实现，仅用于测试，避免引入 renderer 造成循环依赖。
// 只按显式换行拆分，每个字符宽度为字号的一半。
type stubTypesetter struct{}

func (s *stubTypesetter) LayoutLines(content string, width float64, font FontResource, fontSize float64, lineHeight float64, wrap string) ([]TextLine, error) {
	parts := strings.Split(content, "\n")
	lines := make([]TextLine, 0, len(parts))
	for _, p := range parts {
		lines = append(lines, TextLine{
			Content: p,
			Width:   float64(utf8.RuneCountInString(p)) * fontSize / 2,
			Height:  fontSize,
		})
	}
	return lines, nil
}

func textEl(id, section string, order int, content string) design.Element {
	return design.Element{ID: id, SectionID: section, SortOrder: order, Body: design.TextBody{Content: content}}
}

func newDesign(sections []design.Section, elements ...design.Element) *design.LabelDesign {
	return &design.LabelDesign{
		Name:         "test",
		PageWidth:    100,
		PageHeight:   150,
		Padding:      3,
		BaseFontSize: 8,
		Sections:     sections,
		Elements:     elements,
	}
}

func sampleData() labeldata.MasterLabelData {
	return labeldata.MasterLabelData{
		Variant: labeldata.VariantB2C,
		Identity: labeldata.IdentitySection{
			ProductName: "Desk Lamp",
			ModelSKU:    "LMP-100",
			BatchNumber: "B-77",
			Manufacturer: labeldata.Party{
				Name:    "Lumen GmbH",
				Address: "Hauptstr. 1, 10115 Berlin, DE",
			},
		},
		DPPQR: labeldata.DPPQR{
			QRDataURL: "data:image/png;base64,AAAA",
			LabelText: "Scan for product passport",
			DPPURL:    "https://id.gs1.org/01/04012345678901/21/SN1",
		},
		Compliance: []compliance.ModuleIcon{
			{ID: compliance.ModuleCE, Symbol: "CE", Mandatory: true, Present: true},
			{ID: compliance.ModuleRoHS, Symbol: "RoHS", Mandatory: true, Present: false},
			{ID: compliance.ModuleEMC, Symbol: "EMC", Mandatory: true, Present: true},
		},
		Sustainability: labeldata.SustainabilitySection{PackagingMaterialCodes: []string{"PAP 20", "LDPE 4"}},
	}
}

func build(t *testing.T, d *design.LabelDesign, data labeldata.MasterLabelData, opts BuildOptions) *Result {
	t.Helper()
	if opts.Typesetter == nil {
		opts.Typesetter = &stubTypesetter{}
	}
	res, err := Build(d, data, opts)
	if err != nil {
		t.Fatalf("布局失败: %v", err)
	}
	if len(res.Pages) == 0 {
		t.Fatalf("布局结果没有页面")
	}
	return res
}

func textContents(p Page) []string {
	out := make([]string, 0, len(p.Texts))
	for _, tb := range p.Texts {
		out = append(out, tb.Content)
	}
	return out
}

func TestSectionsAndElementsFollowSortOrder(t *testing.T) {
	d := newDesign(
		[]design.Section{
			{ID: "c", SortOrder: 3, Visible: true},
			{ID: "a", SortOrder: 1, Visible: true},
			{ID: "b", SortOrder: 2, Visible: true},
		},
		textEl("b2", "b", 2, "b2"),
		textEl("c1", "c", 1, "c1"),
		textEl("a3", "a", 3, "a3"),
		textEl("b1", "b", 1, "b1"),
		textEl("a1", "a", 1, "a1"),
		textEl("a2", "a", 2, "a2"),
	)
	res := build(t, d, sampleData(), BuildOptions{})

	got := strings.Join(textContents(res.Pages[0]), ",")
	if want := "a1,a2,a3,b1,b2,c1"; got != want {
		t.Fatalf("顺序错误: got %s want %s", got, want)
	}
	texts := res.Pages[0].Texts
	for i := 1; i < len(texts); i++ {
		if texts[i].Y <= texts[i-1].Y {
			t.Fatalf("元素 %s 的 Y=%.2f 不应小于等于前一个元素 %.2f", texts[i].Element, texts[i].Y, texts[i-1].Y)
		}
	}
}

func TestEmptySectionLeavesNoArtifacts(t *testing.T) {
	d := newDesign(
		[]design.Section{
			{ID: "importer", SortOrder: 1, Visible: true, ShowBorder: true, Padding: 2},
			{ID: "spacing", SortOrder: 2, Visible: true, ShowBorder: true},
		},
		design.Element{ID: "imp", SectionID: "importer", Body: design.FieldValueBody{FieldKey: "importerName", ShowLabel: true}},
		design.Element{ID: "gap", SectionID: "spacing", Body: design.SpacerBody{Height: 5}},
	)
	res := build(t, d, sampleData(), BuildOptions{})
	if len(res.Pages) != 1 {
		t.Fatalf("期望 1 页，实际 %d", len(res.Pages))
	}
	p := res.Pages[0]
	if len(p.Rects) != 0 || len(p.Texts) != 0 || len(p.Lines) != 0 {
		t.Fatalf("空分区不应产生任何输出: rects=%d texts=%d lines=%d", len(p.Rects), len(p.Texts), len(p.Lines))
	}

	// 同样的分区一旦有值就应带边框输出
	data := sampleData()
	data.Identity.Importer = &labeldata.Party{Name: "Import AG"}
	p = build(t, d, data, BuildOptions{}).Pages[0]
	if len(p.Rects) != 1 {
		t.Fatalf("期望 1 个分区边框，实际 %d", len(p.Rects))
	}
	if got := textContents(p); len(got) != 2 || got[0] != "Importer" || got[1] != "Import AG" {
		t.Fatalf("标题与值输出错误: %v", got)
	}
	if p.Texts[0].Font != "Go-Bold" {
		t.Fatalf("标题应使用粗体，实际 %s", p.Texts[0].Font)
	}
}

func TestHiddenSectionIsNotRendered(t *testing.T) {
	d := newDesign(
		[]design.Section{{ID: "h", SortOrder: 1, Visible: false, ShowBorder: true}},
		textEl("t", "h", 1, "hidden text"),
	)
	p := build(t, d, sampleData(), BuildOptions{}).Pages[0]
	if len(p.Texts) != 0 || len(p.Rects) != 0 {
		t.Fatalf("隐藏分区不应输出内容")
	}
}

func TestFieldValueCustomLabelAndLocale(t *testing.T) {
	d := newDesign(
		[]design.Section{{ID: "s", Visible: true}},
		design.Element{ID: "name", SectionID: "s", SortOrder: 1, Body: design.FieldValueBody{FieldKey: "productName", ShowLabel: true}},
		design.Element{ID: "mfr", SectionID: "s", SortOrder: 2, Body: design.FieldValueBody{FieldKey: "manufacturerName", ShowLabel: true, Label: "Made by"}},
		design.Element{ID: "bogus", SectionID: "s", SortOrder: 3, Body: design.FieldValueBody{FieldKey: "noSuchField", ShowLabel: true}},
	)
	p := build(t, d, sampleData(), BuildOptions{Locale: "de-DE"}).Pages[0]
	got := strings.Join(textContents(p), "|")
	if want := "Produkt|Desk Lamp|Made by|Lumen GmbH"; got != want {
		t.Fatalf("got %s want %s", got, want)
	}
	if p.Texts[1].Y <= p.Texts[0].Y {
		t.Fatalf("标题应位于值的上方")
	}
}

func TestQRCodeDegradesWithoutImage(t *testing.T) {
	d := newDesign(
		[]design.Section{{ID: "s", Visible: true}},
		design.Element{ID: "qr", SectionID: "s", Body: design.QRCodeBody{Size: 18, ShowLabel: true, ShowURL: true}},
	)
	p := build(t, d, sampleData(), BuildOptions{}).Pages[0]
	if len(p.Images) != 1 || p.Images[0].Width != 18 {
		t.Fatalf("期望一张 18mm 的二维码图片: %+v", p.Images)
	}
	if len(p.Texts) != 2 || p.Texts[0].Y < p.Images[0].Y+18 {
		t.Fatalf("说明文字应位于二维码下方: %+v", p.Texts)
	}

	data := sampleData()
	data.DPPQR.QRDataURL = ""
	p = build(t, d, data, BuildOptions{}).Pages[0]
	if len(p.Images) != 0 {
		t.Fatalf("缺少图片时不应输出图片")
	}
	if got := textContents(p); len(got) != 2 || got[1] != data.DPPQR.DPPURL {
		t.Fatalf("降级后仍应输出文字: %v", got)
	}

	data.DPPQR = labeldata.DPPQR{}
	p = build(t, d, data, BuildOptions{}).Pages[0]
	if len(p.Texts) != 0 {
		t.Fatalf("没有任何二维码数据时元素应跳过")
	}
}

func TestPictogramLookup(t *testing.T) {
	d := newDesign(
		[]design.Section{{ID: "s", Visible: true, ShowBorder: true}},
		design.Element{ID: "stale", SectionID: "s", Body: design.PictogramBody{PictogramID: "retired-icon"}},
	)
	p := build(t, d, sampleData(), BuildOptions{}).Pages[0]
	if len(p.Paths) != 0 || len(p.Rects) != 0 {
		t.Fatalf("未知图标应静默跳过，且分区不输出边框")
	}

	d.Elements[0].Body = design.PictogramBody{PictogramID: "fragile", Size: 12, Color: "#c00"}
	p = build(t, d, sampleData(), BuildOptions{}).Pages[0]
	if len(p.Paths) != 1 {
		t.Fatalf("期望 1 个图标，实际 %d", len(p.Paths))
	}
	path := p.Paths[0]
	if path.Width != 12 || path.ViewBox != [4]float64{0, 0, 24, 24} || path.Fill != (Color{R: 204}) {
		t.Fatalf("图标参数错误: %+v", path)
	}
}

func TestComplianceBadgeSelection(t *testing.T) {
	d := newDesign(
		[]design.Section{{ID: "s", Visible: true}},
		design.Element{ID: "badges", SectionID: "s", Body: design.ComplianceBadgeBody{}},
	)
	p := build(t, d, sampleData(), BuildOptions{})
	page := p.Pages[0]
	// CE 有内置图标，EMC 没有，退化为文字标签；RoHS 缺失默认不显示
	if len(page.Paths) != 1 || len(page.Texts) != 1 || page.Texts[0].Content != "EMC" {
		t.Fatalf("默认只显示已具备的模块: paths=%d texts=%v", len(page.Paths), textContents(page))
	}

	d.Elements[0].Body = design.ComplianceBadgeBody{ModuleIDs: []string{"rohs", "ce"}, ShowAbsent: true}
	page = build(t, d, sampleData(), BuildOptions{}).Pages[0]
	if len(page.Texts) != 1 || page.Texts[0].Content != "RoHS" || page.Texts[0].Color != absentColor {
		t.Fatalf("缺失模块应以灰色显示: %+v", page.Texts)
	}
	if len(page.Paths) != 1 || page.Paths[0].X <= page.Rects[0].X {
		t.Fatalf("应按 moduleIds 顺序排列")
	}
}

func TestMaterialCodeAutoPopulate(t *testing.T) {
	cases := []struct {
		name    string
		body    design.MaterialCodeBody
		derived []string
		want    string
	}{
		{"derived wins", design.MaterialCodeBody{AutoPopulate: true, Codes: []string{"GL 70"}}, []string{"PAP 20", "LDPE 4"}, "PAP 20,LDPE 4"},
		{"empty derived falls back", design.MaterialCodeBody{AutoPopulate: true, Codes: []string{"GL 70"}}, nil, "GL 70"},
		{"manual without auto", design.MaterialCodeBody{Codes: []string{"GL 70", " "}}, []string{"PAP 20"}, "GL 70"},
		{"nothing to show", design.MaterialCodeBody{AutoPopulate: true, Codes: []string{}}, nil, ""},
		{"nil manual list", design.MaterialCodeBody{AutoPopulate: true}, nil, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data := sampleData()
			data.Sustainability.PackagingMaterialCodes = tc.derived
			d := newDesign(
				[]design.Section{{ID: "s", Visible: true}},
				design.Element{ID: "codes", SectionID: "s", Body: tc.body},
			)
			p := build(t, d, data, BuildOptions{}).Pages[0]
			if got := strings.Join(textContents(p), ","); got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
			if len(p.Rects) != len(p.Texts) {
				t.Fatalf("每个代码都应带边框")
			}
		})
	}
}

func TestPackageCounterOnlyWithCounter(t *testing.T) {
	d := newDesign(
		[]design.Section{{ID: "s", Visible: true, ShowBorder: true}},
		design.Element{ID: "counter", SectionID: "s", Body: design.PackageCounterBody{Format: "box"}},
	)
	p := build(t, d, sampleData(), BuildOptions{}).Pages[0]
	if len(p.Texts) != 0 || len(p.Rects) != 0 {
		t.Fatalf("单文档模式下不应输出计数")
	}

	data := sampleData().WithCounter(5, 7)
	p = build(t, d, data, BuildOptions{Locale: "de"}).Pages[0]
	if got := textContents(p); len(got) != 1 || got[0] != "Karton 5 von 7" {
		t.Fatalf("计数文本错误: %v", got)
	}

	d.Elements[0].Body = design.PackageCounterBody{}
	p = build(t, d, data, BuildOptions{CounterFormat: labeldata.CounterParcel}).Pages[0]
	if got := textContents(p); len(got) != 1 || got[0] != "Parcel 5 of 7" {
		t.Fatalf("应使用批量导出的默认格式: %v", got)
	}
}

func TestBarcodeElement(t *testing.T) {
	data := sampleData()
	data.Identity.GTIN = "04012345678901"
	d := newDesign(
		[]design.Section{{ID: "s", Visible: true}},
		design.Element{ID: "ean", SectionID: "s", SortOrder: 1, Body: design.BarcodeBody{Format: "ean13", FieldKey: "gtin", ShowText: true}},
		design.Element{ID: "bad", SectionID: "s", SortOrder: 2, Body: design.BarcodeBody{Format: "ean13", Value: "4012345678902"}},
		design.Element{ID: "c128", SectionID: "s", SortOrder: 3, Body: design.BarcodeBody{Format: "code128", FieldKey: "batchNumber", Width: 30}},
	)
	p := build(t, d, data, BuildOptions{}).Pages[0]
	if len(p.Barcodes) != 2 {
		t.Fatalf("期望 2 个条码（校验位错误的应跳过），实际 %d", len(p.Barcodes))
	}
	if p.Barcodes[0].Value != "4012345678901" || p.Barcodes[0].Format != design.BarcodeEAN13 {
		t.Fatalf("EAN 规范化错误: %+v", p.Barcodes[0])
	}
	if p.Barcodes[1].Value != "B-77" || p.Barcodes[1].Width != 30 {
		t.Fatalf("Code-128 错误: %+v", p.Barcodes[1])
	}
	if len(p.Texts) != 1 || p.Texts[0].Content != "4012345678901" {
		t.Fatalf("条码下方文字错误: %v", textContents(p))
	}
}

func TestNormalizeBarcode(t *testing.T) {
	cases := []struct {
		format, in string
		wantFormat string
		want       string
		ok         bool
	}{
		{"ean13", "401234567890", "ean13", "4012345678901", true},
		{"ean13", "4012345678901", "ean13", "4012345678901", true},
		{"ean13", "4012345678902", "ean13", "", false},
		{"EAN-13", "0 4012345 678901", "ean13", "4012345678901", true},
		{"ean13", "ABC", "ean13", "", false},
		{"", "4012345678901", "ean13", "4012345678901", true},
		{"", "LOT-1", "code128", "LOT-1", true},
		{"code128", "Größe", "code128", "", false},
		{"pdf417", "x", "", "", false},
		{"ean13", "", "", "", false},
	}
	for _, tc := range cases {
		format, got, ok := normalizeBarcode(tc.format, tc.in)
		if ok != tc.ok || (ok && (got != tc.want || format != tc.wantFormat)) {
			t.Errorf("normalizeBarcode(%q,%q) = %q,%q,%v", tc.format, tc.in, format, got, ok)
		}
	}
}

func TestIconText(t *testing.T) {
	d := newDesign(
		[]design.Section{{ID: "s", Visible: true}},
		design.Element{ID: "dry", SectionID: "s", SortOrder: 1, Body: design.IconTextBody{PictogramID: "keep-dry", Text: "Keep dry", IconSize: 6}},
		design.Element{ID: "origin", SectionID: "s", SortOrder: 2, Body: design.IconTextBody{PictogramID: "retired", FieldKey: "madeIn", Text: "Made in EU"}},
		design.Element{ID: "empty", SectionID: "s", SortOrder: 3, Body: design.IconTextBody{PictogramID: "keep-dry"}},
	)
	p := build(t, d, sampleData(), BuildOptions{}).Pages[0]
	if len(p.Paths) != 1 {
		t.Fatalf("期望 1 个图标，实际 %d", len(p.Paths))
	}
	if len(p.Texts) != 2 || p.Texts[0].X != p.Paths[0].X+6+iconGap {
		t.Fatalf("文字应位于图标右侧: %+v", p.Texts)
	}
	if p.Texts[1].Content != "Made in EU" || p.Texts[1].X != p.Paths[0].X {
		t.Fatalf("未知图标时只输出文字: %+v", p.Texts[1])
	}
}

func TestImageDividerSpacer(t *testing.T) {
	d := newDesign(
		[]design.Section{{ID: "s", Visible: true}},
		design.Element{ID: "logo", SectionID: "s", SortOrder: 1, Body: design.ImageBody{Src: "builtin:logo", Width: 200, Height: 100, Fit: "Cover"}},
		design.Element{ID: "gap", SectionID: "s", SortOrder: 2, Body: design.SpacerBody{Height: 4}},
		design.Element{ID: "rule", SectionID: "s", SortOrder: 3, Body: design.DividerBody{}},
	)
	p := build(t, d, sampleData(), BuildOptions{}).Pages[0]
	img := p.Images[0]
	if img.Width != 94 || img.Height != 47 || img.Fit != "cover" {
		t.Fatalf("图片应按内容宽度等比缩放: %+v", img)
	}
	ln := p.Lines[0]
	if ln.X2-ln.X1 != 94 || ln.Width != defaultDividerWidth {
		t.Fatalf("分隔线应横跨内容宽度: %+v", ln)
	}
	if ln.Y1 < img.Y+img.Height+4 {
		t.Fatalf("spacer 应占据垂直空间")
	}
}

func TestLongSectionBreaksAcrossPages(t *testing.T) {
	var elements []design.Element
	for i := 0; i < 20; i++ {
		elements = append(elements, textEl(fmt.Sprintf("t%02d", i), "s", i, fmt.Sprintf("line %02d", i)))
	}
	d := newDesign([]design.Section{{ID: "s", Visible: true, ShowBorder: true}}, elements...)
	d.PageHeight = 40
	d.Padding = 2

	res := build(t, d, sampleData(), BuildOptions{})
	if len(res.Pages) < 2 {
		t.Fatalf("内容超出页面高度时应换页，实际 %d 页", len(res.Pages))
	}
	total := 0
	for i, p := range res.Pages {
		if len(p.Rects) != 1 {
			t.Fatalf("第 %d 页应有一段分区边框，实际 %d", i+1, len(p.Rects))
		}
		rc := p.Rects[0]
		if rc.Y < p.Margin.Top || rc.Y+rc.Height > p.Height-p.Margin.Bottom+1e-9 {
			t.Fatalf("第 %d 页边框越界: %+v", i+1, rc)
		}
		for _, tb := range p.Texts {
			if tb.Y+tb.Height > p.Height-p.Margin.Bottom+1e-9 {
				t.Fatalf("第 %d 页文本 %s 越界", i+1, tb.Element)
			}
		}
		total += len(p.Texts)
	}
	if total != 20 {
		t.Fatalf("所有元素都应输出，实际 %d", total)
	}
}

func TestFontResolutionAndStyleInheritance(t *testing.T) {
	d := newDesign(
		[]design.Section{{ID: "s", Visible: true}},
		design.Element{ID: "a", SectionID: "s", SortOrder: 1, Body: design.TextBody{Content: "mono", Style: design.TextStyle{FontFamily: "Courier", Bold: true, Italic: true, FontSize: 10}}},
		design.Element{ID: "b", SectionID: "s", SortOrder: 2, Body: design.TextBody{Content: "smallcaps", Style: design.TextStyle{FontFamily: "Go Smallcaps", Bold: true}}},
		design.Element{ID: "c", SectionID: "s", SortOrder: 3, Body: design.TextBody{Content: "base", Style: design.TextStyle{Align: "end"}}},
	)
	d.BaseTextColor = "#336699"
	res := build(t, d, sampleData(), BuildOptions{})
	texts := res.Pages[0].Texts
	if texts[0].Font != "GoMono-BoldItalic" || texts[1].Font != "GoSmallcaps-Regular" || texts[2].Font != "Go-Regular" {
		t.Fatalf("字体解析错误: %s %s %s", texts[0].Font, texts[1].Font, texts[2].Font)
	}
	if math.Abs(texts[0].FontSize-10*PtToMm) > 1e-9 || math.Abs(texts[2].FontSize-8*PtToMm) > 1e-9 {
		t.Fatalf("字号应为 pt 换算的毫米")
	}
	if texts[2].Color != (Color{R: 0x33, G: 0x66, B: 0x99}) || texts[2].Align != "right" {
		t.Fatalf("应继承设计默认颜色并规范化对齐: %+v", texts[2])
	}
	if _, ok := res.Resources.Fonts["GoMono-BoldItalic"]; !ok {
		t.Fatalf("使用过的字体应记录在资源中")
	}
}

func TestBuildWithoutTypesetter(t *testing.T) {
	d := newDesign([]design.Section{{ID: "s", Visible: true}}, textEl("t", "s", 1, "two\nlines"))
	res, err := Build(d, sampleData(), BuildOptions{})
	if err != nil {
		t.Fatalf("布局失败: %v", err)
	}
	tb := res.Pages[0].Texts[0]
	if len(tb.Lines) != 2 || tb.Lines[1].GapBefore <= 0 {
		t.Fatalf("没有排版后端时按换行拆分: %+v", tb.Lines)
	}
	if res.Meta.Title != "test" || res.Meta.Subject != "Desk Lamp" {
		t.Fatalf("元信息错误: %+v", res.Meta)
	}
}

func TestBuildRejectsNilDesign(t *testing.T) {
	if _, err := Build(nil, sampleData(), BuildOptions{}); err == nil {
		t.Fatalf("期望错误")
	}
}

func TestMerge(t *testing.T) {
	a := &Result{Pages: []Page{{Width: 1}}, Meta: DocumentMeta{Title: "a"}, Resources: ResourceSet{Fonts: map[string]FontResource{"Go-Regular": {Name: "Go-Regular"}}}}
	b := &Result{Pages: []Page{{Width: 2}, {Width: 3}}, Meta: DocumentMeta{Title: "b"}}
	m := Merge(a, nil, b)
	if len(m.Pages) != 3 || m.Pages[2].Width != 3 || m.Meta.Title != "a" || len(m.Resources.Fonts) != 1 {
		t.Fatalf("合并结果错误: %+v", m)
	}
}
