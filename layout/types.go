package layout

// 该文件定义布局结果与资源描述，供布局计算、渲染与调试 JSON 共用。
// 所有坐标与尺寸均为毫米，原点在页面左上角。

// Result 保存布局后的页面与资源信息。
type Result struct {
	Pages     []Page       `json:"pages"`
	Resources ResourceSet  `json:"resources"`
	Meta      DocumentMeta `json:"meta"`
}

// ResourceSet 记录布局中实际用到的字体变体，键为变体 Key。
type ResourceSet struct {
	Fonts map[string]FontResource `json:"fonts"`
}

// FontResource 描述一个已解析的字体变体。Name 为 fonts.Variant.Key，渲染器据此加载字体字节。
type FontResource struct {
	Name   string `json:"name"`
	Family string `json:"family"`
	Bold   bool   `json:"bold,omitempty"`
	Italic bool   `json:"italic,omitempty"`
}

// Color 采用 0-255 的 RGB 数值。
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// Page 记录页面尺寸、边距与最终可以直接渲染的元素。
type Page struct {
	Width      float64      `json:"width"`
	Height     float64      `json:"height"`
	Margin     Margin       `json:"margin"`
	Background *Color       `json:"background,omitempty"`
	Texts      []TextBox    `json:"texts"`
	Images     []ImageBox   `json:"images,omitempty"`
	Paths      []PathBox    `json:"paths,omitempty"`
	Barcodes   []BarcodeBox `json:"barcodes,omitempty"`
	Lines      []Line       `json:"lines,omitempty"`
	Rects      []Rect       `json:"rects,omitempty"`
}

// Margin 以毫米为单位。
type Margin struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// TextBox 表示一个已经排好坐标的文本块。FontSize 与 LineHeight 同样以毫米保存。
type TextBox struct {
	Element    string     `json:"element,omitempty"`
	Content    string     `json:"content"`
	X          float64    `json:"x"`
	Y          float64    `json:"y"`
	Width      float64    `json:"width"`
	LineHeight float64    `json:"lineHeight"`
	Font       string     `json:"font"`
	FontSize   float64    `json:"fontSize"`
	Color      Color      `json:"color"`
	Lines      []TextLine `json:"lines"`
	Height     float64    `json:"height"`
	Align      string     `json:"align,omitempty"` // left（默认）/center/right
	Wrap       string     `json:"wrap,omitempty"`  // anywhere（默认）/break-word/nowrap
}

// TextLine 表示排版后的一行文本内容及其宽高。
type TextLine struct {
	Content   string  `json:"content"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	GapBefore float64 `json:"gapBefore,omitempty"`
}

// ImageBox 用于描述图片位置与尺寸。Src 可以是 data URL、builtin:name 或文件路径。
type ImageBox struct {
	Element string  `json:"element,omitempty"`
	Src     string  `json:"src"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Fit     string  `json:"fit,omitempty"` // contain（默认）/cover/stretch
}

// PathBox 是缩放到目标矩形内的矢量图标，Path 使用 SVG path 语法并位于 ViewBox 坐标系内。
type PathBox struct {
	Element string     `json:"element,omitempty"`
	Path    string     `json:"path"`
	ViewBox [4]float64 `json:"viewBox"`
	X       float64    `json:"x"`
	Y       float64    `json:"y"`
	Width   float64    `json:"width"`
	Height  float64    `json:"height"`
	Fill    Color      `json:"fill"`
}

// BarcodeBox 是一维条码。Value 已经规范化，渲染器可以直接编码。
type BarcodeBox struct {
	Element string  `json:"element,omitempty"`
	Format  string  `json:"format"`
	Value   string  `json:"value"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Color   Color   `json:"color"`
}

// Line 表示一条线段。
type Line struct {
	X1    float64 `json:"x1"`
	Y1    float64 `json:"y1"`
	X2    float64 `json:"x2"`
	Y2    float64 `json:"y2"`
	Color Color   `json:"color"`
	Width float64 `json:"width"` // 线宽（mm），<=0 时由渲染器给默认值
}

// Rect 表示一个矩形（不包含圆角）。
type Rect struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	StrokeColor Color   `json:"strokeColor"`
	StrokeWidth float64 `json:"strokeWidth"`         // mm
	FillColor   *Color  `json:"fillColor,omitempty"` // 为空表示不填充
	NoStroke    bool    `json:"noStroke,omitempty"`
}

// DocumentMeta 保存 PDF 元信息。
type DocumentMeta struct {
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Subject  string   `json:"subject"`
	Creator  string   `json:"creator"`
	Keywords []string `json:"keywords"`
}

// Merge 把多个布局结果按顺序拼接为一个多页文档，元信息取第一个结果。
func Merge(results ...*Result) *Result {
	out := &Result{Resources: ResourceSet{Fonts: map[string]FontResource{}}}
	first := true
	for _, r := range results {
		if r == nil {
			continue
		}
		if first {
			out.Meta = r.Meta
			first = false
		}
		out.Pages = append(out.Pages, r.Pages...)
		for k, v := range r.Resources.Fonts {
			out.Resources.Fonts[k] = v
		}
	}
	return out
}
