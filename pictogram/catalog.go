// Package pictogram 提供内置的矢量图标目录。目录是静态只读数据，引擎只按 ID 查找。
package pictogram

import "sort"

// CatalogVersion 在目录内容变更时递增，便于调用方识别失效的引用。
const CatalogVersion = 3

// Pictogram 是一条内置图标。SVGPath 在 ViewBox 坐标系内，y 轴向下。
type Pictogram struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	ViewBox     string `json:"viewBox"`
	SVGPath     string `json:"svgPath"`
	Mandatory   bool   `json:"mandatory"`
	Description string `json:"description"`
}

// 图标分类。
const (
	CategoryCompliance = "compliance"
	CategoryRecycling  = "recycling"
	CategoryHandling   = "handling"
	CategorySafety     = "safety"
)

var catalog = map[string]Pictogram{
	"ce": {
		ID:          "ce",
		Name:        "CE",
		Category:    CategoryCompliance,
		ViewBox:     "0 0 24 24",
		SVGPath:     "M8 5 A7 7 0 0 0 8 19 L8 17 A5 5 0 0 1 8 7 Z M13 5 H20 V7 H15 V11 H19 V13 H15 V17 H20 V19 H13 Z",
		Mandatory:   true,
		Description: "CE conformity marking",
	},
	"weee": {
		ID:          "weee",
		Name:        "WEEE",
		Category:    CategoryCompliance,
		ViewBox:     "0 0 24 24",
		SVGPath:     "M5 4 H19 V5.5 H5 Z M6 6.5 H18 L16.5 20 H7.5 Z M3 2 L4.5 2 L21 22 L19.5 22 Z M21 2 L19.5 2 L3 22 L4.5 22 Z",
		Mandatory:   true,
		Description: "Crossed-out wheeled bin: separate collection of electrical equipment",
	},
	"recycle": {
		ID:          "recycle",
		Name:        "Recyclable",
		Category:    CategoryRecycling,
		ViewBox:     "0 0 24 24",
		SVGPath:     "M12 3 L21.5 20 H2.5 Z M12 7 L5.9 18 H18.1 Z",
		Description: "Packaging is recyclable",
	},
	"triman": {
		ID:          "triman",
		Name:        "Triman",
		Category:    CategoryRecycling,
		ViewBox:     "0 0 24 24",
		SVGPath:     "M4 12 A8 8 0 0 1 18.9 8 L21 6.5 L21 12.5 L15.5 10.5 L17.2 9.2 A6 6 0 0 0 6 12 Z M20 12 A8 8 0 0 1 5.1 16 L3 17.5 L3 11.5 L8.5 13.5 L6.8 14.8 A6 6 0 0 0 18 12 Z",
		Description: "French sorting instruction marking",
	},
	"fragile": {
		ID:          "fragile",
		Name:        "Fragile",
		Category:    CategoryHandling,
		ViewBox:     "0 0 24 24",
		SVGPath:     "M7 3 H17 L16 10 A4 4 0 0 1 12.75 13.9 V19 H16 V21 H8 V19 H11.25 V13.9 A4 4 0 0 1 8 10 Z",
		Description: "Handle with care",
	},
	"keep-dry": {
		ID:          "keep-dry",
		Name:        "Keep dry",
		Category:    CategoryHandling,
		ViewBox:     "0 0 24 24",
		SVGPath:     "M3 12 A9 9 0 0 1 21 12 Z M11.25 12 H12.75 V19 A2 2 0 0 1 8.75 19 H10.25 A0.5 0.5 0 0 0 11.25 19 Z",
		Description: "Protect from moisture",
	},
	"this-way-up": {
		ID:          "this-way-up",
		Name:        "This way up",
		Category:    CategoryHandling,
		ViewBox:     "0 0 24 24",
		SVGPath:     "M5 10 L8 4 L11 10 H9 V20 H7 V10 Z M13 10 L16 4 L19 10 H17 V20 H15 V10 Z M4 21 H20 V22 H4 Z",
		Description: "Keep package upright",
	},
	"age-warning-0-3": {
		ID:          "age-warning-0-3",
		Name:        "Not suitable for children under 3",
		Category:    CategorySafety,
		ViewBox:     "0 0 24 24",
		SVGPath:     "M12 2 A10 10 0 1 1 11.99 2 Z M12 4 A8 8 0 1 0 12.01 4 Z M5.6 7 L7 5.6 L18.4 17 L17 18.4 Z",
		Mandatory:   true,
		Description: "Choking hazard warning for toys",
	},
}

// Lookup 按 ID 查找图标。
func Lookup(id string) (Pictogram, bool) {
	p, ok := catalog[id]
	return p, ok
}

// All 返回按 ID 排序的全部图标。
func All() []Pictogram {
	out := make([]Pictogram, 0, len(catalog))
	for _, p := range catalog {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
