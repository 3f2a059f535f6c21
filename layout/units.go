package layout

import "github.com/ByLCY/labelkit/dsl"

// pt 与 mm 的换算常量，与 DSL 保持一致。
const (
	PtToMm = dsl.PtToMm
	MmToPt = dsl.MmToPt
)

// ptToMM 把设计中以 pt 表示的字号换算为布局使用的毫米。
func ptToMM(pt float64) float64 { return pt * PtToMm }
