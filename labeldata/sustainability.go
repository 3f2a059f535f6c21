package labeldata

import (
	"regexp"
	"strings"
)

type recyclingRule struct {
	pattern *regexp.Regexp
	code    string
}

// recyclingRules 按顺序匹配材料名，每种材料第一条命中即止。
// 复合材料排在单一材料之前，例如 "composite cardboard" 先命中 C/PAP。
// 短缩写（pp、pet、eps、tin、alu）只按整词匹配。
var recyclingRules = []recyclingRule{
	{regexp.MustCompile(`(?i)composite|verbund`), "C/PAP 81"},
	{regexp.MustCompile(`(?i)tetra`), "C/PAP 84"},
	{regexp.MustCompile(`(?i)corrugated|wellpappe|cardboard|\bcartons?\b`), "PAP 20"},
	{regexp.MustCompile(`(?i)karton`), "PAP 21"},
	{regexp.MustCompile(`(?i)pappe`), "PAP 20"},
	{regexp.MustCompile(`(?i)paper|papier`), "PAP 22"},
	{regexp.MustCompile(`(?i)hdpe`), "HDPE 2"},
	{regexp.MustCompile(`(?i)ldpe`), "LDPE 4"},
	{regexp.MustCompile(`(?i)\bpvc\b`), "PVC 3"},
	{regexp.MustCompile(`(?i)\bpet\b`), "PET 1"},
	{regexp.MustCompile(`(?i)polypropylen|\bpp\b`), "PP 5"},
	{regexp.MustCompile(`(?i)polystyr|styropor|\beps\b`), "PS 6"},
	{regexp.MustCompile(`(?i)polyethylen|foil|folie`), "LDPE 4"},
	{regexp.MustCompile(`(?i)alumini?um|\balu\b`), "ALU 41"},
	{regexp.MustCompile(`(?i)steel|stahl|\btin\b|weißblech`), "FE 40"},
	{regexp.MustCompile(`(?i)glas`), "GL 70"},
	{regexp.MustCompile(`(?i)wood|holz`), "FOR 50"},
	{regexp.MustCompile(`(?i)cork|kork`), "FOR 51"},
	{regexp.MustCompile(`(?i)cotton|baumwolle`), "TEX 60"},
	{regexp.MustCompile(`(?i)\bjute\b`), "TEX 61"},
}

// BuildSustainability 只从包装类材料推导回收代码，不做任何猜测性填充。
// 回收说明优先级：包装专用说明 → 通用说明 → 空字符串。
func BuildSustainability(materials []Material, rec *Recyclability) SustainabilitySection {
	codes := []string{}
	seen := map[string]bool{}
	for _, m := range materials {
		if m.Type != MaterialTypePackaging {
			continue
		}
		code := recyclingCodeFor(m.Name)
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		codes = append(codes, code)
	}

	instructions := ""
	if rec != nil {
		switch {
		case strings.TrimSpace(rec.PackagingInstructions) != "":
			instructions = rec.PackagingInstructions
		case strings.TrimSpace(rec.Instructions) != "":
			instructions = rec.Instructions
		}
	}

	return SustainabilitySection{
		PackagingMaterialCodes: codes,
		RecyclingInstructions:  instructions,
		VolumeOptimized:        false,
	}
}

func recyclingCodeFor(name string) string {
	for _, r := range recyclingRules {
		if r.pattern.MatchString(name) {
			return r.code
		}
	}
	return ""
}
