// Package fonts 内置 Go 字体家族，并把 (family, bold, italic) 解析到确定的字体变体。
package fonts

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomediumitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/gofont/gosmallcaps"
	"golang.org/x/image/font/gofont/gosmallcapsitalic"
)

// 内置字体家族名称。
const (
	FamilyGo          = "Go"
	FamilyGoMono      = "Go Mono"
	FamilyGoMedium    = "Go Medium"
	FamilyGoSmallcaps = "Go Smallcaps"
)

// DefaultFamily 在家族名为空或未知时使用。
const DefaultFamily = FamilyGo

// Variant 是解析后的具体字体文件。Key 可直接传给 Load。
type Variant struct {
	Family string `json:"family"`
	Bold   bool   `json:"bold"`
	Italic bool   `json:"italic"`
	Key    string `json:"key"`
}

type style struct{ bold, italic bool }

// families 记录每个家族实际拥有的变体文件。
var families = map[string]map[style][]byte{
	FamilyGo: {
		{false, false}: goregular.TTF,
		{true, false}:  gobold.TTF,
		{false, true}:  goitalic.TTF,
		{true, true}:   gobolditalic.TTF,
	},
	FamilyGoMono: {
		{false, false}: gomono.TTF,
		{true, false}:  gomonobold.TTF,
		{false, true}:  gomonoitalic.TTF,
		{true, true}:   gomonobolditalic.TTF,
	},
	FamilyGoMedium: {
		{false, false}: gomedium.TTF,
		{false, true}:  gomediumitalic.TTF,
	},
	FamilyGoSmallcaps: {
		{false, false}: gosmallcaps.TTF,
		{false, true}:  gosmallcapsitalic.TTF,
	},
}

// aliases 把常见的 CSS/设计器字体名映射到内置家族，键为小写。
var aliases = map[string]string{
	"go":           FamilyGo,
	"go regular":   FamilyGo,
	"helvetica":    FamilyGo,
	"arial":        FamilyGo,
	"inter":        FamilyGo,
	"sans-serif":   FamilyGo,
	"sans":         FamilyGo,
	"go mono":      FamilyGoMono,
	"courier":      FamilyGoMono,
	"courier new":  FamilyGoMono,
	"monospace":    FamilyGoMono,
	"mono":         FamilyGoMono,
	"go medium":    FamilyGoMedium,
	"go smallcaps": FamilyGoSmallcaps,
	"small-caps":   FamilyGoSmallcaps,
}

// Resolve 返回最接近请求的变体。缺失的变体先去掉粗体，再去掉斜体，最终总能落到 regular。
func Resolve(family string, bold, italic bool) Variant {
	name := canonicalFamily(family)
	available := families[name]
	for _, s := range []style{{bold, italic}, {false, italic}, {bold, false}, {false, false}} {
		if _, ok := available[s]; ok {
			return Variant{Family: name, Bold: s.bold, Italic: s.italic, Key: variantKey(name, s)}
		}
	}
	return Variant{Family: name, Key: variantKey(name, style{})}
}

// Load 按 Variant.Key 返回字体字节。
func Load(key string) ([]byte, error) {
	key = strings.TrimPrefix(key, "embed:")
	for name, variants := range families {
		for s, data := range variants {
			if variantKey(name, s) == key {
				return data, nil
			}
		}
	}
	return nil, fmt.Errorf("读取内置字体 %s 失败: 不存在该字体", key)
}

// Families 返回按名称排序的内置家族列表。
func Families() []string {
	out := make([]string, 0, len(families))
	for name := range families {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func canonicalFamily(family string) string {
	f := strings.ToLower(strings.TrimSpace(family))
	f = strings.Trim(f, `"'`)
	if name, ok := aliases[f]; ok {
		return name
	}
	for name := range families {
		if strings.EqualFold(name, f) {
			return name
		}
	}
	return DefaultFamily
}

func variantKey(family string, s style) string {
	base := strings.ReplaceAll(family, " ", "")
	switch {
	case s.bold && s.italic:
		return base + "-BoldItalic"
	case s.bold:
		return base + "-Bold"
	case s.italic:
		return base + "-Italic"
	default:
		return base + "-Regular"
	}
}
