package compliance

import (
	"regexp"
	"strings"
)

// ProductGroup 是监管意义上的产品分组，始终由品类文本推导，不单独存储。
type ProductGroup string

const (
	GroupElectronics ProductGroup = "electronics"
	GroupTextiles    ProductGroup = "textiles"
	GroupToys        ProductGroup = "toys"
	GroupHousehold   ProductGroup = "household"
	GroupGeneral     ProductGroup = "general"
)

// categoryGroups 是品类 → 分组的精确映射表。
var categoryGroups = map[string]ProductGroup{
	"Electronics":             GroupElectronics,
	"Consumer Electronics":    GroupElectronics,
	"Elektronik":              GroupElectronics,
	"Unterhaltungselektronik": GroupElectronics,
	"Computers":               GroupElectronics,
	"Smartphones":             GroupElectronics,
	"Lighting":                GroupElectronics,
	"Beleuchtung":             GroupElectronics,
	"Textiles":                GroupTextiles,
	"Textilien":               GroupTextiles,
	"Apparel":                 GroupTextiles,
	"Clothing":                GroupTextiles,
	"Bekleidung":              GroupTextiles,
	"Fashion":                 GroupTextiles,
	"Home Textiles":           GroupTextiles,
	"Toys":                    GroupToys,
	"Spielzeug":               GroupToys,
	"Games":                   GroupToys,
	"Baby":                    GroupToys,
	"Household":               GroupHousehold,
	"Haushalt":                GroupHousehold,
	"Kitchen":                 GroupHousehold,
	"Küche":                   GroupHousehold,
	"Home & Garden":           GroupHousehold,
	"Furniture":               GroupHousehold,
	"Möbel":                   GroupHousehold,
}

// foldedCategoryGroups 是 categoryGroups 的小写索引，用于忽略大小写的查找。
var foldedCategoryGroups = foldKeys(categoryGroups)

func foldKeys(in map[string]ProductGroup) map[string]ProductGroup {
	out := make(map[string]ProductGroup, len(in))
	for k, v := range in {
		out[strings.ToLower(k)] = v
	}
	return out
}

type groupPattern struct {
	pattern *regexp.Regexp
	group   ProductGroup
}

// groupPatterns 按顺序匹配，第一条命中即返回。
// 电子类排在最前：例如 "LED Spielzeug" 优先判定为 electronics。
// 容易出现在其他词里的短词按整词匹配，"Socket" 不是 sock，"Clamp" 不是 lamp。
var groupPatterns = []groupPattern{
	{regexp.MustCompile(`(?i)steckdose|stecker|\bsockets?\b|\bplugs?\b|elektr|electr|\bled\b|\blamps?\b|lampe|leucht|kabel|cable|akku|batter|smart|phone|laptop|computer|audio|kopfh|headphone|charger|ladeger`), GroupElectronics},
	{regexp.MustCompile(`(?i)spielzeug|spielwaren|\bspiel|\btoys?\b|puzzle|puppe|\bdolls?\b|pl(ü|ue)sch|plush|lego|baby|kinder|kids`), GroupToys},
	{regexp.MustCompile(`(?i)textil|kleid|cloth|apparel|shirt|\Bhose\b|hosen\b|pants|jacke|jacket|socke|\bsocks?\b|wolle|\bwool|cotton|baumwoll|schals?\b|scarf|bettw|bedding|towel|handtuch`), GroupTextiles},
	{regexp.MustCompile(`(?i)haushalt|household|k(ü|ue)che|kitchen|geschirr|dish|topf|\bpots?\b|pfanne|\bpans?\b|m(ö|oe)bel|furniture|garten|garden|reinig|clean|schale|\bbowls?\b`), GroupHousehold},
}

// Classify 将自由文本品类映射到固定的产品分组。
// 解析顺序：精确键 → 忽略大小写的键 → 正则表 → general。对未知品类从不报错。
func Classify(category string) ProductGroup {
	if strings.TrimSpace(category) == "" {
		return GroupGeneral
	}
	if g, ok := categoryGroups[category]; ok {
		return g
	}
	if g, ok := foldedCategoryGroups[strings.ToLower(strings.TrimSpace(category))]; ok {
		return g
	}
	for _, p := range groupPatterns {
		if p.pattern.MatchString(category) {
			return p.group
		}
	}
	return GroupGeneral
}
