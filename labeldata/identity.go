package labeldata

import "strings"

// BuildIdentity 解析身份信息块。
// 名称/地址：关联的结构化供应商记录 > 产品自由文本 > 空字符串。
// 批次号：批次自身 > 产品 > 空字符串。没有关联进口商时 Importer 为 nil。
func BuildIdentity(product Product, batch *Batch, manufacturer, importer *Supplier) IdentitySection {
	id := IdentitySection{
		ProductName:     product.Name,
		ModelSKU:        product.SKU,
		GTIN:            product.GTIN,
		Category:        product.Category,
		CountryOfOrigin: product.CountryOfOrigin,
		BatchNumber:     product.BatchNumber,
		Manufacturer: Party{
			Name:    product.ManufacturerName,
			Address: product.ManufacturerAddress,
		},
	}
	if batch != nil && strings.TrimSpace(batch.BatchNumber) != "" {
		id.BatchNumber = batch.BatchNumber
	}
	if manufacturer != nil {
		id.Manufacturer = resolveParty(manufacturer, id.Manufacturer)
	}
	if importer != nil {
		imp := resolveParty(importer, Party{Name: product.ImporterName, Address: product.ImporterAddress})
		id.Importer = &imp
	}
	return id
}

// resolveParty 逐字段应用覆盖链：供应商记录中非空的字段优先。
func resolveParty(s *Supplier, fallback Party) Party {
	p := fallback
	if strings.TrimSpace(s.Name) != "" {
		p.Name = s.Name
	}
	if addr := FormatSupplierAddress(*s); addr != "" {
		p.Address = addr
	}
	return p
}

// FormatSupplierAddress 按固定顺序拼接地址：街道、地址第二行、"邮编 城市"、国家，
// 以 ", " 连接非空部分；邮编与城市都缺失时整段省略。
func FormatSupplierAddress(s Supplier) string {
	parts := make([]string, 0, 4)
	if v := strings.TrimSpace(s.Street); v != "" {
		parts = append(parts, v)
	}
	if v := strings.TrimSpace(s.AddressLine2); v != "" {
		parts = append(parts, v)
	}
	cityLine := strings.TrimSpace(strings.Join(nonEmpty(s.PostalCode, s.City), " "))
	if cityLine != "" {
		parts = append(parts, cityLine)
	}
	if v := strings.TrimSpace(s.Country); v != "" {
		parts = append(parts, v)
	}
	return strings.Join(parts, ", ")
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
