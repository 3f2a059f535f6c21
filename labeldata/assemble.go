package labeldata

import (
	"strings"

	"github.com/ByLCY/labelkit/compliance"
)

// AssembleParams 汇总一次组装所需的全部实体数据与调用方预生成的二维码。
type AssembleParams struct {
	Product      Product
	Batch        *Batch
	Manufacturer *Supplier
	Importer     *Supplier
	Variant      Variant
	DPPQR        DPPQR

	// B2C 专属输入
	TargetCountry string
	DisposalHint  string
}

// Assemble 组装 MasterLabelData。纯函数：相同输入总是得到相同输出，无副作用。
func Assemble(p AssembleParams) MasterLabelData {
	group := compliance.Classify(p.Product.Category)

	materials, certs, rec := effectiveInputs(p.Product, p.Batch)
	certNames := make([]string, 0, len(certs))
	for _, c := range certs {
		certNames = append(certNames, c.Name)
	}

	data := MasterLabelData{
		Variant:        p.Variant,
		ProductGroup:   group,
		Identity:       BuildIdentity(p.Product, p.Batch, p.Manufacturer, p.Importer),
		DPPQR:          p.DPPQR,
		Compliance:     compliance.BuildModules(group, certNames, mergeRegistrations(p.Product, p.Manufacturer)),
		Sustainability: BuildSustainability(materials, rec),
	}

	switch p.Variant {
	case VariantB2B:
		if p.Batch != nil {
			if p.Batch.Quantity != nil {
				q := *p.Batch.Quantity
				data.B2BQuantity = &q
			}
			if p.Batch.GrossWeight != nil {
				w := *p.Batch.GrossWeight
				data.B2BGrossWeight = &w
			}
		}
	case VariantB2C:
		data.B2CTargetCountry = strings.TrimSpace(p.TargetCountry)
		data.B2CDisposalHint = strings.TrimSpace(p.DisposalHint)
		if data.B2CDisposalHint == "" {
			data.B2CDisposalHint = data.Sustainability.RecyclingInstructions
		}
	}
	return data
}

// effectiveInputs 应用 "批次覆盖优先于产品" 的规则：非 nil 的覆盖字段整体替换产品数据。
func effectiveInputs(product Product, batch *Batch) ([]Material, []Certification, *Recyclability) {
	materials := product.Materials
	certs := product.Certifications
	rec := product.Recyclability
	if batch != nil {
		if batch.MaterialsOverride != nil {
			materials = batch.MaterialsOverride
		}
		if batch.CertificationsOverride != nil {
			certs = batch.CertificationsOverride
		}
		if batch.RecyclabilityOverride != nil {
			rec = batch.RecyclabilityOverride
		}
	}
	return materials, certs, rec
}

// mergeRegistrations 以制造商记录的注册信息覆盖产品自身的注册信息。
func mergeRegistrations(product Product, manufacturer *Supplier) map[string]string {
	out := make(map[string]string, len(product.Registrations))
	for k, v := range product.Registrations {
		out[k] = v
	}
	if manufacturer != nil {
		for k, v := range manufacturer.Registrations {
			if strings.TrimSpace(v) != "" {
				out[k] = v
			}
		}
	}
	return out
}
