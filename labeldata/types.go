package labeldata

import "github.com/ByLCY/labelkit/compliance"

// 该文件定义组装输入（产品/批次/供应商记录）与输出快照 MasterLabelData。

// Material 是产品或批次上的一条材料记录，Type 为 "packaging" 时参与回收代码推导。
type Material struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type,omitempty" yaml:"type,omitempty"`
}

// MaterialTypePackaging 标记包装材料。
const MaterialTypePackaging = "packaging"

// Certification 仅以名称参与合规推导。
type Certification struct {
	Name   string `json:"name" yaml:"name"`
	Issuer string `json:"issuer,omitempty" yaml:"issuer,omitempty"`
}

// Recyclability 保存回收说明，包装专用说明优先。
type Recyclability struct {
	Instructions          string   `json:"instructions,omitempty" yaml:"instructions,omitempty"`
	PackagingInstructions string   `json:"packagingInstructions,omitempty" yaml:"packagingInstructions,omitempty"`
	RecyclablePercentage  *float64 `json:"recyclablePercentage,omitempty" yaml:"recyclablePercentage,omitempty"`
}

// Product 是只读的产品记录；自由文本的制造商/进口商字段会被关联的供应商记录覆盖。
type Product struct {
	Name                string            `json:"name" yaml:"name"`
	GTIN                string            `json:"gtin,omitempty" yaml:"gtin,omitempty"`
	SKU                 string            `json:"sku,omitempty" yaml:"sku,omitempty"`
	Category            string            `json:"category,omitempty" yaml:"category,omitempty"`
	CountryOfOrigin     string            `json:"countryOfOrigin,omitempty" yaml:"countryOfOrigin,omitempty"`
	BatchNumber         string            `json:"batchNumber,omitempty" yaml:"batchNumber,omitempty"`
	ManufacturerName    string            `json:"manufacturer,omitempty" yaml:"manufacturer,omitempty"`
	ManufacturerAddress string            `json:"manufacturerAddress,omitempty" yaml:"manufacturerAddress,omitempty"`
	ImporterName        string            `json:"importerName,omitempty" yaml:"importerName,omitempty"`
	ImporterAddress     string            `json:"importerAddress,omitempty" yaml:"importerAddress,omitempty"`
	Materials           []Material        `json:"materials,omitempty" yaml:"materials,omitempty"`
	Certifications      []Certification   `json:"certifications,omitempty" yaml:"certifications,omitempty"`
	Recyclability       *Recyclability    `json:"recyclability,omitempty" yaml:"recyclability,omitempty"`
	Registrations       map[string]string `json:"registrations,omitempty" yaml:"registrations,omitempty"`
}

// Batch 是生产批次，非 nil 的 override 字段整体替换产品级数据。
type Batch struct {
	BatchNumber            string          `json:"batchNumber,omitempty" yaml:"batchNumber,omitempty"`
	SerialNumber           string          `json:"serialNumber,omitempty" yaml:"serialNumber,omitempty"`
	MaterialsOverride      []Material      `json:"materialsOverride,omitempty" yaml:"materialsOverride,omitempty"`
	CertificationsOverride []Certification `json:"certificationsOverride,omitempty" yaml:"certificationsOverride,omitempty"`
	RecyclabilityOverride  *Recyclability  `json:"recyclabilityOverride,omitempty" yaml:"recyclabilityOverride,omitempty"`
	Quantity               *int            `json:"quantity,omitempty" yaml:"quantity,omitempty"`
	GrossWeight            *float64        `json:"grossWeight,omitempty" yaml:"grossWeight,omitempty"` // 克
}

// Supplier 是结构化的供应商记录（制造商或进口商）。
type Supplier struct {
	Name          string            `json:"name" yaml:"name"`
	Street        string            `json:"street,omitempty" yaml:"street,omitempty"`
	AddressLine2  string            `json:"addressLine2,omitempty" yaml:"addressLine2,omitempty"`
	PostalCode    string            `json:"postalCode,omitempty" yaml:"postalCode,omitempty"`
	City          string            `json:"city,omitempty" yaml:"city,omitempty"`
	Country       string            `json:"country,omitempty" yaml:"country,omitempty"`
	Registrations map[string]string `json:"registrations,omitempty" yaml:"registrations,omitempty"`
}

// Variant 选择标签的内容档案。
type Variant string

const (
	VariantB2B Variant = "b2b"
	VariantB2C Variant = "b2c"
)

// Party 是制造商/进口商的名称与地址块。
type Party struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// IdentitySection 是标签上的身份信息块。Importer 为 nil 表示没有关联进口商。
type IdentitySection struct {
	ProductName     string `json:"productName"`
	ModelSKU        string `json:"modelSku"`
	BatchNumber     string `json:"batchNumber"`
	GTIN            string `json:"gtin,omitempty"`
	Category        string `json:"category,omitempty"`
	CountryOfOrigin string `json:"countryOfOrigin,omitempty"`
	Manufacturer    Party  `json:"manufacturer"`
	Importer        *Party `json:"importer,omitempty"`
}

// SustainabilitySection 保存推导出的包装回收代码（去重、保持出现顺序）。
type SustainabilitySection struct {
	PackagingMaterialCodes []string `json:"packagingMaterialCodes"`
	RecyclingInstructions  string   `json:"recyclingInstructions"`
	VolumeOptimized        bool     `json:"volumeOptimized"`
}

// DPPQR 由调用方预先生成：QRDataURL 可能为空（生成失败时降级）。
type DPPQR struct {
	QRDataURL string `json:"qrDataUrl"`
	LabelText string `json:"labelText"`
	DPPURL    string `json:"dppUrl"`
}

// PackageCounter 是批量导出时注入的 "第 X 件 / 共 Y 件" 上下文。
type PackageCounter struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// MasterLabelData 是预览与渲染共用的不可变快照。
// 变体专属字段只在对应变体下填充，读取前必须先检查 Variant。
type MasterLabelData struct {
	Variant          Variant                 `json:"variant"`
	ProductGroup     compliance.ProductGroup `json:"productGroup"`
	Identity         IdentitySection         `json:"identity"`
	DPPQR            DPPQR                   `json:"dppQr"`
	Compliance       []compliance.ModuleIcon `json:"compliance"`
	Sustainability   SustainabilitySection   `json:"sustainability"`
	B2BQuantity      *int                    `json:"b2bQuantity,omitempty"`
	B2BGrossWeight   *float64                `json:"b2bGrossWeight,omitempty"`
	B2CTargetCountry string                  `json:"b2cTargetCountry,omitempty"`
	B2CDisposalHint  string                  `json:"b2cDisposalHint,omitempty"`
	Counter          *PackageCounter         `json:"counter,omitempty"`
}

// WithCounter 返回注入计数器后的派生副本；接收者本身保持不变。
func (d MasterLabelData) WithCounter(current, total int) MasterLabelData {
	out := d.clone()
	out.Counter = &PackageCounter{Current: current, Total: total}
	return out
}

// clone 深拷贝所有引用类型字段，保证派生副本与原快照互不影响。
func (d MasterLabelData) clone() MasterLabelData {
	out := d
	if d.Identity.Importer != nil {
		imp := *d.Identity.Importer
		out.Identity.Importer = &imp
	}
	if d.Compliance != nil {
		out.Compliance = append([]compliance.ModuleIcon(nil), d.Compliance...)
	}
	if d.Sustainability.PackagingMaterialCodes != nil {
		out.Sustainability.PackagingMaterialCodes = append([]string(nil), d.Sustainability.PackagingMaterialCodes...)
	}
	if d.B2BQuantity != nil {
		q := *d.B2BQuantity
		out.B2BQuantity = &q
	}
	if d.B2BGrossWeight != nil {
		w := *d.B2BGrossWeight
		out.B2BGrossWeight = &w
	}
	if d.Counter != nil {
		c := *d.Counter
		out.Counter = &c
	}
	return out
}
