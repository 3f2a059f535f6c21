// Package validate 对标签数据与标签设计做合规检查。
//
// 两组规则互相独立：Data 只看组装后的 MasterLabelData，Design 只看设计本身。
// 结果只是建议性的报告，是否阻止导出由调用方决定；渲染器不会因为校验失败而拒绝出图。
package validate

import (
	"fmt"
	"strings"

	"github.com/ByLCY/labelkit/compliance"
	"github.com/ByLCY/labelkit/design"
	"github.com/ByLCY/labelkit/labeldata"
)

// Severity 是检查结果的级别。
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// MinFontSizePt 对应欧盟 1.2 mm 最小字高的磅值。
const MinFontSizePt = 3.4

// Finding 是一条检查结果，I18nKey 供界面查找本地化文案。
type Finding struct {
	Field    string   `json:"field"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	I18nKey  string   `json:"i18nKey"`
}

func (f Finding) String() string {
	return fmt.Sprintf("[%s] %s: %s", f.Severity, f.Field, f.Message)
}

// HasErrors 判断结果中是否存在 error 级别的条目。
func HasErrors(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Count 统计指定级别的条目数。
func Count(findings []Finding, sev Severity) int {
	n := 0
	for _, f := range findings {
		if f.Severity == sev {
			n++
		}
	}
	return n
}

// Data 检查组装后的标签数据，结果顺序固定。
func Data(data labeldata.MasterLabelData) []Finding {
	var out []Finding

	if data.Identity.Importer == nil || strings.TrimSpace(data.Identity.Importer.Name) == "" {
		out = append(out, Finding{
			Field:    "importer",
			Message:  "缺少进口商或欧盟授权代表",
			Severity: SeverityError,
			I18nKey:  "validation.importer.missing",
		})
	}
	if strings.TrimSpace(data.Identity.BatchNumber) == "" {
		out = append(out, Finding{
			Field:    "batchNumber",
			Message:  "缺少批次号",
			Severity: SeverityError,
			I18nKey:  "validation.batchNumber.missing",
		})
	}
	if data.Variant == labeldata.VariantB2C && strings.TrimSpace(data.B2CTargetCountry) == "" {
		out = append(out, Finding{
			Field:    "b2cTargetCountry",
			Message:  "B2C 标签未指定目标国家",
			Severity: SeverityWarning,
			I18nKey:  "validation.targetCountry.missing",
		})
	}
	if strings.TrimSpace(data.Identity.Manufacturer.Address) == "" {
		out = append(out, Finding{
			Field:    "manufacturer.address",
			Message:  "制造商地址为空",
			Severity: SeverityWarning,
			I18nKey:  "validation.manufacturerAddress.missing",
		})
	}
	if compliance.RequiresCE(data.ProductGroup) {
		if ce, ok := compliance.FindModule(data.Compliance, compliance.ModuleCE); ok && !ce.Present {
			out = append(out, Finding{
				Field:    "compliance.ce",
				Message:  fmt.Sprintf("产品组 %s 需要 CE 标志，但未找到对应证书", data.ProductGroup),
				Severity: SeverityWarning,
				I18nKey:  "validation.ce.missing",
			})
		}
	}
	if len(data.Sustainability.PackagingMaterialCodes) == 0 {
		out = append(out, Finding{
			Field:    "sustainability.packagingMaterialCodes",
			Message:  "未推导出包装材料回收代码",
			Severity: SeverityInfo,
			I18nKey:  "validation.materialCodes.empty",
		})
	}
	if strings.TrimSpace(data.DPPQR.QRDataURL) == "" {
		out = append(out, Finding{
			Field:    "dppQr.qrDataUrl",
			Message:  "缺少数字产品护照二维码图片",
			Severity: SeverityError,
			I18nKey:  "validation.qr.missing",
		})
	}
	return out
}

// Design 检查设计结构，与具体数据无关。隐藏分区中的元素同样参与检查。
func Design(d *design.LabelDesign) []Finding {
	var (
		out             []Finding
		hasQR           bool
		hasProductName  bool
		hasManufacturer bool
		fontReported    bool
	)
	if d == nil {
		d = &design.LabelDesign{}
	}

	for _, el := range d.OrderedElements() {
		switch body := el.Body.(type) {
		case design.QRCodeBody:
			hasQR = true
		case design.FieldValueBody:
			switch labeldata.FieldKey(body.FieldKey) {
			case labeldata.FieldProductName:
				hasProductName = true
			case labeldata.FieldManufacturerName, labeldata.FieldManufacturerAddress:
				hasManufacturer = true
			}
		}
		if fontReported {
			continue
		}
		st, ok := design.StyleOf(el.Body)
		if !ok {
			continue
		}
		// 0 表示继承基础字号；基础字号也为 0 时由渲染默认值兜底
		size := st.FontSize
		if size <= 0 {
			size = d.BaseFontSize
		}
		if size > 0 && size < MinFontSizePt {
			fontReported = true
			out = append(out, Finding{
				Field:    fmt.Sprintf("element.%s.fontSize", el.ID),
				Message:  fmt.Sprintf("字号 %.1fpt 低于最小值 %.1fpt（1.2 mm 字高）", size, MinFontSizePt),
				Severity: SeverityError,
				I18nKey:  "validation.fontSize.tooSmall",
			})
		}
	}

	if !hasQR {
		out = append(out, Finding{
			Field:    "elements.qr-code",
			Message:  "设计中没有二维码元素",
			Severity: SeverityError,
			I18nKey:  "validation.design.qrMissing",
		})
	}
	if !hasProductName {
		out = append(out, Finding{
			Field:    "elements.productName",
			Message:  "设计中没有绑定产品名称的字段",
			Severity: SeverityWarning,
			I18nKey:  "validation.design.productNameMissing",
		})
	}
	if !hasManufacturer {
		out = append(out, Finding{
			Field:    "elements.manufacturer",
			Message:  "设计中没有制造商名称或地址字段",
			Severity: SeverityWarning,
			I18nKey:  "validation.design.manufacturerMissing",
		})
	}
	return out
}
