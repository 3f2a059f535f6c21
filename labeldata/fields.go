package labeldata

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/language"
)

// FieldKey 是 field-value 元素可绑定的抽象字段名。
type FieldKey string

const (
	FieldProductName         FieldKey = "productName"
	FieldModelSKU            FieldKey = "modelSku"
	FieldGTIN                FieldKey = "gtin"
	FieldBatchNumber         FieldKey = "batchNumber"
	FieldManufacturerName    FieldKey = "manufacturerName"
	FieldManufacturerAddress FieldKey = "manufacturerAddress"
	FieldImporterName        FieldKey = "importerName"
	FieldImporterAddress     FieldKey = "importerAddress"
	FieldCountryOfOrigin     FieldKey = "countryOfOrigin"
	FieldCategory            FieldKey = "category"
	FieldGrossWeight         FieldKey = "grossWeight"
	FieldQuantity            FieldKey = "quantity"
	FieldMadeIn              FieldKey = "madeIn"
	FieldTargetCountry       FieldKey = "targetCountry"
	FieldDisposalHint        FieldKey = "disposalHint"
	FieldDPPURL              FieldKey = "dppUrl"

	// 以下字段已预留但快照中没有数据来源，始终解析为空字符串。
	FieldSerialNumber   FieldKey = "serialNumber"
	FieldProductionDate FieldKey = "productionDate"
	FieldExpiryDate     FieldKey = "expiryDate"
	FieldNetWeight      FieldKey = "netWeight"
)

// FieldKeys 返回全部已定义的字段名，顺序固定。
func FieldKeys() []FieldKey {
	return []FieldKey{
		FieldProductName, FieldModelSKU, FieldGTIN, FieldBatchNumber,
		FieldManufacturerName, FieldManufacturerAddress, FieldImporterName, FieldImporterAddress,
		FieldCountryOfOrigin, FieldCategory, FieldGrossWeight, FieldQuantity, FieldMadeIn,
		FieldTargetCountry, FieldDisposalHint, FieldDPPURL,
		FieldSerialNumber, FieldProductionDate, FieldExpiryDate, FieldNetWeight,
	}
}

// ResolveFieldValue 将字段名解析为快照中的字符串值。
// 预览与渲染共用此函数；未知字段与无数据字段一律返回 ""，从不报错。
func ResolveFieldValue(key FieldKey, data MasterLabelData) string {
	switch key {
	case FieldProductName:
		return data.Identity.ProductName
	case FieldModelSKU:
		return data.Identity.ModelSKU
	case FieldGTIN:
		return data.Identity.GTIN
	case FieldBatchNumber:
		return data.Identity.BatchNumber
	case FieldManufacturerName:
		return data.Identity.Manufacturer.Name
	case FieldManufacturerAddress:
		return data.Identity.Manufacturer.Address
	case FieldImporterName:
		if data.Identity.Importer == nil {
			return ""
		}
		return data.Identity.Importer.Name
	case FieldImporterAddress:
		if data.Identity.Importer == nil {
			return ""
		}
		return data.Identity.Importer.Address
	case FieldCountryOfOrigin:
		return data.Identity.CountryOfOrigin
	case FieldCategory:
		return data.Identity.Category
	case FieldGrossWeight:
		if data.Variant != VariantB2B || data.B2BGrossWeight == nil {
			return ""
		}
		return FormatGrossWeight(*data.B2BGrossWeight)
	case FieldQuantity:
		if data.Variant != VariantB2B || data.B2BQuantity == nil {
			return ""
		}
		return strconv.Itoa(*data.B2BQuantity)
	case FieldMadeIn:
		if c := strings.TrimSpace(data.Identity.CountryOfOrigin); c != "" {
			return "Made in " + c
		}
		return ""
	case FieldTargetCountry:
		if data.Variant != VariantB2C {
			return ""
		}
		return data.B2CTargetCountry
	case FieldDisposalHint:
		if data.Variant != VariantB2C {
			return ""
		}
		return data.B2CDisposalHint
	case FieldDPPURL:
		return data.DPPQR.DPPURL
	case FieldSerialNumber, FieldProductionDate, FieldExpiryDate, FieldNetWeight:
		return ""
	default:
		return ""
	}
}

// FormatGrossWeight 将克转换为千克，保留两位小数并带 " kg" 单位，例如 1500 → "1.50 kg"。
func FormatGrossWeight(grams float64) string {
	return fmt.Sprintf("%.2f kg", grams/1000)
}

var fieldLabels = map[language.Tag]map[FieldKey]string{
	language.English: {
		FieldProductName:         "Product",
		FieldModelSKU:            "Model / SKU",
		FieldGTIN:                "GTIN",
		FieldBatchNumber:         "Batch",
		FieldManufacturerName:    "Manufacturer",
		FieldManufacturerAddress: "Manufacturer address",
		FieldImporterName:        "Importer",
		FieldImporterAddress:     "Importer address",
		FieldCountryOfOrigin:     "Country of origin",
		FieldCategory:            "Category",
		FieldGrossWeight:         "Gross weight",
		FieldQuantity:            "Quantity",
		FieldMadeIn:              "Origin",
		FieldTargetCountry:       "Destination",
		FieldDisposalHint:        "Disposal",
		FieldDPPURL:              "Product passport",
		FieldSerialNumber:        "Serial number",
		FieldProductionDate:      "Production date",
		FieldExpiryDate:          "Expiry date",
		FieldNetWeight:           "Net weight",
	},
	language.German: {
		FieldProductName:         "Produkt",
		FieldModelSKU:            "Modell / Artikelnr.",
		FieldGTIN:                "GTIN",
		FieldBatchNumber:         "Charge",
		FieldManufacturerName:    "Hersteller",
		FieldManufacturerAddress: "Herstelleranschrift",
		FieldImporterName:        "Importeur",
		FieldImporterAddress:     "Importeuranschrift",
		FieldCountryOfOrigin:     "Ursprungsland",
		FieldCategory:            "Kategorie",
		FieldGrossWeight:         "Bruttogewicht",
		FieldQuantity:            "Menge",
		FieldMadeIn:              "Herkunft",
		FieldTargetCountry:       "Zielland",
		FieldDisposalHint:        "Entsorgung",
		FieldDPPURL:              "Produktpass",
		FieldSerialNumber:        "Seriennummer",
		FieldProductionDate:      "Herstelldatum",
		FieldExpiryDate:          "Verfallsdatum",
		FieldNetWeight:           "Nettogewicht",
	},
}

var labelMatcher = language.NewMatcher([]language.Tag{language.English, language.German})

// FieldLabel 返回字段在指定语言下的标题，未知语言回退到英文，未知字段返回字段名本身。
func FieldLabel(key FieldKey, locale string) string {
	tag := matchLocale(labelMatcher, locale, []language.Tag{language.English, language.German})
	if label, ok := fieldLabels[tag][key]; ok {
		return label
	}
	return string(key)
}

// matchLocale 用 BCP-47 匹配选出支持列表中的一项；解析失败时返回列表第一项。
func matchLocale(m language.Matcher, locale string, supported []language.Tag) language.Tag {
	if strings.TrimSpace(locale) == "" {
		return supported[0]
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return supported[0]
	}
	_, idx, conf := m.Match(tag)
	if conf == language.No {
		return supported[0]
	}
	return supported[idx]
}
