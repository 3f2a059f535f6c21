package design

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ElementType 是元素的类型判别值。
type ElementType string

const (
	TypeText            ElementType = "text"
	TypeFieldValue      ElementType = "field-value"
	TypeQRCode          ElementType = "qr-code"
	TypePictogram       ElementType = "pictogram"
	TypeComplianceBadge ElementType = "compliance-badge"
	TypeImage           ElementType = "image"
	TypeDivider         ElementType = "divider"
	TypeSpacer          ElementType = "spacer"
	TypeMaterialCode    ElementType = "material-code"
	TypeBarcode         ElementType = "barcode"
	TypeIconText        ElementType = "icon-text"
	TypePackageCounter  ElementType = "package-counter"
)

// ErrUnknownElementType 表示 JSON 中出现了未定义的元素类型。
var ErrUnknownElementType = errors.New("未知的元素类型")

// Element 是分区内的一个可渲染单元。Body 决定元素类型。
type Element struct {
	ID        string
	SectionID string
	SortOrder int
	Body      Body
}

// Type 返回元素类型，Body 为空时返回空串。
func (e Element) Type() ElementType {
	if e.Body == nil {
		return ""
	}
	return e.Body.Type()
}

// Body 是封闭的元素内容集合，每种元素类型对应一个结构体。
type Body interface {
	Type() ElementType
	body()
}

// TextStyle 是文本类元素的样式。FontSize 单位为 pt，0 表示继承设计的基础字号。
type TextStyle struct {
	FontSize   float64 `json:"fontSize,omitempty"`
	Bold       bool    `json:"bold,omitempty"`
	Italic     bool    `json:"italic,omitempty"`
	Color      string  `json:"color,omitempty"`
	Align      string  `json:"align,omitempty"`
	FontFamily string  `json:"fontFamily,omitempty"`
}

type TextBody struct {
	Content string    `json:"content"`
	Style   TextStyle `json:"style"`
}

type FieldValueBody struct {
	FieldKey  string    `json:"fieldKey"`
	ShowLabel bool      `json:"showLabel,omitempty"`
	Label     string    `json:"label,omitempty"`
	Style     TextStyle `json:"style"`
}

// QRCodeBody 的 Size 单位为毫米。
type QRCodeBody struct {
	Size      float64   `json:"size,omitempty"`
	ShowLabel bool      `json:"showLabel,omitempty"`
	ShowURL   bool      `json:"showUrl,omitempty"`
	Style     TextStyle `json:"style"`
}

type PictogramBody struct {
	PictogramID string  `json:"pictogramId"`
	Size        float64 `json:"size,omitempty"`
	Color       string  `json:"color,omitempty"`
}

// ComplianceBadgeBody 为空的 ModuleIDs 表示显示全部模块。
type ComplianceBadgeBody struct {
	ModuleIDs  []string  `json:"moduleIds,omitempty"`
	ShowAbsent bool      `json:"showAbsent,omitempty"`
	Size       float64   `json:"size,omitempty"`
	Style      TextStyle `json:"style"`
}

// ImageBody 的 Src 可以是 data URL、builtin:name 或相对路径。Fit 取 contain/cover/stretch。
type ImageBody struct {
	Src    string  `json:"src"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
	Fit    string  `json:"fit,omitempty"`
}

type DividerBody struct {
	Thickness float64 `json:"thickness,omitempty"`
	Color     string  `json:"color,omitempty"`
}

type SpacerBody struct {
	Height float64 `json:"height,omitempty"`
}

// MaterialCodeBody 在 AutoPopulate 时优先使用推导出的包装回收代码。
type MaterialCodeBody struct {
	Codes        []string  `json:"codes,omitempty"`
	AutoPopulate bool      `json:"autoPopulate,omitempty"`
	Style        TextStyle `json:"style"`
}

// 条码格式。
const (
	BarcodeEAN13   = "ean13"
	BarcodeCode128 = "code128"
)

// BarcodeBody 优先使用 FieldKey 解析出的值，其次是字面量 Value。
type BarcodeBody struct {
	Format   string    `json:"format"`
	FieldKey string    `json:"fieldKey,omitempty"`
	Value    string    `json:"value,omitempty"`
	Width    float64   `json:"width,omitempty"`
	Height   float64   `json:"height,omitempty"`
	ShowText bool      `json:"showText,omitempty"`
	Style    TextStyle `json:"style"`
}

type IconTextBody struct {
	PictogramID string    `json:"pictogramId,omitempty"`
	Text        string    `json:"text,omitempty"`
	FieldKey    string    `json:"fieldKey,omitempty"`
	IconSize    float64   `json:"iconSize,omitempty"`
	Style       TextStyle `json:"style"`
}

type PackageCounterBody struct {
	Format string    `json:"format,omitempty"`
	Locale string    `json:"locale,omitempty"`
	Style  TextStyle `json:"style"`
}

func (TextBody) Type() ElementType            { return TypeText }
func (FieldValueBody) Type() ElementType      { return TypeFieldValue }
func (QRCodeBody) Type() ElementType          { return TypeQRCode }
func (PictogramBody) Type() ElementType       { return TypePictogram }
func (ComplianceBadgeBody) Type() ElementType { return TypeComplianceBadge }
func (ImageBody) Type() ElementType           { return TypeImage }
func (DividerBody) Type() ElementType         { return TypeDivider }
func (SpacerBody) Type() ElementType          { return TypeSpacer }
func (MaterialCodeBody) Type() ElementType    { return TypeMaterialCode }
func (BarcodeBody) Type() ElementType         { return TypeBarcode }
func (IconTextBody) Type() ElementType        { return TypeIconText }
func (PackageCounterBody) Type() ElementType  { return TypePackageCounter }

func (TextBody) body()            {}
func (FieldValueBody) body()      {}
func (QRCodeBody) body()          {}
func (PictogramBody) body()       {}
func (ComplianceBadgeBody) body() {}
func (ImageBody) body()           {}
func (DividerBody) body()         {}
func (SpacerBody) body()          {}
func (MaterialCodeBody) body()    {}
func (BarcodeBody) body()         {}
func (IconTextBody) body()        {}
func (PackageCounterBody) body()  {}

// StyleOf 返回文本类元素的样式；不含文本的元素返回 false。
func StyleOf(b Body) (TextStyle, bool) {
	switch v := b.(type) {
	case TextBody:
		return v.Style, true
	case FieldValueBody:
		return v.Style, true
	case QRCodeBody:
		return v.Style, true
	case ComplianceBadgeBody:
		return v.Style, true
	case MaterialCodeBody:
		return v.Style, true
	case BarcodeBody:
		return v.Style, true
	case IconTextBody:
		return v.Style, true
	case PackageCounterBody:
		return v.Style, true
	default:
		return TextStyle{}, false
	}
}

var bodyDecoders = map[ElementType]func([]byte) (Body, error){
	TypeText:            decodeAs[TextBody],
	TypeFieldValue:      decodeAs[FieldValueBody],
	TypeQRCode:          decodeAs[QRCodeBody],
	TypePictogram:       decodeAs[PictogramBody],
	TypeComplianceBadge: decodeAs[ComplianceBadgeBody],
	TypeImage:           decodeAs[ImageBody],
	TypeDivider:         decodeAs[DividerBody],
	TypeSpacer:          decodeAs[SpacerBody],
	TypeMaterialCode:    decodeAs[MaterialCodeBody],
	TypeBarcode:         decodeAs[BarcodeBody],
	TypeIconText:        decodeAs[IconTextBody],
	TypePackageCounter:  decodeAs[PackageCounterBody],
}

func decodeAs[T Body](data []byte) (Body, error) {
	var b T
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	return b, nil
}

type elementHeader struct {
	ID        string      `json:"id"`
	SectionID string      `json:"sectionId"`
	SortOrder int         `json:"sortOrder"`
	Type      ElementType `json:"type"`
}

// MarshalJSON 输出扁平对象：公共字段与 Body 字段同级，type 为判别值。
func (e Element) MarshalJSON() ([]byte, error) {
	if e.Body == nil {
		return nil, fmt.Errorf("元素 %s 缺少内容", e.ID)
	}
	raw, err := json.Marshal(e.Body)
	if err != nil {
		return nil, fmt.Errorf("编码元素 %s 失败: %w", e.ID, err)
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("编码元素 %s 失败: %w", e.ID, err)
	}
	head, err := json.Marshal(elementHeader{ID: e.ID, SectionID: e.SectionID, SortOrder: e.SortOrder, Type: e.Body.Type()})
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(head, &fields); err != nil {
		return nil, err
	}
	return json.Marshal(fields)
}

// UnmarshalJSON 按 type 选择具体的 Body，未知类型返回 ErrUnknownElementType。
func (e *Element) UnmarshalJSON(data []byte) error {
	var head elementHeader
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	decode, ok := bodyDecoders[head.Type]
	if !ok {
		return fmt.Errorf("%w: %q（元素 %s）", ErrUnknownElementType, head.Type, head.ID)
	}
	body, err := decode(data)
	if err != nil {
		return fmt.Errorf("解析元素 %s 失败: %w", head.ID, err)
	}
	*e = Element{ID: head.ID, SectionID: head.SectionID, SortOrder: head.SortOrder, Body: body}
	return nil
}
