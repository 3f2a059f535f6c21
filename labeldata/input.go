package labeldata

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Input 是一次组装所需的实体记录文件（产品、批次、供应商），由 CLI 或上游服务提供。
type Input struct {
	Product       Product   `json:"product" yaml:"product"`
	Batch         *Batch    `json:"batch,omitempty" yaml:"batch,omitempty"`
	Manufacturer  *Supplier `json:"manufacturerSupplier,omitempty" yaml:"manufacturerSupplier,omitempty"`
	Importer      *Supplier `json:"importerSupplier,omitempty" yaml:"importerSupplier,omitempty"`
	Variant       Variant   `json:"variant,omitempty" yaml:"variant,omitempty"`
	TargetCountry string    `json:"targetCountry,omitempty" yaml:"targetCountry,omitempty"`
	DisposalHint  string    `json:"disposalHint,omitempty" yaml:"disposalHint,omitempty"`
}

// Params 将输入记录与预生成的二维码组合成组装参数，未指定变体时按 b2c 处理。
func (in Input) Params(qr DPPQR) AssembleParams {
	variant := in.Variant
	if variant == "" {
		variant = VariantB2C
	}
	return AssembleParams{
		Product:       in.Product,
		Batch:         in.Batch,
		Manufacturer:  in.Manufacturer,
		Importer:      in.Importer,
		Variant:       variant,
		DPPQR:         qr,
		TargetCountry: in.TargetCountry,
		DisposalHint:  in.DisposalHint,
	}
}

// SerialNumber 返回批次序列号，没有批次时为空。
func (in Input) SerialNumber() string {
	if in.Batch == nil {
		return ""
	}
	return in.Batch.SerialNumber
}

// DecodeInput 按格式（"json" 或 "yaml"）解析输入记录。
func DecodeInput(r io.Reader, format string) (Input, error) {
	var in Input
	switch strings.ToLower(format) {
	case "json":
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&in); err != nil {
			return Input{}, fmt.Errorf("解析 JSON 输入失败: %w", err)
		}
	case "yaml", "yml":
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&in); err != nil && err != io.EOF {
			return Input{}, fmt.Errorf("解析 YAML 输入失败: %w", err)
		}
	default:
		return Input{}, fmt.Errorf("不支持的输入格式 %q", format)
	}
	switch in.Variant {
	case "", VariantB2B, VariantB2C:
	default:
		return Input{}, fmt.Errorf("未知的标签变体 %q", in.Variant)
	}
	return in, nil
}

// LoadInput 读取输入文件，格式由扩展名决定（.json / .yaml / .yml）。
func LoadInput(path string) (Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return Input{}, fmt.Errorf("打开输入文件失败: %w", err)
	}
	defer f.Close()
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return DecodeInput(f, format)
}
