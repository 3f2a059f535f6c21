package design

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ByLCY/labelkit/dsl"
)

// LoadJSON 从 JSON 读取设计并校验引用。
func LoadJSON(r io.Reader) (*LabelDesign, error) {
	var d LabelDesign
	dec := json.NewDecoder(r)
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("解析设计 JSON 失败: %w", err)
	}
	return &d, nil
}

// LoadYAML 读取 YAML 形式的设计。字段名与 JSON 相同，先转为 JSON 再走同一套解码与校验。
func LoadYAML(r io.Reader) (*LabelDesign, error) {
	var raw map[string]any
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("解析设计 YAML 失败: %w", err)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("转换设计 YAML 失败: %w", err)
	}
	var d LabelDesign
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("解析设计 YAML 失败: %w", err)
	}
	return &d, nil
}

// LoadDSL 解析标签 DSL 并转换为设计。
func LoadDSL(r io.Reader) (*LabelDesign, error) {
	doc, err := dsl.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("解析标签 DSL 失败: %w", err)
	}
	return FromDSL(doc)
}

// Load 按扩展名选择格式：.json、.yaml/.yml、.label。
func Load(path string) (*LabelDesign, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("无法打开设计文件 %s: %w", path, err)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return LoadJSON(file)
	case ".yaml", ".yml":
		return LoadYAML(file)
	case ".label", ".lbl":
		return LoadDSL(file)
	default:
		return nil, fmt.Errorf("不支持的设计文件格式: %s", path)
	}
}

// WriteJSON 以缩进 JSON 输出设计。
func WriteJSON(w io.Writer, d *LabelDesign) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("编码设计失败: %w", err)
	}
	return nil
}
