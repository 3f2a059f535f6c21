// Package design 定义用户编辑并持久化的标签设计：分区与元素。
package design

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidDesign 表示设计的结构引用不一致（重复 ID、悬空的 sectionId 等）。
var ErrInvalidDesign = errors.New("标签设计无效")

// LabelDesign 是一份标签版式。尺寸单位为毫米，字号单位为 pt。
type LabelDesign struct {
	ID              string    `json:"id,omitempty"`
	Name            string    `json:"name"`
	PageWidth       float64   `json:"pageWidth"`
	PageHeight      float64   `json:"pageHeight"`
	Padding         float64   `json:"padding"`
	FontFamily      string    `json:"fontFamily,omitempty"`
	BaseFontSize    float64   `json:"baseFontSize,omitempty"`
	BaseTextColor   string    `json:"baseTextColor,omitempty"`
	BackgroundColor string    `json:"backgroundColor,omitempty"`
	Sections        []Section `json:"sections"`
	Elements        []Element `json:"elements"`
}

// Section 是元素的有序容器。隐藏分区的元素不渲染，但仍然保存。
type Section struct {
	ID          string  `json:"id"`
	Name        string  `json:"name,omitempty"`
	SortOrder   int     `json:"sortOrder"`
	Visible     bool    `json:"visible"`
	ShowBorder  bool    `json:"showBorder,omitempty"`
	BorderColor string  `json:"borderColor,omitempty"`
	Padding     float64 `json:"padding,omitempty"`
}

// UnmarshalJSON 在缺省 visible 字段时按可见处理。
func (s *Section) UnmarshalJSON(data []byte) error {
	type plain Section
	aux := struct {
		*plain
		Visible *bool `json:"visible"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.Visible = aux.Visible == nil || *aux.Visible
	return nil
}

// UnmarshalJSON 解码后立即校验结构引用。
func (d *LabelDesign) UnmarshalJSON(data []byte) error {
	type plain LabelDesign
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*d = LabelDesign(p)
	return d.Check()
}

// Check 校验分区与元素 ID 唯一，且每个元素的 sectionId 指向已存在的分区（可见或隐藏）。
func (d *LabelDesign) Check() error {
	sections := make(map[string]bool, len(d.Sections))
	for _, s := range d.Sections {
		if s.ID == "" {
			return fmt.Errorf("%w: 分区缺少 id", ErrInvalidDesign)
		}
		if sections[s.ID] {
			return fmt.Errorf("%w: 分区 id %s 重复", ErrInvalidDesign, s.ID)
		}
		sections[s.ID] = true
	}
	elements := make(map[string]bool, len(d.Elements))
	for _, el := range d.Elements {
		if el.ID == "" {
			return fmt.Errorf("%w: 元素缺少 id", ErrInvalidDesign)
		}
		if elements[el.ID] {
			return fmt.Errorf("%w: 元素 id %s 重复", ErrInvalidDesign, el.ID)
		}
		elements[el.ID] = true
		if !sections[el.SectionID] {
			return fmt.Errorf("%w: 元素 %s 引用了不存在的分区 %q", ErrInvalidDesign, el.ID, el.SectionID)
		}
		if el.Body == nil {
			return fmt.Errorf("%w: 元素 %s 缺少类型", ErrInvalidDesign, el.ID)
		}
	}
	return nil
}

// SortedSections 按 SortOrder 升序返回分区副本，顺序相同时保持存储顺序。
func (d *LabelDesign) SortedSections() []Section {
	out := append([]Section(nil), d.Sections...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out
}

// SectionElements 按 SortOrder 升序返回某个分区内的元素。
func (d *LabelDesign) SectionElements(sectionID string) []Element {
	var out []Element
	for _, el := range d.Elements {
		if el.SectionID == sectionID {
			out = append(out, el)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out
}

// OrderedElements 按 (分区顺序, 元素顺序) 返回全部元素，包括隐藏分区中的元素。
func (d *LabelDesign) OrderedElements() []Element {
	out := make([]Element, 0, len(d.Elements))
	for _, s := range d.SortedSections() {
		out = append(out, d.SectionElements(s.ID)...)
	}
	return out
}

// Section 按 ID 查找分区。
func (d *LabelDesign) Section(id string) (Section, bool) {
	for _, s := range d.Sections {
		if s.ID == id {
			return s, true
		}
	}
	return Section{}, false
}
