package design

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDesign() *LabelDesign {
	return &LabelDesign{
		ID:              "d-1",
		Name:            "Carton",
		PageWidth:       100,
		PageHeight:      150,
		Padding:         4,
		FontFamily:      "Go",
		BaseFontSize:    8,
		BaseTextColor:   "#1e1e1e",
		BackgroundColor: "#ffffff",
		Sections: []Section{
			{ID: "identity", SortOrder: 1, Visible: true, ShowBorder: true, BorderColor: "#cccccc", Padding: 2},
			{ID: "archive", SortOrder: 2, Visible: false},
		},
		Elements: []Element{
			{ID: "e1", SectionID: "identity", SortOrder: 1, Body: TextBody{Content: "Hello", Style: TextStyle{Bold: true}}},
			{ID: "e2", SectionID: "identity", SortOrder: 2, Body: FieldValueBody{FieldKey: "productName", ShowLabel: true, Label: "Produkt"}},
			{ID: "e3", SectionID: "identity", SortOrder: 3, Body: QRCodeBody{Size: 20, ShowLabel: true, ShowURL: true}},
			{ID: "e4", SectionID: "identity", SortOrder: 4, Body: PictogramBody{PictogramID: "weee", Size: 8}},
			{ID: "e5", SectionID: "identity", SortOrder: 5, Body: ComplianceBadgeBody{ModuleIDs: []string{"ce", "weee"}, ShowAbsent: true}},
			{ID: "e6", SectionID: "identity", SortOrder: 6, Body: ImageBody{Src: "builtin:logo", Width: 20, Height: 10, Fit: "contain"}},
			{ID: "e7", SectionID: "identity", SortOrder: 7, Body: DividerBody{Thickness: 0.3}},
			{ID: "e8", SectionID: "identity", SortOrder: 8, Body: SpacerBody{Height: 2}},
			{ID: "e9", SectionID: "identity", SortOrder: 9, Body: MaterialCodeBody{Codes: []string{"PAP 20"}, AutoPopulate: true}},
			{ID: "e10", SectionID: "identity", SortOrder: 10, Body: BarcodeBody{Format: BarcodeEAN13, FieldKey: "gtin", ShowText: true}},
			{ID: "e11", SectionID: "identity", SortOrder: 11, Body: IconTextBody{PictogramID: "fragile", Text: "Handle with care"}},
			{ID: "e12", SectionID: "archive", SortOrder: 1, Body: PackageCounterBody{Format: "box", Locale: "de", Style: TextStyle{FontSize: 9}}},
		},
	}
}

func TestJSONRoundTripPreservesEveryElementType(t *testing.T) {
	d := sampleDesign()
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, d))

	got, err := LoadJSON(&buf)
	require.NoError(t, err)
	assert.Equal(t, d, got)

	// 隐藏分区中的元素也必须保留。
	archived := got.SectionElements("archive")
	require.Len(t, archived, 1)
	assert.Equal(t, TypePackageCounter, archived[0].Type())
}

func TestElementJSONIsFlat(t *testing.T) {
	raw, err := json.Marshal(Element{ID: "e1", SectionID: "s", SortOrder: 3, Body: FieldValueBody{FieldKey: "gtin"}})
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, "field-value", fields["type"])
	assert.Equal(t, "gtin", fields["fieldKey"])
	assert.Equal(t, "s", fields["sectionId"])
	assert.EqualValues(t, 3, fields["sortOrder"])
}

func TestUnknownElementTypeIsRejected(t *testing.T) {
	_, err := LoadJSON(strings.NewReader(`{"name":"x","sections":[{"id":"s"}],"elements":[{"id":"e","sectionId":"s","type":"hologram"}]}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownElementType)
}

func TestOrphanSectionReferenceIsRejected(t *testing.T) {
	_, err := LoadJSON(strings.NewReader(`{"name":"x","sections":[{"id":"s"}],"elements":[{"id":"e","sectionId":"gone","type":"spacer"}]}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidDesign)

	_, err = LoadJSON(strings.NewReader(`{"name":"x","sections":[{"id":"s"},{"id":"s"}],"elements":[]}`))
	assert.ErrorIs(t, err, ErrInvalidDesign)
}

func TestSectionVisibleDefaultsToTrue(t *testing.T) {
	d, err := LoadJSON(strings.NewReader(`{"name":"x","sections":[{"id":"a"},{"id":"b","visible":false}],"elements":[]}`))
	require.NoError(t, err)
	assert.True(t, d.Sections[0].Visible)
	assert.False(t, d.Sections[1].Visible)
}

func TestSortingIsStableAndAscending(t *testing.T) {
	d := &LabelDesign{
		Sections: []Section{{ID: "c", SortOrder: 3}, {ID: "a", SortOrder: 1}, {ID: "b1", SortOrder: 2}, {ID: "b2", SortOrder: 2}},
		Elements: []Element{
			{ID: "x3", SectionID: "a", SortOrder: 3, Body: SpacerBody{}},
			{ID: "x1", SectionID: "a", SortOrder: 1, Body: SpacerBody{}},
			{ID: "y", SectionID: "c", SortOrder: 0, Body: SpacerBody{}},
			{ID: "x2", SectionID: "a", SortOrder: 2, Body: SpacerBody{}},
		},
	}
	var ids []string
	for _, s := range d.SortedSections() {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"a", "b1", "b2", "c"}, ids)

	ids = nil
	for _, el := range d.OrderedElements() {
		ids = append(ids, el.ID)
	}
	assert.Equal(t, []string{"x1", "x2", "x3", "y"}, ids)
	assert.Equal(t, "c", d.Sections[0].ID, "sorting must not reorder the stored slice")
}

func TestLoadYAML(t *testing.T) {
	src := `
name: Box label
pageWidth: 60
pageHeight: 40
padding: 2
sections:
  - id: main
    sortOrder: 1
elements:
  - id: name
    sectionId: main
    sortOrder: 1
    type: field-value
    fieldKey: productName
    style:
      fontSize: 10
      bold: true
  - id: codes
    sectionId: main
    sortOrder: 2
    type: material-code
    autoPopulate: true
`
	d, err := LoadYAML(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, d.Elements, 2)
	fv, ok := d.Elements[0].Body.(FieldValueBody)
	require.True(t, ok)
	assert.Equal(t, "productName", fv.FieldKey)
	assert.Equal(t, 10.0, fv.Style.FontSize)
	assert.True(t, d.Sections[0].Visible)
	mc, ok := d.Elements[1].Body.(MaterialCodeBody)
	require.True(t, ok)
	assert.True(t, mc.AutoPopulate)
}

func TestLoadDSL(t *testing.T) {
	src := `
label "Carton" v1 {
  id: "carton"
  page 100mm x 150mm padding 4mm
  font "Go Mono" size 9pt color #222222
  background #fafafa

  section identity order 2 border #cccccc padding 2mm {
    field-value productName bold size 11pt
    field-value manufacturerAddress label "Hersteller"
    text italic { "Made with care" }
    spacer 2mm
  }
  section codes order 1 {
    qr-code size 20mm label url
    barcode ean13 field gtin height 12mm text
    package-counter box locale de
    package-counter locale en
    compliance-badge modules "ce, weee" absent
    material-code auto codes "PAP 20, LDPE 4"
    icon-text fragile "Handle with care" size 5mm
    pictogram weee size 8mm
    divider thickness 0.3mm
  }
  section archive hidden {
    image "builtin:logo" width 20mm fit cover
  }
}
`
	d, err := LoadDSL(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, "carton", d.ID)
	assert.Equal(t, "Carton", d.Name)
	assert.Equal(t, 100.0, d.PageWidth)
	assert.Equal(t, 150.0, d.PageHeight)
	assert.Equal(t, 4.0, d.Padding)
	assert.Equal(t, "Go Mono", d.FontFamily)
	assert.InDelta(t, 9.0, d.BaseFontSize, 1e-9)
	assert.Equal(t, "#fafafa", d.BackgroundColor)

	require.Len(t, d.Sections, 3)
	assert.Equal(t, "codes", d.SortedSections()[0].ID)
	identity, _ := d.Section("identity")
	assert.True(t, identity.ShowBorder)
	assert.Equal(t, "#cccccc", identity.BorderColor)
	archive, _ := d.Section("archive")
	assert.False(t, archive.Visible)

	els := d.SectionElements("identity")
	require.Len(t, els, 4)
	name := els[0].Body.(FieldValueBody)
	assert.Equal(t, "productName", name.FieldKey)
	assert.True(t, name.Style.Bold)
	assert.InDelta(t, 11.0, name.Style.FontSize, 1e-9)
	caption := els[1].Body.(FieldValueBody)
	assert.True(t, caption.ShowLabel)
	assert.Equal(t, "Hersteller", caption.Label)
	text := els[2].Body.(TextBody)
	assert.Equal(t, "Made with care", text.Content)
	assert.True(t, text.Style.Italic)
	assert.InDelta(t, 2.0, els[3].Body.(SpacerBody).Height, 1e-9)

	codes := d.SectionElements("codes")
	require.Len(t, codes, 9)
	qr := codes[0].Body.(QRCodeBody)
	assert.True(t, qr.ShowLabel && qr.ShowURL)
	assert.InDelta(t, 20.0, qr.Size, 1e-9)
	bc := codes[1].Body.(BarcodeBody)
	assert.Equal(t, BarcodeBody{Format: "ean13", FieldKey: "gtin", Height: 12, ShowText: true}, bc)
	assert.Equal(t, PackageCounterBody{Format: "box", Locale: "de"}, codes[2].Body)
	assert.Equal(t, PackageCounterBody{Locale: "en"}, codes[3].Body)
	badge := codes[4].Body.(ComplianceBadgeBody)
	assert.Equal(t, []string{"ce", "weee"}, badge.ModuleIDs)
	assert.True(t, badge.ShowAbsent)
	mc := codes[5].Body.(MaterialCodeBody)
	assert.Equal(t, []string{"PAP 20", "LDPE 4"}, mc.Codes)
	assert.True(t, mc.AutoPopulate)
	it := codes[6].Body.(IconTextBody)
	assert.Equal(t, "fragile", it.PictogramID)
	assert.Equal(t, "Handle with care", it.Text)
	assert.InDelta(t, 5.0, it.IconSize, 1e-9)
	assert.Equal(t, "weee", codes[7].Body.(PictogramBody).PictogramID)
	assert.InDelta(t, 0.3, codes[8].Body.(DividerBody).Thickness, 1e-9)

	img := d.SectionElements("archive")[0].Body.(ImageBody)
	assert.Equal(t, "builtin:logo", img.Src)
	assert.Equal(t, "cover", img.Fit)
}

func TestLoadDSLRejectsUnknownElement(t *testing.T) {
	_, err := LoadDSL(strings.NewReader(`label "x" { section s { hologram big } }`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownElementType)
}

func TestStyleOf(t *testing.T) {
	st, ok := StyleOf(TextBody{Style: TextStyle{FontSize: 3}})
	assert.True(t, ok)
	assert.Equal(t, 3.0, st.FontSize)
	_, ok = StyleOf(DividerBody{})
	assert.False(t, ok)
}
