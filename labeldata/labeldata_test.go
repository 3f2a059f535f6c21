package labeldata

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/labelkit/compliance"
)

func TestBuildSustainabilityPackagingOnly(t *testing.T) {
	sec := BuildSustainability([]Material{
		{Name: "Corrugated Cardboard Box", Type: MaterialTypePackaging},
		{Name: "LDPE Foil", Type: MaterialTypePackaging},
		{Name: "cardboard insert", Type: MaterialTypePackaging},
		{Name: "Aluminium housing", Type: "component"},
		{Name: "Mystery filler", Type: MaterialTypePackaging},
	}, &Recyclability{Instructions: "general", PackagingInstructions: "Flatten the box"})

	assert.Equal(t, []string{"PAP 20", "LDPE 4"}, sec.PackagingMaterialCodes)
	assert.Equal(t, "Flatten the box", sec.RecyclingInstructions)
	assert.False(t, sec.VolumeOptimized)
}

func TestRecyclingCodeMatchesWholeWords(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"Shipping carton", "PAP 20"},
		{"Carton box", "PAP 20"},
		{"Faltkarton", "PAP 21"},
		{"PP strap", "PP 5"},
		{"PET bottle", "PET 1"},
		{"EPS corner guards", "PS 6"},
		{"Tin can", "FE 40"},
		{"Alu tray", "ALU 41"},
		{"Wrapping tissue", ""},
		{"Coating film", ""},
		{"Value pack", ""},
		{"Carpet offcut", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, recyclingCodeFor(tc.name), "material %q", tc.name)
	}
}

func TestBuildSustainabilityNoFabrication(t *testing.T) {
	sec := BuildSustainability([]Material{{Name: "Glass"}}, nil)
	assert.Empty(t, sec.PackagingMaterialCodes)
	assert.Equal(t, "", sec.RecyclingInstructions)

	sec = BuildSustainability(nil, &Recyclability{Instructions: "Recycle locally"})
	assert.Equal(t, "Recycle locally", sec.RecyclingInstructions)
}

func TestFormatSupplierAddress(t *testing.T) {
	cases := []struct {
		name string
		in   Supplier
		want string
	}{
		{"full", Supplier{Street: "Hauptstr. 1", AddressLine2: "Hof 2", PostalCode: "10115", City: "Berlin", Country: "DE"}, "Hauptstr. 1, Hof 2, 10115 Berlin, DE"},
		{"city only", Supplier{City: "Berlin", Country: "DE"}, "Berlin, DE"},
		{"postal only", Supplier{Street: "Main St 5", PostalCode: "90210"}, "Main St 5, 90210"},
		{"no city line", Supplier{Street: "Main St 5", Country: "US"}, "Main St 5, US"},
		{"empty", Supplier{}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatSupplierAddress(tc.in))
		})
	}
}

func TestBuildIdentityOverrideChain(t *testing.T) {
	product := Product{
		Name:                "Lamp",
		SKU:                 "LMP-1",
		BatchNumber:         "P-BATCH",
		ManufacturerName:    "Free Text GmbH",
		ManufacturerAddress: "Somewhere 1",
		ImporterName:        "Free Importer",
	}

	id := BuildIdentity(product, nil, nil, nil)
	assert.Equal(t, "P-BATCH", id.BatchNumber)
	assert.Equal(t, "Free Text GmbH", id.Manufacturer.Name)
	assert.Nil(t, id.Importer, "importer must be omitted without a linked supplier")

	id = BuildIdentity(product, &Batch{BatchNumber: "B-42"},
		&Supplier{Name: "Structured AG", City: "Köln", PostalCode: "50667"},
		&Supplier{Name: "Import Ltd", Street: "Dock 3", Country: "NL"})
	assert.Equal(t, "B-42", id.BatchNumber)
	assert.Equal(t, Party{Name: "Structured AG", Address: "50667 Köln"}, id.Manufacturer)
	require.NotNil(t, id.Importer)
	assert.Equal(t, Party{Name: "Import Ltd", Address: "Dock 3, NL"}, *id.Importer)

	id = BuildIdentity(Product{}, &Batch{}, nil, nil)
	assert.Equal(t, "", id.BatchNumber)
}

func TestAssembleBatchOverrideIgnoresProductMaterials(t *testing.T) {
	product := Product{
		Name:      "Kettle",
		Category:  "Kitchen",
		Materials: []Material{{Name: "Glass jar", Type: MaterialTypePackaging}},
	}
	batch := &Batch{
		BatchNumber:       "B1",
		MaterialsOverride: []Material{{Name: "Cardboard", Type: MaterialTypePackaging}},
	}
	data := Assemble(AssembleParams{Product: product, Batch: batch, Variant: VariantB2C})
	assert.Equal(t, []string{"PAP 20"}, data.Sustainability.PackagingMaterialCodes)
	assert.Equal(t, compliance.GroupHousehold, data.ProductGroup)
}

func TestAssembleCertificationOverrideAndRegistrations(t *testing.T) {
	product := Product{
		Category:       "Electronics",
		Certifications: []Certification{{Name: "CE"}},
		Registrations:  map[string]string{"eprelRegistration": "123"},
	}
	batch := &Batch{CertificationsOverride: []Certification{{Name: "RoHS"}}}
	manufacturer := &Supplier{Name: "M", Registrations: map[string]string{"weeeRegistration": "DE 1"}}

	data := Assemble(AssembleParams{Product: product, Batch: batch, Manufacturer: manufacturer, Variant: VariantB2B})
	ce, _ := compliance.FindModule(data.Compliance, compliance.ModuleCE)
	rohs, _ := compliance.FindModule(data.Compliance, compliance.ModuleRoHS)
	weee, _ := compliance.FindModule(data.Compliance, compliance.ModuleWEEE)
	energy, _ := compliance.FindModule(data.Compliance, compliance.ModuleEnergyLabel)
	assert.False(t, ce.Present, "product certifications are replaced by the batch override")
	assert.True(t, rohs.Present)
	assert.True(t, weee.Present)
	assert.True(t, energy.Present)
}

func TestAssembleVariantFields(t *testing.T) {
	qty, weight := 12, 1500.0
	batch := &Batch{Quantity: &qty, GrossWeight: &weight}

	b2b := Assemble(AssembleParams{Batch: batch, Variant: VariantB2B, TargetCountry: "DE"})
	require.NotNil(t, b2b.B2BQuantity)
	assert.Equal(t, 12, *b2b.B2BQuantity)
	assert.Equal(t, "", b2b.B2CTargetCountry)

	b2c := Assemble(AssembleParams{Batch: batch, Variant: VariantB2C, TargetCountry: "DE"})
	assert.Nil(t, b2c.B2BQuantity)
	assert.Nil(t, b2c.B2BGrossWeight)
	assert.Equal(t, "DE", b2c.B2CTargetCountry)

	*batch.Quantity = 99
	assert.Equal(t, 12, *b2b.B2BQuantity, "snapshot must not alias batch input")
}

func TestAssembleIsDeterministic(t *testing.T) {
	p := AssembleParams{
		Product: Product{Name: "Toy", Category: "Spielzeug", Certifications: []Certification{{Name: "EN 71"}}},
		Variant: VariantB2C,
	}
	assert.Equal(t, Assemble(p), Assemble(p))
}

func TestResolveFieldValueTotal(t *testing.T) {
	var empty MasterLabelData
	for _, key := range FieldKeys() {
		assert.Equal(t, "", ResolveFieldValue(key, empty), "key %s", key)
	}
	assert.Equal(t, "", ResolveFieldValue("doesNotExist", empty))

	full := MasterLabelData{
		Variant: VariantB2B,
		Identity: IdentitySection{
			ProductName:     "Lamp",
			CountryOfOrigin: "Germany",
			Manufacturer:    Party{Name: "M", Address: "Addr"},
			Importer:        &Party{Name: "I", Address: "IAddr"},
		},
	}
	assert.Equal(t, "Lamp", ResolveFieldValue(FieldProductName, full))
	assert.Equal(t, "I", ResolveFieldValue(FieldImporterName, full))
	assert.Equal(t, "IAddr", ResolveFieldValue(FieldImporterAddress, full))
	assert.Equal(t, "Made in Germany", ResolveFieldValue(FieldMadeIn, full))
	assert.Equal(t, "", ResolveFieldValue(FieldSerialNumber, full))
	assert.Equal(t, "", ResolveFieldValue("bogus", full))
}

func TestGrossWeightFormatting(t *testing.T) {
	w := 1500.0
	data := MasterLabelData{Variant: VariantB2B, B2BGrossWeight: &w}
	assert.Equal(t, "1.50 kg", ResolveFieldValue(FieldGrossWeight, data))

	data.B2BGrossWeight = nil
	assert.Equal(t, "", ResolveFieldValue(FieldGrossWeight, data))

	assert.Equal(t, "0.25 kg", FormatGrossWeight(250))
}

func TestFieldLabelLocales(t *testing.T) {
	assert.Equal(t, "Manufacturer", FieldLabel(FieldManufacturerName, "en"))
	assert.Equal(t, "Hersteller", FieldLabel(FieldManufacturerName, "de-AT"))
	assert.Equal(t, "Manufacturer", FieldLabel(FieldManufacturerName, "ja"))
	assert.Equal(t, "Manufacturer", FieldLabel(FieldManufacturerName, "not a tag!"))
	assert.Equal(t, "custom", FieldLabel("custom", "en"))
}

func TestWithCounterDoesNotMutateBase(t *testing.T) {
	base := MasterLabelData{
		Identity:       IdentitySection{Importer: &Party{Name: "I"}},
		Sustainability: SustainabilitySection{PackagingMaterialCodes: []string{"PAP 20"}},
	}
	copy1 := base.WithCounter(5, 7)
	copy1.Identity.Importer.Name = "changed"
	copy1.Sustainability.PackagingMaterialCodes[0] = "changed"

	assert.Nil(t, base.Counter)
	assert.Equal(t, "I", base.Identity.Importer.Name)
	assert.Equal(t, "PAP 20", base.Sustainability.PackagingMaterialCodes[0])
	require.NotNil(t, copy1.Counter)
	assert.Equal(t, PackageCounter{Current: 5, Total: 7}, *copy1.Counter)

	copy2 := copy1.WithCounter(6, 7)
	assert.Equal(t, 5, copy1.Counter.Current)
	assert.Equal(t, 6, copy2.Counter.Current)
}

func TestPhrasebookFormats(t *testing.T) {
	pb := DefaultPhrasebook()
	cases := []struct {
		format CounterFormat
		locale string
		want   string
	}{
		{CounterPlain, "en", "5/7"},
		{CounterOf, "en", "5 of 7"},
		{CounterPackage, "en-GB", "Package 5 of 7"},
		{CounterBox, "en", "Box 5 of 7"},
		{CounterParcel, "en", "Parcel 5 of 7"},
		{CounterOf, "de", "5 von 7"},
		{CounterPackage, "de-DE", "Paket 5 von 7"},
		{CounterBox, "de", "Karton 5 von 7"},
		{CounterParcel, "de-CH", "Packstück 5 von 7"},
		{CounterParcel, "sv", "Parcel 5 of 7"},
		{"unknown", "en", "5/7"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, pb.Format(tc.format, tc.locale, 5, 7), "%s/%s", tc.format, tc.locale)
	}
}

func TestPhrasebookWithAddsLocale(t *testing.T) {
	base := DefaultPhrasebook()
	fr, err := base.With("fr", CounterPhrases{CounterParcel: "Colis %d sur %d"})
	require.NoError(t, err)

	assert.Equal(t, "Colis 1 sur 2", fr.Format(CounterParcel, "fr-FR", 1, 2))
	assert.Equal(t, "Box 1 of 2", fr.Format(CounterBox, "fr", 1, 2), "missing template falls back to the first locale")
	assert.Equal(t, "Parcel 1 of 2", base.Format(CounterParcel, "fr", 1, 2), "base phrasebook is unchanged")
	assert.Equal(t, []string{"en", "de", "fr"}, fr.Locales())

	_, err = base.With("!!", nil)
	assert.Error(t, err)
}

func TestBuildDPPURL(t *testing.T) {
	assert.Equal(t, "https://dpp.example.com/01/04012345678901/21/SN1",
		BuildDPPURL("04012345678901", "SN1", DPPURLOptions{Format: ResolverCustomDomain, CustomDomain: "https://dpp.example.com/"}))
	assert.Equal(t, "https://id.gs1.org/01/04012345678901/21/SN1",
		BuildDPPURL("04012345678901", "SN1", DPPURLOptions{Format: ResolverGS1}))
	assert.Equal(t, "https://id.gs1.org/01/04012345678901",
		BuildDPPURL("04012345678901", "", DPPURLOptions{Format: ResolverCustomDomain}))
	assert.Equal(t, "https://app.example.com/p/04012345678901/SN1",
		BuildDPPURL("04012345678901", "SN1", DPPURLOptions{BaseURL: "https://app.example.com/"}))
}

type stubQR struct {
	url string
	err error
}

func (s stubQR) Generate(_ context.Context, _ string) (string, error) { return s.url, s.err }

func TestPrepareDPPQR(t *testing.T) {
	qr, err := PrepareDPPQR(context.Background(), stubQR{url: "data:image/png;base64,AAA"}, "https://x/01/1", "Scan me")
	require.NoError(t, err)
	assert.Equal(t, DPPQR{QRDataURL: "data:image/png;base64,AAA", LabelText: "Scan me", DPPURL: "https://x/01/1"}, qr)

	qr, err = PrepareDPPQR(context.Background(), stubQR{err: errors.New("boom")}, "https://x/01/1", "Scan me")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrQRGeneration))
	assert.Equal(t, "", qr.QRDataURL)
	assert.Equal(t, "https://x/01/1", qr.DPPURL, "degraded QR keeps the URL for text rendering")
}
