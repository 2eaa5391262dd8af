package features

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"riego/pkg/errors"
)

func TestFoldKey(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Maíz":          "maiz",
		"  MAÍZ  ":      "maiz",
		"Espárrago":     "esparrago",
		"ESPÁRRAGO":     "esparrago",
		"Floración":     "floracion",
		"palta  hass":   "palta hass",
		"":              "",
		"\tAguacate\n":  "aguacate",
		"Microaspersión": "microaspersion",
	}
	for in, want := range tests {
		assert.Equal(t, want, FoldKey(in), in)
	}
}

func TestResolveSpellings(t *testing.T) {
	t.Parallel()

	c := DefaultCatalog()
	tests := []struct {
		raw    string
		wantID uint
	}{
		{"Maíz", 1}, {"maiz", 1}, {"MAIZ", 1}, {"maize", 1}, {"Corn", 1}, {" maíz ", 1},
		{"Palta", 2}, {"palta", 2}, {"Aguacate", 2}, {"avocado", 2},
		{"Espárrago", 3}, {"esparrago", 3}, {"ESPARRAGO", 3}, {"asparagus", 3},
		{"Mango", 4}, {"MANGO", 4},
	}
	for _, tt := range tests {
		cr, err := c.Resolve(tt.raw)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.wantID, cr.ID, tt.raw)
	}
}

func TestResolveUnknown(t *testing.T) {
	t.Parallel()

	c := DefaultCatalog()
	for _, raw := range []string{"Banana", "", "   "} {
		_, err := c.Resolve(raw)
		require.Error(t, err)

		var unk *UnknownCropError
		require.True(t, errors.As(err, &unk), raw)
		assert.Equal(t, raw, unk.Text)
		assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
	}
}

func TestSeason(t *testing.T) {
	t.Parallel()

	c := DefaultCatalog()
	tests := []struct {
		crop  string
		month int
		want  Season
	}{
		{"Maíz", 11, SeasonHigh}, {"Maíz", 1, SeasonHigh}, {"Maíz", 2, SeasonHigh}, {"Maíz", 3, SeasonLow},
		{"Palta", 4, SeasonHigh}, {"Palta", 8, SeasonHigh}, {"Palta", 9, SeasonLow},
		{"Espárrago", 8, SeasonHigh}, {"Espárrago", 12, SeasonHigh}, {"Espárrago", 7, SeasonLow},
		{"Mango", 10, SeasonHigh}, {"Mango", 1, SeasonHigh}, {"Mango", 6, SeasonLow},
		{"Banana", 1, SeasonLow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Season(tt.crop, tt.month), "%s/%d", tt.crop, tt.month)
	}
}

func TestNewCatalogRejectsConflicts(t *testing.T) {
	t.Parallel()

	_, err := NewCatalog(nil)
	assert.Error(t, err)

	_, err = NewCatalog([]Crop{{ID: 1, Name: "A"}, {ID: 1, Name: "B"}})
	assert.Error(t, err)

	_, err = NewCatalog([]Crop{{ID: 1, Name: "A", Aliases: []string{"x"}}, {ID: 2, Name: "B", Aliases: []string{"X"}}})
	assert.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestEncodeDefaultsAndOrder(t *testing.T) {
	t.Parallel()

	c := DefaultCatalog()
	moisture, temp := 18.5, 31.0
	v, crop, err := c.Build(Input{
		Crop:             "palta",
		Stage:            "Floración",
		IrrigationMethod: "Goteo",
		Date:             time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		SoilMoisture:     &moisture,
		Temperature:      &temp,
	})
	require.NoError(t, err)
	assert.Equal(t, "Palta", crop.Name)

	assert.Equal(t, moisture, v.SoilMoisture)
	assert.Equal(t, temp, v.Temperature)
	assert.Equal(t, 0.0, v.Precipitation)
	assert.Equal(t, DefaultSoilPH, v.SoilPH)
	assert.Equal(t, DefaultDroughtIndex, v.DroughtIndex)
	assert.Equal(t, 1.0, v.IrrigationMethod)
	assert.Equal(t, 2.0, v.Crop)
	assert.Equal(t, 3.0, v.CropStage)

	vals := v.Values()
	require.Len(t, vals, len(FeatureNames))
	m := v.Map()
	for i, name := range FeatureNames {
		assert.Equal(t, vals[i], m[name], name)
	}
}

func TestEncodeUnknownCategories(t *testing.T) {
	t.Parallel()

	v := Encode(Input{Stage: "dormancia", IrrigationMethod: "manual"}, Crop{ID: 4})
	assert.Equal(t, 0.0, v.CropStage)
	assert.Equal(t, 0.0, v.IrrigationMethod)
	assert.Equal(t, FallbackCategory, StageKey("dormancia"))
	assert.Equal(t, "floracion", StageKey(" FLORACIÓN "))
}

func TestLoadCatalogCSV(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cultivos.csv")
	content := "\uFEFFId,Nombre,Alias,Temporada Desde,Temporada_Hasta\n" +
		"1,Maíz,maize|corn,11,2\n" +
		"7,Uva,grape|vid,1,3\n" +
		",,,,\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	require.Len(t, c.Crops(), 2)

	cr, err := c.Resolve("VID")
	require.NoError(t, err)
	assert.Equal(t, uint(7), cr.ID)
	assert.Equal(t, SeasonHigh, c.Season("uva", 2))
	assert.Equal(t, SeasonLow, c.Season("uva", 4))
}

func TestLoadCatalogXLSX(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cultivos.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"Id", "Nombre", "Alias", "TemporadaDesde", "TemporadaHasta"},
		{2, "Palta", "aguacate", 4, 8},
		{3, "Espárrago", "asparagus", 8, 12},
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	c, err := LoadCatalog(path)
	require.NoError(t, err)

	cr, err := c.Resolve("aguacate")
	require.NoError(t, err)
	assert.Equal(t, uint(2), cr.ID)
	assert.Equal(t, SeasonHigh, c.Season("ESPARRAGO", 9))
}

func TestLoadCatalogMissingColumns(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("Codigo,Descripcion\n1,x\n"), 0o600))

	_, err := LoadCatalog(path)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))

	c, err := LoadCatalog("")
	require.NoError(t, err)
	assert.Len(t, c.Crops(), 4)
}
