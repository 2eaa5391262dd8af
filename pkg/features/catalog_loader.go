package features

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"riego/pkg/errors"
)

// LoadCatalog reads a crop table from a .csv or .xlsx file. Required columns
// are Id and Nombre; Alias (values split on '|' or ','), TemporadaDesde and
// TemporadaHasta are optional. An empty path returns DefaultCatalog.
func LoadCatalog(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultCatalog(), nil
	}
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		rows, err = readXLSXRows(path)
	default:
		rows, err = readCSVRows(path)
	}
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Component("features").
			Context("path", path).
			Build()
	}
	crops, err := cropsFromRows(rows)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Component("features").
			Context("path", path).
			Build()
	}
	return NewCatalog(crops)
}

func readCSVRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	var rows [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}
}

func readXLSXRows(path string) ([][]string, error) {
	x, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer x.Close()

	sheets := x.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.NewStd("workbook has no sheets")
	}
	return x.GetRows(sheets[0])
}

// headerKey lowercases and strips separators so "Temporada Desde",
// "temporada_desde" and "TEMPORADA-DESDE" compare equal.
func headerKey(s string) string {
	s = strings.TrimPrefix(strings.TrimSpace(s), "\uFEFF")
	s = FoldKey(s)
	return strings.NewReplacer(" ", "", "-", "", "_", "").Replace(s)
}

func cropsFromRows(rows [][]string) ([]Crop, error) {
	if len(rows) == 0 {
		return nil, errors.NewStd("catalog file has no header")
	}
	hmap := map[string]int{}
	for i, h := range rows[0] {
		hmap[headerKey(h)] = i
	}
	findAny := func(keys ...string) int {
		for _, k := range keys {
			if idx, ok := hmap[headerKey(k)]; ok {
				return idx
			}
		}
		return -1
	}

	cID := findAny("Id", "CultivoId", "crop_id")
	cName := findAny("Nombre", "Cultivo", "name")
	cAlias := findAny("Alias", "Aliases", "sinonimos")
	cFrom := findAny("TemporadaDesde", "desde", "season_from")
	cTo := findAny("TemporadaHasta", "hasta", "season_to")
	if cID == -1 || cName == -1 {
		return nil, errors.Newf("catalog missing required columns Id, Nombre; found %v", rows[0]).Build()
	}

	var crops []Crop
	for line, rec := range rows[1:] {
		get := func(idx int) string {
			if idx < 0 || idx >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[idx])
		}
		if get(cID) == "" && get(cName) == "" {
			continue
		}
		id, err := strconv.ParseUint(get(cID), 10, 32)
		if err != nil || id == 0 {
			return nil, errors.Newf("catalog row %d: bad id %q", line+2, get(cID)).Build()
		}
		cr := Crop{ID: uint(id), Name: get(cName)}
		if a := get(cAlias); a != "" {
			for _, part := range strings.FieldsFunc(a, func(r rune) bool { return r == '|' || r == ',' }) {
				if p := strings.TrimSpace(part); p != "" {
					cr.Aliases = append(cr.Aliases, p)
				}
			}
		}
		from, _ := strconv.Atoi(get(cFrom))
		to, _ := strconv.Atoi(get(cTo))
		cr.HighSeason = MonthRange{From: from, To: to}
		crops = append(crops, cr)
	}
	return crops, nil
}
