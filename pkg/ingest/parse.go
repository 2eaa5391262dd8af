package ingest

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"riego/pkg/features"
)

// DateLayouts are tried in order; the first that parses wins.
var DateLayouts = []string{
	"2/1/2006",
	"02/01/2006",
	"2/01/2006",
	"02/1/2006",
	"2006-01-02",
}

type column int

const (
	colSensor column = iota
	colCrop
	colDate
	colSoilMoisture
	colTemperature
	colPrecipitation
	colWind
	colSolarRadiation
	colStage
	colNeedsIrrigation
	colLat
	colLng
	colDroughtIndex
	colOrganicMatter
	colIrrigationMethod
	colSoilPH
	colStressIndex
	colHydricDeficit
	colEvapotranspiration
	numColumns
)

// columnAliases lists accepted header spellings, compared after headerKey.
var columnAliases = map[column][]string{
	colSensor:             {"SensorId", "Sensor", "IdSensor"},
	colCrop:               {"Cultivo", "Crop", "NombreCultivo"},
	colDate:               {"Fecha", "Date"},
	colSoilMoisture:       {"HumedadSuelo", "Humedad", "SoilMoisture"},
	colTemperature:        {"Temperatura", "Temperature", "Temp"},
	colPrecipitation:      {"Precipitacion", "Lluvia", "Precipitation"},
	colWind:               {"Viento", "VelocidadViento", "Wind"},
	colSolarRadiation:     {"RadiacionSolar", "Radiacion", "SolarRadiation"},
	colStage:              {"EtapaCultivo", "Etapa", "Stage"},
	colNeedsIrrigation:    {"NecesitaRiego", "Riego", "NeedsIrrigation"},
	colLat:                {"Latitud", "Lat", "Latitude"},
	colLng:                {"Longitud", "Lng", "Lon", "Longitude"},
	colDroughtIndex:       {"IndiceSequia", "DroughtIndex"},
	colOrganicMatter:      {"MateriaOrganica", "OrganicMatter"},
	colIrrigationMethod:   {"MetodoRiego", "IrrigationMethod"},
	colSoilPH:             {"pH_Suelo", "pH", "SoilPH"},
	colStressIndex:        {"IndiceEstres", "StressIndex"},
	colHydricDeficit:      {"DeficitHidrico", "WaterDeficit"},
	colEvapotranspiration: {"Evapotranspiracion", "ET", "Evapotranspiration"},
}

var aliasIndex = func() map[string]column {
	m := map[string]column{}
	for col, names := range columnAliases {
		for _, n := range names {
			m[headerKey(n)] = col
		}
	}
	return m
}()

// headerKey folds accents and case and drops separators, so "pH_Suelo",
// "PH SUELO" and "ph-suelo" compare equal.
func headerKey(s string) string {
	s = strings.TrimPrefix(strings.TrimSpace(s), "\uFEFF")
	return strings.NewReplacer(" ", "", "-", "", "_", "", ".", "").Replace(features.FoldKey(s))
}

// header maps known columns to record positions; -1 when absent.
type header [numColumns]int

func parseHeader(rec []string) (header, error) {
	var h header
	for i := range h {
		h[i] = -1
	}
	for i, name := range rec {
		if col, ok := aliasIndex[headerKey(name)]; ok && h[col] == -1 {
			h[col] = i
		}
	}
	var missing []string
	for _, col := range []column{colCrop, colDate} {
		if h[col] == -1 {
			missing = append(missing, columnAliases[col][0])
		}
	}
	if len(missing) > 0 {
		return h, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return h, nil
}

func (h header) get(rec []string, col column) string {
	idx := h[col]
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[idx])
}

// parsedRow is one data row after field conversion, before sensor and crop
// resolution.
type parsedRow struct {
	SensorID *uint
	Crop     string
	Date     time.Time

	SoilMoisture       *float64
	Temperature        *float64
	Precipitation      *float64
	Wind               *float64
	SolarRadiation     *float64
	DroughtIndex       *float64
	SoilPH             *float64
	OrganicMatter      *float64
	StressIndex        *float64
	HydricDeficit      *float64
	Evapotranspiration *float64
	Lat                *float64
	Lng                *float64

	Stage            string
	IrrigationMethod string
	NeedsIrrigation  *bool

	// Warnings lists fields that were present but unreadable and stored as NULL.
	Warnings []string
}

// parseRow converts rec. A non-empty skip reason means the row cannot be
// stored at all.
func parseRow(h header, rec []string) (parsedRow, string) {
	var p parsedRow

	p.Crop = h.get(rec, colCrop)
	rawDate := h.get(rec, colDate)
	d, ok := parseDate(rawDate)
	if !ok {
		if rawDate == "" {
			return p, "fecha vacía"
		}
		return p, fmt.Sprintf("fecha '%s' con formato no reconocido", rawDate)
	}
	p.Date = d

	if raw := h.get(rec, colSensor); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || id == 0 {
			p.Warnings = append(p.Warnings, "SensorId")
		} else {
			v := uint(id)
			p.SensorID = &v
		}
	}

	num := func(col column, name string) *float64 {
		v, ok := parseNumber(h.get(rec, col))
		if !ok {
			p.Warnings = append(p.Warnings, name)
		}
		return v
	}
	p.SoilMoisture = num(colSoilMoisture, "HumedadSuelo")
	p.Temperature = num(colTemperature, "Temperatura")
	p.Precipitation = num(colPrecipitation, "Precipitacion")
	p.Wind = num(colWind, "Viento")
	p.SolarRadiation = num(colSolarRadiation, "RadiacionSolar")
	p.DroughtIndex = num(colDroughtIndex, "IndiceSequia")
	p.SoilPH = num(colSoilPH, "pH_Suelo")
	p.OrganicMatter = num(colOrganicMatter, "MateriaOrganica")
	p.StressIndex = num(colStressIndex, "IndiceEstres")
	p.HydricDeficit = num(colHydricDeficit, "DeficitHidrico")
	p.Evapotranspiration = num(colEvapotranspiration, "Evapotranspiracion")
	p.Lat = num(colLat, "Latitud")
	p.Lng = num(colLng, "Longitud")

	p.Stage = h.get(rec, colStage)
	p.IrrigationMethod = h.get(rec, colIrrigationMethod)

	b, ok := parseBool(h.get(rec, colNeedsIrrigation))
	if !ok {
		p.Warnings = append(p.Warnings, "NecesitaRiego")
	}
	p.NeedsIrrigation = b

	return p, ""
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseNumber accepts "12.5" and "12,5". Empty input is a valid NULL; the
// bool is false only for text that is present but not a number.
func parseNumber(s string) (*float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, false
	}
	return &v, true
}

func parseBool(s string) (*bool, bool) {
	var v bool
	switch features.FoldKey(s) {
	case "":
		return nil, true
	case "1", "true", "si", "yes", "verdadero":
		v = true
	case "0", "false", "no", "falso":
		v = false
	default:
		return nil, false
	}
	return &v, true
}
