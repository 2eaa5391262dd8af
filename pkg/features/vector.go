package features

import (
	"time"
)

// Values used when a reading leaves an optional measurement empty.
const (
	DefaultDroughtIndex  = 0.0
	DefaultSoilPH        = 7.0
	DefaultOrganicMatter = 0.0
	FallbackCategory     = "otro"
)

// FeatureNames is the column order of FeatureVector.Values. Scorers depend on
// it; append only.
var FeatureNames = []string{
	"soil_moisture",
	"temperature",
	"precipitation",
	"wind",
	"solar_radiation",
	"drought_index",
	"soil_ph",
	"organic_matter",
	"irrigation_method",
	"crop",
	"crop_stage",
}

var irrigationMethodCodes = map[string]float64{
	FallbackCategory: 0,
	"goteo":          1,
	"aspersion":      2,
	"gravedad":       3,
	"surco":          3,
	"inundacion":     3,
	"microaspersion": 4,
	"pivote":         5,
}

var stageCodes = map[string]float64{
	FallbackCategory: 0,
	"siembra":        1,
	"germinacion":    1,
	"crecimiento":    2,
	"vegetativa":     2,
	"vegetativo":     2,
	"floracion":      3,
	"fructificacion": 4,
	"llenado":        4,
	"maduracion":     5,
	"cosecha":        5,
}

// Input is one reading as seen by the classifier, before encoding.
type Input struct {
	Crop             string
	Stage            string
	IrrigationMethod string
	Date             time.Time

	SoilMoisture   *float64
	Temperature    *float64
	Precipitation  *float64
	Wind           *float64
	SolarRadiation *float64
	DroughtIndex   *float64
	SoilPH         *float64
	OrganicMatter  *float64
}

// FeatureVector is the encoded classifier input.
type FeatureVector struct {
	SoilMoisture     float64 `json:"soil_moisture"`
	Temperature      float64 `json:"temperature"`
	Precipitation    float64 `json:"precipitation"`
	Wind             float64 `json:"wind"`
	SolarRadiation   float64 `json:"solar_radiation"`
	DroughtIndex     float64 `json:"drought_index"`
	SoilPH           float64 `json:"soil_ph"`
	OrganicMatter    float64 `json:"organic_matter"`
	IrrigationMethod float64 `json:"irrigation_method"`
	Crop             float64 `json:"crop"`
	CropStage        float64 `json:"crop_stage"`
}

// Values returns the vector in FeatureNames order.
func (v FeatureVector) Values() []float64 {
	return []float64{
		v.SoilMoisture,
		v.Temperature,
		v.Precipitation,
		v.Wind,
		v.SolarRadiation,
		v.DroughtIndex,
		v.SoilPH,
		v.OrganicMatter,
		v.IrrigationMethod,
		v.Crop,
		v.CropStage,
	}
}

// Map keys the vector by FeatureNames.
func (v FeatureVector) Map() map[string]float64 {
	vals := v.Values()
	out := make(map[string]float64, len(vals))
	for i, name := range FeatureNames {
		out[name] = vals[i]
	}
	return out
}

// Build resolves the crop and encodes in. Missing core measurements encode
// as 0; missing optional ones take the Default* values.
func (c *Catalog) Build(in Input) (FeatureVector, Crop, error) {
	crop, err := c.Resolve(in.Crop)
	if err != nil {
		return FeatureVector{}, Crop{}, err
	}
	return Encode(in, crop), crop, nil
}

// Encode builds the vector for an already resolved crop.
func Encode(in Input, crop Crop) FeatureVector {
	return FeatureVector{
		SoilMoisture:     valueOr(in.SoilMoisture, 0),
		Temperature:      valueOr(in.Temperature, 0),
		Precipitation:    valueOr(in.Precipitation, 0),
		Wind:             valueOr(in.Wind, 0),
		SolarRadiation:   valueOr(in.SolarRadiation, 0),
		DroughtIndex:     valueOr(in.DroughtIndex, DefaultDroughtIndex),
		SoilPH:           valueOr(in.SoilPH, DefaultSoilPH),
		OrganicMatter:    valueOr(in.OrganicMatter, DefaultOrganicMatter),
		IrrigationMethod: categoryCode(irrigationMethodCodes, in.IrrigationMethod),
		Crop:             float64(crop.ID),
		CropStage:        categoryCode(stageCodes, in.Stage),
	}
}

// StageKey folds a free-text growth stage; unknown stages map to "otro".
func StageKey(stage string) string {
	k := FoldKey(stage)
	if _, ok := stageCodes[k]; ok {
		return k
	}
	return FallbackCategory
}

func categoryCode(codes map[string]float64, raw string) float64 {
	if v, ok := codes[FoldKey(raw)]; ok {
		return v
	}
	return codes[FallbackCategory]
}

func valueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
