package entities

import "time"

// Reading is one sensor observation. Measurements are nullable: a value the
// source did not carry stays NULL and is never stored as 0.
type Reading struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	SensorID uint      `gorm:"not null;index" json:"sensorId"`
	Sensor   *Sensor   `gorm:"constraint:OnDelete:RESTRICT" json:"sensor,omitempty"`
	CropID   uint      `gorm:"not null;index" json:"cultivoId"`
	Crop     *Crop     `gorm:"constraint:OnDelete:RESTRICT" json:"cultivo,omitempty"`
	Date     time.Time `gorm:"index" json:"fecha"`

	SoilMoisture       *float64 `json:"humedadSuelo"`
	Temperature        *float64 `json:"temperatura"`
	Precipitation      *float64 `json:"precipitacion"`
	Wind               *float64 `json:"viento"`
	SolarRadiation     *float64 `json:"radiacionSolar"`
	DroughtIndex       *float64 `json:"indiceSequia"`
	SoilPH             *float64 `gorm:"column:soil_ph" json:"pH_Suelo"`
	OrganicMatter      *float64 `json:"materiaOrganica"`
	WaterStressIndex   *float64 `json:"indiceEstres"`
	HydricDeficit      *float64 `json:"deficitHidrico"`
	Evapotranspiration *float64 `json:"evapotranspiracion"`
	Lat                *float64 `json:"lat"`
	Lng                *float64 `json:"lng"`

	IrrigationMethod string `gorm:"size:64" json:"metodoRiego"`
	CropStage        string `gorm:"size:64" json:"etapaCultivo"`
	NeedsIrrigation  *bool  `json:"necesitaRiego"`

	CreatedAt time.Time `json:"-"`
}

// CropName returns the joined crop name or "" when the association was not loaded.
func (r *Reading) CropName() string {
	if r.Crop == nil {
		return ""
	}
	return r.Crop.Name
}

// AllModels lists the tables owned by this service, in migration order.
func AllModels() []any {
	return []any{&Sensor{}, &Crop{}, &Reading{}}
}
