// Package alert turns recent readings into prioritized operational alerts.
package alert

import (
	"fmt"
	"sort"
	"time"
)

type Level string

const (
	LevelHigh     Level = "Alto"
	LevelModerate Level = "Moderado"
	LevelNone     Level = "Ninguno"
)

func (l Level) rank() int {
	switch l {
	case LevelHigh:
		return 0
	case LevelModerate:
		return 1
	default:
		return 2
	}
}

// Signal is a monitored measurement. The order of the constants is the
// tie-break order in Classify.
type Signal int

const (
	SignalMoisture Signal = iota
	SignalWind
	SignalPrecipitation
)

// Thresholds holds the per-signal limits. Moisture alerts below its limits,
// wind and precipitation above.
type Thresholds struct {
	MoistureModerate, MoistureHigh           float64
	WindModerate, WindHigh                   float64
	PrecipitationModerate, PrecipitationHigh float64
}

var DefaultThresholds = Thresholds{
	MoistureModerate:      30,
	MoistureHigh:          20,
	WindModerate:          20,
	WindHigh:              40,
	PrecipitationModerate: 50,
	PrecipitationHigh:     80,
}

// ReadingView is the slice of a reading the classifier needs.
type ReadingView struct {
	Crop          string
	Date          time.Time
	SoilMoisture  *float64
	Wind          *float64
	Precipitation *float64
}

type Alert struct {
	Kind    string `json:"tipo"`
	Icon    string `json:"icono"`
	Crop    string `json:"cultivo"`
	Date    string `json:"fecha"`
	Level   Level  `json:"nivel"`
	Message string `json:"descripcion"`

	signal Signal
	at     time.Time
}

// None is the placeholder returned when nothing is alerting.
func None() Alert {
	return Alert{
		Kind:    "Ninguna",
		Icon:    "✅",
		Crop:    "",
		Date:    "",
		Level:   LevelNone,
		Message: "No hay alertas activas",
	}
}

type rule struct {
	signal   Signal
	kind     string
	icon     string
	value    func(ReadingView) *float64
	below    bool
	moderate float64
	high     float64
	describe func(v, limit float64) string
}

func (t Thresholds) rules() []rule {
	return []rule{
		{
			signal: SignalMoisture, kind: "Humedad baja", icon: "⚠️",
			value: func(r ReadingView) *float64 { return r.SoilMoisture },
			below: true, moderate: t.MoistureModerate, high: t.MoistureHigh,
			describe: func(v, limit float64) string {
				return fmt.Sprintf("Humedad del suelo en %.1f%% (umbral %.0f%%)", v, limit)
			},
		},
		{
			signal: SignalWind, kind: "Viento fuerte", icon: "🌬️",
			value:    func(r ReadingView) *float64 { return r.Wind },
			moderate: t.WindModerate, high: t.WindHigh,
			describe: func(v, limit float64) string {
				return fmt.Sprintf("Viento de %.1f km/h (umbral %.0f km/h)", v, limit)
			},
		},
		{
			signal: SignalPrecipitation, kind: "Lluvia intensa", icon: "🌧️",
			value:    func(r ReadingView) *float64 { return r.Precipitation },
			moderate: t.PrecipitationModerate, high: t.PrecipitationHigh,
			describe: func(v, limit float64) string {
				return fmt.Sprintf("Precipitación de %.1f mm (umbral %.0f mm)", v, limit)
			},
		},
	}
}

func (ru rule) level(v float64) (Level, float64, bool) {
	if ru.below {
		switch {
		case v < ru.high:
			return LevelHigh, ru.high, true
		case v < ru.moderate:
			return LevelModerate, ru.moderate, true
		}
		return "", 0, false
	}
	switch {
	case v > ru.high:
		return LevelHigh, ru.high, true
	case v > ru.moderate:
		return LevelModerate, ru.moderate, true
	}
	return "", 0, false
}

// Classify evaluates every signal of every reading independently with the
// default thresholds.
func Classify(readings []ReadingView) []Alert {
	return DefaultThresholds.Classify(readings)
}

// Classify returns at most one alert per signal per reading, the higher
// level winning. NULL signals are not evaluated. Alerts are ordered by level,
// then date descending, then signal.
func (t Thresholds) Classify(readings []ReadingView) []Alert {
	rules := t.rules()
	var out []Alert
	for _, r := range readings {
		for _, ru := range rules {
			v := ru.value(r)
			if v == nil {
				continue
			}
			lvl, limit, ok := ru.level(*v)
			if !ok {
				continue
			}
			out = append(out, Alert{
				Kind:    ru.kind,
				Icon:    ru.icon,
				Crop:    r.Crop,
				Date:    r.Date.Format("2006-01-02"),
				Level:   lvl,
				Message: ru.describe(*v, limit),
				signal:  ru.signal,
				at:      r.Date,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Level.rank() != b.Level.rank() {
			return a.Level.rank() < b.Level.rank()
		}
		if !a.at.Equal(b.at) {
			return a.at.After(b.at)
		}
		return a.signal < b.signal
	})
	return out
}

// GeoIntensity weights a reading for the heat map: dry soil 1, strong wind
// 0.8, heavy rain 0.6, otherwise 0.3.
func GeoIntensity(r ReadingView) float64 {
	t := DefaultThresholds
	switch {
	case r.SoilMoisture != nil && *r.SoilMoisture < t.MoistureModerate:
		return 1
	case r.Wind != nil && *r.Wind > t.WindModerate:
		return 0.8
	case r.Precipitation != nil && *r.Precipitation > t.PrecipitationModerate:
		return 0.6
	default:
		return 0.3
	}
}
