// Package timeseries mirrors imported readings into InfluxDB.
package timeseries

import (
	"context"
	"strconv"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"riego/entities"
	"riego/pkg/errors"
)

const Measurement = "lecturas"

// Mirror receives every committed batch of readings.
type Mirror interface {
	WriteReadings(ctx context.Context, rs []entities.Reading) error
	Close()
}

// InfluxMirror writes readings with the blocking write API.
type InfluxMirror struct {
	client influxdb2.Client
	writer api.WriteAPIBlocking
}

func NewInflux(url, token, org, bucket string) *InfluxMirror {
	client := influxdb2.NewClient(url, token)
	return &InfluxMirror{client: client, writer: client.WriteAPIBlocking(org, bucket)}
}

func (m *InfluxMirror) WriteReadings(ctx context.Context, rs []entities.Reading) error {
	points := Points(rs)
	if len(points) == 0 {
		return nil
	}
	if err := m.writer.WritePoint(ctx, points...); err != nil {
		return errors.New(err).Component("timeseries").Category(errors.CategoryDatabase).
			Context("points", len(points)).Build()
	}
	return nil
}

func (m *InfluxMirror) Close() { m.client.Close() }

// Points converts readings to points tagged by sensor and crop. NULL
// measurements are left out; a reading with none yields no point.
func Points(rs []entities.Reading) []*write.Point {
	out := make([]*write.Point, 0, len(rs))
	for i := range rs {
		r := &rs[i]
		fields := map[string]any{}
		add := func(name string, v *float64) {
			if v != nil {
				fields[name] = *v
			}
		}
		add("humedad_suelo", r.SoilMoisture)
		add("temperatura", r.Temperature)
		add("precipitacion", r.Precipitation)
		add("viento", r.Wind)
		add("radiacion_solar", r.SolarRadiation)
		add("indice_sequia", r.DroughtIndex)
		add("ph_suelo", r.SoilPH)
		add("materia_organica", r.OrganicMatter)
		add("indice_estres", r.WaterStressIndex)
		add("deficit_hidrico", r.HydricDeficit)
		add("evapotranspiracion", r.Evapotranspiration)
		if r.NeedsIrrigation != nil {
			fields["necesita_riego"] = *r.NeedsIrrigation
		}
		if len(fields) == 0 {
			continue
		}
		tags := map[string]string{
			"sensor_id": strconv.FormatUint(uint64(r.SensorID), 10),
			"crop_id":   strconv.FormatUint(uint64(r.CropID), 10),
		}
		if r.CropStage != "" {
			tags["etapa"] = r.CropStage
		}
		out = append(out, influxdb2.NewPoint(Measurement, tags, fields, r.Date))
	}
	return out
}

// Nop discards everything; used when no InfluxDB is configured.
type Nop struct{}

func (Nop) WriteReadings(context.Context, []entities.Reading) error { return nil }
func (Nop) Close()                                                  {}

// Ping reports whether the InfluxDB server answers.
func (m *InfluxMirror) Ping(ctx context.Context) error {
	ok, err := m.client.Ping(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return errors.NewStd("influxdb ping failed")
	}
	return nil
}
