package alert

import (
	"context"
	"log/slog"

	"riego/entities"
	"riego/pkg/features"
	"riego/pkg/logger"
	"riego/pkg/reading/repository"
)

// DefaultLimit is how many recent readings Active inspects.
const (
	DefaultLimit = 20
	MaxLimit     = 500
	UnknownCrop  = "Desconocido"
)

// ReadingSource is the part of the reading repository alerts read from.
type ReadingSource interface {
	Recent(ctx context.Context, limit int) ([]entities.Reading, error)
	Geo(ctx context.Context, f repository.GeoFilter) ([]entities.Reading, error)
}

type Service struct {
	src        ReadingSource
	catalog    *features.Catalog
	thresholds Thresholds
	log        *slog.Logger
}

func NewService(src ReadingSource, catalog *features.Catalog, log *slog.Logger) *Service {
	if catalog == nil {
		catalog = features.DefaultCatalog()
	}
	return &Service{src: src, catalog: catalog, thresholds: DefaultThresholds, log: logger.OrDiscard(log)}
}

// View projects a stored reading for the classifier.
func View(r entities.Reading) ReadingView {
	name := r.CropName()
	if name == "" {
		name = UnknownCrop
	}
	return ReadingView{
		Crop:          name,
		Date:          r.Date,
		SoilMoisture:  r.SoilMoisture,
		Wind:          r.Wind,
		Precipitation: r.Precipitation,
	}
}

// Active classifies the latest limit readings. It never returns an empty
// slice: with nothing alerting the result is the None placeholder.
func (s *Service) Active(ctx context.Context, limit int) ([]Alert, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	rs, err := s.src.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	views := make([]ReadingView, 0, len(rs))
	for _, r := range rs {
		views = append(views, View(r))
	}
	out := s.thresholds.Classify(views)
	s.log.Debug("alerts classified", "readings", len(rs), "alerts", len(out))
	if len(out) == 0 {
		return []Alert{None()}, nil
	}
	return out, nil
}

type GeoQuery struct {
	Year  int
	Month int
	Crop  string
}

type GeoPoint struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Intensity float64 `json:"intensidad"`
}

// GeoPoints returns weighted map points. An unrecognised crop filter matches
// nothing.
func (s *Service) GeoPoints(ctx context.Context, q GeoQuery) ([]GeoPoint, error) {
	f := repository.GeoFilter{Year: q.Year, Month: q.Month}
	if q.Crop != "" {
		crop, err := s.catalog.Resolve(q.Crop)
		if err != nil {
			s.log.Debug("geo filter on unknown crop", "cultivo", q.Crop)
			return []GeoPoint{}, nil
		}
		f.CropID = crop.ID
	}
	rs, err := s.src.Geo(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]GeoPoint, 0, len(rs))
	for _, r := range rs {
		if r.Lat == nil || r.Lng == nil || *r.Lat == 0 || *r.Lng == 0 {
			continue
		}
		out = append(out, GeoPoint{Lat: *r.Lat, Lng: *r.Lng, Intensity: GeoIntensity(View(r))})
	}
	return out, nil
}
