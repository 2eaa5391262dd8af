// Package decision turns readings into irrigation recommendations: model
// score, configurable threshold, cost estimate, demand season and a
// one-line rationale.
package decision

import (
	"context"
	"log/slog"
	"math"
	"runtime/debug"
	"time"

	"riego/entities"
	"riego/pkg/errors"
	"riego/pkg/features"
	"riego/pkg/logger"
	"riego/pkg/metrics"
	"riego/pkg/model"
)

// ErrReadingNotFound is returned by FromReading for an unknown id.
var ErrReadingNotFound = errors.NewStd("reading not found")

// ErrNoLabelledReadings is returned by Evaluate when nothing can be compared.
var ErrNoLabelledReadings = errors.NewStd("no labelled readings")

// UnknownCrop names a crop the catalog does not recognise.
const UnknownCrop = "Desconocido"

const (
	RationaleLowMoisture   = "Humedad baja"
	RationaleHighTemp      = "Alta temperatura"
	RationaleCriticalStage = "Etapa crítica del cultivo"
	RationaleNormal        = "Condiciones normales"
)

// ReadingSource is the part of the reading repository the engine reads.
type ReadingSource interface {
	FindByID(ctx context.Context, id uint) (*entities.Reading, error)
	LatestPerCrop(ctx context.Context) ([]entities.Reading, error)
	EachLabelled(ctx context.Context, size int, fn func([]entities.Reading) error) error
}

type Options struct {
	CostPerM3      float64
	ConsumptionMin float64
	ConsumptionMax float64

	LowMoisture     float64
	HighTemperature float64
	CriticalStages  []string

	Metrics *metrics.Metrics
	Log     *slog.Logger
	Now     func() time.Time
}

func (o *Options) defaults() {
	if o.CostPerM3 <= 0 {
		o.CostPerM3 = 5.21
	}
	if o.ConsumptionMin <= 0 {
		o.ConsumptionMin = 18000
	}
	if o.ConsumptionMax <= 0 {
		o.ConsumptionMax = 20000
	}
	if o.LowMoisture == 0 {
		o.LowMoisture = 20
	}
	if o.HighTemperature == 0 {
		o.HighTemperature = 30
	}
	if len(o.CriticalStages) == 0 {
		o.CriticalStages = []string{"floracion"}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Recommendation is the decision for one reading.
type Recommendation struct {
	NeedsIrrigation bool            `json:"necesitaRiego"`
	Probability     float64         `json:"probabilidad"`
	EstimatedCost   float64         `json:"costo_estimado"`
	Season          features.Season `json:"temporada"`
	Crop            string          `json:"cultivo"`
	Stage           string          `json:"etapa"`
	Date            string          `json:"fecha"`
	Rationale       string          `json:"explicacion"`
}

type Engine struct {
	readings   ReadingSource
	catalog    *features.Catalog
	scorer     model.Scorer
	thresholds *ThresholdSource
	critical   map[string]struct{}
	opts       Options
	log        *slog.Logger
}

func New(readings ReadingSource, catalog *features.Catalog, scorer model.Scorer, thresholds *ThresholdSource, opts Options) *Engine {
	opts.defaults()
	if catalog == nil {
		catalog = features.DefaultCatalog()
	}
	if scorer == nil {
		scorer = model.NewMock()
	}
	if thresholds == nil {
		thresholds = NewThresholdSource("", 0, opts.Log)
	}
	critical := make(map[string]struct{}, len(opts.CriticalStages))
	for _, s := range opts.CriticalStages {
		critical[features.FoldKey(s)] = struct{}{}
	}
	return &Engine{
		readings:   readings,
		catalog:    catalog,
		scorer:     scorer,
		thresholds: thresholds,
		critical:   critical,
		opts:       opts,
		log:        logger.OrDiscard(opts.Log),
	}
}

// FromReading decides for a stored reading, dated with the reading's date.
func (e *Engine) FromReading(ctx context.Context, id uint) (*Recommendation, error) {
	r, err := e.readings.FindByID(ctx, id)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.New(ErrReadingNotFound).Category(errors.CategoryNotFound).
				Component("decision").Context("id", id).Build()
		}
		return nil, err
	}
	return e.fromStored(ctx, *r)
}

// FromInput decides for an unsaved reading. A zero Date means today. The crop
// must resolve; otherwise the error wraps *features.UnknownCropError.
func (e *Engine) FromInput(ctx context.Context, in features.Input) (*Recommendation, error) {
	crop, err := e.catalog.Resolve(in.Crop)
	if err != nil {
		return nil, errors.New(err).Category(errors.CategoryValidation).Component("decision").
			Context("crop", in.Crop).Build()
	}
	return e.decide(ctx, in, crop)
}

// fromStored decides for a persisted reading. A crop the catalog no longer
// knows encodes as crop 0 under UnknownCrop.
func (e *Engine) fromStored(ctx context.Context, r entities.Reading) (*Recommendation, error) {
	in := InputOf(r)
	crop, err := e.catalog.Resolve(in.Crop)
	if err != nil {
		crop = features.Crop{Name: UnknownCrop}
		in.Crop = UnknownCrop
	}
	return e.decide(ctx, in, crop)
}

func (e *Engine) decide(ctx context.Context, in features.Input, crop features.Crop) (rec *Recommendation, err error) {
	defer func() {
		if p := recover(); p != nil {
			e.log.Error("decision panicked", "panic", p, "stack", string(debug.Stack()))
			e.opts.Metrics.RecordDecision(metrics.OutcomeError)
			rec = nil
			err = errors.Newf("decision failed: %v", p).Category(errors.CategoryGeneric).Component("decision").Build()
		}
	}()

	if in.Date.IsZero() {
		in.Date = e.opts.Now()
	}
	cfg := e.thresholds.Current()
	p, err := e.probability(ctx, features.Encode(in, crop), cfg.ScoreType)
	if err != nil {
		e.opts.Metrics.RecordDecision(metrics.OutcomeError)
		return nil, err
	}

	// the reported probability is the compared one
	p = round2(p)
	e.opts.Metrics.SetThreshold(cfg.Threshold)
	needs := p >= cfg.Threshold
	cost := 0.0
	if needs {
		cost = (e.opts.ConsumptionMin + e.opts.ConsumptionMax) / 2 * e.opts.CostPerM3
		e.opts.Metrics.RecordDecision(metrics.OutcomeIrrigate)
	} else {
		e.opts.Metrics.RecordDecision(metrics.OutcomeNoIrrigate)
	}

	return &Recommendation{
		NeedsIrrigation: needs,
		Probability:     p,
		EstimatedCost:   round2(cost),
		Season:          e.catalog.Season(crop.Name, int(in.Date.Month())),
		Crop:            crop.Name,
		Stage:           in.Stage,
		Date:            in.Date.Format("2006-01-02"),
		Rationale:       e.rationale(in),
	}, nil
}

// LatestPerCrop decides for the newest reading of every crop.
func (e *Engine) LatestPerCrop(ctx context.Context) ([]Recommendation, error) {
	rs, err := e.readings.LatestPerCrop(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Recommendation, 0, len(rs))
	for _, r := range rs {
		rec, err := e.fromStored(ctx, r)
		if err != nil {
			return nil, errors.New(err).Component("decision").Context("reading_id", r.ID).Build()
		}
		out = append(out, *rec)
	}
	return out, nil
}

// InputOf converts a stored reading. The crop name comes from the joined
// crop and is "Desconocido" when the join is missing.
func InputOf(r entities.Reading) features.Input {
	name := r.CropName()
	if name == "" {
		name = UnknownCrop
	}
	return features.Input{
		Crop:             name,
		Stage:            r.CropStage,
		IrrigationMethod: r.IrrigationMethod,
		Date:             r.Date,
		SoilMoisture:     r.SoilMoisture,
		Temperature:      r.Temperature,
		Precipitation:    r.Precipitation,
		Wind:             r.Wind,
		SolarRadiation:   r.SolarRadiation,
		DroughtIndex:     r.DroughtIndex,
		SoilPH:           r.SoilPH,
		OrganicMatter:    r.OrganicMatter,
	}
}

// probability scores v and normalizes the score as scoreType.
func (e *Engine) probability(ctx context.Context, v features.FeatureVector, scoreType string) (float64, error) {
	start := time.Now()
	score, err := e.scorer.Score(ctx, v)
	e.opts.Metrics.RecordModelScore(time.Since(start))
	if err != nil {
		if errors.CategoryOf(err) == errors.CategoryGeneric {
			err = errors.New(err).Category(errors.CategoryModel).Component("decision").Build()
		}
		return 0, err
	}
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, errors.Newf("model returned %v", score).Category(errors.CategoryModel).Component("decision").Build()
	}
	return Normalize(score, scoreType), nil
}

// Normalize maps a raw score to [0,1]: probabilities are clamped, logits go
// through the logistic function.
func Normalize(score float64, scoreType string) float64 {
	if scoreType == ScoreLogit {
		return 1 / (1 + math.Exp(-score))
	}
	return math.Max(0, math.Min(1, score))
}

func (e *Engine) rationale(in features.Input) string {
	switch {
	case in.SoilMoisture != nil && *in.SoilMoisture < e.opts.LowMoisture:
		return RationaleLowMoisture
	case in.Temperature != nil && *in.Temperature > e.opts.HighTemperature:
		return RationaleHighTemp
	}
	if _, ok := e.critical[features.FoldKey(in.Stage)]; ok {
		return RationaleCriticalStage
	}
	return RationaleNormal
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
