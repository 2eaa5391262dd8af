package decision

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riego/entities"
	"riego/pkg/errors"
	"riego/pkg/features"
	"riego/pkg/metrics"
)

func f(v float64) *float64 { return &v }
func b(v bool) *bool       { return &v }

type constScorer float64

func (s constScorer) Score(context.Context, features.FeatureVector) (float64, error) {
	return float64(s), nil
}

// moistureScorer is decreasing in soil moisture.
type moistureScorer struct{}

func (moistureScorer) Score(_ context.Context, v features.FeatureVector) (float64, error) {
	return 1 - v.SoilMoisture/100, nil
}

type panicScorer struct{}

func (panicScorer) Score(context.Context, features.FeatureVector) (float64, error) {
	panic("index out of range")
}

type errScorer struct{}

func (errScorer) Score(context.Context, features.FeatureVector) (float64, error) {
	return 0, errors.NewStd("connection refused")
}

type fakeReadings struct {
	byID   map[uint]entities.Reading
	latest []entities.Reading
}

func (r *fakeReadings) FindByID(_ context.Context, id uint) (*entities.Reading, error) {
	rd, ok := r.byID[id]
	if !ok {
		return nil, errors.Newf("record not found").Category(errors.CategoryNotFound).Build()
	}
	return &rd, nil
}

func (r *fakeReadings) LatestPerCrop(context.Context) ([]entities.Reading, error) {
	return r.latest, nil
}

func (r *fakeReadings) EachLabelled(_ context.Context, _ int, fn func([]entities.Reading) error) error {
	var page []entities.Reading
	for _, rd := range r.byID {
		if rd.NeedsIrrigation != nil {
			page = append(page, rd)
		}
	}
	if len(page) == 0 {
		return nil
	}
	return fn(page)
}

func thresholdAt(t *testing.T, v string) *ThresholdSource {
	t.Helper()
	return NewThresholdSource(writeConfig(t, `{"threshold": `+v+`}`), time.Minute, nil)
}

var palta = entities.Reading{
	ID:              7,
	CropID:          2,
	Crop:            &entities.Crop{ID: 2, Name: "Palta"},
	Date:            time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC),
	SoilMoisture:    f(15),
	Temperature:     f(33),
	CropStage:       "Floración",
	NeedsIrrigation: b(true),
}

func TestThresholdDecides(t *testing.T) {
	tests := []struct {
		threshold string
		want      bool
	}{
		{"0.5", true},
		{"0.8", true},
		{"0.85", true},
		{"0.9", false},
	}
	for _, tt := range tests {
		t.Run(tt.threshold, func(t *testing.T) {
			e := New(&fakeReadings{}, nil, constScorer(0.85), thresholdAt(t, tt.threshold), Options{})
			rec, err := e.FromInput(context.Background(), features.Input{Crop: "Mango", Date: palta.Date})
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.NeedsIrrigation)
			assert.Equal(t, 0.85, rec.Probability)
			if tt.want {
				assert.Equal(t, 98990.0, rec.EstimatedCost)
			} else {
				assert.Zero(t, rec.EstimatedCost)
			}
		})
	}
}

func TestDecisionMonotonicInScore(t *testing.T) {
	src := thresholdAt(t, "0.6")
	prev := false
	for s := 0.0; s <= 1.0; s += 0.05 {
		e := New(&fakeReadings{}, nil, constScorer(s), src, Options{})
		rec, err := e.FromInput(context.Background(), features.Input{Crop: "Maíz"})
		require.NoError(t, err)
		if prev {
			assert.True(t, rec.NeedsIrrigation, "score %.2f", s)
		}
		prev = rec.NeedsIrrigation
	}
	assert.True(t, prev)
}

func TestLogitScores(t *testing.T) {
	src := NewThresholdSource(writeConfig(t, `{"threshold": 0.5, "score_type": "logit"}`), time.Minute, nil)
	e := New(&fakeReadings{}, nil, constScorer(0), src, Options{})
	rec, err := e.FromInput(context.Background(), features.Input{Crop: "Mango"})
	require.NoError(t, err)
	assert.Equal(t, 0.5, rec.Probability)
	assert.True(t, rec.NeedsIrrigation)

	assert.InDelta(t, 0.88, Normalize(2, ScoreLogit), 0.01)
	assert.Equal(t, 1.0, Normalize(1.3, ScoreProbability))
	assert.Equal(t, 0.0, Normalize(-0.2, ScoreProbability))
}

func TestRoundTrip(t *testing.T) {
	readings := &fakeReadings{byID: map[uint]entities.Reading{7: palta}}
	e := New(readings, nil, moistureScorer{}, thresholdAt(t, "0.5"), Options{})

	fromID, err := e.FromReading(context.Background(), 7)
	require.NoError(t, err)

	fromInput, err := e.FromInput(context.Background(), features.Input{
		Crop:         "palta",
		Stage:        "Floración",
		Date:         palta.Date,
		SoilMoisture: f(15),
		Temperature:  f(33),
	})
	require.NoError(t, err)
	assert.Equal(t, fromID, fromInput)

	assert.Equal(t, "Palta", fromID.Crop)
	assert.Equal(t, features.SeasonHigh, fromID.Season)
	assert.Equal(t, "2024-05-10", fromID.Date)
	assert.Equal(t, RationaleLowMoisture, fromID.Rationale)
	assert.Equal(t, 0.85, fromID.Probability)
}

func TestRationalePriority(t *testing.T) {
	e := New(&fakeReadings{}, nil, constScorer(0.1), nil, Options{})
	tests := []struct {
		name string
		in   features.Input
		want string
	}{
		{"dry beats heat", features.Input{SoilMoisture: f(19.9), Temperature: f(35), Stage: "floracion"}, RationaleLowMoisture},
		{"heat beats stage", features.Input{SoilMoisture: f(20), Temperature: f(30.5), Stage: "floracion"}, RationaleHighTemp},
		{"critical stage", features.Input{SoilMoisture: f(40), Temperature: f(30), Stage: "FLORACIÓN"}, RationaleCriticalStage},
		{"normal", features.Input{SoilMoisture: f(40), Temperature: f(20), Stage: "Siembra"}, RationaleNormal},
		{"nulls", features.Input{}, RationaleNormal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.Crop = "Mango"
			rec, err := e.FromInput(context.Background(), tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.Rationale)
		})
	}
}

func TestUnknownCropIsRejected(t *testing.T) {
	e := New(&fakeReadings{}, nil, constScorer(0.2), nil, Options{})

	for _, raw := range []string{"Trigo", "  Banana ", ""} {
		rec, err := e.FromInput(context.Background(), features.Input{Crop: raw, SoilMoisture: f(10)})
		require.Error(t, err, raw)
		assert.Nil(t, rec)
		assert.True(t, errors.IsCategory(err, errors.CategoryValidation), raw)

		var unk *features.UnknownCropError
		require.True(t, errors.As(err, &unk), raw)
		assert.Equal(t, raw, unk.Text)
	}
}

func TestStoredReadingWithoutCrop(t *testing.T) {
	orphan := palta
	orphan.ID, orphan.CropID, orphan.Crop = 9, 42, nil

	e := New(&fakeReadings{byID: map[uint]entities.Reading{9: orphan}}, nil, constScorer(0.2), nil, Options{})
	rec, err := e.FromReading(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, UnknownCrop, rec.Crop)
	assert.Equal(t, features.SeasonLow, rec.Season)
	assert.Equal(t, "2024-05-10", rec.Date)
}

func TestDefaultDate(t *testing.T) {
	now := time.Date(2025, 2, 3, 12, 0, 0, 0, time.UTC)
	e := New(&fakeReadings{}, nil, constScorer(0.2), nil, Options{Now: func() time.Time { return now }})

	rec, err := e.FromInput(context.Background(), features.Input{Crop: "Maíz"})
	require.NoError(t, err)
	assert.Equal(t, "2025-02-03", rec.Date)
	assert.Equal(t, features.SeasonHigh, rec.Season)
}

func TestDecisionMatchesReportedProbability(t *testing.T) {
	tests := []struct {
		score float64
		want  bool
	}{
		{0.4951, true},
		{0.4949, false},
		{0.5, true},
	}
	for _, tt := range tests {
		e := New(&fakeReadings{}, nil, constScorer(tt.score), thresholdAt(t, "0.5"), Options{})
		rec, err := e.FromInput(context.Background(), features.Input{Crop: "Mango"})
		require.NoError(t, err)
		assert.Equal(t, tt.want, rec.NeedsIrrigation, "score %v", tt.score)
		assert.Equal(t, tt.want, rec.Probability >= 0.5, "score %v", tt.score)
	}
}

func TestFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	e := New(&fakeReadings{}, nil, constScorer(0.9), nil, Options{Metrics: m})
	_, err = e.FromReading(context.Background(), 99)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReadingNotFound)
	assert.True(t, errors.IsNotFound(err))

	e = New(&fakeReadings{}, nil, panicScorer{}, nil, Options{Metrics: m})
	rec, err := e.FromInput(context.Background(), features.Input{Crop: "Mango"})
	require.Error(t, err)
	assert.Nil(t, rec)
	assert.Contains(t, err.Error(), "index out of range")

	e = New(&fakeReadings{}, nil, errScorer{}, nil, Options{Metrics: m})
	_, err = e.FromInput(context.Background(), features.Input{Crop: "Mango"})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryModel))

	expected := `
# HELP riego_decisions_total Irrigation recommendations produced
# TYPE riego_decisions_total counter
riego_decisions_total{outcome="error"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "riego_decisions_total"))
}

func TestLatestPerCrop(t *testing.T) {
	mango := palta
	mango.ID, mango.CropID, mango.Crop = 8, 4, &entities.Crop{ID: 4, Name: "Mango"}
	mango.SoilMoisture = f(80)

	e := New(&fakeReadings{latest: []entities.Reading{palta, mango}}, nil, moistureScorer{}, thresholdAt(t, "0.5"), Options{})
	out, err := e.LatestPerCrop(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.True(t, out[0].NeedsIrrigation)
	assert.False(t, out[1].NeedsIrrigation)
	assert.Equal(t, "Mango", out[1].Crop)
}

func TestEvaluate(t *testing.T) {
	mk := func(id uint, moisture float64, label *bool) entities.Reading {
		r := palta
		r.ID, r.SoilMoisture, r.NeedsIrrigation = id, f(moisture), label
		return r
	}
	readings := &fakeReadings{byID: map[uint]entities.Reading{
		1: mk(1, 10, b(true)),  // TP
		2: mk(2, 20, b(false)), // FP
		3: mk(3, 80, b(true)),  // FN
		4: mk(4, 90, b(false)), // TN
		5: mk(5, 85, b(false)), // TN
		6: mk(6, 10, nil),      // unlabelled
	}}
	e := New(readings, nil, moistureScorer{}, thresholdAt(t, "0.5"), Options{})

	ev, err := e.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, ev.Samples)
	assert.Equal(t, []int{1, 2, 1, 1}, []int{ev.TP, ev.TN, ev.FP, ev.FN})
	assert.InDelta(t, 0.6, ev.Accuracy, 1e-9)
	assert.InDelta(t, 0.5, ev.Precision, 1e-9)
	assert.InDelta(t, 0.5, ev.Recall, 1e-9)
	assert.InDelta(t, 2.0/3.0, ev.Specificity, 1e-9)
	assert.InDelta(t, 0.5, ev.F1, 1e-9)
	assert.InDelta(t, (0.5+2.0/3.0)/2, ev.AUC, 1e-9)

	_, err = New(&fakeReadings{}, nil, moistureScorer{}, nil, Options{}).Evaluate(context.Background())
	assert.ErrorIs(t, err, ErrNoLabelledReadings)
}

func TestRecommendationJSON(t *testing.T) {
	e := New(&fakeReadings{}, nil, constScorer(0.856), thresholdAt(t, "0.5"), Options{})
	rec, err := e.FromInput(context.Background(), features.Input{Crop: "Maíz", Stage: "Floración", Date: palta.Date})
	require.NoError(t, err)

	raw, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"necesitaRiego": true,
		"probabilidad": 0.86,
		"costo_estimado": 98990,
		"temporada": "Baja",
		"cultivo": "Maíz",
		"etapa": "Floración",
		"fecha": "2024-05-10",
		"explicacion": "Etapa crítica del cultivo"
	}`, string(raw))
}
