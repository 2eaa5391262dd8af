package decision

import (
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/spf13/viper"

	"riego/pkg/logger"
)

const (
	DefaultThreshold = 0.5
	DefaultTTL       = 5 * time.Minute

	ScoreProbability = "probability"
	ScoreLogit       = "logit"

	cacheKey = "model_config"
)

// ModelConfig is the model description document, typically modelo_info.json.
type ModelConfig struct {
	Model             string             `json:"modelo,omitempty"`
	Threshold         float64            `json:"threshold"`
	ScoreType         string             `json:"score_type"`
	FeatureImportance map[string]float64 `json:"feature_importance,omitempty"`
	Accuracy          float64            `json:"accuracy,omitempty"`
	Precision         float64            `json:"precision,omitempty"`
	Recall            float64            `json:"recall,omitempty"`
	Specificity       float64            `json:"specificity,omitempty"`
	F1                float64            `json:"f1,omitempty"`
	AUC               float64            `json:"auc,omitempty"`
}

// ThresholdSource reads the model document on demand and caches it for ttl,
// so edits on disk are picked up without a restart.
type ThresholdSource struct {
	path  string
	cache *cache.Cache
	log   *slog.Logger
}

func NewThresholdSource(path string, ttl time.Duration, log *slog.Logger) *ThresholdSource {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ThresholdSource{
		path:  path,
		cache: cache.New(ttl, 2*ttl),
		log:   logger.OrDiscard(log),
	}
}

// Current never fails: unreadable documents and unusable thresholds fall
// back to DefaultThreshold with a warning.
func (s *ThresholdSource) Current() ModelConfig {
	if v, ok := s.cache.Get(cacheKey); ok {
		return v.(ModelConfig)
	}
	cfg := s.load()
	s.cache.Set(cacheKey, cfg, cache.DefaultExpiration)
	return cfg
}

// Invalidate drops the cached document.
func (s *ThresholdSource) Invalidate() {
	s.cache.Delete(cacheKey)
}

func (s *ThresholdSource) load() ModelConfig {
	cfg := ModelConfig{Threshold: DefaultThreshold, ScoreType: ScoreProbability}
	if s.path == "" {
		return cfg
	}

	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		s.log.Warn("model config unreadable, using default threshold", "path", s.path, "error", err)
		return cfg
	}

	cfg.Model = v.GetString("modelo")
	cfg.Accuracy = v.GetFloat64("accuracy")
	cfg.Precision = v.GetFloat64("precision")
	cfg.Recall = v.GetFloat64("recall")
	cfg.Specificity = v.GetFloat64("specificity")
	cfg.F1 = v.GetFloat64("f1")
	cfg.AUC = v.GetFloat64("auc")

	if fi := v.GetStringMap("feature_importance"); len(fi) > 0 {
		cfg.FeatureImportance = make(map[string]float64, len(fi))
		for k, raw := range fi {
			if f, ok := toFloat(raw); ok {
				cfg.FeatureImportance[k] = f
			}
		}
	}

	switch st := strings.ToLower(strings.TrimSpace(v.GetString("score_type"))); st {
	case "", ScoreProbability:
	case ScoreLogit:
		cfg.ScoreType = ScoreLogit
	default:
		s.log.Warn("unknown score_type, assuming probability", "score_type", st)
	}

	t, ok := toFloat(v.Get("threshold"))
	if !ok || math.IsNaN(t) || t < 0 || t > 1 {
		s.log.Warn("model config threshold missing or out of range, using default",
			"path", s.path, "threshold", v.Get("threshold"), "default", DefaultThreshold)
		return cfg
	}
	cfg.Threshold = t
	return cfg
}

func toFloat(raw any) (float64, bool) {
	switch x := raw.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
