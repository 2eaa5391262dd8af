package decision

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "modelo_info.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestThresholdFallbacks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path string
	}{
		{"no path", ""},
		{"missing file", filepath.Join(t.TempDir(), "nope.json")},
		{"malformed", writeConfig(t, `{"threshold": `)},
		{"no threshold", writeConfig(t, `{"modelo": "FastTree"}`)},
		{"out of range", writeConfig(t, `{"threshold": 1.7}`)},
		{"negative", writeConfig(t, `{"threshold": -0.1}`)},
		{"not a number", writeConfig(t, `{"threshold": "alto"}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewThresholdSource(tt.path, time.Minute, nil).Current()
			assert.Equal(t, DefaultThreshold, cfg.Threshold)
			assert.Equal(t, ScoreProbability, cfg.ScoreType)
		})
	}
}

func TestThresholdDocument(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `{
		"modelo": "FastTree",
		"accuracy": 0.91,
		"threshold": 0.62,
		"score_type": "LOGIT",
		"feature_importance": {"soil_moisture": 0.4, "temperature": 0.2}
	}`)
	cfg := NewThresholdSource(path, time.Minute, nil).Current()
	assert.Equal(t, 0.62, cfg.Threshold)
	assert.Equal(t, ScoreLogit, cfg.ScoreType)
	assert.Equal(t, "FastTree", cfg.Model)
	assert.Equal(t, 0.91, cfg.Accuracy)
	assert.Equal(t, 0.4, cfg.FeatureImportance["soil_moisture"])

	str := writeConfig(t, `{"threshold": "0.3"}`)
	assert.Equal(t, 0.3, NewThresholdSource(str, time.Minute, nil).Current().Threshold)
}

func TestThresholdCachedUntilInvalidated(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `{"threshold": 0.4}`)
	src := NewThresholdSource(path, time.Hour, nil)
	require.Equal(t, 0.4, src.Current().Threshold)

	require.NoError(t, os.WriteFile(path, []byte(`{"threshold": 0.7}`), 0o600))
	assert.Equal(t, 0.4, src.Current().Threshold)

	src.Invalidate()
	assert.Equal(t, 0.7, src.Current().Threshold)
}
