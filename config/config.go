package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port      string
	LogLevel  string
	LogFormat string

	DBDriver string // sqlite|mysql
	DBPath   string
	DBDSN    string

	JWTSecret string

	ModelEndpoint string
	ModelTimeout  time.Duration
	ModelWeights  string
	ModelConfig   string
	ThresholdTTL  time.Duration

	CropCatalog string

	ImportBatchSize int
	ImportSeed      uint64
	MaxUploadMB     int64

	CostPerM3      float64
	ConsumptionMin float64
	ConsumptionMax float64

	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string
}

// Load reads .env (when present) and the environment.
func Load() AppConfig {
	if err := godotenv.Load(); err != nil {
		slog.Debug("[cfg] no .env file loaded", "error", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds the config from any key lookup; Load passes os.LookupEnv.
func FromLookup(lookup func(string) (string, bool)) AppConfig {
	get := func(k, def string) string {
		if v, ok := lookup(k); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}
	getInt := func(k string, def int) int {
		if v, err := strconv.Atoi(get(k, "")); err == nil && v > 0 {
			return v
		}
		return def
	}
	getFloat := func(k string, def float64) float64 {
		if v, err := strconv.ParseFloat(get(k, ""), 64); err == nil && v >= 0 {
			return v
		}
		return def
	}
	getDur := func(k string, def time.Duration) time.Duration {
		if v, err := time.ParseDuration(get(k, "")); err == nil && v > 0 {
			return v
		}
		return def
	}

	seed, _ := strconv.ParseUint(get("IMPORT_SEED", "0"), 10, 64)

	cfg := AppConfig{
		Port:      get("PORT", "8080"),
		LogLevel:  get("LOG_LEVEL", "info"),
		LogFormat: get("LOG_FORMAT", "text"),

		DBDriver: strings.ToLower(get("DB_DRIVER", "sqlite")),
		DBPath:   get("DB_PATH", "riego.db"),
		DBDSN:    get("DB_DSN", ""),

		JWTSecret: get("JWT_SECRET", ""),

		ModelEndpoint: get("MODEL_ENDPOINT", ""),
		ModelTimeout:  getDur("MODEL_TIMEOUT", 3*time.Second),
		ModelWeights:  get("MODEL_WEIGHTS", ""),
		ModelConfig:   get("MODEL_CONFIG", "modelo_info.json"),
		ThresholdTTL:  getDur("THRESHOLD_TTL", 5*time.Minute),

		CropCatalog: get("CROP_CATALOG", ""),

		ImportBatchSize: getInt("IMPORT_BATCH_SIZE", 10000),
		ImportSeed:      seed,
		MaxUploadMB:     int64(getInt("MAX_UPLOAD_MB", 512)),

		CostPerM3:      getFloat("COSTO_POR_M3", 5.21),
		ConsumptionMin: getFloat("CONSUMO_MIN_M3", 18000),
		ConsumptionMax: getFloat("CONSUMO_MAX_M3", 20000),

		InfluxURL:    get("INFLUX_URL", ""),
		InfluxToken:  get("INFLUX_TOKEN", ""),
		InfluxOrg:    get("INFLUX_ORG", ""),
		InfluxBucket: get("INFLUX_BUCKET", "lecturas"),
	}
	return cfg
}

// Redacted returns a copy safe to log.
func (c AppConfig) Redacted() AppConfig {
	if c.JWTSecret != "" {
		c.JWTSecret = "***"
	}
	if c.InfluxToken != "" {
		c.InfluxToken = "***"
	}
	if c.DBDSN != "" {
		c.DBDSN = "***"
	}
	return c
}
