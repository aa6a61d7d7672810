package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/Dacosmicgiant/alatem-sos/models"
)

type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Forecast ForecastConfig
	CORS     CORSConfig
}

type ServerConfig struct {
	Port int
}

// StorageConfig selects the persistence backend once at startup. Backend
// is either "postgres" or "flatfile"; DataDir only applies to flatfile.
type StorageConfig struct {
	Backend string
	DataDir string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

func (d DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// RedisConfig points at the alert broadcast channel. An empty URL disables
// publishing; the forecaster then runs storage-only.
type RedisConfig struct {
	URL          string
	AlertChannel string
}

type ForecastConfig struct {
	ScanIntervalSec int
	DaysAhead       int
	ModelPath       string
	TrainSeed       int64
}

type CORSConfig struct {
	AllowedOrigins string
}

func LoadConfig() (*Config, error) {
	serverPort, err := getIntEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	dbPort, err := getIntEnv("DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	scanInterval, err := getIntEnv("SCAN_INTERVAL_SEC", 3600)
	if err != nil {
		return nil, fmt.Errorf("invalid SCAN_INTERVAL_SEC: %w", err)
	}

	daysAhead, err := getIntEnv("FORECAST_DAYS_AHEAD", 7)
	if err != nil {
		return nil, fmt.Errorf("invalid FORECAST_DAYS_AHEAD: %w", err)
	}

	trainSeed, err := getIntEnv("TRAIN_SEED", 42)
	if err != nil {
		return nil, fmt.Errorf("invalid TRAIN_SEED: %w", err)
	}

	backend := getEnv("STORAGE_BACKEND", "flatfile")
	if backend != "postgres" && backend != "flatfile" {
		return nil, fmt.Errorf("invalid STORAGE_BACKEND %q: must be postgres or flatfile", backend)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: serverPort,
		},
		Storage: StorageConfig{
			Backend: backend,
			DataDir: getEnv("DATA_DIR", "data"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "alatem"),
			Password: getEnv("DB_PASSWORD", "alatem_dev_password"),
			Name:     getEnv("DB_NAME", "alatem"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:          getEnv("REDIS_URL", ""),
			AlertChannel: getEnv("ALERT_CHANNEL", "alatem:alerts"),
		},
		Forecast: ForecastConfig{
			ScanIntervalSec: scanInterval,
			DaysAhead:       daysAhead,
			ModelPath:       getEnv("MODEL_PATH", "ml_models/outbreak_model.json"),
			TrainSeed:       int64(trainSeed),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
	}

	return cfg, nil
}

// HaitiAreas maps each geographic zone code to its population estimate and
// baseline risk factor.
var HaitiAreas = map[string]models.AreaInfo{
	"CITE_SOLEIL":        {Population: 300000, RiskFactor: 0.9},
	"DELMAS":             {Population: 500000, RiskFactor: 0.6},
	"TABARRE":            {Population: 250000, RiskFactor: 0.4},
	"MARTISSANT":         {Population: 200000, RiskFactor: 0.8},
	"CARREFOUR":          {Population: 450000, RiskFactor: 0.7},
	"PETIONVILLE":        {Population: 350000, RiskFactor: 0.3},
	"CROIX_DES_BOUQUETS": {Population: 180000, RiskFactor: 0.5},
	"PORT_AU_PRINCE":     {Population: 1200000, RiskFactor: 0.8},
}

// HealthConditions lists the tracked condition codes.
var HealthConditions = []string{
	"cholera",
	"malnutrition",
	"fever",
	"diarrhea",
	"respiratory",
}

// OutbreakThresholds gives, per condition, the daily case count at which a
// report counts as an outbreak for training labels.
var OutbreakThresholds = map[string]int{
	"cholera":      15,
	"malnutrition": 25,
	"fever":        40,
	"diarrhea":     30,
	"respiratory":  20,
}

// AreaCodes returns the zone codes in a stable order.
func AreaCodes() []string {
	codes := make([]string, 0, len(HaitiAreas))
	for code := range HaitiAreas {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getIntEnv(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}
