package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers          []string
	PredictionEventsTopic string

	// Risk engine
	ModelVersion    string
	RiskNoiseSigma  float64
	BatchMaxWorkers int

	// Clinical knowledge tables (optional yaml override)
	KnowledgeConfigPath string

	// Trained model artifacts (empty: rule scorer only)
	ModelArtifactDir string
	ModelName        string

	// Online feature cache
	FeatureCacheTTL    time.Duration
	FeatureCachePrefix string
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 4*1024*1024)),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "vitalsight"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "vitalsight123"),
		PostgresDB:       getEnv("POSTGRES_DB", "vitalsight"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:          getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		PredictionEventsTopic: getEnv("PREDICTION_EVENTS_TOPIC", "vitalsight.predictions"),

		ModelVersion:    getEnv("MODEL_VERSION", "1.0.0"),
		RiskNoiseSigma:  getFloatEnv("RISK_NOISE_SIGMA", 0.05),
		BatchMaxWorkers: getIntEnv("BATCH_MAX_WORKERS", 4),

		KnowledgeConfigPath: getEnv("KNOWLEDGE_CONFIG_PATH", ""),

		ModelArtifactDir: getEnv("MODEL_ARTIFACT_DIR", ""),
		ModelName:        getEnv("MODEL_NAME", "risk-deterioration"),

		FeatureCacheTTL:    getDuration("FEATURE_CACHE_TTL", 5*time.Minute),
		FeatureCachePrefix: getEnv("FEATURE_CACHE_PREFIX", "features"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return []string{value}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
