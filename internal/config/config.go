package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	VariantExtended = "extended"
	VariantBasic    = "basic"

	StoreFirestore = "firestore"
	StoreSQLite    = "sqlite"
	StoreNone      = "none"
)

type Config struct {
	Port     string
	GinMode  string
	LogLevel string
	LogJSON  bool

	ModelBucket       string
	ModelObject       string
	ModelPath         string
	ModelMetadataPath string
	ONNXLibraryPath   string
	InputScale        float64

	UploadEnabled bool
	UploadBucket  string
	UploadFolder  string

	StoreBackend        string
	FirestoreProjectID  string
	FirestoreCollection string
	SQLitePath          string

	PredictVariant string
	FetchTimeout   time.Duration
	MaxUploadBytes int64
	CORSOrigins    []string
}

// Load reads an optional .env file from the working directory and then the
// process environment. Values already set in the environment win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:     getEnv("PORT", "8080"),
		GinMode:  getEnv("GIN_MODE", "release"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogJSON:  strings.EqualFold(getEnv("LOG_FORMAT", "text"), "json"),

		ModelBucket:       getEnv("MODEL_BUCKET", "model-ecosnap"),
		ModelObject:       getEnv("MODEL_OBJECT", "model2.onnx"),
		ModelPath:         getEnv("MODEL_PATH", filepath.Join("tmp", "model.onnx")),
		ModelMetadataPath: getEnv("MODEL_METADATA_PATH", ""),
		ONNXLibraryPath:   getEnv("ONNX_LIBRARY_PATH", ""),
		InputScale:        getEnvAsFloat("INPUT_SCALE", 1.0),

		UploadEnabled: getEnvAsBool("UPLOAD_ENABLED", true),
		UploadBucket:  getEnv("UPLOAD_BUCKET", "ecosnap"),
		UploadFolder:  getEnv("UPLOAD_FOLDER", "uploads"),

		StoreBackend:        strings.ToLower(getEnv("STORE_BACKEND", StoreFirestore)),
		FirestoreProjectID:  getEnv("FIRESTORE_PROJECT_ID", ""),
		FirestoreCollection: getEnv("FIRESTORE_COLLECTION", "predictions"),
		SQLitePath:          getEnv("SQLITE_PATH", filepath.Join("data", "predictions.db")),

		PredictVariant: strings.ToLower(getEnv("PREDICT_VARIANT", VariantExtended)),
		FetchTimeout:   getEnvAsDuration("FETCH_TIMEOUT", 0),
		MaxUploadBytes: getEnvAsInt64("MAX_UPLOAD_BYTES", 10<<20),
		CORSOrigins:    getEnvAsList("CORS_ORIGINS", []string{"*"}),
	}
}

// Extended reports whether /predict accepts URL input and persists results.
func (c *Config) Extended() bool {
	return c.PredictVariant != VariantBasic
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil && intValue > 0 {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil && f > 0 {
			return f
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d >= 0 {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
