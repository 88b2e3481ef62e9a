package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// DefaultMaxInFlight bounds concurrent object store requests.
const DefaultMaxInFlight = 1000

// Config holds all service settings, populated from environment variables.
type Config struct {
	// Object store. LocalDir, when set, replaces the S3 bucket with a
	// directory mirror of it.
	Bucket        string
	Prefix        string
	LocalDir      string
	AWSRegion     string
	SkipSignature bool
	// S3Endpoint and the static keys target S3-compatible stores.
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	Extension         string

	MaxInFlight     int
	ParseIndexFiles bool
	FetchCacheSize  int
	// RefreshInterval is the pause between aggregations. Zero runs once.
	RefreshInterval time.Duration

	// GRIB2 parameter tables (GDAL CSV directory). Optional.
	TablesDir string

	KafkaEnabled   bool
	KafkaBrokers   []string
	KafkaSinkTopic string
	BatchSize      int

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	maxInFlight, err := parsePositiveInt("CATALOG_MAX_IN_FLIGHT", DefaultMaxInFlight)
	if err != nil {
		return nil, err
	}

	cacheSize, err := parsePositiveInt("CATALOG_FETCH_CACHE_SIZE", 256)
	if err != nil {
		return nil, err
	}

	refreshInterval, err := parseDuration("CATALOG_REFRESH_INTERVAL", time.Hour)
	if err != nil {
		return nil, err
	}

	skipSignature, err := parseBool("S3_SKIP_SIGNATURE", true)
	if err != nil {
		return nil, err
	}
	parseIndexFiles, err := parseBool("CATALOG_PARSE_INDEX_FILES", false)
	if err != nil {
		return nil, err
	}
	kafkaEnabled, err := parseBool("KAFKA_ENABLED", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Bucket:            sharedcfg.EnvOrDefault("CATALOG_BUCKET", "noaa-gefs-pds"),
		Prefix:            os.Getenv("CATALOG_PREFIX"),
		LocalDir:          os.Getenv("CATALOG_LOCAL_DIR"),
		AWSRegion:         sharedcfg.EnvOrDefault("AWS_REGION", "us-east-1"),
		SkipSignature:     skipSignature,
		S3Endpoint:        os.Getenv("S3_ENDPOINT"),
		S3AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
		S3SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		Extension:         sharedcfg.EnvOrDefault("CATALOG_EXTENSION", ".idx"),
		MaxInFlight:       maxInFlight,
		ParseIndexFiles:   parseIndexFiles,
		FetchCacheSize:    cacheSize,
		RefreshInterval:   refreshInterval,
		TablesDir:         os.Getenv("GRIB_TABLES_DIR"),
		KafkaEnabled:      kafkaEnabled,
		KafkaBrokers:      sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic:    sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "grib-catalog-entries"),
		BatchSize:         batchSize,
		HTTPAddr:          sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:          sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:         sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:   shutdownTimeout,
	}

	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if cfg.KafkaSinkTopic == "" {
			return nil, errors.New("KAFKA_SINK_TOPIC is required when KAFKA_ENABLED is true")
		}
	}

	return cfg, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func parseDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s: must be a non-negative duration", key)
	}
	return d, nil
}
