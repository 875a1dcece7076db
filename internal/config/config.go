package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	SourceJSON     = "json"
	SourcePostgres = "postgres"
	SourceSQLite   = "sqlite"
)

type Config struct {
	DatasetSource string `validate:"oneof=json postgres sqlite"`
	DataDir       string `validate:"required_if=DatasetSource json"`
	DatabaseURL   string `validate:"required_if=DatasetSource postgres"`
	City          string
	SQLitePath    string `validate:"required_if=DatasetSource sqlite"`

	HTTPAddr    string `validate:"required"`
	CORSOrigins []string

	NATSURL           string `validate:"omitempty,url"`
	NATSSubjectPrefix string `validate:"required"`
	LocationSubject   string
	LocationTimeout   time.Duration `validate:"gt=0"`
	LogNATSSubjects   bool

	SessionTTL     time.Duration `validate:"gt=0"`
	SuggestLimit   int           `validate:"gte=1,lte=6"`
	ConflictPolicy string        `validate:"oneof=stop-wins route-wins"`

	MetricsAddr string
}

// fileConfig is the optional YAML file named by CONFIG_FILE. Environment
// variables override anything set here.
type fileConfig struct {
	Dataset struct {
		Source     string `yaml:"source"`
		DataDir    string `yaml:"dataDir"`
		URL        string `yaml:"databaseURL"`
		City       string `yaml:"city"`
		SQLitePath string `yaml:"sqlitePath"`
	} `yaml:"dataset"`
	Server struct {
		Addr        string   `yaml:"addr"`
		CORSOrigins []string `yaml:"corsOrigins"`
		MetricsAddr string   `yaml:"metricsAddr"`
	} `yaml:"server"`
	NATS struct {
		URL               string `yaml:"url"`
		SubjectPrefix     string `yaml:"subjectPrefix"`
		LocationSubject   string `yaml:"locationSubject"`
		LocationTimeoutMS int    `yaml:"locationTimeoutMS"`
		LogSubjects       bool   `yaml:"logSubjects"`
	} `yaml:"nats"`
	Search struct {
		SuggestLimit      int    `yaml:"suggestLimit"`
		ConflictPolicy    string `yaml:"conflictPolicy"`
		SessionTTLMinutes int    `yaml:"sessionTTLMinutes"`
	} `yaml:"search"`
}

func defaults() *Config {
	return &Config{
		DatasetSource:     SourceJSON,
		DataDir:           "data",
		HTTPAddr:          ":8080",
		CORSOrigins:       []string{"http://localhost:5173"},
		NATSSubjectPrefix: "finder",
		LocationTimeout:   5 * time.Second,
		SessionTTL:        30 * time.Minute,
		SuggestLimit:      6,
		ConflictPolicy:    "stop-wins",
	}
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if v := os.Getenv("DATASET_SOURCE"); v != "" {
		cfg.DatasetSource = strings.ToLower(strings.TrimSpace(v))
	}
	cfg.DataDir = getenvDefault("DATA_DIR", cfg.DataDir)
	cfg.SQLitePath = getenvDefault("SQLITE_PATH", cfg.SQLitePath)
	cfg.City = firstNonEmpty(os.Getenv("CITY"), os.Getenv("CITY_NAME"), cfg.City)

	// Database URL: prefer DATABASE_URL / PG_DSN, else build from PG* vars
	if dsn := firstNonEmpty(os.Getenv("DATABASE_URL"), os.Getenv("PG_DSN")); dsn != "" {
		cfg.DatabaseURL = dsn
	} else if cfg.DatabaseURL == "" && cfg.DatasetSource == SourcePostgres {
		dsn, err := dsnFromPGEnv(cfg.City)
		if err != nil {
			return nil, err
		}
		cfg.DatabaseURL = dsn
	}

	cfg.HTTPAddr = getenvDefault("HTTP_ADDR", cfg.HTTPAddr)
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitList(v)
	}

	// NATS is optional; an empty URL disables map events and device location requests.
	cfg.NATSURL = getenvDefault("NATS_URL", cfg.NATSURL)
	cfg.NATSSubjectPrefix = getenvDefault("NATS_SUBJECT_PREFIX", cfg.NATSSubjectPrefix)
	cfg.LocationSubject = getenvDefault("LOCATION_SUBJECT", cfg.LocationSubject)

	if v := os.Getenv("LOCATION_TIMEOUT_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return nil, fmt.Errorf("invalid LOCATION_TIMEOUT_MS: %q", v)
		}
		cfg.LocationTimeout = time.Duration(ms) * time.Millisecond
	}

	if v := os.Getenv("SESSION_TTL_MIN"); v != "" {
		min, err := strconv.Atoi(v)
		if err != nil || min <= 0 {
			return nil, fmt.Errorf("invalid SESSION_TTL_MIN: %q", v)
		}
		cfg.SessionTTL = time.Duration(min) * time.Minute
	}

	if v := os.Getenv("SUGGEST_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SUGGEST_LIMIT: %q", v)
		}
		cfg.SuggestLimit = n
	}

	if v := os.Getenv("CONFLICT_POLICY"); v != "" {
		cfg.ConflictPolicy = strings.ToLower(strings.TrimSpace(v))
	}

	// Debug logging for NATS publish subjects
	if v := os.Getenv("LOG_NATS_SUBJECTS"); v != "" {
		cfg.LogNATSSubjects = parseBool(v)
	}

	// Metrics listen address (e.g., ":9102"). Empty disables the metrics server.
	cfg.MetricsAddr = getenvDefault("METRICS_ADDR", cfg.MetricsAddr)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (cfg *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.DatasetSource, strings.ToLower(fc.Dataset.Source))
	set(&cfg.DataDir, fc.Dataset.DataDir)
	set(&cfg.DatabaseURL, fc.Dataset.URL)
	set(&cfg.City, fc.Dataset.City)
	set(&cfg.SQLitePath, fc.Dataset.SQLitePath)
	set(&cfg.HTTPAddr, fc.Server.Addr)
	set(&cfg.MetricsAddr, fc.Server.MetricsAddr)
	if len(fc.Server.CORSOrigins) > 0 {
		cfg.CORSOrigins = fc.Server.CORSOrigins
	}
	set(&cfg.NATSURL, fc.NATS.URL)
	set(&cfg.NATSSubjectPrefix, fc.NATS.SubjectPrefix)
	set(&cfg.LocationSubject, fc.NATS.LocationSubject)
	if fc.NATS.LocationTimeoutMS > 0 {
		cfg.LocationTimeout = time.Duration(fc.NATS.LocationTimeoutMS) * time.Millisecond
	}
	cfg.LogNATSSubjects = cfg.LogNATSSubjects || fc.NATS.LogSubjects
	if fc.Search.SuggestLimit != 0 {
		cfg.SuggestLimit = fc.Search.SuggestLimit
	}
	set(&cfg.ConflictPolicy, strings.ToLower(fc.Search.ConflictPolicy))
	if fc.Search.SessionTTLMinutes > 0 {
		cfg.SessionTTL = time.Duration(fc.Search.SessionTTLMinutes) * time.Minute
	}
	return nil
}

func dsnFromPGEnv(city string) (string, error) {
	host := getenvDefault("PGHOST", "127.0.0.1")
	port := getenvDefault("PGPORT", "5432")
	user := getenvDefault("PGUSER", "postgres")
	pass := os.Getenv("PGPASSWORD")
	db := os.Getenv("PGDATABASE")
	// If CITY is provided, default base DB to 'postgres' when PGDATABASE is not set.
	if db == "" && city != "" {
		db = "postgres"
	}
	if db == "" {
		return "", fmt.Errorf("PGDATABASE or DATABASE_URL must be set (set PGDATABASE=postgres when using CITY)")
	}
	sslmode := getenvDefault("PGSSLMODE", "disable")
	if pass != "" {
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", urlEscape(user), urlEscape(pass), host, port, db, sslmode), nil
	}
	return fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", urlEscape(user), host, port, db, sslmode), nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func urlEscape(s string) string {
	// Minimal escape for DSN user/pass with special chars
	r := strings.NewReplacer("@", "%40", ":", "%3A", "/", "%2F", "?", "%3F", "#", "%23")
	return r.Replace(s)
}
