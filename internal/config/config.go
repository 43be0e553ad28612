package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Cfg holds runtime configuration for both the api and worker binaries,
// loaded from environment variables.
type Cfg struct {
	PostgresDSN string // POSTGRES_DSN (required)
	RedisAddr   string // REDIS_ADDR (required)

	QueueKey      string // REDIS_QUEUE_KEY
	ProcessingKey string // REDIS_PROCESSING_KEY

	ListenAddr string // ":" + PORT
	Workers    int    // WORKERS

	// NERModels maps a language tag to its model sidecar base URL.
	// NER_MODELS=el=http://ner-el:8001;en=http://ner-en:8001
	NERModels map[string]string

	// DefaultLanguage is used when a submission carries no language tag.
	DefaultLanguage string // DEFAULT_LANGUAGE

	MaxTextBytes    int           // MAX_TEXT_BYTES, submission size cap
	DetectorTimeout time.Duration // DETECTOR_TIMEOUT, per-job detector budget
	JobLease        time.Duration // JOB_LEASE, claim age before recovery kicks in
	JobTTL          time.Duration // JOB_TTL, 0 disables retention sweep
}

// Load reads .env (if present) then environment variables and returns Cfg.
func Load() (*Cfg, error) {
	// Best-effort: load .env from current directory
	_ = godotenv.Load()

	pgDSN := strings.TrimSpace(os.Getenv("POSTGRES_DSN"))
	if pgDSN == "" {
		return nil, fmt.Errorf("missing env: POSTGRES_DSN")
	}
	redisAddr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if redisAddr == "" {
		return nil, fmt.Errorf("missing env: REDIS_ADDR")
	}

	queueKey := envOr("REDIS_QUEUE_KEY", "anonymize:queue")
	processingKey := envOr("REDIS_PROCESSING_KEY", queueKey+":processing")

	port := envOr("PORT", "3000")

	models, err := parseModels(envOr("NER_MODELS", "el=http://localhost:8001"))
	if err != nil {
		return nil, err
	}

	defaultLanguage := envOr("DEFAULT_LANGUAGE", "el")
	if _, ok := models[defaultLanguage]; !ok {
		return nil, fmt.Errorf("DEFAULT_LANGUAGE %q has no model in NER_MODELS", defaultLanguage)
	}

	detectorTimeout := envDurationOr("DETECTOR_TIMEOUT", 30*time.Second)
	jobLease := envDurationOr("JOB_LEASE", 4*detectorTimeout)
	if jobLease <= detectorTimeout {
		return nil, fmt.Errorf("JOB_LEASE %s must exceed DETECTOR_TIMEOUT %s", jobLease, detectorTimeout)
	}

	return &Cfg{
		PostgresDSN:     pgDSN,
		RedisAddr:       redisAddr,
		QueueKey:        queueKey,
		ProcessingKey:   processingKey,
		ListenAddr:      ":" + port,
		Workers:         envIntOr("WORKERS", 4),
		NERModels:       models,
		DefaultLanguage: defaultLanguage,
		MaxTextBytes:    envIntOr("MAX_TEXT_BYTES", 100_000),
		DetectorTimeout: detectorTimeout,
		JobLease:        jobLease,
		JobTTL:          envDurationOr("JOB_TTL", 0),
	}, nil
}

// parseModels parses "el=http://ner-el:8001;en=http://ner-en:8001".
func parseModels(raw string) (map[string]string, error) {
	models := make(map[string]string)
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idx := strings.Index(part, "=")
		if idx <= 0 || idx == len(part)-1 {
			return nil, fmt.Errorf("NER_MODELS entry %q is not lang=url", part)
		}
		lang := strings.TrimSpace(part[:idx])
		url := strings.TrimRight(strings.TrimSpace(part[idx+1:]), "/")
		models[lang] = url
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("NER_MODELS contains no valid entries")
	}
	return models, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envIntOr(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func envDurationOr(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
