package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// DefaultDelimiter is the sentence-ending punctuation set used when no
// delimiter is configured for a job.
const DefaultDelimiter = "\n.!?。；！？"

// Defaults holds the process-wide configuration, read once from the
// environment at startup and passed by reference into per-job resolution.
type Defaults struct {
	Port   string `env:"PORT" envDefault:"8090"`
	APIKey string `env:"RAGFLOW_API_KEY"`

	// Conversion service
	Endpoint    string `env:"MINERU_ENDPOINT"`
	Timeout     int    `env:"MINERU_TIMEOUT" envDefault:"600"` // seconds
	ParseMethod string `env:"MINERU_PARSE_METHOD" envDefault:"auto"`

	// Fallback tiers
	EnablePrimaryTier bool `env:"ENABLE_PRIMARY_TIER" envDefault:"true"`
	FallbackEnabled   bool `env:"FALLBACK_ENABLED" envDefault:"true"`

	// Chunking
	ChunkTokenNum    int    `env:"CHUNK_TOKEN_NUM" envDefault:"128"`
	Delimiter        string `env:"CHUNK_DELIMITER"`
	CohesionSlackPct int    `env:"COHESION_SLACK_PCT" envDefault:"10"`

	// Transport
	TransportRetries  int `env:"TRANSPORT_RETRIES" envDefault:"3"`
	ReturnContentList bool `env:"RETURN_CONTENT_LIST" envDefault:"true"`

	// Worker pool
	WorkerCount  int `env:"WORKER_COUNT" envDefault:"4"`
	MaxQueueSize int `env:"MAX_QUEUE_SIZE" envDefault:"100"`

	// Upload limits
	MaxUploadBytes int64 `env:"MAX_UPLOAD_BYTES" envDefault:"104857600"` // 100MB

	// Job state
	JobTTL time.Duration `env:"JOB_TTL" envDefault:"1h"`

	// Health probe cache
	HealthCacheTTL time.Duration `env:"HEALTH_CACHE_TTL" envDefault:"30s"`
}

// Load reads process defaults from the environment.
func Load() (Defaults, error) {
	var d Defaults
	if err := env.Parse(&d); err != nil {
		return Defaults{}, err
	}
	if d.Delimiter == "" {
		d.Delimiter = DefaultDelimiter
	}
	if d.WorkerCount <= 0 {
		d.WorkerCount = 4
	}
	if d.MaxQueueSize <= 0 {
		d.MaxQueueSize = 100
	}
	if d.MaxUploadBytes <= 0 {
		d.MaxUploadBytes = 104857600
	}
	if d.JobTTL <= 0 {
		d.JobTTL = time.Hour
	}
	if d.HealthCacheTTL <= 0 {
		d.HealthCacheTTL = 30 * time.Second
	}
	return d, nil
}
