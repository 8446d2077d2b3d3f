package config

import (
	"fmt"
	"log/slog"
	"time"
)

// Resolved is the immutable configuration for one parsing job. It is
// assembled exactly once per job by Resolve and never mutated afterward.
type Resolved struct {
	Endpoint          string
	Timeout           time.Duration
	ParseMethod       string
	EnablePrimaryTier bool
	FallbackEnabled   bool
	ChunkTokenNum     int
	Delimiter         string
	CohesionSlackPct  int
	TransportRetries  int
	ReturnContentList bool
}

// ConfigError reports a required option that is still undefined after the
// merge. It aborts the job before any I/O.
type ConfigError struct {
	Option string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: option %q: %s", e.Option, e.Reason)
}

// Option names recognized by the per-job resolver. Unknown keys in the
// override or job-config maps are ignored with a warning.
var recognizedOptions = map[string]bool{
	"endpoint":            true,
	"timeout":             true,
	"parse_method":        true,
	"enable_primary_tier": true,
	"fallback_enabled":    true,
	"chunk_token_num":     true,
	"delimiter":           true,
	"cohesion_slack_pct":  true,
	"return_content_list": true,
}

// Resolve merges per-call overrides, the per-job configuration object and
// process-wide defaults into one Resolved config. For every recognized
// option the first source (overrides > jobCfg > defaults) that defines it
// wins. Pure over its inputs apart from warning diagnostics for unknown or
// malformed keys.
func Resolve(overrides, jobCfg map[string]any, defaults *Defaults, log *slog.Logger) (Resolved, error) {
	if log == nil {
		log = slog.Default()
	}
	warnUnknown(overrides, "overrides", log)
	warnUnknown(jobCfg, "job config", log)

	r := Resolved{
		Endpoint:          stringOpt("endpoint", overrides, jobCfg, defaults.Endpoint, log),
		ParseMethod:       stringOpt("parse_method", overrides, jobCfg, defaults.ParseMethod, log),
		EnablePrimaryTier: boolOpt("enable_primary_tier", overrides, jobCfg, defaults.EnablePrimaryTier, log),
		FallbackEnabled:   boolOpt("fallback_enabled", overrides, jobCfg, defaults.FallbackEnabled, log),
		ChunkTokenNum:     intOpt("chunk_token_num", overrides, jobCfg, defaults.ChunkTokenNum, log),
		Delimiter:         stringOpt("delimiter", overrides, jobCfg, defaults.Delimiter, log),
		CohesionSlackPct:  intOpt("cohesion_slack_pct", overrides, jobCfg, defaults.CohesionSlackPct, log),
		TransportRetries:  defaults.TransportRetries,
		ReturnContentList: boolOpt("return_content_list", overrides, jobCfg, defaults.ReturnContentList, log),
	}

	if r.Endpoint == "" {
		return Resolved{}, &ConfigError{Option: "endpoint", Reason: "conversion-service endpoint undefined after merging all sources"}
	}

	seconds := intOpt("timeout", overrides, jobCfg, defaults.Timeout, log)
	if seconds < 30 {
		seconds = 30
	}
	if seconds > 3600 {
		seconds = 3600
	}
	r.Timeout = time.Duration(seconds) * time.Second

	switch r.ParseMethod {
	case "auto", "ocr", "txt":
	default:
		log.Warn("unrecognized parse_method, using auto", "value", r.ParseMethod)
		r.ParseMethod = "auto"
	}

	if r.ChunkTokenNum <= 0 {
		r.ChunkTokenNum = 128
	}
	if r.Delimiter == "" {
		r.Delimiter = DefaultDelimiter
	}
	if r.CohesionSlackPct < 0 {
		r.CohesionSlackPct = 0
	}
	if r.CohesionSlackPct > 50 {
		log.Warn("cohesion_slack_pct above bound, clamping", "value", r.CohesionSlackPct)
		r.CohesionSlackPct = 50
	}
	if r.TransportRetries <= 0 {
		r.TransportRetries = 3
	}
	return r, nil
}

func warnUnknown(src map[string]any, name string, log *slog.Logger) {
	for k := range src {
		if !recognizedOptions[k] {
			log.Warn("ignoring unknown config option", "source", name, "option", k)
		}
	}
}

func lookup(key string, overrides, jobCfg map[string]any) (any, bool) {
	if v, ok := overrides[key]; ok {
		return v, true
	}
	if v, ok := jobCfg[key]; ok {
		return v, true
	}
	return nil, false
}

func stringOpt(key string, overrides, jobCfg map[string]any, fallback string, log *slog.Logger) string {
	v, ok := lookup(key, overrides, jobCfg)
	if !ok {
		return fallback
	}
	s, ok := v.(string)
	if !ok {
		log.Warn("config option has wrong type, using default", "option", key)
		return fallback
	}
	return s
}

func intOpt(key string, overrides, jobCfg map[string]any, fallback int, log *slog.Logger) int {
	v, ok := lookup(key, overrides, jobCfg)
	if !ok {
		return fallback
	}
	// JSON-decoded job configs deliver numbers as float64.
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		log.Warn("config option has wrong type, using default", "option", key)
		return fallback
	}
}

func boolOpt(key string, overrides, jobCfg map[string]any, fallback bool, log *slog.Logger) bool {
	v, ok := lookup(key, overrides, jobCfg)
	if !ok {
		return fallback
	}
	b, ok := v.(bool)
	if !ok {
		log.Warn("config option has wrong type, using default", "option", key)
		return fallback
	}
	return b
}
