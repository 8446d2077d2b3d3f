package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pzc163/ragflow-dev/internal/config"
	"github.com/pzc163/ragflow-dev/internal/element"
	"github.com/pzc163/ragflow-dev/internal/parser"
)

// Tier is one stage in the ordered fallback chain.
type Tier string

const (
	TierPrimary   Tier = "primary"
	TierSecondary Tier = "secondary"
	TierTertiary  Tier = "tertiary"
)

// Outcome classifies how a tier attempt ended.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeTimeout Outcome = "timeout"
	OutcomeError   Outcome = "error"
	OutcomeEmpty   Outcome = "empty"
)

// ParseAttempt is the diagnostic record of one tier attempt. Attempts live
// only for the duration of the job.
type ParseAttempt struct {
	Tier      Tier      `json:"tier"`
	StartedAt time.Time `json:"started_at"`
	Outcome   Outcome   `json:"outcome"`
	Detail    string    `json:"detail,omitempty"`
}

// UnrecoverableParseError is raised only when every tier has failed. It
// carries the full attempt history for diagnostics.
type UnrecoverableParseError struct {
	Attempts []ParseAttempt
}

func (e *UnrecoverableParseError) Error() string {
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = fmt.Sprintf("%s=%s", a.Tier, a.Outcome)
	}
	return "all parse tiers exhausted: " + strings.Join(parts, ", ")
}

// ProgressFunc receives progress updates. A negative fraction means the
// update carries a message only.
type ProgressFunc func(fraction float64, message string)

// FallbackOrchestrator sequences the parse tiers: the conversion gateway,
// then a format-appropriate local structural parser, then plain-text
// extraction. Each tier is attempted at most once per job; the first tier
// producing non-empty content is authoritative.
type FallbackOrchestrator struct {
	primary parser.Parser
	log     *slog.Logger
	stats   *TierStats
}

func NewFallbackOrchestrator(primary parser.Parser, log *slog.Logger, stats *TierStats) *FallbackOrchestrator {
	return &FallbackOrchestrator{primary: primary, log: log, stats: stats}
}

type tierEntry struct {
	tier     Tier
	parser   parser.Parser
	err      error // non-nil when no parser could be constructed
	enabled  bool
	fraction float64
}

// Parse runs the tier chain for one document. It returns the normalized
// text, tables from the winning tier, the attempt history, and an
// UnrecoverableParseError when no tier produced content.
func (f *FallbackOrchestrator) Parse(ctx context.Context, data []byte, filename string, cfg config.Resolved, progress ProgressFunc) (string, []element.TableRecord, []ParseAttempt, error) {
	if progress == nil {
		progress = func(float64, string) {}
	}

	secondary, secondaryErr := parser.ForFile(filename)
	tiers := []tierEntry{
		{tier: TierPrimary, parser: f.primary, enabled: cfg.EnablePrimaryTier, fraction: 0.1},
		{tier: TierSecondary, parser: secondary, err: secondaryErr, enabled: cfg.FallbackEnabled, fraction: 0.2},
		{tier: TierTertiary, parser: &parser.PlainTextParser{}, enabled: cfg.FallbackEnabled, fraction: 0.3},
	}

	var attempts []ParseAttempt
	for _, entry := range tiers {
		if !entry.enabled {
			progress(-1, fmt.Sprintf("%s tier disabled, skipping", entry.tier))
			continue
		}

		progress(entry.fraction, fmt.Sprintf("attempting %s tier", entry.tier))
		started := time.Now()

		var text string
		var tables []element.TableRecord
		err := entry.err
		if err == nil {
			text, tables, err = entry.parser.Parse(ctx, data, filename, cfg)
		}
		elapsed := time.Since(started)

		attempt := ParseAttempt{Tier: entry.tier, StartedAt: started}
		switch {
		case err != nil:
			attempt.Outcome = OutcomeError
			if errors.Is(err, context.DeadlineExceeded) {
				attempt.Outcome = OutcomeTimeout
			}
			attempt.Detail = err.Error()
		case strings.TrimSpace(text) == "":
			attempt.Outcome = OutcomeEmpty
			attempt.Detail = "tier produced no content"
		default:
			attempt.Outcome = OutcomeSuccess
		}
		attempts = append(attempts, attempt)
		if f.stats != nil {
			f.stats.Record(entry.tier, attempt.Outcome, elapsed)
		}

		if attempt.Outcome == OutcomeSuccess {
			progress(entry.fraction+0.1, fmt.Sprintf("%s tier succeeded", entry.tier))
			return text, tables, attempts, nil
		}

		f.log.Warn("parse tier failed",
			"tier", entry.tier,
			"outcome", attempt.Outcome,
			"detail", attempt.Detail,
			"duration_ms", elapsed.Milliseconds(),
		)
		progress(-1, fmt.Sprintf("%s tier failed (%s), falling back", entry.tier, attempt.Outcome))
	}

	return "", nil, attempts, &UnrecoverableParseError{Attempts: attempts}
}
