// Package pipeline drives the scan, dedup, extract, render and publish cycle.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/predb-announcer/internal/dedup"
	"github.com/JakeFAU/predb-announcer/internal/metadata"
	"github.com/JakeFAU/predb-announcer/internal/metrics"
	"github.com/JakeFAU/predb-announcer/internal/release"
)

// Publisher consumes a rendered release.
type Publisher interface {
	Publish(ctx context.Context, record release.Record, artifact release.Artifact) (release.Record, release.Outcome)
}

// Config controls pacing.
type Config struct {
	// ReleaseDelay is observed after every announced release.
	ReleaseDelay time.Duration
	// CycleDelay is observed after every scan.
	CycleDelay time.Duration
	// SinglePass returns after the first announced release or one full scan.
	SinglePass bool
}

// Poller owns the seen-set and caches. Run must not be called concurrently.
type Poller struct {
	catalog   release.Catalog
	dedup     *dedup.Deduplicator
	store     *metadata.Store
	extractor *metadata.Extractor
	renderer  release.Renderer
	publisher Publisher
	notifier  release.Notifier
	clock     release.Clock
	cfg       Config
	sleep     func(context.Context, time.Duration) error
	logger    *zap.Logger

	mu     sync.RWMutex
	status Status
}

// New constructs a Poller.
func New(
	catalog release.Catalog,
	deduplicator *dedup.Deduplicator,
	store *metadata.Store,
	extractor *metadata.Extractor,
	renderer release.Renderer,
	publisher Publisher,
	notifier release.Notifier,
	clock release.Clock,
	cfg Config,
	logger *zap.Logger,
) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		catalog:   catalog,
		dedup:     deduplicator,
		store:     store,
		extractor: extractor,
		renderer:  renderer,
		publisher: publisher,
		notifier:  notifier,
		clock:     clock,
		cfg:       cfg,
		sleep:     sleep,
		logger:    logger.Named("pipeline"),
		status:    Status{Renderer: renderer.Name()},
	}
}

// Run loops until ctx is done, a render fails, or a single pass completes.
// It returns nil on a finished single pass and ctx.Err() on cancellation.
func (p *Poller) Run(ctx context.Context) error {
	p.alert(ctx, release.Alert{Level: release.LevelInfo, Message: "[MLP] Starting Main Loop"})
	for {
		stop, err := p.Cycle(ctx)
		if err != nil {
			return err
		}
		if stop || p.cfg.SinglePass {
			return nil
		}
		if err := p.sleep(ctx, p.cfg.CycleDelay); err != nil {
			return err
		}
	}
}

// Cycle performs one scan and drains every new candidate through the
// pipeline. stop is true when single-pass mode ended the cycle early.
func (p *Poller) Cycle(ctx context.Context) (stop bool, err error) {
	defer metrics.ObserveCycle()

	candidates, err := p.catalog.Scan(ctx)
	if err != nil {
		p.logger.Warn("catalog scan failed", zap.Error(err))
		candidates = nil
	}
	fresh, stats, err := p.dedup.Filter(candidates)
	if err != nil {
		return false, fmt.Errorf("dedup: %w", err)
	}
	observeStats(stats)
	p.logger.Debug("scan complete",
		zap.Int("candidates", len(candidates)),
		zap.Int("new", stats.New),
		zap.Int("seen", stats.Seen),
		zap.Int("bootstrapped", stats.Bootstrapped),
	)
	p.recordCycle()

	for _, candidate := range fresh {
		outcome, err := p.process(ctx, candidate)
		if err != nil {
			return false, err
		}
		p.recordOutcome(candidate.Name, outcome)
		if !outcome.Announced() {
			continue
		}
		if p.cfg.SinglePass {
			return true, nil
		}
		if err := p.sleep(ctx, p.cfg.ReleaseDelay); err != nil {
			return false, err
		}
	}
	return false, nil
}

// process walks one new candidate. Only a render failure is returned as an error.
func (p *Poller) process(ctx context.Context, candidate release.Candidate) (release.Outcome, error) {
	log := p.logger.With(zap.String("release", candidate.Name))
	p.alert(ctx, release.Alert{
		Level:    release.LevelInfo,
		Message:  fmt.Sprintf("[REL] Found new release: %s", candidate.Name),
		Announce: true,
	})

	if !candidate.HasDocument {
		p.alert(ctx, release.Alert{
			Level:    release.LevelWarning,
			Message:  fmt.Sprintf("[REL] Release %s has no NFO", candidate.Name),
			Announce: true,
		})
		return p.finish(skip(release.StageDeduplicated, "no document")), nil
	}

	record, err := p.extractor.Extract(ctx, candidate)
	if err != nil {
		p.reportExtractFailure(ctx, candidate, err)
		return p.finish(skip(release.StageDeduplicated, err.Error())), nil
	}
	log = log.With(zap.String("title_id", record.TitleID))
	log.Info("release extracted", zap.String("stage", string(release.StageExtracted)))

	text, ok := p.store.Document(record.TitleID)
	if !ok {
		return p.finish(skip(release.StageExtracted, "document not cached")), nil
	}
	artifact, err := p.renderer.Render(ctx, text, record.Title)
	if err != nil {
		p.alert(ctx, release.Alert{
			Level:   release.LevelCritical,
			Message: fmt.Sprintf("[NFO] Rendering %s failed: %v", record.Title, err),
		})
		metrics.ObserveRelease(string(release.OutcomeSkipped), string(release.StageExtracted))
		return release.Outcome{}, fmt.Errorf("render %s: %w", record.Title, err)
	}
	log.Info("release rendered",
		zap.String("stage", string(release.StageRendered)),
		zap.Int("width", artifact.Width),
		zap.Int("height", artifact.Height),
	)

	_, outcome := p.publisher.Publish(ctx, record, artifact)
	return p.finish(outcome), nil
}

func (p *Poller) reportExtractFailure(ctx context.Context, candidate release.Candidate, err error) {
	level := release.LevelError
	message := fmt.Sprintf("[DET] Could not load %s: %v", candidate.Name, err)
	switch {
	case errors.Is(err, metadata.ErrNoTitleID):
		level = release.LevelWarning
		message = fmt.Sprintf("[NFO] Could not parse Title ID for %s", candidate.Name)
	case errors.Is(err, metadata.ErrDocumentUnavailable):
		message = fmt.Sprintf("[NFO] Document for %s unavailable: %v", candidate.Name, err)
	case errors.Is(err, metadata.ErrUnexpectedLayout):
		message = fmt.Sprintf("[DET] Unexpected file layout for %s: %v", candidate.Name, err)
	}
	p.alert(ctx, release.Alert{Level: level, Message: message})
}

func (p *Poller) finish(outcome release.Outcome) release.Outcome {
	metrics.ObserveRelease(string(outcome.Status), string(outcome.Stage))
	return outcome
}

func (p *Poller) alert(ctx context.Context, alert release.Alert) {
	if p.notifier != nil {
		p.notifier.Notify(ctx, alert)
	}
}

func observeStats(stats dedup.Stats) {
	metrics.ObserveCandidates("new", stats.New)
	metrics.ObserveCandidates("seen", stats.Seen)
	metrics.ObserveCandidates("bootstrap", stats.Bootstrapped)
}

func skip(stage release.Stage, reason string) release.Outcome {
	return release.Outcome{Status: release.OutcomeSkipped, Stage: stage, Reason: reason}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
