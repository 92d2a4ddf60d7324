// Package pipeline implements the two-stage venue vibe classification:
// a cheap full-evidence pass, a deterministic escalation gate, an optional
// high-resolution refinement pass, and a strict merge into a validated,
// cached profile.
package pipeline

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/time/rate"

	"github.com/crowdsense/vibesense/internal/config"
	"github.com/crowdsense/vibesense/internal/model"
	"github.com/crowdsense/vibesense/internal/store"
	"github.com/crowdsense/vibesense/internal/taxonomy"
	"github.com/crowdsense/vibesense/pkg/anthropic"
)

// Result kinds recorded per venue outcome.
const (
	ResultCached     = "cached"
	ResultNoPhotos   = "no_photos"
	ResultClassified = "classified"
	ResultError      = "error"
)

// Metrics receives per-venue classification events. All methods must be
// safe for concurrent use. A nil Metrics disables recording.
type Metrics interface {
	RecordResult(kind string)
	RecordStageBTrigger(reason string)
	ObserveConfidence(v float64)
}

// Classifier orchestrates the two-stage classification pipeline.
type Classifier struct {
	store   store.Store
	client  anthropic.Client
	reg     *taxonomy.Registry
	gate    *Gate
	aiCfg   config.AnthropicConfig
	vibeCfg config.VibeConfig
	metrics Metrics
}

// NewClassifier wires the pipeline together. metrics may be nil.
func NewClassifier(st store.Store, client anthropic.Client, reg *taxonomy.Registry, aiCfg config.AnthropicConfig, vibeCfg config.VibeConfig, metrics Metrics) *Classifier {
	return &Classifier{
		store:   st,
		client:  client,
		reg:     reg,
		gate:    NewGate(vibeCfg.EscalationThreshold, vibeCfg.PhotoPrimaryCategories, reg),
		aiCfg:   aiCfg,
		vibeCfg: vibeCfg,
		metrics: metrics,
	}
}

// ClassifyVenue classifies a single venue from its cached evidence.
//
// Returns the existing profile without any inference when one is cached and
// force is false. Returns (nil, nil) when the venue has no photos or Stage A
// produced nothing usable; a non-nil error is reserved for store failures.
func (c *Classifier) ClassifyVenue(ctx context.Context, venueID string, force bool) (*model.VibeProfile, error) {
	if !force {
		existing, err := c.store.GetVibeProfile(ctx, venueID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			zap.L().Debug("classifier: already classified", zap.String("venue_id", venueID))
			c.recordResult(ResultCached)
			return existing, nil
		}
	}

	bundle, err := GatherEvidence(ctx, c.store, venueID, c.vibeCfg)
	if err != nil {
		return nil, err
	}
	if bundle == nil {
		c.recordResult(ResultNoPhotos)
		return nil, nil
	}

	zap.L().Info("classifier: stage A",
		zap.String("venue_id", venueID),
		zap.String("venue_name", bundle.Venue.Name),
		zap.Int("photos", len(bundle.PhotoURLs)),
		zap.Strings("data_sources", bundle.DataSources),
	)

	stageA := RunStageA(ctx, c.client, c.aiCfg, c.reg, bundle, c.vibeCfg.MaxTextSnippets)
	if stageA == nil {
		zap.L().Warn("classifier: stage A returned nothing usable", zap.String("venue_id", venueID))
		c.recordResult(ResultError)
		return nil, nil
	}

	decision := c.gate.Decide(stageA)
	var refinement *model.Refinement
	if decision.Escalate {
		for _, reason := range decision.Reasons {
			c.recordStageBTrigger(reason)
		}
		zap.L().Info("classifier: stage B triggered",
			zap.String("venue_id", venueID),
			zap.Strings("uncertain", decision.Uncertain),
			zap.Strings("reasons", decision.Reasons),
		)
		refinement = RunStageB(ctx, c.client, c.aiCfg, c.reg, bundle, stageA, decision.Uncertain, c.vibeCfg.StageBPhotoCount, c.vibeCfg.MaxTextSnippets)
	}

	merged := Merge(stageA, refinement, decision.Uncertain)
	profile := BuildProfile(merged, bundle, decision, c.reg, c.aiCfg.StageAModel, c.aiCfg.StageBModel)

	if err := c.store.SetVibeProfile(ctx, profile); err != nil {
		return nil, err
	}

	c.recordResult(ResultClassified)
	c.observeConfidence(profile.OverallConfidence)

	zap.L().Info("classifier: classified",
		zap.String("venue_id", venueID),
		zap.Float64("confidence", profile.OverallConfidence),
		zap.Strings("top_vibes", profile.TopVibes),
		zap.Bool("stage_b", profile.StageBTriggered),
	)

	return profile, nil
}

// ClassifyAll classifies every venue that has photos but no profile yet,
// priority venues first, up to the configured limit, pacing requests with a
// rate limiter. Per-venue failures are logged and skipped; the batch
// continues. Returns the number of venues successfully classified.
func (c *Classifier) ClassifyAll(ctx context.Context) (int, error) {
	allIDs, err := c.store.ListVenueIDs(ctx)
	if err != nil {
		return 0, err
	}
	withPhotos, err := c.store.ListVenueIDsWithPhotos(ctx)
	if err != nil {
		return 0, err
	}
	withProfiles, err := c.store.ListVenueIDsWithProfiles(ctx)
	if err != nil {
		return 0, err
	}

	photoSet := toSet(withPhotos)
	profileSet := toSet(withProfiles)

	var pending []string
	for _, id := range allIDs {
		if _, ok := photoSet[id]; !ok {
			continue
		}
		if _, ok := profileSet[id]; ok {
			continue
		}
		pending = append(pending, id)
	}

	if len(c.vibeCfg.PriorityVenues) > 0 {
		pending, err = c.reorderPriority(ctx, pending)
		if err != nil {
			return 0, err
		}
	}

	if c.vibeCfg.Limit > 0 && len(pending) > c.vibeCfg.Limit {
		pending = pending[:c.vibeCfg.Limit]
	}

	zap.L().Info("classifier: batch start",
		zap.Int("pending", len(pending)),
		zap.Int("total", len(allIDs)),
		zap.Int("with_photos", len(withPhotos)),
		zap.Int("already_classified", len(withProfiles)),
	)
	if len(pending) == 0 {
		return 0, nil
	}

	limiter := rate.NewLimiter(rate.Every(c.vibeCfg.RequestDelay), 1)
	successful := 0
	for _, venueID := range pending {
		if err := limiter.Wait(ctx); err != nil {
			return successful, err
		}
		profile, err := c.ClassifyVenue(ctx, venueID, false)
		if err != nil {
			zap.L().Error("classifier: venue failed",
				zap.String("venue_id", venueID),
				zap.Error(err),
			)
			c.recordResult(ResultError)
			continue
		}
		if profile != nil {
			successful++
		}
	}

	zap.L().Info("classifier: batch complete",
		zap.Int("classified", successful),
		zap.Int("attempted", len(pending)),
	)
	return successful, nil
}

// reorderPriority moves venues whose name matches a configured priority
// name (case-folded comparison) to the front, keeping relative order within
// each group.
func (c *Classifier) reorderPriority(ctx context.Context, ids []string) ([]string, error) {
	folder := cases.Fold()
	prioritySet := make(map[string]struct{}, len(c.vibeCfg.PriorityVenues))
	for _, name := range c.vibeCfg.PriorityVenues {
		prioritySet[folder.String(name)] = struct{}{}
	}

	var priority, rest []string
	for _, id := range ids {
		venue, err := c.store.GetVenue(ctx, id)
		if err != nil {
			return nil, err
		}
		name := ""
		if venue != nil {
			name = folder.String(venue.Name)
		}
		if _, ok := prioritySet[name]; ok {
			priority = append(priority, id)
		} else {
			rest = append(rest, id)
		}
	}
	if len(priority) > 0 {
		zap.L().Info("classifier: priority venues matched",
			zap.Int("matched", len(priority)),
			zap.Int("configured", len(c.vibeCfg.PriorityVenues)),
		)
	}
	return append(priority, rest...), nil
}

func (c *Classifier) recordResult(kind string) {
	if c.metrics != nil {
		c.metrics.RecordResult(kind)
	}
}

func (c *Classifier) recordStageBTrigger(reason string) {
	if c.metrics != nil {
		c.metrics.RecordStageBTrigger(reason)
	}
}

func (c *Classifier) observeConfidence(v float64) {
	if c.metrics != nil {
		c.metrics.ObserveConfidence(v)
	}
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}
