package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/crowdsense/vibesense/internal/monitoring"
	"github.com/crowdsense/vibesense/internal/pipeline"
	"github.com/crowdsense/vibesense/internal/store"
	"github.com/crowdsense/vibesense/internal/taxonomy"
	anthropicpkg "github.com/crowdsense/vibesense/pkg/anthropic"
)

// pipelineEnv holds the store, metrics collector, and classifier needed by
// the classify/batch/serve commands.
type pipelineEnv struct {
	Store      store.Store
	Collector  *monitoring.Collector
	Classifier *pipeline.Classifier
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline sets up the store, the Anthropic client, and the classifier.
// Callers should defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	client := anthropicpkg.NewClient(cfg.Anthropic.Key)
	collector := monitoring.NewCollector(st)
	classifier := pipeline.NewClassifier(st, client, taxonomy.Default(), cfg.Anthropic, cfg.Vibe, collector)

	return &pipelineEnv{
		Store:      st,
		Collector:  collector,
		Classifier: classifier,
	}, nil
}
