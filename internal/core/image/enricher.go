package image

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"recipe-aggregator/internal/core/recipe"
	"recipe-aggregator/internal/infrastructure/config"
	"recipe-aggregator/internal/pkg/common"
)

// Lookup resolves a photo and attribution for a free-text query.
type Lookup interface {
	Lookup(ctx context.Context, query string) (recipe.ImageMeta, error)
}

// Enricher fans image lookups for a recipe batch out over a bounded
// worker pool. A lookup that fails or times out leaves that recipe's
// image empty; the batch itself never fails.
type Enricher struct {
	lookup  Lookup
	workers int
	timeout time.Duration

	processed int64
	failed    int64
}

// NewEnricher creates an enricher over the given lookup provider.
func NewEnricher(lookup Lookup, cfg config.ImageConfig) *Enricher {
	return &Enricher{
		lookup:  lookup,
		workers: cfg.Workers,
		timeout: cfg.Timeout,
	}
}

// Status reports lookup counters.
type Status struct {
	ProcessedCount int `json:"processed_count"`
	FailedCount    int `json:"failed_count"`
	Workers        int `json:"workers"`
}

// GetStatus returns the enricher's counters.
func (e *Enricher) GetStatus() Status {
	return Status{
		ProcessedCount: int(atomic.LoadInt64(&e.processed)),
		FailedCount:    int(atomic.LoadInt64(&e.failed)),
		Workers:        e.workers,
	}
}

// EnrichBatch looks up one image per title. The returned slice is
// index-aligned with titles; missing lookups leave a zero ImageMeta.
func (e *Enricher) EnrichBatch(ctx context.Context, titles []string) []recipe.ImageMeta {
	images := make([]recipe.ImageMeta, len(titles))
	if e.lookup == nil || len(titles) == 0 {
		return images
	}

	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := e.workers
	if workers > len(titles) {
		workers = len(titles)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				images[i] = e.lookupOne(ctx, titles[i])
			}
		}()
	}

	for i := range titles {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return images
}

func (e *Enricher) lookupOne(ctx context.Context, title string) recipe.ImageMeta {
	lookupCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	meta, err := e.lookup.Lookup(lookupCtx, title)
	atomic.AddInt64(&e.processed, 1)
	if err != nil {
		atomic.AddInt64(&e.failed, 1)
		common.LogWarn("image lookup failed",
			zap.String("title", title),
			zap.Error(err),
		)
		return recipe.ImageMeta{}
	}
	return meta
}
