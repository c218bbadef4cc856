// Package engine is the incremental synchronization, validation, and rollback
// core. One run reconciles already-tracked active petitions, discovers new
// ones from the paginated listing, bulk-syncs the snapshot source, and commits
// only if post-sync validation holds; otherwise the store is restored to its
// exact pre-run state.
//
// Runs are strictly sequential: one upstream fetch in flight at a time, with
// a randomized politeness delay after every processed identifier.
package engine

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/hazyhaar/petwatch/petition"
	"github.com/hazyhaar/petwatch/store"
)

// DetailFetcher resolves one external identifier to a normalized record or a
// typed fetch error.
type DetailFetcher interface {
	Detail(ctx context.Context, id string) (*petition.Record, error)
}

// Lister returns the petition identifiers referenced by listing page n,
// newest first.
type Lister interface {
	ListPage(ctx context.Context, page int) ([]string, error)
}

// BulkFetcher returns a source's entire current record set in one call.
type BulkFetcher interface {
	FetchAll(ctx context.Context) ([]petition.Record, error)
}

// Engine runs synchronization passes against one store.
type Engine struct {
	store     *store.Store
	president DetailFetcher
	lister    Lister
	cabinet   BulkFetcher
	config    *Config
	logger    *slog.Logger

	// injected for tests
	sleep    func(time.Duration)
	now      func() time.Time
	newRunID func() string
}

// New creates an Engine. Any of president/lister/cabinet may be nil to
// disable that path (a nil cabinet skips bulk sync, and so on).
func New(st *store.Store, president DetailFetcher, lister Lister, cabinet BulkFetcher, cfg *Config, logger *slog.Logger) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:     st,
		president: president,
		lister:    lister,
		cabinet:   cabinet,
		config:    cfg,
		logger:    logger,
		sleep:     time.Sleep,
		now:       time.Now,
		newRunID:  uuid.NewString,
	}
}

// politeness pauses after the i-th processed identifier: the base delay plus
// random jitter, and a longer pause every LongPauseEvery records to keep the
// request cadence steady rather than bursty.
func (e *Engine) politeness(i int) {
	d := e.config.Politeness.Delay
	if j := e.config.Politeness.Jitter; j > 0 {
		d += rand.N(j)
	}
	e.sleep(d)
	if every := e.config.Politeness.LongPauseEvery; every > 0 && (i+1)%every == 0 {
		e.sleep(e.config.Politeness.LongPause)
	}
}
