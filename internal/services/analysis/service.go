// Package analysis decides whether a domain needs probing, runs the probe
// round and assembles the report returned to clients.
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"trustlens/internal/analyzer"
	"trustlens/internal/domain"
	"trustlens/internal/domainname"
	"trustlens/internal/logging"
	"trustlens/internal/ports"
	"trustlens/internal/scoring"
)

const DefaultStaleAfter = 24 * time.Hour

type Analyzer interface {
	Analyze(ctx context.Context, host string, now time.Time) (domain.Website, error)
}

type Options struct {
	StaleAfter    time.Duration
	MaxConcurrent int
	Clock         clockwork.Clock
	ErrLogger     logging.ErrLogger
}

type Service struct {
	websites   ports.WebsiteRepository
	reviews    ports.ReviewRepository
	analyzer   Analyzer
	clock      clockwork.Clock
	staleAfter time.Duration
	errLog     logging.ErrLogger
	inflight   singleflight.Group
	slots      *semaphore.Weighted
}

func New(websites ports.WebsiteRepository, reviews ports.ReviewRepository, a Analyzer, opts Options) *Service {
	s := &Service{
		websites:   websites,
		reviews:    reviews,
		analyzer:   a,
		clock:      opts.Clock,
		staleAfter: opts.StaleAfter,
		errLog:     opts.ErrLogger,
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.staleAfter <= 0 {
		s.staleAfter = DefaultStaleAfter
	}
	if s.errLog == nil {
		s.errLog = logging.Nop
	}
	if opts.MaxConcurrent > 0 {
		s.slots = semaphore.NewWeighted(int64(opts.MaxConcurrent))
	}
	return s
}

// Analyze validates rawURL, reuses a fresh record or runs a new analysis, and
// returns the report with community figures recomputed.
func (s *Service) Analyze(ctx context.Context, rawURL string) (domain.Report, error) {
	host, err := domainname.Parse(rawURL)
	if err != nil {
		return domain.Report{}, err
	}

	site, found, err := s.websites.GetByDomain(ctx, host)
	if err != nil {
		return domain.Report{}, errors.Wrap(err, "load website")
	}
	if !found || !site.Fresh(s.clock.Now(), s.staleAfter) {
		if site, err = s.run(ctx, host, false); err != nil {
			return domain.Report{}, err
		}
	}
	return s.report(ctx, site)
}

// Get returns the stored report for host without probing.
func (s *Service) Get(ctx context.Context, host string) (domain.Report, error) {
	host = domainname.Normalize(host)
	site, found, err := s.websites.GetByDomain(ctx, host)
	if err != nil {
		return domain.Report{}, errors.Wrap(err, "load website")
	}
	if !found {
		return domain.Report{}, domain.ErrNotFound
	}
	return s.report(ctx, site)
}

// Refresh re-analyzes host regardless of freshness.
func (s *Service) Refresh(ctx context.Context, host string) (domain.Website, error) {
	return s.run(ctx, host, true)
}

// run executes at most one analysis per domain at a time; concurrent callers
// share its result. The analysis is detached from caller cancellation.
func (s *Service) run(ctx context.Context, host string, force bool) (domain.Website, error) {
	detached := context.WithoutCancel(ctx)
	ch := s.inflight.DoChan(host, func() (any, error) {
		return s.analyzeAndStore(detached, host, force)
	})

	select {
	case <-ctx.Done():
		return domain.Website{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return domain.Website{}, res.Err
		}
		return res.Val.(domain.Website), nil
	}
}

func (s *Service) analyzeAndStore(ctx context.Context, host string, force bool) (domain.Website, error) {
	if !force {
		// a flight that finished just before this one may already have
		// refreshed the record
		if site, found, err := s.websites.GetByDomain(ctx, host); err == nil && found && site.Fresh(s.clock.Now(), s.staleAfter) {
			return site, nil
		}
	}

	if s.slots != nil {
		if err := s.slots.Acquire(ctx, 1); err != nil {
			return domain.Website{}, errors.Wrap(err, "acquire analysis slot")
		}
		defer s.slots.Release(1)
	}

	runID := uuid.NewString()
	logger := log.With().Str("run", runID).Str("domain", host).Logger()
	start := s.clock.Now()

	site := s.probe(ctx, host, runID)
	site.LastAnalyzed = s.clock.Now()

	saved, err := s.websites.Upsert(ctx, site)
	if err != nil {
		err = errors.Wrapf(err, "store analysis for %s", host)
		s.errLog.Log(err, logging.LogOptions{Tags: map[string]string{"domain": host, "run": runID}})
		return domain.Website{}, err
	}

	logger.Info().
		Int("trustScore", saved.TrustScore).
		Dur("elapsed", s.clock.Since(start)).
		Msg("analysis stored")
	return saved, nil
}

// probe never fails: errors and panics yield the failure record.
func (s *Service) probe(ctx context.Context, host, runID string) (site domain.Website) {
	tags := map[string]string{"domain": host, "run": runID}
	defer func() {
		if p := recover(); p != nil {
			s.errLog.Log(fmt.Errorf("analysis panicked: %v", p), logging.LogOptions{Tags: tags})
			site = analyzer.Failed(host)
		}
	}()

	var err error
	site, err = s.analyzer.Analyze(ctx, host, s.clock.Now())
	if err != nil {
		s.errLog.Log(errors.Wrap(err, "analysis failed"), logging.LogOptions{Tags: tags})
		return analyzer.Failed(host)
	}
	return site
}

func (s *Service) report(ctx context.Context, site domain.Website) (domain.Report, error) {
	ratings, err := s.reviews.Ratings(ctx, site.ID)
	if err != nil {
		return domain.Report{}, errors.Wrap(err, "load ratings")
	}
	stats := scoring.Aggregate(ratings)
	community := scoring.Community(stats)
	return domain.Report{
		Website:             site,
		ReviewStats:         stats,
		CommunityTrustScore: community,
		OverallTrustScore:   scoring.Overall(site.TrustScore, community, stats.Total),
	}, nil
}
