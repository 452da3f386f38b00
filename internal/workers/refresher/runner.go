// Package refresher re-analyzes records that have gone stale.
package refresher

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"trustlens/internal/domain"
	"trustlens/internal/logging"
	"trustlens/internal/ports"
)

// Refresher re-analyzes one domain.
type Refresher interface {
	Refresh(ctx context.Context, host string) (domain.Website, error)
}

type Options struct {
	Workers    int
	Interval   time.Duration
	StaleAfter time.Duration
	Clock      clockwork.Clock
	ErrLogger  logging.ErrLogger
}

// Run starts a dispatcher that polls for stale records every interval and
// workers that refresh them. It returns immediately; Wait on the returned
// group to block until the workers have drained after ctx is cancelled.
func Run(ctx context.Context, sites ports.WebsiteRepository, refresher Refresher, opts Options) *sync.WaitGroup {
	var wg sync.WaitGroup
	if opts.Workers < 1 {
		return &wg
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	if opts.ErrLogger == nil {
		opts.ErrLogger = logging.Nop
	}
	hosts := make(chan string, opts.Workers)
	var pending sync.Map

	// dispatcher loop
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(hosts)
		ticker := opts.Clock.NewTicker(opts.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				cutoff := opts.Clock.Now().Add(-opts.StaleAfter)
				stale, err := sites.ListStale(ctx, cutoff, opts.Workers)
				if err != nil {
					opts.ErrLogger.Log(err, logging.LogOptions{Msg: "list stale websites"})
					continue
				}
				for _, host := range stale {
					if _, busy := pending.LoadOrStore(host, struct{}{}); busy {
						continue
					}
					select {
					case hosts <- host:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	// workers
	for i := 0; i < opts.Workers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			for host := range hosts {
				site, err := refresher.Refresh(ctx, host)
				pending.Delete(host)
				if err != nil {
					if ctx.Err() == nil {
						opts.ErrLogger.Log(err, logging.LogOptions{
							Msg:  "refresh failed",
							Tags: map[string]string{"domain": host},
						})
					}
					continue
				}
				log.Debug().Int("worker", idx).Str("domain", host).Int("trustScore", site.TrustScore).Msg("refreshed")
			}
		}(i)
	}
	return &wg
}
