// Package probes gathers raw facts about a domain: DNS resolution, HTTPS and
// certificate inspection, the Server header and WHOIS registration data.
// Probes never fail; a probe that errors or times out yields an empty value.
package probes

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const DefaultTimeout = 5 * time.Second

type Resolver interface {
	// Resolve returns the first IPv4/IPv6 address of host, or "".
	Resolve(ctx context.Context, host string) string
}

type WebInspector interface {
	InspectHTTPS(ctx context.Context, host string) TLSInfo
	// ServerHeader returns the Server header of a plain HTTP HEAD, or "".
	ServerHeader(ctx context.Context, host string) string
}

type WhoisLookup interface {
	Lookup(ctx context.Context, host string) WhoisRecord
}

// TLSInfo is the outcome of an HTTPS HEAD request. Certificate fields are only
// set when Valid.
type TLSInfo struct {
	Valid     bool
	Status    int
	Issuer    string
	ValidFrom time.Time
	ValidTo   time.Time
	Cipher    string
	Server    string
}

// Result holds every probe outcome for one domain.
type Result struct {
	IPAddress  string
	TLS        TLSInfo
	ServerType string
	Whois      WhoisRecord
}

// Runner fans the probes out concurrently, each under its own timeout.
type Runner struct {
	DNS     Resolver
	Web     WebInspector
	Whois   WhoisLookup
	Timeout time.Duration
}

// PanicError is returned when a probe panics.
type PanicError struct {
	Probe string
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("probe %s panicked: %v", e.Probe, e.Value)
}

// Probe runs all probes for host. It only returns an error when a probe
// panicked; ordinary probe failures are folded into empty fields.
func (r *Runner) Probe(ctx context.Context, host string) (Result, error) {
	var (
		res        Result
		httpServer string
		g          errgroup.Group
	)
	start := time.Now()

	r.run(ctx, &g, "dns", func(ctx context.Context) { res.IPAddress = r.DNS.Resolve(ctx, host) })
	r.run(ctx, &g, "tls", func(ctx context.Context) { res.TLS = r.Web.InspectHTTPS(ctx, host) })
	r.run(ctx, &g, "http", func(ctx context.Context) { httpServer = r.Web.ServerHeader(ctx, host) })
	r.run(ctx, &g, "whois", func(ctx context.Context) { res.Whois = r.Whois.Lookup(ctx, host) })

	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	// protocol choice for the Server header follows the TLS outcome
	if res.TLS.Valid {
		res.ServerType = res.TLS.Server
	} else {
		res.ServerType = httpServer
	}

	log.Debug().
		Str("domain", host).
		Str("ip", res.IPAddress).
		Bool("ssl", res.TLS.Valid).
		Str("server", res.ServerType).
		Bool("whois", !res.Whois.Empty()).
		Dur("elapsed", time.Since(start)).
		Msg("probes completed")
	return res, nil
}

func (r *Runner) run(ctx context.Context, g *errgroup.Group, name string, fn func(context.Context)) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	g.Go(func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = &PanicError{Probe: name, Value: p}
			}
		}()
		pctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		fn(pctx)
		return nil
	})
}
