// Package analyzer turns raw probe results into a scored website record.
package analyzer

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"trustlens/internal/domain"
	"trustlens/internal/probes"
	"trustlens/internal/scoring"
)

type Prober interface {
	Probe(ctx context.Context, host string) (probes.Result, error)
}

type Analyzer struct {
	prober Prober
}

func New(prober Prober) *Analyzer { return &Analyzer{prober: prober} }

// Analyze probes host and scores it. The returned record has no ID and no
// LastAnalyzed; the caller stamps both when persisting.
func (a *Analyzer) Analyze(ctx context.Context, host string, now time.Time) (domain.Website, error) {
	res, err := a.prober.Probe(ctx, host)
	if err != nil {
		return domain.Website{}, err
	}
	return Build(host, res, now), nil
}

// Build derives the website record from probe results.
func Build(host string, res probes.Result, now time.Time) domain.Website {
	site := domain.Website{
		Domain:      host,
		HasValidSSL: res.TLS.Valid,
	}

	if res.IPAddress != "" {
		site.IPAddress = strPtr(res.IPAddress)
	}
	if res.ServerType != "" {
		site.ServerType = strPtr(res.ServerType)
	}
	if res.TLS.Valid {
		if res.TLS.Issuer != "" {
			site.SSLIssuer = strPtr(res.TLS.Issuer)
		}
		site.SSLValidFrom = timePtr(res.TLS.ValidFrom)
		site.SSLValidTo = timePtr(res.TLS.ValidTo)
	}

	w := res.Whois
	if w.Registrar != "" {
		site.Registrar = strPtr(w.Registrar)
	}
	if created, ok := probes.ParseWhoisDate(w.CreationDate); ok {
		site.RegistrationDate = &created
		age := int(math.Floor(now.Sub(created).Hours() / 24))
		site.DomainAge = &age
	}
	if expires, ok := probes.ParseWhoisDate(w.ExpiryDate); ok {
		site.ExpirationDate = &expires
	}

	if name, ok := scoring.HostedPlatform(host); ok {
		site.HostingProvider = strPtr(name)
		log.Debug().Str("domain", host).Str("platform", name).Int("bonus", scoring.PlatformBonus).
			Msg("hosted platform detected, bonus not applied")
	}

	result := scoring.Score(scoring.Signals{
		Domain:    host,
		Resolved:  res.IPAddress != "",
		HasSSL:    res.TLS.Valid,
		DomainAge: site.DomainAge,
	})
	site.TrustScore = result.TrustScore
	site.PhishingRisk = result.PhishingRisk
	site.MalwareRisk = result.MalwareRisk
	site.ScamRisk = result.ScamRisk
	site.BlacklistStatus = result.BlacklistStatus
	site.TechnicalDetails = technicalDetails(res)
	return site
}

func technicalDetails(res probes.Result) map[string]any {
	details := make(map[string]any)
	if res.TLS.Cipher != "" {
		details["encryption"] = res.TLS.Cipher
	}
	if res.Whois.CreationDate != "" {
		details["creationDate"] = res.Whois.CreationDate
	}
	if res.Whois.ExpiryDate != "" {
		details["expiryDate"] = res.Whois.ExpiryDate
	}
	if len(res.Whois.NameServers) > 0 {
		details["nameServers"] = res.Whois.NameServers
	}
	return details
}

// Failed is the record persisted when an analysis cannot complete.
func Failed(host string) domain.Website {
	return domain.Website{
		Domain:          host,
		TrustScore:      0,
		PhishingRisk:    domain.RiskUnknown,
		MalwareRisk:     domain.RiskUnknown,
		ScamRisk:        domain.RiskUnknown,
		BlacklistStatus: domain.BlacklistUnknown,
	}
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
