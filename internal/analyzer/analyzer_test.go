package analyzer

import (
	"context"
	"errors"
	"testing"
	"time"

	"trustlens/internal/domain"
	"trustlens/internal/probes"
)

var now = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

func exampleResult() probes.Result {
	return probes.Result{
		IPAddress: "93.184.216.34",
		TLS: probes.TLSInfo{
			Valid:     true,
			Status:    200,
			Issuer:    "DigiCert Inc",
			ValidFrom: now.AddDate(0, -6, 0),
			ValidTo:   now.AddDate(0, 6, 0),
			Cipher:    "TLS_AES_256_GCM_SHA384",
			Server:    "ECS (dcb/7F83)",
		},
		ServerType: "ECS (dcb/7F83)",
		Whois: probes.WhoisRecord{
			CreationDate: "1995-08-14T04:00:00Z",
			ExpiryDate:   "2025-08-13T04:00:00Z",
			Registrar:    "RESERVED-Internet Assigned Numbers Authority",
			NameServers:  []string{"a.iana-servers.net", "b.iana-servers.net"},
		},
	}
}

func TestBuildExampleCom(t *testing.T) {
	site := Build("example.com", exampleResult(), now)

	if site.TrustScore != 100 {
		t.Errorf("TrustScore = %d, expected 100", site.TrustScore)
	}
	if site.DomainAge == nil || *site.DomainAge != 10001 {
		t.Errorf("DomainAge = %v, expected 10001", site.DomainAge)
	}
	if site.PhishingRisk != domain.RiskLow || site.MalwareRisk != domain.RiskLow || site.ScamRisk != domain.RiskLow {
		t.Errorf("unexpected risks %s/%s/%s", site.PhishingRisk, site.MalwareRisk, site.ScamRisk)
	}
	if site.BlacklistStatus != domain.BlacklistClean {
		t.Errorf("BlacklistStatus = %s", site.BlacklistStatus)
	}
	if site.SSLIssuer == nil || *site.SSLIssuer != "DigiCert Inc" {
		t.Errorf("SSLIssuer = %v", site.SSLIssuer)
	}
	if site.RegistrationDate == nil || site.ExpirationDate == nil {
		t.Error("expected registration and expiration dates")
	}
	if site.ServerLocation != nil || site.MalwareDetected {
		t.Error("server location and malware detection are never populated")
	}
	if site.TechnicalDetails["encryption"] != "TLS_AES_256_GCM_SHA384" {
		t.Errorf("encryption = %v", site.TechnicalDetails["encryption"])
	}
	if ns, ok := site.TechnicalDetails["nameServers"].([]string); !ok || len(ns) != 2 {
		t.Errorf("nameServers = %v", site.TechnicalDetails["nameServers"])
	}
}

func TestBuildUnresolved(t *testing.T) {
	site := Build("nowhere-at-all.com", probes.Result{}, now)

	if site.TrustScore != 10 {
		t.Errorf("TrustScore = %d, expected 10", site.TrustScore)
	}
	if site.IPAddress != nil || site.DomainAge != nil || site.HasValidSSL {
		t.Errorf("unexpected signals on empty result: %+v", site)
	}
	if site.PhishingRisk != domain.RiskHigh || site.MalwareRisk != domain.RiskHigh {
		t.Errorf("unexpected risks %s/%s", site.PhishingRisk, site.MalwareRisk)
	}
	if len(site.TechnicalDetails) != 0 {
		t.Errorf("expected no technical details, got %v", site.TechnicalDetails)
	}
}

func TestBuildHostedPlatform(t *testing.T) {
	res := probes.Result{IPAddress: "192.0.2.1", TLS: probes.TLSInfo{Valid: true}}
	site := Build("my-app.netlify.app", res, now)

	if site.HostingProvider == nil || *site.HostingProvider != "Netlify" {
		t.Errorf("HostingProvider = %v", site.HostingProvider)
	}
	// 50 + 20 resolves + 15 ssl; the platform bonus is not applied
	if site.TrustScore != 85 {
		t.Errorf("TrustScore = %d, expected 85", site.TrustScore)
	}
}

type stubProber struct {
	res probes.Result
	err error
}

func (s stubProber) Probe(ctx context.Context, host string) (probes.Result, error) { return s.res, s.err }

func TestAnalyze(t *testing.T) {
	a := New(stubProber{res: exampleResult()})
	site, err := a.Analyze(context.Background(), "example.com", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if site.Domain != "example.com" || site.TrustScore != 100 {
		t.Errorf("unexpected site %+v", site)
	}

	a = New(stubProber{err: errors.New("probe panicked")})
	if _, err := a.Analyze(context.Background(), "example.com", now); err == nil {
		t.Error("expected probe error to propagate")
	}
}

func TestFailed(t *testing.T) {
	site := Failed("example.com")
	if site.TrustScore != 0 || site.PhishingRisk != domain.RiskUnknown || site.BlacklistStatus != domain.BlacklistUnknown {
		t.Errorf("unexpected failure record %+v", site)
	}
	if site.IPAddress != nil || site.DomainAge != nil {
		t.Error("failure record must carry no optionals")
	}
}
