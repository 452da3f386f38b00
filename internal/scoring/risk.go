package scoring

import "trustlens/internal/domain"

type Risks struct {
	PhishingRisk    string
	MalwareRisk     string
	ScamRisk        string
	BlacklistStatus string
}

// RiskLevels derives categorical labels. Institutional TLD overrides are
// applied last so they always win.
func RiskLevels(s Signals, trustScore int) Risks {
	r := Risks{
		PhishingRisk:    domain.RiskHigh,
		MalwareRisk:     domain.RiskHigh,
		ScamRisk:        domain.RiskMedium,
		BlacklistStatus: domain.BlacklistUnknown,
	}

	if s.HasSSL {
		r.PhishingRisk = pick(trustScore > 70, domain.RiskLow, domain.RiskMedium)
		r.MalwareRisk = pick(trustScore > 65, domain.RiskLow, domain.RiskMedium)
	}

	mature := s.DomainAge != nil && *s.DomainAge > matureDomainYears*daysPerYear
	young := s.DomainAge != nil && *s.DomainAge < youngDomainDays
	long := len(s.Domain) > longDomainLen

	if mature {
		r.ScamRisk = domain.RiskLow
		if s.HasSSL {
			r.BlacklistStatus = domain.BlacklistClean
		}
	}
	if young || long {
		r.PhishingRisk = domain.RiskHigh
		r.ScamRisk = domain.RiskHigh
	}

	if institutionalTLDs[s.tld()] {
		r.PhishingRisk = domain.RiskLow
		r.MalwareRisk = domain.RiskLow
		r.ScamRisk = domain.RiskLow
		r.BlacklistStatus = domain.BlacklistClean
	}
	return r
}

func pick(cond bool, a, b string) string {
	if cond {
		return a
	}
	return b
}
