// Package scoring turns probe signals into a technical trust score and risk
// labels, and blends it with community ratings.
package scoring

import (
	"regexp"

	"trustlens/internal/domainname"
)

const (
	BaseScore         = 50
	UnresolvedScore   = 10
	MinScore          = 0
	MaxScore          = 100
	longDomainLen     = 30
	shortDomainLen    = 10
	daysPerYear       = 365
	newDomainDays     = 30
	youngDomainDays   = 90
	matureDomainYears = 5
)

var (
	wordLabelRe   = regexp.MustCompile(`^[a-z]+$`)
	digitRunRe    = regexp.MustCompile(`\d{4,}`)
	unusualCharRe = regexp.MustCompile(`[^a-z0-9.-]`)

	commonTLDs        = map[string]bool{"com": true, "org": true, "net": true}
	institutionalTLDs = map[string]bool{"gov": true, "edu": true, "mil": true}
)

// Signals are the probe facts the engine scores.
type Signals struct {
	Domain   string
	Resolved bool
	HasSSL   bool
	// DomainAge in days; nil when WHOIS gave no creation date.
	DomainAge *int
}

func (s Signals) tld() string { return domainname.TLD(s.Domain) }

// Rule is one named additive adjustment.
type Rule struct {
	Name   string
	Adjust func(Signals) int
}

// Rules are applied in order to a running total starting at BaseScore. They
// only run when the domain resolves.
var Rules = []Rule{
	{"resolves", func(Signals) int { return 20 }},
	{"ssl", func(s Signals) int {
		if s.HasSSL {
			return 15
		}
		return 0
	}},
	{"domain-age", ageAdjustment},
	{"tld", func(s Signals) int {
		switch {
		case commonTLDs[s.tld()]:
			return 5
		case institutionalTLDs[s.tld()]:
			return 15
		}
		return 0
	}},
	{"length", func(s Signals) int {
		switch n := len(s.Domain); {
		case n > longDomainLen:
			return -20
		case n < shortDomainLen:
			return 5
		}
		return 0
	}},
	{"word-label", func(s Signals) int {
		if wordLabelRe.MatchString(domainname.FirstLabel(s.Domain)) {
			return 5
		}
		return 0
	}},
	{"digit-run", func(s Signals) int {
		if digitRunRe.MatchString(s.Domain) {
			return -10
		}
		return 0
	}},
	{"unusual-chars", func(s Signals) int {
		if unusualCharRe.MatchString(s.Domain) {
			return -15
		}
		return 0
	}},
}

// age tiers are first-match: an 11 year old domain only gets the 10y bonus
func ageAdjustment(s Signals) int {
	if s.DomainAge == nil {
		return 0
	}
	switch age := *s.DomainAge; {
	case age > 10*daysPerYear:
		return 15
	case age > matureDomainYears*daysPerYear:
		return 10
	case age > daysPerYear:
		return 5
	case age < newDomainDays:
		return -10
	}
	return 0
}

// TrustScore computes the clamped technical score.
func TrustScore(s Signals) int {
	if !s.Resolved {
		return UnresolvedScore
	}
	total := BaseScore
	for _, r := range Rules {
		total += r.Adjust(s)
	}
	return clamp(total)
}

// Breakdown returns the non-zero adjustment of every rule, for logging.
func Breakdown(s Signals) map[string]int {
	out := map[string]int{}
	if !s.Resolved {
		return out
	}
	for _, r := range Rules {
		if v := r.Adjust(s); v != 0 {
			out[r.Name] = v
		}
	}
	return out
}

func clamp(v int) int {
	if v < MinScore {
		return MinScore
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}

// Result is the engine output for one domain.
type Result struct {
	TrustScore int
	Risks
}

// Score runs the rules and derives risk labels from the resulting score.
func Score(s Signals) Result {
	ts := TrustScore(s)
	return Result{TrustScore: ts, Risks: RiskLevels(s, ts)}
}
