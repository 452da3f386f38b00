package probes

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/likexian/whois"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/publicsuffix"
)

// WhoisRecord is the canonical registration record. Dates are kept as the
// registry printed them.
type WhoisRecord struct {
	CreationDate string
	ExpiryDate   string
	Registrar    string
	NameServers  []string
}

func (r WhoisRecord) Empty() bool {
	return r.CreationDate == "" && r.ExpiryDate == "" && r.Registrar == "" && len(r.NameServers) == 0
}

// whoisAliases maps each canonical field to the camelCased raw keys that
// registries use for it, in priority order.
var whoisAliases = []struct {
	field string
	keys  []string
}{
	{"creationDate", []string{"creationDate", "created", "registrationDate", "domainRegistrationDate"}},
	{"expiryDate", []string{"expiryDate", "expires", "registrarRegistrationExpirationDate", "registryExpiryDate"}},
	{"registrar", []string{"registrar"}},
	{"nameServers", []string{"nameServer", "nameServers", "nserver"}},
}

// WhoisQuerier is satisfied by *whois.Client.
type WhoisQuerier interface {
	Whois(domain string, servers ...string) (string, error)
}

// WhoisProber looks up registration data and caches non-empty records.
type WhoisProber struct {
	client WhoisQuerier
	cache  *expirable.LRU[string, WhoisRecord]
}

func NewWhoisProber(timeout time.Duration, cacheSize int, ttl time.Duration) *WhoisProber {
	client := whois.NewClient()
	client.SetTimeout(timeout)
	return NewWhoisProberWithClient(client, cacheSize, ttl)
}

func NewWhoisProberWithClient(client WhoisQuerier, cacheSize int, ttl time.Duration) *WhoisProber {
	if cacheSize <= 0 {
		cacheSize = 1
	}
	return &WhoisProber{
		client: client,
		cache:  expirable.NewLRU[string, WhoisRecord](cacheSize, nil, ttl),
	}
}

func (p *WhoisProber) Lookup(ctx context.Context, host string) WhoisRecord {
	name := host
	if root, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		name = root
	}
	if rec, ok := p.cache.Get(name); ok {
		return rec
	}

	type reply struct {
		raw string
		err error
	}
	ch := make(chan reply, 1)
	go func() {
		raw, err := p.client.Whois(name)
		ch <- reply{raw, err}
	}()

	var r reply
	select {
	case <-ctx.Done():
		log.Debug().Err(ctx.Err()).Str("domain", name).Msg("whois lookup abandoned")
		return WhoisRecord{}
	case r = <-ch:
	}
	if r.err != nil {
		log.Debug().Err(r.err).Str("domain", name).Msg("whois lookup failed")
		return WhoisRecord{}
	}

	rec := NormalizeWhois(ParseWhois(r.raw))
	if !rec.Empty() {
		p.cache.Add(name, rec)
	}
	return rec
}

// ParseWhois splits raw "Key: value" output into camelCased keys. Repeated
// keys accumulate values in order of appearance.
func ParseWhois(raw string) map[string][]string {
	fields := make(map[string][]string)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "%") || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ">>>") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = camelCase(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		fields[key] = append(fields[key], value)
	}
	return fields
}

func camelCase(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var b strings.Builder
	for i, w := range words {
		w = strings.ToLower(w)
		if i > 0 {
			w = strings.ToUpper(w[:1]) + w[1:]
		}
		b.WriteString(w)
	}
	return b.String()
}

// NormalizeWhois applies the alias table to parsed fields.
func NormalizeWhois(fields map[string][]string) WhoisRecord {
	var rec WhoisRecord
	for _, alias := range whoisAliases {
		switch alias.field {
		case "creationDate":
			rec.CreationDate = firstValue(fields, alias.keys)
		case "expiryDate":
			rec.ExpiryDate = firstValue(fields, alias.keys)
		case "registrar":
			rec.Registrar = firstValue(fields, alias.keys)
		case "nameServers":
			rec.NameServers = nameServers(fields, alias.keys)
		}
	}
	return rec
}

func firstValue(fields map[string][]string, keys []string) string {
	for _, k := range keys {
		for _, v := range fields[k] {
			if v != "" {
				return v
			}
		}
	}
	return ""
}

func nameServers(fields map[string][]string, keys []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, k := range keys {
		for _, v := range fields[k] {
			for _, ns := range strings.Fields(v) {
				ns = strings.TrimSuffix(strings.ToLower(ns), ".")
				if !seen[ns] {
					seen[ns] = true
					out = append(out, ns)
				}
			}
		}
	}
	return out
}

var whoisDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05.0Z",
	"2006-01-02T15:04:05.000Z",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05 MST",
	"2006-01-02",
	"2006.01.02",
	"2006/01/02",
	"02-Jan-2006",
	"02.01.2006",
	"January 2 2006",
	"Mon Jan 2 15:04:05 MST 2006",
}

// ParseWhoisDate parses the date formats registries commonly print.
func ParseWhoisDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	// some registries append a zone label in parentheses
	if i := strings.Index(s, " ("); i > 0 {
		s = s[:i]
	}
	for _, layout := range whoisDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
