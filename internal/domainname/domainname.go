// Package domainname normalizes and validates user-supplied URLs and domains.
// Every input path (analyze, lookup) goes through Normalize so a domain maps
// to exactly one record.
package domainname

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"

	"trustlens/internal/domain"
)

var (
	schemeRe = regexp.MustCompile(`^(https?://)?(www\.)?`)
	// labels of 1-63 alphanumerics/hyphens, at least two labels, optional path
	hostPathRe = regexp.MustCompile(`^([a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(/[/\w.-]*)?$`)
)

// Normalize lowercases the input and strips scheme, a leading "www.", any
// path, query, fragment and port.
func Normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = schemeRe.ReplaceAllString(s, "")
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndexByte(s, ':'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSuffix(s, ".")
}

// Parse validates raw input and returns the normalized domain. Input is
// accepted if it is an absolute http(s) URL or looks like host[/path].
func Parse(raw string) (string, error) {
	verr := &domain.ValidationError{}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		verr.Add("url", "URL is required")
		return "", verr
	}
	if !isHTTPURL(trimmed) && !hostPathRe.MatchString(trimmed) {
		verr.Add("url", "Please enter a valid URL or domain")
		return "", verr
	}
	host := Normalize(trimmed)
	if !Registrable(host) {
		verr.Add("url", "Please enter a valid domain")
		return "", verr
	}
	return host, nil
}

// Registrable reports whether host has a public suffix plus one label.
func Registrable(host string) bool {
	if host == "" || strings.Contains(host, "..") {
		return false
	}
	_, err := publicsuffix.EffectiveTLDPlusOne(host)
	return err == nil
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Hostname() != ""
}

// TLD returns the last label of host.
func TLD(host string) string {
	if i := strings.LastIndexByte(host, '.'); i >= 0 {
		return host[i+1:]
	}
	return host
}

// FirstLabel returns the portion of host before the first dot.
func FirstLabel(host string) string {
	if i := strings.IndexByte(host, '.'); i >= 0 {
		return host[:i]
	}
	return host
}
