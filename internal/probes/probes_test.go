package probes

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubResolver struct {
	addr  string
	block bool
}

func (s stubResolver) Resolve(ctx context.Context, host string) string {
	if s.block {
		<-ctx.Done()
		return ""
	}
	return s.addr
}

type stubWeb struct {
	tls    TLSInfo
	server string
	panic  bool
}

func (s stubWeb) InspectHTTPS(ctx context.Context, host string) TLSInfo {
	if s.panic {
		panic("boom")
	}
	return s.tls
}

func (s stubWeb) ServerHeader(ctx context.Context, host string) string { return s.server }

type stubWhois struct{ rec WhoisRecord }

func (s stubWhois) Lookup(ctx context.Context, host string) WhoisRecord { return s.rec }

func TestRunnerServerTypeSelection(t *testing.T) {
	tests := []struct {
		name     string
		tls      TLSInfo
		http     string
		expected string
	}{
		{"https wins when valid", TLSInfo{Valid: true, Server: "cloudflare"}, "nginx", "cloudflare"},
		{"http used when tls invalid", TLSInfo{Status: 500}, "nginx", "nginx"},
		{"empty when https valid but silent", TLSInfo{Valid: true}, "nginx", ""},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			r := &Runner{
				DNS:     stubResolver{addr: "192.0.2.1"},
				Web:     stubWeb{tls: test.tls, server: test.http},
				Whois:   stubWhois{rec: WhoisRecord{Registrar: "Example Registrar"}},
				Timeout: time.Second,
			}
			res, err := r.Probe(context.Background(), "example.com")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.ServerType != test.expected {
				t.Errorf("ServerType = %q, expected %q", res.ServerType, test.expected)
			}
			if res.IPAddress != "192.0.2.1" || res.Whois.Registrar != "Example Registrar" {
				t.Errorf("unexpected result %+v", res)
			}
		})
	}
}

func TestRunnerPerProbeTimeout(t *testing.T) {
	r := &Runner{
		DNS:     stubResolver{block: true},
		Web:     stubWeb{tls: TLSInfo{Valid: true}},
		Whois:   stubWhois{},
		Timeout: 50 * time.Millisecond,
	}

	start := time.Now()
	res, err := r.Probe(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("probe did not honor its timeout")
	}
	if res.IPAddress != "" || !res.TLS.Valid {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestRunnerPanicBecomesError(t *testing.T) {
	r := &Runner{
		DNS:   stubResolver{addr: "192.0.2.1"},
		Web:   stubWeb{panic: true},
		Whois: stubWhois{},
	}

	_, err := r.Probe(context.Background(), "example.com")
	var perr *PanicError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PanicError, got %v", err)
	}
	if perr.Probe != "tls" {
		t.Errorf("Probe = %q, expected tls", perr.Probe)
	}
}
