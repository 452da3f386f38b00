package probes

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

const userAgent = "trustlens-probe/1.0"

// WebProber issues HEAD requests over HTTPS and HTTP. Certificate chains are
// not verified; a completed TLS handshake with a non-error status counts as
// valid SSL.
type WebProber struct {
	client    *http.Client
	HTTPSPort int
	HTTPPort  int
}

func NewWebProber(timeout time.Duration) *WebProber {
	transport := &http.Transport{
		TLSClientConfig:       &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
		DisableKeepAlives:     true,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
	}
	return &WebProber{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		HTTPSPort: 443,
		HTTPPort:  80,
	}
}

func (p *WebProber) InspectHTTPS(ctx context.Context, host string) TLSInfo {
	resp, err := p.head(ctx, "https", host, p.HTTPSPort, 443)
	if err != nil {
		log.Debug().Err(err).Str("domain", host).Msg("https probe failed")
		return TLSInfo{}
	}
	defer resp.Body.Close()

	info := TLSInfo{Status: resp.StatusCode}
	if resp.StatusCode >= http.StatusBadRequest {
		return info
	}
	info.Valid = true
	info.Server = resp.Header.Get("Server")
	if state := resp.TLS; state != nil {
		info.Cipher = tls.CipherSuiteName(state.CipherSuite)
		if len(state.PeerCertificates) > 0 {
			cert := state.PeerCertificates[0]
			if len(cert.Issuer.Organization) > 0 {
				info.Issuer = cert.Issuer.Organization[0]
			}
			info.ValidFrom = cert.NotBefore
			info.ValidTo = cert.NotAfter
		}
	}
	return info
}

func (p *WebProber) ServerHeader(ctx context.Context, host string) string {
	resp, err := p.head(ctx, "http", host, p.HTTPPort, 80)
	if err != nil {
		log.Debug().Err(err).Str("domain", host).Msg("http probe failed")
		return ""
	}
	defer resp.Body.Close()
	return resp.Header.Get("Server")
}

func (p *WebProber) head(ctx context.Context, scheme, host string, port, defaultPort int) (*http.Response, error) {
	target := host
	if port != 0 && port != defaultPort {
		target = net.JoinHostPort(host, strconv.Itoa(port))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, scheme+"://"+target+"/", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	return p.client.Do(req)
}
