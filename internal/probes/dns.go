package probes

import (
	"context"
	"net"
	"time"

	"github.com/miekg/dns"
	"github.com/rs/zerolog/log"
)

const fallbackResolver = "1.1.1.1:53"

// DNSResolver queries A then AAAA records against one or more recursive
// resolvers.
type DNSResolver struct {
	client  *dns.Client
	servers []string
}

// NewDNSResolver uses server when set, otherwise the system resolv.conf.
func NewDNSResolver(server string, timeout time.Duration) *DNSResolver {
	return &DNSResolver{
		client:  &dns.Client{Net: "udp", Timeout: timeout},
		servers: resolverAddrs(server),
	}
}

func resolverAddrs(server string) []string {
	if server != "" {
		if _, _, err := net.SplitHostPort(server); err != nil {
			server = net.JoinHostPort(server, "53")
		}
		return []string{server}
	}
	conf, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || len(conf.Servers) == 0 {
		return []string{fallbackResolver}
	}
	out := make([]string, 0, len(conf.Servers))
	for _, s := range conf.Servers {
		out = append(out, net.JoinHostPort(s, conf.Port))
	}
	return out
}

func (r *DNSResolver) Resolve(ctx context.Context, host string) string {
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		addr, nxdomain := r.query(ctx, host, qtype)
		if addr != "" {
			log.Debug().Str("domain", host).Str("address", addr).Msg("dns lookup succeeded")
			return addr
		}
		if nxdomain || ctx.Err() != nil {
			break
		}
	}
	log.Debug().Str("domain", host).Msg("dns lookup found no address")
	return ""
}

func (r *DNSResolver) query(ctx context.Context, host string, qtype uint16) (addr string, nxdomain bool) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(host), qtype)
	m.RecursionDesired = true

	for _, server := range r.servers {
		in, _, err := r.client.ExchangeContext(ctx, m, server)
		if err != nil {
			log.Debug().Err(err).Str("domain", host).Str("resolver", server).Msg("dns exchange failed")
			if ctx.Err() != nil {
				return "", false
			}
			continue
		}
		switch in.Rcode {
		case dns.RcodeNameError:
			return "", true
		case dns.RcodeSuccess:
		default:
			continue
		}
		for _, rr := range in.Answer {
			switch v := rr.(type) {
			case *dns.A:
				return v.A.String(), false
			case *dns.AAAA:
				return v.AAAA.String(), false
			}
		}
		return "", false
	}
	return "", false
}
