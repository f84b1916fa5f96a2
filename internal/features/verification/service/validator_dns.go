package service

import (
	"context"
	"strings"
	"time"

	"github.com/miekg/dns"

	apperrors "nodeproof-backend/internal/common/errors"
	"nodeproof-backend/internal/features/verification/models"
)

// DNSConfig bounds resolution latency and pins the resolver used for lookups.
type DNSConfig struct {
	Resolver string
	Timeout  time.Duration
}

// dnsTxtValidator validates domain-ownership proofs. A TXT record matching
// the token is not enough on its own: an attacker could verify any domain they
// control. The domain's A/AAAA records must also include the node's registered
// IP, which is what binds the domain to this specific node.
type dnsTxtValidator struct {
	cfg      DNSConfig
	exchange func(ctx context.Context, m *dns.Msg, addr string) (*dns.Msg, error)
}

func NewDNSTxtValidator(cfg DNSConfig) Validator {
	client := &dns.Client{Timeout: cfg.Timeout}
	return &dnsTxtValidator{
		cfg: cfg,
		exchange: func(ctx context.Context, m *dns.Msg, addr string) (*dns.Msg, error) {
			resp, _, err := client.ExchangeContext(ctx, m, addr)
			return resp, err
		},
	}
}

func (v *dnsTxtValidator) Method() models.Method {
	return models.MethodDNSTxt
}

func (v *dnsTxtValidator) Validate(ctx context.Context, ch *models.Challenge, proof, nodeIP string) Result {
	domain := strings.TrimSpace(strings.TrimSuffix(proof, "."))
	if domain == "" || strings.ContainsAny(domain, " /@") {
		return invalid(apperrors.ErrCodeProofFormatInvalid,
			"proof must be a bare domain name")
	}
	if nodeIP == "" {
		return invalid(apperrors.ErrCodeDNSIPMismatch,
			"node has no registered IP on record yet; wait for the crawler to observe it")
	}

	txts, err := v.lookupTXT(ctx, domain)
	if err != nil {
		// Resolution timeouts and failures read as a missing record, not
		// a fatal error; the operator can retry once DNS propagates.
		return invalid(apperrors.ErrCodeDNSRecordMissing,
			"could not resolve TXT records for "+domain+"; check the record and DNS propagation")
	}

	found := false
	for _, txt := range txts {
		if txt == ch.Token {
			found = true
			break
		}
	}
	if !found {
		return invalid(apperrors.ErrCodeDNSRecordMissing,
			"no TXT record on "+domain+" matches the challenge token")
	}

	ips, err := v.lookupIPs(ctx, domain)
	if err != nil || len(ips) == 0 {
		return invalid(apperrors.ErrCodeDNSIPMismatch,
			"TXT record found but "+domain+" has no A/AAAA records")
	}
	for _, ip := range ips {
		if ip == nodeIP {
			return Result{Valid: true}
		}
	}
	return invalid(apperrors.ErrCodeDNSIPMismatch,
		"TXT record found but "+domain+" does not resolve to your node's IP")
}

func (v *dnsTxtValidator) lookupTXT(ctx context.Context, domain string) ([]string, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(domain), dns.TypeTXT)

	resp, err := v.exchange(ctx, m, v.cfg.Resolver)
	if err != nil {
		return nil, err
	}

	var values []string
	for _, rr := range resp.Answer {
		if txt, ok := rr.(*dns.TXT); ok {
			// Multi-chunk TXT records are one logical value.
			values = append(values, strings.Join(txt.Txt, ""))
		}
	}
	return values, nil
}

func (v *dnsTxtValidator) lookupIPs(ctx context.Context, domain string) ([]string, error) {
	var ips []string
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		m := new(dns.Msg)
		m.SetQuestion(dns.Fqdn(domain), qtype)

		resp, err := v.exchange(ctx, m, v.cfg.Resolver)
		if err != nil {
			return nil, err
		}
		for _, rr := range resp.Answer {
			switch rec := rr.(type) {
			case *dns.A:
				ips = append(ips, rec.A.String())
			case *dns.AAAA:
				ips = append(ips, rec.AAAA.String())
			}
		}
	}
	return ips, nil
}
