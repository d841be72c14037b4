package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/ruteri/diplomachain/interfaces"
)

const (
	// DNSLabel is inserted between the network key and the zone.
	DNSLabel = "_diplomachain"

	// DefaultDNSServer is the local stub resolver.
	DefaultDNSServer = "127.0.0.53:53"

	dnsRegistryField = "registry="
)

// DNSBackend serves registry address overrides published as TXT records:
//
//	localhost._diplomachain.example.org. TXT "registry=0x5FbDB2315678afecb367f032d93F642f64180aa3"
//
// It only answers keys under AddressKeyPrefix and is read-only.
type DNSBackend struct {
	client      *dns.Client
	server      string
	zone        string
	log         *slog.Logger
	locationURI string
}

// NewDNSBackend creates a DNS backend querying server for records under zone.
func NewDNSBackend(server, zone string, timeout time.Duration, log *slog.Logger) (*DNSBackend, error) {
	zone = strings.Trim(zone, ".")
	if zone == "" {
		return nil, fmt.Errorf("%w: DNS zone is required", interfaces.ErrInvalidLocationURI)
	}
	if server == "" {
		server = DefaultDNSServer
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &DNSBackend{
		client:      &dns.Client{Net: "udp", Timeout: timeout},
		server:      server,
		zone:        dns.Fqdn(zone),
		log:         log,
		locationURI: fmt.Sprintf("dns://%s/%s", server, zone),
	}, nil
}

// RecordName returns the TXT record name holding the registry address of networkKey.
func (b *DNSBackend) RecordName(networkKey string) string {
	return dns.Fqdn(fmt.Sprintf("%s.%s.%s", networkKey, DNSLabel, strings.TrimSuffix(b.zone, ".")))
}

// Fetch resolves registry-address/<network> keys. The value is the textual
// address from the first "registry=" TXT string.
func (b *DNSBackend) Fetch(ctx context.Context, key string) ([]byte, error) {
	clean, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	networkKey, ok := strings.CutPrefix(clean, AddressKeyPrefix)
	if !ok || networkKey == "" || strings.Contains(networkKey, "/") {
		return nil, interfaces.ErrContentNotFound
	}

	name := b.RecordName(networkKey)
	m := new(dns.Msg)
	m.SetQuestion(name, dns.TypeTXT)
	m.RecursionDesired = true

	in, _, err := b.client.ExchangeContext(ctx, m, b.server)
	if err != nil {
		b.log.Debug("DNS query failed", slog.String("name", name), "err", err)
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	if in.Rcode == dns.RcodeNameError {
		return nil, interfaces.ErrContentNotFound
	}
	if in.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("%w: DNS answered %s", interfaces.ErrBackendUnavailable, dns.RcodeToString[in.Rcode])
	}

	for _, answer := range in.Answer {
		txt, ok := answer.(*dns.TXT)
		if !ok {
			continue
		}
		for _, s := range txt.Txt {
			if value, ok := strings.CutPrefix(s, dnsRegistryField); ok {
				b.log.Debug("Resolved registry address from DNS",
					slog.String("name", name),
					slog.String("value", value))
				return []byte(value), nil
			}
		}
	}

	return nil, interfaces.ErrContentNotFound
}

// Store always fails, DNS records are published out of band.
func (b *DNSBackend) Store(ctx context.Context, key string, data []byte) error {
	return fmt.Errorf("%w: %s", interfaces.ErrReadOnlyBackend, b.Name())
}

// Available checks that the server answers an SOA query for the zone.
func (b *DNSBackend) Available(ctx context.Context) bool {
	m := new(dns.Msg)
	m.SetQuestion(b.zone, dns.TypeSOA)

	if _, _, err := b.client.ExchangeContext(ctx, m, b.server); err != nil {
		b.log.Debug("DNS backend unavailable", slog.String("server", b.server), "err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this storage backend.
func (b *DNSBackend) Name() string {
	return fmt.Sprintf("dns-%s", strings.TrimSuffix(b.zone, "."))
}

// LocationURI returns the URI that identifies this storage backend.
func (b *DNSBackend) LocationURI() string {
	return b.locationURI
}
