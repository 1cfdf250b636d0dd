package webhook

import (
	"errors"
	"net"
	"net/url"
	"strings"
)

var (
	// ErrInvalidScheme is returned when URL scheme is not allowed.
	ErrInvalidScheme = errors.New("only HTTPS allowed")
	// ErrPrivateIP is returned when URL resolves to private IP.
	ErrPrivateIP = errors.New("private IP addresses not allowed")
	// ErrLocalhostBlocked is returned when localhost is used.
	ErrLocalhostBlocked = errors.New("localhost not allowed")
	// ErrInvalidPort is returned when non-standard port is used.
	ErrInvalidPort = errors.New("only port 443 allowed")
	// ErrInvalidURL is returned when URL parsing fails.
	ErrInvalidURL = errors.New("invalid URL format")
	// ErrEmptyHost is returned when URL has no host.
	ErrEmptyHost = errors.New("URL must have a host")
)

// BlockedCIDRs contains private/internal IP ranges.
var BlockedCIDRs = []string{
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"127.0.0.0/8",
	"169.254.0.0/16", // link-local
	"0.0.0.0/8",
	"::1/128",
	"fc00::/7",
	"fe80::/10",
}

var blockedNetworks []*net.IPNet

func init() {
	for _, cidr := range BlockedCIDRs {
		_, network, err := net.ParseCIDR(cidr)
		if err == nil {
			blockedNetworks = append(blockedNetworks, network)
		}
	}
}

// URLPolicy decides which notification targets are acceptable.
// The zero value is the strict production policy.
type URLPolicy struct {
	// AllowInsecure permits http, local hosts, private ranges and any port.
	// Used outside production for local receivers.
	AllowInsecure bool
	// lookupIP is swapped in tests.
	lookupIP func(host string) ([]net.IP, error)
}

// PolicyFor returns the policy for an application environment.
func PolicyFor(appEnv string) URLPolicy {
	return URLPolicy{AllowInsecure: appEnv != "production"}
}

// Validate checks a webhook URL.
func (p URLPolicy) Validate(targetURL string) error {
	parsed, err := url.Parse(targetURL)
	if err != nil {
		return ErrInvalidURL
	}

	switch parsed.Scheme {
	case "https":
	case "http":
		if !p.AllowInsecure {
			return ErrInvalidScheme
		}
	default:
		return ErrInvalidScheme
	}

	host := parsed.Hostname()
	if host == "" {
		return ErrEmptyHost
	}
	if p.AllowInsecure {
		return nil
	}

	if isLocalhostHostname(host) {
		return ErrLocalhostBlocked
	}

	lookup := p.lookupIP
	if lookup == nil {
		lookup = net.LookupIP
	}
	// Resolution failures surface at delivery time instead.
	if ips, err := lookup(host); err == nil {
		for _, ip := range ips {
			if isBlockedIP(ip) {
				return ErrPrivateIP
			}
		}
	}

	if port := parsed.Port(); port != "" && port != "443" {
		return ErrInvalidPort
	}
	return nil
}

func isLocalhostHostname(host string) bool {
	host = strings.ToLower(host)
	return host == "localhost" ||
		strings.HasSuffix(host, ".localhost") ||
		strings.HasSuffix(host, ".local") ||
		host == "127.0.0.1" ||
		host == "::1"
}

func isBlockedIP(ip net.IP) bool {
	for _, network := range blockedNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// ExtractHost extracts host from URL for safe logging.
// Webhook URLs carry their secret in the path, so never log them whole.
func ExtractHost(targetURL string) string {
	parsed, err := url.Parse(targetURL)
	if err != nil {
		return "(invalid)"
	}
	return parsed.Host
}
