// Package privacy removes credentials and host details from text that leaves
// the process, such as log lines and telemetry events.
package privacy

import (
	"crypto/sha256"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
)

// urlPattern matches URLs with the schemes oscigo talks to
var urlPattern = regexp.MustCompile(`\b(?:https?|wss?|tcp|ssl|tls|mqtts?)://\S+`)

// ScrubMessage replaces every URL in message with its anonymized form
func ScrubMessage(message string) string {
	return urlPattern.ReplaceAllStringFunc(message, AnonymizeURL)
}

// AnonymizeURL returns a stable token for rawURL that keeps the scheme,
// host category and port but hides credentials, host name and path.
// Equal inputs give equal tokens so reports can still be grouped.
func AnonymizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		hash := sha256.Sum256([]byte(rawURL))
		return fmt.Sprintf("url-hash-%x", hash[:8])
	}

	parts := make([]string, 0, 4)
	if u.Scheme != "" {
		parts = append(parts, u.Scheme)
	}
	if host := u.Hostname(); host != "" {
		parts = append(parts, categorizeHost(host))
	}
	if port := u.Port(); port != "" {
		parts = append(parts, "port-"+port)
	}
	if p := strings.Trim(u.Path, "/"); p != "" {
		hash := sha256.Sum256([]byte(p))
		parts = append(parts, fmt.Sprintf("path-%x", hash[:4]))
	}

	hash := sha256.Sum256([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("%s://%s-%x", u.Scheme, categorizeHost(u.Hostname()), hash[:6])
}

// SanitizeBrokerURL strips credentials, path and query from a broker URL,
// keeping scheme, host and port for display. Unparseable input is hashed.
func SanitizeBrokerURL(broker string) string {
	u, err := url.Parse(broker)
	if err != nil || u.Host == "" {
		return AnonymizeURL(broker)
	}
	return u.Scheme + "://" + u.Host
}

// categorizeHost reduces a host to a coarse class
func categorizeHost(host string) string {
	if host == "" {
		return "no-host"
	}
	if host == "localhost" {
		return "localhost"
	}
	if ip := net.ParseIP(host); ip != nil {
		switch {
		case ip.IsLoopback():
			return "localhost"
		case ip.IsPrivate(), ip.IsLinkLocalUnicast():
			return "private-ip"
		default:
			return "public-ip"
		}
	}
	if i := strings.LastIndexByte(host, '.'); i >= 0 && i < len(host)-1 {
		return "domain-" + host[i+1:]
	}
	return "unknown-host"
}
