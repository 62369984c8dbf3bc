package builder

import (
	"errors"
	"math"
	"net/netip"
	"net/url"
	"strconv"
	"strings"
)

// Schemes whose URLs always carry an authority. file is special but may
// have an empty host.
var specialSchemes = map[string]bool{
	"http":  true,
	"https": true,
	"ws":    true,
	"wss":   true,
	"ftp":   true,
	"file":  true,
}

// ValidateURL reports whether raw parses as an absolute URL the way a
// browser's URL constructor accepts it. Leading and trailing control
// characters and spaces are ignored, as are tabs and newlines anywhere.
// Paths, queries and fragments are never rejected since the browser
// percent-encodes whatever they contain.
func ValidateURL(raw string) bool {
	s := strings.TrimFunc(raw, func(r rune) bool { return r <= ' ' })
	s = strings.NewReplacer("\t", "", "\n", "", "\r", "").Replace(s)
	if s == "" {
		return false
	}

	scheme, rest, ok := splitScheme(s)
	if !ok {
		return false
	}

	switch {
	case scheme == "file":
		return true
	case specialSchemes[scheme]:
		// http:example.com and https:/example.com both reach the host.
		rest = strings.TrimLeft(rest, `/\`)
		return validAuthority(cutAuthority(rest, `/\?#`), true)
	case strings.HasPrefix(rest, "//"):
		return validAuthority(cutAuthority(rest[2:], "/?#"), false)
	default:
		return true
	}
}

// splitScheme returns the lowercased scheme and everything after its colon.
func splitScheme(s string) (scheme, rest string, ok bool) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case isAlpha(c):
		case i > 0 && (isDigit(c) || c == '+' || c == '-' || c == '.'):
		case i > 0 && c == ':':
			return strings.ToLower(s[:i]), s[i+1:], true
		default:
			return "", "", false
		}
	}
	return "", "", false
}

func cutAuthority(s, terminators string) string {
	if i := strings.IndexAny(s, terminators); i >= 0 {
		return s[:i]
	}
	return s
}

func validAuthority(auth string, special bool) bool {
	hostport := auth
	hasCredentials := false
	if i := strings.LastIndexByte(auth, '@'); i >= 0 {
		hostport = auth[i+1:]
		hasCredentials = true
	}

	host, port, hasPort, ok := splitHostPort(hostport)
	if !ok || !validPort(port) {
		return false
	}
	if host == "" {
		return !special && !hasCredentials && !hasPort
	}
	if strings.HasPrefix(host, "[") {
		return validIPv6(host[1 : len(host)-1])
	}
	if special {
		return validDomain(host)
	}
	return !strings.ContainsAny(host, "\x00 #/:<>?@[\\]^|")
}

func splitHostPort(hostport string) (host, port string, hasPort, ok bool) {
	if strings.HasPrefix(hostport, "[") {
		end := strings.IndexByte(hostport, ']')
		if end < 0 {
			return "", "", false, false
		}
		host, after := hostport[:end+1], hostport[end+1:]
		if after == "" {
			return host, "", false, true
		}
		if after[0] != ':' {
			return "", "", false, false
		}
		return host, after[1:], true, true
	}
	if i := strings.IndexByte(hostport, ':'); i >= 0 {
		return hostport[:i], hostport[i+1:], true, true
	}
	return hostport, "", false, true
}

// validPort accepts an empty port or a decimal number up to 65535.
func validPort(port string) bool {
	if port == "" {
		return true
	}
	for i := 0; i < len(port); i++ {
		if !isDigit(port[i]) {
			return false
		}
	}
	port = strings.TrimLeft(port, "0")
	if len(port) > 5 {
		return false
	}
	n, _ := strconv.Atoi("0" + port)
	return n <= 65535
}

func validIPv6(addr string) bool {
	if strings.Contains(addr, "%") {
		return false
	}
	ip, err := netip.ParseAddr(addr)
	return err == nil && ip.Is6()
}

// validDomain checks a special-scheme host after percent-decoding it.
// A host ending in a numeric label must be a well-formed IPv4 address.
func validDomain(host string) bool {
	decoded, err := url.PathUnescape(host)
	if err != nil || decoded == "" {
		return false
	}
	for i := 0; i < len(decoded); i++ {
		c := decoded[i]
		if c <= ' ' || c == 0x7f || strings.IndexByte("#%/:<>?@[\\]^|", c) >= 0 {
			return false
		}
	}
	if endsInNumber(decoded) {
		return validIPv4(decoded)
	}
	return true
}

func endsInNumber(host string) bool {
	labels := strings.Split(host, ".")
	last := labels[len(labels)-1]
	if last == "" {
		if len(labels) == 1 {
			return false
		}
		last = labels[len(labels)-2]
	}
	if last != "" && strings.Trim(last, "0123456789") == "" {
		return true
	}
	_, ok := parseIPv4Number(last)
	return ok
}

// validIPv4 accepts one to four dot-separated parts in decimal, octal or
// hex, where every part but the last fits a byte and the last fills the
// remaining bytes.
func validIPv4(host string) bool {
	parts := strings.Split(host, ".")
	if parts[len(parts)-1] == "" && len(parts) > 1 {
		parts = parts[:len(parts)-1]
	}
	if len(parts) > 4 {
		return false
	}
	for i, p := range parts {
		n, ok := parseIPv4Number(p)
		if !ok {
			return false
		}
		if i < len(parts)-1 {
			if n > 255 {
				return false
			}
			continue
		}
		if n >= 1<<(8*(5-len(parts))) {
			return false
		}
	}
	return true
}

func parseIPv4Number(p string) (uint64, bool) {
	if p == "" {
		return 0, false
	}
	base := 10
	switch {
	case len(p) >= 2 && (p[:2] == "0x" || p[:2] == "0X"):
		p, base = p[2:], 16
		if p == "" {
			return 0, true
		}
	case len(p) >= 2 && p[0] == '0':
		p, base = p[1:], 8
	}
	n, err := strconv.ParseUint(p, base, 64)
	if errors.Is(err, strconv.ErrRange) {
		// Still a number, just too large for any address.
		return math.MaxUint64, true
	}
	return n, err == nil
}

func isAlpha(c byte) bool { return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' }
func isDigit(c byte) bool { return '0' <= c && c <= '9' }
