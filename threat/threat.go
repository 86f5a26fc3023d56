// Package threat inspects a single HTTP request for known attack-surface
// signatures and computes an aggregate risk score. Every check runs
// unconditionally and the result preserves check insertion order.
package threat

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Threat type discriminators.
const (
	TypePath    = "path"
	TypeMethod  = "method"
	TypeHeader  = "header"
	TypeQuery   = "query"
	TypePayload = "payload"
	TypeRate    = "rate"
	TypeAnomaly = "anomaly"
)

// Severity levels, ordered low to critical.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Threat is one detector finding. Evidence is always the offending
// substring or header value so a finding can be traced back to the request.
type Threat struct {
	Type            string `json:"type"`
	SubType         string `json:"subType"`
	Severity        string `json:"severity"`
	Description     string `json:"description"`
	Evidence        string `json:"evidence"`
	SuggestedAction string `json:"suggestedAction,omitempty"`
}

// Request is the detector's view of an inbound request. Headers holds
// lowercase header names.
type Request struct {
	Method    string
	Path      string
	Host      string
	UserAgent string
	Headers   map[string]string
}

// Policy configures the forwarded-host trust decision and the referer
// origin check. Zero-value fields disable the corresponding allowance.
type Policy struct {
	// CanonicalDomain is the apex domain the application serves,
	// e.g. "productos-ai.com". Subdomains of it are trusted.
	CanonicalDomain string
	// AllowedHosts are exact host values accepted in x-forwarded-host.
	AllowedHosts []string
	// InfraHosts are known infrastructure or development hosts/IPs
	// (load balancers, localhost) accepted in x-forwarded-host.
	InfraHosts []string
	// TyposquatPatterns flag look-alike domains as high severity.
	TyposquatPatterns []*regexp.Regexp
}

// DefaultPolicy returns the trust policy for the productos-ai deployment.
func DefaultPolicy() Policy {
	return Policy{
		CanonicalDomain: "productos-ai.com",
		AllowedHosts: []string{
			"productos-ai.com",
			"www.productos-ai.com",
			"staging.productos-ai.com",
		},
		InfraHosts: []string{
			"localhost", "localhost:3000", "127.0.0.1",
			"10.0.0.1", "172.31.0.1",
		},
		TyposquatPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)productos-ia\.`),
			regexp.MustCompile(`(?i)producto-ai\.`),
			regexp.MustCompile(`(?i)productos?-ai\.(?:net|org|info|co)\b`),
			regexp.MustCompile(`(?i)pr0ductos`),
		},
	}
}

// pathSignature is one entry of the ordered path table. Severity is fixed
// per signature, matching order decides nothing beyond output position.
type pathSignature struct {
	subType     string
	pattern     *regexp.Regexp
	severity    string
	description string
	action      string
}

var pathSignatures = []pathSignature{
	{subType: "wordpress", pattern: regexp.MustCompile(`(?i)/(?:wp-admin|wp-login|wp-content|wp-includes|xmlrpc\.php)`), severity: SeverityMedium, description: "WordPress path probing on a non-WordPress application", action: "Monitor source IP for follow-up scans"},
	{subType: "database", pattern: regexp.MustCompile(`(?i)/(?:phpmyadmin|pma|adminer|mysql|dbadmin|myadmin)`), severity: SeverityMedium, description: "Database administration panel probing", action: "Monitor source IP for follow-up scans"},
	{subType: "dotfile", pattern: regexp.MustCompile(`(?i)/(?:\.env|\.git|\.aws|\.ssh|\.htaccess|\.htpasswd|config\.json|config\.ya?ml|credentials)`), severity: SeverityHigh, description: "Attempt to read configuration or secret files", action: "Consider blocking source IP"},
	{subType: "shell", pattern: regexp.MustCompile(`(?i)(?:shell|backdoor|c99|r57|webshell|cmd\.php|eval-stdin)`), severity: SeverityHigh, description: "Webshell or backdoor path probing", action: "Consider blocking source IP"},
	{subType: "extension", pattern: regexp.MustCompile(`(?i)\.(?:php[0-9]?|asp|aspx|jsp|cgi)(?:$|\?)`), severity: SeverityLow, description: "Legacy server-side extension probing", action: "No action needed unless repeated"},
	{subType: "actuator", pattern: regexp.MustCompile(`(?i)/(?:actuator|jmx-console|web-console|jolokia|console|debug|telescope)`), severity: SeverityMedium, description: "Framework management endpoint probing", action: "Monitor source IP for follow-up scans"},
	{subType: "api", pattern: regexp.MustCompile(`(?i)/api/(?:v\d+/)?(?:users?|admin|config|tokens?|keys?|secrets?)`), severity: SeverityMedium, description: "Sensitive API surface probing", action: "Verify caller is an authenticated client"},
}

var suspiciousMethods = map[string]bool{
	"PUT": true, "DELETE": true, "TRACE": true, "CONNECT": true,
}

// Headers commonly used to spoof the client IP seen by naive extractors.
var spoofingHeaders = []string{
	"x-originating-ip", "x-remote-addr", "x-remote-ip", "x-client-ip",
}

var (
	traversalRe       = regexp.MustCompile(`(?i)\.\./|\.\.\\|%2e%2e%2f|%2e%2e/|\.\.%2f|%2e%2e%5c|\.\.%5c`)
	hostInjectionRe   = regexp.MustCompile(`(?i)<script|['"<>]|\.\.|//`)
	sqlExecKeywordRe  = regexp.MustCompile(`(?i)(?:select|union|insert|delete|drop|update|exec|eval)`)
	// Unanchored: protected areas are reached through locale-prefixed
	// paths like /es/dashboard as well as bare ones.
	protectedPathRe = regexp.MustCompile(`/(?:dashboard|admin|api)(?:/|$)`)
)

// Risk score contributions, summed independently of the threat list.
const (
	riskWordPressPath    = 20
	riskSuspiciousMethod = 15
	riskMissingUserAgent = 25
	riskSQLKeyword       = 30
	riskThreshold        = 40
)

// Detect runs every sub-check against req and returns the findings in
// check order. It is pure: two calls with the same request yield the same
// slice, and no input shape can make it fail.
func Detect(req *Request, pol Policy) []Threat {
	threats := []Threat{}

	// 1. Path signature table.
	for _, sig := range pathSignatures {
		if m := sig.pattern.FindString(req.Path); m != "" {
			threats = append(threats, Threat{
				Type:            TypePath,
				SubType:         sig.subType,
				Severity:        sig.severity,
				Description:     sig.description,
				Evidence:        m,
				SuggestedAction: sig.action,
			})
		}
	}

	// 2. Suspicious method.
	if suspiciousMethods[req.Method] {
		threats = append(threats, Threat{
			Type:            TypeMethod,
			SubType:         "suspicious-method",
			Severity:        SeverityMedium,
			Description:     "HTTP method not used by the application",
			Evidence:        req.Method,
			SuggestedAction: "Reject unless the endpoint explicitly supports it",
		})
	}

	// 3. IP-spoofing style headers, one threat per header present.
	for _, h := range spoofingHeaders {
		if v, ok := req.Headers[h]; ok {
			threats = append(threats, Threat{
				Type:            TypeHeader,
				SubType:         "ip-spoofing-header",
				Severity:        SeverityMedium,
				Description:     fmt.Sprintf("Client supplied %s, commonly used to spoof origin IP", h),
				Evidence:        h + ": " + v,
				SuggestedAction: "Ignore the header for IP attribution",
			})
		}
	}

	// 4. Forwarded-host trust policy.
	if fh, ok := req.Headers["x-forwarded-host"]; ok && fh != "" {
		if t, bad := checkForwardedHost(fh, req.Host, pol); bad {
			threats = append(threats, t)
		}
	}

	// 5. Cross-origin referer touching a protected area.
	if ref := req.Headers["referer"]; ref != "" && protectedPathRe.MatchString(req.Path) {
		if !refererMatchesDomain(ref, pol.CanonicalDomain) {
			threats = append(threats, Threat{
				Type:            TypeAnomaly,
				SubType:         "cross-origin-referer",
				Severity:        SeverityMedium,
				Description:     "Protected path reached from a foreign referer",
				Evidence:        ref,
				SuggestedAction: "Verify CSRF protections on the target route",
			})
		}
	}

	// 6. Path traversal, raw or URL-escaped. One finding regardless of
	// how many traversal sequences the path carries.
	if m := traversalRe.FindString(req.Path); m != "" {
		threats = append(threats, Threat{
			Type:            TypePath,
			SubType:         "traversal",
			Severity:        SeverityCritical,
			Description:     "Directory traversal sequence in request path",
			Evidence:        m,
			SuggestedAction: "Block source IP",
		})
	}

	// 7. Composite risk score, accumulated independently of the list above.
	score := 0
	if strings.Contains(strings.ToLower(req.Path), "/wp-") {
		score += riskWordPressPath
	}
	if suspiciousMethods[req.Method] {
		score += riskSuspiciousMethod
	}
	if req.UserAgent == "" {
		score += riskMissingUserAgent
	}
	if sqlExecKeywordRe.MatchString(req.Path) {
		score += riskSQLKeyword
	}
	if score >= riskThreshold {
		threats = append(threats, Threat{
			Type:            TypeAnomaly,
			SubType:         "risk-score",
			Severity:        SeverityHigh,
			Description:     fmt.Sprintf("Aggregate request risk score %d exceeds threshold %d", score, riskThreshold),
			Evidence:        fmt.Sprintf("score=%d", score),
			SuggestedAction: "Correlate with other requests from the same IP",
		})
	}

	return threats
}

// checkForwardedHost classifies an x-forwarded-host value against the
// trust policy. Legitimate values produce no threat; illegitimate values
// produce exactly one, high severity when the value looks like a
// typosquat or carries injection characters.
func checkForwardedHost(forwarded, originalHost string, pol Policy) (Threat, bool) {
	if forwarded == originalHost {
		return Threat{}, false
	}
	for _, h := range pol.AllowedHosts {
		if forwarded == h {
			return Threat{}, false
		}
	}
	if pol.CanonicalDomain != "" && strings.HasSuffix(forwarded, "."+pol.CanonicalDomain) {
		return Threat{}, false
	}
	for _, h := range pol.InfraHosts {
		if forwarded == h {
			return Threat{}, false
		}
	}

	severity := SeverityMedium
	description := "Unrecognized x-forwarded-host value"
	for _, re := range pol.TyposquatPatterns {
		if re.MatchString(forwarded) {
			severity = SeverityHigh
			description = "x-forwarded-host resembles a look-alike of the canonical domain"
			break
		}
	}
	if severity != SeverityHigh && hostInjectionRe.MatchString(forwarded) {
		severity = SeverityHigh
		description = "x-forwarded-host carries injection characters"
	}

	return Threat{
		Type:            TypeHeader,
		SubType:         "x-forwarded-host-suspicious",
		Severity:        severity,
		Description:     description,
		Evidence:        forwarded,
		SuggestedAction: "Serve absolute URLs from the canonical host only",
	}, true
}

func refererMatchesDomain(referer, domain string) bool {
	if domain == "" {
		return false
	}
	u, err := url.Parse(referer)
	if err != nil || u.Host == "" {
		// Unparseable referers count as foreign.
		return false
	}
	host := u.Hostname()
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// SeverityRank maps a severity to its numeric order, low=1 .. critical=4.
// Unknown strings rank 0.
func SeverityRank(s string) int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	}
	return 0
}

// MaxSeverity returns the highest severity among threats, or "" when the
// slice is empty.
func MaxSeverity(threats []Threat) string {
	best := ""
	rank := 0
	for _, t := range threats {
		if r := SeverityRank(t.Severity); r > rank {
			rank = r
			best = t.Severity
		}
	}
	return best
}
