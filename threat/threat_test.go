package threat

import (
	"net/http"
	"reflect"
	"testing"
)

func req(method, path string, headers map[string]string) *Request {
	h := map[string]string{}
	for k, v := range headers {
		h[k] = v
	}
	ua := h["user-agent"]
	return &Request{
		Method:    method,
		Path:      path,
		Host:      "productos-ai.com",
		UserAgent: ua,
		Headers:   h,
	}
}

func bySubType(ts []Threat, subType string) []Threat {
	out := []Threat{}
	for _, t := range ts {
		if t.SubType == subType {
			out = append(out, t)
		}
	}
	return out
}

func TestPathSignatures(t *testing.T) {
	tests := []struct {
		path     string
		subType  string
		severity string
	}{
		{"/wp-admin/setup-config.php", "wordpress", SeverityMedium},
		{"/xmlrpc.php", "wordpress", SeverityMedium},
		{"/phpmyadmin/index.php", "database", SeverityMedium},
		{"/.env", "dotfile", SeverityHigh},
		{"/.git/config", "dotfile", SeverityHigh},
		{"/uploads/c99.php", "shell", SeverityHigh},
		{"/index.asp", "extension", SeverityLow},
		{"/actuator/health", "actuator", SeverityMedium},
		{"/api/v1/users", "api", SeverityMedium},
		{"/api/admin", "api", SeverityMedium},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			ts := Detect(req(http.MethodGet, tc.path, map[string]string{"user-agent": "Mozilla/5.0"}), DefaultPolicy())
			found := bySubType(ts, tc.subType)
			if len(found) == 0 {
				t.Fatalf("Detect(%s) = %+v, want a %q threat", tc.path, ts, tc.subType)
			}
			if found[0].Severity != tc.severity {
				t.Errorf("severity = %q, want %q", found[0].Severity, tc.severity)
			}
			if found[0].Evidence == "" {
				t.Error("threat missing evidence")
			}
		})
	}
}

func TestSuspiciousMethods(t *testing.T) {
	for _, m := range []string{"PUT", "DELETE", "TRACE", "CONNECT"} {
		ts := Detect(req(m, "/es/home", map[string]string{"user-agent": "Mozilla/5.0"}), DefaultPolicy())
		found := bySubType(ts, "suspicious-method")
		if len(found) != 1 || found[0].Severity != SeverityMedium {
			t.Errorf("method %s: got %+v, want one medium threat", m, found)
		}
	}
	ts := Detect(req("GET", "/es/home", map[string]string{"user-agent": "Mozilla/5.0"}), DefaultPolicy())
	if len(bySubType(ts, "suspicious-method")) != 0 {
		t.Error("GET flagged as suspicious method")
	}
}

func TestSpoofingHeaders(t *testing.T) {
	ts := Detect(req("GET", "/es/home", map[string]string{
		"user-agent":       "Mozilla/5.0",
		"x-originating-ip": "1.2.3.4",
		"x-client-ip":      "5.6.7.8",
	}), DefaultPolicy())
	found := bySubType(ts, "ip-spoofing-header")
	if len(found) != 2 {
		t.Fatalf("got %d spoofing threats, want one per header present", len(found))
	}
	for _, th := range found {
		if th.Severity != SeverityMedium {
			t.Errorf("severity = %q, want medium", th.Severity)
		}
	}
}

func TestForwardedHostPolicy(t *testing.T) {
	pol := DefaultPolicy()
	tests := []struct {
		name      string
		forwarded string
		wantBad   bool
		severity  string
	}{
		{"equals original host", "productos-ai.com", false, ""},
		{"allow-listed", "www.productos-ai.com", false, ""},
		{"wildcard subdomain", "api.productos-ai.com", false, ""},
		{"infra host", "localhost:3000", false, ""},
		{"typosquat", "productos-ia.com", true, SeverityHigh},
		{"injection", "evil.com/<script>", true, SeverityHigh},
		{"unrecognized", "some-other-site.com", true, SeverityMedium},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts := Detect(req("GET", "/es/home", map[string]string{
				"user-agent":       "Mozilla/5.0",
				"x-forwarded-host": tc.forwarded,
			}), pol)
			found := bySubType(ts, "x-forwarded-host-suspicious")
			if !tc.wantBad {
				if len(found) != 0 {
					t.Fatalf("legitimate value %q flagged: %+v", tc.forwarded, found)
				}
				return
			}
			if len(found) != 1 {
				t.Fatalf("got %d forwarded-host threats, want exactly 1", len(found))
			}
			if found[0].Severity != tc.severity {
				t.Errorf("severity = %q, want %q", found[0].Severity, tc.severity)
			}
		})
	}
}

func TestForwardedHostAbsent(t *testing.T) {
	ts := Detect(req("GET", "/es/home", map[string]string{"user-agent": "Mozilla/5.0"}), DefaultPolicy())
	if len(bySubType(ts, "x-forwarded-host-suspicious")) != 0 {
		t.Error("absent x-forwarded-host produced a threat")
	}
}

func TestCrossOriginReferer(t *testing.T) {
	pol := DefaultPolicy()

	ts := Detect(req("GET", "/dashboard/projects", map[string]string{
		"user-agent": "Mozilla/5.0",
		"referer":    "https://evil.example.com/lure",
	}), pol)
	if len(bySubType(ts, "cross-origin-referer")) != 1 {
		t.Error("foreign referer on protected path not flagged")
	}

	// Locale-prefixed protected paths are how real traffic arrives.
	ts = Detect(req("GET", "/es/dashboard/projects", map[string]string{
		"user-agent": "Mozilla/5.0",
		"referer":    "https://evil.example.com/lure",
	}), pol)
	if len(bySubType(ts, "cross-origin-referer")) != 1 {
		t.Error("foreign referer on locale-prefixed protected path not flagged")
	}

	// Canonical-origin referer is fine.
	ts = Detect(req("GET", "/dashboard/projects", map[string]string{
		"user-agent": "Mozilla/5.0",
		"referer":    "https://www.productos-ai.com/es/home",
	}), pol)
	if len(bySubType(ts, "cross-origin-referer")) != 0 {
		t.Error("canonical referer flagged")
	}

	// Foreign referer on an unprotected path is fine.
	ts = Detect(req("GET", "/es/blog", map[string]string{
		"user-agent": "Mozilla/5.0",
		"referer":    "https://evil.example.com/lure",
	}), pol)
	if len(bySubType(ts, "cross-origin-referer")) != 0 {
		t.Error("unprotected path flagged")
	}
}

func TestPathTraversal(t *testing.T) {
	for _, path := range []string{
		"/static/../../etc/passwd",
		"/files/..\\..\\windows\\win.ini",
		"/a/%2e%2e%2fetc/passwd",
		"/a/..%2f..%2fsecret",
	} {
		ts := Detect(req("GET", path, map[string]string{"user-agent": "Mozilla/5.0"}), DefaultPolicy())
		found := bySubType(ts, "traversal")
		if len(found) != 1 {
			t.Fatalf("Detect(%s): got %d traversal threats, want exactly 1", path, len(found))
		}
		if found[0].Severity != SeverityCritical {
			t.Errorf("traversal severity = %q, want critical", found[0].Severity)
		}
	}
}

func TestRiskScoreThreshold(t *testing.T) {
	// wp path (+20) + PUT (+15) + missing UA (+25) = 60 ≥ 40.
	ts := Detect(req("PUT", "/wp-admin/", nil), DefaultPolicy())
	found := bySubType(ts, "risk-score")
	if len(found) != 1 {
		t.Fatalf("got %d risk-score threats, want 1: %+v", len(found), ts)
	}
	if found[0].Severity != SeverityHigh {
		t.Errorf("risk severity = %q, want high", found[0].Severity)
	}
	if found[0].Evidence != "score=60" {
		t.Errorf("risk evidence = %q, want score=60", found[0].Evidence)
	}
	// The signature threats are still present alongside.
	if len(bySubType(ts, "wordpress")) != 1 || len(bySubType(ts, "suspicious-method")) != 1 {
		t.Errorf("expected wordpress and method threats alongside risk score: %+v", ts)
	}
}

func TestRiskScoreBelowThreshold(t *testing.T) {
	// wp path (+20) alone stays under 40.
	ts := Detect(req("GET", "/wp-admin/", map[string]string{"user-agent": "Mozilla/5.0"}), DefaultPolicy())
	if len(bySubType(ts, "risk-score")) != 0 {
		t.Error("risk score fired below threshold")
	}
}

func TestDetectIsPure(t *testing.T) {
	r := req("PUT", "/wp-admin/../x", map[string]string{"x-client-ip": "1.1.1.1"})
	first := Detect(r, DefaultPolicy())
	second := Detect(r, DefaultPolicy())
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Detect not deterministic")
	}
}

func TestCheckOrderIsStable(t *testing.T) {
	// Path findings come before method findings, which come before the
	// trailing risk-score entry.
	ts := Detect(req("PUT", "/wp-admin/", nil), DefaultPolicy())
	var order []string
	for _, th := range ts {
		order = append(order, th.SubType)
	}
	want := []string{"wordpress", "suspicious-method", "risk-score"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestMaxSeverity(t *testing.T) {
	ts := []Threat{
		{Severity: SeverityMedium},
		{Severity: SeverityCritical},
		{Severity: SeverityLow},
	}
	if got := MaxSeverity(ts); got != SeverityCritical {
		t.Errorf("MaxSeverity = %q, want critical", got)
	}
	if got := MaxSeverity(nil); got != "" {
		t.Errorf("MaxSeverity(nil) = %q, want empty", got)
	}
}
