package middleware

import (
	"net/http"
	"strings"

	"gatewatch/botdetect"
	"gatewatch/geo"
	"gatewatch/metrics"
	"gatewatch/reqinfo"
	"gatewatch/seclog"
	"gatewatch/threat"

	"github.com/prometheus/client_golang/prometheus"
)

// Inspector wires the classifier, detector, geo enrichment and event
// logger into one request-path pipeline. Inspection is observational:
// it records what it sees and always passes the request through. Blocking
// on detected threats belongs to outer layers.
type Inspector struct {
	SecLog *seclog.Logger
	Geo    *geo.Resolver
	Policy threat.Policy
}

// Middleware runs the full inspection synchronously for every request
// except system paths (assets, framework internals, health checks).
func (i *Inspector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqinfo.IsSystemPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		timer := prometheus.NewTimer(metrics.InspectionLatency)
		ip := reqinfo.ClientIP(r)

		bots := botdetect.Detect(r.UserAgent())
		threats := threat.Detect(requestView(r), i.Policy)

		hasSession, hasCSRF := reqinfo.SessionFlags(r)
		in := seclog.Input{
			IP:      ip,
			Bots:    bots,
			Threats: threats,
		}
		if i.Geo != nil {
			in.Country = i.Geo.Country(ip)
		}
		if hasSession || hasCSRF {
			in.AuthInfo = &seclog.AuthInfo{
				HasSessionCookie: hasSession,
				HasCSRFCookie:    hasCSRF,
			}
		}
		i.SecLog.LogEvent(r, in)

		metrics.InspectedRequests.Inc()
		for _, t := range threats {
			metrics.ThreatsDetected.WithLabelValues(t.Type, t.Severity).Inc()
		}
		for _, b := range bots {
			metrics.BotDetections.WithLabelValues(b.Category).Inc()
		}
		timer.ObserveDuration()

		next.ServeHTTP(w, r)
	})
}

// requestView projects an http.Request into the detector's input shape
// with lowercase header names.
func requestView(r *http.Request) *threat.Request {
	headers := make(map[string]string, len(r.Header))
	for name := range r.Header {
		headers[strings.ToLower(name)] = r.Header.Get(name)
	}
	return &threat.Request{
		Method:    r.Method,
		Path:      r.URL.Path,
		Host:      r.Host,
		UserAgent: r.UserAgent(),
		Headers:   headers,
	}
}
