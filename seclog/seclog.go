// Package seclog assembles structured security events from classifier and
// detector output and dispatches them to persistent storage. Its one hard
// rule: observability must never break the request path. Store failures
// are logged and swallowed here, and nowhere else.
package seclog

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"gatewatch/botdetect"
	"gatewatch/logger"
	"gatewatch/metrics"
	"gatewatch/notifier"
	"gatewatch/store"
	"gatewatch/threat"
)

// Log levels, ordered info to critical.
const (
	LevelInfo     = "info"
	LevelWarn     = "warn"
	LevelError    = "error"
	LevelCritical = "critical"
)

// Event types.
const (
	EventRequest        = "request"
	EventSecurityThreat = "security_threat"
	EventBotDetection   = "bot_detection"
	EventAuthFailure    = "auth_failure"
	EventRateLimit      = "rate_limit"
)

// Headers captured into requestInfo. Anything else, cookies and auth
// headers included, never reaches the log.
var headerAllowList = []string{
	"host", "user-agent", "referer", "origin", "accept",
	"accept-language", "accept-encoding", "x-requested-with",
}

// SecurityLog is the unit of persistence: one structured event per
// inspected request. Immutable once built.
type SecurityLog struct {
	Timestamp    string         `json:"timestamp"`
	Level        string         `json:"level"`
	EventType    string         `json:"eventType"`
	ClientInfo   ClientInfo     `json:"clientInfo"`
	RequestInfo  RequestInfo    `json:"requestInfo"`
	SecurityInfo *SecurityInfo  `json:"securityInfo,omitempty"`
	AuthInfo     *AuthInfo      `json:"authInfo,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

type ClientInfo struct {
	IP         string                `json:"ip"`
	UserAgent  string                `json:"userAgent"`
	IsBot      bool                  `json:"isBot"`
	Country    string                `json:"country,omitempty"`
	BotDetails []botdetect.Detection `json:"botDetails,omitempty"`
}

type RequestInfo struct {
	Method   string            `json:"method"`
	Path     string            `json:"path"`
	Host     string            `json:"host"`
	Protocol string            `json:"protocol"`
	Query    string            `json:"query,omitempty"`
	Headers  map[string]string `json:"headers,omitempty"`
}

type SecurityInfo struct {
	Threats        []threat.Threat `json:"threats"`
	RiskLevel      string          `json:"riskLevel"`
	Recommendation string          `json:"recommendation,omitempty"`
}

// AuthInfo records token presence only; tokens are never decoded here.
type AuthInfo struct {
	HasSessionCookie bool   `json:"hasSessionCookie"`
	HasCSRFCookie    bool   `json:"hasCsrfCookie"`
	Outcome          string `json:"outcome,omitempty"`
}

// Input bundles the per-request inspection results for one event.
type Input struct {
	IP       string
	Country  string
	Bots     []botdetect.Detection
	Threats  []threat.Threat
	AuthInfo *AuthInfo
	Metadata map[string]any
}

// Logger builds events and, in production, hands them to a bounded
// background queue draining into the log store. Outside production events
// go to the console only.
type Logger struct {
	production bool
	logs       store.LogStore
	queue      chan *store.Record
	wg         sync.WaitGroup
	closeOnce  sync.Once
}

// QueueSize bounds in-flight store writes so a log storm cannot spawn
// unbounded concurrent writes; overflow drops the event after a log line.
const QueueSize = 1024

// New returns a Logger. logs may be nil when production is false.
func New(production bool, logs store.LogStore) *Logger {
	l := &Logger{
		production: production,
		logs:       logs,
		queue:      make(chan *store.Record, QueueSize),
	}
	if production && logs != nil {
		l.wg.Add(1)
		go l.drain()
	}
	return l
}

// LogEvent assembles the event for one inspected request, emits it to the
// console, and submits it for persistence. It is synchronous, total, and
// never fails the request: every error path ends in a console line.
func (l *Logger) LogEvent(r *http.Request, in Input) *SecurityLog {
	level, eventType := deriveLevelAndType(in.Bots, in.Threats)

	// One clock read feeds both the logged timestamp and the record keys
	// so they cannot straddle a second or date boundary.
	now := time.Now()

	entry := &SecurityLog{
		Timestamp: now.UTC().Format(time.RFC3339),
		Level:     level,
		EventType: eventType,
		ClientInfo: ClientInfo{
			IP:         in.IP,
			UserAgent:  r.UserAgent(),
			IsBot:      len(in.Bots) > 0,
			Country:    in.Country,
			BotDetails: in.Bots,
		},
		RequestInfo: requestInfo(r),
		AuthInfo:    in.AuthInfo,
		Metadata:    in.Metadata,
	}
	if len(in.Threats) > 0 {
		entry.SecurityInfo = &SecurityInfo{
			Threats:        in.Threats,
			RiskLevel:      threat.MaxSeverity(in.Threats),
			Recommendation: recommendation(threat.MaxSeverity(in.Threats)),
		}
	}

	l.emit(entry, now)
	return entry
}

// LogRateLimitEvent records a throttled request as its own event type.
func (l *Logger) LogRateLimitEvent(r *http.Request, ip string, metadata map[string]any) *SecurityLog {
	now := time.Now()
	entry := &SecurityLog{
		Timestamp: now.UTC().Format(time.RFC3339),
		Level:     LevelWarn,
		EventType: EventRateLimit,
		ClientInfo: ClientInfo{
			IP:        ip,
			UserAgent: r.UserAgent(),
		},
		RequestInfo: requestInfo(r),
		Metadata:    metadata,
	}
	l.emit(entry, now)
	return entry
}

func (l *Logger) emit(entry *SecurityLog, now time.Time) {
	l.console(entry)
	if entry.Level == LevelCritical {
		notifier.SendAlert(
			fmt.Sprintf("critical threat from %s on %s %s",
				entry.ClientInfo.IP, entry.RequestInfo.Method, entry.RequestInfo.Path),
			entry.Level,
		)
	}
	if !l.production || l.logs == nil {
		return
	}

	rec, err := store.NewRecord(now, entry.Level, entry.EventType, entry.ClientInfo.IP, entry)
	if err != nil {
		logger.Error("Security log record build failed", "err", err)
		return
	}
	select {
	case l.queue <- rec:
	default:
		metrics.LogQueueDropped.Inc()
		logger.Warn("Security log queue full, event dropped",
			"ip", entry.ClientInfo.IP, "eventType", entry.EventType)
	}
}

func (l *Logger) console(entry *SecurityLog) {
	kv := []any{
		"eventType", entry.EventType,
		"ip", entry.ClientInfo.IP,
		"method", entry.RequestInfo.Method,
		"path", entry.RequestInfo.Path,
	}
	if entry.SecurityInfo != nil {
		kv = append(kv, "threats", len(entry.SecurityInfo.Threats), "riskLevel", entry.SecurityInfo.RiskLevel)
	}
	switch entry.Level {
	case LevelWarn:
		logger.Warn("Security event", kv...)
	case LevelError, LevelCritical:
		logger.Error("Security event", kv...)
	default:
		logger.Info("Security event", kv...)
	}
}

func (l *Logger) drain() {
	defer l.wg.Done()
	for rec := range l.queue {
		// Store errors stop here: a failed write costs one event, never a
		// request.
		if err := l.logs.Save(context.Background(), rec); err != nil {
			metrics.LogWriteFailures.Inc()
			logger.Error("Security log persistence failed", "err", err)
		}
	}
}

// Close flushes the queue and stops the drain goroutine.
func (l *Logger) Close() {
	l.closeOnce.Do(func() {
		close(l.queue)
	})
	l.wg.Wait()
}

// deriveLevelAndType applies the event precedence rules: threats dominate,
// then dangerous bot categories, then any bot, then a plain request.
func deriveLevelAndType(bots []botdetect.Detection, threats []threat.Threat) (string, string) {
	if len(threats) > 0 {
		return severityToLevel(threat.MaxSeverity(threats)), EventSecurityThreat
	}
	if botdetect.IsDangerous(bots) {
		return LevelWarn, EventBotDetection
	}
	if len(bots) > 0 {
		return LevelInfo, EventBotDetection
	}
	return LevelInfo, EventRequest
}

// severityToLevel maps threat severities onto log levels by position:
// low, medium, high, critical become info, warn, error, critical.
func severityToLevel(severity string) string {
	switch severity {
	case threat.SeverityLow:
		return LevelInfo
	case threat.SeverityMedium:
		return LevelWarn
	case threat.SeverityHigh:
		return LevelError
	case threat.SeverityCritical:
		return LevelCritical
	}
	return LevelInfo
}

func recommendation(severity string) string {
	switch severity {
	case threat.SeverityCritical:
		return "Block source IP immediately"
	case threat.SeverityHigh:
		return "Review source IP activity and consider blocking"
	case threat.SeverityMedium:
		return "Monitor source IP for repeated probes"
	}
	return ""
}

func requestInfo(r *http.Request) RequestInfo {
	headers := make(map[string]string)
	for _, h := range headerAllowList {
		if v := r.Header.Get(h); v != "" {
			headers[h] = v
		}
	}
	if r.Host != "" {
		headers["host"] = r.Host
	}

	protocol := "http"
	if r.TLS != nil {
		protocol = "https"
	}
	if fp := r.Header.Get("x-forwarded-proto"); fp != "" {
		protocol = fp
	}

	return RequestInfo{
		Method:   r.Method,
		Path:     r.URL.Path,
		Host:     r.Host,
		Protocol: protocol,
		Query:    r.URL.RawQuery,
		Headers:  headers,
	}
}
