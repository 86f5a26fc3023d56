package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gatewatch/seclog"
	"gatewatch/store"
	"gatewatch/threat"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func today() string {
	return time.Now().UTC().Format("2006-01-02")
}

func TestInspectionPersistsEvent(t *testing.T) {
	logs := store.NewLocalLogStore()
	secLog := seclog.New(true, logs)
	ins := &Inspector{SecLog: secLog, Policy: threat.DefaultPolicy()}

	srv := httptest.NewServer(ins.Middleware(okHandler()))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/wp-admin/", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 AppleWebKit/537.36")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("inspection blocked the request: %d", resp.StatusCode)
	}

	secLog.Close()
	res, err := logs.QueryByEventType(context.Background(), seclog.EventSecurityThreat, "", 10, "")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(res.Items) != 1 {
		t.Fatalf("persisted %d security_threat events, want 1", len(res.Items))
	}
	if res.Items[0].Level != seclog.LevelWarn {
		t.Errorf("level = %q, want warn for the wordpress probe", res.Items[0].Level)
	}
}

func TestSystemPathsSkipInspection(t *testing.T) {
	logs := store.NewLocalLogStore()
	secLog := seclog.New(true, logs)
	ins := &Inspector{SecLog: secLog, Policy: threat.DefaultPolicy()}

	srv := httptest.NewServer(ins.Middleware(okHandler()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/favicon.ico")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()

	secLog.Close()
	stats, err := logs.StatsByDate(context.Background(), today())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 0 {
		t.Errorf("system path produced %d events", stats.Total)
	}
}

func TestInspectionObservesOnly(t *testing.T) {
	// Even a critical traversal finding passes through: blocking is the
	// caller's policy, not the inspector's.
	secLog := seclog.New(false, nil)
	ins := &Inspector{SecLog: secLog, Policy: threat.DefaultPolicy()}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/files/../../etc/passwd", nil)
	ins.Middleware(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 pass-through", rec.Code)
	}
}
