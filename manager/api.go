// Package manager exposes the internal operations API: read-only access
// to the security log store for dashboards and on-call tooling. It binds
// to the management port only, never the public listener.
package manager

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"gatewatch/logger"
	"gatewatch/store"
)

type OpsAPI struct {
	Logs store.LogStore
}

func NewOpsAPI(logs store.LogStore) *OpsAPI {
	return &OpsAPI{Logs: logs}
}

func (api *OpsAPI) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/status", api.handleStatus)
	mux.HandleFunc("/api/logs", api.handleLogs)
	mux.HandleFunc("/api/stats", api.handleStats)
}

func (api *OpsAPI) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "active",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleLogs serves one page of security logs. Exactly one of the query
// parameters date, ip, event or level selects the index; limit and cursor
// page through it.
func (api *OpsAPI) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	limit := 50
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 && n <= 200 {
		limit = n
	}
	cursor := q.Get("cursor")
	ctx := r.Context()

	var (
		res *store.QueryResult
		err error
	)
	switch {
	case q.Get("date") != "":
		res, err = api.Logs.QueryByDate(ctx, q.Get("date"), limit, cursor)
	case q.Get("ip") != "":
		res, err = api.Logs.QueryByIP(ctx, q.Get("ip"), limit, cursor)
	case q.Get("event") != "":
		res, err = api.Logs.QueryByEventType(ctx, q.Get("event"), q.Get("level"), limit, cursor)
	case q.Get("level") != "":
		res, err = api.Logs.QueryByLevel(ctx, q.Get("level"), limit, cursor)
	default:
		http.Error(w, "One of date, ip, event or level is required", http.StatusBadRequest)
		return
	}
	if err != nil {
		logger.Error("Ops log query failed", "err", err)
		http.Error(w, "Query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (api *OpsAPI) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}
	stats, err := api.Logs.StatsByDate(r.Context(), date)
	if err != nil {
		logger.Error("Ops stats query failed", "date", date, "err", err)
		http.Error(w, "Stats query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
