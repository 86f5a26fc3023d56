package store

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestNewRecordKeyLayouts(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 9, 26, 535_000_000, time.UTC)
	rec, err := NewRecord(now, "warn", "security_threat", "203.0.113.9", map[string]string{"k": "v"})
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}

	if rec.DatePartition != "DATE#2026-03-14" {
		t.Errorf("datePartition = %q", rec.DatePartition)
	}
	wantSort := "TIME#2026-03-14T15:09:26.535Z#203.0.113.9#security_threat#warn"
	if rec.TimelineSort != wantSort {
		t.Errorf("timelineSort = %q, want %q", rec.TimelineSort, wantSort)
	}
	if rec.IPPartition != "IP#203.0.113.9" || rec.IPTimestamp != "TIME#2026-03-14T15:09:26.535Z" {
		t.Errorf("ip keys = %q / %q", rec.IPPartition, rec.IPTimestamp)
	}
	if rec.EventPartition != "EVENT#security_threat" || !strings.HasSuffix(rec.EventTimestamp, "#warn") {
		t.Errorf("event keys = %q / %q", rec.EventPartition, rec.EventTimestamp)
	}
	if rec.LevelPartition != "LEVEL#warn" || !strings.HasSuffix(rec.LevelTimestamp, "#203.0.113.9") {
		t.Errorf("level keys = %q / %q", rec.LevelPartition, rec.LevelTimestamp)
	}

	if rec.Timestamp != now.Unix() {
		t.Errorf("timestamp = %d, want %d", rec.Timestamp, now.Unix())
	}
	if rec.FormattedDate != "2026-03-14" {
		t.Errorf("formattedDate = %q", rec.FormattedDate)
	}
	if got, want := rec.TTL, now.Add(DefaultTTL).Unix(); got != want {
		t.Errorf("ttl = %d, want %d (90 days out)", got, want)
	}
}

func TestNewRecordStripsAbsentFields(t *testing.T) {
	type payload struct {
		Always string  `json:"always"`
		Maybe  *string `json:"maybe,omitempty"`
	}
	rec, err := NewRecord(time.Now(), "info", "request", "1.1.1.1", payload{Always: "x"})
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(rec.LogData, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := m["maybe"]; ok {
		t.Error("absent optional field survived serialization")
	}
}

func TestTimelineSortOrdersChronologically(t *testing.T) {
	earlier, _ := NewRecord(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC), "info", "request", "1.1.1.1", nil)
	later, _ := NewRecord(time.Date(2026, 3, 14, 17, 0, 0, 0, time.UTC), "info", "request", "1.1.1.1", nil)
	if !(earlier.TimelineSort < later.TimelineSort) {
		t.Errorf("sort keys not chronological: %q vs %q", earlier.TimelineSort, later.TimelineSort)
	}
}
