package store

import (
	"encoding/json"
	"fmt"
	"time"
)

// DefaultTTL is how long a security log record survives in storage.
const DefaultTTL = 90 * 24 * time.Hour

// sortTimeLayout is fixed-width UTC so lexical order equals time order
// inside the composite sort keys.
const sortTimeLayout = "2006-01-02T15:04:05.000Z"

// Record is the persisted projection of one security log. It carries five
// redundant key layouts so four query patterns (by date, by IP, by event
// type, by level) resolve without scanning: a denormalization strategy for
// key-value engines without flexible secondary indexes.
type Record struct {
	DatePartition  string `json:"datePartition"`
	TimelineSort   string `json:"timelineSort"`
	IPPartition    string `json:"ipPartition"`
	IPTimestamp    string `json:"ipTimestamp"`
	EventPartition string `json:"eventPartition"`
	EventTimestamp string `json:"eventTimestamp"`
	LevelPartition string `json:"levelPartition"`
	LevelTimestamp string `json:"levelTimestamp"`

	Timestamp     int64           `json:"timestamp"`
	FormattedDate string          `json:"formattedDate"`
	TTL           int64           `json:"ttl"`
	Level         string          `json:"level"`
	EventType     string          `json:"eventType"`
	IP            string          `json:"ip"`
	LogData       json.RawMessage `json:"logData"`
}

// NewRecord builds the full key layout for one log write. logData is
// marshalled through JSON, which also drops absent optional fields the
// underlying engine would reject.
func NewRecord(now time.Time, level, eventType, ip string, logData any) (*Record, error) {
	data, err := json.Marshal(logData)
	if err != nil {
		return nil, fmt.Errorf("marshal log data: %w", err)
	}

	utc := now.UTC()
	ts := utc.Format(sortTimeLayout)
	date := utc.Format("2006-01-02")

	return &Record{
		DatePartition:  "DATE#" + date,
		TimelineSort:   fmt.Sprintf("TIME#%s#%s#%s#%s", ts, ip, eventType, level),
		IPPartition:    "IP#" + ip,
		IPTimestamp:    "TIME#" + ts,
		EventPartition: "EVENT#" + eventType,
		EventTimestamp: fmt.Sprintf("TIME#%s#%s", ts, level),
		LevelPartition: "LEVEL#" + level,
		LevelTimestamp: fmt.Sprintf("TIME#%s#%s", ts, ip),
		Timestamp:      utc.Unix(),
		FormattedDate:  date,
		TTL:            utc.Add(DefaultTTL).Unix(),
		Level:          level,
		EventType:      eventType,
		IP:             ip,
		LogData:        data,
	}, nil
}

// QueryResult is one page of records, most recent first. Cursor is opaque;
// pass it back to continue the page sequence. Count is the page size
// before any client-side filtering.
type QueryResult struct {
	Items  []*Record `json:"items"`
	Cursor string    `json:"cursor,omitempty"`
	Count  int       `json:"count"`
}

// DateStats is the reduction of one full date partition.
type DateStats struct {
	Date        string         `json:"date"`
	Total       int            `json:"total"`
	ByLevel     map[string]int `json:"byLevel"`
	ByEventType map[string]int `json:"byEventType"`
	UniqueIPs   int            `json:"uniqueIPs"`
}

func datePartitionKey(date string) string   { return "DATE#" + date }
func ipPartitionKey(ip string) string       { return "IP#" + ip }
func eventPartitionKey(ev string) string    { return "EVENT#" + ev }
func levelPartitionKey(level string) string { return "LEVEL#" + level }
