package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"
)

// LocalLogStore keeps records in memory with the same query semantics as
// the Redis store. Used when no Redis address is configured and by tests.
type LocalLogStore struct {
	mu      sync.RWMutex
	records []*Record
}

func NewLocalLogStore() *LocalLogStore {
	return &LocalLogStore{}
}

func (r *Record) identity() string {
	return r.DatePartition + "#" + r.TimelineSort
}

func (s *LocalLogStore) Save(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *LocalLogStore) SaveBatch(ctx context.Context, recs []*Record) error {
	for start := 0; start < len(recs); start += BatchLimit {
		end := start + BatchLimit
		if end > len(recs) {
			end = len(recs)
		}
		for _, rec := range recs[start:end] {
			if err := s.Save(ctx, rec); err != nil {
				return fmt.Errorf("batch chunk at %d: %w", start, err)
			}
		}
	}
	return nil
}

// live returns unexpired records matching pred, newest first.
func (s *LocalLogStore) live(pred func(*Record) bool) []*Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now().Unix()
	out := make([]*Record, 0)
	for _, rec := range s.records {
		if rec.TTL <= now {
			continue
		}
		if pred(rec) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp > out[j].Timestamp
		}
		return out[i].TimelineSort > out[j].TimelineSort
	})
	return out
}

// page applies identity-cursor pagination over an already-sorted slice.
func page(matched []*Record, limit int, cursor string) *QueryResult {
	start := 0
	if cursor != "" {
		found := false
		for i, rec := range matched {
			if rec.identity() == cursor {
				start = i + 1
				found = true
				break
			}
		}
		if !found {
			return &QueryResult{Items: []*Record{}}
		}
	}

	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	items := matched[start:end]

	out := &QueryResult{Items: items, Count: len(items)}
	if len(items) == limit && len(items) > 0 {
		out.Cursor = items[len(items)-1].identity()
	}
	return out
}

func (s *LocalLogStore) QueryByDate(_ context.Context, date string, limit int, cursor string) (*QueryResult, error) {
	key := datePartitionKey(date)
	return page(s.live(func(r *Record) bool { return r.DatePartition == key }), limit, cursor), nil
}

func (s *LocalLogStore) QueryByIP(_ context.Context, ip string, limit int, cursor string) (*QueryResult, error) {
	key := ipPartitionKey(ip)
	return page(s.live(func(r *Record) bool { return r.IPPartition == key }), limit, cursor), nil
}

func (s *LocalLogStore) QueryByEventType(_ context.Context, eventType, levelFilter string, limit int, cursor string) (*QueryResult, error) {
	key := eventPartitionKey(eventType)
	res := page(s.live(func(r *Record) bool { return r.EventPartition == key }), limit, cursor)
	if levelFilter != "" {
		// Post-filter; Count intentionally keeps the pre-filter page size.
		res.Items = filterByLevel(res.Items, levelFilter)
	}
	return res, nil
}

func (s *LocalLogStore) QueryByLevel(_ context.Context, level string, limit int, cursor string) (*QueryResult, error) {
	key := levelPartitionKey(level)
	return page(s.live(func(r *Record) bool { return r.LevelPartition == key }), limit, cursor), nil
}

func (s *LocalLogStore) QueryByTimeRange(_ context.Context, date string, from, to time.Time, limit int, cursor string) (*QueryResult, error) {
	key := datePartitionKey(date)
	lo, hi := from.Unix(), to.Unix()
	matched := s.live(func(r *Record) bool {
		return r.DatePartition == key && r.Timestamp >= lo && r.Timestamp <= hi
	})

	offset := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil {
			return nil, fmt.Errorf("query logs by time range: bad cursor %q", cursor)
		}
		offset = n
	}
	if offset > len(matched) {
		offset = len(matched)
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	items := matched[offset:end]

	out := &QueryResult{Items: items, Count: len(items)}
	if len(items) == limit {
		out.Cursor = strconv.Itoa(end)
	}
	return out, nil
}

func (s *LocalLogStore) StatsByDate(_ context.Context, date string) (*DateStats, error) {
	key := datePartitionKey(date)
	items := s.live(func(r *Record) bool { return r.DatePartition == key })
	return reduceStats(date, items), nil
}

// LocalCounterStore mirrors the counter engine in memory.
type LocalCounterStore struct {
	mu       sync.Mutex
	counters map[string]*localCounter
}

type localCounter struct {
	count int64
	ttl   int64
}

func NewLocalCounterStore() *LocalCounterStore {
	return &LocalCounterStore{counters: make(map[string]*localCounter)}
}

func (s *LocalCounterStore) GetCount(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[key]
	if !ok {
		return 0, nil
	}
	if c.ttl > 0 && time.Now().Unix() > c.ttl {
		// Expired counters read as zero but stay in place, matching the
		// remote engine's client-side expiry check.
		return 0, nil
	}
	return c.count, nil
}

func (s *LocalCounterStore) Increment(_ context.Context, key string, window time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[key]
	if !ok {
		c = &localCounter{}
		s.counters[key] = c
	}
	c.count++
	c.ttl = time.Now().Add(window).Unix()
	return nil
}
