package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"gatewatch/logger"

	"github.com/redis/go-redis/v9"
)

const (
	logKeyspace     = "logs_front"
	counterKeyspace = "ip-rate-limit"
)

// RedisLogStore maps the five-key record layout onto Redis: the record
// body lives at one item key, and each partition key becomes a sorted set
// whose score is the record's millisecond timestamp. Natural expiry comes
// from per-key TTLs mirroring the record's ttl attribute.
type RedisLogStore struct {
	client *redis.Client
}

func NewRedisLogStore(client *redis.Client) *RedisLogStore {
	return &RedisLogStore{client: client}
}

// NewRedisClient dials a Redis instance with the conventions the rest of
// the store package expects.
func NewRedisClient(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
}

func (s *RedisLogStore) itemKey(rec *Record) string {
	return logKeyspace + ":item:" + rec.DatePartition + "#" + rec.TimelineSort
}

func indexKey(partition string) string {
	return logKeyspace + ":idx:" + partition
}

func (s *RedisLogStore) Save(ctx context.Context, rec *Record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		logger.Error("Log record marshal failed", "err", err)
		return fmt.Errorf("marshal record: %w", err)
	}

	item := s.itemKey(rec)
	ttl := time.Until(time.Unix(rec.TTL, 0))
	if ttl <= 0 {
		ttl = time.Minute
	}
	score := float64(rec.Timestamp * 1000)

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, item, body, ttl)
	for _, partition := range []string{
		rec.DatePartition, rec.IPPartition, rec.EventPartition, rec.LevelPartition,
	} {
		idx := indexKey(partition)
		pipe.ZAdd(ctx, idx, redis.Z{Score: score, Member: item})
		pipe.Expire(ctx, idx, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Error("Log record write failed", "key", item, "err", err)
		return fmt.Errorf("save security log: %w", err)
	}
	return nil
}

func (s *RedisLogStore) SaveBatch(ctx context.Context, recs []*Record) error {
	for start := 0; start < len(recs); start += BatchLimit {
		end := start + BatchLimit
		if end > len(recs) {
			end = len(recs)
		}
		for _, rec := range recs[start:end] {
			if err := s.Save(ctx, rec); err != nil {
				logger.Error("Batch write aborted", "written", start, "err", err)
				return fmt.Errorf("batch chunk at %d: %w", start, err)
			}
		}
	}
	return nil
}

func (s *RedisLogStore) QueryByDate(ctx context.Context, date string, limit int, cursor string) (*QueryResult, error) {
	res, err := s.queryIndex(ctx, datePartitionKey(date), limit, cursor)
	if err != nil {
		logger.Error("Query by date failed", "date", date, "err", err)
		return nil, fmt.Errorf("query logs by date %s: %w", date, err)
	}
	return res, nil
}

func (s *RedisLogStore) QueryByIP(ctx context.Context, ip string, limit int, cursor string) (*QueryResult, error) {
	res, err := s.queryIndex(ctx, ipPartitionKey(ip), limit, cursor)
	if err != nil {
		logger.Error("Query by IP failed", "ip", ip, "err", err)
		return nil, fmt.Errorf("query logs by ip %s: %w", ip, err)
	}
	return res, nil
}

func (s *RedisLogStore) QueryByEventType(ctx context.Context, eventType, levelFilter string, limit int, cursor string) (*QueryResult, error) {
	res, err := s.queryIndex(ctx, eventPartitionKey(eventType), limit, cursor)
	if err != nil {
		logger.Error("Query by event type failed", "eventType", eventType, "err", err)
		return nil, fmt.Errorf("query logs by event type %s: %w", eventType, err)
	}
	if levelFilter != "" {
		res.Items = filterByLevel(res.Items, levelFilter)
		// Count stays the pre-filter page size: the level is not part of
		// this index's sort key prefix, so the filter runs after the page
		// is fetched.
	}
	return res, nil
}

func (s *RedisLogStore) QueryByLevel(ctx context.Context, level string, limit int, cursor string) (*QueryResult, error) {
	res, err := s.queryIndex(ctx, levelPartitionKey(level), limit, cursor)
	if err != nil {
		logger.Error("Query by level failed", "level", level, "err", err)
		return nil, fmt.Errorf("query logs by level %s: %w", level, err)
	}
	return res, nil
}

func (s *RedisLogStore) QueryByTimeRange(ctx context.Context, date string, from, to time.Time, limit int, cursor string) (*QueryResult, error) {
	idx := indexKey(datePartitionKey(date))
	offset := int64(0)
	if cursor != "" {
		n, err := strconv.ParseInt(cursor, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("query logs by time range: bad cursor %q", cursor)
		}
		offset = n
	}

	members, err := s.client.ZRevRangeByScore(ctx, idx, &redis.ZRangeBy{
		Min:    strconv.FormatInt(from.UnixMilli(), 10),
		Max:    strconv.FormatInt(to.UnixMilli(), 10),
		Offset: offset,
		Count:  int64(limit),
	}).Result()
	if err != nil {
		logger.Error("Query by time range failed", "date", date, "err", err)
		return nil, fmt.Errorf("query logs by time range %s: %w", date, err)
	}

	items, err := s.fetchItems(ctx, members)
	if err != nil {
		logger.Error("Query by time range fetch failed", "date", date, "err", err)
		return nil, fmt.Errorf("query logs by time range %s: %w", date, err)
	}

	out := &QueryResult{Items: items, Count: len(items)}
	if len(members) == limit {
		out.Cursor = strconv.FormatInt(offset+int64(limit), 10)
	}
	return out, nil
}

func (s *RedisLogStore) StatsByDate(ctx context.Context, date string) (*DateStats, error) {
	idx := indexKey(datePartitionKey(date))
	members, err := s.client.ZRange(ctx, idx, 0, -1).Result()
	if err != nil {
		logger.Error("Stats scan failed", "date", date, "err", err)
		return nil, fmt.Errorf("stats for date %s: %w", date, err)
	}

	items, err := s.fetchItems(ctx, members)
	if err != nil {
		logger.Error("Stats fetch failed", "date", date, "err", err)
		return nil, fmt.Errorf("stats for date %s: %w", date, err)
	}

	return reduceStats(date, items), nil
}

// queryIndex pages one sorted-set index newest first. The cursor is the
// member the previous page ended on; resuming is a rank lookup, which
// stays correct when older members expire between pages.
func (s *RedisLogStore) queryIndex(ctx context.Context, partition string, limit int, cursor string) (*QueryResult, error) {
	idx := indexKey(partition)
	start := int64(0)
	if cursor != "" {
		rank, err := s.client.ZRevRank(ctx, idx, cursor).Result()
		if err == redis.Nil {
			return &QueryResult{Items: []*Record{}}, nil
		}
		if err != nil {
			return nil, err
		}
		start = rank + 1
	}

	members, err := s.client.ZRevRange(ctx, idx, start, start+int64(limit)-1).Result()
	if err != nil {
		return nil, err
	}

	items, err := s.fetchItems(ctx, members)
	if err != nil {
		return nil, err
	}

	out := &QueryResult{Items: items, Count: len(items)}
	if len(members) == limit && len(members) > 0 {
		out.Cursor = members[len(members)-1]
	}
	return out, nil
}

// fetchItems resolves index members to record bodies. Members whose item
// key already expired are skipped, not errors.
func (s *RedisLogStore) fetchItems(ctx context.Context, members []string) ([]*Record, error) {
	if len(members) == 0 {
		return []*Record{}, nil
	}
	raw, err := s.client.MGet(ctx, members...).Result()
	if err != nil {
		return nil, err
	}
	items := make([]*Record, 0, len(raw))
	for _, v := range raw {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(str), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		items = append(items, &rec)
	}
	return items, nil
}

func filterByLevel(items []*Record, level string) []*Record {
	out := make([]*Record, 0, len(items))
	for _, it := range items {
		if it.Level == level {
			out = append(out, it)
		}
	}
	return out
}

func reduceStats(date string, items []*Record) *DateStats {
	stats := &DateStats{
		Date:        date,
		Total:       len(items),
		ByLevel:     make(map[string]int),
		ByEventType: make(map[string]int),
	}
	ips := make(map[string]struct{})
	for _, it := range items {
		stats.ByLevel[it.Level]++
		stats.ByEventType[it.EventType]++
		ips[it.IP] = struct{}{}
	}
	stats.UniqueIPs = len(ips)
	return stats
}

// RedisCounterStore is the rate-limit counter engine. Each key is a hash
// {requestCount, ttl}; the TTL field is checked client-side on read so an
// expired counter reads as zero without being deleted.
type RedisCounterStore struct {
	client *redis.Client
}

func NewRedisCounterStore(client *redis.Client) *RedisCounterStore {
	return &RedisCounterStore{client: client}
}

func counterKey(key string) string {
	return counterKeyspace + ":" + key
}

func (s *RedisCounterStore) GetCount(ctx context.Context, key string) (int64, error) {
	vals, err := s.client.HMGet(ctx, counterKey(key), "requestCount", "ttl").Result()
	if err != nil {
		return 0, fmt.Errorf("get counter %s: %w", key, err)
	}

	count := parseCounterField(vals[0])
	ttl := parseCounterField(vals[1])
	if count == 0 {
		return 0, nil
	}
	if ttl > 0 && time.Now().Unix() > ttl {
		// Expired record treated as empty, left for the engine to reap.
		return 0, nil
	}
	return count, nil
}

func (s *RedisCounterStore) Increment(ctx context.Context, key string, window time.Duration) error {
	k := counterKey(key)
	expiry := time.Now().Add(window)

	pipe := s.client.TxPipeline()
	pipe.HIncrBy(ctx, k, "requestCount", 1)
	pipe.HSet(ctx, k, "ttl", expiry.Unix())
	// Key-level expiry is only a backstop; reads enforce the ttl field.
	pipe.Expire(ctx, k, window*2)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("increment counter %s: %w", key, err)
	}
	return nil
}

func parseCounterField(v any) int64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
