package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RunStatus is the operational progress record of one pipeline run. It is
// observability state only; pipeline results are never written here.
type RunStatus struct {
	Status   string         `json:"status"` // queued|processing|done|error
	Stage    string         `json:"stage"`
	Progress int            `json:"progress"`
	Message  string         `json:"message"`
	Start    *time.Time     `json:"start_time,omitempty"`
	End      *time.Time     `json:"end_time,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Runs stores per-run status records.
type Runs interface {
	Set(ctx context.Context, runID string, st RunStatus) error
	Get(ctx context.Context, runID string) (RunStatus, bool, error)
	Close() error
}

// RedisRuns keeps run status in Redis hashes with a TTL, so abandoned runs
// age out on their own.
type RedisRuns struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRuns(redisURL string, ttl time.Duration) (*RedisRuns, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	c := redis.NewClient(opt)
	if err := c.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisRuns{client: c, ttl: ttl}, nil
}

func (s *RedisRuns) key(runID string) string { return fmt.Sprintf("soe:run:%s:status", runID) }

func (s *RedisRuns) Set(ctx context.Context, runID string, st RunStatus) error {
	m := map[string]any{
		"status":   st.Status,
		"stage":    st.Stage,
		"progress": st.Progress,
		"message":  st.Message,
	}
	if st.Start != nil {
		m["start"] = st.Start.Format(time.RFC3339Nano)
	}
	if st.End != nil {
		m["end"] = st.End.Format(time.RFC3339Nano)
	}
	if st.Metadata != nil {
		b, _ := json.Marshal(st.Metadata)
		m["metadata"] = string(b)
	}
	key := s.key(runID)
	if err := s.client.HSet(ctx, key, m).Err(); err != nil {
		return err
	}
	return s.client.Expire(ctx, key, s.ttl).Err()
}

func (s *RedisRuns) Get(ctx context.Context, runID string) (RunStatus, bool, error) {
	res, err := s.client.HGetAll(ctx, s.key(runID)).Result()
	if err != nil {
		return RunStatus{}, false, err
	}
	if len(res) == 0 {
		return RunStatus{}, false, nil
	}
	st := RunStatus{
		Status:  res["status"],
		Stage:   res["stage"],
		Message: res["message"],
	}
	if v := res["progress"]; v != "" {
		var n int
		fmt.Sscan(v, &n)
		st.Progress = n
	}
	if v := res["start"]; v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			st.Start = &t
		}
	}
	if v := res["end"]; v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			st.End = &t
		}
	}
	if v := res["metadata"]; v != "" {
		_ = json.Unmarshal([]byte(v), &st.Metadata)
	}
	return st, true, nil
}

func (s *RedisRuns) Close() error { return s.client.Close() }

// Ping exposes connectivity for health checks.
func (s *RedisRuns) Ping(ctx context.Context) error { return s.client.Ping(ctx).Err() }

// NoopRuns discards status writes. Used when no Redis is configured; the
// pipeline itself never depends on stored status.
type NoopRuns struct{}

func (NoopRuns) Set(ctx context.Context, runID string, st RunStatus) error { return nil }
func (NoopRuns) Get(ctx context.Context, runID string) (RunStatus, bool, error) {
	return RunStatus{}, false, nil
}
func (NoopRuns) Close() error { return nil }
