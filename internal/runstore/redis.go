package runstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/loopless/loopcheck/internal/models"
)

// DefaultPrefix is the key namespace the agent runtime writes under.
const DefaultPrefix = "loopless"

// RedisStore reads runs the agent runtime stored in Redis: the run document
// at "<prefix>:run:<id>" and its trace events in the list at
// "<prefix>:run:<id>:events".
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to the given Redis URL. An empty prefix falls back
// to DefaultPrefix.
func NewRedisStore(url, prefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisStore{client: redis.NewClient(opts), prefix: prefix}, nil
}

// Close releases the connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) runKey(runID string) string {
	return fmt.Sprintf("%s:run:%s", s.prefix, runID)
}

// LoadRun implements [Store].
func (s *RedisStore) LoadRun(ctx context.Context, runID string) (*models.RunRecord, error) {
	key := s.runKey(runID)

	doc, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
		}
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}

	rawEvents, err := s.client.LRange(ctx, key+":events", 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load events for run %s: %w", runID, err)
	}

	return decodeRun(runID, doc, rawEvents)
}

// ListRecent implements [Store]. It scans the run namespace, skipping event
// lists, and loads up to limit runs. Runs whose documents fail to decode are
// logged and skipped rather than failing the whole listing.
func (s *RedisStore) ListRecent(ctx context.Context, limit int) ([]*models.RunRecord, error) {
	var runs []*models.RunRecord

	iter := s.client.Scan(ctx, 0, s.prefix+":run:*", 0).Iterator()
	for iter.Next(ctx) {
		if limit > 0 && len(runs) >= limit {
			break
		}
		key := iter.Val()
		if strings.Contains(key, ":events") {
			continue
		}

		runID := strings.TrimPrefix(key, s.prefix+":run:")
		run, err := s.LoadRun(ctx, runID)
		if err != nil {
			slog.WarnContext(ctx, "skipping undecodable run", "run_id", runID, "error", err)
			continue
		}
		runs = append(runs, run)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan runs: %w", err)
	}

	return runs, nil
}

// storedRun is the shape of the run document the runtime persists. Metrics
// arrive loosely typed and are decoded separately.
type storedRun struct {
	TaskID   string           `json:"task_id"`
	Mode     string           `json:"mode"`
	Status   string           `json:"status"`
	Metrics  map[string]any   `json:"metrics"`
	Messages []models.Message `json:"messages"`
}

func decodeRun(runID string, doc []byte, rawEvents []string) (*models.RunRecord, error) {
	var stored storedRun
	if err := json.Unmarshal(doc, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode run %s: %w", runID, err)
	}

	metrics, err := models.DecodeRunMetrics(stored.Metrics)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}

	events := make([]models.Event, 0, len(rawEvents))
	for i, raw := range rawEvents {
		var e models.Event
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("failed to decode event %d of run %s: %w", i, runID, err)
		}
		events = append(events, e)
	}

	return &models.RunRecord{
		RunID:    runID,
		TaskID:   stored.TaskID,
		Mode:     stored.Mode,
		Status:   stored.Status,
		Metrics:  metrics,
		Events:   events,
		Messages: stored.Messages,
	}, nil
}
