package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Lintshiwe/CrisisLink2.0-sub001/internal/models"
)

const (
	chatTTL     = 24 * time.Hour
	presenceTTL = 10 * time.Minute
)

// RedisStore handles Redis operations for chat history and agent
// presence. Everything here is a live mirror with a TTL; the DataStore
// remains the durable record.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// Client exposes the underlying client for middleware that shares it.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// chatKey returns the key for an alert's chat history sorted set.
func chatKey(alertID string) string {
	return fmt.Sprintf("alert:%s:chat", alertID)
}

// presenceKey returns the key for an agent's last known fix.
func presenceKey(agentID string) string {
	return fmt.Sprintf("presence:%s", agentID)
}

// AddChatMessage stores a relayed message in the alert's bounded history.
func (s *RedisStore) AddChatMessage(ctx context.Context, msg *models.ChatMessage, limit int) error {
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	key := chatKey(msg.AlertID)

	err = s.client.ZAdd(ctx, key, redis.Z{
		Score:  float64(msg.Timestamp),
		Member: string(data),
	}).Err()
	if err != nil {
		return err
	}

	// Evict oldest entries beyond the window, then refresh TTL
	if limit > 0 {
		s.client.ZRemRangeByRank(ctx, key, 0, int64(-limit-1))
	}
	s.client.Expire(ctx, key, chatTTL)

	return nil
}

// GetChatMessages retrieves messages for an alert, newest first.
func (s *RedisStore) GetChatMessages(ctx context.Context, alertID string, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 {
		limit = 100
	}

	results, err := s.client.ZRevRange(ctx, chatKey(alertID), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, err
	}

	messages := make([]models.ChatMessage, 0, len(results))
	for _, data := range results {
		var msg models.ChatMessage
		if err := json.Unmarshal([]byte(data), &msg); err != nil {
			continue
		}
		messages = append(messages, msg)
	}

	return messages, nil
}

// DeleteChat drops an alert's chat history after archival.
func (s *RedisStore) DeleteChat(ctx context.Context, alertID string) error {
	return s.client.Del(ctx, chatKey(alertID)).Err()
}

// SetAgentPresence mirrors an agent's latest fix for dashboards.
func (s *RedisStore) SetAgentPresence(ctx context.Context, agentID string, sample models.LocationSample) error {
	data, err := json.Marshal(sample)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, presenceKey(agentID), data, presenceTTL).Err()
}

// GetAgentPresence retrieves an agent's latest fix, or nil if the
// presence window has lapsed.
func (s *RedisStore) GetAgentPresence(ctx context.Context, agentID string) (*models.LocationSample, error) {
	data, err := s.client.Get(ctx, presenceKey(agentID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var sample models.LocationSample
	if err := json.Unmarshal(data, &sample); err != nil {
		return nil, err
	}
	return &sample, nil
}
