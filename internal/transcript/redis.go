package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xperiencelabs/archat/internal/interfaces"
	"github.com/xperiencelabs/archat/internal/logging"
)

const (
	keyPrefix     = "archat:conversation:"
	indexKey      = "archat:conversations"
	metaSuffix    = ":meta"
	fieldSession  = "session_id"
	fieldStarted  = "started_at"
	fieldUpdated  = "updated_at"
	defaultTTLDay = 24 * time.Hour
)

// RedisStore keeps each conversation as a list of JSON messages with a metadata
// hash next to it and a sorted-set index ordered by last activity.
type RedisStore struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewRedisStore connects lazily to the server named by cfg. A zero TTL keeps
// conversations for a day; a negative TTL disables expiry.
func NewRedisStore(cfg interfaces.TranscriptConfig) *RedisStore {
	addr := cfg.RedisAddr
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return NewRedisStoreWithClient(rdb, cfg.TTL)
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl == 0 {
		ttl = defaultTTLDay
	}
	return &RedisStore{
		rdb:    rdb,
		ttl:    ttl,
		logger: logging.GetTranscriptLogger().WithField("backend", BackendRedis),
	}
}

func messagesKey(conversationID string) string {
	return keyPrefix + conversationID
}

func metaKey(conversationID string) string {
	return keyPrefix + conversationID + metaSuffix
}

func (s *RedisStore) Append(ctx context.Context, conversationID string, msg interfaces.ChatMessage) error {
	msg.Timestamp = stamp(msg)
	data, err := encodeMessage(msg)
	if err != nil {
		return storageError("append", err)
	}
	ts := msg.Timestamp.UnixNano()

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, messagesKey(conversationID), data)
		pipe.HSetNX(ctx, metaKey(conversationID), fieldStarted, ts)
		pipe.HSet(ctx, metaKey(conversationID), fieldUpdated, ts)
		pipe.ZAdd(ctx, indexKey, redis.Z{Score: float64(ts), Member: conversationID})
		s.expire(ctx, pipe, conversationID)
		return nil
	})
	if err != nil {
		return storageError("append", fmt.Errorf("failed to save message: %w", err))
	}
	s.logger.Debug("Message archived", "conversation_id", conversationID, "direction", msg.Direction)
	return nil
}

func (s *RedisStore) BindSession(ctx context.Context, conversationID, sessionID string) error {
	now := time.Now().UnixNano()
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, metaKey(conversationID), fieldSession, sessionID)
		pipe.HSetNX(ctx, metaKey(conversationID), fieldStarted, now)
		pipe.HSetNX(ctx, metaKey(conversationID), fieldUpdated, now)
		pipe.ZAddNX(ctx, indexKey, redis.Z{Score: float64(now), Member: conversationID})
		s.expire(ctx, pipe, conversationID)
		return nil
	})
	if err != nil {
		return storageError("bind_session", err)
	}
	return nil
}

func (s *RedisStore) expire(ctx context.Context, pipe redis.Pipeliner, conversationID string) {
	if s.ttl <= 0 {
		return
	}
	pipe.Expire(ctx, messagesKey(conversationID), s.ttl)
	pipe.Expire(ctx, metaKey(conversationID), s.ttl)
}

func (s *RedisStore) Load(ctx context.Context, conversationID string) ([]interfaces.ChatMessage, error) {
	exists, err := s.rdb.Exists(ctx, metaKey(conversationID)).Result()
	if err != nil {
		return nil, storageError("load", err)
	}
	if exists == 0 {
		return nil, notFound(conversationID)
	}

	items, err := s.rdb.LRange(ctx, messagesKey(conversationID), 0, -1).Result()
	if err == redis.Nil {
		return []interfaces.ChatMessage{}, nil
	}
	if err != nil {
		return nil, storageError("load", fmt.Errorf("failed to load conversation: %w", err))
	}

	messages := make([]interfaces.ChatMessage, 0, len(items))
	for _, item := range items {
		msg, err := decodeMessage(item)
		if err != nil {
			return nil, storageError("load", err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// List walks the index newest first. Entries whose metadata expired are pruned.
func (s *RedisStore) List(ctx context.Context) ([]interfaces.Conversation, error) {
	ids, err := s.rdb.ZRevRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, storageError("list", err)
	}

	var convs []interfaces.Conversation
	for _, id := range ids {
		meta, err := s.rdb.HGetAll(ctx, metaKey(id)).Result()
		if err != nil {
			return nil, storageError("list", err)
		}
		if len(meta) == 0 {
			s.rdb.ZRem(ctx, indexKey, id)
			continue
		}
		count, err := s.rdb.LLen(ctx, messagesKey(id)).Result()
		if err != nil {
			return nil, storageError("list", err)
		}
		convs = append(convs, conversationFromMeta(id, meta, int(count)))
	}

	sortConversations(convs)
	return convs, nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func encodeMessage(msg interfaces.ChatMessage) (string, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}
	return string(data), nil
}

func decodeMessage(item string) (interfaces.ChatMessage, error) {
	var msg interfaces.ChatMessage
	if err := json.Unmarshal([]byte(item), &msg); err != nil {
		return msg, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	return msg, nil
}

func conversationFromMeta(id string, meta map[string]string, count int) interfaces.Conversation {
	return interfaces.Conversation{
		ID:           id,
		SessionID:    meta[fieldSession],
		MessageCount: count,
		StartedAt:    parseNanos(meta[fieldStarted]),
		UpdatedAt:    parseNanos(meta[fieldUpdated]),
	}
}

func parseNanos(v string) time.Time {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
