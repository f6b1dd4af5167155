package civicsense

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/civicsense/civicsense/common/logger"
	"github.com/civicsense/civicsense/config"
)

// RedisSessionStore persists sessions in Redis.
// Data model:
//   - prefix+"session:"+id => JSON(Session) with TTL
//   - prefix+"idx" => ZSET of ids scored by last activity
type RedisSessionStore struct {
	rc     *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisSessionStore(cfg *config.SessionConfig) (*RedisSessionStore, error) {
	ttl := time.Duration(cfg.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	rc := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rc.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisSessionStore{rc: rc, prefix: "civicsense:sess:", ttl: ttl}, nil
}

func (s *RedisSessionStore) idxKey() string           { return s.prefix + "idx" }
func (s *RedisSessionStore) sessKey(id string) string { return s.prefix + "session:" + id }

func (s *RedisSessionStore) Create(ctx context.Context) *Session {
	sess := &Session{ID: uuid.NewString(), CreatedAt: time.Now(), Messages: []ChatMessage{}}
	if err := s.save(ctx, sess); err != nil {
		logger.Warnf("session: redis create failed: %v", err)
	}
	return sess
}

func (s *RedisSessionStore) save(ctx context.Context, sess *Session) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	pipe := s.rc.TxPipeline()
	pipe.Set(ctx, s.sessKey(sess.ID), b, s.ttl)
	pipe.ZAdd(ctx, s.idxKey(), &redis.Z{Score: float64(time.Now().Unix()), Member: sess.ID})
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisSessionStore) Get(ctx context.Context, id string) (*Session, bool) {
	v, err := s.rc.Get(ctx, s.sessKey(id)).Result()
	if err != nil {
		return nil, false
	}
	var sess Session
	if err := json.Unmarshal([]byte(v), &sess); err != nil {
		logger.Warnf("session: corrupt session %s: %v", id, err)
		return nil, false
	}
	return &sess, true
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) bool {
	pipe := s.rc.TxPipeline()
	del := pipe.Del(ctx, s.sessKey(id))
	pipe.ZRem(ctx, s.idxKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return false
	}
	return del.Val() > 0
}

func (s *RedisSessionStore) List(ctx context.Context) []*Session {
	return s.ListRange(ctx, 0, 100)
}

func (s *RedisSessionStore) AddMessage(ctx context.Context, id string, msg ChatMessage) bool {
	sess, ok := s.Get(ctx, id)
	if !ok {
		return false
	}
	sess.Messages = append(sess.Messages, msg)
	if err := s.save(ctx, sess); err != nil {
		logger.Warnf("session: redis update failed: %v", err)
		return false
	}
	return true
}

// ListRange returns sessions from offset with limit (by recency desc).
func (s *RedisSessionStore) ListRange(ctx context.Context, offset, limit int) []*Session {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		return []*Session{}
	}
	ids, err := s.rc.ZRevRange(ctx, s.idxKey(), int64(offset), int64(offset+limit-1)).Result()
	if err != nil || len(ids) == 0 {
		return []*Session{}
	}
	res := make([]*Session, 0, len(ids))
	for _, id := range ids {
		if sess, ok := s.Get(ctx, id); ok {
			res = append(res, sess)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res
}

// Clean keeps only the top max sessions by recency. Expired sessions also
// leave stale index entries behind; those fall out here.
func (s *RedisSessionStore) Clean(ctx context.Context, max int) error {
	if max <= 0 {
		return nil
	}
	total, err := s.rc.ZCard(ctx, s.idxKey()).Result()
	if err != nil || total <= int64(max) {
		return err
	}
	ids, err := s.rc.ZRange(ctx, s.idxKey(), 0, total-int64(max)-1).Result()
	if err != nil {
		return err
	}
	pipe := s.rc.TxPipeline()
	for _, id := range ids {
		pipe.Del(ctx, s.sessKey(id))
		pipe.ZRem(ctx, s.idxKey(), id)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// Close releases the underlying Redis connection.
func (s *RedisSessionStore) Close() error {
	return s.rc.Close()
}

// NewSessionStore builds the configured session backend.
func NewSessionStore(cfg *config.SessionConfig) (SessionStore, error) {
	switch cfg.Provider {
	case "", "memory":
		return NewMemSessionStore(), nil
	case "redis":
		return NewRedisSessionStore(cfg)
	default:
		return nil, fmt.Errorf("unknown session provider: %s", cfg.Provider)
	}
}
