package identity

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/skundu/blood-market/internal/domain"
	"github.com/skundu/blood-market/internal/redisx"
)

// SessionStore keeps opaque bearer tokens in Redis with a sliding TTL.
type SessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSessionStore(rdb *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{rdb: rdb, ttl: ttl}
}

func (s *SessionStore) Create(ctx context.Context, actor domain.Actor) (string, error) {
	token := uuid.NewString()
	key := fmt.Sprintf(redisx.KeySession, token)

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key, "user_id", actor.UserID, "role", string(actor.Role))
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", err
	}
	return token, nil
}

func (s *SessionStore) Get(ctx context.Context, token string) (domain.Actor, bool, error) {
	key := fmt.Sprintf(redisx.KeySession, token)
	m, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return domain.Actor{}, false, err
	}
	if len(m) == 0 {
		return domain.Actor{}, false, nil
	}

	userID, err := strconv.ParseInt(m["user_id"], 10, 64)
	if err != nil {
		return domain.Actor{}, false, err
	}

	// refresh TTL on use
	_ = s.rdb.Expire(ctx, key, s.ttl).Err()

	return domain.Actor{UserID: userID, Role: domain.Role(m["role"])}, true, nil
}

func (s *SessionStore) Delete(ctx context.Context, token string) error {
	return s.rdb.Del(ctx, fmt.Sprintf(redisx.KeySession, token)).Err()
}
