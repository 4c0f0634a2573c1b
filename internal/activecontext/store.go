package activecontext

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"arqueo-backend/internal/repository"
	"github.com/redis/go-redis/v9"
)

type MemoryStore struct {
	mu   sync.Mutex
	docs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: map[string][]byte{}}
}

func (s *MemoryStore) Load(_ context.Context, user string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[user]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), doc...), nil
}

func (s *MemoryStore) Save(_ context.Context, user string, doc []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[user] = append([]byte(nil), doc...)
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, user string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, user)
	return nil
}

const redisKeyPrefix = "arqueo:context:"

type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Load(ctx context.Context, user string) ([]byte, error) {
	doc, err := s.rdb.Get(ctx, redisKeyPrefix+user).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get context: %w", err)
	}
	return doc, nil
}

func (s *RedisStore) Save(ctx context.Context, user string, doc []byte) error {
	if err := s.rdb.Set(ctx, redisKeyPrefix+user, doc, 0).Err(); err != nil {
		return fmt.Errorf("redis set context: %w", err)
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, user string) error {
	if err := s.rdb.Del(ctx, redisKeyPrefix+user).Err(); err != nil {
		return fmt.Errorf("redis del context: %w", err)
	}
	return nil
}

const contextTable = "user_context"

type contextRow struct {
	UserID    string    `json:"user_id"`
	Payload   string    `json:"payload"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableStore keeps the document in the user_context table, one row per user
// upserted on user_id.
type TableStore struct {
	db repository.Store
}

func NewTableStore(db repository.Store) *TableStore {
	return &TableStore{db: db}
}

func (s *TableStore) Load(ctx context.Context, user string) ([]byte, error) {
	var row contextRow
	err := s.db.FindOne(ctx, contextTable, []repository.Filter{{Column: "user_id", Value: user}}, &row)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(row.Payload), nil
}

func (s *TableStore) Save(ctx context.Context, user string, doc []byte) error {
	row := contextRow{UserID: user, Payload: string(doc), UpdatedAt: time.Now().UTC()}
	return s.db.Upsert(ctx, contextTable, row, "user_id", nil)
}

func (s *TableStore) Remove(ctx context.Context, user string) error {
	_, err := s.db.DeleteWhere(ctx, contextTable, repository.Filter{Column: "user_id", Value: user})
	return err
}
