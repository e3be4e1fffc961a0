package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/canvasflow/types"
)

// snapshotKey is the single Redis slot the canvas saves into. Saving always
// overwrites the previous snapshot; there is no version history.
const snapshotKey = "canvasflow:workflow"

// RedisConfig configures the snapshot store's Redis connection.
type RedisConfig struct {
	// Redis 地址
	Addr string `yaml:"addr" json:"addr"`

	// 密码
	Password string `yaml:"password" json:"password"`

	// 数据库编号
	DB int `yaml:"db" json:"db"`

	// 最大重试次数
	MaxRetries int `yaml:"max_retries" json:"max_retries"`

	// 连接池大小
	PoolSize int `yaml:"pool_size" json:"pool_size"`
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:       "localhost:6379",
		Password:   "",
		DB:         0,
		MaxRetries: 3,
		PoolSize:   10,
	}
}

// SnapshotStore persists a single workflow document in Redis.
type SnapshotStore struct {
	redis  *redis.Client
	logger *zap.Logger
}

// NewSnapshotStore connects to Redis and verifies the connection.
func NewSnapshotStore(config RedisConfig, logger *zap.Logger) (*SnapshotStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:       config.Addr,
		Password:   config.Password,
		DB:         config.DB,
		MaxRetries: config.MaxRetries,
		PoolSize:   config.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewSnapshotStoreWithClient(client, logger), nil
}

// NewSnapshotStoreWithClient wraps an existing client. The caller owns the
// client's lifecycle.
func NewSnapshotStoreWithClient(client *redis.Client, logger *zap.Logger) *SnapshotStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotStore{
		redis:  client,
		logger: logger.With(zap.String("component", "snapshot_store")),
	}
}

// Save overwrites the snapshot slot with doc, stamping savedAt.
func (s *SnapshotStore) Save(ctx context.Context, doc *types.WorkflowDocument) error {
	now := time.Now().UTC()
	saved := doc.Clone()
	saved.SavedAt = &now

	payload, err := json.Marshal(saved)
	if err != nil {
		return types.NewError(types.ErrInternalError, "failed to encode workflow snapshot").WithCause(err)
	}

	if err := s.redis.Set(ctx, snapshotKey, payload, 0).Err(); err != nil {
		return types.NewError(types.ErrInternalError, "failed to write workflow snapshot").WithCause(err)
	}

	s.logger.Info("workflow snapshot saved",
		zap.String("name", saved.Name),
		zap.Int("nodes", len(saved.Nodes)),
		zap.Int("edges", len(saved.Edges)),
	)
	return nil
}

// Load reads the snapshot slot. A missing snapshot is a NOT_FOUND error.
func (s *SnapshotStore) Load(ctx context.Context) (*types.WorkflowDocument, error) {
	payload, err := s.redis.Get(ctx, snapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, types.NewError(types.ErrNotFound, "no saved workflow found")
	}
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "failed to read workflow snapshot").WithCause(err)
	}

	doc, err := ParseDocument(payload)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Delete removes the snapshot. Deleting a missing snapshot is not an error.
func (s *SnapshotStore) Delete(ctx context.Context) error {
	if err := s.redis.Del(ctx, snapshotKey).Err(); err != nil {
		return types.NewError(types.ErrInternalError, "failed to delete workflow snapshot").WithCause(err)
	}
	return nil
}

// Ping reports snapshot storage health.
func (s *SnapshotStore) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}
