package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BaSui01/canvasflow/types"
	"github.com/BaSui01/canvasflow/workflow"
)

// ExecutionRecord is one finished run, stored relationally for listing and
// lookup. Per-node details are embedded as JSON: they are read back whole,
// never queried field by field.
type ExecutionRecord struct {
	ID           uint      `gorm:"primaryKey"`
	ExecutionID  string    `gorm:"uniqueIndex;size:64"`
	WorkflowName string    `gorm:"size:255"`
	Status       string    `gorm:"size:16;index"`
	StartTime    time.Time `gorm:"index"`
	EndTime      time.Time
	DurationMs   int64
	NodeCount    int
	Error        string `gorm:"type:text"`
	NodesJSON    string `gorm:"type:text"`
	CreatedAt    time.Time
}

// TableName 指定表名
func (ExecutionRecord) TableName() string {
	return "execution_records"
}

// HistoryStore persists execution histories through GORM. It implements
// workflow.HistorySink.
type HistoryStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewHistoryStore migrates the schema and returns a store.
func NewHistoryStore(db *gorm.DB, logger *zap.Logger) (*HistoryStore, error) {
	if err := db.AutoMigrate(&ExecutionRecord{}); err != nil {
		return nil, fmt.Errorf("failed to auto migrate: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryStore{
		db:     db,
		logger: logger.With(zap.String("component", "history_store")),
	}, nil
}

// SaveHistory stores one completed run.
func (s *HistoryStore) SaveHistory(ctx context.Context, history *workflow.ExecutionHistory) error {
	nodesJSON, err := json.Marshal(history.GetNodes())
	if err != nil {
		return types.NewError(types.ErrInternalError, "failed to encode node executions").WithCause(err)
	}

	record := &ExecutionRecord{
		ExecutionID:  history.ExecutionID,
		WorkflowName: history.WorkflowName,
		Status:       string(history.Status),
		StartTime:    history.StartTime,
		EndTime:      history.EndTime,
		DurationMs:   history.Duration.Milliseconds(),
		NodeCount:    len(history.GetNodes()),
		Error:        history.Error,
		NodesJSON:    string(nodesJSON),
	}

	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return types.NewError(types.ErrInternalError, "failed to store execution record").WithCause(err)
	}

	s.logger.Debug("execution history stored",
		zap.String("execution_id", history.ExecutionID),
		zap.String("status", string(history.Status)),
	)
	return nil
}

// ListRecent returns the most recent runs, newest first.
func (s *HistoryStore) ListRecent(ctx context.Context, limit int) ([]ExecutionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var records []ExecutionRecord
	err := s.db.WithContext(ctx).
		Order("start_time DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "failed to list execution records").WithCause(err)
	}
	return records, nil
}

// GetByExecutionID returns one run, or NOT_FOUND.
func (s *HistoryStore) GetByExecutionID(ctx context.Context, executionID string) (*ExecutionRecord, error) {
	var record ExecutionRecord
	err := s.db.WithContext(ctx).
		Where("execution_id = ?", executionID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewError(types.ErrNotFound, "execution not found: "+executionID)
	}
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "failed to load execution record").WithCause(err)
	}
	return &record, nil
}

// Ping verifies the underlying database connection.
func (s *HistoryStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// NodeExecutions decodes the embedded per-node details.
func (r *ExecutionRecord) NodeExecutions() ([]*workflow.NodeExecution, error) {
	var nodes []*workflow.NodeExecution
	if err := json.Unmarshal([]byte(r.NodesJSON), &nodes); err != nil {
		return nil, fmt.Errorf("failed to decode node executions: %w", err)
	}
	return nodes, nil
}
