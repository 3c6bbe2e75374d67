package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"aichat-backend/internal/model"
)

type ChatHistoryRepository struct {
	db *gorm.DB
}

func NewChatHistoryRepository(db *gorm.DB) *ChatHistoryRepository {
	return &ChatHistoryRepository{db: db}
}

func (r *ChatHistoryRepository) Create(ctx context.Context, record *model.ChatHistory) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit("User").Create(record).Error
	})
	if err != nil {
		return fmt.Errorf("create chat history failed: %w", err)
	}
	return nil
}

// ListByUserID returns the user's records newest first. limit <= 0 returns all of them.
func (r *ChatHistoryRepository) ListByUserID(ctx context.Context, userID uint, limit int) ([]model.ChatHistory, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	records := make([]model.ChatHistory, 0)
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list chat history failed: %w", err)
	}
	return records, nil
}

func (r *ChatHistoryRepository) CountByUserID(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.ChatHistory{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count chat history failed: %w", err)
	}
	return count, nil
}
