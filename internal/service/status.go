package service

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"go-rating/internal/model"
)

type StatusService struct {
	db *gorm.DB
}

type SystemStatus struct {
	// 文章统计
	TotalArticles int64 `json:"total_articles"`

	// 评分统计
	TotalRatings        int64 `json:"total_ratings"`
	NotSpamRatings      int64 `json:"not_spam_ratings"`
	ProbableSpamRatings int64 `json:"probable_spam_ratings"`
	SpamRatings         int64 `json:"spam_ratings"`

	// 订阅源统计
	TotalFeeds   int64 `json:"total_feeds"`
	EnabledFeeds int64 `json:"enabled_feeds"`

	// 定时任务信息
	NextFetchTime     time.Time `json:"next_fetch_time"`
	NextReconcileTime time.Time `json:"next_reconcile_time"`
}

func NewStatusService(db *gorm.DB) *StatusService {
	return &StatusService{db: db}
}

type statusCountRow struct {
	SpamStatus model.SpamStatus
	Count      int64
}

// GetSystemStatus 获取系统状态
func (s *StatusService) GetSystemStatus(ctx context.Context) (*SystemStatus, error) {
	db := s.db.WithContext(ctx)
	status := &SystemStatus{}

	if err := db.Model(&model.Article{}).Count(&status.TotalArticles).Error; err != nil {
		return nil, fmt.Errorf("count articles: %w", err)
	}

	var rows []statusCountRow
	if err := db.Model(&model.Rating{}).
		Select("spam_status, COUNT(*) AS count").
		Group("spam_status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("count ratings: %w", err)
	}
	for _, row := range rows {
		status.TotalRatings += row.Count
		switch row.SpamStatus {
		case model.SpamStatusNotSpam:
			status.NotSpamRatings = row.Count
		case model.SpamStatusProbableSpam:
			status.ProbableSpamRatings = row.Count
		case model.SpamStatusSpam:
			status.SpamRatings = row.Count
		}
	}

	if err := db.Model(&model.Feed{}).Count(&status.TotalFeeds).Error; err != nil {
		return nil, fmt.Errorf("count feeds: %w", err)
	}
	if err := db.Model(&model.Feed{}).Where("enabled = ?", true).Count(&status.EnabledFeeds).Error; err != nil {
		return nil, fmt.Errorf("count enabled feeds: %w", err)
	}

	return status, nil
}
