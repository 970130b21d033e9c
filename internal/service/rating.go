package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"go-rating/internal/metrics"
	"go-rating/internal/model"
	"go-rating/internal/spam"
)

type RatingService struct {
	db         *gorm.DB
	articles   *ArticleService
	classifier *spam.Classifier
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

func NewRatingService(db *gorm.DB, articles *ArticleService, classifier *spam.Classifier, logger *slog.Logger, m *metrics.Metrics) *RatingService {
	return &RatingService{
		db:         db,
		articles:   articles,
		classifier: classifier,
		logger:     logger,
		metrics:    m,
	}
}

// Submit 用户提交或修改对文章的评分
//
// 首次评分: 按文章当前分布初筛, 正常评分立即计入统计, 疑似刷分等待复核.
// 修改评分: 原地更新分数和状态, 仅当新旧状态都为正常时调整统计.
func (s *RatingService) Submit(ctx context.Context, userID, articleID uint, score int) (*model.Rating, error) {
	if !model.ValidScore(score) {
		return nil, fmt.Errorf("%w: score must be between %d and %d", ErrValidation, model.MinScore, model.MaxScore)
	}

	var rating *model.Rating
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&model.User{}, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: user %d", ErrNotFound, userID)
			}
			return fmt.Errorf("get user %d: %w", userID, err)
		}

		article, err := getArticle(tx, articleID)
		if err != nil {
			return err
		}

		existing, err := findUserRating(tx, userID, articleID)
		if err != nil {
			return err
		}

		status := s.classifier.ClassifyForArticle(score, article)
		if existing == nil {
			rating, err = s.create(ctx, tx, userID, articleID, score, status)
		} else {
			rating, err = s.update(ctx, tx, existing, score, status)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveSubmission(rating.SpamStatus)
	s.logger.Debug("rating submitted",
		"rating_id", rating.ID,
		"article_id", articleID,
		"score", score,
		"spam_status", rating.SpamStatus.String(),
	)
	return rating, nil
}

// GetUserRating 获取用户对文章的评分, 不存在时返回 ErrNotFound
func (s *RatingService) GetUserRating(ctx context.Context, userID, articleID uint) (*model.Rating, error) {
	rating, err := findUserRating(s.db.WithContext(ctx), userID, articleID)
	if err != nil {
		return nil, err
	}
	if rating == nil {
		return nil, fmt.Errorf("%w: rating of user %d on article %d", ErrNotFound, userID, articleID)
	}
	return rating, nil
}

func (s *RatingService) create(ctx context.Context, tx *gorm.DB, userID, articleID uint, score int, status model.SpamStatus) (*model.Rating, error) {
	rating := &model.Rating{
		UserID:     userID,
		ArticleID:  articleID,
		Score:      score,
		SpamStatus: status,
	}
	if err := tx.Create(rating).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: user %d already rated article %d", ErrConflict, userID, articleID)
		}
		return nil, fmt.Errorf("create rating: %w", err)
	}

	if status == model.SpamStatusNotSpam {
		if err := s.articles.ApplyNewRating(ctx, tx, articleID, score); err != nil {
			return nil, err
		}
	}
	return rating, nil
}

func (s *RatingService) update(ctx context.Context, tx *gorm.DB, rating *model.Rating, score int, status model.SpamStatus) (*model.Rating, error) {
	oldScore := rating.Score
	oldStatus := rating.SpamStatus

	if err := tx.Model(rating).Updates(map[string]any{
		"score":       score,
		"spam_status": status,
	}).Error; err != nil {
		return nil, fmt.Errorf("update rating %d: %w", rating.ID, err)
	}
	rating.Score = score
	rating.SpamStatus = status

	// 旧状态不是正常时统计中没有旧分数, 新状态不是正常时新分数尚未确认
	if oldStatus == model.SpamStatusNotSpam && status == model.SpamStatusNotSpam {
		if err := s.articles.ApplyScoreChange(ctx, tx, rating.ArticleID, score, oldScore); err != nil {
			return nil, err
		}
	}
	return rating, nil
}

func findUserRating(db *gorm.DB, userID, articleID uint) (*model.Rating, error) {
	var rating model.Rating
	err := db.Where("user_id = ? AND article_id = ?", userID, articleID).Take(&rating).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find rating: %w", err)
	}
	return &rating, nil
}
