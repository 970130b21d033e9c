package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"go-rating/internal/metrics"
	"go-rating/internal/model"
	"go-rating/internal/stats"
)

const (
	DefaultPageSize = 10

	maxAggregateAttempts = 5
)

type ArticleService struct {
	db      *gorm.DB
	metrics *metrics.Metrics
}

func NewArticleService(db *gorm.DB, m *metrics.Metrics) *ArticleService {
	return &ArticleService{db: db, metrics: m}
}

// CreateArticle 新建文章, 统计值全部为 0
func (s *ArticleService) CreateArticle(ctx context.Context, title, body string) (*model.Article, error) {
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	article := &model.Article{Title: title, Body: body}
	if err := s.db.WithContext(ctx).Create(article).Error; err != nil {
		return nil, fmt.Errorf("create article: %w", err)
	}
	return article, nil
}

// GetArticle 按 ID 获取文章
func (s *ArticleService) GetArticle(ctx context.Context, id uint) (*model.Article, error) {
	return getArticle(s.db.WithContext(ctx), id)
}

// ListArticles 按创建时间倒序分页, userID 非空时附带该用户的评分
func (s *ArticleService) ListArticles(ctx context.Context, userID *uint, page, pageSize int) ([]model.ArticleView, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&model.Article{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count articles: %w", err)
	}

	var articles []model.Article
	if err := db.Order("created_at DESC").Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&articles).Error; err != nil {
		return nil, 0, fmt.Errorf("list articles: %w", err)
	}

	userRatings := map[uint]int{}
	if userID != nil && len(articles) > 0 {
		ids := make([]uint, len(articles))
		for i, a := range articles {
			ids[i] = a.ID
		}

		var ratings []model.Rating
		if err := db.Select("article_id", "score").
			Where("user_id = ? AND article_id IN ?", *userID, ids).
			Find(&ratings).Error; err != nil {
			return nil, 0, fmt.Errorf("load user ratings: %w", err)
		}
		for _, r := range ratings {
			userRatings[r.ArticleID] = r.Score
		}
	}

	views := make([]model.ArticleView, 0, len(articles))
	for _, a := range articles {
		var userRating *int
		if score, ok := userRatings[a.ID]; ok {
			userRating = &score
		}
		views = append(views, model.NewArticleView(a, userRating))
	}

	return views, total, nil
}

// ApplyNewRating 将一条正常评分计入文章统计
func (s *ArticleService) ApplyNewRating(ctx context.Context, tx *gorm.DB, articleID uint, score int) error {
	return s.ApplyBatch(ctx, tx, articleID, []int{score})
}

// ApplyScoreChange 用户修改了已计入的评分, 评分数不变
func (s *ArticleService) ApplyScoreChange(ctx context.Context, tx *gorm.DB, articleID uint, newScore, oldScore int) error {
	return s.updateAggregate(ctx, tx, articleID, func(a *model.Article) error {
		if a.RatingCount < 1 {
			return fmt.Errorf("article %d has no counted ratings to replace", a.ID)
		}
		a.RatingAverage, a.SumSqDev = stats.UpdateOnReplace(
			a.RatingAverage, a.SumSqDev, a.RatingCount,
			float64(newScore), float64(oldScore),
		)
		return nil
	})
}

// ApplyBatch 一次性合并多条新确认的正常评分
func (s *ArticleService) ApplyBatch(ctx context.Context, tx *gorm.DB, articleID uint, scores []int) error {
	if len(scores) == 0 {
		return nil
	}
	values := make([]float64, len(scores))
	for i, v := range scores {
		values[i] = float64(v)
	}

	return s.updateAggregate(ctx, tx, articleID, func(a *model.Article) error {
		a.RatingAverage, a.SumSqDev, a.RatingCount = stats.MergeNewPoints(
			a.RatingAverage, a.SumSqDev, a.RatingCount, values,
		)
		return nil
	})
}

// updateAggregate 读取当前行, 计算新统计值, 以 version 为条件写回
// 行已被其他请求修改时重新读取并重算
func (s *ArticleService) updateAggregate(ctx context.Context, tx *gorm.DB, articleID uint, apply func(a *model.Article) error) error {
	if tx == nil {
		tx = s.db
	}
	db := tx.WithContext(ctx)

	for attempt := 0; attempt < maxAggregateAttempts; attempt++ {
		article, err := getArticle(db, articleID)
		if err != nil {
			return err
		}
		if err := apply(article); err != nil {
			return err
		}

		result := db.Model(&model.Article{}).
			Where("id = ? AND version = ?", article.ID, article.Version).
			Updates(map[string]any{
				"rating_count":   article.RatingCount,
				"rating_average": article.RatingAverage,
				"sum_sq_dev":     article.SumSqDev,
				"version":        gorm.Expr("version + 1"),
			})
		if result.Error != nil {
			return fmt.Errorf("update article %d aggregate: %w", articleID, result.Error)
		}
		if result.RowsAffected == 1 {
			return nil
		}
		s.metrics.ObserveAggregateRetry()
	}

	return fmt.Errorf("%w: article %d", ErrAggregateContention, articleID)
}

func getArticle(db *gorm.DB, id uint) (*model.Article, error) {
	var article model.Article
	if err := db.First(&article, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: article %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get article %d: %w", id, err)
	}
	return &article, nil
}
