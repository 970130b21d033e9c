package model

import (
	"time"

	"go-rating/internal/stats"
)

type Article struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	FeedID        *uint     `gorm:"index" json:"feed_id,omitempty"`
	Title         string    `gorm:"size:255;not null" json:"title"`
	Link          *string   `gorm:"size:500;uniqueIndex" json:"link,omitempty"`
	Body          string    `gorm:"type:text" json:"body"`
	RatingCount   int64     `gorm:"not null;default:0" json:"rating_count"`
	RatingAverage float64   `gorm:"not null;default:0" json:"rating_average"`
	SumSqDev      float64   `gorm:"not null;default:0" json:"-"`
	Version       int64     `gorm:"not null;default:0" json:"-"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
}

// Variance 当前已计入评分的总体方差
func (a *Article) Variance() float64 {
	return stats.Variance(a.SumSqDev, a.RatingCount)
}

// ArticleView 文章列表展示, UserRating 为当前用户的评分 (未评分或未登录时为 nil)
type ArticleView struct {
	ID            uint      `json:"id"`
	Title         string    `json:"title"`
	Body          string    `json:"body"`
	Link          *string   `json:"link,omitempty"`
	RatingCount   int64     `json:"rating_count"`
	RatingAverage float64   `json:"rating_average"`
	CreatedAt     time.Time `json:"created_at"`
	UserRating    *int      `json:"user_rating"`
}

// NewArticleView 由文章和可选的用户评分构造展示对象
func NewArticleView(a Article, userRating *int) ArticleView {
	return ArticleView{
		ID:            a.ID,
		Title:         a.Title,
		Body:          a.Body,
		Link:          a.Link,
		RatingCount:   a.RatingCount,
		RatingAverage: a.RatingAverage,
		CreatedAt:     a.CreatedAt,
		UserRating:    userRating,
	}
}
