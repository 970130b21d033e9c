package model

import "time"

type SpamStatus int

const (
	SpamStatusNotSpam      SpamStatus = 0 // 正常评分, 已计入文章统计
	SpamStatusProbableSpam SpamStatus = 1 // 疑似刷分, 等待复核
	SpamStatusSpam         SpamStatus = 2 // 确认刷分, 永久排除
)

const (
	MinScore = 0
	MaxScore = 5
)

func (s SpamStatus) String() string {
	switch s {
	case SpamStatusNotSpam:
		return "not_spam"
	case SpamStatusProbableSpam:
		return "probable_spam"
	case SpamStatusSpam:
		return "spam"
	default:
		return "unknown"
	}
}

// Rating 用户对文章的评分, 每个 (article, user) 最多一条
type Rating struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"not null;uniqueIndex:idx_rating_article_user" json:"-"`
	ArticleID  uint       `gorm:"not null;uniqueIndex:idx_rating_article_user;index:idx_rating_article_score" json:"article_id"`
	Article    *Article   `gorm:"foreignKey:ArticleID" json:"-"`
	Score      int        `gorm:"not null;index:idx_rating_article_score" json:"score"`
	SpamStatus SpamStatus `gorm:"not null;default:0;index" json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// ValidScore 分数是否在 [MinScore, MaxScore] 范围内
func ValidScore(score int) bool {
	return score >= MinScore && score <= MaxScore
}
