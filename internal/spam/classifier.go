package spam

import (
	"math"

	"go-rating/internal/model"
	"go-rating/internal/stats"
)

// ClassifierConfig 评分提交时的初筛参数
type ClassifierConfig struct {
	IsActive       bool
	MinRatingCount int64   // 评分数低于此值时不做判断
	ZScoreBound    float64 // |z| 超过此值视为疑似刷分
}

type Classifier struct {
	cfg ClassifierConfig
}

func NewClassifier(cfg ClassifierConfig) *Classifier {
	return &Classifier{cfg: cfg}
}

// Classify 根据文章当前分布判断新评分的初始状态, 只会返回 NotSpam 或 ProbableSpam
func (c *Classifier) Classify(score int, ratingCount int64, mean, variance float64) model.SpamStatus {
	if !c.cfg.IsActive {
		return model.SpamStatusNotSpam
	}
	if ratingCount < c.cfg.MinRatingCount {
		return model.SpamStatusNotSpam
	}
	// 方差为 0 时 z 分数无意义, 不作为刷分证据
	if variance <= 0 {
		return model.SpamStatusNotSpam
	}

	z := stats.ZScore(mean, variance, float64(score))
	if math.Abs(z) > c.cfg.ZScoreBound {
		return model.SpamStatusProbableSpam
	}
	return model.SpamStatusNotSpam
}

// ClassifyForArticle 使用文章聚合值调用 Classify
func (c *Classifier) ClassifyForArticle(score int, article *model.Article) model.SpamStatus {
	return c.Classify(score, article.RatingCount, article.RatingAverage, article.Variance())
}
