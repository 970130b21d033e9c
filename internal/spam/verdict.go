package spam

import (
	"go-rating/internal/model"
	"go-rating/internal/stats"
)

// Verdict 对单条疑似刷分评分的复核结果
type Verdict struct {
	RatingID            uint
	ArticleID           uint
	Score               int
	RealProbability     float64
	ExpectedProbability float64
	Status              model.SpamStatus
}

// Judge 比较某分数的实际出现频率与正态拟合的期望概率
// scoreCount 为该文章在此分数上已存储的评分条数
func Judge(rating model.Rating, article *model.Article, scoreCount int64, decisiveProbDiff float64) Verdict {
	var realProb float64
	if total := article.RatingCount + scoreCount; total > 0 {
		realProb = float64(scoreCount) / float64(total)
	}
	expected := stats.NormalPDF(article.RatingAverage, article.Variance(), float64(rating.Score))

	status := model.SpamStatusNotSpam
	if realProb-expected > decisiveProbDiff {
		status = model.SpamStatusSpam
	}

	return Verdict{
		RatingID:            rating.ID,
		ArticleID:           rating.ArticleID,
		Score:               rating.Score,
		RealProbability:     realProb,
		ExpectedProbability: expected,
		Status:              status,
	}
}
