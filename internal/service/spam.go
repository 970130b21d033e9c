package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"gorm.io/gorm"

	"go-rating/internal/metrics"
	"go-rating/internal/model"
	"go-rating/internal/spam"
)

// 单条 IN 查询的最大参数个数
const idBatchSize = 500

// ReconcileResult 一次复核的结果统计
type ReconcileResult struct {
	SpamCount    int `json:"spam_count"`
	NotSpamCount int `json:"not_spam_count"`
}

// SpamService 定期复核疑似刷分评分
//
// 同一时间只能有一个复核在运行, 由调度器保证, 这里不加锁.
type SpamService struct {
	db               *gorm.DB
	articles         *ArticleService
	decisiveProbDiff float64
	logger           *slog.Logger
	metrics          *metrics.Metrics
}

func NewSpamService(db *gorm.DB, articles *ArticleService, decisiveProbDiff float64, logger *slog.Logger, m *metrics.Metrics) *SpamService {
	return &SpamService{
		db:               db,
		articles:         articles,
		decisiveProbDiff: decisiveProbDiff,
		logger:           logger,
		metrics:          m,
	}
}

// HandleProbableSpamRatings 复核所有疑似刷分评分
// 确认正常的评分按文章批量计入统计, 确认刷分的永久排除, 两者在同一事务中生效
func (s *SpamService) HandleProbableSpamRatings(ctx context.Context) (ReconcileResult, error) {
	start := time.Now()

	candidates, err := s.probableSpamRatings(ctx)
	if err != nil {
		return ReconcileResult{}, err
	}
	if len(candidates) == 0 {
		s.logger.Debug("no probable spam ratings")
		return ReconcileResult{}, nil
	}

	verdicts, err := s.detect(ctx, candidates)
	if err != nil {
		return ReconcileResult{}, err
	}

	var spamVerdicts, notSpamVerdicts []spam.Verdict
	for _, v := range verdicts {
		if v.Status == model.SpamStatusSpam {
			spamVerdicts = append(spamVerdicts, v)
		} else {
			notSpamVerdicts = append(notSpamVerdicts, v)
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.handleNotSpamRatings(ctx, tx, notSpamVerdicts); err != nil {
			return err
		}
		return s.updateSpamStatus(tx, spamVerdicts, model.SpamStatusSpam)
	})
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("apply spam verdicts: %w", err)
	}

	result := ReconcileResult{SpamCount: len(spamVerdicts), NotSpamCount: len(notSpamVerdicts)}
	if s.metrics != nil {
		s.metrics.ObserveVerdicts(result.SpamCount, result.NotSpamCount)
		s.metrics.ReconcileDuration.Observe(time.Since(start).Seconds())
		s.metrics.LastReconcile.SetToCurrentTime()
	}
	s.logger.Info("ran spam rating handler",
		"spam_ratings_count", result.SpamCount,
		"not_spam_ratings_count", result.NotSpamCount,
		"duration", time.Since(start),
	)
	return result, nil
}

func (s *SpamService) probableSpamRatings(ctx context.Context) ([]model.Rating, error) {
	var ratings []model.Rating
	if err := s.db.WithContext(ctx).
		Preload("Article").
		Where("spam_status = ?", model.SpamStatusProbableSpam).
		Order("id").
		Find(&ratings).Error; err != nil {
		return nil, fmt.Errorf("load probable spam ratings: %w", err)
	}
	return ratings, nil
}

func (s *SpamService) detect(ctx context.Context, ratings []model.Rating) ([]spam.Verdict, error) {
	articleIDs := make([]uint, 0, len(ratings))
	for _, r := range ratings {
		articleIDs = append(articleIDs, r.ArticleID)
	}
	slices.Sort(articleIDs)
	articleIDs = slices.Compact(articleIDs)

	counts, err := s.scoreCounts(ctx, articleIDs)
	if err != nil {
		return nil, err
	}

	verdicts := make([]spam.Verdict, 0, len(ratings))
	for _, r := range ratings {
		scoreCount := counts[r.ArticleID][r.Score]
		v := spam.Judge(r, r.Article, scoreCount, s.decisiveProbDiff)
		s.logger.Debug("judged probable spam rating",
			"rating_id", v.RatingID,
			"article_id", v.ArticleID,
			"score", v.Score,
			"real_probability", v.RealProbability,
			"expected_probability", v.ExpectedProbability,
			"verdict", v.Status.String(),
		)
		verdicts = append(verdicts, v)
	}
	return verdicts, nil
}

type scoreCountRow struct {
	ArticleID uint
	Score     int
	Count     int64
}

// scoreCounts 按 (文章, 分数) 分组统计已存储的评分条数
func (s *SpamService) scoreCounts(ctx context.Context, articleIDs []uint) (map[uint]map[int]int64, error) {
	counts := make(map[uint]map[int]int64, len(articleIDs))
	for chunk := range slices.Chunk(articleIDs, idBatchSize) {
		var rows []scoreCountRow
		if err := s.db.WithContext(ctx).Model(&model.Rating{}).
			Select("article_id, score, COUNT(*) AS count").
			Where("article_id IN ?", chunk).
			Group("article_id, score").
			Scan(&rows).Error; err != nil {
			return nil, fmt.Errorf("count ratings by score: %w", err)
		}
		for _, row := range rows {
			if counts[row.ArticleID] == nil {
				counts[row.ArticleID] = make(map[int]int64, model.MaxScore+1)
			}
			counts[row.ArticleID][row.Score] = row.Count
		}
	}
	return counts, nil
}

func (s *SpamService) handleNotSpamRatings(ctx context.Context, tx *gorm.DB, verdicts []spam.Verdict) error {
	if len(verdicts) == 0 {
		return nil
	}

	scoresByArticle, err := pendingScoresByArticle(tx, verdicts)
	if err != nil {
		return err
	}

	articleIDs := make([]uint, 0, len(scoresByArticle))
	for id := range scoresByArticle {
		articleIDs = append(articleIDs, id)
	}
	slices.Sort(articleIDs)

	for _, articleID := range articleIDs {
		if err := s.articles.ApplyBatch(ctx, tx, articleID, scoresByArticle[articleID]); err != nil {
			return err
		}
	}

	return s.updateSpamStatus(tx, verdicts, model.SpamStatusNotSpam)
}

// verdictIDsByScore 按复核时的分数分组评分 id
func verdictIDsByScore(verdicts []spam.Verdict) map[int][]uint {
	groups := make(map[int][]uint)
	for _, v := range verdicts {
		groups[v.Score] = append(groups[v.Score], v.RatingID)
	}
	return groups
}

// pendingScoresByArticle 在事务内重新读取仍处于疑似状态且分数未变的评分,
// 复核之后被重新提交的评分不计入
func pendingScoresByArticle(tx *gorm.DB, verdicts []spam.Verdict) (map[uint][]int, error) {
	result := make(map[uint][]int)
	for score, ids := range verdictIDsByScore(verdicts) {
		for chunk := range slices.Chunk(ids, idBatchSize) {
			var ratings []model.Rating
			if err := tx.Select("id", "article_id", "score").
				Where("id IN ? AND spam_status = ? AND score = ?", chunk, model.SpamStatusProbableSpam, score).
				Order("id").
				Find(&ratings).Error; err != nil {
				return nil, fmt.Errorf("load rating scores: %w", err)
			}
			for _, r := range ratings {
				result[r.ArticleID] = append(result[r.ArticleID], r.Score)
			}
		}
	}
	return result, nil
}

// updateSpamStatus 批量修改评分状态, 只修改仍处于疑似状态且分数未变的评分
// 实际更新行数少于请求数时只记录错误, 剩余评分留给下次复核
func (s *SpamService) updateSpamStatus(tx *gorm.DB, verdicts []spam.Verdict, status model.SpamStatus) error {
	if len(verdicts) == 0 {
		return nil
	}

	var updated int64
	for score, ids := range verdictIDsByScore(verdicts) {
		for chunk := range slices.Chunk(ids, idBatchSize) {
			result := tx.Model(&model.Rating{}).
				Where("id IN ? AND spam_status = ? AND score = ?", chunk, model.SpamStatusProbableSpam, score).
				Update("spam_status", status)
			if result.Error != nil {
				return fmt.Errorf("update spam status to %s: %w", status, result.Error)
			}
			updated += result.RowsAffected
		}
	}

	if updated != int64(len(verdicts)) {
		s.metrics.ObservePartialFailure()
		s.logger.Error("could not update spam_status for all rating ids",
			"rating_count", len(verdicts),
			"updated_count", updated,
			"spam_status", status.String(),
		)
	}
	return nil
}
