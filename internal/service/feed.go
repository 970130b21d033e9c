package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"gorm.io/gorm"

	"go-rating/internal/model"
)

type FeedService struct {
	db     *gorm.DB
	parser *gofeed.Parser
	logger *slog.Logger
}

func NewFeedService(db *gorm.DB, logger *slog.Logger) *FeedService {
	return &FeedService{
		db:     db,
		parser: gofeed.NewParser(),
		logger: logger,
	}
}

// ListFeeds 所有订阅源
func (s *FeedService) ListFeeds(ctx context.Context) ([]model.Feed, error) {
	var feeds []model.Feed
	if err := s.db.WithContext(ctx).Order("id").Find(&feeds).Error; err != nil {
		return nil, fmt.Errorf("list feeds: %w", err)
	}
	return feeds, nil
}

// CreateFeed 新增订阅源
func (s *FeedService) CreateFeed(ctx context.Context, feed *model.Feed) error {
	if err := s.db.WithContext(ctx).Create(feed).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: feed %s already exists", ErrConflict, feed.URL)
		}
		return fmt.Errorf("create feed: %w", err)
	}
	return nil
}

// DeleteFeed 删除订阅源, 已抓取的文章保留
func (s *FeedService) DeleteFeed(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&model.Feed{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete feed %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: feed %d", ErrNotFound, id)
	}
	return nil
}

// GetFeed 按 ID 获取订阅源
func (s *FeedService) GetFeed(ctx context.Context, id uint) (*model.Feed, error) {
	var feed model.Feed
	if err := s.db.WithContext(ctx).First(&feed, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: feed %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get feed %d: %w", id, err)
	}
	return &feed, nil
}

// FetchFeed 抓取单个Feed, 新条目作为文章入库, 返回新增文章数
func (s *FeedService) FetchFeed(ctx context.Context, feed *model.Feed) (int, error) {
	parsed, err := s.parser.ParseURLWithContext(feed.URL, ctx)
	if err != nil {
		return 0, fmt.Errorf("parse feed %s: %w", feed.URL, err)
	}
	return s.importItems(ctx, feed, parsed.Items)
}

// FetchAllFeeds 抓取所有启用的Feed, 单个失败不影响其他
func (s *FeedService) FetchAllFeeds(ctx context.Context) error {
	var feeds []model.Feed
	if err := s.db.WithContext(ctx).Where("enabled = ?", true).Find(&feeds).Error; err != nil {
		return fmt.Errorf("list enabled feeds: %w", err)
	}

	for i := range feeds {
		if err := ctx.Err(); err != nil {
			return err
		}
		count, err := s.FetchFeed(ctx, &feeds[i])
		if err != nil {
			s.logger.Warn("fetch feed failed", "feed_id", feeds[i].ID, "url", feeds[i].URL, "error", err)
			continue
		}
		s.logger.Info("fetched feed", "feed_id", feeds[i].ID, "new_articles", count)
	}
	return nil
}

func (s *FeedService) importItems(ctx context.Context, feed *model.Feed, items []*gofeed.Item) (int, error) {
	db := s.db.WithContext(ctx)

	var count int
	for _, item := range items {
		link := strings.TrimSpace(item.Link)
		if link == "" || strings.TrimSpace(item.Title) == "" {
			continue
		}

		article := model.Article{
			FeedID:    &feed.ID,
			Title:     truncate(item.Title, 255),
			Link:      &link,
			Body:      itemBody(item),
			CreatedAt: s.parseTime(item),
		}

		// 使用Link去重
		result := db.Where("link = ?", link).FirstOrCreate(&article)
		if result.Error != nil {
			return count, fmt.Errorf("save article %s: %w", link, result.Error)
		}
		if result.RowsAffected > 0 {
			count++
		}
	}

	now := time.Now()
	feed.LastFetchedAt = &now
	if err := db.Model(feed).Update("last_fetched_at", now).Error; err != nil {
		return count, fmt.Errorf("update feed %d: %w", feed.ID, err)
	}
	return count, nil
}

func (s *FeedService) parseTime(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}
	return time.Now()
}

func itemBody(item *gofeed.Item) string {
	if item.Content != "" {
		return item.Content
	}
	return item.Description
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
